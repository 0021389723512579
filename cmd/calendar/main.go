package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/example/weekview-calendar/internal/application"
	"github.com/example/weekview-calendar/internal/config"
	httptransport "github.com/example/weekview-calendar/internal/http"
	"github.com/example/weekview-calendar/internal/logging"
	"github.com/example/weekview-calendar/internal/persistence/sqlite"
)

func main() {
	// A missing .env is fine; the loader falls back to process env.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "calendar",
		Usage: "single-user calendar with timezone-aware scheduling",
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logger := logging.New(os.Stdout, cfg.LogLevel)

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := sqlite.Open(cfg.SQLiteDSN)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer func() {
				if cerr := store.Close(); cerr != nil {
					logger.Error("failed to close store", "error", cerr)
				}
			}()

			if err := store.Migrate(context.Background()); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}

			events := sqlite.NewEventRepository(store)
			service := application.NewEventServiceWithLogger(events, uuid.NewString, time.Now, logger)
			handler := httptransport.NewEventHandler(service, cfg.DefaultTimezone, logger)

			router := httptransport.NewRouter(httptransport.RouterConfig{
				Events: handler,
				Middleware: []func(http.Handler) http.Handler{
					httptransport.RequestLogger(logger),
				},
			})

			server := newServer(cfg.HTTPPort, router)

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("failed to shutdown server", "error", err)
				}
			}()

			logger.Info("calendar API listening", "addr", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply the database schema and exit",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logger := logging.New(os.Stdout, cfg.LogLevel)

			store, err := sqlite.Open(cfg.SQLiteDSN)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer func() {
				_ = store.Close()
			}()

			if err := store.Migrate(c.Context); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}

			logger.Info("schema applied", "dsn", cfg.SQLiteDSN)
			return nil
		},
	}
}

func newServer(port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
