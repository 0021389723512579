package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the calendar
// service.
type Config struct {
	HTTPPort        int
	SQLiteDSN       string
	LogLevel        string
	DefaultTimezone string
}

// Load parses configuration values from the current process environment,
// applying defaults for optional fields and reporting every invalid entry at
// once.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:        8080,
		SQLiteDSN:       "file:calendar.db",
		LogLevel:        "info",
		DefaultTimezone: "UTC",
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("CALENDAR_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "CALENDAR_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("CALENDAR_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if level := strings.TrimSpace(os.Getenv("CALENDAR_LOG_LEVEL")); level != "" {
		cfg.LogLevel = level
	}

	if tz := strings.TrimSpace(os.Getenv("CALENDAR_DEFAULT_TIMEZONE")); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			invalid = append(invalid, "CALENDAR_DEFAULT_TIMEZONE")
		} else {
			cfg.DefaultTimezone = tz
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
