package http

import (
	"context"
	"log/slog"
)

// defaultLogger picks the handler's base logger, falling back to the process
// default so response writing never panics on a nil logger.
func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// handlerLogger resolves the logger for one request: the request scoped
// logger installed by RequestLogger wins, then the handler's base logger.
// The result is annotated with the handler name and operation, for example
// handler=events operation=create, plus any extra attrs.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	logger := LoggerFromContext(ctx)
	if logger == nil {
		logger = defaultLogger(fallback)
	}

	pairs := append([]any{"handler", handlerName, "operation", operation}, attrs...)
	return logger.With(pairs...)
}
