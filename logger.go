package relaycache

import (
	"log/slog"
	"sync"
)

var (
	logger     *slog.Logger
	loggerOnce sync.Once
)

// SetLogger sets a custom slog.Logger instance to be used by the relaycache
// package. Call it once during process startup; it is not safe to call
// concurrently with requests flowing through a Middleware.
func SetLogger(l *slog.Logger) {
	logger = l
}

// GetLogger returns the configured logger, or slog.Default() if none has
// been set via SetLogger.
func GetLogger() *slog.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = slog.Default()
		}
	})
	return logger
}
