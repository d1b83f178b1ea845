// Package log provides structured logging for the slope-risk modelling
// pipeline on top of log/slog. Errors created with pkg/errors carry stack
// traces from cockroachdb/errors; the handler in this package surfaces them
// as a dedicated attribute so log aggregation can index them.
package log

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
)

var (
	defaultMu     sync.RWMutex
	defaultLogger = slog.New(WrapByErrFmtHandler(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))
)

// SetupLogger configures the package default logger with a JSON handler at
// the given level. Level strings follow slog conventions: debug, info,
// warn, error.
func SetupLogger(loglevel string) {
	ops := slog.HandlerOptions{
		Level: ToLogLevel(loglevel),
	}
	handler := slog.NewJSONHandler(os.Stderr, &ops)

	defaultMu.Lock()
	defaultLogger = slog.New(WrapByErrFmtHandler(handler))
	defaultMu.Unlock()
}

// SetLogger replaces the package default logger. Intended for tests and for
// embedding applications that already own a slog configuration.
func SetLogger(l *slog.Logger) {
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// GetLogger returns the package default logger.
func GetLogger() *slog.Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// GetLoggerWithName returns the default logger scoped to a component name.
func GetLoggerWithName(name string) *slog.Logger {
	return GetLogger().With(ComponentKey, name)
}

// ToLogLevel converts a level string to a slog.Level.
func ToLogLevel(level string) slog.Level {
	switch level {
	case "info":
		return slog.LevelInfo
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		panic(fmt.Sprintf("invalid log level :%s", level))
	}
}

const (
	// ErrAttrKey is the attribute key for error values.
	ErrAttrKey = "error"
	// StacktraceAttrKey is the attribute key for extracted stack traces.
	StacktraceAttrKey = "stacktrace"
)

// ErrAttr wraps an error for structured logging.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}
