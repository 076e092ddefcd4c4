// Package logger provides the process-wide structured logger for sourcefetch.
//
// It wraps a zap.SugaredLogger for printf-style logging and exposes a logr.Logger
// (backed by zapr) that the fetch pipeline carries through context.Context for
// key/value logging scoped to a single source.
package logger

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu    sync.RWMutex
	base  = zap.NewNop()
	sugar = base.Sugar()
)

// Initialize configures the global logger. debug forces the debug level, otherwise
// level is parsed from the given string ("debug", "info", "warn", "error").
// Output goes to stderr so stdout stays clean for command output.
func Initialize(level string, debug bool) {
	lvl := ParseLevel(level)
	if debug {
		lvl = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		zap.NewAtomicLevelAt(lvl),
	)

	Set(zap.New(core))
}

// Set replaces the global logger. Tests use it to route output to zaptest or a no-op core.
func Set(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = l
	sugar = l.Sugar()
}

// ParseLevel maps a textual level to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func get() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// NewLogr returns a logr.Logger backed by the global zap logger.
func NewLogr() logr.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return zapr.NewLogger(base)
}

// WithContext attaches l to ctx.
func WithContext(ctx context.Context, l logr.Logger) context.Context {
	return logr.NewContext(ctx, l)
}

// FromContext returns the logr.Logger stored in ctx, or one backed by the global
// logger when none was attached.
func FromContext(ctx context.Context) logr.Logger {
	if l, err := logr.FromContext(ctx); err == nil {
		return l
	}
	return NewLogr()
}

// Sync flushes buffered log entries.
func Sync() {
	_ = get().Sync()
}

// Debugf logs a formatted message at debug level.
func Debugf(format string, args ...any) { get().Debugf(format, args...) }

// Infof logs a formatted message at info level.
func Infof(format string, args ...any) { get().Infof(format, args...) }

// Warnf logs a formatted message at warn level.
func Warnf(format string, args ...any) { get().Warnf(format, args...) }

// Errorf logs a formatted message at error level.
func Errorf(format string, args ...any) { get().Errorf(format, args...) }

// Fatalf logs a formatted message and exits the process.
func Fatalf(format string, args ...any) { get().Fatalf(format, args...) }

// Info logs a message with optional key/value pairs.
func Info(msg string, keysAndValues ...any) { get().Infow(msg, keysAndValues...) }

// Warn logs a message with optional key/value pairs.
func Warn(msg string, keysAndValues ...any) { get().Warnw(msg, keysAndValues...) }

// Error logs a message with optional key/value pairs.
func Error(msg string, keysAndValues ...any) { get().Errorw(msg, keysAndValues...) }

// Debug logs a message with optional key/value pairs.
func Debug(msg string, keysAndValues ...any) { get().Debugw(msg, keysAndValues...) }
