package logger

import (
	"context"
	"sync"
)

type contextKey struct{}

var loggerKey = contextKey{}

// defaultLogger answers FromContext when the context carries no logger.
// main replaces it via SetDefaultLogger once flags are parsed.
var (
	defaultLogger   *Logger
	defaultLoggerMu sync.RWMutex
)

func init() {
	defaultLogger = New(nil)
}

// SetDefaultLogger replaces the process-wide fallback logger.
func SetDefaultLogger(l *Logger) {
	if l != nil {
		defaultLoggerMu.Lock()
		defaultLogger = l
		defaultLoggerMu.Unlock()
	}
}

func getDefaultLogger() *Logger {
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}

// WithContext attaches the logger to the context so downstream calls
// pick up its fields.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger carried by the context, or the default
// logger when there is none.
func FromContext(ctx context.Context) *Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*Logger); ok {
			return l
		}
	}
	return getDefaultLogger()
}

// WithField returns a context whose logger carries one extra field.
func WithField(ctx context.Context, key string, value interface{}) context.Context {
	return FromContext(ctx).WithField(key, value).WithContext(ctx)
}

// WithFields returns a context whose logger carries the extra fields.
func WithFields(ctx context.Context, fields Fields) context.Context {
	return FromContext(ctx).WithFields(fields).WithContext(ctx)
}

// Package-level helpers against the default logger, for call sites
// without a context.

func Debug(format string, args ...interface{}) {
	getDefaultLogger().Debugf(format, args...)
}

func Info(format string, args ...interface{}) {
	getDefaultLogger().Infof(format, args...)
}

func Warn(format string, args ...interface{}) {
	getDefaultLogger().Warnf(format, args...)
}

func Error(format string, args ...interface{}) {
	getDefaultLogger().Errorf(format, args...)
}

func Fatal(format string, args ...interface{}) {
	getDefaultLogger().Fatalf(format, args...)
}

// Context-aware variants. These pull the logger, and therefore its
// request/run fields, out of the context.

func CtxDebug(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Debugf(format, args...)
}

func CtxInfo(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Infof(format, args...)
}

func CtxWarn(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Warnf(format, args...)
}

func CtxError(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Errorf(format, args...)
}

func CtxFatal(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Fatalf(format, args...)
}
