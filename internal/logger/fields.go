package logger

import "context"

// Fields is shorthand for logrus-style structured fields.
type Fields map[string]interface{}

// Context-propagated field names, shared so the same key never appears
// under two spellings.
const (
	FieldRequestID = "request_id"
	FieldRunID     = "run_id"
	FieldComponent = "component"
	FieldSource    = "source"
	FieldStem      = "stem"
)

// Metric field names recorded on completion log lines.
const (
	FieldDurationMs = "duration_ms"
	FieldCount      = "count"
	FieldSize       = "size"
	FieldStatus     = "status"
)

// Entry accumulates metric fields before emitting a single line, e.g.
// logger.With(logger.Fields{logger.FieldDurationMs: ms}).Info(ctx, "done").
type Entry struct {
	logger *Logger
	fields Fields
}

// With starts an Entry carrying the given fields.
func With(fields Fields) *Entry {
	return &Entry{
		logger: getDefaultLogger(),
		fields: fields,
	}
}

// With returns a copy of the Entry with more fields merged in.
func (e *Entry) With(fields Fields) *Entry {
	merged := make(Fields, len(e.fields)+len(fields))
	for k, v := range e.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Entry{logger: e.logger, fields: merged}
}

// WithField returns a copy of the Entry with one more field.
func (e *Entry) WithField(key string, value interface{}) *Entry {
	return e.With(Fields{key: value})
}

func (e *Entry) resolve(ctx context.Context) *Logger {
	if ctx != nil {
		return FromContext(ctx)
	}
	return e.logger
}

// Debug emits the entry at debug level.
func (e *Entry) Debug(ctx context.Context, format string, args ...interface{}) {
	e.resolve(ctx).WithFields(e.fields).Debugf(format, args...)
}

// Info emits the entry at info level.
func (e *Entry) Info(ctx context.Context, format string, args ...interface{}) {
	e.resolve(ctx).WithFields(e.fields).Infof(format, args...)
}

// Warn emits the entry at warn level.
func (e *Entry) Warn(ctx context.Context, format string, args ...interface{}) {
	e.resolve(ctx).WithFields(e.fields).Warnf(format, args...)
}

// Error emits the entry at error level.
func (e *Entry) Error(ctx context.Context, format string, args ...interface{}) {
	e.resolve(ctx).WithFields(e.fields).Errorf(format, args...)
}
