package logging

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogrusLogger adapts a logrus logger to the library Logger interface.
//
// Example integration:
//
//	appLogger := logrus.New()
//	appLogger.SetFormatter(&logrus.JSONFormatter{})
//	logging.SetGlobalLogger(logging.NewLogrusLogger(appLogger))
type LogrusLogger struct {
	base  *logrus.Logger
	entry *logrus.Entry
}

// NewLogrusLogger wraps base. A nil base gets a fresh logrus.New().
func NewLogrusLogger(base *logrus.Logger) *LogrusLogger {
	if base == nil {
		base = logrus.New()
	}
	return &LogrusLogger{
		base:  base,
		entry: logrus.NewEntry(base),
	}
}

func (l *LogrusLogger) with(fields []Fields) *logrus.Entry {
	if len(fields) == 0 {
		return l.entry
	}
	merged := make(logrus.Fields)
	for _, f := range fields {
		for k, v := range f {
			merged[k] = v
		}
	}
	return l.entry.WithFields(merged)
}

func (l *LogrusLogger) Debug(msg string, fields ...Fields) {
	l.with(fields).Debug(msg)
}

func (l *LogrusLogger) Info(msg string, fields ...Fields) {
	l.with(fields).Info(msg)
}

func (l *LogrusLogger) Warn(msg string, fields ...Fields) {
	l.with(fields).Warn(msg)
}

func (l *LogrusLogger) Error(err error, msg string, fields ...Fields) {
	l.with(fields).WithError(err).Error(msg)
}

// Fatal logs and exits through logrus' exit handler.
func (l *LogrusLogger) Fatal(err error, msg string, fields ...Fields) {
	l.with(fields).WithError(err).Fatal(msg)
}

func (l *LogrusLogger) WithFields(fields Fields) Logger {
	return &LogrusLogger{
		base:  l.base,
		entry: l.entry.WithFields(logrus.Fields(fields)),
	}
}

func (l *LogrusLogger) WithContext(ctx context.Context) Logger {
	if fields, ok := FieldsFromContext(ctx); ok {
		return l.WithFields(fields)
	}
	return l
}

// SetLevel changes the level of the underlying logrus logger, which is shared
// by every logger derived from it.
func (l *LogrusLogger) SetLevel(level Level) {
	l.base.SetLevel(toLogrusLevel(level))
}

func toLogrusLevel(level Level) logrus.Level {
	switch level {
	case DebugLevel:
		return logrus.DebugLevel
	case WarnLevel:
		return logrus.WarnLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	case FatalLevel:
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}
