package logging

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// DefaultLogger writes structured text lines through logrus.
// Colors are enabled by logrus itself when the output is a terminal.
type DefaultLogger struct {
	base  *logrus.Logger
	entry *logrus.Entry
}

// NewDefaultLogger creates a logger writing to stderr at info level
func NewDefaultLogger() *DefaultLogger {
	return NewDefaultLoggerWithOutput(os.Stderr)
}

// NewDefaultLoggerWithOutput creates a logger writing to out
func NewDefaultLoggerWithOutput(out io.Writer) *DefaultLogger {
	base := logrus.New()
	base.SetOutput(out)
	base.SetLevel(logrus.InfoLevel)
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	return &DefaultLogger{base: base, entry: logrus.NewEntry(base)}
}

// NewJSONLogger creates a logger emitting one JSON object per line
func NewJSONLogger(out io.Writer) *DefaultLogger {
	d := NewDefaultLoggerWithOutput(out)
	d.base.SetFormatter(&logrus.JSONFormatter{})
	return d
}

func merge(fields []Fields) logrus.Fields {
	out := logrus.Fields{}
	for _, f := range fields {
		for k, v := range f {
			out[k] = v
		}
	}
	return out
}

func (d *DefaultLogger) Debug(msg string, fields ...Fields) {
	d.entry.WithFields(merge(fields)).Debug(msg)
}

func (d *DefaultLogger) Info(msg string, fields ...Fields) {
	d.entry.WithFields(merge(fields)).Info(msg)
}

func (d *DefaultLogger) Warn(msg string, fields ...Fields) {
	d.entry.WithFields(merge(fields)).Warn(msg)
}

func (d *DefaultLogger) Error(err error, msg string, fields ...Fields) {
	d.entry.WithFields(merge(fields)).WithError(err).Error(msg)
}

// Fatal logs and exits the process (logrus calls os.Exit(1))
func (d *DefaultLogger) Fatal(err error, msg string, fields ...Fields) {
	d.entry.WithFields(merge(fields)).WithError(err).Fatal(msg)
}

func (d *DefaultLogger) WithFields(fields Fields) Logger {
	return &DefaultLogger{base: d.base, entry: d.entry.WithFields(logrus.Fields(fields))}
}

func (d *DefaultLogger) WithContext(ctx context.Context) Logger {
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return d
	}
	return d.WithFields(fields)
}

// SetLevel changes the level of the shared logrus logger, so it applies to
// every logger derived from the same root.
func (d *DefaultLogger) SetLevel(level Level) {
	d.base.SetLevel(toLogrus(level))
}

func toLogrus(level Level) logrus.Level {
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
