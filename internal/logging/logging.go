package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	cblog "github.com/charmbracelet/log"
)

// Options configures the charmbracelet/log adapter.
type Options struct {
	Writer     io.Writer
	Level      string
	TimeFormat string
	Formatter  cblog.Formatter
	Component  string
	RunID      string
}

// Logger wraps charmbracelet/log with persistent component fields.
type Logger struct {
	logger *cblog.Logger
	fields []interface{}
}

// New creates a Logger with the supplied options.
func New(opts Options) (*Logger, error) {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	level := cblog.InfoLevel
	if opts.Level != "" {
		parsed, err := cblog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}

	base := cblog.NewWithOptions(writer, cblog.Options{
		Level:           level,
		TimeFormat:      opts.TimeFormat,
		ReportTimestamp: true,
		Formatter:       opts.Formatter,
	})

	fields := make([]interface{}, 0, 4)
	if opts.Component != "" {
		fields = append(fields, "component", opts.Component)
	}
	if opts.RunID != "" {
		fields = append(fields, "run_id", opts.RunID)
	}

	return &Logger{logger: base, fields: fields}, nil
}

// Debug emits a debug log entry.
func (l *Logger) Debug(msg string, fields ...interface{}) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Debug(msg, append(l.fields, fields...)...)
}

// Info emits an info log entry.
func (l *Logger) Info(msg string, fields ...interface{}) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Info(msg, append(l.fields, fields...)...)
}

// Warn emits a warning log entry.
func (l *Logger) Warn(msg string, fields ...interface{}) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Warn(msg, append(l.fields, fields...)...)
}

// Error emits an error log entry.
func (l *Logger) Error(msg string, fields ...interface{}) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Error(msg, append(l.fields, fields...)...)
}

// With derives a new logger carrying additional persistent fields.
func (l *Logger) With(fields ...interface{}) *Logger {
	if l == nil || l.logger == nil {
		return l
	}
	next := make([]interface{}, len(l.fields), len(l.fields)+len(fields))
	copy(next, l.fields)
	next = append(next, fields...)
	return &Logger{logger: l.logger, fields: next}
}

// Nop returns a logger that discards everything. Used by tests and as a safe default.
func Nop() *Logger {
	base := cblog.NewWithOptions(io.Discard, cblog.Options{Level: cblog.FatalLevel + 1})
	return &Logger{logger: base}
}
