package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Level represents log level
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Format selects the log output encoding
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Logger provides structured logging
type Logger struct {
	entry *logrus.Entry
}

// New creates a new logger writing text at info level to stdout
func New() *Logger {
	return NewWithOptions(os.Stdout, LevelInfo, FormatText)
}

// NewWithOptions creates a logger with an explicit writer, level and format.
// Unknown levels fall back to info, unknown formats to text.
func NewWithOptions(w io.Writer, level Level, format Format) *Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(parseLevel(level))

	if Format(strings.ToLower(string(format))) == FormatJSON {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	}

	return &Logger{entry: logrus.NewEntry(l)}
}

func parseLevel(level Level) logrus.Level {
	switch Level(strings.ToUpper(string(level))) {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// With returns a child logger that adds fields to every entry
func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{entry: l.entry.WithFields(toLogrus(fields))}
}

// Log writes a structured log entry
func (l *Logger) Log(level Level, message string, fields ...Field) {
	l.entry.WithFields(toLogrus(fields)).Log(parseLevel(level), message)
}

// Info logs an info message
func (l *Logger) Info(message string, fields ...Field) {
	l.Log(LevelInfo, message, fields...)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, fields ...Field) {
	l.Log(LevelWarn, message, fields...)
}

// Error logs an error message
func (l *Logger) Error(message string, fields ...Field) {
	l.Log(LevelError, message, fields...)
}

// Debug logs a debug message
func (l *Logger) Debug(message string, fields ...Field) {
	l.Log(LevelDebug, message, fields...)
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value string
}

// F creates a Field
func F(key, value string) Field {
	return Field{Key: key, Value: value}
}

func toLogrus(fields []Field) logrus.Fields {
	out := make(logrus.Fields, len(fields))
	for _, field := range fields {
		out[field.Key] = field.Value
	}
	return out
}
