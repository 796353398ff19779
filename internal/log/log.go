// Package log wraps logrus behind the go-logr facade so every component
// takes a *log.Logger (or logr.Logger) constructor argument instead of
// reaching for a package-level global.
package log

import (
	"log"
	"os"
	"strings"

	"github.com/bombsimon/logrusr/v2"
	"github.com/go-logr/logr"
	"github.com/sirupsen/logrus"
)

// Logger exposes logging capabilities using
// https://pkg.go.dev/github.com/go-logr/logr.
type Logger struct {
	*logr.Logger
}

// Level is a string representation of log level, passable as a parameter
// in lieu of the defined types in upstream logging packages.
type Level string

// Log levels.
const (
	DefaultLevel       = InfoLevel
	TraceLevel   Level = "trace"
	DebugLevel   Level = "debug"
	InfoLevel    Level = "info"
	WarnLevel    Level = "warn"
	ErrorLevel   Level = "error"
	PanicLevel   Level = "panic"
	FatalLevel   Level = "fatal"
)

func (l Level) String() string {
	return string(l)
}

// ParseLevel takes a string level and returns the Level constant. If the
// level is not recognized, it defaults to InfoLevel to swallow potential
// configuration typos rather than failing startup over a log setting.
func ParseLevel(lvl string) Level {
	switch strings.ToLower(lvl) {
	case "trace":
		return TraceLevel
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "panic":
		return PanicLevel
	case "fatal":
		return FatalLevel
	}
	return DefaultLevel
}

// NewLogger creates an interactive logger: human-readable text to stderr.
func NewLogger(logLevel Level) *Logger {
	logrusLog := logrus.New()
	logrusLog.SetLevel(parseLogrusLevel(logLevel))
	return NewLogrusLogger(logrusLog)
}

// NewStructuredLogger creates a logger suitable for running under a process
// supervisor: JSON lines on stdout, field names remapped to
// severity/message so log aggregators that expect that shape parse it
// without extra configuration.
func NewStructuredLogger(logLevel Level) *Logger {
	logrusLog := logrus.New()
	logrusLog.SetOutput(os.Stdout)
	logrusLog.SetFormatter(&logrus.JSONFormatter{FieldMap: logrus.FieldMap{
		logrus.FieldKeyLevel: "severity",
		logrus.FieldKeyMsg:   "message",
	}})
	logrusLog.SetLevel(parseLogrusLevel(logLevel))
	return NewLogrusLogger(logrusLog)
}

// NewLogrusLogger wraps an already-configured *logrus.Logger.
func NewLogrusLogger(logrusLog *logrus.Logger) *Logger {
	logrLogger := logrusr.New(logrusLog)
	return &Logger{&logrLogger}
}

// Discard returns a logger that drops everything; useful in tests.
func Discard() *Logger {
	l := logr.Discard()
	return &Logger{&l}
}

func parseLogrusLevel(lvl Level) logrus.Level {
	logrusLevel, err := logrus.ParseLevel(lvl.String())
	if err != nil {
		log.Printf("defaulting to INFO log level, as %q is not a valid log level: %v", lvl, err)
		return logrus.InfoLevel
	}
	return logrusLevel
}
