package logger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Level controls which messages are written.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Logger is a small prefixed console logger. Error returns the error it
// logged so callers can write `return log.Error("...", err)`.
type Logger struct {
	prefix string
	level  Level
	out    io.Writer
	mu     sync.Mutex
}

var (
	debugTag   = color.New(color.FgMagenta).SprintFunc()
	infoTag    = color.New(color.FgCyan).SprintFunc()
	warnTag    = color.New(color.FgYellow).SprintFunc()
	errorTag   = color.New(color.FgRed, color.Bold).SprintFunc()
	successTag = color.New(color.FgGreen).SprintFunc()
	prefixTag  = color.New(color.FgHiBlack).SprintFunc()
)

// New creates a logger writing to stdout. LOG_LEVEL=debug enables Debug.
func New(prefix string) *Logger {
	return &Logger{
		prefix: prefix,
		level:  ParseLevel(os.Getenv("LOG_LEVEL")),
		out:    color.Output,
	}
}

// ParseLevel maps a level name to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
}

func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Named returns a child logger sharing output and level.
func (l *Logger) Named(name string) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &Logger{prefix: l.prefix + "." + name, level: l.level, out: l.out}
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.write(LevelDebug, debugTag("DEBUG"), format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.write(LevelInfo, infoTag("INFO "), format, args...)
}

func (l *Logger) Success(format string, args ...interface{}) {
	l.write(LevelInfo, successTag("OK   "), format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.write(LevelWarn, warnTag("WARN "), format, args...)
}

// Error logs msg with err appended and returns an error wrapping err, so
// errors.Is keeps working on the result. msg is never treated as a format.
func (l *Logger) Error(msg string, err error) error {
	if err == nil {
		l.write(LevelError, errorTag("ERROR"), "%s", msg)
		return errors.New(msg)
	}

	text := msg + ": " + err.Error()
	l.write(LevelError, errorTag("ERROR"), "%s", text)
	return &loggedError{text: text, cause: err}
}

// Errorf formats like fmt.Errorf, logs the result and returns it. %w verbs
// wrap as usual.
func (l *Logger) Errorf(format string, args ...interface{}) error {
	err := fmt.Errorf(format, args...)
	l.write(LevelError, errorTag("ERROR"), "%s", err.Error())
	return err
}

func (l *Logger) write(level Level, tag, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}
	fmt.Fprintf(l.out, "%s %s %s %s\n",
		time.Now().Format("2006-01-02 15:04:05"),
		tag,
		prefixTag("["+l.prefix+"]"),
		fmt.Sprintf(format, args...),
	)
}

type loggedError struct {
	text  string
	cause error
}

func (e *loggedError) Error() string { return e.text }
func (e *loggedError) Unwrap() error { return e.cause }
