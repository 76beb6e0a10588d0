package logger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(level Level) (*Logger, *bytes.Buffer) {
	color.NoColor = true
	var buf bytes.Buffer
	l := New("test")
	l.SetOutput(&buf)
	l.SetLevel(level)
	return l, &buf
}

func TestLoggerWritesPrefixAndMessage(t *testing.T) {
	l, buf := newTestLogger(LevelInfo)

	l.Info("hello %s", "world")

	assert.Contains(t, buf.String(), "[test]")
	assert.Contains(t, buf.String(), "hello world")
}

func TestLoggerSuppressesBelowLevel(t *testing.T) {
	l, buf := newTestLogger(LevelWarn)

	l.Debug("debug")
	l.Info("info")
	l.Warn("warn")

	assert.NotContains(t, buf.String(), "debug")
	assert.NotContains(t, buf.String(), "info")
	assert.Contains(t, buf.String(), "warn")
}

func TestErrorWrapsTrailingError(t *testing.T) {
	l, buf := newTestLogger(LevelInfo)
	cause := errors.New("boom")

	err := l.Error("failed to start", cause)

	require.Error(t, err)
	assert.Equal(t, "failed to start: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, buf.String(), "failed to start: boom")
}

func TestErrorKeepsPercentLiteral(t *testing.T) {
	l, buf := newTestLogger(LevelInfo)

	err := l.Error("100% failed", errors.New("disk full"))

	assert.Equal(t, "100% failed: disk full", err.Error())
	assert.Contains(t, buf.String(), "100% failed: disk full")
	assert.EqualError(t, l.Error("no cause", nil), "no cause")
}

func TestErrorfFormatsAndWraps(t *testing.T) {
	l, buf := newTestLogger(LevelInfo)
	cause := errors.New("smtp down")

	err := l.Errorf("campaign %s failed: %w", "abc", cause)

	assert.Equal(t, "campaign abc failed: smtp down", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, buf.String(), "campaign abc failed: smtp down")
}

func TestNamedSharesOutput(t *testing.T) {
	l, buf := newTestLogger(LevelInfo)

	l.Named("http").Info("request")

	assert.Contains(t, buf.String(), "[test.http]")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel(""))
}
