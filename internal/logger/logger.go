package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var (
	levelVar slog.LevelVar
	current  atomic.Pointer[slog.Logger]
)

func init() {
	levelVar.Set(slog.LevelInfo)
	SetOutput(os.Stdout)
}

// SetOutput redirects every subsequent log line to w. nil means stdout.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	current.Store(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: &levelVar})))
}

func SetLevel(level string) {
	levelVar.Set(ParseLevel(level))
}

// ParseLevel maps a config level name to a slog level; unknown names fall back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// logf skips formatting when the level is filtered out.
func logf(level slog.Level, attrs []any, format string, v []any) {
	l := current.Load()
	ctx := context.Background()
	if !l.Enabled(ctx, level) {
		return
	}
	l.Log(ctx, level, fmt.Sprintf(format, v...), attrs...)
}

func Debugf(format string, v ...any) { logf(slog.LevelDebug, nil, format, v) }

func Infof(format string, v ...any) { logf(slog.LevelInfo, nil, format, v) }

func Warnf(format string, v ...any) { logf(slog.LevelWarn, nil, format, v) }

func Errorf(format string, v ...any) { logf(slog.LevelError, nil, format, v) }

// InfoBlock logs a multi-line block one line at a time so file tails stay greppable.
func InfoBlock(block string) {
	block = strings.TrimSpace(block)
	if block == "" {
		return
	}
	for _, line := range strings.Split(block, "\n") {
		Infof("%s", line)
	}
}

// Entry is a logger bound to fixed attributes, e.g. the run id of one pipeline invocation.
type Entry struct {
	attrs []any
}

// With returns an Entry carrying the given key/value pairs on every line.
func With(kv ...any) Entry {
	return Entry{attrs: append([]any(nil), kv...)}
}

// With extends the entry with more key/value pairs.
func (e Entry) With(kv ...any) Entry {
	return Entry{attrs: append(append([]any(nil), e.attrs...), kv...)}
}

func (e Entry) Debugf(format string, v ...any) { logf(slog.LevelDebug, e.attrs, format, v) }

func (e Entry) Infof(format string, v ...any) { logf(slog.LevelInfo, e.attrs, format, v) }

func (e Entry) Warnf(format string, v ...any) { logf(slog.LevelWarn, e.attrs, format, v) }

func (e Entry) Errorf(format string, v ...any) { logf(slog.LevelError, e.attrs, format, v) }
