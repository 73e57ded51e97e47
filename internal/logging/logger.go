// Package logging builds the leveled slog logger used by the chemsim
// command and adapts it to the printf-style logger the engine expects.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// LevelTrace is a custom slog level below Debug. Per-step progress is
// logged at this level.
const LevelTrace = slog.LevelDebug - 4

// ParseLevel maps a level name to a slog.Level.
// Supported values: "trace", "debug", "info", "warn"/"warning", "error"
// (case-insensitive). Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "trace":
		return LevelTrace
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

// NewLogger creates a leveled text logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Label the custom trace level
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// FormatLogger adapts a *slog.Logger to the Debugf/Infof/Warnf/Errorf
// interface of the engine. Messages are formatted before they reach slog.
type FormatLogger struct {
	l *slog.Logger
	// debugLevel is the slog level Debugf logs at.
	debugLevel slog.Level
}

// NewFormatLogger wraps l. A nil l discards everything.
func NewFormatLogger(l *slog.Logger) *FormatLogger {
	if l == nil {
		l = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &FormatLogger{l: l, debugLevel: slog.LevelDebug}
}

// WithTrace returns a copy that logs Debugf messages at LevelTrace, so
// per-step chatter only shows up with --log-level=trace.
func (f *FormatLogger) WithTrace() *FormatLogger {
	c := *f
	c.debugLevel = LevelTrace
	return &c
}

func (f *FormatLogger) Debugf(format string, v ...any) { f.log(f.debugLevel, format, v) }
func (f *FormatLogger) Infof(format string, v ...any)  { f.log(slog.LevelInfo, format, v) }
func (f *FormatLogger) Warnf(format string, v ...any)  { f.log(slog.LevelWarn, format, v) }
func (f *FormatLogger) Errorf(format string, v ...any) { f.log(slog.LevelError, format, v) }

func (f *FormatLogger) log(level slog.Level, format string, v []any) {
	ctx := context.Background()
	if !f.l.Enabled(ctx, level) {
		return
	}
	f.l.Log(ctx, level, fmt.Sprintf(format, v...))
}
