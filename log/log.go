// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"context"
	"io"
	"log/slog"

	ethlog "github.com/ethereum/go-ethereum/log"
)

const (
	LevelTrace = ethlog.LevelTrace
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
	LevelCrit  = ethlog.LevelCrit
)

// Logger writes key/value pairs to a Handler.
type Logger interface {
	// With returns a new Logger that has this logger's attributes plus the given attributes
	With(ctx ...any) Logger

	Trace(msg string, ctx ...any)
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Warn(msg string, ctx ...any)
	Error(msg string, ctx ...any)
	// Crit logs a message at the crit level with context key/value pairs, and exits
	Crit(msg string, ctx ...any)

	Enabled(ctx context.Context, level slog.Level) bool
}

type logger struct {
	inner ethlog.Logger
}

// NewLogger returns a logger with the specified handler set
func NewLogger(h slog.Handler) Logger {
	return &logger{ethlog.NewLogger(h)}
}

func (l *logger) With(ctx ...any) Logger { return &logger{l.inner.With(ctx...)} }

func (l *logger) Trace(msg string, ctx ...any) { l.inner.Trace(msg, ctx...) }
func (l *logger) Debug(msg string, ctx ...any) { l.inner.Debug(msg, ctx...) }
func (l *logger) Info(msg string, ctx ...any)  { l.inner.Info(msg, ctx...) }
func (l *logger) Warn(msg string, ctx ...any)  { l.inner.Warn(msg, ctx...) }
func (l *logger) Error(msg string, ctx ...any) { l.inner.Error(msg, ctx...) }
func (l *logger) Crit(msg string, ctx ...any)  { l.inner.Crit(msg, ctx...) }

func (l *logger) Enabled(ctx context.Context, level slog.Level) bool {
	return l.inner.Enabled(ctx, level)
}

// Root returns the root logger
func Root() Logger {
	return &logger{ethlog.Root()}
}

// SetDefault sets the default global logger
func SetDefault(l Logger) {
	if wrapped, ok := l.(*logger); ok {
		ethlog.SetDefault(wrapped.inner)
		return
	}
	ethlog.SetDefault(ethlog.NewLogger(&forwardHandler{l}))
}

// New returns a new logger with the given context.
func New(ctx ...any) Logger {
	return Root().With(ctx...)
}

// WithContext returns a logger whose root is resolved on every call, so package
// level loggers follow later SetDefault calls.
func WithContext(ctx ...any) Logger {
	return &lazyLogger{ctx: ctx}
}

type lazyLogger struct {
	ctx []any
}

func (l *lazyLogger) resolve() ethlog.Logger { return ethlog.Root().With(l.ctx...) }

func (l *lazyLogger) With(ctx ...any) Logger {
	merged := make([]any, 0, len(l.ctx)+len(ctx))
	merged = append(append(merged, l.ctx...), ctx...)
	return &lazyLogger{ctx: merged}
}

func (l *lazyLogger) Trace(msg string, ctx ...any) { l.resolve().Trace(msg, ctx...) }
func (l *lazyLogger) Debug(msg string, ctx ...any) { l.resolve().Debug(msg, ctx...) }
func (l *lazyLogger) Info(msg string, ctx ...any)  { l.resolve().Info(msg, ctx...) }
func (l *lazyLogger) Warn(msg string, ctx ...any)  { l.resolve().Warn(msg, ctx...) }
func (l *lazyLogger) Error(msg string, ctx ...any) { l.resolve().Error(msg, ctx...) }
func (l *lazyLogger) Crit(msg string, ctx ...any)  { l.resolve().Crit(msg, ctx...) }

func (l *lazyLogger) Enabled(ctx context.Context, level slog.Level) bool {
	return ethlog.Root().Enabled(ctx, level)
}

// forwardHandler adapts a foreign Logger implementation into a slog handler.
type forwardHandler struct {
	l Logger
}

func (h *forwardHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.l.Enabled(ctx, level)
}

func (h *forwardHandler) Handle(_ context.Context, r slog.Record) error {
	ctx := make([]any, 0, r.NumAttrs()*2)
	r.Attrs(func(a slog.Attr) bool {
		ctx = append(ctx, a.Key, a.Value.Any())
		return true
	})
	switch {
	case r.Level <= LevelTrace:
		h.l.Trace(r.Message, ctx...)
	case r.Level <= LevelDebug:
		h.l.Debug(r.Message, ctx...)
	case r.Level <= LevelInfo:
		h.l.Info(r.Message, ctx...)
	case r.Level <= LevelWarn:
		h.l.Warn(r.Message, ctx...)
	default:
		h.l.Error(r.Message, ctx...)
	}
	return nil
}

func (h *forwardHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	ctx := make([]any, 0, len(attrs)*2)
	for _, a := range attrs {
		ctx = append(ctx, a.Key, a.Value.Any())
	}
	return &forwardHandler{h.l.With(ctx...)}
}

func (h *forwardHandler) WithGroup(string) slog.Handler { return h }

// NewTerminalHandlerWithLevel returns a handler with human readable output,
// filtering records below lvl.
func NewTerminalHandlerWithLevel(w io.Writer, lvl slog.Level, useColor bool) slog.Handler {
	return ethlog.NewTerminalHandlerWithLevel(w, lvl, useColor)
}

// JSONHandlerWithLevel returns a handler which prints records in JSON format,
// filtering records below lvl.
func JSONHandlerWithLevel(w io.Writer, lvl slog.Level) slog.Handler {
	return ethlog.JSONHandlerWithLevel(w, lvl)
}

// DiscardHandler returns a handler that drops every record.
func DiscardHandler() slog.Handler {
	return ethlog.DiscardHandler()
}

// FromLegacyLevel maps the 0 (crit) to 5 (trace) verbosity scale to slog levels.
func FromLegacyLevel(lvl int) slog.Level {
	return ethlog.FromLegacyLevel(lvl)
}

// The following functions bypass the exported logger methods (logger.Debug,
// etc.) to keep the call depth the same for all paths to logger.Write so
// runtime.Caller(2) always refers to the call site in client code.

func Trace(msg string, ctx ...any) { ethlog.Root().Trace(msg, ctx...) }
func Debug(msg string, ctx ...any) { ethlog.Root().Debug(msg, ctx...) }
func Info(msg string, ctx ...any)  { ethlog.Root().Info(msg, ctx...) }
func Warn(msg string, ctx ...any)  { ethlog.Root().Warn(msg, ctx...) }
func Error(msg string, ctx ...any) { ethlog.Root().Error(msg, ctx...) }
func Crit(msg string, ctx ...any)  { ethlog.Root().Crit(msg, ctx...) }
