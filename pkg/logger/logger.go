// Package logger builds the slog loggers used across studygraph.
//
// Output is slog's text format. When writing to a terminal, warnings are
// yellow, errors red and database-write messages green.
package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
)

// databaseWriteMarkers flag messages about graph writes.
var databaseWriteMarkers = []string{"persist", "written", "loaded", "recorded"}

// ColorHandler is a slog.Handler that colours text records by level.
type ColorHandler struct {
	inner slog.Handler
	out   io.Writer
	buf   *bytes.Buffer
	mu    *sync.Mutex
	color bool
}

// NewColorHandler writes text records to w. Colour is enabled when w is a
// terminal.
func NewColorHandler(w io.Writer, opts *slog.HandlerOptions) *ColorHandler {
	buf := &bytes.Buffer{}
	return &ColorHandler{
		inner: slog.NewTextHandler(buf, opts),
		out:   w,
		buf:   buf,
		mu:    &sync.Mutex{},
		color: isTerminal(w),
	}
}

// WithColor forces colour on or off.
func (h *ColorHandler) WithColor(enabled bool) *ColorHandler {
	clone := *h
	clone.color = enabled
	return &clone
}

func (h *ColorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ColorHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf.Reset()
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}
	line := h.buf.Bytes()
	color := h.colorFor(r)
	if color == "" {
		_, err := h.out.Write(line)
		return err
	}
	// Keep the trailing newline outside the escape sequence.
	line = bytes.TrimSuffix(line, []byte("\n"))
	_, err := io.WriteString(h.out, color+string(line)+colorReset+"\n")
	return err
}

func (h *ColorHandler) colorFor(r slog.Record) string {
	if !h.color {
		return ""
	}
	switch {
	case r.Level >= slog.LevelError:
		return colorRed
	case r.Level >= slog.LevelWarn:
		return colorYellow
	case isDatabaseWrite(r.Message):
		return colorGreen
	}
	return ""
}

func (h *ColorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.inner = h.inner.WithAttrs(attrs)
	return &clone
}

func (h *ColorHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.inner = h.inner.WithGroup(name)
	return &clone
}

func isDatabaseWrite(msg string) bool {
	lower := strings.ToLower(msg)
	for _, m := range databaseWriteMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// NewDefaultLogger returns a colour-aware logger on stderr.
func NewDefaultLogger(level slog.Level) *slog.Logger {
	return slog.New(NewColorHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewLogger returns a logger writing to w in the given format ("json" or
// "text").
func NewLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(NewColorHandler(w, opts))
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
