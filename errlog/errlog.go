// Package errlog tees error-level log records into an append-only text file.
package errlog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// DefaultPath is the error log file name.
const DefaultPath = "error.log"

// Open opens path for appending, creating it if needed.
func Open(path string) (*os.File, error) {
	if path == "" {
		path = DefaultPath
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open error log: %w", err)
	}
	return f, nil
}

// Handler forwards every record to next and also writes records at or above
// slog.LevelError to w as one plain line each:
//
//	2025-06-01T12:00:00Z GIF fetch failed error="media fetch: HTTP 500"
type Handler struct {
	next   slog.Handler
	w      io.Writer
	mu     *sync.Mutex
	attrs  []slog.Attr
	groups []string
}

// NewHandler wraps next.
func NewHandler(next slog.Handler, w io.Writer) *Handler {
	return &Handler{next: next, w: w, mu: &sync.Mutex{}}
}

// Enabled reports whether next handles level, or level is an error.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= slog.LevelError || h.next.Enabled(ctx, level)
}

// Handle writes the record.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	var nextErr error
	if h.next.Enabled(ctx, r.Level) {
		nextErr = h.next.Handle(ctx, r)
	}
	if r.Level < slog.LevelError {
		return nextErr
	}

	var b strings.Builder
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	b.WriteString(ts.UTC().Format(time.RFC3339))
	b.WriteByte(' ')
	b.WriteString(r.Message)
	prefix := strings.Join(h.groups, ".")
	for _, a := range h.attrs {
		writeAttr(&b, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, prefix, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err := io.WriteString(h.w, b.String()); err != nil {
		return fmt.Errorf("write error log: %w", err)
	}
	return nextErr
}

// WithAttrs returns a handler carrying attrs on every record.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := h.clone()
	c.next = h.next.WithAttrs(attrs)
	prefix := strings.Join(h.groups, ".")
	for _, a := range attrs {
		if prefix != "" {
			a.Key = prefix + "." + a.Key
		}
		c.attrs = append(c.attrs, a)
	}
	return c
}

// WithGroup returns a handler nesting later attributes under name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	c.next = h.next.WithGroup(name)
	c.groups = append(c.groups, name)
	return c
}

func (h *Handler) clone() *Handler {
	return &Handler{
		next:   h.next,
		w:      h.w,
		mu:     h.mu,
		attrs:  append([]slog.Attr(nil), h.attrs...),
		groups: append([]string(nil), h.groups...),
	}
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := a.Key
		if prefix != "" && p != "" {
			p = prefix + "." + p
		} else if p == "" {
			p = prefix
		}
		for _, ga := range a.Value.Group() {
			writeAttr(b, p, ga)
		}
		return
	}
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	fmt.Fprintf(b, " %s=%q", key, a.Value.String())
}
