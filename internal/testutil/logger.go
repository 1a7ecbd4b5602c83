package testutil

import (
	"context"
	"log/slog"
	"sync"
)

// NopLogger returns a logger that discards all output.
func NopLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// LogRecorder is a slog.Handler that keeps every record it handles
type LogRecorder struct {
	mu      sync.Mutex
	records []slog.Record
	attrs   []slog.Attr
	parent  *LogRecorder
}

// NewLogRecorder returns a recorder and a logger that writes to it
func NewLogRecorder() (*LogRecorder, *slog.Logger) {
	r := &LogRecorder{}
	return r, slog.New(r)
}

func (r *LogRecorder) root() *LogRecorder {
	if r.parent != nil {
		return r.parent
	}
	return r
}

func (r *LogRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *LogRecorder) Handle(_ context.Context, rec slog.Record) error {
	rec = rec.Clone()
	rec.AddAttrs(r.attrs...)
	root := r.root()
	root.mu.Lock()
	root.records = append(root.records, rec)
	root.mu.Unlock()
	return nil
}

func (r *LogRecorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := append(append([]slog.Attr{}, r.attrs...), attrs...)
	return &LogRecorder{attrs: merged, parent: r.root()}
}

// WithGroup is flattened; tests only match on messages and top-level attrs.
func (r *LogRecorder) WithGroup(string) slog.Handler { return r }

// Messages returns the messages logged at or above level, in order
func (r *LogRecorder) Messages(level slog.Level) []string {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	var out []string
	for _, rec := range root.records {
		if rec.Level >= level {
			out = append(out, rec.Message)
		}
	}
	return out
}

// Attr returns the value of key on the first record with msg
func (r *LogRecorder) Attr(msg, key string) (slog.Value, bool) {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	for _, rec := range root.records {
		if rec.Message != msg {
			continue
		}
		var found slog.Value
		ok := false
		rec.Attrs(func(a slog.Attr) bool {
			if a.Key == key {
				found, ok = a.Value, true
				return false
			}
			return true
		})
		return found, ok
	}
	return slog.Value{}, false
}
