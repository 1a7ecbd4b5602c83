// Package sse streams game updates to read-only viewers over server-sent events.
package sse

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mcoot/boardbank/internal/api/apierr"
	"github.com/mcoot/boardbank/internal/broadcast"
	"github.com/mcoot/boardbank/internal/dependencies/random"
	"github.com/mcoot/boardbank/internal/model"
)

const (
	// Time between keepalive comments
	pingPeriod = 30 * time.Second

	// Reconnect delay suggested to the browser, in milliseconds
	retryMillis = "3000"
)

// Watcher is the part of the bank controller a viewer stream needs
type Watcher interface {
	Watch(ctx context.Context, code string, sub broadcast.Subscriber) (model.SessionCode, error)
	Unwatch(code model.SessionCode, subscriberID string)
}

// Handler serves GET /games/{code}/events
type Handler struct {
	watcher Watcher
	random  random.Random
	logger  *slog.Logger
}

// NewHandler creates a new Handler
func NewHandler(watcher Watcher, random random.Random, logger *slog.Logger) *Handler {
	return &Handler{
		watcher: watcher,
		random:  random,
		logger:  logger.With(slog.String("component", "sse")),
	}
}

// ServeHTTP streams the game named by the {code} route variable until the
// client goes away
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	viewer := NewViewer(h.random.UUID())
	code, err := h.watcher.Watch(r.Context(), mux.Vars(r)["code"], viewer)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	defer func() {
		viewer.Close()
		h.watcher.Unwatch(code, viewer.ID())
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)

	_, _ = w.Write([]byte("retry: " + retryMillis + "\n\n"))
	flusher.Flush()

	logger := h.logger.With(slog.String("code", string(code)), slog.String("viewer_id", viewer.ID()))
	logger.Info("sse viewer connected")
	connectedAt := time.Now()
	defer func() {
		logger.Info("sse viewer disconnected", slog.Duration("connection_duration", time.Since(connectedAt)))
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message := <-viewer.send:
			if _, err := w.Write(message); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
