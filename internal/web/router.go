package web

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/boardbank/internal/dependencies/random"
	"github.com/mcoot/boardbank/internal/middleware"
	"github.com/mcoot/boardbank/internal/services/bank"
	"github.com/mcoot/boardbank/internal/web/sse"
	"github.com/mcoot/boardbank/internal/web/ws"
)

// RouterConfig holds configuration for the real-time router
type RouterConfig struct {
	Logger         *slog.Logger
	Controller     *bank.Controller
	Random         random.Random
	AllowedOrigins []string // websocket origins, empty allows any
}

// NewRouter creates the router for the websocket channel and SSE viewer streams
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger, middleware.DefaultPanicHandler))
	r.Use(middleware.Logging(cfg.Logger))

	wsHandler := ws.NewHandler(cfg.Controller, cfg.AllowedOrigins, cfg.Random, cfg.Logger)
	sseHandler := sse.NewHandler(cfg.Controller, cfg.Random, cfg.Logger)

	r.Handle("/ws", wsHandler).Methods(http.MethodGet)
	r.Handle("/games/{code}/events", sseHandler).Methods(http.MethodGet)

	return r
}
