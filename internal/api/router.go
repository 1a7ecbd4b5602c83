package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/boardbank/internal/api/apierr"
	"github.com/mcoot/boardbank/internal/api/handler"
	"github.com/mcoot/boardbank/internal/middleware"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger *slog.Logger
	Bank   handler.Bank
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	gameHandler := handler.NewGameHandler(cfg.Bank)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Recovery(cfg.Logger, writeInternalError))
	api.Use(middleware.Logging(cfg.Logger))

	api.HandleFunc("/health", gameHandler.Health).Methods(http.MethodGet)

	games := api.PathPrefix("/games").Subrouter()
	games.HandleFunc("", gameHandler.Create).Methods(http.MethodPost)
	games.HandleFunc("/{code}", gameHandler.Get).Methods(http.MethodGet)
	games.HandleFunc("/{code}/join", gameHandler.Join).Methods(http.MethodPost)
	games.HandleFunc("/{code}/transfers", gameHandler.Transfer).Methods(http.MethodPost)
	games.HandleFunc("/{code}/bank", gameHandler.Bank).Methods(http.MethodPost)
	games.HandleFunc("/{code}/history", gameHandler.History).Methods(http.MethodGet)

	return r
}

// writeInternalError reports a recovered panic as an INTERNAL_ERROR body
func writeInternalError(w http.ResponseWriter, _ *http.Request, _ any) {
	apierr.WriteError(w, apierr.NewInternalError())
}
