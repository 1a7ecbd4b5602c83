package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mcoot/boardbank/internal/api"
	"github.com/mcoot/boardbank/internal/broadcast"
	"github.com/mcoot/boardbank/internal/config"
	"github.com/mcoot/boardbank/internal/dependencies/clock"
	"github.com/mcoot/boardbank/internal/dependencies/random"
	"github.com/mcoot/boardbank/internal/services/bank"
	"github.com/mcoot/boardbank/internal/services/journal"
	"github.com/mcoot/boardbank/internal/services/membership"
	"github.com/mcoot/boardbank/internal/services/session"
	"github.com/mcoot/boardbank/internal/storage"
	"github.com/mcoot/boardbank/internal/storage/memory"
	redisstorage "github.com/mcoot/boardbank/internal/storage/redis"
	sqlitestorage "github.com/mcoot/boardbank/internal/storage/sqlite"
	"github.com/mcoot/boardbank/internal/web"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
	StorageTypeSQLite = "sqlite"
)

const defaultJournalBuffer = 1024

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Live state
	Registry   *session.Registry
	Members    *membership.Tracker
	Gateway    *broadcast.Gateway
	Journal    *journal.Journal
	Controller *bank.Controller

	logger *slog.Logger
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "sqlite")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// SQLitePath is the database file (required if StorageType is "sqlite")
	SQLitePath string
	// Bank holds the game rules and is used as given.
	// If nil, bank.DefaultConfig is used
	Bank *bank.Config
	// JournalBuffer bounds the persistence queue (optional)
	JournalBuffer int
}

// ConfigFromEnv maps loaded server settings onto a factory Config
func ConfigFromEnv(c config.Config, logger *slog.Logger) Config {
	cfg := Config{
		Logger:      logger,
		StorageType: c.StorageType,
		SQLitePath:  c.SQLitePath,
		Bank: &bank.Config{
			StartingBalance: c.StartingBalance,
			Capacity:        c.MaxPlayers,
			IdleTTL:         c.SessionIdleTTL,
		},
		JournalBuffer: c.JournalBuffer,
	}
	if c.StorageType == StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = c.RedisURL
		redisCfg.GameTTL = c.RedisGameTTL
		cfg.RedisConfig = &redisCfg
	}
	return cfg
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := newStorage(cfg)
	if err != nil {
		return nil, err
	}

	return newWithDependencies(store, clock.New(), random.New(), bankConfig(cfg.Bank), cfg.JournalBuffer, logger), nil
}

func newStorage(cfg Config) (storage.Storage, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeRedis:
		if cfg.RedisConfig == nil || cfg.RedisConfig.URL == "" {
			return nil, errors.New("RedisConfig with a URL required when StorageType is redis")
		}
		return redisstorage.New(*cfg.RedisConfig)
	case StorageTypeSQLite:
		if cfg.SQLitePath == "" {
			return nil, errors.New("SQLitePath required when StorageType is sqlite")
		}
		return sqlitestorage.New(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be 'memory', 'redis' or 'sqlite'", storageType)
	}
}

func bankConfig(cfg *bank.Config) bank.Config {
	if cfg == nil {
		return bank.DefaultConfig()
	}
	return *cfg
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, bankCfg bank.Config, journalBuffer int, logger *slog.Logger) *App {
	if journalBuffer <= 0 {
		journalBuffer = defaultJournalBuffer
	}

	registry := session.NewRegistry(bankCfg.Capacity, clk, logger)
	members := membership.NewTracker()
	gateway := broadcast.NewGateway(logger)
	jrnl := journal.New(store, journalBuffer, logger)
	controller := bank.NewController(bankCfg, registry, members, gateway, jrnl, store, clk, rnd, logger)

	return &App{
		Storage:    store,
		Clock:      clk,
		Random:     rnd,
		Registry:   registry,
		Members:    members,
		Gateway:    gateway,
		Journal:    jrnl,
		Controller: controller,
		logger:     logger,
	}
}

// Start launches the background persistence worker
func (a *App) Start(ctx context.Context) {
	a.Journal.Start(ctx)
}

// Close drains the persistence queue and closes storage
func (a *App) Close() error {
	a.Journal.Close()
	return a.Storage.Close()
}

// Handler returns the complete HTTP surface: the JSON API under /api/ and
// the websocket and SSE endpoints everywhere else
func (a *App) Handler(allowedOrigins []string) http.Handler {
	apiRouter := api.NewRouter(api.RouterConfig{
		Logger: a.logger,
		Bank:   a.Controller,
	})
	webRouter := web.NewRouter(web.RouterConfig{
		Logger:         a.logger,
		Controller:     a.Controller,
		Random:         a.Random,
		AllowedOrigins: allowedOrigins,
	})

	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)
	mux.Handle("/", webRouter)
	return mux
}
