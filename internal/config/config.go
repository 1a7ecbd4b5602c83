// Package config loads server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/mcoot/boardbank/internal/model"
)

// ErrInvalidConfig is returned for values that parse but cannot be used
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the server settings
type Config struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"3001"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// StorageType selects the durable store: memory, redis or sqlite
	StorageType  string        `env:"STORAGE_TYPE" envDefault:"memory"`
	RedisURL     string        `env:"REDIS_URL"`
	RedisGameTTL time.Duration `env:"REDIS_GAME_TTL" envDefault:"168h"`
	SQLitePath   string        `env:"SQLITE_PATH" envDefault:"data/boardbank.db"`

	StartingBalance int64         `env:"STARTING_BALANCE" envDefault:"1500"`
	MaxPlayers      int           `env:"MAX_PLAYERS" envDefault:"4"`
	SessionIdleTTL  time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
	JournalBuffer   int           `env:"JOURNAL_BUFFER" envDefault:"1024"`

	// AllowedOrigins restricts websocket origins; empty allows any
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
}

// Load reads the given .env files, when present, into the process
// environment and then parses it. Variables already set take precedence.
func Load(dotenvPaths ...string) (Config, error) {
	for _, path := range dotenvPaths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}
	return Parse()
}

// Parse builds a Config from environment variables and validates it
func Parse() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values the environment parser cannot
func (c Config) Validate() error {
	switch {
	case c.Port < 1 || c.Port > 65535:
		return fmt.Errorf("%w: PORT must be between 1 and 65535", ErrInvalidConfig)
	case c.StartingBalance < 0 || c.StartingBalance > model.MaxAmount:
		return fmt.Errorf("%w: STARTING_BALANCE must be between 0 and %d", ErrInvalidConfig, model.MaxAmount)
	case c.MaxPlayers < 1:
		return fmt.Errorf("%w: MAX_PLAYERS must be at least 1", ErrInvalidConfig)
	case c.SessionIdleTTL <= 0:
		return fmt.Errorf("%w: SESSION_IDLE_TTL must be positive", ErrInvalidConfig)
	case c.SweepInterval < 0:
		return fmt.Errorf("%w: SWEEP_INTERVAL must not be negative", ErrInvalidConfig)
	case c.JournalBuffer < 1:
		return fmt.Errorf("%w: JOURNAL_BUFFER must be at least 1", ErrInvalidConfig)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses LogLevel (debug, info, warn, error)
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: LOG_LEVEL %q", ErrInvalidConfig, c.LogLevel)
	}
	return level, nil
}
