// internal/config/config.go
//
// Environment-driven configuration for the pairs server.
// Load reads the process environment (main loads .env first via godotenv)
// and validates the game settings before any session is created.
//
// Environment variables:
//   PORT=5175              LOG_LEVEL=info
//   UNIQUE_COUNT=8         SYMBOLS_FILE=/path/to/pool.txt
//   TICK_INTERVAL=100ms    MISMATCH_DELAY=500ms
//   FACE_UP=false          CLIENT_ORIGIN=http://localhost:5173
//   SESSION_SECRET=...     SESSION_TTL=2h
//   RATE_LIMIT_RPS=20      RATE_LIMIT_BURST=40
//   DAILY_SALT=...

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/pairs/internal/game"
	"github.com/robalobadob/pairs/internal/pairs"
	"github.com/robalobadob/pairs/internal/symbols"
)

// Config is the fully resolved server configuration.
type Config struct {
	Port     string
	LogLevel string

	UniqueCount   int
	Pool          []string
	TickInterval  time.Duration
	MismatchDelay time.Duration
	FaceUp        bool

	ClientOrigin   string
	SessionSecret  string
	SessionTTL     time.Duration
	RateLimitRPS   int
	RateLimitBurst int
	DailySalt      string
}

// Load builds a Config from the environment.
// Returns an error wrapping pairs.ErrInvalidArgument for unusable game settings.
func Load() (Config, error) {
	pool, err := symbols.Load(os.Getenv("SYMBOLS_FILE"))
	if err != nil {
		return Config{}, fmt.Errorf("load symbols: %w", err)
	}

	cfg := Config{
		Port:           getEnv("PORT", "5175"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		UniqueCount:    getEnvInt("UNIQUE_COUNT", game.DefaultUniqueCount),
		Pool:           pool,
		TickInterval:   getEnvDuration("TICK_INTERVAL", 100*time.Millisecond),
		MismatchDelay:  getEnvDuration("MISMATCH_DELAY", 500*time.Millisecond),
		FaceUp:         getEnvBool("FACE_UP", false),
		ClientOrigin:   getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		SessionSecret:  getEnv("SESSION_SECRET", "dev_secret_change_me"),
		SessionTTL:     getEnvDuration("SESSION_TTL", 2*time.Hour),
		RateLimitRPS:   getEnvInt("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 40),
		DailySalt:      getEnv("DAILY_SALT", "pairs-daily"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the game settings.
func (c Config) Validate() error {
	if err := pairs.Validate(c.Pool, c.UniqueCount); err != nil {
		return err
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("%w: tick interval must be positive", pairs.ErrInvalidArgument)
	}
	if c.MismatchDelay <= 0 {
		return fmt.Errorf("%w: mismatch delay must be positive", pairs.ErrInvalidArgument)
	}
	return nil
}

// Game returns the engine settings.
func (c Config) Game() game.Config {
	return game.Config{UniqueCount: c.UniqueCount, Pool: c.Pool, FaceUp: c.FaceUp}
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Err(err).Str("key", k).Int("default", def).Msg("invalid int, using default")
		return def
	}
	return i
}

func getEnvDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Err(err).Str("key", k).Dur("default", def).Msg("invalid duration, using default")
		return def
	}
	return d
}

func getEnvBool(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn().Err(err).Str("key", k).Bool("default", def).Msg("invalid bool, using default")
		return def
	}
	return b
}
