package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")
	ErrInvalidMaxAttempts = errors.New("LEDGER_MAX_ATTEMPTS must be a positive integer")
	ErrInvalidBufferSize  = errors.New("EVENT_BUFFER_SIZE must be a non-negative integer")
)

type Config struct {
	Port        string
	DatabaseURL string
	Env         string
	LogLevel    slog.Level

	// LedgerMaxAttempts bounds how often a posting or settlement is rerun
	// after losing a balance version race.
	LedgerMaxAttempts   uint
	LedgerRetryInterval time.Duration

	EventBufferSize int
}

// Load reads the given .env files (".env" when none are given) and then
// the environment. Variables already set in the environment win.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		slog.Warn("no .env file found, relying on system environment variables")
	}
	return fromEnv()
}

func fromEnv() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "5000"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Env:         getEnv("ENV", "development"),
	}
	if cfg.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("parsing LOG_LEVEL: %w", err)
	}

	attempts, err := strconv.ParseUint(getEnv("LEDGER_MAX_ATTEMPTS", "5"), 10, 32)
	if err != nil || attempts == 0 {
		return nil, ErrInvalidMaxAttempts
	}
	cfg.LedgerMaxAttempts = uint(attempts)

	cfg.LedgerRetryInterval, err = time.ParseDuration(getEnv("LEDGER_RETRY_INTERVAL", "10ms"))
	if err != nil {
		return nil, fmt.Errorf("parsing LEDGER_RETRY_INTERVAL: %w", err)
	}

	cfg.EventBufferSize, err = strconv.Atoi(getEnv("EVENT_BUFFER_SIZE", "100"))
	if err != nil || cfg.EventBufferSize < 0 {
		return nil, ErrInvalidBufferSize
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// NewLogger writes JSON in production and plain text everywhere else.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.IsProduction() {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Helper to get env with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
