package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all environment-based configuration for chat-sync.
type Config struct {
	// Address of the backend chat service's line-JSON listener.
	BackendAddr string `env:"CHAT_BACKEND_ADDR" envDefault:"127.0.0.1:10001"`

	// Address the bridge HTTP API listens on.
	HTTPListenAddr string `env:"CHAT_HTTP_ADDR" envDefault:":3000"`

	// Websocket URL of the backend push endpoint. Empty disables the
	// push channel; the poll loop alone still converges.
	PushURL string `env:"CHAT_PUSH_URL"`

	// Username the client signs in as. Optional: when empty, the client
	// falls back to the username cached from the previous session.
	Username string `env:"CHAT_USERNAME"`

	// Upper bound on a single bridge call, covering dial, write, and
	// read-to-close. The backend signals completion by closing the
	// connection, so a silent peer would otherwise hang forever.
	CallTimeout time.Duration `env:"CHAT_CALL_TIMEOUT" envDefault:"10s"`

	// Cadence of the background history poll.
	PollInterval time.Duration `env:"CHAT_POLL_INTERVAL" envDefault:"1200ms"`

	// Path of the client state database. Defaults to
	// ~/.chat-sync/state.db when empty.
	StatePath string `env:"CHAT_STATE_PATH"`

	// Environment controls log format
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. On Unix systems, group or world
// readable files risk exposing credentials to other users.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return // file does not exist, nothing to check
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// Load reads configuration from environment variables.
// It first attempts to load a .env file if present, then parses env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	if cfg.StatePath == "" {
		path, err := defaultStatePath()
		if err != nil {
			return nil, err
		}

		cfg.StatePath = path
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.BackendAddr == "" {
		return fmt.Errorf("CHAT_BACKEND_ADDR must not be empty")
	}

	if c.CallTimeout <= 0 {
		return fmt.Errorf("CHAT_CALL_TIMEOUT must be positive")
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("CHAT_POLL_INTERVAL must be positive")
	}

	return nil
}

// defaultStatePath returns ~/.chat-sync/state.db.
func defaultStatePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}

	return filepath.Join(home, ".chat-sync", "state.db"), nil
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
