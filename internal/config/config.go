package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port           int    `env:"PORT" envDefault:"4517"`
	DBPath         string `env:"DB_PATH" envDefault:""`
	LLMBaseURL     string `env:"LLM_BASE_URL" envDefault:""`
	LLMAPIKey      string `env:"LLM_API_KEY" envDefault:""`
	LLMModel       string `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	LLMTimeoutSecs int    `env:"LLM_TIMEOUT_SECONDS" envDefault:"120"`
	ProbeCommand   string `env:"PROBE_COMMAND" envDefault:"driftwatch-helper"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) Addr() string {
	// Local daemon: never bind beyond loopback.
	return fmt.Sprintf("127.0.0.1:%d", c.Port)
}

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSecs) * time.Second
}

// DatabasePath returns the configured path, defaulting to
// ~/.driftwatch/trackerd.db with the directory created.
func (c *Config) DatabasePath() (string, error) {
	if c.DBPath != "" {
		return c.DBPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	dir := filepath.Join(home, ".driftwatch")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return filepath.Join(dir, "trackerd.db"), nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
