// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultAdministratorID is the user allowed to run privileged commands when
// ADMINISTRATOR_ID is not set.
const DefaultAdministratorID = "671477574932627516"

type Config struct {
	DiscordToken    string `env:"DISCORD_TOKEN"`
	AdministratorID string `env:"ADMINISTRATOR_ID" envDefault:"671477574932627516"`

	// ShardCount of 0 asks Discord for the recommended number of shards.
	ShardCount       int           `env:"SHARD_COUNT" envDefault:"0"`
	IdentifyInterval time.Duration `env:"IDENTIFY_INTERVAL" envDefault:"5s"`

	// AckDeadline bounds how long a command handler may run before the
	// interaction is answered with a generic error. Zero disables the bound.
	AckDeadline time.Duration `env:"ACK_DEADLINE" envDefault:"0s"`

	SyncCommands bool   `env:"SYNC_COMMANDS" envDefault:"false"`
	GuildID      string `env:"DISCORD_GUILD_ID"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	LogFile   string `env:"LOG_FILE"`

	OtelEndpoint string `env:"OTEL_ENDPOINT"`
	OtelEnabled  bool   `env:"OTEL_ENABLED" envDefault:"true"`

	// DotEnvLoaded reports whether a .env file was found. Set by Load.
	DotEnvLoaded bool `env:"-"`
}

// Load reads .env (if present) and parses the environment into a Config.
func Load() (*Config, error) {
	loaded := godotenv.Load() == nil

	cfg, err := Parse()
	if err != nil {
		return nil, err
	}
	cfg.DotEnvLoaded = loaded
	return cfg, nil
}

// Parse parses the current process environment without touching .env files.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required values and ranges.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.DiscordToken) == "" {
		errs = append(errs, errors.New("DISCORD_TOKEN is not set"))
	}
	if strings.TrimSpace(c.AdministratorID) == "" {
		errs = append(errs, errors.New("ADMINISTRATOR_ID must not be empty"))
	}
	if c.ShardCount < 0 {
		errs = append(errs, fmt.Errorf("SHARD_COUNT must be >= 0, got %d", c.ShardCount))
	}
	if c.IdentifyInterval < 0 {
		errs = append(errs, fmt.Errorf("IDENTIFY_INTERVAL must be >= 0, got %s", c.IdentifyInterval))
	}
	if c.AckDeadline < 0 {
		errs = append(errs, fmt.Errorf("ACK_DEADLINE must be >= 0, got %s", c.AckDeadline))
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
