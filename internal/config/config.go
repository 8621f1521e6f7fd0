package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration. Values come from an optional
// config.yaml in the working directory, overridden by environment
// variables (PORT, STATE_FILE, DATABASE_URL, OPENAI_API_KEY, OPENAI_MODEL,
// ALLOWED_ORIGINS).
type Config struct {
	Port           int      `mapstructure:"port"`
	StateFile      string   `mapstructure:"state_file"`
	DatabaseURL    string   `mapstructure:"database_url"`
	OpenAIAPIKey   string   `mapstructure:"openai_api_key"`
	OpenAIModel    string   `mapstructure:"openai_model"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads configuration with sane defaults. A missing config file is
// fine; a malformed one is not.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetDefault("port", 8080)
	v.SetDefault("state_file", "data/state.json")
	v.SetDefault("database_url", "")
	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_model", "")
	v.SetDefault("allowed_origins", []string{"*"})

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	// AutomaticEnv does not split comma-separated lists.
	if raw := v.GetString("allowed_origins"); raw != "" && strings.Contains(raw, ",") {
		parts := strings.Split(raw, ",")
		cfg.AllowedOrigins = cfg.AllowedOrigins[:0]
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, p)
			}
		}
	}
	return &cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// UsePostgres reports whether state should live in Postgres instead of the
// local JSON file.
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}
