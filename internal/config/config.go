package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"8"`

	// Editors authenticate with HTTP Basic. AdminPassword may be plain text
	// or a bcrypt hash (recognized by its $2 prefix).
	AdminUser     string `envconfig:"ADMIN_USER" default:"admin"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD" required:"true"`

	OpenAIEndpoint string `envconfig:"OPENAI_ENDPOINT" default:"https://api.openai.com/v1"`
	OpenAIToken    string `envconfig:"OPENAI_API_KEY" default:""`
	OpenAIModel    string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`

	// When no Firecrawl key is configured the crawl endpoint falls back to
	// local readability extraction.
	FirecrawlAPIKey string `envconfig:"FIRECRAWL_API_KEY" default:""`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) cannot exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if strings.TrimSpace(c.AdminUser) == "" {
		return fmt.Errorf("ADMIN_USER is required")
	}
	if strings.TrimSpace(c.AdminPassword) == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required")
	}
	if strings.TrimSpace(c.OpenAIEndpoint) == "" {
		return fmt.Errorf("OPENAI_ENDPOINT is required")
	}
	if strings.TrimSpace(c.OpenAIModel) == "" {
		return fmt.Errorf("OPENAI_MODEL is required")
	}
	return nil
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, exists := seen[origin]; exists {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}
