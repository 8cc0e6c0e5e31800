// Package config loads the RosterLab server configuration.
//
// Precedence (low -> high):
//  1. defaults (Default())
//  2. YAML file, if ROSTERLAB_CONFIG is set
//  3. well-known variables: DATABASE_URL, GEMINI_API_KEY (or GOOGLE_API_KEY),
//     EXPECTED_ORIGIN, SESSION_SECRET
//  4. ROSTERLAB_* variables, "__" separating sections:
//     ROSTERLAB_RATE_LIMIT__SUGGEST_LIMIT=4
package config

import (
	"time"
)

// Config holds all configuration for the RosterLab server.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Catalog    CatalogConfig    `koanf:"catalog"`
	Generation GenerationConfig `koanf:"generation"`
	RateLimit  RateLimitConfig  `koanf:"rate_limit"`
	Auth       AuthConfig       `koanf:"auth"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
	Movepool   MovepoolConfig   `koanf:"movepool"`
}

type ServerConfig struct {
	Port        int    `koanf:"port"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`

	// ExpectedOrigin is the only Origin accepted on API calls in production.
	ExpectedOrigin string `koanf:"expected_origin"`
	LogLevel       string `koanf:"log_level"`
}

// Production reports whether the same-origin check applies.
func (s ServerConfig) Production() bool {
	return s.Environment == "production"
}

type DatabaseConfig struct {
	// URL selects the pgvector store. Empty means the in-memory store
	// loaded from Catalog.Path.
	URL            string `koanf:"url"`
	MaxConnections int    `koanf:"max_connections"`
}

type CatalogConfig struct {
	Path string `koanf:"path"`

	// FormatRules are CEL expressions per format name, evaluated over
	// candidate.{name,types,tier,usage}.
	FormatRules map[string][]string `koanf:"format_rules"`
}

type GenerationConfig struct {
	Models         []string      `koanf:"models"`
	APIKey         string        `koanf:"api_key"`
	AttemptTimeout time.Duration `koanf:"attempt_timeout"`
	Temperature    float32       `koanf:"temperature"`

	// Optional OpenAI-compatible provider tried after the Gemini models.
	OpenAIEndpoint string `koanf:"openai_endpoint"`
	OpenAIModel    string `koanf:"openai_model"`
	OpenAIKey      string `koanf:"openai_key"`
}

type RateLimitConfig struct {
	SuggestLimit  int           `koanf:"suggest_limit"`
	SuggestWindow time.Duration `koanf:"suggest_window"`
	ReviewLimit   int           `koanf:"review_limit"`
	ReviewWindow  time.Duration `koanf:"review_window"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

type AuthConfig struct {
	SessionSecret string   `koanf:"session_secret"`
	APIKeys       []string `koanf:"api_keys"`

	// RequireAuth rejects anonymous API calls. Always on in production.
	RequireAuth bool `koanf:"require_auth"`
}

type TelemetryConfig struct {
	Enabled      bool   `koanf:"enabled"`
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	ServiceName  string `koanf:"service_name"`
}

type MovepoolConfig struct {
	Enabled     bool          `koanf:"enabled"`
	BaseURL     string        `koanf:"base_url"`
	Concurrency int           `koanf:"concurrency"`
	CacheTTL    time.Duration `koanf:"cache_ttl"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			Version:     "0.1.0",
			Environment: "development",
			LogLevel:    "info",
		},
		Database: DatabaseConfig{
			MaxConnections: 10,
		},
		Catalog: CatalogConfig{
			Path: "data/catalog.json",
		},
		Generation: GenerationConfig{
			Models:         []string{"gemini-2.5-flash", "gemini-2.0-flash", "gemini-2.0-flash-lite"},
			AttemptTimeout: 45 * time.Second,
			Temperature:    0.7,
		},
		RateLimit: RateLimitConfig{
			SuggestLimit:  4,
			SuggestWindow: time.Minute,
			ReviewLimit:   10,
			ReviewWindow:  time.Hour,
			SweepInterval: 5 * time.Minute,
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			ServiceName: "rosterlab",
		},
		Movepool: MovepoolConfig{
			Enabled:     true,
			BaseURL:     "https://pokeapi.co/api/v2",
			Concurrency: 20,
			CacheTTL:    24 * time.Hour,
		},
	}
}
