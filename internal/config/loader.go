package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "ROSTERLAB_"

// listKeys are split on commas when they come from the environment.
var listKeys = map[string]bool{
	"generation.models": true,
	"auth.api_keys":     true,
}

// wellKnown maps conventional variable names onto config keys.
var wellKnown = map[string]string{
	"DATABASE_URL":    "database.url",
	"GEMINI_API_KEY":  "generation.api_key",
	"GOOGLE_API_KEY":  "generation.api_key",
	"EXPECTED_ORIGIN": "server.expected_origin",
	"SESSION_SECRET":  "auth.session_secret",
}

// Load builds a Config by layering defaults, the optional file and the
// environment, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv("ROSTERLAB_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	geminiSet := os.Getenv("GEMINI_API_KEY") != ""
	wk := env.ProviderWithValue("", ".", func(key, value string) (string, any) {
		target, ok := wellKnown[key]
		if !ok || value == "" {
			return "", nil
		}
		if key == "GOOGLE_API_KEY" && geminiSet {
			return "", nil
		}
		return target, value
	})
	if err := k.Load(wk, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	prefixed := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, any) {
		key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
		if key == "config" || value == "" {
			return "", nil
		}
		key = strings.ReplaceAll(key, "__", ".")
		if listKeys[key] {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(prefixed, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	case c.RateLimit.SuggestLimit <= 0 || c.RateLimit.SuggestWindow <= 0:
		return fmt.Errorf("%w: rate_limit.suggest_limit and suggest_window must be positive", ErrInvalidConfig)
	case c.RateLimit.ReviewLimit <= 0 || c.RateLimit.ReviewWindow <= 0:
		return fmt.Errorf("%w: rate_limit.review_limit and review_window must be positive", ErrInvalidConfig)
	case len(c.Generation.Models) == 0 && c.Generation.OpenAIModel == "":
		return fmt.Errorf("%w: generation.models must not be empty", ErrInvalidConfig)
	case c.Server.Production() && c.Server.ExpectedOrigin == "":
		return fmt.Errorf("%w: server.expected_origin (EXPECTED_ORIGIN) is required in production", ErrInvalidConfig)
	case c.Server.Production() && !c.Auth.RequireAuth:
		return fmt.Errorf("%w: auth.require_auth must be set in production", ErrInvalidConfig)
	case c.Auth.RequireAuth && c.Auth.SessionSecret == "" && len(c.Auth.APIKeys) == 0:
		return fmt.Errorf("%w: auth.require_auth needs auth.session_secret or auth.api_keys", ErrInvalidConfig)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
