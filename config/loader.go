package config

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Load reads the configuration file at path on top of the defaults. Unknown
// fields are an error so typos surface at startup instead of silently
// disabling a guardrail.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.ErrorUnused = true
	}); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.App) == "" {
		return fmt.Errorf("app must not be empty")
	}

	if strings.TrimSpace(c.Root.Name) == "" {
		return fmt.Errorf("root agent must have a name")
	}

	if c.Guardrail.RateLimit != nil && c.Guardrail.RateLimit.Max < 1 {
		return fmt.Errorf("rate limit max must be positive")
	}

	return nil
}
