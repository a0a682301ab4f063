// Package config loads an AgentRelay setup from a YAML, JSON or TOML file
// and turns it into the runtime pieces: the agent tree, the guardrail
// pipeline, and the session state policy.
package config

import (
	"fmt"

	"github.com/hupe1980/agentrelay/agent"
	"github.com/hupe1980/agentrelay/guardrail"
	"github.com/hupe1980/agentrelay/session"
)

// Config is the root configuration document.
type Config struct {
	// App names the application; it becomes the first component of every
	// conversation key.
	App string `mapstructure:"app"`

	Router    RouterConfig    `mapstructure:"router"`
	Guardrail GuardrailConfig `mapstructure:"guardrail"`
	State     StateConfig     `mapstructure:"state"`
	Root      AgentConfig     `mapstructure:"root"`
}

// RouterConfig tunes delegation.
type RouterConfig struct {
	MinScore      float64 `mapstructure:"min_score"`
	AffinityBonus float64 `mapstructure:"affinity_bonus"`
	AffinityField string  `mapstructure:"affinity_field"`
}

// RateLimitConfig declares the request counter guardrail.
type RateLimitConfig struct {
	Field   string `mapstructure:"field"`
	Max     int    `mapstructure:"max"`
	Message string `mapstructure:"message"`
}

// GuardrailConfig declares the globally registered inspectors.
type GuardrailConfig struct {
	BlockedKeywords   []string         `mapstructure:"blocked_keywords"`
	BlockedMessage    string           `mapstructure:"blocked_message"`
	RestrictedCities  []string         `mapstructure:"restricted_cities"`
	RestrictedMessage string           `mapstructure:"restricted_message"`
	CityArgument      string           `mapstructure:"city_argument"`
	InjectionPatterns []string         `mapstructure:"injection_patterns"`
	InjectionMessage  string           `mapstructure:"injection_message"`
	RateLimit         *RateLimitConfig `mapstructure:"rate_limit"`
}

// StateConfig declares per-field merge semantics for tool state.
type StateConfig struct {
	ListFields    map[string]int `mapstructure:"list_fields"`
	CounterFields []string       `mapstructure:"counter_fields"`
}

// AgentConfig describes one agent; SubAgents nest recursively.
type AgentConfig struct {
	Name        string        `mapstructure:"name"`
	Description string        `mapstructure:"description"`
	Instruction string        `mapstructure:"instruction"`
	Tools       []string      `mapstructure:"tools"`
	SubAgents   []AgentConfig `mapstructure:"sub_agents"`
}

// DefaultConfig returns the baseline configuration a file overrides.
func DefaultConfig() *Config {
	return &Config{
		App: "agentrelay",
		Router: RouterConfig{
			MinScore:      1,
			AffinityBonus: 0.5,
			AffinityField: "last_agent",
		},
		Guardrail: GuardrailConfig{
			BlockedMessage:    "I cannot help with that request.",
			RestrictedMessage: "That location is currently unavailable.",
			CityArgument:      "city",
			InjectionMessage:  "Request rejected.",
		},
		Root: AgentConfig{
			Name:        "root",
			Description: "Coordinates specialist agents.",
		},
	}
}

// BuildRoot assembles the agent tree from the configuration.
func (c *Config) BuildRoot() (*agent.Spec, error) {
	return buildAgent(c.Root)
}

func buildAgent(cfg AgentConfig) (*agent.Spec, error) {
	spec := agent.New(cfg.Name, func(o *agent.Options) {
		o.Description = cfg.Description
		o.Instruction = cfg.Instruction
		o.Tools = cfg.Tools
	})

	for _, childCfg := range cfg.SubAgents {
		child, err := buildAgent(childCfg)
		if err != nil {
			return nil, err
		}

		if err := spec.WithSubAgents(child); err != nil {
			return nil, fmt.Errorf("attach agent %q: %w", childCfg.Name, err)
		}
	}

	return spec, nil
}

// BuildPipeline assembles the guardrail pipeline from the configuration.
func (c *Config) BuildPipeline(optFns ...func(o *guardrail.PipelineOptions)) *guardrail.Pipeline {
	pipeline := guardrail.NewPipeline(optFns...)

	g := c.Guardrail

	if len(g.BlockedKeywords) > 0 {
		pipeline.RegisterPreModel(guardrail.NewKeywordDeny(g.BlockedMessage, g.BlockedKeywords...))
	}

	if len(g.InjectionPatterns) > 0 {
		pipeline.RegisterPreModel(guardrail.NewInjectionGuard(g.InjectionMessage, g.InjectionPatterns...))
	}

	if g.RateLimit != nil && g.RateLimit.Max > 0 {
		field := g.RateLimit.Field
		if field == "" {
			field = "requests_in_window"
		}

		pipeline.RegisterPreModel(guardrail.NewRateLimit(field, g.RateLimit.Max, g.RateLimit.Message))
	}

	if len(g.RestrictedCities) > 0 {
		pipeline.RegisterPreTool(guardrail.NewCityRestriction(g.CityArgument, g.RestrictedMessage, g.RestrictedCities...))
	}

	return pipeline
}

// BuildPolicy assembles the session merge policy from the configuration.
// The rate limit counter field is always declared.
func (c *Config) BuildPolicy() *session.Policy {
	policy := session.NewPolicy()

	for field, cap := range c.State.ListFields {
		policy.ListField(field, cap)
	}

	for _, field := range c.State.CounterFields {
		policy.CounterField(field)
	}

	if c.Guardrail.RateLimit != nil {
		field := c.Guardrail.RateLimit.Field
		if field == "" {
			field = "requests_in_window"
		}

		policy.CounterField(field)
	}

	return policy
}
