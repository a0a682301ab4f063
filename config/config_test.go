package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/guardrail"
	"github.com/hupe1980/agentrelay/logging"
	"github.com/hupe1980/agentrelay/session"
)

const sampleYAML = `
app: weather-app

router:
  min_score: 1
  affinity_bonus: 0.5

guardrail:
  blocked_keywords: ["BLOCK"]
  blocked_message: "I cannot help with that request."
  restricted_cities: ["Paris"]
  restricted_message: "Weather for that city is unavailable."
  rate_limit:
    max: 10
    message: "Too many requests."

state:
  list_fields:
    recent_queries: 5
  counter_fields: ["lookups"]

root:
  name: root
  description: "Coordinates specialist agents."
  sub_agents:
    - name: weather
      description: "Answers weather questions."
      instruction: "Use the get_weather tool."
      tools: ["get_weather"]
    - name: greeter
      description: "Handles greetings."
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad_Sample(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "weather-app", cfg.App)
	assert.Equal(t, []string{"BLOCK"}, cfg.Guardrail.BlockedKeywords)
	assert.Equal(t, 10, cfg.Guardrail.RateLimit.Max)

	// Defaults survive where the file is silent.
	assert.Equal(t, "city", cfg.Guardrail.CityArgument)
	assert.Equal(t, "last_agent", cfg.Router.AffinityField)
}

func TestLoad_UnknownFieldIsError(t *testing.T) {
	_, err := Load(writeConfig(t, "app: x\nroot:\n  name: root\nguardrial: {}\n"))
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidRateLimit(t *testing.T) {
	_, err := Load(writeConfig(t, "app: x\nroot:\n  name: root\nguardrail:\n  rate_limit:\n    max: 0\n"))
	assert.ErrorContains(t, err, "rate limit")
}

func TestConfig_BuildRoot(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	root, err := cfg.BuildRoot()
	require.NoError(t, err)

	assert.Equal(t, "root", root.Name())
	require.Len(t, root.SubAgents(), 2)
	assert.Equal(t, "weather", root.SubAgents()[0].Name())
	assert.True(t, root.Find("weather").AllowsTool("get_weather"))
}

func TestConfig_BuildPipeline(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	pipeline := cfg.BuildPipeline(func(o *guardrail.PipelineOptions) {
		o.Logger = logging.NoOpLogger{}
	})

	state := session.NewInMemoryStore(func(o *session.Options) {
		o.Logger = logging.NoOpLogger{}
	})

	blocked := pipeline.PreModel(guardrail.ModelInput{Utterance: "BLOCK this", State: state})
	assert.True(t, blocked.Blocked())
	assert.Equal(t, "I cannot help with that request.", blocked.Reason)

	restricted := pipeline.PreTool(guardrail.ToolInput{
		Tool:      "get_weather",
		Arguments: map[string]any{"city": "paris"},
		State:     state,
	})
	assert.True(t, restricted.Blocked())
}

func TestConfig_BuildPolicy(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	policy := cfg.BuildPolicy()

	store := session.NewInMemoryStore(func(o *session.Options) {
		o.Policy = policy
		o.Logger = logging.NoOpLogger{}
	})
	key := core.NewConversationKey("weather-app", "user", "s1")

	for i := 0; i < 6; i++ {
		require.NoError(t, store.Merge(key, map[string]any{
			"recent_queries":     "city",
			"lookups":            1,
			"requests_in_window": 1,
		}))
	}

	queries, _ := store.Get(key, "recent_queries", nil).([]any)
	assert.Len(t, queries, 5)
	assert.Equal(t, float64(6), store.Get(key, "lookups", nil))
	assert.Equal(t, float64(6), store.Get(key, "requests_in_window", nil))
}
