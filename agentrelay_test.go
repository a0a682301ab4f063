package agentrelay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrelay/agent"
	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/coordinator"
	"github.com/hupe1980/agentrelay/guardrail"
	"github.com/hupe1980/agentrelay/logging"
	"github.com/hupe1980/agentrelay/model"
	"github.com/hupe1980/agentrelay/session"
	"github.com/hupe1980/agentrelay/tool"
)

func newRelay(t *testing.T, mock *model.MockCompletion) *AgentRelay {
	t.Helper()

	root := agent.New("root", func(o *agent.Options) {
		o.Description = "Coordinates specialist agents."
	})

	weather := agent.New("weather", func(o *agent.Options) {
		o.Description = "Answers weather questions for a city."
		o.Tools = []string{"get_weather"}
	})

	require.NoError(t, root.WithSubAgents(weather))

	weatherTool := tool.NewFunctionTool("get_weather", "Returns the weather for a city.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city": map[string]any{"type": "string"},
			},
			"required": []any{"city"},
		},
		func(tc *tool.Context, args map[string]any) (map[string]any, error) {
			city, _ := args["city"].(string)
			tc.AppendState("recent_queries", city)

			return map[string]any{"summary": "It is sunny in " + city + "."}, nil
		})

	relay, err := New(root, mock, func(o *Options) {
		o.App = "weather-app"
		o.Tools = []tool.Tool{weatherTool}
		o.Policy = coordinator.DefaultStatePolicy().ListField("recent_queries", 5)
		o.PreModel = []guardrail.ModelInspector{
			guardrail.NewKeywordDeny("I cannot help with that request.", "BLOCK"),
		}
		o.Logger = logging.NoOpLogger{}
	})
	require.NoError(t, err)

	return relay
}

func TestAgentRelay_Chat(t *testing.T) {
	mock := model.NewMockCompletion()
	mock.AddScript("weather in tokyo", &model.Response{
		ToolCalls: []core.ToolCall{{
			ID:        "call-1",
			Name:      "get_weather",
			Arguments: map[string]any{"city": "tokyo"},
		}},
	})

	relay := newRelay(t, mock)

	result, err := relay.Chat(context.Background(), "user-1", "s1", "weather in tokyo")
	require.NoError(t, err)

	assert.Equal(t, "It is sunny in tokyo.", result.Response)
	assert.Equal(t, "weather", result.Agent)
}

func TestAgentRelay_ChatBlocked(t *testing.T) {
	relay := newRelay(t, model.NewMockCompletion())

	result, err := relay.Chat(context.Background(), "user-1", "s1", "BLOCK this")
	require.NoError(t, err)

	assert.Equal(t, "I cannot help with that request.", result.Response)
	assert.Empty(t, result.ToolResults)
}

func TestAgentRelay_DurableStore(t *testing.T) {
	store, err := session.NewSQLiteStore(":memory:", func(o *session.Options) {
		o.Policy = coordinator.DefaultStatePolicy()
		o.Logger = logging.NoOpLogger{}
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	root := agent.New("root")

	mock := model.NewMockCompletion()
	mock.SetFallback(&model.Response{Text: "Hello."})

	relay, err := New(root, mock, func(o *Options) {
		o.App = "weather-app"
		o.Store = store
		o.Logger = logging.NoOpLogger{}
	})
	require.NoError(t, err)

	result, err := relay.Chat(context.Background(), "user-1", "s1", "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello.", result.Response)

	key := core.NewConversationKey("weather-app", "user-1", "s1")
	assert.Equal(t, float64(1), store.Get(key, coordinator.RateField, nil))
}
