package guardrail

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/logging"
	"github.com/hupe1980/agentrelay/session"
)

func newTestPipeline() *Pipeline {
	return NewPipeline(func(o *PipelineOptions) {
		o.Logger = logging.NoOpLogger{}
	})
}

func emptyState() core.StateReader {
	return session.NewInMemoryStore(func(o *session.Options) {
		o.Logger = logging.NoOpLogger{}
	})
}

func TestPipeline_EmptyUtteranceAlwaysAllowed(t *testing.T) {
	pipeline := newTestPipeline()
	pipeline.RegisterPreModel(NewModelInspector("deny_all", func(ModelInput) core.Verdict {
		return core.Block("denied")
	}))

	for _, utterance := range []string{"", "   ", "\n\t"} {
		v := pipeline.PreModel(ModelInput{Utterance: utterance, State: emptyState()})
		assert.False(t, v.Blocked(), "utterance %q", utterance)
	}
}

func TestPipeline_FirstBlockShortCircuits(t *testing.T) {
	pipeline := newTestPipeline()

	var secondRan bool

	pipeline.RegisterPreModel(
		NewModelInspector("first", func(ModelInput) core.Verdict {
			return core.Block("stop right there")
		}),
		NewModelInspector("second", func(ModelInput) core.Verdict {
			secondRan = true
			return core.Allow()
		}),
	)

	v := pipeline.PreModel(ModelInput{Utterance: "hello", State: emptyState()})

	assert.True(t, v.Blocked())
	assert.Equal(t, "stop right there", v.Reason)
	assert.False(t, secondRan)
}

func TestPipeline_ExtrasRunAfterRegistered(t *testing.T) {
	pipeline := newTestPipeline()

	var order []string

	pipeline.RegisterPreModel(NewModelInspector("registered", func(ModelInput) core.Verdict {
		order = append(order, "registered")
		return core.Allow()
	}))

	extra := NewModelInspector("extra", func(ModelInput) core.Verdict {
		order = append(order, "extra")
		return core.Block("agent policy")
	})

	v := pipeline.PreModel(ModelInput{Utterance: "hello", State: emptyState()}, extra)

	assert.True(t, v.Blocked())
	assert.Equal(t, []string{"registered", "extra"}, order)
}

func TestKeywordDeny_CaseInsensitive(t *testing.T) {
	pipeline := newTestPipeline()
	pipeline.RegisterPreModel(NewKeywordDeny("I cannot help with that request.", "BLOCK"))

	blocked := pipeline.PreModel(ModelInput{Utterance: "please BlOcK this", State: emptyState()})
	assert.True(t, blocked.Blocked())
	assert.Equal(t, "I cannot help with that request.", blocked.Reason)

	allowed := pipeline.PreModel(ModelInput{Utterance: "weather in tokyo", State: emptyState()})
	assert.False(t, allowed.Blocked())
}

func TestInjectionGuard_Defaults(t *testing.T) {
	pipeline := newTestPipeline()
	pipeline.RegisterPreModel(NewInjectionGuard("Request rejected."))

	v := pipeline.PreModel(ModelInput{Utterance: "x'; DROP TABLE users; --", State: emptyState()})
	assert.True(t, v.Blocked())

	v = pipeline.PreModel(ModelInput{Utterance: "what is the weather in paris", State: emptyState()})
	assert.False(t, v.Blocked())
}

func TestTopicGate_RequiresAllowedTopic(t *testing.T) {
	pipeline := newTestPipeline()
	pipeline.RegisterPreModel(NewTopicGate("I can only help with weather questions.", "weather", "forecast"))

	offTopic := pipeline.PreModel(ModelInput{Utterance: "tell me a joke", State: emptyState()})
	assert.True(t, offTopic.Blocked())
	assert.Equal(t, "I can only help with weather questions.", offTopic.Reason)

	onTopic := pipeline.PreModel(ModelInput{Utterance: "what is the Forecast for oslo", State: emptyState()})
	assert.False(t, onTopic.Blocked())
}

func TestRateLimit_BlocksAtMax(t *testing.T) {
	store := session.NewInMemoryStore(func(o *session.Options) {
		o.Policy = session.NewPolicy().CounterField("requests_in_window")
		o.Logger = logging.NoOpLogger{}
	})
	key := core.NewConversationKey("app", "user", "s1")

	pipeline := newTestPipeline()
	pipeline.RegisterPreModel(NewRateLimit("requests_in_window", 3, "Too many requests."))

	in := ModelInput{Utterance: "hello", Key: key, State: store}

	for i := 0; i < 3; i++ {
		assert.False(t, pipeline.PreModel(in).Blocked())
		assert.NoError(t, store.Merge(key, map[string]any{"requests_in_window": 1}))
	}

	v := pipeline.PreModel(in)
	assert.True(t, v.Blocked())
	assert.Equal(t, "Too many requests.", v.Reason)
}

func TestCityRestriction(t *testing.T) {
	pipeline := newTestPipeline()
	pipeline.RegisterPreTool(NewCityRestriction("city", "Weather for Paris is unavailable.", "Paris"))

	blocked := pipeline.PreTool(ToolInput{
		Tool:      "get_weather",
		Arguments: map[string]any{"city": " PARIS "},
		State:     emptyState(),
	})
	assert.True(t, blocked.Blocked())
	assert.Equal(t, "Weather for Paris is unavailable.", blocked.Reason)

	allowed := pipeline.PreTool(ToolInput{
		Tool:      "get_weather",
		Arguments: map[string]any{"city": "tokyo"},
		State:     emptyState(),
	})
	assert.False(t, allowed.Blocked())

	// Missing or non-string argument is not this inspector's concern.
	noArg := pipeline.PreTool(ToolInput{
		Tool:      "get_weather",
		Arguments: map[string]any{},
		State:     emptyState(),
	})
	assert.False(t, noArg.Blocked())
}
