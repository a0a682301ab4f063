package guardrail

import (
	"strings"

	"github.com/hupe1980/agentrelay/core"
)

// defaultInjectionPatterns are the substrings the injection guard looks for
// when none are supplied.
var defaultInjectionPatterns = []string{
	"drop table",
	"delete from",
	"insert into",
	"update set",
	"script>",
	"javascript:",
	"eval(",
	"exec(",
}

// NewKeywordDeny returns a pre-model inspector that blocks any utterance
// containing one of the given keywords, case-insensitively. The message is
// returned verbatim as the block reason.
func NewKeywordDeny(message string, keywords ...string) ModelInspector {
	lowered := lowerAll(keywords)

	return NewModelInspector("keyword_deny", func(in ModelInput) core.Verdict {
		text := strings.ToLower(in.Utterance)

		for _, kw := range lowered {
			if kw != "" && strings.Contains(text, kw) {
				return core.Block(message)
			}
		}

		return core.Allow()
	})
}

// NewTopicGate returns a strict pre-model inspector that blocks any
// utterance not mentioning at least one of the allowed topics. Useful for
// single-purpose deployments that must stay on subject.
func NewTopicGate(message string, topics ...string) ModelInspector {
	lowered := lowerAll(topics)

	return NewModelInspector("topic_gate", func(in ModelInput) core.Verdict {
		text := strings.ToLower(in.Utterance)

		for _, topic := range lowered {
			if topic != "" && strings.Contains(text, topic) {
				return core.Allow()
			}
		}

		return core.Block(message)
	})
}

// NewInjectionGuard returns a pre-model inspector that blocks utterances
// containing common injection payloads. With no patterns given a default set
// covering SQL and script injection is used.
func NewInjectionGuard(message string, patterns ...string) ModelInspector {
	if len(patterns) == 0 {
		patterns = defaultInjectionPatterns
	}

	lowered := lowerAll(patterns)

	return NewModelInspector("injection_guard", func(in ModelInput) core.Verdict {
		text := strings.ToLower(in.Utterance)

		for _, pattern := range lowered {
			if strings.Contains(text, pattern) {
				return core.Block(message)
			}
		}

		return core.Allow()
	})
}

// NewRateLimit returns a pre-model inspector that blocks once the counter
// stored under field reaches max requests. The counter itself is merged by
// the coordinator after the pre-model stage allows the turn, so the turn
// that hits the limit is the first one past it.
func NewRateLimit(field string, max int, message string) ModelInspector {
	return NewModelInspector("rate_limit", func(in ModelInput) core.Verdict {
		count := in.State.Get(in.Key, field, float64(0))

		if toFloat(count) >= float64(max) {
			return core.Block(message)
		}

		return core.Allow()
	})
}

// NewCityRestriction returns a pre-tool inspector that blocks a call whose
// string argument argField names one of the restricted cities,
// case-insensitively.
func NewCityRestriction(argField, message string, cities ...string) ToolInspector {
	lowered := lowerAll(cities)

	return NewToolInspector("city_restriction", func(in ToolInput) core.Verdict {
		raw, ok := in.Arguments[argField].(string)
		if !ok {
			return core.Allow()
		}

		city := strings.ToLower(strings.TrimSpace(raw))

		for _, restricted := range lowered {
			if city == restricted {
				return core.Block(message)
			}
		}

		return core.Allow()
	})
}

func lowerAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(strings.TrimSpace(v))
	}

	return out
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case float64:
		return t
	default:
		return 0
	}
}
