// Package router selects the agent that handles a turn. Selection is fully
// deterministic: it depends only on the utterance, the agent tree, and the
// session state, so the same turn always lands on the same agent.
package router

import (
	"strings"
	"unicode"

	"github.com/hupe1980/agentrelay/agent"
	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/logging"
)

// Scorer rates how well an agent matches an utterance. Higher is better;
// zero means no match.
type Scorer interface {
	Score(utterance string, spec *agent.Spec) float64
}

// KeywordScorer scores by keyword overlap: the utterance and the agent's
// name plus description are lowercased and tokenized, and the score is the
// number of distinct utterance tokens that appear among the agent's tokens.
type KeywordScorer struct{}

// Score implements Scorer.
func (KeywordScorer) Score(utterance string, spec *agent.Spec) float64 {
	utteranceTokens := tokenize(utterance)
	if len(utteranceTokens) == 0 {
		return 0
	}

	agentTokens := map[string]bool{}
	for _, tok := range tokenize(spec.Name() + " " + spec.Description()) {
		agentTokens[tok] = true
	}

	seen := map[string]bool{}
	score := 0.0

	for _, tok := range utteranceTokens {
		if agentTokens[tok] && !seen[tok] {
			seen[tok] = true
			score++
		}
	}

	return score
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// Options configure a Router.
type Options struct {
	// Scorer rates candidates. Defaults to KeywordScorer.
	Scorer Scorer

	// MinScore is the threshold below which no delegation happens and the
	// root keeps the turn.
	MinScore float64

	// AffinityBonus is added to the score of the agent named in the
	// session's affinity field, giving conversational stickiness.
	AffinityBonus float64

	// AffinityField is the state field holding the last selected agent.
	AffinityField string

	// Logger is the logger instance used by the router.
	Logger logging.Logger
}

// Router picks the handling agent for a turn from the root's direct
// sub-agents.
type Router struct {
	scorer        Scorer
	minScore      float64
	affinityBonus float64
	affinityField string
	logger        logging.Logger
}

// New creates a router.
func New(optFns ...func(o *Options)) *Router {
	opts := Options{
		Scorer:        KeywordScorer{},
		MinScore:      1,
		AffinityBonus: 0.5,
		AffinityField: "last_agent",
		Logger:        logging.NewDefaultLogger(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Router{
		scorer:        opts.Scorer,
		minScore:      opts.MinScore,
		affinityBonus: opts.AffinityBonus,
		affinityField: opts.AffinityField,
		logger:        opts.Logger,
	}
}

// Select returns the agent that handles the turn. Candidates are the root's
// direct sub-agents in declaration order; ties keep the earliest declared
// candidate. When no candidate reaches the minimum score, or the root has no
// sub-agents, the root handles the turn itself.
func (r *Router) Select(turn core.Turn, root *agent.Spec, state core.StateReader) *agent.Spec {
	candidates := root.SubAgents()
	if len(candidates) == 0 {
		return root
	}

	lastAgent, _ := state.Get(turn.Key, r.affinityField, "").(string)

	best := root
	bestScore := 0.0

	for _, candidate := range candidates {
		score := r.scorer.Score(turn.Utterance, candidate)

		if score > 0 && candidate.Name() == lastAgent {
			score += r.affinityBonus
		}

		// Strict greater-than keeps the earliest declared candidate on
		// equal scores.
		if score >= r.minScore && score > bestScore {
			best = candidate
			bestScore = score
		}
	}

	r.logger.Debug("agent selected", "agent", best.Name(), "score", bestScore, "key", turn.Key.String())

	return best
}
