// Package session provides SessionStore implementations: a process-local
// in-memory store with per-key serialization and a durable SQLite-backed
// store. Both apply the same declared per-field merge semantics.
package session

// DefaultListCap is the history-list cap applied when a list field is
// declared without an explicit cap.
const DefaultListCap = 5

// Policy declares per-field merge semantics at configuration time so merge
// behavior is explicit rather than inferred from call sites.
//
// Three field kinds exist:
//   - scalar (default): last writer wins, the delta value replaces the
//     stored value
//   - list: the delta's entries are appended and the list is truncated to
//     the configured cap, oldest entries evicted first
//   - counter: numeric delta values are added to the stored value, making
//     increments atomic under the store's per-key serialization
type Policy struct {
	listCaps map[string]int
	counters map[string]bool
}

// NewPolicy creates an empty policy; every field merges as a scalar until
// declared otherwise.
func NewPolicy() *Policy {
	return &Policy{listCaps: map[string]int{}, counters: map[string]bool{}}
}

// ListField declares field as a capped append-list. A cap below one falls
// back to DefaultListCap. Returns the policy for chaining.
func (p *Policy) ListField(field string, cap int) *Policy {
	if cap < 1 {
		cap = DefaultListCap
	}
	p.listCaps[field] = cap
	return p
}

// CounterField declares field as an additive counter. Returns the policy for
// chaining.
func (p *Policy) CounterField(field string) *Policy {
	p.counters[field] = true
	return p
}

// Apply merges delta into state in place under the declared semantics.
// Fields not covered by a declaration replace their stored value.
func (p *Policy) Apply(state, delta map[string]any) {
	for field, value := range delta {
		switch {
		case p != nil && p.listCaps[field] > 0:
			state[field] = appendCapped(asList(state[field]), asList(value), p.listCaps[field])
		case p != nil && p.counters[field]:
			state[field] = asNumber(state[field]) + asNumber(value)
		default:
			state[field] = value
		}
	}
}

// appendCapped appends delta to current keeping at most cap entries, evicting
// the oldest first. Insertion order of the retained entries is preserved.
func appendCapped(current, delta []any, cap int) []any {
	merged := make([]any, 0, len(current)+len(delta))
	merged = append(merged, current...)
	merged = append(merged, delta...)
	if len(merged) > cap {
		merged = merged[len(merged)-cap:]
	}
	return merged
}

// asList coerces a stored or delta value into a list. Scalars become a
// single-entry list so callers may stage one history entry without wrapping.
func asList(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, m := range t {
			out[i] = m
		}
		return out
	default:
		return []any{v}
	}
}

// asNumber coerces a counter value; non-numeric values count as zero.
func asNumber(v any) float64 {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	case float64:
		return t
	default:
		return 0
	}
}
