package core

// StateReader is the read-only view of session state handed to guardrail
// inspectors and the delegation router. Reads never fail: an absent key or
// field yields the provided default.
type StateReader interface {
	// Get returns the value stored for field under key, or def when absent.
	Get(key ConversationKey, field string, def any) any

	// Snapshot returns a defensive copy of the full state for key. An absent
	// key yields an empty map.
	Snapshot(key ConversationKey) map[string]any
}

// SessionStore persists per-conversation state. Implementations must
// serialize Merge/Get/CreateIfAbsent per key so concurrent turns on the same
// key observe a consistent last-writer-wins order, while turns on different
// keys never block each other.
//
// State is mutated only through Merge; callers never hold a reference into
// the stored maps. Per-field merge semantics (scalar replace, capped append
// list, counter add) are declared on the store at construction time.
type SessionStore interface {
	StateReader

	// CreateIfAbsent idempotently establishes an empty state for key.
	// Concurrent calls for the same key must not create divergent states.
	CreateIfAbsent(key ConversationKey) error

	// Merge applies delta to key's state field by field under the store's
	// declared per-field semantics. The whole delta is applied atomically
	// with respect to other operations on the same key.
	Merge(key ConversationKey, delta map[string]any) error
}
