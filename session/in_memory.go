package session

import (
	"sync"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/logging"
)

// Options configure a store.
type Options struct {
	// Policy declares per-field merge semantics. Nil means every field
	// merges as a scalar.
	Policy *Policy

	// Logger is the logger instance used by the store.
	Logger logging.Logger
}

type entry struct {
	mu    sync.Mutex
	state map[string]any
}

// InMemoryStore is a process-local SessionStore. An outer read/write mutex
// guards the key map while each conversation carries its own mutex, so
// operations on the same key are serialized and operations on different keys
// proceed in parallel.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
	policy  *Policy
	logger  logging.Logger
}

var _ core.SessionStore = (*InMemoryStore)(nil)

// NewInMemoryStore creates a new in-memory session store.
func NewInMemoryStore(optFns ...func(o *Options)) *InMemoryStore {
	opts := Options{
		Logger: logging.NewDefaultLogger(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &InMemoryStore{
		entries: map[string]*entry{},
		policy:  opts.Policy,
		logger:  opts.Logger,
	}
}

// CreateIfAbsent idempotently establishes an empty state for key.
func (s *InMemoryStore) CreateIfAbsent(key core.ConversationKey) error {
	if err := key.Validate(); err != nil {
		return err
	}

	s.entry(key)

	return nil
}

// Get returns the value stored for field under key, or def when absent. A
// missing key is not created.
func (s *InMemoryStore) Get(key core.ConversationKey, field string, def any) any {
	s.mu.RLock()
	e, ok := s.entries[key.String()]
	s.mu.RUnlock()

	if !ok {
		return def
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if v, ok := e.state[field]; ok {
		return copyValue(v)
	}

	return def
}

// Snapshot returns a defensive copy of the full state for key.
func (s *InMemoryStore) Snapshot(key core.ConversationKey) map[string]any {
	s.mu.RLock()
	e, ok := s.entries[key.String()]
	s.mu.RUnlock()

	if !ok {
		return map[string]any{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return copyState(e.state)
}

// Merge applies delta to key's state under the declared per-field semantics.
// The whole delta is applied atomically with respect to other operations on
// the same key.
func (s *InMemoryStore) Merge(key core.ConversationKey, delta map[string]any) error {
	if err := key.Validate(); err != nil {
		return err
	}

	if len(delta) == 0 {
		return nil
	}

	e := s.entry(key)

	e.mu.Lock()
	defer e.mu.Unlock()

	s.policy.Apply(e.state, copyState(delta))

	s.logger.Debug("session state merged", "key", key.String(), "fields", len(delta))

	return nil
}

// entry returns the entry for key, creating it if needed.
func (s *InMemoryStore) entry(key core.ConversationKey) *entry {
	k := key.String()

	s.mu.RLock()
	e, ok := s.entries[k]
	s.mu.RUnlock()

	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok = s.entries[k]; ok {
		return e
	}

	e = &entry{state: map[string]any{}}
	s.entries[k] = e

	return e
}

// copyState deep-copies a state map so callers never alias stored values.
func copyState(state map[string]any) map[string]any {
	out := make(map[string]any, len(state))
	for k, v := range state {
		out[k] = copyValue(v)
	}

	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyState(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = copyValue(item)
		}

		return out
	default:
		return v
	}
}
