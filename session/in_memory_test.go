package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/logging"
)

func testKey(session string) core.ConversationKey {
	return core.NewConversationKey("weather-app", "user-1", session)
}

func TestInMemoryStore_ScalarReplace(t *testing.T) {
	store := NewInMemoryStore(func(o *Options) {
		o.Logger = logging.NoOpLogger{}
	})
	key := testKey("s1")

	require.NoError(t, store.CreateIfAbsent(key))
	require.NoError(t, store.Merge(key, map[string]any{"unit": "celsius"}))
	require.NoError(t, store.Merge(key, map[string]any{"unit": "fahrenheit"}))

	assert.Equal(t, "fahrenheit", store.Get(key, "unit", nil))
}

func TestInMemoryStore_GetDefaultDoesNotCreate(t *testing.T) {
	store := NewInMemoryStore(func(o *Options) {
		o.Logger = logging.NoOpLogger{}
	})
	key := testKey("missing")

	assert.Equal(t, "celsius", store.Get(key, "unit", "celsius"))
	assert.Empty(t, store.Snapshot(key))
}

func TestInMemoryStore_ListFieldCapFIFO(t *testing.T) {
	store := NewInMemoryStore(func(o *Options) {
		o.Policy = NewPolicy().ListField("recent_queries", 5)
		o.Logger = logging.NoOpLogger{}
	})
	key := testKey("s2")

	cities := []string{"tokyo", "paris", "london", "berlin", "madrid", "rome"}
	for _, city := range cities {
		require.NoError(t, store.Merge(key, map[string]any{"recent_queries": city}))
	}

	got := store.Get(key, "recent_queries", nil)
	list, ok := got.([]any)
	require.True(t, ok)

	// Oldest entry ("tokyo") was evicted, insertion order preserved.
	assert.Equal(t, []any{"paris", "london", "berlin", "madrid", "rome"}, list)
}

func TestInMemoryStore_CounterAdds(t *testing.T) {
	store := NewInMemoryStore(func(o *Options) {
		o.Policy = NewPolicy().CounterField("requests_in_window")
		o.Logger = logging.NoOpLogger{}
	})
	key := testKey("s3")

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Merge(key, map[string]any{"requests_in_window": 1}))
	}

	assert.Equal(t, float64(3), store.Get(key, "requests_in_window", float64(0)))
}

func TestInMemoryStore_MergeAssociativity(t *testing.T) {
	policy := NewPolicy().CounterField("count")
	key := testKey("s4")

	// Merging disjoint scalar deltas one at a time or combined into a
	// single delta must produce the same state.
	oneAtATime := NewInMemoryStore(func(o *Options) {
		o.Policy = policy
		o.Logger = logging.NoOpLogger{}
	})
	require.NoError(t, oneAtATime.Merge(key, map[string]any{"unit": "celsius", "count": 1}))
	require.NoError(t, oneAtATime.Merge(key, map[string]any{"lang": "en", "count": 2}))

	combined := NewInMemoryStore(func(o *Options) {
		o.Policy = policy
		o.Logger = logging.NoOpLogger{}
	})
	require.NoError(t, combined.Merge(key, map[string]any{"unit": "celsius", "lang": "en", "count": 3}))

	assert.Equal(t, combined.Snapshot(key), oneAtATime.Snapshot(key))
	assert.Equal(t, float64(3), oneAtATime.Get(key, "count", nil))
	assert.Equal(t, "celsius", oneAtATime.Get(key, "unit", nil))
}

func TestInMemoryStore_SnapshotIsDefensiveCopy(t *testing.T) {
	store := NewInMemoryStore(func(o *Options) {
		o.Logger = logging.NoOpLogger{}
	})
	key := testKey("s5")

	require.NoError(t, store.Merge(key, map[string]any{"prefs": map[string]any{"unit": "celsius"}}))

	snap := store.Snapshot(key)
	snap["prefs"].(map[string]any)["unit"] = "kelvin"

	assert.Equal(t, "celsius", store.Snapshot(key)["prefs"].(map[string]any)["unit"])
}

func TestInMemoryStore_ConcurrentDisjointMerges(t *testing.T) {
	store := NewInMemoryStore(func(o *Options) {
		o.Policy = NewPolicy().CounterField("count")
		o.Logger = logging.NoOpLogger{}
	})
	key := testKey("s6")

	var wg sync.WaitGroup

	wg.Add(2)

	go func() {
		defer wg.Done()

		for i := 0; i < 100; i++ {
			_ = store.Merge(key, map[string]any{"count": 1})
		}
	}()

	go func() {
		defer wg.Done()

		for i := 0; i < 100; i++ {
			_ = store.Merge(key, map[string]any{"last_city": "tokyo"})
		}
	}()

	wg.Wait()

	assert.Equal(t, float64(100), store.Get(key, "count", nil))
	assert.Equal(t, "tokyo", store.Get(key, "last_city", nil))
}

func TestInMemoryStore_CreateIfAbsentIdempotent(t *testing.T) {
	store := NewInMemoryStore(func(o *Options) {
		o.Logger = logging.NoOpLogger{}
	})
	key := testKey("s7")

	require.NoError(t, store.CreateIfAbsent(key))
	require.NoError(t, store.Merge(key, map[string]any{"unit": "celsius"}))
	require.NoError(t, store.CreateIfAbsent(key))

	assert.Equal(t, "celsius", store.Get(key, "unit", nil))
}

func TestInMemoryStore_RejectsInvalidKey(t *testing.T) {
	store := NewInMemoryStore(func(o *Options) {
		o.Logger = logging.NoOpLogger{}
	})

	err := store.CreateIfAbsent(core.NewConversationKey("", "user", "session"))
	assert.Error(t, err)
}
