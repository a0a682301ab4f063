package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrelay/logging"
)

func newTestSQLiteStore(t *testing.T, policy *Policy) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(":memory:", func(o *Options) {
		o.Policy = policy
		o.Logger = logging.NoOpLogger{}
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	store := newTestSQLiteStore(t, nil)
	key := testKey("sq1")

	require.NoError(t, store.CreateIfAbsent(key))
	require.NoError(t, store.Merge(key, map[string]any{"unit": "celsius"}))
	require.NoError(t, store.Merge(key, map[string]any{"unit": "fahrenheit"}))

	assert.Equal(t, "fahrenheit", store.Get(key, "unit", nil))
	assert.Equal(t, "celsius", store.Get(testKey("other"), "unit", "celsius"))
}

func TestSQLiteStore_PolicySemantics(t *testing.T) {
	store := newTestSQLiteStore(t, NewPolicy().ListField("recent_queries", 3).CounterField("count"))
	key := testKey("sq2")

	for _, city := range []string{"tokyo", "paris", "london", "berlin"} {
		require.NoError(t, store.Merge(key, map[string]any{
			"recent_queries": city,
			"count":          1,
		}))
	}

	assert.Equal(t, []any{"paris", "london", "berlin"}, store.Get(key, "recent_queries", nil))
	assert.Equal(t, float64(4), store.Get(key, "count", nil))
}

func TestSQLiteStore_CreateIfAbsentIdempotent(t *testing.T) {
	store := newTestSQLiteStore(t, nil)
	key := testKey("sq3")

	require.NoError(t, store.CreateIfAbsent(key))
	require.NoError(t, store.Merge(key, map[string]any{"unit": "celsius"}))
	require.NoError(t, store.CreateIfAbsent(key))

	assert.Equal(t, "celsius", store.Get(key, "unit", nil))
	assert.Equal(t, map[string]any{"unit": "celsius"}, store.Snapshot(key))
}
