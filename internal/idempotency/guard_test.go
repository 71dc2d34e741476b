package idempotency

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_FirstReserveSucceeds(t *testing.T) {
	g := New(NewMemoryStore())
	_, already, err := g.Reserve(context.Background(), "saga-1_nonce", uuid.New(), []byte(`{"ok":true}`))
	require.NoError(t, err)
	assert.False(t, already)
}

func TestGuard_SecondReserveOfSameKeyReplaysCachedResult(t *testing.T) {
	g := New(NewMemoryStore())
	key := "saga-1_nonce"
	cached := []byte(`{"order_id":"abc"}`)

	_, already, err := g.Reserve(context.Background(), key, uuid.New(), cached)
	require.NoError(t, err)
	require.False(t, already)

	existing, already, err := g.Reserve(context.Background(), key, uuid.New(), []byte(`{"different":true}`))
	require.NoError(t, err)
	require.True(t, already)
	assert.Equal(t, cached, existing.Result)
}

func TestGuard_KeyInsertedByAnotherWriterReportsAlreadyProcessed(t *testing.T) {
	mem := NewMemoryStore().(*memoryStore)
	key := "saga-1_nonce"
	winnerID := uuid.New()

	// Another writer inserts first, out of band, so Reserve's initial
	// Lookup already finds the key.
	_, err := mem.Insert(context.Background(), key, winnerID, []byte(`{}`))
	require.NoError(t, err)

	g := New(mem)
	_, already, err := g.Reserve(context.Background(), key, uuid.New(), []byte(`{}`))
	require.NoError(t, err)
	assert.True(t, already)
}
