package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndLookup(t *testing.T) {
	store := NewMemoryStore(TTL)

	token, err := store.Create("jane@example.com", "Jane Roe")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	sess, ok := store.Lookup(token)
	require.True(t, ok)
	assert.Equal(t, "jane@example.com", sess.Email)
	assert.Equal(t, "Jane Roe", sess.PatientName)
}

func TestTokensAreUnique(t *testing.T) {
	store := NewMemoryStore(TTL)

	first, err := store.Create("jane@example.com", "Jane Roe")
	require.NoError(t, err)
	second, err := store.Create("jane@example.com", "Jane Roe")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestLookupUnknownToken(t *testing.T) {
	store := NewMemoryStore(TTL)

	_, ok := store.Lookup("no-such-token")
	assert.False(t, ok)
}

func TestExpiredSessionIsEvicted(t *testing.T) {
	store := NewMemoryStore(TTL)
	current := time.Now()
	store.now = func() time.Time { return current }

	token, err := store.Create("jane@example.com", "Jane Roe")
	require.NoError(t, err)

	current = current.Add(TTL + time.Minute)
	_, ok := store.Lookup(token)
	assert.False(t, ok)

	// Eviction is permanent even if the clock moves back.
	current = current.Add(-2 * time.Hour)
	_, ok = store.Lookup(token)
	assert.False(t, ok)
}

func TestSessionValidWithinTTL(t *testing.T) {
	store := NewMemoryStore(TTL)
	current := time.Now()
	store.now = func() time.Time { return current }

	token, err := store.Create("jane@example.com", "Jane Roe")
	require.NoError(t, err)

	current = current.Add(TTL - time.Minute)
	_, ok := store.Lookup(token)
	assert.True(t, ok)
}

func TestInvalidateIsIdempotent(t *testing.T) {
	store := NewMemoryStore(TTL)

	token, err := store.Create("jane@example.com", "Jane Roe")
	require.NoError(t, err)

	store.Invalidate(token)
	_, ok := store.Lookup(token)
	assert.False(t, ok)

	store.Invalidate(token)
	store.Invalidate("never-issued")
}
