package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, ok, err := s.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "new store has no token")

	require.NoError(t, s.Set(ctx, "abc123"))
	token, ok, err := s.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc123", token)

	require.NoError(t, s.Set(ctx, "def456"))
	token, _, _ = s.Get(ctx)
	assert.Equal(t, "def456", token, "set overwrites")

	require.NoError(t, s.Clear(ctx))
	_, ok, _ = s.Get(ctx)
	assert.False(t, ok)
}

func TestMemoryStore_RejectsEmptyToken(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Set(context.Background(), "keep"))

	assert.ErrorIs(t, s.Set(context.Background(), "  "), ErrEmptyToken)

	token, ok, _ := s.Get(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "keep", token)
}
