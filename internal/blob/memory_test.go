package blob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_PutGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.Get(ctx, "main")
	assert.ErrorIs(t, err, ErrNotFound)

	data := []byte("snapshot")
	require.NoError(t, m.Put(ctx, "main", data))
	data[0] = 'X' // caller mutation must not leak in

	got, err := m.Get(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, []byte("snapshot"), got)
	assert.Equal(t, 1, m.Puts())
}

func TestMemory_Closed(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Close())

	assert.ErrorIs(t, m.Put(context.Background(), "k", nil), ErrClosed)
	_, err := m.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrClosed)
}
