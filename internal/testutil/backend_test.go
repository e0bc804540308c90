package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loctrack/internal/blob"
)

func TestBlockingBackend_RecordsWritesInOrder(t *testing.T) {
	b := NewBlockingBackend()
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, "main", []byte("one")))
	require.NoError(t, b.Put(ctx, "main", []byte("two")))
	require.NoError(t, b.Put(ctx, "other", []byte("x")))

	assert.Equal(t, [][]byte{[]byte("one"), []byte("two")}, b.Writes("main"))
	got, err := b.Get(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)
}

func TestBlockingBackend_BlockAndUnblock(t *testing.T) {
	b := NewBlockingBackend()
	b.Block()

	done := make(chan error, 1)
	go func() { done <- b.Put(context.Background(), "main", []byte("held")) }()

	select {
	case key := <-b.Entered():
		assert.Equal(t, "main", key)
	case <-time.After(2 * time.Second):
		t.Fatal("put never started")
	}

	select {
	case <-done:
		t.Fatal("put completed while blocked")
	case <-time.After(20 * time.Millisecond):
	}

	b.Unblock()
	require.NoError(t, <-done)
	assert.Len(t, b.Writes("main"), 1)
}

func TestBlockingBackend_BlockedPutHonoursContext(t *testing.T) {
	b := NewBlockingBackend()
	b.Block()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, b.Put(ctx, "main", []byte("x")), context.Canceled)
	assert.Empty(t, b.Writes("main"))
}

func TestBlockingBackend_Failures(t *testing.T) {
	b := NewBlockingBackend()
	ctx := context.Background()
	boom := errors.New("disk full")

	b.FailPuts(boom)
	assert.ErrorIs(t, b.Put(ctx, "main", []byte("x")), boom)
	b.FailPuts(nil)

	_, err := b.Get(ctx, "main")
	assert.ErrorIs(t, err, blob.ErrNotFound)

	b.FailGets(boom)
	_, err = b.Get(ctx, "main")
	assert.ErrorIs(t, err, boom)
}

func TestBlockingBackend_SeedIsNotAWrite(t *testing.T) {
	b := NewBlockingBackend()
	require.NoError(t, b.Seed("main", []byte("seeded")))

	got, err := b.Get(context.Background(), "main")
	require.NoError(t, err)
	assert.Equal(t, []byte("seeded"), got)
	assert.Empty(t, b.Writes("main"))
}
