package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryStoreKV(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Get(ctx, "missing")
	assert.Equal(t, ErrNotFound, err)

	assert.NoError(t, s.Put(ctx, "k", "v", 0))
	v, err := s.Get(ctx, "k")
	assert.NoError(t, err)
	assert.Equal(t, "v", v)

	ok, err := s.Exists(ctx, "k")
	assert.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, s.Delete(ctx, "k"))
	assert.NoError(t, s.Delete(ctx, "k"), "delete is idempotent")
	ok, err = s.Exists(ctx, "k")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreTTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	assert.NoError(t, s.Put(ctx, "k", "v", 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	_, err := s.Get(ctx, "k")
	assert.Equal(t, ErrNotFound, err)
	ok, err := s.Exists(ctx, "k")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreList(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.PopHead(ctx, "l")
	assert.Equal(t, ErrNotFound, err)

	assert.NoError(t, s.PushTail(ctx, "l", "a"))
	assert.NoError(t, s.PushTail(ctx, "l", "b"))

	n, err := s.Length(ctx, "l")
	assert.NoError(t, err)
	assert.EqualValues(t, 2, n)

	v, err := s.PopHead(ctx, "l")
	assert.NoError(t, err)
	assert.Equal(t, "a", v)
	v, err = s.PopHead(ctx, "l")
	assert.NoError(t, err)
	assert.Equal(t, "b", v)
}
