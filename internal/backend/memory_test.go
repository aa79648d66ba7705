package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_AddNeverReturnsIndexKey(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	key, err := m.Add(ctx, []byte("a"))
	require.NoError(t, err)
	assert.NotEqual(t, IndexKey, key)
	assert.Equal(t, IndexKey+1, key)

	key2, err := m.Add(ctx, []byte("b"))
	require.NoError(t, err)
	assert.Equal(t, key+1, key2)
}

func TestMemory_GetMissing(t *testing.T) {
	m := NewMemory()

	_, err := m.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_UpdateUpserts(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Update(ctx, IndexKey, []byte("idx")))
	v, err := m.Get(ctx, IndexKey)
	require.NoError(t, err)
	assert.Equal(t, []byte("idx"), v)

	require.NoError(t, m.Update(ctx, IndexKey, []byte("idx2")))
	v, err = m.Get(ctx, IndexKey)
	require.NoError(t, err)
	assert.Equal(t, []byte("idx2"), v)
}

func TestMemory_ValuesAreCopied(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	in := []byte("hello")
	key, err := m.Add(ctx, in)
	require.NoError(t, err)
	in[0] = 'j'

	out, err := m.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))

	out[0] = 'y'
	again, err := m.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(again))
}

func TestMemory_Remove(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	key, err := m.Add(ctx, []byte("x"))
	require.NoError(t, err)

	removed, err := m.Remove(ctx, key)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = m.Remove(ctx, key)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestMemory_ClearKeepsSequence(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	k1, err := m.Add(ctx, []byte("x"))
	require.NoError(t, err)
	require.NoError(t, m.Update(ctx, IndexKey, []byte("idx")))

	require.NoError(t, m.Clear(ctx))
	assert.Equal(t, 0, m.Len())

	_, err = m.Get(ctx, IndexKey)
	assert.ErrorIs(t, err, ErrNotFound)

	k2, err := m.Add(ctx, []byte("y"))
	require.NoError(t, err)
	assert.Greater(t, k2, k1, "keys must not be reused after clear")
}

func TestMemory_CallLog(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	key, _ := m.Add(ctx, []byte("x"))
	_, _ = m.Get(ctx, key)
	_ = m.Update(ctx, IndexKey, []byte("i"))
	_, _ = m.Remove(ctx, key)
	_ = m.Clear(ctx)

	calls := m.Calls()
	require.Len(t, calls, 5)
	assert.Equal(t, "add", calls[0].String())
	assert.Equal(t, "get(2)", calls[1].String())
	assert.Equal(t, "update(1)", calls[2].String())
	assert.Equal(t, "remove(2)", calls[3].String())
	assert.Equal(t, "clear", calls[4].String())

	assert.Equal(t, 1, m.CountCalls(OpUpdate, IndexKey))
	assert.Equal(t, 0, m.CountCalls(OpUpdate, key))
	assert.Equal(t, 1, m.CountCalls(OpGet, 0))

	m.ResetCalls()
	assert.Empty(t, m.Calls())
}

func TestMemory_Closed(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Close())

	_, err := m.Add(context.Background(), []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}
