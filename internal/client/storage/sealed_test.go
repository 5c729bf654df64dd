package storage

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/healthsync/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealed_RoundTripAndCiphertextAtRest(t *testing.T) {
	ctx := context.Background()
	inner := newTestStore(t)

	s, err := NewSealed(ctx, inner, []byte("correct horse"))
	require.NoError(t, err)

	plain := []byte(`{"name":"Jane"}`)
	require.NoError(t, s.Set(ctx, "cache:profile", plain))

	got, err := s.Get(ctx, "cache:profile")
	require.NoError(t, err)
	assert.Equal(t, plain, got)

	raw, err := inner.Get(ctx, "cache:profile")
	require.NoError(t, err)
	assert.NotEqual(t, plain, raw)
	assert.NotContains(t, string(raw), "Jane")
}

func TestSealed_ReopenWithSamePassphrase(t *testing.T) {
	ctx := context.Background()
	inner := newTestStore(t)

	s1, err := NewSealed(ctx, inner, []byte("pw"))
	require.NoError(t, err)
	require.NoError(t, s1.Set(ctx, "k", []byte("v")))

	s2, err := NewSealed(ctx, inner, []byte("pw"))
	require.NoError(t, err)
	v, err := s2.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
}

func TestSealed_WrongPassphrase(t *testing.T) {
	ctx := context.Background()
	inner := newTestStore(t)

	_, err := NewSealed(ctx, inner, []byte("right"))
	require.NoError(t, err)

	s, err := NewSealed(ctx, inner, []byte("wrong"))
	require.ErrorIs(t, err, common.ErrUnauthorized)
	assert.Nil(t, s)
}

func TestSealed_GetAbsent(t *testing.T) {
	ctx := context.Background()
	s, err := NewSealed(ctx, newTestStore(t), []byte("pw"))
	require.NoError(t, err)

	v, err := s.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestSealed_TamperedValue(t *testing.T) {
	ctx := context.Background()
	inner := newTestStore(t)
	s, err := NewSealed(ctx, inner, []byte("pw"))
	require.NoError(t, err)

	require.NoError(t, inner.Set(ctx, "k", []byte("not sealed at all, definitely")))

	_, err = s.Get(ctx, "k")
	require.ErrorIs(t, err, common.ErrStorage)
}

func TestSealed_UpdateListClear(t *testing.T) {
	ctx := context.Background()
	inner := newTestStore(t)
	s, err := NewSealed(ctx, inner, []byte("pw"))
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, "cache:a", func(old []byte) ([]byte, error) {
		assert.Nil(t, old)
		return []byte("1"), nil
	}))
	require.NoError(t, s.Update(ctx, "cache:a", func(old []byte) ([]byte, error) {
		assert.Equal(t, []byte("1"), old)
		return []byte("2"), nil
	}))
	require.NoError(t, s.Set(ctx, "cache:b", []byte("b")))

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"cache:a": []byte("2"), "cache:b": []byte("b")}, all)

	require.NoError(t, s.Clear(ctx))
	all, err = s.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)

	// the passphrase still opens the store after Clear
	_, err = NewSealed(ctx, inner, []byte("pw"))
	require.NoError(t, err)
	_, err = NewSealed(ctx, inner, []byte("other"))
	require.ErrorIs(t, err, common.ErrUnauthorized)
}
