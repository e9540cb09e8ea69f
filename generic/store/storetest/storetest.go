// Package storetest checks a generic.Store implementation against the
// store contract. Backends call Run from their own tests.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/carepoints/generic"
)

// Run exercises a fresh store from open for every subtest. The store is
// closed by the suite where needed; open must not register its own Close
// that fails on a second call.
func Run(t *testing.T, open func(t *testing.T) generic.Store) {
	t.Run("absent key", func(t *testing.T) {
		s := open(t)
		v, ok, err := s.Get(context.Background(), "points")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, v)
	})

	t.Run("put then get", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		require.NoError(t, s.Put(ctx, "events", []byte(`[{"id":"a"}]`)))

		v, ok, err := s.Get(ctx, "events")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.JSONEq(t, `[{"id":"a"}]`, string(v))
	})

	t.Run("overwrite", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		require.NoError(t, s.Put(ctx, "points", []byte("10")))
		require.NoError(t, s.Put(ctx, "points", []byte("25")))

		v, _, err := s.Get(ctx, "points")
		require.NoError(t, err)
		assert.Equal(t, "25", string(v))
	})

	t.Run("keys sorted", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		for _, k := range []string{"tab", "coupons", "points"} {
			require.NoError(t, s.Put(ctx, k, []byte(`1`)))
		}

		keys, err := s.Keys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"coupons", "points", "tab"}, keys)
	})

	t.Run("returned value is owned by caller", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		require.NoError(t, s.Put(ctx, "points", []byte("10")))

		v, _, err := s.Get(ctx, "points")
		require.NoError(t, err)
		v[0] = '9'

		again, _, err := s.Get(ctx, "points")
		require.NoError(t, err)
		assert.Equal(t, "10", string(again))
	})

	t.Run("closed", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		require.NoError(t, s.Close())

		assert.ErrorIs(t, s.Put(ctx, "points", []byte("1")), generic.ErrStoreClosed)
		_, _, err := s.Get(ctx, "points")
		assert.ErrorIs(t, err, generic.ErrStoreClosed)
		_, err = s.Keys(ctx)
		assert.ErrorIs(t, err, generic.ErrStoreClosed)
	})
}
