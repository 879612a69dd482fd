// Package storetest holds the behavioural checks every store.Store backend
// must pass.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/readtrack/internal/store"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) store.Store

// Run executes the contract suite against the backend built by newStore.
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("absent key is not an error", func(t *testing.T) {
		s := newStore(t)

		value, ok, err := s.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, value)

		entry, err := s.Lookup(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, entry.Present())
	})

	t.Run("set then get", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.Set(ctx, "books", `[{"id":"1"}]`))
		value, ok, err := s.Get(ctx, "books")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `[{"id":"1"}]`, value)
	})

	t.Run("set overwrites and bumps version", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.Set(ctx, "appTime", "1"))
		first, err := s.Lookup(ctx, "appTime")
		require.NoError(t, err)

		require.NoError(t, s.Set(ctx, "appTime", "2"))
		second, err := s.Lookup(ctx, "appTime")
		require.NoError(t, err)

		assert.Equal(t, "2", second.Value)
		assert.Greater(t, second.Version, first.Version)
	})

	t.Run("empty value is stored", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.Set(ctx, "note_2026-01-01", ""))
		value, ok, err := s.Get(ctx, "note_2026-01-01")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Empty(t, value)
	})

	t.Run("remove", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.Set(ctx, "position-a", "10"))
		require.NoError(t, s.Remove(ctx, "position-a"))
		_, ok, err := s.Get(ctx, "position-a")
		require.NoError(t, err)
		assert.False(t, ok)

		assert.NoError(t, s.Remove(ctx, "never-written"))
	})

	t.Run("get all keys", func(t *testing.T) {
		s := newStore(t)

		for _, key := range []string{"readingTime_2026-01-02", "books", "note_2026-01-02"} {
			require.NoError(t, s.Set(ctx, key, "1"))
		}

		keys, err := s.GetAllKeys(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"books", "note_2026-01-02", "readingTime_2026-01-02"}, keys)
	})

	t.Run("multi get keeps request order and reports absence", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.Set(ctx, "a", "1"))
		require.NoError(t, s.Set(ctx, "c", "3"))

		results, err := s.MultiGet(ctx, []string{"c", "b", "a"})
		require.NoError(t, err)
		assert.Equal(t, []store.KeyValue{
			{Key: "c", Value: "3", Present: true},
			{Key: "b", Present: false},
			{Key: "a", Value: "1", Present: true},
		}, results)

		empty, err := s.MultiGet(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("compare and swap creates absent key", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.CompareAndSwap(ctx, "progress", "{}", 0))
		err := s.CompareAndSwap(ctx, "progress", `{"1":5}`, 0)
		assert.ErrorIs(t, err, store.ErrVersionConflict)

		value, _, err := s.Get(ctx, "progress")
		require.NoError(t, err)
		assert.Equal(t, "{}", value)
	})

	t.Run("compare and swap rejects stale version", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.Set(ctx, "progress", "{}"))
		stale, err := s.Lookup(ctx, "progress")
		require.NoError(t, err)

		require.NoError(t, s.CompareAndSwap(ctx, "progress", `{"1":10}`, stale.Version))
		err = s.CompareAndSwap(ctx, "progress", `{"1":20}`, stale.Version)
		assert.ErrorIs(t, err, store.ErrVersionConflict)

		value, _, err := s.Get(ctx, "progress")
		require.NoError(t, err)
		assert.Equal(t, `{"1":10}`, value)
	})

	t.Run("concurrent updates are not lost", func(t *testing.T) {
		s := newStore(t)
		updater := store.NewUpdater(s, 100)

		var wg sync.WaitGroup
		errs := make(chan error, 20)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- store.UpdateJSON(ctx, updater, "readingTime", func(v *uint64) error {
					*v++
					return nil
				})
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			if err != nil && !errors.Is(err, store.ErrVersionConflict) {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		total, err := store.GetJSON[uint64](ctx, s, "readingTime")
		require.NoError(t, err)
		assert.Equal(t, uint64(20), total)
	})
}
