package pebble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatch(t *testing.T) {
	t.Run("writes are invisible until commit", func(t *testing.T) {
		store, err := NewKVStore()
		require.NoError(t, err)
		defer store.Close() //nolint:errcheck

		batch := store.NewBatch()
		defer batch.Close() //nolint:errcheck

		require.NoError(t, batch.Put([]byte("a"), []byte("1")))
		require.NoError(t, batch.Put([]byte("b"), []byte("2")))
		require.NoError(t, batch.Delete([]byte("b")))

		_, err = store.Get([]byte("a"))
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, batch.Commit())

		v, err := store.Get([]byte("a"))
		require.NoError(t, err)
		assert.Equal(t, []byte("1"), v)

		_, err = store.Get([]byte("b"))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("batch is single use", func(t *testing.T) {
		store, err := NewKVStore()
		require.NoError(t, err)
		defer store.Close() //nolint:errcheck

		batch := store.NewBatch()
		require.NoError(t, batch.Put([]byte("key"), []byte("value")))
		require.NoError(t, batch.Commit())

		assert.ErrorIs(t, batch.Put([]byte("key2"), []byte("value2")), ErrBatchDone)
		assert.ErrorIs(t, batch.Delete([]byte("key2")), ErrBatchDone)
		assert.ErrorIs(t, batch.Commit(), ErrBatchDone)

		assert.NoError(t, batch.Close())
		assert.NoError(t, batch.Close())
	})

	t.Run("closed batch discards writes", func(t *testing.T) {
		store, err := NewKVStore()
		require.NoError(t, err)
		defer store.Close() //nolint:errcheck

		batch := store.NewBatch()
		require.NoError(t, batch.Put([]byte("key"), []byte("value")))
		require.NoError(t, batch.Close())
		assert.ErrorIs(t, batch.Commit(), ErrBatchDone)

		_, err = store.Get([]byte("key"))
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
