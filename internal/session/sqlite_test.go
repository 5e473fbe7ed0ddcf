package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteTestStore(t *testing.T, path string) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(path, time.Hour)
	require.NoError(t, err)
	return store
}

func TestSQLiteStoreLifecycle(t *testing.T) {
	store := newSQLiteTestStore(t, filepath.Join(t.TempDir(), "sessions.db"))
	defer store.Close()

	sess, err := store.Create(12345, "Broker-Demo")
	require.NoError(t, err)
	assert.Contains(t, sess.ID, "12345")

	assert.True(t, store.Exists(sess.ID))
	assert.True(t, store.Touch(sess.ID))
	assert.Equal(t, 1, store.Len())

	got, err := store.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(12345), got.Login)

	sessions, err := store.List()
	require.NoError(t, err)
	assert.Len(t, sessions, 1)

	require.NoError(t, store.Delete(sess.ID))
	assert.False(t, store.Exists(sess.ID))
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")

	store := newSQLiteTestStore(t, path)
	sess, err := store.Create(999, "srv")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened := newSQLiteTestStore(t, path)
	defer reopened.Close()
	assert.True(t, reopened.Exists(sess.ID))
	got, err := reopened.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(999), got.Login)
}

func TestSQLiteStoreTTL(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"), 20*time.Millisecond)
	require.NoError(t, err)
	defer store.Close()

	sess, err := store.Create(1, "srv")
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)
	assert.False(t, store.Exists(sess.ID))
	assert.False(t, store.Touch(sess.ID))
	assert.Equal(t, 0, store.Len())
}
