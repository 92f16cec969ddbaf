// Package testutil provides stores, seed data and collaborator fakes for
// editor tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/draftpad/internal/storage"
)

// NewTestStore opens a migrated SQLite draft store in a temp dir. It is
// closed when the test ends.
func NewTestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	s, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "drafts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// NewRedisTestStore returns a Redis draft store backed by miniredis, and the
// server so tests can fast-forward its clock.
func NewRedisTestStore(t *testing.T) (*storage.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := storage.NewRedisStoreWithClient(client, 0)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}
