package storage

import (
	"context"

	"github.com/zjrosen/draftpad/internal/cachemanager"
)

// MemoryStore keeps values in process memory. Values never expire.
type MemoryStore struct {
	cache *cachemanager.InMemoryCacheManager[string, string]
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: cachemanager.NewInMemoryCacheManager[string, string](
			"drafts", cachemanager.NoExpiration, cachemanager.DefaultCleanupInterval),
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := s.cache.Get(ctx, key)
	return v, ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.cache.Set(ctx, key, value, cachemanager.NoExpiration)
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, keys ...string) error {
	return s.cache.Delete(ctx, keys...)
}

func (s *MemoryStore) Keys(ctx context.Context) ([]string, error) {
	return s.cache.Keys(ctx), nil
}

func (s *MemoryStore) Close() error { return nil }
