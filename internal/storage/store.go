// Package storage persists drafts and per-namespace editor state as string
// key/value pairs. Backends: in-process memory, a local SQLite file, Redis.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Store is a string key/value store.
type Store interface {
	// Get returns the value under key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, keys ...string) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// DraftKey is where the draft for (scope, namespace) is kept.
func DraftKey(scope, namespace string) string {
	return scope + "-" + namespace + "-storedText"
}

// ModeKey is where the last active editor mode for namespace is kept.
func ModeKey(namespace string) string {
	return namespace + "-activeMode"
}

// RemoveMatching removes every key for which match returns true and returns
// the removed keys.
func RemoveMatching(ctx context.Context, s Store, match func(key string) bool) ([]string, error) {
	keys, err := s.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	var doomed []string
	for _, k := range keys {
		if match(k) {
			doomed = append(doomed, k)
		}
	}
	if len(doomed) == 0 {
		return nil, nil
	}
	if err := s.Remove(ctx, doomed...); err != nil {
		return nil, fmt.Errorf("remove keys: %w", err)
	}
	return doomed, nil
}

// Contains returns a matcher for keys containing any of subs.
func Contains(subs ...string) func(string) bool {
	return func(key string) bool {
		for _, s := range subs {
			if s != "" && strings.Contains(key, s) {
				return true
			}
		}
		return false
	}
}
