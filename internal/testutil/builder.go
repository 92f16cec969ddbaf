package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/draftpad/internal/storage"
)

// DefaultScope is the scope drafts are stored under unless overridden.
const DefaultScope = "ethereum"

type keyValue struct {
	key   string
	value string
}

// Builder accumulates stored drafts and raw keys and writes them in order.
type Builder struct {
	t      *testing.T
	store  storage.Store
	drafts []draftData
	raw    []keyValue
}

// NewBuilder creates a builder writing to store.
func NewBuilder(t *testing.T, store storage.Store) *Builder {
	t.Helper()
	return &Builder{t: t, store: store}
}

// WithDraft adds a draft for namespace.
func (b *Builder) WithDraft(namespace string, opts ...DraftOption) *Builder {
	d := defaultDraft(namespace)
	for _, opt := range opts {
		opt(&d)
	}
	b.drafts = append(b.drafts, d)
	return b
}

// WithKey adds an arbitrary key, such as a composer's topic selection.
func (b *Builder) WithKey(key, value string) *Builder {
	b.raw = append(b.raw, keyValue{key, value})
	return b
}

// Build writes everything to the store.
func (b *Builder) Build() {
	b.t.Helper()
	ctx := context.Background()
	for _, d := range b.drafts {
		if d.value != "" {
			require.NoError(b.t, b.store.Set(ctx, storage.DraftKey(d.scope, d.namespace), d.value))
		}
		if d.mode != "" {
			require.NoError(b.t, b.store.Set(ctx, storage.ModeKey(d.namespace), d.mode))
		}
	}
	for _, kv := range b.raw {
		require.NoError(b.t, b.store.Set(ctx, kv.key, kv.value))
	}
}
