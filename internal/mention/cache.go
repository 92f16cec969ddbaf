package mention

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/zjrosen/draftpad/internal/cachemanager"
)

type searchInput struct {
	query string
	opts  Options
}

// CachedSearcher memoises successful searches for ttl. Failures are not cached.
type CachedSearcher struct {
	cache *cachemanager.ReadThroughCache[string, []Candidate, searchInput]
	ttl   time.Duration
}

// NewCachedSearcher caches inner's results. A ttl of zero or less disables
// caching.
func NewCachedSearcher(inner Searcher, ttl time.Duration) *CachedSearcher {
	mgr := cachemanager.NewInMemoryCacheManager[string, []Candidate]("mention-search", ttl, cachemanager.DefaultCleanupInterval)
	load := func(ctx context.Context, in searchInput) ([]Candidate, error) {
		return inner.Search(ctx, in.query, in.opts)
	}
	return &CachedSearcher{
		cache: cachemanager.NewReadThroughCache[string, []Candidate, searchInput](mgr, load, ttl <= 0),
		ttl:   ttl,
	}
}

func (c *CachedSearcher) Search(ctx context.Context, query string, opts Options) ([]Candidate, error) {
	key := opts.Scope + "|" + strconv.Itoa(opts.ResultSize) + "|" + strings.ToLower(strings.TrimSpace(query))
	return c.cache.Get(ctx, key, searchInput{query: query, opts: opts}, c.ttl)
}
