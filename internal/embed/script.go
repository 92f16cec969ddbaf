package embed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/draftpad/internal/log"
	"github.com/zjrosen/draftpad/internal/tracing"
)

// DefaultScriptURL is the post widget script.
const DefaultScriptURL = "https://platform.twitter.com/widgets.js"

// ScriptLoader fetches and installs a script.
type ScriptLoader interface {
	Load(ctx context.Context, url string) error
}

// ScriptLoaderFunc adapts a function to ScriptLoader.
type ScriptLoaderFunc func(ctx context.Context, url string) error

func (f ScriptLoaderFunc) Load(ctx context.Context, url string) error { return f(ctx, url) }

// HTTPScriptLoader considers a script loaded once its body has been fetched.
type HTTPScriptLoader struct {
	Client *http.Client
}

func (l HTTPScriptLoader) Load(ctx context.Context, url string) error {
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("script request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching script %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("fetching script %s: status %d", url, resp.StatusCode)
	}
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("reading script %s: %w", url, err)
	}
	return nil
}

type scriptEntry struct {
	done chan struct{}
	err  error
}

// ScriptCache loads each script at most once. Concurrent callers for the
// same URL share one load. A failed load is forgotten so a later call
// retries it.
type ScriptCache struct {
	loader ScriptLoader
	tracer trace.Tracer

	mu      sync.Mutex
	entries map[string]*scriptEntry
}

// NewScriptCache creates a cache over loader. tracer may be nil.
func NewScriptCache(loader ScriptLoader, tracer trace.Tracer) *ScriptCache {
	return &ScriptCache{loader: loader, tracer: tracer, entries: make(map[string]*scriptEntry)}
}

// DefaultScriptCache is the process-wide cache, created on first use.
var DefaultScriptCache = sync.OnceValue(func() *ScriptCache {
	return NewScriptCache(HTTPScriptLoader{Client: &http.Client{Timeout: 15 * time.Second}}, nil)
})

// LoadOnce blocks until url has been loaded. It may be called from any
// goroutine.
func (c *ScriptCache) LoadOnce(ctx context.Context, url string) error {
	c.mu.Lock()
	e, ok := c.entries[url]
	if !ok {
		e = &scriptEntry{done: make(chan struct{})}
		c.entries[url] = e
		go c.load(url, e)
	}
	c.mu.Unlock()

	select {
	case <-e.done:
		return e.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// load detaches from the first caller's context so a cancelled caller does
// not fail everyone sharing the entry.
func (c *ScriptCache) load(url string, e *scriptEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx, span := tracing.Start(ctx, c.tracer, tracing.SpanEmbedScript,
		attribute.String(tracing.AttrEmbedURL, url))

	e.err = c.loader.Load(ctx, url)
	tracing.End(span, e.err)
	if e.err != nil {
		log.ErrorErr(log.CatEmbed, "script load failed", e.err, "url", url)
		c.mu.Lock()
		delete(c.entries, url)
		c.mu.Unlock()
	} else {
		log.Debug(log.CatEmbed, "script loaded", "url", url)
	}
	close(e.done)
}

// Loaded reports whether url finished loading successfully.
func (c *ScriptCache) Loaded(url string) bool {
	c.mu.Lock()
	e, ok := c.entries[url]
	c.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case <-e.done:
		return e.err == nil
	default:
		return false
	}
}
