package mention

import (
	"context"
	"regexp"
	"time"
	"unicode"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/draftpad/internal/eventloop"
	"github.com/zjrosen/draftpad/internal/log"
	"github.com/zjrosen/draftpad/internal/tracing"
)

const (
	// Trigger starts a mention.
	Trigger = '@'

	// maxTokenRunes bounds how far back from the caret the trigger is looked for.
	maxTokenRunes = 31

	DefaultDebounce   = 300 * time.Millisecond
	DefaultResultSize = 6
)

var allowedChars = regexp.MustCompile(`^[A-Za-z0-9\sÅÄÖåäö\-_.]*$`)

// TokenAt finds the mention being typed at caret. start is the index of the
// trigger and query the text between it and the caret. The trigger must begin
// the text or follow whitespace.
func TokenAt(text string, caret int) (start int, query string, ok bool) {
	runes := []rune(text)
	caret = min(max(caret, 0), len(runes))
	lo := max(0, caret-maxTokenRunes)

	start = -1
	for i := caret - 1; i >= lo; i-- {
		if runes[i] == Trigger {
			start = i
			break
		}
	}
	if start < 0 {
		return 0, "", false
	}
	if start > 0 && !unicode.IsSpace(runes[start-1]) {
		return 0, "", false
	}
	q := runes[start+1 : caret]
	for _, r := range q {
		if r == '\n' {
			return 0, "", false
		}
	}
	query = string(q)
	if !allowedChars.MatchString(query) {
		return 0, "", false
	}
	return start, query, true
}

// Resolver tracks the mention under the caret and the candidate list shown
// for it. It must only be used from the event loop.
type Resolver struct {
	sched     eventloop.Scheduler
	searcher  Searcher
	debounce  *eventloop.Debouncer
	opts      Options
	dropStale bool
	now       func() time.Time
	tracer    trace.Tracer
	onUpdate  func()

	open      bool
	start     int
	query     string
	items     []Item
	highlight int

	gen      uint64
	inflight map[uint64]context.CancelFunc
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

func WithDebounce(d time.Duration) ResolverOption {
	return func(r *Resolver) { r.debounce = eventloop.NewDebouncer(r.sched, d) }
}

func WithSearchOptions(opts Options) ResolverOption {
	return func(r *Resolver) { r.opts = opts }
}

// WithDropStaleResults controls whether results of a search that a newer one
// has overtaken are discarded (and the older request cancelled).
func WithDropStaleResults(drop bool) ResolverOption {
	return func(r *Resolver) { r.dropStale = drop }
}

func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) { r.now = now }
}

func WithTracer(t trace.Tracer) ResolverOption {
	return func(r *Resolver) { r.tracer = t }
}

// WithOnUpdate registers fn to run whenever the list changes.
func WithOnUpdate(fn func()) ResolverOption {
	return func(r *Resolver) { r.onUpdate = fn }
}

// NewResolver creates a resolver searching with searcher. A nil searcher
// never returns candidates.
func NewResolver(sched eventloop.Scheduler, searcher Searcher, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		sched:     sched,
		searcher:  searcher,
		opts:      Options{ResultSize: DefaultResultSize},
		dropStale: true,
		now:       time.Now,
		inflight:  make(map[uint64]context.CancelFunc),
	}
	r.debounce = eventloop.NewDebouncer(sched, DefaultDebounce)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) Open() bool    { return r.open }
func (r *Resolver) Query() string { return r.query }
func (r *Resolver) Items() []Item { return r.items }

// Highlight returns the index of the highlighted row.
func (r *Resolver) Highlight() int { return r.highlight }

// Highlighted returns the selectable row under the highlight.
func (r *Resolver) Highlighted() (Item, bool) {
	if !r.open || r.highlight < 0 || r.highlight >= len(r.items) {
		return Item{}, false
	}
	it := r.items[r.highlight]
	if it.Hint {
		return Item{}, false
	}
	return it, true
}

// Update re-reads the token at caret, opening, refreshing or closing the list.
func (r *Resolver) Update(text string, caret int) {
	start, query, ok := TokenAt(text, caret)
	if !ok {
		if r.open {
			r.Close()
		}
		return
	}
	if r.open && start == r.start && query == r.query {
		return
	}
	r.open = true
	r.start = start
	r.query = query
	r.highlight = 0
	r.debounce.Call(func() { r.search(query) })
}

// Move shifts the highlight by delta rows, wrapping around.
func (r *Resolver) Move(delta int) {
	if !r.open || len(r.items) == 0 {
		return
	}
	n := len(r.items)
	r.highlight = ((r.highlight+delta)%n + n) % n
	r.notify()
}

// Close hides the list. Pending and in-flight searches are abandoned.
func (r *Resolver) Close() {
	r.open = false
	r.items = nil
	r.highlight = 0
	r.query = ""
	r.debounce.Stop()
	r.gen++
	for gen, cancel := range r.inflight {
		cancel()
		delete(r.inflight, gen)
	}
	r.notify()
}

func (r *Resolver) search(query string) {
	r.gen++
	gen := r.gen
	if r.dropStale {
		for old, cancel := range r.inflight {
			cancel()
			delete(r.inflight, old)
		}
	}

	if query == "" {
		r.items = []Item{HintItem()}
		r.highlight = 0
		r.notify()
		return
	}
	if r.searcher == nil {
		r.items = nil
		r.notify()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.inflight[gen] = cancel
	opts := r.opts
	log.Debug(log.CatMention, "searching members", "query", query, "gen", gen)

	r.sched.Go(func() {
		ctx, span := tracing.Start(ctx, r.tracer, tracing.SpanMentionQuery,
			attribute.String(tracing.AttrMentionQuery, query))
		found, err := r.searcher.Search(ctx, query, opts)
		span.SetAttributes(attribute.Int(tracing.AttrMentionResults, len(found)))
		tracing.End(span, err)
		r.sched.Post(func() { r.deliver(gen, query, found, err) })
	})
}

func (r *Resolver) deliver(gen uint64, query string, found []Candidate, err error) {
	cancel, live := r.inflight[gen]
	if live {
		cancel()
		delete(r.inflight, gen)
	}
	if !r.open {
		return
	}
	if r.dropStale && (gen != r.gen || !live) {
		log.Debug(log.CatMention, "dropping stale results", "query", query, "gen", gen, "current", r.gen)
		return
	}
	if err != nil {
		log.ErrorErr(log.CatMention, "member search failed", err, "query", query)
		r.items = nil
		r.notify()
		return
	}

	now := r.now()
	items := make([]Item, 0, len(found))
	for _, c := range found {
		items = append(items, NewItem(c, now))
	}
	r.items = items
	r.highlight = 0
	r.notify()
}

func (r *Resolver) notify() {
	if r.onUpdate != nil {
		r.onUpdate()
	}
}
