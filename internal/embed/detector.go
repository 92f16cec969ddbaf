package embed

import (
	"context"
	"time"

	"github.com/zjrosen/draftpad/internal/delta"
	"github.com/zjrosen/draftpad/internal/engine"
	"github.com/zjrosen/draftpad/internal/eventloop"
	"github.com/zjrosen/draftpad/internal/log"
)

const (
	DefaultPostProbeDelay  = 250 * time.Millisecond
	DefaultPostRetryDelay  = 500 * time.Millisecond
	DefaultVideoProbeDelay = time.Millisecond
)

// Renderer is the view that displays embeds.
type Renderer interface {
	// RenderPost asks the view to render the post with id.
	RenderPost(id string)
	// PostRendered reports whether post id is rendered and visible.
	PostRendered(id string) bool
	// VideoFramePresent reports whether a player for url is on screen.
	VideoFramePresent(url string) bool
}

// Detector inserts embeds for link lines and cleans up the link text once
// the embed shows. It must only be used from the event loop.
type Detector struct {
	sched     eventloop.Scheduler
	scripts   *ScriptCache
	renderer  Renderer
	scriptURL string

	postDelay  time.Duration
	retryDelay time.Duration
	videoDelay time.Duration
	live       func() bool

	pending map[*pendingEmbed]struct{}
}

// pendingEmbed follows the link line through later edits until its embed is
// confirmed or the probes give up.
type pendingEmbed struct {
	eng         engine.Engine
	anchor      int
	text        string
	unsubscribe func()
	cancel      func()
}

// Option configures a Detector.
type Option func(*Detector)

func WithScriptURL(url string) Option {
	return func(d *Detector) { d.scriptURL = url }
}

// WithProbeDelays overrides the post probe, post retry and video probe delays.
func WithProbeDelays(post, retry, video time.Duration) Option {
	return func(d *Detector) {
		d.postDelay = post
		d.retryDelay = retry
		d.videoDelay = video
	}
}

// WithLiveCheck sets the guard every continuation consults before mutating.
func WithLiveCheck(live func() bool) Option {
	return func(d *Detector) { d.live = live }
}

// NewDetector creates a detector. scripts defaults to DefaultScriptCache and
// a nil renderer never confirms an embed.
func NewDetector(sched eventloop.Scheduler, scripts *ScriptCache, renderer Renderer, opts ...Option) *Detector {
	d := &Detector{
		sched:      sched,
		scripts:    scripts,
		renderer:   renderer,
		scriptURL:  DefaultScriptURL,
		postDelay:  DefaultPostProbeDelay,
		retryDelay: DefaultPostRetryDelay,
		videoDelay: DefaultVideoProbeDelay,
		live:       func() bool { return true },
		pending:    make(map[*pendingEmbed]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.scripts == nil {
		d.scripts = DefaultScriptCache()
	}
	return d
}

// HandleLine checks the line starting at lineStart for an embeddable link
// and, if found, inserts the embed and a newline at caret. It reports
// whether the line was consumed.
func (d *Detector) HandleLine(eng engine.Engine, lineStart int, line string, caret int) bool {
	m, ok := Detect(line)
	if !ok {
		return false
	}

	change := delta.Delta{}.Retain(caret, nil).
		Insert("\n", nil).
		InsertEmbed(delta.Embed{string(m.Kind): m.Value()}, nil).
		Insert("\n", nil)
	eng.UpdateContents(change, engine.SourceUser)
	eng.SetSelection(engine.Range{Index: caret + 3}, engine.SourceSilent)
	log.Debug(log.CatEmbed, "inserted embed", "kind", m.Kind, "value", m.Value())

	p := d.track(eng, lineStart, line)
	switch m.Kind {
	case KindPost:
		d.loadScript(m.ID)
		p.cancel = d.sched.After(d.postDelay, func() {
			if d.confirmPost(p, m.ID) {
				return
			}
			p.cancel = d.sched.After(d.retryDelay, func() {
				if !d.confirmPost(p, m.ID) {
					log.Debug(log.CatEmbed, "post never rendered, keeping link", "id", m.ID)
					d.release(p)
				}
			})
		})
	case KindVideo:
		p.cancel = d.sched.After(d.videoDelay, func() {
			if d.live() && d.renderer != nil && d.renderer.VideoFramePresent(m.URL) {
				d.cleanup(p)
			}
			d.release(p)
		})
	}
	return true
}

// Close abandons every pending confirmation.
func (d *Detector) Close() {
	for p := range d.pending {
		d.release(p)
	}
}

func (d *Detector) track(eng engine.Engine, lineStart int, line string) *pendingEmbed {
	p := &pendingEmbed{eng: eng, anchor: lineStart, text: line}
	p.unsubscribe = eng.OnTextChange(func(change, _ delta.Delta, _ engine.Source) {
		p.anchor = change.TransformPosition(p.anchor, false)
	})
	d.pending[p] = struct{}{}
	return p
}

func (d *Detector) release(p *pendingEmbed) {
	if _, ok := d.pending[p]; !ok {
		return
	}
	delete(d.pending, p)
	if p.cancel != nil {
		p.cancel()
	}
	p.unsubscribe()
}

func (d *Detector) loadScript(id string) {
	url := d.scriptURL
	d.sched.Go(func() {
		err := d.scripts.LoadOnce(context.Background(), url)
		d.sched.Post(func() {
			if err != nil || !d.live() || d.renderer == nil {
				return
			}
			d.renderer.RenderPost(id)
		})
	})
}

// confirmPost removes the link text when the post shows and reports whether
// the embed no longer needs probing.
func (d *Detector) confirmPost(p *pendingEmbed, id string) bool {
	if _, ok := d.pending[p]; !ok {
		return true
	}
	if !d.live() {
		d.release(p)
		return true
	}
	if d.renderer == nil || !d.renderer.PostRendered(id) {
		return false
	}
	d.cleanup(p)
	d.release(p)
	return true
}

// cleanup deletes the link line if it still reads as it did when the embed
// was inserted.
func (d *Detector) cleanup(p *pendingEmbed) {
	runes := []rune(p.eng.Text())
	want := []rune(p.text + "\n")
	end := p.anchor + len(want)
	if p.anchor < 0 || end > len(runes) || string(runes[p.anchor:end]) != string(want) {
		log.Debug(log.CatEmbed, "link text changed, leaving it", "text", p.text)
		return
	}
	p.eng.DeleteText(p.anchor, len(want), engine.SourceUser)
	log.Debug(log.CatEmbed, "removed embedded link text", "text", p.text)
}
