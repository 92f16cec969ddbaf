package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/zjrosen/draftpad/internal/mention"
	"github.com/zjrosen/draftpad/internal/upload"
)

// Confirmer answers every confirmation with Answer and records the prompts.
type Confirmer struct {
	Answer  bool
	Err     error
	mu      sync.Mutex
	Prompts []string
}

func (c *Confirmer) Confirm(_ context.Context, prompt, _, _ string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Prompts = append(c.Prompts, prompt)
	return c.Answer, c.Err
}

// Reply is a scripted Prompter answer. Cancel makes the prompt cancelled.
type Reply struct {
	Value  string
	Cancel bool
}

// Prompter answers prompts from Replies in order. Running out cancels.
type Prompter struct {
	Replies  []Reply
	mu       sync.Mutex
	Messages []string
	Defaults []string
}

func (p *Prompter) Prompt(_ context.Context, message, def string) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Messages = append(p.Messages, message)
	p.Defaults = append(p.Defaults, def)
	if len(p.Replies) == 0 {
		return "", false, nil
	}
	r := p.Replies[0]
	p.Replies = p.Replies[1:]
	return r.Value, !r.Cancel, nil
}

// Notifier records errors and loading transitions.
type Notifier struct {
	mu       sync.Mutex
	Errors   []string
	Progress []bool
}

func (n *Notifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Errors = append(n.Errors, msg)
}

func (n *Notifier) Loading(on bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Progress = append(n.Progress, on)
}

// Searcher returns Results for every query and records the queries.
type Searcher struct {
	Results []mention.Candidate
	Err     error
	mu      sync.Mutex
	Queries []string
}

func (s *Searcher) Search(_ context.Context, query string, _ mention.Options) ([]mention.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Queries = append(s.Queries, query)
	return s.Results, s.Err
}

// ErrUploadFailed is what a failing Uploader returns.
var ErrUploadFailed = errors.New("upload failed")

// Uploader "uploads" to URL, or fails when Fail is set.
type Uploader struct {
	URL   string
	Fail  bool
	mu    sync.Mutex
	Files []upload.File
}

func (u *Uploader) Upload(_ context.Context, f upload.File) (upload.Image, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.Files = append(u.Files, f)
	if u.Fail {
		return upload.Image{}, ErrUploadFailed
	}
	return upload.Image{URL: u.URL}, nil
}

// Renderer reports posts and frames as present according to its fields.
type Renderer struct {
	// RenderedAfter is how many PostRendered probes fail before succeeding;
	// negative never succeeds.
	RenderedAfter int
	Frames        bool
	Rendered      []string
	probes        int
}

func (r *Renderer) RenderPost(id string) { r.Rendered = append(r.Rendered, id) }

func (r *Renderer) PostRendered(string) bool {
	r.probes++
	return r.RenderedAfter >= 0 && r.probes > r.RenderedAfter
}

func (r *Renderer) VideoFramePresent(string) bool { return r.Frames }

// ScriptLoader counts loads and fails with Err.
type ScriptLoader struct {
	Err   error
	mu    sync.Mutex
	Loads []string
}

func (l *ScriptLoader) Load(_ context.Context, url string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Loads = append(l.Loads, url)
	return l.Err
}
