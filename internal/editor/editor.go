// Package editor is the hybrid document editor: one document authored either
// as rich text (formatted delta) or as markdown, with autosaved drafts,
// @-mentions, link embeds and image uploads layered over an injected engine.
//
// An Editor is not safe for concurrent use. Every method and every callback
// it schedules runs on the Scheduler it was built with.
package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/draftpad/internal/delta"
	"github.com/zjrosen/draftpad/internal/embed"
	"github.com/zjrosen/draftpad/internal/engine"
	"github.com/zjrosen/draftpad/internal/eventloop"
	"github.com/zjrosen/draftpad/internal/log"
	"github.com/zjrosen/draftpad/internal/mention"
	"github.com/zjrosen/draftpad/internal/pubsub"
	"github.com/zjrosen/draftpad/internal/storage"
	"github.com/zjrosen/draftpad/internal/upload"
)

// ErrBlankDocument is returned by Validate when there is nothing to submit.
var ErrBlankDocument = errors.New("document is blank")

const (
	DefaultFlushInterval = 250 * time.Millisecond

	// storeTimeout bounds each storage call made from the loop.
	storeTimeout = 2 * time.Second
)

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, prompt, confirmLabel, cancelLabel string) (bool, error)
}

// Prompter asks the user for a line of text. ok is false when cancelled.
type Prompter interface {
	Prompt(ctx context.Context, message, defaultValue string) (value string, ok bool, err error)
}

// Notifier surfaces errors and progress to the user.
type Notifier interface {
	Error(msg string)
	Loading(on bool)
}

// Preferences persists the user's preferred mode across sessions.
type Preferences interface {
	SavePreferredMode(mode Mode) error
}

// PreferencesFunc adapts a function to Preferences.
type PreferencesFunc func(mode Mode) error

func (f PreferencesFunc) SavePreferredMode(mode Mode) error { return f(mode) }

// Uploader stores an image and returns where it can be read from.
type Uploader interface {
	Upload(ctx context.Context, f upload.File) (upload.Image, error)
}

// Activity is the payload of editor events.
type Activity struct {
	Mode Mode     // mode after a ModeChangedEvent
	Keys []string // storage keys written or removed
	URL  string   // uploaded image, set when an UploadEvent succeeds
	Done bool     // UploadEvent: false when started, true when finished
	Err  error
}

// Options configures an Editor. Scheduler and Store are required.
type Options struct {
	Scheduler eventloop.Scheduler
	Store     storage.Store
	// Engine defaults to an empty engine.Memory.
	Engine engine.Engine

	Scope         string
	Namespace     string
	FlushInterval time.Duration

	// InitialText or InitialContents, when set, replace any stored draft.
	// Text starts the editor in markdown, contents in rich text.
	InitialText     string
	InitialContents *delta.Delta
	// PreferredMode is used when nothing else decides the starting mode.
	PreferredMode Mode

	Confirmer   Confirmer
	Prompter    Prompter
	Notifier    Notifier
	Preferences Preferences

	Searcher       mention.Searcher
	MentionOptions []mention.ResolverOption

	Uploader Uploader

	Scripts      *embed.ScriptCache
	Renderer     embed.Renderer
	EmbedOptions []embed.Option

	// OnSubmit, when set, is called on a plain Enter.
	OnSubmit func()
	Tracer   trace.Tracer
}

// Editor owns one document and its selection.
type Editor struct {
	eng       engine.Engine
	sched     eventloop.Scheduler
	store     storage.Store
	scope     string
	namespace string
	tracer    trace.Tracer

	confirmer Confirmer
	prompter  Prompter
	notifier  Notifier
	prefs     Preferences
	uploader  Uploader
	onSubmit  func()

	mentions *mention.Resolver
	embeds   *embed.Detector
	bindings []Binding
	events   *pubsub.Broker[Activity]

	mode      Mode
	switching bool
	buffer    delta.Delta
	altered   bool
	closed    bool

	lastWrap         *wrapState
	headAtStart      bool
	mentionDismissed int

	stopFlush   func()
	unsubscribe func()
}

// New builds an editor, restoring its document and mode, and starts the
// draft autosave timer.
func New(ctx context.Context, opts Options) (*Editor, error) {
	if opts.Scheduler == nil {
		return nil, fmt.Errorf("editor: scheduler is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("editor: store is required")
	}
	if opts.Engine == nil {
		opts.Engine = engine.NewMemory()
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = DefaultFlushInterval
	}

	e := &Editor{
		eng:              opts.Engine,
		sched:            opts.Scheduler,
		store:            opts.Store,
		scope:            opts.Scope,
		namespace:        opts.Namespace,
		tracer:           opts.Tracer,
		confirmer:        opts.Confirmer,
		prompter:         opts.Prompter,
		notifier:         opts.Notifier,
		prefs:            opts.Preferences,
		uploader:         opts.Uploader,
		onSubmit:         opts.OnSubmit,
		events:           pubsub.NewBroker[Activity](),
		mentionDismissed: -1,
	}
	if e.notifier == nil {
		e.notifier = nopNotifier{}
	}

	e.mentions = mention.NewResolver(e.sched, opts.Searcher, opts.MentionOptions...)
	embedOpts := append([]embed.Option{embed.WithLiveCheck(e.live)}, opts.EmbedOptions...)
	e.embeds = embed.NewDetector(e.sched, opts.Scripts, opts.Renderer, embedOpts...)
	e.bindings = e.defaultBindings()

	e.mode = e.restore(ctx, opts)
	e.eng.Cutoff()
	e.eng.SetSelection(engine.Range{Index: e.eng.Length() - 1}, engine.SourceSilent)

	e.unsubscribe = e.eng.OnTextChange(e.onChange)
	e.stopFlush = eventloop.Every(e.sched, opts.FlushInterval, e.flush)

	log.Info(log.CatEditor, "editor ready",
		"scope", e.scope, "namespace", e.namespace, "mode", e.mode, "length", e.eng.Length())
	return e, nil
}

func (e *Editor) onChange(change, _ delta.Delta, source engine.Source) {
	e.buffer = e.buffer.Compose(change)
	if source == engine.SourceUser {
		e.altered = true
	}
	e.lastWrap = e.lastWrap.after(e.eng.Text())
	e.events.Publish(pubsub.ChangedEvent, Activity{Mode: e.mode})
}

// live reports whether async continuations may still touch the document.
func (e *Editor) live() bool {
	return !e.closed && e.eng.Enabled()
}

// Close stops timers and pending work. Later continuations do nothing.
func (e *Editor) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.stopFlush()
	e.unsubscribe()
	e.mentions.Close()
	e.embeds.Close()
	e.events.Close()
	log.Debug(log.CatEditor, "editor closed", "namespace", e.namespace)
}

func (e *Editor) Engine() engine.Engine { return e.eng }

func (e *Editor) Mode() Mode { return e.mode }

func (e *Editor) Mentions() *mention.Resolver { return e.mentions }

// Events publishes mode switches, draft writes, uploads and changes.
func (e *Editor) Events() *pubsub.Broker[Activity] { return e.events }

// DraftKey is the storage key of this editor's draft.
func (e *Editor) DraftKey() string { return storage.DraftKey(e.scope, e.namespace) }

// Altered reports whether the user has changed the document.
func (e *Editor) Altered() bool { return e.altered }

// HasUnsavedChanges reports whether edits are waiting for the next flush.
func (e *Editor) HasUnsavedChanges() bool { return !e.buffer.Empty() }

// IsBlank reports whether the document holds only whitespace.
func (e *Editor) IsBlank() bool {
	return strings.TrimSpace(e.eng.Text()) == ""
}

// Validate returns ErrBlankDocument for a blank document.
func (e *Editor) Validate() error {
	if e.IsBlank() {
		return ErrBlankDocument
	}
	return nil
}

// Document is the submit payload: the text in markdown mode, the JSON of the
// contents in rich text mode.
func (e *Editor) Document() (string, error) {
	if e.mode == ModeMarkdown {
		return strings.TrimSuffix(e.eng.Text(), "\n"), nil
	}
	data, err := json.Marshal(e.eng.Contents())
	if err != nil {
		return "", fmt.Errorf("encoding contents: %w", err)
	}
	return string(data), nil
}

// Preview is the document as a previewer receives it.
func (e *Editor) Preview() string {
	if e.mode == ModeMarkdown {
		return e.eng.Text()
	}
	return e.eng.Contents().String()
}

// PreviewMarkdown renders the document as markdown in either mode.
func (e *Editor) PreviewMarkdown() string {
	if e.mode == ModeMarkdown {
		return e.eng.Text()
	}
	return e.eng.Contents().Markdown()
}

// selection returns the current range, or a caret at the end when the
// engine has no focus.
func (e *Editor) selection() engine.Range {
	sel, ok := e.eng.Selection()
	if !ok {
		return engine.Range{Index: e.eng.Length() - 1}
	}
	return sel
}

// replace swaps [index, index+length) for text as a user edit.
func (e *Editor) replace(index, length int, text string, attrs delta.Attributes) {
	change := delta.Delta{}.Retain(index, nil).Delete(length).Insert(text, attrs)
	e.eng.UpdateContents(change.Chop(), engine.SourceUser)
}

type nopNotifier struct{}

func (nopNotifier) Error(string) {}
func (nopNotifier) Loading(bool) {}
