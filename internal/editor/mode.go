package editor

import (
	"context"
	"errors"
	"fmt"

	"github.com/zjrosen/draftpad/internal/delta"
	"github.com/zjrosen/draftpad/internal/engine"
	"github.com/zjrosen/draftpad/internal/log"
	"github.com/zjrosen/draftpad/internal/pubsub"
	"github.com/zjrosen/draftpad/internal/storage"
)

// Mode selects which view of the document is authoritative.
type Mode string

const (
	ModeRichText Mode = "richText"
	ModeMarkdown Mode = "markdown"
)

const (
	confirmStripPrompt = "All formatting and images will be lost. Continue?"
	confirmStripYes    = "Yes"
	confirmStripNo     = "No"
)

// ErrUnknownMode is returned for a mode name that is neither rich text nor
// markdown.
var ErrUnknownMode = errors.New("unknown editor mode")

// ParseMode accepts the stored mode names.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeRichText, ModeMarkdown:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Other returns the mode SwitchMode toggles to.
func (m Mode) Other() Mode {
	if m == ModeMarkdown {
		return ModeRichText
	}
	return ModeMarkdown
}

// SwitchMode moves the editor to target. Leaving rich text for markdown
// strips formatting and embeds, and asks for confirmation first when that
// would lose anything. A declined switch leaves document and mode as they
// were.
func (e *Editor) SwitchMode(ctx context.Context, target Mode) {
	if !e.live() || e.switching || target == e.mode {
		return
	}
	if target == ModeRichText {
		e.afterSwitch(ctx, target)
		return
	}

	if lossless(e.eng.Contents()) {
		e.afterSwitch(ctx, target)
		return
	}

	e.switching = true
	log.Debug(log.CatMode, "confirming lossy switch", "from", e.mode, "to", target)
	e.confirm(ctx, confirmStripPrompt, func(ok bool) {
		e.switching = false
		if !ok {
			log.Debug(log.CatMode, "switch declined", "mode", e.mode)
			return
		}
		e.eng.RemoveFormat(0, e.eng.Length()-1, engine.SourceAPI)
		e.afterSwitch(ctx, target)
	})
}

// lossless reports whether stripping formatting leaves doc unchanged. The
// trial runs on a scratch engine so history and listeners never see it.
func lossless(doc delta.Delta) bool {
	scratch := engine.NewMemory()
	scratch.SetContents(doc, engine.SourceSilent)
	scratch.RemoveFormat(0, scratch.Length()-1, engine.SourceSilent)
	stripped := scratch.Contents()
	return len(doc.Ops) == len(stripped.Ops) && doc.Equal(stripped)
}

func (e *Editor) afterSwitch(ctx context.Context, target Mode) {
	from := e.mode
	e.mode = target
	e.lastWrap = nil
	e.eng.SetSelection(engine.Range{Index: e.eng.Length() - 1}, engine.SourceSilent)

	key := storage.ModeKey(e.namespace)
	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := e.store.Set(sctx, key, string(target)); err != nil {
		log.ErrorErr(log.CatMode, "failed to record mode", err, "key", key)
	}
	if e.prefs != nil {
		if err := e.prefs.SavePreferredMode(target); err != nil {
			log.ErrorErr(log.CatMode, "failed to save preferred mode", err, "mode", target)
		}
	}

	log.Info(log.CatMode, "mode switched", "from", from, "to", target)
	e.events.Publish(pubsub.ModeChangedEvent, Activity{Mode: target, Keys: []string{key}})
}

// confirm asks the Confirmer off the loop and continues on it. No Confirmer,
// an error or a closed editor all count as declined.
func (e *Editor) confirm(ctx context.Context, prompt string, then func(ok bool)) {
	if e.confirmer == nil {
		then(false)
		return
	}
	e.sched.Go(func() {
		ok, err := e.confirmer.Confirm(ctx, prompt, confirmStripYes, confirmStripNo)
		e.sched.Post(func() {
			if err != nil {
				log.ErrorErr(log.CatMode, "confirmation failed", err)
				ok = false
			}
			if e.closed {
				return
			}
			then(ok)
		})
	})
}

// restore loads the starting document and decides the starting mode.
func (e *Editor) restore(ctx context.Context, opts Options) Mode {
	switch {
	case opts.InitialContents != nil:
		e.eng.SetContents(*opts.InitialContents, engine.SourceSilent)
		return ModeRichText
	case opts.InitialText != "":
		e.eng.SetText(opts.InitialText, engine.SourceSilent)
		return ModeMarkdown
	}

	recorded := e.recordedMode(ctx)
	if stored, found := e.loadDraft(ctx); found {
		doc, perr := delta.Parse(stored)
		if perr != nil {
			log.Debug(log.CatDraft, "draft is plain text", "key", e.DraftKey())
			e.eng.SetText(stored, engine.SourceSilent)
			return ModeMarkdown
		}
		e.eng.SetContents(doc, engine.SourceSilent)
		if recorded != "" {
			return recorded
		}
		return ModeRichText
	}

	if recorded != "" {
		return recorded
	}
	if _, err := ParseMode(string(opts.PreferredMode)); err == nil {
		return opts.PreferredMode
	}
	return ModeRichText
}

func (e *Editor) recordedMode(ctx context.Context) Mode {
	key := storage.ModeKey(e.namespace)
	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	v, ok, err := e.store.Get(sctx, key)
	if err != nil {
		log.ErrorErr(log.CatMode, "failed to read recorded mode", err, "key", key)
		return ""
	}
	if !ok {
		return ""
	}
	m, err := ParseMode(v)
	if err != nil {
		log.Warn(log.CatMode, "ignoring recorded mode", "key", key, "value", v)
		return ""
	}
	return m
}
