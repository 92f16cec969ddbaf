package editor

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/zjrosen/draftpad/internal/delta"
	"github.com/zjrosen/draftpad/internal/log"
	"github.com/zjrosen/draftpad/internal/pubsub"
	"github.com/zjrosen/draftpad/internal/storage"
	"github.com/zjrosen/draftpad/internal/tracing"
)

// flush writes the document to the draft key when edits are pending. A
// failed write keeps the buffer so the next tick retries.
func (e *Editor) flush() {
	if e.closed || e.buffer.Empty() || !e.eng.Enabled() {
		return
	}
	if err := e.SaveDraft(context.Background()); err != nil {
		log.ErrorErr(log.CatDraft, "failed to save draft", err, "key", e.DraftKey())
	}
}

// SaveDraft writes the full contents to the draft key now.
func (e *Editor) SaveDraft(ctx context.Context) (err error) {
	key := e.DraftKey()
	value := e.eng.Contents().String()

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	ctx, span := tracing.Start(ctx, e.tracer, tracing.SpanDraftSave,
		attribute.String(tracing.AttrDraftKey, key),
		attribute.Int(tracing.AttrDraftBytes, len(value)))
	defer func() { tracing.End(span, err) }()

	if err = e.store.Set(ctx, key, value); err != nil {
		return err
	}
	e.buffer = delta.Delta{}
	log.Debug(log.CatDraft, "draft saved", "key", key, "bytes", len(value))
	e.events.Publish(pubsub.DraftSavedEvent, Activity{Mode: e.mode, Keys: []string{key}})
	return nil
}

// loadDraft reads the stored draft. A read error is logged and treated as
// no draft.
func (e *Editor) loadDraft(ctx context.Context) (string, bool) {
	key := e.DraftKey()
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	ctx, span := tracing.Start(ctx, e.tracer, tracing.SpanDraftLoad,
		attribute.String(tracing.AttrDraftKey, key))

	value, found, err := e.store.Get(ctx, key)
	span.SetAttributes(attribute.Int(tracing.AttrDraftBytes, len(value)))
	tracing.End(span, err)
	if err != nil {
		log.ErrorErr(log.CatDraft, "failed to load draft", err, "key", key)
		return "", false
	}
	if found {
		log.Debug(log.CatDraft, "draft restored", "key", key, "bytes", len(value))
	}
	return value, found
}

// ClearDraft removes every stored key for this editor's namespace. The
// new-thread and new-link composers also drop their topic and post-type
// selections.
func (e *Editor) ClearDraft(ctx context.Context) (err error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	ctx, span := tracing.Start(ctx, e.tracer, tracing.SpanDraftClear,
		attribute.String(tracing.AttrDraftKey, e.DraftKey()))
	defer func() { tracing.End(span, err) }()

	removed, err := storage.RemoveMatching(ctx, e.store, ClearMatcher(e.namespace))
	if err != nil {
		log.ErrorErr(log.CatDraft, "failed to clear draft", err, "namespace", e.namespace)
		return err
	}
	e.buffer = delta.Delta{}
	log.Info(log.CatDraft, "draft cleared", "namespace", e.namespace, "keys", len(removed))
	e.events.Publish(pubsub.DraftClearedEvent, Activity{Mode: e.mode, Keys: removed})
	return nil
}

// ClearMatcher matches the keys ClearDraft removes for namespace.
func ClearMatcher(namespace string) func(string) bool {
	if strings.Contains(namespace, "new-thread") || strings.Contains(namespace, "new-link") {
		return storage.Contains(namespace, "active-topic", "post-type")
	}
	return storage.Contains(namespace)
}
