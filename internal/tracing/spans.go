package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
const (
	AttrDraftKey       = "draft.key"
	AttrDraftBytes     = "draft.bytes"
	AttrStorageBackend = "storage.backend"
	AttrMentionQuery   = "mention.query"
	AttrMentionResults = "mention.results"
	AttrUploadName     = "upload.file_name"
	AttrUploadType     = "upload.content_type"
	AttrEmbedKind      = "embed.kind"
	AttrEmbedURL       = "embed.url"
	AttrErrorMessage   = "error.message"
)

// Span names.
const (
	SpanDraftLoad    = "draft.load"
	SpanDraftSave    = "draft.save"
	SpanDraftClear   = "draft.clear"
	SpanMentionQuery = "mention.search"
	SpanUploadSign   = "upload.sign"
	SpanUploadPut    = "upload.put"
	SpanEmbedScript  = "embed.script"
)

// Start opens a span on tracer, tolerating a nil tracer so components can be
// built without tracing.
func Start(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(context.Background())
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// End records err on span (if any) and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
