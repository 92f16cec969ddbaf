package tracing

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zjrosen/draftpad/internal/config"
)

func readRecords(t *testing.T, path string) []SpanRecord {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	var out []SpanRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r SpanRecord
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		out = append(out, r)
	}
	return out
}

func TestFileExporter_WritesOneLinePerSpan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "traces.jsonl")
	exp, err := NewFileExporter(path)
	require.NoError(t, err)

	start := time.Now()
	stub := tracetest.SpanStub{
		Name:       SpanDraftSave,
		StartTime:  start,
		EndTime:    start.Add(20 * time.Millisecond),
		Status:     sdktrace.Status{Code: codes.Error, Description: "disk full"},
		Attributes: []attribute.KeyValue{attribute.String(AttrDraftKey, "c1-new-thread-storedText")},
		Events:     []sdktrace.Event{{Name: "retry", Time: start.Add(5 * time.Millisecond)}},
	}
	require.NoError(t, exp.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{stub.Snapshot(), stub.Snapshot()}))
	require.NoError(t, exp.Shutdown(context.Background()))

	recs := readRecords(t, path)
	require.Len(t, recs, 2)
	require.Equal(t, SpanDraftSave, recs[0].Name)
	require.Equal(t, "ERROR", recs[0].Status)
	require.Equal(t, "disk full", recs[0].Message)
	require.InDelta(t, 20.0, recs[0].DurationMs, 0.001)
	require.Equal(t, "c1-new-thread-storedText", recs[0].Attributes[AttrDraftKey])
	require.Len(t, recs[0].Events, 1)
	require.InDelta(t, 5.0, recs[0].Events[0].Offset, 0.001)
}

func TestFileExporter_AfterShutdown(t *testing.T) {
	exp, err := NewFileExporter(filepath.Join(t.TempDir(), "t.jsonl"))
	require.NoError(t, err)
	require.NoError(t, exp.Shutdown(context.Background()))
	require.NoError(t, exp.Shutdown(context.Background()), "shutdown is idempotent")

	stub := tracetest.SpanStub{Name: "late"}
	require.Error(t, exp.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{stub.Snapshot()}))
}

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(config.TracingConfig{})
	require.NoError(t, err)
	require.False(t, p.Enabled())

	_, span := Start(context.Background(), p.Tracer(), SpanMentionQuery)
	End(span, nil)
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_FileExporter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.jsonl")
	p, err := NewProvider(config.TracingConfig{Enabled: true, Exporter: "file", FilePath: path, SampleRate: 1})
	require.NoError(t, err)
	require.True(t, p.Enabled())

	ctx, parent := Start(context.Background(), p.Tracer(), SpanUploadSign, attribute.String(AttrUploadName, "a.png"))
	_, child := Start(ctx, p.Tracer(), SpanUploadPut)
	End(child, errors.New("boom"))
	End(parent, nil)
	require.NoError(t, p.Shutdown(context.Background()))

	recs := readRecords(t, path)
	require.Len(t, recs, 2)
	byName := map[string]SpanRecord{}
	for _, r := range recs {
		byName[r.Name] = r
	}
	require.Equal(t, "ERROR", byName[SpanUploadPut].Status)
	require.Equal(t, "boom", byName[SpanUploadPut].Attributes[AttrErrorMessage])
	require.Equal(t, byName[SpanUploadSign].SpanID, byName[SpanUploadPut].ParentID)
	require.Equal(t, "OK", byName[SpanUploadSign].Status)
}

func TestNewProvider_Errors(t *testing.T) {
	_, err := NewProvider(config.TracingConfig{Enabled: true, Exporter: "file"})
	require.ErrorContains(t, err, "file_path")

	_, err = NewProvider(config.TracingConfig{Enabled: true, Exporter: "zipkin"})
	require.ErrorContains(t, err, "unsupported exporter")
}

func TestStart_NilTracer(t *testing.T) {
	ctx, span := Start(context.Background(), nil, SpanDraftLoad)
	require.NotNil(t, ctx)
	require.False(t, span.IsRecording())
	End(span, errors.New("ignored"))
}
