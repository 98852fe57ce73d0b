package upsert

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/agribenchmark/farmsync/record"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// spanLog hands out spans that report their name and error state on End.
type spanLog struct {
	noop.TracerProvider
	mu     sync.Mutex
	names  []string
	failed []bool
}

func (l *spanLog) Tracer(string, ...trace.TracerOption) trace.Tracer { return &logTracer{log: l} }

type logTracer struct {
	noop.Tracer
	log *spanLog
}

func (t *logTracer) Start(ctx context.Context, name string, _ ...trace.SpanStartOption) (context.Context, trace.Span) {
	s := &logSpan{log: t.log, name: name}
	return trace.ContextWithSpan(ctx, s), s
}

type logSpan struct {
	noop.Span
	log    *spanLog
	name   string
	failed bool
}

func (s *logSpan) RecordError(error, ...trace.EventOption) { s.failed = true }

func (s *logSpan) End(...trace.SpanEndOption) {
	s.log.mu.Lock()
	defer s.log.mu.Unlock()
	s.log.names = append(s.log.names, s.name)
	s.log.failed = append(s.log.failed, s.failed)
}

// spanClient remembers the span active when the probe was issued.
type spanClient struct {
	*fakeClient
	probeSpan trace.Span
}

func (c *spanClient) Exists(ctx context.Context, path string) (bool, error) {
	c.probeSpan = trace.SpanFromContext(ctx)
	return c.fakeClient.Exists(ctx, path)
}

func TestUpsertRunsInsideItsSpan(t *testing.T) {
	log := &spanLog{}
	fc := &spanClient{fakeClient: &fakeClient{}}
	if _, err := New(fc, WithTracerProvider(log)).Upsert(context.Background(), "/landuse", record.Record{"id": "r1"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if len(log.names) != 1 || log.names[0] != "upsert /landuse" || log.failed[0] {
		t.Fatalf("unexpected spans %v failed=%v", log.names, log.failed)
	}
	if s, ok := fc.probeSpan.(*logSpan); !ok || s.name != "upsert /landuse" {
		t.Fatalf("probe ran outside the upsert span: %#v", fc.probeSpan)
	}
}

func TestUpsertSpanRecordsFailure(t *testing.T) {
	log := &spanLog{}
	fc := &fakeClient{writeErr: errors.New("boom")}
	if _, err := New(fc, WithTracerProvider(log)).Upsert(context.Background(), "/landuse", record.Record{"id": "r1"}); err == nil {
		t.Fatal("expected write error")
	}
	if len(log.failed) != 1 || !log.failed[0] {
		t.Fatalf("expected one failed span, got %v", log.failed)
	}
}
