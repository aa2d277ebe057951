package integration

import (
	"sync"
	"testing"
	"time"

	"github.com/nvanlo/wingtips"
)

// SpanRecorder wraps a SpanCollector with verification helpers for
// component tests. Collection is synchronous so assertions never race the
// intake goroutine.
//
//nolint:govet // Field alignment optimized for test helper readability
type SpanRecorder struct {
	recorded []*wingtips.Span
	*wingtips.SpanCollector
	t  *testing.T
	mu sync.Mutex
}

// NewSpanRecorder creates a recorder and registers it with the tracer.
func NewSpanRecorder(t *testing.T, tracer *wingtips.Tracer) *SpanRecorder {
	t.Helper()
	collector := wingtips.NewSpanCollector(1000)
	collector.SetSyncMode(true)
	tracer.Notifier().AddListener(collector)
	recorder := &SpanRecorder{
		SpanCollector: collector,
		t:             t,
	}
	t.Cleanup(collector.Close)
	return recorder
}

// All returns every span recorded so far, in completion order.
func (r *SpanRecorder) All() []*wingtips.Span {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recorded = append(r.recorded, r.Export()...)
	all := make([]*wingtips.Span, len(r.recorded))
	copy(all, r.recorded)
	return all
}

// WaitForSpans polls until at least expected spans have completed, failing
// the test on timeout.
func (r *SpanRecorder) WaitForSpans(expected int, timeout time.Duration) []*wingtips.Span {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if all := r.All(); len(all) >= expected {
			return all
		}
		time.Sleep(5 * time.Millisecond)
	}
	all := r.All()
	r.t.Errorf("Timeout waiting for spans: expected %d, got %d", expected, len(all))
	return all
}

// ByName returns the first recorded span with the given name, or nil.
func (r *SpanRecorder) ByName(name string) *wingtips.Span {
	for _, span := range r.All() {
		if span.Name() == name {
			return span
		}
	}
	return nil
}

// AssertSpanNamed fails the test when no recorded span has the given name.
func (r *SpanRecorder) AssertSpanNamed(name string) *wingtips.Span {
	r.t.Helper()
	span := r.ByName(name)
	if span == nil {
		r.t.Errorf("Span named %q not found", name)
	}
	return span
}

// AssertSameTrace fails the test unless every recorded span shares one
// trace id.
func (r *SpanRecorder) AssertSameTrace() string {
	r.t.Helper()
	all := r.All()
	if len(all) == 0 {
		r.t.Error("No spans recorded")
		return ""
	}
	traceID := all[0].TraceID()
	for _, span := range all {
		if span.TraceID() != traceID {
			r.t.Errorf("Span %q is in trace %s, expected %s", span.Name(), span.TraceID(), traceID)
		}
	}
	return traceID
}

// AssertParentChild fails the test unless the named child completes inside
// the named parent's trace with the parent's span id as its parent.
func (r *SpanRecorder) AssertParentChild(parentName, childName string) {
	r.t.Helper()
	parent := r.AssertSpanNamed(parentName)
	child := r.AssertSpanNamed(childName)
	if parent == nil || child == nil {
		return
	}
	if child.ParentSpanID() != parent.SpanID() {
		r.t.Errorf("Expected %q to be a child of %q, got parent span id %q (want %q)",
			childName, parentName, child.ParentSpanID(), parent.SpanID())
	}
	if child.TraceID() != parent.TraceID() {
		r.t.Errorf("Expected %q and %q to share a trace", childName, parentName)
	}
}
