package wingtips

import (
	"context"
	"sync"
)

// bundleKeyType is a private type for context keys to avoid collisions.
type bundleKeyType string

const (
	bundleKey bundleKeyType = "wingtips"
)

// contextBundle holds both tracer and span stack to keep context value
// lookups to a single allocation.
type contextBundle struct {
	tracer *Tracer
	stack  *SpanStack
}

// SpanStack holds the open spans of one logical call stack, top of stack
// being the current span. Spans are pushed when started and popped when
// completed, strictly LIFO.
//
// A stack belongs to one logical call stack at a time. Concurrent fan-out
// work must not start sibling spans on a shared stack; give each goroutine
// its own stack with Tracer.StartSpanInForkedContext.
type SpanStack struct {
	mu    sync.Mutex
	spans []*Span
}

func newSpanStack() *SpanStack {
	return &SpanStack{}
}

// Current returns the innermost open span, nil when the stack is empty.
func (s *SpanStack) Current() *Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.spans) == 0 {
		return nil
	}
	return s.spans[len(s.spans)-1]
}

// Depth returns the number of open spans on the stack.
func (s *SpanStack) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.spans)
}

// Snapshot returns a copy of the open spans, outermost first.
func (s *SpanStack) Snapshot() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.spans) == 0 {
		return nil
	}
	spans := make([]*Span, len(s.spans))
	copy(spans, s.spans)
	return spans
}

func (s *SpanStack) push(span *Span) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spans = append(s.spans, span)
}

// pop removes the top of the stack, which must be the given span. Completing
// spans out of LIFO order silently would corrupt trace topology, so a
// mismatch panics with a *SpanStackViolationError.
func (s *SpanStack) pop(span *Span) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.spans) == 0 {
		panic(&SpanStackViolationError{Op: "pop", SpanID: span.SpanID()})
	}
	top := s.spans[len(s.spans)-1]
	if top != span {
		panic(&SpanStackViolationError{Op: "pop", SpanID: span.SpanID(), CurrentID: top.SpanID()})
	}
	s.spans[len(s.spans)-1] = nil
	s.spans = s.spans[:len(s.spans)-1]
}

// CurrentSpan returns the current span carried by ctx, nil when ctx carries
// no open span.
func CurrentSpan(ctx context.Context) *Span {
	if bundle := bundleFrom(ctx); bundle != nil {
		return bundle.stack.Current()
	}
	return nil
}

// SpanStackFromContext returns the span stack carried by ctx, nil when ctx
// carries no trace context.
func SpanStackFromContext(ctx context.Context) *SpanStack {
	if bundle := bundleFrom(ctx); bundle != nil {
		return bundle.stack
	}
	return nil
}

// TracerFromContext returns the tracer that placed a trace context in ctx,
// nil when ctx carries none.
func TracerFromContext(ctx context.Context) *Tracer {
	if bundle := bundleFrom(ctx); bundle != nil {
		return bundle.tracer
	}
	return nil
}

func bundleFrom(ctx context.Context) *contextBundle {
	if ctx == nil {
		return nil
	}
	bundle, _ := ctx.Value(bundleKey).(*contextBundle)
	return bundle
}
