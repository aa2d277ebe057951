package wingtips

import (
	"encoding/json"
	"sync"
	"time"
)

// SpanPurpose describes the role a span plays in a trace.
type SpanPurpose string

const (
	// PurposeServer marks a span that covers handling an inbound request.
	PurposeServer SpanPurpose = "SERVER"
	// PurposeClient marks a span that covers an outbound downstream call.
	PurposeClient SpanPurpose = "CLIENT"
	// PurposeLocalOnly marks a span for in-process work with no remote side.
	PurposeLocalOnly SpanPurpose = "LOCAL_ONLY"
	// PurposeUnknown is the fallback when callers do not state a purpose.
	PurposeUnknown SpanPurpose = "UNKNOWN"
)

// Span represents a single timed unit of work in a distributed trace.
//
// Identity (trace id, span id, parent span id), purpose, sampleable flag, and
// start time are fixed at construction. The name and tags stay mutable until
// the span completes; writes after completion are silent no-ops. Mutable
// state is mutex-guarded, so a span handed to another goroutine (async
// continuation, lifecycle listener) is safe to read while at most one
// goroutine writes.
type Span struct {
	traceID      string
	spanID       string
	parentSpanID string
	purpose      SpanPurpose
	sampleable   bool
	startTime    time.Time

	// tracer and stack are nil for detached spans built with SpanBuilder.
	tracer *Tracer
	stack  *SpanStack

	mu        sync.Mutex
	name      string
	tags      map[string]string
	completed bool
	endTime   time.Time
	duration  time.Duration
}

// TraceID returns the id of the trace this span belongs to.
func (s *Span) TraceID() string { return s.traceID }

// SpanID returns this span's id.
func (s *Span) SpanID() string { return s.spanID }

// ParentSpanID returns the parent span's id, empty for a root span.
func (s *Span) ParentSpanID() string { return s.parentSpanID }

// Purpose returns the span's purpose.
func (s *Span) Purpose() SpanPurpose { return s.purpose }

// Sampleable reports whether this span's trace should be kept by exporters.
func (s *Span) Sampleable() bool { return s.sampleable }

// StartTime returns when the span started. The returned time carries a
// monotonic clock reading, so durations derived from it are skew-safe.
func (s *Span) StartTime() time.Time { return s.startTime }

// Name returns the span's current name.
func (s *Span) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// SetName renames the span, typically once route template information
// becomes available. No-op after completion.
func (s *Span) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed {
		return
	}
	s.name = name
}

// SetTag records a key-value pair on the span. Last write wins.
// No-op after completion.
func (s *Span) SetTag(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed {
		return
	}
	if s.tags == nil {
		s.tags = make(map[string]string)
	}
	s.tags[key] = value
}

// Tag returns the tag value for key, empty when unset.
func (s *Span) Tag(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tags[key]
}

// Tags returns a copy of the span's tags, nil when there are none.
func (s *Span) Tags() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tags) == 0 {
		return nil
	}
	tags := make(map[string]string, len(s.tags))
	for k, v := range s.tags {
		tags[k] = v
	}
	return tags
}

// Completed reports whether the span has been closed.
func (s *Span) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

// Duration returns the span's recorded duration, zero until completion.
func (s *Span) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

// EndTime returns when the span completed, the zero time until completion.
func (s *Span) EndTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endTime
}

// Close completes the span: it pops the span from its call stack, records
// its duration, and fires the SpanCompleted notification. Safe to call
// multiple times; only the first call has any effect. Detached spans built
// with SpanBuilder complete locally without stack or notification activity.
func (s *Span) Close() {
	if s.tracer != nil {
		s.tracer.CompleteSpan(s)
		return
	}
	s.finalizeDetached(time.Now())
}

// finalizeDetached completes a builder-made span without tracer involvement.
func (s *Span) finalizeDetached(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed {
		return
	}
	s.endTime = now
	s.duration = now.Sub(s.startTime)
	s.completed = true
}

// spanJSON is the serialized shape of a span.
//
//nolint:govet // Field alignment follows JSON serialization order
type spanJSON struct {
	Tags       map[string]string `json:"tags,omitempty"`
	StartTime  time.Time         `json:"start_time"`
	EndTime    time.Time         `json:"end_time,omitempty"`
	Duration   time.Duration     `json:"duration"`
	TraceID    string            `json:"trace_id"`
	SpanID     string            `json:"span_id"`
	ParentID   string            `json:"parent_id,omitempty"`
	Name       string            `json:"name"`
	Purpose    SpanPurpose       `json:"purpose"`
	Sampleable bool              `json:"sampleable"`
}

// MarshalJSON serializes a consistent snapshot of the span.
func (s *Span) MarshalJSON() ([]byte, error) {
	s.mu.Lock()
	out := spanJSON{
		StartTime:  s.startTime,
		EndTime:    s.endTime,
		Duration:   s.duration,
		TraceID:    s.traceID,
		SpanID:     s.spanID,
		ParentID:   s.parentSpanID,
		Name:       s.name,
		Purpose:    s.purpose,
		Sampleable: s.sampleable,
	}
	if len(s.tags) > 0 {
		out.Tags = make(map[string]string, len(s.tags))
		for k, v := range s.tags {
			out.Tags[k] = v
		}
	}
	s.mu.Unlock()
	return json.Marshal(out)
}

// SpanBuilder assembles spans outside a tracer, primarily to represent
// upstream callers and to fabricate spans in tests. Built spans are
// detached: they belong to no span stack and fire no notifications.
type SpanBuilder struct {
	span *Span
}

// NewSpanBuilder starts a builder for a detached span.
func NewSpanBuilder(name string, purpose SpanPurpose) *SpanBuilder {
	if purpose == "" {
		purpose = PurposeUnknown
	}
	return &SpanBuilder{span: &Span{
		name:       name,
		purpose:    purpose,
		sampleable: true,
	}}
}

// WithTraceID sets the trace id. Unset ids are generated at Build.
func (b *SpanBuilder) WithTraceID(id string) *SpanBuilder {
	b.span.traceID = id
	return b
}

// WithSpanID sets the span id. Unset ids are generated at Build.
func (b *SpanBuilder) WithSpanID(id string) *SpanBuilder {
	b.span.spanID = id
	return b
}

// WithParentSpanID sets the parent span id.
func (b *SpanBuilder) WithParentSpanID(id string) *SpanBuilder {
	b.span.parentSpanID = id
	return b
}

// WithSampleable sets the sampleable flag, true by default.
func (b *SpanBuilder) WithSampleable(sampleable bool) *SpanBuilder {
	b.span.sampleable = sampleable
	return b
}

// WithStartTime sets the start time. Unset start times default to now.
func (b *SpanBuilder) WithStartTime(t time.Time) *SpanBuilder {
	b.span.startTime = t
	return b
}

// WithTag records a tag on the span being built.
func (b *SpanBuilder) WithTag(key, value string) *SpanBuilder {
	if b.span.tags == nil {
		b.span.tags = make(map[string]string)
	}
	b.span.tags[key] = value
	return b
}

// Build finalizes the builder, generating any ids left unset.
func (b *SpanBuilder) Build() *Span {
	span := b.span
	b.span = nil
	if span.traceID == "" {
		span.traceID = NewTraceID()
	}
	if span.spanID == "" {
		span.spanID = NewSpanID()
	}
	if span.startTime.IsZero() {
		span.startTime = time.Now()
	}
	return span
}
