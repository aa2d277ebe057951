package wingtips

import (
	"context"
	"runtime"
	"sync"

	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
)

// UpstreamSpanInfo describes the caller's span as carried by inbound
// propagation headers. It is produced by Codec.Decode and consumed by
// Tracer.ContinueExistingTrace.
type UpstreamSpanInfo struct {
	TraceID      string
	SpanID       string
	ParentSpanID string
	SpanName     string
	Sampled      bool
}

// Tracer decides between starting a new trace and nesting a subspan, keeps
// the per-call-stack span stack inside context.Context, completes spans with
// monotonic durations, and fires lifecycle notifications.
// Safe for concurrent use by multiple goroutines.
type Tracer struct {
	logger      *zap.Logger
	spanLogger  *zap.Logger
	clock       clockz.Clock
	notifier    *LifecycleNotifier
	sampler     Sampler
	serviceName string
	spanLogging bool

	traceIDFactory IDFactory
	spanIDFactory  IDFactory
	traceIDs       *IDPool
	spanIDs        *IDPool
	idPoolOnce     sync.Once
}

// NewTracer creates a tracer. With no options it uses the real clock, marks
// every new trace sampleable, and logs nothing.
func NewTracer(opts ...Option) *Tracer {
	t := &Tracer{
		logger:         zap.NewNop(),
		clock:          clockz.RealClock,
		sampler:        SampleAll(),
		spanLogging:    true,
		traceIDFactory: NewTraceID,
		spanIDFactory:  NewSpanID,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.notifier == nil {
		t.notifier = NewLifecycleNotifier(t.logger)
	}
	t.spanLogger = t.logger.Named("wingtips.spans")
	return t
}

// Notifier returns the tracer's lifecycle listener registry.
func (t *Tracer) Notifier() *LifecycleNotifier {
	return t.notifier
}

// StartSpanInCurrentContext starts a span on the call stack carried by ctx.
//
// When ctx carries no open span, the new span is a root span beginning a new
// trace, and the tracer's Sampler decides whether the trace is sampleable.
// When ctx carries an open span, the new span is its child: same trace id,
// parent span id set to the current span's id, sampleable flag inherited.
//
// The span is pushed onto the stack and SpanStarted fires, followed by
// SpanSampled if the span is sampleable. The returned context carries the
// span stack and must be used for nested work.
func (t *Tracer) StartSpanInCurrentContext(ctx context.Context, name string, purpose SpanPurpose) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	bundle := bundleFrom(ctx)
	if bundle == nil || bundle.tracer != t {
		bundle = &contextBundle{tracer: t, stack: newSpanStack()}
		ctx = context.WithValue(ctx, bundleKey, bundle)
	}

	var span *Span
	if parent := bundle.stack.Current(); parent != nil {
		span = t.newSpan(name, purpose, parent.TraceID(), parent.SpanID(), parent.Sampleable(), bundle.stack)
	} else {
		span = t.newSpan(name, purpose, t.nextTraceID(), "", t.sampler.ShouldSample(name), bundle.stack)
	}

	bundle.stack.push(span)
	t.fireStartNotifications(span)
	return ctx, span
}

// ContinueExistingTrace starts a span that joins a trace begun by an
// upstream caller, on a fresh call stack. The span shares the upstream trace
// id, references the upstream span as its parent, and inherits the upstream
// sampling decision.
//
// Partial upstream info never rejects the request: a missing trace id is
// synthesized with a warning.
func (t *Tracer) ContinueExistingTrace(ctx context.Context, name string, purpose SpanPurpose, upstream UpstreamSpanInfo) (context.Context, *Span) {
	traceID := upstream.TraceID
	if traceID == "" {
		traceID = t.nextTraceID()
		t.logger.Warn("continuing a trace without an upstream trace id",
			zap.String("span_name", name),
			zap.String("generated_trace_id", traceID),
		)
	}
	return t.startOnFreshStack(ctx, name, purpose, traceID, upstream.SpanID, upstream.Sampled)
}

// StartSpanInForkedContext starts a child of ctx's current span on an
// independent call stack, for handing trace context to concurrent
// goroutines. Sibling subspans on a shared stack would corrupt LIFO
// completion order; each fork owns its own stack instead, the in-process
// equivalent of continuing a trace across a process boundary.
//
// When ctx carries no open span, the fork starts a new trace.
func (t *Tracer) StartSpanInForkedContext(ctx context.Context, name string, purpose SpanPurpose) (context.Context, *Span) {
	if parent := CurrentSpan(ctx); parent != nil {
		return t.startOnFreshStack(ctx, name, purpose, parent.TraceID(), parent.SpanID(), parent.Sampleable())
	}
	return t.startOnFreshStack(ctx, name, purpose, t.nextTraceID(), "", t.sampler.ShouldSample(name))
}

func (t *Tracer) startOnFreshStack(ctx context.Context, name string, purpose SpanPurpose, traceID, parentSpanID string, sampleable bool) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	stack := newSpanStack()
	span := t.newSpan(name, purpose, traceID, parentSpanID, sampleable, stack)
	stack.push(span)
	ctx = context.WithValue(ctx, bundleKey, &contextBundle{tracer: t, stack: stack})
	t.fireStartNotifications(span)
	return ctx, span
}

// CompleteSpan closes span: it pops the span from its call stack, records
// the duration from the tracer's clock, and fires SpanCompleted to all
// listeners, unconditionally, even when the call the span wrapped failed.
//
// Completing an already-completed span is a no-op; there is no second pop,
// duration measurement, or notification. Completing a span that is not the
// current span of its stack panics with a *SpanStackViolationError.
func (t *Tracer) CompleteSpan(span *Span) {
	if span == nil {
		return
	}
	if !t.finalize(span) {
		return
	}
	t.notifier.notifySpanCompleted(span)
	if t.spanLogging && span.Sampleable() {
		t.logCompletedSpan(span)
	}
}

// finalize pops and timestamps the span, reporting false when the span was
// already completed. The clock reading is monotonic: Go time.Time values
// from the same process carry a monotonic component, so the duration is
// immune to wall-clock adjustments.
func (t *Tracer) finalize(span *Span) bool {
	span.mu.Lock()
	defer span.mu.Unlock()
	if span.completed {
		return false
	}
	if span.stack != nil {
		span.stack.pop(span)
	}
	now := t.clock.Now()
	span.endTime = now
	span.duration = now.Sub(span.startTime)
	span.completed = true
	return true
}

func (t *Tracer) fireStartNotifications(span *Span) {
	t.notifier.notifySpanStarted(span)
	if span.Sampleable() {
		t.notifier.notifySpanSampled(span)
	}
}

func (t *Tracer) logCompletedSpan(span *Span) {
	fields := []zap.Field{
		zap.String("trace_id", span.TraceID()),
		zap.String("span_id", span.SpanID()),
		zap.String("name", span.Name()),
		zap.String("purpose", string(span.Purpose())),
		zap.Time("start_time", span.StartTime()),
		zap.Duration("duration", span.Duration()),
	}
	if parent := span.ParentSpanID(); parent != "" {
		fields = append(fields, zap.String("parent_span_id", parent))
	}
	if t.serviceName != "" {
		fields = append(fields, zap.String("service", t.serviceName))
	}
	if tags := span.Tags(); len(tags) > 0 {
		fields = append(fields, zap.Any("tags", tags))
	}
	t.spanLogger.Info("span completed", fields...)
}

func (t *Tracer) newSpan(name string, purpose SpanPurpose, traceID, parentSpanID string, sampleable bool, stack *SpanStack) *Span {
	if purpose == "" {
		purpose = PurposeUnknown
	}
	return &Span{
		traceID:      traceID,
		spanID:       t.nextSpanID(),
		parentSpanID: parentSpanID,
		purpose:      purpose,
		sampleable:   sampleable,
		startTime:    t.clock.Now(),
		name:         name,
		tracer:       t,
		stack:        stack,
	}
}

// ensureIDPools initializes ID pools if not already created.
func (t *Tracer) ensureIDPools() {
	t.idPoolOnce.Do(func() {
		// Pool size based on number of CPUs for contention balance.
		poolSize := runtime.NumCPU() * 100
		t.traceIDs = NewIDPool(poolSize, t.traceIDFactory)
		t.spanIDs = NewIDPool(poolSize, t.spanIDFactory)
	})
}

func (t *Tracer) nextTraceID() string {
	t.ensureIDPools()
	return t.traceIDs.Get()
}

func (t *Tracer) nextSpanID() string {
	t.ensureIDPools()
	return t.spanIDs.Get()
}

// Close releases the tracer's background resources and clears the listener
// registry so late completions stop reaching listeners. Call when the tracer
// is no longer needed.
func (t *Tracer) Close() {
	t.notifier.RemoveAllListeners()
	if t.traceIDs != nil {
		t.traceIDs.Close()
	}
	if t.spanIDs != nil {
		t.spanIDs.Close()
	}
}
