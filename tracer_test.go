package wingtips

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestTracerStartRootSpan(t *testing.T) {
	tracer := NewTracer()
	defer tracer.Close()

	ctx, span := tracer.StartSpanInCurrentContext(context.Background(), "GET /widgets", PurposeServer)

	if span.Name() != "GET /widgets" {
		t.Errorf("Expected span name 'GET /widgets', got %s", span.Name())
	}
	if span.Purpose() != PurposeServer {
		t.Errorf("Expected purpose SERVER, got %s", span.Purpose())
	}
	if len(span.TraceID()) != 32 {
		t.Errorf("Expected trace ID length 32, got %d", len(span.TraceID()))
	}
	if len(span.SpanID()) != 16 {
		t.Errorf("Expected span ID length 16, got %d", len(span.SpanID()))
	}
	if span.ParentSpanID() != "" {
		t.Errorf("Expected root span to have no parent, got %s", span.ParentSpanID())
	}
	if !span.Sampleable() {
		t.Error("Expected default sampler to mark new traces sampleable")
	}
	if span.StartTime().IsZero() {
		t.Error("Expected non-zero start time")
	}
	if CurrentSpan(ctx) != span {
		t.Error("Expected returned context to carry the span")
	}
	if TracerFromContext(ctx) != tracer {
		t.Error("Expected returned context to carry the tracer")
	}
}

// Starting spans without closing them must build a chain: one trace id,
// each span's parent being the previous span.
func TestTracerStartSpanChain(t *testing.T) {
	tracer := NewTracer()
	defer tracer.Close()

	ctx := context.Background()
	var spans []*Span
	for _, name := range []string{"handler", "service", "repository", "db.query"} {
		var span *Span
		ctx, span = tracer.StartSpanInCurrentContext(ctx, name, PurposeLocalOnly)
		spans = append(spans, span)
	}

	for i, span := range spans {
		if span.TraceID() != spans[0].TraceID() {
			t.Errorf("Span %d: expected shared trace ID %s, got %s", i, spans[0].TraceID(), span.TraceID())
		}
		if i == 0 {
			if span.ParentSpanID() != "" {
				t.Errorf("Root span has unexpected parent %s", span.ParentSpanID())
			}
			continue
		}
		if span.ParentSpanID() != spans[i-1].SpanID() {
			t.Errorf("Span %d: expected parent %s, got %s", i, spans[i-1].SpanID(), span.ParentSpanID())
		}
		if span.SpanID() == spans[i-1].SpanID() {
			t.Errorf("Span %d: expected a fresh span ID", i)
		}
	}

	if stack := SpanStackFromContext(ctx); stack.Depth() != 4 {
		t.Errorf("Expected 4 open spans on the stack, got %d", stack.Depth())
	}

	// LIFO completion drains the stack back down.
	for i := len(spans) - 1; i >= 0; i-- {
		tracer.CompleteSpan(spans[i])
	}
	if stack := SpanStackFromContext(ctx); stack.Depth() != 0 {
		t.Errorf("Expected empty stack after completion, got depth %d", stack.Depth())
	}
}

func TestTracerChildInheritsSampleable(t *testing.T) {
	tracer := NewTracer(WithSampler(SampleNone()))
	defer tracer.Close()

	ctx, root := tracer.StartSpanInCurrentContext(context.Background(), "root", PurposeServer)
	_, child := tracer.StartSpanInCurrentContext(ctx, "child", PurposeLocalOnly)

	if root.Sampleable() {
		t.Error("Expected SampleNone to mark the root unsampleable")
	}
	if child.Sampleable() {
		t.Error("Expected child to inherit sampleable=false")
	}
}

// Close must be idempotent: one completion notification, one duration.
func TestTracerCompleteSpanIdempotent(t *testing.T) {
	fakeClock := clockz.NewFakeClock()
	tracer := NewTracer(WithClock(fakeClock))
	defer tracer.Close()

	recorder := &recordingListener{}
	tracer.Notifier().AddListener(recorder)

	_, span := tracer.StartSpanInCurrentContext(context.Background(), "op", PurposeLocalOnly)

	fakeClock.Advance(250 * time.Millisecond)
	span.Close()
	firstDuration := span.Duration()

	fakeClock.Advance(100 * time.Millisecond)
	span.Close()
	tracer.CompleteSpan(span)

	if recorder.completedCount() != 1 {
		t.Errorf("Expected exactly one completion notification, got %d", recorder.completedCount())
	}
	if span.Duration() != firstDuration {
		t.Errorf("Expected duration to stay %v, got %v", firstDuration, span.Duration())
	}
	if firstDuration != 250*time.Millisecond {
		t.Errorf("Expected duration 250ms, got %v", firstDuration)
	}
}

// Root span started and closed immediately: exactly one completed span, no
// parent, non-negative duration.
func TestTracerRootSpanLifecycle(t *testing.T) {
	tracer := NewTracer()
	defer tracer.Close()

	recorder := &recordingListener{}
	tracer.Notifier().AddListener(recorder)

	_, span := tracer.StartSpanInCurrentContext(context.Background(), "GET /foo", PurposeServer)
	span.Close()

	completed := recorder.completedSpans()
	if len(completed) != 1 {
		t.Fatalf("Expected exactly one completed span, got %d", len(completed))
	}
	if completed[0].ParentSpanID() != "" {
		t.Errorf("Expected no parent, got %s", completed[0].ParentSpanID())
	}
	if completed[0].Duration() < 0 {
		t.Errorf("Expected non-negative duration, got %v", completed[0].Duration())
	}
	if !completed[0].Completed() {
		t.Error("Expected completed flag set")
	}
}

func TestTracerContinueExistingTrace(t *testing.T) {
	tracer := NewTracer()
	defer tracer.Close()

	ctx, span := tracer.ContinueExistingTrace(context.Background(), "GET /downstream", PurposeServer, UpstreamSpanInfo{
		TraceID: "abc",
		SpanID:  "def",
		Sampled: false,
	})

	if span.TraceID() != "abc" {
		t.Errorf("Expected trace ID 'abc', got %s", span.TraceID())
	}
	if span.ParentSpanID() != "def" {
		t.Errorf("Expected parent span ID 'def', got %s", span.ParentSpanID())
	}
	if span.Sampleable() {
		t.Error("Expected upstream sampled=false to be inherited")
	}
	if CurrentSpan(ctx) != span {
		t.Error("Expected context to carry the continued span")
	}
	if SpanStackFromContext(ctx).Depth() != 1 {
		t.Error("Expected a fresh stack holding only the continued span")
	}
}

func TestTracerContinueExistingTraceSynthesizesTraceID(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	tracer := NewTracer(WithLogger(zap.New(core)))
	defer tracer.Close()

	_, span := tracer.ContinueExistingTrace(context.Background(), "op", PurposeServer, UpstreamSpanInfo{})

	if span.TraceID() == "" {
		t.Error("Expected a synthesized trace ID")
	}
	if logs.FilterMessage("continuing a trace without an upstream trace id").Len() != 1 {
		t.Error("Expected a warning about the missing upstream trace id")
	}
}

func TestTracerForkedContextIsolation(t *testing.T) {
	tracer := NewTracer()
	defer tracer.Close()

	ctx, root := tracer.StartSpanInCurrentContext(context.Background(), "root", PurposeServer)

	var wg sync.WaitGroup
	forked := make([]*Span, 3)
	for i := range forked {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			forkCtx, span := tracer.StartSpanInForkedContext(ctx, "parallel", PurposeLocalOnly)
			defer span.Close()
			forked[i] = span

			if SpanStackFromContext(forkCtx) == SpanStackFromContext(ctx) {
				t.Error("Expected fork to own an independent stack")
			}
		}(i)
	}
	wg.Wait()

	for i, span := range forked {
		if span.TraceID() != root.TraceID() {
			t.Errorf("Fork %d: expected trace ID %s, got %s", i, root.TraceID(), span.TraceID())
		}
		if span.ParentSpanID() != root.SpanID() {
			t.Errorf("Fork %d: expected parent %s, got %s", i, root.SpanID(), span.ParentSpanID())
		}
	}

	// The original stack still holds only the root.
	if depth := SpanStackFromContext(ctx).Depth(); depth != 1 {
		t.Errorf("Expected root stack depth 1 after forks completed, got %d", depth)
	}
	root.Close()
}

func TestTracerForkWithoutTraceStartsRoot(t *testing.T) {
	tracer := NewTracer()
	defer tracer.Close()

	_, span := tracer.StartSpanInForkedContext(context.Background(), "background-job", PurposeLocalOnly)
	defer span.Close()

	if span.ParentSpanID() != "" {
		t.Errorf("Expected fork without a trace to start a root, got parent %s", span.ParentSpanID())
	}
	if span.TraceID() == "" {
		t.Error("Expected a new trace ID")
	}
}

func TestTracerCompleteSpanFromAnotherGoroutine(t *testing.T) {
	tracer := NewTracer()
	defer tracer.Close()

	ctx, span := tracer.StartSpanInCurrentContext(context.Background(), "async-op", PurposeLocalOnly)

	done := make(chan struct{})
	go func() {
		defer close(done)
		span.Close()
	}()
	<-done

	if !span.Completed() {
		t.Error("Expected span completed from another goroutine")
	}
	if SpanStackFromContext(ctx).Depth() != 0 {
		t.Error("Expected the span's own stack to be popped")
	}
}

func TestTracerNotificationSequence(t *testing.T) {
	tracer := NewTracer()
	defer tracer.Close()

	recorder := &recordingListener{}
	tracer.Notifier().AddListener(recorder)

	_, span := tracer.StartSpanInCurrentContext(context.Background(), "op", PurposeLocalOnly)

	if recorder.startedCount() != 1 {
		t.Errorf("Expected one started notification, got %d", recorder.startedCount())
	}
	if recorder.sampledCount() != 1 {
		t.Errorf("Expected one sampled notification for a sampleable span, got %d", recorder.sampledCount())
	}
	if recorder.completedCount() != 0 {
		t.Errorf("Expected no completion before close, got %d", recorder.completedCount())
	}

	span.Close()

	if recorder.completedCount() != 1 {
		t.Errorf("Expected one completion notification, got %d", recorder.completedCount())
	}
}

func TestTracerUnsampleableSpanSkipsSampledNotification(t *testing.T) {
	tracer := NewTracer(WithSampler(SampleNone()))
	defer tracer.Close()

	recorder := &recordingListener{}
	tracer.Notifier().AddListener(recorder)

	_, span := tracer.StartSpanInCurrentContext(context.Background(), "op", PurposeLocalOnly)
	span.Close()

	if recorder.startedCount() != 1 {
		t.Errorf("Expected started notification regardless of sampling, got %d", recorder.startedCount())
	}
	if recorder.sampledCount() != 0 {
		t.Errorf("Expected no sampled notification, got %d", recorder.sampledCount())
	}
	if recorder.completedCount() != 1 {
		t.Errorf("Expected completion notification regardless of sampling, got %d", recorder.completedCount())
	}
}

// A listener that panics on every call must not prevent duration recording.
func TestTracerPanickyListenerDoesNotBreakSpans(t *testing.T) {
	fakeClock := clockz.NewFakeClock()
	tracer := NewTracer(WithClock(fakeClock))
	defer tracer.Close()

	tracer.Notifier().AddListener(panickyListener{})

	_, span := tracer.StartSpanInCurrentContext(context.Background(), "op", PurposeLocalOnly)
	fakeClock.Advance(50 * time.Millisecond)
	span.Close()

	if !span.Completed() {
		t.Error("Expected span to complete despite the panicking listener")
	}
	if span.Duration() != 50*time.Millisecond {
		t.Errorf("Expected duration 50ms, got %v", span.Duration())
	}
}

func TestTracerWithFakeClock(t *testing.T) {
	fakeClock := clockz.NewFakeClock()
	tracer := NewTracer(WithClock(fakeClock))
	defer tracer.Close()

	_, span := tracer.StartSpanInCurrentContext(context.Background(), "op", PurposeLocalOnly)
	startTime := span.StartTime()

	advancement := 100 * time.Millisecond
	fakeClock.Advance(advancement)
	span.Close()

	if span.Duration() != advancement {
		t.Errorf("Expected duration %v, got %v", advancement, span.Duration())
	}
	if !span.EndTime().Equal(startTime.Add(advancement)) {
		t.Errorf("Expected end time %v, got %v", startTime.Add(advancement), span.EndTime())
	}
}

func TestTracerCompletedSpanLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	tracer := NewTracer(WithLogger(zap.New(core)), WithServiceName("widget-service"))
	defer tracer.Close()

	_, span := tracer.StartSpanInCurrentContext(context.Background(), "GET /widgets", PurposeServer)
	span.SetTag("http.method", "GET")
	span.Close()

	entries := logs.FilterMessage("span completed").All()
	if len(entries) != 1 {
		t.Fatalf("Expected one span log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["trace_id"] != span.TraceID() {
		t.Errorf("Expected logged trace_id %s, got %v", span.TraceID(), fields["trace_id"])
	}
	if fields["service"] != "widget-service" {
		t.Errorf("Expected logged service name, got %v", fields["service"])
	}
	if entries[0].LoggerName != "wingtips.spans" {
		t.Errorf("Expected the named span logger, got %s", entries[0].LoggerName)
	}
}

func TestTracerSpanLoggingDisabled(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	tracer := NewTracer(WithLogger(zap.New(core)), WithSpanLogging(false))
	defer tracer.Close()

	_, span := tracer.StartSpanInCurrentContext(context.Background(), "op", PurposeLocalOnly)
	span.Close()

	if logs.FilterMessage("span completed").Len() != 0 {
		t.Error("Expected no span log entries when span logging is disabled")
	}
}

func TestTracerUnsampleableSpanNotLogged(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	tracer := NewTracer(WithLogger(zap.New(core)), WithSampler(SampleNone()))
	defer tracer.Close()

	_, span := tracer.StartSpanInCurrentContext(context.Background(), "op", PurposeLocalOnly)
	span.Close()

	if logs.FilterMessage("span completed").Len() != 0 {
		t.Error("Expected unsampleable spans to skip the span log")
	}
}

func TestTracerNilContext(t *testing.T) {
	tracer := NewTracer()
	defer tracer.Close()

	//nolint:staticcheck // Deliberately exercising the nil-context guard.
	ctx, span := tracer.StartSpanInCurrentContext(nil, "op", PurposeLocalOnly)
	defer span.Close()

	if ctx == nil {
		t.Fatal("Expected a usable context")
	}
	if CurrentSpan(ctx) != span {
		t.Error("Expected context to carry the span")
	}
}

func TestTracerCompleteNilSpan(_ *testing.T) {
	tracer := NewTracer()
	defer tracer.Close()

	// Must not panic.
	tracer.CompleteSpan(nil)
}

func TestTracerEmptyPurposeNormalized(t *testing.T) {
	tracer := NewTracer()
	defer tracer.Close()

	_, span := tracer.StartSpanInCurrentContext(context.Background(), "op", "")
	defer span.Close()

	if span.Purpose() != PurposeUnknown {
		t.Errorf("Expected UNKNOWN purpose, got %s", span.Purpose())
	}
}

func TestTracerGeneratedIDsUnique(t *testing.T) {
	tracer := NewTracer()
	defer tracer.Close()

	seenTrace := make(map[string]bool)
	seenSpan := make(map[string]bool)
	for i := 0; i < 50; i++ {
		_, span := tracer.StartSpanInCurrentContext(context.Background(), "op", PurposeLocalOnly)
		if seenTrace[span.TraceID()] {
			t.Fatal("Found duplicate trace ID")
		}
		if seenSpan[span.SpanID()] {
			t.Fatal("Found duplicate span ID")
		}
		seenTrace[span.TraceID()] = true
		seenSpan[span.SpanID()] = true
		span.Close()
	}
}

func TestTracerConcurrentTraces(t *testing.T) {
	tracer := NewTracer()
	defer tracer.Close()

	recorder := &recordingListener{}
	tracer.Notifier().AddListener(recorder)

	var wg sync.WaitGroup
	numGoroutines := 50
	spansPerGoroutine := 10

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < spansPerGoroutine; j++ {
				ctx, root := tracer.StartSpanInCurrentContext(context.Background(), "root", PurposeServer)
				_, child := tracer.StartSpanInCurrentContext(ctx, "child", PurposeLocalOnly)
				child.SetTag("worker", "test")
				child.Close()
				root.Close()
			}
		}()
	}
	wg.Wait()

	expected := numGoroutines * spansPerGoroutine * 2
	if recorder.completedCount() != expected {
		t.Errorf("Expected %d completed spans, got %d", expected, recorder.completedCount())
	}
}

func TestTracerCloseStopsPoolGoroutines(t *testing.T) {
	tracer := NewTracer()

	// Force pool initialization.
	_, span := tracer.StartSpanInCurrentContext(context.Background(), "init-pools", PurposeLocalOnly)
	span.Close()

	before := runtime.NumGoroutine()
	tracer.Close()
	time.Sleep(20 * time.Millisecond)

	after := runtime.NumGoroutine()
	if after > before {
		t.Errorf("Goroutine leak after tracer close: %d -> %d", before, after)
	}
}

func TestTracerCloseClearsListeners(t *testing.T) {
	tracer := NewTracer()
	recorder := &recordingListener{}
	tracer.Notifier().AddListener(recorder)

	tracer.Close()

	if tracer.Notifier().ListenerCount() != 0 {
		t.Errorf("Expected close to clear listeners, got %d", tracer.Notifier().ListenerCount())
	}
}
