// Package wingtips is a distributed-tracing propagation and span-lifecycle
// library meant to be woven into HTTP clients and servers.
//
// wingtips decides whether a unit of work starts a new trace or nests inside
// an existing one, keeps the current span per logical call stack inside
// context.Context, encodes and decodes propagation headers, and guarantees
// every span closes exactly once with a correct monotonic duration, even when
// the traced call fails or panics. It is not a tracing backend: completed
// spans are handed to registered lifecycle listeners, which decide where they
// go.
//
// Core Components:
//   - Tracer: decides new-trace-vs-subspan and drives the span lifecycle.
//   - Span: a timed unit of work with identity, name, purpose, and tags.
//   - SpanStack: the open spans of one logical call stack, carried by context.
//   - Codec: translates spans to and from wire propagation headers.
//   - LifecycleNotifier: registry of span lifecycle listeners.
//   - TagStrategy: pluggable request/response tagging, isolated from failures.
//
// Basic Usage:
//
//	tracer := wingtips.NewTracer()
//	defer tracer.Close()
//
//	// Start a root span (new trace) or a child of the current span.
//	ctx, span := tracer.StartSpanInCurrentContext(ctx, "GET /widgets", wingtips.PurposeServer)
//	defer span.Close()
//
//	// Add metadata.
//	span.SetTag("http.method", "GET")
//
//	// Nested work becomes a subspan of the same trace.
//	childCtx, child := tracer.StartSpanInCurrentContext(ctx, "db.query", wingtips.PurposeLocalOnly)
//	defer child.Close()
//	_ = childCtx
//
// Continuing an upstream trace from inbound headers:
//
//	var codec wingtips.Codec
//	if upstream, ok := codec.Decode(wingtips.HTTPHeaderCarrier(req.Header)); ok {
//		ctx, span = tracer.ContinueExistingTrace(req.Context(), "GET /widgets", wingtips.PurposeServer, upstream)
//	}
//
// Thread Safety:
//
// Tracer, LifecycleNotifier, and SpanCollector are safe for concurrent use by
// multiple goroutines. Span tag, name, and completion operations are
// mutex-guarded so one goroutine may write while others read.
//
// A SpanStack belongs to one logical call stack. Do not start sibling spans
// on a shared context from concurrent goroutines; hand each goroutine its own
// stack with Tracer.StartSpanInForkedContext.
//
// Completion Semantics:
//
// Close is idempotent. The first call pops the span from its stack, records
// the duration from a monotonic clock reading, and fires the SpanCompleted
// notification; later calls do nothing. Completing a span that is not the
// top of its stack panics with a *SpanStackViolationError, because silently
// tolerating out-of-order completion corrupts trace topology. Tag and name
// writes after completion are silent no-ops.
//
// Listener Registry Lifecycle:
//
// Each tracer holds an explicit LifecycleNotifier rather than a hidden
// global. Register listeners at process start and call RemoveAllListeners
// (or Tracer.Close) at shutdown and test teardown.
package wingtips
