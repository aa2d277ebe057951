// Package otelbridge replays completed wingtips spans through an
// OpenTelemetry tracer, so an existing OTel export pipeline receives them
// without changing how the application traces.
//
//	tracer.Notifier().AddListener(otelbridge.New(otel.Tracer("wingtips")))
package otelbridge

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nvanlo/wingtips"
)

// Listener implements wingtips.SpanLifecycleListener by re-creating each
// completed span through the OpenTelemetry API with its original start and
// end timestamps.
//
// Wingtips trace ids are hex-encoded 128-bit values and span ids 64-bit, so
// a span with a parent is attached to a remote parent SpanContext built from
// the wire ids, keeping the whole trace under one OTel trace id. Root spans
// get an OTel-generated trace id; the original ids ride along as
// wingtips.trace_id / wingtips.span_id attributes on every span.
type Listener struct {
	tracer          trace.Tracer
	exportUnsampled bool
}

// Option configures New.
type Option func(*Listener)

// WithUnsampled exports spans whose sampleable flag is false as well. By
// default they are skipped.
func WithUnsampled(enabled bool) Option {
	return func(l *Listener) {
		l.exportUnsampled = enabled
	}
}

// New creates a bridge listener replaying spans through tracer.
func New(tracer trace.Tracer, opts ...Option) *Listener {
	l := &Listener{tracer: tracer}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SpanStarted implements wingtips.SpanLifecycleListener. OTel spans are
// created whole at completion time, so starts are ignored.
func (*Listener) SpanStarted(*wingtips.Span) {}

// SpanSampled implements wingtips.SpanLifecycleListener.
func (*Listener) SpanSampled(*wingtips.Span) {}

// SpanCompleted implements wingtips.SpanLifecycleListener.
func (l *Listener) SpanCompleted(span *wingtips.Span) {
	if !span.Sampleable() && !l.exportUnsampled {
		return
	}

	ctx := context.Background()
	if parent, ok := remoteParent(span); ok {
		ctx = trace.ContextWithSpanContext(ctx, parent)
	}

	tags := span.Tags()
	attrs := make([]attribute.KeyValue, 0, len(tags)+3)
	attrs = append(attrs,
		attribute.String("wingtips.trace_id", span.TraceID()),
		attribute.String("wingtips.span_id", span.SpanID()),
	)
	if parentID := span.ParentSpanID(); parentID != "" {
		attrs = append(attrs, attribute.String("wingtips.parent_span_id", parentID))
	}
	for key, value := range tags {
		attrs = append(attrs, attribute.String(key, value))
	}

	_, otelSpan := l.tracer.Start(ctx, span.Name(),
		trace.WithTimestamp(span.StartTime()),
		trace.WithSpanKind(spanKind(span.Purpose())),
		trace.WithAttributes(attrs...),
	)
	otelSpan.End(trace.WithTimestamp(span.EndTime()))
}

// remoteParent rebuilds the parent SpanContext from the span's wire ids.
func remoteParent(span *wingtips.Span) (trace.SpanContext, bool) {
	parentID := span.ParentSpanID()
	if parentID == "" {
		return trace.SpanContext{}, false
	}
	traceID, err := trace.TraceIDFromHex(span.TraceID())
	if err != nil {
		return trace.SpanContext{}, false
	}
	spanID, err := trace.SpanIDFromHex(parentID)
	if err != nil {
		return trace.SpanContext{}, false
	}
	flags := trace.TraceFlags(0)
	if span.Sampleable() {
		flags = trace.FlagsSampled
	}
	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: flags,
		Remote:     true,
	}), true
}

func spanKind(purpose wingtips.SpanPurpose) trace.SpanKind {
	switch purpose {
	case wingtips.PurposeServer:
		return trace.SpanKindServer
	case wingtips.PurposeClient:
		return trace.SpanKindClient
	case wingtips.PurposeLocalOnly:
		return trace.SpanKindInternal
	default:
		return trace.SpanKindUnspecified
	}
}
