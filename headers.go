package wingtips

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Propagation header names. Lookup is case-insensitive on both ends of the
// wire.
const (
	TraceIDHeader      = "trace-id"
	SpanIDHeader       = "span-id"
	ParentSpanIDHeader = "parent-span-id"
	SpanNameHeader     = "span-name"
	TraceSampledHeader = "trace-sampled"
)

// HeaderCarrier abstracts the header set of a transport message. Get must
// look keys up case-insensitively; Set may normalize key case.
type HeaderCarrier interface {
	Get(key string) string
	Set(key, value string)
}

// HTTPHeaderCarrier adapts http.Header to the HeaderCarrier interface.
type HTTPHeaderCarrier http.Header

// Get returns the first value for the key, case-insensitively.
func (c HTTPHeaderCarrier) Get(key string) string {
	return http.Header(c).Get(key)
}

// Set replaces any existing values for the key.
func (c HTTPHeaderCarrier) Set(key, value string) {
	http.Header(c).Set(key, value)
}

// MapCarrier adapts a plain string map to the HeaderCarrier interface with
// case-insensitive lookup.
type MapCarrier map[string]string

// Get returns the value for the key, case-insensitively.
func (c MapCarrier) Get(key string) string {
	if v, ok := c[key]; ok {
		return v
	}
	for k, v := range c {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// Set replaces any case variant of the key with the given value.
func (c MapCarrier) Set(key, value string) {
	for k := range c {
		if strings.EqualFold(k, key) {
			delete(c, k)
		}
	}
	c[key] = value
}

// Codec translates spans to and from wire propagation headers.
//
// The zero value is usable: decode fail-open warnings are dropped and
// synthesized span ids come from the default generator.
type Codec struct {
	// Logger receives decode fail-open warnings. Nil discards them.
	Logger *zap.Logger
	// SpanIDFactory generates ids for upstream spans whose span-id header
	// is missing. Nil uses NewSpanID.
	SpanIDFactory IDFactory
}

// Encode writes span's propagation headers to the carrier: trace-id,
// span-id, trace-sampled always; parent-span-id when the span has a parent;
// span-name percent-encoded, omitted when empty. Header values forbid
// certain characters, so the name travels encoded rather than failing the
// call.
func (c Codec) Encode(span *Span, carrier HeaderCarrier) {
	if span == nil || carrier == nil {
		return
	}
	carrier.Set(TraceIDHeader, span.TraceID())
	carrier.Set(SpanIDHeader, span.SpanID())
	if parent := span.ParentSpanID(); parent != "" {
		carrier.Set(ParentSpanIDHeader, parent)
	}
	if name := span.Name(); name != "" {
		carrier.Set(SpanNameHeader, url.QueryEscape(name))
	}
	carrier.Set(TraceSampledHeader, strconv.FormatBool(span.Sampleable()))
}

// Decode reads propagation headers from the carrier. It reports false when
// the trace-id header is absent, meaning there is no upstream trace at all;
// that is distinct from an upstream trace whose sampled flag is false.
//
// Partial headers never reject a request: a missing span-id is synthesized
// with a warning, and a missing or unrecognizable trace-sampled value counts
// as sampled, since dropping visibility costs more than tracing one extra
// span.
func (c Codec) Decode(carrier HeaderCarrier) (UpstreamSpanInfo, bool) {
	if carrier == nil {
		return UpstreamSpanInfo{}, false
	}

	traceID := strings.TrimSpace(carrier.Get(TraceIDHeader))
	if traceID == "" {
		return UpstreamSpanInfo{}, false
	}

	info := UpstreamSpanInfo{
		TraceID:      traceID,
		SpanID:       strings.TrimSpace(carrier.Get(SpanIDHeader)),
		ParentSpanID: strings.TrimSpace(carrier.Get(ParentSpanIDHeader)),
		Sampled:      parseSampled(carrier.Get(TraceSampledHeader)),
	}

	if info.SpanID == "" {
		info.SpanID = c.newSpanID()
		c.logger().Warn("upstream trace carried no span id, synthesized one",
			zap.String("trace_id", info.TraceID),
			zap.String("synthesized_span_id", info.SpanID),
		)
	}

	if rawName := carrier.Get(SpanNameHeader); rawName != "" {
		name, err := url.QueryUnescape(rawName)
		if err != nil {
			// Keep the raw value rather than losing the name.
			name = rawName
			c.logger().Warn("upstream span name was not percent-encoded",
				zap.String("trace_id", info.TraceID),
				zap.String("span_name", rawName),
			)
		}
		info.SpanName = name
	}

	return info, true
}

// parseSampled interprets a trace-sampled header value. Only an explicit
// opt-out disables sampling; absent or garbled values stay sampled so that a
// mangled header can not silently drop visibility.
func parseSampled(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "false", "0":
		return false
	default:
		return true
	}
}

func (c Codec) logger() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.NewNop()
}

func (c Codec) newSpanID() string {
	if c.SpanIDFactory != nil {
		return c.SpanIDFactory()
	}
	return NewSpanID()
}
