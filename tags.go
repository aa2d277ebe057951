package wingtips

import (
	"fmt"
	"net/url"

	"go.uber.org/zap"
)

// Standard tag keys written by the bundled tag strategies, following Zipkin
// conventions. Custom strategies may use any vocabulary they like.
const (
	TagHTTPMethod     = "http.method"
	TagHTTPPath       = "http.path"
	TagHTTPURL        = "http.url"
	TagHTTPRoute      = "http.route"
	TagHTTPStatusCode = "http.status_code"
	TagError          = "error"
	TagSpanHandler    = "span.handler"
)

// TagStrategy extracts span tags from transport-specific request and
// response types. Implementations may also rename the span, typically once
// route template information is available.
//
// Strategies run through the Apply helpers, which isolate panics: a failing
// strategy is logged and skipped and never affects span timing, completion,
// propagation, or the traced call itself.
type TagStrategy[REQ any, RES any] interface {
	TagSpanWithRequestAttributes(span *Span, req REQ)
	TagSpanWithResponseAttributes(span *Span, res RES)
	HandleErroredRequest(span *Span, err error)
}

// NoopTagStrategy ignores every tagging opportunity.
type NoopTagStrategy[REQ any, RES any] struct{}

// TagSpanWithRequestAttributes implements TagStrategy.
func (NoopTagStrategy[REQ, RES]) TagSpanWithRequestAttributes(*Span, REQ) {}

// TagSpanWithResponseAttributes implements TagStrategy.
func (NoopTagStrategy[REQ, RES]) TagSpanWithResponseAttributes(*Span, RES) {}

// HandleErroredRequest implements TagStrategy.
func (NoopTagStrategy[REQ, RES]) HandleErroredRequest(*Span, error) {}

// ApplyRequestTags runs the strategy's request tagging with panic isolation.
func ApplyRequestTags[REQ, RES any](logger *zap.Logger, strategy TagStrategy[REQ, RES], span *Span, req REQ) {
	if strategy == nil || span == nil {
		return
	}
	defer recoverTagPanic(logger, span, "request tagging")
	strategy.TagSpanWithRequestAttributes(span, req)
}

// ApplyResponseTags runs the strategy's response tagging with panic isolation.
func ApplyResponseTags[REQ, RES any](logger *zap.Logger, strategy TagStrategy[REQ, RES], span *Span, res RES) {
	if strategy == nil || span == nil {
		return
	}
	defer recoverTagPanic(logger, span, "response tagging")
	strategy.TagSpanWithResponseAttributes(span, res)
}

// ApplyErrorTags runs the strategy's error handling with panic isolation.
func ApplyErrorTags[REQ, RES any](logger *zap.Logger, strategy TagStrategy[REQ, RES], span *Span, err error) {
	if strategy == nil || span == nil {
		return
	}
	defer recoverTagPanic(logger, span, "error tagging")
	strategy.HandleErroredRequest(span, err)
}

// SubspanName builds the conventional name for a downstream-call subspan:
// "prefix-METHOD_url", query string and fragment stripped so names stay
// bounded and free of per-request noise.
func SubspanName(prefix, method, rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		u.RawQuery = ""
		u.Fragment = ""
		rawURL = u.String()
	}
	name := method + "_" + rawURL
	if prefix == "" {
		return name
	}
	return prefix + "-" + name
}

// recoverTagPanic must be deferred directly so recover applies.
func recoverTagPanic(logger *zap.Logger, span *Span, operation string) {
	if r := recover(); r != nil {
		if logger == nil {
			return
		}
		logger.Warn("tag strategy panicked",
			zap.String("operation", operation),
			zap.String("trace_id", span.TraceID()),
			zap.String("span_id", span.SpanID()),
			zap.String("panic", fmt.Sprint(r)),
		)
	}
}
