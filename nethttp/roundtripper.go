package nethttp

import (
	"context"
	"net/http"

	"github.com/nvanlo/wingtips"
)

// RoundTripper propagates the current trace on outgoing requests. By default
// each request runs inside a client subspan so the downstream call is timed
// and tagged on its own; WithSubspan(false) switches to propagate-only mode,
// which forwards the current span's headers without creating one.
//
// The outgoing request is cloned before headers are injected, honoring the
// http.RoundTripper contract that the request must not be mutated. Transport
// errors come back unmodified.
type RoundTripper struct {
	tracer *wingtips.Tracer
	base   http.RoundTripper
	cfg    *config
	codec  wingtips.Codec
}

// NewRoundTripper wraps base with trace propagation. A nil base uses
// http.DefaultTransport.
func NewRoundTripper(tracer *wingtips.Tracer, base http.RoundTripper, opts ...Option) *RoundTripper {
	cfg := newConfig(opts)
	return &RoundTripper{
		tracer: tracer,
		base:   base,
		cfg:    cfg,
		codec:  wingtips.Codec{Logger: cfg.logger},
	}
}

// RoundTrip implements http.RoundTripper.
func (rt *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if !rt.cfg.subspan {
		if current := wingtips.CurrentSpan(req.Context()); current != nil {
			req = req.Clone(req.Context())
			rt.codec.Encode(current, wingtips.HTTPHeaderCarrier(req.Header))
		}
		return rt.transport().RoundTrip(req)
	}

	name := SubspanNameForRequest(rt.cfg.subspanPrefix, req)
	return wingtips.WrapCall(rt.tracer, req.Context(), name, wingtips.PurposeClient, rt.cfg.clientTags, req,
		func(ctx context.Context) (*http.Response, error) {
			req := req.Clone(ctx)
			rt.codec.Encode(wingtips.CurrentSpan(ctx), wingtips.HTTPHeaderCarrier(req.Header))
			return rt.transport().RoundTrip(req)
		})
}

func (rt *RoundTripper) transport() http.RoundTripper {
	if rt.base != nil {
		return rt.base
	}
	return http.DefaultTransport
}

// SubspanNameForRequest names a downstream-call subspan
// "prefix-METHOD_url", with the query string stripped.
func SubspanNameForRequest(prefix string, req *http.Request) string {
	return wingtips.SubspanName(prefix, req.Method, req.URL.String())
}
