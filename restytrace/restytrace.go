// Package restytrace instruments a resty client with wingtips tracing.
//
// Instrument registers hooks on the client so every outgoing request runs
// inside a client subspan carrying propagation headers. The subspan closes
// exactly once, whichever of the response or error hooks ends the attempt.
//
//	client := restytrace.Instrument(resty.New(), tracer)
//	resp, err := client.R().SetContext(ctx).Get("http://orders/api/users/42")
package restytrace

import (
	"context"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/nvanlo/wingtips"
)

// DefaultSubspanNamePrefix names client subspans created by Instrument.
const DefaultSubspanNamePrefix = "resty_downstream_call"

type ownerKey struct{}

type config struct {
	logger        *zap.Logger
	tags          wingtips.TagStrategy[*resty.Request, *resty.Response]
	subspan       bool
	subspanPrefix string
}

// Option configures Instrument.
type Option func(*config)

// WithLogger sets the logger for decode fail-open and tag-strategy panic
// warnings. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithTagStrategy replaces the default ZipkinTagStrategy. Nil disables
// tagging.
func WithTagStrategy(strategy wingtips.TagStrategy[*resty.Request, *resty.Response]) Option {
	return func(cfg *config) {
		cfg.tags = strategy
	}
}

// WithSubspan controls whether each request runs inside its own client
// subspan. Disabled, requests only propagate the current span's headers.
// Defaults to enabled.
func WithSubspan(enabled bool) Option {
	return func(cfg *config) {
		cfg.subspan = enabled
	}
}

// WithSubspanNamePrefix replaces DefaultSubspanNamePrefix in subspan names.
func WithSubspanNamePrefix(prefix string) Option {
	return func(cfg *config) {
		cfg.subspanPrefix = prefix
	}
}

// Instrument registers tracing hooks on the client and returns it. The
// subspan for each attempt is carried in the request context; only spans
// started here are ever completed here, so an ambient span owned by the
// caller is never touched.
func Instrument(client *resty.Client, tracer *wingtips.Tracer, opts ...Option) *resty.Client {
	cfg := &config{
		logger:        zap.NewNop(),
		tags:          ZipkinTagStrategy{},
		subspan:       true,
		subspanPrefix: DefaultSubspanNamePrefix,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	codec := wingtips.Codec{Logger: cfg.logger}

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		ctx := req.Context()
		if prev := ownedSpan(ctx); prev != nil && !prev.Completed() {
			// A retried request reuses this hook; settle the previous
			// attempt's span before opening the next one.
			tracer.CompleteSpan(prev)
		}

		if !cfg.subspan {
			if current := wingtips.CurrentSpan(ctx); current != nil {
				codec.Encode(current, wingtips.HTTPHeaderCarrier(req.Header))
			}
			return nil
		}

		name := wingtips.SubspanName(cfg.subspanPrefix, req.Method, req.URL)
		spanCtx, span := tracer.StartSpanInCurrentContext(ctx, name, wingtips.PurposeClient)
		req.SetContext(context.WithValue(spanCtx, ownerKey{}, span))
		codec.Encode(span, wingtips.HTTPHeaderCarrier(req.Header))
		wingtips.ApplyRequestTags(cfg.logger, cfg.tags, span, req)
		return nil
	})

	client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		span := ownedSpan(resp.Request.Context())
		if span == nil {
			return nil
		}
		wingtips.ApplyResponseTags(cfg.logger, cfg.tags, span, resp)
		tracer.CompleteSpan(span)
		return nil
	})

	client.OnError(func(req *resty.Request, err error) {
		span := ownedSpan(req.Context())
		if span == nil {
			return
		}
		wingtips.ApplyErrorTags(cfg.logger, cfg.tags, span, err)
		tracer.CompleteSpan(span)
	})

	return client
}

func ownedSpan(ctx context.Context) *wingtips.Span {
	span, _ := ctx.Value(ownerKey{}).(*wingtips.Span)
	return span
}
