package nethttp

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/nvanlo/wingtips"
)

// DefaultSubspanNamePrefix names client subspans created by RoundTripper.
const DefaultSubspanNamePrefix = "nethttp_downstream_call"

type config struct {
	logger        *zap.Logger
	serverTags    wingtips.TagStrategy[*http.Request, ResponseInfo]
	clientTags    wingtips.TagStrategy[*http.Request, *http.Response]
	subspan       bool
	subspanPrefix string
}

func newConfig(opts []Option) *config {
	cfg := &config{
		logger:        zap.NewNop(),
		serverTags:    ZipkinServerTagStrategy{},
		clientTags:    ZipkinClientTagStrategy{},
		subspan:       true,
		subspanPrefix: DefaultSubspanNamePrefix,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Option configures Middleware and RoundTripper.
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

// WithServerTagStrategy replaces the tag strategy used by Middleware.
// Defaults to ZipkinServerTagStrategy. Nil disables server tagging.
func WithServerTagStrategy(strategy wingtips.TagStrategy[*http.Request, ResponseInfo]) Option {
	return func(cfg *config) {
		cfg.serverTags = strategy
	}
}

// WithClientTagStrategy replaces the tag strategy used by RoundTripper.
// Defaults to ZipkinClientTagStrategy. Nil disables client tagging.
func WithClientTagStrategy(strategy wingtips.TagStrategy[*http.Request, *http.Response]) Option {
	return func(cfg *config) {
		cfg.clientTags = strategy
	}
}

// WithSubspan controls whether RoundTripper surrounds each outgoing request
// with a client subspan. Disabled, it only propagates the current span's
// headers. Defaults to enabled.
func WithSubspan(enabled bool) Option {
	return func(cfg *config) {
		cfg.subspan = enabled
	}
}

// WithSubspanNamePrefix replaces DefaultSubspanNamePrefix in client subspan
// names.
func WithSubspanNamePrefix(prefix string) Option {
	return func(cfg *config) {
		cfg.subspanPrefix = prefix
	}
}
