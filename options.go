package wingtips

import (
	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
)

// Option configures a Tracer.
type Option func(*Tracer)

// WithLogger sets the logger for isolation warnings and completed-span
// logging. The default logger discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(t *Tracer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithClock injects the clock used for span timing.
// Enables clock injection for deterministic testing.
func WithClock(clock clockz.Clock) Option {
	return func(t *Tracer) {
		if clock != nil {
			t.clock = clock
		}
	}
}

// WithNotifier sets the lifecycle listener registry. Use it to share one
// registry between tracers or to control registry lifecycle explicitly.
func WithNotifier(notifier *LifecycleNotifier) Option {
	return func(t *Tracer) {
		if notifier != nil {
			t.notifier = notifier
		}
	}
}

// WithSampler sets the strategy consulted when a new trace starts.
func WithSampler(sampler Sampler) Option {
	return func(t *Tracer) {
		if sampler != nil {
			t.sampler = sampler
		}
	}
}

// WithServiceName attaches a service name to logged spans.
func WithServiceName(name string) Option {
	return func(t *Tracer) {
		t.serviceName = name
	}
}

// WithSpanLogging toggles logging of completed sampleable spans through the
// tracer's logger. Enabled by default, though the default logger is silent.
func WithSpanLogging(enabled bool) Option {
	return func(t *Tracer) {
		t.spanLogging = enabled
	}
}

// WithTraceIDFactory overrides how new trace ids are generated.
func WithTraceIDFactory(factory IDFactory) Option {
	return func(t *Tracer) {
		if factory != nil {
			t.traceIDFactory = factory
		}
	}
}

// WithSpanIDFactory overrides how new span ids are generated.
func WithSpanIDFactory(factory IDFactory) Option {
	return func(t *Tracer) {
		if factory != nil {
			t.spanIDFactory = factory
		}
	}
}
