// Package promlistener exports span lifecycle activity as Prometheus
// metrics.
//
// Listener implements wingtips.SpanLifecycleListener, so a single
// registration wires a tracer to a metrics registry:
//
//	tracer.Notifier().AddListener(promlistener.New(registry))
package promlistener

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nvanlo/wingtips"
)

// Listener counts span lifecycle events and observes span durations.
//
// Metrics:
//   - wingtips_spans_started_total: spans started, by purpose
//   - wingtips_spans_sampled_total: sampleable spans started, by purpose
//   - wingtips_spans_completed_total: spans completed, by purpose and sampled
//   - wingtips_span_duration_seconds: span duration histogram, by purpose
type Listener struct {
	spansStarted   *prometheus.CounterVec
	spansSampled   *prometheus.CounterVec
	spansCompleted *prometheus.CounterVec
	spanDuration   *prometheus.HistogramVec
}

type config struct {
	namespace string
	buckets   []float64
}

// Option configures New.
type Option func(*config)

// WithNamespace replaces the default "wingtips" metric namespace.
func WithNamespace(namespace string) Option {
	return func(cfg *config) {
		cfg.namespace = namespace
	}
}

// WithDurationBuckets replaces the default duration histogram buckets.
func WithDurationBuckets(buckets []float64) Option {
	return func(cfg *config) {
		cfg.buckets = buckets
	}
}

// New creates and registers the listener's metrics with the registerer.
// A nil registerer uses prometheus.DefaultRegisterer. Registration conflicts
// panic, as MustRegister does.
func New(registerer prometheus.Registerer, opts ...Option) *Listener {
	cfg := &config{
		namespace: "wingtips",
		buckets:   prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	l := &Listener{
		spansStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.namespace,
				Name:      "spans_started_total",
				Help:      "Total number of spans started",
			},
			[]string{"purpose"},
		),
		spansSampled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.namespace,
				Name:      "spans_sampled_total",
				Help:      "Total number of sampleable spans started",
			},
			[]string{"purpose"},
		),
		spansCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.namespace,
				Name:      "spans_completed_total",
				Help:      "Total number of spans completed",
			},
			[]string{"purpose", "sampled"},
		),
		spanDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.namespace,
				Name:      "span_duration_seconds",
				Help:      "Duration of completed spans in seconds",
				Buckets:   cfg.buckets,
			},
			[]string{"purpose"},
		),
	}

	registerer.MustRegister(l.spansStarted, l.spansSampled, l.spansCompleted, l.spanDuration)
	return l
}

// SpanStarted implements wingtips.SpanLifecycleListener.
func (l *Listener) SpanStarted(span *wingtips.Span) {
	l.spansStarted.WithLabelValues(string(span.Purpose())).Inc()
}

// SpanSampled implements wingtips.SpanLifecycleListener.
func (l *Listener) SpanSampled(span *wingtips.Span) {
	l.spansSampled.WithLabelValues(string(span.Purpose())).Inc()
}

// SpanCompleted implements wingtips.SpanLifecycleListener.
func (l *Listener) SpanCompleted(span *wingtips.Span) {
	purpose := string(span.Purpose())
	l.spansCompleted.WithLabelValues(purpose, strconv.FormatBool(span.Sampleable())).Inc()
	l.spanDuration.WithLabelValues(purpose).Observe(span.Duration().Seconds())
}
