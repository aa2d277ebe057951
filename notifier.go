package wingtips

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// SpanLifecycleListener receives span lifecycle notifications. All three
// callbacks run synchronously on the goroutine driving the span, so
// implementations must be fast and must not block.
type SpanLifecycleListener interface {
	// SpanStarted fires after a span is created and pushed onto its stack.
	SpanStarted(span *Span)
	// SpanSampled fires once the sampling decision is final, and only for
	// spans that are sampleable.
	SpanSampled(span *Span)
	// SpanCompleted fires exactly once, after the span has closed and its
	// duration has been recorded.
	SpanCompleted(span *Span)
}

// LifecycleNotifier is a concurrency-safe registry of lifecycle listeners.
// Listeners are notified in registration order against a snapshot of the
// registry, so mutation during notification never corrupts iteration. A
// panicking listener is logged at warning level and skipped; it can not
// disturb span state or the traced call.
type LifecycleNotifier struct {
	logger    *zap.Logger
	mu        sync.RWMutex
	listeners []SpanLifecycleListener
}

// NewLifecycleNotifier creates an empty registry. A nil logger discards the
// listener panic warnings.
func NewLifecycleNotifier(logger *zap.Logger) *LifecycleNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LifecycleNotifier{logger: logger}
}

// AddListener registers a listener. Registration order is notification
// order. Nil listeners are ignored.
func (n *LifecycleNotifier) AddListener(listener SpanLifecycleListener) {
	if listener == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, listener)
}

// RemoveListener removes a previously registered listener, comparing by
// identity. Removing an unregistered listener is a no-op.
func (n *LifecycleNotifier) RemoveListener(listener SpanLifecycleListener) {
	n.mu.Lock()
	defer n.mu.Unlock()

	// Preserve order.
	for i, registered := range n.listeners {
		if registered == listener {
			copy(n.listeners[i:], n.listeners[i+1:])
			n.listeners[len(n.listeners)-1] = nil
			n.listeners = n.listeners[:len(n.listeners)-1]
			return
		}
	}
}

// RemoveAllListeners clears the registry. Call at shutdown and test teardown.
func (n *LifecycleNotifier) RemoveAllListeners() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = nil
}

// ListenerCount returns the number of registered listeners.
func (n *LifecycleNotifier) ListenerCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}

func (n *LifecycleNotifier) notifySpanStarted(span *Span) {
	for _, listener := range n.snapshot() {
		n.safeNotify("SpanStarted", listener, span, listener.SpanStarted)
	}
}

func (n *LifecycleNotifier) notifySpanSampled(span *Span) {
	for _, listener := range n.snapshot() {
		n.safeNotify("SpanSampled", listener, span, listener.SpanSampled)
	}
}

func (n *LifecycleNotifier) notifySpanCompleted(span *Span) {
	for _, listener := range n.snapshot() {
		n.safeNotify("SpanCompleted", listener, span, listener.SpanCompleted)
	}
}

// safeNotify invokes one listener callback, containing any panic.
func (n *LifecycleNotifier) safeNotify(event string, listener SpanLifecycleListener, span *Span, notify func(*Span)) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Warn("span lifecycle listener panicked",
				zap.String("event", event),
				zap.String("listener", fmt.Sprintf("%T", listener)),
				zap.String("trace_id", span.TraceID()),
				zap.String("span_id", span.SpanID()),
				zap.Any("panic", r),
			)
		}
	}()
	notify(span)
}

func (n *LifecycleNotifier) snapshot() []SpanLifecycleListener {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if len(n.listeners) == 0 {
		return nil
	}
	listeners := make([]SpanLifecycleListener, len(n.listeners))
	copy(listeners, n.listeners)
	return listeners
}
