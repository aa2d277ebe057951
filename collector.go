package wingtips

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	// collectorMinCap is the smallest backing array the buffer grows or
	// shrinks to once it has seen traffic.
	collectorMinCap = 32

	// collectorShrinkThreshold is the capacity above which Export considers
	// releasing memory back to the runtime.
	collectorShrinkThreshold = 256

	// collectorCloseWait bounds how long Close waits for the intake
	// goroutine to drain.
	collectorCloseWait = 100 * time.Millisecond
)

// SpanCollector buffers completed spans for batch export. It implements
// SpanLifecycleListener so it can be registered directly with a tracer's
// notifier; start and sample notifications are ignored.
//
// Collection is asynchronous with backpressure protection: when the intake
// channel is full the span is dropped and counted instead of blocking the
// goroutine completing the span. Safe for concurrent use.
//
//nolint:govet // Field alignment optimized for readability over memory
type SpanCollector struct {
	spans       []*Span
	intake      chan *Span
	quit        chan struct{}
	drained     chan struct{}
	dropped     atomic.Int64
	closed      atomic.Bool
	mu          sync.Mutex
	synchronous bool // Bypass the channel for synchronous collection.
}

// NewSpanCollector creates a collector whose intake channel holds up to
// bufferSize spans.
func NewSpanCollector(bufferSize int) *SpanCollector {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	c := &SpanCollector{
		spans:   make([]*Span, 0, 8),
		intake:  make(chan *Span, bufferSize),
		quit:    make(chan struct{}),
		drained: make(chan struct{}),
	}
	go c.run()
	return c
}

// SpanStarted implements SpanLifecycleListener.
func (*SpanCollector) SpanStarted(*Span) {}

// SpanSampled implements SpanLifecycleListener.
func (*SpanCollector) SpanSampled(*Span) {}

// SpanCompleted implements SpanLifecycleListener by collecting the span.
func (c *SpanCollector) SpanCompleted(span *Span) {
	c.Collect(span)
}

// run receives spans until the collector closes, draining whatever is still
// queued on shutdown.
func (c *SpanCollector) run() {
	defer close(c.drained)

	for {
		select {
		case <-c.quit:
			for {
				select {
				case span := <-c.intake:
					c.buffer(span)
				default:
					return
				}
			}
		case span := <-c.intake:
			c.buffer(span)
		}
	}
}

// Collect buffers a completed span. Spans arriving while the intake channel
// is full, or after Close, are dropped and counted. Completed spans reject
// further writes, so the collector can hold them without copying.
func (c *SpanCollector) Collect(span *Span) {
	if span == nil {
		c.dropped.Add(1)
		return
	}
	if c.closed.Load() {
		c.dropped.Add(1)
		return
	}

	if c.synchronous {
		// Direct synchronous collection for deterministic tests.
		c.buffer(span)
		return
	}

	select {
	case c.intake <- span:
	default:
		// Channel full - drop rather than block the completing goroutine.
		c.dropped.Add(1)
	}
}

func (c *SpanCollector) buffer(span *Span) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.spans) == cap(c.spans) {
		// Double small buffers, grow large ones by half to cap memory churn.
		next := cap(c.spans) * 2
		if cap(c.spans) >= 1024 {
			next = cap(c.spans) + cap(c.spans)/2
		}
		if next < collectorMinCap {
			next = collectorMinCap
		}
		grown := make([]*Span, len(c.spans), next)
		copy(grown, c.spans)
		c.spans = grown
	}
	c.spans = append(c.spans, span)
}

// Export returns the buffered spans and clears the buffer. Exported spans
// are completed and therefore frozen; sharing them is safe.
func (c *SpanCollector) Export() []*Span {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.spans) == 0 {
		return nil
	}

	result := make([]*Span, len(c.spans))
	copy(result, c.spans)

	// A buffer sitting far below a large capacity gets reallocated smaller;
	// otherwise the backing array is kept and reused.
	oversized := cap(c.spans) > collectorShrinkThreshold && len(c.spans) < cap(c.spans)/8
	if oversized {
		next := cap(c.spans) / 4
		if next < collectorMinCap {
			next = collectorMinCap
		}
		c.spans = make([]*Span, 0, next)
	} else {
		c.spans = c.spans[:0]
	}

	return result
}

// Count reports how many spans are currently buffered.
func (c *SpanCollector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.spans)
}

// DroppedCount returns the total number of spans dropped under backpressure
// or after close.
func (c *SpanCollector) DroppedCount() int64 {
	return c.dropped.Load()
}

// SetSyncMode switches to synchronous collection, making tests
// deterministic by eliminating the intake channel. Set before traffic.
func (c *SpanCollector) SetSyncMode(sync bool) {
	c.synchronous = sync
}

// Reset clears buffered spans and the drop counter without stopping the
// collector.
func (c *SpanCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.spans = c.spans[:0]
	c.dropped.Store(0)
}

// Close drains queued spans and stops the intake goroutine. Idempotent.
func (c *SpanCollector) Close() {
	if c.closed.Swap(true) {
		return
	}
	close(c.quit)
	select {
	case <-c.drained:
	case <-time.After(collectorCloseWait):
		// Shutdown timed out; abandoned spans stay queued.
	}
}
