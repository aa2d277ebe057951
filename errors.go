package wingtips

import (
	"errors"
	"fmt"
)

// ErrInvalidBufferSize is returned by Config.Validate when the collector
// buffer size is not positive.
var ErrInvalidBufferSize = errors.New("collector buffer size must be positive")

// SpanStackViolationError reports a span-stack contract violation, such as
// completing a span that is not the current span of its call stack. It is
// used as a panic value: this is a programmer error, and tolerating it
// silently would corrupt trace topology.
type SpanStackViolationError struct {
	Op        string // The operation that detected the violation.
	SpanID    string // The span the operation was applied to.
	CurrentID string // The actual current span, empty if the stack was empty.
}

func (e *SpanStackViolationError) Error() string {
	if e.CurrentID == "" {
		return fmt.Sprintf("wingtips: %s span %s: span stack is empty", e.Op, e.SpanID)
	}
	return fmt.Sprintf("wingtips: %s span %s: not the current span (current is %s)", e.Op, e.SpanID, e.CurrentID)
}
