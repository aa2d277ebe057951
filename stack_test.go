package wingtips

import (
	"context"
	"errors"
	"testing"
)

func TestSpanStackCurrentAndDepth(t *testing.T) {
	tracer := NewTracer()
	defer tracer.Close()

	ctx, outer := tracer.StartSpanInCurrentContext(context.Background(), "outer", PurposeServer)
	stack := SpanStackFromContext(ctx)

	if stack.Current() != outer {
		t.Error("Expected outer span to be current")
	}
	if stack.Depth() != 1 {
		t.Errorf("Expected depth 1, got %d", stack.Depth())
	}

	_, inner := tracer.StartSpanInCurrentContext(ctx, "inner", PurposeLocalOnly)
	if stack.Current() != inner {
		t.Error("Expected inner span to be current")
	}
	if stack.Depth() != 2 {
		t.Errorf("Expected depth 2, got %d", stack.Depth())
	}

	inner.Close()
	if stack.Current() != outer {
		t.Error("Expected outer span to be current again after inner closed")
	}

	outer.Close()
	if stack.Current() != nil {
		t.Error("Expected empty stack after all spans closed")
	}
}

func TestSpanStackSnapshot(t *testing.T) {
	tracer := NewTracer()
	defer tracer.Close()

	ctx, outer := tracer.StartSpanInCurrentContext(context.Background(), "outer", PurposeServer)
	ctx, inner := tracer.StartSpanInCurrentContext(ctx, "inner", PurposeLocalOnly)
	defer outer.Close()
	defer inner.Close()

	snap := SpanStackFromContext(ctx).Snapshot()
	if len(snap) != 2 || snap[0] != outer || snap[1] != inner {
		t.Errorf("Expected snapshot [outer inner], got %d spans", len(snap))
	}

	// Mutating the snapshot must not affect the stack.
	snap[0] = nil
	if SpanStackFromContext(ctx).Current() != inner {
		t.Error("Expected snapshot mutation to leave the stack untouched")
	}
}

// Completing a span that is not the top of its stack is a programmer error
// and must fail loudly rather than corrupt trace topology.
func TestSpanStackOutOfOrderCompletionPanics(t *testing.T) {
	tracer := NewTracer()
	defer tracer.Close()

	ctx, outer := tracer.StartSpanInCurrentContext(context.Background(), "outer", PurposeServer)
	_, inner := tracer.StartSpanInCurrentContext(ctx, "inner", PurposeLocalOnly)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("Expected out-of-order completion to panic")
		}
		violation, ok := r.(*SpanStackViolationError)
		if !ok {
			t.Fatalf("Expected *SpanStackViolationError, got %T", r)
		}
		if violation.SpanID != outer.SpanID() {
			t.Errorf("Expected violation to name span %s, got %s", outer.SpanID(), violation.SpanID)
		}
		if violation.CurrentID != inner.SpanID() {
			t.Errorf("Expected violation to name current span %s, got %s", inner.SpanID(), violation.CurrentID)
		}
		var err error = violation
		if err.Error() == "" {
			t.Error("Expected a descriptive violation message")
		}
	}()

	outer.Close() // inner is still open: must panic.
}

func TestSpanStackViolationErrorMessage(t *testing.T) {
	emptyStack := &SpanStackViolationError{Op: "pop", SpanID: "abc"}
	if emptyStack.Error() != "wingtips: pop span abc: span stack is empty" {
		t.Errorf("Unexpected message: %s", emptyStack.Error())
	}

	mismatch := &SpanStackViolationError{Op: "pop", SpanID: "abc", CurrentID: "def"}
	if mismatch.Error() != "wingtips: pop span abc: not the current span (current is def)" {
		t.Errorf("Unexpected message: %s", mismatch.Error())
	}

	var target *SpanStackViolationError
	if !errors.As(error(mismatch), &target) {
		t.Error("Expected errors.As to match the violation type")
	}
}

func TestCurrentSpanWithoutTrace(t *testing.T) {
	if CurrentSpan(context.Background()) != nil {
		t.Error("Expected nil current span for a bare context")
	}
	if CurrentSpan(nil) != nil { //nolint:staticcheck // Deliberate nil-context check.
		t.Error("Expected nil current span for a nil context")
	}
	if SpanStackFromContext(context.Background()) != nil {
		t.Error("Expected nil stack for a bare context")
	}
	if TracerFromContext(context.Background()) != nil {
		t.Error("Expected nil tracer for a bare context")
	}
}
