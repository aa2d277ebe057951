package wingtips

import (
	"context"
	"fmt"
)

// WrapCall runs call inside a subspan with guaranteed completion: the span
// opens and is request-tagged before the call runs, is response-tagged on
// success or error-tagged on failure, and closes exactly once on every exit
// path. The call's own error is returned unmodified; tagging failures never
// mask it. A panicking call is error-tagged and the panic re-raised.
//
// A timed-out call is just a failing call: the context expiry error arrives
// like any other, leaving the span closed with an error tag and an accurate
// duration. There is no separate abandoned-span state.
func WrapCall[REQ any, RES any](
	tracer *Tracer,
	ctx context.Context,
	name string,
	purpose SpanPurpose,
	strategy TagStrategy[REQ, RES],
	req REQ,
	call func(context.Context) (RES, error),
) (RES, error) {
	ctx, span := tracer.StartSpanInCurrentContext(ctx, name, purpose)
	defer tracer.CompleteSpan(span)
	defer func() {
		if r := recover(); r != nil {
			ApplyErrorTags(tracer.logger, strategy, span, fmt.Errorf("panic: %v", r))
			panic(r)
		}
	}()

	ApplyRequestTags(tracer.logger, strategy, span, req)

	res, err := call(ctx)
	if err != nil {
		ApplyErrorTags(tracer.logger, strategy, span, err)
		return res, err
	}

	ApplyResponseTags(tracer.logger, strategy, span, res)
	return res, nil
}
