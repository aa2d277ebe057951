package nethttp

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/nvanlo/wingtips"
)

// Middleware returns server middleware that runs every request inside a
// span. Upstream propagation headers continue the caller's trace; requests
// without them start a new one. The span's trace id is echoed on the
// response in the trace-id header before the handler runs so the caller can
// correlate even a failed request.
//
// Spans start named after the HTTP method and are renamed to "METHOD
// pattern" once the ServeMux pattern is known, keeping span names bounded
// regardless of path cardinality. A panicking handler leaves behind a
// completed, error-tagged span and the panic continues to the server's
// recovery layer.
func Middleware(tracer *wingtips.Tracer, opts ...Option) func(http.Handler) http.Handler {
	cfg := newConfig(opts)
	codec := wingtips.Codec{Logger: cfg.logger}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				ctx  context.Context
				span *wingtips.Span
			)
			if upstream, ok := codec.Decode(wingtips.HTTPHeaderCarrier(r.Header)); ok {
				ctx, span = tracer.ContinueExistingTrace(r.Context(), upstream, r.Method, wingtips.PurposeServer)
			} else {
				ctx, span = tracer.StartSpanInCurrentContext(r.Context(), r.Method, wingtips.PurposeServer)
			}

			w.Header().Set(wingtips.TraceIDHeader, span.TraceID())

			rec := newStatusRecorder(w)
			r = r.WithContext(ctx)

			defer tracer.CompleteSpan(span)
			defer func() {
				if p := recover(); p != nil {
					wingtips.ApplyErrorTags(cfg.logger, cfg.serverTags, span, fmt.Errorf("panic: %v", p))
					panic(p)
				}
			}()

			wingtips.ApplyRequestTags(cfg.logger, cfg.serverTags, span, r)

			next.ServeHTTP(rec, r)

			// ServeMux fills in r.Pattern while routing, so the route
			// template is only known after the handler has run.
			if r.Pattern != "" {
				span.SetName(routeSpanName(r.Method, r.Pattern))
				span.SetTag(wingtips.TagHTTPRoute, r.Pattern)
			}
			wingtips.ApplyResponseTags(cfg.logger, cfg.serverTags, span, ResponseInfo{StatusCode: rec.status})
		})
	}
}

// routeSpanName renders "METHOD pattern", avoiding a doubled method when the
// pattern was registered with one.
func routeSpanName(method, pattern string) string {
	if pattern == "" {
		return method
	}
	if strings.Contains(pattern, " ") {
		return pattern
	}
	return method + " " + pattern
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

// WriteHeader captures the status code before writing it.
func (rec *statusRecorder) WriteHeader(code int) {
	if !rec.written {
		rec.status = code
		rec.written = true
	}
	rec.ResponseWriter.WriteHeader(code)
}

// Write marks an implicit 200 when the handler never calls WriteHeader.
func (rec *statusRecorder) Write(b []byte) (int, error) {
	rec.written = true
	return rec.ResponseWriter.Write(b)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}
