package benchmarks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nvanlo/wingtips"
	"github.com/nvanlo/wingtips/nethttp"
)

// BenchmarkCodecEncode measures the cost of writing propagation headers for
// an outbound call.
func BenchmarkCodecEncode(b *testing.B) {
	tracer := quietTracer(b)

	ctx, parent := tracer.StartSpanInCurrentContext(context.Background(), "caller", wingtips.PurposeServer)
	_, span := tracer.StartSpanInCurrentContext(ctx, "downstream-call", wingtips.PurposeClient)
	defer func() {
		tracer.CompleteSpan(span)
		tracer.CompleteSpan(parent)
	}()

	codec := wingtips.Codec{}
	headers := make(http.Header)

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		codec.Encode(span, wingtips.HTTPHeaderCarrier(headers))
	}
}

// BenchmarkCodecDecode measures inbound header parsing, the per-request cost
// every traced server pays.
func BenchmarkCodecDecode(b *testing.B) {
	codec := wingtips.Codec{}
	headers := make(http.Header)
	headers.Set(wingtips.TraceIDHeader, "463ac35c9f6413ad48485a3953bb6124")
	headers.Set(wingtips.SpanIDHeader, "a2fb4a1d1a96d312")
	headers.Set(wingtips.ParentSpanIDHeader, "48485a3953bb6124")
	headers.Set(wingtips.SpanNameHeader, "GET+%2Forders")
	headers.Set(wingtips.TraceSampledHeader, "true")

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		info, ok := codec.Decode(wingtips.HTTPHeaderCarrier(headers))
		if !ok {
			b.Fatal("Decode rejected valid headers")
		}
		_ = info
	}
}

// BenchmarkWrapCall measures the full subspan envelope around a no-op call.
func BenchmarkWrapCall(b *testing.B) {
	tracer := quietTracer(b)
	ctx := context.Background()
	strategy := wingtips.NoopTagStrategy[int, int]{}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = wingtips.WrapCall(tracer, ctx, "wrapped", wingtips.PurposeLocalOnly, strategy, i,
			func(context.Context) (int, error) {
				return 0, nil
			})
	}
	b.ReportMetric(float64(b.N)/b.Elapsed().Seconds(), "spans/sec")
}

// BenchmarkMiddlewareRequest measures the tracing overhead added to one
// served request, without network costs.
func BenchmarkMiddlewareRequest(b *testing.B) {
	tracer := quietTracer(b)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := nethttp.Middleware(tracer)(mux)

	req := httptest.NewRequest(http.MethodGet, "/orders/42", nil)
	req.Header.Set(wingtips.TraceIDHeader, "463ac35c9f6413ad48485a3953bb6124")
	req.Header.Set(wingtips.SpanIDHeader, "a2fb4a1d1a96d312")

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}

// BenchmarkSubspanName measures downstream-call name construction, which
// runs once per instrumented client request.
func BenchmarkSubspanName(b *testing.B) {
	for i := 0; i < b.N; i++ {
		name := wingtips.SubspanName("nethttp_downstream_call", http.MethodGet, "http://inventory.internal/stock?sku=123#frag")
		_ = name
	}
}
