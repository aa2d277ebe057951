// Package nethttp connects wingtips tracing to net/http servers and clients.
//
// Middleware wraps an http.Handler so every request runs inside a server
// span, continuing an upstream trace when propagation headers are present
// and starting a new one otherwise. NewRoundTripper wraps an
// http.RoundTripper so outgoing requests carry propagation headers, by
// default inside a client subspan that times the call.
//
//	tracer := wingtips.NewTracer(wingtips.WithServiceName("orders"))
//	mux := http.NewServeMux()
//	mux.HandleFunc("GET /users/{id}", getUser)
//	handler := nethttp.Middleware(tracer)(mux)
//
//	client := &http.Client{Transport: nethttp.NewRoundTripper(tracer, nil)}
package nethttp
