package nethttp

import (
	"net/http"
	"strconv"

	"github.com/nvanlo/wingtips"
)

// ResponseInfo carries the response attributes available to a server tag
// strategy once the handler has finished.
type ResponseInfo struct {
	StatusCode int
}

// ZipkinServerTagStrategy tags server spans with Zipkin-convention HTTP
// attributes: method, path, status code, and an error tag for 5xx responses
// or handler failures.
type ZipkinServerTagStrategy struct{}

// TagSpanWithRequestAttributes implements wingtips.TagStrategy.
func (ZipkinServerTagStrategy) TagSpanWithRequestAttributes(span *wingtips.Span, r *http.Request) {
	span.SetTag(wingtips.TagSpanHandler, "nethttp.server")
	span.SetTag(wingtips.TagHTTPMethod, r.Method)
	span.SetTag(wingtips.TagHTTPPath, r.URL.Path)
}

// TagSpanWithResponseAttributes implements wingtips.TagStrategy.
func (ZipkinServerTagStrategy) TagSpanWithResponseAttributes(span *wingtips.Span, res ResponseInfo) {
	span.SetTag(wingtips.TagHTTPStatusCode, strconv.Itoa(res.StatusCode))
	if res.StatusCode >= http.StatusInternalServerError {
		span.SetTag(wingtips.TagError, http.StatusText(res.StatusCode))
	}
}

// HandleErroredRequest implements wingtips.TagStrategy.
func (ZipkinServerTagStrategy) HandleErroredRequest(span *wingtips.Span, err error) {
	span.SetTag(wingtips.TagError, errorTagValue(err))
}

// ZipkinClientTagStrategy tags client spans with Zipkin-convention HTTP
// attributes: method, full URL, status code, and an error tag for 5xx
// responses or transport failures.
type ZipkinClientTagStrategy struct{}

// TagSpanWithRequestAttributes implements wingtips.TagStrategy.
func (ZipkinClientTagStrategy) TagSpanWithRequestAttributes(span *wingtips.Span, r *http.Request) {
	span.SetTag(wingtips.TagSpanHandler, "nethttp.client")
	span.SetTag(wingtips.TagHTTPMethod, r.Method)
	span.SetTag(wingtips.TagHTTPURL, r.URL.String())
	span.SetTag(wingtips.TagHTTPPath, r.URL.Path)
}

// TagSpanWithResponseAttributes implements wingtips.TagStrategy.
func (ZipkinClientTagStrategy) TagSpanWithResponseAttributes(span *wingtips.Span, res *http.Response) {
	if res == nil {
		return
	}
	span.SetTag(wingtips.TagHTTPStatusCode, strconv.Itoa(res.StatusCode))
	if res.StatusCode >= http.StatusInternalServerError {
		span.SetTag(wingtips.TagError, http.StatusText(res.StatusCode))
	}
}

// HandleErroredRequest implements wingtips.TagStrategy.
func (ZipkinClientTagStrategy) HandleErroredRequest(span *wingtips.Span, err error) {
	span.SetTag(wingtips.TagError, errorTagValue(err))
}

func errorTagValue(err error) string {
	if err == nil || err.Error() == "" {
		return "true"
	}
	return err.Error()
}
