package restytrace

import (
	"net/http"
	"strconv"

	"github.com/go-resty/resty/v2"

	"github.com/nvanlo/wingtips"
)

// ZipkinTagStrategy tags client subspans with Zipkin-convention HTTP
// attributes.
type ZipkinTagStrategy struct{}

// TagSpanWithRequestAttributes implements wingtips.TagStrategy.
func (ZipkinTagStrategy) TagSpanWithRequestAttributes(span *wingtips.Span, req *resty.Request) {
	span.SetTag(wingtips.TagSpanHandler, "restytrace.client")
	span.SetTag(wingtips.TagHTTPMethod, req.Method)
	span.SetTag(wingtips.TagHTTPURL, req.URL)
}

// TagSpanWithResponseAttributes implements wingtips.TagStrategy.
func (ZipkinTagStrategy) TagSpanWithResponseAttributes(span *wingtips.Span, resp *resty.Response) {
	if resp == nil {
		return
	}
	span.SetTag(wingtips.TagHTTPStatusCode, strconv.Itoa(resp.StatusCode()))
	if resp.StatusCode() >= http.StatusInternalServerError {
		span.SetTag(wingtips.TagError, http.StatusText(resp.StatusCode()))
	}
}

// HandleErroredRequest implements wingtips.TagStrategy.
func (ZipkinTagStrategy) HandleErroredRequest(span *wingtips.Span, err error) {
	if err == nil || err.Error() == "" {
		span.SetTag(wingtips.TagError, "true")
		return
	}
	span.SetTag(wingtips.TagError, err.Error())
}
