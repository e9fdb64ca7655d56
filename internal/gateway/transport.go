package gateway

import (
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/time/rate"
)

// rateLimitedTransport spaces out requests so a long report stays polite to the API.
type rateLimitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func newRateLimitedTransport(base http.RoundTripper, rps float64) http.RoundTripper {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &rateLimitedTransport{base: base, limiter: rate.NewLimiter(limit, 1)}
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, goerr.Wrap(err, "gave up waiting for request slot", goerr.V("url", req.URL.String()))
	}
	return t.base.RoundTrip(req)
}
