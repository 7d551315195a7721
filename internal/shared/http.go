package shared

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitedTransport waits on a token bucket before handing each request to the wrapped [http.RoundTripper].
type RateLimitedTransport struct {
	limiter *rate.Limiter
	base    http.RoundTripper
}

// NewRateLimitedTransport wraps base, which defaults to [http.DefaultTransport].
//
// A non-positive rps disables limiting.
func NewRateLimitedTransport(base http.RoundTripper, rps float64, burst int) *RateLimitedTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedTransport{limiter: rate.NewLimiter(limit, burst), base: base}
}

// RoundTrip implements [http.RoundTripper]. It returns early if the request context ends while waiting.
func (t *RateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}

// NewHTTPClient returns the outbound client used by every data source.
func NewHTTPClient(cfg HTTPConfig, base http.RoundTripper) *http.Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: NewRateLimitedTransport(base, cfg.RequestsPerSecond, cfg.Burst),
	}
}
