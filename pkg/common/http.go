package common

import (
	_ "embed"
	"net/http"
	"strings"
	"time"
)

//go:embed VERSION
var version string

type userAgentTransport struct {
	transport http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request so we don't mutate headers of a request that might
	// be shared or reused.
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.transport.RoundTrip(req)
}

// HTTPClient returns an http client with the given timeout and a HomeFlux
// user-agent set on every request.
func HTTPClient(timeout time.Duration) *http.Client {
	v := strings.TrimSpace(version)

	return &http.Client{
		Transport: &userAgentTransport{
			transport: http.DefaultTransport,
			userAgent: "HomeFlux/" + v,
		},
		Timeout: timeout,
	}
}
