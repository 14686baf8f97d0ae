package httputil

import (
	"net/http"
	"time"
)

const (
	DefaultTimeout = 60 * time.Second
	UserAgent      = "wxmap/1.0 (+https://github.com/lox/wxmap)"
)

// NewClient returns an HTTP client for station data downloads. Every request
// carries the wxmap user agent unless the caller set one.
func NewClient() *http.Client {
	return &http.Client{
		Timeout:   DefaultTimeout,
		Transport: &userAgent{next: http.DefaultTransport},
	}
}

type userAgent struct {
	next http.RoundTripper
}

func (t *userAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.Header.Get("User-Agent") != "" {
		return t.next.RoundTrip(r)
	}
	r = r.Clone(r.Context())
	r.Header.Set("User-Agent", UserAgent)
	return t.next.RoundTrip(r)
}
