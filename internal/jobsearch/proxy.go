package jobsearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

type httpClientKey struct{}

// WithHTTPClient scopes an HTTP client override to the request, used to route
// a single search through a caller-supplied proxy.
func WithHTTPClient(ctx context.Context, client *http.Client) context.Context {
	if client == nil {
		return ctx
	}
	return context.WithValue(ctx, httpClientKey{}, client)
}

func httpClientFrom(ctx context.Context, fallback *http.Client) *http.Client {
	if client, ok := ctx.Value(httpClientKey{}).(*http.Client); ok && client != nil {
		return client
	}
	return fallback
}

// ProxyClient builds an HTTP client that routes requests through the given
// proxy URL.
func ProxyClient(proxyURL string) (*http.Client, error) {
	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid proxy url %q", proxyURL)
	}
	return &http.Client{
		Timeout: 15 * time.Second,
		Transport: &http.Transport{
			Proxy: http.ProxyURL(u),
		},
	}, nil
}
