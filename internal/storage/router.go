package storage

import (
	"context"
	"fmt"
	"net/url"
)

// hostServer is implemented by sources bound to a single blob account
type hostServer interface {
	Serves(host string) bool
}

// Router sends blob-storage URLs to the Azure source and everything else over HTTP.
// Blobs in other accounts go over HTTP like any public URL.
type Router struct {
	http  ImageSource
	azure ImageSource
}

// NewRouter builds a router; azure may be nil when no account is configured
func NewRouter(httpSource ImageSource, azureSource ImageSource) *Router {
	return &Router{http: httpSource, azure: azureSource}
}

func (r *Router) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	u, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if r.azure != nil && r.routesToAzure(u.Hostname()) {
		return r.azure.FetchImage(ctx, imageURL)
	}
	if r.http == nil {
		return nil, fmt.Errorf("no image source for %q", u.Host)
	}
	return r.http.FetchImage(ctx, imageURL)
}

func (r *Router) routesToAzure(host string) bool {
	if hs, ok := r.azure.(hostServer); ok {
		return hs.Serves(host)
	}
	return IsBlobHost(host)
}
