package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultMaxImageBytes caps a single downloaded screenshot
const DefaultMaxImageBytes = 10 * 1024 * 1024

// ErrImageTooLarge is returned when a download exceeds the size cap
var ErrImageTooLarge = errors.New("image exceeds size limit")

// ImageSource loads the raw bytes of a screenshot referenced by URL
type ImageSource interface {
	FetchImage(ctx context.Context, imageURL string) ([]byte, error)
}

// HTTPImageSource downloads screenshots over HTTP(S) with bounded retries
type HTTPImageSource struct {
	client   *http.Client
	maxBytes int64
	attempts int
	backoff  func(attempt int) time.Duration
}

// NewHTTPImageSource creates an HTTP image source whose client gives up after timeout
func NewHTTPImageSource(timeout time.Duration) *HTTPImageSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := &http.Transport{
		// Connection pooling sized for single screenshot downloads
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,
	}

	return &HTTPImageSource{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		maxBytes: DefaultMaxImageBytes,
		attempts: 3,
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt+1) * time.Second
		},
	}
}

// WithBackoff replaces the delay between attempts
func (h *HTTPImageSource) WithBackoff(backoff func(attempt int) time.Duration) *HTTPImageSource {
	h.backoff = backoff
	return h
}

// WithMaxBytes replaces the download size cap
func (h *HTTPImageSource) WithMaxBytes(n int64) *HTTPImageSource {
	h.maxBytes = n
	return h
}

// FetchImage retries transport errors and 5xx responses; 4xx responses fail immediately.
func (h *HTTPImageSource) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "image/png, image/jpeg, */*")
	req.Header.Set("User-Agent", "Go-RedFlag-Detector/1.0")

	var lastErr error
	for attempt := 0; attempt < h.attempts; attempt++ {
		resp, err := h.client.Do(req)
		if err != nil {
			lastErr = err
		} else {
			data, retry, err := h.readResponse(resp)
			if err == nil {
				return data, nil
			}
			lastErr = err
			if !retry {
				break
			}
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt < h.attempts-1 {
			timer := time.NewTimer(h.backoff(attempt))
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			}
		}
	}

	return nil, fmt.Errorf("failed to fetch image after %d attempts: %w", h.attempts, lastErr)
}

// readResponse consumes and closes resp. retry reports whether the failure is transient.
func (h *HTTPImageSource) readResponse(resp *http.Response) (data []byte, retry bool, err error) {
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, false, fmt.Errorf("client error: status code %d", resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("server error: status code %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	data, err = io.ReadAll(io.LimitReader(resp.Body, h.maxBytes+1))
	if err != nil {
		return nil, true, fmt.Errorf("read image body: %w", err)
	}
	if int64(len(data)) > h.maxBytes {
		return nil, false, ErrImageTooLarge
	}
	return data, false, nil
}
