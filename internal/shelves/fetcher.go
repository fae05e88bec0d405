package shelves

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxPageBytes = 8 << 20

// HTTPFetcher downloads shelves pages from {BaseURL}/book/shelves/{id}.
type HTTPFetcher struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewHTTPFetcher constructs a fetcher. A nil client uses a fresh http.Client;
// per-call timeouts come from the Fetch argument.
func NewHTTPFetcher(baseURL, userAgent string, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPFetcher{
		baseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		userAgent: strings.TrimSpace(userAgent),
		client:    client,
	}
}

// URL returns the shelves page address for vendorID.
func (f *HTTPFetcher) URL(vendorID string) string {
	return f.baseURL + "/book/shelves/" + url.PathEscape(strings.TrimSpace(vendorID))
}

// Fetch retrieves the page. A non-positive timeout relies on ctx alone.
func (f *HTTPFetcher) Fetch(ctx context.Context, vendorID string, timeout time.Duration) ([]byte, error) {
	if strings.TrimSpace(vendorID) == "" {
		return nil, fmt.Errorf("%w: empty vendor id", ErrFetch)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	target := f.URL(vendorID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrFetch, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s: timed out after %s", ErrFetch, target, timeout)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %s: unexpected status %d", ErrFetch, target, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %w", ErrFetch, target, err)
	}
	if len(body) > maxPageBytes {
		return nil, fmt.Errorf("%w: %s: page exceeds %d bytes", ErrFetch, target, maxPageBytes)
	}
	return body, nil
}
