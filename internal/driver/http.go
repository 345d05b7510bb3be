package driver

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/sync/semaphore"
)

// defaultHTTPConcurrency bounds in-flight range GETs per HTTPDriver,
// grounded on the pack's parallel range-GET transport's per-host
// semaphore (reimplemented here with a context-cancelable weighted
// semaphore instead of a buffered channel).
const defaultHTTPConcurrency = 8

// HTTPDriver issues Range-GET requests against a single URL, matching
// webdriver.py's bearer-token session plus Range header construction.
type HTTPDriver struct {
	client *http.Client
	url    string
	token  string
	sem    *semaphore.Weighted
}

// HTTPOption configures an HTTPDriver at construction.
type HTTPOption func(*HTTPDriver)

// WithBearerToken sets the Authorization header used on every request.
func WithBearerToken(token string) HTTPOption {
	return func(d *HTTPDriver) { d.token = token }
}

// WithMaxConnections overrides the per-driver in-flight request bound.
func WithMaxConnections(n int64) HTTPOption {
	return func(d *HTTPDriver) { d.sem = semaphore.NewWeighted(n) }
}

// OpenHTTP builds a driver reading byte ranges from url.
func OpenHTTP(url string, opts ...HTTPOption) *HTTPDriver {
	d := &HTTPDriver{
		client: &http.Client{},
		url:    url,
		sem:    semaphore.NewWeighted(defaultHTTPConcurrency),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *HTTPDriver) ReadRange(ctx context.Context, offset, size int64) ([]byte, error) {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return nil, ioError("http range acquire", err)
	}
	defer d.sem.Release(1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return nil, ioError("http range request build", err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", offset, offset+size-1))
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, ioError("http range do", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent && resp.StatusCode != http.StatusOK {
		return nil, ioError("http range status", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ioError("http range body", err)
	}
	if int64(len(buf)) != size {
		return nil, ioError("http range short read", fmt.Errorf("got %d bytes, want %d", len(buf), size))
	}
	return buf, nil
}

// Copy shares the underlying *http.Client (its Transport already pools
// connections) but allocates an independent semaphore so a process-mode
// worker never waits on the original handle's in-flight bound.
func (d *HTTPDriver) Copy() (Driver, error) {
	return &HTTPDriver{
		client: d.client,
		url:    d.url,
		token:  d.token,
		sem:    semaphore.NewWeighted(defaultHTTPConcurrency),
	}, nil
}

func (d *HTTPDriver) Close() error {
	d.client.CloseIdleConnections()
	return nil
}
