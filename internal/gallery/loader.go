package gallery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Loader fetches one image reference. A nil error means the bytes arrived.
type Loader interface {
	Load(ctx context.Context, url string) error
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, url string) error

func (f LoaderFunc) Load(ctx context.Context, url string) error { return f(ctx, url) }

// SimulatedLoader completes every load immediately without touching the network.
type SimulatedLoader struct{}

func (SimulatedLoader) Load(ctx context.Context, _ string) error { return ctx.Err() }

// HTTPError is a non-2xx response from the image host.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("gallery: HTTP %d for %s", e.StatusCode, e.URL)
}

// IsRetryable returns true for rate limits and server errors.
func (e *HTTPError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// HTTPConfig configures an HTTPLoader.
type HTTPConfig struct {
	// Timeout bounds a single load. Defaults to 15 seconds if zero.
	Timeout time.Duration

	// MaxBytes caps how much of a body is read. Defaults to 10 MiB if zero.
	MaxBytes int64

	// APIKey returns the key sent as x-api-key, or "" for none. Optional.
	APIKey func() string

	// UserAgent overrides the User-Agent header. Optional.
	UserAgent string

	// HTTPClient allows injecting a custom HTTP client (useful for testing).
	HTTPClient *http.Client
}

// HTTPLoader downloads images so the host cache is warm when they are shown.
type HTTPLoader struct {
	config HTTPConfig
	http   *http.Client
}

// NewHTTPLoader creates a loader with the given configuration.
func NewHTTPLoader(cfg HTTPConfig) *HTTPLoader {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = 10 << 20
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &HTTPLoader{config: cfg, http: httpClient}
}

// Load fetches url and drains the body.
func (l *HTTPLoader) Load(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, l.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("gallery: create request: %w", err)
	}
	req.Header.Set("Accept", "image/*")
	if l.config.UserAgent != "" {
		req.Header.Set("User-Agent", l.config.UserAgent)
	}
	if l.config.APIKey != nil {
		if key := l.config.APIKey(); key != "" {
			req.Header.Set("x-api-key", key)
		}
	}

	resp, err := l.http.Do(req)
	if err != nil {
		return fmt.Errorf("gallery: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{StatusCode: resp.StatusCode, URL: url}
	}
	if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, l.config.MaxBytes)); err != nil {
		return fmt.Errorf("gallery: read body: %w", err)
	}
	return nil
}
