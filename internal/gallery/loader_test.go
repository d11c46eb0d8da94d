package gallery

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPLoaderSuccessSendsKey(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte{0xff, 0xd8, 0xff})
	}))
	defer srv.Close()

	l := NewHTTPLoader(HTTPConfig{APIKey: func() string { return "secret" }})
	if err := l.Load(context.Background(), srv.URL+"/cat?t=1"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if gotKey != "secret" {
		t.Errorf("x-api-key = %q, want secret", gotKey)
	}
}

func TestHTTPLoaderOmitsEmptyKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["X-Api-Key"]; ok {
			t.Error("empty key was sent")
		}
	}))
	defer srv.Close()

	l := NewHTTPLoader(HTTPConfig{APIKey: func() string { return "" }})
	if err := l.Load(context.Background(), srv.URL); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestHTTPLoaderStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewHTTPLoader(HTTPConfig{}).Load(context.Background(), srv.URL)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Load error = %v, want *HTTPError", err)
	}
	if httpErr.StatusCode != http.StatusServiceUnavailable || !httpErr.IsRetryable() {
		t.Errorf("HTTPError = %+v", httpErr)
	}
}

func TestHTTPLoaderTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	l := NewHTTPLoader(HTTPConfig{Timeout: 50 * time.Millisecond})
	if err := l.Load(context.Background(), srv.URL); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestSimulatedLoader(t *testing.T) {
	if err := (SimulatedLoader{}).Load(context.Background(), "x"); err != nil {
		t.Errorf("Load = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (SimulatedLoader{}).Load(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("Load on cancelled context = %v", err)
	}
}
