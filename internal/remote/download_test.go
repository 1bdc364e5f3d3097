package remote

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestDownloadSniffsMediaType checks body bytes decide the type, not headers.
func TestDownloadSniffsMediaType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = io.WriteString(w, "<!DOCTYPE html><html><head><title>Sign in</title></head></html>")
	}))
	defer srv.Close()

	p, err := newTestClient("", "").Download(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if !p.Is("text/html") {
		t.Fatalf("mime = %q, want text/html", p.MIMEType)
	}
}

// TestDownloadNon2xxReturnsDownloadError keeps the status code.
func TestDownloadNon2xxReturnsDownloadError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestClient("", "").Download(context.Background(), srv.URL)
	var dlErr *DownloadError
	if !errors.As(err, &dlErr) || dlErr.StatusCode != http.StatusForbidden {
		t.Fatalf("error = %v, want DownloadError 403", err)
	}
}

// TestDownloadRejectsNonHTTPURLs checks scheme validation.
func TestDownloadRejectsNonHTTPURLs(t *testing.T) {
	for _, raw := range []string{"file:///etc/passwd", "ftp://example.com/x", "https://"} {
		if _, err := newTestClient("", "").Download(context.Background(), raw); err == nil {
			t.Fatalf("Download(%q) expected error", raw)
		}
	}
}

// TestDownloadCancelled checks context cancellation aborts the request.
func TestDownloadCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newTestClient("", "").Download(ctx, srv.URL); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
