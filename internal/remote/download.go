package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const maxDownloadBytes = 25 << 20

// DownloadError reports a non-2xx response from a result link.
type DownloadError struct {
	StatusCode int    `json:"statusCode"`
	URL        string `json:"url"`
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download failed: HTTP %d", e.StatusCode)
}

// Payload is a downloaded result file with its sniffed media type.
type Payload struct {
	URL      string
	Body     []byte
	MIMEType string
}

// Is reports whether the payload's media type matches mime, ignoring
// parameters such as charset.
func (p Payload) Is(mime string) bool {
	base, _, _ := strings.Cut(p.MIMEType, ";")
	return strings.EqualFold(strings.TrimSpace(base), mime)
}

// Download fetches a result link. Cancelling ctx aborts the transfer.
func (c *Client) Download(ctx context.Context, rawURL string) (Payload, error) {
	if err := validateDownloadURL(rawURL); err != nil {
		return Payload{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Payload{}, fmt.Errorf("build download request: %w", err)
	}
	c.setCommonHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Payload{}, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Payload{}, &DownloadError{StatusCode: resp.StatusCode, URL: rawURL}
	}

	lr := &io.LimitedReader{R: resp.Body, N: maxDownloadBytes + 1}
	body, err := io.ReadAll(lr)
	if err != nil {
		return Payload{}, fmt.Errorf("read download: %w", err)
	}
	if int64(len(body)) > maxDownloadBytes {
		return Payload{}, fmt.Errorf("file exceeds %dMB limit", maxDownloadBytes/(1<<20))
	}

	return Payload{
		URL:      rawURL,
		Body:     body,
		MIMEType: strings.ToLower(mimetype.Detect(body).String()),
	}, nil
}

func validateDownloadURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url has no host")
	}
	return nil
}
