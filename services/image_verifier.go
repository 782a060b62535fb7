package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ImageVerifier checks that a URL points at a reachable image. The lines it
// returns describe each attempt and go straight into the import log.
type ImageVerifier interface {
	Verify(ctx context.Context, src string) (bool, []string)
}

// HTTPImageVerifier tries HEAD first and falls back to GET, since some CDNs
// reject HEAD or omit the content type on it.
type HTTPImageVerifier struct {
	client *http.Client
}

func NewHTTPImageVerifier(timeout time.Duration) *HTTPImageVerifier {
	return &HTTPImageVerifier{
		client: &http.Client{Timeout: timeout},
	}
}

func (v *HTTPImageVerifier) Verify(ctx context.Context, src string) (bool, []string) {
	if !isHTTPURL(src) {
		return false, []string{fmt.Sprintf("[image:url] not a URL, skipping: %s", src)}
	}

	var logs []string

	ok, line, err := v.try(ctx, http.MethodHead, src)
	switch {
	case err != nil:
		logs = append(logs, fmt.Sprintf("[image:url] HEAD failed for %s: %v", src, err))
	case ok:
		return true, append(logs, line)
	default:
		logs = append(logs, line)
	}

	ok, line, err = v.try(ctx, http.MethodGet, src)
	if err != nil {
		return false, append(logs, fmt.Sprintf("[image:url] GET failed for %s: %v", src, err))
	}
	return ok, append(logs, line)
}

func (v *HTTPImageVerifier) try(ctx context.Context, method, src string) (bool, string, error) {
	req, err := http.NewRequestWithContext(ctx, method, src, nil)
	if err != nil {
		return false, "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, "", err
	}
	defer resp.Body.Close()
	// enough to let the connection be reused, never the whole image
	_, _ = io.CopyN(io.Discard, resp.Body, 512)

	final := src
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	ct := strings.ToLower(resp.Header.Get("Content-Type"))

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return false, fmt.Sprintf("[image:url] %s %s -> %d", method, src, resp.StatusCode), nil
	}
	if ct != "" && !strings.Contains(ct, "image") {
		return false, fmt.Sprintf("[image:url] non-image content-type for %s: %s", src, ct), nil
	}
	return true, fmt.Sprintf("[image:url] ok (%s) %s (ct=%s)", method, final, ct), nil
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
