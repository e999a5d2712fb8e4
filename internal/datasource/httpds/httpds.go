// Package httpds fetches the input CSV over HTTP(S). Transient failures
// (transport errors, 429 and 5xx) are retried with exponential backoff; a
// 404 or 410 means the input does not exist.
package httpds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"userload/internal/etlerr"
)

// Config tunes the client. Zero values get defaults: 30s timeout, 3
// retries, 200ms initial backoff capped at 5s. A negative MaxRetries
// disables retries.
type Config struct {
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// Header is sent with every request.
	Header http.Header

	// Transport overrides http.DefaultTransport.
	Transport http.RoundTripper
}

// Source is a datasource.Source backed by an HTTP GET.
type Source struct {
	url    string
	client *http.Client
	header http.Header

	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration

	// wait blocks for d or until ctx is done; swapped in tests.
	wait func(ctx context.Context, d time.Duration) error
}

// IsURL reports whether s should be fetched with this package rather than
// read from disk.
func IsURL(s string) bool {
	l := strings.ToLower(s)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// New returns a Source for url.
func New(url string, cfg Config) *Source {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	return &Source{
		url:            url,
		client:         &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		header:         cfg.Header.Clone(),
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		wait:           waitContext,
	}
}

// URL returns the fetched address.
func (s *Source) URL() string { return s.url }

// Open performs the GET and returns the response body. The caller closes it.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			if err := s.wait(ctx, backoff(s.initialBackoff, attempt-1, s.maxBackoff)); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
		if err != nil {
			return nil, fmt.Errorf("httpds: build request: %w", err)
		}
		for k, vs := range s.header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		resp, err := s.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("httpds: get %s: %w", s.url, err)
			continue
		}

		switch code := resp.StatusCode; {
		case code >= 200 && code <= 299:
			return resp.Body, nil
		case code == http.StatusNotFound || code == http.StatusGone:
			resp.Body.Close()
			return nil, fmt.Errorf("httpds: get %s: %w: status %d", s.url, etlerr.ErrInputNotFound, code)
		case retryable(code):
			resp.Body.Close()
			lastErr = fmt.Errorf("httpds: get %s: status %d", s.url, code)
		default:
			resp.Body.Close()
			return nil, fmt.Errorf("httpds: get %s: status %d", s.url, code)
		}
	}
	return nil, fmt.Errorf("%w (after %d attempts)", lastErr, s.maxRetries+1)
}

func retryable(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code <= 599)
}

// backoff returns initial * 2^retry, clamped to max.
func backoff(initial time.Duration, retry int, max time.Duration) time.Duration {
	if retry > 30 {
		return max
	}
	d := initial << retry
	if d <= 0 || d > max {
		return max
	}
	return d
}

func waitContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
