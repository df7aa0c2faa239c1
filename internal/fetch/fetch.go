// Package fetch is the HTTP collaborator used for listing pages and article
// bodies. All requests carry a caller-supplied timeout and a retry policy.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"aidigest/internal/retry"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

// maxBodyBytes caps listing/article downloads so a misbehaving server cannot
// exhaust memory.
const maxBodyBytes = 4 << 20

// Policy bundles the per-request network knobs. Zero values fall back to
// sane defaults in NewClient.
type Policy struct {
	Timeout     time.Duration
	MaxAttempts int
	Backoff     time.Duration
}

// Client wraps http.Client with retry and a stable user agent. Some news
// sites return 403 for the default Go user agent.
type Client struct {
	http      *http.Client
	retry     retry.Config
	userAgent string
}

func NewClient(p Policy) *Client {
	if p.Timeout <= 0 {
		p.Timeout = 30 * time.Second
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.Backoff <= 0 {
		p.Backoff = time.Second
	}

	return &Client{
		http:      &http.Client{Timeout: p.Timeout},
		retry:     retry.Config{MaxAttempts: p.MaxAttempts, Delay: p.Backoff, Backoff: true},
		userAgent: defaultUserAgent,
	}
}

// Get fetches url and returns the HTTP status and body text. Network faults
// and 5xx responses are retried per the policy; 4xx responses are returned
// to the caller immediately. A non-nil error means no usable response.
func (c *Client) Get(ctx context.Context, url string) (status int, body string, err error) {
	err = retry.Do(ctx, c.retry, func() error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if reqErr != nil {
			return &retry.Permanent{Err: reqErr}
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, doErr := c.http.Do(req)
		if doErr != nil {
			return doErr
		}
		defer resp.Body.Close()

		raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if readErr != nil {
			return readErr
		}

		status = resp.StatusCode
		body = string(raw)

		if resp.StatusCode >= 500 {
			return fmt.Errorf("server error: status %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		return 0, "", err
	}
	return status, body, nil
}
