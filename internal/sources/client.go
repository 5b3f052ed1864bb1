// Package sources implements the data source handler families: the
// PostGIS-backed spatial database handler, the rate-limited external API
// handlers (iNaturalist, eBird, DataStream), and the global analytics
// handler used as the terminal fallback.
package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// defaultTimeout bounds every external call; on expiry the call is
	// cancelled and reported as unavailable, never left to hang.
	defaultTimeout = 30 * time.Second

	// maxAttempts caps attempts per request (1 initial + retries) for
	// transient provider failures.
	maxAttempts = 3

	// defaultRetryInterval is the first backoff delay; subsequent delays
	// double.
	defaultRetryInterval = 2 * time.Second
)

// statusError reports a non-2xx provider response.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable
}

// apiClient is the shared HTTP client for external providers: fixed per-call
// timeout, bounded exponential backoff on 429/503 and transport errors, and
// JSON decoding. Provider handlers own request construction and response
// normalization.
type apiClient struct {
	http   *http.Client
	logger *slog.Logger

	// retryInterval is overridable so tests don't wait seconds per retry.
	retryInterval time.Duration
}

func newAPIClient(timeout time.Duration, logger *slog.Logger) *apiClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &apiClient{
		http:          &http.Client{Timeout: timeout},
		logger:        logger,
		retryInterval: defaultRetryInterval,
	}
}

// getJSON issues a GET and decodes the response body into v.
func (c *apiClient) getJSON(ctx context.Context, url string, header http.Header, v any) error {
	return c.doJSON(ctx, http.MethodGet, url, header, nil, v)
}

// postJSON issues a POST with a JSON body and decodes the response into v.
func (c *apiClient) postJSON(ctx context.Context, url string, header http.Header, body any, v any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}
	return c.doJSON(ctx, http.MethodPost, url, header, raw, v)
}

func (c *apiClient) doJSON(ctx context.Context, method, url string, header http.Header, body []byte, v any) error {
	attempt := 0
	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		for k, vals := range header {
			for _, val := range vals {
				req.Header.Add(k, val)
			}
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			// Transport errors and client timeouts are retried.
			c.logger.Debug("request failed, will retry", "url", url, "attempt", attempt, "error", err)
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if v == nil {
				_, _ = io.Copy(io.Discard, resp.Body)
				return nil
			}
			if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
				return backoff.Permanent(fmt.Errorf("decode response: %w", err))
			}
			return nil
		case retryable(resp.StatusCode):
			_, _ = io.Copy(io.Discard, resp.Body)
			c.logger.Debug("retryable status", "url", url, "status", resp.StatusCode, "attempt", attempt)
			return &statusError{resp.StatusCode}
		default:
			_, _ = io.Copy(io.Discard, resp.Body)
			return backoff.Permanent(&statusError{resp.StatusCode})
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInterval
	bo.Multiplier = 2
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, maxAttempts-1), ctx))
}
