package ticketing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"
)

// HTTPDoer is the subset of *http.Client the adapter needs; tests substitute
// a stub that never touches the network.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// transport wraps an HTTPDoer with a token-bucket rate limiter and
// bounded retry-with-Retry-After behavior applied to every outbound
// ticketing call. The bucket refills at the per-minute rate and holds one
// minute's allowance as burst, so it is not a strict sliding window: up to
// twice the per-minute rate can pass within the first minute.
type transport struct {
	client  HTTPDoer
	limiter *rate.Limiter
	auth    AuthConfig
	timeout time.Duration
}

func newTransport(client HTTPDoer, cfg Config) *transport {
	perMinute := cfg.ratePerMinute()
	return &transport{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
		auth:    cfg.Auth,
		timeout: defaultTimeout,
	}
}

func (t *transport) authorize(req *http.Request) {
	switch t.auth.Type {
	case AuthBasic:
		req.SetBasicAuth(t.auth.Username, t.auth.Password)
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+t.auth.Token)
	}
}

// do issues one request honoring the rate limiter, a 30s timeout, and up to
// maxRetries retries on 429 (honoring Retry-After) or transient timeout.
func (t *transport) do(ctx context.Context, method, url string, body any) ([]byte, error) {
	op := func() (*http.Response, error) {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}

		var reader io.Reader
		if body != nil {
			encoded, err := json.Marshal(body)
			if err != nil {
				return nil, backoff.Permanent(err)
			}
			reader = bytes.NewReader(encoded)
		}

		reqCtx, cancel := context.WithTimeout(ctx, t.timeout)
		defer cancel()
		req, err := http.NewRequestWithContext(reqCtx, method, url, reader)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		t.authorize(req)

		resp, err := t.client.Do(req)
		if err != nil {
			return nil, err // transient: network/timeout, retry
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			wait := retryAfter(resp.Header.Get("Retry-After"))
			resp.Body.Close()
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, backoff.Permanent(ctx.Err())
			}
			return nil, fmt.Errorf("rate limited (429)")
		}
		return resp, nil
	}

	resp, err := backoff.Retry(ctx, op, backoff.WithMaxTries(maxRetries+1))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return data, fmt.Errorf("ticketing request failed: status %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}

func retryAfter(header string) time.Duration {
	if header == "" {
		return time.Second
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second
	}
	return time.Second
}
