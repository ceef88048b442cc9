// Package lookup is the HTTP client for the remote product lookup service
package lookup

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"picktrack/internal/core/version"
	perr "picktrack/internal/platform/errors"
	"picktrack/internal/platform/logger"
	ptime "picktrack/internal/platform/time"
)

// Defaults applied by NewClient
const (
	DefaultTimeout   = 10 * time.Second
	DefaultRetries   = 3
	DefaultRetryBase = 250 * time.Millisecond
	maxBackoff       = 10 * time.Second
)

// Options configures the Client
type Options struct {
	BaseURL   string
	Token     string        // sent as a bearer token when set
	UserAgent string        // version.UserAgent() when empty
	Timeout   time.Duration // per request

	// MaxRetries bounds retries of transport errors, 429 and 502-504;
	// negative disables retrying, 0 means DefaultRetries
	MaxRetries int
	RetryBase  time.Duration
}

// Client talks JSON to the product lookup service
type Client struct {
	http  *http.Client
	opts  Options
	log   logger.Logger
	now   ptime.Clock
	sleep func(context.Context, time.Duration) error
}

// NewClient applies defaults; BaseURL is the caller's responsibility
func NewClient(o Options) *Client {
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.UserAgent == "" {
		o.UserAgent = version.UserAgent()
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	switch {
	case o.MaxRetries < 0:
		o.MaxRetries = 0
	case o.MaxRetries == 0:
		o.MaxRetries = DefaultRetries
	}
	if o.RetryBase <= 0 {
		o.RetryBase = DefaultRetryBase
	}
	return &Client{
		http:  &http.Client{Timeout: o.Timeout},
		opts:  o,
		log:   *logger.Named("lookup"),
		now:   time.Now,
		sleep: sleepCtx,
	}
}

// outcome of one attempt; retryIn > 0 means err is transient and worth another try
type outcome struct {
	resp    *http.Response
	err     error
	retryIn time.Duration
}

// do sends method path, retrying transient failures. 200 and 404 come back with
// the open response so endpoints can tell found from missing
func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		o := c.attempt(ctx, method, path, body, attempt)
		if o.retryIn <= 0 || attempt >= c.opts.MaxRetries {
			return o.resp, o.err
		}
		c.log.Warn().Err(o.err).Int("attempt", attempt).Dur("retry_in", o.retryIn).Msg("lookup retrying")
		if err := c.sleep(ctx, o.retryIn); err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeTimeout, "lookup cancelled during backoff")
		}
	}
}

func (c *Client) attempt(ctx context.Context, method, path string, body []byte, attempt int) outcome {
	if err := ctx.Err(); err != nil {
		return outcome{err: perr.Wrap(err, perr.ErrorCodeTimeout, "lookup cancelled")}
	}
	req, err := c.request(ctx, method, path, body)
	if err != nil {
		return outcome{err: perr.Wrap(err, perr.ErrorCodeLookup, "lookup request")}
	}

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		o := outcome{err: perr.Wrapf(err, perr.ErrorCodeLookup, "lookup %s %s failed", method, path)}
		if ctx.Err() == nil {
			o.retryIn = c.backoff(attempt)
		}
		return o
	}
	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).
		Int("attempt", attempt).Dur("latency", c.now().Sub(start)).Msg("lookup response")

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNotFound:
		return outcome{resp: resp}
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		wait := retryAfter(resp.Header, c.now())
		if wait <= 0 {
			wait = c.backoff(attempt)
		}
		_ = drainAndClose(resp.Body)
		return outcome{
			err: &StatusError{
				Status: resp.StatusCode,
				Err:    perr.Newf(perr.ErrorCodeLookup, "lookup gave up after %d attempts, status %d", attempt+1, resp.StatusCode),
			},
			retryIn: wait,
		}
	}
	tail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	_ = resp.Body.Close()
	return outcome{err: &StatusError{
		Status: resp.StatusCode,
		Body:   string(tail),
		Err:    perr.Newf(perr.ErrorCodeLookup, "lookup unexpected status %d", resp.StatusCode),
	}}
}

func (c *Client) request(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.opts.BaseURL+path, rdr)
	if err != nil {
		return nil, err
	}
	h := req.Header
	h.Set("User-Agent", c.opts.UserAgent)
	h.Set("Accept", "application/json")
	if body != nil {
		h.Set("Content-Type", "application/json")
	}
	if c.opts.Token != "" {
		h.Set("Authorization", "Bearer "+c.opts.Token)
	}
	return req, nil
}

// backoff doubles RetryBase per attempt, capped at maxBackoff
func (c *Client) backoff(attempt int) time.Duration {
	d := c.opts.RetryBase << uint(attempt)
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
