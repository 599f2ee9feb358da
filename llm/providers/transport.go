package providers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"revise/logger"
)

// RetryConfig bounds every outbound HTTP call made for the LLM and the
// document store.
type RetryConfig struct {
	// Timeout applies to each attempt.
	Timeout time.Duration
	// MaxTries counts all attempts, the first one included.
	MaxTries uint
	// InitialInterval seeds the exponential backoff.
	InitialInterval time.Duration
	// MaxRetryAfter caps a server supplied Retry-After.
	MaxRetryAfter time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Timeout:         600 * time.Second,
		MaxTries:        5,
		InitialInterval: 500 * time.Millisecond,
		MaxRetryAfter:   30 * time.Second,
	}
}

// RetryTransport retries transport errors and 408/429/5xx responses with
// exponential backoff. Request bodies are buffered so they can be replayed.
type RetryTransport struct {
	Base   http.RoundTripper
	Config RetryConfig
	Log    *logger.Logger
}

// NewHTTPClient returns a client whose transport retries per cfg.
func NewHTTPClient(cfg RetryConfig, log *logger.Logger) *http.Client {
	if log == nil {
		log = logger.Nop()
	}
	return &http.Client{Transport: &RetryTransport{Base: http.DefaultTransport, Config: cfg, Log: log}}
}

type statusError struct {
	code int
}

func (e *statusError) Error() string { return fmt.Sprintf("retryable status %d", e.code) }

func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	var body []byte
	if req.Body != nil && req.Body != http.NoBody {
		b, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, err
		}
		body = b
	}

	maxTries := t.Config.MaxTries
	if maxTries == 0 {
		maxTries = 1
	}
	attempt := uint(0)
	op := func() (*http.Response, error) {
		attempt++
		ctx := req.Context()
		cancel := context.CancelFunc(func() {})
		if t.Config.Timeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, t.Config.Timeout)
		}
		r := req.Clone(ctx)
		if body != nil {
			r.Body = io.NopCloser(bytes.NewReader(body))
			r.ContentLength = int64(len(body))
		}
		resp, err := base.RoundTrip(r)
		if err != nil {
			cancel()
			if req.Context().Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		if IsRetryableHTTPStatus(resp.StatusCode) && attempt < maxTries {
			wait := retryAfter(resp, t.Config.MaxRetryAfter)
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			cancel()
			if wait > 0 {
				return nil, &backoff.RetryAfterError{Duration: wait}
			}
			return nil, &statusError{code: resp.StatusCode}
		}
		resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
		return resp, nil
	}

	eb := backoff.NewExponentialBackOff()
	if t.Config.InitialInterval > 0 {
		eb.InitialInterval = t.Config.InitialInterval
	}
	return backoff.Retry(req.Context(), op,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(maxTries),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			t.Log.Warn("retrying http call", "host", req.URL.Host, "path", req.URL.Path, "error", err.Error(), "backoff", next.String())
		}),
	)
}

// IsRetryableHTTPStatus reports 408, 429 and 5xx.
func IsRetryableHTTPStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}

func retryAfter(resp *http.Response, max time.Duration) time.Duration {
	ra := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if ra == "" {
		return 0
	}
	secs, err := strconv.Atoi(ra)
	if err != nil || secs <= 0 {
		return 0
	}
	d := time.Duration(secs) * time.Second
	if max > 0 && d > max {
		d = max
	}
	return d
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
