// Package upstream is the JSON-over-HTTP call loop shared by the Azure DevOps
// and 7pace adapters: per-call timeout, retry on 429/5xx, typed errors.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ssandy33/ado-pulse/internal/domain"
)

const (
	DefaultAttempts = 3
	defaultBackoff  = 300 * time.Millisecond
	maxErrBody      = 512
)

type Caller struct {
	Source   string
	HTTP     *http.Client
	Timeout  time.Duration
	Attempts int
	Backoff  time.Duration
	Auth     func(*http.Request)
	Log      zerolog.Logger
}

func New(source string, timeout time.Duration, auth func(*http.Request), log zerolog.Logger) *Caller {
	return &Caller{
		Source:   source,
		HTTP:     &http.Client{},
		Timeout:  timeout,
		Attempts: DefaultAttempts,
		Backoff:  defaultBackoff,
		Auth:     auth,
		Log:      log,
	}
}

// DoJSON sends body (if any) as JSON and decodes a 2xx response into out.
// The timeout covers all attempts of one call. 401/403 are never retried.
func (c *Caller) DoJSON(ctx context.Context, op, method, url string, body, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return c.fail(op, 0, domain.KindGeneric, err)
		}
		payload = b
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	attempts := c.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := c.Backoff * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return c.fail(op, 0, domain.KindTimeout, ctx.Err())
			case <-time.After(wait):
			}
		}
		retry, err := c.once(ctx, op, method, url, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			return err
		}
		c.Log.Debug().Str("source", c.Source).Str("op", op).Int("attempt", attempt+1).Err(err).Msg("upstream call retrying")
	}
	return lastErr
}

func (c *Caller) once(ctx context.Context, op, method, url string, payload []byte, out any) (bool, error) {
	var r io.Reader
	if payload != nil {
		r = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return false, c.fail(op, 0, domain.KindGeneric, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Auth != nil {
		c.Auth(req)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		if isTimeout(err) {
			return false, c.fail(op, 0, domain.KindTimeout, err)
		}
		return true, c.fail(op, 0, domain.KindGeneric, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		err := c.fail(op, resp.StatusCode, domain.StatusKind(resp.StatusCode),
			fmt.Errorf("body=%s", strings.TrimSpace(string(b))))
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return retry, err
	}
	if out == nil {
		return false, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if isTimeout(err) {
			return false, c.fail(op, resp.StatusCode, domain.KindTimeout, err)
		}
		return false, c.fail(op, resp.StatusCode, domain.KindGeneric, fmt.Errorf("decode response: %w", err))
	}
	return false, nil
}

func (c *Caller) fail(op string, status int, kind domain.ErrorKind, err error) error {
	return &domain.UpstreamError{Source: c.Source, Op: op, Status: status, Kind: kind, Err: err}
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var ue *domain.UpstreamError
	return errors.As(err, &ue) && ue.Status == http.StatusNotFound
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
