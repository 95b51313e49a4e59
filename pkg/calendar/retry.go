package calendar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"golang.org/x/time/rate"
)

// Calendar API default quota is a few hundred queries per minute per user.
const (
	requestsPerSecond = 5
	requestBurst      = 10
	maxAttempts       = 5
)

// retryTransport paces requests and retries network errors, 429s and 5xx responses.
// When every attempt fails with a retryable status, the last response is returned
// so the API client can decode its error body.
type retryTransport struct {
	base     http.RoundTripper
	limiter  *rate.Limiter
	logger   *slog.Logger
	attempts uint
	delay    time.Duration
}

func newRetryTransport(base http.RoundTripper, logger *slog.Logger) *retryTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &retryTransport{
		base:     base,
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
		logger:   logger,
		attempts: maxAttempts,
		delay:    250 * time.Millisecond,
	}
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	// A body that cannot be replayed gets a single attempt.
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return t.base.RoundTrip(req)
	}

	var resp *http.Response
	attempt := 0
	err := retry.Do(
		func() error {
			if resp != nil {
				drain(resp, t.logger)
				resp = nil
			}
			if err := t.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}

			r := req
			if attempt > 0 && req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return retry.Unrecoverable(fmt.Errorf("rewinding request body: %w", err))
				}
				r = req.Clone(ctx)
				r.Body = body
			}
			attempt++

			res, err := t.base.RoundTrip(r)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			resp = res
			if retryableStatus(res.StatusCode) {
				return fmt.Errorf("HTTP %d from %s", res.StatusCode, req.URL.Host)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(t.attempts),
		retry.Delay(t.delay),
		retry.MaxDelay(5*time.Second),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.MaxJitter(250*time.Millisecond),
		retry.OnRetry(func(n uint, err error) {
			t.logger.Debug("retrying calendar request", "attempt", n+1, "url", req.URL.Path, "error", err)
		}),
		retry.LastErrorOnly(true),
	)
	if resp != nil {
		// Exhausted retries on a status code: let the caller see the response.
		return resp, nil
	}
	return nil, err
}

func drain(resp *http.Response, logger *slog.Logger) {
	_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // best effort drain before retry
	if err := resp.Body.Close(); err != nil {
		logger.Debug("failed to close response body", "error", err)
	}
}
