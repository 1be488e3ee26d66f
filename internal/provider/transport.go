// Package provider holds what the geocoding adapters share: an HTTP
// transport that classifies upstream failures and paces outbound calls.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/davidbz/placefinder/internal/domain"
	"github.com/davidbz/placefinder/internal/observability"
)

const maxBodyBytes = 1 << 20

// Transport performs GET requests against a provider API.
type Transport struct {
	name       string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewTransport creates a transport. rps <= 0 disables pacing.
func NewTransport(name string, httpClient *http.Client, rps float64) *Transport {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	}

	return &Transport{
		name:       name,
		httpClient: httpClient,
		limiter:    limiter,
	}
}

// Response is a successful or "no results" upstream answer.
type Response struct {
	StatusCode int
	Body       []byte
}

// Get issues the request and returns the body for any 2xx status, or for a
// status listed in passthrough. Everything else becomes a *domain.ProviderError.
func (t *Transport) Get(ctx context.Context, url string, passthrough ...int) (*Response, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	logger := observability.FromContext(ctx)
	start := time.Now()

	resp, err := t.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return nil, err
		}
		return nil, &domain.ProviderError{Provider: t.name, Kind: domain.FailureNetwork, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &domain.ProviderError{
			Provider:   t.name,
			Kind:       domain.FailureNetwork,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("failed to read body: %w", err),
		}
	}

	logger.Debug("provider responded",
		observability.Int("status", resp.StatusCode),
		observability.Duration("latency", time.Since(start)))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return &Response{StatusCode: resp.StatusCode, Body: body}, nil
	}
	for _, code := range passthrough {
		if resp.StatusCode == code {
			return &Response{StatusCode: resp.StatusCode, Body: body}, nil
		}
	}

	return nil, StatusError(t.name, resp.StatusCode, body)
}

// StatusError classifies a non-success HTTP status.
func StatusError(name string, status int, body []byte) *domain.ProviderError {
	kind := domain.FailureNetwork
	var cause error = fmt.Errorf("API returned status %d: %s", status, truncateBody(body))
	if status == http.StatusTooManyRequests {
		kind = domain.FailureRateLimited
		cause = fmt.Errorf("%w: %s", domain.ErrRateLimited, truncateBody(body))
	}

	return &domain.ProviderError{
		Provider:   name,
		Kind:       kind,
		StatusCode: status,
		Err:        cause,
	}
}

// MalformedError wraps a decode failure.
func MalformedError(name string, err error) *domain.ProviderError {
	return &domain.ProviderError{
		Provider: name,
		Kind:     domain.FailureMalformed,
		Err:      fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err),
	}
}

// wait blocks until the local quota admits one more call. A wait that cannot
// finish before ctx's deadline is reported as FailureThrottled.
func (t *Transport) wait(ctx context.Context) error {
	if t.limiter == nil {
		return nil
	}

	if err := t.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
			return ctx.Err()
		}
		return &domain.ProviderError{
			Provider: t.name,
			Kind:     domain.FailureThrottled,
			Err:      fmt.Errorf("%w: %w", domain.ErrThrottled, err),
		}
	}
	return nil
}

func truncateBody(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
