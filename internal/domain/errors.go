package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrCacheMiss indicates no cached entry was found.
	ErrCacheMiss = errors.New("cache miss")

	// ErrSuperseded indicates a newer query replaced the request before it settled.
	ErrSuperseded = errors.New("request superseded")

	// ErrCanceled indicates the caller stopped waiting for the request.
	ErrCanceled = errors.New("request canceled by caller")

	// ErrRateLimited indicates the provider refused the call.
	ErrRateLimited = errors.New("provider rate limited")

	// ErrThrottled indicates our own outbound quota refused the call before it reached the provider.
	ErrThrottled = errors.New("local request quota exhausted")

	// ErrMalformedResponse indicates the provider answered with an unusable body.
	ErrMalformedResponse = errors.New("malformed provider response")

	// ErrProviderNotConfigured indicates that a provider is not configured and should be skipped.
	ErrProviderNotConfigured = errors.New("provider not configured")
)

// FailureKind classifies why a provider call did not produce results.
type FailureKind int

const (
	// FailureNone means the call succeeded.
	FailureNone FailureKind = iota
	// FailureRateLimited covers HTTP 429 from the provider.
	FailureRateLimited
	// FailureNetwork covers transport errors, deadlines and non-success statuses.
	FailureNetwork
	// FailureMalformed covers bodies that could not be decoded.
	FailureMalformed
	// FailureCanceled covers superseded requests and callers that went away.
	// It is never counted against the provider.
	FailureCanceled
	// FailureThrottled covers calls our own quota refused. The provider was
	// never contacted, so it is not counted against it either.
	FailureThrottled
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureRateLimited:
		return "rate_limited"
	case FailureNetwork:
		return "network"
	case FailureMalformed:
		return "malformed"
	case FailureCanceled:
		return "canceled"
	case FailureThrottled:
		return "throttled"
	default:
		return "unknown"
	}
}

// Counts reports whether a failure of this kind says anything about the
// provider's health.
func (k FailureKind) Counts() bool {
	return k != FailureNone && k != FailureCanceled && k != FailureThrottled
}

// ProviderError is returned by provider adapters for classified failures.
type ProviderError struct {
	Provider   string
	Kind       FailureKind
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ClassifyFailure maps an error from a provider call onto a FailureKind.
func ClassifyFailure(err error) FailureKind {
	if err == nil {
		return FailureNone
	}

	if errors.Is(err, ErrSuperseded) || errors.Is(err, ErrCanceled) {
		return FailureCanceled
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) && providerErr.Kind != FailureNone {
		return providerErr.Kind
	}

	switch {
	case errors.Is(err, ErrThrottled):
		return FailureThrottled
	case errors.Is(err, ErrRateLimited):
		return FailureRateLimited
	case errors.Is(err, ErrMalformedResponse):
		return FailureMalformed
	case errors.Is(err, context.Canceled):
		return FailureCanceled
	default:
		// Deadlines, DNS and connection errors all land here.
		return FailureNetwork
	}
}
