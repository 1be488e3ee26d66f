package domain_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/placefinder/internal/domain"
)

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.FailureKind
	}{
		{name: "nil", err: nil, want: domain.FailureNone},
		{name: "superseded", err: domain.ErrSuperseded, want: domain.FailureCanceled},
		{name: "caller canceled", err: fmt.Errorf("%w: %w", domain.ErrCanceled, context.Canceled), want: domain.FailureCanceled},
		{name: "bare context canceled", err: context.Canceled, want: domain.FailureCanceled},
		{name: "deadline", err: context.DeadlineExceeded, want: domain.FailureNetwork},
		{name: "rate limited sentinel", err: fmt.Errorf("wrap: %w", domain.ErrRateLimited), want: domain.FailureRateLimited},
		{name: "local quota", err: fmt.Errorf("%w: %w", domain.ErrThrottled, context.DeadlineExceeded), want: domain.FailureThrottled},
		{name: "malformed sentinel", err: domain.ErrMalformedResponse, want: domain.FailureMalformed},
		{
			name: "provider error kind wins",
			err:  &domain.ProviderError{Provider: "mapbox", Kind: domain.FailureRateLimited, StatusCode: 429, Err: errors.New("slow down")},
			want: domain.FailureRateLimited,
		},
		{name: "anything else", err: errors.New("connection refused"), want: domain.FailureNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, domain.ClassifyFailure(tt.err))
		})
	}
}

func TestProviderError(t *testing.T) {
	inner := errors.New("bad gateway")
	err := &domain.ProviderError{Provider: "locationiq", Kind: domain.FailureNetwork, StatusCode: 502, Err: inner}

	require.ErrorIs(t, err, inner)
	require.Equal(t, "locationiq: network (status 502): bad gateway", err.Error())
}
