package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"apigateway/domain"
	"apigateway/interfaces"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_ClosedAllowsCalls(t *testing.T) {
	cb := NewCircuitBreaker("svc", domain.CircuitBreakerConfig{FailureThreshold: 3, SuccessThreshold: 1, Timeout: time.Second})
	err := cb.Call(context.Background(), func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, interfaces.CircuitClosed, cb.State())
}

func TestCircuitBreaker_TripsAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker("svc", domain.CircuitBreakerConfig{FailureThreshold: 2, SuccessThreshold: 1, Timeout: time.Minute})
	boom := errors.New("boom")
	failing := func(ctx context.Context) error { return boom }

	_ = cb.Call(context.Background(), failing)
	_ = cb.Call(context.Background(), failing)

	assert.Equal(t, interfaces.CircuitOpen, cb.State())
	err := cb.Call(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}
