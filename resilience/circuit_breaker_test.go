package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/projectnexus/storefront/core"
)

func testBreaker(threshold int, timeout time.Duration, halfOpen int) *CircuitBreaker {
	return NewCircuitBreaker(core.CircuitBreakerConfig{
		Threshold:        threshold,
		Timeout:          timeout,
		HalfOpenRequests: halfOpen,
	})
}

func failConn() error {
	return fmt.Errorf("GET /products/: dial tcp: %w", core.ErrConnectivity)
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb := testBreaker(3, time.Minute, 1)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := cb.Execute(ctx, failConn); !core.IsConnectivity(err) {
			t.Fatalf("attempt %d: expected connectivity error, got %v", i, err)
		}
	}
	if got := cb.State(); got != StateOpen {
		t.Fatalf("expected open after threshold, got %v", got)
	}

	err := cb.Execute(ctx, func() error {
		t.Fatal("open circuit must not call the backend")
		return nil
	})
	if !errors.Is(err, core.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailureRun(t *testing.T) {
	cb := testBreaker(3, time.Minute, 1)
	ctx := context.Background()

	cb.Execute(ctx, failConn)
	cb.Execute(ctx, failConn)
	cb.Execute(ctx, func() error { return nil })
	cb.Execute(ctx, failConn)
	cb.Execute(ctx, failConn)

	if got := cb.State(); got != StateClosed {
		t.Fatalf("non-consecutive failures should not trip the breaker, state %v", got)
	}
}

func TestCircuitBreaker_ClientErrorsDoNotCount(t *testing.T) {
	cb := testBreaker(2, time.Minute, 1)
	ctx := context.Background()

	badRequest := &core.APIError{Status: 400, Message: "price must be positive"}
	for i := 0; i < 5; i++ {
		cb.Execute(ctx, func() error { return badRequest })
	}
	if got := cb.State(); got != StateClosed {
		t.Fatalf("4xx responses must not open the circuit, state %v", got)
	}

	serverError := &core.APIError{Status: 503, Message: "maintenance"}
	cb.Execute(ctx, func() error { return serverError })
	cb.Execute(ctx, func() error { return serverError })
	if got := cb.State(); got != StateOpen {
		t.Fatalf("5xx responses should open the circuit, state %v", got)
	}
}

func TestCircuitBreaker_CancellationDoesNotCount(t *testing.T) {
	cb := testBreaker(1, time.Minute, 1)
	ctx := context.Background()

	cb.Execute(ctx, func() error { return context.Canceled })
	if got := cb.State(); got != StateClosed {
		t.Fatalf("abandoned requests must not open the circuit, state %v", got)
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := testBreaker(1, 10*time.Millisecond, 2)
	ctx := context.Background()

	cb.Execute(ctx, failConn)
	if got := cb.State(); got != StateOpen {
		t.Fatalf("expected open, got %v", got)
	}

	time.Sleep(15 * time.Millisecond)
	if got := cb.State(); got != StateHalfOpen {
		t.Fatalf("expected half-open after reset timeout, got %v", got)
	}

	// Probe budget is 2: two successes close the circuit
	if err := cb.Execute(ctx, func() error { return nil }); err != nil {
		t.Fatalf("first probe rejected: %v", err)
	}
	if err := cb.Execute(ctx, func() error { return nil }); err != nil {
		t.Fatalf("second probe rejected: %v", err)
	}
	if got := cb.State(); got != StateClosed {
		t.Fatalf("expected closed after successful probes, got %v", got)
	}
}

func TestCircuitBreaker_ProbeFailureReopens(t *testing.T) {
	cb := testBreaker(1, 10*time.Millisecond, 2)
	ctx := context.Background()

	cb.Execute(ctx, failConn)
	time.Sleep(15 * time.Millisecond)

	cb.Execute(ctx, failConn)
	if got := cb.State(); got != StateOpen {
		t.Fatalf("expected reopen after probe failure, got %v", got)
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := testBreaker(1, time.Minute, 1)
	ctx := context.Background()

	cb.Execute(ctx, failConn)
	cb.Reset()
	if got := cb.State(); got != StateClosed {
		t.Fatalf("expected closed after Reset, got %v", got)
	}
	if err := cb.Execute(ctx, func() error { return nil }); err != nil {
		t.Fatalf("call after Reset rejected: %v", err)
	}
}

func TestCircuitBreaker_ContextCancellationShortCircuits(t *testing.T) {
	cb := testBreaker(1, time.Minute, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cb.Execute(ctx, func() error {
		t.Error("cancelled context must not call the backend")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
