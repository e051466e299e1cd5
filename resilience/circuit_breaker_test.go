package resilience

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kbukum/mobilitykit/errors"
)

type manualClock struct{ t time.Time }

func (c *manualClock) now() time.Time { return c.t }

func newTestBreaker(clock *manualClock, maxFailures int) *CircuitBreaker {
	return NewCircuitBreaker(CircuitBreakerConfig{
		Name:        "kraken",
		MaxFailures: maxFailures,
		Timeout:     time.Second,
		Now:         clock.now,
	})
}

func fail(ctx context.Context) error    { return fmt.Errorf("connection refused") }
func succeed(ctx context.Context) error { return nil }

func TestCircuitBreaker_StartsClosed(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("kraken"))
	if cb.State() != StateClosed {
		t.Errorf("expected StateClosed, got %s", cb.State())
	}
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	clock := &manualClock{t: time.Unix(0, 0)}
	cb := newTestBreaker(clock, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, fail)
	}
	if cb.State() != StateOpen {
		t.Fatalf("expected StateOpen, got %s", cb.State())
	}

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	if called {
		t.Error("function must not run while open")
	}
	if !errors.IsCode(err, errors.ErrCodeServiceUnavailable) {
		t.Errorf("expected SERVICE_UNAVAILABLE, got %v", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := newTestBreaker(&manualClock{}, 2)
	ctx := context.Background()
	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, succeed)
	_ = cb.Execute(ctx, fail)
	if cb.State() != StateClosed {
		t.Errorf("expected non consecutive failures to keep the circuit closed, got %s", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	clock := &manualClock{t: time.Unix(100, 0)}
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name: "kraken", MaxFailures: 1, Timeout: time.Second, Now: clock.now,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	clock.t = clock.t.Add(time.Second)
	if cb.State() != StateHalfOpen {
		t.Fatalf("expected StateHalfOpen after timeout, got %s", cb.State())
	}
	if err := cb.Execute(ctx, succeed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("expected StateClosed after probe success, got %s", cb.State())
	}

	want := []string{"closed->open", "open->half-open", "half-open->closed"}
	if fmt.Sprint(transitions) != fmt.Sprint(want) {
		t.Errorf("expected transitions %v, got %v", want, transitions)
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := &manualClock{t: time.Unix(100, 0)}
	cb := newTestBreaker(clock, 1)
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	clock.t = clock.t.Add(2 * time.Second)
	_ = cb.Execute(ctx, fail)
	if cb.State() != StateOpen {
		t.Errorf("expected StateOpen after failed probe, got %s", cb.State())
	}
}

func TestCircuitBreaker_IgnoresBackendAnswers(t *testing.T) {
	cb := newTestBreaker(&manualClock{}, 1)
	ctx := context.Background()

	err := cb.Execute(ctx, func(context.Context) error {
		return errors.Technical("routing matrix fail")
	})
	if !errors.IsCode(err, errors.ErrCodeTechnical) {
		t.Errorf("expected the technical error back, got %v", err)
	}
	_ = cb.Execute(ctx, func(context.Context) error { return context.Canceled })
	if cb.State() != StateClosed {
		t.Errorf("expected technical errors and cancellations not to open the circuit, got %s", cb.State())
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := newTestBreaker(&manualClock{}, 1)
	_ = cb.Execute(context.Background(), fail)
	cb.Reset()
	if cb.State() != StateClosed {
		t.Errorf("expected StateClosed after reset, got %s", cb.State())
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{StateClosed: "closed", StateOpen: "open", StateHalfOpen: "half-open", State(9): "unknown"}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("expected %q, got %q", want, s.String())
		}
	}
}
