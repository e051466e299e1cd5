package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/kbukum/mobilitykit/errors"
)

func TestBulkhead_RejectsWhenFull(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{Name: "kraken", MaxConcurrent: 1})
	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error)

	go func() {
		done <- b.Execute(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	if b.InUse() != 1 {
		t.Errorf("expected 1 slot in use, got %d", b.InUse())
	}
	err := b.Execute(context.Background(), func(context.Context) error { return nil })
	if !errors.IsCode(err, errors.ErrCodeServiceUnavailable) {
		t.Errorf("expected SERVICE_UNAVAILABLE, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if b.InUse() != 0 {
		t.Errorf("expected slot released, got %d in use", b.InUse())
	}
}

func TestBulkhead_WaitsForSlot(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{Name: "kraken", MaxConcurrent: 1, MaxWait: time.Second})
	started := make(chan struct{})
	go func() {
		_ = b.Execute(context.Background(), func(context.Context) error {
			close(started)
			time.Sleep(20 * time.Millisecond)
			return nil
		})
	}()
	<-started

	if err := b.Execute(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Errorf("expected call to wait for the slot, got %v", err)
	}
}

func TestBulkhead_ContextCancelled(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{Name: "kraken", MaxConcurrent: 1, MaxWait: time.Minute})
	hold := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = b.Execute(context.Background(), func(context.Context) error {
			close(started)
			<-hold
			return nil
		})
	}()
	<-started
	defer close(hold)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b.Execute(ctx, func(context.Context) error { return nil }); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
