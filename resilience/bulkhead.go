package resilience

import (
	"context"
	"net/http"
	"time"

	"github.com/kbukum/mobilitykit/errors"
)

// BulkheadConfig configures a bulkhead.
type BulkheadConfig struct {
	// Name identifies the guarded backend in errors.
	Name string
	// MaxConcurrent is the maximum number of concurrent calls.
	MaxConcurrent int
	// MaxWait is how long to wait for a slot. 0 fails immediately.
	MaxWait time.Duration
}

// Bulkhead bounds the number of in-flight calls to one backend.
type Bulkhead struct {
	config BulkheadConfig
	sem    chan struct{}
}

// NewBulkhead creates a bulkhead; MaxConcurrent defaults to 10.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}
	return &Bulkhead{config: config, sem: make(chan struct{}, config.MaxConcurrent)}
}

// Execute runs fn in a slot. When no slot frees up within MaxWait it returns
// a SERVICE_UNAVAILABLE AppError; a cancelled ctx returns ctx.Err().
func (b *Bulkhead) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := b.acquire(ctx); err != nil {
		return err
	}
	defer func() { <-b.sem }()
	return fn(ctx)
}

func (b *Bulkhead) acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	default:
	}
	if b.config.MaxWait <= 0 {
		return b.full()
	}

	timer := time.NewTimer(b.config.MaxWait)
	defer timer.Stop()
	select {
	case b.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return b.full()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bulkhead) full() error {
	return errors.New(errors.ErrCodeServiceUnavailable,
		"too many concurrent requests to "+b.config.Name, http.StatusServiceUnavailable).
		WithDetail("backend", b.config.Name)
}

// InUse returns the number of occupied slots.
func (b *Bulkhead) InUse() int { return len(b.sem) }
