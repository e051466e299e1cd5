package provider

import (
	"sync"
	"time"
)

// ShouldRefresh reports whether a refresh is due: a source must be configured
// and last+interval must not be after now. A negative interval is always due.
func ShouldRefresh(now, last time.Time, interval time.Duration, hasSource bool) bool {
	return hasSource && !last.Add(interval).After(now)
}

// Poller rate-limits refresh attempts. It stamps the attempt time before the
// source is called, so a slow or failing source does not cause attempts to
// pile up; a failed attempt waits for the next interval.
type Poller struct {
	mu       sync.Mutex
	interval time.Duration
	now      func() time.Time
	last     time.Time
}

// NewPoller creates a Poller that is due on its first Claim.
func NewPoller(interval time.Duration, now func() time.Time) *Poller {
	if now == nil {
		now = time.Now
	}
	return &Poller{interval: interval, now: now, last: time.Unix(0, 0)}
}

// Claim returns true when a refresh is due, recording the attempt.
func (p *Poller) Claim(hasSource bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	if !ShouldRefresh(now, p.last, p.interval, hasSource) {
		return false
	}
	p.last = now
	return true
}

// Reset makes the next Claim due.
func (p *Poller) Reset() {
	p.mu.Lock()
	p.last = time.Unix(0, 0)
	p.mu.Unlock()
}

// Last returns the time of the last claimed attempt.
func (p *Poller) Last() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Interval returns the configured refresh interval.
func (p *Poller) Interval() time.Duration { return p.interval }
