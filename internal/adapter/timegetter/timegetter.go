// Package timegetter contains the clocks used by the expiration sweep.
package timegetter

import (
	"sync"
	"time"

	"github.com/vinicius-lino-figueiredo/kvdb/domain"
)

// Wall implements [domain.TimeGetter] with the system clock.
type Wall struct{}

// NewTimeGetter returns the system clock.
func NewTimeGetter() domain.TimeGetter {
	return Wall{}
}

// GetTime implements [domain.TimeGetter].
func (Wall) GetTime() time.Time {
	return time.Now()
}

// Fixed implements [domain.TimeGetter] with a clock that only moves when
// told to.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixed returns a clock stopped at now.
func NewFixed(now time.Time) *Fixed {
	return &Fixed{now: now}
}

// GetTime implements [domain.TimeGetter].
func (f *Fixed) GetTime() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set moves the clock to now.
func (f *Fixed) Set(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}
