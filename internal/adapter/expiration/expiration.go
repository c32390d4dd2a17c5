// Package expiration runs the periodic sweep that deletes expired documents.
package expiration

import (
	"bytes"
	"context"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/vinicius-lino-figueiredo/kvdb/domain"
	"github.com/vinicius-lino-figueiredo/kvdb/pkg/ctxsync"
)

// DefaultEvery is the interval between sweeps when none is configured.
const DefaultEvery = 600 * time.Second

var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// DefaultHandler returns the default [domain.ExpiryHandler]. The expiry
// field may hold a [time.Time], a date string or milliseconds since the
// epoch. Only the second of the minute is compared: a document is expired
// when its expiry second is not zero and not after the current second.
func DefaultHandler(tg domain.TimeGetter) domain.ExpiryHandler {
	return func(ec domain.ExpiryContext) bool {
		if ec.Document == nil {
			return false
		}
		at, ok := toTime(ec.Document.Get(ec.Key))
		if !ok {
			return false
		}
		sec := at.Second()
		return sec != 0 && sec <= tg.GetTime().Second()
	}
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case string:
		for _, layout := range layouts {
			if at, err := time.Parse(layout, t); err == nil {
				return at, true
			}
		}
	case int64:
		return time.UnixMilli(t), t != 0
	case uint64:
		return time.UnixMilli(int64(t)), t != 0
	case float64:
		return time.UnixMilli(int64(t)), t != 0
	}
	return time.Time{}, false
}

// Scheduler calls a sweep function once when started and then every
// interval until stopped. Periodic sweeps never overlap.
type Scheduler struct {
	every  time.Duration
	sweep  func(context.Context) error
	logger zerolog.Logger

	mu    sync.Mutex
	run   *run
	stops int
	wg    *ctxsync.WaitGroup
}

// run is one execution of the periodic loop.
type run struct {
	cancel context.CancelFunc
	// goroutine identifies the goroutine running the loop.
	goroutine atomic.Uint64
}

// NewScheduler returns a stopped Scheduler. A non-positive every disables
// the periodic sweeps.
func NewScheduler(every time.Duration, sweep func(context.Context) error, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		every:  every,
		sweep:  sweep,
		logger: logger.With().Str("component", "expiration").Logger(),
		wg:     ctxsync.NewWaitGroup(),
	}
}

// Start runs the first sweep and, when an interval is set, starts the
// periodic sweeps. Calling Start on a running Scheduler is a no-op. A Stop
// issued during the first sweep prevents the periodic sweeps.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	running, stops := s.run != nil, s.stops
	s.mu.Unlock()
	if running {
		return nil
	}
	if err := s.sweep(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stops != stops {
		s.logger.Debug().Msg("stopped during the first sweep")
		return nil
	}
	s.start()
	return nil
}

// Resume starts the periodic sweeps again after Stop, without sweeping
// first.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.start()
}

// start launches the loop. s.mu must be held.
func (s *Scheduler) start() {
	if s.run != nil {
		return
	}
	if s.every <= 0 {
		s.logger.Debug().Msg("periodic sweeps disabled")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &run{cancel: cancel}
	s.run = r
	s.wg.Go(func() { s.loop(ctx, r) })
	s.logger.Debug().Dur("every", s.every).Msg("scheduler started")
}

func (s *Scheduler) loop(ctx context.Context, r *run) {
	r.goroutine.Store(goroutineID())
	ticker := time.NewTicker(s.every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			if err := s.sweep(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error().Err(err).Msg("sweep failed")
			}
		}
	}
}

// Stop cancels the periodic sweeps and waits for a running one to return.
// When called from within a sweep, for instance by an event listener, it
// returns without waiting and the loop exits once that sweep is over. Stop
// reports whether the periodic sweeps were running.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	r := s.run
	s.run = nil
	s.stops++
	s.mu.Unlock()
	if r == nil {
		return false
	}
	r.cancel()
	if r.goroutine.Load() == goroutineID() {
		s.logger.Debug().Msg("scheduler stopped from its own sweep")
		return true
	}
	s.wg.Wait()
	s.logger.Debug().Msg("scheduler stopped")
	return true
}

// goroutineID returns the identifier of the calling goroutine, read from
// the header of its stack trace.
func goroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}
