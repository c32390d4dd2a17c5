package ctxsync_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/vinicius-lino-figueiredo/kvdb/pkg/ctxsync"
)

type MutexTestSuite struct {
	suite.Suite
	mu *ctxsync.Mutex
}

func (s *MutexTestSuite) SetupTest() {
	s.mu = ctxsync.NewMutex()
}

func (s *MutexTestSuite) TestExclusion() {
	const workers = 500

	var n int
	var wg sync.WaitGroup
	start := make(chan struct{})
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			s.mu.Lock()
			defer s.mu.Unlock()
			n++
		}()
	}
	close(start)
	wg.Wait()
	s.Equal(workers, n)
}

func (s *MutexTestSuite) TestOrder() {
	const workers = 50

	var order []int
	var wg sync.WaitGroup
	s.mu.Lock()
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.mu.Lock()
			defer s.mu.Unlock()
			order = append(order, i)
		}()
		// the next goroutine must queue after this one
		time.Sleep(time.Millisecond)
	}
	s.mu.Unlock()
	wg.Wait()
	s.Len(order, workers)
	s.True(slices.IsSorted(order))
}

func (s *MutexTestSuite) TestLockWithContext() {
	s.Run("Available", func() {
		s.NoError(s.mu.LockWithContext(context.Background()))
		s.mu.Unlock()
	})

	s.Run("AlreadyCanceled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		s.ErrorIs(s.mu.LockWithContext(ctx), context.Canceled)
		s.True(s.mu.TryLock())
		s.mu.Unlock()
	})

	s.Run("CanceledWhileWaiting", func() {
		s.mu.Lock()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
		defer cancel()
		s.ErrorIs(s.mu.LockWithContext(ctx), context.DeadlineExceeded)
		s.mu.Unlock()
	})

	s.Run("CancelingDoesNotAffectOthers", func() {
		s.mu.Lock()
		ctx, cancel := context.WithCancel(context.Background())
		errs := make(chan error, 2)
		go func() { errs <- s.mu.LockWithContext(ctx) }()
		go func() { errs <- s.mu.LockWithContext(context.Background()) }()
		time.Sleep(time.Millisecond)
		cancel()
		s.ErrorIs(<-errs, context.Canceled)
		s.mu.Unlock()
		s.NoError(<-errs)
		s.mu.Unlock()
	})
}

func (s *MutexTestSuite) TestTryLock() {
	s.True(s.mu.TryLock())
	s.False(s.mu.TryLock())
	s.mu.Unlock()
	s.True(s.mu.TryLock())
	s.mu.Unlock()
}

func (s *MutexTestSuite) TestUnlockUnlocked() {
	s.PanicsWithValue("ctxsync: unlock of unlocked mutex", s.mu.Unlock)
}

func (s *MutexTestSuite) TestDo() {
	errFn := errors.New("fn")

	s.Run("Runs", func() {
		err := s.mu.Do(context.Background(), func() error {
			s.False(s.mu.TryLock())
			return errFn
		})
		s.ErrorIs(err, errFn)
		s.True(s.mu.TryLock())
		s.mu.Unlock()
	})

	s.Run("Canceled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		called := false
		err := s.mu.Do(ctx, func() error {
			called = true
			return nil
		})
		s.ErrorIs(err, context.Canceled)
		s.False(called)
	})
}

func TestMutexTestSuite(t *testing.T) {
	suite.Run(t, new(MutexTestSuite))
}
