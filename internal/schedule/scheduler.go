// Package schedule runs callbacks at a fixed interval with serialized,
// non-overlapping invocations.
package schedule

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scheduler owns a set of fixed-interval callbacks. Each callback gets its
// own goroutine, but a single callback is never invoked concurrently with
// itself: a tick fires only after the previous run returned, and ticks that
// would have fired during a slow run are dropped, not queued.
type Scheduler struct {
	log  *zap.Logger
	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

func New(log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{log: log, stop: make(chan struct{})}
}

// Every registers fn to run at the given interval until ctx is done or Stop
// is called. The first run happens one interval after registration.
func (s *Scheduler) Every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()

		s.log.Debug("schedule registered", zap.Duration("interval", interval))
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-t.C:
				fn(ctx)
			}
		}
	}()
}

// Stop halts every registered callback and blocks until in-flight runs
// finish. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()
}
