// timer/timer.go
package timer

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// Scheduler hands out cancelable one-shot timers over an injected clock.
// Rooms hold at most one Handle at a time; arming a new transition always
// cancels the previous handle first.
type Scheduler struct {
	clock  clockwork.Clock
	active atomic.Int64
}

func NewScheduler(clock clockwork.Clock) *Scheduler {
	return &Scheduler{clock: clock}
}

// Handle is one scheduled callback. Cancel is safe to call more than once
// and after the callback has fired.
type Handle struct {
	timer  clockwork.Timer
	cancel chan struct{}
	once   sync.Once
}

func (h *Handle) Cancel() {
	h.once.Do(func() {
		close(h.cancel)
	})
}

// Schedule runs fn after d unless the handle is canceled first. fn runs on
// its own goroutine; callers serialize against their own state.
func (s *Scheduler) Schedule(d time.Duration, fn func()) *Handle {
	h := &Handle{
		timer:  s.clock.NewTimer(d),
		cancel: make(chan struct{}),
	}
	s.active.Add(1)

	go func() {
		defer s.active.Add(-1)
		select {
		case <-h.timer.Chan():
			fn()
		case <-h.cancel:
			stopAndDrain(h.timer)
		}
	}()

	return h
}

// Active reports how many timers are currently armed, for the status surface.
func (s *Scheduler) Active() int {
	return int(s.active.Load())
}

func stopAndDrain(t clockwork.Timer) {
	if !t.Stop() {
		select {
		case <-t.Chan():
		default:
		}
	}
}
