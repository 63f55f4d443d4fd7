package timer

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedule_FiresAfterDuration(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sched := NewScheduler(clock)

	fired := make(chan struct{})
	sched.Schedule(5*time.Second, func() { close(fired) })

	clock.Advance(4 * time.Second)
	select {
	case <-fired:
		t.Fatal("callback fired early")
	case <-time.After(20 * time.Millisecond):
	}

	clock.Advance(time.Second)
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("callback never fired")
	}
}

func TestCancel_PreventsCallback(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sched := NewScheduler(clock)

	fired := make(chan struct{})
	h := sched.Schedule(5*time.Second, func() { close(fired) })
	h.Cancel()

	require.Eventually(t, func() bool { return sched.Active() == 0 },
		time.Second, 5*time.Millisecond)

	clock.Advance(10 * time.Second)
	select {
	case <-fired:
		t.Fatal("canceled callback still fired")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestCancel_Idempotent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sched := NewScheduler(clock)

	h := sched.Schedule(time.Second, func() {})
	h.Cancel()
	h.Cancel()

	clock.Advance(2 * time.Second)

	fired := make(chan struct{})
	h2 := sched.Schedule(time.Second, func() { close(fired) })
	clock.Advance(time.Second)
	<-fired
	h2.Cancel()
}

func TestActive_TracksArmedTimers(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sched := NewScheduler(clock)

	done := make(chan struct{}, 2)
	sched.Schedule(time.Second, func() { done <- struct{}{} })
	sched.Schedule(2*time.Second, func() { done <- struct{}{} })
	assert.Equal(t, 2, sched.Active())

	clock.Advance(2 * time.Second)
	<-done
	<-done
	require.Eventually(t, func() bool { return sched.Active() == 0 },
		time.Second, 5*time.Millisecond)
}
