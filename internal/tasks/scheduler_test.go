package tasks

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/desertthunder/multistream/internal/shared"
	tu "github.com/desertthunder/multistream/internal/testing"
)

type stubRefresher struct {
	clock   *tu.FakeClock
	calls   int
	cancels int
	took    time.Duration
	err     error
	during  func()
}

func (r *stubRefresher) Refresh(ctx context.Context) error {
	r.calls++
	if r.took > 0 {
		r.clock.Advance(r.took)
	}
	if r.during != nil {
		r.during()
	}
	return r.err
}

func (r *stubRefresher) Cancel() { r.cancels++ }

func newTestScheduler(r *stubRefresher, gate func() bool) *Scheduler {
	return NewScheduler(SchedulerOpts{
		Refresher: r,
		Clock:     r.clock,
		Gate:      gate,
		Interval:  60 * time.Second,
		Backoff:   120 * time.Second,
		Logger:    shared.NewLogger(io.Discard),
	})
}

func TestScheduler(t *testing.T) {
	start := time.Unix(1700000000, 0)

	t.Run("Start Fires Immediately", func(t *testing.T) {
		r := &stubRefresher{clock: tu.NewFakeClock(start)}
		s := newTestScheduler(r, nil)

		s.Start()
		r.clock.Advance(0)

		if r.calls != 1 {
			t.Fatalf("expected 1 refresh, got %d", r.calls)
		}
		if d, ok := r.clock.NextDelay(); !ok || d != 60*time.Second {
			t.Errorf("expected next cycle in 60s, got %v (pending=%v)", d, ok)
		}
		if !s.Running() {
			t.Error("expected scheduler to be running")
		}
	})

	t.Run("Subtracts Elapsed Time", func(t *testing.T) {
		r := &stubRefresher{took: 10 * time.Second}
		r.clock = tu.NewFakeClock(start)
		s := newTestScheduler(r, nil)

		s.Start()
		r.clock.Advance(0)

		if d, _ := r.clock.NextDelay(); d != 50*time.Second {
			t.Errorf("expected next cycle in 50s, got %v", d)
		}
	})

	t.Run("Slow Refresh Reschedules At Zero", func(t *testing.T) {
		r := &stubRefresher{took: 90 * time.Second}
		r.clock = tu.NewFakeClock(start)
		s := newTestScheduler(r, nil)

		s.Start()
		r.clock.Advance(0)

		if d, _ := r.clock.NextDelay(); d != 0 {
			t.Errorf("expected immediate next cycle, got %v", d)
		}
	})

	t.Run("Backs Off On Failure", func(t *testing.T) {
		r := &stubRefresher{clock: tu.NewFakeClock(start), err: errors.New("boom")}
		s := newTestScheduler(r, nil)

		s.Start()
		r.clock.Advance(0)

		if d, _ := r.clock.NextDelay(); d != 120*time.Second {
			t.Errorf("expected backoff of 120s, got %v", d)
		}

		r.clock.Advance(119 * time.Second)
		if r.calls != 1 {
			t.Errorf("expected no refresh before backoff elapsed, got %d", r.calls)
		}
		r.clock.Advance(time.Second)
		if r.calls != 2 {
			t.Errorf("expected refresh after backoff, got %d", r.calls)
		}
	})

	t.Run("Closed Gate Skips Fetch", func(t *testing.T) {
		r := &stubRefresher{clock: tu.NewFakeClock(start)}
		open := false
		s := newTestScheduler(r, func() bool { return open })

		s.Start()
		r.clock.Advance(0)

		if r.calls != 0 {
			t.Errorf("expected no refresh while gated, got %d", r.calls)
		}
		if d, _ := r.clock.NextDelay(); d != 60*time.Second {
			t.Errorf("expected recheck in 60s, got %v", d)
		}

		open = true
		r.clock.Advance(60 * time.Second)
		if r.calls != 1 {
			t.Errorf("expected refresh once gate opens, got %d", r.calls)
		}
	})

	t.Run("Double Start Keeps One Timer", func(t *testing.T) {
		r := &stubRefresher{clock: tu.NewFakeClock(start)}
		s := newTestScheduler(r, nil)

		s.Start()
		s.Start()

		if n := r.clock.Pending(); n != 1 {
			t.Fatalf("expected 1 pending timer, got %d", n)
		}
		r.clock.Advance(0)
		if r.calls != 1 {
			t.Errorf("expected 1 refresh, got %d", r.calls)
		}
	})

	t.Run("Stop Cancels Timer And Fetch", func(t *testing.T) {
		r := &stubRefresher{clock: tu.NewFakeClock(start)}
		s := newTestScheduler(r, nil)

		s.Start()
		r.clock.Advance(0)
		cancels := r.cancels
		s.Stop()

		if r.clock.Pending() != 0 {
			t.Errorf("expected no pending timers, got %d", r.clock.Pending())
		}
		if r.cancels != cancels+1 {
			t.Error("expected in-flight fetch to be cancelled")
		}
		if s.Running() || !s.NextAt().IsZero() {
			t.Error("expected scheduler to be idle")
		}

		r.clock.Advance(time.Hour)
		if r.calls != 1 {
			t.Errorf("expected no refresh after stop, got %d", r.calls)
		}
	})

	t.Run("Stop During Cycle Discards Reschedule", func(t *testing.T) {
		r := &stubRefresher{clock: tu.NewFakeClock(start)}
		s := newTestScheduler(r, nil)
		r.during = s.Stop

		s.Start()
		r.clock.Advance(0)

		if r.clock.Pending() != 0 {
			t.Errorf("expected stale cycle not to reschedule, got %d pending", r.clock.Pending())
		}
	})

	t.Run("Defaults", func(t *testing.T) {
		s := NewScheduler(SchedulerOpts{Refresher: &stubRefresher{}})
		if s.interval != DefaultInterval || s.backoff != DefaultBackoff {
			t.Errorf("unexpected defaults %v/%v", s.interval, s.backoff)
		}
	})
}
