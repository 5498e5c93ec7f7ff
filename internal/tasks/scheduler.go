package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/multistream/internal/shared"
)

const (
	DefaultInterval = 60 * time.Second
	DefaultBackoff  = 2 * DefaultInterval
)

// Refresher is the work a [Scheduler] runs each cycle.
type Refresher interface {
	Refresh(ctx context.Context) error
	Cancel()
}

// Scheduler runs a [Refresher] on a self-rescheduling timer.
//
// Each cycle checks the gate first; a closed gate skips the fetch and waits one interval. A
// successful refresh schedules the next cycle one interval after the previous one started, a
// failed one after the backoff. Callbacks from a stopped loop are discarded by generation.
type Scheduler struct {
	refresher Refresher
	clock     shared.Clock
	gate      func() bool
	interval  time.Duration
	backoff   time.Duration
	logger    *log.Logger

	mu      sync.Mutex
	gen     uint64
	timer   shared.Timer
	running bool
	nextAt  time.Time
}

// SchedulerOpts configures a [Scheduler]. Refresher is required; a nil Gate is always open.
type SchedulerOpts struct {
	Refresher Refresher
	Clock     shared.Clock
	Gate      func() bool
	Interval  time.Duration
	Backoff   time.Duration
	Logger    *log.Logger
}

func NewScheduler(opts SchedulerOpts) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = shared.RealClock{}
	}
	if opts.Gate == nil {
		opts.Gate = func() bool { return true }
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 2 * opts.Interval
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	return &Scheduler{
		refresher: opts.Refresher,
		clock:     opts.Clock,
		gate:      opts.Gate,
		interval:  opts.Interval,
		backoff:   opts.Backoff,
		logger:    opts.Logger,
	}
}

// Start stops any running loop and fires the first cycle immediately.
func (s *Scheduler) Start() {
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.scheduleLocked(s.gen, 0)
}

// Stop cancels the pending cycle and aborts the in-flight refresh.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	wasRunning := s.running
	s.running = false
	s.nextAt = time.Time{}
	s.mu.Unlock()

	s.refresher.Cancel()
	if wasRunning {
		s.logger.Debug("auto-refresh stopped")
	}
}

// Running reports whether a loop is scheduled.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextAt returns when the next cycle fires; zero when stopped or mid-cycle.
func (s *Scheduler) NextAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextAt
}

func (s *Scheduler) scheduleLocked(gen uint64, delay time.Duration) {
	s.nextAt = s.clock.Now().Add(delay)
	s.timer = s.clock.AfterFunc(delay, func() { s.tick(gen) })
}

func (s *Scheduler) reschedule(gen uint64, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	s.scheduleLocked(gen, delay)
}

func (s *Scheduler) tick(gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.nextAt = time.Time{}
	s.mu.Unlock()

	if !s.gate() {
		s.reschedule(gen, s.interval)
		return
	}

	started := s.clock.Now()
	if err := s.refresher.Refresh(context.Background()); err != nil {
		s.logger.Debug("refresh cycle failed, backing off", "backoff", s.backoff)
		s.reschedule(gen, s.backoff)
		return
	}

	elapsed := s.clock.Now().Sub(started)
	s.reschedule(gen, max(0, s.interval-elapsed))
}
