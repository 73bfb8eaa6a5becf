package scheduler

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrAlreadyRunning is returned when a cycle is requested while one is in flight.
	ErrAlreadyRunning = errors.New("cycle already running")
	// ErrStopped is returned once Run has begun shutting down.
	ErrStopped = errors.New("scheduler stopped")
)

type State string

const (
	Idle    State = "idle"
	Running State = "running"
)

// Job is one fetch, build and persist cycle.
type Job func(ctx context.Context) error

// Status is a point-in-time copy of the scheduler state.
type Status struct {
	State        State         `json:"state"`
	LastStart    time.Time     `json:"lastStart,omitempty"`
	LastDuration time.Duration `json:"lastDuration"`
	LastError    string        `json:"lastError,omitempty"`
	Cycles       int           `json:"cycles"`
	Failures     int           `json:"failures"`
	Skipped      int           `json:"skipped"`
	NextRun      time.Time     `json:"nextRun,omitempty"`
}

// Scheduler runs Job once at start and then on every trigger signal. Ticks
// that arrive while a cycle is running are skipped, never queued.
type Scheduler struct {
	job     Job
	trigger Trigger
	log     logrus.FieldLogger

	mu       sync.Mutex
	status   Status
	stopping bool
	wg       sync.WaitGroup
}

func New(job Job, trigger Trigger, log logrus.FieldLogger) *Scheduler {
	if log == nil {
		log = discardLogger()
	}
	return &Scheduler{
		job:     job,
		trigger: trigger,
		log:     log,
		status:  Status{State: Idle},
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Run blocks until ctx is done. On return no cycle is in flight; a cycle
// that was running when ctx ended has been allowed to finish.
func (s *Scheduler) Run(ctx context.Context) {
	defer s.trigger.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("Scheduler stopping, waiting for in-flight cycle")
			// no wg.Add can happen after this
			s.mu.Lock()
			s.stopping = true
			s.mu.Unlock()
			s.wg.Wait()
			return
		case <-s.trigger.C():
			s.tick(ctx)
		}
	}
}

// RunNow starts a cycle outside the schedule and waits for it.
func (s *Scheduler) RunNow(ctx context.Context) error {
	if err := s.tryStart(); err != nil {
		return err
	}
	defer s.wg.Done()
	return s.runCycle(ctx)
}

// Wait blocks until no cycle is in flight.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	st := s.status
	s.mu.Unlock()
	st.NextRun = s.trigger.Next()
	return st
}

func (s *Scheduler) tick(ctx context.Context) {
	if err := s.tryStart(); err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			s.mu.Lock()
			s.status.Skipped++
			s.mu.Unlock()
			s.log.Warn("Previous cycle still running, skipping this tick")
		}
		return
	}
	go func() {
		defer s.wg.Done()
		_ = s.runCycle(ctx)
	}()
}

// tryStart marks the scheduler Running and registers the cycle with wg. The
// caller must call wg.Done when the cycle ends.
func (s *Scheduler) tryStart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return ErrStopped
	}
	if s.status.State == Running {
		return ErrAlreadyRunning
	}
	s.status.State = Running
	s.status.LastStart = time.Now()
	s.wg.Add(1)
	return nil
}

func (s *Scheduler) runCycle(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf("Cycle panicked: %v", r)
			err = errors.New("cycle panicked")
		}
		s.mu.Lock()
		s.status.State = Idle
		s.status.LastDuration = time.Since(start)
		s.status.Cycles++
		if err != nil {
			s.status.Failures++
			s.status.LastError = err.Error()
		} else {
			s.status.LastError = ""
		}
		s.mu.Unlock()
	}()

	err = s.job(ctx)
	if err != nil {
		s.log.Errorf("Cycle failed after %s: %v", time.Since(start).Round(time.Millisecond), err)
		return err
	}
	s.log.Infof("Cycle completed in %s", time.Since(start).Round(time.Millisecond))
	return nil
}
