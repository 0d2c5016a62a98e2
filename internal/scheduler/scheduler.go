// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	rcron "github.com/robfig/cron/v3"
)

// Job is one periodic task.
type Job func(ctx context.Context) error

// Scheduler runs named jobs on cron specs. Runs of the same job never overlap.
type Scheduler struct {
	cron *rcron.Cron
	ctx  context.Context
	stop context.CancelFunc
}

// New returns a Scheduler that evaluates specs in loc.
func New(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: rcron.New(
			rcron.WithLocation(loc),
			rcron.WithChain(rcron.SkipIfStillRunning(rcron.DiscardLogger)),
		),
		ctx:  ctx,
		stop: cancel,
	}
}

// Every registers job to run at a fixed interval.
func (s *Scheduler) Every(name string, interval time.Duration, job Job) error {
	if interval <= 0 {
		return fmt.Errorf("interval for %s must be positive", name)
	}
	return s.Add(name, "@every "+interval.String(), job)
}

// Add registers job under a cron spec.
func (s *Scheduler) Add(name, spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.run(name, job)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	slog.Info("job scheduled", "job", name, "spec", spec)
	return nil
}

func (s *Scheduler) run(name string, job Job) {
	start := time.Now()
	slog.Info("job started", "job", name)
	if err := job(s.ctx); err != nil {
		slog.Error("job failed", "job", name, "error", err.Error(), "duration", time.Since(start))
		return
	}
	slog.Info("job finished", "job", name, "duration", time.Since(start))
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running jobs and waits for them up to the context deadline.
func (s *Scheduler) Stop(ctx context.Context) {
	s.stop()
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		slog.Warn("timed out waiting for running jobs")
	}
}
