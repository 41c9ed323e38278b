// Package scheduler runs a job on a cron schedule until its context is cancelled.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"go.uber.org/zap"
)

const retryDelay = 30 * time.Second

// Job receives the tick time in the scheduler's location.
type Job func(ctx context.Context, tick time.Time) error

// Scheduler fires Job at every tick of a five-field cron expression.
type Scheduler struct {
	expr   string
	loc    *time.Location
	job    Job
	logger *zap.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time

	mu      sync.Mutex
	running bool
}

func New(expr string, loc *time.Location, job Job, logger *zap.Logger) (*Scheduler, error) {
	if !gronx.New().IsValid(expr) {
		return nil, fmt.Errorf("invalid cron expression %q", expr)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		expr:   expr,
		loc:    loc,
		job:    job,
		logger: logger,
		now:    time.Now,
		after:  time.After,
	}, nil
}

// Run blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started", zap.String("cron", s.expr), zap.String("tz", s.loc.String()))
	for {
		now := s.now().In(s.loc)
		next, err := gronx.NextTickAfter(s.expr, now, false)
		if err != nil {
			s.logger.Error("next tick", zap.String("cron", s.expr), zap.Error(err))
			select {
			case <-s.after(retryDelay):
				continue
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-s.after(next.Sub(now)):
			s.fire(ctx, next)
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		}
	}
}

// fire skips the tick when the previous run is still going.
func (s *Scheduler) fire(ctx context.Context, tick time.Time) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("previous run still active, skipping tick", zap.Time("tick", tick))
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	start := time.Now()
	if err := s.job(ctx, tick); err != nil {
		s.logger.Error("scheduled job failed", zap.Time("tick", tick), zap.Error(err))
		return
	}
	s.logger.Info("scheduled job done", zap.Time("tick", tick), zap.Duration("took", time.Since(start)))
}
