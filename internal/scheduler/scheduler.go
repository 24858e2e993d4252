// Package scheduler wires up the cron job that periodically sweeps expired
// cache entries.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"jobmate/recommendation-service/internal/listingcache"
	"jobmate/recommendation-service/internal/logging"
)

// Sweeper removes expired cache entries.
type Sweeper interface {
	SweepExpired(ctx context.Context) (listingcache.SweepReport, error)
}

// Scheduler wraps robfig/cron and manages the sweep loop.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	log     *logging.Logger
	spec    string // cron spec, e.g. "@every 6h"
}

// New creates a Scheduler that fires every interval. Overlapping runs are
// skipped.
func New(sweeper Sweeper, interval time.Duration, log *logging.Logger) *Scheduler {
	if log == nil {
		log = logging.NewNop()
	}
	cl := cronLogger{log: log.With("component", "scheduler")}
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		sweeper: sweeper,
		log:     log,
		spec:    fmt.Sprintf("@every %s", interval),
	}
}

// Start registers the job and starts the scheduler. Also runs one sweep
// immediately so stale entries from a previous run go away without waiting
// for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.log.Info("cron started", "spec", s.spec)

	go s.RunOnce(ctx)

	return nil
}

// Stop shuts down the scheduler and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("cron stopped")
}

// RunOnce performs one sweep and logs its outcome.
func (s *Scheduler) RunOnce(ctx context.Context) (listingcache.SweepReport, error) {
	if err := ctx.Err(); err != nil {
		return listingcache.SweepReport{}, err
	}
	rep, err := s.sweeper.SweepExpired(ctx)
	if err != nil {
		s.log.Error("sweep failed", "error", err)
		return rep, err
	}
	s.log.Debug("sweep cycle complete", "queries", rep.Queries, "jobs", rep.Jobs)
	return rep, nil
}

// cronLogger routes cron's own logging through the service logger.
type cronLogger struct {
	log *logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
