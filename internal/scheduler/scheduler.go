// Package scheduler runs the accrual engine on a cron spec for deployments
// without an external scheduler. It is an optional convenience: overlap
// with the HTTP trigger is harmless because the engine itself is idempotent
// per balance per day.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ndmitriev/coinvault/internal/logger"
	"github.com/ndmitriev/coinvault/internal/service/interest"
)

type engine interface {
	ApplyDailyInterestToAllUsers(ctx context.Context) (interest.RunResult, error)
}

type Scheduler struct {
	spec       string
	runTimeout time.Duration
	engine     engine
	logger     logger.Logger
	cron       *cron.Cron
}

func New(spec string, runTimeout time.Duration, e engine, l logger.Logger) *Scheduler {
	return &Scheduler{
		spec:       spec,
		runTimeout: runTimeout,
		engine:     e,
		logger:     l,
		cron:       cron.New(cron.WithLocation(time.UTC)),
	}
}

// Start registers the accrual job and runs it on schedule until the context
// is cancelled. Returns immediately; the returned channel closes when the
// scheduler (and any in-flight run) has stopped.
func (s *Scheduler) Start(ctx context.Context) (<-chan struct{}, error) {
	_, err := s.cron.AddFunc(s.spec, func() {
		runCtx := ctx
		if s.runTimeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(ctx, s.runTimeout)
			defer cancel()
		}

		res, err := s.engine.ApplyDailyInterestToAllUsers(runCtx)
		if err != nil {
			s.logger.Error("Scheduled accrual run failed", "error", err)
			return
		}

		s.logger.Info("Scheduled accrual run finished",
			"date", res.Date,
			"processed", res.AccountsProcessed,
			"skipped", res.SkippedAlreadyRan,
			"errors", len(res.Errors),
		)
	})
	if err != nil {
		return nil, err
	}

	s.cron.Start()
	s.logger.Info("Accrual scheduler started", "spec", s.spec)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		// Stop returns a context that is done when running jobs finish
		<-s.cron.Stop().Done()
		s.logger.Debug("Accrual scheduler stopped")
	}()

	return stopped, nil
}
