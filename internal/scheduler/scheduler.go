package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/dealroom/internal/config"
	"github.com/mamadbah2/dealroom/pkg/metrics"
)

const jobTimeout = 2 * time.Minute

// Sweeper is the deal room maintenance surface driven by the scheduler.
type Sweeper interface {
	ExpireLapsed(ctx context.Context) (int, error)
	FinalizeAgreed(ctx context.Context) (int, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	cfg     config.SchedulerConfig
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(cfg config.SchedulerConfig, sweeper Sweeper, m *metrics.Metrics, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		cron:    cron.New(),
		sweeper: sweeper,
		cfg:     cfg,
		metrics: m,
		logger:  logger,
	}
}

// Start registers the sweeps and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler")

	if _, err := s.cron.AddFunc(s.cfg.ExpirySchedule, s.expireLapsedDeals); err != nil {
		return fmt.Errorf("failed to schedule expiry sweep: %w", err)
	}
	if _, err := s.cron.AddFunc(s.cfg.FinalizeSchedule, s.finalizeAgreedDeals); err != nil {
		return fmt.Errorf("failed to schedule finalization sweep: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) expireLapsedDeals() {
	s.run("expire_lapsed", s.sweeper.ExpireLapsed)
}

func (s *Scheduler) finalizeAgreedDeals() {
	s.run("finalize_agreed", s.sweeper.FinalizeAgreed)
}

func (s *Scheduler) run(job string, fn func(context.Context) (int, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	n, err := fn(ctx)
	s.metrics.ObserveJob(job, time.Since(start), err)

	if err != nil {
		s.logger.Error("scheduled job failed", zap.String("job", job), zap.Int("processed", n), zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("scheduled job completed", zap.String("job", job), zap.Int("processed", n))
	}
}
