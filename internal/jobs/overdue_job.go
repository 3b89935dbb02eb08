// Package jobs implements the periodic per-fund sweeps spec.md §5 requires:
// overdue contribution detection, monthly repayment-entry generation and
// overdue marking, and penalty application. Each job is a ticker loop
// modeled on the teacher's ProjectionWorker, serialised per (jobName, fundId)
// via an advisory lock so at most one instance of a given job runs for a
// given fund at a time.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/dafibh/fortuna/fortuna-backend/internal/service"
	"github.com/rs/zerolog"
)

// OverdueJobConfig holds configuration for the overdue detection job.
type OverdueJobConfig struct {
	Interval time.Duration
}

// DefaultOverdueJobConfig returns sensible defaults.
func DefaultOverdueJobConfig() OverdueJobConfig {
	return OverdueJobConfig{Interval: 1 * time.Hour}
}

// OverdueJob periodically sweeps every Active fund's contribution dues,
// transitioning Pending/Partial dues past their grace period into Late or
// Missed (component C3's DetectOverdue).
type OverdueJob struct {
	contributionService *service.ContributionService
	fundRepo            domain.FundRepository
	locks               *AdvisoryLocks
	logger              zerolog.Logger
	interval            time.Duration
	stopCh              chan struct{}
	doneCh              chan struct{}
	mu                  sync.Mutex
	running             bool
}

// NewOverdueJob creates a new OverdueJob.
func NewOverdueJob(contributionService *service.ContributionService, fundRepo domain.FundRepository, locks *AdvisoryLocks, logger zerolog.Logger, config OverdueJobConfig) *OverdueJob {
	if config.Interval <= 0 {
		config.Interval = 1 * time.Hour
	}
	return &OverdueJob{
		contributionService: contributionService,
		fundRepo:            fundRepo,
		locks:               locks,
		logger:              logger.With().Str("component", "overdue_job").Logger(),
		interval:            config.Interval,
		stopCh:              make(chan struct{}),
		doneCh:              make(chan struct{}),
	}
}

// Start begins the background overdue-detection sweep.
func (j *OverdueJob) Start(ctx context.Context) {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return
	}
	j.running = true
	j.mu.Unlock()

	j.logger.Info().Dur("interval", j.interval).Msg("starting overdue job")
	go j.run(ctx)
}

// Stop gracefully stops the job, blocking until its loop exits.
func (j *OverdueJob) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	j.mu.Unlock()

	close(j.stopCh)
	<-j.doneCh
	j.logger.Info().Msg("overdue job stopped")
}

func (j *OverdueJob) run(ctx context.Context) {
	defer close(j.doneCh)

	j.sweepAll(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.mu.Lock()
			j.running = false
			j.mu.Unlock()
			return
		case <-j.stopCh:
			j.mu.Lock()
			j.running = false
			j.mu.Unlock()
			return
		case <-ticker.C:
			j.sweepAll(ctx)
		}
	}
}

func (j *OverdueJob) sweepAll(ctx context.Context) {
	funds, err := j.fundRepo.ListActive()
	if err != nil {
		j.logger.Error().Err(err).Msg("failed to list active funds for overdue sweep")
		return
	}

	now := time.Now().UTC()
	for _, fund := range funds {
		select {
		case <-ctx.Done():
			return
		case <-j.stopCh:
			return
		default:
		}

		if !j.locks.TryAcquire("overdue_job", fund.ID) {
			continue
		}
		transitioned, err := j.contributionService.DetectOverdue(fund.ID, now)
		j.locks.Release("overdue_job", fund.ID)
		if err != nil {
			j.logger.Error().Err(err).Str("fund_id", fund.ID.String()).Msg("overdue detection failed")
			continue
		}
		if transitioned > 0 {
			j.logger.Debug().Str("fund_id", fund.ID.String()).Int("transitioned", transitioned).Msg("detected overdue contributions")
		}
	}
}
