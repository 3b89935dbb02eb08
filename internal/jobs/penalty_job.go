package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/dafibh/fortuna/fortuna-backend/internal/service"
	"github.com/rs/zerolog"
)

// PenaltyJobConfig holds configuration for the penalty job.
type PenaltyJobConfig struct {
	Interval time.Duration
}

// DefaultPenaltyJobConfig returns sensible defaults.
func DefaultPenaltyJobConfig() PenaltyJobConfig {
	return PenaltyJobConfig{Interval: 24 * time.Hour}
}

// PenaltyJob periodically applies each Active fund's configured flat or
// percentage penalty to Overdue repayment entries (component C7).
type PenaltyJob struct {
	penaltyService *service.PenaltyService
	fundRepo       domain.FundRepository
	locks          *AdvisoryLocks
	logger         zerolog.Logger
	interval       time.Duration
	stopCh         chan struct{}
	doneCh         chan struct{}
	mu             sync.Mutex
	running        bool
}

// NewPenaltyJob creates a new PenaltyJob.
func NewPenaltyJob(penaltyService *service.PenaltyService, fundRepo domain.FundRepository, locks *AdvisoryLocks, logger zerolog.Logger, config PenaltyJobConfig) *PenaltyJob {
	if config.Interval <= 0 {
		config.Interval = 24 * time.Hour
	}
	return &PenaltyJob{
		penaltyService: penaltyService,
		fundRepo:       fundRepo,
		locks:          locks,
		logger:         logger.With().Str("component", "penalty_job").Logger(),
		interval:       config.Interval,
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}
}

// Start begins the background penalty sweep.
func (j *PenaltyJob) Start(ctx context.Context) {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return
	}
	j.running = true
	j.mu.Unlock()

	j.logger.Info().Dur("interval", j.interval).Msg("starting penalty job")
	go j.run(ctx)
}

// Stop gracefully stops the job, blocking until its loop exits.
func (j *PenaltyJob) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	j.mu.Unlock()

	close(j.stopCh)
	<-j.doneCh
	j.logger.Info().Msg("penalty job stopped")
}

func (j *PenaltyJob) run(ctx context.Context) {
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

func (j *PenaltyJob) sweepAll(ctx context.Context) {
	funds, err := j.fundRepo.ListActive()
	if err != nil {
		j.logger.Error().Err(err).Msg("failed to list active funds for penalty sweep")
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

		if !j.locks.TryAcquire("penalty_job", fund.ID) {
			continue
		}
		applied, err := j.penaltyService.ApplyPenalties(fund.ID, now)
		j.locks.Release("penalty_job", fund.ID)
		if err != nil {
			j.logger.Error().Err(err).Str("fund_id", fund.ID.String()).Msg("penalty application failed")
			continue
		}
		if applied > 0 {
			j.logger.Debug().Str("fund_id", fund.ID.String()).Int("applied", applied).Msg("applied overdue penalties")
		}
	}
}
