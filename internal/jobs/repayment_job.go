package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/dafibh/fortuna/fortuna-backend/internal/service"
	"github.com/rs/zerolog"
)

// RepaymentJobConfig holds configuration for the repayment job.
type RepaymentJobConfig struct {
	Interval time.Duration
}

// DefaultRepaymentJobConfig returns sensible defaults.
func DefaultRepaymentJobConfig() RepaymentJobConfig {
	return RepaymentJobConfig{Interval: 1 * time.Hour}
}

// RepaymentJob periodically generates the current month's RepaymentEntry
// for every active loan in every Active fund, then marks entries from
// earlier months Overdue past their dueDate (component C5's generation and
// overdue-marking side).
type RepaymentJob struct {
	repaymentService *service.RepaymentService
	fundRepo         domain.FundRepository
	loanRepo         domain.LoanRepository
	locks            *AdvisoryLocks
	logger           zerolog.Logger
	interval         time.Duration
	stopCh           chan struct{}
	doneCh           chan struct{}
	mu               sync.Mutex
	running          bool
}

// NewRepaymentJob creates a new RepaymentJob.
func NewRepaymentJob(repaymentService *service.RepaymentService, fundRepo domain.FundRepository, loanRepo domain.LoanRepository, locks *AdvisoryLocks, logger zerolog.Logger, config RepaymentJobConfig) *RepaymentJob {
	if config.Interval <= 0 {
		config.Interval = 1 * time.Hour
	}
	return &RepaymentJob{
		repaymentService: repaymentService,
		fundRepo:         fundRepo,
		loanRepo:         loanRepo,
		locks:            locks,
		logger:           logger.With().Str("component", "repayment_job").Logger(),
		interval:         config.Interval,
		stopCh:           make(chan struct{}),
		doneCh:           make(chan struct{}),
	}
}

// Start begins the background repayment sweep.
func (j *RepaymentJob) Start(ctx context.Context) {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return
	}
	j.running = true
	j.mu.Unlock()

	j.logger.Info().Dur("interval", j.interval).Msg("starting repayment job")
	go j.run(ctx)
}

// Stop gracefully stops the job, blocking until its loop exits.
func (j *RepaymentJob) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	j.mu.Unlock()

	close(j.stopCh)
	<-j.doneCh
	j.logger.Info().Msg("repayment job stopped")
}

func (j *RepaymentJob) run(ctx context.Context) {
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

func (j *RepaymentJob) sweepAll(ctx context.Context) {
	funds, err := j.fundRepo.ListActive()
	if err != nil {
		j.logger.Error().Err(err).Msg("failed to list active funds for repayment sweep")
		return
	}

	now := time.Now().UTC()
	currentMonth := domain.NewMonthYear(now.Year(), int(now.Month()))

	for _, fund := range funds {
		select {
		case <-ctx.Done():
			return
		case <-j.stopCh:
			return
		default:
		}

		if !j.locks.TryAcquire("repayment_job", fund.ID) {
			continue
		}
		j.sweepFund(fund.ID, currentMonth, now)
		j.locks.Release("repayment_job", fund.ID)
	}
}

func (j *RepaymentJob) sweepFund(fundID domain.ID, currentMonth domain.MonthYear, now time.Time) {
	loans, err := j.loanRepo.ListActiveByFund(fundID)
	if err != nil {
		j.logger.Error().Err(err).Str("fund_id", fundID.String()).Msg("failed to list active loans")
		return
	}
	for _, loan := range loans {
		if _, err := j.repaymentService.GenerateEntry(loan.ID, currentMonth); err != nil {
			j.logger.Error().Err(err).Str("loan_id", loan.ID.String()).Msg("failed to generate repayment entry")
		}
	}

	transitioned, err := j.repaymentService.MarkOverdue(fundID, now)
	if err != nil {
		j.logger.Error().Err(err).Str("fund_id", fundID.String()).Msg("failed to mark overdue repayment entries")
		return
	}
	if transitioned > 0 {
		j.logger.Debug().Str("fund_id", fundID.String()).Int("transitioned", transitioned).Msg("marked repayment entries overdue")
	}
}
