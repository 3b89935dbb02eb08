package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/dafibh/fortuna/fortuna-backend/internal/orchestrator"
	"github.com/dafibh/fortuna/fortuna-backend/internal/service"
	"github.com/dafibh/fortuna/fortuna-backend/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvisoryLocks_SerialisesPerFund(t *testing.T) {
	locks := NewAdvisoryLocks()
	fundA, fundB := domain.NewID(), domain.NewID()

	assert.True(t, locks.TryAcquire("overdue_job", fundA))
	assert.False(t, locks.TryAcquire("overdue_job", fundA), "same job+fund must not double-acquire")
	assert.True(t, locks.TryAcquire("overdue_job", fundB), "different fund acquires independently")
	assert.True(t, locks.TryAcquire("penalty_job", fundA), "different job name acquires independently")

	locks.Release("overdue_job", fundA)
	assert.True(t, locks.TryAcquire("overdue_job", fundA), "released lock can be reacquired")
}

func activeFundForJobs(t *testing.T, repo *testutil.FakeFundRepository) *domain.Fund {
	t.Helper()
	f := &domain.Fund{
		ID: domain.NewID(), Name: "job fund", Currency: "USD",
		MonthlyInterestRate: decimal.NewFromFloat(0.02), MinimumMonthlyContribution: decimal.NewFromInt(100),
		MinimumPrincipalPerRepayment: decimal.NewFromInt(100), LoanApprovalPolicy: domain.LoanApprovalPolicyAdminOnly,
		OverduePenaltyType: domain.OverduePenaltyNone, ContributionDayOfMonth: 1, State: domain.FundStateActive,
	}
	created, err := repo.Create(f)
	require.NoError(t, err)
	return created
}

func TestOverdueJob_StartStopSweepsActiveFunds(t *testing.T) {
	fundRepo := testutil.NewFakeFundRepository()
	planRepo := testutil.NewFakeMemberPlanRepository()
	dueRepo := testutil.NewFakeContributionDueRepository()
	txnRepo := testutil.NewFakeTransactionRepository()
	orch := orchestrator.New(testutil.NewFakeIdempotencyRepository(), testutil.NewFakeOutboxRepository(), nil, nil)
	contributionService := service.NewContributionService(orch, fundRepo, planRepo, dueRepo, txnRepo)

	activeFundForJobs(t, fundRepo)

	job := NewOverdueJob(contributionService, fundRepo, NewAdvisoryLocks(), zerolog.Nop(), OverdueJobConfig{Interval: 20 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	job.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	cancel()
	job.Stop()
}

func TestRepaymentJob_StartStop(t *testing.T) {
	fundRepo := testutil.NewFakeFundRepository()
	loanRepo := testutil.NewFakeLoanRepository()
	entryRepo := testutil.NewFakeRepaymentEntryRepository()
	txnRepo := testutil.NewFakeTransactionRepository()
	orch := orchestrator.New(testutil.NewFakeIdempotencyRepository(), testutil.NewFakeOutboxRepository(), nil, nil)
	repaymentService := service.NewRepaymentService(orch, loanRepo, entryRepo, txnRepo)

	activeFundForJobs(t, fundRepo)

	job := NewRepaymentJob(repaymentService, fundRepo, loanRepo, NewAdvisoryLocks(), zerolog.Nop(), RepaymentJobConfig{Interval: 20 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	job.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	cancel()
	job.Stop()
}

func TestPenaltyJob_StartStop(t *testing.T) {
	fundRepo := testutil.NewFakeFundRepository()
	loanRepo := testutil.NewFakeLoanRepository()
	entryRepo := testutil.NewFakeRepaymentEntryRepository()
	txnRepo := testutil.NewFakeTransactionRepository()
	orch := orchestrator.New(testutil.NewFakeIdempotencyRepository(), testutil.NewFakeOutboxRepository(), nil, nil)
	penaltyService := service.NewPenaltyService(orch, fundRepo, loanRepo, entryRepo, txnRepo)

	activeFundForJobs(t, fundRepo)

	job := NewPenaltyJob(penaltyService, fundRepo, NewAdvisoryLocks(), zerolog.Nop(), PenaltyJobConfig{Interval: 20 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	job.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	cancel()
	job.Stop()
}

func TestDefaultJobConfigs(t *testing.T) {
	assert.Equal(t, 1*time.Hour, DefaultOverdueJobConfig().Interval)
	assert.Equal(t, 1*time.Hour, DefaultRepaymentJobConfig().Interval)
	assert.Equal(t, 24*time.Hour, DefaultPenaltyJobConfig().Interval)
}
