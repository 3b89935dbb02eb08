package service

import (
	"testing"
	"time"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/dafibh/fortuna/fortuna-backend/internal/orchestrator"
	"github.com/dafibh/fortuna/fortuna-backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type penaltyFixture struct {
	svc       *PenaltyService
	fundRepo  *testutil.FakeFundRepository
	loanRepo  *testutil.FakeLoanRepository
	entryRepo *testutil.FakeRepaymentEntryRepository
	txnRepo   *testutil.FakeTransactionRepository
}

func newPenaltyFixture() *penaltyFixture {
	fundRepo := testutil.NewFakeFundRepository()
	loanRepo := testutil.NewFakeLoanRepository()
	entryRepo := testutil.NewFakeRepaymentEntryRepository()
	txnRepo := testutil.NewFakeTransactionRepository()
	orch := orchestrator.New(testutil.NewFakeIdempotencyRepository(), testutil.NewFakeOutboxRepository(), nil, nil)
	return &penaltyFixture{
		svc:       NewPenaltyService(orch, fundRepo, loanRepo, entryRepo, txnRepo),
		fundRepo:  fundRepo,
		loanRepo:  loanRepo,
		entryRepo: entryRepo,
		txnRepo:   txnRepo,
	}
}

func percentagePenaltyFund(t *testing.T, repo *testutil.FakeFundRepository) *domain.Fund {
	t.Helper()
	f := &domain.Fund{
		ID: domain.NewID(), Name: "penalty fund", Currency: "USD",
		MonthlyInterestRate: decimal.NewFromFloat(0.02), MinimumMonthlyContribution: decimal.NewFromInt(100),
		MinimumPrincipalPerRepayment: decimal.NewFromInt(100), LoanApprovalPolicy: domain.LoanApprovalPolicyAdminOnly,
		OverduePenaltyType: domain.OverduePenaltyPercentage, OverduePenaltyValue: decimal.NewFromInt(5),
		ContributionDayOfMonth: 1, GracePeriodDays: 5, State: domain.FundStateActive,
	}
	created, err := repo.Create(f)
	require.NoError(t, err)
	return created
}

func overdueEntry(t *testing.T, repo *testutil.FakeRepaymentEntryRepository, loanID domain.ID, monthYear domain.MonthYear, totalDue decimal.Decimal) *domain.RepaymentEntry {
	t.Helper()
	now := time.Now().UTC()
	e := &domain.RepaymentEntry{
		ID: domain.NewID(), LoanID: loanID, MonthYear: monthYear,
		TotalDue: totalDue, AmountPaid: domain.ZeroMoney, Status: domain.RepaymentEntryStatusOverdue,
		DueDate: monthYear.LastDay(), CreatedAt: now, UpdatedAt: now,
	}
	created, err := repo.Create(e)
	require.NoError(t, err)
	return created
}

// TestApplyPenalties_S6 walks spec.md's S6 scenario: percentage penalty 5%
// against a 1000 overdue entry with no paid-down amount yields a 50.00
// penalty, added onto next month's existing 1200 entry to make 1250.
func TestApplyPenalties_S6(t *testing.T) {
	fx := newPenaltyFixture()
	fund := percentagePenaltyFund(t, fx.fundRepo)
	loanID := domain.NewID()

	march := domain.NewMonthYear(2025, 3)
	overdueEntry(t, fx.entryRepo, loanID, march, decimal.NewFromInt(1000))

	april := domain.NewMonthYear(2025, 4)
	nextEntry := overdueEntry(t, fx.entryRepo, loanID, april, decimal.NewFromInt(1200))
	nextEntry.Status = domain.RepaymentEntryStatusPending
	_, err := fx.entryRepo.Update(nextEntry, nextEntry.Version)
	require.NoError(t, err)

	applied, err := fx.svc.ApplyPenalties(fund.ID, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	updated, err := fx.entryRepo.Get(loanID, april)
	require.NoError(t, err)
	assert.True(t, updated.TotalDue.Equal(decimal.NewFromInt(1250)), "expected 1250, got %s", updated.TotalDue)
	assert.True(t, updated.PenaltyDue.Equal(decimal.NewFromInt(50)))

	penaltySum, err := fx.txnRepo.SumByType(fund.ID, domain.TransactionTypePenalty)
	require.NoError(t, err)
	assert.True(t, penaltySum.Equal(decimal.NewFromInt(50)))
}

// TestApplyPenalties_CreatesEntryWhenNoneExists covers spec.md's alternate
// S6 branch: no next-month entry exists, so a penalty-only entry is created.
func TestApplyPenalties_CreatesEntryWhenNoneExists(t *testing.T) {
	fx := newPenaltyFixture()
	fund := percentagePenaltyFund(t, fx.fundRepo)
	loanID := domain.NewID()

	march := domain.NewMonthYear(2025, 3)
	overdueEntry(t, fx.entryRepo, loanID, march, decimal.NewFromInt(1000))

	applied, err := fx.svc.ApplyPenalties(fund.ID, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	april := domain.NewMonthYear(2025, 4)
	created, err := fx.entryRepo.Get(loanID, april)
	require.NoError(t, err)
	assert.True(t, created.TotalDue.Equal(decimal.NewFromInt(50)))
	assert.True(t, created.InterestDue.Equal(domain.ZeroMoney))
	assert.True(t, created.PrincipalDue.Equal(domain.ZeroMoney))
	assert.Equal(t, 15, created.DueDate.Day())
}

// TestApplyPenalties_DoesNotDoubleApplyWithinRun verifies the re-run guard:
// running the job twice over the same overdue entry only charges once.
func TestApplyPenalties_DoesNotDoubleApplyWithinRun(t *testing.T) {
	fx := newPenaltyFixture()
	fund := percentagePenaltyFund(t, fx.fundRepo)
	loanID := domain.NewID()
	march := domain.NewMonthYear(2025, 3)
	overdueEntry(t, fx.entryRepo, loanID, march, decimal.NewFromInt(1000))

	asOf := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	_, err := fx.svc.ApplyPenalties(fund.ID, asOf)
	require.NoError(t, err)
	secondRun, err := fx.svc.ApplyPenalties(fund.ID, asOf)
	require.NoError(t, err)
	assert.Equal(t, 0, secondRun)

	penaltySum, err := fx.txnRepo.SumByType(fund.ID, domain.TransactionTypePenalty)
	require.NoError(t, err)
	assert.True(t, penaltySum.Equal(decimal.NewFromInt(50)))
}

func TestApplyPenalties_NoopWhenPenaltyTypeNone(t *testing.T) {
	fx := newPenaltyFixture()
	f := &domain.Fund{
		ID: domain.NewID(), Name: "no-penalty fund", Currency: "USD",
		MonthlyInterestRate: decimal.NewFromFloat(0.02), MinimumMonthlyContribution: decimal.NewFromInt(100),
		MinimumPrincipalPerRepayment: decimal.NewFromInt(100), LoanApprovalPolicy: domain.LoanApprovalPolicyAdminOnly,
		OverduePenaltyType: domain.OverduePenaltyNone, ContributionDayOfMonth: 1, State: domain.FundStateActive,
	}
	fund, err := fx.fundRepo.Create(f)
	require.NoError(t, err)

	applied, err := fx.svc.ApplyPenalties(fund.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 0, applied)
}
