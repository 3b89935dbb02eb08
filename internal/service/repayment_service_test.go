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

type repaymentFixture struct {
	svc       *RepaymentService
	loanRepo  *testutil.FakeLoanRepository
	entryRepo *testutil.FakeRepaymentEntryRepository
	txnRepo   *testutil.FakeTransactionRepository
}

func newRepaymentFixture() *repaymentFixture {
	loanRepo := testutil.NewFakeLoanRepository()
	entryRepo := testutil.NewFakeRepaymentEntryRepository()
	txnRepo := testutil.NewFakeTransactionRepository()
	orch := orchestrator.New(testutil.NewFakeIdempotencyRepository(), testutil.NewFakeOutboxRepository(), nil, nil)
	return &repaymentFixture{
		svc:       NewRepaymentService(orch, loanRepo, entryRepo, txnRepo),
		loanRepo:  loanRepo,
		entryRepo: entryRepo,
		txnRepo:   txnRepo,
	}
}

func activeLoan(t *testing.T, repo *testutil.FakeLoanRepository, fundID domain.ID) *domain.Loan {
	t.Helper()
	now := time.Now().UTC()
	l := &domain.Loan{
		ID:                   domain.NewID(),
		FundID:               fundID,
		BorrowerID:           domain.NewID(),
		PrincipalAmount:      decimal.NewFromInt(10000),
		OutstandingPrincipal: decimal.NewFromInt(10000),
		MonthlyInterestRate:  decimal.NewFromFloat(0.02),
		ScheduledInstallment: decimal.NewFromInt(2000),
		MinimumPrincipal:     decimal.NewFromInt(1000),
		Status:               domain.LoanStatusActive,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	created, err := repo.Create(l)
	require.NoError(t, err)
	return created
}

// TestGenerateAndRecordPayment_S2 walks spec.md's S2 loan-math scenario end
// to end: interest 200.00, principalDue 1800, payment 2500 -> interestPaid
// 200, principalPaid 1800, excess 500, outstanding 7700, entry Paid.
func TestGenerateAndRecordPayment_S2(t *testing.T) {
	fx := newRepaymentFixture()
	fundID := domain.NewID()
	loan := activeLoan(t, fx.loanRepo, fundID)

	monthYear := domain.NewMonthYear(2025, 2)
	entry, err := fx.svc.GenerateEntry(loan.ID, monthYear)
	require.NoError(t, err)
	assert.True(t, entry.InterestDue.Equal(decimal.NewFromInt(200)))
	assert.True(t, entry.PrincipalDue.Equal(decimal.NewFromInt(1800)))
	assert.True(t, entry.TotalDue.Equal(decimal.NewFromInt(2000)))

	result, err := fx.svc.RecordPayment(RecordRepaymentInput{
		EntryID: entry.ID, Amount: decimal.NewFromInt(2500), IdempotencyKey: "r1", ExpectedVersion: entry.Version,
	})
	require.NoError(t, err)
	assert.True(t, result.Allocation.InterestPaid.Equal(decimal.NewFromInt(200)))
	assert.True(t, result.Allocation.PrincipalPaid.Equal(decimal.NewFromInt(1800)))
	assert.True(t, result.Allocation.ExcessAppliedToPrincipal.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, domain.RepaymentEntryStatusPaid, result.Entry.Status)

	updatedLoan, err := fx.loanRepo.GetByID(loan.ID)
	require.NoError(t, err)
	assert.True(t, updatedLoan.OutstandingPrincipal.Equal(decimal.NewFromInt(7700)))

	repaymentSum, err := fx.txnRepo.SumByType(fundID, domain.TransactionTypeRepayment)
	require.NoError(t, err)
	assert.True(t, repaymentSum.Equal(decimal.NewFromInt(2500)))

	interestSum, err := fx.txnRepo.SumByType(fundID, domain.TransactionTypeInterestIncome)
	require.NoError(t, err)
	assert.True(t, interestSum.Equal(decimal.NewFromInt(200)))
}

// TestRecordPayment_S4 is spec.md's optimistic-concurrency scenario: two
// clients race on the same entry version; only the first commits.
func TestRecordPayment_S4(t *testing.T) {
	fx := newRepaymentFixture()
	fundID := domain.NewID()
	loan := activeLoan(t, fx.loanRepo, fundID)
	entry, err := fx.svc.GenerateEntry(loan.ID, domain.NewMonthYear(2025, 2))
	require.NoError(t, err)

	_, err = fx.svc.RecordPayment(RecordRepaymentInput{
		EntryID: entry.ID, Amount: decimal.NewFromInt(50), IdempotencyKey: "a", ExpectedVersion: entry.Version,
	})
	require.NoError(t, err)

	_, err = fx.svc.RecordPayment(RecordRepaymentInput{
		EntryID: entry.ID, Amount: decimal.NewFromInt(50), IdempotencyKey: "b", ExpectedVersion: entry.Version,
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	sum, err := fx.txnRepo.SumByType(fundID, domain.TransactionTypeRepayment)
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.NewFromInt(50)), "exactly one repayment transaction of 50 must exist")
}

func TestGenerateEntry_IdempotentOnRerun(t *testing.T) {
	fx := newRepaymentFixture()
	loan := activeLoan(t, fx.loanRepo, domain.NewID())

	first, err := fx.svc.GenerateEntry(loan.ID, domain.NewMonthYear(2025, 2))
	require.NoError(t, err)
	second, err := fx.svc.GenerateEntry(loan.ID, domain.NewMonthYear(2025, 2))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestGenerateEntry_RefusesNonActiveLoan(t *testing.T) {
	fx := newRepaymentFixture()
	loan := activeLoan(t, fx.loanRepo, domain.NewID())
	loan.Status = domain.LoanStatusClosed
	_, err := fx.loanRepo.Update(loan, loan.Version)
	require.NoError(t, err)

	_, err = fx.svc.GenerateEntry(loan.ID, domain.NewMonthYear(2025, 2))
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestRecordPayment_RejectsNonPositiveAmount(t *testing.T) {
	fx := newRepaymentFixture()
	loan := activeLoan(t, fx.loanRepo, domain.NewID())
	entry, err := fx.svc.GenerateEntry(loan.ID, domain.NewMonthYear(2025, 2))
	require.NoError(t, err)

	_, err = fx.svc.RecordPayment(RecordRepaymentInput{EntryID: entry.ID, Amount: decimal.Zero, IdempotencyKey: "x", ExpectedVersion: entry.Version})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
