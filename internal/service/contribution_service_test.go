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

type contributionFixture struct {
	svc      *ContributionService
	fundRepo *testutil.FakeFundRepository
	planRepo *testutil.FakeMemberPlanRepository
	dueRepo  *testutil.FakeContributionDueRepository
	txnRepo  *testutil.FakeTransactionRepository
}

func newContributionFixture() *contributionFixture {
	fundRepo := testutil.NewFakeFundRepository()
	planRepo := testutil.NewFakeMemberPlanRepository()
	dueRepo := testutil.NewFakeContributionDueRepository()
	txnRepo := testutil.NewFakeTransactionRepository()
	orch := orchestrator.New(testutil.NewFakeIdempotencyRepository(), testutil.NewFakeOutboxRepository(), nil, nil)
	return &contributionFixture{
		svc:      NewContributionService(orch, fundRepo, planRepo, dueRepo, txnRepo),
		fundRepo: fundRepo,
		planRepo: planRepo,
		dueRepo:  dueRepo,
		txnRepo:  txnRepo,
	}
}

func activeFund(t *testing.T, repo *testutil.FakeFundRepository, configure func(*domain.Fund)) *domain.Fund {
	t.Helper()
	now := time.Now().UTC()
	f := &domain.Fund{
		ID:                           domain.NewID(),
		Name:                         "F",
		Currency:                     "USD",
		MonthlyInterestRate:          decimal.NewFromFloat(0.02),
		MinimumMonthlyContribution:   decimal.NewFromInt(1000),
		MinimumPrincipalPerRepayment: decimal.NewFromInt(1000),
		LoanApprovalPolicy:           domain.LoanApprovalPolicyAdminOnly,
		OverduePenaltyType:           domain.OverduePenaltyNone,
		ContributionDayOfMonth:       5,
		GracePeriodDays:              3,
		State:                        domain.FundStateActive,
		CreatedAt:                    now,
		UpdatedAt:                    now,
	}
	if configure != nil {
		configure(f)
	}
	created, err := repo.Create(f)
	require.NoError(t, err)
	return created
}

// TestGenerateDues_S1 walks spec.md's S1 happy-path contribution cycle.
func TestGenerateDues_S1(t *testing.T) {
	fx := newContributionFixture()
	f := activeFund(t, fx.fundRepo, nil)

	userA, userB := domain.NewID(), domain.NewID()
	for _, u := range []domain.ID{userA, userB} {
		_, err := fx.planRepo.Create(&domain.MemberContributionPlan{
			ID: domain.NewID(), FundID: f.ID, UserID: u,
			MonthlyContributionAmount: decimal.NewFromInt(1000),
			JoinDate:                  time.Now(),
			IsActive:                  true,
		})
		require.NoError(t, err)
	}

	monthYear := domain.NewMonthYear(2025, 1)
	result, err := fx.svc.GenerateDues(f.ID, monthYear)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Generated)
	assert.Equal(t, 0, result.Skipped)

	// Re-running is a no-op (idempotent on (fundId, userId, monthYear)).
	result2, err := fx.svc.GenerateDues(f.ID, monthYear)
	require.NoError(t, err)
	assert.Equal(t, 0, result2.Generated)
	assert.Equal(t, 2, result2.Skipped)

	dueA, err := fx.dueRepo.Get(f.ID, userA, monthYear)
	require.NoError(t, err)

	// RecordPayment(A, 1000, key=k1) -> Paid.
	paid, err := fx.svc.RecordPayment(RecordPaymentInput{
		DueID: dueA.ID, Amount: decimal.NewFromInt(1000), RecorderID: userA,
		IdempotencyKey: "k1", ExpectedVersion: dueA.Version,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ContributionDueStatusPaid, paid.Status)

	// Retry with same key returns the same result without a second ledger entry.
	retried, err := fx.svc.RecordPayment(RecordPaymentInput{
		DueID: dueA.ID, Amount: decimal.NewFromInt(1000), RecorderID: userA,
		IdempotencyKey: "k1", ExpectedVersion: dueA.Version,
	})
	require.NoError(t, err)
	assert.Equal(t, paid.ID, retried.ID)

	sum, err := fx.txnRepo.SumByType(f.ID, domain.TransactionTypeContribution)
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.NewFromInt(1000)), "ledger must reflect exactly one contribution of 1000")

	dueB, err := fx.dueRepo.Get(f.ID, userB, monthYear)
	require.NoError(t, err)
	partial, err := fx.svc.RecordPayment(RecordPaymentInput{
		DueID: dueB.ID, Amount: decimal.NewFromInt(400), RecorderID: userB,
		IdempotencyKey: "k2", ExpectedVersion: dueB.Version,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ContributionDueStatusPartial, partial.Status)
	assert.True(t, partial.RemainingBalance().Equal(decimal.NewFromInt(600)))

	transitioned, err := fx.svc.DetectOverdue(f.ID, partial.DueDate.AddDate(0, 0, 10))
	require.NoError(t, err)
	assert.Equal(t, 1, transitioned)

	lateDue, err := fx.dueRepo.GetByID(partial.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ContributionDueStatusLate, lateDue.Status)
}

func TestGenerateDues_RefusesWhenFundNotActive(t *testing.T) {
	fx := newContributionFixture()
	f := activeFund(t, fx.fundRepo, func(fund *domain.Fund) { fund.State = domain.FundStateDraft })

	_, err := fx.svc.GenerateDues(f.ID, domain.NewMonthYear(2025, 1))
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestRecordPayment_RejectsNonPositiveAmount(t *testing.T) {
	fx := newContributionFixture()
	f := activeFund(t, fx.fundRepo, nil)
	due, err := fx.dueRepo.Create(&domain.ContributionDue{
		ID: domain.NewID(), FundID: f.ID, UserID: domain.NewID(),
		MonthYear: domain.NewMonthYear(2025, 1), AmountDue: decimal.NewFromInt(1000),
		Status: domain.ContributionDueStatusPending, DueDate: time.Now(),
	})
	require.NoError(t, err)

	_, err = fx.svc.RecordPayment(RecordPaymentInput{
		DueID: due.ID, Amount: decimal.Zero, IdempotencyKey: "k", ExpectedVersion: due.Version,
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRecordPayment_FailsAlreadyPaid(t *testing.T) {
	fx := newContributionFixture()
	f := activeFund(t, fx.fundRepo, nil)
	due, err := fx.dueRepo.Create(&domain.ContributionDue{
		ID: domain.NewID(), FundID: f.ID, UserID: domain.NewID(),
		MonthYear: domain.NewMonthYear(2025, 1), AmountDue: decimal.NewFromInt(1000),
		Status: domain.ContributionDueStatusPaid, AmountPaid: decimal.NewFromInt(1000), DueDate: time.Now(),
	})
	require.NoError(t, err)

	_, err = fx.svc.RecordPayment(RecordPaymentInput{
		DueID: due.ID, Amount: decimal.NewFromInt(100), IdempotencyKey: "k", ExpectedVersion: due.Version,
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyPaid)
}

func TestRecordPayment_ConflictOnStaleVersion(t *testing.T) {
	fx := newContributionFixture()
	f := activeFund(t, fx.fundRepo, nil)
	due, err := fx.dueRepo.Create(&domain.ContributionDue{
		ID: domain.NewID(), FundID: f.ID, UserID: domain.NewID(),
		MonthYear: domain.NewMonthYear(2025, 1), AmountDue: decimal.NewFromInt(1000),
		Status: domain.ContributionDueStatusPending, DueDate: time.Now(),
	})
	require.NoError(t, err)

	_, err = fx.svc.RecordPayment(RecordPaymentInput{
		DueID: due.ID, Amount: decimal.NewFromInt(100), IdempotencyKey: "k1", ExpectedVersion: due.Version + 1,
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
}
