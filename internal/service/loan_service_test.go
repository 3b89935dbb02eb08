package service

import (
	"testing"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/dafibh/fortuna/fortuna-backend/internal/orchestrator"
	"github.com/dafibh/fortuna/fortuna-backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loanFixture struct {
	svc      *LoanService
	loanRepo *testutil.FakeLoanRepository
	projRepo *testutil.FakeFundProjectionRepository
	txnRepo  *testutil.FakeTransactionRepository
}

func newLoanFixture() *loanFixture {
	loanRepo := testutil.NewFakeLoanRepository()
	projRepo := testutil.NewFakeFundProjectionRepository()
	txnRepo := testutil.NewFakeTransactionRepository()
	orch := orchestrator.New(testutil.NewFakeIdempotencyRepository(), testutil.NewFakeOutboxRepository(), nil, nil)
	return &loanFixture{
		svc:      NewLoanService(orch, loanRepo, projRepo, txnRepo),
		loanRepo: loanRepo,
		projRepo: projRepo,
		txnRepo:  txnRepo,
	}
}

func seedProjection(t *testing.T, repo *testutil.FakeFundProjectionRepository, fundID domain.ID, configure func(*domain.FundProjection)) *domain.FundProjection {
	t.Helper()
	p := &domain.FundProjection{
		FundID:                       fundID,
		MonthlyInterestRate:          decimal.NewFromFloat(0.02),
		MinimumPrincipalPerRepayment: decimal.NewFromInt(1000),
		LoanApprovalPolicy:           domain.LoanApprovalPolicyAdminOnly,
		PenaltyType:                  domain.OverduePenaltyNone,
		IsActive:                     true,
	}
	if configure != nil {
		configure(p)
	}
	created, err := repo.Upsert(p)
	require.NoError(t, err)
	return created
}

func TestRequestLoan_RefusesWhenFundNotActive(t *testing.T) {
	fx := newLoanFixture()
	fundID := domain.NewID()
	seedProjection(t, fx.projRepo, fundID, func(p *domain.FundProjection) { p.IsActive = false })

	_, err := fx.svc.RequestLoan(RequestLoanInput{
		FundID: fundID, BorrowerID: domain.NewID(), PrincipalAmount: decimal.NewFromInt(1000),
		RequestedStartMonth: domain.NewMonthYear(2025, 2),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestRequestLoan_RefusesAboveMaxLoanPerMember(t *testing.T) {
	fx := newLoanFixture()
	fundID := domain.NewID()
	cap := decimal.NewFromInt(5000)
	seedProjection(t, fx.projRepo, fundID, func(p *domain.FundProjection) { p.MaxLoanPerMember = &cap })

	_, err := fx.svc.RequestLoan(RequestLoanInput{
		FundID: fundID, BorrowerID: domain.NewID(), PrincipalAmount: decimal.NewFromInt(10000),
		RequestedStartMonth: domain.NewMonthYear(2025, 2),
	})
	assert.ErrorIs(t, err, domain.ErrMaxLoanExceeded)
}

func TestRequestLoan_RefusesAboveMaxConcurrentLoans(t *testing.T) {
	fx := newLoanFixture()
	fundID := domain.NewID()
	borrower := domain.NewID()
	maxConcurrent := int32(1)
	seedProjection(t, fx.projRepo, fundID, func(p *domain.FundProjection) { p.MaxConcurrentLoans = &maxConcurrent })

	_, err := fx.svc.RequestLoan(RequestLoanInput{
		FundID: fundID, BorrowerID: borrower, PrincipalAmount: decimal.NewFromInt(1000),
		RequestedStartMonth: domain.NewMonthYear(2025, 2),
	})
	require.NoError(t, err)

	_, err = fx.svc.RequestLoan(RequestLoanInput{
		FundID: fundID, BorrowerID: borrower, PrincipalAmount: decimal.NewFromInt(1000),
		RequestedStartMonth: domain.NewMonthYear(2025, 2),
	})
	assert.ErrorIs(t, err, domain.ErrMaxConcurrentLoans)
}

// TestApprove_S2 walks spec.md's S2 loan-math scenario through approval and
// disbursement (repayment recording is exercised in repayment_service_test.go).
func TestApprove_S2(t *testing.T) {
	fx := newLoanFixture()
	fundID := domain.NewID()
	seedProjection(t, fx.projRepo, fundID, func(p *domain.FundProjection) {
		p.MonthlyInterestRate = decimal.NewFromFloat(0.02)
		p.MinimumPrincipalPerRepayment = decimal.NewFromInt(1000)
	})

	loan, err := fx.svc.RequestLoan(RequestLoanInput{
		FundID: fundID, BorrowerID: domain.NewID(), PrincipalAmount: decimal.NewFromInt(10000),
		RequestedStartMonth: domain.NewMonthYear(2025, 2),
	})
	require.NoError(t, err)

	approved, err := fx.svc.Approve(loan.ID, domain.NewID(), decimal.NewFromInt(2000), loan.Version)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusActive, approved.Status)
	assert.True(t, approved.OutstandingPrincipal.Equal(decimal.NewFromInt(10000)))
	assert.True(t, approved.MonthlyInterestRate.Equal(decimal.NewFromFloat(0.02)))

	disbursementSum, err := fx.txnRepo.SumByType(fundID, domain.TransactionTypeDisbursement)
	require.NoError(t, err)
	assert.True(t, disbursementSum.Equal(decimal.NewFromInt(10000).Neg()))
}

func TestReject_RequiresReason(t *testing.T) {
	fx := newLoanFixture()
	fundID := domain.NewID()
	seedProjection(t, fx.projRepo, fundID, nil)

	loan, err := fx.svc.RequestLoan(RequestLoanInput{
		FundID: fundID, BorrowerID: domain.NewID(), PrincipalAmount: decimal.NewFromInt(1000),
		RequestedStartMonth: domain.NewMonthYear(2025, 2),
	})
	require.NoError(t, err)

	_, err = fx.svc.Reject(loan.ID, domain.NewID(), "", loan.Version)
	assert.ErrorIs(t, err, domain.ErrValidation)

	rejected, err := fx.svc.Reject(loan.ID, domain.NewID(), "insufficient history", loan.Version)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusRejected, rejected.Status)
}

func TestApprove_FailsFromNonPendingStatus(t *testing.T) {
	fx := newLoanFixture()
	fundID := domain.NewID()
	seedProjection(t, fx.projRepo, fundID, nil)

	loan, err := fx.svc.RequestLoan(RequestLoanInput{
		FundID: fundID, BorrowerID: domain.NewID(), PrincipalAmount: decimal.NewFromInt(1000),
		RequestedStartMonth: domain.NewMonthYear(2025, 2),
	})
	require.NoError(t, err)
	_, err = fx.svc.Reject(loan.ID, domain.NewID(), "no", loan.Version)
	require.NoError(t, err)

	rejected, err := fx.loanRepo.GetByID(loan.ID)
	require.NoError(t, err)

	_, err = fx.svc.Approve(loan.ID, domain.NewID(), decimal.NewFromInt(100), rejected.Version)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}
