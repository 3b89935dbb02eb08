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

type dissolutionFixture struct {
	svc            *DissolutionService
	fundRepo       *testutil.FakeFundRepository
	roleRepo       *testutil.FakeFundRoleRepository
	loanRepo       *testutil.FakeLoanRepository
	entryRepo      *testutil.FakeRepaymentEntryRepository
	dueRepo        *testutil.FakeContributionDueRepository
	txnRepo        *testutil.FakeTransactionRepository
	settlementRepo *testutil.FakeDissolutionSettlementRepository
}

func newDissolutionFixture() *dissolutionFixture {
	fundRepo := testutil.NewFakeFundRepository()
	roleRepo := testutil.NewFakeFundRoleRepository()
	loanRepo := testutil.NewFakeLoanRepository()
	entryRepo := testutil.NewFakeRepaymentEntryRepository()
	dueRepo := testutil.NewFakeContributionDueRepository()
	txnRepo := testutil.NewFakeTransactionRepository()
	settlementRepo := testutil.NewFakeDissolutionSettlementRepository()
	orch := orchestrator.New(testutil.NewFakeIdempotencyRepository(), testutil.NewFakeOutboxRepository(), nil, nil)
	return &dissolutionFixture{
		svc:            NewDissolutionService(orch, fundRepo, roleRepo, loanRepo, entryRepo, dueRepo, txnRepo, settlementRepo),
		fundRepo:       fundRepo,
		roleRepo:       roleRepo,
		loanRepo:       loanRepo,
		entryRepo:      entryRepo,
		dueRepo:        dueRepo,
		txnRepo:        txnRepo,
		settlementRepo: settlementRepo,
	}
}

func dissolvingFund(t *testing.T, repo *testutil.FakeFundRepository) *domain.Fund {
	t.Helper()
	f := &domain.Fund{
		ID: domain.NewID(), Name: "dissolving fund", Currency: "USD",
		MonthlyInterestRate: decimal.NewFromFloat(0.02), MinimumMonthlyContribution: decimal.NewFromInt(100),
		MinimumPrincipalPerRepayment: decimal.NewFromInt(100), LoanApprovalPolicy: domain.LoanApprovalPolicyAdminOnly,
		OverduePenaltyType: domain.OverduePenaltyNone, ContributionDayOfMonth: 1, State: domain.FundStateDissolving,
	}
	created, err := repo.Create(f)
	require.NoError(t, err)
	return created
}

func member(t *testing.T, repo *testutil.FakeFundRoleRepository, fundID, userID domain.ID) {
	t.Helper()
	_, err := repo.Assign(&domain.FundRoleAssignment{ID: domain.NewID(), FundID: fundID, UserID: userID, Role: domain.FundRoleEditor})
	require.NoError(t, err)
}

func contribution(t *testing.T, repo *testutil.FakeTransactionRepository, fundID, userID domain.ID, amount decimal.Decimal) {
	t.Helper()
	_, err := repo.Append(&domain.Transaction{
		ID: domain.NewID(), FundID: fundID, UserID: &userID, Type: domain.TransactionTypeContribution,
		Amount: amount, CreatedAt: time.Now().UTC(), IdempotencyKey: domain.NewID().String(),
	})
	require.NoError(t, err)
}

func interestIncome(t *testing.T, repo *testutil.FakeTransactionRepository, fundID domain.ID, amount decimal.Decimal) {
	t.Helper()
	_, err := repo.Append(&domain.Transaction{
		ID: domain.NewID(), FundID: fundID, Type: domain.TransactionTypeInterestIncome,
		Amount: amount, CreatedAt: time.Now().UTC(), IdempotencyKey: domain.NewID().String(),
	})
	require.NoError(t, err)
}

// TestRecalculate_S5 walks spec.md's S5 dissolution-with-blocker scenario:
// M1 paid 10000 no loans, M2 paid 5000 with an 8000 outstanding loan.
// InterestPool 3000 -> shares 2000/1000, gross 12000/6000, net 12000/-2000.
func TestRecalculate_S5(t *testing.T) {
	fx := newDissolutionFixture()
	fund := dissolvingFund(t, fx.fundRepo)
	m1, m2 := domain.NewID(), domain.NewID()
	member(t, fx.roleRepo, fund.ID, m1)
	member(t, fx.roleRepo, fund.ID, m2)

	contribution(t, fx.txnRepo, fund.ID, m1, decimal.NewFromInt(10000))
	contribution(t, fx.txnRepo, fund.ID, m2, decimal.NewFromInt(5000))
	interestIncome(t, fx.txnRepo, fund.ID, decimal.NewFromInt(3000))

	now := time.Now().UTC()
	_, err := fx.loanRepo.Create(&domain.Loan{
		ID: domain.NewID(), FundID: fund.ID, BorrowerID: m2,
		PrincipalAmount: decimal.NewFromInt(8000), OutstandingPrincipal: decimal.NewFromInt(8000),
		Status: domain.LoanStatusActive, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)

	settlement, err := fx.svc.Recalculate(fund.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementStatusDraft, settlement.Status)
	assert.Len(t, settlement.Blockers(), 1)

	var liM1, liM2 *domain.DissolutionLineItem
	for _, li := range settlement.LineItems {
		if li.UserID == m1 {
			liM1 = li
		} else if li.UserID == m2 {
			liM2 = li
		}
	}
	require.NotNil(t, liM1)
	require.NotNil(t, liM2)

	assert.True(t, liM1.InterestShare.Equal(decimal.NewFromInt(2000)))
	assert.True(t, liM1.GrossPayout.Equal(decimal.NewFromInt(12000)))
	assert.True(t, liM1.NetPayout.Equal(decimal.NewFromInt(12000)))

	assert.True(t, liM2.InterestShare.Equal(decimal.NewFromInt(1000)))
	assert.True(t, liM2.GrossPayout.Equal(decimal.NewFromInt(6000)))
	assert.True(t, liM2.NetPayout.Equal(decimal.NewFromInt(-2000)))

	_, err = fx.svc.Confirm(fund.ID, domain.NewID(), fund.Version)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	// M2 repays the outstanding 8000 -> loan closes -> recalculate is Ready.
	loans, err := fx.loanRepo.ListByBorrower(fund.ID, m2)
	require.NoError(t, err)
	loan := loans[0]
	require.NoError(t, loan.ReduceOutstanding(decimal.NewFromInt(8000), time.Now().UTC()))
	_, err = fx.loanRepo.Update(loan, loan.Version)
	require.NoError(t, err)

	settlement, err = fx.svc.Recalculate(fund.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementStatusReady, settlement.Status)
	assert.Empty(t, settlement.Blockers())

	confirmed, err := fx.svc.Confirm(fund.ID, domain.NewID(), fund.Version)
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementStatusConfirmed, confirmed.Status)
	assert.NotNil(t, confirmed.SettlementDate)

	updatedFund, err := fx.fundRepo.GetByID(fund.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FundStateDissolved, updatedFund.State)
}

func TestRecalculate_RefusesWhenFundNotDissolving(t *testing.T) {
	fx := newDissolutionFixture()
	fund := dissolvingFund(t, fx.fundRepo)
	fund.State = domain.FundStateActive
	_, err := fx.fundRepo.Update(fund, fund.Version)
	require.NoError(t, err)

	_, err = fx.svc.Recalculate(fund.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

// TestAssignResidual_TieBreaksLexicographically covers the deterministic
// residual-penny rule when two members have equal totalPaidContributions.
func TestAssignResidual_TieBreaksLexicographically(t *testing.T) {
	a := &domain.DissolutionLineItem{UserID: domain.NewID(), TotalPaidContributions: decimal.NewFromInt(100), InterestShare: decimal.NewFromFloat(33.33)}
	b := &domain.DissolutionLineItem{UserID: domain.NewID(), TotalPaidContributions: decimal.NewFromInt(100), InterestShare: decimal.NewFromFloat(33.33)}
	items := []*domain.DissolutionLineItem{a, b}
	assignResidual(items, decimal.NewFromFloat(66.67))

	var expectedWinner *domain.DissolutionLineItem
	if a.UserID.String() < b.UserID.String() {
		expectedWinner = a
	} else {
		expectedWinner = b
	}
	assert.True(t, expectedWinner.InterestShare.Equal(decimal.NewFromFloat(33.34)))
}
