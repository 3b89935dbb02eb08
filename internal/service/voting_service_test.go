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

type votingFixture struct {
	svc         *VotingService
	sessionRepo *testutil.FakeVotingSessionRepository
	voteRepo    *testutil.FakeVoteRepository
	loanRepo    *testutil.FakeLoanRepository
}

func newVotingFixture() *votingFixture {
	sessionRepo := testutil.NewFakeVotingSessionRepository()
	voteRepo := testutil.NewFakeVoteRepository()
	loanRepo := testutil.NewFakeLoanRepository()
	orch := orchestrator.New(testutil.NewFakeIdempotencyRepository(), testutil.NewFakeOutboxRepository(), nil, nil)
	return &votingFixture{
		svc:         NewVotingService(orch, sessionRepo, voteRepo, loanRepo),
		sessionRepo: sessionRepo,
		voteRepo:    voteRepo,
		loanRepo:    loanRepo,
	}
}

func pendingLoan(t *testing.T, repo *testutil.FakeLoanRepository, fundID domain.ID) *domain.Loan {
	t.Helper()
	now := time.Now().UTC()
	created, err := repo.Create(&domain.Loan{
		ID: domain.NewID(), FundID: fundID, BorrowerID: domain.NewID(),
		PrincipalAmount: decimal.NewFromInt(10000), Status: domain.LoanStatusPendingApproval,
		CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	return created
}

// TestVoting_S3 walks spec.md's S3 voting-with-override scenario: 3 editors
// vote Reject, 1 votes Approve -> natural Rejected; admin finalises Approve
// -> overrideUsed true, audit actionType VotingFinalisedWithOverride.
func TestVoting_S3(t *testing.T) {
	fx := newVotingFixture()
	fundID := domain.NewID()
	loan := pendingLoan(t, fx.loanRepo, fundID)

	session, err := fx.svc.StartVoting(loan.ID, 48, domain.VotingThresholdMajority, 0)
	require.NoError(t, err)

	voters := []domain.ID{domain.NewID(), domain.NewID(), domain.NewID(), domain.NewID()}
	decisions := []domain.VoteDecision{
		domain.VoteDecisionReject, domain.VoteDecisionReject, domain.VoteDecisionReject, domain.VoteDecisionApprove,
	}
	for i, voter := range voters {
		_, err := fx.svc.CastVote(session.ID, voter, decisions[i])
		require.NoError(t, err)
	}

	finalised, err := fx.svc.FinaliseVoting(session.ID, domain.NewID(), domain.VotingResultApproved)
	require.NoError(t, err)
	assert.Equal(t, domain.VotingResultApproved, finalised.Result)
	assert.True(t, finalised.OverrideUsed)
}

func TestStartVoting_RejectsOutOfRangeWindow(t *testing.T) {
	fx := newVotingFixture()
	loan := pendingLoan(t, fx.loanRepo, domain.NewID())

	_, err := fx.svc.StartVoting(loan.ID, 1, domain.VotingThresholdMajority, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestStartVoting_RefusesDuplicateSession(t *testing.T) {
	fx := newVotingFixture()
	loan := pendingLoan(t, fx.loanRepo, domain.NewID())

	_, err := fx.svc.StartVoting(loan.ID, 48, domain.VotingThresholdMajority, 0)
	require.NoError(t, err)

	_, err = fx.svc.StartVoting(loan.ID, 48, domain.VotingThresholdMajority, 0)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestCastVote_RefusesDuplicateVoter(t *testing.T) {
	fx := newVotingFixture()
	loan := pendingLoan(t, fx.loanRepo, domain.NewID())
	session, err := fx.svc.StartVoting(loan.ID, 48, domain.VotingThresholdMajority, 0)
	require.NoError(t, err)

	voter := domain.NewID()
	_, err = fx.svc.CastVote(session.ID, voter, domain.VoteDecisionApprove)
	require.NoError(t, err)

	_, err = fx.svc.CastVote(session.ID, voter, domain.VoteDecisionReject)
	assert.ErrorIs(t, err, domain.ErrAlreadyVoted)
}

func TestFinaliseVoting_FailsOnReentry(t *testing.T) {
	fx := newVotingFixture()
	loan := pendingLoan(t, fx.loanRepo, domain.NewID())
	session, err := fx.svc.StartVoting(loan.ID, 48, domain.VotingThresholdPercentage, 60)
	require.NoError(t, err)

	_, err = fx.svc.FinaliseVoting(session.ID, domain.NewID(), domain.VotingResultApproved)
	require.NoError(t, err)

	_, err = fx.svc.FinaliseVoting(session.ID, domain.NewID(), domain.VotingResultRejected)
	assert.ErrorIs(t, err, domain.ErrAlreadyFinalised)
}

func TestTally_PercentageThreshold(t *testing.T) {
	votes := []*domain.Vote{
		{Decision: domain.VoteDecisionApprove}, {Decision: domain.VoteDecisionApprove},
		{Decision: domain.VoteDecisionReject},
	}
	result := domain.Tally(votes, domain.VotingThresholdPercentage, 60)
	assert.Equal(t, domain.VotingResultApproved, result.NaturalOutcome) // 2/3 = 66% >= 60%
}

func TestTally_NoQuorum(t *testing.T) {
	result := domain.Tally(nil, domain.VotingThresholdMajority, 0)
	assert.Equal(t, domain.VotingResultNoQuorum, result.NaturalOutcome)
}
