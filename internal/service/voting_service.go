package service

import (
	"time"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/dafibh/fortuna/fortuna-backend/internal/events"
	"github.com/dafibh/fortuna/fortuna-backend/internal/orchestrator"
)

// VotingService implements component C6: the loan-approval voting session
// lifecycle — start, cast, tally, and admin finalisation with override
// detection.
type VotingService struct {
	orch        *orchestrator.Orchestrator
	sessionRepo domain.VotingSessionRepository
	voteRepo    domain.VoteRepository
	loanRepo    domain.LoanRepository
}

// NewVotingService creates a new VotingService.
func NewVotingService(orch *orchestrator.Orchestrator, sessionRepo domain.VotingSessionRepository, voteRepo domain.VoteRepository, loanRepo domain.LoanRepository) *VotingService {
	return &VotingService{orch: orch, sessionRepo: sessionRepo, voteRepo: voteRepo, loanRepo: loanRepo}
}

// StartVoting opens a voting session attached to a loan's approval. Fails
// ErrInvalidState unless the loan is PendingApproval, ErrAlreadyExists if a
// session already exists for the loan.
func (s *VotingService) StartVoting(loanID domain.ID, windowHours int, thresholdType domain.VotingThresholdType, thresholdValue int32) (*domain.VotingSession, error) {
	loan, err := s.loanRepo.GetByID(loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status != domain.LoanStatusPendingApproval {
		return nil, domain.ErrInvalidState
	}
	if windowHours < domain.MinVotingWindowHours || windowHours > domain.MaxVotingWindowHours {
		return nil, domain.NewValidationError("windowHours", "must be in [24, 72]")
	}

	now := time.Now().UTC()
	session := &domain.VotingSession{
		ID:             domain.NewID(),
		LoanID:         loanID,
		FundID:         loan.FundID,
		WindowStart:    now,
		WindowEnd:      now.Add(time.Duration(windowHours) * time.Hour),
		ThresholdType:  thresholdType,
		ThresholdValue: thresholdValue,
		Result:         domain.VotingResultPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	created, err := s.sessionRepo.Create(session)
	if err != nil {
		return nil, err
	}
	s.orch.Emit(events.New(events.TypeVotingStarted, loan.FundID, created))
	return created, nil
}

// CastVote records an immutable vote within an open session.
func (s *VotingService) CastVote(sessionID, voterID domain.ID, decision domain.VoteDecision) (*domain.Vote, error) {
	session, err := s.sessionRepo.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	if session.Result != domain.VotingResultPending {
		return nil, domain.ErrAlreadyFinalised
	}
	if !session.IsOpen(time.Now().UTC()) {
		return nil, domain.ErrWindowClosed
	}
	if decision != domain.VoteDecisionApprove && decision != domain.VoteDecisionReject {
		return nil, domain.NewValidationError("decision", "must be approve or reject")
	}

	vote := &domain.Vote{
		ID:        domain.NewID(),
		SessionID: sessionID,
		VoterID:   voterID,
		Decision:  decision,
		CastAt:    time.Now().UTC(),
	}
	created, err := s.voteRepo.Create(vote)
	if err != nil {
		return nil, err
	}
	s.orch.Emit(events.New(events.TypeVoteCast, session.FundID, created))
	return created, nil
}

// FinaliseVoting tallies the session's votes and applies an admin decision,
// computing overrideUsed per spec.md §4.6. Emits VotingFinalised and audits
// as VotingFinalisedWithOverride when the natural tally was overridden.
func (s *VotingService) FinaliseVoting(sessionID, finalisedBy domain.ID, adminDecision domain.VotingResult) (*domain.VotingSession, error) {
	session, err := s.sessionRepo.GetByID(sessionID)
	if err != nil {
		return nil, err
	}

	votes, err := s.voteRepo.ListBySession(sessionID)
	if err != nil {
		return nil, err
	}
	tally := domain.Tally(votes, session.ThresholdType, session.ThresholdValue)

	now := time.Now().UTC()
	if err := session.Finalise(adminDecision, tally, finalisedBy, now); err != nil {
		return nil, err
	}

	updated, err := s.sessionRepo.Update(session)
	if err != nil {
		return nil, err
	}

	s.orch.Emit(events.New(events.TypeVotingFinalised, updated.FundID, map[string]interface{}{
		"sessionId":    updated.ID,
		"result":       updated.Result,
		"overrideUsed": updated.OverrideUsed,
	}))

	actionType := "VotingFinalised"
	if updated.OverrideUsed {
		actionType = "VotingFinalisedWithOverride"
	}
	s.orch.Audit(domain.AuditEnvelope{
		ActorID:    finalisedBy,
		FundID:     &updated.FundID,
		EntityType: "voting_session",
		EntityID:   updated.ID,
		ActionType: actionType,
		ServiceName: "VotingService",
	})
	return updated, nil
}

// GetByLoan retrieves the voting session attached to a loan, if any.
func (s *VotingService) GetByLoan(loanID domain.ID) (*domain.VotingSession, error) {
	return s.sessionRepo.GetByLoan(loanID)
}
