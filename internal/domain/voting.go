package domain

import "time"

// VotingThresholdType selects how FinaliseVoting tallies votes.
type VotingThresholdType string

const (
	VotingThresholdMajority   VotingThresholdType = "majority"
	VotingThresholdPercentage VotingThresholdType = "percentage"
)

// VotingResult is the outcome of a voting session.
type VotingResult string

const (
	VotingResultPending   VotingResult = "pending"
	VotingResultApproved  VotingResult = "approved"
	VotingResultRejected  VotingResult = "rejected"
	VotingResultNoQuorum  VotingResult = "no_quorum"
)

const (
	MinVotingWindowHours = 24
	MaxVotingWindowHours = 72
)

// VotingSession is a bounded-window collective decision attached to one
// loan's approval. At most one per LoanID.
type VotingSession struct {
	ID            ID
	LoanID        ID
	FundID        ID
	WindowStart   time.Time
	WindowEnd     time.Time
	ThresholdType VotingThresholdType
	ThresholdValue int32
	Result        VotingResult
	FinalisedBy   *ID
	FinalisedDate *time.Time
	OverrideUsed  bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsOpen reports whether votes may still be cast.
func (s *VotingSession) IsOpen(now time.Time) bool {
	return s.Result == VotingResultPending && !now.After(s.WindowEnd)
}

// VoteDecision is a single vote's direction.
type VoteDecision string

const (
	VoteDecisionApprove VoteDecision = "approve"
	VoteDecisionReject  VoteDecision = "reject"
)

// Vote is one voter's immutable decision. Unique on (SessionID, VoterID).
type Vote struct {
	ID       ID
	SessionID ID
	VoterID  ID
	Decision VoteDecision
	CastAt   time.Time
}

// TallyResult is the computed outcome of counting a session's votes before
// any admin override is applied.
type TallyResult struct {
	ApproveCount int
	RejectCount  int
	NaturalOutcome VotingResult
}

// Tally counts votes per spec.md §4.6's rule.
func Tally(votes []*Vote, thresholdType VotingThresholdType, thresholdValue int32) TallyResult {
	var approve, reject int
	for _, v := range votes {
		switch v.Decision {
		case VoteDecisionApprove:
			approve++
		case VoteDecisionReject:
			reject++
		}
	}
	total := approve + reject
	result := TallyResult{ApproveCount: approve, RejectCount: reject}

	switch {
	case total == 0:
		result.NaturalOutcome = VotingResultNoQuorum
	case thresholdType == VotingThresholdMajority:
		if approve > reject {
			result.NaturalOutcome = VotingResultApproved
		} else {
			result.NaturalOutcome = VotingResultRejected
		}
	default: // Percentage
		pct := int32(approve * 100 / total)
		if pct >= thresholdValue {
			result.NaturalOutcome = VotingResultApproved
		} else {
			result.NaturalOutcome = VotingResultRejected
		}
	}
	return result
}

// Finalise applies an admin decision, computing OverrideUsed per spec.md §4.6.
func (s *VotingSession) Finalise(adminDecision VotingResult, natural TallyResult, finalisedBy ID, now time.Time) error {
	if s.Result != VotingResultPending {
		return ErrAlreadyFinalised
	}
	s.Result = adminDecision
	s.FinalisedBy = &finalisedBy
	s.FinalisedDate = &now
	s.OverrideUsed = natural.NaturalOutcome != VotingResultNoQuorum && adminDecision != natural.NaturalOutcome
	return nil
}

// VotingSessionRepository persists VotingSessions.
type VotingSessionRepository interface {
	Create(s *VotingSession) (*VotingSession, error)
	GetByLoan(loanID ID) (*VotingSession, error)
	GetByID(id ID) (*VotingSession, error)
	Update(s *VotingSession) (*VotingSession, error)
	ListExpiringOpen(before time.Time) ([]*VotingSession, error)
}

// VoteRepository persists immutable Votes, owned by VotingSession.
type VoteRepository interface {
	Create(v *Vote) (*Vote, error)
	Get(sessionID, voterID ID) (*Vote, error)
	ListBySession(sessionID ID) ([]*Vote, error)
}
