// Package events implements the typed domain-event bus the orchestrator
// (C9) publishes to after a successful commit. It is adapted from the
// fortuna-backend workspace-scoped WebSocket hub: the same fan-out
// mechanics, retargeted from "workspace broadcast to live browser clients"
// to "fund-scoped domain event broadcast to in-process subscribers",
// carrying the event taxonomy spec.md §6 names instead of transaction/CC
// lifecycle events.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/google/uuid"
)

// Type is one of the event kinds enumerated in spec.md §6.
type Type string

const (
	TypeFundCreated          Type = "fund.created"
	TypeFundActivated        Type = "fund.activated"
	TypeDissolutionInitiated Type = "fund.dissolution_initiated"
	TypeFundDissolved        Type = "fund.dissolved"
	TypeMemberJoined         Type = "fund.member_joined"
	TypeMemberRemoved        Type = "fund.member_removed"
	TypeFundAdminAssigned    Type = "fund.admin_assigned"
	TypeInvitationSent       Type = "fund.invitation_sent"

	TypeContributionDueGenerated Type = "contribution.due_generated"
	TypeContributionPaid         Type = "contribution.paid"
	TypeContributionOverdue      Type = "contribution.overdue"

	TypeLoanRequested  Type = "loan.requested"
	TypeLoanApproved   Type = "loan.approved"
	TypeLoanRejected   Type = "loan.rejected"
	TypeLoanDisbursed  Type = "loan.disbursed"
	TypeLoanClosed     Type = "loan.closed"

	TypeRepaymentDueGenerated   Type = "repayment.due_generated"
	TypeRepaymentRecorded       Type = "repayment.recorded"
	TypeRepaymentPenaltyApplied Type = "repayment.penalty_applied"

	TypeVotingStarted   Type = "voting.started"
	TypeVoteCast        Type = "voting.vote_cast"
	TypeVotingFinalised Type = "voting.finalised"
)

// Event is one envelope published on the bus: a fresh event id, the fund it
// belongs to, an occurredAt timestamp, and event-specific fields carried in
// Payload.
type Event struct {
	ID         uuid.UUID   `json:"id"`
	FundID     domain.ID   `json:"fundId"`
	Type       Type        `json:"type"`
	OccurredAt time.Time   `json:"occurredAt"`
	Payload    interface{} `json:"payload"`
}

// New builds a fresh event envelope.
func New(t Type, fundID domain.ID, payload interface{}) Event {
	return Event{
		ID:         uuid.New(),
		FundID:     fundID,
		Type:       t,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// ToJSON serializes the event envelope.
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func (e Event) String() string {
	return fmt.Sprintf("%s fund=%s id=%s", e.Type, e.FundID, e.ID)
}
