package domain

import "time"

// SettlementStatus is the lifecycle of a dissolution settlement.
type SettlementStatus string

const (
	SettlementStatusDraft     SettlementStatus = "draft"
	SettlementStatusReady     SettlementStatus = "ready"
	SettlementStatusConfirmed SettlementStatus = "confirmed"
)

// DissolutionSettlement is the per-fund terminal accounting record. At most
// one per fund.
type DissolutionSettlement struct {
	ID                          ID
	FundID                      ID
	Status                      SettlementStatus
	TotalContributionsCollected Money
	TotalInterestPool           Money
	SettlementDate              *time.Time
	LineItems                   []*DissolutionLineItem
	CreatedAt                   time.Time
	UpdatedAt                   time.Time
}

// DissolutionLineItem is one member's settlement accounting within a
// DissolutionSettlement.
type DissolutionLineItem struct {
	ID                       ID
	SettlementID             ID
	UserID                   ID
	TotalPaidContributions   Money
	InterestShare            Money
	GrossPayout              Money
	OutstandingLoanPrincipal Money
	UnpaidInterest           Money
	UnpaidDues               Money
	NetPayout                Money
}

// IsBlocker reports whether this line item prevents confirmation.
func (li *DissolutionLineItem) IsBlocker() bool {
	return li.NetPayout.LessThan(ZeroMoney)
}

// Blockers returns the line items with a negative net payout.
func (s *DissolutionSettlement) Blockers() []*DissolutionLineItem {
	var blockers []*DissolutionLineItem
	for _, li := range s.LineItems {
		if li.IsBlocker() {
			blockers = append(blockers, li)
		}
	}
	return blockers
}

// Confirm transitions Ready -> Confirmed. Fails ErrInvalidState otherwise.
func (s *DissolutionSettlement) Confirm(now time.Time) error {
	if s.Status != SettlementStatusReady {
		return ErrInvalidState
	}
	s.Status = SettlementStatusConfirmed
	s.SettlementDate = &now
	return nil
}

// DissolutionSettlementRepository persists DissolutionSettlements.
type DissolutionSettlementRepository interface {
	GetByFund(fundID ID) (*DissolutionSettlement, error)
	Upsert(s *DissolutionSettlement) (*DissolutionSettlement, error)
}
