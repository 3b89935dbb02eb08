package service

import (
	"time"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/dafibh/fortuna/fortuna-backend/internal/events"
	"github.com/dafibh/fortuna/fortuna-backend/internal/orchestrator"
)

// DissolutionService implements component C8: the terminal per-fund
// settlement computation (proportional interest allocation, per-member net
// payout, blocker detection) and confirmation (spec.md §4.8).
type DissolutionService struct {
	orch           *orchestrator.Orchestrator
	fundRepo       domain.FundRepository
	roleRepo       domain.FundRoleRepository
	loanRepo       domain.LoanRepository
	entryRepo      domain.RepaymentEntryRepository
	dueRepo        domain.ContributionDueRepository
	txnRepo        domain.TransactionRepository
	settlementRepo domain.DissolutionSettlementRepository
}

// NewDissolutionService creates a new DissolutionService.
func NewDissolutionService(
	orch *orchestrator.Orchestrator,
	fundRepo domain.FundRepository,
	roleRepo domain.FundRoleRepository,
	loanRepo domain.LoanRepository,
	entryRepo domain.RepaymentEntryRepository,
	dueRepo domain.ContributionDueRepository,
	txnRepo domain.TransactionRepository,
	settlementRepo domain.DissolutionSettlementRepository,
) *DissolutionService {
	return &DissolutionService{
		orch: orch, fundRepo: fundRepo, roleRepo: roleRepo, loanRepo: loanRepo,
		entryRepo: entryRepo, dueRepo: dueRepo, txnRepo: txnRepo, settlementRepo: settlementRepo,
	}
}

// Recalculate rebuilds the DissolutionSettlement for a Dissolving fund from
// scratch: fund-wide totals, per-member proportional interest shares with
// deterministic residual-penny assignment, and blocker detection.
func (s *DissolutionService) Recalculate(fundID domain.ID) (*domain.DissolutionSettlement, error) {
	fund, err := s.fundRepo.GetByID(fundID)
	if err != nil {
		return nil, err
	}
	if fund.State != domain.FundStateDissolving {
		return nil, domain.ErrInvalidState
	}

	totalContributions, err := s.txnRepo.SumByType(fundID, domain.TransactionTypeContribution)
	if err != nil {
		return nil, err
	}
	totalInterestPool, err := s.txnRepo.SumByType(fundID, domain.TransactionTypeInterestIncome)
	if err != nil {
		return nil, err
	}

	members, err := s.roleRepo.ListByFund(fundID)
	if err != nil {
		return nil, err
	}

	settlementID := domain.NewID()
	if existing, err := s.settlementRepo.GetByFund(fundID); err == nil {
		settlementID = existing.ID
	} else if err != domain.ErrSettlementNotFound {
		return nil, err
	}

	lineItems := make([]*domain.DissolutionLineItem, 0, len(members))
	for _, member := range members {
		li, err := s.buildLineItem(settlementID, fundID, member.UserID, totalContributions, totalInterestPool)
		if err != nil {
			return nil, err
		}
		lineItems = append(lineItems, li)
	}

	assignResidual(lineItems, totalInterestPool)

	status := domain.SettlementStatusReady
	for _, li := range lineItems {
		if li.IsBlocker() {
			status = domain.SettlementStatusDraft
			break
		}
	}

	now := time.Now().UTC()
	settlement := &domain.DissolutionSettlement{
		ID:                          settlementID,
		FundID:                      fundID,
		Status:                      status,
		TotalContributionsCollected: totalContributions,
		TotalInterestPool:           totalInterestPool,
		LineItems:                   lineItems,
		CreatedAt:                   now,
		UpdatedAt:                   now,
	}

	return s.settlementRepo.Upsert(settlement)
}

func (s *DissolutionService) buildLineItem(settlementID, fundID, userID domain.ID, totalContributions, totalInterestPool domain.Money) (*domain.DissolutionLineItem, error) {
	totalPaid, err := s.txnRepo.SumByTypeAndUser(fundID, userID, domain.TransactionTypeContribution)
	if err != nil {
		return nil, err
	}

	var interestShare domain.Money
	if totalContributions.GreaterThan(domain.ZeroMoney) {
		interestShare = totalInterestPool.Mul(totalPaid).Div(totalContributions).RoundBank(2)
	} else {
		interestShare = domain.ZeroMoney
	}
	grossPayout := totalPaid.Add(interestShare)

	loans, err := s.loanRepo.ListByBorrower(fundID, userID)
	if err != nil {
		return nil, err
	}
	outstandingPrincipal := domain.ZeroMoney
	unpaidInterest := domain.ZeroMoney
	for _, loan := range loans {
		if !loan.IsNonTerminal() {
			continue
		}
		outstandingPrincipal = outstandingPrincipal.Add(loan.OutstandingPrincipal)

		entries, err := s.entryRepo.ListByLoan(loan.ID)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.Status == domain.RepaymentEntryStatusPaid {
				continue
			}
			unpaidInterest = unpaidInterest.Add(entry.InterestOutstanding())
		}
	}

	dues, err := s.dueRepo.ListByUser(fundID, userID)
	if err != nil {
		return nil, err
	}
	unpaidDues := domain.ZeroMoney
	for _, due := range dues {
		if due.Status == domain.ContributionDueStatusPaid {
			continue
		}
		unpaidDues = unpaidDues.Add(due.RemainingBalance())
	}

	netPayout := grossPayout.Sub(outstandingPrincipal.Add(unpaidInterest).Add(unpaidDues))

	return &domain.DissolutionLineItem{
		ID:                       domain.NewID(),
		SettlementID:             settlementID,
		UserID:                   userID,
		TotalPaidContributions:   totalPaid,
		InterestShare:            interestShare,
		GrossPayout:              grossPayout,
		OutstandingLoanPrincipal: outstandingPrincipal,
		UnpaidInterest:           unpaidInterest,
		UnpaidDues:               unpaidDues,
		NetPayout:                netPayout,
	}, nil
}

// assignResidual assigns the rounding residual between totalInterestPool and
// the sum of per-member interestShares to the member with the largest
// totalPaidContributions, ties broken by lexicographically smallest userID
// (spec.md §4.8, open question resolved in DESIGN.md).
func assignResidual(lineItems []*domain.DissolutionLineItem, totalInterestPool domain.Money) {
	if len(lineItems) == 0 {
		return
	}
	sumShares := domain.ZeroMoney
	for _, li := range lineItems {
		sumShares = sumShares.Add(li.InterestShare)
	}
	residual := totalInterestPool.Sub(sumShares)
	if residual.IsZero() {
		return
	}

	winner := lineItems[0]
	for _, li := range lineItems[1:] {
		switch {
		case li.TotalPaidContributions.GreaterThan(winner.TotalPaidContributions):
			winner = li
		case li.TotalPaidContributions.Equal(winner.TotalPaidContributions) && li.UserID.String() < winner.UserID.String():
			winner = li
		}
	}
	winner.InterestShare = winner.InterestShare.Add(residual)
	winner.GrossPayout = winner.GrossPayout.Add(residual)
	winner.NetPayout = winner.NetPayout.Add(residual)
}

// Confirm allowed only when the settlement is Ready: marks it Confirmed,
// stamps settlementDate, and transitions the fund Dissolving -> Dissolved.
func (s *DissolutionService) Confirm(fundID, actorID domain.ID, expectedFundVersion int64) (*domain.DissolutionSettlement, error) {
	settlement, err := s.settlementRepo.GetByFund(fundID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if err := settlement.Confirm(now); err != nil {
		return nil, err
	}

	fund, err := s.fundRepo.GetByID(fundID)
	if err != nil {
		return nil, err
	}
	if err := fund.ConfirmDissolution(); err != nil {
		return nil, err
	}
	updatedFund, err := s.fundRepo.Update(fund, expectedFundVersion)
	if err != nil {
		return nil, err
	}

	updatedSettlement, err := s.settlementRepo.Upsert(settlement)
	if err != nil {
		return nil, err
	}

	s.orch.Emit(events.New(events.TypeFundDissolved, fundID, updatedFund))
	s.orch.Audit(domain.AuditEnvelope{
		ActorID:     actorID,
		FundID:      &fundID,
		EntityType:  "dissolution_settlement",
		EntityID:    updatedSettlement.ID,
		ActionType:  "DissolutionConfirmed",
		ServiceName: "DissolutionService",
	})
	return updatedSettlement, nil
}

// GetByFund retrieves the current settlement for a fund, if any.
func (s *DissolutionService) GetByFund(fundID domain.ID) (*domain.DissolutionSettlement, error) {
	return s.settlementRepo.GetByFund(fundID)
}
