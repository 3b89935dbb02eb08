package service

import (
	"time"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/dafibh/fortuna/fortuna-backend/internal/events"
	"github.com/dafibh/fortuna/fortuna-backend/internal/money"
	"github.com/dafibh/fortuna/fortuna-backend/internal/orchestrator"
)

// PenaltyService implements component C7: the periodic per-fund job that
// applies a configured flat or percentage penalty to entries that are
// Overdue with amountPaid < totalDue, charging the penalty onto next
// month's entry for the same loan (spec.md §4.7).
type PenaltyService struct {
	orch      *orchestrator.Orchestrator
	fundRepo  domain.FundRepository
	loanRepo  domain.LoanRepository
	entryRepo domain.RepaymentEntryRepository
	txnRepo   domain.TransactionRepository
}

// NewPenaltyService creates a new PenaltyService.
func NewPenaltyService(orch *orchestrator.Orchestrator, fundRepo domain.FundRepository, loanRepo domain.LoanRepository, entryRepo domain.RepaymentEntryRepository, txnRepo domain.TransactionRepository) *PenaltyService {
	return &PenaltyService{orch: orch, fundRepo: fundRepo, loanRepo: loanRepo, entryRepo: entryRepo, txnRepo: txnRepo}
}

// ApplyPenalties runs one pass of the penalty job for a fund. Returns the
// number of entries penalised. No-op if the fund's penaltyType is None or
// its penaltyValue is zero.
func (s *PenaltyService) ApplyPenalties(fundID domain.ID, asOf time.Time) (int, error) {
	fund, err := s.fundRepo.GetByID(fundID)
	if err != nil {
		return 0, err
	}
	if fund.OverduePenaltyType == domain.OverduePenaltyNone || fund.OverduePenaltyValue.LessThanOrEqual(domain.ZeroMoney) {
		return 0, nil
	}

	candidates, err := s.entryRepo.ListOverdueCandidates(fundID, asOf)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, entry := range candidates {
		if entry.Status != domain.RepaymentEntryStatusOverdue {
			continue
		}
		if entry.AmountPaid.GreaterThanOrEqual(entry.TotalDue) {
			continue
		}
		penalised, err := s.applyOne(fund, entry, asOf)
		if err != nil {
			return applied, err
		}
		if penalised {
			applied++
		}
	}
	return applied, nil
}

// applyOne charges a single overdue entry's penalty onto next month's
// entry for the same loan, guarding re-application within a run via
// PenaltySourceEntryID on the target entry.
func (s *PenaltyService) applyOne(fund *domain.Fund, overdue *domain.RepaymentEntry, now time.Time) (bool, error) {
	overdueAmount := overdue.TotalDue.Sub(overdue.AmountPaid)
	var penalty domain.Money
	switch fund.OverduePenaltyType {
	case domain.OverduePenaltyFlat:
		penalty = money.FlatPenalty(fund.OverduePenaltyValue)
	case domain.OverduePenaltyPercentage:
		penalty = money.PercentagePenalty(overdueAmount, fund.OverduePenaltyValue)
	default:
		return false, nil
	}
	if penalty.LessThanOrEqual(domain.ZeroMoney) {
		return false, nil
	}

	nextMonth := overdue.MonthYear.Next()
	target, err := s.entryRepo.Get(overdue.LoanID, nextMonth)
	if err != nil && err != domain.ErrRepaymentEntryNotFound {
		return false, err
	}

	if target != nil {
		if target.PenaltySourceEntryID != nil && *target.PenaltySourceEntryID == overdue.ID {
			return false, nil
		}
		target.PenaltyDue = target.PenaltyDue.Add(penalty)
		target.TotalDue = target.TotalDue.Add(penalty)
		target.PenaltySourceEntryID = &overdue.ID
		if _, err := s.entryRepo.Update(target, target.Version); err != nil {
			return false, err
		}
	} else {
		created := &domain.RepaymentEntry{
			ID:                   domain.NewID(),
			LoanID:               overdue.LoanID,
			MonthYear:            nextMonth,
			InterestDue:          domain.ZeroMoney,
			PrincipalDue:         domain.ZeroMoney,
			PenaltyDue:           penalty,
			TotalDue:             penalty,
			AmountPaid:           domain.ZeroMoney,
			Status:               domain.RepaymentEntryStatusPending,
			DueDate:              nextMonth.DayOfMonth(15),
			PenaltySourceEntryID: &overdue.ID,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		if _, err := s.entryRepo.Create(created); err != nil {
			return false, err
		}
	}

	if _, err := s.txnRepo.Append(&domain.Transaction{
		ID:                  domain.NewID(),
		FundID:              fund.ID,
		Type:                domain.TransactionTypePenalty,
		Amount:              penalty,
		CreatedAt:           now,
		IdempotencyKey:      "penalty-" + overdue.ID.String(),
		ReferenceEntityType: refType(domain.ReferenceEntityRepaymentEntry),
		ReferenceEntityID:   &overdue.ID,
	}); err != nil && err != domain.ErrAlreadyExists {
		return false, err
	}

	s.orch.Emit(events.New(events.TypeRepaymentPenaltyApplied, fund.ID, map[string]interface{}{
		"sourceEntryId": overdue.ID,
		"loanId":        overdue.LoanID,
		"penalty":       penalty,
	}))
	return true, nil
}
