package service

import (
	"time"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/dafibh/fortuna/fortuna-backend/internal/events"
	"github.com/dafibh/fortuna/fortuna-backend/internal/money"
	"github.com/dafibh/fortuna/fortuna-backend/internal/orchestrator"
)

// RepaymentService implements component C5: monthly repayment-entry
// generation, idempotent payment recording with interest-first allocation,
// and auto-close of the loan once outstanding principal reaches zero.
type RepaymentService struct {
	orch      *orchestrator.Orchestrator
	loanRepo  domain.LoanRepository
	entryRepo domain.RepaymentEntryRepository
	txnRepo   domain.TransactionRepository
}

// NewRepaymentService creates a new RepaymentService.
func NewRepaymentService(orch *orchestrator.Orchestrator, loanRepo domain.LoanRepository, entryRepo domain.RepaymentEntryRepository, txnRepo domain.TransactionRepository) *RepaymentService {
	return &RepaymentService{orch: orch, loanRepo: loanRepo, entryRepo: entryRepo, txnRepo: txnRepo}
}

// GenerateEntry creates the RepaymentEntry for (loanID, monthYear),
// idempotent on that pair. Preconditions: the loan is Active.
func (s *RepaymentService) GenerateEntry(loanID domain.ID, monthYear domain.MonthYear) (*domain.RepaymentEntry, error) {
	loan, err := s.loanRepo.GetByID(loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status != domain.LoanStatusActive {
		return nil, domain.ErrInvalidState
	}

	if existing, err := s.entryRepo.Get(loanID, monthYear); err == nil {
		return existing, nil
	} else if err != domain.ErrRepaymentEntryNotFound {
		return nil, err
	}

	interestDue := money.MonthlyInterest(loan.OutstandingPrincipal, loan.MonthlyInterestRate)
	principalDue := money.PrincipalDue(loan.OutstandingPrincipal, loan.MinimumPrincipal, loan.ScheduledInstallment, interestDue)

	now := time.Now().UTC()
	entry := &domain.RepaymentEntry{
		ID:           domain.NewID(),
		LoanID:       loanID,
		MonthYear:    monthYear,
		InterestDue:  interestDue,
		PrincipalDue: principalDue,
		PenaltyDue:   domain.ZeroMoney,
		TotalDue:     interestDue.Add(principalDue),
		AmountPaid:   domain.ZeroMoney,
		Status:       domain.RepaymentEntryStatusPending,
		DueDate:      monthYear.LastDay(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.entryRepo.Create(entry)
	if err != nil {
		if err == domain.ErrAlreadyExists {
			return s.entryRepo.Get(loanID, monthYear)
		}
		return nil, err
	}
	s.orch.Emit(events.New(events.TypeRepaymentDueGenerated, loan.FundID, created))
	return created, nil
}

// RecordRepaymentInput carries the inputs to RecordPayment for a repayment entry.
type RecordRepaymentInput struct {
	EntryID         domain.ID
	Amount          domain.Money
	RecorderID      domain.ID
	IdempotencyKey  string
	ExpectedVersion int64
}

// RecordRepaymentResult is the outcome of RecordPayment.
type RecordRepaymentResult struct {
	Entry      *domain.RepaymentEntry
	Allocation money.PaymentAllocation
}

// RecordPayment applies a cash payment to a repayment entry following
// spec.md §4.5's eight-step flow: idempotency check, version + status
// checks, interest-first allocation via internal/money, ledger append of
// the Repayment and InterestIncome transactions, and loan auto-close.
func (s *RepaymentService) RecordPayment(input RecordRepaymentInput) (*RecordRepaymentResult, error) {
	if input.Amount.LessThanOrEqual(domain.ZeroMoney) {
		return nil, domain.NewValidationError("amount", "must be positive")
	}

	entry, err := s.entryRepo.GetByID(input.EntryID)
	if err != nil {
		return nil, err
	}
	loan, err := s.loanRepo.GetByID(entry.LoanID)
	if err != nil {
		return nil, err
	}

	requestHash := orchestrator.HashRequest(input)
	if _, found, err := s.orch.CheckIdempotency(loan.FundID, "repayment.record_payment", input.IdempotencyKey, requestHash); err != nil {
		return nil, err
	} else if found {
		cached, err := s.entryRepo.GetByID(entry.ID)
		if err != nil {
			return nil, err
		}
		return &RecordRepaymentResult{Entry: cached}, nil
	}

	if loan.Status != domain.LoanStatusActive {
		return nil, domain.ErrInvalidState
	}
	if entry.Status == domain.RepaymentEntryStatusPaid {
		return nil, domain.ErrAlreadyPaid
	}

	interestOutstanding := entry.InterestOutstanding()
	principalDueRemaining := entry.PrincipalDueRemaining()
	alloc := money.ApplyPayment(input.Amount, interestOutstanding, principalDueRemaining, loan.OutstandingPrincipal)

	now := time.Now().UTC()
	entry.RecordPayment(input.Amount, now)
	updatedEntry, err := s.entryRepo.Update(entry, input.ExpectedVersion)
	if err != nil {
		return nil, err
	}

	principalReduction := alloc.PrincipalPaid.Add(alloc.ExcessAppliedToPrincipal)
	if err := loan.ReduceOutstanding(principalReduction, now); err != nil {
		return nil, err
	}
	updatedLoan, err := s.loanRepo.Update(loan, loan.Version)
	if err != nil {
		return nil, err
	}

	if _, err := s.txnRepo.Append(&domain.Transaction{
		ID:                  domain.NewID(),
		FundID:              updatedLoan.FundID,
		UserID:              &updatedLoan.BorrowerID,
		Type:                domain.TransactionTypeRepayment,
		Amount:              input.Amount,
		CreatedAt:           now,
		IdempotencyKey:      input.IdempotencyKey,
		ReferenceEntityType: refType(domain.ReferenceEntityRepaymentEntry),
		ReferenceEntityID:   &updatedEntry.ID,
	}); err != nil {
		return nil, err
	}
	if alloc.InterestPaid.GreaterThan(domain.ZeroMoney) {
		if _, err := s.txnRepo.Append(&domain.Transaction{
			ID:                  domain.NewID(),
			FundID:              updatedLoan.FundID,
			UserID:              &updatedLoan.BorrowerID,
			Type:                domain.TransactionTypeInterestIncome,
			Amount:              alloc.InterestPaid,
			CreatedAt:           now,
			IdempotencyKey:      input.IdempotencyKey + "-interest",
			ReferenceEntityType: refType(domain.ReferenceEntityRepaymentEntry),
			ReferenceEntityID:   &updatedEntry.ID,
		}); err != nil {
			return nil, err
		}
	}

	if err := s.orch.RecordIdempotency(updatedLoan.FundID, "repayment.record_payment", input.IdempotencyKey, requestHash, updatedEntry.ID.String()); err != nil {
		return nil, err
	}

	if updatedLoan.Status == domain.LoanStatusClosed {
		s.orch.Emit(events.New(events.TypeLoanClosed, updatedLoan.FundID, updatedLoan))
	}
	s.orch.Emit(events.New(events.TypeRepaymentRecorded, updatedLoan.FundID, map[string]interface{}{
		"entryId":       updatedEntry.ID,
		"interestPaid":  alloc.InterestPaid,
		"principalPaid": alloc.PrincipalPaid,
	}))

	return &RecordRepaymentResult{Entry: updatedEntry, Allocation: alloc}, nil
}

// ListByLoan lists all repayment entries for a loan.
func (s *RepaymentService) ListByLoan(loanID domain.ID) ([]*domain.RepaymentEntry, error) {
	return s.entryRepo.ListByLoan(loanID)
}

// MarkOverdue is the C5-adjacent overdue sweep used by the repayment job:
// transitions Pending/Partial entries past dueDate to Overdue.
func (s *RepaymentService) MarkOverdue(fundID domain.ID, asOf time.Time) (int, error) {
	candidates, err := s.entryRepo.ListOverdueCandidates(fundID, asOf)
	if err != nil {
		return 0, err
	}
	transitioned := 0
	for _, e := range candidates {
		if asOf.Before(e.DueDate) {
			continue
		}
		e.MarkOverdue()
		if _, err := s.entryRepo.Update(e, e.Version); err != nil {
			if err == domain.ErrConflict {
				continue
			}
			return transitioned, err
		}
		transitioned++
	}
	return transitioned, nil
}
