package service

import (
	"time"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/dafibh/fortuna/fortuna-backend/internal/events"
	"github.com/dafibh/fortuna/fortuna-backend/internal/orchestrator"
)

// LoanService implements component C4: loan request validation against the
// fund's advisory projection, approve/reject, approval-time snapshotting,
// and disbursement.
type LoanService struct {
	orch     *orchestrator.Orchestrator
	loanRepo domain.LoanRepository
	projRepo domain.FundProjectionRepository
	txnRepo  domain.TransactionRepository
}

// NewLoanService creates a new LoanService.
func NewLoanService(orch *orchestrator.Orchestrator, loanRepo domain.LoanRepository, projRepo domain.FundProjectionRepository, txnRepo domain.TransactionRepository) *LoanService {
	return &LoanService{orch: orch, loanRepo: loanRepo, projRepo: projRepo, txnRepo: txnRepo}
}

// RequestLoanInput carries the inputs to RequestLoan.
type RequestLoanInput struct {
	FundID              domain.ID
	BorrowerID          domain.ID
	PrincipalAmount     domain.Money
	RequestedStartMonth domain.MonthYear
	Purpose             *string
}

// RequestLoan validates the request against the fund's advisory
// FundProjection and creates the Loan in PendingApproval.
func (s *LoanService) RequestLoan(input RequestLoanInput) (*domain.Loan, error) {
	proj, err := s.projRepo.Get(input.FundID)
	if err != nil {
		return nil, err
	}
	if !proj.IsActive {
		return nil, domain.ErrInvalidState
	}
	if proj.MaxLoanPerMember != nil && input.PrincipalAmount.GreaterThan(*proj.MaxLoanPerMember) {
		return nil, domain.ErrMaxLoanExceeded
	}
	if proj.MaxConcurrentLoans != nil {
		count, err := s.loanRepo.CountNonTerminalByBorrower(input.FundID, input.BorrowerID)
		if err != nil {
			return nil, err
		}
		if count >= int(*proj.MaxConcurrentLoans) {
			return nil, domain.ErrMaxConcurrentLoans
		}
	}

	now := time.Now().UTC()
	loan := &domain.Loan{
		ID:                  domain.NewID(),
		FundID:              input.FundID,
		BorrowerID:          input.BorrowerID,
		PrincipalAmount:     input.PrincipalAmount,
		RequestedStartMonth: input.RequestedStartMonth,
		Purpose:             input.Purpose,
		Status:              domain.LoanStatusPendingApproval,
		OutstandingPrincipal: domain.ZeroMoney,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := loan.Validate(); err != nil {
		return nil, err
	}

	created, err := s.loanRepo.Create(loan)
	if err != nil {
		return nil, err
	}
	s.orch.Emit(events.New(events.TypeLoanRequested, input.FundID, created))
	s.orch.Audit(domain.AuditEnvelope{
		ActorID:    input.BorrowerID,
		FundID:     &input.FundID,
		EntityType: "loan",
		EntityID:   created.ID,
		ActionType: "LoanRequested",
		ServiceName: "LoanService",
	})
	return created, nil
}

// Approve transitions PendingApproval -> Approved -> Active in one atomic
// step, snapshotting monthlyInterestRate and minimumPrincipal from the
// fund's current projection, and disburses. If loanApprovalPolicy is
// AdminWithVoting, callers are expected to have already obtained a
// VotingFinalised(Approved) result; Approve itself only checks loan status
// (spec.md §4.4 — advisory gate).
func (s *LoanService) Approve(loanID, approverID domain.ID, scheduledInstallment domain.Money, expectedVersion int64) (*domain.Loan, error) {
	loan, err := s.loanRepo.GetByID(loanID)
	if err != nil {
		return nil, err
	}
	proj, err := s.projRepo.Get(loan.FundID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := loan.Approve(approverID, scheduledInstallment, proj.MonthlyInterestRate, proj.MinimumPrincipalPerRepayment, now); err != nil {
		return nil, err
	}

	updated, err := s.loanRepo.Update(loan, expectedVersion)
	if err != nil {
		return nil, err
	}

	s.orch.Emit(events.New(events.TypeLoanApproved, updated.FundID, updated))
	s.orch.Audit(domain.AuditEnvelope{
		ActorID:    approverID,
		FundID:     &updated.FundID,
		EntityType: "loan",
		EntityID:   updated.ID,
		ActionType: "LoanApproved",
		ServiceName: "LoanService",
	})

	if err := s.disburse(updated); err != nil {
		return nil, err
	}
	s.orch.Emit(events.New(events.TypeLoanDisbursed, updated.FundID, updated))
	return updated, nil
}

// disburse appends the Disbursement ledger entry for -principalAmount
// against the fund pool (spec.md §4.4 — the contributions engine consumes
// LoanDisbursed to do this; here it is inlined as a separate ledger write
// after the loan update, with no transaction enclosing the two).
func (s *LoanService) disburse(loan *domain.Loan) error {
	_, err := s.txnRepo.Append(&domain.Transaction{
		ID:                  domain.NewID(),
		FundID:              loan.FundID,
		UserID:              &loan.BorrowerID,
		Type:                domain.TransactionTypeDisbursement,
		Amount:              loan.PrincipalAmount.Neg(),
		CreatedAt:           time.Now().UTC(),
		IdempotencyKey:      "loan-disbursement-" + loan.ID.String(),
		ReferenceEntityType: refType(domain.ReferenceEntityLoan),
		ReferenceEntityID:   &loan.ID,
	})
	if err == domain.ErrAlreadyExists {
		return nil
	}
	return err
}

// Reject transitions PendingApproval -> Rejected with a non-empty reason.
func (s *LoanService) Reject(loanID, actorID domain.ID, reason string, expectedVersion int64) (*domain.Loan, error) {
	loan, err := s.loanRepo.GetByID(loanID)
	if err != nil {
		return nil, err
	}
	if err := loan.Reject(reason); err != nil {
		return nil, err
	}
	updated, err := s.loanRepo.Update(loan, expectedVersion)
	if err != nil {
		return nil, err
	}
	s.orch.Emit(events.New(events.TypeLoanRejected, updated.FundID, updated))
	s.orch.Audit(domain.AuditEnvelope{
		ActorID:    actorID,
		FundID:     &updated.FundID,
		EntityType: "loan",
		EntityID:   updated.ID,
		ActionType: "LoanRejected",
		ServiceName: "LoanService",
	})
	return updated, nil
}

// GetLoanByID retrieves a loan.
func (s *LoanService) GetLoanByID(id domain.ID) (*domain.Loan, error) {
	return s.loanRepo.GetByID(id)
}

// ListActiveByFund lists a fund's Active loans.
func (s *LoanService) ListActiveByFund(fundID domain.ID) ([]*domain.Loan, error) {
	return s.loanRepo.ListActiveByFund(fundID)
}

// ListByBorrower lists a borrower's loans within a fund.
func (s *LoanService) ListByBorrower(fundID, borrowerID domain.ID) ([]*domain.Loan, error) {
	return s.loanRepo.ListByBorrower(fundID, borrowerID)
}
