package domain

import (
	"strings"
	"time"
)

// LoanStatus is the loan lifecycle tag.
type LoanStatus string

const (
	LoanStatusPendingApproval LoanStatus = "pending_approval"
	LoanStatusApproved        LoanStatus = "approved"
	LoanStatusActive          LoanStatus = "active"
	LoanStatusClosed          LoanStatus = "closed"
	LoanStatusRejected        LoanStatus = "rejected"
)

// Loan is the borrowing aggregate. Approval snapshots MonthlyInterestRate,
// ScheduledInstallment, and MinimumPrincipal from the fund's projection at
// approval time; these snapshots govern all subsequent repayment math for
// this loan regardless of later fund config changes.
type Loan struct {
	ID                   ID
	FundID               ID
	BorrowerID           ID
	PrincipalAmount      Money
	RequestedStartMonth  MonthYear
	Purpose              *string
	Status               LoanStatus

	// Approval-time snapshot (zero values until Approved).
	MonthlyInterestRate  Rate
	ScheduledInstallment Money
	MinimumPrincipal     Money

	OutstandingPrincipal Money
	ApprovedBy           *ID
	RejectionReason      *string
	ApprovalDate         *time.Time
	DisbursementDate     *time.Time
	ClosedDate           *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
}

// Validate checks the request-time invariants.
func (l *Loan) Validate() error {
	if l.PrincipalAmount.LessThanOrEqual(ZeroMoney) {
		return NewValidationError("principalAmount", "must be positive")
	}
	if l.Purpose != nil && strings.TrimSpace(*l.Purpose) == "" {
		return NewValidationError("purpose", "must not be blank when provided")
	}
	return nil
}

// Approve transitions PendingApproval -> Approved -> Active in one atomic
// step, snapshotting fund policy and disbursing.
func (l *Loan) Approve(approverID ID, scheduledInstallment, monthlyInterestRate, minimumPrincipal Money, now time.Time) error {
	if l.Status != LoanStatusPendingApproval {
		return ErrInvalidState
	}
	if scheduledInstallment.LessThan(ZeroMoney) {
		return NewValidationError("scheduledInstallment", "must be >= 0")
	}
	l.Status = LoanStatusActive
	l.ApprovedBy = &approverID
	l.ApprovalDate = &now
	l.DisbursementDate = &now
	l.MonthlyInterestRate = monthlyInterestRate
	l.ScheduledInstallment = scheduledInstallment
	l.MinimumPrincipal = minimumPrincipal
	l.OutstandingPrincipal = l.PrincipalAmount
	return nil
}

// Reject transitions PendingApproval -> Rejected with a non-empty reason.
func (l *Loan) Reject(reason string) error {
	if l.Status != LoanStatusPendingApproval {
		return ErrInvalidState
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return NewValidationError("reason", "rejection reason is required")
	}
	l.Status = LoanStatusRejected
	l.RejectionReason = &reason
	return nil
}

// IsNonTerminal reports whether the loan counts against a borrower's
// concurrent-loan cap (PendingApproval, Approved, or Active).
func (l *Loan) IsNonTerminal() bool {
	switch l.Status {
	case LoanStatusPendingApproval, LoanStatusApproved, LoanStatusActive:
		return true
	default:
		return false
	}
}

// ReduceOutstanding applies a principal reduction, auto-closing the loan
// when the outstanding principal reaches zero. amount must be <= OutstandingPrincipal.
func (l *Loan) ReduceOutstanding(amount Money, now time.Time) error {
	if l.Status != LoanStatusActive {
		return ErrInvalidState
	}
	newOutstanding := l.OutstandingPrincipal.Sub(amount)
	if newOutstanding.LessThan(ZeroMoney) {
		return ErrValidation
	}
	l.OutstandingPrincipal = newOutstanding
	if l.OutstandingPrincipal.Equal(ZeroMoney) {
		l.Status = LoanStatusClosed
		l.ClosedDate = &now
	}
	return nil
}

// RepaymentEntryStatus is the lifecycle of a monthly repayment installment.
type RepaymentEntryStatus string

const (
	RepaymentEntryStatusPending RepaymentEntryStatus = "pending"
	RepaymentEntryStatusPartial RepaymentEntryStatus = "partial"
	RepaymentEntryStatusPaid    RepaymentEntryStatus = "paid"
	RepaymentEntryStatusOverdue RepaymentEntryStatus = "overdue"
)

// RepaymentEntry is one monthly obligation owed on an active loan. Unique on
// (LoanID, MonthYear).
type RepaymentEntry struct {
	ID            ID
	LoanID        ID
	MonthYear     MonthYear
	InterestDue   Money
	PrincipalDue  Money
	PenaltyDue    Money
	TotalDue      Money
	AmountPaid    Money
	Status        RepaymentEntryStatus
	DueDate       time.Time
	PaidDate      *time.Time
	// PenaltySourceEntryID references the overdue entry this penalty was
	// charged for, preventing the penalty engine from double-applying
	// within a single run (spec.md §4.7, §9 open question).
	PenaltySourceEntryID *ID
	CreatedAt            time.Time
	UpdatedAt            time.Time
	Version              int64
}

// InterestOutstanding is the unpaid portion of InterestDue, computed by
// allocating AmountPaid to interest first.
func (e *RepaymentEntry) InterestOutstanding() Money {
	paidToInterest := e.AmountPaid
	if paidToInterest.GreaterThan(e.InterestDue) {
		paidToInterest = e.InterestDue
	}
	return e.InterestDue.Sub(paidToInterest)
}

// PrincipalDueRemaining is the unpaid portion of PrincipalDue (+ penalty),
// computed after interest has been fully allocated.
func (e *RepaymentEntry) PrincipalDueRemaining() Money {
	afterInterest := e.AmountPaid.Sub(e.InterestDue)
	if afterInterest.LessThan(ZeroMoney) {
		afterInterest = ZeroMoney
	}
	remaining := e.PrincipalDue.Add(e.PenaltyDue).Sub(afterInterest)
	if remaining.LessThan(ZeroMoney) {
		remaining = ZeroMoney
	}
	return remaining
}

// RecordPayment applies amount to the entry and recomputes status/paidDate.
func (e *RepaymentEntry) RecordPayment(amount Money, now time.Time) {
	e.AmountPaid = e.AmountPaid.Add(amount)
	if e.AmountPaid.GreaterThanOrEqual(e.TotalDue) {
		e.Status = RepaymentEntryStatusPaid
		e.PaidDate = &now
	} else {
		e.Status = RepaymentEntryStatusPartial
	}
}

// MarkOverdue transitions Pending/Partial to Overdue.
func (e *RepaymentEntry) MarkOverdue() {
	if e.Status == RepaymentEntryStatusPending || e.Status == RepaymentEntryStatusPartial {
		e.Status = RepaymentEntryStatusOverdue
	}
}

// LoanRepository persists Loan aggregates.
type LoanRepository interface {
	Create(l *Loan) (*Loan, error)
	GetByID(id ID) (*Loan, error)
	Update(l *Loan, expectedVersion int64) (*Loan, error)
	CountNonTerminalByBorrower(fundID, borrowerID ID) (int, error)
	ListActiveByFund(fundID ID) ([]*Loan, error)
	ListByBorrower(fundID, borrowerID ID) ([]*Loan, error)
}

// RepaymentEntryRepository persists RepaymentEntries, owned by Loan.
type RepaymentEntryRepository interface {
	Create(e *RepaymentEntry) (*RepaymentEntry, error)
	Get(loanID ID, monthYear MonthYear) (*RepaymentEntry, error)
	GetByID(id ID) (*RepaymentEntry, error)
	Update(e *RepaymentEntry, expectedVersion int64) (*RepaymentEntry, error)
	ListByLoan(loanID ID) ([]*RepaymentEntry, error)
	ListOverdueCandidates(fundID ID, asOf time.Time) ([]*RepaymentEntry, error)
	DeleteAllForLoan(loanID ID) error
}
