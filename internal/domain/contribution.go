package domain

import "time"

// ContributionDueStatus is the lifecycle of a monthly contribution due.
type ContributionDueStatus string

const (
	ContributionDueStatusPending ContributionDueStatus = "pending"
	ContributionDueStatusPartial ContributionDueStatus = "partial"
	ContributionDueStatusPaid    ContributionDueStatus = "paid"
	ContributionDueStatusLate    ContributionDueStatus = "late"
	ContributionDueStatusMissed  ContributionDueStatus = "missed"
)

// ContributionDue is a member's monthly contribution obligation. Unique on
// (FundID, UserID, MonthYear).
type ContributionDue struct {
	ID               ID
	FundID           ID
	UserID           ID
	MonthYear        MonthYear
	AmountDue        Money
	AmountPaid       Money
	Status           ContributionDueStatus
	DueDate          time.Time
	PaidDate         *time.Time
	MissedAt         *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Version          int64
}

// RemainingBalance is AmountDue - AmountPaid.
func (d *ContributionDue) RemainingBalance() Money {
	return d.AmountDue.Sub(d.AmountPaid)
}

// ApplyPayment records `amount` against the due and recomputes status.
// Fails with ErrAlreadyPaid if the due is already Paid.
func (d *ContributionDue) ApplyPayment(amount Money, now time.Time) error {
	if d.Status == ContributionDueStatusPaid {
		return ErrAlreadyPaid
	}
	d.AmountPaid = d.AmountPaid.Add(amount)
	if d.RemainingBalance().LessThanOrEqual(ZeroMoney) {
		d.Status = ContributionDueStatusPaid
		d.PaidDate = &now
	} else {
		d.Status = ContributionDueStatusPartial
	}
	return nil
}

// MarkLate transitions Pending/Partial to Late once dueDate+grace has passed.
func (d *ContributionDue) MarkLate() {
	if d.Status == ContributionDueStatusPending || d.Status == ContributionDueStatusPartial {
		d.Status = ContributionDueStatusLate
	}
}

// MarkMissed transitions Late to Missed once the fund's second threshold has passed.
func (d *ContributionDue) MarkMissed(now time.Time) {
	if d.Status == ContributionDueStatusLate {
		d.Status = ContributionDueStatusMissed
		d.MissedAt = &now
	}
}

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TransactionTypeContribution   TransactionType = "contribution"
	TransactionTypeDisbursement   TransactionType = "disbursement"
	TransactionTypeRepayment      TransactionType = "repayment"
	TransactionTypeInterestIncome TransactionType = "interest_income"
	TransactionTypePenalty        TransactionType = "penalty"
)

// ReferenceEntityType names the aggregate a ledger Transaction references.
type ReferenceEntityType string

const (
	ReferenceEntityContributionDue ReferenceEntityType = "contribution_due"
	ReferenceEntityLoan            ReferenceEntityType = "loan"
	ReferenceEntityRepaymentEntry  ReferenceEntityType = "repayment_entry"
)

// Transaction is an append-only ledger entry. Unique on (FundID, IdempotencyKey).
type Transaction struct {
	ID                  ID
	FundID              ID
	UserID              *ID
	Type                TransactionType
	Amount              Money
	CreatedAt           time.Time
	IdempotencyKey      string
	ReferenceEntityType *ReferenceEntityType
	ReferenceEntityID   *ID
}

// IdempotencyRecord de-duplicates a caller-supplied key per (FundID, Endpoint).
// Unique on (FundID, Endpoint, IdempotencyKey).
type IdempotencyRecord struct {
	ID             ID
	FundID         ID
	Endpoint       string
	IdempotencyKey string
	RequestHash    string
	ResultRef      string
	CreatedAt      time.Time
}

// ContributionDueRepository persists ContributionDues.
type ContributionDueRepository interface {
	Create(d *ContributionDue) (*ContributionDue, error)
	Get(fundID, userID ID, monthYear MonthYear) (*ContributionDue, error)
	GetByID(id ID) (*ContributionDue, error)
	Update(d *ContributionDue, expectedVersion int64) (*ContributionDue, error)
	ListOverdueCandidates(fundID ID, asOf time.Time) ([]*ContributionDue, error)
	ListByFundAndMonth(fundID ID, monthYear MonthYear) ([]*ContributionDue, error)
	ListByUser(fundID, userID ID) ([]*ContributionDue, error)
}

// TransactionRepository persists ledger Transactions.
type TransactionRepository interface {
	Append(tx *Transaction) (*Transaction, error)
	GetByIdempotencyKey(fundID ID, key string) (*Transaction, error)
	SumByType(fundID ID, t TransactionType) (Money, error)
	SumByTypeAndUser(fundID, userID ID, t TransactionType) (Money, error)
	ListByFund(fundID ID, t *TransactionType, from, to *time.Time) ([]*Transaction, error)
}

// IdempotencyRepository persists the idempotency registry.
type IdempotencyRepository interface {
	Get(fundID ID, endpoint, key string) (*IdempotencyRecord, error)
	Create(rec *IdempotencyRecord) (*IdempotencyRecord, error)
}
