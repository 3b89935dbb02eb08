package postgres

import (
	"context"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LoanRepository implements domain.LoanRepository using PostgreSQL.
type LoanRepository struct {
	pool *pgxpool.Pool
}

// NewLoanRepository creates a new LoanRepository.
func NewLoanRepository(pool *pgxpool.Pool) *LoanRepository {
	return &LoanRepository{pool: pool}
}

const loanColumns = `id, fund_id, borrower_id, principal_amount, requested_start_month,
	purpose, status, monthly_interest_rate, scheduled_installment, minimum_principal,
	outstanding_principal, approved_by, rejection_reason, approval_date,
	disbursement_date, closed_date, created_at, updated_at, version`

// Create inserts a new loan in PendingApproval.
func (r *LoanRepository) Create(l *domain.Loan) (*domain.Loan, error) {
	ctx := context.Background()

	principal, err := decimalToPgNumeric(l.PrincipalAmount)
	if err != nil {
		return nil, err
	}
	purpose := pgtype.Text{}
	if l.Purpose != nil {
		purpose.String = *l.Purpose
		purpose.Valid = true
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO loans (
			fund_id, borrower_id, principal_amount, requested_start_month, purpose, status,
			monthly_interest_rate, scheduled_installment, minimum_principal, outstanding_principal, version
		) VALUES ($1,$2,$3,$4,$5,$6,0,0,0,0,1)
		RETURNING `+loanColumns,
		l.FundID, l.BorrowerID, principal, l.RequestedStartMonth, purpose, l.Status,
	)
	return scanLoan(row)
}

// GetByID retrieves a loan by ID.
func (r *LoanRepository) GetByID(id domain.ID) (*domain.Loan, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1`, id)
	return scanLoan(row)
}

// Update persists l, enforcing optimistic concurrency against expectedVersion.
func (r *LoanRepository) Update(l *domain.Loan, expectedVersion int64) (*domain.Loan, error) {
	ctx := context.Background()

	principal, err := decimalToPgNumeric(l.PrincipalAmount)
	if err != nil {
		return nil, err
	}
	rate, err := decimalToPgNumeric(l.MonthlyInterestRate)
	if err != nil {
		return nil, err
	}
	installment, err := decimalToPgNumeric(l.ScheduledInstallment)
	if err != nil {
		return nil, err
	}
	minPrincipal, err := decimalToPgNumeric(l.MinimumPrincipal)
	if err != nil {
		return nil, err
	}
	outstanding, err := decimalToPgNumeric(l.OutstandingPrincipal)
	if err != nil {
		return nil, err
	}

	purpose := pgtype.Text{}
	if l.Purpose != nil {
		purpose.String = *l.Purpose
		purpose.Valid = true
	}
	approvedBy := pgtype.UUID{}
	if l.ApprovedBy != nil {
		approvedBy.Bytes = *l.ApprovedBy
		approvedBy.Valid = true
	}
	rejectionReason := pgtype.Text{}
	if l.RejectionReason != nil {
		rejectionReason.String = *l.RejectionReason
		rejectionReason.Valid = true
	}
	approvalDate := pgtype.Timestamptz{}
	if l.ApprovalDate != nil {
		approvalDate.Time = *l.ApprovalDate
		approvalDate.Valid = true
	}
	disbursementDate := pgtype.Timestamptz{}
	if l.DisbursementDate != nil {
		disbursementDate.Time = *l.DisbursementDate
		disbursementDate.Valid = true
	}
	closedDate := pgtype.Timestamptz{}
	if l.ClosedDate != nil {
		closedDate.Time = *l.ClosedDate
		closedDate.Valid = true
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE loans SET
			purpose = $1, status = $2, monthly_interest_rate = $3, scheduled_installment = $4,
			minimum_principal = $5, outstanding_principal = $6, approved_by = $7,
			rejection_reason = $8, approval_date = $9, disbursement_date = $10,
			closed_date = $11, principal_amount = $12, updated_at = now(), version = version + 1
		WHERE id = $13 AND version = $14
		RETURNING `+loanColumns,
		purpose, l.Status, rate, installment, minPrincipal, outstanding, approvedBy,
		rejectionReason, approvalDate, disbursementDate, closedDate, principal,
		l.ID, expectedVersion,
	)
	updated, err := scanLoan(row)
	if err != nil {
		if err == domain.ErrLoanNotFound {
			return nil, domain.ErrConflict
		}
		return nil, err
	}
	return updated, nil
}

// CountNonTerminalByBorrower counts loans in PendingApproval/Approved/Active for borrowerID.
func (r *LoanRepository) CountNonTerminalByBorrower(fundID, borrowerID domain.ID) (int, error) {
	ctx := context.Background()
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM loans
		WHERE fund_id = $1 AND borrower_id = $2
		AND status IN ($3, $4, $5)`,
		fundID, borrowerID,
		domain.LoanStatusPendingApproval, domain.LoanStatusApproved, domain.LoanStatusActive,
	).Scan(&count)
	return count, err
}

// ListActiveByFund returns every loan in State Active within fundID.
func (r *LoanRepository) ListActiveByFund(fundID domain.ID) ([]*domain.Loan, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx, `SELECT `+loanColumns+` FROM loans WHERE fund_id = $1 AND status = $2 ORDER BY created_at`,
		fundID, domain.LoanStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLoans(rows)
}

// ListByBorrower returns every loan borrowerID holds within fundID.
func (r *LoanRepository) ListByBorrower(fundID, borrowerID domain.ID) ([]*domain.Loan, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx, `SELECT `+loanColumns+` FROM loans WHERE fund_id = $1 AND borrower_id = $2 ORDER BY created_at`,
		fundID, borrowerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLoans(rows)
}

type loanRow interface {
	Scan(dest ...any) error
}

func scanLoan(row loanRow) (*domain.Loan, error) {
	var l domain.Loan
	var purpose, rejectionReason pgtype.Text
	var rate, installment, minPrincipal, outstanding, principal pgtype.Numeric
	var approvedBy pgtype.UUID
	var approvalDate, disbursementDate, closedDate pgtype.Timestamptz

	err := row.Scan(
		&l.ID, &l.FundID, &l.BorrowerID, &principal, &l.RequestedStartMonth,
		&purpose, &l.Status, &rate, &installment, &minPrincipal, &outstanding,
		&approvedBy, &rejectionReason, &approvalDate, &disbursementDate, &closedDate,
		&l.CreatedAt, &l.UpdatedAt, &l.Version,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrLoanNotFound
		}
		return nil, err
	}

	l.PrincipalAmount = pgNumericToDecimal(principal)
	l.MonthlyInterestRate = pgNumericToDecimal(rate)
	l.ScheduledInstallment = pgNumericToDecimal(installment)
	l.MinimumPrincipal = pgNumericToDecimal(minPrincipal)
	l.OutstandingPrincipal = pgNumericToDecimal(outstanding)
	if purpose.Valid {
		l.Purpose = &purpose.String
	}
	if rejectionReason.Valid {
		l.RejectionReason = &rejectionReason.String
	}
	if approvedBy.Valid {
		id := domain.ID(approvedBy.Bytes)
		l.ApprovedBy = &id
	}
	if approvalDate.Valid {
		l.ApprovalDate = &approvalDate.Time
	}
	if disbursementDate.Valid {
		l.DisbursementDate = &disbursementDate.Time
	}
	if closedDate.Valid {
		l.ClosedDate = &closedDate.Time
	}
	return &l, nil
}

func collectLoans(rows pgx.Rows) ([]*domain.Loan, error) {
	var out []*domain.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
