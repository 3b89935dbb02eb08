package postgres

import (
	"context"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FundRepository implements domain.FundRepository using PostgreSQL. Unlike
// the teacher's workspace/loan repositories, the generated sqlc layer isn't
// available in this module, so queries are issued directly against the pool
// with the same decimalToPgNumeric/pgtype conversion idioms loan_repo.go uses.
type FundRepository struct {
	pool *pgxpool.Pool
}

// NewFundRepository creates a new FundRepository.
func NewFundRepository(pool *pgxpool.Pool) *FundRepository {
	return &FundRepository{pool: pool}
}

const fundColumns = `id, name, description, currency, monthly_interest_rate,
	minimum_monthly_contribution, minimum_principal_per_repayment,
	loan_approval_policy, max_loan_per_member, max_concurrent_loans,
	overdue_penalty_type, overdue_penalty_value, contribution_day_of_month,
	grace_period_days, missed_after_days, state, created_at, updated_at, version`

// Create inserts a new fund with version 1, in the state f carries.
func (r *FundRepository) Create(f *domain.Fund) (*domain.Fund, error) {
	ctx := context.Background()

	rate, err := decimalToPgNumeric(f.MonthlyInterestRate)
	if err != nil {
		return nil, err
	}
	minContribution, err := decimalToPgNumeric(f.MinimumMonthlyContribution)
	if err != nil {
		return nil, err
	}
	minPrincipal, err := decimalToPgNumeric(f.MinimumPrincipalPerRepayment)
	if err != nil {
		return nil, err
	}
	penaltyValue, err := decimalToPgNumeric(f.OverduePenaltyValue)
	if err != nil {
		return nil, err
	}

	description := pgtype.Text{}
	if f.Description != nil {
		description.String = *f.Description
		description.Valid = true
	}
	maxLoan := pgtype.Numeric{}
	if f.MaxLoanPerMember != nil {
		maxLoan, err = decimalToPgNumeric(*f.MaxLoanPerMember)
		if err != nil {
			return nil, err
		}
	}
	maxConcurrent := pgtype.Int4{}
	if f.MaxConcurrentLoans != nil {
		maxConcurrent.Int32 = *f.MaxConcurrentLoans
		maxConcurrent.Valid = true
	}
	missedAfterDays := pgtype.Int4{}
	if f.MissedAfterDays != nil {
		missedAfterDays.Int32 = *f.MissedAfterDays
		missedAfterDays.Valid = true
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO funds (
			name, description, currency, monthly_interest_rate,
			minimum_monthly_contribution, minimum_principal_per_repayment,
			loan_approval_policy, max_loan_per_member, max_concurrent_loans,
			overdue_penalty_type, overdue_penalty_value, contribution_day_of_month,
			grace_period_days, missed_after_days, state, version
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,1)
		RETURNING `+fundColumns,
		f.Name, description, f.Currency, rate, minContribution, minPrincipal,
		f.LoanApprovalPolicy, maxLoan, maxConcurrent, f.OverduePenaltyType,
		penaltyValue, f.ContributionDayOfMonth, f.GracePeriodDays, missedAfterDays, f.State,
	)
	return scanFund(row)
}

// GetByID retrieves a fund by ID.
func (r *FundRepository) GetByID(id domain.ID) (*domain.Fund, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `SELECT `+fundColumns+` FROM funds WHERE id = $1`, id)
	return scanFund(row)
}

// Update persists f, enforcing optimistic concurrency against expectedVersion.
func (r *FundRepository) Update(f *domain.Fund, expectedVersion int64) (*domain.Fund, error) {
	ctx := context.Background()

	rate, err := decimalToPgNumeric(f.MonthlyInterestRate)
	if err != nil {
		return nil, err
	}
	minContribution, err := decimalToPgNumeric(f.MinimumMonthlyContribution)
	if err != nil {
		return nil, err
	}
	minPrincipal, err := decimalToPgNumeric(f.MinimumPrincipalPerRepayment)
	if err != nil {
		return nil, err
	}
	penaltyValue, err := decimalToPgNumeric(f.OverduePenaltyValue)
	if err != nil {
		return nil, err
	}

	description := pgtype.Text{}
	if f.Description != nil {
		description.String = *f.Description
		description.Valid = true
	}
	maxLoan := pgtype.Numeric{}
	if f.MaxLoanPerMember != nil {
		maxLoan, err = decimalToPgNumeric(*f.MaxLoanPerMember)
		if err != nil {
			return nil, err
		}
	}
	maxConcurrent := pgtype.Int4{}
	if f.MaxConcurrentLoans != nil {
		maxConcurrent.Int32 = *f.MaxConcurrentLoans
		maxConcurrent.Valid = true
	}
	missedAfterDays := pgtype.Int4{}
	if f.MissedAfterDays != nil {
		missedAfterDays.Int32 = *f.MissedAfterDays
		missedAfterDays.Valid = true
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE funds SET
			name = $1, description = $2, currency = $3, monthly_interest_rate = $4,
			minimum_monthly_contribution = $5, minimum_principal_per_repayment = $6,
			loan_approval_policy = $7, max_loan_per_member = $8, max_concurrent_loans = $9,
			overdue_penalty_type = $10, overdue_penalty_value = $11,
			contribution_day_of_month = $12, grace_period_days = $13,
			missed_after_days = $14, state = $15, updated_at = now(), version = version + 1
		WHERE id = $16 AND version = $17
		RETURNING `+fundColumns,
		f.Name, description, f.Currency, rate, minContribution, minPrincipal,
		f.LoanApprovalPolicy, maxLoan, maxConcurrent, f.OverduePenaltyType,
		penaltyValue, f.ContributionDayOfMonth, f.GracePeriodDays, missedAfterDays, f.State,
		f.ID, expectedVersion,
	)
	updated, err := scanFund(row)
	if err != nil {
		if err == domain.ErrFundNotFound {
			return nil, domain.ErrConflict
		}
		return nil, err
	}
	return updated, nil
}

// ListByMember returns every fund userID holds a role assignment in.
func (r *FundRepository) ListByMember(userID domain.ID) ([]*domain.Fund, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx, `
		SELECT `+fundColumns+` FROM funds f
		JOIN fund_role_assignments a ON a.fund_id = f.id
		WHERE a.user_id = $1
		ORDER BY f.created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFunds(rows)
}

// ListActive returns every fund in State Active.
func (r *FundRepository) ListActive() ([]*domain.Fund, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx, `SELECT `+fundColumns+` FROM funds WHERE state = $1 ORDER BY created_at`, domain.FundStateActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFunds(rows)
}

type fundRow interface {
	Scan(dest ...any) error
}

func scanFund(row fundRow) (*domain.Fund, error) {
	var f domain.Fund
	var description pgtype.Text
	var maxLoan pgtype.Numeric
	var maxConcurrent, missedAfterDays pgtype.Int4
	var rate, minContribution, minPrincipal, penaltyValue pgtype.Numeric

	err := row.Scan(
		&f.ID, &f.Name, &description, &f.Currency, &rate,
		&minContribution, &minPrincipal, &f.LoanApprovalPolicy, &maxLoan, &maxConcurrent,
		&f.OverduePenaltyType, &penaltyValue, &f.ContributionDayOfMonth,
		&f.GracePeriodDays, &missedAfterDays, &f.State, &f.CreatedAt, &f.UpdatedAt, &f.Version,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrFundNotFound
		}
		return nil, err
	}

	if description.Valid {
		f.Description = &description.String
	}
	f.MonthlyInterestRate = pgNumericToDecimal(rate)
	f.MinimumMonthlyContribution = pgNumericToDecimal(minContribution)
	f.MinimumPrincipalPerRepayment = pgNumericToDecimal(minPrincipal)
	f.OverduePenaltyValue = pgNumericToDecimal(penaltyValue)
	if maxLoan.Valid {
		d := pgNumericToDecimal(maxLoan)
		f.MaxLoanPerMember = &d
	}
	if maxConcurrent.Valid {
		f.MaxConcurrentLoans = &maxConcurrent.Int32
	}
	if missedAfterDays.Valid {
		f.MissedAfterDays = &missedAfterDays.Int32
	}
	return &f, nil
}

func collectFunds(rows pgx.Rows) ([]*domain.Fund, error) {
	var out []*domain.Fund
	for rows.Next() {
		f, err := scanFund(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
