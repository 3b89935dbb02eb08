package postgres

import (
	"context"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FundProjectionRepository implements domain.FundProjectionRepository using
// PostgreSQL, the eventually-consistent policy read model LoanService
// consults so validation need not cross a network hop.
type FundProjectionRepository struct {
	pool *pgxpool.Pool
}

// NewFundProjectionRepository creates a new FundProjectionRepository.
func NewFundProjectionRepository(pool *pgxpool.Pool) *FundProjectionRepository {
	return &FundProjectionRepository{pool: pool}
}

// Get retrieves fundID's projection.
func (r *FundProjectionRepository) Get(fundID domain.ID) (*domain.FundProjection, error) {
	ctx := context.Background()
	var p domain.FundProjection
	var rate, minPrincipal, penaltyValue, maxLoan pgtype.Numeric
	var maxConcurrent pgtype.Int4

	err := r.pool.QueryRow(ctx, `
		SELECT fund_id, monthly_interest_rate, minimum_principal_per_repayment, max_loan_per_member,
			max_concurrent_loans, loan_approval_policy, penalty_type, penalty_value, is_active
		FROM fund_projections WHERE fund_id = $1`,
		fundID,
	).Scan(&p.FundID, &rate, &minPrincipal, &maxLoan, &maxConcurrent, &p.LoanApprovalPolicy,
		&p.PenaltyType, &penaltyValue, &p.IsActive)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrFundNotFound
		}
		return nil, err
	}

	p.MonthlyInterestRate = pgNumericToDecimal(rate)
	p.MinimumPrincipalPerRepayment = pgNumericToDecimal(minPrincipal)
	p.PenaltyValue = pgNumericToDecimal(penaltyValue)
	if maxLoan.Valid {
		d := pgNumericToDecimal(maxLoan)
		p.MaxLoanPerMember = &d
	}
	if maxConcurrent.Valid {
		p.MaxConcurrentLoans = &maxConcurrent.Int32
	}
	return &p, nil
}

// Upsert writes p, replacing any prior projection for the same fund.
func (r *FundProjectionRepository) Upsert(p *domain.FundProjection) (*domain.FundProjection, error) {
	ctx := context.Background()

	rate, err := decimalToPgNumeric(p.MonthlyInterestRate)
	if err != nil {
		return nil, err
	}
	minPrincipal, err := decimalToPgNumeric(p.MinimumPrincipalPerRepayment)
	if err != nil {
		return nil, err
	}
	penaltyValue, err := decimalToPgNumeric(p.PenaltyValue)
	if err != nil {
		return nil, err
	}
	maxLoan := pgtype.Numeric{}
	if p.MaxLoanPerMember != nil {
		maxLoan, err = decimalToPgNumeric(*p.MaxLoanPerMember)
		if err != nil {
			return nil, err
		}
	}
	maxConcurrent := pgtype.Int4{}
	if p.MaxConcurrentLoans != nil {
		maxConcurrent.Int32 = *p.MaxConcurrentLoans
		maxConcurrent.Valid = true
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO fund_projections (
			fund_id, monthly_interest_rate, minimum_principal_per_repayment, max_loan_per_member,
			max_concurrent_loans, loan_approval_policy, penalty_type, penalty_value, is_active
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (fund_id) DO UPDATE SET
			monthly_interest_rate = excluded.monthly_interest_rate,
			minimum_principal_per_repayment = excluded.minimum_principal_per_repayment,
			max_loan_per_member = excluded.max_loan_per_member,
			max_concurrent_loans = excluded.max_concurrent_loans,
			loan_approval_policy = excluded.loan_approval_policy,
			penalty_type = excluded.penalty_type,
			penalty_value = excluded.penalty_value,
			is_active = excluded.is_active`,
		p.FundID, rate, minPrincipal, maxLoan, maxConcurrent, p.LoanApprovalPolicy,
		p.PenaltyType, penaltyValue, p.IsActive,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}
