package postgres

import (
	"context"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MemberPlanRepository implements domain.MemberPlanRepository using PostgreSQL.
type MemberPlanRepository struct {
	pool *pgxpool.Pool
}

// NewMemberPlanRepository creates a new MemberPlanRepository.
func NewMemberPlanRepository(pool *pgxpool.Pool) *MemberPlanRepository {
	return &MemberPlanRepository{pool: pool}
}

const memberPlanColumns = `id, fund_id, user_id, monthly_contribution_amount, join_date,
	is_active, created_at, updated_at`

// Create inserts a new standing contribution plan. Unique on (fund_id, user_id).
func (r *MemberPlanRepository) Create(p *domain.MemberContributionPlan) (*domain.MemberContributionPlan, error) {
	ctx := context.Background()

	amount, err := decimalToPgNumeric(p.MonthlyContributionAmount)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO member_contribution_plans (fund_id, user_id, monthly_contribution_amount, join_date, is_active)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING `+memberPlanColumns,
		p.FundID, p.UserID, amount, p.JoinDate, p.IsActive,
	)
	created, err := scanMemberPlan(row)
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}
	return created, nil
}

// Get retrieves the plan for (fundID, userID).
func (r *MemberPlanRepository) Get(fundID, userID domain.ID) (*domain.MemberContributionPlan, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `SELECT `+memberPlanColumns+` FROM member_contribution_plans WHERE fund_id = $1 AND user_id = $2`,
		fundID, userID)
	return scanMemberPlan(row)
}

// Update persists changes to IsActive (the only mutable field after creation).
func (r *MemberPlanRepository) Update(p *domain.MemberContributionPlan) (*domain.MemberContributionPlan, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		UPDATE member_contribution_plans SET is_active = $1, updated_at = now()
		WHERE fund_id = $2 AND user_id = $3
		RETURNING `+memberPlanColumns,
		p.IsActive, p.FundID, p.UserID,
	)
	return scanMemberPlan(row)
}

// ListActiveByFund returns every active plan within fundID, the population
// the monthly contribution-generation sweep iterates.
func (r *MemberPlanRepository) ListActiveByFund(fundID domain.ID) ([]*domain.MemberContributionPlan, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx, `SELECT `+memberPlanColumns+` FROM member_contribution_plans WHERE fund_id = $1 AND is_active ORDER BY join_date`, fundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.MemberContributionPlan
	for rows.Next() {
		p, err := scanMemberPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type memberPlanRow interface {
	Scan(dest ...any) error
}

func scanMemberPlan(row memberPlanRow) (*domain.MemberContributionPlan, error) {
	var p domain.MemberContributionPlan
	var amount pgtype.Numeric
	err := row.Scan(&p.ID, &p.FundID, &p.UserID, &amount, &p.JoinDate, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrMemberPlanNotFound
		}
		return nil, err
	}
	p.MonthlyContributionAmount = pgNumericToDecimal(amount)
	return &p, nil
}
