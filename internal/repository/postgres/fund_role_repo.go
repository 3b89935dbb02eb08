package postgres

import (
	"context"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FundRoleRepository implements domain.FundRoleRepository using PostgreSQL.
type FundRoleRepository struct {
	pool *pgxpool.Pool
}

// NewFundRoleRepository creates a new FundRoleRepository.
func NewFundRoleRepository(pool *pgxpool.Pool) *FundRoleRepository {
	return &FundRoleRepository{pool: pool}
}

const fundRoleColumns = `id, fund_id, user_id, role, created_at, updated_at`

// Assign inserts a's role binding. Unique on (fund_id, user_id).
func (r *FundRoleRepository) Assign(a *domain.FundRoleAssignment) (*domain.FundRoleAssignment, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO fund_role_assignments (fund_id, user_id, role)
		VALUES ($1,$2,$3)
		RETURNING `+fundRoleColumns,
		a.FundID, a.UserID, a.Role,
	)
	assigned, err := scanFundRole(row)
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}
	return assigned, nil
}

// Get retrieves the role assignment for (fundID, userID).
func (r *FundRoleRepository) Get(fundID, userID domain.ID) (*domain.FundRoleAssignment, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `SELECT `+fundRoleColumns+` FROM fund_role_assignments WHERE fund_id = $1 AND user_id = $2`,
		fundID, userID)
	return scanFundRole(row)
}

// Update persists a new role for an existing assignment.
func (r *FundRoleRepository) Update(a *domain.FundRoleAssignment) (*domain.FundRoleAssignment, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		UPDATE fund_role_assignments SET role = $1, updated_at = now()
		WHERE fund_id = $2 AND user_id = $3
		RETURNING `+fundRoleColumns,
		a.Role, a.FundID, a.UserID,
	)
	return scanFundRole(row)
}

// Remove deletes the role assignment for (fundID, userID).
func (r *FundRoleRepository) Remove(fundID, userID domain.ID) error {
	ctx := context.Background()
	_, err := r.pool.Exec(ctx, `DELETE FROM fund_role_assignments WHERE fund_id = $1 AND user_id = $2`, fundID, userID)
	return err
}

// ListByFund returns every role assignment within fundID.
func (r *FundRoleRepository) ListByFund(fundID domain.ID) ([]*domain.FundRoleAssignment, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx, `SELECT `+fundRoleColumns+` FROM fund_role_assignments WHERE fund_id = $1 ORDER BY created_at`, fundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.FundRoleAssignment
	for rows.Next() {
		a, err := scanFundRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CountByRole counts role assignments of a given role within fundID, used by
// FundService to guard against removing the fund's last Admin.
func (r *FundRoleRepository) CountByRole(fundID domain.ID, role domain.FundRole) (int, error) {
	ctx := context.Background()
	var count int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM fund_role_assignments WHERE fund_id = $1 AND role = $2`,
		fundID, role,
	).Scan(&count)
	return count, err
}

type fundRoleRow interface {
	Scan(dest ...any) error
}

func scanFundRole(row fundRoleRow) (*domain.FundRoleAssignment, error) {
	var a domain.FundRoleAssignment
	err := row.Scan(&a.ID, &a.FundID, &a.UserID, &a.Role, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrRoleAssignmentNotFound
		}
		return nil, err
	}
	return &a, nil
}
