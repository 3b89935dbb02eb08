package postgres

import (
	"context"
	"time"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InvitationRepository implements domain.InvitationRepository using PostgreSQL.
type InvitationRepository struct {
	pool *pgxpool.Pool
}

// NewInvitationRepository creates a new InvitationRepository.
func NewInvitationRepository(pool *pgxpool.Pool) *InvitationRepository {
	return &InvitationRepository{pool: pool}
}

const invitationColumns = `id, fund_id, target_contact, invited_by, status, expires_at, created_at, updated_at`

// Create inserts a new pending invitation.
func (r *InvitationRepository) Create(inv *domain.Invitation) (*domain.Invitation, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO invitations (fund_id, target_contact, invited_by, status, expires_at)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING `+invitationColumns,
		inv.FundID, inv.TargetContact, inv.InvitedBy, inv.Status, inv.ExpiresAt,
	)
	created, err := scanInvitation(row)
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}
	return created, nil
}

// GetPending looks up the pending invitation for (fundID, targetContact), if any.
func (r *InvitationRepository) GetPending(fundID domain.ID, targetContact string) (*domain.Invitation, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		SELECT `+invitationColumns+` FROM invitations
		WHERE fund_id = $1 AND target_contact = $2 AND status = $3`,
		fundID, targetContact, domain.InvitationStatusPending,
	)
	return scanInvitation(row)
}

// Update persists inv's new status.
func (r *InvitationRepository) Update(inv *domain.Invitation) (*domain.Invitation, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		UPDATE invitations SET status = $1, updated_at = now()
		WHERE id = $2
		RETURNING `+invitationColumns,
		inv.Status, inv.ID,
	)
	return scanInvitation(row)
}

// ListPendingExpiring returns every pending invitation whose TTL has elapsed
// by `before`, the population the invitation-expiry sweep consumes.
func (r *InvitationRepository) ListPendingExpiring(before time.Time) ([]*domain.Invitation, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx, `
		SELECT `+invitationColumns+` FROM invitations
		WHERE status = $1 AND expires_at <= $2
		ORDER BY expires_at`,
		domain.InvitationStatusPending, before,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

type invitationRow interface {
	Scan(dest ...any) error
}

func scanInvitation(row invitationRow) (*domain.Invitation, error) {
	var inv domain.Invitation
	err := row.Scan(&inv.ID, &inv.FundID, &inv.TargetContact, &inv.InvitedBy, &inv.Status,
		&inv.ExpiresAt, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrInvitationNotFound
		}
		return nil, err
	}
	return &inv, nil
}
