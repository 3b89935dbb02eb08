package postgres

import (
	"context"
	"time"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// VotingSessionRepository implements domain.VotingSessionRepository using PostgreSQL.
type VotingSessionRepository struct {
	pool *pgxpool.Pool
}

// NewVotingSessionRepository creates a new VotingSessionRepository.
func NewVotingSessionRepository(pool *pgxpool.Pool) *VotingSessionRepository {
	return &VotingSessionRepository{pool: pool}
}

const votingSessionColumns = `id, loan_id, fund_id, window_start, window_end, threshold_type,
	threshold_value, result, finalised_by, finalised_date, override_used, created_at, updated_at`

// Create inserts a new voting session. At most one per loan_id.
func (r *VotingSessionRepository) Create(s *domain.VotingSession) (*domain.VotingSession, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO voting_sessions (loan_id, fund_id, window_start, window_end, threshold_type, threshold_value, result, override_used)
		VALUES ($1,$2,$3,$4,$5,$6,$7,false)
		RETURNING `+votingSessionColumns,
		s.LoanID, s.FundID, s.WindowStart, s.WindowEnd, s.ThresholdType, s.ThresholdValue, s.Result,
	)
	created, err := scanVotingSession(row)
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}
	return created, nil
}

// GetByLoan retrieves the session attached to loanID, if any.
func (r *VotingSessionRepository) GetByLoan(loanID domain.ID) (*domain.VotingSession, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `SELECT `+votingSessionColumns+` FROM voting_sessions WHERE loan_id = $1`, loanID)
	return scanVotingSession(row)
}

// GetByID retrieves a session by ID.
func (r *VotingSessionRepository) GetByID(id domain.ID) (*domain.VotingSession, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `SELECT `+votingSessionColumns+` FROM voting_sessions WHERE id = $1`, id)
	return scanVotingSession(row)
}

// Update persists the session's finalisation outcome.
func (r *VotingSessionRepository) Update(s *domain.VotingSession) (*domain.VotingSession, error) {
	ctx := context.Background()
	finalisedBy := pgtype.UUID{}
	if s.FinalisedBy != nil {
		finalisedBy.Bytes = *s.FinalisedBy
		finalisedBy.Valid = true
	}
	finalisedDate := pgtype.Timestamptz{}
	if s.FinalisedDate != nil {
		finalisedDate.Time = *s.FinalisedDate
		finalisedDate.Valid = true
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE voting_sessions SET result = $1, finalised_by = $2, finalised_date = $3,
			override_used = $4, updated_at = now()
		WHERE id = $5
		RETURNING `+votingSessionColumns,
		s.Result, finalisedBy, finalisedDate, s.OverrideUsed, s.ID,
	)
	return scanVotingSession(row)
}

// ListExpiringOpen returns every session still Pending whose window has
// closed by `before`, the population the voting-window-close sweep consumes.
func (r *VotingSessionRepository) ListExpiringOpen(before time.Time) ([]*domain.VotingSession, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx, `
		SELECT `+votingSessionColumns+` FROM voting_sessions
		WHERE result = $1 AND window_end <= $2
		ORDER BY window_end`,
		domain.VotingResultPending, before,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.VotingSession
	for rows.Next() {
		s, err := scanVotingSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type votingSessionRow interface {
	Scan(dest ...any) error
}

func scanVotingSession(row votingSessionRow) (*domain.VotingSession, error) {
	var s domain.VotingSession
	var finalisedBy pgtype.UUID
	var finalisedDate pgtype.Timestamptz

	err := row.Scan(&s.ID, &s.LoanID, &s.FundID, &s.WindowStart, &s.WindowEnd, &s.ThresholdType,
		&s.ThresholdValue, &s.Result, &finalisedBy, &finalisedDate, &s.OverrideUsed, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrVotingSessionNotFound
		}
		return nil, err
	}
	if finalisedBy.Valid {
		id := domain.ID(finalisedBy.Bytes)
		s.FinalisedBy = &id
	}
	if finalisedDate.Valid {
		s.FinalisedDate = &finalisedDate.Time
	}
	return &s, nil
}
