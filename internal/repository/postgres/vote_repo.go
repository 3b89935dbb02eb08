package postgres

import (
	"context"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// VoteRepository implements domain.VoteRepository using PostgreSQL.
type VoteRepository struct {
	pool *pgxpool.Pool
}

// NewVoteRepository creates a new VoteRepository.
func NewVoteRepository(pool *pgxpool.Pool) *VoteRepository {
	return &VoteRepository{pool: pool}
}

// Create inserts an immutable vote. Unique on (session_id, voter_id).
func (r *VoteRepository) Create(v *domain.Vote) (*domain.Vote, error) {
	ctx := context.Background()
	var created domain.Vote
	err := r.pool.QueryRow(ctx, `
		INSERT INTO votes (session_id, voter_id, decision)
		VALUES ($1,$2,$3)
		RETURNING id, session_id, voter_id, decision, cast_at`,
		v.SessionID, v.VoterID, v.Decision,
	).Scan(&created.ID, &created.SessionID, &created.VoterID, &created.Decision, &created.CastAt)
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, domain.ErrAlreadyVoted
		}
		return nil, err
	}
	return &created, nil
}

// Get retrieves voterID's vote within sessionID, if cast.
func (r *VoteRepository) Get(sessionID, voterID domain.ID) (*domain.Vote, error) {
	ctx := context.Background()
	var v domain.Vote
	err := r.pool.QueryRow(ctx, `
		SELECT id, session_id, voter_id, decision, cast_at FROM votes
		WHERE session_id = $1 AND voter_id = $2`,
		sessionID, voterID,
	).Scan(&v.ID, &v.SessionID, &v.VoterID, &v.Decision, &v.CastAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// ListBySession returns every vote cast within sessionID.
func (r *VoteRepository) ListBySession(sessionID domain.ID) ([]*domain.Vote, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx, `
		SELECT id, session_id, voter_id, decision, cast_at FROM votes
		WHERE session_id = $1 ORDER BY cast_at`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Vote
	for rows.Next() {
		var v domain.Vote
		if err := rows.Scan(&v.ID, &v.SessionID, &v.VoterID, &v.Decision, &v.CastAt); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}
