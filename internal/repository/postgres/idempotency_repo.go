package postgres

import (
	"context"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IdempotencyRepository implements domain.IdempotencyRepository using PostgreSQL.
type IdempotencyRepository struct {
	pool *pgxpool.Pool
}

// NewIdempotencyRepository creates a new IdempotencyRepository.
func NewIdempotencyRepository(pool *pgxpool.Pool) *IdempotencyRepository {
	return &IdempotencyRepository{pool: pool}
}

// Get looks up a previously recorded idempotency key.
func (r *IdempotencyRepository) Get(fundID domain.ID, endpoint, key string) (*domain.IdempotencyRecord, error) {
	ctx := context.Background()
	var rec domain.IdempotencyRecord
	err := r.pool.QueryRow(ctx, `
		SELECT id, fund_id, endpoint, idempotency_key, request_hash, result_ref, created_at
		FROM idempotency_records WHERE fund_id = $1 AND endpoint = $2 AND idempotency_key = $3`,
		fundID, endpoint, key,
	).Scan(&rec.ID, &rec.FundID, &rec.Endpoint, &rec.IdempotencyKey, &rec.RequestHash, &rec.ResultRef, &rec.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// Create inserts a new idempotency record. Unique on (fund_id, endpoint, idempotency_key).
func (r *IdempotencyRepository) Create(rec *domain.IdempotencyRecord) (*domain.IdempotencyRecord, error) {
	ctx := context.Background()
	var created domain.IdempotencyRecord
	err := r.pool.QueryRow(ctx, `
		INSERT INTO idempotency_records (fund_id, endpoint, idempotency_key, request_hash, result_ref)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, fund_id, endpoint, idempotency_key, request_hash, result_ref, created_at`,
		rec.FundID, rec.Endpoint, rec.IdempotencyKey, rec.RequestHash, rec.ResultRef,
	).Scan(&created.ID, &created.FundID, &created.Endpoint, &created.IdempotencyKey,
		&created.RequestHash, &created.ResultRef, &created.CreatedAt)
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, domain.ErrConflict
		}
		return nil, err
	}
	return &created, nil
}
