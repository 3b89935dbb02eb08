package postgres

import (
	"context"
	"time"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OutboxRepository implements domain.OutboxRepository using PostgreSQL,
// the at-least-once event-delivery queue the orchestrator writes to when
// publishing an event panics. The write happens after the domain writes,
// on the pool, outside any transaction.
type OutboxRepository struct {
	pool *pgxpool.Pool
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

// Enqueue inserts a new pending outbox entry.
func (r *OutboxRepository) Enqueue(e *domain.OutboxEntry) (*domain.OutboxEntry, error) {
	ctx := context.Background()
	var created domain.OutboxEntry
	var deliveredAt pgtype.Timestamptz
	err := r.pool.QueryRow(ctx, `
		INSERT INTO outbox_entries (fund_id, event_type, payload, attempts)
		VALUES ($1,$2,$3,0)
		RETURNING id, fund_id, event_type, payload, created_at, delivered_at, attempts`,
		e.FundID, e.EventType, e.Payload,
	).Scan(&created.ID, &created.FundID, &created.EventType, &created.Payload,
		&created.CreatedAt, &deliveredAt, &created.Attempts)
	if err != nil {
		return nil, err
	}
	if deliveredAt.Valid {
		created.DeliveredAt = &deliveredAt.Time
	}
	return &created, nil
}

// ListPending returns up to limit entries still awaiting delivery, oldest first.
func (r *OutboxRepository) ListPending(limit int) ([]*domain.OutboxEntry, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx, `
		SELECT id, fund_id, event_type, payload, created_at, delivered_at, attempts
		FROM outbox_entries WHERE delivered_at IS NULL ORDER BY created_at LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.OutboxEntry
	for rows.Next() {
		var e domain.OutboxEntry
		var deliveredAt pgtype.Timestamptz
		if err := rows.Scan(&e.ID, &e.FundID, &e.EventType, &e.Payload, &e.CreatedAt, &deliveredAt, &e.Attempts); err != nil {
			return nil, err
		}
		if deliveredAt.Valid {
			e.DeliveredAt = &deliveredAt.Time
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// MarkDelivered records successful delivery.
func (r *OutboxRepository) MarkDelivered(id domain.ID, deliveredAt time.Time) error {
	ctx := context.Background()
	tag, err := r.pool.Exec(ctx, `UPDATE outbox_entries SET delivered_at = $1 WHERE id = $2`, deliveredAt, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// MarkAttempted increments the entry's delivery attempt counter after a failed send.
func (r *OutboxRepository) MarkAttempted(id domain.ID) error {
	ctx := context.Background()
	_, err := r.pool.Exec(ctx, `UPDATE outbox_entries SET attempts = attempts + 1 WHERE id = $1`, id)
	return err
}
