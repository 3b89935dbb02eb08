package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TransactionRepository implements domain.TransactionRepository, the
// append-only ledger underlying every fund's balance computation.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// Append inserts tx. Violating the (fund_id, idempotency_key) unique
// constraint surfaces as domain.ErrConflict.
func (r *TransactionRepository) Append(tx *domain.Transaction) (*domain.Transaction, error) {
	ctx := context.Background()

	amount, err := decimalToPgNumeric(tx.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	userID := pgtype.UUID{}
	if tx.UserID != nil {
		userID.Bytes = *tx.UserID
		userID.Valid = true
	}
	refType := pgtype.Text{}
	if tx.ReferenceEntityType != nil {
		refType.String = string(*tx.ReferenceEntityType)
		refType.Valid = true
	}
	refID := pgtype.UUID{}
	if tx.ReferenceEntityID != nil {
		refID.Bytes = *tx.ReferenceEntityID
		refID.Valid = true
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO transactions (
			fund_id, user_id, type, amount, idempotency_key,
			reference_entity_type, reference_entity_id
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, fund_id, user_id, type, amount, created_at, idempotency_key,
			reference_entity_type, reference_entity_id`,
		tx.FundID, userID, tx.Type, amount, tx.IdempotencyKey, refType, refID,
	)
	appended, err := scanTransaction(row)
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, domain.ErrConflict
		}
		return nil, err
	}
	return appended, nil
}

// GetByIdempotencyKey looks up a previously-appended transaction for replay detection.
func (r *TransactionRepository) GetByIdempotencyKey(fundID domain.ID, key string) (*domain.Transaction, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		SELECT id, fund_id, user_id, type, amount, created_at, idempotency_key,
			reference_entity_type, reference_entity_id
		FROM transactions WHERE fund_id = $1 AND idempotency_key = $2`,
		fundID, key,
	)
	tx, err := scanTransaction(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return tx, nil
}

// SumByType totals every ledger entry of type t for fundID.
func (r *TransactionRepository) SumByType(fundID domain.ID, t domain.TransactionType) (domain.Money, error) {
	ctx := context.Background()
	var sum pgtype.Numeric
	err := r.pool.QueryRow(ctx, `
		SELECT coalesce(sum(amount), 0) FROM transactions WHERE fund_id = $1 AND type = $2`,
		fundID, t,
	).Scan(&sum)
	if err != nil {
		return domain.ZeroMoney, err
	}
	return pgNumericToDecimal(sum), nil
}

// SumByTypeAndUser totals every ledger entry of type t attributed to userID within fundID.
func (r *TransactionRepository) SumByTypeAndUser(fundID, userID domain.ID, t domain.TransactionType) (domain.Money, error) {
	ctx := context.Background()
	var sum pgtype.Numeric
	err := r.pool.QueryRow(ctx, `
		SELECT coalesce(sum(amount), 0) FROM transactions WHERE fund_id = $1 AND user_id = $2 AND type = $3`,
		fundID, userID, t,
	).Scan(&sum)
	if err != nil {
		return domain.ZeroMoney, err
	}
	return pgNumericToDecimal(sum), nil
}

// ListByFund returns fundID's ledger, optionally filtered by type and/or window.
func (r *TransactionRepository) ListByFund(fundID domain.ID, t *domain.TransactionType, from, to *time.Time) ([]*domain.Transaction, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx, `
		SELECT id, fund_id, user_id, type, amount, created_at, idempotency_key,
			reference_entity_type, reference_entity_id
		FROM transactions
		WHERE fund_id = $1
		AND ($2::text IS NULL OR type = $2)
		AND ($3::timestamptz IS NULL OR created_at >= $3)
		AND ($4::timestamptz IS NULL OR created_at <= $4)
		ORDER BY created_at`,
		fundID, nullableTransactionType(t), from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func nullableTransactionType(t *domain.TransactionType) *string {
	if t == nil {
		return nil
	}
	s := string(*t)
	return &s
}

type transactionRow interface {
	Scan(dest ...any) error
}

func scanTransaction(row transactionRow) (*domain.Transaction, error) {
	var tx domain.Transaction
	var userID pgtype.UUID
	var amount pgtype.Numeric
	var refType pgtype.Text
	var refID pgtype.UUID

	err := row.Scan(&tx.ID, &tx.FundID, &userID, &tx.Type, &amount, &tx.CreatedAt,
		&tx.IdempotencyKey, &refType, &refID)
	if err != nil {
		return nil, err
	}

	tx.Amount = pgNumericToDecimal(amount)
	if userID.Valid {
		id := domain.ID(userID.Bytes)
		tx.UserID = &id
	}
	if refType.Valid {
		ret := domain.ReferenceEntityType(refType.String)
		tx.ReferenceEntityType = &ret
	}
	if refID.Valid {
		id := domain.ID(refID.Bytes)
		tx.ReferenceEntityID = &id
	}
	return &tx, nil
}
