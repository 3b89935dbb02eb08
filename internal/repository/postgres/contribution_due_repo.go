package postgres

import (
	"context"
	"time"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ContributionDueRepository implements domain.ContributionDueRepository using PostgreSQL.
type ContributionDueRepository struct {
	pool *pgxpool.Pool
}

// NewContributionDueRepository creates a new ContributionDueRepository.
func NewContributionDueRepository(pool *pgxpool.Pool) *ContributionDueRepository {
	return &ContributionDueRepository{pool: pool}
}

const contributionDueColumns = `id, fund_id, user_id, month_year, amount_due, amount_paid,
	status, due_date, paid_date, missed_at, created_at, updated_at, version`

// Create inserts a new contribution due. Unique on (fund_id, user_id, month_year).
func (r *ContributionDueRepository) Create(d *domain.ContributionDue) (*domain.ContributionDue, error) {
	ctx := context.Background()

	amountDue, err := decimalToPgNumeric(d.AmountDue)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO contribution_dues (fund_id, user_id, month_year, amount_due, amount_paid, status, due_date, version)
		VALUES ($1,$2,$3,$4,0,$5,$6,1)
		RETURNING `+contributionDueColumns,
		d.FundID, d.UserID, d.MonthYear, amountDue, d.Status, d.DueDate,
	)
	created, err := scanContributionDue(row)
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}
	return created, nil
}

// Get retrieves the due for (fundID, userID, monthYear).
func (r *ContributionDueRepository) Get(fundID, userID domain.ID, monthYear domain.MonthYear) (*domain.ContributionDue, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `SELECT `+contributionDueColumns+` FROM contribution_dues WHERE fund_id = $1 AND user_id = $2 AND month_year = $3`,
		fundID, userID, monthYear)
	return scanContributionDue(row)
}

// GetByID retrieves a due by ID.
func (r *ContributionDueRepository) GetByID(id domain.ID) (*domain.ContributionDue, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `SELECT `+contributionDueColumns+` FROM contribution_dues WHERE id = $1`, id)
	return scanContributionDue(row)
}

// Update persists d, enforcing optimistic concurrency against expectedVersion.
func (r *ContributionDueRepository) Update(d *domain.ContributionDue, expectedVersion int64) (*domain.ContributionDue, error) {
	ctx := context.Background()

	amountDue, err := decimalToPgNumeric(d.AmountDue)
	if err != nil {
		return nil, err
	}
	amountPaid, err := decimalToPgNumeric(d.AmountPaid)
	if err != nil {
		return nil, err
	}

	paidDate := pgtype.Timestamptz{}
	if d.PaidDate != nil {
		paidDate.Time = *d.PaidDate
		paidDate.Valid = true
	}
	missedAt := pgtype.Timestamptz{}
	if d.MissedAt != nil {
		missedAt.Time = *d.MissedAt
		missedAt.Valid = true
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE contribution_dues SET
			amount_due = $1, amount_paid = $2, status = $3, paid_date = $4, missed_at = $5,
			updated_at = now(), version = version + 1
		WHERE id = $6 AND version = $7
		RETURNING `+contributionDueColumns,
		amountDue, amountPaid, d.Status, paidDate, missedAt, d.ID, expectedVersion,
	)
	updated, err := scanContributionDue(row)
	if err != nil {
		if err == domain.ErrContributionDueNotFound {
			return nil, domain.ErrConflict
		}
		return nil, err
	}
	return updated, nil
}

// ListOverdueCandidates returns dues in (Pending, Partial, Late) whose
// dueDate has passed asOf, the population the overdue-detection job sweeps.
// Late is included so a due that missed its MarkLate tick can still be
// re-examined by a later one and transitioned to Missed.
func (r *ContributionDueRepository) ListOverdueCandidates(fundID domain.ID, asOf time.Time) ([]*domain.ContributionDue, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx, `
		SELECT `+contributionDueColumns+` FROM contribution_dues
		WHERE fund_id = $1 AND due_date <= $2 AND status IN ($3, $4, $5)
		ORDER BY due_date`,
		fundID, asOf, domain.ContributionDueStatusPending, domain.ContributionDueStatusPartial, domain.ContributionDueStatusLate,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectContributionDues(rows)
}

// ListByFundAndMonth returns every due for fundID in monthYear.
func (r *ContributionDueRepository) ListByFundAndMonth(fundID domain.ID, monthYear domain.MonthYear) ([]*domain.ContributionDue, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx, `SELECT `+contributionDueColumns+` FROM contribution_dues WHERE fund_id = $1 AND month_year = $2`,
		fundID, monthYear)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectContributionDues(rows)
}

// ListByUser returns every due userID owes within fundID, newest month first.
func (r *ContributionDueRepository) ListByUser(fundID, userID domain.ID) ([]*domain.ContributionDue, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx, `SELECT `+contributionDueColumns+` FROM contribution_dues WHERE fund_id = $1 AND user_id = $2 ORDER BY month_year DESC`,
		fundID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectContributionDues(rows)
}

type contributionDueRow interface {
	Scan(dest ...any) error
}

func scanContributionDue(row contributionDueRow) (*domain.ContributionDue, error) {
	var d domain.ContributionDue
	var amountDue, amountPaid pgtype.Numeric
	var paidDate, missedAt pgtype.Timestamptz

	err := row.Scan(&d.ID, &d.FundID, &d.UserID, &d.MonthYear, &amountDue, &amountPaid,
		&d.Status, &d.DueDate, &paidDate, &missedAt, &d.CreatedAt, &d.UpdatedAt, &d.Version)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrContributionDueNotFound
		}
		return nil, err
	}

	d.AmountDue = pgNumericToDecimal(amountDue)
	d.AmountPaid = pgNumericToDecimal(amountPaid)
	if paidDate.Valid {
		d.PaidDate = &paidDate.Time
	}
	if missedAt.Valid {
		d.MissedAt = &missedAt.Time
	}
	return &d, nil
}

func collectContributionDues(rows pgx.Rows) ([]*domain.ContributionDue, error) {
	var out []*domain.ContributionDue
	for rows.Next() {
		d, err := scanContributionDue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
