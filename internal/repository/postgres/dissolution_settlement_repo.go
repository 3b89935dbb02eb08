package postgres

import (
	"context"
	"time"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DissolutionSettlementRepository implements domain.DissolutionSettlementRepository
// using PostgreSQL. A settlement and its line items are persisted together in
// a single transaction: Upsert replaces the whole settlement row plus every
// line item, mirroring DissolutionService.Recalculate's all-or-nothing
// recomputation semantics.
type DissolutionSettlementRepository struct {
	pool *pgxpool.Pool
}

// NewDissolutionSettlementRepository creates a new DissolutionSettlementRepository.
func NewDissolutionSettlementRepository(pool *pgxpool.Pool) *DissolutionSettlementRepository {
	return &DissolutionSettlementRepository{pool: pool}
}

// GetByFund retrieves fundID's settlement with its line items, if any.
func (r *DissolutionSettlementRepository) GetByFund(fundID domain.ID) (*domain.DissolutionSettlement, error) {
	ctx := context.Background()
	var s domain.DissolutionSettlement
	var totalContributions, totalInterestPool pgtype.Numeric
	var settlementDate pgtype.Timestamptz

	err := r.pool.QueryRow(ctx, `
		SELECT id, fund_id, status, total_contributions_collected, total_interest_pool,
			settlement_date, created_at, updated_at
		FROM dissolution_settlements WHERE fund_id = $1`,
		fundID,
	).Scan(&s.ID, &s.FundID, &s.Status, &totalContributions, &totalInterestPool,
		&settlementDate, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrSettlementNotFound
		}
		return nil, err
	}
	s.TotalContributionsCollected = pgNumericToDecimal(totalContributions)
	s.TotalInterestPool = pgNumericToDecimal(totalInterestPool)
	if settlementDate.Valid {
		s.SettlementDate = &settlementDate.Time
	}

	items, err := r.listLineItems(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	s.LineItems = items
	return &s, nil
}

// Upsert replaces fundID's settlement and its line items within a transaction.
func (r *DissolutionSettlementRepository) Upsert(s *domain.DissolutionSettlement) (*domain.DissolutionSettlement, error) {
	ctx := context.Background()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	totalContributions, err := decimalToPgNumeric(s.TotalContributionsCollected)
	if err != nil {
		return nil, err
	}
	totalInterestPool, err := decimalToPgNumeric(s.TotalInterestPool)
	if err != nil {
		return nil, err
	}
	settlementDate := pgtype.Timestamptz{}
	if s.SettlementDate != nil {
		settlementDate.Time = *s.SettlementDate
		settlementDate.Valid = true
	}

	var settlementID domain.ID
	var createdAt, updatedAt time.Time
	err = tx.QueryRow(ctx, `
		INSERT INTO dissolution_settlements (fund_id, status, total_contributions_collected, total_interest_pool, settlement_date)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (fund_id) DO UPDATE SET
			status = excluded.status,
			total_contributions_collected = excluded.total_contributions_collected,
			total_interest_pool = excluded.total_interest_pool,
			settlement_date = excluded.settlement_date,
			updated_at = now()
		RETURNING id, created_at, updated_at`,
		s.FundID, s.Status, totalContributions, totalInterestPool, settlementDate,
	).Scan(&settlementID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM dissolution_line_items WHERE settlement_id = $1`, settlementID); err != nil {
		return nil, err
	}
	for _, li := range s.LineItems {
		if err := r.insertLineItem(ctx, tx, settlementID, li); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.ID = settlementID
	s.CreatedAt = createdAt
	s.UpdatedAt = updatedAt
	return s, nil
}

func (r *DissolutionSettlementRepository) insertLineItem(ctx context.Context, tx pgx.Tx, settlementID domain.ID, li *domain.DissolutionLineItem) error {
	totalPaid, err := decimalToPgNumeric(li.TotalPaidContributions)
	if err != nil {
		return err
	}
	interestShare, err := decimalToPgNumeric(li.InterestShare)
	if err != nil {
		return err
	}
	grossPayout, err := decimalToPgNumeric(li.GrossPayout)
	if err != nil {
		return err
	}
	outstandingLoan, err := decimalToPgNumeric(li.OutstandingLoanPrincipal)
	if err != nil {
		return err
	}
	unpaidInterest, err := decimalToPgNumeric(li.UnpaidInterest)
	if err != nil {
		return err
	}
	unpaidDues, err := decimalToPgNumeric(li.UnpaidDues)
	if err != nil {
		return err
	}
	netPayout, err := decimalToPgNumeric(li.NetPayout)
	if err != nil {
		return err
	}

	return tx.QueryRow(ctx, `
		INSERT INTO dissolution_line_items (
			settlement_id, user_id, total_paid_contributions, interest_share, gross_payout,
			outstanding_loan_principal, unpaid_interest, unpaid_dues, net_payout
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id`,
		settlementID, li.UserID, totalPaid, interestShare, grossPayout,
		outstandingLoan, unpaidInterest, unpaidDues, netPayout,
	).Scan(&li.ID)
}

func (r *DissolutionSettlementRepository) listLineItems(ctx context.Context, settlementID domain.ID) ([]*domain.DissolutionLineItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, settlement_id, user_id, total_paid_contributions, interest_share, gross_payout,
			outstanding_loan_principal, unpaid_interest, unpaid_dues, net_payout
		FROM dissolution_line_items WHERE settlement_id = $1 ORDER BY user_id`,
		settlementID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.DissolutionLineItem
	for rows.Next() {
		var li domain.DissolutionLineItem
		var totalPaid, interestShare, grossPayout, outstandingLoan, unpaidInterest, unpaidDues, netPayout pgtype.Numeric
		if err := rows.Scan(&li.ID, &li.SettlementID, &li.UserID, &totalPaid, &interestShare, &grossPayout,
			&outstandingLoan, &unpaidInterest, &unpaidDues, &netPayout); err != nil {
			return nil, err
		}
		li.TotalPaidContributions = pgNumericToDecimal(totalPaid)
		li.InterestShare = pgNumericToDecimal(interestShare)
		li.GrossPayout = pgNumericToDecimal(grossPayout)
		li.OutstandingLoanPrincipal = pgNumericToDecimal(outstandingLoan)
		li.UnpaidInterest = pgNumericToDecimal(unpaidInterest)
		li.UnpaidDues = pgNumericToDecimal(unpaidDues)
		li.NetPayout = pgNumericToDecimal(netPayout)
		out = append(out, &li)
	}
	return out, rows.Err()
}
