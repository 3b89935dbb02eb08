package service

import (
	"time"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/dafibh/fortuna/fortuna-backend/internal/events"
	"github.com/dafibh/fortuna/fortuna-backend/internal/orchestrator"
)

// ContributionService implements component C3: monthly due generation,
// idempotent payment recording, the append-only ledger, and overdue
// detection.
type ContributionService struct {
	orch     *orchestrator.Orchestrator
	fundRepo domain.FundRepository
	planRepo domain.MemberPlanRepository
	dueRepo  domain.ContributionDueRepository
	txnRepo  domain.TransactionRepository
}

// NewContributionService creates a new ContributionService.
func NewContributionService(
	orch *orchestrator.Orchestrator,
	fundRepo domain.FundRepository,
	planRepo domain.MemberPlanRepository,
	dueRepo domain.ContributionDueRepository,
	txnRepo domain.TransactionRepository,
) *ContributionService {
	return &ContributionService{orch: orch, fundRepo: fundRepo, planRepo: planRepo, dueRepo: dueRepo, txnRepo: txnRepo}
}

// GenerateDuesResult reports how many dues were newly created versus how
// many already existed for this (fundId, monthYear).
type GenerateDuesResult struct {
	Generated int
	Skipped   int
}

// GenerateDues creates one ContributionDue per active member plan for
// (fundID, monthYear). Idempotent on (fundId, userId, monthYear): re-running
// skips existing rows. Refuses to generate for a fund that has left Active
// (spec.md §4.2 — dissolving funds block new due generation).
func (s *ContributionService) GenerateDues(fundID domain.ID, monthYear domain.MonthYear) (*GenerateDuesResult, error) {
	f, err := s.fundRepo.GetByID(fundID)
	if err != nil {
		return nil, err
	}
	if f.State != domain.FundStateActive {
		return nil, domain.ErrInvalidState
	}
	if err := monthYear.Validate(); err != nil {
		return nil, err
	}

	plans, err := s.planRepo.ListActiveByFund(fundID)
	if err != nil {
		return nil, err
	}

	result := &GenerateDuesResult{}
	now := time.Now().UTC()
	dueDate := monthYear.DayOfMonth(int(f.ContributionDayOfMonth))

	for _, plan := range plans {
		if _, err := s.dueRepo.Get(fundID, plan.UserID, monthYear); err == nil {
			result.Skipped++
			continue
		} else if err != domain.ErrContributionDueNotFound {
			return nil, err
		}

		due := &domain.ContributionDue{
			ID:        domain.NewID(),
			FundID:    fundID,
			UserID:    plan.UserID,
			MonthYear: monthYear,
			AmountDue: plan.MonthlyContributionAmount,
			AmountPaid: domain.ZeroMoney,
			Status:    domain.ContributionDueStatusPending,
			DueDate:   dueDate,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := s.dueRepo.Create(due); err != nil {
			if err == domain.ErrAlreadyExists {
				result.Skipped++
				continue
			}
			return nil, err
		}
		result.Generated++
	}

	s.orch.Emit(events.New(events.TypeContributionDueGenerated, fundID, map[string]interface{}{
		"monthYear":   monthYear.String(),
		"memberCount": len(plans),
		"generated":   result.Generated,
	}))
	return result, nil
}

// RecordPaymentInput carries the inputs to RecordPayment.
type RecordPaymentInput struct {
	DueID           domain.ID
	Amount          domain.Money
	RecorderID      domain.ID
	IdempotencyKey  string
	ExpectedVersion int64
}

// RecordPayment records a payment against a ContributionDue, following
// spec.md §4.3's six-step flow: idempotency check, version check, apply
// payment, ledger append, persist, emit. Each write is its own repository
// call; no transaction encloses them.
func (s *ContributionService) RecordPayment(input RecordPaymentInput) (*domain.ContributionDue, error) {
	if input.Amount.LessThanOrEqual(domain.ZeroMoney) {
		return nil, domain.NewValidationError("amount", "must be positive")
	}

	due, err := s.dueRepo.GetByID(input.DueID)
	if err != nil {
		return nil, err
	}

	requestHash := orchestrator.HashRequest(input)
	if resultRef, found, err := s.orch.CheckIdempotency(due.FundID, "contribution.record_payment", input.IdempotencyKey, requestHash); err != nil {
		return nil, err
	} else if found {
		cached, err := s.dueRepo.GetByID(due.ID)
		if err != nil {
			return nil, err
		}
		_ = resultRef
		return cached, nil
	}

	if due.Status == domain.ContributionDueStatusPaid {
		return nil, domain.ErrAlreadyPaid
	}

	if err := due.ApplyPayment(input.Amount, time.Now().UTC()); err != nil {
		return nil, err
	}

	updated, err := s.dueRepo.Update(due, input.ExpectedVersion)
	if err != nil {
		return nil, err
	}

	if _, err := s.txnRepo.Append(&domain.Transaction{
		ID:                  domain.NewID(),
		FundID:              updated.FundID,
		UserID:              &updated.UserID,
		Type:                domain.TransactionTypeContribution,
		Amount:              input.Amount,
		CreatedAt:           time.Now().UTC(),
		IdempotencyKey:      input.IdempotencyKey,
		ReferenceEntityType: refType(domain.ReferenceEntityContributionDue),
		ReferenceEntityID:   &updated.ID,
	}); err != nil {
		return nil, err
	}

	if err := s.orch.RecordIdempotency(updated.FundID, "contribution.record_payment", input.IdempotencyKey, requestHash, updated.ID.String()); err != nil {
		return nil, err
	}

	s.orch.Emit(events.New(events.TypeContributionPaid, updated.FundID, map[string]interface{}{
		"dueId":  updated.ID,
		"userId": updated.UserID,
		"amount": input.Amount,
	}))
	return updated, nil
}

// DetectOverdue is the C3 overdue-detection job body, run periodically per
// fund. Transitions Pending/Partial dues whose dueDate+gracePeriodDays has
// passed to Late, and further to Missed once the fund's optional second
// threshold (MissedAfterDays) elapses.
func (s *ContributionService) DetectOverdue(fundID domain.ID, asOf time.Time) (int, error) {
	f, err := s.fundRepo.GetByID(fundID)
	if err != nil {
		return 0, err
	}

	candidates, err := s.dueRepo.ListOverdueCandidates(fundID, asOf)
	if err != nil {
		return 0, err
	}

	transitioned := 0
	for _, due := range candidates {
		lateThreshold := due.DueDate.AddDate(0, 0, int(f.GracePeriodDays))
		if asOf.Before(lateThreshold) {
			continue
		}
		prevStatus := due.Status
		due.MarkLate()

		if f.MissedAfterDays != nil {
			missedThreshold := lateThreshold.AddDate(0, 0, int(*f.MissedAfterDays))
			if !asOf.Before(missedThreshold) {
				due.MarkMissed(asOf)
			}
		}

		if due.Status == prevStatus {
			continue
		}
		due.UpdatedAt = asOf
		if _, err := s.dueRepo.Update(due, due.Version); err != nil {
			if err == domain.ErrConflict {
				continue
			}
			return transitioned, err
		}
		transitioned++
		s.orch.Emit(events.New(events.TypeContributionOverdue, fundID, map[string]interface{}{
			"dueId":  due.ID,
			"userId": due.UserID,
			"status": due.Status,
		}))
	}
	return transitioned, nil
}

func refType(t domain.ReferenceEntityType) *domain.ReferenceEntityType {
	return &t
}
