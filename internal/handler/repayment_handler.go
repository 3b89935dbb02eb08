package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/dafibh/fortuna/fortuna-backend/internal/middleware"
	"github.com/dafibh/fortuna/fortuna-backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// RepaymentHandler handles loan repayment entry generation and payment recording.
type RepaymentHandler struct {
	repaymentService *service.RepaymentService
}

// NewRepaymentHandler creates a new RepaymentHandler.
func NewRepaymentHandler(repaymentService *service.RepaymentService) *RepaymentHandler {
	return &RepaymentHandler{repaymentService: repaymentService}
}

// GenerateEntryRequest represents the generate repayment entry request body.
type GenerateEntryRequest struct {
	MonthYear string `json:"monthYear"` // YYYY-MM
}

// RepaymentEntryResponse represents a repayment entry in API responses.
type RepaymentEntryResponse struct {
	ID           string  `json:"id"`
	LoanID       string  `json:"loanId"`
	MonthYear    string  `json:"monthYear"`
	InterestDue  string  `json:"interestDue"`
	PrincipalDue string  `json:"principalDue"`
	PenaltyDue   string  `json:"penaltyDue"`
	TotalDue     string  `json:"totalDue"`
	AmountPaid   string  `json:"amountPaid"`
	Status       string  `json:"status"`
	DueDate      string  `json:"dueDate"`
	PaidDate     *string `json:"paidDate,omitempty"`
	Version      int64   `json:"version"`
}

// GenerateEntry handles POST /api/v1/loans/:id/repayment-entries/generate
func (h *RepaymentHandler) GenerateEntry(c echo.Context) error {
	loanID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", nil)
	}

	var req GenerateEntryRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	monthYear, err := parseMonthYear(req.MonthYear)
	if err != nil {
		return NewValidationError(c, "Invalid month year", []ValidationError{
			{Field: "monthYear", Message: "Must be in YYYY-MM format"},
		})
	}

	entry, err := h.repaymentService.GenerateEntry(loanID, monthYear)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrLoanNotFound):
			return NewNotFoundError(c, "Loan not found")
		case errors.Is(err, domain.ErrInvalidState):
			return NewConflictError(c, "Loan is not active")
		default:
			log.Error().Err(err).Str("loan_id", loanID.String()).Msg("Failed to generate repayment entry")
			return NewInternalError(c, "Failed to generate repayment entry")
		}
	}

	return c.JSON(http.StatusOK, toRepaymentEntryResponse(entry))
}

// RecordRepaymentRequest represents the record repayment payment request body.
type RecordRepaymentRequest struct {
	Amount          string `json:"amount"`
	IdempotencyKey  string `json:"idempotencyKey"`
	ExpectedVersion int64  `json:"expectedVersion"`
}

// RecordRepaymentResponse wraps the updated entry and the interest/principal allocation.
type RecordRepaymentResponse struct {
	Entry      RepaymentEntryResponse `json:"entry"`
	Allocation AllocationResponse     `json:"allocation"`
}

// AllocationResponse represents a payment's interest-first allocation.
type AllocationResponse struct {
	InterestPaid             string `json:"interestPaid"`
	PrincipalPaid            string `json:"principalPaid"`
	ExcessAppliedToPrincipal string `json:"excessAppliedToPrincipal"`
	ExcessNotApplied         string `json:"excessNotApplied"`
	NewLoanOutstanding       string `json:"newLoanOutstanding"`
}

// RecordPayment handles POST /api/v1/repayment-entries/:id/payments
func (h *RepaymentHandler) RecordPayment(c echo.Context) error {
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid repayment entry ID", nil)
	}
	principalID := middleware.GetPrincipalID(c)
	if principalID == domain.ZeroID {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req RecordRepaymentRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	if req.IdempotencyKey == "" {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "idempotencyKey", Message: "Idempotency key is required"},
		})
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return NewValidationError(c, "Invalid amount", []ValidationError{
			{Field: "amount", Message: "Must be a valid decimal number"},
		})
	}

	input := service.RecordRepaymentInput{
		EntryID:         entryID,
		Amount:          amount,
		RecorderID:      principalID,
		IdempotencyKey:  req.IdempotencyKey,
		ExpectedVersion: req.ExpectedVersion,
	}

	result, err := h.repaymentService.RecordPayment(input)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRepaymentEntryNotFound):
			return NewNotFoundError(c, "Repayment entry not found")
		case errors.Is(err, domain.ErrAlreadyPaid):
			return NewConflictError(c, "Repayment entry is already paid")
		case errors.Is(err, domain.ErrConflict):
			return NewConflictError(c, "Version conflict, reload and retry")
		case errors.Is(err, domain.ErrValidation):
			return NewValidationError(c, "Validation failed", nil)
		default:
			log.Error().Err(err).Str("entry_id", entryID.String()).Msg("Failed to record repayment")
			return NewInternalError(c, "Failed to record repayment")
		}
	}

	log.Info().Str("entry_id", result.Entry.ID.String()).Str("loan_id", result.Entry.LoanID.String()).Msg("Repayment recorded")
	return c.JSON(http.StatusOK, RecordRepaymentResponse{
		Entry: toRepaymentEntryResponse(result.Entry),
		Allocation: AllocationResponse{
			InterestPaid:             result.Allocation.InterestPaid.StringFixed(2),
			PrincipalPaid:            result.Allocation.PrincipalPaid.StringFixed(2),
			ExcessAppliedToPrincipal: result.Allocation.ExcessAppliedToPrincipal.StringFixed(2),
			ExcessNotApplied:         result.Allocation.ExcessNotApplied.StringFixed(2),
			NewLoanOutstanding:       result.Allocation.NewLoanOutstanding.StringFixed(2),
		},
	})
}

// ListByLoan handles GET /api/v1/loans/:id/repayment-entries
func (h *RepaymentHandler) ListByLoan(c echo.Context) error {
	loanID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", nil)
	}

	entries, err := h.repaymentService.ListByLoan(loanID)
	if err != nil {
		log.Error().Err(err).Str("loan_id", loanID.String()).Msg("Failed to list repayment entries")
		return NewInternalError(c, "Failed to list repayment entries")
	}

	response := make([]RepaymentEntryResponse, len(entries))
	for i, entry := range entries {
		response[i] = toRepaymentEntryResponse(entry)
	}
	return c.JSON(http.StatusOK, response)
}

func toRepaymentEntryResponse(e *domain.RepaymentEntry) RepaymentEntryResponse {
	resp := RepaymentEntryResponse{
		ID:           e.ID.String(),
		LoanID:       e.LoanID.String(),
		MonthYear:    e.MonthYear.String(),
		InterestDue:  e.InterestDue.StringFixed(2),
		PrincipalDue: e.PrincipalDue.StringFixed(2),
		PenaltyDue:   e.PenaltyDue.StringFixed(2),
		TotalDue:     e.TotalDue.StringFixed(2),
		AmountPaid:   e.AmountPaid.StringFixed(2),
		Status:       string(e.Status),
		DueDate:      e.DueDate.Format("2006-01-02"),
		Version:      e.Version,
	}
	if e.PaidDate != nil {
		paidDate := e.PaidDate.Format(time.RFC3339)
		resp.PaidDate = &paidDate
	}
	return resp
}
