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

// ContributionHandler handles monthly contribution due generation and payment recording.
type ContributionHandler struct {
	contributionService *service.ContributionService
}

// NewContributionHandler creates a new ContributionHandler.
func NewContributionHandler(contributionService *service.ContributionService) *ContributionHandler {
	return &ContributionHandler{contributionService: contributionService}
}

// GenerateDuesRequest represents the generate dues request body.
type GenerateDuesRequest struct {
	MonthYear string `json:"monthYear"` // YYYY-MM
}

// GenerateDuesResponse represents the result of generating dues for a month.
type GenerateDuesResponse struct {
	Generated int `json:"generated"`
	Skipped   int `json:"skipped"`
}

// GenerateDues handles POST /api/v1/funds/:id/contribution-dues/generate
func (h *ContributionHandler) GenerateDues(c echo.Context) error {
	fundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid fund ID", nil)
	}

	var req GenerateDuesRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	monthYear, err := parseMonthYear(req.MonthYear)
	if err != nil {
		return NewValidationError(c, "Invalid month year", []ValidationError{
			{Field: "monthYear", Message: "Must be in YYYY-MM format"},
		})
	}

	result, err := h.contributionService.GenerateDues(fundID, monthYear)
	if err != nil {
		if errors.Is(err, domain.ErrFundNotFound) {
			return NewNotFoundError(c, "Fund not found")
		}
		if errors.Is(err, domain.ErrInvalidState) {
			return NewConflictError(c, "Fund is not active")
		}
		log.Error().Err(err).Str("fund_id", fundID.String()).Msg("Failed to generate contribution dues")
		return NewInternalError(c, "Failed to generate contribution dues")
	}

	return c.JSON(http.StatusOK, GenerateDuesResponse{Generated: result.Generated, Skipped: result.Skipped})
}

// RecordContributionPaymentRequest represents the record payment request body.
type RecordContributionPaymentRequest struct {
	Amount          string `json:"amount"`
	IdempotencyKey  string `json:"idempotencyKey"`
	ExpectedVersion int64  `json:"expectedVersion"`
}

// ContributionDueResponse represents a contribution due in API responses.
type ContributionDueResponse struct {
	ID         string `json:"id"`
	FundID     string `json:"fundId"`
	UserID     string `json:"userId"`
	MonthYear  string `json:"monthYear"`
	AmountDue  string `json:"amountDue"`
	AmountPaid string `json:"amountPaid"`
	Status     string `json:"status"`
	DueDate    string `json:"dueDate"`
	PaidDate   *string `json:"paidDate,omitempty"`
	Version    int64  `json:"version"`
}

// RecordPayment handles POST /api/v1/contribution-dues/:id/payments
func (h *ContributionHandler) RecordPayment(c echo.Context) error {
	dueID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid contribution due ID", nil)
	}
	principalID := middleware.GetPrincipalID(c)
	if principalID == domain.ZeroID {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req RecordContributionPaymentRequest
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

	input := service.RecordPaymentInput{
		DueID:           dueID,
		Amount:          amount,
		RecorderID:      principalID,
		IdempotencyKey:  req.IdempotencyKey,
		ExpectedVersion: req.ExpectedVersion,
	}

	due, err := h.contributionService.RecordPayment(input)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrContributionDueNotFound):
			return NewNotFoundError(c, "Contribution due not found")
		case errors.Is(err, domain.ErrAlreadyPaid):
			return NewConflictError(c, "Contribution due is already paid")
		case errors.Is(err, domain.ErrConflict):
			return NewConflictError(c, "Version conflict, reload and retry")
		case errors.Is(err, domain.ErrValidation):
			return NewValidationError(c, "Validation failed", nil)
		default:
			log.Error().Err(err).Str("due_id", dueID.String()).Msg("Failed to record contribution payment")
			return NewInternalError(c, "Failed to record contribution payment")
		}
	}

	log.Info().Str("due_id", due.ID.String()).Str("fund_id", due.FundID.String()).Msg("Contribution payment recorded")
	return c.JSON(http.StatusOK, toContributionDueResponse(due))
}

func parseMonthYear(s string) (domain.MonthYear, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, err
	}
	return domain.NewMonthYear(t.Year(), int(t.Month())), nil
}

func toContributionDueResponse(d *domain.ContributionDue) ContributionDueResponse {
	resp := ContributionDueResponse{
		ID:         d.ID.String(),
		FundID:     d.FundID.String(),
		UserID:     d.UserID.String(),
		MonthYear:  d.MonthYear.String(),
		AmountDue:  d.AmountDue.StringFixed(2),
		AmountPaid: d.AmountPaid.StringFixed(2),
		Status:     string(d.Status),
		DueDate:    d.DueDate.Format("2006-01-02"),
		Version:    d.Version,
	}
	if d.PaidDate != nil {
		paidDate := d.PaidDate.Format(time.RFC3339)
		resp.PaidDate = &paidDate
	}
	return resp
}
