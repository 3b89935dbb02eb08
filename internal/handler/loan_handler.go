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

// LoanHandler handles loan request, approval, and query HTTP requests.
type LoanHandler struct {
	loanService *service.LoanService
}

// NewLoanHandler creates a new LoanHandler.
func NewLoanHandler(loanService *service.LoanService) *LoanHandler {
	return &LoanHandler{loanService: loanService}
}

// RequestLoanRequest represents the request loan request body.
type RequestLoanRequest struct {
	FundID              string  `json:"fundId"`
	PrincipalAmount     string  `json:"principalAmount"`
	RequestedStartMonth string  `json:"requestedStartMonth"` // YYYY-MM
	Purpose             *string `json:"purpose,omitempty"`
}

// LoanResponse represents a loan in API responses.
type LoanResponse struct {
	ID                   string  `json:"id"`
	FundID               string  `json:"fundId"`
	BorrowerID           string  `json:"borrowerId"`
	PrincipalAmount      string  `json:"principalAmount"`
	RequestedStartMonth  string  `json:"requestedStartMonth"`
	Purpose              *string `json:"purpose,omitempty"`
	Status               string  `json:"status"`
	MonthlyInterestRate  string  `json:"monthlyInterestRate"`
	ScheduledInstallment string  `json:"scheduledInstallment"`
	MinimumPrincipal     string  `json:"minimumPrincipal"`
	OutstandingPrincipal string  `json:"outstandingPrincipal"`
	ApprovedBy           *string `json:"approvedBy,omitempty"`
	RejectionReason      *string `json:"rejectionReason,omitempty"`
	ApprovalDate         *string `json:"approvalDate,omitempty"`
	DisbursementDate     *string `json:"disbursementDate,omitempty"`
	ClosedDate           *string `json:"closedDate,omitempty"`
	Version              int64   `json:"version"`
	CreatedAt            string  `json:"createdAt"`
	UpdatedAt            string  `json:"updatedAt"`
}

// RequestLoan handles POST /api/v1/loans
func (h *LoanHandler) RequestLoan(c echo.Context) error {
	principalID := middleware.GetPrincipalID(c)
	if principalID == domain.ZeroID {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req RequestLoanRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	fundID, err := uuid.Parse(req.FundID)
	if err != nil {
		return NewValidationError(c, "Invalid fund ID", []ValidationError{{Field: "fundId", Message: "Must be a valid UUID"}})
	}
	principalAmount, err := decimal.NewFromString(req.PrincipalAmount)
	if err != nil {
		return NewValidationError(c, "Invalid principal amount", []ValidationError{
			{Field: "principalAmount", Message: "Must be a valid decimal number"},
		})
	}
	startMonth, err := parseMonthYear(req.RequestedStartMonth)
	if err != nil {
		return NewValidationError(c, "Invalid requested start month", []ValidationError{
			{Field: "requestedStartMonth", Message: "Must be in YYYY-MM format"},
		})
	}

	input := service.RequestLoanInput{
		FundID:              fundID,
		BorrowerID:          principalID,
		PrincipalAmount:     principalAmount,
		RequestedStartMonth: startMonth,
		Purpose:             req.Purpose,
	}

	loan, err := h.loanService.RequestLoan(input)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMaxLoanExceeded):
			return NewValidationError(c, "Principal exceeds the per-member loan cap", []ValidationError{
				{Field: "principalAmount", Message: "Exceeds the fund's maximum loan per member"},
			})
		case errors.Is(err, domain.ErrMaxConcurrentLoans):
			return NewConflictError(c, "Borrower already holds the maximum concurrent loans")
		case errors.Is(err, domain.ErrInvalidState):
			return NewConflictError(c, "Fund is not accepting loan requests")
		case errors.Is(err, domain.ErrValidation):
			return NewValidationError(c, "Validation failed", nil)
		default:
			log.Error().Err(err).Str("fund_id", fundID.String()).Msg("Failed to request loan")
			return NewInternalError(c, "Failed to request loan")
		}
	}

	log.Info().Str("loan_id", loan.ID.String()).Str("fund_id", fundID.String()).Msg("Loan requested")
	return c.JSON(http.StatusCreated, toLoanResponse(loan))
}

// ApproveLoanRequest represents the approve loan request body.
type ApproveLoanRequest struct {
	ScheduledInstallment string `json:"scheduledInstallment"`
	ExpectedVersion      int64  `json:"expectedVersion"`
}

// Approve handles POST /api/v1/loans/:id/approve
func (h *LoanHandler) Approve(c echo.Context) error {
	loanID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", nil)
	}
	principalID := middleware.GetPrincipalID(c)
	if principalID == domain.ZeroID {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req ApproveLoanRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	scheduledInstallment, err := decimal.NewFromString(req.ScheduledInstallment)
	if err != nil {
		return NewValidationError(c, "Invalid scheduled installment", []ValidationError{
			{Field: "scheduledInstallment", Message: "Must be a valid decimal number"},
		})
	}

	loan, err := h.loanService.Approve(loanID, principalID, scheduledInstallment, req.ExpectedVersion)
	if err != nil {
		return h.mapLoanError(c, err, loanID, "approve loan")
	}

	log.Info().Str("loan_id", loan.ID.String()).Str("approved_by", principalID.String()).Msg("Loan approved and disbursed")
	return c.JSON(http.StatusOK, toLoanResponse(loan))
}

// RejectLoanRequest represents the reject loan request body.
type RejectLoanRequest struct {
	Reason          string `json:"reason"`
	ExpectedVersion int64  `json:"expectedVersion"`
}

// Reject handles POST /api/v1/loans/:id/reject
func (h *LoanHandler) Reject(c echo.Context) error {
	loanID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", nil)
	}
	principalID := middleware.GetPrincipalID(c)
	if principalID == domain.ZeroID {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req RejectLoanRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	loan, err := h.loanService.Reject(loanID, principalID, req.Reason, req.ExpectedVersion)
	if err != nil {
		return h.mapLoanError(c, err, loanID, "reject loan")
	}
	return c.JSON(http.StatusOK, toLoanResponse(loan))
}

// GetLoan handles GET /api/v1/loans/:id
func (h *LoanHandler) GetLoan(c echo.Context) error {
	loanID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", nil)
	}

	loan, err := h.loanService.GetLoanByID(loanID)
	if err != nil {
		return h.mapLoanError(c, err, loanID, "get loan")
	}
	return c.JSON(http.StatusOK, toLoanResponse(loan))
}

// ListActiveByFund handles GET /api/v1/funds/:id/loans/active
func (h *LoanHandler) ListActiveByFund(c echo.Context) error {
	fundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid fund ID", nil)
	}

	loans, err := h.loanService.ListActiveByFund(fundID)
	if err != nil {
		log.Error().Err(err).Str("fund_id", fundID.String()).Msg("Failed to list active loans")
		return NewInternalError(c, "Failed to list active loans")
	}

	response := make([]LoanResponse, len(loans))
	for i, loan := range loans {
		response[i] = toLoanResponse(loan)
	}
	return c.JSON(http.StatusOK, response)
}

// ListByBorrower handles GET /api/v1/funds/:id/loans?borrowerId=...
func (h *LoanHandler) ListByBorrower(c echo.Context) error {
	fundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid fund ID", nil)
	}
	borrowerID, err := uuid.Parse(c.QueryParam("borrowerId"))
	if err != nil {
		return NewValidationError(c, "Invalid borrower ID", []ValidationError{{Field: "borrowerId", Message: "Must be a valid UUID"}})
	}

	loans, err := h.loanService.ListByBorrower(fundID, borrowerID)
	if err != nil {
		log.Error().Err(err).Str("fund_id", fundID.String()).Msg("Failed to list loans by borrower")
		return NewInternalError(c, "Failed to list loans by borrower")
	}

	response := make([]LoanResponse, len(loans))
	for i, loan := range loans {
		response[i] = toLoanResponse(loan)
	}
	return c.JSON(http.StatusOK, response)
}

func (h *LoanHandler) mapLoanError(c echo.Context, err error, loanID domain.ID, action string) error {
	switch {
	case errors.Is(err, domain.ErrLoanNotFound):
		return NewNotFoundError(c, "Loan not found")
	case errors.Is(err, domain.ErrInvalidState):
		return NewConflictError(c, "Operation not legal from the loan's current state")
	case errors.Is(err, domain.ErrConflict):
		return NewConflictError(c, "Version conflict, reload and retry")
	case errors.Is(err, domain.ErrValidation):
		return NewValidationError(c, "Validation failed", nil)
	default:
		var ve *domain.ValidationErrors
		if errors.As(err, &ve) && len(ve.Errors) > 0 {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: ve.Errors[0].Field, Message: ve.Errors[0].Message},
			})
		}
		log.Error().Err(err).Str("loan_id", loanID.String()).Msg("Failed to " + action)
		return NewInternalError(c, "Failed to "+action)
	}
}

func toLoanResponse(loan *domain.Loan) LoanResponse {
	resp := LoanResponse{
		ID:                   loan.ID.String(),
		FundID:               loan.FundID.String(),
		BorrowerID:           loan.BorrowerID.String(),
		PrincipalAmount:      loan.PrincipalAmount.StringFixed(2),
		RequestedStartMonth:  loan.RequestedStartMonth.String(),
		Purpose:              loan.Purpose,
		Status:               string(loan.Status),
		MonthlyInterestRate:  loan.MonthlyInterestRate.StringFixed(4),
		ScheduledInstallment: loan.ScheduledInstallment.StringFixed(2),
		MinimumPrincipal:     loan.MinimumPrincipal.StringFixed(2),
		OutstandingPrincipal: loan.OutstandingPrincipal.StringFixed(2),
		RejectionReason:      loan.RejectionReason,
		Version:              loan.Version,
		CreatedAt:            loan.CreatedAt.Format(time.RFC3339),
		UpdatedAt:            loan.UpdatedAt.Format(time.RFC3339),
	}
	if loan.ApprovedBy != nil {
		s := loan.ApprovedBy.String()
		resp.ApprovedBy = &s
	}
	if loan.ApprovalDate != nil {
		s := loan.ApprovalDate.Format(time.RFC3339)
		resp.ApprovalDate = &s
	}
	if loan.DisbursementDate != nil {
		s := loan.DisbursementDate.Format(time.RFC3339)
		resp.DisbursementDate = &s
	}
	if loan.ClosedDate != nil {
		s := loan.ClosedDate.Format(time.RFC3339)
		resp.ClosedDate = &s
	}
	return resp
}
