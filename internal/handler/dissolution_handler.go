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
)

// DissolutionHandler handles fund dissolution settlement HTTP requests.
type DissolutionHandler struct {
	dissolutionService *service.DissolutionService
}

// NewDissolutionHandler creates a new DissolutionHandler.
func NewDissolutionHandler(dissolutionService *service.DissolutionService) *DissolutionHandler {
	return &DissolutionHandler{dissolutionService: dissolutionService}
}

// DissolutionLineItemResponse represents one member's settlement line item.
type DissolutionLineItemResponse struct {
	ID                       string `json:"id"`
	UserID                   string `json:"userId"`
	TotalPaidContributions   string `json:"totalPaidContributions"`
	InterestShare            string `json:"interestShare"`
	GrossPayout              string `json:"grossPayout"`
	OutstandingLoanPrincipal string `json:"outstandingLoanPrincipal"`
	UnpaidInterest           string `json:"unpaidInterest"`
	UnpaidDues               string `json:"unpaidDues"`
	NetPayout                string `json:"netPayout"`
}

// DissolutionSettlementResponse represents a dissolution settlement.
type DissolutionSettlementResponse struct {
	ID                          string                        `json:"id"`
	FundID                      string                        `json:"fundId"`
	Status                      string                        `json:"status"`
	TotalContributionsCollected string                        `json:"totalContributionsCollected"`
	TotalInterestPool           string                        `json:"totalInterestPool"`
	SettlementDate              *string                       `json:"settlementDate,omitempty"`
	LineItems                   []DissolutionLineItemResponse `json:"lineItems"`
}

// Recalculate handles POST /api/v1/funds/:id/dissolution-settlement/recalculate
func (h *DissolutionHandler) Recalculate(c echo.Context) error {
	fundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid fund ID", nil)
	}

	settlement, err := h.dissolutionService.Recalculate(fundID)
	if err != nil {
		return h.mapDissolutionError(c, err, fundID, "recalculate dissolution settlement")
	}

	return c.JSON(http.StatusOK, toDissolutionSettlementResponse(settlement))
}

// ConfirmDissolutionRequest represents the confirm dissolution request body.
type ConfirmDissolutionRequest struct {
	ExpectedFundVersion int64 `json:"expectedFundVersion"`
}

// Confirm handles POST /api/v1/funds/:id/dissolution-settlement/confirm
func (h *DissolutionHandler) Confirm(c echo.Context) error {
	fundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid fund ID", nil)
	}
	principalID := middleware.GetPrincipalID(c)
	if principalID == domain.ZeroID {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req ConfirmDissolutionRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	settlement, err := h.dissolutionService.Confirm(fundID, principalID, req.ExpectedFundVersion)
	if err != nil {
		return h.mapDissolutionError(c, err, fundID, "confirm dissolution settlement")
	}

	log.Info().Str("fund_id", fundID.String()).Str("settlement_id", settlement.ID.String()).Msg("Dissolution settlement confirmed")
	return c.JSON(http.StatusOK, toDissolutionSettlementResponse(settlement))
}

// GetByFund handles GET /api/v1/funds/:id/dissolution-settlement
func (h *DissolutionHandler) GetByFund(c echo.Context) error {
	fundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid fund ID", nil)
	}

	settlement, err := h.dissolutionService.GetByFund(fundID)
	if err != nil {
		return h.mapDissolutionError(c, err, fundID, "get dissolution settlement")
	}

	return c.JSON(http.StatusOK, toDissolutionSettlementResponse(settlement))
}

func (h *DissolutionHandler) mapDissolutionError(c echo.Context, err error, fundID domain.ID, action string) error {
	switch {
	case errors.Is(err, domain.ErrFundNotFound):
		return NewNotFoundError(c, "Fund not found")
	case errors.Is(err, domain.ErrSettlementNotFound):
		return NewNotFoundError(c, "No dissolution settlement exists for this fund")
	case errors.Is(err, domain.ErrInvalidState):
		return NewConflictError(c, "Settlement has unresolved blockers or the fund is not in dissolution")
	case errors.Is(err, domain.ErrConflict):
		return NewConflictError(c, "Version conflict, reload and retry")
	default:
		log.Error().Err(err).Str("fund_id", fundID.String()).Msg("Failed to " + action)
		return NewInternalError(c, "Failed to "+action)
	}
}

func toDissolutionSettlementResponse(s *domain.DissolutionSettlement) DissolutionSettlementResponse {
	resp := DissolutionSettlementResponse{
		ID:                          s.ID.String(),
		FundID:                      s.FundID.String(),
		Status:                      string(s.Status),
		TotalContributionsCollected: s.TotalContributionsCollected.StringFixed(2),
		TotalInterestPool:           s.TotalInterestPool.StringFixed(2),
		LineItems:                   make([]DissolutionLineItemResponse, len(s.LineItems)),
	}
	if s.SettlementDate != nil {
		sd := s.SettlementDate.Format(time.RFC3339)
		resp.SettlementDate = &sd
	}
	for i, li := range s.LineItems {
		resp.LineItems[i] = DissolutionLineItemResponse{
			ID:                       li.ID.String(),
			UserID:                   li.UserID.String(),
			TotalPaidContributions:   li.TotalPaidContributions.StringFixed(2),
			InterestShare:            li.InterestShare.StringFixed(2),
			GrossPayout:              li.GrossPayout.StringFixed(2),
			OutstandingLoanPrincipal: li.OutstandingLoanPrincipal.StringFixed(2),
			UnpaidInterest:           li.UnpaidInterest.StringFixed(2),
			UnpaidDues:               li.UnpaidDues.StringFixed(2),
			NetPayout:                li.NetPayout.StringFixed(2),
		}
	}
	return resp
}
