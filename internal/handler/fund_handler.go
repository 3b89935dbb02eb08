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

// FundHandler handles fund lifecycle, membership, and invitation HTTP requests.
type FundHandler struct {
	fundService *service.FundService
}

// NewFundHandler creates a new FundHandler.
func NewFundHandler(fundService *service.FundService) *FundHandler {
	return &FundHandler{fundService: fundService}
}

// CreateFundRequest represents the create fund request body.
type CreateFundRequest struct {
	Name                         string  `json:"name"`
	Description                  *string `json:"description,omitempty"`
	Currency                     string  `json:"currency"`
	MonthlyInterestRate          string  `json:"monthlyInterestRate"`
	MinimumMonthlyContribution   string  `json:"minimumMonthlyContribution"`
	MinimumPrincipalPerRepayment string  `json:"minimumPrincipalPerRepayment"`
	LoanApprovalPolicy           string  `json:"loanApprovalPolicy"`
	MaxLoanPerMember             *string `json:"maxLoanPerMember,omitempty"`
	MaxConcurrentLoans           *int32  `json:"maxConcurrentLoans,omitempty"`
	OverduePenaltyType           string  `json:"overduePenaltyType"`
	OverduePenaltyValue          string  `json:"overduePenaltyValue"`
	ContributionDayOfMonth       int32   `json:"contributionDayOfMonth"`
	GracePeriodDays              int32   `json:"gracePeriodDays"`
	MissedAfterDays              *int32  `json:"missedAfterDays,omitempty"`
}

// FundResponse represents a fund in API responses.
type FundResponse struct {
	ID                           string  `json:"id"`
	Name                         string  `json:"name"`
	Description                  *string `json:"description,omitempty"`
	Currency                     string  `json:"currency"`
	MonthlyInterestRate          string  `json:"monthlyInterestRate"`
	MinimumMonthlyContribution   string  `json:"minimumMonthlyContribution"`
	MinimumPrincipalPerRepayment string  `json:"minimumPrincipalPerRepayment"`
	LoanApprovalPolicy           string  `json:"loanApprovalPolicy"`
	MaxLoanPerMember             *string `json:"maxLoanPerMember,omitempty"`
	MaxConcurrentLoans           *int32  `json:"maxConcurrentLoans,omitempty"`
	OverduePenaltyType           string  `json:"overduePenaltyType"`
	OverduePenaltyValue          string  `json:"overduePenaltyValue"`
	ContributionDayOfMonth       int32   `json:"contributionDayOfMonth"`
	GracePeriodDays              int32   `json:"gracePeriodDays"`
	MissedAfterDays              *int32  `json:"missedAfterDays,omitempty"`
	State                        string  `json:"state"`
	Version                      int64   `json:"version"`
	CreatedAt                    string  `json:"createdAt"`
	UpdatedAt                    string  `json:"updatedAt"`
}

// CreateFund handles POST /api/v1/funds
func (h *FundHandler) CreateFund(c echo.Context) error {
	principalID := middleware.GetPrincipalID(c)
	if principalID == domain.ZeroID {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req CreateFundRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	rate, err := decimal.NewFromString(req.MonthlyInterestRate)
	if err != nil {
		return NewValidationError(c, "Invalid monthly interest rate", []ValidationError{
			{Field: "monthlyInterestRate", Message: "Must be a valid decimal number"},
		})
	}
	minContribution, err := decimal.NewFromString(req.MinimumMonthlyContribution)
	if err != nil {
		return NewValidationError(c, "Invalid minimum monthly contribution", []ValidationError{
			{Field: "minimumMonthlyContribution", Message: "Must be a valid decimal number"},
		})
	}
	minPrincipal, err := decimal.NewFromString(req.MinimumPrincipalPerRepayment)
	if err != nil {
		return NewValidationError(c, "Invalid minimum principal per repayment", []ValidationError{
			{Field: "minimumPrincipalPerRepayment", Message: "Must be a valid decimal number"},
		})
	}
	penaltyValue, err := decimal.NewFromString(req.OverduePenaltyValue)
	if err != nil {
		return NewValidationError(c, "Invalid overdue penalty value", []ValidationError{
			{Field: "overduePenaltyValue", Message: "Must be a valid decimal number"},
		})
	}
	var maxLoan *decimal.Decimal
	if req.MaxLoanPerMember != nil && *req.MaxLoanPerMember != "" {
		v, err := decimal.NewFromString(*req.MaxLoanPerMember)
		if err != nil {
			return NewValidationError(c, "Invalid max loan per member", []ValidationError{
				{Field: "maxLoanPerMember", Message: "Must be a valid decimal number"},
			})
		}
		maxLoan = &v
	}

	input := service.CreateFundInput{
		Name:                         req.Name,
		Description:                  req.Description,
		Currency:                     req.Currency,
		MonthlyInterestRate:          rate,
		MinimumMonthlyContribution:   minContribution,
		MinimumPrincipalPerRepayment: minPrincipal,
		LoanApprovalPolicy:           domain.LoanApprovalPolicy(req.LoanApprovalPolicy),
		MaxLoanPerMember:             maxLoan,
		MaxConcurrentLoans:           req.MaxConcurrentLoans,
		OverduePenaltyType:           domain.OverduePenaltyType(req.OverduePenaltyType),
		OverduePenaltyValue:          penaltyValue,
		ContributionDayOfMonth:       req.ContributionDayOfMonth,
		GracePeriodDays:              req.GracePeriodDays,
		MissedAfterDays:              req.MissedAfterDays,
		CreatedBy:                    principalID,
	}

	fund, err := h.fundService.CreateFund(input)
	if err != nil {
		var ve *domain.ValidationErrors
		if errors.As(err, &ve) {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: ve.Errors[0].Field, Message: ve.Errors[0].Message},
			})
		}
		log.Error().Err(err).Str("principal_id", principalID.String()).Msg("Failed to create fund")
		return NewInternalError(c, "Failed to create fund")
	}

	log.Info().Str("fund_id", fund.ID.String()).Str("principal_id", principalID.String()).Msg("Fund created")
	return c.JSON(http.StatusCreated, toFundResponse(fund))
}

// GetFund handles GET /api/v1/funds/:id
func (h *FundHandler) GetFund(c echo.Context) error {
	fundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid fund ID", nil)
	}

	fund, err := h.fundService.GetFund(fundID)
	if err != nil {
		return h.mapFundError(c, err, fundID, "get fund")
	}
	return c.JSON(http.StatusOK, toFundResponse(fund))
}

// ListMyFunds handles GET /api/v1/funds
func (h *FundHandler) ListMyFunds(c echo.Context) error {
	principalID := middleware.GetPrincipalID(c)
	if principalID == domain.ZeroID {
		return NewUnauthorizedError(c, "Authentication required")
	}

	funds, err := h.fundService.ListFundsByMember(principalID)
	if err != nil {
		log.Error().Err(err).Str("principal_id", principalID.String()).Msg("Failed to list funds")
		return NewInternalError(c, "Failed to list funds")
	}

	response := make([]FundResponse, len(funds))
	for i, f := range funds {
		response[i] = toFundResponse(f)
	}
	return c.JSON(http.StatusOK, response)
}

// UpdateDescriptionRequest represents the update description request body.
type UpdateDescriptionRequest struct {
	Description     *string `json:"description,omitempty"`
	ExpectedVersion int64   `json:"expectedVersion"`
}

// UpdateDescription handles PATCH /api/v1/funds/:id/description
func (h *FundHandler) UpdateDescription(c echo.Context) error {
	fundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid fund ID", nil)
	}

	var req UpdateDescriptionRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	fund, err := h.fundService.UpdateDescription(fundID, req.Description, req.ExpectedVersion)
	if err != nil {
		return h.mapFundError(c, err, fundID, "update description")
	}
	return c.JSON(http.StatusOK, toFundResponse(fund))
}

// UpdateConfigurationRequest represents the update configuration request body.
type UpdateConfigurationRequest struct {
	MonthlyInterestRate          string  `json:"monthlyInterestRate"`
	MinimumMonthlyContribution   string  `json:"minimumMonthlyContribution"`
	MinimumPrincipalPerRepayment string  `json:"minimumPrincipalPerRepayment"`
	LoanApprovalPolicy           string  `json:"loanApprovalPolicy"`
	MaxLoanPerMember             *string `json:"maxLoanPerMember,omitempty"`
	MaxConcurrentLoans           *int32  `json:"maxConcurrentLoans,omitempty"`
	OverduePenaltyType           string  `json:"overduePenaltyType"`
	OverduePenaltyValue          string  `json:"overduePenaltyValue"`
	ContributionDayOfMonth       int32   `json:"contributionDayOfMonth"`
	GracePeriodDays              int32   `json:"gracePeriodDays"`
	MissedAfterDays              *int32  `json:"missedAfterDays,omitempty"`
	ExpectedVersion               int64  `json:"expectedVersion"`
}

// UpdateConfiguration handles PUT /api/v1/funds/:id/configuration
func (h *FundHandler) UpdateConfiguration(c echo.Context) error {
	fundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid fund ID", nil)
	}

	var req UpdateConfigurationRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	rate, err := decimal.NewFromString(req.MonthlyInterestRate)
	if err != nil {
		return NewValidationError(c, "Invalid monthly interest rate", nil)
	}
	minContribution, err := decimal.NewFromString(req.MinimumMonthlyContribution)
	if err != nil {
		return NewValidationError(c, "Invalid minimum monthly contribution", nil)
	}
	minPrincipal, err := decimal.NewFromString(req.MinimumPrincipalPerRepayment)
	if err != nil {
		return NewValidationError(c, "Invalid minimum principal per repayment", nil)
	}
	penaltyValue, err := decimal.NewFromString(req.OverduePenaltyValue)
	if err != nil {
		return NewValidationError(c, "Invalid overdue penalty value", nil)
	}
	var maxLoan *decimal.Decimal
	if req.MaxLoanPerMember != nil && *req.MaxLoanPerMember != "" {
		v, err := decimal.NewFromString(*req.MaxLoanPerMember)
		if err != nil {
			return NewValidationError(c, "Invalid max loan per member", nil)
		}
		maxLoan = &v
	}

	input := service.UpdateConfigurationInput{
		MonthlyInterestRate:          rate,
		MinimumMonthlyContribution:   minContribution,
		MinimumPrincipalPerRepayment: minPrincipal,
		LoanApprovalPolicy:           domain.LoanApprovalPolicy(req.LoanApprovalPolicy),
		MaxLoanPerMember:             maxLoan,
		MaxConcurrentLoans:           req.MaxConcurrentLoans,
		OverduePenaltyType:           domain.OverduePenaltyType(req.OverduePenaltyType),
		OverduePenaltyValue:          penaltyValue,
		ContributionDayOfMonth:       req.ContributionDayOfMonth,
		GracePeriodDays:              req.GracePeriodDays,
		MissedAfterDays:              req.MissedAfterDays,
	}

	fund, err := h.fundService.UpdateConfiguration(fundID, input, req.ExpectedVersion)
	if err != nil {
		return h.mapFundError(c, err, fundID, "update configuration")
	}
	return c.JSON(http.StatusOK, toFundResponse(fund))
}

// ActivateRequest represents the activate fund request body.
type ActivateRequest struct {
	ExpectedVersion int64 `json:"expectedVersion"`
}

// Activate handles POST /api/v1/funds/:id/activate
func (h *FundHandler) Activate(c echo.Context) error {
	fundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid fund ID", nil)
	}
	principalID := middleware.GetPrincipalID(c)

	var req ActivateRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	fund, err := h.fundService.Activate(fundID, principalID, req.ExpectedVersion)
	if err != nil {
		return h.mapFundError(c, err, fundID, "activate fund")
	}
	return c.JSON(http.StatusOK, toFundResponse(fund))
}

// InitiateDissolution handles POST /api/v1/funds/:id/dissolution/initiate
func (h *FundHandler) InitiateDissolution(c echo.Context) error {
	fundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid fund ID", nil)
	}
	principalID := middleware.GetPrincipalID(c)

	var req ActivateRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	fund, err := h.fundService.InitiateDissolution(fundID, principalID, req.ExpectedVersion)
	if err != nil {
		return h.mapFundError(c, err, fundID, "initiate dissolution")
	}
	return c.JSON(http.StatusOK, toFundResponse(fund))
}

// AssignRoleRequest represents the assign role request body.
type AssignRoleRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// RoleAssignmentResponse represents a fund role assignment in API responses.
type RoleAssignmentResponse struct {
	ID        string `json:"id"`
	FundID    string `json:"fundId"`
	UserID    string `json:"userId"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// AssignRole handles POST /api/v1/funds/:id/roles
func (h *FundHandler) AssignRole(c echo.Context) error {
	fundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid fund ID", nil)
	}
	principalID := middleware.GetPrincipalID(c)

	var req AssignRoleRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return NewValidationError(c, "Invalid user ID", []ValidationError{{Field: "userId", Message: "Must be a valid UUID"}})
	}

	assignment, err := h.fundService.AssignRole(fundID, userID, domain.FundRole(req.Role), principalID)
	if err != nil {
		return h.mapFundError(c, err, fundID, "assign role")
	}
	return c.JSON(http.StatusCreated, toRoleAssignmentResponse(assignment))
}

// ChangeRoleRequest represents the change role request body.
type ChangeRoleRequest struct {
	Role string `json:"role"`
}

// ChangeRole handles PUT /api/v1/funds/:id/roles/:userId
func (h *FundHandler) ChangeRole(c echo.Context) error {
	fundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid fund ID", nil)
	}
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		return NewValidationError(c, "Invalid user ID", nil)
	}

	var req ChangeRoleRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	assignment, err := h.fundService.ChangeRole(fundID, userID, domain.FundRole(req.Role))
	if err != nil {
		return h.mapFundError(c, err, fundID, "change role")
	}
	return c.JSON(http.StatusOK, toRoleAssignmentResponse(assignment))
}

// RemoveMember handles DELETE /api/v1/funds/:id/roles/:userId
func (h *FundHandler) RemoveMember(c echo.Context) error {
	fundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid fund ID", nil)
	}
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		return NewValidationError(c, "Invalid user ID", nil)
	}
	principalID := middleware.GetPrincipalID(c)

	if err := h.fundService.RemoveMember(fundID, userID, principalID); err != nil {
		return h.mapFundError(c, err, fundID, "remove member")
	}
	return c.NoContent(http.StatusNoContent)
}

// CreateMemberPlanRequest represents the create member contribution plan request body.
type CreateMemberPlanRequest struct {
	UserID              string `json:"userId"`
	MonthlyContribution string `json:"monthlyContributionAmount"`
	JoinDate            string `json:"joinDate"`
}

// MemberPlanResponse represents a member contribution plan in API responses.
type MemberPlanResponse struct {
	ID                        string `json:"id"`
	FundID                    string `json:"fundId"`
	UserID                    string `json:"userId"`
	MonthlyContributionAmount string `json:"monthlyContributionAmount"`
	JoinDate                  string `json:"joinDate"`
	IsActive                  bool   `json:"isActive"`
}

// CreateMemberPlan handles POST /api/v1/funds/:id/member-plans
func (h *FundHandler) CreateMemberPlan(c echo.Context) error {
	fundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid fund ID", nil)
	}

	var req CreateMemberPlanRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return NewValidationError(c, "Invalid user ID", []ValidationError{{Field: "userId", Message: "Must be a valid UUID"}})
	}
	amount, err := decimal.NewFromString(req.MonthlyContribution)
	if err != nil {
		return NewValidationError(c, "Invalid monthly contribution amount", []ValidationError{
			{Field: "monthlyContributionAmount", Message: "Must be a valid decimal number"},
		})
	}
	joinDate, err := time.Parse("2006-01-02", req.JoinDate)
	if err != nil {
		return NewValidationError(c, "Invalid join date", []ValidationError{
			{Field: "joinDate", Message: "Must be in YYYY-MM-DD format"},
		})
	}

	plan, err := h.fundService.CreateMemberPlan(fundID, userID, amount, joinDate)
	if err != nil {
		return h.mapFundError(c, err, fundID, "create member plan")
	}
	return c.JSON(http.StatusCreated, MemberPlanResponse{
		ID:                        plan.ID.String(),
		FundID:                    plan.FundID.String(),
		UserID:                    plan.UserID.String(),
		MonthlyContributionAmount: plan.MonthlyContributionAmount.StringFixed(2),
		JoinDate:                  plan.JoinDate.Format("2006-01-02"),
		IsActive:                  plan.IsActive,
	})
}

// InviteMemberRequest represents the invite member request body.
type InviteMemberRequest struct {
	TargetContact string `json:"targetContact"`
}

// InvitationResponse represents an invitation in API responses.
type InvitationResponse struct {
	ID            string `json:"id"`
	FundID        string `json:"fundId"`
	TargetContact string `json:"targetContact"`
	InvitedBy     string `json:"invitedBy"`
	Status        string `json:"status"`
	ExpiresAt     string `json:"expiresAt"`
}

// InviteMember handles POST /api/v1/funds/:id/invitations
func (h *FundHandler) InviteMember(c echo.Context) error {
	fundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid fund ID", nil)
	}
	principalID := middleware.GetPrincipalID(c)

	var req InviteMemberRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	inv, err := h.fundService.InviteMember(fundID, principalID, req.TargetContact)
	if err != nil {
		return h.mapFundError(c, err, fundID, "invite member")
	}
	return c.JSON(http.StatusCreated, toInvitationResponse(inv))
}

// AcceptInvitationRequest represents the accept invitation request body.
// TargetContact re-identifies the pending invitation within the fund, since
// invitations are unique on (fundId, targetContact) rather than addressed
// directly by ID.
type AcceptInvitationRequest struct {
	TargetContact string `json:"targetContact"`
}

// AcceptInvitation handles POST /api/v1/funds/:id/invitations/accept
func (h *FundHandler) AcceptInvitation(c echo.Context) error {
	fundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid fund ID", nil)
	}
	principalID := middleware.GetPrincipalID(c)
	if principalID == domain.ZeroID {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req AcceptInvitationRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	inv, err := h.fundService.GetPendingInvitation(fundID, req.TargetContact)
	if err != nil {
		if errors.Is(err, domain.ErrInvitationNotFound) {
			return NewNotFoundError(c, "Invitation not found")
		}
		return h.mapFundError(c, err, fundID, "accept invitation")
	}

	assignment, err := h.fundService.AcceptInvitation(inv, principalID)
	if err != nil {
		return h.mapFundError(c, err, fundID, "accept invitation")
	}
	return c.JSON(http.StatusCreated, toRoleAssignmentResponse(assignment))
}

func (h *FundHandler) mapFundError(c echo.Context, err error, fundID domain.ID, action string) error {
	switch {
	case errors.Is(err, domain.ErrFundNotFound):
		return NewNotFoundError(c, "Fund not found")
	case errors.Is(err, domain.ErrRoleAssignmentNotFound):
		return NewNotFoundError(c, "Role assignment not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		return NewConflictError(c, "Already exists")
	case errors.Is(err, domain.ErrLastAdmin):
		return NewConflictError(c, "Would leave the fund without an admin")
	case errors.Is(err, domain.ErrInvalidState):
		return NewConflictError(c, "Operation not legal from the fund's current state")
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
		log.Error().Err(err).Str("fund_id", fundID.String()).Msg("Failed to " + action)
		return NewInternalError(c, "Failed to "+action)
	}
}

func toFundResponse(f *domain.Fund) FundResponse {
	resp := FundResponse{
		ID:                           f.ID.String(),
		Name:                         f.Name,
		Description:                  f.Description,
		Currency:                     f.Currency,
		MonthlyInterestRate:          f.MonthlyInterestRate.StringFixed(4),
		MinimumMonthlyContribution:   f.MinimumMonthlyContribution.StringFixed(2),
		MinimumPrincipalPerRepayment: f.MinimumPrincipalPerRepayment.StringFixed(2),
		LoanApprovalPolicy:           string(f.LoanApprovalPolicy),
		MaxConcurrentLoans:           f.MaxConcurrentLoans,
		OverduePenaltyType:           string(f.OverduePenaltyType),
		OverduePenaltyValue:          f.OverduePenaltyValue.StringFixed(2),
		ContributionDayOfMonth:       f.ContributionDayOfMonth,
		GracePeriodDays:              f.GracePeriodDays,
		MissedAfterDays:              f.MissedAfterDays,
		State:                        string(f.State),
		Version:                      f.Version,
		CreatedAt:                    f.CreatedAt.Format(time.RFC3339),
		UpdatedAt:                    f.UpdatedAt.Format(time.RFC3339),
	}
	if f.MaxLoanPerMember != nil {
		s := f.MaxLoanPerMember.StringFixed(2)
		resp.MaxLoanPerMember = &s
	}
	return resp
}

func toRoleAssignmentResponse(a *domain.FundRoleAssignment) RoleAssignmentResponse {
	return RoleAssignmentResponse{
		ID:        a.ID.String(),
		FundID:    a.FundID.String(),
		UserID:    a.UserID.String(),
		Role:      string(a.Role),
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
		UpdatedAt: a.UpdatedAt.Format(time.RFC3339),
	}
}

func toInvitationResponse(inv *domain.Invitation) InvitationResponse {
	return InvitationResponse{
		ID:            inv.ID.String(),
		FundID:        inv.FundID.String(),
		TargetContact: inv.TargetContact,
		InvitedBy:     inv.InvitedBy.String(),
		Status:        string(inv.Status),
		ExpiresAt:     inv.ExpiresAt.Format(time.RFC3339),
	}
}
