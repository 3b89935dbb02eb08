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

// VotingHandler handles loan-approval voting session HTTP requests.
type VotingHandler struct {
	votingService *service.VotingService
}

// NewVotingHandler creates a new VotingHandler.
func NewVotingHandler(votingService *service.VotingService) *VotingHandler {
	return &VotingHandler{votingService: votingService}
}

// StartVotingRequest represents the start voting request body.
type StartVotingRequest struct {
	WindowHours    int    `json:"windowHours"`
	ThresholdType  string `json:"thresholdType"`
	ThresholdValue int32  `json:"thresholdValue"`
}

// VotingSessionResponse represents a voting session in API responses.
type VotingSessionResponse struct {
	ID             string  `json:"id"`
	LoanID         string  `json:"loanId"`
	FundID         string  `json:"fundId"`
	WindowStart    string  `json:"windowStart"`
	WindowEnd      string  `json:"windowEnd"`
	ThresholdType  string  `json:"thresholdType"`
	ThresholdValue int32   `json:"thresholdValue"`
	Result         string  `json:"result"`
	FinalisedBy    *string `json:"finalisedBy,omitempty"`
	FinalisedDate  *string `json:"finalisedDate,omitempty"`
	OverrideUsed   bool    `json:"overrideUsed"`
}

// StartVoting handles POST /api/v1/loans/:id/voting-sessions
func (h *VotingHandler) StartVoting(c echo.Context) error {
	loanID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", nil)
	}

	var req StartVotingRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	var thresholdType domain.VotingThresholdType
	switch req.ThresholdType {
	case string(domain.VotingThresholdMajority):
		thresholdType = domain.VotingThresholdMajority
	case string(domain.VotingThresholdPercentage):
		thresholdType = domain.VotingThresholdPercentage
	default:
		return NewValidationError(c, "Invalid threshold type", []ValidationError{
			{Field: "thresholdType", Message: "Must be 'majority' or 'percentage'"},
		})
	}

	session, err := h.votingService.StartVoting(loanID, req.WindowHours, thresholdType, req.ThresholdValue)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrLoanNotFound):
			return NewNotFoundError(c, "Loan not found")
		case errors.Is(err, domain.ErrInvalidState):
			return NewConflictError(c, "Loan is not pending approval")
		case errors.Is(err, domain.ErrAlreadyExists):
			return NewConflictError(c, "A voting session already exists for this loan")
		case errors.Is(err, domain.ErrValidation):
			return NewValidationError(c, "Voting window must be between 24 and 72 hours", nil)
		default:
			log.Error().Err(err).Str("loan_id", loanID.String()).Msg("Failed to start voting session")
			return NewInternalError(c, "Failed to start voting session")
		}
	}

	log.Info().Str("session_id", session.ID.String()).Str("loan_id", loanID.String()).Msg("Voting session started")
	return c.JSON(http.StatusCreated, toVotingSessionResponse(session))
}

// CastVoteRequest represents the cast vote request body.
type CastVoteRequest struct {
	Decision string `json:"decision"`
}

// VoteResponse represents a single cast vote in API responses.
type VoteResponse struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionId"`
	VoterID   string `json:"voterId"`
	Decision  string `json:"decision"`
	CastAt    string `json:"castAt"`
}

// CastVote handles POST /api/v1/voting-sessions/:id/votes
func (h *VotingHandler) CastVote(c echo.Context) error {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid voting session ID", nil)
	}
	principalID := middleware.GetPrincipalID(c)
	if principalID == domain.ZeroID {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req CastVoteRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	vote, err := h.votingService.CastVote(sessionID, principalID, domain.VoteDecision(req.Decision))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrVotingSessionNotFound):
			return NewNotFoundError(c, "Voting session not found")
		case errors.Is(err, domain.ErrAlreadyFinalised):
			return NewConflictError(c, "Voting session has already been finalised")
		case errors.Is(err, domain.ErrWindowClosed):
			return NewConflictError(c, "Voting window has closed")
		case errors.Is(err, domain.ErrAlreadyVoted):
			return NewConflictError(c, "You have already voted in this session")
		case errors.Is(err, domain.ErrValidation):
			return NewValidationError(c, "Decision must be 'approve' or 'reject'", nil)
		default:
			log.Error().Err(err).Str("session_id", sessionID.String()).Msg("Failed to cast vote")
			return NewInternalError(c, "Failed to cast vote")
		}
	}

	return c.JSON(http.StatusCreated, VoteResponse{
		ID:        vote.ID.String(),
		SessionID: vote.SessionID.String(),
		VoterID:   vote.VoterID.String(),
		Decision:  string(vote.Decision),
		CastAt:    vote.CastAt.Format(time.RFC3339),
	})
}

// FinaliseVotingRequest represents the finalise voting request body.
type FinaliseVotingRequest struct {
	Decision string `json:"decision"`
}

// FinaliseVoting handles POST /api/v1/voting-sessions/:id/finalise
func (h *VotingHandler) FinaliseVoting(c echo.Context) error {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid voting session ID", nil)
	}
	principalID := middleware.GetPrincipalID(c)
	if principalID == domain.ZeroID {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req FinaliseVotingRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	var decision domain.VotingResult
	switch req.Decision {
	case string(domain.VotingResultApproved):
		decision = domain.VotingResultApproved
	case string(domain.VotingResultRejected):
		decision = domain.VotingResultRejected
	case string(domain.VotingResultNoQuorum):
		decision = domain.VotingResultNoQuorum
	default:
		return NewValidationError(c, "Invalid decision", []ValidationError{
			{Field: "decision", Message: "Must be 'approved', 'rejected', or 'no_quorum'"},
		})
	}

	session, err := h.votingService.FinaliseVoting(sessionID, principalID, decision)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrVotingSessionNotFound):
			return NewNotFoundError(c, "Voting session not found")
		case errors.Is(err, domain.ErrAlreadyFinalised):
			return NewConflictError(c, "Voting session has already been finalised")
		default:
			log.Error().Err(err).Str("session_id", sessionID.String()).Msg("Failed to finalise voting session")
			return NewInternalError(c, "Failed to finalise voting session")
		}
	}

	log.Info().Str("session_id", session.ID.String()).Bool("override_used", session.OverrideUsed).Msg("Voting session finalised")
	return c.JSON(http.StatusOK, toVotingSessionResponse(session))
}

// GetByLoan handles GET /api/v1/loans/:id/voting-session
func (h *VotingHandler) GetByLoan(c echo.Context) error {
	loanID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", nil)
	}

	session, err := h.votingService.GetByLoan(loanID)
	if err != nil {
		if errors.Is(err, domain.ErrVotingSessionNotFound) {
			return NewNotFoundError(c, "No voting session exists for this loan")
		}
		log.Error().Err(err).Str("loan_id", loanID.String()).Msg("Failed to get voting session")
		return NewInternalError(c, "Failed to get voting session")
	}

	return c.JSON(http.StatusOK, toVotingSessionResponse(session))
}

func toVotingSessionResponse(s *domain.VotingSession) VotingSessionResponse {
	resp := VotingSessionResponse{
		ID:             s.ID.String(),
		LoanID:         s.LoanID.String(),
		FundID:         s.FundID.String(),
		WindowStart:    s.WindowStart.Format(time.RFC3339),
		WindowEnd:      s.WindowEnd.Format(time.RFC3339),
		ThresholdType:  string(s.ThresholdType),
		ThresholdValue: s.ThresholdValue,
		Result:         string(s.Result),
		OverrideUsed:   s.OverrideUsed,
	}
	if s.FinalisedBy != nil {
		fb := s.FinalisedBy.String()
		resp.FinalisedBy = &fb
	}
	if s.FinalisedDate != nil {
		fd := s.FinalisedDate.Format(time.RFC3339)
		resp.FinalisedDate = &fd
	}
	return resp
}
