package handler

import (
	"github.com/dafibh/fortuna/fortuna-backend/internal/middleware"
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(
	e *echo.Echo,
	authMiddleware *middleware.AuthMiddleware,
	rateLimiter *middleware.RateLimiter,
	fundHandler *FundHandler,
	loanHandler *LoanHandler,
	contributionHandler *ContributionHandler,
	repaymentHandler *RepaymentHandler,
	votingHandler *VotingHandler,
	dissolutionHandler *DissolutionHandler,
) {
	// API version 1
	api := e.Group("/api/v1")
	api.Use(authMiddleware.Authenticate())
	api.Use(middleware.RateLimitMiddleware(rateLimiter))

	funds := api.Group("/funds")
	funds.POST("", fundHandler.CreateFund)
	funds.GET("", fundHandler.ListMyFunds)
	funds.GET("/:id", fundHandler.GetFund)
	funds.PATCH("/:id/description", fundHandler.UpdateDescription)
	funds.PUT("/:id/configuration", fundHandler.UpdateConfiguration)
	funds.POST("/:id/activate", fundHandler.Activate)
	funds.POST("/:id/dissolution/initiate", fundHandler.InitiateDissolution)
	funds.POST("/:id/roles", fundHandler.AssignRole)
	funds.PUT("/:id/roles/:userId", fundHandler.ChangeRole)
	funds.DELETE("/:id/roles/:userId", fundHandler.RemoveMember)
	funds.POST("/:id/member-plans", fundHandler.CreateMemberPlan)
	funds.POST("/:id/invitations", fundHandler.InviteMember)
	funds.POST("/:id/invitations/accept", fundHandler.AcceptInvitation)

	funds.POST("/:id/contribution-dues/generate", contributionHandler.GenerateDues)
	funds.GET("/:id/loans/active", loanHandler.ListActiveByFund)
	funds.GET("/:id/loans", loanHandler.ListByBorrower)

	funds.POST("/:id/dissolution-settlement/recalculate", dissolutionHandler.Recalculate)
	funds.POST("/:id/dissolution-settlement/confirm", dissolutionHandler.Confirm)
	funds.GET("/:id/dissolution-settlement", dissolutionHandler.GetByFund)

	contributionDues := api.Group("/contribution-dues")
	contributionDues.POST("/:id/payments", contributionHandler.RecordPayment)

	loans := api.Group("/loans")
	loans.POST("", loanHandler.RequestLoan)
	loans.GET("/:id", loanHandler.GetLoan)
	loans.POST("/:id/approve", loanHandler.Approve)
	loans.POST("/:id/reject", loanHandler.Reject)
	loans.POST("/:id/repayment-entries/generate", repaymentHandler.GenerateEntry)
	loans.GET("/:id/repayment-entries", repaymentHandler.ListByLoan)
	loans.POST("/:id/voting-sessions", votingHandler.StartVoting)
	loans.GET("/:id/voting-session", votingHandler.GetByLoan)

	repaymentEntries := api.Group("/repayment-entries")
	repaymentEntries.POST("/:id/payments", repaymentHandler.RecordPayment)

	votingSessions := api.Group("/voting-sessions")
	votingSessions.POST("/:id/votes", votingHandler.CastVote)
	votingSessions.POST("/:id/finalise", votingHandler.FinaliseVoting)
}
