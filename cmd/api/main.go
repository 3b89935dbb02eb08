package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dafibh/fortuna/fortuna-backend/internal/audit"
	"github.com/dafibh/fortuna/fortuna-backend/internal/config"
	"github.com/dafibh/fortuna/fortuna-backend/internal/events"
	"github.com/dafibh/fortuna/fortuna-backend/internal/handler"
	"github.com/dafibh/fortuna/fortuna-backend/internal/jobs"
	"github.com/dafibh/fortuna/fortuna-backend/internal/middleware"
	"github.com/dafibh/fortuna/fortuna-backend/internal/orchestrator"
	"github.com/dafibh/fortuna/fortuna-backend/internal/repository/postgres"
	"github.com/dafibh/fortuna/fortuna-backend/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Connect to database
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	// Verify database connection
	if err := pool.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Connected to database")

	// Initialize repositories
	fundRepo := postgres.NewFundRepository(pool)
	fundRoleRepo := postgres.NewFundRoleRepository(pool)
	memberPlanRepo := postgres.NewMemberPlanRepository(pool)
	invitationRepo := postgres.NewInvitationRepository(pool)
	fundProjectionRepo := postgres.NewFundProjectionRepository(pool)
	contributionDueRepo := postgres.NewContributionDueRepository(pool)
	loanRepo := postgres.NewLoanRepository(pool)
	repaymentEntryRepo := postgres.NewRepaymentEntryRepository(pool)
	transactionRepo := postgres.NewTransactionRepository(pool)
	votingSessionRepo := postgres.NewVotingSessionRepository(pool)
	voteRepo := postgres.NewVoteRepository(pool)
	dissolutionSettlementRepo := postgres.NewDissolutionSettlementRepository(pool)
	idempotencyRepo := postgres.NewIdempotencyRepository(pool)
	outboxRepo := postgres.NewOutboxRepository(pool)

	// Orchestrator: idempotency registry, event bus, outbox, audit sink
	eventHub := events.NewHub()
	auditSink := audit.NewInMemoryAuditSink()
	orch := orchestrator.New(idempotencyRepo, outboxRepo, eventHub, auditSink)

	// Initialize services
	fundService := service.NewFundService(orch, fundRepo, fundRoleRepo, memberPlanRepo, invitationRepo, fundProjectionRepo)
	contributionService := service.NewContributionService(orch, fundRepo, memberPlanRepo, contributionDueRepo, transactionRepo)
	loanService := service.NewLoanService(orch, loanRepo, fundProjectionRepo, transactionRepo)
	repaymentService := service.NewRepaymentService(orch, loanRepo, repaymentEntryRepo, transactionRepo)
	votingService := service.NewVotingService(orch, votingSessionRepo, voteRepo, loanRepo)
	penaltyService := service.NewPenaltyService(orch, fundRepo, loanRepo, repaymentEntryRepo, transactionRepo)
	dissolutionService := service.NewDissolutionService(orch, fundRepo, fundRoleRepo, loanRepo, repaymentEntryRepo, contributionDueRepo, transactionRepo, dissolutionSettlementRepo)

	// Initialize auth middleware — resolves only a principal ID from the
	// validated JWT; fund membership and role checks are an
	// application-level concern handled by each service.
	authMiddleware, err := middleware.NewAuthMiddleware(cfg.Auth0Domain, cfg.Auth0Audience)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create auth middleware")
	}
	rateLimiter := middleware.NewRateLimiter()
	defer rateLimiter.Stop()

	// Initialize handlers
	fundHandler := handler.NewFundHandler(fundService)
	loanHandler := handler.NewLoanHandler(loanService)
	contributionHandler := handler.NewContributionHandler(contributionService)
	repaymentHandler := handler.NewRepaymentHandler(repaymentService)
	votingHandler := handler.NewVotingHandler(votingService)
	dissolutionHandler := handler.NewDissolutionHandler(dissolutionService)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Security headers middleware (helmet-like)
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// Request logging middleware with zerolog
	e.Use(zerologMiddleware())

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Register API routes
	handler.RegisterRoutes(e, authMiddleware, rateLimiter, fundHandler, loanHandler, contributionHandler, repaymentHandler, votingHandler, dissolutionHandler)

	// Background jobs: overdue contribution detection, repayment-entry
	// generation/overdue-marking, and penalty application, each serialised
	// per fund via an advisory lock.
	locks := jobs.NewAdvisoryLocks()
	overdueJob := jobs.NewOverdueJob(contributionService, fundRepo, locks, log.Logger, jobs.DefaultOverdueJobConfig())
	repaymentJob := jobs.NewRepaymentJob(repaymentService, fundRepo, loanRepo, locks, log.Logger, jobs.DefaultRepaymentJobConfig())
	penaltyJob := jobs.NewPenaltyJob(penaltyService, fundRepo, locks, log.Logger, jobs.DefaultPenaltyJobConfig())

	jobsCtx, cancelJobs := context.WithCancel(context.Background())
	overdueJob.Start(jobsCtx)
	repaymentJob.Start(jobsCtx)
	penaltyJob.Start(jobsCtx)

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelJobs()
	overdueJob.Stop()
	repaymentJob.Stop()
	penaltyJob.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}
