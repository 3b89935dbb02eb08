package service

import (
	"time"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/dafibh/fortuna/fortuna-backend/internal/events"
	"github.com/dafibh/fortuna/fortuna-backend/internal/orchestrator"
)

// FundService implements the fund lifecycle, membership, and invitation
// operations of component C2: Create, UpdateDescription, UpdateConfiguration,
// AssignRole, ChangeRole, RemoveMember, Activate, InitiateDissolution,
// ConfirmDissolution.
type FundService struct {
	orch       *orchestrator.Orchestrator
	fundRepo   domain.FundRepository
	roleRepo   domain.FundRoleRepository
	planRepo   domain.MemberPlanRepository
	inviteRepo domain.InvitationRepository
	projRepo   domain.FundProjectionRepository
}

// NewFundService creates a new FundService.
func NewFundService(
	orch *orchestrator.Orchestrator,
	fundRepo domain.FundRepository,
	roleRepo domain.FundRoleRepository,
	planRepo domain.MemberPlanRepository,
	inviteRepo domain.InvitationRepository,
	projRepo domain.FundProjectionRepository,
) *FundService {
	return &FundService{
		orch:       orch,
		fundRepo:   fundRepo,
		roleRepo:   roleRepo,
		planRepo:   planRepo,
		inviteRepo: inviteRepo,
		projRepo:   projRepo,
	}
}

// CreateFundInput holds the input for creating a fund.
type CreateFundInput struct {
	Name                         string
	Description                  *string
	Currency                     string
	MonthlyInterestRate          domain.Rate
	MinimumMonthlyContribution   domain.Money
	MinimumPrincipalPerRepayment domain.Money
	LoanApprovalPolicy           domain.LoanApprovalPolicy
	MaxLoanPerMember             *domain.Money
	MaxConcurrentLoans           *int32
	OverduePenaltyType           domain.OverduePenaltyType
	OverduePenaltyValue          domain.Money
	ContributionDayOfMonth       int32
	GracePeriodDays              int32
	MissedAfterDays              *int32
	CreatedBy                    domain.ID
}

// CreateFund creates a fund in Draft and assigns the creator as its first
// Admin role assignment.
func (s *FundService) CreateFund(input CreateFundInput) (*domain.Fund, error) {
	now := time.Now().UTC()
	f := &domain.Fund{
		ID:                           domain.NewID(),
		Name:                         input.Name,
		Description:                  input.Description,
		Currency:                     input.Currency,
		MonthlyInterestRate:          input.MonthlyInterestRate,
		MinimumMonthlyContribution:   input.MinimumMonthlyContribution,
		MinimumPrincipalPerRepayment: input.MinimumPrincipalPerRepayment,
		LoanApprovalPolicy:           input.LoanApprovalPolicy,
		MaxLoanPerMember:             input.MaxLoanPerMember,
		MaxConcurrentLoans:           input.MaxConcurrentLoans,
		OverduePenaltyType:           input.OverduePenaltyType,
		OverduePenaltyValue:          input.OverduePenaltyValue,
		ContributionDayOfMonth:       input.ContributionDayOfMonth,
		GracePeriodDays:              input.GracePeriodDays,
		MissedAfterDays:              input.MissedAfterDays,
		State:                        domain.FundStateDraft,
		CreatedAt:                    now,
		UpdatedAt:                    now,
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	created, err := s.fundRepo.Create(f)
	if err != nil {
		return nil, err
	}

	if _, err := s.roleRepo.Assign(&domain.FundRoleAssignment{
		ID:        domain.NewID(),
		FundID:    created.ID,
		UserID:    input.CreatedBy,
		Role:      domain.FundRoleAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		return nil, err
	}

	if s.projRepo != nil {
		_, _ = s.projRepo.Upsert(domain.FundProjectionFromFund(created))
	}

	s.orch.Emit(events.New(events.TypeFundCreated, created.ID, created))
	s.orch.Audit(domain.AuditEnvelope{
		ActorID:    input.CreatedBy,
		FundID:     &created.ID,
		EntityType: "fund",
		EntityID:   created.ID,
		ActionType: "FundCreated",
		ServiceName: "FundService",
	})
	return created, nil
}

// GetFund retrieves a fund by ID.
func (s *FundService) GetFund(fundID domain.ID) (*domain.Fund, error) {
	return s.fundRepo.GetByID(fundID)
}

// ListFundsByMember lists every fund userID holds a role assignment in.
func (s *FundService) ListFundsByMember(userID domain.ID) ([]*domain.Fund, error) {
	return s.fundRepo.ListByMember(userID)
}

// GetPendingInvitation retrieves the pending invitation for (fundID, targetContact), if any.
func (s *FundService) GetPendingInvitation(fundID domain.ID, targetContact string) (*domain.Invitation, error) {
	return s.inviteRepo.GetPending(fundID, targetContact)
}

// UpdateDescription updates a fund's description regardless of lifecycle state.
func (s *FundService) UpdateDescription(fundID domain.ID, description *string, expectedVersion int64) (*domain.Fund, error) {
	f, err := s.fundRepo.GetByID(fundID)
	if err != nil {
		return nil, err
	}
	f.Description = description
	f.UpdatedAt = time.Now().UTC()
	return s.fundRepo.Update(f, expectedVersion)
}

// UpdateConfigurationInput carries the mutable, Draft-only configuration fields.
type UpdateConfigurationInput struct {
	MonthlyInterestRate          domain.Rate
	MinimumMonthlyContribution   domain.Money
	MinimumPrincipalPerRepayment domain.Money
	LoanApprovalPolicy           domain.LoanApprovalPolicy
	MaxLoanPerMember             *domain.Money
	MaxConcurrentLoans           *int32
	OverduePenaltyType           domain.OverduePenaltyType
	OverduePenaltyValue          domain.Money
	ContributionDayOfMonth       int32
	GracePeriodDays              int32
	MissedAfterDays              *int32
}

// UpdateConfiguration replaces a fund's configuration. Fails ErrInvalidState
// unless the fund is still Draft.
func (s *FundService) UpdateConfiguration(fundID domain.ID, input UpdateConfigurationInput, expectedVersion int64) (*domain.Fund, error) {
	f, err := s.fundRepo.GetByID(fundID)
	if err != nil {
		return nil, err
	}
	if !f.CanMutateConfig() {
		return nil, domain.ErrInvalidState
	}

	f.MonthlyInterestRate = input.MonthlyInterestRate
	f.MinimumMonthlyContribution = input.MinimumMonthlyContribution
	f.MinimumPrincipalPerRepayment = input.MinimumPrincipalPerRepayment
	f.LoanApprovalPolicy = input.LoanApprovalPolicy
	f.MaxLoanPerMember = input.MaxLoanPerMember
	f.MaxConcurrentLoans = input.MaxConcurrentLoans
	f.OverduePenaltyType = input.OverduePenaltyType
	f.OverduePenaltyValue = input.OverduePenaltyValue
	f.ContributionDayOfMonth = input.ContributionDayOfMonth
	f.GracePeriodDays = input.GracePeriodDays
	f.MissedAfterDays = input.MissedAfterDays
	if err := f.Validate(); err != nil {
		return nil, err
	}
	f.UpdatedAt = time.Now().UTC()

	updated, err := s.fundRepo.Update(f, expectedVersion)
	if err != nil {
		return nil, err
	}
	if s.projRepo != nil {
		_, _ = s.projRepo.Upsert(domain.FundProjectionFromFund(updated))
	}
	return updated, nil
}

// AssignRole attaches a role to a user within a fund. Fails ErrAlreadyExists
// on a duplicate (userId, fundId).
func (s *FundService) AssignRole(fundID, userID domain.ID, role domain.FundRole, actorID domain.ID) (*domain.FundRoleAssignment, error) {
	f, err := s.fundRepo.GetByID(fundID)
	if err != nil {
		return nil, err
	}
	if f.State != domain.FundStateDraft && f.State != domain.FundStateActive {
		return nil, domain.ErrInvalidState
	}
	if existing, err := s.roleRepo.Get(fundID, userID); err == nil && existing != nil {
		return nil, domain.ErrAlreadyExists
	} else if err != nil && err != domain.ErrRoleAssignmentNotFound {
		return nil, err
	}

	now := time.Now().UTC()
	assignment, err := s.roleRepo.Assign(&domain.FundRoleAssignment{
		ID:        domain.NewID(),
		FundID:    fundID,
		UserID:    userID,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	eventType := events.TypeMemberJoined
	if role == domain.FundRoleAdmin {
		eventType = events.TypeFundAdminAssigned
	}
	s.orch.Emit(events.New(eventType, fundID, assignment))
	s.orch.Audit(domain.AuditEnvelope{
		ActorID:    actorID,
		FundID:     &fundID,
		EntityType: "fund_role_assignment",
		EntityID:   assignment.ID,
		ActionType: "RoleAssigned",
		ServiceName: "FundService",
	})
	return assignment, nil
}

// ChangeRole updates a member's role. Refuses to leave the fund without an
// Admin (ErrLastAdmin) when the change demotes its last Admin.
func (s *FundService) ChangeRole(fundID, userID domain.ID, newRole domain.FundRole) (*domain.FundRoleAssignment, error) {
	current, err := s.roleRepo.Get(fundID, userID)
	if err != nil {
		return nil, err
	}
	if current.Role == domain.FundRoleAdmin && newRole != domain.FundRoleAdmin {
		if err := s.assertNotLastAdmin(fundID, userID); err != nil {
			return nil, err
		}
	}
	current.Role = newRole
	current.UpdatedAt = time.Now().UTC()
	return s.roleRepo.Update(current)
}

// RemoveMember removes a user's role assignment from a fund. Refuses to
// remove the last Admin.
func (s *FundService) RemoveMember(fundID, userID, actorID domain.ID) error {
	current, err := s.roleRepo.Get(fundID, userID)
	if err != nil {
		return err
	}
	if current.Role == domain.FundRoleAdmin {
		if err := s.assertNotLastAdmin(fundID, userID); err != nil {
			return err
		}
	}
	if err := s.roleRepo.Remove(fundID, userID); err != nil {
		return err
	}
	s.orch.Emit(events.New(events.TypeMemberRemoved, fundID, map[string]domain.ID{"userId": userID}))
	s.orch.Audit(domain.AuditEnvelope{
		ActorID:    actorID,
		FundID:     &fundID,
		EntityType: "fund_role_assignment",
		EntityID:   current.ID,
		ActionType: "MemberRemoved",
		ServiceName: "FundService",
	})
	return nil
}

// assertNotLastAdmin returns ErrLastAdmin if userID is the sole remaining
// Admin for fundID.
func (s *FundService) assertNotLastAdmin(fundID, userID domain.ID) error {
	count, err := s.roleRepo.CountByRole(fundID, domain.FundRoleAdmin)
	if err != nil {
		return err
	}
	if count <= 1 {
		return domain.ErrLastAdmin
	}
	return nil
}

// Activate transitions Draft -> Active, requiring at least one Admin role
// assignment to already exist.
func (s *FundService) Activate(fundID, actorID domain.ID, expectedVersion int64) (*domain.Fund, error) {
	f, err := s.fundRepo.GetByID(fundID)
	if err != nil {
		return nil, err
	}
	adminCount, err := s.roleRepo.CountByRole(fundID, domain.FundRoleAdmin)
	if err != nil {
		return nil, err
	}
	if adminCount < 1 {
		return nil, domain.ErrLastAdmin
	}
	if err := f.Activate(); err != nil {
		return nil, err
	}
	f.UpdatedAt = time.Now().UTC()

	updated, err := s.fundRepo.Update(f, expectedVersion)
	if err != nil {
		return nil, err
	}
	if s.projRepo != nil {
		_, _ = s.projRepo.Upsert(domain.FundProjectionFromFund(updated))
	}
	s.orch.Emit(events.New(events.TypeFundActivated, fundID, updated))
	s.orch.Audit(domain.AuditEnvelope{
		ActorID:    actorID,
		FundID:     &fundID,
		EntityType: "fund",
		EntityID:   fundID,
		ActionType: "FundActivated",
		ServiceName: "FundService",
	})
	return updated, nil
}

// InitiateDissolution transitions Active -> Dissolving, blocking new
// members, new loan requests, and new contribution-due generation while
// in-flight loan repayments continue.
func (s *FundService) InitiateDissolution(fundID, actorID domain.ID, expectedVersion int64) (*domain.Fund, error) {
	f, err := s.fundRepo.GetByID(fundID)
	if err != nil {
		return nil, err
	}
	if err := f.InitiateDissolution(); err != nil {
		return nil, err
	}
	f.UpdatedAt = time.Now().UTC()

	updated, err := s.fundRepo.Update(f, expectedVersion)
	if err != nil {
		return nil, err
	}
	if s.projRepo != nil {
		_, _ = s.projRepo.Upsert(domain.FundProjectionFromFund(updated))
	}
	s.orch.Emit(events.New(events.TypeDissolutionInitiated, fundID, updated))
	s.orch.Audit(domain.AuditEnvelope{
		ActorID:    actorID,
		FundID:     &fundID,
		EntityType: "fund",
		EntityID:   fundID,
		ActionType: "DissolutionInitiated",
		ServiceName: "FundService",
	})
	return updated, nil
}

// ConfirmDissolution transitions Dissolving -> Dissolved. Callers (the
// dissolution service, C8) must have already confirmed the settlement is
// Ready before calling this.
func (s *FundService) ConfirmDissolution(fundID, actorID domain.ID, expectedVersion int64) (*domain.Fund, error) {
	f, err := s.fundRepo.GetByID(fundID)
	if err != nil {
		return nil, err
	}
	if err := f.ConfirmDissolution(); err != nil {
		return nil, err
	}
	f.UpdatedAt = time.Now().UTC()

	updated, err := s.fundRepo.Update(f, expectedVersion)
	if err != nil {
		return nil, err
	}
	if s.projRepo != nil {
		_, _ = s.projRepo.Upsert(domain.FundProjectionFromFund(updated))
	}
	s.orch.Emit(events.New(events.TypeFundDissolved, fundID, updated))
	s.orch.Audit(domain.AuditEnvelope{
		ActorID:    actorID,
		FundID:     &fundID,
		EntityType: "fund",
		EntityID:   fundID,
		ActionType: "FundDissolved",
		ServiceName: "FundService",
	})
	return updated, nil
}

// CreateMemberPlan creates a member's standing contribution plan. Amount is
// immutable after creation.
func (s *FundService) CreateMemberPlan(fundID, userID domain.ID, monthlyAmount domain.Money, joinDate time.Time) (*domain.MemberContributionPlan, error) {
	f, err := s.fundRepo.GetByID(fundID)
	if err != nil {
		return nil, err
	}
	if f.State != domain.FundStateActive {
		return nil, domain.ErrInvalidState
	}
	p := &domain.MemberContributionPlan{
		ID:                        domain.NewID(),
		FundID:                    fundID,
		UserID:                    userID,
		MonthlyContributionAmount: monthlyAmount,
		JoinDate:                  joinDate,
		IsActive:                  true,
		CreatedAt:                 time.Now().UTC(),
		UpdatedAt:                 time.Now().UTC(),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return s.planRepo.Create(p)
}

// InviteMember creates a pending invitation to join a fund. Fails
// ErrAlreadyExists if a pending invitation already exists for the contact.
func (s *FundService) InviteMember(fundID, invitedBy domain.ID, targetContact string) (*domain.Invitation, error) {
	f, err := s.fundRepo.GetByID(fundID)
	if err != nil {
		return nil, err
	}
	if f.State != domain.FundStateActive {
		return nil, domain.ErrInvalidState
	}
	if existing, err := s.inviteRepo.GetPending(fundID, targetContact); err == nil && existing != nil {
		return nil, domain.ErrAlreadyExists
	} else if err != nil && err != domain.ErrInvitationNotFound {
		return nil, err
	}

	now := time.Now().UTC()
	inv := &domain.Invitation{
		ID:            domain.NewID(),
		FundID:        fundID,
		TargetContact: targetContact,
		InvitedBy:     invitedBy,
		Status:        domain.InvitationStatusPending,
		ExpiresAt:     now.Add(domain.DefaultInvitationTTL),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	created, err := s.inviteRepo.Create(inv)
	if err != nil {
		return nil, err
	}
	s.orch.Emit(events.New(events.TypeInvitationSent, fundID, created))
	return created, nil
}

// AcceptInvitation accepts a pending invitation and joins the invitee as a
// Guest role assignment.
func (s *FundService) AcceptInvitation(inv *domain.Invitation, userID domain.ID) (*domain.FundRoleAssignment, error) {
	f, err := s.fundRepo.GetByID(inv.FundID)
	if err != nil {
		return nil, err
	}
	if f.State != domain.FundStateActive {
		return nil, domain.ErrInvalidState
	}
	if inv.IsExpired(time.Now().UTC()) {
		_ = inv.Expire()
		_, _ = s.inviteRepo.Update(inv)
		return nil, domain.ErrInvalidState
	}
	if err := inv.Accept(); err != nil {
		return nil, err
	}
	if _, err := s.inviteRepo.Update(inv); err != nil {
		return nil, err
	}
	return s.AssignRole(inv.FundID, userID, domain.FundRoleGuest, inv.InvitedBy)
}
