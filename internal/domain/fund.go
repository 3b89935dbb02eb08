package domain

import (
	"strings"
	"time"
)

// FundState is the fund lifecycle tag: Draft -> Active -> Dissolving -> Dissolved.
type FundState string

const (
	FundStateDraft      FundState = "draft"
	FundStateActive     FundState = "active"
	FundStateDissolving FundState = "dissolving"
	FundStateDissolved  FundState = "dissolved"
)

// LoanApprovalPolicy governs whether Approve requires a prior voting session.
type LoanApprovalPolicy string

const (
	LoanApprovalPolicyAdminOnly      LoanApprovalPolicy = "admin_only"
	LoanApprovalPolicyAdminWithVoting LoanApprovalPolicy = "admin_with_voting"
)

// OverduePenaltyType selects the penalty formula applied by the penalty engine (C7).
type OverduePenaltyType string

const (
	OverduePenaltyNone       OverduePenaltyType = "none"
	OverduePenaltyFlat       OverduePenaltyType = "flat"
	OverduePenaltyPercentage OverduePenaltyType = "percentage"
)

// Fund is the member-contributed lending pool aggregate. All config fields
// except Description are immutable once State != Draft.
type Fund struct {
	ID                           ID
	Name                         string
	Description                  *string
	Currency                     string
	MonthlyInterestRate          Rate
	MinimumMonthlyContribution   Money
	MinimumPrincipalPerRepayment Money
	LoanApprovalPolicy           LoanApprovalPolicy
	MaxLoanPerMember             *Money
	MaxConcurrentLoans           *int32
	OverduePenaltyType           OverduePenaltyType
	OverduePenaltyValue          Money
	ContributionDayOfMonth       int32
	GracePeriodDays              int32
	// MissedAfterDays is the optional second threshold (open question in
	// spec.md §9) after which a Late due becomes Missed instead. Nil means
	// Missed is never produced.
	MissedAfterDays *int32
	State           FundState
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Version         int64
}

// Validate checks the range invariants of spec.md §3 for a fund
// configuration, independent of lifecycle state.
func (f *Fund) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return NewValidationError("name", "name is required")
	}
	if f.MonthlyInterestRate.LessThanOrEqual(ZeroMoney) || f.MonthlyInterestRate.GreaterThan(decimalOne) {
		return NewValidationError("monthlyInterestRate", "must be in (0, 1]")
	}
	if f.MinimumMonthlyContribution.LessThanOrEqual(ZeroMoney) {
		return NewValidationError("minimumMonthlyContribution", "must be positive")
	}
	if f.MinimumPrincipalPerRepayment.LessThanOrEqual(ZeroMoney) {
		return NewValidationError("minimumPrincipalPerRepayment", "must be positive")
	}
	if f.LoanApprovalPolicy != LoanApprovalPolicyAdminOnly && f.LoanApprovalPolicy != LoanApprovalPolicyAdminWithVoting {
		return NewValidationError("loanApprovalPolicy", "invalid policy")
	}
	if f.MaxLoanPerMember != nil && f.MaxLoanPerMember.LessThanOrEqual(ZeroMoney) {
		return NewValidationError("maxLoanPerMember", "must be positive when set")
	}
	if f.MaxConcurrentLoans != nil && *f.MaxConcurrentLoans < 1 {
		return NewValidationError("maxConcurrentLoans", "must be at least 1 when set")
	}
	switch f.OverduePenaltyType {
	case OverduePenaltyNone, OverduePenaltyFlat, OverduePenaltyPercentage:
	default:
		return NewValidationError("overduePenaltyType", "invalid penalty type")
	}
	if f.OverduePenaltyValue.LessThan(ZeroMoney) {
		return NewValidationError("overduePenaltyValue", "must be >= 0")
	}
	if f.ContributionDayOfMonth < 1 || f.ContributionDayOfMonth > 28 {
		return NewValidationError("contributionDayOfMonth", "must be in [1, 28]")
	}
	if f.GracePeriodDays < 0 {
		return NewValidationError("gracePeriodDays", "must be >= 0")
	}
	return nil
}

// CanMutateConfig reports whether non-description fields may still change.
func (f *Fund) CanMutateConfig() bool {
	return f.State == FundStateDraft
}

// Activate transitions Draft -> Active. Callers must have already verified
// at least one Admin role assignment exists (FundService owns that check
// since it requires a repository read).
func (f *Fund) Activate() error {
	if f.State != FundStateDraft {
		return ErrInvalidState
	}
	f.State = FundStateActive
	return nil
}

// InitiateDissolution transitions Active -> Dissolving.
func (f *Fund) InitiateDissolution() error {
	if f.State != FundStateActive {
		return ErrInvalidState
	}
	f.State = FundStateDissolving
	return nil
}

// ConfirmDissolution transitions Dissolving -> Dissolved (terminal).
func (f *Fund) ConfirmDissolution() error {
	if f.State != FundStateDissolving {
		return ErrInvalidState
	}
	f.State = FundStateDissolved
	return nil
}

// IsTerminal reports whether the fund is in its terminal, read-only state.
func (f *Fund) IsTerminal() bool {
	return f.State == FundStateDissolved
}

// FundRole is a member's permission level within a fund.
type FundRole string

const (
	FundRoleAdmin  FundRole = "admin"
	FundRoleEditor FundRole = "editor"
	FundRoleGuest  FundRole = "guest"
)

// FundRoleAssignment binds a user to a role within a fund. Unique on
// (UserID, FundID).
type FundRoleAssignment struct {
	ID        ID
	FundID    ID
	UserID    ID
	Role      FundRole
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MemberContributionPlan is a member's standing monthly contribution
// commitment. Amount is immutable after creation. Unique on (UserID, FundID).
type MemberContributionPlan struct {
	ID                       ID
	FundID                   ID
	UserID                   ID
	MonthlyContributionAmount Money
	JoinDate                 time.Time
	IsActive                 bool
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

func (p *MemberContributionPlan) Validate() error {
	if p.MonthlyContributionAmount.LessThanOrEqual(ZeroMoney) {
		return NewValidationError("monthlyContributionAmount", "must be positive")
	}
	return nil
}

// InvitationStatus is the lifecycle of a pending fund invitation.
type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusDeclined InvitationStatus = "declined"
	InvitationStatusExpired  InvitationStatus = "expired"
)

// DefaultInvitationTTL is the default pending-invitation lifetime.
const DefaultInvitationTTL = 7 * 24 * time.Hour

// Invitation is a pending offer to join a fund. One pending invitation per
// (FundID, TargetContact) at a time.
type Invitation struct {
	ID            ID
	FundID        ID
	TargetContact string
	InvitedBy     ID
	Status        InvitationStatus
	ExpiresAt     time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsExpired reports whether the invitation's TTL has elapsed.
func (i *Invitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// Accept transitions Pending -> Accepted. Terminal states never re-transition.
func (i *Invitation) Accept() error {
	if i.Status != InvitationStatusPending {
		return ErrInvalidState
	}
	i.Status = InvitationStatusAccepted
	return nil
}

// Decline transitions Pending -> Declined.
func (i *Invitation) Decline() error {
	if i.Status != InvitationStatusPending {
		return ErrInvalidState
	}
	i.Status = InvitationStatusDeclined
	return nil
}

// Expire transitions Pending -> Expired.
func (i *Invitation) Expire() error {
	if i.Status != InvitationStatusPending {
		return ErrInvalidState
	}
	i.Status = InvitationStatusExpired
	return nil
}

// FundRepository persists Fund aggregates.
type FundRepository interface {
	Create(f *Fund) (*Fund, error)
	GetByID(id ID) (*Fund, error)
	Update(f *Fund, expectedVersion int64) (*Fund, error)
	ListByMember(userID ID) ([]*Fund, error)
	// ListActive returns every fund in State Active, the population the
	// periodic jobs (overdue detection, repayment generation, penalty
	// application) sweep once per tick.
	ListActive() ([]*Fund, error)
}

// FundRoleRepository persists FundRoleAssignments, owned exclusively by Fund.
type FundRoleRepository interface {
	Assign(a *FundRoleAssignment) (*FundRoleAssignment, error)
	Get(fundID, userID ID) (*FundRoleAssignment, error)
	Update(a *FundRoleAssignment) (*FundRoleAssignment, error)
	Remove(fundID, userID ID) error
	ListByFund(fundID ID) ([]*FundRoleAssignment, error)
	CountByRole(fundID ID, role FundRole) (int, error)
}

// MemberPlanRepository persists MemberContributionPlans, owned exclusively by Fund.
type MemberPlanRepository interface {
	Create(p *MemberContributionPlan) (*MemberContributionPlan, error)
	Get(fundID, userID ID) (*MemberContributionPlan, error)
	Update(p *MemberContributionPlan) (*MemberContributionPlan, error)
	ListActiveByFund(fundID ID) ([]*MemberContributionPlan, error)
}

// InvitationRepository persists Invitations.
type InvitationRepository interface {
	Create(inv *Invitation) (*Invitation, error)
	GetPending(fundID ID, targetContact string) (*Invitation, error)
	Update(inv *Invitation) (*Invitation, error)
	ListPendingExpiring(before time.Time) ([]*Invitation, error)
}

var decimalOne = mustDecimalOne()
