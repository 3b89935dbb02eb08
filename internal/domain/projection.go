package domain

// FundProjection is the eventually-consistent local read model the loan
// component consults so validation need not cross a network hop (spec.md
// §3, Design Notes). It mirrors a Fund's policy-relevant fields and is kept
// in step by consuming fund-lifecycle events; authoritative policy
// evaluation at approval time still happens inside the fund aggregate
// boundary via a fresh snapshot, not this projection.
type FundProjection struct {
	FundID                       ID
	MonthlyInterestRate          Rate
	MinimumPrincipalPerRepayment Money
	MaxLoanPerMember             *Money
	MaxConcurrentLoans           *int32
	LoanApprovalPolicy           LoanApprovalPolicy
	PenaltyType                  OverduePenaltyType
	PenaltyValue                 Money
	IsActive                     bool
}

// FundProjectionFromFund builds the advisory projection from an authoritative Fund.
func FundProjectionFromFund(f *Fund) *FundProjection {
	return &FundProjection{
		FundID:                       f.ID,
		MonthlyInterestRate:          f.MonthlyInterestRate,
		MinimumPrincipalPerRepayment: f.MinimumPrincipalPerRepayment,
		MaxLoanPerMember:             f.MaxLoanPerMember,
		MaxConcurrentLoans:           f.MaxConcurrentLoans,
		LoanApprovalPolicy:           f.LoanApprovalPolicy,
		PenaltyType:                  f.OverduePenaltyType,
		PenaltyValue:                 f.OverduePenaltyValue,
		IsActive:                     f.State == FundStateActive,
	}
}

// FundProjectionRepository persists the advisory FundProjection read model.
type FundProjectionRepository interface {
	Get(fundID ID) (*FundProjection, error)
	Upsert(p *FundProjection) (*FundProjection, error)
}
