// Package money implements the fixed-scale decimal arithmetic helpers the
// financial core relies on for interest, principal-due, and payment
// allocation math (spec.md §4.1, component C1). These functions are pure:
// no I/O, no suspension points, safe to call from aggregate methods.
package money

import "github.com/shopspring/decimal"

// round2 rounds to 2 fractional digits, round-half-to-even, on the final
// step only.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(2)
}

// MonthlyInterest computes round₂(principal · rate).
func MonthlyInterest(principal, rate decimal.Decimal) decimal.Decimal {
	return round2(principal.Mul(rate))
}

// PrincipalDue computes the principal portion of a monthly installment per
// spec.md §4.1:
//
//	principalDue = min(outstanding, max(minPrincipal, installment - interest))
//
// with two overrides:
//   - if the raw installment-minus-interest figure is negative or the
//     installment is <= interest, fall back to min(outstanding, minPrincipal);
//   - if outstanding < minPrincipal, return outstanding unchanged (final
//     installment never overshoots what's left to repay).
func PrincipalDue(outstanding, minPrincipal, installment, interest decimal.Decimal) decimal.Decimal {
	if outstanding.LessThan(minPrincipal) {
		return outstanding
	}

	raw := installment.Sub(interest)
	var candidate decimal.Decimal
	if installment.LessThanOrEqual(interest) || raw.IsNegative() {
		candidate = minPrincipal
	} else if raw.GreaterThan(minPrincipal) {
		candidate = raw
	} else {
		candidate = minPrincipal
	}

	if candidate.GreaterThan(outstanding) {
		return outstanding
	}
	return candidate
}

// FlatPenalty computes round₂(penaltyValue) for a flat-type penalty.
func FlatPenalty(penaltyValue decimal.Decimal) decimal.Decimal {
	return round2(penaltyValue)
}

// PercentagePenalty computes round₂(overdueAmount · penaltyValue / 100) for
// a percentage-type penalty, where penaltyValue is expressed in whole
// percent (e.g. 5 for 5%).
func PercentagePenalty(overdueAmount, penaltyValue decimal.Decimal) decimal.Decimal {
	return round2(overdueAmount.Mul(penaltyValue).Div(decimal.NewFromInt(100)))
}

// PaymentAllocation is the result of applying a cash payment to a
// repayment entry and its loan.
type PaymentAllocation struct {
	InterestPaid          decimal.Decimal
	PrincipalPaid         decimal.Decimal
	ExcessAppliedToPrincipal decimal.Decimal
	ExcessNotApplied      decimal.Decimal
	NewLoanOutstanding    decimal.Decimal
}

// ApplyPayment allocates amount first to interestOutstanding, then to
// principalDueRemaining, then reduces the loan's outstanding principal
// directly; any amount beyond the loan's outstanding principal is returned
// as ExcessNotApplied rather than applied (spec.md §4.1 — the caller
// decides, default is to reject).
func ApplyPayment(amount, interestOutstanding, principalDueRemaining, loanOutstandingPrincipal decimal.Decimal) PaymentAllocation {
	remaining := amount

	interestPaid := decimal.Min(remaining, interestOutstanding)
	remaining = remaining.Sub(interestPaid)

	principalPaid := decimal.Min(remaining, principalDueRemaining)
	remaining = remaining.Sub(principalPaid)

	remainingLoanOutstanding := loanOutstandingPrincipal.Sub(principalPaid)
	excessToPrincipal := decimal.Min(remaining, remainingLoanOutstanding)
	remaining = remaining.Sub(excessToPrincipal)

	newLoanOutstanding := remainingLoanOutstanding.Sub(excessToPrincipal)

	return PaymentAllocation{
		InterestPaid:             interestPaid,
		PrincipalPaid:            principalPaid,
		ExcessAppliedToPrincipal: excessToPrincipal,
		ExcessNotApplied:         remaining,
		NewLoanOutstanding:       newLoanOutstanding,
	}
}
