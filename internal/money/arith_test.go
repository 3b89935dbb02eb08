package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestMonthlyInterest(t *testing.T) {
	// S2: outstanding 10000, rate 0.02 -> interest 200.00
	got := MonthlyInterest(dec("10000"), dec("0.02"))
	want := dec("200.00")
	if !got.Equal(want) {
		t.Errorf("MonthlyInterest() = %s, want %s", got, want)
	}
}

func TestMonthlyInterest_BankersRounding(t *testing.T) {
	// 0.125 rounds to even: 0.12
	got := MonthlyInterest(dec("1"), dec("0.125"))
	want := dec("0.12")
	if !got.Equal(want) {
		t.Errorf("MonthlyInterest() = %s, want %s", got, want)
	}
}

func TestPrincipalDue_StandardCase(t *testing.T) {
	// S2: outstanding 10000, min 1000, installment 2000, interest 200 -> 1800
	got := PrincipalDue(dec("10000"), dec("1000"), dec("2000"), dec("200"))
	want := dec("1800")
	if !got.Equal(want) {
		t.Errorf("PrincipalDue() = %s, want %s", got, want)
	}
}

func TestPrincipalDue_InstallmentBelowInterest(t *testing.T) {
	// installment <= interest -> min(outstanding, minPrincipal)
	got := PrincipalDue(dec("10000"), dec("1000"), dec("150"), dec("200"))
	want := dec("1000")
	if !got.Equal(want) {
		t.Errorf("PrincipalDue() = %s, want %s", got, want)
	}
}

func TestPrincipalDue_FinalInstallment(t *testing.T) {
	// outstanding < minPrincipal -> outstanding itself
	got := PrincipalDue(dec("500"), dec("1000"), dec("2000"), dec("10"))
	want := dec("500")
	if !got.Equal(want) {
		t.Errorf("PrincipalDue() = %s, want %s", got, want)
	}
}

func TestPrincipalDue_CapsAtOutstanding(t *testing.T) {
	got := PrincipalDue(dec("1500"), dec("1000"), dec("5000"), dec("0"))
	want := dec("1500")
	if !got.Equal(want) {
		t.Errorf("PrincipalDue() = %s, want %s", got, want)
	}
}

func TestApplyPayment_S2Scenario(t *testing.T) {
	// S2: interestOutstanding 200, principalDueRemaining 1800, loan outstanding 10000, payment 2500
	got := ApplyPayment(dec("2500"), dec("200"), dec("1800"), dec("10000"))

	if !got.InterestPaid.Equal(dec("200")) {
		t.Errorf("InterestPaid = %s, want 200", got.InterestPaid)
	}
	if !got.PrincipalPaid.Equal(dec("1800")) {
		t.Errorf("PrincipalPaid = %s, want 1800", got.PrincipalPaid)
	}
	if !got.ExcessAppliedToPrincipal.Equal(dec("500")) {
		t.Errorf("ExcessAppliedToPrincipal = %s, want 500", got.ExcessAppliedToPrincipal)
	}
	if !got.NewLoanOutstanding.Equal(dec("7700")) {
		t.Errorf("NewLoanOutstanding = %s, want 7700", got.NewLoanOutstanding)
	}
	if !got.ExcessNotApplied.Equal(ZeroForTest()) {
		t.Errorf("ExcessNotApplied = %s, want 0", got.ExcessNotApplied)
	}
}

func TestApplyPayment_TotalsPreserved(t *testing.T) {
	// Invariant: interestPaid + principalPaid + excessToPrincipal + excessNotApplied == amount
	amount := dec("3000")
	got := ApplyPayment(amount, dec("100"), dec("500"), dec("1000"))
	sum := got.InterestPaid.Add(got.PrincipalPaid).Add(got.ExcessAppliedToPrincipal).Add(got.ExcessNotApplied)
	if !sum.Equal(amount) {
		t.Errorf("sum of allocations = %s, want %s", sum, amount)
	}
	if got.NewLoanOutstanding.IsNegative() {
		t.Errorf("NewLoanOutstanding went negative: %s", got.NewLoanOutstanding)
	}
}

func TestApplyPayment_OverpayBeyondOutstanding(t *testing.T) {
	// Payment exceeds interest + principal due + remaining loan outstanding entirely.
	got := ApplyPayment(dec("500"), dec("50"), dec("50"), dec("100"))
	if !got.NewLoanOutstanding.Equal(ZeroForTest()) {
		t.Errorf("NewLoanOutstanding = %s, want 0", got.NewLoanOutstanding)
	}
	if !got.ExcessNotApplied.Equal(dec("350")) {
		t.Errorf("ExcessNotApplied = %s, want 350", got.ExcessNotApplied)
	}
}

func ZeroForTest() decimal.Decimal { return decimal.Zero }
