package engine

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/cardcore/billing-service/internal/models"
)

func TestProjectPayoffZeroBalance(t *testing.T) {
	proj, err := ProjectPayoff(decimal.Zero, decimal.RequireFromString("0.1899"),
		DefaultMinimumPaymentPolicy(), models.PaymentStrategy{Kind: models.StrategyMinimumOnly})
	if err != nil {
		t.Fatalf("ProjectPayoff: %v", err)
	}
	if proj.PayoffMonths != 0 || len(proj.Months) != 0 || proj.NeverPaysOff {
		t.Fatalf("zero balance should project to nothing, got %+v", proj)
	}
}

func TestProjectPayoffMinimumOnlyTerminates(t *testing.T) {
	proj, err := ProjectPayoff(decimal.NewFromInt(1000), decimal.RequireFromString("0.1899"),
		DefaultMinimumPaymentPolicy(), models.PaymentStrategy{Kind: models.StrategyMinimumOnly})
	if err != nil {
		t.Fatalf("ProjectPayoff: %v", err)
	}
	if proj.NeverPaysOff {
		t.Fatal("minimum-only on a modest balance must pay off")
	}
	if proj.PayoffMonths == 0 || proj.PayoffMonths > MaxProjectionMonths {
		t.Fatalf("implausible payoff months: %d", proj.PayoffMonths)
	}
	if !proj.TotalInterest.IsPositive() {
		t.Fatalf("expected positive total interest, got %s", proj.TotalInterest)
	}
	last := proj.Months[len(proj.Months)-1]
	if last.Balance.IsPositive() {
		t.Fatalf("final balance should reach zero, got %s", last.Balance)
	}
}

func TestProjectPayoffNeverPaysOff(t *testing.T) {
	// At 36% APR on a 20,000 balance the monthly interest (600) exceeds
	// both the fixed payment and the 2% floor (400): balance grows until
	// the simulation cap, which is a flagged outcome, not an error.
	proj, err := ProjectPayoff(decimal.NewFromInt(20000), decimal.RequireFromString("0.36"),
		DefaultMinimumPaymentPolicy(),
		models.PaymentStrategy{Kind: models.StrategyFixedAmount, Amount: decimal.NewFromInt(100)})
	if err != nil {
		t.Fatalf("ProjectPayoff: %v", err)
	}
	if !proj.NeverPaysOff {
		t.Fatal("expected NeverPaysOff flag")
	}
	if proj.PayoffMonths != 0 {
		t.Fatalf("payoff months should stay zero, got %d", proj.PayoffMonths)
	}
	if len(proj.Months) != MaxProjectionMonths {
		t.Fatalf("expected %d simulated months, got %d", MaxProjectionMonths, len(proj.Months))
	}
}

func TestProjectPayoffPaymentCappedAtBalance(t *testing.T) {
	proj, err := ProjectPayoff(decimal.NewFromInt(500), decimal.RequireFromString("0.1899"),
		DefaultMinimumPaymentPolicy(),
		models.PaymentStrategy{Kind: models.StrategyFixedAmount, Amount: decimal.NewFromInt(10000)})
	if err != nil {
		t.Fatalf("ProjectPayoff: %v", err)
	}
	if proj.PayoffMonths != 1 {
		t.Fatalf("oversized payment should clear in one month, got %d", proj.PayoffMonths)
	}
	first := proj.Months[0]
	if want := decimal.NewFromInt(500).Add(first.Interest); !first.Payment.Equal(want) {
		t.Fatalf("payment should cap at balance+interest: want %s, got %s", want, first.Payment)
	}
}

func TestProjectPayoffAggressiveBeatsMinimum(t *testing.T) {
	policy := DefaultMinimumPaymentPolicy()
	apr := decimal.RequireFromString("0.1899")
	balance := decimal.NewFromInt(5000)

	minOnly, err := ProjectPayoff(balance, apr, policy, models.PaymentStrategy{Kind: models.StrategyMinimumOnly})
	if err != nil {
		t.Fatalf("ProjectPayoff minimum: %v", err)
	}
	aggressive, err := ProjectPayoff(balance, apr, policy,
		models.PaymentStrategy{Kind: models.StrategyAggressive, Amount: decimal.NewFromInt(100)})
	if err != nil {
		t.Fatalf("ProjectPayoff aggressive: %v", err)
	}
	if aggressive.PayoffMonths >= minOnly.PayoffMonths {
		t.Fatalf("aggressive should pay off sooner: %d vs %d", aggressive.PayoffMonths, minOnly.PayoffMonths)
	}
	if !aggressive.TotalInterest.LessThan(minOnly.TotalInterest) {
		t.Fatalf("aggressive should accrue less interest: %s vs %s",
			aggressive.TotalInterest, minOnly.TotalInterest)
	}
}

func TestAnalyzeInterestSavingsRoundTrip(t *testing.T) {
	policy := DefaultMinimumPaymentPolicy()
	apr := decimal.RequireFromString("0.1899")
	balance := decimal.NewFromInt(5000)
	strategy := models.PaymentStrategy{Kind: models.StrategyFixedAmount, Amount: decimal.NewFromInt(300)}

	analysis, err := Analyze(balance, apr, policy, strategy)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if analysis.InterestSavings.IsNegative() {
		t.Fatalf("a larger fixed payment must not yield negative savings, got %s", analysis.InterestSavings)
	}

	baseline, err := ProjectPayoff(balance, apr, policy, models.PaymentStrategy{Kind: models.StrategyMinimumOnly})
	if err != nil {
		t.Fatalf("ProjectPayoff baseline: %v", err)
	}
	fixed, err := ProjectPayoff(balance, apr, policy, strategy)
	if err != nil {
		t.Fatalf("ProjectPayoff fixed: %v", err)
	}
	want := baseline.TotalInterest.Sub(fixed.TotalInterest)
	if !analysis.InterestSavings.Equal(want) {
		t.Fatalf("savings round-trip: want %s, got %s", want, analysis.InterestSavings)
	}
}

func TestAnalyzeMinimumOnlyHasZeroSavings(t *testing.T) {
	analysis, err := Analyze(decimal.NewFromInt(2500), decimal.RequireFromString("0.2199"),
		DefaultMinimumPaymentPolicy(), models.PaymentStrategy{Kind: models.StrategyMinimumOnly})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !analysis.InterestSavings.Equal(decimal.Zero) {
		t.Fatalf("baseline vs itself should save nothing, got %s", analysis.InterestSavings)
	}
	if !analysis.SuggestedPayment.IsPositive() {
		t.Fatalf("expected a positive suggested payment, got %s", analysis.SuggestedPayment)
	}
}

func TestProjectPayoffRejectsBadInput(t *testing.T) {
	policy := DefaultMinimumPaymentPolicy()
	if _, err := ProjectPayoff(decimal.NewFromInt(100), decimal.RequireFromString("-0.1"),
		policy, models.PaymentStrategy{Kind: models.StrategyMinimumOnly}); err == nil {
		t.Fatal("expected error for negative APR")
	}
	if _, err := ProjectPayoff(decimal.NewFromInt(100), decimal.RequireFromString("0.1"),
		policy, models.PaymentStrategy{Kind: "weekly"}); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
	if _, err := ProjectPayoff(decimal.NewFromInt(100), decimal.RequireFromString("0.1"),
		policy, models.PaymentStrategy{Kind: models.StrategyFixedAmount, Amount: decimal.NewFromInt(-5)}); err == nil {
		t.Fatal("expected error for negative strategy amount")
	}
}
