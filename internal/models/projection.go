package models

import "github.com/shopspring/decimal"

// StrategyKind selects how the payoff projector sizes monthly payments.
type StrategyKind string

const (
	StrategyMinimumOnly StrategyKind = "minimum_only"
	StrategyFixedAmount StrategyKind = "fixed_amount"
	StrategyAggressive  StrategyKind = "aggressive"
)

// Valid reports whether k is a known strategy kind.
func (k StrategyKind) Valid() bool {
	switch k {
	case StrategyMinimumOnly, StrategyFixedAmount, StrategyAggressive:
		return true
	}
	return false
}

// PaymentStrategy parameterizes a payoff projection. Amount is the fixed
// monthly payment for fixed_amount, or the extra paid on top of the minimum
// for aggressive; it is ignored for minimum_only.
type PaymentStrategy struct {
	Kind   StrategyKind    `json:"kind"`
	Amount decimal.Decimal `json:"amount"`
}

// MonthlyProjection is one simulated month of amortization.
type MonthlyProjection struct {
	Month    int             `json:"month"`
	Payment  decimal.Decimal `json:"payment"`
	Interest decimal.Decimal `json:"interest"`
	Balance  decimal.Decimal `json:"balance"`
}

// PayoffProjection is an ephemeral simulation result. It is never persisted;
// it is recomputed on demand from a balance/APR/strategy triple.
type PayoffProjection struct {
	Months        []MonthlyProjection `json:"months"`
	PayoffMonths  int                 `json:"payoff_months"`
	TotalInterest decimal.Decimal     `json:"total_interest"`
	TotalPaid     decimal.Decimal     `json:"total_paid"`

	// NeverPaysOff flags a projection that hit the simulation cap with a
	// positive balance. This is an expected outcome (payment below interest
	// accrual), not an error.
	NeverPaysOff bool `json:"never_pays_off"`
}

// PaymentAnalysis compares a payment strategy against the minimum-only
// baseline for the account's current balance.
type PaymentAnalysis struct {
	MinimumPayment   decimal.Decimal `json:"minimum_payment"`
	SuggestedPayment decimal.Decimal `json:"suggested_payment"`
	PayoffMonths     int             `json:"payoff_months"`
	TotalInterest    decimal.Decimal `json:"total_interest"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	InterestSavings  decimal.Decimal `json:"interest_savings"`
	NeverPaysOff     bool            `json:"never_pays_off"`
}

// InterestCalculationResult re-exposes the interest math for a closed cycle.
// All fields derive from stored cycle and account fields; nothing is
// recomputed from the ledger.
type InterestCalculationResult struct {
	DailyRate           decimal.Decimal `json:"daily_rate"`
	MonthlyInterest     decimal.Decimal `json:"monthly_interest"`
	CompoundedInterest  decimal.Decimal `json:"compounded_interest"`
	AverageDailyBalance decimal.Decimal `json:"average_daily_balance"`
	DaysInCycle         int             `json:"days_in_cycle"`
}
