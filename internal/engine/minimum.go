package engine

import "github.com/shopspring/decimal"

// MinimumPaymentPolicy derives the minimum payment owed on a closed cycle.
type MinimumPaymentPolicy struct {
	// FloorPercentage is the fraction of the ending balance forming the
	// principal floor, e.g. 0.02.
	FloorPercentage decimal.Decimal
	// FlatMinimum is the smallest principal floor in currency units.
	FlatMinimum decimal.Decimal
}

// DefaultMinimumPaymentPolicy returns the 2% / $35 defaults.
func DefaultMinimumPaymentPolicy() MinimumPaymentPolicy {
	return MinimumPaymentPolicy{
		FloorPercentage: decimal.NewFromFloat(0.02),
		FlatMinimum:     decimal.NewFromInt(35),
	}
}

// Validate checks the policy parameters.
func (p MinimumPaymentPolicy) Validate() error {
	if !p.FloorPercentage.IsPositive() || p.FloorPercentage.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return &ConfigurationError{Field: "floorPercentage", Reason: "must be a fraction between 0 and 1"}
	}
	if p.FlatMinimum.IsNegative() {
		return &ConfigurationError{Field: "flatMinimum", Reason: "must not be negative"}
	}
	return nil
}

// PaymentFloor is the principal component of the minimum payment:
// max(floorPercentage * balance, flatMinimum), capped at the balance itself.
// This is also the per-month minimum the payoff projector floors payments
// at.
func (p MinimumPaymentPolicy) PaymentFloor(balance decimal.Decimal) decimal.Decimal {
	if balance.Sign() <= 0 {
		return decimal.Zero
	}
	floor := p.FloorPercentage.Mul(balance)
	if floor.LessThan(p.FlatMinimum) {
		floor = p.FlatMinimum
	}
	if floor.GreaterThan(balance) {
		floor = balance
	}
	return floor
}

// MinimumPayment computes the minimum due on a closed cycle:
//
//	max(floorPercentage * endingBalance, flatMinimum) + interest + fees
//
// rounded up to the nearest currency unit, since under-charging a minimum is
// the unsafe direction. A cycle whose ending balance is zero or negative
// owes nothing.
func (p MinimumPaymentPolicy) MinimumPayment(endingBalance, interest, fees decimal.Decimal) decimal.Decimal {
	if endingBalance.Sign() <= 0 {
		return decimal.Zero
	}
	return p.PaymentFloor(endingBalance).Add(interest).Add(fees).RoundCeil(2)
}
