package engine

import (
	"github.com/shopspring/decimal"

	"github.com/cardcore/billing-service/internal/models"
)

// MaxProjectionMonths caps the payoff simulation. Hitting the cap sets the
// NeverPaysOff flag on the projection instead of returning an error, since
// a payment below interest accrual is an expected user-facing outcome.
const MaxProjectionMonths = 600

// ProjectPayoff simulates month-by-month amortization of a balance under a
// payment strategy. Each month accrues interest at the monthly-equivalent
// rate apr/12, then applies the strategy's payment, floored at the policy's
// payment floor and capped at balance plus interest.
//
// The projection is ephemeral: it reads nothing from and writes nothing to
// persisted cycle history.
func ProjectPayoff(startingBalance, apr decimal.Decimal, policy MinimumPaymentPolicy, strategy models.PaymentStrategy) (*models.PayoffProjection, error) {
	if apr.IsNegative() {
		return nil, &ConfigurationError{Field: "apr", Reason: "must not be negative"}
	}
	if !strategy.Kind.Valid() {
		return nil, &ConfigurationError{Field: "strategy", Reason: "unknown payment strategy"}
	}
	if strategy.Kind != models.StrategyMinimumOnly && strategy.Amount.IsNegative() {
		return nil, &ConfigurationError{Field: "strategy.amount", Reason: "must not be negative"}
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	proj := &models.PayoffProjection{}
	balance := startingBalance
	if balance.Sign() <= 0 {
		return proj, nil
	}

	monthlyRate := MonthlyRate(apr)
	for month := 1; month <= MaxProjectionMonths; month++ {
		interest := balance.Mul(monthlyRate).Round(2)
		minimum := policy.PaymentFloor(balance)

		var payment decimal.Decimal
		switch strategy.Kind {
		case models.StrategyMinimumOnly:
			payment = minimum
		case models.StrategyFixedAmount:
			payment = strategy.Amount
			if payment.LessThan(minimum) {
				payment = minimum
			}
		case models.StrategyAggressive:
			payment = minimum.Add(strategy.Amount)
		}
		if cap := balance.Add(interest); payment.GreaterThan(cap) {
			payment = cap
		}

		balance = balance.Add(interest).Sub(payment)
		proj.TotalInterest = proj.TotalInterest.Add(interest)
		proj.TotalPaid = proj.TotalPaid.Add(payment)
		proj.Months = append(proj.Months, models.MonthlyProjection{
			Month:    month,
			Payment:  payment,
			Interest: interest,
			Balance:  balance,
		})

		if balance.Sign() <= 0 {
			proj.PayoffMonths = month
			return proj, nil
		}
	}

	proj.NeverPaysOff = true
	return proj, nil
}

// Analyze runs the strategy against a minimum-only baseline and reports the
// comparison. InterestSavings is baseline interest minus strategy interest;
// a strategy paying at least the minimum every month never yields negative
// savings.
func Analyze(startingBalance, apr decimal.Decimal, policy MinimumPaymentPolicy, strategy models.PaymentStrategy) (*models.PaymentAnalysis, error) {
	proj, err := ProjectPayoff(startingBalance, apr, policy, strategy)
	if err != nil {
		return nil, err
	}
	baseline := proj
	if strategy.Kind != models.StrategyMinimumOnly {
		baseline, err = ProjectPayoff(startingBalance, apr, policy, models.PaymentStrategy{Kind: models.StrategyMinimumOnly})
		if err != nil {
			return nil, err
		}
	}

	analysis := &models.PaymentAnalysis{
		MinimumPayment:  policy.PaymentFloor(startingBalance).RoundCeil(2),
		PayoffMonths:    proj.PayoffMonths,
		TotalInterest:   proj.TotalInterest,
		TotalPaid:       proj.TotalPaid,
		InterestSavings: baseline.TotalInterest.Sub(proj.TotalInterest),
		NeverPaysOff:    proj.NeverPaysOff,
	}
	if len(proj.Months) > 0 {
		analysis.SuggestedPayment = proj.Months[0].Payment
	}
	return analysis, nil
}
