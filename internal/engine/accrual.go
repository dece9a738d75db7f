package engine

import (
	"github.com/shopspring/decimal"

	"github.com/cardcore/billing-service/internal/models"
)

var (
	daysPerYear   = decimal.NewFromInt(365)
	monthsPerYear = decimal.NewFromInt(12)
)

const centPrecision = int32(2)

// DailyRate converts an APR (decimal fraction) to the simple daily periodic
// rate apr/365.
func DailyRate(apr decimal.Decimal) decimal.Decimal {
	return apr.Div(daysPerYear)
}

// MonthlyRate converts an APR to the monthly-equivalent rate apr/12 used by
// the payoff projector.
func MonthlyRate(apr decimal.Decimal) decimal.Decimal {
	return apr.Div(monthsPerYear)
}

// InterestCharge computes the interest accrued over a cycle:
//
//	dailyRate * averageDailyBalance * daysInCycle
//
// rounded half-up to the smallest currency unit. Accounts in credit
// (averageDailyBalance <= 0) accrue zero interest; the result is never
// negative.
func InterestCharge(averageDailyBalance, apr decimal.Decimal, daysInCycle int) (decimal.Decimal, error) {
	if apr.IsNegative() {
		return decimal.Zero, &ConfigurationError{Field: "apr", Reason: "must not be negative"}
	}
	if daysInCycle <= 0 {
		return decimal.Zero, &ConfigurationError{Field: "daysInCycle", Reason: "must be positive"}
	}
	if averageDailyBalance.Sign() <= 0 {
		return decimal.Zero, nil
	}
	days := decimal.NewFromInt(int64(daysInCycle))
	return DailyRate(apr).Mul(averageDailyBalance).Mul(days).Round(centPrecision), nil
}

// CompoundedInterest reports what daily compounding over the cycle would
// have charged: adb * ((1+dailyRate)^days - 1). Exposed in interest
// breakdowns for comparison; the cycle itself accrues simple interest.
func CompoundedInterest(averageDailyBalance, apr decimal.Decimal, daysInCycle int) decimal.Decimal {
	if averageDailyBalance.Sign() <= 0 || daysInCycle <= 0 || !apr.IsPositive() {
		return decimal.Zero
	}
	growth := decimal.NewFromInt(1).Add(DailyRate(apr)).
		Pow(decimal.NewFromInt(int64(daysInCycle))).
		Sub(decimal.NewFromInt(1))
	return averageDailyBalance.Mul(growth).Round(centPrecision)
}

// FeeAssessment breaks down the fees charged at cycle close.
type FeeAssessment struct {
	LedgerFees      decimal.Decimal // fee-kind entries already posted in the cycle (late fees, manual fees)
	CashAdvanceFees decimal.Decimal
	ForeignTxFees   decimal.Decimal
	OverLimitFee    decimal.Decimal
	AnnualFee       decimal.Decimal
	Total           decimal.Decimal
}

// AssessFees computes the cycle's fees from the account's fee schedule and
// the cycle's ledger entries. Fee-kind entries (e.g. the late fee posted
// when a previous cycle went overdue) are summed as-is; cash-advance and
// foreign-transaction fees are assessed per triggering entry; the over-limit
// fee is charged once if any daily balance exceeded the credit limit.
func AssessFees(entries []models.LedgerEntry, daily []decimal.Decimal, account *models.Account, annualFeeDue bool) FeeAssessment {
	var a FeeAssessment
	fees := account.Fees

	for _, e := range entries {
		switch e.Kind {
		case models.EntryFee:
			a.LedgerFees = a.LedgerFees.Add(e.Amount.Abs())
		case models.EntryCashAdvance:
			fee := fees.CashAdvanceFeePct.Mul(e.Amount.Abs()).Round(centPrecision)
			if fee.LessThan(fees.CashAdvanceFeeMin) {
				fee = fees.CashAdvanceFeeMin
			}
			a.CashAdvanceFees = a.CashAdvanceFees.Add(fee)
		}
		if e.Foreign && e.Kind.Debit() {
			a.ForeignTxFees = a.ForeignTxFees.Add(
				fees.ForeignTxFeePct.Mul(e.Amount.Abs()).Round(centPrecision))
		}
	}

	if account.CreditLimit.IsPositive() {
		for _, b := range daily {
			if b.GreaterThan(account.CreditLimit) {
				a.OverLimitFee = fees.OverLimitFee
				break
			}
		}
	}

	if annualFeeDue {
		a.AnnualFee = fees.AnnualFee
	}

	a.Total = a.LedgerFees.
		Add(a.CashAdvanceFees).
		Add(a.ForeignTxFees).
		Add(a.OverLimitFee).
		Add(a.AnnualFee)
	return a
}

// ValidateAccount checks the billing configuration of an account at
// creation time. Accounts restrict the anchor day to 1-28 so cycle starts
// never depend on month length; the partitioner itself tolerates 29-31 by
// clamping.
func ValidateAccount(account *models.Account) error {
	if account.APR.IsNegative() {
		return &ConfigurationError{Field: "apr", Reason: "must not be negative"}
	}
	if account.CycleAnchorDay < 1 || account.CycleAnchorDay > 28 {
		return &ConfigurationError{Field: "cycleAnchorDay", Reason: "must be between 1 and 28"}
	}
	if !account.CreditLimit.IsPositive() {
		return &ConfigurationError{Field: "creditLimit", Reason: "must be positive"}
	}
	for field, v := range map[string]decimal.Decimal{
		"lateFee":           account.Fees.LateFee,
		"overLimitFee":      account.Fees.OverLimitFee,
		"cashAdvanceFeePct": account.Fees.CashAdvanceFeePct,
		"cashAdvanceFeeMin": account.Fees.CashAdvanceFeeMin,
		"foreignTxFeePct":   account.Fees.ForeignTxFeePct,
		"annualFee":         account.Fees.AnnualFee,
	} {
		if v.IsNegative() {
			return &ConfigurationError{Field: field, Reason: "must not be negative"}
		}
	}
	return nil
}
