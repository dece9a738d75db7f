package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cardcore/billing-service/internal/models"
)

// validTransitions encodes the cycle lifecycle:
//
//	OPEN -> CLOSED_UNPAID -> CLOSED_PAID
//	                      -> OVERDUE -> CLOSED_PAID
//
// Nothing leaves CLOSED_PAID and no closed cycle re-opens.
var validTransitions = map[models.CycleStatus][]models.CycleStatus{
	models.CycleOpen:         {models.CycleClosedUnpaid},
	models.CycleClosedUnpaid: {models.CycleClosedPaid, models.CycleOverdue},
	models.CycleOverdue:      {models.CycleClosedPaid},
	models.CycleClosedPaid:   {},
}

// CanTransition reports whether from -> to is a legal transition.
func CanTransition(from, to models.CycleStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func transition(c *models.BillingCycle, to models.CycleStatus) error {
	if !CanTransition(c.Status, to) {
		return &InvalidCycleTransitionError{From: c.Status, To: to}
	}
	c.Status = to
	return nil
}

// ClosingFigures are the numeric fields fixed when a cycle closes. They are
// computed exactly once; a closed cycle's numbers are never recomputed.
type ClosingFigures struct {
	EndingBalance       decimal.Decimal
	AverageDailyBalance decimal.Decimal
	TotalPurchases      decimal.Decimal
	TotalPayments       decimal.Decimal
	InterestCharged     decimal.Decimal
	FeesCharged         decimal.Decimal
	MinimumPayment      decimal.Decimal
}

// CloseCycle fires OPEN -> CLOSED_UNPAID, fixing the cycle's numbers. A
// cycle with nothing owed closes directly as paid.
func CloseCycle(c *models.BillingCycle, figures ClosingFigures, now time.Time) error {
	if err := transition(c, models.CycleClosedUnpaid); err != nil {
		return err
	}
	c.EndingBalance = figures.EndingBalance
	c.AverageDailyBalance = figures.AverageDailyBalance
	c.TotalPurchases = figures.TotalPurchases
	c.TotalPayments = figures.TotalPayments
	c.InterestCharged = figures.InterestCharged
	c.FeesCharged = figures.FeesCharged
	c.MinimumPayment = figures.MinimumPayment
	closedAt := now
	c.ClosedAt = &closedAt

	if c.MinimumPayment.Sign() <= 0 {
		paidAt := now
		c.PaidAt = &paidAt
		return transition(c, models.CycleClosedPaid)
	}
	return nil
}

// RegisterPayment accumulates a payment against a closed cycle and fires
// CLOSED_UNPAID/OVERDUE -> CLOSED_PAID once cumulative payments reach the
// minimum. A late payment against an OVERDUE cycle still transitions to
// paid; the late-fee ledger entry that triggered OVERDUE is not reversed.
// Payments cannot be applied to an OPEN cycle's statement.
func RegisterPayment(c *models.BillingCycle, amount decimal.Decimal, when time.Time) error {
	if c.Status == models.CycleOpen {
		return &InvalidCycleTransitionError{From: c.Status, To: models.CycleClosedPaid}
	}
	if !amount.IsPositive() {
		return &MalformedLedgerError{Reason: "payment amount must be positive"}
	}
	c.PaymentsMade = c.PaymentsMade.Add(amount)
	if c.Status != models.CycleClosedPaid && c.PaymentsMade.GreaterThanOrEqual(c.MinimumPayment) {
		paidAt := when
		c.PaidAt = &paidAt
		return transition(c, models.CycleClosedPaid)
	}
	return nil
}

// MarkOverdue fires CLOSED_UNPAID -> OVERDUE once the due date has passed
// with insufficient payment.
func MarkOverdue(c *models.BillingCycle, now time.Time) error {
	if now.Before(c.DueDate) {
		return &InvalidCycleTransitionError{From: c.Status, To: models.CycleOverdue}
	}
	return transition(c, models.CycleOverdue)
}
