package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CycleStatus is the lifecycle state of a billing cycle.
type CycleStatus string

const (
	CycleOpen         CycleStatus = "open"
	CycleClosedUnpaid CycleStatus = "closed_unpaid"
	CycleClosedPaid   CycleStatus = "closed_paid"
	CycleOverdue      CycleStatus = "overdue"
)

// BillingCycle is one closed, numbered interval [StartDate, EndDate) of an
// account's history. The numeric fields are fixed exactly once when the
// cycle closes; after that only Status, PaymentsMade and the timestamps
// mutate as payments arrive or time passes.
//
// Invariant for closed cycles:
//
//	EndingBalance = StartingBalance + TotalPurchases + FeesCharged + InterestCharged - TotalPayments
//
// Cycles for one account are contiguous: cycle n+1 starts exactly where
// cycle n ends.
type BillingCycle struct {
	ID          uuid.UUID `json:"id"`
	AccountID   uuid.UUID `json:"account_id"`
	CycleNumber int       `json:"cycle_number"`

	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"` // exclusive
	DueDate     time.Time `json:"due_date"`
	DaysInCycle int       `json:"days_in_cycle"`

	StartingBalance     decimal.Decimal `json:"starting_balance"`
	EndingBalance       decimal.Decimal `json:"ending_balance"`
	AverageDailyBalance decimal.Decimal `json:"average_daily_balance"`
	TotalPurchases      decimal.Decimal `json:"total_purchases"`
	TotalPayments       decimal.Decimal `json:"total_payments"`
	InterestCharged     decimal.Decimal `json:"interest_charged"`
	FeesCharged         decimal.Decimal `json:"fees_charged"`
	MinimumPayment      decimal.Decimal `json:"minimum_payment"`

	// PaymentsMade accumulates payments applied against this statement
	// after it closed, driving the paid/overdue flags.
	PaymentsMade decimal.Decimal `json:"payments_made"`

	Status    CycleStatus `json:"status"`
	ClosedAt  *time.Time  `json:"closed_at,omitempty"`
	PaidAt    *time.Time  `json:"paid_at,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// IsPaid reports whether the minimum payment has been met.
func (c *BillingCycle) IsPaid() bool {
	return c.Status == CycleClosedPaid
}

// IsOverdue reports whether the due date passed without sufficient payment.
func (c *BillingCycle) IsOverdue() bool {
	return c.Status == CycleOverdue
}

// Closed reports whether the cycle has left the OPEN state.
func (c *BillingCycle) Closed() bool {
	return c.Status != CycleOpen
}

// RemainingMinimum returns the portion of the minimum payment still owed.
func (c *BillingCycle) RemainingMinimum() decimal.Decimal {
	remaining := c.MinimumPayment.Sub(c.PaymentsMade)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}
