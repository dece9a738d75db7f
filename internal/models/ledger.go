package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryKind classifies a ledger entry.
type EntryKind string

const (
	EntryPurchase    EntryKind = "purchase"
	EntryPayment     EntryKind = "payment"
	EntryFee         EntryKind = "fee"
	EntryInterest    EntryKind = "interest"
	EntryRefund      EntryKind = "refund"
	EntryCashAdvance EntryKind = "cash_advance"
)

// Valid reports whether k is a known entry kind.
func (k EntryKind) Valid() bool {
	switch k {
	case EntryPurchase, EntryPayment, EntryFee, EntryInterest, EntryRefund, EntryCashAdvance:
		return true
	}
	return false
}

// Debit reports whether entries of this kind increase the balance owed.
func (k EntryKind) Debit() bool {
	switch k {
	case EntryPurchase, EntryFee, EntryInterest, EntryCashAdvance:
		return true
	}
	return false
}

// LedgerEntry is an immutable, signed, dated amount posted against an
// account. Debits (purchases, fees, interest, cash advances) carry positive
// amounts; credits (payments, refunds) carry negative amounts. Entries are
// append-only and ordered by posting date, then Sequence for same-day
// tie-breaking.
type LedgerEntry struct {
	ID          uuid.UUID       `json:"id"`
	AccountID   uuid.UUID       `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	Kind        EntryKind       `json:"kind"`
	Description string          `json:"description,omitempty"`
	Foreign     bool            `json:"foreign,omitempty"`
	PostedAt    time.Time       `json:"posted_at"`
	Sequence    int64           `json:"sequence"`
	CreatedAt   time.Time       `json:"created_at"`
}
