package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountStatus is the lifecycle state of a credit line. Status flips are
// applied by the account-management layer, not by the billing engine.
type AccountStatus string

const (
	AccountStatusActive AccountStatus = "active"
	AccountStatusFrozen AccountStatus = "frozen"
	AccountStatusClosed AccountStatus = "closed"
)

// FeeSchedule configures the fees an account can incur. Flat amounts are in
// currency units, percentages are decimal fractions of the triggering amount.
type FeeSchedule struct {
	LateFee           decimal.Decimal `json:"late_fee"`
	OverLimitFee      decimal.Decimal `json:"over_limit_fee"`
	CashAdvanceFeePct decimal.Decimal `json:"cash_advance_fee_pct"`
	CashAdvanceFeeMin decimal.Decimal `json:"cash_advance_fee_min"`
	ForeignTxFeePct   decimal.Decimal `json:"foreign_tx_fee_pct"`
	AnnualFee         decimal.Decimal `json:"annual_fee"`
}

// Account represents a revolving credit-card account. The billing fields
// (limit, APR, anchor day, fee schedule) are immutable after creation; only
// Status is flipped externally.
type Account struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"user_id"`
	CreditLimit    decimal.Decimal `json:"credit_limit"`
	APR            decimal.Decimal `json:"apr"` // decimal fraction, e.g. 0.1899
	CycleAnchorDay int             `json:"cycle_anchor_day"`
	Fees           FeeSchedule     `json:"fees"`
	Status         AccountStatus   `json:"status"`
	StatementEmail string          `json:"statement_email,omitempty"`

	// Issued card details. The PAN and expiry are stored encrypted; the CVV
	// is stored only as a bcrypt hash.
	CardNumber string `json:"card_number"` // decrypted for responses
	CardExpiry string `json:"card_expiry"` // decrypted for responses
	CVVHash    string `json:"-"`
	CardHMAC   string `json:"card_hmac"`

	OpenedAt  time.Time `json:"opened_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
