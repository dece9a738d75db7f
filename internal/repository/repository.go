package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cardcore/billing-service/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("repository: not found")

// Repository provides database operations for accounts, ledger entries and
// billing cycles.
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateAccount creates a new account in the database
func (r *Repository) CreateAccount(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO billing.accounts (
			id, user_id, credit_limit, apr, cycle_anchor_day,
			late_fee, over_limit_fee, cash_advance_fee_pct, cash_advance_fee_min,
			foreign_tx_fee_pct, annual_fee,
			status, statement_email, card_number, card_expiry, cvv_hash, card_hmac,
			opened_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		account.ID, account.UserID, account.CreditLimit, account.APR, account.CycleAnchorDay,
		account.Fees.LateFee, account.Fees.OverLimitFee, account.Fees.CashAdvanceFeePct,
		account.Fees.CashAdvanceFeeMin, account.Fees.ForeignTxFeePct, account.Fees.AnnualFee,
		account.Status, account.StatementEmail, account.CardNumber, account.CardExpiry,
		account.CVVHash, account.CardHMAC, account.OpenedAt).
		Scan(&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// FindAccount retrieves an account by ID
func (r *Repository) FindAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	account := &models.Account{}
	query := `
		SELECT id, user_id, credit_limit, apr, cycle_anchor_day,
			late_fee, over_limit_fee, cash_advance_fee_pct, cash_advance_fee_min,
			foreign_tx_fee_pct, annual_fee,
			status, statement_email, card_number, card_expiry, cvv_hash, card_hmac,
			opened_at, created_at, updated_at
		FROM billing.accounts
		WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&account.ID, &account.UserID, &account.CreditLimit, &account.APR, &account.CycleAnchorDay,
		&account.Fees.LateFee, &account.Fees.OverLimitFee, &account.Fees.CashAdvanceFeePct,
		&account.Fees.CashAdvanceFeeMin, &account.Fees.ForeignTxFeePct, &account.Fees.AnnualFee,
		&account.Status, &account.StatementEmail, &account.CardNumber, &account.CardExpiry,
		&account.CVVHash, &account.CardHMAC, &account.OpenedAt, &account.CreatedAt, &account.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return account, nil
}

// CreateLedgerEntry appends an entry to the account's ledger. The sequence
// number assigned by the database provides same-day ordering.
func (r *Repository) CreateLedgerEntry(ctx context.Context, entry *models.LedgerEntry) error {
	query := `
		INSERT INTO billing.ledger_entries (
			id, account_id, amount, kind, description, foreign_tx, posted_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP)
		RETURNING sequence, created_at`
	err := r.db.QueryRowContext(ctx, query,
		entry.ID, entry.AccountID, entry.Amount, entry.Kind, entry.Description,
		entry.Foreign, entry.PostedAt).
		Scan(&entry.Sequence, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}
	return nil
}

// ListLedgerEntries returns entries posted in [from, to), ordered by posting
// date then sequence.
func (r *Repository) ListLedgerEntries(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]models.LedgerEntry, error) {
	query := `
		SELECT id, account_id, amount, kind, description, foreign_tx, posted_at, sequence, created_at
		FROM billing.ledger_entries
		WHERE account_id = $1 AND posted_at >= $2 AND posted_at < $3
		ORDER BY posted_at, sequence`
	rows, err := r.db.QueryContext(ctx, query, accountID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Amount, &e.Kind, &e.Description,
			&e.Foreign, &e.PostedAt, &e.Sequence, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}
	return entries, nil
}

const cycleColumns = `
	id, account_id, cycle_number, start_date, end_date, due_date, days_in_cycle,
	starting_balance, ending_balance, average_daily_balance,
	total_purchases, total_payments, interest_charged, fees_charged,
	minimum_payment, payments_made, status, closed_at, paid_at, created_at, updated_at`

func scanCycle(row interface{ Scan(...any) error }) (*models.BillingCycle, error) {
	c := &models.BillingCycle{}
	err := row.Scan(
		&c.ID, &c.AccountID, &c.CycleNumber, &c.StartDate, &c.EndDate, &c.DueDate, &c.DaysInCycle,
		&c.StartingBalance, &c.EndingBalance, &c.AverageDailyBalance,
		&c.TotalPurchases, &c.TotalPayments, &c.InterestCharged, &c.FeesCharged,
		&c.MinimumPayment, &c.PaymentsMade, &c.Status, &c.ClosedAt, &c.PaidAt,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CreateCycle persists a new billing cycle
func (r *Repository) CreateCycle(ctx context.Context, cycle *models.BillingCycle) error {
	query := `
		INSERT INTO billing.billing_cycles (
			id, account_id, cycle_number, start_date, end_date, due_date, days_in_cycle,
			starting_balance, ending_balance, average_daily_balance,
			total_purchases, total_payments, interest_charged, fees_charged,
			minimum_payment, payments_made, status, closed_at, paid_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
			CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		cycle.ID, cycle.AccountID, cycle.CycleNumber, cycle.StartDate, cycle.EndDate,
		cycle.DueDate, cycle.DaysInCycle, cycle.StartingBalance, cycle.EndingBalance,
		cycle.AverageDailyBalance, cycle.TotalPurchases, cycle.TotalPayments,
		cycle.InterestCharged, cycle.FeesCharged, cycle.MinimumPayment, cycle.PaymentsMade,
		cycle.Status, cycle.ClosedAt, cycle.PaidAt).
		Scan(&cycle.CreatedAt, &cycle.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create billing cycle: %w", err)
	}
	return nil
}

// UpdateCycle persists mutable cycle fields: the closing figures when an
// open cycle closes, and the payment/status flags afterwards.
func (r *Repository) UpdateCycle(ctx context.Context, cycle *models.BillingCycle) error {
	query := `
		UPDATE billing.billing_cycles
		SET ending_balance = $2, average_daily_balance = $3, total_purchases = $4,
			total_payments = $5, interest_charged = $6, fees_charged = $7,
			minimum_payment = $8, payments_made = $9, status = $10,
			closed_at = $11, paid_at = $12, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query,
		cycle.ID, cycle.EndingBalance, cycle.AverageDailyBalance, cycle.TotalPurchases,
		cycle.TotalPayments, cycle.InterestCharged, cycle.FeesCharged, cycle.MinimumPayment,
		cycle.PaymentsMade, cycle.Status, cycle.ClosedAt, cycle.PaidAt).
		Scan(&cycle.UpdatedAt)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update billing cycle: %w", err)
	}
	return nil
}

// FindCycle retrieves a billing cycle by ID
func (r *Repository) FindCycle(ctx context.Context, id uuid.UUID) (*models.BillingCycle, error) {
	query := `SELECT ` + cycleColumns + ` FROM billing.billing_cycles WHERE id = $1`
	cycle, err := scanCycle(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find billing cycle: %w", err)
	}
	return cycle, nil
}

// ListCycles returns the account's cycle history ordered by cycle number.
func (r *Repository) ListCycles(ctx context.Context, accountID uuid.UUID) ([]models.BillingCycle, error) {
	query := `SELECT ` + cycleColumns + `
		FROM billing.billing_cycles
		WHERE account_id = $1
		ORDER BY cycle_number`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list billing cycles: %w", err)
	}
	defer rows.Close()

	var cycles []models.BillingCycle
	for rows.Next() {
		cycle, err := scanCycle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan billing cycle: %w", err)
		}
		cycles = append(cycles, *cycle)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate billing cycles: %w", err)
	}
	return cycles, nil
}

// FindOpenCycle returns the account's open cycle, or nil when none exists.
func (r *Repository) FindOpenCycle(ctx context.Context, accountID uuid.UUID) (*models.BillingCycle, error) {
	query := `SELECT ` + cycleColumns + `
		FROM billing.billing_cycles
		WHERE account_id = $1 AND status = $2`
	cycle, err := scanCycle(r.db.QueryRowContext(ctx, query, accountID, models.CycleOpen))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find open cycle: %w", err)
	}
	return cycle, nil
}

// LatestCycle returns the account's highest-numbered cycle, or nil when the
// account has no cycles yet.
func (r *Repository) LatestCycle(ctx context.Context, accountID uuid.UUID) (*models.BillingCycle, error) {
	query := `SELECT ` + cycleColumns + `
		FROM billing.billing_cycles
		WHERE account_id = $1
		ORDER BY cycle_number DESC
		LIMIT 1`
	cycle, err := scanCycle(r.db.QueryRowContext(ctx, query, accountID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest cycle: %w", err)
	}
	return cycle, nil
}

// ListOpenCyclesEnded returns open cycles across all accounts whose end date
// has passed; the sweep closes them.
func (r *Repository) ListOpenCyclesEnded(ctx context.Context, now time.Time) ([]models.BillingCycle, error) {
	return r.listByStatusAndDate(ctx, models.CycleOpen, "end_date", now)
}

// ListUnpaidCyclesPastDue returns closed-unpaid cycles whose due date has
// passed; the sweep flags them overdue.
func (r *Repository) ListUnpaidCyclesPastDue(ctx context.Context, now time.Time) ([]models.BillingCycle, error) {
	return r.listByStatusAndDate(ctx, models.CycleClosedUnpaid, "due_date", now)
}

func (r *Repository) listByStatusAndDate(ctx context.Context, status models.CycleStatus, dateColumn string, now time.Time) ([]models.BillingCycle, error) {
	query := `SELECT ` + cycleColumns + `
		FROM billing.billing_cycles
		WHERE status = $1 AND ` + dateColumn + ` <= $2
		ORDER BY account_id, cycle_number`
	rows, err := r.db.QueryContext(ctx, query, status, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s cycles: %w", status, err)
	}
	defer rows.Close()

	var cycles []models.BillingCycle
	for rows.Next() {
		cycle, err := scanCycle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan billing cycle: %w", err)
		}
		cycles = append(cycles, *cycle)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate billing cycles: %w", err)
	}
	return cycles, nil
}
