package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/cardcore/billing-service/internal/config"
	"github.com/cardcore/billing-service/internal/engine"
	"github.com/cardcore/billing-service/internal/metrics"
	"github.com/cardcore/billing-service/internal/models"
	"github.com/cardcore/billing-service/internal/utils"
)

// Store is the persistence collaborator supplying accounts, the ordered
// ledger and billing cycle history. The postgres repository implements it;
// tests use the in-memory store.
type Store interface {
	CreateAccount(ctx context.Context, account *models.Account) error
	FindAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)

	CreateLedgerEntry(ctx context.Context, entry *models.LedgerEntry) error
	ListLedgerEntries(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]models.LedgerEntry, error)

	CreateCycle(ctx context.Context, cycle *models.BillingCycle) error
	UpdateCycle(ctx context.Context, cycle *models.BillingCycle) error
	FindCycle(ctx context.Context, id uuid.UUID) (*models.BillingCycle, error)
	ListCycles(ctx context.Context, accountID uuid.UUID) ([]models.BillingCycle, error)
	FindOpenCycle(ctx context.Context, accountID uuid.UUID) (*models.BillingCycle, error)
	LatestCycle(ctx context.Context, accountID uuid.UUID) (*models.BillingCycle, error)
	ListOpenCyclesEnded(ctx context.Context, now time.Time) ([]models.BillingCycle, error)
	ListUnpaidCyclesPastDue(ctx context.Context, now time.Time) ([]models.BillingCycle, error)
}

// RateSource supplies the external base rate (percent) used to price
// variable-APR accounts.
type RateSource interface {
	BaseRate(ctx context.Context) (decimal.Decimal, error)
}

// Notifier delivers statement and overdue notices. Both methods are
// best-effort; delivery failures are logged, never surfaced to callers.
type Notifier interface {
	StatementClosed(to string, cycle *models.BillingCycle) error
	PaymentOverdue(to string, cycle *models.BillingCycle, lateFee decimal.Decimal) error
}

// Service handles business logic
type Service struct {
	store  Store
	log    *logrus.Logger
	config *config.Config
	policy engine.MinimumPaymentPolicy

	// Optional collaborators; nil disables the integration.
	Rates    RateSource
	Notifier Notifier
	Metrics  *metrics.Metrics

	// cycleLocks serializes cycle mutations per account. Losers fail fast
	// with ConcurrentCycleMutationError; retry belongs to the caller.
	cycleLocks sync.Map
}

// NewService initializes a new service
func NewService(store Store, log *logrus.Logger, cfg *config.Config) (*Service, error) {
	policy := engine.MinimumPaymentPolicy{
		FloorPercentage: cfg.MinPaymentFloorPct,
		FlatMinimum:     cfg.MinPaymentFlat,
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Service{
		store:  store,
		log:    log,
		config: cfg,
		policy: policy,
	}, nil
}

func (s *Service) lockAccount(accountID uuid.UUID) (func(), error) {
	v, _ := s.cycleLocks.LoadOrStore(accountID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	if !mu.TryLock() {
		return nil, &engine.ConcurrentCycleMutationError{AccountID: accountID}
	}
	return mu.Unlock, nil
}

// CreateAccountInput are the caller-supplied account parameters. A zero APR
// requests pricing from the base-rate feed plus the configured margin.
type CreateAccountInput struct {
	UserID         uuid.UUID
	CreditLimit    decimal.Decimal
	APR            decimal.Decimal
	CycleAnchorDay int
	Fees           models.FeeSchedule
	StatementEmail string
}

// CreateAccount validates the billing configuration, prices the APR if
// needed and issues a card for the new credit line.
func (s *Service) CreateAccount(ctx context.Context, input CreateAccountInput) (*models.Account, error) {
	now := time.Now().UTC()
	account := &models.Account{
		ID:             uuid.New(),
		UserID:         input.UserID,
		CreditLimit:    input.CreditLimit,
		APR:            input.APR,
		CycleAnchorDay: input.CycleAnchorDay,
		Fees:           input.Fees,
		Status:         models.AccountStatusActive,
		StatementEmail: input.StatementEmail,
		OpenedAt:       now,
	}

	if account.APR.IsZero() && s.Rates != nil {
		base, err := s.Rates.BaseRate(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to price APR: %w", err)
		}
		// The feed reports percent; margin is added before converting to a
		// decimal fraction.
		account.APR = base.Add(s.config.APRMarginPct).Div(decimal.NewFromInt(100))
	}

	if err := engine.ValidateAccount(account); err != nil {
		return nil, err
	}

	cardNumber, err := utils.GenerateCardNumber("400000", 16)
	if err != nil {
		return nil, fmt.Errorf("failed to generate card number: %w", err)
	}
	expiryDate := utils.GenerateExpiryDate(now)
	cvv, err := utils.GenerateCVV()
	if err != nil {
		return nil, err
	}

	encryptedNumber, err := utils.Encrypt(cardNumber, s.config.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt card number: %w", err)
	}
	encryptedExpiry, err := utils.Encrypt(expiryDate, s.config.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt expiry date: %w", err)
	}
	cvvHash, err := bcrypt.GenerateFromPassword([]byte(cvv), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash CVV: %w", err)
	}

	account.CardNumber = encryptedNumber
	account.CardExpiry = encryptedExpiry
	account.CVVHash = string(cvvHash)
	account.CardHMAC = utils.GenerateHMAC(cardNumber, expiryDate, cvv, s.config.HMACSecret)

	if err := s.store.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	// Return decrypted card details for the response only.
	account.CardNumber = cardNumber
	account.CardExpiry = expiryDate
	s.log.Infof("Account %s created for user %s, card %s", account.ID, account.UserID, utils.MaskCardNumber(cardNumber))
	return account, nil
}

// RecordEntry appends a purchase, payment, refund, fee or cash advance to
// the account's ledger.
func (s *Service) RecordEntry(ctx context.Context, accountID uuid.UUID, kind models.EntryKind, amount decimal.Decimal, description string, foreign bool, postedAt time.Time) (*models.LedgerEntry, error) {
	if !kind.Valid() {
		return nil, &engine.MalformedLedgerError{Reason: fmt.Sprintf("unknown entry kind %q", kind)}
	}
	if !amount.IsPositive() {
		return nil, &engine.MalformedLedgerError{Reason: "entry amount must be positive; the kind determines the sign"}
	}
	account, err := s.store.FindAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.Status != models.AccountStatusActive {
		return nil, fmt.Errorf("account %s is %s", accountID, account.Status)
	}

	signed := amount
	if !kind.Debit() {
		signed = amount.Neg()
	}
	entry := &models.LedgerEntry{
		ID:          uuid.New(),
		AccountID:   accountID,
		Amount:      signed,
		Kind:        kind,
		Description: description,
		Foreign:     foreign,
		PostedAt:    postedAt.UTC(),
	}
	if err := s.store.CreateLedgerEntry(ctx, entry); err != nil {
		return nil, err
	}
	s.log.Debugf("Ledger entry %s: %s %s on account %s", entry.ID, entry.Kind, entry.Amount, accountID)
	return entry, nil
}

// GenerateCycle creates the account's next billing cycle. The cycle closes
// immediately when the reference date has reached its end date; otherwise
// it is left open for the sweep to close later. Fails with
// ErrCycleAlreadyOpen while an open cycle exists.
func (s *Service) GenerateCycle(ctx context.Context, accountID uuid.UUID, referenceDate time.Time) (*models.BillingCycle, error) {
	started := time.Now()
	unlock, err := s.lockAccount(accountID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	account, err := s.store.FindAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if open, err := s.store.FindOpenCycle(ctx, accountID); err != nil {
		return nil, err
	} else if open != nil {
		return nil, engine.ErrCycleAlreadyOpen
	}

	latest, err := s.store.LatestCycle(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var bounds engine.CycleBounds
	cycleNumber := 1
	startingBalance := decimal.Zero
	if latest == nil {
		bounds, err = engine.BoundsForDate(account.CycleAnchorDay, referenceDate, s.config.GracePeriodDays)
	} else {
		prev := engine.CycleBounds{Start: latest.StartDate, End: latest.EndDate, Due: latest.DueDate}
		bounds, err = engine.NextBounds(prev, account.CycleAnchorDay, s.config.GracePeriodDays)
		cycleNumber = latest.CycleNumber + 1
		startingBalance = latest.EndingBalance
	}
	if err != nil {
		return nil, err
	}

	cycle := &models.BillingCycle{
		ID:              uuid.New(),
		AccountID:       accountID,
		CycleNumber:     cycleNumber,
		StartDate:       bounds.Start,
		EndDate:         bounds.End,
		DueDate:         bounds.Due,
		DaysInCycle:     bounds.DaysInCycle(),
		StartingBalance: startingBalance,
		Status:          models.CycleOpen,
	}

	if !referenceDate.Before(bounds.End) {
		if err := s.closeCycle(ctx, account, cycle, referenceDate); err != nil {
			return nil, err
		}
	}

	if err := s.store.CreateCycle(ctx, cycle); err != nil {
		return nil, err
	}

	s.Metrics.CycleGenerated(string(cycle.Status), time.Since(started))
	s.log.Infof("Cycle %d generated for account %s: %s - %s, status %s",
		cycle.CycleNumber, accountID, cycle.StartDate.Format("2006-01-02"),
		cycle.EndDate.Format("2006-01-02"), cycle.Status)
	return cycle, nil
}

// closeCycle computes the closing figures and fires OPEN -> CLOSED_UNPAID.
// The figures are computed exactly once; callers must hold the account
// lock.
func (s *Service) closeCycle(ctx context.Context, account *models.Account, cycle *models.BillingCycle, now time.Time) error {
	entries, err := s.store.ListLedgerEntries(ctx, account.ID, cycle.StartDate, cycle.EndDate)
	if err != nil {
		return err
	}

	daily, err := engine.ReconstructDailyBalances(cycle.StartingBalance, entries, cycle.StartDate, cycle.EndDate)
	if err != nil {
		return err
	}
	adb := engine.AverageDailyBalance(daily)
	interest, err := engine.InterestCharge(adb, account.APR, cycle.DaysInCycle)
	if err != nil {
		return err
	}
	fees := engine.AssessFees(entries, daily, account, annualFeeDue(account.OpenedAt, cycle.StartDate, cycle.EndDate))

	var purchases, payments decimal.Decimal
	for _, e := range entries {
		switch e.Kind {
		case models.EntryPurchase, models.EntryCashAdvance:
			purchases = purchases.Add(e.Amount.Abs())
		case models.EntryRefund:
			purchases = purchases.Sub(e.Amount.Abs())
		case models.EntryPayment:
			payments = payments.Add(e.Amount.Abs())
		}
	}

	// Interest and close-assessed fees are carried on the cycle record, not
	// re-posted to the ledger; the next cycle inherits them through its
	// starting balance. Fee-kind ledger entries are already in the daily
	// series, so only the assessed remainder is added here.
	assessed := fees.Total.Sub(fees.LedgerFees)
	ending := daily[len(daily)-1].Add(interest).Add(assessed)

	figures := engine.ClosingFigures{
		EndingBalance:       ending,
		AverageDailyBalance: adb.Round(4),
		TotalPurchases:      purchases,
		TotalPayments:       payments,
		InterestCharged:     interest,
		FeesCharged:         fees.Total,
		MinimumPayment:      s.policy.MinimumPayment(ending, interest, fees.Total),
	}
	if err := engine.CloseCycle(cycle, figures, now.UTC()); err != nil {
		return err
	}

	s.Metrics.CycleClosed()
	if cycle.Status == models.CycleClosedPaid {
		s.Metrics.CyclePaid()
	}
	s.notifyStatement(account, cycle)
	return nil
}

// annualFeeDue reports whether an account anniversary falls inside
// [start, end). The opening date itself does not trigger the fee.
func annualFeeDue(openedAt, start, end time.Time) bool {
	for year := start.Year(); year <= end.Year(); year++ {
		anniversary := time.Date(year, openedAt.Month(), openedAt.Day(), 0, 0, 0, 0, time.UTC)
		if anniversary.After(openedAt) && !anniversary.Before(start) && anniversary.Before(end) {
			return true
		}
	}
	return false
}

// CloseOpenCycle closes the account's open cycle once its end date has
// passed.
func (s *Service) CloseOpenCycle(ctx context.Context, accountID uuid.UUID, now time.Time) (*models.BillingCycle, error) {
	unlock, err := s.lockAccount(accountID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	account, err := s.store.FindAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	cycle, err := s.store.FindOpenCycle(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if cycle == nil {
		return nil, fmt.Errorf("account %s has no open cycle", accountID)
	}
	if now.Before(cycle.EndDate) {
		return nil, fmt.Errorf("cycle %d for account %s ends %s and cannot close yet",
			cycle.CycleNumber, accountID, cycle.EndDate.Format("2006-01-02"))
	}
	if err := s.closeCycle(ctx, account, cycle, now); err != nil {
		return nil, err
	}
	if err := s.store.UpdateCycle(ctx, cycle); err != nil {
		return nil, err
	}
	return cycle, nil
}

// GetCycles returns the account's persisted cycle history ordered by cycle
// number. Reads take no lock.
func (s *Service) GetCycles(ctx context.Context, accountID uuid.UUID) ([]models.BillingCycle, error) {
	if _, err := s.store.FindAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.store.ListCycles(ctx, accountID)
}

// GetInterestBreakdown re-exposes the interest math for a closed cycle.
// Everything derives from stored fields; nothing is recomputed from the
// ledger.
func (s *Service) GetInterestBreakdown(ctx context.Context, accountID, cycleID uuid.UUID) (*models.InterestCalculationResult, error) {
	account, err := s.store.FindAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	cycle, err := s.store.FindCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if cycle.AccountID != accountID {
		return nil, fmt.Errorf("cycle %s does not belong to account %s", cycleID, accountID)
	}
	if !cycle.Closed() {
		return nil, fmt.Errorf("cycle %d is still open", cycle.CycleNumber)
	}
	return &models.InterestCalculationResult{
		DailyRate:           engine.DailyRate(account.APR),
		MonthlyInterest:     cycle.InterestCharged,
		CompoundedInterest:  engine.CompoundedInterest(cycle.AverageDailyBalance, account.APR, cycle.DaysInCycle),
		AverageDailyBalance: cycle.AverageDailyBalance,
		DaysInCycle:         cycle.DaysInCycle,
	}, nil
}

// ApplyPayment posts a payment ledger entry and applies it against the
// given statement, firing the paid transition once the minimum is met. A
// late payment on an overdue cycle pays it too; the late fee already posted
// stays on the ledger.
func (s *Service) ApplyPayment(ctx context.Context, accountID, cycleID uuid.UUID, amount decimal.Decimal, postedAt time.Time) (*models.BillingCycle, error) {
	unlock, err := s.lockAccount(accountID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cycle, err := s.store.FindCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if cycle.AccountID != accountID {
		return nil, fmt.Errorf("cycle %s does not belong to account %s", cycleID, accountID)
	}
	if cycle.Status == models.CycleOpen {
		return nil, &engine.InvalidCycleTransitionError{From: cycle.Status, To: models.CycleClosedPaid}
	}

	if _, err := s.RecordEntry(ctx, accountID, models.EntryPayment, amount,
		fmt.Sprintf("payment against cycle %d", cycle.CycleNumber), false, postedAt); err != nil {
		return nil, err
	}
	if err := engine.RegisterPayment(cycle, amount, postedAt.UTC()); err != nil {
		return nil, err
	}
	if err := s.store.UpdateCycle(ctx, cycle); err != nil {
		return nil, err
	}

	s.Metrics.PaymentApplied()
	if cycle.Status == models.CycleClosedPaid {
		s.Metrics.CyclePaid()
	}
	s.log.Infof("Payment of %s applied to cycle %d on account %s, status %s",
		amount, cycle.CycleNumber, accountID, cycle.Status)
	return cycle, nil
}

// ProjectPayoff simulates payoff of the account's current balance under the
// given strategy and compares it against the minimum-only baseline. The
// projection is ephemeral and lock-free.
func (s *Service) ProjectPayoff(ctx context.Context, accountID uuid.UUID, strategy models.PaymentStrategy) (*models.PaymentAnalysis, error) {
	account, err := s.store.FindAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	balance, err := s.currentBalance(ctx, account)
	if err != nil {
		return nil, err
	}

	analysis, err := engine.Analyze(balance, account.APR, s.policy, strategy)
	if err != nil {
		return nil, err
	}

	// Prefer the real statement minimum when one exists.
	if latest, err := s.store.LatestCycle(ctx, accountID); err != nil {
		return nil, err
	} else if latest != nil && latest.Closed() {
		analysis.MinimumPayment = latest.RemainingMinimum()
	}

	s.Metrics.ProjectionComputed(string(strategy.Kind))
	return analysis, nil
}

// currentBalance is the latest closed cycle's ending balance plus anything
// posted since; for fresh accounts it is the net of the whole ledger.
func (s *Service) currentBalance(ctx context.Context, account *models.Account) (decimal.Decimal, error) {
	from := account.OpenedAt.AddDate(-1, 0, 0)
	balance := decimal.Zero

	latest, err := s.store.LatestCycle(ctx, account.ID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if latest != nil && latest.Closed() {
		balance = latest.EndingBalance
		from = latest.EndDate
	}

	entries, err := s.store.ListLedgerEntries(ctx, account.ID, from, farFuture)
	if err != nil {
		return decimal.Decimal{}, err
	}
	for _, e := range entries {
		balance = balance.Add(e.Amount)
	}
	return balance, nil
}

var farFuture = time.Date(9999, time.January, 1, 0, 0, 0, 0, time.UTC)

// SweepCycles is the scheduler entry point: it closes open cycles whose end
// date has passed, then flags unpaid cycles past due as overdue, posting
// the account-level late fee. Contended accounts are skipped and picked up
// on the next sweep.
func (s *Service) SweepCycles(ctx context.Context, now time.Time) {
	ended, err := s.store.ListOpenCyclesEnded(ctx, now)
	if err != nil {
		s.log.Errorf("Sweep: failed to list ended cycles: %v", err)
	}
	for i := range ended {
		if _, err := s.CloseOpenCycle(ctx, ended[i].AccountID, now); err != nil {
			s.log.Warnf("Sweep: failed to close cycle %d for account %s: %v",
				ended[i].CycleNumber, ended[i].AccountID, err)
		}
	}

	pastDue, err := s.store.ListUnpaidCyclesPastDue(ctx, now)
	if err != nil {
		s.log.Errorf("Sweep: failed to list past-due cycles: %v", err)
		return
	}
	for i := range pastDue {
		if err := s.markOverdue(ctx, &pastDue[i], now); err != nil {
			s.log.Warnf("Sweep: failed to mark cycle %d overdue for account %s: %v",
				pastDue[i].CycleNumber, pastDue[i].AccountID, err)
		}
	}
}

func (s *Service) markOverdue(ctx context.Context, listed *models.BillingCycle, now time.Time) error {
	unlock, err := s.lockAccount(listed.AccountID)
	if err != nil {
		return err
	}
	defer unlock()

	// The listing ran before the lock was taken; a payment may have landed
	// in between. Re-read and skip unless the cycle is still unpaid.
	cycle, err := s.store.FindCycle(ctx, listed.ID)
	if err != nil {
		return err
	}
	if cycle.Status != models.CycleClosedUnpaid {
		return nil
	}

	account, err := s.store.FindAccount(ctx, cycle.AccountID)
	if err != nil {
		return err
	}
	if err := engine.MarkOverdue(cycle, now); err != nil {
		return err
	}
	if err := s.store.UpdateCycle(ctx, cycle); err != nil {
		return err
	}

	// The late fee is an account-level ledger entry: it lands in whichever
	// cycle contains its posting date and is never reversed, even if the
	// overdue statement is paid later.
	if account.Fees.LateFee.IsPositive() {
		if _, err := s.RecordEntry(ctx, cycle.AccountID, models.EntryFee, account.Fees.LateFee,
			fmt.Sprintf("late payment fee, cycle %d", cycle.CycleNumber), false, now); err != nil {
			return err
		}
	}

	s.Metrics.CycleOverdue()
	s.notifyOverdue(account, cycle)
	s.log.Infof("Cycle %d for account %s is overdue, late fee %s posted",
		cycle.CycleNumber, cycle.AccountID, account.Fees.LateFee)
	return nil
}

func (s *Service) notifyStatement(account *models.Account, cycle *models.BillingCycle) {
	if s.Notifier == nil || account.StatementEmail == "" {
		return
	}
	if err := s.Notifier.StatementClosed(account.StatementEmail, cycle); err != nil {
		s.log.Errorf("Failed to send statement notice for account %s: %v", account.ID, err)
	}
}

func (s *Service) notifyOverdue(account *models.Account, cycle *models.BillingCycle) {
	if s.Notifier == nil || account.StatementEmail == "" {
		return
	}
	if err := s.Notifier.PaymentOverdue(account.StatementEmail, cycle, account.Fees.LateFee); err != nil {
		s.log.Errorf("Failed to send overdue notice for account %s: %v", account.ID, err)
	}
}
