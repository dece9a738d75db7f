package engine

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cardcore/billing-service/internal/models"
)

// ErrCycleAlreadyOpen is returned when cycle generation is attempted while
// the account already has an open cycle.
var ErrCycleAlreadyOpen = errors.New("engine: account already has an open billing cycle")

// MalformedLedgerError indicates input ledger data that violates the
// engine's ordering or date-range assumptions. The engine never silently
// corrects such input; the caller must filter or re-sort it.
type MalformedLedgerError struct {
	EntryID uuid.UUID
	Reason  string
}

func (e *MalformedLedgerError) Error() string {
	if e.EntryID == uuid.Nil {
		return fmt.Sprintf("engine: malformed ledger: %s", e.Reason)
	}
	return fmt.Sprintf("engine: malformed ledger entry %s: %s", e.EntryID, e.Reason)
}

// InvalidCycleTransitionError indicates a disallowed state machine
// transition, including any attempt to leave CLOSED_PAID or re-open a
// closed cycle.
type InvalidCycleTransitionError struct {
	From models.CycleStatus
	To   models.CycleStatus
}

func (e *InvalidCycleTransitionError) Error() string {
	return fmt.Sprintf("engine: invalid cycle transition %s -> %s", e.From, e.To)
}

// ConcurrentCycleMutationError indicates that another cycle mutation for the
// same account is in flight. The losing caller may retry; the engine never
// retries internally.
type ConcurrentCycleMutationError struct {
	AccountID uuid.UUID
}

func (e *ConcurrentCycleMutationError) Error() string {
	return fmt.Sprintf("engine: concurrent cycle mutation for account %s", e.AccountID)
}

// ConfigurationError indicates an invalid APR, anchor day, fee schedule or
// policy parameter.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("engine: invalid configuration %q: %s", e.Field, e.Reason)
}

// IsMalformedLedger reports whether err is a MalformedLedgerError.
func IsMalformedLedger(err error) bool {
	var target *MalformedLedgerError
	return errors.As(err, &target)
}

// IsConfiguration reports whether err is a ConfigurationError.
func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}
