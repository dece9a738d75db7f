package engine

import (
	"time"
)

// DefaultGracePeriodDays is the default gap between a cycle's end and its
// payment due date.
const DefaultGracePeriodDays = 21

// CycleBounds are the boundaries of one billing cycle. Start is inclusive,
// End exclusive; Due = End + grace period.
type CycleBounds struct {
	Start time.Time
	End   time.Time
	Due   time.Time
}

// DaysInCycle returns the number of calendar days covered by the bounds.
func (b CycleBounds) DaysInCycle() int {
	return int(b.End.Sub(b.Start).Hours() / 24)
}

// midnight truncates t to a UTC calendar date.
func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// anchorDate returns the anchor day within the given month, clamped to the
// month's last day when the anchor exceeds it (anchor 31 in February yields
// Feb 28, or Feb 29 in leap years).
func anchorDate(year int, month time.Month, anchor int) time.Time {
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	day := anchor
	if day > lastDay {
		day = lastDay
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func validateAnchor(anchorDay int) error {
	if anchorDay < 1 || anchorDay > 31 {
		return &ConfigurationError{Field: "cycleAnchorDay", Reason: "must be between 1 and 31"}
	}
	return nil
}

func validateGrace(graceDays int) error {
	if graceDays < 1 {
		return &ConfigurationError{Field: "gracePeriodDays", Reason: "must be at least 1"}
	}
	return nil
}

// BoundsForDate computes the boundaries of the cycle containing the
// reference date for the given anchor day. The computation is a pure
// function of its inputs: calling it twice with the same arguments yields
// identical boundaries.
func BoundsForDate(anchorDay int, reference time.Time, graceDays int) (CycleBounds, error) {
	if err := validateAnchor(anchorDay); err != nil {
		return CycleBounds{}, err
	}
	if err := validateGrace(graceDays); err != nil {
		return CycleBounds{}, err
	}

	ref := midnight(reference)
	start := anchorDate(ref.Year(), ref.Month(), anchorDay)
	if ref.Before(start) {
		prev := ref.AddDate(0, 0, -ref.Day()) // last day of previous month
		start = anchorDate(prev.Year(), prev.Month(), anchorDay)
	}
	return boundsFromStart(start, anchorDay, graceDays), nil
}

// NextBounds computes the cycle that follows prev. The returned Start is
// exactly prev.End; this function is the single source of truth for cycle
// contiguity.
func NextBounds(prev CycleBounds, anchorDay int, graceDays int) (CycleBounds, error) {
	if err := validateAnchor(anchorDay); err != nil {
		return CycleBounds{}, err
	}
	if err := validateGrace(graceDays); err != nil {
		return CycleBounds{}, err
	}
	return boundsFromStart(midnight(prev.End), anchorDay, graceDays), nil
}

func boundsFromStart(start time.Time, anchorDay, graceDays int) CycleBounds {
	next := start.AddDate(0, 0, -start.Day()+1).AddDate(0, 1, 0) // first of next month
	end := anchorDate(next.Year(), next.Month(), anchorDay)
	return CycleBounds{
		Start: start,
		End:   end,
		Due:   end.AddDate(0, 0, graceDays),
	}
}
