package engine

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBoundsForDate(t *testing.T) {
	tests := []struct {
		name      string
		anchor    int
		reference time.Time
		grace     int
		wantStart time.Time
		wantEnd   time.Time
		wantDue   time.Time
	}{
		{
			name:      "reference after anchor day",
			anchor:    15,
			reference: date(2024, time.June, 20),
			grace:     21,
			wantStart: date(2024, time.June, 15),
			wantEnd:   date(2024, time.July, 15),
			wantDue:   date(2024, time.August, 5),
		},
		{
			name:      "reference before anchor day rolls to previous month",
			anchor:    15,
			reference: date(2024, time.June, 10),
			grace:     21,
			wantStart: date(2024, time.May, 15),
			wantEnd:   date(2024, time.June, 15),
			wantDue:   date(2024, time.July, 6),
		},
		{
			name:      "anchor 31 clamps to february 28",
			anchor:    31,
			reference: date(2023, time.February, 28),
			grace:     21,
			wantStart: date(2023, time.February, 28),
			wantEnd:   date(2023, time.March, 31),
			wantDue:   date(2023, time.April, 21),
		},
		{
			name:      "anchor 31 clamps to february 29 in leap years",
			anchor:    31,
			reference: date(2024, time.February, 29),
			grace:     21,
			wantStart: date(2024, time.February, 29),
			wantEnd:   date(2024, time.March, 31),
			wantDue:   date(2024, time.April, 21),
		},
		{
			name:      "anchor 1 spans exactly one calendar month",
			anchor:    1,
			reference: date(2024, time.January, 17),
			grace:     25,
			wantStart: date(2024, time.January, 1),
			wantEnd:   date(2024, time.February, 1),
			wantDue:   date(2024, time.February, 26),
		},
		{
			name:      "december wraps into january",
			anchor:    10,
			reference: date(2023, time.December, 12),
			grace:     21,
			wantStart: date(2023, time.December, 10),
			wantEnd:   date(2024, time.January, 10),
			wantDue:   date(2024, time.January, 31),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BoundsForDate(tt.anchor, tt.reference, tt.grace)
			if err != nil {
				t.Fatalf("BoundsForDate: %v", err)
			}
			if !got.Start.Equal(tt.wantStart) || !got.End.Equal(tt.wantEnd) || !got.Due.Equal(tt.wantDue) {
				t.Fatalf("bounds mismatch\nwant: %v %v %v\ngot:  %v %v %v",
					tt.wantStart, tt.wantEnd, tt.wantDue, got.Start, got.End, got.Due)
			}
		})
	}
}

func TestBoundsForDateIdempotent(t *testing.T) {
	ref := date(2024, time.March, 7)
	first, err := BoundsForDate(28, ref, 21)
	if err != nil {
		t.Fatalf("BoundsForDate: %v", err)
	}
	second, err := BoundsForDate(28, ref, 21)
	if err != nil {
		t.Fatalf("BoundsForDate: %v", err)
	}
	if first != second {
		t.Fatalf("expected identical boundaries, got %+v and %+v", first, second)
	}
}

func TestNextBoundsContiguity(t *testing.T) {
	// Walk a year of cycles across month-length changes; every cycle must
	// start exactly where the previous one ended.
	bounds, err := BoundsForDate(31, date(2023, time.January, 31), 21)
	if err != nil {
		t.Fatalf("BoundsForDate: %v", err)
	}
	for i := 0; i < 14; i++ {
		next, err := NextBounds(bounds, 31, 21)
		if err != nil {
			t.Fatalf("NextBounds: %v", err)
		}
		if !next.Start.Equal(bounds.End) {
			t.Fatalf("cycle %d: start %v does not equal previous end %v", i+1, next.Start, bounds.End)
		}
		if !next.End.After(next.Start) {
			t.Fatalf("cycle %d: end %v not after start %v", i+1, next.End, next.Start)
		}
		bounds = next
	}
}

func TestNextBoundsFebruaryClamp(t *testing.T) {
	jan, err := BoundsForDate(31, date(2023, time.January, 31), 21)
	if err != nil {
		t.Fatalf("BoundsForDate: %v", err)
	}
	if !jan.End.Equal(date(2023, time.February, 28)) {
		t.Fatalf("january cycle should end on feb 28, got %v", jan.End)
	}
	feb, err := NextBounds(jan, 31, 21)
	if err != nil {
		t.Fatalf("NextBounds: %v", err)
	}
	if !feb.Start.Equal(date(2023, time.February, 28)) || !feb.End.Equal(date(2023, time.March, 31)) {
		t.Fatalf("february cycle bounds wrong: %v - %v", feb.Start, feb.End)
	}
}

func TestBoundsValidation(t *testing.T) {
	for _, anchor := range []int{0, -3, 32} {
		if _, err := BoundsForDate(anchor, date(2024, time.June, 1), 21); err == nil {
			t.Fatalf("expected configuration error for anchor %d", anchor)
		} else {
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigurationError, got %T", err)
			}
		}
	}
	if _, err := BoundsForDate(15, date(2024, time.June, 1), 0); err == nil {
		t.Fatal("expected configuration error for zero grace period")
	}
}

func TestDaysInCycle(t *testing.T) {
	bounds, err := BoundsForDate(1, date(2024, time.June, 1), 21)
	if err != nil {
		t.Fatalf("BoundsForDate: %v", err)
	}
	if got := bounds.DaysInCycle(); got != 30 {
		t.Fatalf("june cycle should have 30 days, got %d", got)
	}
}
