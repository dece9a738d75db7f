package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cardcore/billing-service/internal/models"
)

func entry(kind models.EntryKind, amount string, postedAt time.Time) models.LedgerEntry {
	return models.LedgerEntry{
		ID:        uuid.New(),
		Amount:    decimal.RequireFromString(amount),
		Kind:      kind,
		PostedAt:  postedAt,
		CreatedAt: postedAt,
	}
}

func TestReconstructDailyBalancesEmptyCycle(t *testing.T) {
	start := date(2024, time.June, 1)
	end := date(2024, time.July, 1)
	starting := decimal.RequireFromString("412.37")

	series, err := ReconstructDailyBalances(starting, nil, start, end)
	if err != nil {
		t.Fatalf("ReconstructDailyBalances: %v", err)
	}
	if len(series) != 30 {
		t.Fatalf("expected 30 days, got %d", len(series))
	}
	for day, balance := range series {
		if !balance.Equal(starting) {
			t.Fatalf("day %d: expected constant balance %s, got %s", day, starting, balance)
		}
	}
}

func TestReconstructDailyBalancesCarriesForward(t *testing.T) {
	start := date(2024, time.June, 1)
	end := date(2024, time.July, 1)
	entries := []models.LedgerEntry{
		entry(models.EntryPurchase, "125.50", date(2024, time.June, 5)),
		entry(models.EntryPurchase, "45.00", date(2024, time.June, 12)),
		entry(models.EntryPurchase, "89.99", date(2024, time.June, 20)),
	}

	series, err := ReconstructDailyBalances(decimal.Zero, entries, start, end)
	if err != nil {
		t.Fatalf("ReconstructDailyBalances: %v", err)
	}

	checks := []struct {
		day  int
		want string
	}{
		{0, "0"},
		{3, "0"},
		{4, "125.50"},
		{10, "125.50"},
		{11, "170.50"},
		{18, "170.50"},
		{19, "260.49"},
		{29, "260.49"},
	}
	for _, c := range checks {
		if want := decimal.RequireFromString(c.want); !series[c.day].Equal(want) {
			t.Fatalf("day %d: want %s, got %s", c.day, want, series[c.day])
		}
	}
}

func TestReconstructDailyBalancesSameDayTiesSummed(t *testing.T) {
	start := date(2024, time.June, 1)
	end := date(2024, time.June, 11)
	day := date(2024, time.June, 5)
	entries := []models.LedgerEntry{
		entry(models.EntryPurchase, "100.00", day),
		entry(models.EntryPayment, "-40.00", day),
		entry(models.EntryPurchase, "15.25", day),
	}

	series, err := ReconstructDailyBalances(decimal.Zero, entries, start, end)
	if err != nil {
		t.Fatalf("ReconstructDailyBalances: %v", err)
	}
	want := decimal.RequireFromString("75.25")
	if !series[4].Equal(want) {
		t.Fatalf("tie day: want %s, got %s", want, series[4])
	}
	if !series[3].Equal(decimal.Zero) {
		t.Fatalf("day before tie: want 0, got %s", series[3])
	}
}

func TestReconstructDailyBalancesRejectsOutOfRange(t *testing.T) {
	start := date(2024, time.June, 1)
	end := date(2024, time.July, 1)

	for _, posted := range []time.Time{
		date(2024, time.May, 31),
		date(2024, time.July, 1), // end is exclusive
		date(2024, time.August, 2),
	} {
		entries := []models.LedgerEntry{entry(models.EntryPurchase, "10.00", posted)}
		_, err := ReconstructDailyBalances(decimal.Zero, entries, start, end)
		var ledgerErr *MalformedLedgerError
		if !errors.As(err, &ledgerErr) {
			t.Fatalf("posted %v: expected MalformedLedgerError, got %v", posted, err)
		}
	}
}

func TestReconstructDailyBalancesRejectsUnsorted(t *testing.T) {
	start := date(2024, time.June, 1)
	end := date(2024, time.July, 1)
	entries := []models.LedgerEntry{
		entry(models.EntryPurchase, "10.00", date(2024, time.June, 10)),
		entry(models.EntryPurchase, "20.00", date(2024, time.June, 5)),
	}

	_, err := ReconstructDailyBalances(decimal.Zero, entries, start, end)
	var ledgerErr *MalformedLedgerError
	if !errors.As(err, &ledgerErr) {
		t.Fatalf("expected MalformedLedgerError for unsorted entries, got %v", err)
	}
}

func TestAverageDailyBalance(t *testing.T) {
	series := []decimal.Decimal{
		decimal.RequireFromString("100"),
		decimal.RequireFromString("200"),
		decimal.RequireFromString("300"),
	}
	if got := AverageDailyBalance(series); !got.Equal(decimal.RequireFromString("200")) {
		t.Fatalf("want 200, got %s", got)
	}
	if got := AverageDailyBalance(nil); !got.Equal(decimal.Zero) {
		t.Fatalf("empty series: want 0, got %s", got)
	}
}

func TestAverageDailyBalancePreservesNegative(t *testing.T) {
	// An account in credit keeps its negative average; only the interest
	// computation zeroes it.
	series := []decimal.Decimal{
		decimal.RequireFromString("-50"),
		decimal.RequireFromString("-150"),
	}
	if got := AverageDailyBalance(series); !got.Equal(decimal.RequireFromString("-100")) {
		t.Fatalf("want -100, got %s", got)
	}
}
