package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cardcore/billing-service/internal/models"
)

// ReconstructDailyBalances turns a starting balance and the cycle's ledger
// entries into a dense per-day balance series covering [start, end). Day 0
// is seeded with the starting balance plus that day's net postings; each
// following day carries the previous balance forward and applies the net
// signed sum of entries posted that day.
//
// Entries must be sorted by posting date (then sequence) and must fall
// inside [start, end); anything else returns a MalformedLedgerError. A cycle
// with zero entries yields a constant series equal to the starting balance.
func ReconstructDailyBalances(starting decimal.Decimal, entries []models.LedgerEntry, start, end time.Time) ([]decimal.Decimal, error) {
	startDay := midnight(start)
	endDay := midnight(end)
	days := int(endDay.Sub(startDay).Hours() / 24)
	if days <= 0 {
		return nil, &MalformedLedgerError{Reason: "cycle end date must be after start date"}
	}

	daily := make([]decimal.Decimal, days)

	// Net postings per day index.
	sums := make(map[int]decimal.Decimal)
	var prev time.Time
	for i, e := range entries {
		posted := midnight(e.PostedAt)
		if posted.Before(startDay) || !posted.Before(endDay) {
			return nil, &MalformedLedgerError{
				EntryID: e.ID,
				Reason:  "posting date outside cycle range",
			}
		}
		if i > 0 && posted.Before(prev) {
			return nil, &MalformedLedgerError{
				EntryID: e.ID,
				Reason:  "entries not ordered by posting date",
			}
		}
		prev = posted
		idx := int(posted.Sub(startDay).Hours() / 24)
		sums[idx] = sums[idx].Add(e.Amount)
	}

	balance := starting
	for day := 0; day < days; day++ {
		if net, ok := sums[day]; ok {
			balance = balance.Add(net)
		}
		daily[day] = balance
	}
	return daily, nil
}

// AverageDailyBalance is the arithmetic mean of a per-day balance series.
// Negative averages are preserved; clamping happens only when interest is
// computed.
func AverageDailyBalance(series []decimal.Decimal) decimal.Decimal {
	if len(series) == 0 {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, b := range series {
		total = total.Add(b)
	}
	return total.Div(decimal.NewFromInt(int64(len(series))))
}
