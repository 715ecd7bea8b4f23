// Package calc derives invoice totals from raw service lines. It is pure:
// no storage, no clock.
package calc

import (
	"errors"
	"math"
)

type Line struct {
	Description  string
	Duration     string
	DailySlots   int64
	CampaignDays int64
	RatePerSlot  int64
}

type ComputedLine struct {
	Line
	TotalSlots int64
	LineTotal  int64
}

type Totals struct {
	Lines       []ComputedLine
	TotalSlots  int64
	Subtotal    int64
	VATAmount   int64
	TotalAmount int64
}

var (
	ErrNoLines        = errors.New("no_service_lines")
	ErrInvalidSlots   = errors.New("invalid_daily_slots")
	ErrInvalidDays    = errors.New("invalid_campaign_days")
	ErrInvalidRate    = errors.New("invalid_rate_per_slot")
	ErrInvalidVATRate = errors.New("invalid_vat_rate")
)

// Compute validates the lines and aggregates totals. VAT is rounded half
// away from zero once at the aggregate, not per line, so per-line rounding
// cannot drift.
func Compute(lines []Line, vatRate float64) (Totals, error) {
	if len(lines) == 0 {
		return Totals{}, ErrNoLines
	}
	if vatRate < 0 || vatRate > 100 {
		return Totals{}, ErrInvalidVATRate
	}

	totals := Totals{Lines: make([]ComputedLine, 0, len(lines))}
	for _, line := range lines {
		if line.DailySlots < 1 {
			return Totals{}, ErrInvalidSlots
		}
		if line.CampaignDays < 1 {
			return Totals{}, ErrInvalidDays
		}
		if line.RatePerSlot < 0 {
			return Totals{}, ErrInvalidRate
		}

		slots := line.DailySlots * line.CampaignDays
		lineTotal := slots * line.RatePerSlot
		totals.Lines = append(totals.Lines, ComputedLine{
			Line:       line,
			TotalSlots: slots,
			LineTotal:  lineTotal,
		})
		totals.TotalSlots += slots
		totals.Subtotal += lineTotal
	}

	totals.VATAmount = int64(math.Round(float64(totals.Subtotal) * vatRate / 100))
	totals.TotalAmount = totals.Subtotal + totals.VATAmount
	return totals, nil
}
