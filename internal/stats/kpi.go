package stats

import (
	"math"
	"strconv"
	"strings"
	"time"

	"dealflow/internal/eventlog"
)

// MonthlyKPI is the rollup of one month.
type MonthlyKPI struct {
	MonthKey     string     `json:"month"`
	Year         int        `json:"year"`
	Month        time.Month `json:"month_number"`
	PipelineNew  int64      `json:"pipeline_new"`
	RevenueWon   int64      `json:"revenue_won"`
	WinRate      float64    `json:"win_rate_percent"`
	DealsCreated int        `json:"deals_created"`
	DealsWon     int        `json:"deals_won"`
	DealsLost    int        `json:"deals_lost"`
	// Partial is set while the month is still running.
	Partial bool `json:"partial,omitempty"`
}

// CreationIndex lists the deals created within an interval.
type CreationIndex interface {
	CreatedBetween(start, end time.Time) []eventlog.Snapshot
}

// KPICalculator reduces a month's movements and deal creations to a MonthlyKPI.
type KPICalculator struct {
	deals CreationIndex
}

// NewKPICalculator creates a calculator reading deal creations from deals.
func NewKPICalculator(deals CreationIndex) *KPICalculator {
	return &KPICalculator{deals: deals}
}

// Calculate computes the month's KPIs. New pipeline uses each created deal's current amount;
// won revenue uses the month-end amount of WON movements.
func (k *KPICalculator) Calculate(month MonthBoundary, movements []Movement) MonthlyKPI {
	kpi := MonthlyKPI{
		MonthKey: month.Key(),
		Year:     month.Year,
		Month:    month.Month,
		Partial:  month.IsPartial(),
	}

	for _, deal := range k.deals.CreatedBetween(month.Start, month.End) {
		kpi.DealsCreated++
		kpi.PipelineNew += rollupAmount(deal.CurrentAmount)
	}

	for _, m := range movements {
		switch m.Type {
		case MovementWon:
			kpi.DealsWon++
			kpi.RevenueWon += rollupAmount(m.End.Amount.Raw)
		case MovementLost:
			kpi.DealsLost++
		}
	}

	kpi.WinRate = WinRate(kpi.DealsWon, kpi.DealsLost, kpi.DealsCreated)
	return kpi
}

// WinRate is won/created, or won/(won+lost) when nothing was created, as a percentage rounded to
// one decimal and capped at 100 (deals created in earlier months can be won this month).
// It is 0 when both denominators are zero.
func WinRate(won, lost, created int) float64 {
	var rate float64
	switch {
	case created > 0:
		rate = float64(won) / float64(created) * 100
	case won+lost > 0:
		rate = float64(won) / float64(won+lost) * 100
	default:
		return 0
	}
	return math.Round(min(rate, 100)*10) / 10
}

// rollupAmount counts an amount only if it consists of digits and separators, truncated to whole
// currency units. Anything else contributes 0.
func rollupAmount(raw string) int64 {
	digits := strings.NewReplacer(".", "", ",", "").Replace(raw)
	if digits == "" {
		return 0
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0
		}
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return 0
	}
	return int64(f)
}
