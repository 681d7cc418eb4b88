package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// Metrics are derived financial and conversion totals over some window.
// ROAS is a NullDecimal: Valid is false whenever spend is zero, and callers
// must treat that absence distinctly from a real zero.
type Metrics struct {
	Spend            decimal.Decimal     `json:"spend"`
	Revenue          decimal.Decimal     `json:"revenue"`
	Profit           decimal.Decimal     `json:"profit"`
	ROAS             decimal.NullDecimal `json:"roas"`
	Conversions      int64               `json:"conversions"`
	MicroConversions int64               `json:"micro_conversions"`
	Clicks           int64               `json:"clicks"`
}

// Window is an inclusive calendar-day range.
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (w Window) Contains(d time.Time) bool {
	day := d.Truncate(24 * time.Hour)
	return !day.Before(w.From) && !day.After(w.To)
}

// TrailingDays is the window covering the n calendar days ending at asOf,
// inclusive of asOf. Rows dated after asOf fall outside it.
func TrailingDays(asOf time.Time, n int) Window {
	to := midnight(asOf)
	return Window{From: to.AddDate(0, 0, -(n - 1)), To: to}
}

// CalendarMonth is the window covering the calendar month containing asOf.
func CalendarMonth(asOf time.Time) Window {
	from := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Window{From: from, To: from.AddDate(0, 1, -1)}
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Aggregate folds the records dated inside the window into totals. Summation
// is associative and commutative, so partial results from disjoint record
// sets can be combined with Merge.
func Aggregate(records []CampaignRecord, w Window) Metrics {
	var m Metrics
	for _, rec := range records {
		if !w.Contains(rec.Date) {
			continue
		}
		m.Spend = m.Spend.Add(rec.Cost)
		m.Revenue = m.Revenue.Add(rec.Revenue)
		m.Conversions += rec.Conversions
		m.MicroConversions += rec.MicroConversions
		m.Clicks += rec.Clicks
	}
	return finalize(m)
}

// Merge combines two partial aggregates by plain addition, recomputing the
// derived profit and ROAS fields from the summed totals.
func Merge(a, b Metrics) Metrics {
	return finalize(Metrics{
		Spend:            a.Spend.Add(b.Spend),
		Revenue:          a.Revenue.Add(b.Revenue),
		Conversions:      a.Conversions + b.Conversions,
		MicroConversions: a.MicroConversions + b.MicroConversions,
		Clicks:           a.Clicks + b.Clicks,
	})
}

func finalize(m Metrics) Metrics {
	m.Profit = m.Revenue.Sub(m.Spend)
	if m.Spend.IsPositive() {
		m.ROAS = decimal.NewNullDecimal(m.Revenue.Div(m.Spend))
	} else {
		m.ROAS = decimal.NullDecimal{}
	}
	return m
}
