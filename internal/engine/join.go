package engine

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ComparisonPair lines up one campaign's current-day activity against its
// trailing history. Pairs are owned by a single pipeline run.
type ComparisonPair struct {
	CampaignName string `json:"campaign_name"`

	// HasCurrent is false for campaigns seen only in history; such stale
	// campaigns stay visible so persistent losers can still be judged.
	HasCurrent bool    `json:"has_current"`
	Current    Metrics `json:"current"`

	Trailing     Metrics `json:"trailing"`
	TrailingDays int     `json:"trailing_days"`

	// Deltas of the current day against the trailing per-day baseline, in
	// percent. Invalid when the baseline side is zero.
	CostDeltaPct   decimal.NullDecimal `json:"cost_delta_pct"`
	ProfitDeltaPct decimal.NullDecimal `json:"profit_delta_pct"`
}

// JoinOptions fix the evaluation time and the trailing window length. The
// lookback is an explicit parameter on purpose: different views want 7 days,
// others a calendar month, and guessing one default misleads both.
type JoinOptions struct {
	AsOf         time.Time
	LookbackDays int
}

// Join groups historical records by campaign name and builds one comparison
// pair per distinct name seen on either side. Multiple same-day current rows
// under one name (several media placements) are summed, never overwritten.
func Join(current, historical []CampaignRecord, opts JoinOptions) []ComparisonPair {
	lookback := opts.LookbackDays
	if lookback <= 0 {
		lookback = 7
	}
	window := TrailingDays(opts.AsOf, lookback)

	histByName := make(map[string][]CampaignRecord, len(historical))
	for _, rec := range historical {
		histByName[rec.CampaignName] = append(histByName[rec.CampaignName], rec)
	}
	curByName := make(map[string][]CampaignRecord, len(current))
	for _, rec := range current {
		curByName[rec.CampaignName] = append(curByName[rec.CampaignName], rec)
	}

	names := make([]string, 0, len(curByName)+len(histByName))
	for name := range curByName {
		names = append(names, name)
	}
	for name := range histByName {
		if _, ok := curByName[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	pairs := make([]ComparisonPair, 0, len(names))
	for _, name := range names {
		curRows := curByName[name]
		histRows := histByName[name]

		pair := ComparisonPair{
			CampaignName: name,
			HasCurrent:   len(curRows) > 0,
			Current:      Aggregate(curRows, Window{From: midnight(opts.AsOf), To: midnight(opts.AsOf)}),
			Trailing:     Aggregate(histRows, window),
			TrailingDays: distinctDays(histRows, window),
		}
		pair.CostDeltaPct = deltaPct(pair.Current.Spend, dailyBaseline(pair.Trailing.Spend, pair.TrailingDays))
		pair.ProfitDeltaPct = deltaPct(pair.Current.Profit, dailyBaseline(pair.Trailing.Profit, pair.TrailingDays))
		pairs = append(pairs, pair)
	}
	return pairs
}

func distinctDays(records []CampaignRecord, w Window) int {
	seen := map[time.Time]struct{}{}
	for _, rec := range records {
		if w.Contains(rec.Date) {
			seen[rec.Date] = struct{}{}
		}
	}
	return len(seen)
}

func dailyBaseline(total decimal.Decimal, days int) decimal.Decimal {
	if days <= 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(days)))
}

// deltaPct is (value-baseline)/baseline in percent, undefined at a zero
// baseline rather than exploding to infinity.
func deltaPct(value, baseline decimal.Decimal) decimal.NullDecimal {
	if baseline.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(value.Sub(baseline).Div(baseline).Mul(decimal.NewFromInt(100)))
}
