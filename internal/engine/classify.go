package engine

import "github.com/shopspring/decimal"

// Judgment is the actionable label for one campaign per evaluation.
type Judgment string

const (
	JudgmentContinue Judgment = "continue"
	JudgmentCheck    Judgment = "check"
	JudgmentReplace  Judgment = "replace"
	JudgmentStop     Judgment = "stop"
)

// Thresholds tune the classifier. They come from the settings store at
// runtime, never from constants, so the classifier stays pure.
type Thresholds struct {
	// MinSpend is the trailing spend below which a losing campaign is
	// considered noise rather than a stop candidate.
	MinSpend decimal.Decimal `json:"min_spend"`
	// ROASFloor marks a creative as underperforming when trailing ROAS is
	// defined and falls below it.
	ROASFloor decimal.Decimal `json:"roas_floor"`
	// MinSampleDays is the trailing history needed before trend judgments.
	MinSampleDays int `json:"min_sample_days"`
}

// Classify maps a comparison pair to exactly one judgment. Rules are checked
// in fixed priority order and the first match wins; rerunning with the same
// inputs always yields the same label.
func Classify(pair ComparisonPair, th Thresholds) Judgment {
	if pair.Trailing.Profit.IsNegative() && pair.Trailing.Spend.GreaterThanOrEqual(th.MinSpend) {
		return JudgmentStop
	}
	if pair.Trailing.ROAS.Valid &&
		pair.Trailing.ROAS.Decimal.LessThan(th.ROASFloor) &&
		pair.TrailingDays >= th.MinSampleDays {
		return JudgmentReplace
	}
	if pair.HasCurrent && pair.TrailingDays < th.MinSampleDays {
		return JudgmentCheck
	}
	return JudgmentContinue
}
