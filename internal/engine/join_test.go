package engine

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestJoin_SumsSameDayCurrentRows(t *testing.T) {
	asOf := day(2026, 8, 29)
	current := []CampaignRecord{
		rec("Dept_Yuta_1", asOf, 100, 300),
		rec("Dept_Yuta_1", asOf, 50, 100), // second placement under the same umbrella name
	}
	pairs := Join(current, nil, JoinOptions{AsOf: asOf, LookbackDays: 7})
	if len(pairs) != 1 {
		t.Fatalf("pairs=%d want=1", len(pairs))
	}
	p := pairs[0]
	if !p.HasCurrent {
		t.Fatalf("expected current side")
	}
	if !p.Current.Spend.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("current spend=%s want=150 (summed, not overwritten)", p.Current.Spend)
	}
	if !p.Current.Revenue.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("current revenue=%s want=400", p.Current.Revenue)
	}
}

func TestJoin_HistoryOnlyCampaignsStayVisible(t *testing.T) {
	asOf := day(2026, 8, 29)
	historical := []CampaignRecord{
		rec("Dept_Ken_9", day(2026, 8, 27), 1000, 200),
	}
	pairs := Join(nil, historical, JoinOptions{AsOf: asOf, LookbackDays: 7})
	if len(pairs) != 1 {
		t.Fatalf("pairs=%d want=1", len(pairs))
	}
	p := pairs[0]
	if p.HasCurrent {
		t.Fatalf("stale campaign should have no current side")
	}
	if !p.Current.Spend.IsZero() {
		t.Fatalf("current metrics should be empty, spend=%s", p.Current.Spend)
	}
	if !p.Trailing.Spend.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("trailing spend=%s want=1000", p.Trailing.Spend)
	}
}

func TestJoin_LookbackWindow(t *testing.T) {
	asOf := day(2026, 8, 29)
	historical := []CampaignRecord{
		rec("Dept_A_1", day(2026, 8, 23), 10, 10), // oldest day inside a 7-day window
		rec("Dept_A_1", day(2026, 8, 22), 99, 99), // outside
		rec("Dept_A_1", day(2026, 8, 30), 99, 99), // future: excluded
	}
	pairs := Join(nil, historical, JoinOptions{AsOf: asOf, LookbackDays: 7})
	p := pairs[0]
	if !p.Trailing.Spend.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("trailing spend=%s want=10", p.Trailing.Spend)
	}
	if p.TrailingDays != 1 {
		t.Fatalf("trailing days=%d want=1", p.TrailingDays)
	}

	// A wider lookback is an explicit caller decision, not a default.
	pairs = Join(nil, historical, JoinOptions{AsOf: asOf, LookbackDays: 30})
	if !pairs[0].Trailing.Spend.Equal(decimal.NewFromInt(109)) {
		t.Fatalf("30-day trailing spend=%s want=109", pairs[0].Trailing.Spend)
	}
}

func TestJoin_DeltasAgainstDailyBaseline(t *testing.T) {
	asOf := day(2026, 8, 29)
	current := []CampaignRecord{rec("Dept_A_1", asOf, 200, 200)}
	historical := []CampaignRecord{
		rec("Dept_A_1", day(2026, 8, 27), 100, 100),
		rec("Dept_A_1", day(2026, 8, 28), 100, 100),
	}
	pairs := Join(current, historical, JoinOptions{AsOf: asOf, LookbackDays: 7})
	p := pairs[0]
	if !p.CostDeltaPct.Valid {
		t.Fatalf("cost delta should be defined")
	}
	// Baseline 100/day, current 200 => +100%.
	if !p.CostDeltaPct.Decimal.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("cost delta=%s want=100", p.CostDeltaPct.Decimal)
	}
}

func TestJoin_DeltaUndefinedWithoutBaseline(t *testing.T) {
	asOf := day(2026, 8, 29)
	current := []CampaignRecord{rec("Dept_A_1", asOf, 200, 200)}
	pairs := Join(current, nil, JoinOptions{AsOf: asOf, LookbackDays: 7})
	if pairs[0].CostDeltaPct.Valid {
		t.Fatalf("delta should be undefined with no history")
	}
}

func TestJoin_DeterministicOrder(t *testing.T) {
	asOf := day(2026, 8, 29)
	current := []CampaignRecord{
		rec("Dept_B_2", asOf, 1, 1),
		rec("Dept_A_1", asOf, 1, 1),
	}
	historical := []CampaignRecord{rec("Dept_C_3", day(2026, 8, 28), 1, 1)}
	pairs := Join(current, historical, JoinOptions{AsOf: asOf, LookbackDays: 7})
	want := []string{"Dept_A_1", "Dept_B_2", "Dept_C_3"}
	if len(pairs) != len(want) {
		t.Fatalf("pairs=%d want=%d", len(pairs), len(want))
	}
	for i, name := range want {
		if pairs[i].CampaignName != name {
			t.Fatalf("pairs[%d]=%s want=%s", i, pairs[i].CampaignName, name)
		}
	}
}
