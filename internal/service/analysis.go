package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"adjudge/internal/cache"
	"adjudge/internal/engine"
	"adjudge/internal/sheet"
)

const snapshotCacheKey = "analysis.snapshot"

// AnalysisConfig fixes the two source ranges and their column contracts.
// Validate is called once at startup so a re-laid-out sheet fails fast
// instead of being silently misread.
type AnalysisConfig struct {
	CurrentSourceID    string
	CurrentRange       string
	CurrentColumns     engine.ColumnMap
	HistoricalSourceID string
	HistoricalRange    string
	HistoricalColumns  engine.ColumnMap

	DepartmentPrefix string
	Timezone         string
}

func (c AnalysisConfig) Validate() error {
	if c.CurrentSourceID == "" || c.CurrentRange == "" {
		return fmt.Errorf("analysis config: current source/range is required")
	}
	if c.HistoricalSourceID == "" || c.HistoricalRange == "" {
		return fmt.Errorf("analysis config: historical source/range is required")
	}
	if err := c.CurrentColumns.Validate(); err != nil {
		return fmt.Errorf("current columns: %w", err)
	}
	if err := c.HistoricalColumns.Validate(); err != nil {
		return fmt.Errorf("historical columns: %w", err)
	}
	return nil
}

// CampaignJudgment is one comparison pair with its classifier label.
type CampaignJudgment struct {
	engine.ComparisonPair
	Judgment engine.Judgment `json:"judgment"`
}

// Snapshot is one complete pipeline run: everything the read views shape
// their responses from. It is immutable once published to the cache.
type Snapshot struct {
	AsOf         time.Time          `json:"as_of"`
	LookbackDays int                `json:"lookback_days"`
	Pairs        []CampaignJudgment `json:"pairs"`
	Thresholds   engine.Thresholds  `json:"thresholds"`

	current    []engine.CampaignRecord
	historical []engine.CampaignRecord

	SkippedCurrent    int       `json:"skipped_current"`
	SkippedHistorical int       `json:"skipped_historical"`
	GeneratedAt       time.Time `json:"generated_at"`
}

// AnalysisService runs the reconciliation pipeline behind the aggregation
// cache and exposes the team-scoped read views. All reads share one cached
// snapshot; scoping happens after retrieval.
type AnalysisService struct {
	Source   sheet.Fetcher
	Settings *SystemSettingsService
	Cache    *cache.Cache
	Config   AnalysisConfig
	Logger   *zap.Logger

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

func (s *AnalysisService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// asOf is "today" in the source timezone, since the sheets are written in it.
func (s *AnalysisService) asOf() time.Time {
	now := s.now()
	if loc, err := time.LoadLocation(s.Config.Timezone); err == nil && s.Config.Timezone != "" {
		now = now.In(loc)
	}
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// snapshot returns the live cached pipeline result, computing it at most
// once per TTL across concurrent callers. A failed run publishes nothing, so
// an existing stale entry keeps serving until a later run succeeds.
func (s *AnalysisService) snapshot(ctx context.Context) (*Snapshot, error) {
	ttl, err := s.Settings.CacheTTL(ctx)
	if err != nil {
		return nil, err
	}
	v, err := s.Cache.GetOrCompute(ctx, snapshotCacheKey, ttl, func(ctx context.Context) (any, error) {
		return s.compute(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (s *AnalysisService) compute(ctx context.Context) (*Snapshot, error) {
	th, err := s.Settings.Thresholds(ctx)
	if err != nil {
		return nil, err
	}
	lookback, err := s.Settings.LookbackDays(ctx)
	if err != nil {
		return nil, err
	}

	curRows, err := s.Source.FetchRange(ctx, s.Config.CurrentSourceID, s.Config.CurrentRange)
	if err != nil {
		return nil, fmt.Errorf("fetch current range: %w", err)
	}
	histRows, err := s.Source.FetchRange(ctx, s.Config.HistoricalSourceID, s.Config.HistoricalRange)
	if err != nil {
		return nil, fmt.Errorf("fetch historical range: %w", err)
	}

	current, skippedCur := engine.Normalize(curRows, s.Config.CurrentColumns)
	historical, skippedHist := engine.Normalize(histRows, s.Config.HistoricalColumns)

	asOf := s.asOf()
	// The current range is authoritative for asOf. The historical sheet is
	// appended at end of day, so rows dated asOf or later showing up there are
	// the same activity the current range already carries; keeping them would
	// double-count the day in the month and trend views.
	overlap := 0
	kept := historical[:0]
	for _, rec := range historical {
		if !rec.Date.Before(asOf) {
			overlap++
			continue
		}
		kept = append(kept, rec)
	}
	historical = kept

	pairs := engine.Join(current, historical, engine.JoinOptions{AsOf: asOf, LookbackDays: lookback})
	judged := make([]CampaignJudgment, 0, len(pairs))
	for _, pair := range pairs {
		judged = append(judged, CampaignJudgment{
			ComparisonPair: pair,
			Judgment:       engine.Classify(pair, th),
		})
	}

	if s.Logger != nil {
		s.Logger.Info("analysis pipeline run",
			zap.Time("as_of", asOf),
			zap.Int("lookback_days", lookback),
			zap.Int("current_rows", len(current)),
			zap.Int("historical_rows", len(historical)),
			zap.Int("skipped_current", skippedCur),
			zap.Int("skipped_historical", skippedHist),
			zap.Int("overlap_rows", overlap),
			zap.Int("campaigns", len(judged)),
		)
	}

	return &Snapshot{
		AsOf:              asOf,
		LookbackDays:      lookback,
		Pairs:             judged,
		Thresholds:        th,
		current:           current,
		historical:        historical,
		SkippedCurrent:    skippedCur,
		SkippedHistorical: skippedHist,
		GeneratedAt:       s.now().UTC(),
	}, nil
}

// GetComparisonData is the per-campaign comparison view with judgments,
// scoped to team when one is given.
func (s *AnalysisService) GetComparisonData(ctx context.Context, team string) ([]CampaignJudgment, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.scopeJudgments(snap.Pairs, team), nil
}

// FullAnalysis is the comparison view plus run diagnostics and a summary.
type FullAnalysis struct {
	AsOf         time.Time          `json:"as_of"`
	LookbackDays int                `json:"lookback_days"`
	GeneratedAt  time.Time          `json:"generated_at"`
	Pairs        []CampaignJudgment `json:"pairs"`
	Summary      engine.Metrics     `json:"summary"`
	Diagnostics  RunDiagnostics     `json:"diagnostics"`
}

type RunDiagnostics struct {
	CurrentRows       int `json:"current_rows"`
	HistoricalRows    int `json:"historical_rows"`
	SkippedCurrent    int `json:"skipped_current"`
	SkippedHistorical int `json:"skipped_historical"`
}

func (s *AnalysisService) GetFullAnalysisData(ctx context.Context, team string) (*FullAnalysis, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	pairs := s.scopeJudgments(snap.Pairs, team)
	summary := engine.Metrics{}
	for _, p := range pairs {
		summary = engine.Merge(summary, engine.Merge(p.Current, p.Trailing))
	}
	return &FullAnalysis{
		AsOf:         snap.AsOf,
		LookbackDays: snap.LookbackDays,
		GeneratedAt:  snap.GeneratedAt,
		Pairs:        pairs,
		Summary:      summary,
		Diagnostics: RunDiagnostics{
			CurrentRows:       len(snap.current),
			HistoricalRows:    len(snap.historical),
			SkippedCurrent:    snap.SkippedCurrent,
			SkippedHistorical: snap.SkippedHistorical,
		},
	}, nil
}

// MonthlyProfit is the calendar-month totals for one team or the whole desk.
type MonthlyProfit struct {
	Month   string         `json:"month"`
	Window  engine.Window  `json:"window"`
	Metrics engine.Metrics `json:"metrics"`
}

func (s *AnalysisService) GetMonthlyProfit(ctx context.Context, team string) (*MonthlyProfit, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	records := s.scopeRecords(snap.allRecords(), team)
	window := engine.CalendarMonth(snap.AsOf)
	return &MonthlyProfit{
		Month:   snap.AsOf.Format("2006-01"),
		Window:  window,
		Metrics: engine.Aggregate(records, window),
	}, nil
}

// DailyMetrics is one day of aggregated metrics inside the lookback window.
type DailyMetrics struct {
	Date    time.Time      `json:"date"`
	Metrics engine.Metrics `json:"metrics"`
}

// GetDailyTrendData aggregates per day across the trailing window, oldest
// first. Days with no activity are present with zero metrics so chart axes
// stay continuous.
func (s *AnalysisService) GetDailyTrendData(ctx context.Context, team string) ([]DailyMetrics, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	records := s.scopeRecords(snap.allRecords(), team)
	window := engine.TrailingDays(snap.AsOf, snap.LookbackDays)
	out := make([]DailyMetrics, 0, snap.LookbackDays)
	for day := window.From; !day.After(window.To); day = day.AddDate(0, 0, 1) {
		out = append(out, DailyMetrics{
			Date:    day,
			Metrics: engine.Aggregate(records, engine.Window{From: day, To: day}),
		})
	}
	return out, nil
}

// ProjectMonthly is month-to-date metrics for one department.
type ProjectMonthly struct {
	Department string         `json:"department"`
	Campaigns  int            `json:"campaigns"`
	Metrics    engine.Metrics `json:"metrics"`
}

// GetProjectMonthlyData groups the month's records by the department segment
// of the campaign name. Records whose names do not follow the ownership
// convention are grouped under an empty department rather than dropped.
func (s *AnalysisService) GetProjectMonthlyData(ctx context.Context) ([]ProjectMonthly, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	window := engine.CalendarMonth(snap.AsOf)
	byDept := map[string][]engine.CampaignRecord{}
	for _, rec := range snap.allRecords() {
		dept := ""
		if own, ok := engine.ParseOwnership(rec.CampaignName); ok {
			dept = own.Department
		}
		byDept[dept] = append(byDept[dept], rec)
	}
	depts := make([]string, 0, len(byDept))
	for dept := range byDept {
		depts = append(depts, dept)
	}
	sort.Strings(depts)
	out := make([]ProjectMonthly, 0, len(depts))
	for _, dept := range depts {
		records := byDept[dept]
		names := map[string]struct{}{}
		for _, rec := range records {
			names[rec.CampaignName] = struct{}{}
		}
		out = append(out, ProjectMonthly{
			Department: dept,
			Campaigns:  len(names),
			Metrics:    engine.Aggregate(records, window),
		})
	}
	return out, nil
}

// Preload recomputes the snapshot and republishes it ahead of TTL expiry so
// interactive reads rarely pay the upstream latency.
func (s *AnalysisService) Preload(ctx context.Context) error {
	ttl, err := s.Settings.CacheTTL(ctx)
	if err != nil {
		return err
	}
	return s.Cache.Update(ctx, snapshotCacheKey, ttl, func(ctx context.Context) (any, error) {
		return s.compute(ctx)
	})
}

// Refresh drops the cached snapshot and recomputes immediately. Used after
// settings changes and by the manual refresh endpoint.
func (s *AnalysisService) Refresh(ctx context.Context) error {
	s.Cache.Clear(snapshotCacheKey)
	_, err := s.snapshot(ctx)
	return err
}

func (snap *Snapshot) allRecords() []engine.CampaignRecord {
	all := make([]engine.CampaignRecord, 0, len(snap.current)+len(snap.historical))
	all = append(all, snap.current...)
	all = append(all, snap.historical...)
	return all
}

func (s *AnalysisService) scopeRecords(records []engine.CampaignRecord, team string) []engine.CampaignRecord {
	return engine.ScopeToTeam(records, s.Config.DepartmentPrefix, team)
}

func (s *AnalysisService) scopeJudgments(pairs []CampaignJudgment, team string) []CampaignJudgment {
	if team == "" {
		return pairs
	}
	raw := make([]engine.ComparisonPair, 0, len(pairs))
	byName := make(map[string]CampaignJudgment, len(pairs))
	for _, p := range pairs {
		raw = append(raw, p.ComparisonPair)
		byName[p.CampaignName] = p
	}
	scoped := engine.ScopePairs(raw, s.Config.DepartmentPrefix, team)
	out := make([]CampaignJudgment, 0, len(scoped))
	for _, pair := range scoped {
		out = append(out, byName[pair.CampaignName])
	}
	return out
}
