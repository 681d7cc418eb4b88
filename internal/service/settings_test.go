package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"adjudge/internal/cache"
)

func testDefaults() SettingsDefaults {
	return SettingsDefaults{
		MinSpend:      500,
		ROASFloor:     1.0,
		MinSampleDays: 3,
		LookbackDays:  7,
		CacheTTL:      5 * time.Minute,
	}
}

func TestEnsureDefaults_SeedsMissingKeysOnly(t *testing.T) {
	repo := newStubRepository()
	repo.put(SettingMinSpend, 1200.0) // operator already tuned this one

	svc := &SystemSettingsService{Repo: repo, Defaults: testDefaults()}
	if err := svc.EnsureDefaults(context.Background()); err != nil {
		t.Fatalf("err=%v", err)
	}

	th, err := svc.Thresholds(context.Background())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !th.MinSpend.Equal(decimal.NewFromInt(1200)) {
		t.Fatalf("min spend=%s, existing value must survive seeding", th.MinSpend)
	}
	if !th.ROASFloor.Equal(decimal.NewFromInt(1)) || th.MinSampleDays != 3 {
		t.Fatalf("thresholds=%+v", th)
	}

	days, err := svc.LookbackDays(context.Background())
	if err != nil || days != 7 {
		t.Fatalf("lookback=%d err=%v", days, err)
	}
	ttl, err := svc.CacheTTL(context.Background())
	if err != nil || ttl != 5*time.Minute {
		t.Fatalf("ttl=%v err=%v", ttl, err)
	}
}

func TestThresholds_MissingKeyIsConfigMissing(t *testing.T) {
	svc := &SystemSettingsService{Repo: newStubRepository()}
	if _, err := svc.Thresholds(context.Background()); !errors.Is(err, ErrConfigMissing) {
		t.Fatalf("err=%v want ErrConfigMissing", err)
	}
	if _, err := svc.LookbackDays(context.Background()); !errors.Is(err, ErrConfigMissing) {
		t.Fatalf("err=%v want ErrConfigMissing", err)
	}
	if _, err := svc.CacheTTL(context.Background()); !errors.Is(err, ErrConfigMissing) {
		t.Fatalf("err=%v want ErrConfigMissing", err)
	}
}

func TestCacheTTL_RejectsBadValues(t *testing.T) {
	repo := newStubRepository()
	svc := &SystemSettingsService{Repo: repo}

	for _, raw := range []any{"not-a-duration", "-5m", "0s", 300} {
		repo.put(SettingCacheTTL, raw)
		if _, err := svc.CacheTTL(context.Background()); !errors.Is(err, ErrConfigMissing) {
			t.Fatalf("value %v: err=%v want ErrConfigMissing", raw, err)
		}
	}
}

func TestLookbackDays_RejectsNonPositive(t *testing.T) {
	repo := newStubRepository()
	repo.put(SettingLookbackDays, 0)
	svc := &SystemSettingsService{Repo: repo}
	if _, err := svc.LookbackDays(context.Background()); !errors.Is(err, ErrConfigMissing) {
		t.Fatalf("err=%v want ErrConfigMissing", err)
	}
}

func TestSet_WritesAuditRowAndDropsCache(t *testing.T) {
	repo := newStubRepository()
	c := cache.New()
	c.Put("analysis.snapshot", "stale", time.Minute)

	svc := &SystemSettingsService{Repo: repo, Cache: c}
	if err := svc.Set(context.Background(), SettingMinSpend, 750.0, "ops-lead", "raised floor"); err != nil {
		t.Fatalf("err=%v", err)
	}

	th := &SystemSettingsService{Repo: repo}
	got, err := th.number(context.Background(), SettingMinSpend)
	if err != nil || got != 750 {
		t.Fatalf("got=%v err=%v", got, err)
	}

	if len(repo.audits) != 1 {
		t.Fatalf("audit rows=%d want=1", len(repo.audits))
	}
	if repo.audits[0].Actor != "ops-lead" || repo.audits[0].Action != "setting_updated" {
		t.Fatalf("audit=%+v", repo.audits[0])
	}

	if _, ok := c.Get("analysis.snapshot"); ok {
		t.Fatalf("snapshot must be evicted after a settings change")
	}
}

func TestSet_AuditFailureIsLoggedNotFatal(t *testing.T) {
	repo := newStubRepository()
	repo.auditErr = errors.New("audit table gone")
	core, logs := observer.New(zap.WarnLevel)

	svc := &SystemSettingsService{Repo: repo, Logger: zap.New(core)}
	if err := svc.Set(context.Background(), SettingROASFloor, 1.2, "ops-lead", ""); err != nil {
		t.Fatalf("setting write must survive an audit failure: %v", err)
	}

	got, err := svc.number(context.Background(), SettingROASFloor)
	if err != nil || got != 1.2 {
		t.Fatalf("got=%v err=%v", got, err)
	}
	if len(repo.audits) != 0 {
		t.Fatalf("audit rows=%d want=0", len(repo.audits))
	}
	if logs.FilterMessage("audit log write failed").Len() != 1 {
		t.Fatalf("missing warn for the lost audit row, logs=%+v", logs.All())
	}
}

func TestSet_RejectsEmptyKey(t *testing.T) {
	svc := &SystemSettingsService{Repo: newStubRepository()}
	if err := svc.Set(context.Background(), "  ", 1, "x", ""); err == nil {
		t.Fatalf("expected error for empty key")
	}
}
