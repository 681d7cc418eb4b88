package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"adjudge/internal/cache"
	"adjudge/internal/engine"
	"adjudge/internal/models"
	"adjudge/internal/repository"
)

// Setting keys read by the pipeline at runtime.
const (
	SettingMinSpend      = "judgment.min_spend"
	SettingROASFloor     = "judgment.roas_floor"
	SettingMinSampleDays = "judgment.min_sample_days"
	SettingLookbackDays  = "pipeline.lookback_days"
	SettingCacheTTL      = "cache.ttl"
)

// ErrConfigMissing means a required threshold or TTL is absent from the
// settings store. The pipeline aborts rather than silently defaulting, so a
// half-configured deployment cannot hand out misleading judgments.
var ErrConfigMissing = errors.New("service: required setting missing")

// SettingsDefaults seed the store at boot. They come from the static config
// file; after boot the store is authoritative and editable without redeploy.
type SettingsDefaults struct {
	MinSpend      float64
	ROASFloor     float64
	MinSampleDays int
	LookbackDays  int
	CacheTTL      time.Duration
}

type SystemSettingsService struct {
	Repo     repository.Repository
	Cache    *cache.Cache
	Logger   *zap.Logger
	Defaults SettingsDefaults
}

// EnsureDefaults writes any missing keys. Existing values are never
// overwritten: operators own them once the system is live.
func (s *SystemSettingsService) EnsureDefaults(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	now := time.Now().UTC()
	seed := map[string]any{
		SettingMinSpend:      s.Defaults.MinSpend,
		SettingROASFloor:     s.Defaults.ROASFloor,
		SettingMinSampleDays: s.Defaults.MinSampleDays,
		SettingLookbackDays:  s.Defaults.LookbackDays,
		SettingCacheTTL:      s.Defaults.CacheTTL.String(),
	}
	for key, value := range seed {
		existing, err := s.Repo.GetSystemSettingByKey(ctx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		raw, _ := json.Marshal(value)
		item := &models.SystemSetting{
			Key:         key,
			Value:       datatypes.JSON(raw),
			Description: "pipeline setting",
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.Repo.UpsertSystemSetting(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// Thresholds loads the classifier thresholds. A missing key is a hard
// ErrConfigMissing, never a silent default.
func (s *SystemSettingsService) Thresholds(ctx context.Context) (engine.Thresholds, error) {
	minSpend, err := s.number(ctx, SettingMinSpend)
	if err != nil {
		return engine.Thresholds{}, err
	}
	roasFloor, err := s.number(ctx, SettingROASFloor)
	if err != nil {
		return engine.Thresholds{}, err
	}
	minDays, err := s.number(ctx, SettingMinSampleDays)
	if err != nil {
		return engine.Thresholds{}, err
	}
	return engine.Thresholds{
		MinSpend:      decimal.NewFromFloat(minSpend),
		ROASFloor:     decimal.NewFromFloat(roasFloor),
		MinSampleDays: int(minDays),
	}, nil
}

// LookbackDays is the trailing-window length for the comparison views.
func (s *SystemSettingsService) LookbackDays(ctx context.Context) (int, error) {
	days, err := s.number(ctx, SettingLookbackDays)
	if err != nil {
		return 0, err
	}
	if days < 1 {
		return 0, fmt.Errorf("%w: %s must be >= 1", ErrConfigMissing, SettingLookbackDays)
	}
	return int(days), nil
}

// CacheTTL is the freshness window for computed analysis snapshots.
func (s *SystemSettingsService) CacheTTL(ctx context.Context) (time.Duration, error) {
	item, err := s.get(ctx, SettingCacheTTL)
	if err != nil {
		return 0, err
	}
	var raw string
	if err := json.Unmarshal(item.Value, &raw); err != nil {
		return 0, fmt.Errorf("%w: %s is not a duration string", ErrConfigMissing, SettingCacheTTL)
	}
	ttl, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || ttl <= 0 {
		return 0, fmt.Errorf("%w: %s is not a positive duration", ErrConfigMissing, SettingCacheTTL)
	}
	return ttl, nil
}

// Set writes one setting, appends an audit row, and drops every cached
// analysis snapshot so the next read reflects the change.
func (s *SystemSettingsService) Set(ctx context.Context, key string, value any, actor, description string) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("setting key is required")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode setting value: %w", err)
	}
	now := time.Now().UTC()
	item := &models.SystemSetting{
		Key:         key,
		Value:       datatypes.JSON(raw),
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Repo.UpsertSystemSetting(ctx, item); err != nil {
		return err
	}
	detail, _ := json.Marshal(map[string]any{"key": key, "value": value})
	if err := s.Repo.InsertAuditLog(ctx, &models.AuditLog{
		Actor:     actor,
		Action:    "setting_updated",
		Detail:    datatypes.JSON(detail),
		CreatedAt: now,
	}); err != nil && s.Logger != nil {
		s.Logger.Warn("audit log write failed",
			zap.String("key", key),
			zap.String("actor", actor),
			zap.Error(err),
		)
	}
	if s.Cache != nil {
		s.Cache.Clear()
	}
	return nil
}

func (s *SystemSettingsService) get(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.Repo == nil {
		return nil, fmt.Errorf("%w: settings store unavailable", ErrConfigMissing)
	}
	item, err := s.Repo.GetSystemSettingByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if item == nil || len(item.Value) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrConfigMissing, key)
	}
	return item, nil
}

func (s *SystemSettingsService) number(ctx context.Context, key string) (float64, error) {
	item, err := s.get(ctx, key)
	if err != nil {
		return 0, err
	}
	var val float64
	if err := json.Unmarshal(item.Value, &val); err != nil {
		return 0, fmt.Errorf("%w: %s is not numeric", ErrConfigMissing, key)
	}
	return val, nil
}
