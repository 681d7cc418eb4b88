package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"

	"adjudge/internal/models"
	"adjudge/internal/repository"
)

// stubRepository is an in-memory Repository for service tests.
type stubRepository struct {
	settings map[string]models.SystemSetting
	audits   []models.AuditLog
	err      error
	auditErr error
}

var _ repository.Repository = (*stubRepository)(nil)

func newStubRepository() *stubRepository {
	return &stubRepository{settings: map[string]models.SystemSetting{}}
}

func (r *stubRepository) put(key string, value any) {
	raw, _ := json.Marshal(value)
	r.settings[key] = models.SystemSetting{Key: key, Value: datatypes.JSON(raw), UpdatedAt: time.Now().UTC()}
}

func (r *stubRepository) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if r.err != nil {
		return nil, r.err
	}
	item, ok := r.settings[key]
	if !ok {
		return nil, nil
	}
	out := item
	return &out, nil
}

func (r *stubRepository) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make([]models.SystemSetting, 0, len(r.settings))
	for _, item := range r.settings {
		if params.Prefix != nil && !strings.HasPrefix(item.Key, *params.Prefix) {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r *stubRepository) CountSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) (int64, error) {
	items, err := r.ListSystemSettings(ctx, params)
	return int64(len(items)), err
}

func (r *stubRepository) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if r.err != nil {
		return r.err
	}
	r.settings[item.Key] = *item
	return nil
}

func (r *stubRepository) InsertAuditLog(ctx context.Context, item *models.AuditLog) error {
	if r.err != nil {
		return r.err
	}
	if r.auditErr != nil {
		return r.auditErr
	}
	r.audits = append(r.audits, *item)
	return nil
}

func (r *stubRepository) ListAuditLogs(ctx context.Context, params repository.ListAuditLogsParams) ([]models.AuditLog, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make([]models.AuditLog, 0, len(r.audits))
	for _, item := range r.audits {
		if params.Actor != nil && item.Actor != *params.Actor {
			continue
		}
		if params.Action != nil && item.Action != *params.Action {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *stubRepository) CountAuditLogs(ctx context.Context, params repository.ListAuditLogsParams) (int64, error) {
	items, err := r.ListAuditLogs(ctx, params)
	return int64(len(items)), err
}
