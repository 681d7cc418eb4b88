package repository

import (
	"context"
	"time"

	"adjudge/internal/models"
)

// Repository is the persisted-settings and audit-log surface the engine
// consumes. The row source remains the system of record for campaign data;
// nothing derived from it is written here.
type Repository interface {
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	ListSystemSettings(ctx context.Context, params ListSystemSettingsParams) ([]models.SystemSetting, error)
	CountSystemSettings(ctx context.Context, params ListSystemSettingsParams) (int64, error)
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error

	InsertAuditLog(ctx context.Context, item *models.AuditLog) error
	ListAuditLogs(ctx context.Context, params ListAuditLogsParams) ([]models.AuditLog, error)
	CountAuditLogs(ctx context.Context, params ListAuditLogsParams) (int64, error)
}

type ListSystemSettingsParams struct {
	Limit   int
	Offset  int
	Prefix  *string
	OrderBy string
	Asc     *bool
}

type ListAuditLogsParams struct {
	Limit   int
	Offset  int
	Actor   *string
	Action  *string
	Since   *time.Time
	Until   *time.Time
	OrderBy string
	Asc     *bool
}
