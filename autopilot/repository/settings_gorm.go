package repository

import (
	"context"
	"time"

	"github.com/AzielCF/az-pilot/autopilot/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// --- Persistence Models ---

type settingsModel struct {
	AccountID           string    `gorm:"primaryKey;column:account_id"`
	Platform            string    `gorm:"primaryKey;column:platform"`
	Enabled             bool      `gorm:"column:enabled;default:false"`
	AutoScheduleEnabled bool      `gorm:"column:auto_schedule_enabled;default:false"`
	AutoReplyEnabled    bool      `gorm:"column:auto_reply_enabled;default:false"`
	IntervalHours       float64   `gorm:"column:interval_hours;default:24"`
	Connected           bool      `gorm:"column:connected;default:false"`
	CreatedAt           time.Time `gorm:"column:created_at;not null"`
	UpdatedAt           time.Time `gorm:"column:updated_at;not null"`
}

func (settingsModel) TableName() string { return "autopilot_settings" }

// --- Repository Implementation ---

type SettingsGormRepository struct {
	db *gorm.DB
}

func NewSettingsGormRepository(db *gorm.DB) *SettingsGormRepository {
	return &SettingsGormRepository{db: db}
}

func (r *SettingsGormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&settingsModel{})
}

func (r *SettingsGormRepository) Get(ctx context.Context, accountID string, platform domain.Platform) (domain.AutopilotSettings, error) {
	var m settingsModel
	if err := r.db.WithContext(ctx).First(&m, "account_id = ? AND platform = ?", accountID, string(platform)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.AutopilotSettings{}, domain.ErrSettingsNotFound
		}
		return domain.AutopilotSettings{}, err
	}
	return fromSettingsModel(m), nil
}

func (r *SettingsGormRepository) Upsert(ctx context.Context, settings domain.AutopilotSettings) error {
	now := time.Now().UTC()
	model := toSettingsModel(settings)
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
	}
	model.UpdatedAt = now

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}, {Name: "platform"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"enabled":               model.Enabled,
			"auto_schedule_enabled": model.AutoScheduleEnabled,
			"auto_reply_enabled":    model.AutoReplyEnabled,
			"interval_hours":        model.IntervalHours,
			"connected":             model.Connected,
			"updated_at":            now,
		}),
	}).Create(&model).Error
}

func (r *SettingsGormRepository) SetConnected(ctx context.Context, accountID string, platform domain.Platform, connected bool) error {
	res := r.db.WithContext(ctx).Model(&settingsModel{}).
		Where("account_id = ? AND platform = ?", accountID, string(platform)).
		Updates(map[string]interface{}{
			"connected":  connected,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrSettingsNotFound
	}
	return nil
}

func (r *SettingsGormRepository) ListAutoSchedulable(ctx context.Context) ([]domain.AutopilotSettings, error) {
	var models []settingsModel
	if err := r.db.WithContext(ctx).
		Where("enabled = ? AND auto_schedule_enabled = ? AND connected = ?", true, true, true).
		Order("account_id ASC, platform ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.AutopilotSettings, len(models))
	for i, m := range models {
		res[i] = fromSettingsModel(m)
	}
	return res, nil
}

// --- Mappers ---

func toSettingsModel(s domain.AutopilotSettings) settingsModel {
	return settingsModel{
		AccountID:           s.AccountID,
		Platform:            string(s.Platform),
		Enabled:             s.Enabled,
		AutoScheduleEnabled: s.AutoScheduleEnabled,
		AutoReplyEnabled:    s.AutoReplyEnabled,
		IntervalHours:       s.IntervalHours,
		Connected:           s.Connected,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}
}

func fromSettingsModel(m settingsModel) domain.AutopilotSettings {
	return domain.AutopilotSettings{
		AccountID:           m.AccountID,
		Platform:            domain.Platform(m.Platform),
		Enabled:             m.Enabled,
		AutoScheduleEnabled: m.AutoScheduleEnabled,
		AutoReplyEnabled:    m.AutoReplyEnabled,
		IntervalHours:       m.IntervalHours,
		Connected:           m.Connected,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}
