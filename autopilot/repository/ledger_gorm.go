package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/AzielCF/az-pilot/autopilot/domain"
	"gorm.io/gorm"
)

type scheduleEntryModel struct {
	ID                string         `gorm:"primaryKey;column:id"`
	AccountID         string         `gorm:"column:account_id;not null;index:idx_ledger_pair_caption"`
	Platform          string         `gorm:"column:platform;not null;index:idx_ledger_pair_caption"`
	Fingerprint       string         `gorm:"column:fingerprint;not null;index"`
	CaptionText       string         `gorm:"column:caption_text;type:text"`
	NormalizedCaption string         `gorm:"column:normalized_caption;type:text;index:idx_ledger_pair_caption"`
	TargetPublishAt   time.Time      `gorm:"column:target_publish_at;not null;index"`
	Status            string         `gorm:"column:status;default:'scheduled';index"`
	PublishError      sql.NullString `gorm:"column:publish_error"`
	CreatedAt         time.Time      `gorm:"column:created_at;not null"`
}

func (scheduleEntryModel) TableName() string { return "schedule_entries" }

type ScheduleLedgerGormRepository struct {
	db *gorm.DB
}

func NewScheduleLedgerGormRepository(db *gorm.DB) *ScheduleLedgerGormRepository {
	return &ScheduleLedgerGormRepository{db: db}
}

func (r *ScheduleLedgerGormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&scheduleEntryModel{})
}

func (r *ScheduleLedgerGormRepository) Insert(ctx context.Context, entry domain.ScheduleEntry) error {
	model := toScheduleEntryModel(entry)
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

// FindConflicting matches on pair plus normalized caption with the target
// time inside [target-window, target+window]. Status is not part of the
// filter on purpose: published and failed twins still count.
func (r *ScheduleLedgerGormRepository) FindConflicting(ctx context.Context, accountID string, platform domain.Platform, normalizedCaption string, target time.Time, window time.Duration) (domain.ScheduleEntry, error) {
	var m scheduleEntryModel
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND platform = ? AND normalized_caption = ?", accountID, string(platform), normalizedCaption).
		Where("target_publish_at >= ? AND target_publish_at <= ?", target.Add(-window), target.Add(window)).
		Order("target_publish_at ASC").
		First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.ScheduleEntry{}, domain.ErrEntryNotFound
		}
		return domain.ScheduleEntry{}, err
	}
	return fromScheduleEntryModel(m), nil
}

func (r *ScheduleLedgerGormRepository) ListDue(ctx context.Context, before time.Time, limit int) ([]domain.ScheduleEntry, error) {
	q := r.db.WithContext(ctx).
		Where("status = ? AND target_publish_at <= ?", string(domain.ScheduleEntryStatusScheduled), before).
		Order("target_publish_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var models []scheduleEntryModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.ScheduleEntry, len(models))
	for i, m := range models {
		res[i] = fromScheduleEntryModel(m)
	}
	return res, nil
}

func (r *ScheduleLedgerGormRepository) MarkPublished(ctx context.Context, id string) error {
	return r.markStatus(ctx, id, domain.ScheduleEntryStatusPublished, "")
}

func (r *ScheduleLedgerGormRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	return r.markStatus(ctx, id, domain.ScheduleEntryStatusFailed, reason)
}

func (r *ScheduleLedgerGormRepository) markStatus(ctx context.Context, id string, status domain.ScheduleEntryStatus, reason string) error {
	res := r.db.WithContext(ctx).Model(&scheduleEntryModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        string(status),
			"publish_error": sql.NullString{String: reason, Valid: reason != ""},
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

func (r *ScheduleLedgerGormRepository) ListByPair(ctx context.Context, accountID string, platform domain.Platform) ([]domain.ScheduleEntry, error) {
	var models []scheduleEntryModel
	if err := r.db.WithContext(ctx).
		Where("account_id = ? AND platform = ?", accountID, string(platform)).
		Order("target_publish_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.ScheduleEntry, len(models))
	for i, m := range models {
		res[i] = fromScheduleEntryModel(m)
	}
	return res, nil
}

func (r *ScheduleLedgerGormRepository) CountScheduled(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&scheduleEntryModel{}).
		Where("status = ?", string(domain.ScheduleEntryStatusScheduled)).
		Count(&count).Error
	return count, err
}

// --- Mappers ---

func toScheduleEntryModel(e domain.ScheduleEntry) scheduleEntryModel {
	return scheduleEntryModel{
		ID:                e.ID,
		AccountID:         e.AccountID,
		Platform:          string(e.Platform),
		Fingerprint:       e.Fingerprint,
		CaptionText:       e.CaptionText,
		NormalizedCaption: e.NormalizedCaption,
		TargetPublishAt:   e.TargetPublishAt,
		Status:            string(e.Status),
		PublishError:      sql.NullString{String: e.PublishError, Valid: e.PublishError != ""},
		CreatedAt:         e.CreatedAt,
	}
}

func fromScheduleEntryModel(m scheduleEntryModel) domain.ScheduleEntry {
	return domain.ScheduleEntry{
		ID:                m.ID,
		AccountID:         m.AccountID,
		Platform:          domain.Platform(m.Platform),
		Fingerprint:       m.Fingerprint,
		CaptionText:       m.CaptionText,
		NormalizedCaption: m.NormalizedCaption,
		TargetPublishAt:   m.TargetPublishAt,
		Status:            domain.ScheduleEntryStatus(m.Status),
		PublishError:      nullStringValue(m.PublishError),
		CreatedAt:         m.CreatedAt,
	}
}
