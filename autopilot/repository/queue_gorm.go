package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/AzielCF/az-pilot/autopilot/domain"
	"gorm.io/gorm"
)

type queueItemModel struct {
	Fingerprint  string         `gorm:"primaryKey;column:fingerprint"`
	AccountID    string         `gorm:"column:account_id;not null;index:idx_queue_pair_status"`
	Platform     string         `gorm:"column:platform;not null;index:idx_queue_pair_status"`
	CaptionText  string         `gorm:"column:caption_text;type:text"`
	Status       string         `gorm:"column:status;default:'ready';index:idx_queue_pair_status"`
	StatusReason sql.NullString `gorm:"column:status_reason"`
	CreatedAt    time.Time      `gorm:"column:created_at;not null;index"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;not null"`
}

func (queueItemModel) TableName() string { return "queue_items" }

type ContentQueueGormRepository struct {
	db *gorm.DB
}

func NewContentQueueGormRepository(db *gorm.DB) *ContentQueueGormRepository {
	return &ContentQueueGormRepository{db: db}
}

func (r *ContentQueueGormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&queueItemModel{})
}

// Submit inserts a new item. Resubmitting a fingerprint that already exists
// is rejected regardless of the stored item's status.
func (r *ContentQueueGormRepository) Submit(ctx context.Context, item domain.QueueItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing queueItemModel
		err := tx.First(&existing, "fingerprint = ?", item.Fingerprint).Error
		if err == nil {
			return domain.ErrDuplicateItem
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		now := time.Now().UTC()
		model := toQueueItemModel(item)
		if model.Status == "" {
			model.Status = string(domain.QueueItemStatusReady)
		}
		if model.CreatedAt.IsZero() {
			model.CreatedAt = now
		}
		model.UpdatedAt = now
		return tx.Create(&model).Error
	})
}

func (r *ContentQueueGormRepository) ListReady(ctx context.Context, accountID string, platform domain.Platform, limit int) ([]domain.QueueItem, error) {
	q := r.db.WithContext(ctx).
		Where("account_id = ? AND platform = ? AND status = ?", accountID, string(platform), string(domain.QueueItemStatusReady)).
		Order("created_at ASC, fingerprint ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var models []queueItemModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.QueueItem, len(models))
	for i, m := range models {
		res[i] = fromQueueItemModel(m)
	}
	return res, nil
}

func (r *ContentQueueGormRepository) MarkStatus(ctx context.Context, fingerprint string, status domain.QueueItemStatus, reason string) error {
	res := r.db.WithContext(ctx).Model(&queueItemModel{}).
		Where("fingerprint = ?", fingerprint).
		Updates(map[string]interface{}{
			"status":        string(status),
			"status_reason": sql.NullString{String: reason, Valid: reason != ""},
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrQueueItemNotFound
	}
	return nil
}

func (r *ContentQueueGormRepository) CountReady(ctx context.Context, accountID string, platform domain.Platform) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&queueItemModel{}).
		Where("account_id = ? AND platform = ? AND status = ?", accountID, string(platform), string(domain.QueueItemStatusReady)).
		Count(&count).Error
	return count, err
}

// --- Mappers ---

func toQueueItemModel(i domain.QueueItem) queueItemModel {
	return queueItemModel{
		Fingerprint:  i.Fingerprint,
		AccountID:    i.AccountID,
		Platform:     string(i.Platform),
		CaptionText:  i.CaptionText,
		Status:       string(i.Status),
		StatusReason: sql.NullString{String: i.StatusReason, Valid: i.StatusReason != ""},
		CreatedAt:    i.CreatedAt,
		UpdatedAt:    i.UpdatedAt,
	}
}

func fromQueueItemModel(m queueItemModel) domain.QueueItem {
	return domain.QueueItem{
		Fingerprint:  m.Fingerprint,
		AccountID:    m.AccountID,
		Platform:     domain.Platform(m.Platform),
		CaptionText:  m.CaptionText,
		Status:       domain.QueueItemStatus(m.Status),
		StatusReason: nullStringValue(m.StatusReason),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// nullStringValue returns a trimmed string or empty if null to prevent legacy data panics.
func nullStringValue(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return strings.TrimSpace(ns.String)
}
