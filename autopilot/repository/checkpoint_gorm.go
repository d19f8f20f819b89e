package repository

import (
	"context"
	"time"

	"github.com/AzielCF/az-pilot/autopilot/domain"
	"gorm.io/gorm"
)

type checkpointModel struct {
	AccountID       string    `gorm:"primaryKey;column:account_id"`
	Platform        string    `gorm:"primaryKey;column:platform"`
	LastScheduledAt time.Time `gorm:"column:last_scheduled_at;not null"`
	UpdatedAt       time.Time `gorm:"column:updated_at;not null"`
}

func (checkpointModel) TableName() string { return "autopilot_checkpoints" }

type CheckpointGormStore struct {
	db *gorm.DB
}

func NewCheckpointGormStore(db *gorm.DB) *CheckpointGormStore {
	return &CheckpointGormStore{db: db}
}

func (r *CheckpointGormStore) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&checkpointModel{})
}

func (r *CheckpointGormStore) Get(ctx context.Context, accountID string, platform domain.Platform) (*time.Time, error) {
	var m checkpointModel
	if err := r.db.WithContext(ctx).First(&m, "account_id = ? AND platform = ?", accountID, string(platform)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	t := m.LastScheduledAt.UTC()
	return &t, nil
}

// Set advances the checkpoint. Writes carrying a timestamp older than the
// stored one are ignored so the value only moves forward.
func (r *CheckpointGormStore) Set(ctx context.Context, accountID string, platform domain.Platform, t time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m checkpointModel
		err := tx.First(&m, "account_id = ? AND platform = ?", accountID, string(platform)).Error
		if err != nil && err != gorm.ErrRecordNotFound {
			return err
		}
		if err == gorm.ErrRecordNotFound {
			return tx.Create(&checkpointModel{
				AccountID:       accountID,
				Platform:        string(platform),
				LastScheduledAt: t.UTC(),
				UpdatedAt:       time.Now().UTC(),
			}).Error
		}
		if !t.UTC().After(m.LastScheduledAt.UTC()) {
			return nil
		}
		return tx.Model(&checkpointModel{}).
			Where("account_id = ? AND platform = ?", accountID, string(platform)).
			Updates(map[string]interface{}{
				"last_scheduled_at": t.UTC(),
				"updated_at":        time.Now().UTC(),
			}).Error
	})
}

func (r *CheckpointGormStore) Clear(ctx context.Context, accountID string, platform domain.Platform) error {
	return r.db.WithContext(ctx).
		Delete(&checkpointModel{}, "account_id = ? AND platform = ?", accountID, string(platform)).Error
}

func (r *CheckpointGormStore) ClearAccount(ctx context.Context, accountID string) error {
	return r.db.WithContext(ctx).
		Delete(&checkpointModel{}, "account_id = ?", accountID).Error
}
