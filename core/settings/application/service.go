package application

import (
	"context"
	"strings"

	"github.com/AzielCF/az-pilot/core/settings/domain"
	"github.com/AzielCF/az-pilot/core/settings/infrastructure"
	"gorm.io/gorm"
)

type SettingsService struct {
	repo domain.ISettingsRepository
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{
		repo: infrastructure.NewGlobalSettingsGormRepository(db),
	}
}

func (s *SettingsService) Init(ctx context.Context) error {
	return s.repo.InitSchema(ctx)
}

// OperationalSettings carries the runtime operator switches. Pointer fields
// distinguish "never set" from an explicit value.
type OperationalSettings struct {
	SweepPaused    *bool
	DispatchPaused *bool
	PauseReason    string
}

func (s *SettingsService) GetOperationalSettings(ctx context.Context) (*OperationalSettings, error) {
	os := &OperationalSettings{}

	if val, _ := s.repo.Get(ctx, domain.KeySweepPaused); val != "" {
		b := parseBool(val)
		os.SweepPaused = &b
	}
	if val, _ := s.repo.Get(ctx, domain.KeyDispatchPaused); val != "" {
		b := parseBool(val)
		os.DispatchPaused = &b
	}
	if val, _ := s.repo.Get(ctx, domain.KeyPauseReason); val != "" {
		os.PauseReason = val
	}
	return os, nil
}

func (s *SettingsService) SetSweepPaused(ctx context.Context, v bool) error {
	return s.repo.Set(ctx, domain.KeySweepPaused, boolValue(v))
}

func (s *SettingsService) SetDispatchPaused(ctx context.Context, v bool) error {
	return s.repo.Set(ctx, domain.KeyDispatchPaused, boolValue(v))
}

func (s *SettingsService) SetPauseReason(ctx context.Context, v string) error {
	return s.repo.Set(ctx, domain.KeyPauseReason, strings.TrimSpace(v))
}

// IsSweepPaused is the watcher gate. Lookup errors fail open so a broken
// settings table cannot silently halt scheduling.
func (s *SettingsService) IsSweepPaused(ctx context.Context) bool {
	val, err := s.repo.Get(ctx, domain.KeySweepPaused)
	if err != nil || val == "" {
		return false
	}
	return parseBool(val)
}

// IsDispatchPaused is the dispatcher gate, same fail-open rule.
func (s *SettingsService) IsDispatchPaused(ctx context.Context) bool {
	val, err := s.repo.Get(ctx, domain.KeyDispatchPaused)
	if err != nil || val == "" {
		return false
	}
	return parseBool(val)
}

func parseBool(v string) bool {
	vLower := strings.ToLower(v)
	return vLower == "1" || vLower == "true" || vLower == "yes" || vLower == "on"
}

func boolValue(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
