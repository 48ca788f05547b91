package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrSettingsExist is returned when a user already has a settings row.
var ErrSettingsExist = errors.New("settings already exist for user")

func (s *Store) GetSettingsByUser(ctx context.Context, userID string) (*Settings, error) {
	var settings Settings
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&settings).Error; err != nil {
		return nil, translate(err)
	}
	return &settings, nil
}

func (s *Store) CreateSettings(ctx context.Context, settings *Settings) error {
	err := s.db.WithContext(ctx).Create(settings).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrSettingsExist
	}
	if err != nil {
		return fmt.Errorf("failed to insert settings: %w", err)
	}
	return nil
}

func (s *Store) UpdateSettingsByUser(ctx context.Context, userID string, updates map[string]any) (*Settings, error) {
	current, err := s.GetSettingsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return updateByID[Settings](ctx, s.db, current.ID, updates)
}
