package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

func (s *Store) GetUserByAuthID(ctx context.Context, authUserID string) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("auth_user_id = ?", authUserID).First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) UserExists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to query user: %w", err)
	}
	return count > 0, nil
}

func (s *Store) CreateUser(ctx context.Context, user *User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// CaptureUser returns the user with candidate.AuthUserID, inserting candidate
// when none exists. created reports whether a row was inserted.
func (s *Store) CaptureUser(ctx context.Context, candidate *User) (user *User, created bool, err error) {
	existing, err := s.GetUserByAuthID(ctx, candidate.AuthUserID)
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, ErrNotFound):
		return nil, false, fmt.Errorf("failed to query user: %w", err)
	}

	err = s.CreateUser(ctx, candidate)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost a race with a concurrent capture for the same identity.
		existing, err = s.GetUserByAuthID(ctx, candidate.AuthUserID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to query user: %w", err)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return candidate, true, nil
}
