package store

import (
	"context"
	"fmt"
)

func (s *Store) ListFeedback(ctx context.Context) ([]Feedback, error) {
	feedback := []Feedback{}
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&feedback).Error; err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	return feedback, nil
}

func (s *Store) CreateFeedback(ctx context.Context, feedback *Feedback) error {
	if err := s.db.WithContext(ctx).Create(feedback).Error; err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}
	return nil
}

func (s *Store) GetFeedback(ctx context.Context, id string) (*Feedback, error) {
	return getByID[Feedback](ctx, s.db, id)
}

func (s *Store) UpdateFeedback(ctx context.Context, id string, updates map[string]any) (*Feedback, error) {
	return updateByID[Feedback](ctx, s.db, id, updates)
}

func (s *Store) DeleteFeedback(ctx context.Context, id string) error {
	return deleteByID[Feedback](ctx, s.db, id)
}
