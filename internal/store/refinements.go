package store

import (
	"context"
	"fmt"
)

func (s *Store) ListRefinements(ctx context.Context) ([]Refinement, error) {
	refinements := []Refinement{}
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&refinements).Error; err != nil {
		return nil, fmt.Errorf("failed to query refinements: %w", err)
	}
	return refinements, nil
}

func (s *Store) CreateRefinement(ctx context.Context, refinement *Refinement) error {
	if err := s.db.WithContext(ctx).Create(refinement).Error; err != nil {
		return fmt.Errorf("failed to insert refinement: %w", err)
	}
	return nil
}

func (s *Store) GetRefinement(ctx context.Context, id string) (*Refinement, error) {
	return getByID[Refinement](ctx, s.db, id)
}

func (s *Store) UpdateRefinement(ctx context.Context, id string, updates map[string]any) (*Refinement, error) {
	return updateByID[Refinement](ctx, s.db, id, updates)
}

func (s *Store) DeleteRefinement(ctx context.Context, id string) error {
	return deleteByID[Refinement](ctx, s.db, id)
}
