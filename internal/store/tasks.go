package store

import (
	"context"
	"fmt"
)

func (s *Store) ListTasksByUser(ctx context.Context, userID string) ([]Task, error) {
	tasks := []Task{}
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	return tasks, nil
}

func (s *Store) CreateTask(ctx context.Context, task *Task) error {
	if err := s.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

func (s *Store) GetTask(ctx context.Context, id int64) (*Task, error) {
	return getByID[Task](ctx, s.db, id)
}

func (s *Store) UpdateTask(ctx context.Context, id int64, updates map[string]any) (*Task, error) {
	return updateByID[Task](ctx, s.db, id, updates)
}

func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	return deleteByID[Task](ctx, s.db, id)
}
