package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/jeff-ai/jeff-api/internal/logger"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	// Unique in-memory database per test.
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	s, err := Open(dsn, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSeed(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Seed(ctx))
	// Seeding twice resets instead of duplicating.
	require.NoError(t, s.Seed(ctx))

	tasks, err := s.ListTasksByUser(ctx, "foo")
	require.NoError(t, err)
	assert.Len(t, tasks, 3)

	feedback, err := s.ListFeedback(ctx)
	require.NoError(t, err)
	require.Len(t, feedback, 10)
	assert.Len(t, feedback[0].Vector, EmbeddingDimensions)

	refinements, err := s.ListRefinements(ctx)
	require.NoError(t, err)
	assert.Len(t, refinements, 10)

	settings, err := s.GetSettingsByUser(ctx, "foo")
	require.NoError(t, err)
	assert.Equal(t, UnitsImperial, settings.Units)
}

func TestTaskLifecycle(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Seed(ctx))

	assigned := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	task := &Task{Task: "Learn X", UserID: "foo", AssignedDate: assigned}
	require.NoError(t, s.CreateTask(ctx, task))
	require.NotZero(t, task.ID)

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Learn X", got.Task)
	assert.False(t, got.Done)
	assert.True(t, assigned.Equal(got.AssignedDate))

	updated, err := s.UpdateTask(ctx, task.ID, map[string]any{"done": true})
	require.NoError(t, err)
	assert.True(t, updated.Done)
	assert.Equal(t, "Learn X", updated.Task)

	require.NoError(t, s.DeleteTask(ctx, task.ID))
	assert.True(t, errors.Is(s.DeleteTask(ctx, task.ID), ErrNotFound))

	_, err = s.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.UpdateTask(ctx, task.ID, map[string]any{"done": false})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFeedbackVectorRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Seed(ctx))

	vec := make(Vector, EmbeddingDimensions)
	for i := range vec {
		vec[i] = float32(i%7) / 10
	}
	comment := "nice"
	fb := &Feedback{UserID: "foo", FeatureType: "refinements", FeatureID: "r-1", Rating: 4, Comment: &comment, Vector: vec}
	require.NoError(t, s.CreateFeedback(ctx, fb))

	got, err := s.GetFeedback(ctx, fb.ID)
	require.NoError(t, err)
	require.Len(t, got.Vector, EmbeddingDimensions)
	assert.InDelta(t, vec[6], got.Vector[6], 1e-6)

	noComment := &Feedback{UserID: "foo", FeatureType: "tasks", FeatureID: "t-1", Rating: 5}
	require.NoError(t, s.CreateFeedback(ctx, noComment))
	got, err = s.GetFeedback(ctx, noComment.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Vector)
	assert.Nil(t, got.Comment)
}

func TestCreateUserRejectsDuplicateAuthID(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, &User{AuthUserID: "dup"}))
	err := s.CreateUser(ctx, &User{AuthUserID: "dup"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), err)
}

func TestCaptureUserIsIdempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	email := "quack@example.com"
	first, created, err := s.CaptureUser(ctx, &User{AuthUserID: "quack123", Email: &email})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, first.ID)

	second, created, err := s.CaptureUser(ctx, &User{AuthUserID: "quack123"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	exists, err := s.UserExists(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSettingsPerUser(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Seed(ctx))

	_, err := s.GetSettingsByUser(ctx, "bar")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.CreateSettings(ctx, &Settings{UserID: "bar"}))
	assert.ErrorIs(t, s.CreateSettings(ctx, &Settings{UserID: "bar"}), ErrSettingsExist)

	updated, err := s.UpdateSettingsByUser(ctx, "bar", map[string]any{"units": UnitsMetric})
	require.NoError(t, err)
	assert.Equal(t, UnitsMetric, updated.Units)
	assert.Equal(t, "en", updated.Language)

	_, err = s.UpdateSettingsByUser(ctx, "baz", map[string]any{"units": UnitsMetric})
	assert.ErrorIs(t, err, ErrNotFound)
}
