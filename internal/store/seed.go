package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var seedUserIDs = []string{"foo", "bar", "baz"}

var seedVectorValues = []float32{0, 0.3, 0.5, 0.7, 0.9}

// Seed wipes every table and inserts a small deterministic fixture set.
func (s *Store) Seed(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&Settings{}, &Refinement{}, &Feedback{}, &Task{}, &User{}} {
			if err := tx.Where("1 = 1").Delete(model).Error; err != nil {
				return fmt.Errorf("failed to reset table: %w", err)
			}
		}

		base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
		for i, id := range seedUserIDs {
			email := fmt.Sprintf("%s@example.com", id)
			name := fmt.Sprintf("Seed User %d", i+1)
			if err := tx.Create(&User{ID: id, AuthUserID: id, Email: &email, DisplayName: &name}).Error; err != nil {
				return fmt.Errorf("failed to seed user %s: %w", id, err)
			}
		}

		for i, label := range []string{"Write the weekly summary", "Review refinements", "Call the plumber"} {
			task := Task{Task: label, Done: i == 0, UserID: "foo", AssignedDate: base.AddDate(0, 0, i)}
			if err := tx.Create(&task).Error; err != nil {
				return fmt.Errorf("failed to seed task: %w", err)
			}
		}

		for i := 0; i < 10; i++ {
			comment := fmt.Sprintf("Seeded feedback comment %d", i+1)
			fb := Feedback{
				UserID:      seedUserIDs[i%len(seedUserIDs)],
				FeatureType: "refinements",
				FeatureID:   fmt.Sprintf("seed-refinement-%d", i+1),
				Rating:      i%5 + 1,
				Comment:     &comment,
				Vector:      seedVector(i),
			}
			if err := tx.Create(&fb).Error; err != nil {
				return fmt.Errorf("failed to seed feedback: %w", err)
			}
		}

		for i := 0; i < 10; i++ {
			original := fmt.Sprintf("so um this is like seeded text number %d", i+1)
			refined := fmt.Sprintf("This is seeded text number %d.", i+1)
			ref := Refinement{
				UserID:                seedUserIDs[i%len(seedUserIDs)],
				OriginalText:          original,
				OriginalTextWordCount: 9,
				RefinedText:           refined,
				RefinedTextWordCount:  5,
				Vector:                seedVector(i + 1),
			}
			if err := tx.Create(&ref).Error; err != nil {
				return fmt.Errorf("failed to seed refinement: %w", err)
			}
		}

		lat, lon := 40.7128, -74.006
		city, state, country := "New York", "NY", "US"
		settings := Settings{UserID: "foo", Latitude: &lat, Longitude: &lon, City: &city, State: &state, Country: &country, Units: UnitsImperial, Language: "en"}
		if err := tx.Create(&settings).Error; err != nil {
			return fmt.Errorf("failed to seed settings: %w", err)
		}

		s.log.Info("Database seeded", "users", len(seedUserIDs), "feedback", 10, "refinements", 10)
		return nil
	})
}

func seedVector(offset int) Vector {
	v := make(Vector, EmbeddingDimensions)
	for i := range v {
		v[i] = seedVectorValues[(i+offset)%len(seedVectorValues)]
	}
	return v
}
