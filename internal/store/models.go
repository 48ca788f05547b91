package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	UnitsStandard = "standard"
	UnitsMetric   = "metric"
	UnitsImperial = "imperial"
)

type User struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	AuthUserID  string    `json:"authUserId" gorm:"uniqueIndex;not null"`
	Email       *string   `json:"email"`
	DisplayName *string   `json:"displayName"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

type Task struct {
	ID           int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Task         string    `json:"task" gorm:"not null"`
	Done         bool      `json:"done" gorm:"not null;default:false"`
	UserID       string    `json:"userId" gorm:"not null;index"`
	AssignedDate time.Time `json:"assignedDate"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Feedback struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	UserID      string    `json:"userId" gorm:"not null;index"`
	FeatureType string    `json:"featureType" gorm:"not null"`
	FeatureID   string    `json:"featureId" gorm:"not null"`
	Rating      int       `json:"rating" gorm:"not null;check:rating >= 1 AND rating <= 5"`
	Comment     *string   `json:"comment"`
	Vector      Vector    `json:"vector" gorm:"type:vector(1536)"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Feedback) TableName() string { return "feedback" }

func (f *Feedback) BeforeCreate(*gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

type Refinement struct {
	ID                    string    `json:"id" gorm:"primaryKey"`
	UserID                string    `json:"userId" gorm:"not null;index"`
	OriginalText          string    `json:"originalText" gorm:"not null"`
	OriginalTextWordCount int       `json:"originalTextWordCount" gorm:"not null;default:0"`
	RefinedText           string    `json:"refinedText" gorm:"not null"`
	RefinedTextWordCount  int       `json:"refinedTextWordCount" gorm:"not null;default:0"`
	Explanation           *string   `json:"explanation"`
	Vector                Vector    `json:"vector" gorm:"type:vector(1536)"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

func (r *Refinement) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// Settings is keyed one-to-one by UserID.
type Settings struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"userId" gorm:"uniqueIndex;not null"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	City      *string   `json:"city"`
	State     *string   `json:"state"`
	Country   *string   `json:"country" gorm:"size:2"`
	Units     string    `json:"units" gorm:"not null;default:imperial"`
	Language  string    `json:"language" gorm:"size:2;not null;default:en"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Settings) TableName() string { return "settings" }

func (s *Settings) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Units == "" {
		s.Units = UnitsImperial
	}
	if s.Language == "" {
		s.Language = "en"
	}
	return nil
}
