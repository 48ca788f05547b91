package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/jeff-ai/jeff-api/internal/logger"
)

var ErrNotFound = errors.New("record not found")

type Store struct {
	db  *gorm.DB
	log *logger.Logger
}

// Open connects to postgres when dsn is a postgres URL and to sqlite otherwise.
func Open(dsn string, log *logger.Logger) (*Store, error) {
	dialector, err := dialectorFor(dsn)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &Store{db: db, log: log.With("component", "store", "dialect", db.Dialector.Name())}, nil
}

func dialectorFor(dsn string) (gorm.Dialector, error) {
	if isPostgres(dsn) {
		return postgres.Open(dsn), nil
	}
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	// sqlite allows one writer; a single connection avoids "database is locked".
	sqlDB.SetMaxOpenConns(1)
	return &sqlite.Dialector{Conn: sqlDB}, nil
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate creates or updates every table.
func (s *Store) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
			return fmt.Errorf("failed to enable vector extension: %w", err)
		}
	}
	if err := db.AutoMigrate(&User{}, &Task{}, &Feedback{}, &Refinement{}, &Settings{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	s.log.Info("Schema migrated")
	return nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func getByID[T any](ctx context.Context, db *gorm.DB, id any) (*T, error) {
	var rec T
	if err := db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}

// updateByID applies a partial update and returns the reloaded row.
func updateByID[T any](ctx context.Context, db *gorm.DB, id any, updates map[string]any) (*T, error) {
	rec, err := getByID[T](ctx, db, id)
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(rec).Updates(updates).Error; err != nil {
		return nil, err
	}
	return getByID[T](ctx, db, id)
}

func deleteByID[T any](ctx context.Context, db *gorm.DB, id any) error {
	var rec T
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&rec)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
