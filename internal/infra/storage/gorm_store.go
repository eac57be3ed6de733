package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var tracer = otel.Tracer("storage")

// kvEntry is one row of the persisted key space.
type kvEntry struct {
	Key       string `gorm:"primaryKey;size:128"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (kvEntry) TableName() string { return "kv_entries" }

// GormStore is a KVStore backed by a SQLite table.
type GormStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// OpenSQLite opens (creating if needed) the SQLite file at path and runs
// the kv_entries migration.
func OpenSQLite(path string, log *zap.Logger) (*GormStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	// a single connection keeps :memory: databases alive and serializes writers
	sqlDB.SetMaxOpenConns(1)
	_, _ = sqlDB.Exec("PRAGMA journal_mode = WAL;")

	return NewGormStore(db, log)
}

// NewGormStore wraps an open gorm handle and migrates the kv_entries table.
func NewGormStore(db *gorm.DB, log *zap.Logger) (*GormStore, error) {
	if err := db.AutoMigrate(&kvEntry{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db, logger: log}, nil
}

// Get returns the value stored under key.
func (s *GormStore) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, span := tracer.Start(ctx, "GormStore.Get")
	defer span.End()
	span.SetAttributes(attribute.String("kv.key", key))

	var e kvEntry
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		s.logger.Error("storage: get failed", zap.String("key", key), zap.Error(err))
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return e.Value, true, nil
}

// Set upserts the whole value under key.
func (s *GormStore) Set(ctx context.Context, key, value string) error {
	ctx, span := tracer.Start(ctx, "GormStore.Set")
	defer span.End()
	span.SetAttributes(attribute.String("kv.key", key))

	e := kvEntry{Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
	if err != nil {
		s.logger.Error("storage: set failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *GormStore) Delete(ctx context.Context, key string) error {
	ctx, span := tracer.Start(ctx, "GormStore.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("kv.key", key))

	if err := s.db.WithContext(ctx).Where("key = ?", key).Delete(&kvEntry{}).Error; err != nil {
		s.logger.Error("storage: delete failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Ping checks the underlying database connection.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the database handle.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
