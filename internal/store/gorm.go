package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/i474232898/weather-insights/internal/weather"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// GormStore persists readings and insights through gorm.
type GormStore struct {
	db *gorm.DB
}

// Open connects to the database named by driver and dsn and migrates the schema.
func Open(driver, dsn string) (*GormStore, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case DriverSQLite, "sqlite3":
		dialector = sqlite.Open(dsn)
	case DriverPostgres, "postgresql":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	return NewGormStore(db)
}

// NewGormStore wraps an open connection and migrates the schema.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&weather.Reading{}, &weather.Insight{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the connection is alive.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) PutReading(ctx context.Context, r *weather.Reading) (uint, error) {
	// sqlite keeps timestamps as text, so every stored and compared time is UTC
	r.ObservedAt = r.ObservedAt.UTC()
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return 0, fmt.Errorf("failed to insert reading: %w", err)
	}
	return r.ID, nil
}

func (s *GormStore) QueryReadings(ctx context.Context, since time.Time, location string) ([]weather.Reading, error) {
	q := s.db.WithContext(ctx).Where("observed_at >= ?", since.UTC())
	if location != "" {
		q = q.Where("LOWER(location) = LOWER(?)", location)
	}

	readings := make([]weather.Reading, 0)
	if err := q.Order("observed_at DESC").Order("id DESC").Find(&readings).Error; err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	return readings, nil
}

func (s *GormStore) LatestReading(ctx context.Context, location string) (weather.Reading, error) {
	q := s.db.WithContext(ctx)
	if location != "" {
		q = q.Where("LOWER(location) = LOWER(?)", location)
	}

	var r weather.Reading
	err := q.Order("observed_at DESC").Order("id DESC").Take(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return weather.Reading{}, weather.ErrNotFound
	}
	if err != nil {
		return weather.Reading{}, fmt.Errorf("failed to load latest reading: %w", err)
	}
	return r, nil
}

func (s *GormStore) PutInsight(ctx context.Context, in *weather.Insight) (uint, error) {
	if in.GeneratedAt.IsZero() {
		in.GeneratedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(in).Error; err != nil {
		return 0, fmt.Errorf("failed to insert insight: %w", err)
	}
	return in.ID, nil
}

func (s *GormStore) LatestInsight(ctx context.Context) (weather.Insight, error) {
	var in weather.Insight
	err := s.db.WithContext(ctx).Order("generated_at DESC").Order("id DESC").Take(&in).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return weather.Insight{}, weather.ErrNotFound
	}
	if err != nil {
		return weather.Insight{}, fmt.Errorf("failed to load latest insight: %w", err)
	}
	return in, nil
}

func (s *GormStore) ListInsights(ctx context.Context, limit int) ([]weather.Insight, error) {
	q := s.db.WithContext(ctx).Order("generated_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	insights := make([]weather.Insight, 0)
	if err := q.Find(&insights).Error; err != nil {
		return nil, fmt.Errorf("failed to list insights: %w", err)
	}
	return insights, nil
}
