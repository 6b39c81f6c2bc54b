package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"studiogear/internal/config"
	"studiogear/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Service is the persistence layer used by the HTTP handlers, the importer
// and the quota counter.
type Service interface {
	GetDB() *gorm.DB
	HealthCheck(ctx context.Context) error
	Close() error

	CreateGear(ctx context.Context, gear *model.Gear) error
	GetGear(ctx context.Context, id string) (*model.Gear, error)
	UpdateGear(ctx context.Context, gear *model.Gear) error
	DeleteGear(ctx context.Context, id string) error
	ListGear(ctx context.Context, filter model.GearFilter) (*model.GearListResult, error)
	ListGearByIDs(ctx context.Context, ids []string) ([]model.Gear, error)
	ListGearWithoutImages(ctx context.Context, limit int) ([]model.Gear, error)
	CategoryCounts(ctx context.Context) (map[string]int64, error)

	AddGearImages(ctx context.Context, gearID string, images []model.GearImage) error
	ListGearImages(ctx context.Context, gearID string) ([]model.GearImage, error)
	GetGearImage(ctx context.Context, id uint) (*model.GearImage, error)
	DeleteGearImage(ctx context.Context, id uint) error
	SetPrimaryImage(ctx context.Context, id uint) error

	CreateProject(ctx context.Context, project *model.Project) error
	GetProject(ctx context.Context, id uint) (*model.Project, error)
	ListProjects(ctx context.Context) ([]model.Project, error)
	UpdateProject(ctx context.Context, project *model.Project) error
	DeleteProject(ctx context.Context, id uint) error
	AddGearToProject(ctx context.Context, projectID uint, gearIDs []string) error
	RemoveGearFromProject(ctx context.Context, projectID uint, gearID string) error

	GetQuotaUsage(ctx context.Context, date string) (int, error)
	IncrementQuotaUsage(ctx context.Context, date string, n int) error
}

type gormService struct {
	db *gorm.DB
}

// NewService opens the configured database, tunes its connection pool and
// migrates the schema.
func NewService(cfg config.DatabaseConfig) (Service, error) {
	var dialector gorm.Dialector
	switch cfg.Type {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	switch {
	case cfg.MaxOpenConns > 0:
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	case cfg.Type == "sqlite":
		// sqlite allows a single writer, and every connection to an
		// in-memory DSN is a separate database.
		sqlDB.SetMaxOpenConns(1)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&model.Gear{}, &model.GearImage{}, &model.Project{}, &model.QuotaUsage{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	return &gormService{db: db}, nil
}

// NewServiceFromDB wraps an already opened connection without migrating it.
func NewServiceFromDB(db *gorm.DB) Service {
	return &gormService{db: db}
}

func (s *gormService) GetDB() *gorm.DB {
	return s.db
}

func (s *gormService) HealthCheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

func (s *gormService) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}

// notFound maps gorm's not-found error onto ErrNotFound.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}
