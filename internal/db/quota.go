package db

import (
	"context"
	"errors"
	"fmt"

	"studiogear/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetQuotaUsage returns the calls used on date, or 0 when no row exists.
func (s *gormService) GetQuotaUsage(ctx context.Context, date string) (int, error) {
	var usage model.QuotaUsage
	err := s.db.WithContext(ctx).Where("date = ?", date).First(&usage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read quota usage for %s: %w", date, err)
	}
	return usage.CallsUsed, nil
}

// IncrementQuotaUsage adds n to the counter for date, creating the row on
// first use of the day.
func (s *gormService) IncrementQuotaUsage(ctx context.Context, date string, n int) error {
	if n <= 0 {
		return fmt.Errorf("quota increment must be positive, got %d", n)
	}
	usage := model.QuotaUsage{Date: date, CallsUsed: n}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"calls_used": gorm.Expr("quota_usages.calls_used + ?", n),
		}),
	}).Create(&usage).Error
	if err != nil {
		return fmt.Errorf("failed to record quota usage for %s: %w", date, err)
	}
	return nil
}
