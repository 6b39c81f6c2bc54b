package db

import (
	"context"
	"fmt"
	"strings"

	"studiogear/internal/model"

	"gorm.io/gorm"
)

func preloadImages(db *gorm.DB) *gorm.DB {
	return db.Preload("Images", func(db *gorm.DB) *gorm.DB {
		return db.Order("is_primary desc, id asc")
	})
}

func (s *gormService) CreateGear(ctx context.Context, gear *model.Gear) error {
	if err := s.db.WithContext(ctx).Omit("Images").Create(gear).Error; err != nil {
		return fmt.Errorf("failed to create gear %s: %w", gear.ID, err)
	}
	return nil
}

func (s *gormService) GetGear(ctx context.Context, id string) (*model.Gear, error) {
	var gear model.Gear
	if err := preloadImages(s.db.WithContext(ctx)).First(&gear, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "gear "+id)
	}
	return &gear, nil
}

// UpdateGear overwrites the editable fields of an existing gear record.
func (s *gormService) UpdateGear(ctx context.Context, gear *model.Gear) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Gear
		if err := tx.Select("id").First(&existing, "id = ?", gear.ID).Error; err != nil {
			return notFound(err, "gear "+gear.ID)
		}
		err := tx.Model(&existing).
			Select("name", "brand", "category", "subcategory", "description", "tags", "sound_tone", "sound_qualities", "needs_review").
			Updates(gear).Error
		if err != nil {
			return fmt.Errorf("failed to update gear %s: %w", gear.ID, err)
		}
		return nil
	})
}

// DeleteGear removes the gear, its images and its project assignments.
func (s *gormService) DeleteGear(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("gear_id = ?", id).Delete(&model.GearImage{}).Error; err != nil {
			return fmt.Errorf("failed to delete images of gear %s: %w", id, err)
		}
		if err := tx.Exec("DELETE FROM project_gear WHERE gear_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to unassign gear %s: %w", id, err)
		}
		result := tx.Delete(&model.Gear{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete gear %s: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("gear %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

func (s *gormService) ListGear(ctx context.Context, filter model.GearFilter) (*model.GearListResult, error) {
	query := s.db.WithContext(ctx).Model(&model.Gear{})

	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(brand) LIKE ? OR LOWER(description) LIKE ?", like, like, like)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Subcategory != "" {
		query = query.Where("subcategory = ?", filter.Subcategory)
	}
	if filter.Brand != "" {
		query = query.Where("LOWER(brand) = ?", strings.ToLower(filter.Brand))
	}
	if filter.Tag != "" {
		// Tags are stored as a JSON array of strings.
		query = query.Where("tags LIKE ?", `%"`+strings.ToLower(filter.Tag)+`"%`)
	}
	if filter.NeedsReview != nil {
		query = query.Where("needs_review = ?", *filter.NeedsReview)
	}

	query = query.Session(&gorm.Session{})
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count gear: %w", err)
	}

	offset, limit := PaginationParams(filter.Offset, filter.Limit)
	var gear []model.Gear
	err := preloadImages(query).
		Order("created_at desc, id asc").
		Offset(offset).
		Limit(limit).
		Find(&gear).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list gear: %w", err)
	}

	return &model.GearListResult{
		TotalCount: total,
		Gear:       gear,
		Offset:     offset,
		Limit:      limit,
	}, nil
}

func (s *gormService) ListGearByIDs(ctx context.Context, ids []string) ([]model.Gear, error) {
	var gear []model.Gear
	if len(ids) == 0 {
		return gear, nil
	}
	if err := preloadImages(s.db.WithContext(ctx)).Where("id IN ?", ids).Find(&gear).Error; err != nil {
		return nil, fmt.Errorf("failed to load gear: %w", err)
	}
	return gear, nil
}

// ListGearWithoutImages returns the oldest classified gear that has no
// image yet, for the backfill job.
func (s *gormService) ListGearWithoutImages(ctx context.Context, limit int) ([]model.Gear, error) {
	var gear []model.Gear
	err := s.db.WithContext(ctx).
		Where("needs_review = ?", false).
		Where("NOT EXISTS (SELECT 1 FROM gear_images WHERE gear_images.gear_id = gears.id AND gear_images.deleted_at IS NULL)").
		Order("created_at asc, id asc").
		Limit(limit).
		Find(&gear).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list gear without images: %w", err)
	}
	return gear, nil
}

func (s *gormService) CategoryCounts(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Category string
		Count    int64
	}
	err := s.db.WithContext(ctx).Model(&model.Gear{}).
		Select("category, COUNT(*) AS count").
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Category] = r.Count
	}
	return counts, nil
}
