package db

import (
	"context"
	"errors"
	"fmt"

	"studiogear/internal/model"

	"gorm.io/gorm"
)

// AddGearImages stores images for a gear. When the gear has no primary image
// yet, the first new image becomes primary. IDs are written back into images.
func (s *gormService) AddGearImages(ctx context.Context, gearID string, images []model.GearImage) error {
	if len(images) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&model.Gear{}).Where("id = ?", gearID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return fmt.Errorf("gear %s: %w", gearID, ErrNotFound)
		}

		var primaries int64
		if err := tx.Model(&model.GearImage{}).Where("gear_id = ? AND is_primary = ?", gearID, true).Count(&primaries).Error; err != nil {
			return err
		}
		for i := range images {
			images[i].GearID = gearID
			images[i].IsPrimary = primaries == 0 && i == 0
		}
		if err := tx.Create(&images).Error; err != nil {
			return fmt.Errorf("failed to add images to gear %s: %w", gearID, err)
		}
		return nil
	})
}

func (s *gormService) ListGearImages(ctx context.Context, gearID string) ([]model.GearImage, error) {
	var images []model.GearImage
	err := s.db.WithContext(ctx).
		Where("gear_id = ?", gearID).
		Order("is_primary desc, id asc").
		Find(&images).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list images of gear %s: %w", gearID, err)
	}
	return images, nil
}

func (s *gormService) GetGearImage(ctx context.Context, id uint) (*model.GearImage, error) {
	var image model.GearImage
	if err := s.db.WithContext(ctx).First(&image, id).Error; err != nil {
		return nil, notFound(err, fmt.Sprintf("image %d", id))
	}
	return &image, nil
}

// DeleteGearImage removes an image. If it was primary, the oldest remaining
// image of the same gear is promoted.
func (s *gormService) DeleteGearImage(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var image model.GearImage
		if err := tx.First(&image, id).Error; err != nil {
			return notFound(err, fmt.Sprintf("image %d", id))
		}
		if err := tx.Unscoped().Delete(&image).Error; err != nil {
			return fmt.Errorf("failed to delete image %d: %w", id, err)
		}
		if !image.IsPrimary {
			return nil
		}

		var next model.GearImage
		err := tx.Where("gear_id = ?", image.GearID).Order("id asc").First(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return tx.Model(&next).Update("is_primary", true).Error
	})
}

func (s *gormService) SetPrimaryImage(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var image model.GearImage
		if err := tx.First(&image, id).Error; err != nil {
			return notFound(err, fmt.Sprintf("image %d", id))
		}
		if err := tx.Model(&model.GearImage{}).Where("gear_id = ?", image.GearID).Update("is_primary", false).Error; err != nil {
			return fmt.Errorf("failed to clear primary image: %w", err)
		}
		return tx.Model(&image).Update("is_primary", true).Error
	})
}
