package db

import (
	"context"
	"fmt"

	"studiogear/internal/model"

	"gorm.io/gorm"
)

func (s *gormService) CreateProject(ctx context.Context, project *model.Project) error {
	if project.Status == "" {
		project.Status = model.ProjectStatusPlanning
	}
	if err := s.db.WithContext(ctx).Omit("Gear").Create(project).Error; err != nil {
		return fmt.Errorf("failed to create project %q: %w", project.Name, err)
	}
	return nil
}

func (s *gormService) GetProject(ctx context.Context, id uint) (*model.Project, error) {
	var project model.Project
	err := s.db.WithContext(ctx).
		Preload("Gear", func(db *gorm.DB) *gorm.DB { return db.Order("category asc, brand asc, name asc") }).
		Preload("Gear.Images", "is_primary = ?", true).
		First(&project, id).Error
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("project %d", id))
	}
	return &project, nil
}

func (s *gormService) ListProjects(ctx context.Context) ([]model.Project, error) {
	var projects []model.Project
	if err := s.db.WithContext(ctx).Order("id asc").Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

func (s *gormService) UpdateProject(ctx context.Context, project *model.Project) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Project
		if err := tx.First(&existing, project.ID).Error; err != nil {
			return notFound(err, fmt.Sprintf("project %d", project.ID))
		}
		if err := tx.Model(&existing).Select("name", "description", "status").Updates(project).Error; err != nil {
			return fmt.Errorf("failed to update project %d: %w", project.ID, err)
		}
		return nil
	})
}

func (s *gormService) DeleteProject(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project model.Project
		if err := tx.First(&project, id).Error; err != nil {
			return notFound(err, fmt.Sprintf("project %d", id))
		}
		if err := tx.Model(&project).Association("Gear").Clear(); err != nil {
			return fmt.Errorf("failed to clear project gear: %w", err)
		}
		return tx.Unscoped().Delete(&project).Error
	})
}

// AddGearToProject assigns gear to a project. Every id must exist.
func (s *gormService) AddGearToProject(ctx context.Context, projectID uint, gearIDs []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project model.Project
		if err := tx.First(&project, projectID).Error; err != nil {
			return notFound(err, fmt.Sprintf("project %d", projectID))
		}

		unique := make(map[string]struct{}, len(gearIDs))
		for _, id := range gearIDs {
			unique[id] = struct{}{}
		}
		var gear []model.Gear
		if err := tx.Where("id IN ?", gearIDs).Find(&gear).Error; err != nil {
			return err
		}
		if len(gear) != len(unique) {
			return fmt.Errorf("some gear ids: %w", ErrNotFound)
		}
		if err := tx.Model(&project).Association("Gear").Append(&gear); err != nil {
			return fmt.Errorf("failed to assign gear: %w", err)
		}
		return nil
	})
}

func (s *gormService) RemoveGearFromProject(ctx context.Context, projectID uint, gearID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project model.Project
		if err := tx.First(&project, projectID).Error; err != nil {
			return notFound(err, fmt.Sprintf("project %d", projectID))
		}
		if err := tx.Model(&project).Association("Gear").Delete(&model.Gear{ID: gearID}); err != nil {
			return fmt.Errorf("failed to unassign gear %s: %w", gearID, err)
		}
		return nil
	})
}
