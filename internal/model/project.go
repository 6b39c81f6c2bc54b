package model

import "gorm.io/gorm"

// ProjectStatus is the production stage of a recording project.
type ProjectStatus string

const (
	ProjectStatusPlanning ProjectStatus = "planning"
	ProjectStatusTracking ProjectStatus = "tracking"
	ProjectStatusMixing   ProjectStatus = "mixing"
	ProjectStatusDone     ProjectStatus = "done"
)

// Valid reports whether s is a known status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusPlanning, ProjectStatusTracking, ProjectStatusMixing, ProjectStatusDone:
		return true
	}
	return false
}

// Project is a recording session and the gear loadout assigned to it.
type Project struct {
	gorm.Model
	Name        string        `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Description string        `gorm:"type:text" json:"description"`
	Status      ProjectStatus `gorm:"type:varchar(20);default:'planning';not null" json:"status"`
	Gear        []Gear        `gorm:"many2many:project_gear;" json:"gear,omitempty"`
}
