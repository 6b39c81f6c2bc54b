package model

import (
	"time"

	"gorm.io/gorm"
)

// ReviewCategory marks gear that could not be classified automatically.
const ReviewCategory = "needs-review"

// Gear is a single piece of studio equipment in the catalogue.
// The ID is a synthetic slug generated at import time.
type Gear struct {
	ID             string      `gorm:"type:varchar(191);primaryKey" json:"id"`
	Name           string      `gorm:"type:varchar(255);not null" json:"name"`
	Brand          string      `gorm:"type:varchar(100);index;not null" json:"brand"`
	Category       string      `gorm:"type:varchar(50);index;not null" json:"category"`
	Subcategory    string      `gorm:"type:varchar(100)" json:"subcategory"`
	Description    string      `gorm:"type:text" json:"description"`
	Tags           []string    `gorm:"type:text;serializer:json" json:"tags"`
	SoundTone      []string    `gorm:"type:text;serializer:json" json:"soundTone"`
	SoundQualities []string    `gorm:"type:text;serializer:json" json:"soundQualities"`
	NeedsReview    bool        `gorm:"default:false;not null;index" json:"needsReview"`
	Images         []GearImage `gorm:"constraint:OnDelete:CASCADE" json:"images,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// GearImage is an image attached to a piece of gear, either uploaded by an
// admin or found through the image search API.
type GearImage struct {
	gorm.Model
	GearID       string `gorm:"type:varchar(191);index;not null" json:"gearId"`
	URL          string `gorm:"type:text;not null" json:"url"`
	ThumbnailURL string `gorm:"type:text" json:"thumbnailUrl,omitempty"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Source       string `gorm:"type:varchar(255)" json:"source"`
	StorageKey   string `gorm:"type:varchar(255)" json:"storageKey,omitempty"`
	IsPrimary    bool   `gorm:"default:false;not null" json:"primary"`
}

// ImageSourceUpload is the Source of images uploaded through the admin API.
const ImageSourceUpload = "upload"

// GearFilter narrows a gear listing. Nil fields are ignored.
type GearFilter struct {
	Query       string
	Category    string
	Subcategory string
	Brand       string
	Tag         string
	NeedsReview *bool
	Offset      *int
	Limit       *int
}

// GearListResult is one page of gear plus the total number of matches.
type GearListResult struct {
	TotalCount int64  `json:"totalCount"`
	Gear       []Gear `json:"gear"`
	Offset     int    `json:"offset"`
	Limit      int    `json:"limit"`
}
