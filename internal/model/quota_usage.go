package model

// QuotaUsage counts successful image search calls for one calendar day.
type QuotaUsage struct {
	ID        uint   `gorm:"primaryKey"`
	Date      string `gorm:"type:varchar(10);uniqueIndex;not null"`
	CallsUsed int    `gorm:"default:0;not null"`
}
