package models

import (
	"time"
)

// User holds the Dodji balance. Identity comes from the auth token; the row is
// created lazily on first reward.
type User struct {
	ID             string     `gorm:"primaryKey;type:varchar(64)"`
	Name           string     `gorm:"default:''"`
	Email          string     `gorm:"default:''"`
	DodjiBalance   int64      `gorm:"default:0"`
	LastActivityAt *time.Time `json:"last_activity_at"`
	IsDeleted      bool       `gorm:"default:false"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
