package models

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel defines the common fields for the relational models (posts).
// Graph entities carry string ids and do not embed it.
type BaseModel struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deletedAt,omitempty"`
}
