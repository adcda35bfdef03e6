package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Brand struct {
	ID        string      `json:"id" gorm:"type:uuid;primary_key"`
	Name      string      `json:"name" gorm:"not null;index"`
	Status    BrandStatus `json:"status" gorm:"default:active"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type BrandStatus string

const (
	BrandStatusActive BrandStatus = "active"
	// BrandStatusOnRevision marks user-submitted brand requests awaiting
	// review.
	BrandStatusOnRevision BrandStatus = "on_revision"
)

func (b *Brand) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return nil
}

// Category is a node in the category tree; root categories have a nil
// parent.
type Category struct {
	ID        int64     `json:"id" gorm:"primary_key;autoIncrement"`
	Name      string    `json:"name" gorm:"not null;index"`
	ParentID  *int64    `json:"parent_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
