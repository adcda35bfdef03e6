package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductMapping links an external item id to the canonical product it was
// reconciled into. Removed when the external platform deletes the item.
type ProductMapping struct {
	ID            string    `json:"id" gorm:"type:uuid;primary_key"`
	IntegrationID string    `json:"integration_id" gorm:"type:uuid;not null;index:idx_mappings_external,unique"`
	ExternalID    string    `json:"external_id" gorm:"not null;index:idx_mappings_external,unique"`
	ProductID     string    `json:"product_id" gorm:"type:uuid;not null;index"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (m *ProductMapping) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}
