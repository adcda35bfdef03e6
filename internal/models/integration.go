package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Integration is one connected external store for a business tenant.
type Integration struct {
	ID          string            `json:"id" gorm:"type:uuid;primary_key"`
	BusinessID  string            `json:"business_id" gorm:"not null;index"`
	ShopDomain  string            `json:"shop_domain" gorm:"not null;index"`
	AccessToken string            `json:"-"`
	Status      IntegrationStatus `json:"status" gorm:"default:pending"`
	// StateToken is the single-use CSRF token issued when the OAuth flow
	// starts and matched on callback.
	StateToken  string     `json:"-"`
	LastSyncAt  *time.Time `json:"last_sync_at"`
	SyncedCount int        `json:"synced_count"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type IntegrationStatus string

const (
	IntegrationStatusPending      IntegrationStatus = "pending"
	IntegrationStatusActive       IntegrationStatus = "active"
	IntegrationStatusExpired      IntegrationStatus = "expired"
	IntegrationStatusDisconnected IntegrationStatus = "disconnected"
)

func (i *Integration) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	return nil
}
