package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Product struct {
	ID               string            `json:"id" gorm:"type:uuid;primary_key"`
	BusinessID       string            `json:"business_id" gorm:"not null;index"`
	Name             string            `json:"name" gorm:"not null"`
	ShortName        string            `json:"short_name"`
	Description      string            `json:"description"`
	ShortDescription string            `json:"short_description"`
	BrandID          *string           `json:"brand_id" gorm:"type:uuid"`
	SubcategoryID    int64             `json:"subcategory_id"`
	ImagesURL        []string          `json:"images_url" gorm:"serializer:json"`
	Keywords         []string          `json:"keywords" gorm:"serializer:json"`
	Dimensions       map[string]string `json:"dimensions" gorm:"serializer:json"`
	Specifications   map[string]string `json:"specifications" gorm:"serializer:json"`
	// ShippingCost is in minor currency units.
	ShippingCost int64         `json:"shipping_cost"`
	Status       ProductStatus `json:"status" gorm:"default:draft"`

	// Set only for products owned by an external integration. The pair is
	// the identity key used on resync; name is the fallback for manual and
	// file imports.
	ExternalID    *string `json:"external_id" gorm:"index:idx_products_external,unique"`
	IntegrationID *string `json:"integration_id" gorm:"type:uuid;index:idx_products_external,unique"`

	Variants  []ProductVariant `json:"variants,omitempty" gorm:"foreignKey:ProductID"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type ProductStatus string

const (
	ProductStatusDraft                ProductStatus = "draft"
	ProductStatusRequiresVerification ProductStatus = "requires_verification"
	ProductStatusActive               ProductStatus = "active"
	ProductStatusInactive             ProductStatus = "inactive"
	ProductStatusDeleted              ProductStatus = "deleted"
)

// DefaultVariantName is the sentinel variant/option name for products with
// no real variant axes.
const DefaultVariantName = "Default"

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// ProductVariant is one axis of differentiation, e.g. "Size".
type ProductVariant struct {
	ID          string          `json:"id" gorm:"type:uuid;primary_key"`
	ProductID   string          `json:"product_id" gorm:"type:uuid;not null;index"`
	Name        string          `json:"name" gorm:"not null"`
	DisplayName string          `json:"display_name"`
	Position    int             `json:"position"`
	Options     []VariantOption `json:"options,omitempty" gorm:"foreignKey:VariantID"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (v *ProductVariant) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	return nil
}

// VariantOption is one concrete value on a variant axis, e.g. "Large".
type VariantOption struct {
	ID          string `json:"id" gorm:"type:uuid;primary_key"`
	VariantID   string `json:"variant_id" gorm:"type:uuid;not null;index"`
	Name        string `json:"name" gorm:"not null"`
	DisplayName string `json:"display_name"`
	// Price is in minor currency units; nil means "not priced yet".
	Price     *int64            `json:"price"`
	Stock     *int              `json:"stock"`
	SKU       string            `json:"sku"`
	ImagesURL []string          `json:"images_url" gorm:"serializer:json"`
	IsDefault bool              `json:"is_default"`
	Position  int               `json:"position"`
	Metadata  map[string]string `json:"metadata" gorm:"serializer:json"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// MetadataExternalOptionID is the metadata key retaining the external
// platform's own id for the variant row an option was derived from.
const MetadataExternalOptionID = "external_option_id"

func (o *VariantOption) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	return nil
}
