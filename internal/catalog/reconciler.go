package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"catalogsync/internal/models"
)

// Identity decides which existing product, if any, a payload corresponds to.
// Find returns gorm.ErrRecordNotFound when no product matches; Stamp marks a
// freshly created product with the identity so the next run finds it.
type Identity interface {
	Find(db *gorm.DB) (*models.Product, error)
	Stamp(p *models.Product)
}

// ExternalIdentity matches by (integration id, external id). Used by store
// sync and webhooks.
type ExternalIdentity struct {
	IntegrationID string
	ExternalID    string
}

func (id ExternalIdentity) Find(db *gorm.DB) (*models.Product, error) {
	var product models.Product
	err := db.Preload("Variants.Options").
		Where("integration_id = ? AND external_id = ?", id.IntegrationID, id.ExternalID).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (id ExternalIdentity) Stamp(p *models.Product) {
	integrationID := id.IntegrationID
	externalID := id.ExternalID
	p.IntegrationID = &integrationID
	p.ExternalID = &externalID
}

// NameIdentity matches within a business by exact product name, falling back
// to SKU across the business's variant options. Used by file imports, which
// carry no external id.
type NameIdentity struct {
	BusinessID string
	Name       string
	SKU        string
}

func (id NameIdentity) Find(db *gorm.DB) (*models.Product, error) {
	var product models.Product
	err := db.Preload("Variants.Options").
		Where("business_id = ? AND name = ?", id.BusinessID, id.Name).
		First(&product).Error
	if err == nil {
		return &product, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if id.SKU == "" {
		return nil, gorm.ErrRecordNotFound
	}

	err = db.Preload("Variants.Options").
		Select("products.*").
		Joins("JOIN product_variants ON product_variants.product_id = products.id").
		Joins("JOIN variant_options ON variant_options.variant_id = product_variants.id").
		Where("products.business_id = ? AND variant_options.sku = ?", id.BusinessID, id.SKU).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (id NameIdentity) Stamp(p *models.Product) {}

// Reconciler applies a canonical payload to the store: create when the
// identity matches nothing, otherwise update in place, cascading down to
// variants and options.
type Reconciler struct {
	db     *gorm.DB
	logger zerolog.Logger
}

func NewReconciler(db *gorm.DB, logger zerolog.Logger) *Reconciler {
	return &Reconciler{db: db, logger: logger}
}

// ReconcileProduct upserts one product. Returns whether a new product row
// was created.
func (r *Reconciler) ReconcileProduct(ctx context.Context, payload *ProductPayload, identity Identity) (bool, error) {
	created := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := identity.Find(tx)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up product: %w", err)
		}

		if existing == nil {
			product, err := r.createProduct(tx, payload, identity)
			if err != nil {
				return err
			}
			created = true
			return r.upsertMapping(tx, identity, product.ID)
		}

		if err := r.updateProduct(tx, existing, payload); err != nil {
			return err
		}
		return r.upsertMapping(tx, identity, existing.ID)
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

func (r *Reconciler) createProduct(tx *gorm.DB, payload *ProductPayload, identity Identity) (*models.Product, error) {
	product := &models.Product{
		BusinessID:       payload.BusinessID,
		Name:             payload.Name,
		ShortName:        payload.ShortName,
		Description:      payload.Description,
		ShortDescription: payload.ShortDescription,
		BrandID:          payload.BrandID,
		SubcategoryID:    payload.SubcategoryID,
		ImagesURL:        payload.ImagesURL,
		Keywords:         payload.Keywords,
		Dimensions:       payload.Dimensions,
		Specifications:   payload.Specifications,
		ShippingCost:     payload.ShippingCost,
		Status:           models.ProductStatusDraft,
	}
	identity.Stamp(product)

	if err := tx.Create(product).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	for _, vp := range payload.Variants {
		variant := models.ProductVariant{
			ProductID:   product.ID,
			Name:        vp.Name,
			DisplayName: vp.DisplayName,
			Position:    vp.Position,
		}
		if err := tx.Create(&variant).Error; err != nil {
			return nil, fmt.Errorf("failed to create variant %q: %w", vp.Name, err)
		}
		for _, op := range vp.Options {
			if err := r.createOption(tx, variant.ID, op); err != nil {
				return nil, err
			}
		}
	}

	return product, nil
}

func (r *Reconciler) createOption(tx *gorm.DB, variantID string, op OptionPayload) error {
	option := models.VariantOption{
		VariantID:   variantID,
		Name:        op.Name,
		DisplayName: op.DisplayName,
		Price:       op.Price,
		Stock:       op.Stock,
		SKU:         op.SKU,
		ImagesURL:   op.ImagesURL,
		IsDefault:   op.IsDefault,
		Position:    op.Position,
		Metadata:    map[string]string{},
	}
	if op.ExternalOptionID != "" {
		option.Metadata[models.MetadataExternalOptionID] = op.ExternalOptionID
	}
	if err := tx.Create(&option).Error; err != nil {
		return fmt.Errorf("failed to create option %q: %w", op.Name, err)
	}
	return nil
}

// updateProduct refreshes mutable fields on an existing product. Status is
// deliberately untouched: merchants manage publication state locally and a
// resync must not flip it.
func (r *Reconciler) updateProduct(tx *gorm.DB, existing *models.Product, payload *ProductPayload) error {
	existing.Name = payload.Name
	existing.ShortName = payload.ShortName
	existing.Description = payload.Description
	existing.ShortDescription = payload.ShortDescription
	existing.BrandID = payload.BrandID
	existing.SubcategoryID = payload.SubcategoryID
	existing.ImagesURL = payload.ImagesURL
	existing.Keywords = payload.Keywords
	existing.Dimensions = payload.Dimensions
	existing.Specifications = payload.Specifications
	existing.ShippingCost = payload.ShippingCost

	if err := tx.Omit("Variants").Save(existing).Error; err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	return r.reconcileVariants(tx, existing, payload.Variants)
}

// reconcileVariants matches payload variants to existing ones by name. New
// axes are appended after the existing ones; axes absent from the payload
// are kept as they are.
func (r *Reconciler) reconcileVariants(tx *gorm.DB, product *models.Product, payloads []VariantPayload) error {
	maxPosition := 0
	for _, v := range product.Variants {
		if v.Position > maxPosition {
			maxPosition = v.Position
		}
	}

	for _, vp := range payloads {
		var match *models.ProductVariant
		for i := range product.Variants {
			if product.Variants[i].Name == vp.Name {
				match = &product.Variants[i]
				break
			}
		}

		if match == nil {
			maxPosition++
			variant := models.ProductVariant{
				ProductID:   product.ID,
				Name:        vp.Name,
				DisplayName: vp.DisplayName,
				Position:    maxPosition,
			}
			if err := tx.Create(&variant).Error; err != nil {
				return fmt.Errorf("failed to create variant %q: %w", vp.Name, err)
			}
			for _, op := range vp.Options {
				if err := r.createOption(tx, variant.ID, op); err != nil {
					return err
				}
			}
			continue
		}

		match.DisplayName = vp.DisplayName
		if err := tx.Omit("Options").Save(match).Error; err != nil {
			return fmt.Errorf("failed to update variant %q: %w", vp.Name, err)
		}
		if err := r.reconcileOptions(tx, match, vp.Options); err != nil {
			return err
		}
	}

	return nil
}

// reconcileOptions matches payload options to existing ones, preferring the
// retained external id over the display name. Price and stock only move when
// the payload actually carries a value.
func (r *Reconciler) reconcileOptions(tx *gorm.DB, variant *models.ProductVariant, payloads []OptionPayload) error {
	maxPosition := 0
	for _, o := range variant.Options {
		if o.Position > maxPosition {
			maxPosition = o.Position
		}
	}

	for _, op := range payloads {
		match := matchOption(variant.Options, op)

		if match == nil {
			maxPosition++
			op.Position = maxPosition
			if err := r.createOption(tx, variant.ID, op); err != nil {
				return err
			}
			continue
		}

		match.Name = op.Name
		match.DisplayName = op.DisplayName
		if op.Price != nil {
			match.Price = op.Price
		}
		if op.Stock != nil {
			match.Stock = op.Stock
		}
		if op.SKU != "" {
			match.SKU = op.SKU
		}
		if len(op.ImagesURL) > 0 && op.ImagesURL[0] != "" {
			match.ImagesURL = op.ImagesURL
		}
		if op.ExternalOptionID != "" {
			if match.Metadata == nil {
				match.Metadata = map[string]string{}
			}
			match.Metadata[models.MetadataExternalOptionID] = op.ExternalOptionID
		}
		if err := tx.Save(match).Error; err != nil {
			return fmt.Errorf("failed to update option %q: %w", op.Name, err)
		}
	}

	return r.ensureSingleDefault(tx, variant.ID)
}

// matchOption finds the existing option a payload refers to: by retained
// external option id first, by name second.
func matchOption(options []models.VariantOption, op OptionPayload) *models.VariantOption {
	if op.ExternalOptionID != "" {
		for i := range options {
			if options[i].Metadata[models.MetadataExternalOptionID] == op.ExternalOptionID {
				return &options[i]
			}
		}
	}
	for i := range options {
		if options[i].Name == op.Name {
			return &options[i]
		}
	}
	return nil
}

// ensureSingleDefault keeps exactly one default option per variant, favoring
// the lowest position. Best effort; a failure here does not fail the run.
func (r *Reconciler) ensureSingleDefault(tx *gorm.DB, variantID string) error {
	var options []models.VariantOption
	if err := tx.Where("variant_id = ?", variantID).Order("position asc").Find(&options).Error; err != nil {
		r.logger.Warn().Err(err).Str("variant_id", variantID).Msg("default option check skipped")
		return nil
	}
	if len(options) == 0 {
		return nil
	}

	defaults := 0
	for _, o := range options {
		if o.IsDefault {
			defaults++
		}
	}
	if defaults == 1 {
		return nil
	}

	for i := range options {
		want := i == 0
		if options[i].IsDefault != want {
			options[i].IsDefault = want
			if err := tx.Save(&options[i]).Error; err != nil {
				r.logger.Warn().Err(err).Str("variant_id", variantID).Msg("default option repair failed")
				return nil
			}
		}
	}
	return nil
}

// upsertMapping records the external id -> product link for external
// identities. Name identities have nothing to record.
func (r *Reconciler) upsertMapping(tx *gorm.DB, identity Identity, productID string) error {
	ext, ok := identity.(ExternalIdentity)
	if !ok {
		return nil
	}

	var mapping models.ProductMapping
	err := tx.Where("integration_id = ? AND external_id = ?", ext.IntegrationID, ext.ExternalID).
		First(&mapping).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		mapping = models.ProductMapping{
			IntegrationID: ext.IntegrationID,
			ExternalID:    ext.ExternalID,
			ProductID:     productID,
		}
		if err := tx.Create(&mapping).Error; err != nil {
			return fmt.Errorf("failed to create product mapping: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up product mapping: %w", err)
	}

	if mapping.ProductID != productID {
		mapping.ProductID = productID
		if err := tx.Save(&mapping).Error; err != nil {
			return fmt.Errorf("failed to update product mapping: %w", err)
		}
	}
	return nil
}
