package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"catalogsync/internal/models"
	"catalogsync/internal/services/shopify"
)

// ProductLister is the slice of the Shopify client the syncer needs. Narrow
// on purpose so tests can feed pages without HTTP.
type ProductLister interface {
	GetProducts(ctx context.Context, limit int, pageInfo string) (*shopify.ProductsResponse, error)
}

// Syncer drives sync passes for one integration: full store walks, single
// item upserts from webhooks, and item deletions.
type Syncer struct {
	db         *gorm.DB
	mapper     *Mapper
	reconciler *Reconciler
	logger     zerolog.Logger
}

func NewSyncer(db *gorm.DB, mapper *Mapper, reconciler *Reconciler, logger zerolog.Logger) *Syncer {
	return &Syncer{
		db:         db,
		mapper:     mapper,
		reconciler: reconciler,
		logger:     logger,
	}
}

// FullSync walks every product page of the store and reconciles each item.
// One bad product is counted and skipped, not fatal; an upstream API failure
// aborts the pass.
func (s *Syncer) FullSync(ctx context.Context, integ *models.Integration, client ProductLister) (*SyncRunResult, error) {
	result := &SyncRunResult{}
	pageInfo := ""

	for {
		resp, err := client.GetProducts(ctx, shopify.DefaultPageLimit, pageInfo)
		if err != nil {
			return result, fmt.Errorf("failed to fetch products page: %w", err)
		}

		for i := range resp.Products {
			product := &resp.Products[i]
			result.TotalProducts++

			created, err := s.syncOne(ctx, integ, product)
			if err != nil {
				result.Errors++
				s.logger.Error().Err(err).
					Str("integration_id", integ.ID).
					Int64("external_id", product.ID).
					Str("title", product.Title).
					Msg("product sync failed")
				continue
			}
			if created {
				result.Created++
			} else {
				result.Updated++
			}
		}

		if resp.Link == nil || *resp.Link == "" {
			break
		}
		pageInfo = *resp.Link
	}

	if err := s.recordRun(ctx, integ); err != nil {
		s.logger.Warn().Err(err).Str("integration_id", integ.ID).Msg("failed to record sync run")
	}

	s.logger.Info().
		Str("integration_id", integ.ID).
		Int("total", result.TotalProducts).
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("errors", result.Errors).
		Msg("full sync finished")

	return result, nil
}

// SyncItem reconciles a single product pushed by a webhook. Returns whether
// a new product row was created.
func (s *Syncer) SyncItem(ctx context.Context, integ *models.Integration, product *shopify.Product) (bool, error) {
	created, err := s.syncOne(ctx, integ, product)
	if err != nil {
		return false, err
	}
	if err := s.recordRun(ctx, integ); err != nil {
		s.logger.Warn().Err(err).Str("integration_id", integ.ID).Msg("failed to record sync run")
	}
	return created, nil
}

func (s *Syncer) syncOne(ctx context.Context, integ *models.Integration, product *shopify.Product) (created bool, err error) {
	// A panic inside mapping or reconciliation must not take down the whole
	// pass; it becomes this item's error.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while syncing product %d: %v", product.ID, r)
		}
	}()

	payload, err := s.mapper.MapShopifyProduct(product, integ.BusinessID)
	if err != nil {
		return false, err
	}

	identity := ExternalIdentity{
		IntegrationID: integ.ID,
		ExternalID:    fmt.Sprintf("%d", product.ID),
	}
	return s.reconciler.ReconcileProduct(ctx, payload, identity)
}

// DeleteItem handles a products/delete webhook: the canonical product is
// marked inactive, never destroyed, and the mapping is dropped. Unknown
// external ids are a no-op.
func (s *Syncer) DeleteItem(ctx context.Context, integ *models.Integration, externalID string) error {
	var mapping models.ProductMapping
	err := s.db.WithContext(ctx).
		Where("integration_id = ? AND external_id = ?", integ.ID, externalID).
		First(&mapping).Error
	if err == gorm.ErrRecordNotFound {
		s.logger.Debug().
			Str("integration_id", integ.ID).
			Str("external_id", externalID).
			Msg("delete for unknown product ignored")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up mapping: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Product{}).
			Where("id = ?", mapping.ProductID).
			Update("status", models.ProductStatusInactive).Error; err != nil {
			return fmt.Errorf("failed to deactivate product: %w", err)
		}
		if err := tx.Delete(&mapping).Error; err != nil {
			return fmt.Errorf("failed to delete mapping: %w", err)
		}
		return nil
	})
}

// recordRun refreshes the integration's sync bookkeeping. The synced count
// is recomputed from the mappings table rather than accumulated, so retries
// and deletions cannot drift it.
func (s *Syncer) recordRun(ctx context.Context, integ *models.Integration) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.ProductMapping{}).
		Where("integration_id = ?", integ.ID).
		Count(&count).Error; err != nil {
		return err
	}

	now := time.Now()
	integ.LastSyncAt = &now
	integ.SyncedCount = int(count)

	return s.db.WithContext(ctx).Model(&models.Integration{}).
		Where("id = ?", integ.ID).
		Updates(map[string]interface{}{
			"last_sync_at": now,
			"synced_count": count,
		}).Error
}
