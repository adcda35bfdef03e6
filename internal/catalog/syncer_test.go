package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"catalogsync/internal/models"
	"catalogsync/internal/services/shopify"
)

// fakeLister serves pre-canned product pages in place of the Shopify API.
type fakeLister struct {
	pages [][]shopify.Product
	calls int
}

func (f *fakeLister) GetProducts(ctx context.Context, limit int, pageInfo string) (*shopify.ProductsResponse, error) {
	if f.calls >= len(f.pages) {
		return &shopify.ProductsResponse{}, nil
	}
	resp := &shopify.ProductsResponse{Products: f.pages[f.calls]}
	f.calls++
	if f.calls < len(f.pages) {
		cursor := "next"
		resp.Link = &cursor
	}
	return resp, nil
}

type failingLister struct{}

func (failingLister) GetProducts(ctx context.Context, limit int, pageInfo string) (*shopify.ProductsResponse, error) {
	return nil, &shopify.UpstreamError{StatusCode: 502, Body: "bad gateway"}
}

func newTestSyncer(t *testing.T) (*Syncer, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	mapper := NewMapper(db, 1, zerolog.Nop())
	reconciler := NewReconciler(db, zerolog.Nop())
	return NewSyncer(db, mapper, reconciler, zerolog.Nop()), db
}

func newTestIntegration(t *testing.T, db *gorm.DB) *models.Integration {
	t.Helper()
	integ := &models.Integration{
		BusinessID: "biz-1",
		ShopDomain: "acme.myshopify.com",
		Status:     models.IntegrationStatusActive,
	}
	require.NoError(t, db.Create(integ).Error)
	return integ
}

func sillaProduct() shopify.Product {
	return shopify.Product{
		ID:     123,
		Title:  "Silla",
		Vendor: "Acme",
		Variants: []shopify.Variant{
			{ID: 456, Price: "199.00", InventoryQuantity: 5, Sku: "SIL-1"},
		},
	}
}

func TestFullSyncFirstRun(t *testing.T) {
	syncer, db := newTestSyncer(t)
	integ := newTestIntegration(t, db)

	lister := &fakeLister{pages: [][]shopify.Product{{sillaProduct()}}}
	result, err := syncer.FullSync(context.Background(), integ, lister)
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalProducts)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 0, result.Errors)

	var product models.Product
	require.NoError(t, db.Preload("Variants.Options").First(&product, "name = ?", "Silla").Error)

	// Optionless external product gets the sentinel pair.
	require.Len(t, product.Variants, 1)
	assert.Equal(t, models.DefaultVariantName, product.Variants[0].Name)
	require.Len(t, product.Variants[0].Options, 1)

	option := product.Variants[0].Options[0]
	assert.Equal(t, models.DefaultVariantName, option.Name)
	require.NotNil(t, option.Price)
	assert.Equal(t, int64(19900), *option.Price)
	require.NotNil(t, option.Stock)
	assert.Equal(t, 5, *option.Stock)

	var brand models.Brand
	require.NoError(t, db.First(&brand, "name = ?", "Acme").Error)

	// Bookkeeping written back onto the integration.
	var fresh models.Integration
	require.NoError(t, db.First(&fresh, "id = ?", integ.ID).Error)
	assert.NotNil(t, fresh.LastSyncAt)
	assert.Equal(t, 1, fresh.SyncedCount)
}

func TestFullSyncRerunUpdatesInPlace(t *testing.T) {
	syncer, db := newTestSyncer(t)
	integ := newTestIntegration(t, db)

	_, err := syncer.FullSync(context.Background(), integ, &fakeLister{pages: [][]shopify.Product{{sillaProduct()}}})
	require.NoError(t, err)

	renamed := sillaProduct()
	renamed.Title = "Silla de oficina"

	result, err := syncer.FullSync(context.Background(), integ, &fakeLister{pages: [][]shopify.Product{{renamed}}})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.Updated)

	var count int64
	db.Model(&models.Product{}).Count(&count)
	assert.Equal(t, int64(1), count)

	var product models.Product
	require.NoError(t, db.First(&product).Error)
	assert.Equal(t, "Silla de oficina", product.Name)
}

func TestFullSyncWalksAllPages(t *testing.T) {
	syncer, db := newTestSyncer(t)
	integ := newTestIntegration(t, db)

	second := sillaProduct()
	second.ID = 124
	second.Title = "Mesa"

	lister := &fakeLister{pages: [][]shopify.Product{{sillaProduct()}, {second}}}
	result, err := syncer.FullSync(context.Background(), integ, lister)
	require.NoError(t, err)

	assert.Equal(t, 2, lister.calls)
	assert.Equal(t, 2, result.TotalProducts)
	assert.Equal(t, 2, result.Created)

	var count int64
	db.Model(&models.Product{}).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestFullSyncUpstreamFailureAborts(t *testing.T) {
	syncer, db := newTestSyncer(t)
	integ := newTestIntegration(t, db)

	_, err := syncer.FullSync(context.Background(), integ, failingLister{})
	require.Error(t, err)

	var upstream *shopify.UpstreamError
	assert.True(t, errors.As(err, &upstream))

	var count int64
	db.Model(&models.Product{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestDeleteItem(t *testing.T) {
	syncer, db := newTestSyncer(t)
	integ := newTestIntegration(t, db)

	_, err := syncer.FullSync(context.Background(), integ, &fakeLister{pages: [][]shopify.Product{{sillaProduct()}}})
	require.NoError(t, err)

	require.NoError(t, syncer.DeleteItem(context.Background(), integ, "123"))

	// Product stays, deactivated; mapping is gone.
	var product models.Product
	require.NoError(t, db.First(&product).Error)
	assert.Equal(t, models.ProductStatusInactive, product.Status)

	var mappings int64
	db.Model(&models.ProductMapping{}).Count(&mappings)
	assert.Equal(t, int64(0), mappings)
}

func TestDeleteItemUnknownIsNoop(t *testing.T) {
	syncer, db := newTestSyncer(t)
	integ := newTestIntegration(t, db)

	require.NoError(t, syncer.DeleteItem(context.Background(), integ, "999"))

	var count int64
	db.Model(&models.Product{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestSyncItem(t *testing.T) {
	syncer, db := newTestSyncer(t)
	integ := newTestIntegration(t, db)

	product := sillaProduct()
	created, err := syncer.SyncItem(context.Background(), integ, &product)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = syncer.SyncItem(context.Background(), integ, &product)
	require.NoError(t, err)
	assert.False(t, created)

	var count int64
	db.Model(&models.Product{}).Count(&count)
	assert.Equal(t, int64(1), count)
}
