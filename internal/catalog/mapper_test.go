package catalog

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"catalogsync/internal/database"
	"catalogsync/internal/models"
	"catalogsync/internal/services/shopify"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func newTestMapper(t *testing.T) (*Mapper, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewMapper(db, 1, zerolog.Nop()), db
}

func strptr(s string) *string { return &s }

func TestMapShopifyProductBasicFields(t *testing.T) {
	mapper, _ := newTestMapper(t)

	product := &shopify.Product{
		ID:          123,
		Title:       "Wooden Chair",
		BodyHTML:    "<p>A <b>sturdy</b> chair &amp; stool.</p>",
		Vendor:      "Acme",
		ProductType: "",
		Tags:        "furniture, wood , chair",
	}

	payload, err := mapper.MapShopifyProduct(product, "biz-1")
	require.NoError(t, err)

	assert.Equal(t, "biz-1", payload.BusinessID)
	assert.Equal(t, "Wooden Chair", payload.Name)
	assert.Equal(t, "Wooden Chair", payload.ShortName)
	assert.Equal(t, "A sturdy chair & stool.", payload.ShortDescription)
	assert.Equal(t, []string{"furniture", "wood", "chair"}, payload.Keywords)
	assert.Equal(t, int64(1), payload.SubcategoryID)
	require.NotNil(t, payload.BrandID)
}

func TestMapShopifyProductTruncation(t *testing.T) {
	mapper, _ := newTestMapper(t)

	longTitle := strings.Repeat("ab", 40) // 80 runes
	longBody := strings.Repeat("x", 400)

	payload, err := mapper.MapShopifyProduct(&shopify.Product{
		Title:    longTitle,
		BodyHTML: longBody,
	}, "biz-1")
	require.NoError(t, err)

	// Cuts land mid-word; that is the documented behavior.
	assert.Len(t, []rune(payload.ShortName), 50)
	assert.Len(t, []rune(payload.ShortDescription), 150)
	assert.Equal(t, longTitle, payload.Name)
	assert.Equal(t, longBody, payload.Description)
}

func TestMapShopifyProductEmptyImagesSentinel(t *testing.T) {
	mapper, _ := newTestMapper(t)

	payload, err := mapper.MapShopifyProduct(&shopify.Product{Title: "Silla"}, "biz-1")
	require.NoError(t, err)

	// Never an empty list.
	assert.Equal(t, []string{""}, payload.ImagesURL)
}

func TestMapShopifyProductDefaultSentinel(t *testing.T) {
	mapper, _ := newTestMapper(t)

	product := &shopify.Product{
		ID:    123,
		Title: "Silla",
		Options: []shopify.Option{
			{Name: "Title", Position: 1, Values: []string{"Default Title"}},
		},
		Variants: []shopify.Variant{
			{ID: 456, Price: "199.00", InventoryQuantity: 5, Sku: "SIL-1", Option1: strptr("Default Title")},
		},
	}

	payload, err := mapper.MapShopifyProduct(product, "biz-1")
	require.NoError(t, err)

	require.Len(t, payload.Variants, 1)
	variant := payload.Variants[0]
	assert.Equal(t, models.DefaultVariantName, variant.Name)
	require.Len(t, variant.Options, 1)

	option := variant.Options[0]
	assert.Equal(t, models.DefaultVariantName, option.Name)
	require.NotNil(t, option.Price)
	assert.Equal(t, int64(19900), *option.Price)
	require.NotNil(t, option.Stock)
	assert.Equal(t, 5, *option.Stock)
	assert.Equal(t, "SIL-1", option.SKU)
	assert.True(t, option.IsDefault)
	assert.Equal(t, "456", option.ExternalOptionID)
}

func TestMapShopifyProductOptionAxes(t *testing.T) {
	mapper, _ := newTestMapper(t)

	product := &shopify.Product{
		ID:    123,
		Title: "Shirt",
		Options: []shopify.Option{
			{Name: "Size", Position: 1, Values: []string{"S", "M"}},
		},
		Variants: []shopify.Variant{
			{ID: 1, Price: "10.00", InventoryQuantity: 3, Sku: "SH-S", Option1: strptr("S")},
			{ID: 2, Price: "12.50", InventoryQuantity: 7, Sku: "SH-M", Option1: strptr("M")},
		},
	}

	payload, err := mapper.MapShopifyProduct(product, "biz-1")
	require.NoError(t, err)

	require.Len(t, payload.Variants, 1)
	variant := payload.Variants[0]
	assert.Equal(t, "Size", variant.Name)
	require.Len(t, variant.Options, 2)

	small := variant.Options[0]
	assert.Equal(t, "S", small.Name)
	assert.True(t, small.IsDefault)
	require.NotNil(t, small.Price)
	assert.Equal(t, int64(1000), *small.Price)
	assert.Equal(t, "1", small.ExternalOptionID)

	medium := variant.Options[1]
	assert.Equal(t, "M", medium.Name)
	assert.False(t, medium.IsDefault)
	require.NotNil(t, medium.Price)
	assert.Equal(t, int64(1250), *medium.Price)
	require.NotNil(t, medium.Stock)
	assert.Equal(t, 7, *medium.Stock)
}

func TestResolveBrandCreatesWhenAbsent(t *testing.T) {
	mapper, db := newTestMapper(t)

	id, err := mapper.ResolveBrand("Acme")
	require.NoError(t, err)
	require.NotNil(t, id)

	var brand models.Brand
	require.NoError(t, db.First(&brand, "id = ?", *id).Error)
	assert.Equal(t, "Acme", brand.Name)
	assert.Equal(t, models.BrandStatusActive, brand.Status)

	// Second resolution reuses the row.
	again, err := mapper.ResolveBrand("Acme")
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, *id, *again)

	var count int64
	db.Model(&models.Brand{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestResolveBrandEmptyVendor(t *testing.T) {
	mapper, _ := newTestMapper(t)

	id, err := mapper.ResolveBrand("  ")
	require.NoError(t, err)
	assert.Nil(t, id)
}

func TestResolveCategoryFallback(t *testing.T) {
	mapper, db := newTestMapper(t)

	require.NoError(t, db.Create(&models.Category{Name: "Furniture"}).Error)

	var furniture models.Category
	require.NoError(t, db.First(&furniture, "name = ?", "Furniture").Error)

	id, err := mapper.ResolveCategory("Furniture")
	require.NoError(t, err)
	assert.Equal(t, furniture.ID, id)

	// Unknown category falls back, never creates.
	id, err = mapper.ResolveCategory("Spaceships")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	var count int64
	db.Model(&models.Category{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestParsePriceMinor(t *testing.T) {
	p := ParsePriceMinor("199.00")
	require.NotNil(t, p)
	assert.Equal(t, int64(19900), *p)

	p = ParsePriceMinor("0.99")
	require.NotNil(t, p)
	assert.Equal(t, int64(99), *p)

	assert.Nil(t, ParsePriceMinor(""))
	assert.Nil(t, ParsePriceMinor("not a price"))
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "Hello world", StripHTML("<p>Hello</p> <b>world</b>"))
	assert.Equal(t, "a & b", StripHTML("a &amp; b"))
	assert.Equal(t, "", StripHTML(""))
}
