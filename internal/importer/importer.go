// Package importer turns uploaded CSV/XLSX catalog files into canonical
// products. Rows are reconciled by product name (or SKU) within the tenant,
// the same engine store syncs use, just with a weaker identity key.
package importer

import (
	"context"
	"errors"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"catalogsync/internal/catalog"
	"catalogsync/internal/models"
)

// ValidationError marks an upload that cannot be processed at all; handlers
// answer it with 400 before any row is touched.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ObjectStore is the slice of the storage layer the importer needs: copying
// an uploaded image from the temporary prefix to its product folder.
type ObjectStore interface {
	Copy(ctx context.Context, srcKey, dstKey string) error
}

// Enricher fills missing descriptive fields on a payload before insertion.
type Enricher interface {
	Enrich(ctx context.Context, payload *catalog.ProductPayload) error
}

type Importer struct {
	db         *gorm.DB
	mapper     *catalog.Mapper
	reconciler *catalog.Reconciler
	store      ObjectStore
	enricher   Enricher
	tempPrefix string
	logger     zerolog.Logger
}

func New(db *gorm.DB, mapper *catalog.Mapper, reconciler *catalog.Reconciler, store ObjectStore, enricher Enricher, tempPrefix string, logger zerolog.Logger) *Importer {
	return &Importer{
		db:         db,
		mapper:     mapper,
		reconciler: reconciler,
		store:      store,
		enricher:   enricher,
		tempPrefix: tempPrefix,
		logger:     logger,
	}
}

// Import parses the file and reconciles every row. Per-row failures are
// counted and skipped; only an unusable file fails the whole call.
func (i *Importer) Import(ctx context.Context, reader io.Reader, filename, businessID string, enrich bool) (*catalog.SyncRunResult, error) {
	if strings.TrimSpace(businessID) == "" {
		return nil, &ValidationError{Message: "business_id is required"}
	}

	rows, err := ParseFile(reader, filename)
	if err != nil {
		return nil, err
	}

	result := &catalog.SyncRunResult{}

	for idx, row := range rows {
		result.TotalProducts++

		created, err := i.importRow(ctx, row, businessID, enrich)
		if err != nil {
			result.Errors++
			i.logger.Error().Err(err).
				Int("row", idx+2).
				Str("business_id", businessID).
				Msg("row import failed")
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	return result, nil
}

func (i *Importer) importRow(ctx context.Context, row Row, businessID string, enrich bool) (bool, error) {
	payload, err := i.buildPayload(row, businessID)
	if err != nil {
		return false, err
	}

	if enrich && i.enricher != nil {
		if err := i.enricher.Enrich(ctx, payload); err != nil {
			// Enrichment is additive; a failure never blocks the row.
			i.logger.Warn().Err(err).Str("name", payload.Name).Msg("enrichment failed, importing as is")
		}
	}

	identity := catalog.NameIdentity{
		BusinessID: businessID,
		Name:       payload.Name,
		SKU:        row["sku"],
	}

	created, err := i.reconciler.ReconcileProduct(ctx, payload, identity)
	if err != nil {
		return false, err
	}

	i.relocateImages(ctx, identity, payload)

	return created, nil
}

// buildPayload maps a normalized spreadsheet row into the canonical shape.
func (i *Importer) buildPayload(row Row, businessID string) (*catalog.ProductPayload, error) {
	name := row["name"]
	if name == "" {
		return nil, errors.New("row has no name")
	}

	brandID, err := i.mapper.ResolveBrand(row["brand"])
	if err != nil {
		return nil, err
	}
	subcategoryID, err := i.mapper.ResolveCategory(row["category"])
	if err != nil {
		return nil, err
	}

	description := row["description"]
	shortDescription := row["short_description"]
	if shortDescription == "" {
		shortDescription = catalog.Truncate(catalog.StripHTML(description), 150)
	}
	shortName := row["short_name"]
	if shortName == "" {
		shortName = catalog.Truncate(name, 50)
	}

	images := splitList(row["images"])
	if len(images) == 0 {
		images = []string{""}
	}

	option := catalog.OptionPayload{
		Name:        models.DefaultVariantName,
		DisplayName: models.DefaultVariantName,
		Price:       catalog.ParsePriceMinor(row["price"]),
		SKU:         row["sku"],
		ImagesURL:   []string{""},
		IsDefault:   true,
		Position:    1,
	}
	if stock, err := strconv.Atoi(row["stock"]); err == nil {
		option.Stock = &stock
	}

	shippingCost := int64(0)
	if minor := catalog.ParsePriceMinor(row["shipping_cost"]); minor != nil {
		shippingCost = *minor
	}

	return &catalog.ProductPayload{
		BusinessID:       businessID,
		Name:             name,
		ShortName:        shortName,
		Description:      description,
		ShortDescription: shortDescription,
		BrandID:          brandID,
		SubcategoryID:    subcategoryID,
		ImagesURL:        images,
		Keywords:         splitList(row["keywords"]),
		Dimensions:       ParseKeyValueList(row["dimensions"]),
		Specifications:   ParseKeyValueList(row["specifications"]),
		ShippingCost:     shippingCost,
		Variants: []catalog.VariantPayload{{
			Name:        models.DefaultVariantName,
			DisplayName: models.DefaultVariantName,
			Position:    1,
			Options:     []catalog.OptionPayload{option},
		}},
	}, nil
}

// relocateImages copies images referenced under the temporary upload prefix
// into the product's permanent folder and rewrites the stored URLs. Best
// effort: a failed copy keeps the temporary URL rather than failing the row.
func (i *Importer) relocateImages(ctx context.Context, identity catalog.NameIdentity, payload *catalog.ProductPayload) {
	if i.store == nil || i.tempPrefix == "" {
		return
	}

	product, err := identity.Find(i.db.WithContext(ctx))
	if err != nil {
		i.logger.Warn().Err(err).Str("name", payload.Name).Msg("image relocation skipped, product lookup failed")
		return
	}

	changed := false
	urls := make([]string, len(product.ImagesURL))
	copy(urls, product.ImagesURL)

	for idx, url := range urls {
		key, ok := tempKey(url, i.tempPrefix)
		if !ok {
			continue
		}
		dstKey := path.Join("products", product.ID, path.Base(key))
		if err := i.store.Copy(ctx, key, dstKey); err != nil {
			i.logger.Warn().Err(err).
				Str("product_id", product.ID).
				Str("key", key).
				Msg("image copy failed, keeping temporary URL")
			continue
		}
		urls[idx] = strings.Replace(url, key, dstKey, 1)
		changed = true
	}

	if !changed {
		return
	}
	if err := i.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", product.ID).
		Update("images_url", urls).Error; err != nil {
		i.logger.Warn().Err(err).Str("product_id", product.ID).Msg("failed to persist relocated image URLs")
	}
}

// tempKey extracts the storage key from a URL when it lives under the
// temporary prefix. Works on both bare keys and full URLs.
func tempKey(url, tempPrefix string) (string, bool) {
	idx := strings.Index(url, tempPrefix)
	if idx == -1 {
		return "", false
	}
	return url[idx:], true
}
