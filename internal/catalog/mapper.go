package catalog

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"catalogsync/internal/models"
	"catalogsync/internal/services/shopify"
)

const (
	shortNameLimit        = 50
	shortDescriptionLimit = 150
)

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// Mapper converts an external product representation into the canonical
// payload, resolving brand and category references as it goes. Those two
// lookups are its only I/O.
type Mapper struct {
	db                *gorm.DB
	defaultCategoryID int64
	logger            zerolog.Logger
}

func NewMapper(db *gorm.DB, defaultCategoryID int64, logger zerolog.Logger) *Mapper {
	return &Mapper{
		db:                db,
		defaultCategoryID: defaultCategoryID,
		logger:            logger,
	}
}

// MapShopifyProduct converts one Shopify product into the canonical payload.
func (m *Mapper) MapShopifyProduct(p *shopify.Product, businessID string) (*ProductPayload, error) {
	brandID, err := m.ResolveBrand(p.Vendor)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve brand %q: %w", p.Vendor, err)
	}

	subcategoryID, err := m.ResolveCategory(p.ProductType)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve category %q: %w", p.ProductType, err)
	}

	description := p.BodyHTML

	payload := &ProductPayload{
		BusinessID:       businessID,
		Name:             p.Title,
		ShortName:        Truncate(p.Title, shortNameLimit),
		Description:      description,
		ShortDescription: Truncate(StripHTML(description), shortDescriptionLimit),
		BrandID:          brandID,
		SubcategoryID:    subcategoryID,
		ImagesURL:        imageURLs(p.Images),
		Keywords:         splitTags(p.Tags),
		Dimensions:       map[string]string{},
		Specifications:   map[string]string{},
		Variants:         m.mapVariants(p),
	}

	return payload, nil
}

// ResolveBrand looks up a brand by exact name, creating it as active when
// absent. An empty vendor name yields a nil brand reference.
func (m *Mapper) ResolveBrand(name string) (*string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	var brand models.Brand
	err := m.db.Where("name = ?", name).First(&brand).Error
	if err == gorm.ErrRecordNotFound {
		brand = models.Brand{Name: name, Status: models.BrandStatusActive}
		if err := m.db.Create(&brand).Error; err != nil {
			return nil, err
		}
		m.logger.Debug().Str("brand", name).Msg("created brand during mapping")
		return &brand.ID, nil
	}
	if err != nil {
		return nil, err
	}
	return &brand.ID, nil
}

// ResolveCategory looks up a root-level category by exact name and falls
// back to the configured default id. No fuzzy matching, no creation.
func (m *Mapper) ResolveCategory(name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return m.defaultCategoryID, nil
	}

	var category models.Category
	err := m.db.Where("name = ? AND parent_id IS NULL", name).First(&category).Error
	if err == gorm.ErrRecordNotFound {
		return m.defaultCategoryID, nil
	}
	if err != nil {
		return 0, err
	}
	return category.ID, nil
}

// mapVariants turns Shopify option axes into canonical variants. A product
// with no declared axes still produces the Default/Default sentinel pair
// carrying the first variant's price and stock.
func (m *Mapper) mapVariants(p *shopify.Product) []VariantPayload {
	axes := realOptionAxes(p.Options)

	if len(axes) == 0 {
		option := OptionPayload{
			Name:        models.DefaultVariantName,
			DisplayName: models.DefaultVariantName,
			ImagesURL:   []string{""},
			IsDefault:   true,
			Position:    1,
		}
		if len(p.Variants) > 0 {
			first := p.Variants[0]
			option.Price = ParsePriceMinor(first.Price)
			stock := first.InventoryQuantity
			option.Stock = &stock
			option.SKU = first.Sku
			option.ExternalOptionID = fmt.Sprintf("%d", first.ID)
			option.ImagesURL = variantImages(p, &first)
		}
		return []VariantPayload{{
			Name:        models.DefaultVariantName,
			DisplayName: models.DefaultVariantName,
			Position:    1,
			Options:     []OptionPayload{option},
		}}
	}

	variants := make([]VariantPayload, 0, len(axes))
	for axisIdx, axis := range axes {
		variant := VariantPayload{
			Name:        axis.Name,
			DisplayName: axis.Name,
			Position:    axisIdx + 1,
		}

		for valueIdx, value := range axis.Values {
			option := OptionPayload{
				Name:        value,
				DisplayName: value,
				ImagesURL:   []string{""},
				IsDefault:   valueIdx == 0,
				Position:    valueIdx + 1,
			}

			// Price and stock come from the first variant row whose
			// value on this axis matches; without a match they stay nil.
			if row := matchVariantRow(p.Variants, axis.Position, value); row != nil {
				option.Price = ParsePriceMinor(row.Price)
				stock := row.InventoryQuantity
				option.Stock = &stock
				option.SKU = row.Sku
				option.ExternalOptionID = fmt.Sprintf("%d", row.ID)
				option.ImagesURL = variantImages(p, row)
			}

			variant.Options = append(variant.Options, option)
		}

		variants = append(variants, variant)
	}

	return variants
}

// realOptionAxes filters out Shopify's implicit single "Title" axis, which
// it attaches to products that have no variants at all.
func realOptionAxes(options []shopify.Option) []shopify.Option {
	if len(options) == 1 && options[0].Name == "Title" &&
		len(options[0].Values) == 1 && options[0].Values[0] == "Default Title" {
		return nil
	}
	return options
}

// matchVariantRow finds the first variant row whose value on the given axis
// (1-based position) equals value.
func matchVariantRow(variants []shopify.Variant, axisPosition int, value string) *shopify.Variant {
	for i := range variants {
		v := &variants[i]
		var axisValue *string
		switch axisPosition {
		case 1:
			axisValue = v.Option1
		case 2:
			axisValue = v.Option2
		case 3:
			axisValue = v.Option3
		}
		if axisValue != nil && *axisValue == value {
			return v
		}
	}
	return nil
}

func variantImages(p *shopify.Product, v *shopify.Variant) []string {
	if v.ImageID != nil {
		for _, img := range p.Images {
			if img.ID == *v.ImageID {
				return []string{img.Src}
			}
		}
	}
	return []string{""}
}

// imageURLs extracts image sources. An empty result is normalized to a
// single-element list holding an empty string, never an empty list; the
// rest of the platform relies on that sentinel.
func imageURLs(images []shopify.Image) []string {
	if len(images) == 0 {
		return []string{""}
	}
	urls := make([]string, len(images))
	for i, img := range images {
		urls[i] = img.Src
	}
	return urls
}

func splitTags(tags string) []string {
	if strings.TrimSpace(tags) == "" {
		return []string{}
	}
	parts := strings.Split(tags, ",")
	keywords := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			keywords = append(keywords, trimmed)
		}
	}
	return keywords
}

// ParsePriceMinor parses a decimal price string ("199.00") into minor
// currency units. Unparseable input yields nil.
func ParsePriceMinor(price string) *int64 {
	if strings.TrimSpace(price) == "" {
		return nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(price))
	if err != nil {
		return nil
	}
	minor := d.Mul(decimal.NewFromInt(100)).IntPart()
	return &minor
}

// StripHTML removes markup tags and unescapes entities. Used to derive the
// short description from the long one.
func StripHTML(s string) string {
	stripped := htmlTagPattern.ReplaceAllString(s, " ")
	stripped = html.UnescapeString(stripped)
	return strings.Join(strings.Fields(stripped), " ")
}

// Truncate cuts s at limit runes. Cuts can land mid-word; that matches the
// platform's historical behavior and downstream display code pads for it.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
