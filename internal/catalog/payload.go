package catalog

// ProductPayload is the canonical shape every entry point (store sync,
// webhook, file import) produces before reconciliation. It carries resolved
// foreign references, not external ids.
type ProductPayload struct {
	BusinessID       string
	Name             string
	ShortName        string
	Description      string
	ShortDescription string
	BrandID          *string
	SubcategoryID    int64
	ImagesURL        []string
	Keywords         []string
	Dimensions       map[string]string
	Specifications   map[string]string
	ShippingCost     int64
	Variants         []VariantPayload
}

// VariantPayload is one axis of differentiation.
type VariantPayload struct {
	Name        string
	DisplayName string
	Position    int
	Options     []OptionPayload
}

// OptionPayload is one concrete value on an axis. Price and Stock stay nil
// when the source did not declare them; the reconciler then keeps previous
// values on update and leaves null on create.
type OptionPayload struct {
	Name             string
	DisplayName      string
	Price            *int64
	Stock            *int
	SKU              string
	ImagesURL        []string
	IsDefault        bool
	Position         int
	ExternalOptionID string
}

// SyncRunResult aggregates one sync pass. It is returned to the caller and
// written back onto the integration's counters; it is never persisted as is.
type SyncRunResult struct {
	TotalProducts int `json:"total_products"`
	Created       int `json:"created"`
	Updated       int `json:"updated"`
	Skipped       int `json:"skipped"`
	Errors        int `json:"errors"`
}
