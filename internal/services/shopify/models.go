package shopify

import (
	"time"
)

// Product represents a Shopify product
type Product struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	BodyHTML    string     `json:"body_html"`
	Vendor      string     `json:"vendor"`
	ProductType string     `json:"product_type"`
	Handle      string     `json:"handle"`
	Status      string     `json:"status"`
	Tags        string     `json:"tags"`
	Variants    []Variant  `json:"variants"`
	Images      []Image    `json:"images"`
	Options     []Option   `json:"options"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PublishedAt *time.Time `json:"published_at"`
}

// Variant represents a product variant
type Variant struct {
	ID                int64   `json:"id"`
	ProductID         int64   `json:"product_id"`
	Title             string  `json:"title"`
	Price             string  `json:"price"`
	Sku               string  `json:"sku"`
	Position          int     `json:"position"`
	CompareAtPrice    *string `json:"compare_at_price"`
	Option1           *string `json:"option1"`
	Option2           *string `json:"option2"`
	Option3           *string `json:"option3"`
	Taxable           bool    `json:"taxable"`
	Barcode           *string `json:"barcode"`
	Grams             int     `json:"grams"`
	ImageID           *int64  `json:"image_id"`
	Weight            float64 `json:"weight"`
	WeightUnit        string  `json:"weight_unit"`
	InventoryItemID   int64   `json:"inventory_item_id"`
	InventoryQuantity int     `json:"inventory_quantity"`
	RequiresShipping  bool    `json:"requires_shipping"`
}

// Image represents a product image
type Image struct {
	ID         int64   `json:"id"`
	ProductID  int64   `json:"product_id"`
	Position   int     `json:"position"`
	Alt        *string `json:"alt"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Src        string  `json:"src"`
	VariantIDs []int64 `json:"variant_ids"`
}

// Option represents a product option axis (e.g. "Size" with its values)
type Option struct {
	ID        int64    `json:"id"`
	ProductID int64    `json:"product_id"`
	Name      string   `json:"name"`
	Position  int      `json:"position"`
	Values    []string `json:"values"`
}

// Shop represents shop information
type Shop struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Domain          string `json:"domain"`
	Currency        string `json:"currency"`
	Timezone        string `json:"timezone"`
	MyshopifyDomain string `json:"myshopify_domain"`
	Country         string `json:"country"`
	PlanName        string `json:"plan_name"`
}

// ProductsResponse represents the response from the products API
type ProductsResponse struct {
	Products []Product `json:"products"`
	Link     *string   `json:"link,omitempty"`
}

// TokenResponse is the OAuth token exchange response
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	Scope       string `json:"scope"`
}

// Webhook represents a registered webhook subscription
type Webhook struct {
	ID      int64  `json:"id"`
	Topic   string `json:"topic"`
	Address string `json:"address"`
	Format  string `json:"format"`
}

// DeletePayload is the body of a products/delete webhook; Shopify sends only
// the bare id.
type DeletePayload struct {
	ID int64 `json:"id"`
}
