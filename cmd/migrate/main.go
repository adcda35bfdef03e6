// Command migrate applies the SQL baseline schema to PostgreSQL. It is the
// production counterpart of the GORM AutoMigrate used in development; the
// statements are idempotent so re-running is safe.
package main

import (
	"database/sql"
	"log"

	_ "github.com/lib/pq"

	"catalogsync/internal/config"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS integrations (
		id UUID PRIMARY KEY,
		business_id TEXT NOT NULL,
		shop_domain TEXT NOT NULL,
		access_token TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		state_token TEXT,
		last_sync_at TIMESTAMPTZ,
		synced_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_integrations_business_id ON integrations (business_id)`,
	`CREATE INDEX IF NOT EXISTS idx_integrations_shop_domain ON integrations (shop_domain)`,

	`CREATE TABLE IF NOT EXISTS brands (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_brands_name ON brands (name)`,

	`CREATE TABLE IF NOT EXISTS categories (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		parent_id BIGINT REFERENCES categories (id)
	)`,

	`CREATE TABLE IF NOT EXISTS products (
		id UUID PRIMARY KEY,
		business_id TEXT NOT NULL,
		name TEXT NOT NULL,
		short_name TEXT,
		description TEXT,
		short_description TEXT,
		brand_id UUID REFERENCES brands (id),
		subcategory_id BIGINT,
		images_url JSONB,
		keywords JSONB,
		dimensions JSONB,
		specifications JSONB,
		shipping_cost BIGINT NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'draft',
		external_id TEXT,
		integration_id UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_business_id ON products (business_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_products_external ON products (integration_id, external_id)
		WHERE integration_id IS NOT NULL AND external_id IS NOT NULL`,

	`CREATE TABLE IF NOT EXISTS product_variants (
		id UUID PRIMARY KEY,
		product_id UUID NOT NULL REFERENCES products (id),
		name TEXT NOT NULL,
		display_name TEXT,
		position INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_product_variants_product_id ON product_variants (product_id)`,

	`CREATE TABLE IF NOT EXISTS variant_options (
		id UUID PRIMARY KEY,
		variant_id UUID NOT NULL REFERENCES product_variants (id),
		name TEXT NOT NULL,
		display_name TEXT,
		price BIGINT,
		stock INTEGER,
		sku TEXT,
		images_url JSONB,
		is_default BOOLEAN NOT NULL DEFAULT false,
		position INTEGER NOT NULL DEFAULT 0,
		metadata JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_variant_options_variant_id ON variant_options (variant_id)`,
	`CREATE INDEX IF NOT EXISTS idx_variant_options_sku ON variant_options (sku)`,

	`CREATE TABLE IF NOT EXISTS product_mappings (
		id UUID PRIMARY KEY,
		integration_id UUID NOT NULL,
		external_id TEXT NOT NULL,
		product_id UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_mappings_external ON product_mappings (integration_id, external_id)`,
	`CREATE INDEX IF NOT EXISTS idx_product_mappings_product_id ON product_mappings (product_id)`,

	`CREATE TABLE IF NOT EXISTS sync_jobs (
		id UUID PRIMARY KEY,
		integration_id UUID NOT NULL,
		type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'queued',
		payload BYTEA,
		error TEXT,
		total INTEGER NOT NULL DEFAULT 0,
		created INTEGER NOT NULL DEFAULT 0,
		updated INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		errors INTEGER NOT NULL DEFAULT 0,
		started_at TIMESTAMPTZ,
		finished_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sync_jobs_integration_id ON sync_jobs (integration_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sync_jobs_status ON sync_jobs (status)`,
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal("Failed to reach database:", err)
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("Migration failed: %v\nstatement: %s", err, stmt)
		}
	}

	log.Println("Migrations applied")
}
