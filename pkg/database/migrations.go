package database

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect/sql"
)

// CreateGINIndexes creates full-text search GIN indexes for PostgreSQL.
// These indexes enable efficient full-text search on campaign descriptions
// and variant content, which are not expressible through Ent's index DSL.
func CreateGINIndexes(ctx context.Context, driver *sql.Driver) error {
	db := driver.DB()

	// GIN index for campaign description full-text search
	_, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_campaigns_description_gin
		ON campaigns USING gin(to_tsvector('english', COALESCE(description, '')))`)
	if err != nil {
		return fmt.Errorf("failed to create campaigns description GIN index: %w", err)
	}

	// GIN index for variant content full-text search
	_, err = db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_variants_content_gin
		ON variants USING gin(to_tsvector('english', content))`)
	if err != nil {
		return fmt.Errorf("failed to create variants content GIN index: %w", err)
	}

	return nil
}
