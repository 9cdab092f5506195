package db

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS parcels (
    id                BIGSERIAL PRIMARY KEY,
    parcel_id         TEXT NOT NULL,
    platform          TEXT NOT NULL,
    state             TEXT NOT NULL DEFAULT '',
    county            TEXT NOT NULL DEFAULT '',
    data              JSONB NOT NULL DEFAULT '{}'::jsonb,
    task_id           TEXT,
    scraped_at        TIMESTAMPTZ,
    parse_duration_ms INTEGER,
    raw_html_hash     TEXT,
    worker_id         TEXT,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (parcel_id, platform, state, county)
)`,
	`CREATE INDEX IF NOT EXISTS idx_parcels_state_county ON parcels(state, county)`,
	`CREATE INDEX IF NOT EXISTS idx_parcels_scraped_at ON parcels(scraped_at DESC)`,
}

// MigrateUp creates the gateway's tables. Every statement is idempotent.
func MigrateUp(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i+1, err)
		}
	}
	return nil
}
