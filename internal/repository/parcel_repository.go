package repository

import (
	"context"

	"parcel-gateway/internal/domain/entity"
)

// ParcelRepository persists scraped parcel data.
type ParcelRepository interface {
	// Upsert writes the result keyed by (parcel_id, platform, state, county)
	// and reports whether a new row was inserted.
	Upsert(ctx context.Context, result *entity.ParcelResult, workerID string) (inserted bool, err error)
}
