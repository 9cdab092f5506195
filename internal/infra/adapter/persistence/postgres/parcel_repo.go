package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"parcel-gateway/internal/domain/entity"
	"parcel-gateway/internal/observability/metrics"
	"parcel-gateway/internal/repository"
	"parcel-gateway/internal/resilience/circuitbreaker"
)

// ParcelRepo writes worker results into the parcels table.
type ParcelRepo struct{ db *circuitbreaker.DBCircuitBreaker }

func NewParcelRepo(db *circuitbreaker.DBCircuitBreaker) repository.ParcelRepository {
	return &ParcelRepo{db: db}
}

// xmax is zero only on a freshly inserted row version, so the RETURNING
// clause tells inserts from updates in one round trip.
const upsertParcelQuery = `
INSERT INTO parcels (parcel_id, platform, state, county, data, task_id, scraped_at, parse_duration_ms, raw_html_hash, worker_id, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
ON CONFLICT (parcel_id, platform, state, county)
DO UPDATE SET
    data              = EXCLUDED.data,
    task_id           = EXCLUDED.task_id,
    scraped_at        = EXCLUDED.scraped_at,
    parse_duration_ms = EXCLUDED.parse_duration_ms,
    raw_html_hash     = EXCLUDED.raw_html_hash,
    worker_id         = EXCLUDED.worker_id,
    updated_at        = now()
RETURNING (xmax = 0) AS inserted`

func (repo *ParcelRepo) Upsert(ctx context.Context, r *entity.ParcelResult, workerID string) (bool, error) {
	if err := r.Validate(); err != nil {
		return false, err
	}
	data := r.Data
	if data == nil {
		data = map[string]any{}
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return false, fmt.Errorf("Upsert: encode data: %w", err)
	}

	start := time.Now()
	var inserted bool
	err = repo.db.QueryRowScan(ctx, upsertParcelQuery,
		[]any{r.ParcelID, r.Platform, r.State, r.County, dataJSON, r.TaskID,
			r.ScrapedAt, r.ParseDurationMs, nullIfEmpty(r.RawHTMLHash), workerID},
		&inserted)
	metrics.RecordDBQuery("upsert_parcel", time.Since(start))
	if err != nil {
		return false, fmt.Errorf("Upsert: %w", err)
	}
	return inserted, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
