package repository

import (
	"context"
	"time"

	"parcel-gateway/internal/domain/entity"
)

// WorkerRegistry tracks worker liveness from heartbeats.
type WorkerRegistry interface {
	RecordHeartbeat(ctx context.Context, workerID string, status entity.WorkerStatus, seenAt time.Time) error
	CountLive(ctx context.Context) (int, error)
}
