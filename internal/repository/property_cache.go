package repository

import (
	"context"
	"time"
)

// PropertyCache holds upstream property documents.
type PropertyCache interface {
	// Get returns the cached body and true, or nil and false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, body []byte, ttl time.Duration) error
}
