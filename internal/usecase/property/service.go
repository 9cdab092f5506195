// Package property serves the public read API by forwarding calls to the
// parser and ML services on behalf of an authenticated caller.
package property

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/singleflight"

	"parcel-gateway/internal/domain/entity"
	"parcel-gateway/internal/observability/metrics"
	"parcel-gateway/internal/repository"
	"parcel-gateway/internal/upstream"
)

// DefaultCacheTTL is how long a successful detail response is reused.
const DefaultCacheTTL = time.Hour

// Caller headers forwarded to every upstream.
const (
	HeaderUserID    = "X-User-ID"
	HeaderUserTier  = "X-User-Tier"
	HeaderRequestID = "X-Request-ID"
)

// Upstream is the subset of *upstream.Client the service needs.
type Upstream interface {
	Do(ctx context.Context, req upstream.Request) (*upstream.Response, error)
}

// Caller identifies who a forwarded request is made for.
type Caller struct {
	Auth      entity.AuthContext
	RequestID string
}

func (c Caller) header() http.Header {
	h := http.Header{}
	h.Set(HeaderUserID, c.Auth.UpstreamUserID())
	h.Set(HeaderUserTier, c.Auth.Tier.String())
	if c.RequestID != "" {
		h.Set(HeaderRequestID, c.RequestID)
	}
	return h
}

// Result is an upstream response plus whether it came from the cache.
type Result struct {
	*upstream.Response
	CacheHit bool
}

// Service forwards public reads. Detail lookups are cached per tier since
// the parser may shape the payload by tier.
type Service struct {
	parser   Upstream
	ml       Upstream
	cache    repository.PropertyCache
	cacheTTL time.Duration
	fills    singleflight.Group
}

// Option customises a Service.
type Option func(*Service)

// WithCacheTTL overrides DefaultCacheTTL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// NewService creates a Service. cache may be nil to disable caching.
func NewService(parser, ml Upstream, cache repository.PropertyCache, opts ...Option) *Service {
	s := &Service{parser: parser, ml: ml, cache: cache, cacheTTL: DefaultCacheTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CacheKey returns "cache:prop:{parcel_id}:{tier}".
func CacheKey(parcelID string, tier entity.Tier) string {
	return fmt.Sprintf("cache:prop:%s:%s", parcelID, tier)
}

// Property returns the detail record for parcelID. Concurrent misses for the
// same key share one upstream call, and only a 200 is cached. A caller whose
// ctx ends first returns ctx.Err() while the shared call runs on.
func (s *Service) Property(ctx context.Context, caller Caller, parcelID string) (*Result, error) {
	key := CacheKey(parcelID, caller.Auth.Tier)

	if body, ok := s.lookup(ctx, key); ok {
		return &Result{
			Response: &upstream.Response{
				StatusCode: http.StatusOK,
				Header:     http.Header{"Content-Type": []string{"application/json"}},
				Body:       body,
			},
			CacheHit: true,
		}, nil
	}

	fill := s.fills.DoChan(key, func() (any, error) {
		// Shared by every waiter, so one caller hanging up must not abort it.
		fillCtx := context.WithoutCancel(ctx)
		resp, err := s.parser.Do(fillCtx, upstream.Request{
			Method: http.MethodGet,
			Path:   "/api/v1/properties/" + url.PathEscape(parcelID),
			Header: caller.header(),
		})
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusOK {
			s.store(fillCtx, key, resp.Body)
		}
		return resp, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-fill:
		if res.Err != nil {
			return nil, res.Err
		}
		return &Result{Response: res.Val.(*upstream.Response)}, nil
	}
}

func (s *Service) lookup(ctx context.Context, key string) ([]byte, bool) {
	if s.cache == nil {
		return nil, false
	}
	body, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "property cache read failed", slog.String("key", key), slog.Any("error", err))
		return nil, false
	}
	metrics.RecordCacheLookup(ok)
	return body, ok
}

func (s *Service) store(ctx context.Context, key string, body []byte) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, body, s.cacheTTL); err != nil {
		slog.WarnContext(ctx, "property cache write failed", slog.String("key", key), slog.Any("error", err))
	}
}

// List forwards a property search with the caller's query string.
func (s *Service) List(ctx context.Context, caller Caller, query url.Values) (*Result, error) {
	return s.get(ctx, s.parser, caller, "/api/v1/properties", query)
}

// SearchAddress forwards an address search.
func (s *Service) SearchAddress(ctx context.Context, caller Caller, query url.Values) (*Result, error) {
	return s.get(ctx, s.parser, caller, "/api/v1/search/address", query)
}

// SearchOwner forwards an owner search.
func (s *Service) SearchOwner(ctx context.Context, caller Caller, query url.Values) (*Result, error) {
	return s.get(ctx, s.parser, caller, "/api/v1/search/owner", query)
}

// TopList forwards a ranked list for strategy to the ML service.
func (s *Service) TopList(ctx context.Context, caller Caller, strategy string, query url.Values) (*Result, error) {
	return s.get(ctx, s.ml, caller, "/api/v1/top-lists/"+url.PathEscape(strategy), query)
}

// PredictBatch forwards a JSON prediction batch to the ML service. body must
// already be valid JSON.
func (s *Service) PredictBatch(ctx context.Context, caller Caller, body []byte) (*Result, error) {
	h := caller.header()
	h.Set("Content-Type", "application/json")
	resp, err := s.ml.Do(ctx, upstream.Request{
		Method: http.MethodPost,
		Path:   "/api/v1/predict/batch",
		Body:   body,
		Header: h,
	})
	if err != nil {
		return nil, err
	}
	return &Result{Response: resp}, nil
}

func (s *Service) get(ctx context.Context, to Upstream, caller Caller, path string, query url.Values) (*Result, error) {
	resp, err := to.Do(ctx, upstream.Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  query,
		Header: caller.header(),
	})
	if err != nil {
		return nil, err
	}
	return &Result{Response: resp}, nil
}
