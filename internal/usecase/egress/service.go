// Package egress obtains and rotates outbound proxies for workers through
// the proxy service.
package egress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"parcel-gateway/internal/domain/entity"
	"parcel-gateway/internal/upstream"
)

// DefaultTimeout bounds each call to the proxy service.
const DefaultTimeout = 10 * time.Second

// DefaultRotateReason is sent when the worker gives none.
const DefaultRotateReason = "banned"

// ErrProxyRejected means the proxy service answered, but not with a usable proxy.
var ErrProxyRejected = errors.New("proxy service rejected request")

// Upstream is the subset of *upstream.Client the service needs.
type Upstream interface {
	Do(ctx context.Context, req upstream.Request) (*upstream.Response, error)
}

type Service struct {
	proxy   Upstream
	timeout time.Duration
}

// NewService creates a Service. A non-positive timeout uses DefaultTimeout.
func NewService(proxy Upstream, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{proxy: proxy, timeout: timeout}
}

// Create returns a proxy for platform.
func (s *Service) Create(ctx context.Context, platform string) (*entity.ProxyInfo, error) {
	if err := entity.ValidatePlatform(platform); err != nil {
		return nil, err
	}
	return s.call(ctx, upstream.Request{
		Method: http.MethodGet,
		Path:   "/create",
		Query:  url.Values{"platform": {platform}},
	})
}

// Rotate replaces the proxy listening on port.
func (s *Service) Rotate(ctx context.Context, port int, platform, reason string) (*entity.ProxyInfo, error) {
	if err := entity.ValidatePlatform(platform); err != nil {
		return nil, err
	}
	if reason == "" {
		reason = DefaultRotateReason
	}
	return s.call(ctx, upstream.Request{
		Method: http.MethodPost,
		Path:   "/rotate/" + strconv.Itoa(port),
		Query:  url.Values{"platform": {platform}, "reason": {reason}},
	})
}

func (s *Service) call(ctx context.Context, req upstream.Request) (*entity.ProxyInfo, error) {
	req.Timeout = s.timeout
	resp, err := s.proxy.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrProxyRejected, resp.StatusCode)
	}

	var info entity.ProxyInfo
	if err := json.Unmarshal(resp.Body, &info); err != nil {
		return nil, fmt.Errorf("%w: decode body: %v", ErrProxyRejected, err)
	}
	if info.Host == "" || info.Port <= 0 {
		return nil, fmt.Errorf("%w: incomplete proxy record", ErrProxyRejected)
	}
	return &info, nil
}
