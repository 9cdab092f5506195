package public_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parcel-gateway/internal/domain/entity"
	"parcel-gateway/internal/handler/http/auth"
	"parcel-gateway/internal/handler/http/middleware"
	"parcel-gateway/internal/handler/http/public"
	"parcel-gateway/internal/upstream"
	"parcel-gateway/internal/usecase/property"
	"parcel-gateway/internal/usecase/quota"
)

/* ───────── fakes ───────── */

type recorded struct {
	method, path, query string
	header              http.Header
	body                string
}

type backend struct {
	*httptest.Server
	mu       sync.Mutex
	requests []recorded
	status   int
	body     string
	delay    time.Duration
}

func newBackend(t *testing.T, status int, body string) *backend {
	t.Helper()
	b := &backend{status: status, body: body}
	b.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.requests = append(b.requests, recorded{r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Clone(), string(data)})
		b.mu.Unlock()
		time.Sleep(b.delay)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(b.status)
		_, _ = io.WriteString(w, b.body)
	}))
	t.Cleanup(b.Close)
	return b
}

func (b *backend) last(t *testing.T) recorded {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(t, b.requests)
	return b.requests[len(b.requests)-1]
}

func (b *backend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	return b, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, body []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = body
	return nil
}

type allowAll struct{ calls []quota.Feature }

func (a *allowAll) CheckAndIncrement(_ context.Context, _ string, _ entity.Tier, f quota.Feature) (bool, error) {
	a.calls = append(a.calls, f)
	return true, nil
}

type fixedUsage struct {
	subject string
	counts  map[quota.Feature]int64
	err     error
}

func (u *fixedUsage) GetUsage(_ context.Context, subject string) (map[quota.Feature]int64, error) {
	u.subject = subject
	return u.counts, u.err
}

type harness struct {
	mux    *http.ServeMux
	parser *backend
	ml     *backend
	quota  *allowAll
	usage  *fixedUsage
}

func newHarness(t *testing.T, parser, ml *backend) *harness {
	t.Helper()
	reg := upstream.NewRegistry(upstream.Settings{FailureThreshold: 2, RecoveryTimeout: time.Minute})
	pc, err := upstream.NewClient("parser", parser.URL, reg.Get("parser"))
	require.NoError(t, err)
	mc, err := upstream.NewClient("ml", ml.URL, reg.Get("ml"))
	require.NoError(t, err)

	h := &harness{
		mux:    http.NewServeMux(),
		parser: parser,
		ml:     ml,
		quota:  &allowAll{},
		usage:  &fixedUsage{counts: map[quota.Feature]int64{quota.FeatureSearch: 3}},
	}
	svc := property.NewService(pc, mc, &memCache{data: map[string][]byte{}})
	q := middleware.NewQuota(h.quota, middleware.RemoteAddrExtractor{}, "")
	public.Register(h.mux, svc, q, h.usage)
	return h
}

func (h *harness) do(method, target, body string, ac entity.AuthContext) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	req.RemoteAddr = "198.51.100.7:5555"
	req = req.WithContext(auth.WithContext(req.Context(), ac))
	rr := httptest.NewRecorder()
	h.mux.ServeHTTP(rr, req)
	return rr
}

var premium = entity.AuthContext{UserID: "u-42", Tier: entity.TierPremium}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env.Error.Code
}

/* ───────── tests ───────── */

func TestPropertyHandler_CacheHeaders(t *testing.T) {
	h := newHarness(t, newBackend(t, http.StatusOK, `{"parcel_id":"12-3"}`), newBackend(t, http.StatusOK, `{}`))

	first := h.do(http.MethodGet, "/v1/properties/12-3", "", premium)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get(public.CacheHeader))
	assert.JSONEq(t, `{"parcel_id":"12-3"}`, first.Body.String())

	second := h.do(http.MethodGet, "/v1/properties/12-3", "", premium)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get(public.CacheHeader))
	assert.Equal(t, 1, h.parser.count())

	got := h.parser.last(t)
	assert.Equal(t, "/api/v1/properties/12-3", got.path)
	assert.Equal(t, "u-42", got.header.Get(property.HeaderUserID))
	assert.Equal(t, "premium", got.header.Get(property.HeaderUserTier))
	assert.Equal(t, []quota.Feature{quota.FeatureDetails, quota.FeatureDetails}, h.quota.calls)
}

func TestPropertyHandler_InvalidID(t *testing.T) {
	h := newHarness(t, newBackend(t, http.StatusOK, `{}`), newBackend(t, http.StatusOK, `{}`))

	rr := h.do(http.MethodGet, "/v1/properties/bad%20id", "", premium)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "BAD_REQUEST", errorCode(t, rr))
	assert.Zero(t, h.parser.count())
}

func TestPropertyHandler_UpstreamFailureOpensCircuit(t *testing.T) {
	h := newHarness(t, newBackend(t, http.StatusServiceUnavailable, `{}`), newBackend(t, http.StatusOK, `{}`))

	for range 2 {
		rr := h.do(http.MethodGet, "/v1/properties/p1", "", premium)
		assert.Equal(t, http.StatusBadGateway, rr.Code)
		assert.Equal(t, "UPSTREAM_ERROR", errorCode(t, rr))
	}

	rr := h.do(http.MethodGet, "/v1/properties/p1", "", premium)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, 2, h.parser.count(), "open circuit must not reach the backend")
}

func TestPropertyHandler_RequestDeadlineIs504(t *testing.T) {
	parser := newBackend(t, http.StatusOK, `{"parcel_id":"p1"}`)
	parser.delay = 300 * time.Millisecond
	h := newHarness(t, parser, newBackend(t, http.StatusOK, `{}`))

	ctx, cancel := context.WithTimeout(auth.WithContext(context.Background(), premium), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/v1/properties/p1", nil).WithContext(ctx)
	rr := httptest.NewRecorder()
	start := time.Now()
	h.mux.ServeHTTP(rr, req)

	assert.Less(t, time.Since(start), 250*time.Millisecond)
	assert.Equal(t, http.StatusGatewayTimeout, rr.Code)
	assert.Equal(t, "GATEWAY_TIMEOUT", errorCode(t, rr))
}

func TestPropertyHandler_NotFoundPassesThrough(t *testing.T) {
	h := newHarness(t, newBackend(t, http.StatusNotFound, `{"detail":"no parcel"}`), newBackend(t, http.StatusOK, `{}`))

	rr := h.do(http.MethodGet, "/v1/properties/p1", "", premium)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"detail":"no parcel"}`, rr.Body.String())
	assert.Equal(t, "MISS", rr.Header().Get(public.CacheHeader))
}

func TestForwardingRoutes(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		target      string
		body        string
		toML        bool
		wantPath    string
		wantFeature []quota.Feature
	}{
		{"list is not metered", http.MethodGet, "/v1/properties?county=polk", "", false, "/api/v1/properties", nil},
		{"address search", http.MethodGet, "/v1/search/address?q=1+main", "", false, "/api/v1/search/address", []quota.Feature{quota.FeatureSearch}},
		{"owner search", http.MethodGet, "/v1/search/owner?q=smith", "", false, "/api/v1/search/owner", []quota.Feature{quota.FeatureSearch}},
		{"top list", http.MethodGet, "/v1/top-lists/roi?limit=5", "", true, "/api/v1/top-lists/roi", []quota.Feature{quota.FeatureTopLists}},
		{"predictions", http.MethodPost, "/v1/predictions/batch", `{"parcel_ids":["a"]}`, true, "/api/v1/predict/batch", []quota.Feature{quota.FeatureAIAnalysis}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := newBackend(t, http.StatusOK, `{"items":[]}`)
			ml := newBackend(t, http.StatusOK, `{"items":[]}`)
			h := newHarness(t, parser, ml)

			rr := h.do(tt.method, tt.target, tt.body, premium)
			require.Equal(t, http.StatusOK, rr.Code)
			assert.JSONEq(t, `{"items":[]}`, rr.Body.String())

			target := parser
			if tt.toML {
				target = ml
			}
			got := target.last(t)
			assert.Equal(t, tt.wantPath, got.path)
			assert.Equal(t, "premium", got.header.Get(property.HeaderUserTier))
			if tt.body != "" {
				assert.JSONEq(t, tt.body, got.body)
			}
			assert.Equal(t, tt.wantFeature, h.quota.calls)
		})
	}
}

func TestPredictionsHandler_InvalidJSON(t *testing.T) {
	h := newHarness(t, newBackend(t, http.StatusOK, `{}`), newBackend(t, http.StatusOK, `{}`))

	rr := h.do(http.MethodPost, "/v1/predictions/batch", `{not json`, premium)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "BAD_REQUEST", errorCode(t, rr))
	assert.Zero(t, h.ml.count())
}

func TestUsageHandler(t *testing.T) {
	h := newHarness(t, newBackend(t, http.StatusOK, `{}`), newBackend(t, http.StatusOK, `{}`))

	rr := h.do(http.MethodGet, "/v1/usage", "", entity.AuthContext{UserID: "u-7", Tier: entity.TierFree})
	require.Equal(t, http.StatusOK, rr.Code)

	var out public.UsageDTO
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, "u-7", out.UserID)
	assert.Equal(t, "free", out.Tier)
	assert.Equal(t, "u-7", h.usage.subject)
	assert.Equal(t, public.FeatureUsage{Used: 3, Limit: 20}, out.Usage["search"])
	assert.Equal(t, public.FeatureUsage{Used: 0, Limit: 50}, out.Usage["details"])
	assert.Equal(t, public.FeatureUsage{Used: 0, Limit: quota.Forbidden}, out.Usage["top_lists"])
}

func TestUsageHandler_AnonymousByAddress(t *testing.T) {
	h := newHarness(t, newBackend(t, http.StatusOK, `{}`), newBackend(t, http.StatusOK, `{}`))

	rr := h.do(http.MethodGet, "/v1/usage", "", entity.Anonymous())
	require.Equal(t, http.StatusOK, rr.Code)

	var out public.UsageDTO
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, "anonymous", out.UserID)
	assert.Equal(t, "198.51.100.7", h.usage.subject)
}

func TestUsageHandler_StoreDown(t *testing.T) {
	h := newHarness(t, newBackend(t, http.StatusOK, `{}`), newBackend(t, http.StatusOK, `{}`))
	h.usage.err = errors.New("redis down")

	rr := h.do(http.MethodGet, "/v1/usage", "", premium)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "QUOTA_UNAVAILABLE", errorCode(t, rr))
	assert.NotContains(t, rr.Body.String(), "redis down")
}
