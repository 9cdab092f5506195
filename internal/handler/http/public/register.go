package public

import (
	"net/http"

	"parcel-gateway/internal/handler/http/middleware"
	"parcel-gateway/internal/usecase/property"
	"parcel-gateway/internal/usecase/quota"
)

// Register mounts the public routes on mux. Metered routes are wrapped in
// the quota gate for their feature.
func Register(mux *http.ServeMux, svc *property.Service, q *middleware.Quota, usage UsageReader) {
	gate := func(f quota.Feature, h http.Handler) http.Handler {
		return q.RequireFeature(f)(h)
	}

	mux.Handle("GET /v1/properties", ListHandler{svc})
	mux.Handle("GET /v1/properties/{parcel_id}", gate(quota.FeatureDetails, PropertyHandler{svc}))
	mux.Handle("GET /v1/search/address", gate(quota.FeatureSearch, SearchHandler{Svc: svc, By: ByAddress}))
	mux.Handle("GET /v1/search/owner", gate(quota.FeatureSearch, SearchHandler{Svc: svc, By: ByOwner}))
	mux.Handle("GET /v1/top-lists/{strategy}", gate(quota.FeatureTopLists, TopListHandler{svc}))
	mux.Handle("POST /v1/predictions/batch", gate(quota.FeatureAIAnalysis, PredictionsHandler{svc}))
	mux.Handle("GET /v1/usage", UsageHandler{Usage: usage, Subject: q.Subject})
}
