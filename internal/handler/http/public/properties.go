package public

import (
	"net/http"

	"parcel-gateway/internal/handler/http/auth"
	"parcel-gateway/internal/handler/http/pathutil"
	"parcel-gateway/internal/handler/http/requestid"
	"parcel-gateway/internal/handler/http/respond"
	"parcel-gateway/internal/usecase/property"
)

// CacheHeader reports whether a detail response came from the cache.
const CacheHeader = "X-Cache"

func callerOf(r *http.Request) property.Caller {
	return property.Caller{
		Auth:      auth.FromContext(r.Context()),
		RequestID: requestid.FromContext(r.Context()),
	}
}

// PropertyHandler serves GET /v1/properties/{parcel_id}.
type PropertyHandler struct{ Svc *property.Service }

func (h PropertyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parcelID := r.PathValue("parcel_id")
	if err := pathutil.ValidateID(parcelID); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "invalid parcel id")
		return
	}

	res, err := h.Svc.Property(r.Context(), callerOf(r), parcelID)
	if err != nil {
		respond.UpstreamError(w, r, err)
		return
	}

	if res.CacheHit {
		w.Header().Set(CacheHeader, "HIT")
	} else {
		w.Header().Set(CacheHeader, "MISS")
	}
	respond.Forward(w, res.Response)
}

// ListHandler serves GET /v1/properties.
type ListHandler struct{ Svc *property.Service }

func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	res, err := h.Svc.List(r.Context(), callerOf(r), r.URL.Query())
	if err != nil {
		respond.UpstreamError(w, r, err)
		return
	}
	respond.Forward(w, res.Response)
}
