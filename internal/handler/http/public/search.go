package public

import (
	"net/http"

	"parcel-gateway/internal/handler/http/respond"
	"parcel-gateway/internal/usecase/property"
)

// SearchHandler serves GET /v1/search/address and GET /v1/search/owner.
type SearchHandler struct {
	Svc *property.Service
	By  SearchBy
}

// SearchBy selects the search index.
type SearchBy int

const (
	ByAddress SearchBy = iota
	ByOwner
)

func (h SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var (
		res *property.Result
		err error
	)
	switch h.By {
	case ByOwner:
		res, err = h.Svc.SearchOwner(r.Context(), callerOf(r), r.URL.Query())
	default:
		res, err = h.Svc.SearchAddress(r.Context(), callerOf(r), r.URL.Query())
	}
	if err != nil {
		respond.UpstreamError(w, r, err)
		return
	}
	respond.Forward(w, res.Response)
}
