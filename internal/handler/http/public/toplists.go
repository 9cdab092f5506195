package public

import (
	"net/http"

	"parcel-gateway/internal/handler/http/pathutil"
	"parcel-gateway/internal/handler/http/respond"
	"parcel-gateway/internal/usecase/property"
)

// TopListHandler serves GET /v1/top-lists/{strategy}.
type TopListHandler struct{ Svc *property.Service }

func (h TopListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	strategy := r.PathValue("strategy")
	if err := pathutil.ValidateID(strategy); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "invalid strategy")
		return
	}

	res, err := h.Svc.TopList(r.Context(), callerOf(r), strategy, r.URL.Query())
	if err != nil {
		respond.UpstreamError(w, r, err)
		return
	}
	respond.Forward(w, res.Response)
}
