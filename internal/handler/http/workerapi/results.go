package workerapi

import (
	"net/http"
	"strconv"

	"parcel-gateway/internal/domain/entity"
	"parcel-gateway/internal/handler/http/auth"
	"parcel-gateway/internal/handler/http/respond"
	"parcel-gateway/internal/usecase/dispatch"
)

// ResultsHandler serves POST /internal/results.
type ResultsHandler struct{ Svc *dispatch.Service }

func (h ResultsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var results []*entity.ParcelResult
	if !decodeJSON(w, r, &results) {
		return
	}
	if len(results) > maxResultBatch {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest,
			"at most "+strconv.Itoa(maxResultBatch)+" results per batch")
		return
	}

	summary, err := h.Svc.SubmitResults(r.Context(), auth.FromContext(r.Context()).WorkerID, results)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, summary)
}
