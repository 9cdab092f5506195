package public

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"parcel-gateway/internal/handler/http/respond"
	"parcel-gateway/internal/usecase/property"
)

// PredictionsHandler serves POST /v1/predictions/batch.
type PredictionsHandler struct{ Svc *property.Service }

func (h PredictionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(w, http.StatusRequestEntityTooLarge, respond.CodePayloadTooLarge, "request body too large")
			return
		}
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "could not read request body")
		return
	}
	if !json.Valid(body) {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "invalid JSON body")
		return
	}

	res, err := h.Svc.PredictBatch(r.Context(), callerOf(r), body)
	if err != nil {
		respond.UpstreamError(w, r, err)
		return
	}
	respond.Forward(w, res.Response)
}
