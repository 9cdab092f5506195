package workerapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"parcel-gateway/internal/domain/entity"
	"parcel-gateway/internal/handler/http/respond"
)

// maxResultBatch bounds the number of records accepted in one submission.
const maxResultBatch = 1000

func writeServiceError(w http.ResponseWriter, err error) {
	var ve *entity.ValidationError
	if errors.As(err, &ve) {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, ve.Error())
		return
	}
	respond.SafeError(w, http.StatusServiceUnavailable, respond.CodeServiceUnavailable, err)
}

// decodeJSON reads a JSON body into v, writing the 4xx itself on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	return decode(w, r, v, false)
}

// decodeOptionalJSON is decodeJSON for bodies that may be absent. An empty
// body leaves v untouched, whether or not a length was declared.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	return decode(w, r, v, true)
}

func decode(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if optional && errors.Is(err, io.EOF) {
		return true
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(w, http.StatusRequestEntityTooLarge, respond.CodePayloadTooLarge, "request body too large")
			return false
		}
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "invalid JSON body")
		return false
	}
	return true
}
