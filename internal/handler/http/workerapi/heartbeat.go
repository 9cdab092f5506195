package workerapi

import (
	"net/http"

	"parcel-gateway/internal/domain/entity"
	"parcel-gateway/internal/handler/http/auth"
	"parcel-gateway/internal/handler/http/respond"
	"parcel-gateway/internal/usecase/dispatch"
)

// HeartbeatHandler serves POST /internal/heartbeat.
type HeartbeatHandler struct{ Svc *dispatch.Service }

func (h HeartbeatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var status entity.WorkerStatus
	if !decodeJSON(w, r, &status) {
		return
	}
	reply, err := h.Svc.Heartbeat(r.Context(), auth.FromContext(r.Context()).WorkerID, status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, reply)
}
