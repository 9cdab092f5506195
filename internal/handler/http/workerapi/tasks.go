package workerapi

import (
	"net/http"

	"parcel-gateway/internal/handler/http/auth"
	"parcel-gateway/internal/handler/http/pathutil"
	"parcel-gateway/internal/handler/http/respond"
	"parcel-gateway/internal/usecase/dispatch"
)

func taskID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("task_id")
	if err := pathutil.ValidateID(id); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "invalid task id")
		return "", false
	}
	return id, true
}

// CompleteHandler serves POST /internal/tasks/{task_id}/complete.
type CompleteHandler struct{ Svc *dispatch.Service }

func (h CompleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	removed, err := h.Svc.Complete(r.Context(), auth.FromContext(r.Context()).WorkerID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]bool{"success": removed})
}

// FailHandler serves POST /internal/tasks/{task_id}/fail. The body is
// optional.
type FailHandler struct{ Svc *dispatch.Service }

func (h FailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	var report dispatch.FailureReport
	if !decodeOptionalJSON(w, r, &report) {
		return
	}
	h.Svc.Fail(r.Context(), auth.FromContext(r.Context()).WorkerID, id, report)
	respond.JSON(w, http.StatusOK, map[string]string{"status": "reported"})
}

// EnqueueHandler serves POST /internal/tasks for producers.
type EnqueueHandler struct{ Svc *dispatch.Service }

func (h EnqueueHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req dispatch.EnqueueRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	task, err := h.Svc.Enqueue(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, task)
}
