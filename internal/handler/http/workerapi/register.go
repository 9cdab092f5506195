package workerapi

import (
	"net/http"

	"parcel-gateway/internal/usecase/dispatch"
	"parcel-gateway/internal/usecase/egress"
)

// Deps groups what the worker routes need.
type Deps struct {
	Dispatch *dispatch.Service
	Egress   *egress.Service
	RawFiles RawFileSaver
}

// Register mounts the worker routes on mux. The caller is expected to wrap
// mux in auth.RequireInternal.
func Register(mux *http.ServeMux, d Deps) {
	mux.Handle("GET /internal/work", WorkHandler{d.Dispatch})
	mux.Handle("POST /internal/results", ResultsHandler{d.Dispatch})
	mux.Handle("POST /internal/tasks", EnqueueHandler{d.Dispatch})
	mux.Handle("POST /internal/tasks/{task_id}/complete", CompleteHandler{d.Dispatch})
	mux.Handle("POST /internal/tasks/{task_id}/fail", FailHandler{d.Dispatch})
	mux.Handle("POST /internal/heartbeat", HeartbeatHandler{d.Dispatch})
	mux.Handle("POST /internal/raw-files", RawFilesHandler{d.RawFiles})
	mux.Handle("GET /internal/proxy/create", ProxyCreateHandler{d.Egress})
	mux.Handle("POST /internal/proxy/{port}/rotate", ProxyRotateHandler{d.Egress})
}
