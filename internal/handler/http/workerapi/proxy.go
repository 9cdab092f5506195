package workerapi

import (
	"log/slog"
	"net/http"

	"parcel-gateway/internal/handler/http/pathutil"
	"parcel-gateway/internal/handler/http/respond"
	"parcel-gateway/internal/usecase/dispatch"
	"parcel-gateway/internal/usecase/egress"
)

// ProxyCreateHandler serves GET /internal/proxy/create?platform=.
type ProxyCreateHandler struct{ Svc *egress.Service }

func (h ProxyCreateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	platform := r.URL.Query().Get("platform")
	info, err := h.Svc.Create(r.Context(), platform)
	if err != nil {
		writeProxyError(w, r, err, "proxy creation failed")
		return
	}
	respond.JSON(w, http.StatusOK, info)
}

// ProxyRotateHandler serves POST /internal/proxy/{port}/rotate?platform=&reason=.
type ProxyRotateHandler struct{ Svc *egress.Service }

func (h ProxyRotateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	port, err := pathutil.ParsePort(r.PathValue("port"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "invalid port")
		return
	}
	q := r.URL.Query()
	info, err := h.Svc.Rotate(r.Context(), port, q.Get("platform"), q.Get("reason"))
	if err != nil {
		writeProxyError(w, r, err, "proxy rotation failed")
		return
	}
	respond.JSON(w, http.StatusOK, info)
}

// writeProxyError reports every proxy service problem as 502 apart from a
// bad platform, which is the caller's fault.
func writeProxyError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if dispatch.IsValidation(err) {
		writeServiceError(w, err)
		return
	}
	slog.ErrorContext(r.Context(), msg, slog.String("error", respond.SanitizeError(err)))
	respond.Error(w, http.StatusBadGateway, respond.CodeUpstreamError, "proxy service unavailable")
}
