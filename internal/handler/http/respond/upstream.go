package respond

import (
	"context"
	"errors"
	"net/http"

	"parcel-gateway/internal/upstream"
)

// UpstreamError maps a failed backend call onto the envelope. A request
// whose own deadline expired gets 504; an open circuit or an unavailable
// backend gets 502 with a generic message.
func UpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(r.Context().Err(), context.DeadlineExceeded):
		SafeError(w, http.StatusGatewayTimeout, CodeGatewayTimeout, err)
	case errors.Is(err, upstream.ErrCircuitOpen):
		Error(w, http.StatusBadGateway, CodeUpstreamError, "upstream service temporarily unavailable")
	case upstream.IsUnavailable(err):
		SafeError(w, http.StatusBadGateway, CodeUpstreamError, err)
	case errors.Is(err, context.Canceled):
		// Client is gone; nothing useful can be written.
	default:
		SafeError(w, http.StatusInternalServerError, CodeInternal, err)
	}
}

// Forward copies a backend response to w.
func Forward(w http.ResponseWriter, resp *upstream.Response) {
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/json"
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}
