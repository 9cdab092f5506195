package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"parcel-gateway/internal/domain/entity"
	"parcel-gateway/internal/handler/http/auth"
)

type errorEnvelope struct {
	Error map[string]any `json:"error"`
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env.Error
}

// serve runs h for a request carrying ac, from remoteAddr.
func serve(h http.Handler, ac entity.AuthContext, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/search/address?q=main", nil)
	req.RemoteAddr = remoteAddr
	req = req.WithContext(auth.WithContext(req.Context(), ac))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})
