// Package respond writes JSON responses and the gateway error envelope
// {"error":{"code":...,"message":...}}.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Error codes shared by every handler.
const (
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeRateLimited        = "RATE_LIMIT_EXCEEDED"
	CodeTierLimitExceeded  = "TIER_LIMIT_EXCEEDED"
	CodeQuotaUnavailable   = "QUOTA_UNAVAILABLE"
	CodeBadRequest         = "BAD_REQUEST"
	CodeNotFound           = "NOT_FOUND"
	CodeUpstreamError      = "UPSTREAM_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
	CodeURITooLong         = "URI_TOO_LONG"
	CodeGatewayTimeout     = "GATEWAY_TIMEOUT"
	CodeInternal           = "INTERNAL_ERROR"
)

// ErrorBody is the inner object of the error envelope. Extra carries
// endpoint specific hints such as upgrade_url.
type ErrorBody struct {
	Code    string
	Message string
	Extra   map[string]any
}

// MarshalJSON flattens Extra next to code and message.
func (b ErrorBody) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(b.Extra)+2)
	for k, v := range b.Extra {
		m[k] = v
	}
	m["code"] = b.Code
	m["message"] = b.Message
	return json.Marshal(m)
}

// Envelope is the top-level error document.
type Envelope struct {
	Error ErrorBody `json:"error"`
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to encode JSON response",
			slog.Int("status_code", status),
			slog.Any("error", err))
	}
}

// Error writes the error envelope.
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, Envelope{Error: ErrorBody{Code: code, Message: message}})
}

// ErrorWithDetails writes the error envelope with extra fields.
func ErrorWithDetails(w http.ResponseWriter, status int, code, message string, extra map[string]any) {
	JSON(w, status, Envelope{Error: ErrorBody{Code: code, Message: message, Extra: extra}})
}

// SafeError logs err with secrets masked and sends a generic message, so
// store or driver details never reach the client.
func SafeError(w http.ResponseWriter, status int, code string, err error) {
	slog.Default().Error("request failed",
		slog.Int("status", status),
		slog.String("code", code),
		slog.String("error", SanitizeError(err)))

	msg := http.StatusText(status)
	if msg == "" {
		msg = "internal server error"
	}
	Error(w, status, code, msg)
}
