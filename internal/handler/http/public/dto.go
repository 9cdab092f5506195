// Package public provides the HTTP handlers of the customer-facing API.
// Reads are forwarded to the parser and ML services; metered routes sit
// behind a daily quota gate.
package public

// FeatureUsage is one feature's counter in a usage report. Limit is -1 for
// unlimited and 0 when the tier may not use the feature.
type FeatureUsage struct {
	Used  int64 `json:"used"`
	Limit int   `json:"limit"`
}

// UsageDTO is the body of GET /v1/usage.
type UsageDTO struct {
	UserID string                  `json:"user_id"`
	Tier   string                  `json:"tier"`
	Date   string                  `json:"date"`
	Usage  map[string]FeatureUsage `json:"usage"`
}
