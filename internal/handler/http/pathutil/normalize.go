// Package pathutil maps request paths to route templates for metric labels
// and validates path parameters.
package pathutil

import (
	"regexp"
	"strings"
)

// PathPattern pairs a dynamic route with its template.
type PathPattern struct {
	Pattern  *regexp.Regexp
	Template string
}

// pathPatterns are tried in order; the first match wins.
var pathPatterns = []*PathPattern{
	{Pattern: regexp.MustCompile(`^/v1/properties/[^/]+$`), Template: "/v1/properties/:parcel_id"},
	{Pattern: regexp.MustCompile(`^/v1/top-lists/[^/]+$`), Template: "/v1/top-lists/:strategy"},
	{Pattern: regexp.MustCompile(`^/internal/tasks/[^/]+/complete$`), Template: "/internal/tasks/:task_id/complete"},
	{Pattern: regexp.MustCompile(`^/internal/tasks/[^/]+/fail$`), Template: "/internal/tasks/:task_id/fail"},
	{Pattern: regexp.MustCompile(`^/internal/proxy/[^/]+/rotate$`), Template: "/internal/proxy/:port/rotate"},
}

// NormalizePath replaces path parameters with placeholders so per-route
// metrics keep a bounded label set. Query strings and a trailing slash are
// dropped; paths that match no route are returned unchanged.
//
//	NormalizePath("/v1/properties/TX-48201-0042")  // "/v1/properties/:parcel_id"
//	NormalizePath("/internal/tasks/abc/complete")  // "/internal/tasks/:task_id/complete"
//	NormalizePath("/v1/search/address?q=main")     // "/v1/search/address"
func NormalizePath(path string) string {
	if idx := strings.IndexByte(path, '?'); idx != -1 {
		path = path[:idx]
	}
	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}

	for _, p := range pathPatterns {
		if p.Pattern.MatchString(path) {
			return p.Template
		}
	}
	return path
}
