package respond

import "regexp"

var (
	// user:password@ in postgres:// and redis:// URLs
	dsnPasswordPattern = regexp.MustCompile(`://([^:/@]*):([^@]+)@`)
	bearerPattern      = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9\-_.=]+`)
	jwtPattern         = regexp.MustCompile(`eyJ[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]+`)
)

// SanitizeError returns err's message with credentials masked.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	msg = dsnPasswordPattern.ReplaceAllString(msg, "://$1:****@")
	msg = bearerPattern.ReplaceAllString(msg, "Bearer ****")
	msg = jwtPattern.ReplaceAllString(msg, "****")
	return msg
}
