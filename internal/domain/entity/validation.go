package entity

import (
	"fmt"
	"regexp"
)

const maxPlatformLength = 64

// platformPattern keeps platform names safe to embed in store keys.
var platformPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_\-]*$`)

// ValidatePlatform checks that a platform name is usable as a queue key segment.
func ValidatePlatform(platform string) error {
	if platform == "" {
		return &ValidationError{Field: "platform", Message: "platform is required"}
	}
	if len(platform) > maxPlatformLength {
		return &ValidationError{
			Field:   "platform",
			Message: fmt.Sprintf("platform must not exceed %d characters", maxPlatformLength),
		}
	}
	if !platformPattern.MatchString(platform) {
		return &ValidationError{Field: "platform", Message: "platform must be lowercase alphanumeric, '-' or '_'"}
	}
	return nil
}

// ValidatePriority checks 1 (urgent) through 4 (low).
func ValidatePriority(p int) error {
	if p < PriorityUrgent || p > PriorityLow {
		return &ValidationError{
			Field:   "priority",
			Message: fmt.Sprintf("priority must be between %d and %d, got %d", PriorityUrgent, PriorityLow, p),
		}
	}
	return nil
}
