package pathutil

import (
	"errors"
	"regexp"
	"strconv"
)

var (
	// ErrInvalidID is returned for a malformed parcel or task identifier.
	ErrInvalidID = errors.New("invalid id")

	// ErrInvalidPort is returned for a proxy port outside 1..65535.
	ErrInvalidPort = errors.New("invalid port")
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9._:\-]{1,128}$`)

// ValidateID accepts identifiers made of letters, digits and ". _ : -",
// up to 128 characters. Anything else would be unsafe to embed in a cache
// key or an upstream path.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return ErrInvalidID
	}
	return nil
}

// ParsePort parses a TCP port path parameter.
func ParsePort(raw string) (int, error) {
	port, err := strconv.Atoi(raw)
	if err != nil || port < 1 || port > 65535 {
		return 0, ErrInvalidPort
	}
	return port, nil
}
