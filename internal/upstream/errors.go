package upstream

import (
	"errors"
	"fmt"
)

// ErrCircuitOpen is returned without a network attempt while the upstream's
// breaker is open.
var ErrCircuitOpen = errors.New("circuit open")

// UnavailableError reports a transport failure, a timeout or a 5xx
// response. Each one counted as a breaker failure.
type UnavailableError struct {
	Upstream   string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *UnavailableError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream %s unavailable: status %d", e.Upstream, e.StatusCode)
	}
	return fmt.Sprintf("upstream %s unavailable: %v", e.Upstream, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// IsUnavailable reports whether err means the upstream could not serve the
// request, either because its breaker is open or because the call failed.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.Is(err, ErrCircuitOpen) || errors.As(err, &ue)
}
