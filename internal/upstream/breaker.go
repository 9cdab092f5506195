package upstream

import (
	"log/slog"
	"sync"
	"time"

	"parcel-gateway/internal/observability/metrics"
)

// State is a breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// metricCode matches the gateway_circuit_breaker_state gauge encoding.
func (s State) metricCode() int {
	switch s {
	case StateOpen:
		return 1
	case StateHalfOpen:
		return 2
	default:
		return 0
	}
}

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Settings configures a Breaker.
type Settings struct {
	// FailureThreshold is the number of consecutive failures that opens the
	// breaker. Default 5.
	FailureThreshold int

	// RecoveryTimeout is how long after the last failure an open breaker
	// stays shut before admitting a probe. Default 30s.
	RecoveryTimeout time.Duration

	// SingleProbe limits a half-open breaker to one in-flight call. Off by
	// default, which lets every caller through while half-open.
	SingleProbe bool
}

// DefaultSettings returns threshold 5 and a 30 second recovery timeout.
func DefaultSettings() Settings {
	return Settings{FailureThreshold: 5, RecoveryTimeout: 30 * time.Second}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.FailureThreshold <= 0 {
		s.FailureThreshold = d.FailureThreshold
	}
	if s.RecoveryTimeout <= 0 {
		s.RecoveryTimeout = d.RecoveryTimeout
	}
	return s
}

// Breaker tracks consecutive failures of one upstream service.
//
// closed opens after FailureThreshold consecutive failures. open becomes
// half_open on the first CanExecute after RecoveryTimeout has passed since
// the last failure; there is no background timer. Any success closes the
// breaker and zeroes the failure count; a failure while half_open reopens it.
type Breaker struct {
	name     string
	settings Settings
	clock    Clock

	mu                  sync.Mutex
	state               State
	consecutiveFailures int
	lastFailure         time.Time
	lastStateChange     time.Time
	probeInFlight       bool
	probeGen            uint64
}

// Permit is the admission returned by Acquire. Only the permit that took
// the half-open probe slot can hand it back through Release.
type Permit struct {
	probe bool
	gen   uint64
}

// NewBreaker returns a closed breaker. A nil clock uses wall time.
func NewBreaker(name string, settings Settings, clock Clock) *Breaker {
	if clock == nil {
		clock = systemClock{}
	}
	b := &Breaker{
		name:            name,
		settings:        settings.withDefaults(),
		clock:           clock,
		state:           StateClosed,
		lastStateChange: clock.Now(),
	}
	metrics.SetCircuitState(name, StateClosed.metricCode())
	return b
}

func (b *Breaker) Name() string { return b.name }

// CanExecute reports whether a call may go out now, moving an expired open
// breaker to half_open.
func (b *Breaker) CanExecute() bool {
	_, ok := b.Acquire()
	return ok
}

// Acquire is CanExecute returning the permit the call holds.
func (b *Breaker) Acquire() (Permit, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return Permit{}, true
	case StateOpen:
		if b.clock.Now().Sub(b.lastFailure) <= b.settings.RecoveryTimeout {
			return Permit{}, false
		}
		b.transition(StateHalfOpen)
		if !b.settings.SingleProbe {
			return Permit{}, true
		}
		return b.takeProbe(), true
	case StateHalfOpen:
		if !b.settings.SingleProbe {
			return Permit{}, true
		}
		if b.probeInFlight {
			return Permit{}, false
		}
		return b.takeProbe(), true
	default:
		return Permit{}, false
	}
}

// takeProbe must be called with b.mu held.
func (b *Breaker) takeProbe() Permit {
	b.probeGen++
	b.probeInFlight = true
	return Permit{probe: true, gen: b.probeGen}
}

// RecordSuccess closes the breaker from any state.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures = 0
	b.probeInFlight = false
	if b.state != StateClosed {
		b.transition(StateClosed)
	}
}

// RecordFailure counts a failure and opens the breaker when the threshold
// is reached or when a half-open probe fails.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures++
	b.lastFailure = b.clock.Now()
	b.probeInFlight = false

	switch b.state {
	case StateHalfOpen:
		b.transition(StateOpen)
	case StateClosed:
		if b.consecutiveFailures >= b.settings.FailureThreshold {
			b.transition(StateOpen)
		}
	}
}

// Release frees the half-open probe slot held by p for a call that ended
// without an outcome, such as one cancelled by its caller. Permits that do
// not hold the current slot are ignored.
func (b *Breaker) Release(p Permit) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p.probe && p.gen == b.probeGen {
		b.probeInFlight = false
	}
}

// transition must be called with b.mu held.
func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	b.lastStateChange = b.clock.Now()
	metrics.SetCircuitState(b.name, to.metricCode())

	slog.Warn("circuit breaker state changed",
		slog.String("upstream", b.name),
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.Int("consecutive_failures", b.consecutiveFailures),
		slog.Duration("recovery_timeout", b.settings.RecoveryTimeout))
}

// State returns the current state without evaluating the recovery timeout.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats is a point-in-time view of a breaker.
type Stats struct {
	Name                string    `json:"name"`
	State               string    `json:"state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	FailureThreshold    int       `json:"failure_threshold"`
	LastFailure         time.Time `json:"last_failure,omitzero"`
	LastStateChange     time.Time `json:"last_state_change"`
}

func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Name:                b.name,
		State:               b.state.String(),
		ConsecutiveFailures: b.consecutiveFailures,
		FailureThreshold:    b.settings.FailureThreshold,
		LastFailure:         b.lastFailure,
		LastStateChange:     b.lastStateChange,
	}
}
