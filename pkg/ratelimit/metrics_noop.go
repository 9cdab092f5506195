package ratelimit

import "time"

// NoOpMetrics discards everything.
type NoOpMetrics struct{}

func (NoOpMetrics) RecordAllowed(string)                      {}
func (NoOpMetrics) RecordDenied(string)                       {}
func (NoOpMetrics) RecordError(string)                        {}
func (NoOpMetrics) RecordCheckDuration(string, time.Duration) {}
func (NoOpMetrics) SetActiveKeys(int)                         {}
func (NoOpMetrics) RecordEviction(int)                        {}
