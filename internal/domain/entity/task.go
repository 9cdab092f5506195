package entity

import (
	"encoding/json"
	"time"
)

// Priority bounds. Lower numbers are more urgent.
const (
	PriorityUrgent = 1
	PriorityHigh   = 2
	PriorityNormal = 3
	PriorityLow    = 4
)

// DefaultTaskType is used when a producer does not name one.
const DefaultTaskType = "scrape"

// ProxyInfo describes an egress proxy handed to a worker with its task, or
// returned by the proxy-rotation service.
type ProxyInfo struct {
	Host      string     `json:"host"`
	Port      int        `json:"port"`
	Type      string     `json:"type"`
	Username  string     `json:"username,omitempty"`
	Password  string     `json:"password,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// WorkTask is a unit of scrape work. Target is opaque to the gateway and is
// passed through to the worker byte for byte.
type WorkTask struct {
	TaskID    string          `json:"task_id"`
	Type      string          `json:"type"`
	Platform  string          `json:"platform"`
	Target    json.RawMessage `json:"target"`
	Priority  int             `json:"priority"`
	Proxy     *ProxyInfo      `json:"proxy,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Validate checks the fields the queue depends on.
func (t *WorkTask) Validate() error {
	if t.TaskID == "" {
		return &ValidationError{Field: "task_id", Message: "task_id is required"}
	}
	if err := ValidatePlatform(t.Platform); err != nil {
		return err
	}
	return ValidatePriority(t.Priority)
}
