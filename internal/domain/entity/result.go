package entity

import "time"

// ParcelResult is one scraped record submitted by a worker.
type ParcelResult struct {
	TaskID          string         `json:"task_id"`
	ParcelID        string         `json:"parcel_id"`
	Platform        string         `json:"platform"`
	State           string         `json:"state"`
	County          string         `json:"county"`
	Data            map[string]any `json:"data"`
	ScrapedAt       time.Time      `json:"scraped_at"`
	ParseDurationMs int            `json:"parse_duration_ms"`
	RawHTMLHash     string         `json:"raw_html_hash,omitempty"`
}

// Validate checks the natural key of the parcel.
func (r *ParcelResult) Validate() error {
	switch {
	case r.TaskID == "":
		return &ValidationError{Field: "task_id", Message: "task_id is required"}
	case r.ParcelID == "":
		return &ValidationError{Field: "parcel_id", Message: "parcel_id is required"}
	case r.Platform == "":
		return &ValidationError{Field: "platform", Message: "platform is required"}
	}
	return nil
}

// WorkerStatus is the payload of a worker heartbeat.
type WorkerStatus struct {
	ActiveTasks         int      `json:"active_tasks"`
	CompletedLastMinute int      `json:"completed_last_minute"`
	FailedLastMinute    int      `json:"failed_last_minute"`
	Platforms           []string `json:"platforms"`
	CPUPercent          float64  `json:"cpu_percent"`
	MemoryPercent       float64  `json:"memory_percent"`
}
