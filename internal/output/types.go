package output

import "time"

// CycleRecord is the outcome of one task report cycle.
type CycleRecord struct {
	RunID     string        `json:"run_id"`
	Trigger   string        `json:"trigger"`
	Room      string        `json:"room"`
	Project   string        `json:"project"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Reported  []string      `json:"reported,omitempty"`
	Skipped   []string      `json:"skipped,omitempty"`
	Posted    bool          `json:"posted"`
	Message   string        `json:"message,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// StreamEvent wraps a record in stream mode.
type StreamEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}
