package stores

import "time"

// RunRecord is a persisted bring-up run.
type RunRecord struct {
	ID              string     `json:"id"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	FailedComponent string     `json:"failed_component,omitempty"`
	Total           int        `json:"total"`
	Installed       int        `json:"installed"`
	Skipped         int        `json:"skipped"`
	Failed          int        `json:"failed"`
	Pending         int        `json:"pending"`
}

// RunComponentRecord is the persisted outcome of one component within a run.
type RunComponentRecord struct {
	RunID       string        `json:"run_id"`
	Position    int           `json:"position"`
	ComponentID string        `json:"component_id"`
	Status      string        `json:"status"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
}

// EventLevel is the severity of an append-only log event.
type EventLevel string

const (
	EventLevelDebug   EventLevel = "debug"
	EventLevelInfo    EventLevel = "info"
	EventLevelWarning EventLevel = "warning"
	EventLevelError   EventLevel = "error"
)

// Event is an append-only log entry attached to a run or component.
type Event struct {
	ID          int64      `json:"id"`
	RunID       string     `json:"run_id,omitempty"`
	ComponentID string     `json:"component_id,omitempty"`
	Level       EventLevel `json:"level"`
	Message     string     `json:"message"`
	Timestamp   time.Time  `json:"timestamp"`
}
