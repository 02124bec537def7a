package models

import "time"

// LaunchStatus represents the recorded state of a trainer launch
type LaunchStatus string

const (
	LaunchStatusRunning   LaunchStatus = "running"
	LaunchStatusCompleted LaunchStatus = "completed"
	LaunchStatusFailed    LaunchStatus = "failed"
	LaunchStatusKilled    LaunchStatus = "killed"
)

// LaunchRecord is one entry in the launch history
type LaunchRecord struct {
	ID           string       `json:"id"`
	RunID        string       `json:"run_id"`
	Engine       string       `json:"engine"`
	Program      string       `json:"program"`
	Args         []string     `json:"args"`
	RedisAddress string       `json:"redis_address,omitempty"`
	Tune         bool         `json:"tune"`
	NumProcesses int          `json:"num_processes"`
	Status       LaunchStatus `json:"status"`
	ExitCode     int          `json:"exit_code"`
	ExitReason   string       `json:"exit_reason,omitempty"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   *time.Time   `json:"finished_at,omitempty"`
}

// Duration returns how long the launch ran, or time-so-far when still running
func (r *LaunchRecord) Duration() time.Duration {
	if r.FinishedAt != nil {
		return r.FinishedAt.Sub(r.StartedAt)
	}
	return time.Since(r.StartedAt)
}
