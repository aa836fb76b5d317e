package model

import "time"

// JobStatus is the lifecycle state of a background extraction.
type JobStatus string

// Job statuses.
const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// IsTerminal reports whether the job will not change any more.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

// JobState is the progress record of a background extraction.
// It lives in a job store, never inside the crawler or the asset pipeline.
type JobState struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Status      JobStatus `json:"status"`
	Percentage  int       `json:"percentage"`
	CurrentStep string    `json:"current_step,omitempty"`
	Details     []string  `json:"details,omitempty"`
	Error       string    `json:"error,omitempty"`
	OutputDir   string    `json:"output_dir,omitempty"`
	Summary     *Summary  `json:"summary,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewJobState creates a queued job.
func NewJobState(id, target string) JobState {
	now := time.Now().UTC()
	return JobState{
		ID:        id,
		URL:       target,
		Status:    JobQueued,
		Details:   make([]string, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
