package domain

import "time"

// JobStatus enumerates job lifecycle states. Transitions only move forward:
// queued -> processing -> completed | failed.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// RetentionWindow bounds how long a job record and its blobs are kept.
const RetentionWindow = 7 * 24 * time.Hour

// Job is the central entity tracked by the pipeline. The store record it maps
// to is the sole source of truth for status.
type Job struct {
	ID             string
	Status         JobStatus
	Progress       int
	SourceLocation string
	ResultLocation string
	ResultPayload  *ResultPayload
	Error          *JobError
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ExpiresAt      time.Time
}

// JobError is the structured failure reason recorded on a failed job.
type JobError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
