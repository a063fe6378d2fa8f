// Package jobs defines the asynchronous work contract between the
// notification endpoint and the import worker.
package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeImportAlert represents an alert email import job.
	JobTypeImportAlert JobType = "import_alert"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// ImportAlertJob represents one alert email to run through the import
// pipeline. MessageID keys the raw message in the mail bucket.
type ImportAlertJob struct {
	JobID     string `json:"job_id"`
	MessageID string `json:"message_id"`

	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`

	// TransactionID is set on success with the created ledger record id.
	TransactionID string `json:"transaction_id,omitempty"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

func (j *ImportAlertJob) GetID() string        { return j.JobID }
func (j *ImportAlertJob) GetType() JobType     { return JobTypeImportAlert }
func (j *ImportAlertJob) GetStatus() JobStatus { return j.Status }

// Publisher defines the interface for publishing jobs to a queue.
// The abstraction allows swapping the in-memory queue for Cloud Tasks
// or Pub/Sub without touching the callers.
type Publisher interface {
	// PublishImportAlert publishes an alert import job.
	PublishImportAlert(ctx context.Context, job *ImportAlertJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler is a function that processes a job.
// It should return an error if the job failed and should be retried.
type JobHandler func(ctx context.Context, job Job) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	SaveJob(ctx context.Context, job *ImportAlertJob) error
	GetJob(ctx context.Context, jobID string) (*ImportAlertJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*ImportAlertJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// MessageID filters jobs by mail message ID.
	MessageID string

	// Status filters jobs by status.
	Status JobStatus

	Limit  int
	Offset int
}
