package store

import (
	"context"
	"errors"
	"time"

	"mpvrpcc/internal/model"
)

// Job lifecycle states. A job moves pending -> running -> done|failed and
// never backwards.
const (
	JobPending = "pending"
	JobRunning = "running"
	JobDone    = "done"
	JobFailed  = "failed"
)

// Job is one asynchronous solve of a stored instance.
type Job struct {
	ID         string    `json:"id"`
	InstanceID string    `json:"instanceId"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// InstanceSummary is the listing view of a stored instance.
type InstanceSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	NumProducts int       `json:"numProducts"`
	NumTrucks   int       `json:"numTrucks"`
	NumStations int       `json:"numStations"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Store is the persistence interface used by the API server.
type Store interface {
	// Instances
	CreateInstance(ctx context.Context, inst *model.Instance) (string, error)
	GetInstance(ctx context.Context, id string) (*model.Instance, error)
	ListInstances(ctx context.Context, cursor string, limit int) ([]InstanceSummary, string, error)

	// Solve jobs
	CreateJob(ctx context.Context, instanceID string) (Job, error)
	GetJob(ctx context.Context, id string) (Job, error)
	SetJobRunning(ctx context.Context, id string) error
	SetJobDone(ctx context.Context, id string) error
	SetJobFailed(ctx context.Context, id string, reason string) error

	// Results
	SaveSolution(ctx context.Context, jobID string, sol model.Solution, m model.Metrics) error
	GetSolution(ctx context.Context, jobID string) (model.Solution, model.Metrics, error)
}

var ErrNotFound = errors.New("not found")
