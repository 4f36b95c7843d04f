package syncworker

import (
	"context"
	"errors"
	"time"

	"inspectsync/internal/api"
	"inspectsync/internal/inspection"
	"inspectsync/internal/services/drafts"
)

var (
	// ErrRejected marks a submission the server refused permanently.
	// The job is not retried and the operator has to fix the form.
	ErrRejected = errors.New("submission rejected")
	// ErrDrainInProgress is returned when a drain pass is already running
	ErrDrainInProgress = errors.New("drain already in progress")
)

// State of the worker
type State string

const (
	StateIdle     State = "idle"
	StateDraining State = "draining"
)

// Trigger names what started a drain pass
const (
	TriggerReachability = "reachability"
	TriggerFlush        = "flush"
	TriggerStartup      = "startup"
)

// Outcome of one job in a drain pass
type Outcome string

const (
	OutcomeUploaded  Outcome = "uploaded"
	OutcomeDeferred  Outcome = "deferred"  // transient failure, still queued
	OutcomeRejected  Outcome = "rejected"  // permanent failure, dropped
	OutcomeExhausted Outcome = "exhausted" // attempts exhausted, dropped
	OutcomeCanceled  Outcome = "canceled"  // pass aborted, still queued
	OutcomeQueued    Outcome = "queued"    // Submit fell back to the queue
)

// Dropped reports whether the job left the queue without reaching the server
func (o Outcome) Dropped() bool {
	return o == OutcomeRejected || o == OutcomeExhausted
}

// JobResult is the outcome of one job
type JobResult struct {
	JobID    string               `json:"job_id"`
	EntityID string               `json:"entity_id"`
	Module   inspection.ModuleKey `json:"module"`
	Outcome  Outcome              `json:"outcome"`
	Attempts int                  `json:"attempts"`
	Error    string               `json:"error,omitempty"`
}

// Report describes one drain pass
type Report struct {
	ID         string      `json:"id"`
	Queue      string      `json:"queue"`
	Trigger    string      `json:"trigger"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Results    []JobResult `json:"results"`
	Err        error       `json:"-"`
}

// Count returns how many jobs ended with outcome o
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Failures returns the jobs that were dropped and must be shown to the operator
func (r *Report) Failures() []JobResult {
	var out []JobResult
	for _, res := range r.Results {
		if res.Outcome.Dropped() {
			out = append(out, res)
		}
	}
	return out
}

// Uploader sends one submission to the backend
type Uploader interface {
	Submit(ctx context.Context, sub api.Submission) error
}

// DraftStatus lets the worker reflect upload progress back onto drafts
type DraftStatus interface {
	MarkStatus(ctx context.Context, entityID string, module inspection.ModuleKey, status drafts.Status) error
	Clear(ctx context.Context, entityID string, module inspection.ModuleKey) error
}

// EventSink observes drain passes
type EventSink interface {
	PassStarted(ctx context.Context, r *Report)
	PassFinished(ctx context.Context, r *Report)
}

// Reachability is the network usable signal
type Reachability interface {
	Online() bool
	Subscribe() (<-chan bool, func())
}

// Options tunes a worker
type Options struct {
	// MaxAttempts drops a job after that many failed attempts. 0 retries forever.
	MaxAttempts int
	// Concurrency is the number of entities drained in parallel
	Concurrency      int
	ClearDraftOnSync bool
	Sink             EventSink
	Reachability     Reachability
}
