package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"inspectsync/internal/api"
	"inspectsync/internal/inspection"
	"inspectsync/internal/kvstore"

	"github.com/google/uuid"
)

// ErrDuplicateJob is returned when a job id is already queued
var ErrDuplicateJob = errors.New("job already queued")

// DefaultName is the queue shared by checklist modules
const DefaultName = "uploads"

// Job is one pending submission. Its payload is fixed at enqueue time.
type Job struct {
	ID          string               `json:"id"`
	EntityID    string               `json:"entity_id"`
	Module      inspection.ModuleKey `json:"module"`
	Payload     json.RawMessage      `json:"payload"`
	Attachments []api.Attachment     `json:"attachments,omitempty"`
	EnqueuedAt  time.Time            `json:"enqueued_at"`
	Attempts    int                  `json:"attempts"`
	LastError   string               `json:"last_error,omitempty"`
}

// NewJob creates a job with a fresh id. The payload is copied.
func NewJob(entityID string, module inspection.ModuleKey, payload json.RawMessage, attachments ...api.Attachment) Job {
	p := make(json.RawMessage, len(payload))
	copy(p, payload)

	return Job{
		ID:          uuid.New().String(),
		EntityID:    entityID,
		Module:      module,
		Payload:     p,
		Attachments: attachments,
		EnqueuedAt:  time.Now().UTC(),
	}
}

// Submission converts the job into a transport request
func (j Job) Submission() api.Submission {
	return api.Submission{
		EntityID:    j.EntityID,
		Module:      j.Module,
		Payload:     j.Payload,
		Attachments: j.Attachments,
	}
}

// Queue is a durable FIFO of jobs stored as one JSON list in the key/value
// store. Every change is a single atomic update of that list, so several
// processes may work on the same queue.
type Queue struct {
	kv   kvstore.Store
	name string
}

// New opens the queue called name
func New(kv kvstore.Store, name string) *Queue {
	return &Queue{kv: kv, name: name}
}

// Name returns the queue name
func (q *Queue) Name() string {
	return q.name
}

func (q *Queue) key() string {
	return "queue:" + q.name
}

// Enqueue appends job to the end of the queue
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}

	return q.update(ctx, func(jobs []Job) ([]Job, error) {
		for _, j := range jobs {
			if j.ID == job.ID {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateJob, job.ID)
			}
		}
		return append(jobs, job), nil
	})
}

// PeekAll returns a snapshot of every pending job in enqueue order
func (q *Queue) PeekAll(ctx context.Context) ([]Job, error) {
	value, ok, err := q.kv.GetString(ctx, q.key())
	if err != nil {
		return nil, fmt.Errorf("failed to read queue %s: %w", q.name, err)
	}
	return q.decode(value, ok)
}

// Len returns the number of pending jobs
func (q *Queue) Len(ctx context.Context) (int, error) {
	jobs, err := q.PeekAll(ctx)
	return len(jobs), err
}

// Dequeue removes the job with id. Absent ids are ignored.
func (q *Queue) Dequeue(ctx context.Context, id string) (bool, error) {
	removed := false
	err := q.update(ctx, func(jobs []Job) ([]Job, error) {
		for i, j := range jobs {
			if j.ID == id {
				removed = true
				return append(jobs[:i], jobs[i+1:]...), nil
			}
		}
		return jobs, nil
	})
	return removed, err
}

// RecordAttempt increments the attempt counter of a job and stores the last
// error message. It returns the updated job, or false if it is gone.
func (q *Queue) RecordAttempt(ctx context.Context, id string, lastErr error) (Job, bool, error) {
	var (
		updated Job
		found   bool
	)
	err := q.update(ctx, func(jobs []Job) ([]Job, error) {
		for i := range jobs {
			if jobs[i].ID != id {
				continue
			}
			jobs[i].Attempts++
			jobs[i].LastError = ""
			if lastErr != nil {
				jobs[i].LastError = lastErr.Error()
			}
			updated, found = jobs[i], true
			break
		}
		return jobs, nil
	})
	if err != nil {
		return Job{}, false, err
	}
	return updated, found, nil
}

// update rewrites the stored list in one atomic step. An empty list deletes the key.
func (q *Queue) update(ctx context.Context, fn func([]Job) ([]Job, error)) error {
	return q.kv.Update(ctx, q.key(), func(current string, exists bool) (string, bool, error) {
		jobs, err := q.decode(current, exists)
		if err != nil {
			return "", false, err
		}
		jobs, err = fn(jobs)
		if err != nil {
			return "", false, err
		}
		if len(jobs) == 0 {
			return "", false, nil
		}
		data, err := json.Marshal(jobs)
		if err != nil {
			return "", false, fmt.Errorf("failed to encode queue %s: %w", q.name, err)
		}
		return string(data), true, nil
	})
}

func (q *Queue) decode(value string, ok bool) ([]Job, error) {
	if !ok || value == "" {
		return []Job{}, nil
	}

	var jobs []Job
	if err := json.Unmarshal([]byte(value), &jobs); err != nil {
		return nil, fmt.Errorf("failed to decode queue %s: %w", q.name, err)
	}
	return jobs, nil
}
