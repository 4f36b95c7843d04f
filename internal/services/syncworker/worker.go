package syncworker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"inspectsync/internal/api"
	"inspectsync/internal/services/drafts"
	"inspectsync/internal/services/queue"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Worker drains one upload queue. A pass snapshots the queue, then uploads
// each entity's jobs strictly in order while different entities proceed in
// parallel. A job leaves the queue only after a confirmed success or a
// permanent failure.
type Worker struct {
	queue    *queue.Queue
	uploader Uploader
	drafts   DraftStatus
	opts     Options
	log      *zap.SugaredLogger

	mu    sync.Mutex
	state State
}

// New creates a worker for q. drafts may be nil.
func New(q *queue.Queue, uploader Uploader, drafts DraftStatus, opts Options) *Worker {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Worker{
		queue:    q,
		uploader: uploader,
		drafts:   drafts,
		opts:     opts,
		log:      zap.S().Named("syncworker").With("queue", q.Name()),
		state:    StateIdle,
	}
}

// State returns the current worker state
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Worker) begin() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateDraining {
		return false
	}
	w.state = StateDraining
	return true
}

func (w *Worker) end() {
	w.mu.Lock()
	w.state = StateIdle
	w.mu.Unlock()
}

// Flush drains the queue on operator request
func (w *Worker) Flush(ctx context.Context) (*Report, error) {
	return w.Drain(ctx, TriggerFlush)
}

// Drain runs one pass over the jobs queued when it starts. Every job is
// attempted at most once. A canceled context stops the pass and leaves
// unfinished jobs queued.
func (w *Worker) Drain(ctx context.Context, trigger string) (*Report, error) {
	if !w.begin() {
		return nil, ErrDrainInProgress
	}
	defer w.end()

	jobs, err := w.queue.PeekAll(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{
		ID:        uuid.New().String(),
		Queue:     w.queue.Name(),
		Trigger:   trigger,
		StartedAt: time.Now().UTC(),
	}
	if w.opts.Sink != nil {
		w.opts.Sink.PassStarted(ctx, report)
	}
	w.log.Infow("drain pass started", "trigger", trigger, "jobs", len(jobs))

	results := make([]JobResult, len(jobs))
	positions := make(map[string]int, len(jobs))
	for i, job := range jobs {
		positions[job.ID] = i
	}

	byEntity := lo.GroupBy(jobs, func(j queue.Job) string { return j.EntityID })
	entities := lo.Uniq(lo.Map(jobs, func(j queue.Job, _ int) string { return j.EntityID }))

	var g errgroup.Group
	g.SetLimit(w.opts.Concurrency)
	for _, entity := range entities {
		group := byEntity[entity]
		g.Go(func() error {
			for _, job := range group {
				if err := ctx.Err(); err != nil {
					return err
				}
				res, err := w.process(ctx, job)
				results[positions[job.ID]] = res
				if err != nil {
					return err
				}
			}
			return nil
		})
	}
	report.Err = g.Wait()

	report.Results = lo.Filter(results, func(r JobResult, _ int) bool { return r.JobID != "" })
	report.FinishedAt = time.Now().UTC()

	remaining, lenErr := w.queue.Len(context.WithoutCancel(ctx))
	if lenErr != nil {
		w.log.Warnw("failed to read queue depth", "error", lenErr)
	}
	observePass(w.queue.Name(), trigger, remaining)

	w.log.Infow("drain pass finished",
		"trigger", trigger,
		"uploaded", report.Count(OutcomeUploaded),
		"deferred", report.Count(OutcomeDeferred),
		"rejected", report.Count(OutcomeRejected),
		"exhausted", report.Count(OutcomeExhausted),
		"remaining", remaining)

	if w.opts.Sink != nil {
		w.opts.Sink.PassFinished(context.WithoutCancel(ctx), report)
	}
	return report, report.Err
}

// process attempts one job and applies the outcome to the queue.
// A non-nil error aborts the rest of the entity's jobs.
func (w *Worker) process(ctx context.Context, job queue.Job) (JobResult, error) {
	res := JobResult{
		JobID:    job.ID,
		EntityID: job.EntityID,
		Module:   job.Module,
		Attempts: job.Attempts,
	}

	uploadErr := w.uploader.Submit(ctx, job.Submission())
	if uploadErr != nil && (api.IsCanceled(uploadErr) || ctx.Err() != nil) {
		res.Outcome = OutcomeCanceled
		res.Error = uploadErr.Error()
		observeJob(w.queue.Name(), res.Outcome)
		return res, ctx.Err()
	}

	updated, found, err := w.queue.RecordAttempt(ctx, job.ID, uploadErr)
	if err != nil {
		return res, fmt.Errorf("failed to record attempt for job %s: %w", job.ID, err)
	}
	if found {
		res.Attempts = updated.Attempts
	} else {
		res.Attempts++
	}
	if uploadErr != nil {
		res.Error = uploadErr.Error()
	}

	logger := w.log.With("job_id", job.ID, "entity_id", job.EntityID, "module", job.Module, "attempts", res.Attempts)

	switch {
	case uploadErr == nil:
		res.Outcome = OutcomeUploaded
		if _, err := w.queue.Dequeue(ctx, job.ID); err != nil {
			return res, fmt.Errorf("failed to dequeue job %s: %w", job.ID, err)
		}
		w.markSynced(ctx, job)
		logger.Debug("job uploaded")

	case api.IsPermanent(uploadErr):
		res.Outcome = OutcomeRejected
		if _, err := w.queue.Dequeue(ctx, job.ID); err != nil {
			return res, fmt.Errorf("failed to dequeue job %s: %w", job.ID, err)
		}
		w.markStatus(ctx, job, drafts.StatusDraft)
		logger.Errorw("job rejected by server, dropped", "error", uploadErr)

	case w.opts.MaxAttempts > 0 && res.Attempts >= w.opts.MaxAttempts:
		res.Outcome = OutcomeExhausted
		res.Error = fmt.Sprintf("attempts exhausted: %s", res.Error)
		if _, err := w.queue.Dequeue(ctx, job.ID); err != nil {
			return res, fmt.Errorf("failed to dequeue job %s: %w", job.ID, err)
		}
		w.markStatus(ctx, job, drafts.StatusDraft)
		logger.Errorw("job dropped after max attempts", "error", uploadErr)

	default:
		res.Outcome = OutcomeDeferred
		logger.Warnw("upload failed, job stays queued", "error", uploadErr)
	}

	observeJob(w.queue.Name(), res.Outcome)
	return res, nil
}

// Submit tries to upload job right away. When offline, on a transient
// failure, or while older jobs of the same entity are still queued, the job
// is queued instead and OutcomeQueued is returned. A permanent failure
// returns an error wrapping ErrRejected and nothing is queued.
func (w *Worker) Submit(ctx context.Context, job queue.Job) (Outcome, error) {
	if job.ID == "" {
		job = queue.NewJob(job.EntityID, job.Module, job.Payload, job.Attachments...)
	}

	online := w.opts.Reachability == nil || w.opts.Reachability.Online()
	if online {
		pending, err := w.hasPending(ctx, job.EntityID)
		if err != nil {
			return "", err
		}
		online = !pending
	}

	if online {
		err := w.uploader.Submit(ctx, job.Submission())
		switch {
		case err == nil:
			w.markSynced(ctx, job)
			observeJob(w.queue.Name(), OutcomeUploaded)
			return OutcomeUploaded, nil
		case api.IsPermanent(err):
			observeJob(w.queue.Name(), OutcomeRejected)
			return OutcomeRejected, fmt.Errorf("%w: %s of %s: %w", ErrRejected, job.Module, job.EntityID, err)
		case api.IsCanceled(err) || ctx.Err() != nil:
			return "", err
		}
		job.Attempts = 1
		job.LastError = err.Error()
		w.log.Warnw("upload failed, queueing", "entity_id", job.EntityID, "module", job.Module, "error", err)
	}

	if err := w.queue.Enqueue(ctx, job); err != nil {
		return "", err
	}
	w.markStatus(ctx, job, drafts.StatusPendingSync)
	observeJob(w.queue.Name(), OutcomeQueued)
	return OutcomeQueued, nil
}

func (w *Worker) hasPending(ctx context.Context, entityID string) (bool, error) {
	jobs, err := w.queue.PeekAll(ctx)
	if err != nil {
		return false, err
	}
	return lo.ContainsBy(jobs, func(j queue.Job) bool { return j.EntityID == entityID }), nil
}

// Run drains whenever the reachability signal turns true, and once at start
// if already online. It returns when ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	if w.opts.Reachability == nil {
		return errors.New("worker has no reachability signal")
	}

	updates, unsubscribe := w.opts.Reachability.Subscribe()
	defer unsubscribe()

	if w.opts.Reachability.Online() {
		w.triggerDrain(ctx, TriggerStartup)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case online, ok := <-updates:
			if !ok {
				return nil
			}
			if online {
				w.triggerDrain(ctx, TriggerReachability)
			}
		}
	}
}

func (w *Worker) triggerDrain(ctx context.Context, trigger string) {
	report, err := w.Drain(ctx, trigger)
	switch {
	case errors.Is(err, ErrDrainInProgress):
		w.log.Debug("drain skipped, pass already running")
	case err != nil && ctx.Err() == nil:
		w.log.Errorw("drain pass failed", "trigger", trigger, "error", err)
	case report != nil:
		for _, f := range report.Failures() {
			w.log.Errorw("submission failed", "entity_id", f.EntityID, "module", f.Module, "error", f.Error)
		}
	}
}

func (w *Worker) markSynced(ctx context.Context, job queue.Job) {
	if w.drafts == nil {
		return
	}
	if w.opts.ClearDraftOnSync {
		if err := w.drafts.Clear(ctx, job.EntityID, job.Module); err != nil {
			w.log.Warnw("failed to clear synced draft", "entity_id", job.EntityID, "module", job.Module, "error", err)
		}
		return
	}
	w.markStatus(ctx, job, drafts.StatusSynced)
}

func (w *Worker) markStatus(ctx context.Context, job queue.Job, status drafts.Status) {
	if w.drafts == nil {
		return
	}
	if err := w.drafts.MarkStatus(ctx, job.EntityID, job.Module, status); err != nil {
		w.log.Warnw("failed to update draft status", "entity_id", job.EntityID, "module", job.Module, "status", status, "error", err)
	}
}
