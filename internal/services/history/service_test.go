package history

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"inspectsync/internal/api"
	"inspectsync/internal/database"
	"inspectsync/internal/inspection"
	"inspectsync/internal/kvstore"
	"inspectsync/internal/services/queue"
	"inspectsync/internal/services/syncworker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(database.Options{URL: "sqlite://" + filepath.Join(t.TempDir(), "history.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func TestService(t *testing.T) {
	ctx := context.Background()

	t.Run("Should record a partial pass", func(t *testing.T) {
		s := NewService(setupTestDB(t))
		start := time.Now().UTC()
		r := &syncworker.Report{ID: "run-1", Queue: "uploads", Trigger: syncworker.TriggerFlush, StartedAt: start}

		s.PassStarted(ctx, r)
		run, err := s.Get(ctx, "run-1")
		require.NoError(t, err)
		assert.Equal(t, StatusRunning, run.Status)
		assert.Nil(t, run.FinishedAt)

		r.Results = []syncworker.JobResult{
			{JobID: "a", EntityID: "1", Module: inspection.ModuleExterior, Outcome: syncworker.OutcomeDeferred, Attempts: 1, Error: "503"},
			{JobID: "b", EntityID: "1", Module: inspection.ModuleEngine, Outcome: syncworker.OutcomeUploaded, Attempts: 1},
			{JobID: "c", EntityID: "1", Module: inspection.ModuleDefects, Outcome: syncworker.OutcomeRejected, Attempts: 1, Error: "400 Bad Request"},
		}
		r.FinishedAt = start.Add(time.Second)
		s.PassFinished(ctx, r)

		run, err = s.Get(ctx, "run-1")
		require.NoError(t, err)
		assert.Equal(t, StatusPartial, run.Status)
		assert.Equal(t, 3, run.Attempted)
		assert.Equal(t, 1, run.Uploaded)
		assert.Equal(t, 1, run.Rejected)
		assert.Equal(t, 1, run.Deferred)
		require.NotNil(t, run.FinishedAt)

		var messages []string
		require.NoError(t, json.Unmarshal([]byte(run.Messages), &messages))
		assert.Equal(t, []string{"1 defects: 400 Bad Request"}, messages)

		var results []syncworker.JobResult
		require.NoError(t, json.Unmarshal(run.Results, &results))
		assert.Len(t, results, 3)
	})

	t.Run("Should mark canceled passes as errors", func(t *testing.T) {
		s := NewService(setupTestDB(t))
		r := &syncworker.Report{ID: "run-2", Queue: "uploads", Trigger: syncworker.TriggerFlush, StartedAt: time.Now().UTC()}

		s.PassStarted(ctx, r)
		r.Err = context.Canceled
		r.FinishedAt = time.Now().UTC()
		s.PassFinished(ctx, r)

		run, err := s.Get(ctx, "run-2")
		require.NoError(t, err)
		assert.Equal(t, StatusError, run.Status)
	})

	t.Run("Should list newest first and prune old runs", func(t *testing.T) {
		s := NewService(setupTestDB(t))
		base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
		for i, id := range []string{"old", "mid", "new"} {
			r := &syncworker.Report{ID: id, Queue: "uploads", Trigger: syncworker.TriggerFlush, StartedAt: base.Add(time.Duration(i) * time.Hour)}
			s.PassStarted(ctx, r)
			r.FinishedAt = r.StartedAt
			s.PassFinished(ctx, r)
		}

		runs, err := s.Recent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, "new", runs[0].ID)
		assert.Equal(t, StatusCompleted, runs[0].Status)

		n, err := s.Prune(ctx, base.Add(30*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, err = s.Get(ctx, "old")
		assert.Error(t, err)
	})

	t.Run("Should record passes driven by the worker", func(t *testing.T) {
		s := NewService(setupTestDB(t))
		q := queue.New(kvstore.NewMemoryStore(), queue.DefaultName)
		require.NoError(t, q.Enqueue(ctx, queue.NewJob("7", inspection.ModuleFrames, json.RawMessage(`{}`))))

		w := syncworker.New(q, uploaderFunc(func(context.Context, api.Submission) error { return nil }), nil,
			syncworker.Options{Sink: s})
		report, err := w.Flush(ctx)
		require.NoError(t, err)

		run, err := s.Get(ctx, report.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, run.Status)
		assert.Equal(t, 1, run.Uploaded)
		assert.Equal(t, syncworker.TriggerFlush, run.Trigger)
	})
}

type uploaderFunc func(ctx context.Context, sub api.Submission) error

func (f uploaderFunc) Submit(ctx context.Context, sub api.Submission) error {
	return f(ctx, sub)
}
