package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"inspectsync/internal/models"
	"inspectsync/internal/services/syncworker"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusError     = "error"
)

// Service persists drain passes as SyncRun rows
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

// NewService creates a history service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, log: zap.S().Named("history")}
}

// PassStarted inserts a running record
func (s *Service) PassStarted(ctx context.Context, r *syncworker.Report) {
	run := models.SyncRun{
		ID:        r.ID,
		Queue:     r.Queue,
		Trigger:   r.Trigger,
		Status:    StatusRunning,
		Messages:  "[]",
		StartedAt: r.StartedAt,
	}
	if err := s.db.WithContext(ctx).Create(&run).Error; err != nil {
		s.log.Warnw("failed to record drain pass", "run_id", r.ID, "error", err)
	}
}

// PassFinished stores counts, messages and per-job results
func (s *Service) PassFinished(ctx context.Context, r *syncworker.Report) {
	results, err := json.Marshal(r.Results)
	if err != nil {
		s.log.Warnw("failed to encode drain results", "run_id", r.ID, "error", err)
		results = []byte("[]")
	}

	messages := make([]string, 0)
	for _, f := range r.Failures() {
		messages = append(messages, fmt.Sprintf("%s %s: %s", f.EntityID, f.Module, f.Error))
	}
	if r.Err != nil {
		messages = append(messages, r.Err.Error())
	}
	encoded, _ := json.Marshal(messages)

	finished := r.FinishedAt
	updates := map[string]interface{}{
		"status":      statusOf(r),
		"attempted":   len(r.Results),
		"uploaded":    r.Count(syncworker.OutcomeUploaded),
		"rejected":    r.Count(syncworker.OutcomeRejected) + r.Count(syncworker.OutcomeExhausted),
		"deferred":    r.Count(syncworker.OutcomeDeferred) + r.Count(syncworker.OutcomeCanceled),
		"messages":    string(encoded),
		"results":     datatypes.JSON(results),
		"finished_at": &finished,
	}

	res := s.db.WithContext(ctx).Model(&models.SyncRun{}).Where("id = ?", r.ID).Updates(updates)
	if res.Error != nil {
		s.log.Warnw("failed to update drain pass", "run_id", r.ID, "error", res.Error)
	}
}

func statusOf(r *syncworker.Report) string {
	switch {
	case r.Err != nil:
		return StatusError
	case len(r.Results) > r.Count(syncworker.OutcomeUploaded):
		return StatusPartial
	default:
		return StatusCompleted
	}
}

// Recent returns the latest runs, newest first
func (s *Service) Recent(ctx context.Context, limit int) ([]models.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []models.SyncRun
	if err := s.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	return runs, nil
}

// Get returns one run by id
func (s *Service) Get(ctx context.Context, id string) (*models.SyncRun, error) {
	var run models.SyncRun
	if err := s.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("sync run not found: %w", err)
	}
	return &run, nil
}

// Prune deletes runs that started before cutoff
func (s *Service) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("started_at < ?", cutoff).Delete(&models.SyncRun{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to prune sync runs: %w", res.Error)
	}
	return res.RowsAffected, nil
}
