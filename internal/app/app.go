package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"inspectsync/internal/api"
	"inspectsync/internal/auth"
	"inspectsync/internal/config"
	"inspectsync/internal/database"
	"inspectsync/internal/inspection"
	"inspectsync/internal/kvstore"
	"inspectsync/internal/models"
	"inspectsync/internal/services/drafts"
	"inspectsync/internal/services/history"
	"inspectsync/internal/services/merge"
	"inspectsync/internal/services/progress"
	"inspectsync/internal/services/queue"
	"inspectsync/internal/services/reachability"
	"inspectsync/internal/services/syncworker"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// App wires the sync engine together
type App struct {
	cfg *config.Config
	db  *gorm.DB
	log *zap.SugaredLogger

	client    *api.Client
	drafts    *drafts.Repository
	identity  *drafts.VehicleIdentityStore
	uploads   *queue.Queue
	monitor   *reachability.Monitor
	poller    *reachability.Poller
	history   *history.Service
	reader    *merge.Reader
	checklist *progress.Checklist

	uploadWorker   *syncworker.Worker
	identityWorker *syncworker.Worker
}

// New opens the durable store and builds every service. Nothing touches the
// network until Run, Check or an explicit upload.
func New(cfg *config.Config) (*App, error) {
	log := zap.S().Named("app")
	log.Info("application starting up")

	db, err := database.Open(database.Options{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return newApp(cfg, db, kvstore.NewGormStore(db),
		api.NewClient(cfg.API.BaseURL, auth.KeyringTokenSource{Override: cfg.API.Token}, api.Options{
			Timeout:    cfg.API.Timeout,
			RetryCount: cfg.API.RetryCount,
		})), nil
}

func newApp(cfg *config.Config, db *gorm.DB, kv kvstore.Store, client *api.Client) *App {
	a := &App{
		cfg:      cfg,
		db:       db,
		log:      zap.S().Named("app"),
		client:   client,
		drafts:   drafts.NewRepository(kv),
		identity: drafts.NewVehicleIdentityStore(kv),
		uploads:  queue.New(kv, queue.DefaultName),
		monitor:  reachability.NewMonitor(false),
		history:  history.NewService(db),
		reader:   merge.NewReader(client),
	}

	a.poller = reachability.NewPoller(client, a.monitor, cfg.Sync.PollSchedule, cfg.API.Timeout)
	a.checklist = progress.NewChecklist(a.drafts, a.reader, a.uploads, a.identity.Queue())

	opts := syncworker.Options{
		MaxAttempts:      cfg.Sync.MaxAttempts,
		Concurrency:      cfg.Sync.DrainConcurrency,
		ClearDraftOnSync: cfg.Sync.ClearDraftOnSync,
		Sink:             a.history,
		Reachability:     a.monitor,
	}
	a.uploadWorker = syncworker.New(a.uploads, client, a.drafts, opts)
	a.identityWorker = syncworker.New(a.identity.Queue(), client, a.identity.Repository(), opts)

	a.log.Info("services initialized")
	return a
}

// Run checks reachability on schedule and drains both queues whenever the
// network comes back. When a metrics address is configured the counters are
// served on it. It blocks until ctx is done.
func (a *App) Run(ctx context.Context) error {
	var metrics *MetricServer
	if addr := a.cfg.Metrics.Address; addr != "" {
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to listen for metrics on %s: %w", addr, err)
		}
		metrics = NewMetricServer(addr, listener)
	}

	if err := a.poller.Start(ctx); err != nil {
		if metrics != nil {
			_ = metrics.listener.Close()
		}
		return err
	}
	defer a.poller.Stop()

	g, ctx := errgroup.WithContext(ctx)
	if metrics != nil {
		g.Go(func() error { return metrics.Run(ctx) })
	}
	g.Go(func() error { return a.identityWorker.Run(ctx) })
	g.Go(func() error { return a.uploadWorker.Run(ctx) })

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close releases the database
func (a *App) Close() error {
	a.log.Info("application shutting down")
	if a.poller != nil {
		a.poller.Stop()
	}
	if err := database.Close(a.db); err != nil {
		return fmt.Errorf("error closing database: %w", err)
	}
	a.log.Info("shutdown complete")
	return nil
}

// Check asks the backend once and returns the new reachability
func (a *App) Check(ctx context.Context) bool {
	return a.poller.Check(ctx)
}

// Online returns the last known reachability
func (a *App) Online() bool {
	return a.monitor.Online()
}

func (a *App) store(module inspection.ModuleKey) drafts.Store {
	if module == inspection.ModuleVehicleIdentity {
		return a.identity
	}
	return a.drafts
}

func (a *App) worker(module inspection.ModuleKey) *syncworker.Worker {
	if module == inspection.ModuleVehicleIdentity {
		return a.identityWorker
	}
	return a.uploadWorker
}

func (a *App) queues() []*queue.Queue {
	return []*queue.Queue{a.identity.Queue(), a.uploads}
}

// ====================================================================================
// Draft operations
// ====================================================================================

// SaveDraft stores the form of one module
func (a *App) SaveDraft(ctx context.Context, entityID string, module inspection.ModuleKey, payload json.RawMessage) error {
	return a.store(module).Save(ctx, entityID, module, payload)
}

// LoadDraft returns the stored draft of one module
func (a *App) LoadDraft(ctx context.Context, entityID string, module inspection.ModuleKey) (*drafts.Draft, bool, error) {
	return a.store(module).Load(ctx, entityID, module)
}

// ClearDraft removes the draft of one module
func (a *App) ClearDraft(ctx context.Context, entityID string, module inspection.ModuleKey) error {
	return a.store(module).Clear(ctx, entityID, module)
}

// ListDrafts returns every stored draft reference
func (a *App) ListDrafts(ctx context.Context) ([]drafts.Ref, error) {
	return a.drafts.List(ctx)
}

// NewAutosaver returns a debounced saver for one module form
func (a *App) NewAutosaver(entityID string, module inspection.ModuleKey) *drafts.Autosaver {
	return drafts.NewAutosaver(a.store(module), entityID, module, a.cfg.Sync.AutosaveDebounce)
}

// Hydrate fills the empty fields of the local draft from the server. The
// result is returned, not saved. A read failure returns the local form.
func (a *App) Hydrate(ctx context.Context, entityID string, module inspection.ModuleKey) (inspection.Form, error) {
	local := inspection.Form{}
	d, ok, err := a.LoadDraft(ctx, entityID, module)
	if err != nil {
		a.log.Warnw("failed to load draft for hydration", "entity_id", entityID, "module", module, "error", err)
	} else if ok {
		if form, err := d.Form(); err == nil {
			local = form
		}
	}
	return a.reader.Hydrate(ctx, entityID, module, local)
}

// ====================================================================================
// Upload operations
// ====================================================================================

// Submit snapshots the current draft of a module and uploads it, or queues
// it when the upload cannot happen now.
func (a *App) Submit(ctx context.Context, entityID string, module inspection.ModuleKey, attachments ...api.Attachment) (syncworker.Outcome, error) {
	job, err := drafts.NewJob(ctx, a.drafts, entityID, module, attachments...)
	if err != nil {
		return "", err
	}
	return a.worker(module).Submit(ctx, job)
}

// PendingJobs lists every queued job, vehicle identity first
func (a *App) PendingJobs(ctx context.Context) ([]queue.Job, error) {
	var out []queue.Job
	for _, q := range a.queues() {
		jobs, err := q.PeekAll(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, jobs...)
	}
	return out, nil
}

// DropJob removes a queued job from whichever queue holds it
func (a *App) DropJob(ctx context.Context, id string) (bool, error) {
	for _, q := range a.queues() {
		removed, err := q.Dequeue(ctx, id)
		if err != nil || removed {
			return removed, err
		}
	}
	return false, nil
}

// Flush drains both queues now, vehicle identity first
func (a *App) Flush(ctx context.Context) ([]*syncworker.Report, error) {
	var reports []*syncworker.Report
	for _, w := range []*syncworker.Worker{a.identityWorker, a.uploadWorker} {
		report, err := w.Flush(ctx)
		if report != nil {
			reports = append(reports, report)
		}
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}

// RecentRuns returns the latest drain passes
func (a *App) RecentRuns(ctx context.Context, limit int) ([]models.SyncRun, error) {
	return a.history.Recent(ctx, limit)
}

// PruneRuns deletes pass records that started before cutoff
func (a *App) PruneRuns(ctx context.Context, cutoff time.Time) (int64, error) {
	return a.history.Prune(ctx, cutoff)
}

// ====================================================================================
// Progress
// ====================================================================================

// Checklist computes the progress of every module of an entity
func (a *App) Checklist(ctx context.Context, entityID string) *progress.Report {
	return a.checklist.Build(ctx, entityID)
}
