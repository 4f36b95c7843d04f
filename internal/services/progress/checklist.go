package progress

import (
	"context"

	"inspectsync/internal/inspection"
	"inspectsync/internal/services/merge"
	"inspectsync/internal/services/queue"

	"go.uber.org/zap"
)

// DraftSource loads local drafts
type DraftSource interface {
	LoadForm(ctx context.Context, entityID string, module inspection.ModuleKey) (inspection.Form, bool, error)
}

// JobSource lists queued uploads
type JobSource interface {
	PeekAll(ctx context.Context) ([]queue.Job, error)
}

// RemoteSource reads server state
type RemoteSource interface {
	Snapshot(ctx context.Context, entityID string) (*merge.Snapshot, error)
}

// Report is the checklist of one entity
type Report struct {
	EntityID string           `json:"entity_id"`
	Identity ModuleProgress   `json:"identity"`
	Modules  []ModuleProgress `json:"modules"`
	Ready    bool             `json:"ready"`
	// RemoteUnavailable is set when server state could not be read and
	// progress reflects local state only
	RemoteUnavailable bool `json:"remote_unavailable,omitempty"`
}

// Checklist gathers the three progress inputs of an entity and computes its
// checklist. It is rebuilt on every call.
type Checklist struct {
	drafts DraftSource
	jobs   []JobSource
	remote RemoteSource
	log    *zap.SugaredLogger
}

// NewChecklist creates a checklist service. remote may be nil for local-only use.
func NewChecklist(drafts DraftSource, remote RemoteSource, jobs ...JobSource) *Checklist {
	return &Checklist{
		drafts: drafts,
		jobs:   jobs,
		remote: remote,
		log:    zap.S().Named("progress"),
	}
}

// Build computes the checklist of entityID. Storage and network failures
// degrade to less information, never to an error.
func (c *Checklist) Build(ctx context.Context, entityID string) *Report {
	report := &Report{EntityID: entityID}

	var snap *merge.Snapshot
	if c.remote != nil {
		var err error
		snap, err = c.remote.Snapshot(ctx, entityID)
		if err != nil {
			c.log.Warnw("server state unavailable, using local state", "entity_id", entityID, "error", err)
			report.RemoteUnavailable = true
		}
	}

	queued := c.queued(ctx, entityID)

	report.Identity = c.module(ctx, entityID, inspection.ModuleVehicleIdentity, snap, queued)
	for _, module := range inspection.ChecklistModules {
		report.Modules = append(report.Modules, c.module(ctx, entityID, module, snap, queued))
	}
	report.Ready = ComputeOverallReadiness(report.Modules)
	return report
}

func (c *Checklist) module(ctx context.Context, entityID string, module inspection.ModuleKey, snap *merge.Snapshot, queued map[inspection.ModuleKey]inspection.Form) ModuleProgress {
	local, ok, err := c.drafts.LoadForm(ctx, entityID, module)
	if err != nil {
		c.log.Warnw("failed to load draft", "entity_id", entityID, "module", module, "error", err)
	}
	if !ok {
		local = nil
	}

	pendingForm, pending := queued[module]
	if local == nil && pending {
		local = pendingForm
	}

	remote := RemoteSignal{Completed: snap.IsCompleted(module)}
	if snap.HasModule(module) {
		remote.Form = snap.Form(module)
	}

	// A submitted flag-only module counts as done while its upload waits
	if _, counted := Rules[module]; !counted && pending {
		remote.Completed = true
	}

	p := ComputeModuleProgress(module, local, remote)
	p.Pending = pending
	return p
}

// queued returns the newest queued payload per module of the entity
func (c *Checklist) queued(ctx context.Context, entityID string) map[inspection.ModuleKey]inspection.Form {
	out := make(map[inspection.ModuleKey]inspection.Form)
	for _, src := range c.jobs {
		jobs, err := src.PeekAll(ctx)
		if err != nil {
			c.log.Warnw("failed to read upload queue", "error", err)
			continue
		}
		for _, job := range jobs {
			if job.EntityID != entityID {
				continue
			}
			form, err := inspection.DecodeForm(job.Payload)
			if err != nil {
				form = inspection.Form{}
			}
			out[job.Module] = form
		}
	}
	return out
}
