package merge

import (
	"context"
	"fmt"

	"inspectsync/internal/inspection"

	"go.uber.org/zap"
)

// envelopes are wrapper keys some endpoints put around the inspection document
var envelopes = []string{"data", "result", "inspection"}

// Fetcher returns the last known server document of an entity
type Fetcher interface {
	FetchInspection(ctx context.Context, entityID string) (map[string]any, error)
}

// Snapshot is the server state of one entity split by module
type Snapshot struct {
	EntityID  string
	Document  map[string]any
	Sections  map[inspection.ModuleKey]map[string]any
	Completed map[inspection.ModuleKey]bool
}

// NewSnapshot unwraps a server document and reads every module's section and
// completion flag. It never fails; unreadable parts are treated as absent.
func NewSnapshot(entityID string, doc map[string]any) *Snapshot {
	doc = unwrap(doc)

	s := &Snapshot{
		EntityID:  entityID,
		Document:  doc,
		Sections:  make(map[inspection.ModuleKey]map[string]any),
		Completed: make(map[inspection.ModuleKey]bool),
	}
	for _, module := range inspection.AllModules {
		if section, ok := Section(module, doc); ok {
			s.Sections[module] = section
		}
		s.Completed[module] = IsCompleted(module, doc)
	}
	return s
}

func unwrap(doc map[string]any) map[string]any {
	for depth := 0; depth < 3 && doc != nil; depth++ {
		unwrapped := false
		for _, key := range envelopes {
			if inner, ok := doc[key].(map[string]any); ok {
				doc = inner
				unwrapped = true
				break
			}
		}
		if !unwrapped {
			break
		}
	}
	return doc
}

// Merge folds the server state of module into a local form
func (s *Snapshot) Merge(module inspection.ModuleKey, local inspection.Form) inspection.Form {
	if s == nil {
		return MergeServerStateIntoForm(module, local, nil)
	}
	return MergeServerStateIntoForm(module, local, s.Document)
}

// Form returns the server's view of a module as a form, empty when absent
func (s *Snapshot) Form(module inspection.ModuleKey) inspection.Form {
	return s.Merge(module, nil)
}

// IsCompleted reports the server completion flag of a module
func (s *Snapshot) IsCompleted(module inspection.ModuleKey) bool {
	if s == nil {
		return false
	}
	return s.Completed[module]
}

// HasModule reports whether the server holds any state for the module
func (s *Snapshot) HasModule(module inspection.ModuleKey) bool {
	if s == nil {
		return false
	}
	_, ok := s.Sections[module]
	return ok || s.Completed[module]
}

// Reader pulls server state for hydration
type Reader struct {
	fetcher Fetcher
	log     *zap.SugaredLogger
}

// NewReader creates a reader
func NewReader(fetcher Fetcher) *Reader {
	return &Reader{fetcher: fetcher, log: zap.S().Named("merge")}
}

// Snapshot fetches and parses the server state of an entity
func (r *Reader) Snapshot(ctx context.Context, entityID string) (*Snapshot, error) {
	doc, err := r.fetcher.FetchInspection(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to read server state of %s: %w", entityID, err)
	}
	return NewSnapshot(entityID, doc), nil
}

// Hydrate merges the server state of one module into local. On a read failure
// the local form is returned unchanged along with the error.
func (r *Reader) Hydrate(ctx context.Context, entityID string, module inspection.ModuleKey, local inspection.Form) (inspection.Form, error) {
	snap, err := r.Snapshot(ctx, entityID)
	if err != nil {
		r.log.Warnw("hydration skipped", "entity_id", entityID, "module", module, "error", err)
		return local.Clone(), err
	}
	return snap.Merge(module, local), nil
}
