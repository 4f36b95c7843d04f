package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"inspectsync/internal/inspection"
	"inspectsync/internal/kvstore"
)

// Status is the sync state of a draft
type Status string

const (
	StatusDraft       Status = "draft"        // not yet attempted upload
	StatusPendingSync Status = "pending-sync" // queued for upload
	StatusSynced      Status = "synced"       // last known to have reached the server
)

// Draft is the locally persisted form state of one module of one inspection
type Draft struct {
	EntityID  string               `json:"entity_id"`
	Module    inspection.ModuleKey `json:"module"`
	Payload   json.RawMessage      `json:"payload"`
	UpdatedAt time.Time            `json:"updated_at"`
	Status    Status               `json:"status"`
}

// Form decodes the payload as a field map
func (d *Draft) Form() (inspection.Form, error) {
	return inspection.DecodeForm(d.Payload)
}

// Store is the draft contract shared by every draft repository
type Store interface {
	Save(ctx context.Context, entityID string, module inspection.ModuleKey, payload any) error
	Load(ctx context.Context, entityID string, module inspection.ModuleKey) (*Draft, bool, error)
	Clear(ctx context.Context, entityID string, module inspection.ModuleKey) error
}

var errNoEntity = errors.New("draft has no entity id")

// Repository keeps one draft per (entity, module) in the key/value store
type Repository struct {
	kv  kvstore.Store
	now func() time.Time
}

// NewRepository creates a draft repository on top of kv
func NewRepository(kv kvstore.Store) *Repository {
	return &Repository{kv: kv, now: time.Now}
}

// Key returns the storage key of a draft
func Key(entityID string, module inspection.ModuleKey) string {
	return fmt.Sprintf("draft:%s:%s", module, entityID)
}

// Save replaces the stored draft with payload. The previous value is never merged.
func (r *Repository) Save(ctx context.Context, entityID string, module inspection.ModuleKey, payload any) error {
	if entityID == "" {
		return errNoEntity
	}

	raw, err := encodePayload(payload)
	if err != nil {
		return err
	}

	return r.write(ctx, &Draft{
		EntityID:  entityID,
		Module:    module,
		Payload:   raw,
		UpdatedAt: r.now().UTC(),
		Status:    StatusDraft,
	})
}

// Load returns the last saved draft, or false when none was ever saved
func (r *Repository) Load(ctx context.Context, entityID string, module inspection.ModuleKey) (*Draft, bool, error) {
	value, ok, err := r.kv.GetString(ctx, Key(entityID, module))
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	var d Draft
	if err := json.Unmarshal([]byte(value), &d); err != nil {
		return nil, false, fmt.Errorf("failed to decode draft %s: %w", Key(entityID, module), err)
	}
	return &d, true, nil
}

// LoadForm is Load followed by decoding the payload as a field map
func (r *Repository) LoadForm(ctx context.Context, entityID string, module inspection.ModuleKey) (inspection.Form, bool, error) {
	d, ok, err := r.Load(ctx, entityID, module)
	if err != nil || !ok {
		return nil, false, err
	}
	form, err := d.Form()
	if err != nil {
		return nil, false, err
	}
	return form, true, nil
}

// Clear removes the draft
func (r *Repository) Clear(ctx context.Context, entityID string, module inspection.ModuleKey) error {
	return r.kv.Delete(ctx, Key(entityID, module))
}

// Ref identifies one stored draft
type Ref struct {
	EntityID string
	Module   inspection.ModuleKey
}

// List returns every stored draft key, ordered by module then entity
func (r *Repository) List(ctx context.Context) ([]Ref, error) {
	lister, ok := r.kv.(kvstore.Lister)
	if !ok {
		return nil, errors.New("draft store cannot list keys")
	}
	keys, err := lister.Keys(ctx, "draft:")
	if err != nil {
		return nil, err
	}

	refs := make([]Ref, 0, len(keys))
	for _, key := range keys {
		parts := strings.SplitN(key, ":", 3)
		if len(parts) != 3 {
			continue
		}
		refs = append(refs, Ref{EntityID: parts[2], Module: inspection.ModuleKey(parts[1])})
	}
	return refs, nil
}

// MarkStatus updates the sync status without touching the payload.
// A missing draft is left missing.
func (r *Repository) MarkStatus(ctx context.Context, entityID string, module inspection.ModuleKey, status Status) error {
	key := Key(entityID, module)
	return r.kv.Update(ctx, key, func(current string, exists bool) (string, bool, error) {
		if !exists {
			return "", false, nil
		}
		var d Draft
		if err := json.Unmarshal([]byte(current), &d); err != nil {
			return "", false, fmt.Errorf("failed to decode draft %s: %w", key, err)
		}
		if d.Status == status {
			return current, true, nil
		}
		d.Status = status
		data, err := json.Marshal(&d)
		if err != nil {
			return "", false, fmt.Errorf("failed to encode draft: %w", err)
		}
		return string(data), true, nil
	})
}

func (r *Repository) write(ctx context.Context, d *Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}
	return r.kv.Set(ctx, Key(d.EntityID, d.Module), string(data))
}

func encodePayload(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case json.RawMessage:
		if !json.Valid(p) {
			return nil, fmt.Errorf("draft payload is not valid JSON")
		}
		return p, nil
	case []byte:
		if !json.Valid(p) {
			return nil, fmt.Errorf("draft payload is not valid JSON")
		}
		return json.RawMessage(p), nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode draft payload: %w", err)
	}
	return raw, nil
}
