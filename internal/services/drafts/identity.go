package drafts

import (
	"context"
	"fmt"

	"inspectsync/internal/api"
	"inspectsync/internal/inspection"
	"inspectsync/internal/kvstore"
	"inspectsync/internal/services/queue"
)

// IdentityQueueName is the upload queue dedicated to vehicle identity
const IdentityQueueName = "vehicle-identity"

// VehicleIdentityStore is the draft store for the vehicle identity module.
// It shares the draft contract and owns its own upload queue, so identity
// submissions never wait behind checklist uploads.
type VehicleIdentityStore struct {
	repo  *Repository
	queue *queue.Queue
}

// NewVehicleIdentityStore creates the identity store on top of kv
func NewVehicleIdentityStore(kv kvstore.Store) *VehicleIdentityStore {
	return &VehicleIdentityStore{
		repo:  NewRepository(kv),
		queue: queue.New(kv, IdentityQueueName),
	}
}

func (s *VehicleIdentityStore) check(module inspection.ModuleKey) error {
	if module != inspection.ModuleVehicleIdentity {
		return fmt.Errorf("vehicle identity store cannot hold module %s", module)
	}
	return nil
}

func (s *VehicleIdentityStore) Save(ctx context.Context, entityID string, module inspection.ModuleKey, payload any) error {
	if err := s.check(module); err != nil {
		return err
	}
	return s.repo.Save(ctx, entityID, module, payload)
}

func (s *VehicleIdentityStore) Load(ctx context.Context, entityID string, module inspection.ModuleKey) (*Draft, bool, error) {
	if err := s.check(module); err != nil {
		return nil, false, err
	}
	return s.repo.Load(ctx, entityID, module)
}

func (s *VehicleIdentityStore) Clear(ctx context.Context, entityID string, module inspection.ModuleKey) error {
	if err := s.check(module); err != nil {
		return err
	}
	return s.repo.Clear(ctx, entityID, module)
}

// Repository exposes the underlying draft repository
func (s *VehicleIdentityStore) Repository() *Repository {
	return s.repo
}

// Queue returns the identity upload queue
func (s *VehicleIdentityStore) Queue() *queue.Queue {
	return s.queue
}

// NewJob snapshots the current draft of a module into an upload job. Later
// edits to the draft do not change the job.
func NewJob(ctx context.Context, repo *Repository, entityID string, module inspection.ModuleKey, attachments ...api.Attachment) (queue.Job, error) {
	d, ok, err := repo.Load(ctx, entityID, module)
	if err != nil {
		return queue.Job{}, err
	}
	if !ok {
		return queue.Job{}, fmt.Errorf("no draft saved for %s of %s", module, entityID)
	}
	return queue.NewJob(entityID, module, d.Payload, attachments...), nil
}
