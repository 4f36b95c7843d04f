package drafts

import (
	"context"
	"sync"
	"time"

	"inspectsync/internal/inspection"

	"go.uber.org/zap"
)

// Saver is the write half of a draft store
type Saver interface {
	Save(ctx context.Context, entityID string, module inspection.ModuleKey, payload any) error
}

// Autosaver coalesces rapid edits of one module into a single write after a
// quiet period. Every Update cancels the pending timer and starts a new one.
// Close flushes what is pending; Discard drops it. Storage errors are logged
// and swallowed, the caller's in-memory form stays the source of truth.
type Autosaver struct {
	saver    Saver
	entityID string
	module   inspection.ModuleKey
	delay    time.Duration
	log      *zap.SugaredLogger

	// saveMu is held from taking the pending state until its write returns,
	// so writes land in edit order and teardown waits for a timer write.
	// Lock order: saveMu, then mu.
	saveMu sync.Mutex

	mu         sync.Mutex
	timer      *time.Timer
	gen        uint64
	pending    any
	hasPending bool
	closed     bool
	saves      int
}

// NewAutosaver creates an autosaver for one (entity, module) form
func NewAutosaver(saver Saver, entityID string, module inspection.ModuleKey, delay time.Duration) *Autosaver {
	return &Autosaver{
		saver:    saver,
		entityID: entityID,
		module:   module,
		delay:    delay,
		log:      zap.S().Named("autosave").With("entity_id", entityID, "module", module),
	}
}

// Update records the latest form state and restarts the quiet-period timer
func (a *Autosaver) Update(payload any) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}

	a.pending = payload
	a.hasPending = true
	a.gen++

	if a.timer != nil {
		a.timer.Stop()
	}
	gen := a.gen
	a.timer = time.AfterFunc(a.delay, func() { a.fire(gen) })
}

// Flush writes the pending state now, if any
func (a *Autosaver) Flush(ctx context.Context) {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	a.mu.Lock()
	payload, ok := a.takePending()
	a.mu.Unlock()

	if ok {
		a.save(ctx, payload)
	}
}

// Close flushes pending state and stops accepting updates. It returns once
// no write is in flight.
func (a *Autosaver) Close(ctx context.Context) {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	a.mu.Lock()
	a.closed = true
	payload, ok := a.takePending()
	a.mu.Unlock()

	if ok {
		a.save(ctx, payload)
	}
}

// Discard drops pending state and stops accepting updates
func (a *Autosaver) Discard() {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	a.closed = true
	a.takePending()
}

// Saves returns how many writes reached the store
func (a *Autosaver) Saves() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.saves
}

func (a *Autosaver) fire(gen uint64) {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	a.mu.Lock()
	// A newer edit or a flush superseded this timer
	if gen != a.gen || !a.hasPending {
		a.mu.Unlock()
		return
	}
	payload, _ := a.takePending()
	a.mu.Unlock()

	a.save(context.Background(), payload)
}

// takePending must be called with a.mu held
func (a *Autosaver) takePending() (any, bool) {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.gen++
	if !a.hasPending {
		return nil, false
	}
	payload := a.pending
	a.pending = nil
	a.hasPending = false
	return payload, true
}

func (a *Autosaver) save(ctx context.Context, payload any) {
	if err := a.saver.Save(ctx, a.entityID, a.module, payload); err != nil {
		a.log.Warnw("failed to persist draft, keeping in-memory state", "error", err)
		return
	}
	a.mu.Lock()
	a.saves++
	a.mu.Unlock()
}
