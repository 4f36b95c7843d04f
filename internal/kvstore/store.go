// Package kvstore provides the durable key/value store that drafts and upload
// queues are persisted into. Values are opaque strings; the store serializes
// its own writes so callers on different goroutines never interleave a write.
package kvstore

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"inspectsync/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpdateFunc maps the current value of a key to its next value. exists is
// false when the key is unset. Returning keep=false deletes the key.
type UpdateFunc func(current string, exists bool) (next string, keep bool, err error)

// Store is a synchronous, crash-durable string store
type Store interface {
	// GetString returns the value and true, or "" and false when the key was never set.
	GetString(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// Update applies fn as one atomic read-modify-write. An error from fn
	// leaves the stored value untouched and is returned as is.
	Update(ctx context.Context, key string, fn UpdateFunc) error
}

// Lister is implemented by stores that can enumerate keys
type Lister interface {
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// GormStore persists entries in the kv_entries table. Every call reads the
// database, so several processes may share one file.
type GormStore struct {
	db *gorm.DB
	mu sync.Mutex // serializes writes
}

// NewGormStore creates a store on top of an opened and migrated database
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) GetString(ctx context.Context, key string) (string, bool, error) {
	var entry models.KVEntry
	err := s.db.WithContext(ctx).Where("key = ?", key).Limit(1).Find(&entry).Error
	if err != nil {
		return "", false, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	if entry.Key == "" {
		return "", false, nil
	}
	return entry.Value, true, nil
}

func (s *GormStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := models.KVEntry{Key: key, Value: value}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.WithContext(ctx).Delete(&models.KVEntry{}, "key = ?", key).Error; err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// Update runs the read and the write in one transaction. On postgres the row
// is locked with SELECT ... FOR UPDATE; sqlite connections begin immediate
// transactions, which take the write lock before the read. A key created
// concurrently by another process fails the insert instead of being overwritten.
func (s *GormStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.KVEntry
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("key = ?", key).Limit(1).Find(&entry).Error
		if err != nil {
			return fmt.Errorf("failed to read key %s: %w", key, err)
		}
		exists := entry.Key != ""

		next, keep, err := fn(entry.Value, exists)
		if err != nil {
			return err
		}

		switch {
		case !keep && !exists:
			return nil
		case !keep:
			err = tx.Delete(&models.KVEntry{}, "key = ?", key).Error
		case exists:
			err = tx.Model(&models.KVEntry{}).Where("key = ?", key).Update("value", next).Error
		default:
			err = tx.Create(&models.KVEntry{Key: key, Value: next}).Error
		}
		if err != nil {
			return fmt.Errorf("failed to update key %s: %w", key, err)
		}
		return nil
	})
}

// Keys lists stored keys with the given prefix, in key order
func (s *GormStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.db.WithContext(ctx).Model(&models.KVEntry{}).
		Where("key LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%").
		Order("key").
		Pluck("key", &keys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return keys, nil
}

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
