// Package keyvalue implements store.Store on top of the kv_entries table.
//
// # Interface Implementation
//
//	var _ store.Store = (*Repository)(nil)
//
// # Usage
//
//	repo := keyvalue.NewRepository(db.DB)
//	value, ok, err := repo.Get(ctx, "progress")
package keyvalue

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/readtrack/internal/entities"
	"github.com/mrlokans/readtrack/internal/store"
)

// multiGetChunk keeps IN clauses below sqlite's bound variable limit.
const multiGetChunk = 500

var _ store.Store = (*Repository)(nil)

// Repository handles all key/value database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new key/value repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Get returns the value stored under key.
func (r *Repository) Get(ctx context.Context, key string) (string, bool, error) {
	entry, err := r.Lookup(ctx, key)
	if err != nil {
		return "", false, err
	}
	return entry.Value, entry.Present(), nil
}

// Lookup returns the entry with its version, or a zero-version entry.
func (r *Repository) Lookup(ctx context.Context, key string) (store.Entry, error) {
	row, found, err := r.find(r.db.WithContext(ctx), key)
	if err != nil {
		return store.Entry{}, err
	}
	if !found {
		return store.Entry{Key: key}, nil
	}
	return store.Entry{Key: row.Key, Value: row.Value, Version: row.Version}, nil
}

// find reads one row without First, so an absent key is not logged as a
// record-not-found error.
func (r *Repository) find(db *gorm.DB, key string) (entities.KVEntry, bool, error) {
	var rows []entities.KVEntry
	result := db.Where("key = ?", key).Limit(1).Find(&rows)
	if result.Error != nil {
		return entities.KVEntry{}, false, result.Error
	}
	if result.RowsAffected == 0 || len(rows) == 0 {
		return entities.KVEntry{}, false, nil
	}
	return rows[0], true, nil
}

// Set creates or overwrites key, bumping its version.
func (r *Repository) Set(ctx context.Context, key, value string) error {
	db := r.db.WithContext(ctx)

	// Two attempts: a concurrent insert of the same key turns the second
	// pass into an update.
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		row, found, findErr := r.find(db, key)

		switch {
		case findErr != nil:
			err = findErr
		case !found:
			row = entities.KVEntry{Key: key, Value: value, Version: 1}
			err = db.Create(&row).Error
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue
			}
		default:
			err = db.Model(&entities.KVEntry{}).
				Where("id = ?", row.ID).
				Updates(map[string]any{
					"value":      value,
					"version":    gorm.Expr("version + 1"),
					"updated_at": time.Now(),
				}).Error
		}
		break
	}
	if err != nil {
		return &store.WriteError{Op: "set", Key: key, Err: err}
	}
	return nil
}

// CompareAndSwap writes value only if key is still at expectedVersion.
func (r *Repository) CompareAndSwap(ctx context.Context, key, value string, expectedVersion int64) error {
	db := r.db.WithContext(ctx)

	if expectedVersion == 0 {
		var count int64
		if err := db.Model(&entities.KVEntry{}).Where("key = ?", key).Count(&count).Error; err != nil {
			return &store.WriteError{Op: "cas", Key: key, Err: err}
		}
		if count > 0 {
			return store.ErrVersionConflict
		}
		err := db.Create(&entities.KVEntry{Key: key, Value: value, Version: 1}).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return store.ErrVersionConflict
		}
		if err != nil {
			return &store.WriteError{Op: "cas", Key: key, Err: err}
		}
		return nil
	}

	result := db.Model(&entities.KVEntry{}).
		Where("key = ? AND version = ?", key, expectedVersion).
		Updates(map[string]any{
			"value":      value,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return &store.WriteError{Op: "cas", Key: key, Err: result.Error}
	}
	if result.RowsAffected == 0 {
		return store.ErrVersionConflict
	}
	return nil
}

// Remove deletes key. Removing an absent key is not an error.
func (r *Repository) Remove(ctx context.Context, key string) error {
	err := r.db.WithContext(ctx).Where("key = ?", key).Delete(&entities.KVEntry{}).Error
	if err != nil {
		return &store.WriteError{Op: "remove", Key: key, Err: err}
	}
	return nil
}

// GetAllKeys returns every stored key in lexical order.
func (r *Repository) GetAllKeys(ctx context.Context) ([]string, error) {
	var keys []string
	err := r.db.WithContext(ctx).Model(&entities.KVEntry{}).Order("key ASC").Pluck("key", &keys).Error
	return keys, err
}

// MultiGet returns one result per requested key, in request order.
func (r *Repository) MultiGet(ctx context.Context, keys []string) ([]store.KeyValue, error) {
	found := make(map[string]string, len(keys))
	for start := 0; start < len(keys); start += multiGetChunk {
		end := start + multiGetChunk
		if end > len(keys) {
			end = len(keys)
		}

		var rows []entities.KVEntry
		if err := r.db.WithContext(ctx).Where("key IN ?", keys[start:end]).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			found[row.Key] = row.Value
		}
	}

	results := make([]store.KeyValue, 0, len(keys))
	for _, key := range keys {
		value, ok := found[key]
		results = append(results, store.KeyValue{Key: key, Value: value, Present: ok})
	}
	return results, nil
}
