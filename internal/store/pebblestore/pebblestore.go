// Package pebblestore implements store.Store on cockroachdb/pebble.
//
// Every value is stored as an 8-byte big-endian version followed by the raw
// value bytes. Pebble has no conditional write, so CompareAndSwap and Set
// take a process-wide mutex around their read-check-write.
package pebblestore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/mrlokans/readtrack/internal/store"
)

const versionSize = 8

var _ store.Store = (*Store)(nil)

// Store is a pebble-backed key/value store.
type Store struct {
	db *pebble.DB

	// writeMu serialises versioned writes.
	writeMu sync.Mutex
}

// Open opens (or creates) a pebble database in dir.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open PebbleDB: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	entry, err := s.Lookup(ctx, key)
	if err != nil {
		return "", false, err
	}
	return entry.Value, entry.Present(), nil
}

func (s *Store) Lookup(ctx context.Context, key string) (store.Entry, error) {
	if err := ctx.Err(); err != nil {
		return store.Entry{}, err
	}

	raw, closer, err := s.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return store.Entry{Key: key}, nil
	}
	if err != nil {
		return store.Entry{}, err
	}
	defer closer.Close()

	version, value, err := unpack(raw)
	if err != nil {
		return store.Entry{}, fmt.Errorf("key %q: %w", key, err)
	}
	return store.Entry{Key: key, Value: value, Version: version}, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, err := s.Lookup(ctx, key)
	if err != nil {
		return &store.WriteError{Op: "set", Key: key, Err: err}
	}
	if err := s.db.Set([]byte(key), pack(current.Version+1, value), pebble.Sync); err != nil {
		return &store.WriteError{Op: "set", Key: key, Err: err}
	}
	return nil
}

func (s *Store) CompareAndSwap(ctx context.Context, key, value string, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, err := s.Lookup(ctx, key)
	if err != nil {
		return &store.WriteError{Op: "cas", Key: key, Err: err}
	}
	if current.Version != expectedVersion {
		return store.ErrVersionConflict
	}
	if err := s.db.Set([]byte(key), pack(expectedVersion+1, value), pebble.Sync); err != nil {
		return &store.WriteError{Op: "cas", Key: key, Err: err}
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.db.Delete([]byte(key), pebble.Sync); err != nil {
		return &store.WriteError{Op: "remove", Key: key, Err: err}
	}
	return nil
}

// GetAllKeys returns every key in byte order.
func (s *Store) GetAllKeys(ctx context.Context) ([]string, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	var keys []string
	for iter.First(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		keys = append(keys, string(iter.Key()))
	}
	return keys, iter.Error()
}

func (s *Store) MultiGet(ctx context.Context, keys []string) ([]store.KeyValue, error) {
	results := make([]store.KeyValue, 0, len(keys))
	for _, key := range keys {
		entry, err := s.Lookup(ctx, key)
		if err != nil {
			return nil, err
		}
		results = append(results, store.KeyValue{Key: key, Value: entry.Value, Present: entry.Present()})
	}
	return results, nil
}

func pack(version int64, value string) []byte {
	buf := make([]byte, versionSize+len(value))
	binary.BigEndian.PutUint64(buf, uint64(version))
	copy(buf[versionSize:], value)
	return buf
}

// unpack copies out of raw, which pebble reuses after the closer is closed.
func unpack(raw []byte) (int64, string, error) {
	if len(raw) < versionSize {
		return 0, "", errors.New("corrupt entry: missing version header")
	}
	version := int64(binary.BigEndian.Uint64(raw[:versionSize]))
	return version, string(raw[versionSize:]), nil
}
