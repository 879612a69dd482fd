// Package store defines the durable key/value contract shared by every
// component of the tracker.
//
// # Contract
//
// Keys and values are strings; values are JSON documents. A missing key is a
// normal state and readers interpret it as their type's zero value. The
// store never distinguishes "never written" from "written as empty".
//
// No operation is atomic across keys. To make the read-modify-write races
// between independent writers detectable, every entry carries a version
// number: Lookup returns it and CompareAndSwap only writes when it still
// matches. Update and UpdateJSON wrap that into a bounded retry loop.
//
// # Backends
//
//   - database/keyvalue: gorm + sqlite (default)
//   - store/pebblestore: cockroachdb/pebble
package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrVersionConflict is returned by CompareAndSwap when the entry was
	// written by someone else since it was read.
	ErrVersionConflict = errors.New("version conflict")

	// ErrNoChange can be returned from an update function to skip the write.
	ErrNoChange = errors.New("no change")
)

// Entry is a versioned value. Version 0 means the key is absent.
type Entry struct {
	Key     string
	Value   string
	Version int64
}

// Present reports whether the key exists.
func (e Entry) Present() bool {
	return e.Version > 0
}

// KeyValue is one result of MultiGet.
type KeyValue struct {
	Key     string
	Value   string
	Present bool
}

// Store is the persistent key/value map.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	GetAllKeys(ctx context.Context) ([]string, error)
	MultiGet(ctx context.Context, keys []string) ([]KeyValue, error)

	// Lookup returns the entry with its version (0 when absent).
	Lookup(ctx context.Context, key string) (Entry, error)

	// CompareAndSwap writes value only if the key's version is still
	// expectedVersion. expectedVersion 0 means "create if absent".
	CompareAndSwap(ctx context.Context, key, value string, expectedVersion int64) error
}

// WriteError wraps a failed write. Callers decide whether to surface it
// (user-initiated writes) or drop it (periodic flushes).
type WriteError struct {
	Op  string
	Key string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// IsWriteError reports whether err is (or wraps) a WriteError.
func IsWriteError(err error) bool {
	var we *WriteError
	return errors.As(err, &we)
}
