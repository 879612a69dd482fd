package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// DefaultUpdateAttempts bounds the optimistic retry loop in Update.
const DefaultUpdateAttempts = 5

// Updater runs read-modify-write cycles against a Store.
type Updater struct {
	Store    Store
	Attempts int

	// OnConflict, if set, is called for every lost CompareAndSwap race.
	OnConflict func(key string)
}

// NewUpdater creates an Updater with the given attempt budget.
func NewUpdater(s Store, attempts int) *Updater {
	if attempts <= 0 {
		attempts = DefaultUpdateAttempts
	}
	return &Updater{Store: s, Attempts: attempts}
}

// Update applies fn to the current raw value of key and writes the result
// with CompareAndSwap, retrying when another writer got there first.
func (u *Updater) Update(ctx context.Context, key string, fn func(current string, present bool) (string, error)) error {
	for attempt := 0; attempt < u.Attempts; attempt++ {
		entry, err := u.Store.Lookup(ctx, key)
		if err != nil {
			return err
		}

		next, err := fn(entry.Value, entry.Present())
		if errors.Is(err, ErrNoChange) {
			return nil
		}
		if err != nil {
			return err
		}

		err = u.Store.CompareAndSwap(ctx, key, next, entry.Version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return err
		}
		if u.OnConflict != nil {
			u.OnConflict(key)
		}
	}
	return fmt.Errorf("update %q after %d attempts: %w", key, u.Attempts, ErrVersionConflict)
}

// UpdateJSON decodes the current value of key into a T (zero value when the
// key is absent or empty), lets fn modify it, and writes it back.
func UpdateJSON[T any](ctx context.Context, u *Updater, key string, fn func(v *T) error) error {
	return u.Update(ctx, key, func(current string, present bool) (string, error) {
		var v T
		if err := decode(current, &v); err != nil {
			return "", fmt.Errorf("decode %q: %w", key, err)
		}
		if err := fn(&v); err != nil {
			return "", err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("encode %q: %w", key, err)
		}
		return string(data), nil
	})
}

// GetJSON reads key into a T. Absent and empty keys yield the zero value.
func GetJSON[T any](ctx context.Context, s Store, key string) (T, error) {
	var v T
	raw, _, err := s.Get(ctx, key)
	if err != nil {
		return v, err
	}
	if err := decode(raw, &v); err != nil {
		return v, fmt.Errorf("decode %q: %w", key, err)
	}
	return v, nil
}

// SetJSON encodes v and writes it under key (last write wins).
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return s.Set(ctx, key, string(data))
}

// DecodeString reads a JSON string value, accepting raw text written by
// older clients that stored the value unquoted.
func DecodeString(raw string) string {
	var s string
	if err := json.Unmarshal([]byte(raw), &s); err == nil {
		return s
	}
	return raw
}

// EncodeString returns the JSON form of s.
func EncodeString(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

func decode(raw string, v any) error {
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), v)
}
