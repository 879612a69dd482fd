// Package ledger persists the process-wide time counters: total foreground
// app time, total reading time and the end of the last reading session.
//
// Counters only grow. Reset is the one way to lower them.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/mrlokans/readtrack/internal/entities"
	"github.com/mrlokans/readtrack/internal/store"
)

type Repository struct {
	store   store.Store
	updater *store.Updater
}

func NewRepository(s store.Store, updater *store.Updater) *Repository {
	return &Repository{store: s, updater: updater}
}

// Get reads all three ledger keys in one MultiGet.
func (r *Repository) Get(ctx context.Context) (entities.TimeLedger, error) {
	values, err := r.store.MultiGet(ctx, []string{store.KeyAppTime, store.KeyReadingTime, store.KeyLastSession})
	if err != nil {
		return entities.TimeLedger{}, fmt.Errorf("failed to read ledger: %w", err)
	}

	var result entities.TimeLedger
	for _, kv := range values {
		if !kv.Present {
			continue
		}
		switch kv.Key {
		case store.KeyAppTime:
			result.TotalAppSeconds = DecodeCounter(kv.Value)
		case store.KeyReadingTime:
			result.TotalReadingSeconds = DecodeCounter(kv.Value)
		case store.KeyLastSession:
			if t, ok := decodeTimestamp(kv.Value); ok {
				result.LastSessionEnd = &t
			} else {
				log.Printf("Ledger: ignoring unparseable lastSession %q", kv.Value)
			}
		}
	}
	return result, nil
}

func (r *Repository) AddAppSeconds(ctx context.Context, seconds uint64) error {
	return r.add(ctx, store.KeyAppTime, seconds)
}

func (r *Repository) AddReadingSeconds(ctx context.Context, seconds uint64) error {
	return r.add(ctx, store.KeyReadingTime, seconds)
}

// SetLastSession stamps the end of the most recent reading session.
func (r *Repository) SetLastSession(ctx context.Context, at time.Time) error {
	return r.store.Set(ctx, store.KeyLastSession, store.EncodeString(at.UTC().Format(time.RFC3339)))
}

// Reset zeroes both counters and forgets the last session.
func (r *Repository) Reset(ctx context.Context) error {
	for _, key := range []string{store.KeyAppTime, store.KeyReadingTime, store.KeyLastSession} {
		if err := r.store.Remove(ctx, key); err != nil {
			return fmt.Errorf("failed to reset ledger: %w", err)
		}
	}
	log.Printf("Ledger: counters reset")
	return nil
}

func (r *Repository) add(ctx context.Context, key string, seconds uint64) error {
	if seconds == 0 {
		return nil
	}
	return r.updater.Update(ctx, key, func(current string, _ bool) (string, error) {
		return strconv.FormatUint(DecodeCounter(current)+seconds, 10), nil
	})
}

// DecodeCounter reads a stored counter. Absent, empty, negative and
// malformed values all count as zero; fractional values are truncated.
func DecodeCounter(raw string) uint64 {
	raw = strings.TrimSpace(store.DecodeString(raw))
	if raw == "" {
		return 0
	}
	if n, err := strconv.ParseUint(raw, 10, 64); err == nil {
		return n
	}
	var f float64
	if err := json.Unmarshal([]byte(raw), &f); err == nil && f > 0 {
		return uint64(f)
	}
	return 0
}

func decodeTimestamp(raw string) (time.Time, bool) {
	s := store.DecodeString(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
