package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/readtrack/internal/entities"
)

// IndexRebuilder rescans the store and replaces the daily activity index.
type IndexRebuilder interface {
	Rebuild(ctx context.Context) (map[string]entities.DailyEntry, error)
}

// ReconcileAuditor records the outcome of a rebuild.
type ReconcileAuditor interface {
	LogReconcile(trigger string, days int, err error)
}

// RebuildIndexTask reconciles the daily activity index with the store.
// Trigger names what asked for it ("schedule", "api", "cli").
type RebuildIndexTask struct {
	Trigger string `json:"trigger"`
}

func (t RebuildIndexTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "rebuild_index",
		MaxAttempts: 2,
		Backoff:     time.Minute,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

func RebuildIndexProcessor(index IndexRebuilder, auditor ReconcileAuditor) backlite.QueueProcessor[RebuildIndexTask] {
	return func(ctx context.Context, task RebuildIndexTask) error {
		if index == nil {
			return fmt.Errorf("activity index not configured")
		}
		trigger := task.Trigger
		if trigger == "" {
			trigger = "api"
		}

		days, err := index.Rebuild(ctx)
		if auditor != nil {
			auditor.LogReconcile(trigger, len(days), err)
		}
		if err != nil {
			return fmt.Errorf("rebuild activity index: %w", err)
		}

		log.Printf("[TASK] Rebuilt activity index: %d days (trigger: %s)", len(days), trigger)
		return nil
	}
}

func NewRebuildIndexQueue(index IndexRebuilder, auditor ReconcileAuditor) backlite.Queue {
	return backlite.NewQueue(RebuildIndexProcessor(index, auditor))
}
