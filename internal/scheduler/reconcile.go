package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"

	"github.com/mrlokans/readtrack/internal/tasks"
)

// DefaultSchedule runs the reconcile daily at 03:00.
const DefaultSchedule = "0 3 * * *"

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Enqueuer hands jobs to the task queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, task backlite.Task) (string, error)
}

type ReconcilerConfig struct {
	Schedule string
	Index    tasks.IndexRebuilder
	Audit    tasks.ReconcileAuditor // optional

	// Queue is optional. When set, scheduled runs are enqueued rather than
	// executed on the cron goroutine, and audit cleanup rides along.
	Queue              Enqueuer
	AuditRetentionDays int
}

// IndexReconciler periodically rebuilds the daily activity index so that
// writes made outside this process show up in the calendar.
type IndexReconciler struct {
	cfg ReconcilerConfig

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

func NewIndexReconciler(cfg ReconcilerConfig) *IndexReconciler {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	return &IndexReconciler{
		cfg:  cfg,
		cron: cron.New(cron.WithParser(parser)),
	}
}

func (r *IndexReconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isRunning {
		return nil
	}

	if err := ValidateSchedule(r.cfg.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", r.cfg.Schedule, err)
	}

	entryID, err := r.cron.AddFunc(r.cfg.Schedule, func() {
		if err := r.run(context.Background(), "schedule"); err != nil {
			log.Printf("Index reconciler: scheduled run failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reconcile job: %w", err)
	}
	r.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, r.cancelFunc = context.WithCancel(ctx)

	r.cron.Start()
	r.isRunning = true

	log.Printf("Index reconciler: started with schedule '%s' (%s)", r.cfg.Schedule, DescribeSchedule(r.cfg.Schedule))

	go func() {
		<-cancelCtx.Done()
		r.Stop()
	}()

	return nil
}

// Stop waits for a running job to complete.
func (r *IndexReconciler) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isRunning {
		return
	}

	<-r.cron.Stop().Done()
	r.cron.Remove(r.entryID)

	if r.cancelFunc != nil {
		r.cancelFunc()
		r.cancelFunc = nil
	}
	r.isRunning = false

	log.Printf("Index reconciler: stopped")
}

// RunNow reconciles immediately on the caller's goroutine.
func (r *IndexReconciler) RunNow(ctx context.Context, trigger string) error {
	return r.run(ctx, trigger)
}

func (r *IndexReconciler) IsRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isRunning
}

// NextRunTime is nil while stopped.
func (r *IndexReconciler) NextRunTime() *time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.isRunning {
		return nil
	}
	entry := r.cron.Entry(r.entryID)
	if entry.Next.IsZero() {
		return nil
	}
	t := entry.Next
	return &t
}

func (r *IndexReconciler) run(ctx context.Context, trigger string) error {
	if r.cfg.Queue != nil {
		id, err := r.cfg.Queue.Enqueue(ctx, tasks.RebuildIndexTask{Trigger: trigger})
		if err != nil {
			return err
		}
		log.Printf("Index reconciler: enqueued rebuild as task %s", id)

		if r.cfg.AuditRetentionDays > 0 {
			if _, err := r.cfg.Queue.Enqueue(ctx, tasks.CleanupAuditEventsTask{RetentionDays: r.cfg.AuditRetentionDays}); err != nil {
				log.Printf("Index reconciler: failed to enqueue audit cleanup: %v", err)
			}
		}
		return nil
	}

	if r.cfg.Index == nil {
		return fmt.Errorf("activity index not configured")
	}

	started := time.Now()
	days, err := r.cfg.Index.Rebuild(ctx)
	if r.cfg.Audit != nil {
		r.cfg.Audit.LogReconcile(trigger, len(days), err)
	}
	if err != nil {
		return fmt.Errorf("rebuild activity index: %w", err)
	}
	log.Printf("Index reconciler: rebuilt %d days in %v (trigger: %s)", len(days), time.Since(started).Round(time.Millisecond), trigger)
	return nil
}

func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// DescribeSchedule returns a human-readable description of a cron schedule.
func DescribeSchedule(schedule string) string {
	switch schedule {
	case "0 * * * *":
		return "Every hour at :00"
	case "*/15 * * * *":
		return "Every 15 minutes"
	case "0 */6 * * *":
		return "Every 6 hours"
	case "0 0 * * *":
		return "Daily at midnight"
	case DefaultSchedule:
		return "Daily at 03:00"
	default:
		return "Custom schedule: " + schedule
	}
}
