package tasks

import (
	"errors"
	"fmt"

	"github.com/mikestefanello/backlite"
)

// ErrUnknownTaskType is returned by NewTask for types that cannot be run
// manually.
var ErrUnknownTaskType = errors.New("unknown task type")

// TaskType describes a task that can be triggered on demand.
type TaskType struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Queue       string `json:"queue"`
}

// RunParams carries the optional parameters of a manual run.
type RunParams struct {
	RetentionDays int    `json:"retention_days,omitempty" form:"retention_days"`
	Trigger       string `json:"-"`
}

// Types lists the manually runnable tasks. Purges are only enqueued by
// deletes and are not listed.
func Types() []TaskType {
	return []TaskType{
		{
			Type:        "rebuild_index",
			Description: "Rebuild the daily activity index from the store",
			Queue:       RebuildIndexTask{}.Config().Name,
		},
		{
			Type:        "cleanup_audit_events",
			Description: "Remove audit events older than the retention period",
			Queue:       CleanupAuditEventsTask{}.Config().Name,
		},
	}
}

// NewTask builds the task for a manual run of taskType.
func NewTask(taskType string, params RunParams) (backlite.Task, error) {
	switch taskType {
	case "rebuild_index":
		trigger := params.Trigger
		if trigger == "" {
			trigger = "api"
		}
		return RebuildIndexTask{Trigger: trigger}, nil
	case "cleanup_audit_events":
		return CleanupAuditEventsTask{RetentionDays: params.RetentionDays}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTaskType, taskType)
	}
}
