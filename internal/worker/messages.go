package worker

import (
	"errors"
	"fmt"

	"github.com/roach88/rematch/internal/engine"
)

// Request asks a worker to run one task.
type Request struct {
	TaskID int64 `json:"task_id"`
}

// Reply reports how a requested task ended.
type Reply struct {
	TaskID int64 `json:"task_id"`

	// Status is done, failed or rejected. Rejected tasks were not run:
	// they do not exist or were already claimed.
	Status string `json:"status"`

	Error string `json:"error,omitempty"`
}

// Reply statuses.
const (
	StatusDone     = "done"
	StatusFailed   = "failed"
	StatusRejected = "rejected"
)

// replyFor maps the result of RunMatch to a reply.
func replyFor(taskID int64, err error) Reply {
	switch {
	case err == nil:
		return Reply{TaskID: taskID, Status: StatusDone}
	case engine.IsNotFoundError(err), engine.IsNotPendingError(err):
		return Reply{TaskID: taskID, Status: StatusRejected, Error: err.Error()}
	default:
		return Reply{TaskID: taskID, Status: StatusFailed, Error: err.Error()}
	}
}

// Err converts a reply back into an error, nil when the task is done.
func (r Reply) Err() error {
	switch r.Status {
	case StatusDone:
		return nil
	case "":
		return errors.New("empty reply status")
	default:
		return fmt.Errorf("task %d %s: %s", r.TaskID, r.Status, r.Error)
	}
}
