package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/rematch/internal/ir"
)

// ClaimTask moves a pending task to started, recording the run id and
// resetting progress to 0 of progressMax.
//
// The transition is one conditional UPDATE. If the task is missing or not
// pending, no row changes and ErrTaskNotPending is returned, so a task can
// be claimed at most once.
func (s *Store) ClaimTask(ctx context.Context, id int64, runID string, progressMax int) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE tasks
		SET status = ?, run_id = ?, progress = 0, progress_max = ?
		WHERE id = ? AND status = ?`),
		string(ir.StatusStarted), runID, progressMax, id, string(ir.StatusPending),
	)
	if err != nil {
		return fmt.Errorf("claim task %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim task %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("claim task %d: %w", id, ErrTaskNotPending)
	}
	return nil
}

// IncrementProgress adds delta to the progress of a started task.
//
// The increment is evaluated by the database (progress = progress + ?),
// never as a read followed by a write.
func (s *Store) IncrementProgress(ctx context.Context, id int64, delta int) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE tasks SET progress = progress + ?
		WHERE id = ? AND status = ?`),
		delta, id, string(ir.StatusStarted),
	)
	if err != nil {
		return fmt.Errorf("increment progress %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment progress %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("increment progress %d: %w", id, ErrInvalidTransition)
	}
	return nil
}

// TaskProgress returns the progress counters of a task.
// progressMax is -1 while the task has not been claimed.
func (s *Store) TaskProgress(ctx context.Context, id int64) (progress, progressMax int, err error) {
	var limit *int64
	err = s.db.QueryRowContext(ctx, s.rebind("SELECT progress, progress_max FROM tasks WHERE id = ?"), id).
		Scan(&progress, &limit)
	if err != nil {
		return 0, 0, fmt.Errorf("task progress %d: %w", id, err)
	}
	if limit == nil {
		return progress, -1, nil
	}
	return progress, int(*limit), nil
}

// FinishTask moves a task to a terminal status and records when it finished.
//
// done is only reachable from started; failed is reachable from pending
// (configuration errors) and started. Terminal tasks never change again:
// any other transition returns ErrInvalidTransition.
func (s *Store) FinishTask(ctx context.Context, id int64, status ir.TaskStatus, finished time.Time) error {
	var from []string
	switch status {
	case ir.StatusDone:
		from = []string{string(ir.StatusStarted)}
	case ir.StatusFailed:
		from = []string{string(ir.StatusPending), string(ir.StatusStarted)}
	default:
		return fmt.Errorf("finish task %d: %q is not terminal: %w", id, status, ErrInvalidTransition)
	}

	query := "UPDATE tasks SET status = ?, finished = ? WHERE id = ? AND status IN (?"
	args := []any{string(status), formatTime(finished), id, from[0]}
	for _, f := range from[1:] {
		query += ", ?"
		args = append(args, f)
	}
	query += ")"

	res, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return fmt.Errorf("finish task %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish task %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("finish task %d as %s: %w", id, status, ErrInvalidTransition)
	}
	return nil
}
