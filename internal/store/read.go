package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/rematch/internal/ir"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// GetProject returns a project by id.
func (s *Store) GetProject(ctx context.Context, id int64) (ir.Project, error) {
	var p ir.Project
	var created string
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, name, description, private, created FROM projects WHERE id = ?`), id).
		Scan(&p.ID, &p.Name, &p.Description, &p.Private, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Project{}, fmt.Errorf("get project %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return ir.Project{}, fmt.Errorf("get project %d: %w", id, err)
	}
	if p.Created, err = parseTime(created); err != nil {
		return ir.Project{}, fmt.Errorf("get project %d: %w", id, err)
	}
	return p, nil
}

// GetFile returns a file by id.
func (s *Store) GetFile(ctx context.Context, id int64) (ir.File, error) {
	var f ir.File
	var project sql.NullInt64
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, project_id, name, description, md5 FROM files WHERE id = ?`), id).
		Scan(&f.ID, &project, &f.Name, &f.Description, &f.MD5)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.File{}, fmt.Errorf("get file %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return ir.File{}, fmt.Errorf("get file %d: %w", id, err)
	}
	f.ProjectID = int64Ptr(project)
	return f, nil
}

// GetFileVersion returns a file version by id.
func (s *Store) GetFileVersion(ctx context.Context, id int64) (ir.FileVersion, error) {
	var fv ir.FileVersion
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, file_id, md5, complete FROM file_versions WHERE id = ?`), id).
		Scan(&fv.ID, &fv.FileID, &fv.MD5, &fv.Complete)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.FileVersion{}, fmt.Errorf("get file version %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return ir.FileVersion{}, fmt.Errorf("get file version %d: %w", id, err)
	}
	return fv, nil
}

// GetInstance returns an instance by id.
func (s *Store) GetInstance(ctx context.Context, id int64) (ir.Instance, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, file_version_id, type, "offset", size, count FROM instances WHERE id = ?`), id)
	inst, err := scanInstance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Instance{}, fmt.Errorf("get instance %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return ir.Instance{}, fmt.Errorf("get instance %d: %w", id, err)
	}
	return inst, nil
}

func scanInstance(r rowScanner) (ir.Instance, error) {
	var inst ir.Instance
	var typ string
	var offset sql.NullInt64
	if err := r.Scan(&inst.ID, &inst.FileVersionID, &typ, &offset, &inst.Size, &inst.Count); err != nil {
		return ir.Instance{}, err
	}
	inst.Type = ir.InstanceType(typ)
	inst.Offset = int64Ptr(offset)
	return inst, nil
}

const taskColumns = `t.id, t.run_id, t.status, t.source_file_version_id, fv.file_id,
	t.source_start, t.source_end, t.target_file_id, t.target_project_id,
	t.matchers, t.strategy, t.progress, t.progress_max, t.created, t.finished`

// GetTask returns a task by id. SourceFileID is resolved through the
// source file version.
func (s *Store) GetTask(ctx context.Context, id int64) (ir.Task, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT `+taskColumns+`
		FROM tasks t
		JOIN file_versions fv ON fv.id = t.source_file_version_id
		WHERE t.id = ?`), id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Task{}, fmt.Errorf("get task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return ir.Task{}, fmt.Errorf("get task %d: %w", id, err)
	}
	return task, nil
}

// ListTasks returns every task ordered by id.
// Returns an empty slice (not nil) when there are none.
func (s *Store) ListTasks(ctx context.Context) ([]ir.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks t
		JOIN file_versions fv ON fv.id = t.source_file_version_id
		ORDER BY t.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []ir.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

func scanTask(r rowScanner) (ir.Task, error) {
	var (
		t                               ir.Task
		status, matchers, created       string
		start, end, targetFile, project sql.NullInt64
		progressMax                     sql.NullInt64
		finished                        sql.NullString
	)
	if err := r.Scan(
		&t.ID, &t.RunID, &status, &t.SourceFileVersionID, &t.SourceFileID,
		&start, &end, &targetFile, &project,
		&matchers, &t.Strategy, &t.Progress, &progressMax, &created, &finished,
	); err != nil {
		return ir.Task{}, err
	}

	t.Status = ir.TaskStatus(status)
	t.SourceStart = int64Ptr(start)
	t.SourceEnd = int64Ptr(end)
	t.TargetFileID = int64Ptr(targetFile)
	t.TargetProjectID = int64Ptr(project)
	if progressMax.Valid {
		n := int(progressMax.Int64)
		t.ProgressMax = &n
	}
	if err := json.Unmarshal([]byte(matchers), &t.Matchers); err != nil {
		return ir.Task{}, fmt.Errorf("unmarshal matchers: %w", err)
	}

	var err error
	if t.Created, err = parseTime(created); err != nil {
		return ir.Task{}, err
	}
	if t.Finished, err = parseNullTime(finished); err != nil {
		return ir.Task{}, err
	}
	return t, nil
}

// ListMatches returns the matches of a task ordered by id.
// Returns an empty slice (not nil) when there are none.
func (s *Store) ListMatches(ctx context.Context, taskID int64) ([]ir.Match, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, task_id, from_instance_id, to_instance_id, type, score, created
		FROM matches
		WHERE task_id = ?
		ORDER BY id ASC`), taskID)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	matches := []ir.Match{}
	for rows.Next() {
		var m ir.Match
		var created string
		if err := rows.Scan(&m.ID, &m.TaskID, &m.FromInstanceID, &m.ToInstanceID, &m.Type, &m.Score, &created); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		if m.Created, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	return matches, nil
}

// CountMatches returns the number of matches produced by a task.
func (s *Store) CountMatches(ctx context.Context, taskID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT COUNT(*) FROM matches WHERE task_id = ?"), taskID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count matches: %w", err)
	}
	return n, nil
}

// TaskLocals returns the distinct source instances that have at least one
// match in the task, ordered by id.
func (s *Store) TaskLocals(ctx context.Context, taskID int64) ([]ir.Instance, error) {
	return s.taskInstances(ctx, taskID, "from_instance_id")
}

// TaskRemotes returns the distinct target instances that have at least one
// match in the task, ordered by id.
func (s *Store) TaskRemotes(ctx context.Context, taskID int64) ([]ir.Instance, error) {
	return s.taskInstances(ctx, taskID, "to_instance_id")
}

func (s *Store) taskInstances(ctx context.Context, taskID int64, column string) ([]ir.Instance, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT i.id, i.file_version_id, i.type, i."offset", i.size, i.count
		FROM instances i
		WHERE i.id IN (SELECT m.`+column+` FROM matches m WHERE m.task_id = ?)
		ORDER BY i.id ASC`), taskID)
	if err != nil {
		return nil, fmt.Errorf("task instances: %w", err)
	}
	defer rows.Close()

	instances := []ir.Instance{}
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan instance: %w", err)
		}
		instances = append(instances, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate instances: %w", err)
	}
	return instances, nil
}
