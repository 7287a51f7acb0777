package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/rematch/internal/ir"
)

// queryRower is satisfied by *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// insertReturningID runs an INSERT with ? placeholders and returns the new id.
func (s *Store) insertReturningID(ctx context.Context, q queryRower, query string, args ...any) (int64, error) {
	var id int64
	if err := q.QueryRowContext(ctx, s.rebind(query+" RETURNING id"), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// CreateProject inserts a project and returns its id.
// A zero Created time is replaced with the current time.
func (s *Store) CreateProject(ctx context.Context, p ir.Project) (int64, error) {
	if p.Created.IsZero() {
		p.Created = time.Now()
	}
	id, err := s.insertReturningID(ctx, s.db, `
		INSERT INTO projects (name, description, private, created)
		VALUES (?, ?, ?, ?)`,
		p.Name, p.Description, p.Private, formatTime(p.Created),
	)
	if err != nil {
		return 0, fmt.Errorf("create project: %w", err)
	}
	return id, nil
}

// CreateFile inserts a file and returns its id.
func (s *Store) CreateFile(ctx context.Context, f ir.File) (int64, error) {
	id, err := s.insertReturningID(ctx, s.db, `
		INSERT INTO files (project_id, name, description, md5)
		VALUES (?, ?, ?, ?)`,
		nullInt64(f.ProjectID), f.Name, f.Description, f.MD5,
	)
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}
	return id, nil
}

// CreateFileVersion inserts a file version and returns its id.
// (file, md5) is unique.
func (s *Store) CreateFileVersion(ctx context.Context, fv ir.FileVersion) (int64, error) {
	id, err := s.insertReturningID(ctx, s.db, `
		INSERT INTO file_versions (file_id, md5, complete)
		VALUES (?, ?, ?)`,
		fv.FileID, fv.MD5, fv.Complete,
	)
	if err != nil {
		return 0, fmt.Errorf("create file version: %w", err)
	}
	return id, nil
}

// CreateInstance inserts an instance and returns its id.
// (file_version, offset) is unique.
func (s *Store) CreateInstance(ctx context.Context, inst ir.Instance) (int64, error) {
	if !ir.ValidInstanceTypes[inst.Type] {
		return 0, fmt.Errorf("create instance: unknown instance type %q", inst.Type)
	}
	if inst.Size < 0 {
		return 0, fmt.Errorf("create instance: negative size %d", inst.Size)
	}
	id, err := s.insertReturningID(ctx, s.db, `
		INSERT INTO instances (file_version_id, type, "offset", size, count)
		VALUES (?, ?, ?, ?, ?)`,
		inst.FileVersionID, string(inst.Type), nullInt64(inst.Offset), inst.Size, inst.Count,
	)
	if err != nil {
		return 0, fmt.Errorf("create instance: %w", err)
	}
	return id, nil
}

// UpsertVector writes the vector of one instance for one type.
//
// An existing (instance, type) vector is replaced rather than duplicated.
// The file version is taken from the instance; v.FileVersionID is ignored.
func (s *Store) UpsertVector(ctx context.Context, v ir.Vector) (int64, error) {
	if !v.Type.Valid() {
		return 0, fmt.Errorf("upsert vector: unknown vector type %q", v.Type)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("upsert vector: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var fileVersionID int64
	err = tx.QueryRowContext(ctx, s.rebind("SELECT file_version_id FROM instances WHERE id = ?"), v.InstanceID).
		Scan(&fileVersionID)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("upsert vector: instance %d: %w", v.InstanceID, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("upsert vector: %w", err)
	}

	id, err := s.insertReturningID(ctx, tx, `
		INSERT INTO vectors (instance_id, file_version_id, type, type_version, data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (instance_id, type) DO UPDATE
		SET type_version = excluded.type_version, data = excluded.data`,
		v.InstanceID, fileVersionID, string(v.Type), v.TypeVersion, v.Data,
	)
	if err != nil {
		return 0, fmt.Errorf("upsert vector: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("upsert vector: commit: %w", err)
	}
	return id, nil
}

// CreateTask inserts a pending task and returns its id.
//
// Status, progress, run id and finished are reset: tasks always start out
// pending. Exactly one of TargetFileID and TargetProjectID must be set.
func (s *Store) CreateTask(ctx context.Context, t ir.Task) (int64, error) {
	if (t.TargetFileID == nil) == (t.TargetProjectID == nil) {
		return 0, fmt.Errorf("create task: exactly one of target file and target project must be set")
	}
	if t.Created.IsZero() {
		t.Created = time.Now()
	}
	matchers := t.Matchers
	if matchers == nil {
		matchers = []string{}
	}
	matchersJSON, err := json.Marshal(matchers)
	if err != nil {
		return 0, fmt.Errorf("create task: marshal matchers: %w", err)
	}

	id, err := s.insertReturningID(ctx, s.db, `
		INSERT INTO tasks
		(status, source_file_version_id, source_start, source_end,
		 target_file_id, target_project_id, matchers, strategy, progress, created)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		string(ir.StatusPending),
		t.SourceFileVersionID,
		nullInt64(t.SourceStart),
		nullInt64(t.SourceEnd),
		nullInt64(t.TargetFileID),
		nullInt64(t.TargetProjectID),
		string(matchersJSON),
		t.Strategy,
		formatTime(t.Created),
	)
	if err != nil {
		return 0, fmt.Errorf("create task: %w", err)
	}
	return id, nil
}

// InsertMatches writes matches in a single transaction.
// Either every match in the batch is committed or none is.
func (s *Store) InsertMatches(ctx context.Context, matches []ir.Match) error {
	if len(matches) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert matches: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, s.rebind(`
		INSERT INTO matches (task_id, from_instance_id, to_instance_id, type, score, created)
		VALUES (?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("insert matches: prepare: %w", err)
	}
	defer stmt.Close()

	for _, m := range matches {
		if _, err := stmt.ExecContext(ctx,
			m.TaskID, m.FromInstanceID, m.ToInstanceID, m.Type, m.Score, formatTime(m.Created),
		); err != nil {
			return fmt.Errorf("insert matches: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert matches: commit: %w", err)
	}
	return nil
}
