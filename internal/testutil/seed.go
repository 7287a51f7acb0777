package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/rematch/internal/ir"
	"github.com/roach88/rematch/internal/store"
)

// OpenStore opens a fresh SQLite store in a temp dir and closes it when the
// test ends.
func OpenStore(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.OpenSQLite(filepath.Join(t.TempDir(), "rematch.db"))
	require.NoError(t, err, "open store")
	t.Cleanup(func() { s.Close() })
	return s
}

// Seeder writes fixture rows and fails the test on any error.
type Seeder struct {
	t testing.TB
	s *store.Store
}

// NewSeeder returns a seeder writing to s.
func NewSeeder(t testing.TB, s *store.Store) *Seeder {
	return &Seeder{t: t, s: s}
}

// Project creates a project.
func (sd *Seeder) Project(name string) int64 {
	sd.t.Helper()
	id, err := sd.s.CreateProject(context.Background(), ir.Project{Name: name, Created: Epoch})
	require.NoError(sd.t, err, "create project %s", name)
	return id
}

// File creates a file, in project when non-zero.
func (sd *Seeder) File(project int64, name string) int64 {
	sd.t.Helper()
	f := ir.File{Name: name, MD5: name}
	if project != 0 {
		f.ProjectID = ir.Int64(project)
	}
	id, err := sd.s.CreateFile(context.Background(), f)
	require.NoError(sd.t, err, "create file %s", name)
	return id
}

// Version creates a complete file version.
func (sd *Seeder) Version(file int64, md5 string) int64 {
	sd.t.Helper()
	id, err := sd.s.CreateFileVersion(context.Background(), ir.FileVersion{FileID: file, MD5: md5, Complete: true})
	require.NoError(sd.t, err, "create file version %s", md5)
	return id
}

// Function creates a function instance at offset with one vector per entry
// of vectors.
func (sd *Seeder) Function(version, offset, size int64, vectors map[ir.VectorType]string) int64 {
	sd.t.Helper()
	ctx := context.Background()
	id, err := sd.s.CreateInstance(ctx, ir.Instance{
		FileVersionID: version,
		Type:          ir.InstanceFunction,
		Offset:        ir.Int64(offset),
		Size:          size,
		Count:         1,
	})
	require.NoError(sd.t, err, "create instance at %#x", offset)
	for vt, data := range vectors {
		_, err := sd.s.UpsertVector(ctx, ir.Vector{InstanceID: id, Type: vt, TypeVersion: 1, Data: data})
		require.NoError(sd.t, err, "create %s vector at %#x", vt, offset)
	}
	return id
}

// Task creates a pending task.
func (sd *Seeder) Task(task ir.Task) int64 {
	sd.t.Helper()
	if task.Created.IsZero() {
		task.Created = Epoch
	}
	id, err := sd.s.CreateTask(context.Background(), task)
	require.NoError(sd.t, err, "create task")
	return id
}

// Pair is the two-file fixture most tests start from.
type Pair struct {
	Project       int64
	SourceFile    int64
	SourceVersion int64
	TargetFile    int64
	TargetVersion int64
}

// SeedPair creates a project holding a source and a target file with one
// version each.
func SeedPair(t testing.TB, s *store.Store) Pair {
	t.Helper()
	sd := NewSeeder(t, s)
	var p Pair
	p.Project = sd.Project("fixture")
	p.SourceFile = sd.File(p.Project, "source.bin")
	p.TargetFile = sd.File(p.Project, "target.bin")
	p.SourceVersion = sd.Version(p.SourceFile, "source-v1")
	p.TargetVersion = sd.Version(p.TargetFile, "target-v1")
	return p
}

// Task returns a pending task over the pair targeting the target file.
func (p Pair) Task(strategy string, matchers ...string) ir.Task {
	return ir.Task{
		SourceFileVersionID: p.SourceVersion,
		TargetFileID:        ir.Int64(p.TargetFile),
		Strategy:            strategy,
		Matchers:            matchers,
	}
}
