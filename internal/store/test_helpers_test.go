package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/rematch/internal/ir"
)

// createTestStore creates a new SQLite store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// seeded holds the ids created by seedStore.
type seeded struct {
	project      int64
	srcFile      int64
	srcVersion   int64
	tgtFile      int64
	tgtVersion   int64
	otherVersion int64 // second version of the source file
	srcInst      []int64
	tgtInst      []int64
}

// seedStore creates one project with a source file (two versions) and a
// target file. Each version gets function instances with assembly_hash
// vectors.
func seedStore(t *testing.T, s *Store) seeded {
	t.Helper()
	ctx := context.Background()
	var out seeded
	var err error

	out.project, err = s.CreateProject(ctx, ir.Project{Name: "proj", Created: testTime})
	require.NoError(t, err)
	out.srcFile, err = s.CreateFile(ctx, ir.File{ProjectID: ir.Int64(out.project), Name: "a.exe", MD5: "aa"})
	require.NoError(t, err)
	out.tgtFile, err = s.CreateFile(ctx, ir.File{ProjectID: ir.Int64(out.project), Name: "b.exe", MD5: "bb"})
	require.NoError(t, err)
	out.srcVersion, err = s.CreateFileVersion(ctx, ir.FileVersion{FileID: out.srcFile, MD5: "aa1", Complete: true})
	require.NoError(t, err)
	out.otherVersion, err = s.CreateFileVersion(ctx, ir.FileVersion{FileID: out.srcFile, MD5: "aa2", Complete: true})
	require.NoError(t, err)
	out.tgtVersion, err = s.CreateFileVersion(ctx, ir.FileVersion{FileID: out.tgtFile, MD5: "bb1", Complete: true})
	require.NoError(t, err)

	addInstance := func(fv, offset, size int64, data string) int64 {
		id, err := s.CreateInstance(ctx, ir.Instance{
			FileVersionID: fv,
			Type:          ir.InstanceFunction,
			Offset:        ir.Int64(offset),
			Size:          size,
			Count:         size / 4,
		})
		require.NoError(t, err)
		_, err = s.UpsertVector(ctx, ir.Vector{InstanceID: id, Type: ir.VectorAssemblyHash, TypeVersion: 1, Data: data})
		require.NoError(t, err)
		return id
	}

	out.srcInst = append(out.srcInst,
		addInstance(out.srcVersion, 0x1000, 10, "deadbeef"),
		addInstance(out.srcVersion, 0x2000, 20, "deadbeef"),
	)
	out.tgtInst = append(out.tgtInst,
		addInstance(out.tgtVersion, 0x1000, 10, "deadbeef"),
		addInstance(out.tgtVersion, 0x3000, 40, "cafebabe"),
	)
	addInstance(out.otherVersion, 0x1000, 10, "deadbeef")

	return out
}

// createTestTask inserts a pending task from srcVersion to the target file.
func createTestTask(t *testing.T, s *Store, ids seeded) int64 {
	t.Helper()
	id, err := s.CreateTask(context.Background(), ir.Task{
		SourceFileVersionID: ids.srcVersion,
		TargetFileID:        ir.Int64(ids.tgtFile),
		Matchers:            []string{"assembly_hash"},
		Strategy:            "all_strategy",
		Created:             testTime,
	})
	require.NoError(t, err)
	return id
}
