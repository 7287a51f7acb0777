package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rematch/internal/ir"
	"github.com/roach88/rematch/internal/queryir"
)

func collect(t *testing.T, vs *VectorSet) []ir.Vector {
	t.Helper()
	ctx := context.Background()
	it := vs.Iter()
	defer it.Close()

	var out []ir.Vector
	for it.Next(ctx) {
		out = append(out, it.Vector())
	}
	require.NoError(t, it.Err())
	return out
}

func TestVectorSet_PagesCoverEverything(t *testing.T) {
	s := createTestStore(t)
	ids := seedStore(t, s)
	filter := queryir.Equals{Field: queryir.FieldVectorType, Value: string(ir.VectorAssemblyHash)}

	all := collect(t, s.Vectors(filter, 0))
	require.Len(t, all, 5)

	for _, pageSize := range []int{1, 2, 4, 5, 6} {
		got := collect(t, s.Vectors(filter, pageSize))
		assert.Equal(t, all, got, "page size %d", pageSize)
	}

	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].ID, all[i].ID)
	}
	assert.Equal(t, ids.srcVersion, all[0].FileVersionID)
}

func TestVectorSet_Count(t *testing.T) {
	s := createTestStore(t)
	ids := seedStore(t, s)

	n, err := s.Vectors(queryir.Equals{Field: queryir.FieldFileVersionID, Value: ids.tgtVersion}, 0).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestVectorSet_IterRestarts(t *testing.T) {
	s := createTestStore(t)
	seedStore(t, s)
	vs := s.Vectors(nil, 2)

	first := collect(t, vs)
	second := collect(t, vs)
	assert.Equal(t, first, second)
}

func TestVectorSet_CanceledContext(t *testing.T) {
	s := createTestStore(t)
	seedStore(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	it := s.Vectors(nil, 2).Iter()
	assert.False(t, it.Next(ctx))
	assert.ErrorIs(t, it.Err(), context.Canceled)
}

func TestVectorSet_WritesBetweenPages(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	ids := seedStore(t, s)
	taskID := createTestTask(t, s, ids)

	it := s.Vectors(nil, 1).Iter()
	defer it.Close()
	n := 0
	for it.Next(ctx) {
		v := it.Vector()
		require.NoError(t, s.InsertMatches(ctx, []ir.Match{{
			TaskID: taskID, FromInstanceID: v.InstanceID, ToInstanceID: v.InstanceID,
			Type: "assembly_hash", Score: 100, Created: testTime,
		}}))
		n++
	}
	require.NoError(t, it.Err())
	assert.Equal(t, 5, n)
}

// TestVectorSet_AgreesWithEval checks that the SQL compiled for a predicate
// selects exactly the rows queryir.Eval accepts.
func TestVectorSet_AgreesWithEval(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	ids := seedStore(t, s)

	universal, err := s.CreateInstance(ctx, ir.Instance{FileVersionID: ids.tgtVersion, Type: ir.InstanceUniversal})
	require.NoError(t, err)
	_, err = s.UpsertVector(ctx, ir.Vector{InstanceID: universal, Type: ir.VectorAssemblyHash, Data: "deadbeef"})
	require.NoError(t, err)

	loose, err := s.CreateFile(ctx, ir.File{Name: "loose.bin", MD5: "cc"})
	require.NoError(t, err)
	looseVersion, err := s.CreateFileVersion(ctx, ir.FileVersion{FileID: loose, MD5: "cc1"})
	require.NoError(t, err)
	looseInst, err := s.CreateInstance(ctx, ir.Instance{FileVersionID: looseVersion, Type: ir.InstanceData, Offset: ir.Int64(8), Size: 16})
	require.NoError(t, err)
	_, err = s.UpsertVector(ctx, ir.Vector{InstanceID: looseInst, Type: ir.VectorMnemonicHist, Data: `{"mov":1}`})
	require.NoError(t, err)

	rows := loadRows(t, s)
	require.Len(t, rows, 7)

	preds := map[string]queryir.Predicate{
		"everything":  nil,
		"project":     queryir.Equals{Field: queryir.FieldProjectID, Value: ids.project},
		"not project": queryir.NotEquals{Field: queryir.FieldProjectID, Value: ids.project},
		"target file minus source version": queryir.All(
			queryir.Equals{Field: queryir.FieldFileID, Value: ids.srcFile},
			queryir.NotEquals{Field: queryir.FieldFileVersionID, Value: ids.srcVersion},
		),
		"offset range": queryir.Between{Field: queryir.FieldOffset, Min: 0x1000, Max: 0x2000},
		"size bin":     queryir.Between{Field: queryir.FieldSize, Min: 16, Max: 31},
		"types":        queryir.In{Field: queryir.FieldInstanceType, Values: []any{"data", "universal"}},
		"none":         queryir.In{Field: queryir.FieldInstanceType},
		"category": queryir.All(
			queryir.Equals{Field: queryir.FieldVectorType, Value: "assembly_hash"},
			queryir.Between{Field: queryir.FieldSize, Min: 0, Max: 15},
		),
	}

	for name, pred := range preds {
		t.Run(name, func(t *testing.T) {
			var want []int64
			for _, r := range rows {
				ok, err := queryir.Eval(pred, r.row)
				require.NoError(t, err)
				if ok {
					want = append(want, r.vectorID)
				}
			}

			var got []int64
			for _, v := range collect(t, s.Vectors(pred, 2)) {
				got = append(got, v.ID)
			}
			assert.Equal(t, want, got)

			n, err := s.Vectors(pred, 0).Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, len(want), n)
		})
	}
}

type evalRow struct {
	vectorID int64
	row      queryir.Row
}

// loadRows reads every vector row in id order for in-memory evaluation.
func loadRows(t *testing.T, s *Store) []evalRow {
	t.Helper()
	rows, err := s.db.Query(`
		SELECT v.id, v.type, v.file_version_id, fv.file_id, f.project_id, i.type, i."offset", i.size
		FROM vectors v
		JOIN instances i ON i.id = v.instance_id
		JOIN file_versions fv ON fv.id = v.file_version_id
		JOIN files f ON f.id = fv.file_id
		ORDER BY v.id`)
	require.NoError(t, err)
	defer rows.Close()

	var out []evalRow
	for rows.Next() {
		var r evalRow
		var project, offset *int64
		require.NoError(t, rows.Scan(&r.vectorID, &r.row.VectorType, &r.row.FileVersionID, &r.row.FileID,
			&project, &r.row.InstanceType, &offset, &r.row.Size))
		r.row.ProjectID = project
		r.row.Offset = offset
		out = append(out, r)
	}
	require.NoError(t, rows.Err())
	return out
}
