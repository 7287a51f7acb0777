package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rematch/internal/queryir"
)

func TestCompilePredicate(t *testing.T) {
	c := NewSQLCompiler(SQLite)

	tests := []struct {
		name       string
		pred       queryir.Predicate
		wantSQL    string
		wantParams []any
	}{
		{"nil", nil, "1 = 1", nil},
		{"empty and", queryir.And{}, "1 = 1", nil},
		{
			"equals",
			queryir.Equals{Field: queryir.FieldVectorType, Value: "assembly_hash"},
			"v.type = ?",
			[]any{"assembly_hash"},
		},
		{
			"not equals",
			&queryir.NotEquals{Field: queryir.FieldFileVersionID, Value: int64(7)},
			"v.file_version_id <> ?",
			[]any{int64(7)},
		},
		{
			"between",
			queryir.Between{Field: queryir.FieldSize, Min: 16, Max: 31},
			"i.size BETWEEN ? AND ?",
			[]any{int64(16), int64(31)},
		},
		{
			"offset is quoted",
			queryir.Between{Field: queryir.FieldOffset, Min: 0, Max: 10},
			`i."offset" BETWEEN ? AND ?`,
			[]any{int64(0), int64(10)},
		},
		{
			"in",
			queryir.In{Field: queryir.FieldInstanceType, Values: []any{"function", "data"}},
			"i.type IN (?, ?)",
			[]any{"function", "data"},
		},
		{"empty in", queryir.In{Field: queryir.FieldInstanceType}, "1 = 0", nil},
		{
			"conjunction",
			queryir.All(
				queryir.Equals{Field: queryir.FieldProjectID, Value: int64(1)},
				queryir.NotEquals{Field: queryir.FieldFileID, Value: int64(2)},
			),
			"f.project_id = ? AND fv.file_id <> ?",
			[]any{int64(1), int64(2)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := c.CompilePredicate(tt.pred)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantParams, params)
		})
	}
}

func TestCompilePredicate_ValuesNeverInterpolated(t *testing.T) {
	c := NewSQLCompiler(SQLite)
	sql, params, err := c.CompilePredicate(queryir.Equals{
		Field: queryir.FieldVectorType,
		Value: "x'; DROP TABLE vectors; --",
	})
	require.NoError(t, err)
	assert.NotContains(t, sql, "DROP")
	assert.Len(t, params, 1)
}

func TestCompilePredicate_Invalid(t *testing.T) {
	c := NewSQLCompiler(SQLite)
	_, _, err := c.CompilePredicate(queryir.Equals{Field: "data", Value: "x"})
	assert.Error(t, err)
}

func TestCompileVectorQuery(t *testing.T) {
	c := NewSQLCompiler(SQLite)
	sql, params, err := c.CompileVectorQuery(VectorQuery{
		Filter:  queryir.Equals{Field: queryir.FieldVectorType, Value: "name_hash"},
		AfterID: 40,
		Limit:   100,
	})
	require.NoError(t, err)

	assert.Contains(t, sql, "SELECT v.id, v.instance_id, v.file_version_id, v.type, v.type_version, v.data FROM vectors v")
	assert.Contains(t, sql, "WHERE (v.type = ?) AND v.id > ?")
	assert.Contains(t, sql, "ORDER BY v.id ASC LIMIT ?")
	assert.Equal(t, []any{"name_hash", int64(40), 100}, params)
}

func TestCompileVectorQuery_NoLimit(t *testing.T) {
	c := NewSQLCompiler(SQLite)
	sql, params, err := c.CompileVectorQuery(VectorQuery{})
	require.NoError(t, err)
	assert.NotContains(t, sql, "LIMIT")
	assert.Equal(t, []any{int64(0)}, params)
}

func TestCompileVectorCount_Postgres(t *testing.T) {
	c := NewSQLCompiler(Postgres)
	sql, params, err := c.CompileVectorCount(queryir.All(
		queryir.Equals{Field: queryir.FieldVectorType, Value: "mnemonic_hist"},
		queryir.Between{Field: queryir.FieldSize, Min: 0, Max: 15},
	))
	require.NoError(t, err)
	assert.Contains(t, sql, "SELECT COUNT(*) FROM vectors v")
	assert.Contains(t, sql, "WHERE v.type = $1 AND i.size BETWEEN $2 AND $3")
	assert.Len(t, params, 3)
}

func TestRebind(t *testing.T) {
	assert.Equal(t, "a = ? AND b = ?", Rebind(SQLite, "a = ? AND b = ?"))
	assert.Equal(t, "a = $1 AND b = $2", Rebind(Postgres, "a = ? AND b = ?"))
	assert.Equal(t, "a = '?' AND b = $1", Rebind(Postgres, "a = '?' AND b = ?"))
}

func TestParseDialect(t *testing.T) {
	d, err := ParseDialect("postgres")
	require.NoError(t, err)
	assert.Equal(t, Postgres, d)

	d, err = ParseDialect("sqlite3")
	require.NoError(t, err)
	assert.Equal(t, SQLite, d)

	_, err = ParseDialect("mysql")
	assert.Error(t, err)
}
