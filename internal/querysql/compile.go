package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/rematch/internal/queryir"
)

// Dialect selects placeholder syntax.
type Dialect int

const (
	// SQLite uses ? placeholders.
	SQLite Dialect = iota
	// Postgres uses $1, $2, ... placeholders.
	Postgres
)

// ParseDialect maps a database/sql driver name to its dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch driver {
	case "sqlite3":
		return SQLite, nil
	case "postgres":
		return Postgres, nil
	default:
		return 0, fmt.Errorf("unsupported driver %q", driver)
	}
}

// columns maps predicate fields to qualified columns of vectorFrom.
var columns = map[queryir.Field]string{
	queryir.FieldVectorType:    "v.type",
	queryir.FieldFileVersionID: "v.file_version_id",
	queryir.FieldFileID:        "fv.file_id",
	queryir.FieldProjectID:     "f.project_id",
	queryir.FieldInstanceType:  "i.type",
	queryir.FieldOffset:        `i."offset"`,
	queryir.FieldSize:          "i.size",
}

const vectorColumns = "v.id, v.instance_id, v.file_version_id, v.type, v.type_version, v.data"

const vectorFrom = "vectors v" +
	" JOIN instances i ON i.id = v.instance_id" +
	" JOIN file_versions fv ON fv.id = v.file_version_id" +
	" JOIN files f ON f.id = fv.file_id"

// VectorQuery selects one page of vectors matching Filter.
//
// Pages are keyset based: rows with id > AfterID, ordered by id, at most
// Limit rows. A zero Limit means no limit.
type VectorQuery struct {
	Filter  queryir.Predicate
	AfterID int64
	Limit   int
}

// SQLCompiler compiles predicates to parameterized SQL.
//
// Values are never interpolated. Every vector query is ordered by v.id.
type SQLCompiler struct {
	Dialect Dialect
}

// NewSQLCompiler creates a compiler for the dialect.
func NewSQLCompiler(d Dialect) *SQLCompiler {
	return &SQLCompiler{Dialect: d}
}

// CompileVectorQuery returns the SELECT for one page of vectors.
func (c *SQLCompiler) CompileVectorQuery(q VectorQuery) (string, []any, error) {
	where, params, err := c.CompilePredicate(q.Filter)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s WHERE (%s) AND v.id > ?", vectorColumns, vectorFrom, where)
	params = append(params, q.AfterID)
	b.WriteString(" ORDER BY v.id ASC")
	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		params = append(params, q.Limit)
	}
	return c.Rebind(b.String()), params, nil
}

// CompileVectorCount returns a SELECT COUNT(*) over vectors matching p.
func (c *SQLCompiler) CompileVectorCount(p queryir.Predicate) (string, []any, error) {
	where, params, err := c.CompilePredicate(p)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	sql := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", vectorFrom, where)
	return c.Rebind(sql), params, nil
}

// CompilePredicate compiles p to a WHERE fragment with ? placeholders.
// A nil predicate compiles to "1 = 1".
func (c *SQLCompiler) CompilePredicate(p queryir.Predicate) (string, []any, error) {
	if err := queryir.Validate(p); err != nil {
		return "", nil, err
	}
	return c.compilePredicate(p)
}

func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case queryir.Equals:
		return column(pred.Field) + " = ?", []any{pred.Value}, nil
	case *queryir.Equals:
		return c.compilePredicate(*pred)
	case queryir.NotEquals:
		return column(pred.Field) + " <> ?", []any{pred.Value}, nil
	case *queryir.NotEquals:
		return c.compilePredicate(*pred)
	case queryir.In:
		return compileIn(pred)
	case *queryir.In:
		return compileIn(*pred)
	case queryir.Between:
		return column(pred.Field) + " BETWEEN ? AND ?", []any{pred.Min, pred.Max}, nil
	case *queryir.Between:
		return c.compilePredicate(*pred)
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileIn(in queryir.In) (string, []any, error) {
	if len(in.Values) == 0 {
		return "1 = 0", nil, nil
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(in.Values)), ", ")
	params := append([]any(nil), in.Values...)
	return fmt.Sprintf("%s IN (%s)", column(in.Field), marks), params, nil
}

// compileAnd joins the parts with AND. An empty And is vacuously true.
func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, p := range and.Predicates {
		sql, ps, err := c.compilePredicate(p)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	return strings.Join(parts, " AND "), params, nil
}

func column(f queryir.Field) string {
	return columns[f]
}

// Rebind rewrites ? placeholders for the compiler's dialect.
// Question marks inside single-quoted literals are left alone.
func (c *SQLCompiler) Rebind(sql string) string {
	return Rebind(c.Dialect, sql)
}

// Rebind rewrites ? placeholders to $n for Postgres and returns sql
// unchanged for SQLite.
func Rebind(d Dialect, sql string) string {
	if d != Postgres {
		return sql
	}

	var b strings.Builder
	b.Grow(len(sql) + 8)
	n := 0
	quoted := false
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		switch {
		case ch == '\'':
			quoted = !quoted
			b.WriteByte(ch)
		case ch == '?' && !quoted:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}
