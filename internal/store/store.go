package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/rematch/internal/ir"
	"github.com/roach88/rematch/internal/querysql"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

//go:embed schema_postgres.sql
var postgresSchema string

// Sentinel errors. Callers test with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrTaskNotPending    = errors.New("task is not pending")
	ErrInvalidTransition = errors.New("invalid task status transition")
)

// Store provides durable storage for projects, files, instances, vectors,
// tasks and matches. Backed by SQLite (default) or PostgreSQL.
type Store struct {
	db       *sql.DB
	dialect  querysql.Dialect
	compiler *querysql.SQLCompiler
}

// Open connects to the database and applies the schema.
//
// driver is "sqlite3" or "postgres". For SQLite, dsn is a file path and the
// database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(driver, dsn string) (*Store, error) {
	dialect, err := querysql.ParseDialect(driver)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if dialect == querysql.SQLite {
		// SQLite only supports one writer at a time.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	}

	if err := applySchema(db, dialect); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{
		db:       db,
		dialect:  dialect,
		compiler: querysql.NewSQLCompiler(dialect),
	}, nil
}

// OpenSQLite opens a SQLite store at path.
func OpenSQLite(path string) (*Store, error) {
	return Open("sqlite3", path)
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the SQL dialect of the store.
func (s *Store) Dialect() querysql.Dialect {
	return s.dialect
}

// rebind rewrites ? placeholders for the store's dialect.
func (s *Store) rebind(query string) string {
	return querysql.Rebind(s.dialect, query)
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and records the schema
// version. This function is idempotent.
func applySchema(db *sql.DB, dialect querysql.Dialect) error {
	schema := sqliteSchema
	if dialect == querysql.Postgres {
		schema = postgresSchema
	}
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := recordVersion(db, dialect); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	return nil
}

// recordVersion stores ir.SchemaVersion. SQLite keeps it in user_version,
// PostgreSQL in the single-row schema_meta table.
func recordVersion(db *sql.DB, dialect querysql.Dialect) error {
	if dialect == querysql.SQLite {
		_, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", ir.SchemaVersion))
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM schema_meta"); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_meta (version) VALUES ($1)", ir.SchemaVersion); err != nil {
		return err
	}
	return tx.Commit()
}

// SchemaVersion reports the schema version recorded in the database.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	query := "SELECT version FROM schema_meta"
	if s.dialect == querysql.SQLite {
		query = "PRAGMA user_version"
	}
	if err := s.db.QueryRowContext(ctx, query).Scan(&version); err != nil {
		return 0, fmt.Errorf("schema version: %w", err)
	}
	return version, nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
