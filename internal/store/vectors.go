package store

import (
	"context"
	"fmt"

	"github.com/roach88/rematch/internal/ir"
	"github.com/roach88/rematch/internal/queryir"
	"github.com/roach88/rematch/internal/querysql"
)

// DefaultPageSize is the number of vectors fetched per page.
const DefaultPageSize = 5000

// VectorSet is a lazily read collection of vectors matching a filter.
// It holds no database resources until iterated.
type VectorSet struct {
	store    *Store
	filter   queryir.Predicate
	pageSize int
}

// Vectors returns the set of vectors matching filter, read pageSize rows at
// a time. A non-positive pageSize uses DefaultPageSize.
func (s *Store) Vectors(filter queryir.Predicate, pageSize int) *VectorSet {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &VectorSet{store: s, filter: filter, pageSize: pageSize}
}

// Filter returns the predicate of the set.
func (vs *VectorSet) Filter() queryir.Predicate {
	return vs.filter
}

// Count returns the number of vectors in the set.
func (vs *VectorSet) Count(ctx context.Context) (int, error) {
	query, params, err := vs.store.compiler.CompileVectorCount(vs.filter)
	if err != nil {
		return 0, fmt.Errorf("count vectors: %w", err)
	}
	var n int
	if err := vs.store.db.QueryRowContext(ctx, query, params...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count vectors: %w", err)
	}
	return n, nil
}

// Iter returns a new iterator positioned before the first vector.
// Each call starts over from the beginning.
func (vs *VectorSet) Iter() *VectorIterator {
	return &VectorIterator{set: vs}
}

// VectorIterator walks a VectorSet in id order, one page at a time.
type VectorIterator struct {
	set    *VectorSet
	page   []ir.Vector
	pos    int
	lastID int64
	done   bool
	cur    ir.Vector
	err    error
}

// Next advances to the next vector, fetching a new page when the current
// one is exhausted. It returns false at the end of the set or on error.
func (it *VectorIterator) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	if it.pos >= len(it.page) {
		if it.done {
			return false
		}
		if err := it.fetch(ctx); err != nil {
			it.err = err
			return false
		}
		if len(it.page) == 0 {
			return false
		}
	}
	it.cur = it.page[it.pos]
	it.pos++
	return true
}

func (it *VectorIterator) fetch(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	query, params, err := it.set.store.compiler.CompileVectorQuery(querysql.VectorQuery{
		Filter:  it.set.filter,
		AfterID: it.lastID,
		Limit:   it.set.pageSize,
	})
	if err != nil {
		return fmt.Errorf("read vectors: %w", err)
	}

	rows, err := it.set.store.db.QueryContext(ctx, query, params...)
	if err != nil {
		return fmt.Errorf("read vectors: %w", err)
	}
	defer rows.Close()

	it.page = it.page[:0]
	it.pos = 0
	for rows.Next() {
		var v ir.Vector
		var typ string
		if err := rows.Scan(&v.ID, &v.InstanceID, &v.FileVersionID, &typ, &v.TypeVersion, &v.Data); err != nil {
			return fmt.Errorf("scan vector: %w", err)
		}
		v.Type = ir.VectorType(typ)
		it.page = append(it.page, v)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate vectors: %w", err)
	}

	if len(it.page) < it.set.pageSize {
		it.done = true
	}
	if len(it.page) > 0 {
		it.lastID = it.page[len(it.page)-1].ID
	}
	return nil
}

// Vector returns the current vector.
func (it *VectorIterator) Vector() ir.Vector {
	return it.cur
}

// Err returns the first error encountered while iterating.
func (it *VectorIterator) Err() error {
	return it.err
}

// Close releases the iterator. No cursor is held between pages, so Close
// only drops the buffered page.
func (it *VectorIterator) Close() error {
	it.page = nil
	it.done = true
	return nil
}
