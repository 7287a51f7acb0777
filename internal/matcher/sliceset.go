package matcher

import (
	"context"

	"github.com/roach88/rematch/internal/ir"
)

// SliceSet is an in-memory VectorSet.
type SliceSet []ir.Vector

// Count returns the number of vectors.
func (s SliceSet) Count(context.Context) (int, error) {
	return len(s), nil
}

// Iter returns an iterator over the slice.
func (s SliceSet) Iter() VectorIterator {
	return &sliceIterator{vectors: s, pos: -1}
}

type sliceIterator struct {
	vectors []ir.Vector
	pos     int
	err     error
}

func (it *sliceIterator) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		it.err = err
		return false
	}
	if it.pos+1 >= len(it.vectors) {
		it.pos = len(it.vectors)
		return false
	}
	it.pos++
	return true
}

func (it *sliceIterator) Vector() ir.Vector { return it.vectors[it.pos] }
func (it *sliceIterator) Err() error        { return it.err }
func (it *sliceIterator) Close() error      { return nil }
