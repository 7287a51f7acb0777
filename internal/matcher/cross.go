package matcher

import (
	"context"
	"fmt"
)

// parsedVector is a target payload decoded once before comparison.
type parsedVector[T any] struct {
	instanceID int64
	value      T
}

// crossStream compares every source vector with every parsed target.
//
// parse returns ok=false for payloads that cannot yield a finite score;
// those vectors are skipped on either side.
type crossStream[T any] struct {
	matchType string
	parse     func(data string) (T, bool, error)
	score     func(a, b T) float64

	targets []parsedVector[T]
	source  VectorIterator

	srcInstance int64
	srcValue    T
	pos         int // next target to compare, len(targets) when exhausted
	cand        Candidate
	err         error
}

// newCrossStream parses the whole target set and returns a stream over
// source × targets.
func newCrossStream[T any](
	ctx context.Context,
	matchType string,
	source, target VectorSet,
	parse func(string) (T, bool, error),
	score func(a, b T) float64,
) (*crossStream[T], error) {
	var targets []parsedVector[T]
	it := target.Iter()
	for it.Next(ctx) {
		v := it.Vector()
		val, ok, err := parse(v.Data)
		if err != nil {
			it.Close()
			return nil, fmt.Errorf("match %s: target vector %d: %w", matchType, v.ID, err)
		}
		if ok {
			targets = append(targets, parsedVector[T]{instanceID: v.InstanceID, value: val})
		}
	}
	err := it.Err()
	it.Close()
	if err != nil {
		return nil, fmt.Errorf("match %s: read targets: %w", matchType, err)
	}

	return &crossStream[T]{
		matchType: matchType,
		parse:     parse,
		score:     score,
		targets:   targets,
		source:    source.Iter(),
		pos:       len(targets),
	}, nil
}

func (s *crossStream[T]) Next(ctx context.Context) bool {
	if s.err != nil || len(s.targets) == 0 {
		return false
	}

	for s.pos >= len(s.targets) {
		if !s.advanceSource(ctx) {
			return false
		}
	}

	t := s.targets[s.pos]
	s.pos++
	s.cand = Candidate{
		SourceInstanceID: s.srcInstance,
		TargetInstanceID: t.instanceID,
		Score:            s.score(s.srcValue, t.value),
	}
	return true
}

// advanceSource moves to the next parseable source vector.
func (s *crossStream[T]) advanceSource(ctx context.Context) bool {
	for {
		if err := ctx.Err(); err != nil {
			s.err = err
			return false
		}
		if !s.source.Next(ctx) {
			if err := s.source.Err(); err != nil {
				s.err = fmt.Errorf("match %s: read sources: %w", s.matchType, err)
			}
			return false
		}
		v := s.source.Vector()
		val, ok, err := s.parse(v.Data)
		if err != nil {
			s.err = fmt.Errorf("match %s: source vector %d: %w", s.matchType, v.ID, err)
			return false
		}
		if ok {
			s.srcInstance = v.InstanceID
			s.srcValue = val
			s.pos = 0
			return true
		}
	}
}

func (s *crossStream[T]) Candidate() Candidate { return s.cand }
func (s *crossStream[T]) Err() error           { return s.err }

func (s *crossStream[T]) Close() error {
	s.targets = nil
	return s.source.Close()
}
