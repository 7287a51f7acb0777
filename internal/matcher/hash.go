package matcher

import (
	"context"
	"fmt"

	"github.com/roach88/rematch/internal/ir"
)

// Default confidences of the hash family.
const (
	ExactScore = 100.0
	FuzzyScore = 70.0
)

// HashMatcher pairs vectors whose payloads are byte-identical.
type HashMatcher struct {
	info
	score float64
}

// NewHashMatcher creates a hash matcher emitting score for every hit.
// An empty vectorType creates the abstract base.
func NewHashMatcher(matchType, name string, vectorType ir.VectorType, score float64) *HashMatcher {
	return &HashMatcher{
		info:  info{matchType: matchType, name: name, vectorType: vectorType},
		score: score,
	}
}

// Score returns the confidence assigned to every hit.
func (m *HashMatcher) Score() float64 {
	return m.score
}

// targetRef is one indexed target vector.
type targetRef struct {
	vectorID   int64
	instanceID int64
}

// Match indexes the target set by payload, then streams the source set.
func (m *HashMatcher) Match(ctx context.Context, source, target VectorSet) (Stream, error) {
	if m.Abstract() {
		return nil, fmt.Errorf("match %s: abstract matcher", m.matchType)
	}

	index := make(map[string][]targetRef)
	it := target.Iter()
	for it.Next(ctx) {
		v := it.Vector()
		index[v.Data] = append(index[v.Data], targetRef{vectorID: v.ID, instanceID: v.InstanceID})
	}
	err := it.Err()
	it.Close()
	if err != nil {
		return nil, fmt.Errorf("match %s: read targets: %w", m.matchType, err)
	}

	return &hashStream{
		matchType: m.matchType,
		score:     m.score,
		index:     index,
		source:    source.Iter(),
	}, nil
}

// hashStream emits one candidate per (source vector, matching target).
type hashStream struct {
	matchType string
	score     float64
	index     map[string][]targetRef

	source  VectorIterator
	current int64       // source instance of pending
	pending []targetRef // hits of the current source vector not yet emitted
	cand    Candidate
	err     error
}

func (s *hashStream) Next(ctx context.Context) bool {
	for len(s.pending) == 0 {
		if s.err != nil || !s.source.Next(ctx) {
			if s.err == nil && s.source.Err() != nil {
				s.err = fmt.Errorf("match %s: read sources: %w", s.matchType, s.source.Err())
			}
			return false
		}
		v := s.source.Vector()
		s.current = v.InstanceID
		s.pending = s.index[v.Data]
	}

	ref := s.pending[0]
	s.pending = s.pending[1:]
	s.cand = Candidate{SourceInstanceID: s.current, TargetInstanceID: ref.instanceID, Score: s.score}
	return true
}

func (s *hashStream) Candidate() Candidate { return s.cand }
func (s *hashStream) Err() error           { return s.err }

func (s *hashStream) Close() error {
	s.pending = nil
	return s.source.Close()
}
