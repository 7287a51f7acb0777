package matcher

import (
	"context"

	"github.com/roach88/rematch/internal/ir"
	"github.com/roach88/rematch/internal/queryir"
)

// Matcher produces scored candidate pairs from two vector sets.
type Matcher interface {
	// MatchType is the stable identifier stored on Match rows.
	MatchType() string

	// Name is the display name.
	Name() string

	// VectorType is the category of vectors the matcher consumes.
	VectorType() ir.VectorType

	// Abstract reports whether the matcher is a shared base that cannot be
	// selected.
	Abstract() bool

	// Filter narrows candidate vectors beyond the category. Nil means no
	// extra restriction.
	Filter() queryir.Predicate

	// Match starts comparing source against target. The returned stream is
	// single-pass and must be closed.
	Match(ctx context.Context, source, target VectorSet) (Stream, error)
}

// VectorSet is a collection of vectors that can be counted and iterated
// any number of times.
type VectorSet interface {
	Count(ctx context.Context) (int, error)
	Iter() VectorIterator
}

// VectorIterator walks a VectorSet once.
type VectorIterator interface {
	Next(ctx context.Context) bool
	Vector() ir.Vector
	Err() error
	Close() error
}

// Candidate is one scored pair emitted by a matcher.
type Candidate struct {
	SourceInstanceID int64
	TargetInstanceID int64
	Score            float64
}

// Stream is a single-pass, pull-based sequence of candidates.
//
//	for s.Next(ctx) {
//		c := s.Candidate()
//	}
//	err := s.Err()
type Stream interface {
	Next(ctx context.Context) bool
	Candidate() Candidate
	Err() error
	Close() error
}

// Descriptor is the registry metadata of a matcher.
type Descriptor struct {
	MatchType  string        `json:"match_type"`
	Name       string        `json:"name"`
	VectorType ir.VectorType `json:"vector_type"`
	Abstract   bool          `json:"abstract"`
}

// Describe returns the descriptor of m.
func Describe(m Matcher) Descriptor {
	return Descriptor{
		MatchType:  m.MatchType(),
		Name:       m.Name(),
		VectorType: m.VectorType(),
		Abstract:   m.Abstract(),
	}
}

// info carries the identity shared by every matcher implementation.
// An empty vector type marks an abstract base.
type info struct {
	matchType  string
	name       string
	vectorType ir.VectorType
	filter     queryir.Predicate
}

func (i info) MatchType() string         { return i.matchType }
func (i info) Name() string              { return i.name }
func (i info) VectorType() ir.VectorType { return i.vectorType }
func (i info) Abstract() bool            { return i.vectorType == "" }
func (i info) Filter() queryir.Predicate { return i.filter }
