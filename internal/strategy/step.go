package strategy

import (
	"fmt"

	"github.com/roach88/rematch/internal/matcher"
	"github.com/roach88/rematch/internal/queryir"
)

// Bin is an inclusive instance size range.
type Bin struct {
	Min int64
	Max int64
}

// Step runs one matcher over the vectors selected by its filters.
type Step struct {
	matcher matcher.Matcher
	scope   Scope
	bin     *Bin
}

// NewStep creates a step with no size restriction.
func NewStep(scope Scope, m matcher.Matcher) Step {
	return Step{matcher: m, scope: scope}
}

// NewBinningStep creates a step restricted to instances with
// minSize <= size <= maxSize on both sides. minSize must be below maxSize.
func NewBinningStep(scope Scope, m matcher.Matcher, minSize, maxSize int64) (Step, error) {
	if minSize >= maxSize {
		return Step{}, configErrorf("bin", "invalid bin sizes [%d, %d]", minSize, maxSize)
	}
	return Step{matcher: m, scope: scope, bin: &Bin{Min: minSize, Max: maxSize}}, nil
}

// Matcher returns the step's matcher.
func (s Step) Matcher() matcher.Matcher {
	return s.matcher
}

// MatchType returns the match type stamped on the step's matches.
func (s Step) MatchType() string {
	return s.matcher.MatchType()
}

// Bin returns the size range of a binning step.
func (s Step) Bin() (Bin, bool) {
	if s.bin == nil {
		return Bin{}, false
	}
	return *s.bin, true
}

// Filter is the matcher's category and extra filter, plus the size bin.
func (s Step) Filter() queryir.Predicate {
	preds := []queryir.Predicate{
		queryir.Equals{Field: queryir.FieldVectorType, Value: string(s.matcher.VectorType())},
		s.matcher.Filter(),
	}
	if s.bin != nil {
		preds = append(preds, queryir.Between{Field: queryir.FieldSize, Min: s.bin.Min, Max: s.bin.Max})
	}
	return queryir.All(preds...)
}

// SourceFilter selects the source vectors of the step.
func (s Step) SourceFilter() queryir.Predicate {
	return queryir.All(s.Filter(), s.scope.SourceFilter())
}

// TargetFilter selects the target vectors of the step.
func (s Step) TargetFilter() queryir.Predicate {
	return queryir.All(s.Filter(), s.scope.TargetFilter())
}

func (s Step) String() string {
	if s.bin != nil {
		return fmt.Sprintf("<BinningStep; matcher=%s; size=[%d,%d]>", s.MatchType(), s.bin.Min, s.bin.Max)
	}
	return fmt.Sprintf("<Step; matcher=%s>", s.MatchType())
}
