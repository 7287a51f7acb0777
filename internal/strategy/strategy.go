package strategy

import (
	"fmt"
	"math"
	"strings"

	"github.com/roach88/rematch/internal/ir"
	"github.com/roach88/rematch/internal/matcher"
	"github.com/roach88/rematch/internal/queryir"
)

// Strategy types.
const (
	AllStrategy     = "all_strategy"
	BinningStrategy = "binning_strategy"
)

// Strategy is the ordered plan of steps for one task run.
type Strategy struct {
	kind     Kind
	scope    Scope
	matchers []matcher.Matcher
	steps    []Step
}

// Kind describes one strategy type and how it lays out steps.
type Kind struct {
	Type  string
	Name  string
	steps func(scope Scope, ms []matcher.Matcher) ([]Step, error)
}

// Abstract reports whether the kind lacks a step layout.
func (k Kind) Abstract() bool {
	return k.steps == nil
}

// Flat is the all_strategy kind: one step per matcher.
var Flat = Kind{
	Type: AllStrategy,
	Name: "All",
	steps: func(scope Scope, ms []matcher.Matcher) ([]Step, error) {
		steps := make([]Step, 0, len(ms))
		for _, m := range ms {
			steps = append(steps, NewStep(scope, m))
		}
		return steps, nil
	},
}

// Binning is the binning_strategy kind: one step per matcher and bin.
var Binning = Kind{
	Type: BinningStrategy,
	Name: "Binning",
	steps: func(scope Scope, ms []matcher.Matcher) ([]Step, error) {
		bins := Bins()
		steps := make([]Step, 0, len(ms)*len(bins))
		for _, m := range ms {
			for _, b := range bins {
				step, err := NewBinningStep(scope, m, b.Min, b.Max)
				if err != nil {
					return nil, err
				}
				steps = append(steps, step)
			}
		}
		return steps, nil
	},
}

// Bins returns the fixed size buckets of the binning strategy:
// [0,15], [16,31], [32,63], ... [32768,65535], [65536, max int64].
func Bins() []Bin {
	bins := []Bin{{Min: 0, Max: 15}}
	for lo := int64(16); lo < 65536; lo *= 2 {
		bins = append(bins, Bin{Min: lo, Max: lo*2 - 1})
	}
	return append(bins, Bin{Min: 65536, Max: math.MaxInt64})
}

// New builds the strategy for a task.
//
// Every requested matcher type must be registered and the strategy type
// must be known; otherwise a *ConfigError is returned and nothing has run.
// Steps follow the registry's declaration order; duplicate requests run
// once.
func New(reg *matcher.Registry, kinds *Registry, t ir.Task) (*Strategy, error) {
	if unknown := reg.Unknown(t.Matchers); len(unknown) > 0 {
		return nil, configErrorf("matchers", "unfamiliar matchers were requested: %s", strings.Join(unknown, ", "))
	}

	kind, ok := kinds.Lookup(t.Strategy)
	if !ok {
		return nil, configErrorf("strategy", "unknown strategy %q", t.Strategy)
	}

	scope := ScopeOf(t)
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	requested := make(map[string]bool, len(t.Matchers))
	for _, mt := range t.Matchers {
		requested[mt] = true
	}
	var ms []matcher.Matcher
	for _, m := range reg.All() {
		if requested[m.MatchType()] {
			ms = append(ms, m)
		}
	}

	steps, err := kind.steps(scope, ms)
	if err != nil {
		return nil, err
	}

	return &Strategy{kind: kind, scope: scope, matchers: ms, steps: steps}, nil
}

// Type returns the strategy type.
func (s *Strategy) Type() string {
	return s.kind.Type
}

// Matchers returns the matchers the strategy runs, in step order.
func (s *Strategy) Matchers() []matcher.Matcher {
	return append([]matcher.Matcher(nil), s.matchers...)
}

// OrderedSteps returns the steps in execution order: matcher declaration
// order, then bin order.
func (s *Strategy) OrderedSteps() []Step {
	return append([]Step(nil), s.steps...)
}

// SourceFilter returns the scope predicate for source vectors.
func (s *Strategy) SourceFilter() queryir.Predicate {
	return s.scope.SourceFilter()
}

// TargetFilter returns the scope predicate for target vectors.
func (s *Strategy) TargetFilter() queryir.Predicate {
	return s.scope.TargetFilter()
}

func (s *Strategy) String() string {
	return fmt.Sprintf("<%s; steps=%d>", s.kind.Type, len(s.steps))
}
