package matcher

import (
	"fmt"
	"sort"

	"github.com/roach88/rematch/internal/ir"
)

// Registry is the fixed table of selectable matchers, in declaration order.
type Registry struct {
	order  []Matcher
	byType map[string]Matcher
}

// NewRegistry builds a registry from ms, keeping their order.
// It panics if a matcher is abstract or a match type is registered twice:
// both are programming errors in the table, not runtime conditions.
func NewRegistry(ms ...Matcher) *Registry {
	r := &Registry{byType: make(map[string]Matcher, len(ms))}
	for _, m := range ms {
		if m.Abstract() {
			panic(fmt.Sprintf("matcher: abstract matcher in list: %s", m.MatchType()))
		}
		if _, dup := r.byType[m.MatchType()]; dup {
			panic(fmt.Sprintf("matcher: duplicate match type: %s", m.MatchType()))
		}
		r.order = append(r.order, m)
		r.byType[m.MatchType()] = m
	}
	return r
}

// Lookup returns the matcher registered for matchType.
func (r *Registry) Lookup(matchType string) (Matcher, bool) {
	m, ok := r.byType[matchType]
	return m, ok
}

// All returns the matchers in declaration order.
func (r *Registry) All() []Matcher {
	return append([]Matcher(nil), r.order...)
}

// Unknown returns the entries of matchTypes that are not registered, in
// request order.
func (r *Registry) Unknown(matchTypes []string) []string {
	var unknown []string
	for _, t := range matchTypes {
		if _, ok := r.byType[t]; !ok {
			unknown = append(unknown, t)
		}
	}
	return unknown
}

// Descriptors returns the metadata of every registered matcher.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, len(r.order))
	for i, m := range r.order {
		out[i] = Describe(m)
	}
	return out
}

// Options tunes the default matcher table.
type Options struct {
	// HashScores overrides the confidence of hash matchers by match type.
	HashScores map[string]float64
}

// DefaultHashScores returns the built-in hash confidences.
func DefaultHashScores() map[string]float64 {
	return map[string]float64{
		"instruction_hash": ExactScore,
		"identity_hash":    ExactScore,
		"name_hash":        ExactScore,
		"assembly_hash":    FuzzyScore,
		"mnemonic_hash":    FuzzyScore,
	}
}

// ValidateHashScores checks that every key of scores names a hash matcher
// and every score is within 0-100.
func ValidateHashScores(scores map[string]float64) error {
	known := DefaultHashScores()
	keys := make([]string, 0, len(scores))
	for k := range scores {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, matchType := range keys {
		if _, ok := known[matchType]; !ok {
			return fmt.Errorf("unknown hash matcher %q", matchType)
		}
		if score := scores[matchType]; score < 0 || score > 100 {
			return fmt.Errorf("invalid hash score for %s: %g (must be 0-100)", matchType, score)
		}
	}
	return nil
}

// Default returns the built-in registry with default scores.
func Default() *Registry {
	return New(Options{})
}

// New returns the built-in registry with opts applied. Options must pass
// ValidateHashScores; keys that are not hash matchers are ignored.
func New(opts Options) *Registry {
	scores := DefaultHashScores()
	for k, v := range opts.HashScores {
		scores[k] = v
	}
	hash := func(matchType, name string, vt ir.VectorType) Matcher {
		return NewHashMatcher(matchType, name, vt, scores[matchType])
	}

	return NewRegistry(
		hash("instruction_hash", "Instruction Hash", ir.VectorInstructionHash),
		hash("identity_hash", "Identity Hash", ir.VectorIdentityHash),
		hash("name_hash", "Name Hash", ir.VectorNameHash),
		hash("assembly_hash", "Assembly Hash", ir.VectorAssemblyHash),
		hash("mnemonic_hash", "Mnemonic Hash", ir.VectorMnemonicHash),
		NewEuclideanMatcher("mnemonic_euclidean", "Mnemonic Euclidean", ir.VectorMnemonicHist),
		NewEuclideanMatcher("basicblocksize_euclidean", "Basic Block Size Euclidean", ir.VectorBasicBlockSizeHist),
		NewMDIndexMatcher(),
	)
}

// Bases returns the abstract base matchers. They are shared behaviour for
// the concrete matchers and never appear in a Registry.
func Bases() []Matcher {
	return []Matcher{
		NewHashMatcher("hash", "Hash", "", 0),
		NewEuclideanMatcher("dictionary", "Dictionary Euclidean", ""),
	}
}

// Descriptors returns the metadata of the default registry.
func Descriptors() []Descriptor {
	return Default().Descriptors()
}
