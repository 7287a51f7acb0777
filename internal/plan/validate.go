package plan

import (
	"fmt"

	"github.com/roach88/rematch/internal/ir"
	"github.com/roach88/rematch/internal/matcher"
	"github.com/roach88/rematch/internal/strategy"
)

// Validation error codes (E100-E199)
const (
	ErrUnknownMatcher  = "E101" // matcher not in the registry
	ErrUnknownStrategy = "E102" // strategy not in the registry
	ErrInvalidScope    = "E103" // target missing or doubled, inverted range
	ErrDuplicate       = "E104" // matcher requested twice
)

// ValidationError represents a plan validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled task against the registries.
// Returns all errors found (does not fail-fast).
func Validate(t ir.Task, matchers *matcher.Registry, strategies *strategy.Registry) []ValidationError {
	var errs []ValidationError

	seen := make(map[string]bool, len(t.Matchers))
	for i, mt := range t.Matchers {
		field := fmt.Sprintf("matchers[%d]", i)
		if _, ok := matchers.Lookup(mt); !ok {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("unfamiliar matcher %q", mt),
				Code:    ErrUnknownMatcher,
			})
		}
		if seen[mt] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("matcher %q requested more than once", mt),
				Code:    ErrDuplicate,
			})
		}
		seen[mt] = true
	}

	if _, ok := strategies.Lookup(t.Strategy); !ok {
		errs = append(errs, ValidationError{
			Field:   "strategy",
			Message: fmt.Sprintf("unknown strategy %q", t.Strategy),
			Code:    ErrUnknownStrategy,
		})
	}

	if err := strategy.ScopeOf(t).Validate(); err != nil {
		errs = append(errs, ValidationError{
			Field:   "scope",
			Message: err.Error(),
			Code:    ErrInvalidScope,
		})
	}

	return errs
}
