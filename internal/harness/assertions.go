package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes the match list to help debug the failure.
type AssertionError struct {
	Type     string     // Assertion type for categorization
	Expected string     // Human-readable expected outcome
	Actual   string     // Human-readable actual outcome
	Matches  []MatchRow // Matches of the task for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Matches) > 0 {
		fmt.Fprintf(&buf, "\nMatches:\n")
		for i, m := range e.Matches {
			fmt.Fprintf(&buf, "  [%d] %s -> %s %s %g\n", i+1, m.From, m.To, m.Type, m.Score)
		}
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion against result and returns the
// failure messages in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %s", i, err.Error()))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertTaskStatus:
		return assertTaskStatus(result, a)
	case AssertProgress:
		return assertProgress(result, a)
	case AssertMatchCount:
		return assertMatchCount(result, a)
	case AssertMatchContains:
		return assertMatchContains(result, a)
	case AssertMatchAbsent:
		return assertMatchAbsent(result, a)
	case AssertMinScore:
		return assertMinScore(result, a)
	case AssertErrorContains:
		return assertErrorContains(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertTaskStatus(result *Result, a Assertion) error {
	if string(result.Status) == a.Status {
		return nil
	}
	actual := string(result.Status)
	if result.RunError != "" {
		actual += " (" + result.RunError + ")"
	}
	return &AssertionError{Type: a.Type, Expected: a.Status, Actual: actual}
}

func assertProgress(result *Result, a Assertion) error {
	if a.Progress != nil && *a.Progress != result.Progress {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("progress %d", *a.Progress),
			Actual:   fmt.Sprintf("progress %d", result.Progress),
		}
	}
	if a.Max != nil && *a.Max != result.ProgressMax {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("max %d", *a.Max),
			Actual:   fmt.Sprintf("max %d", result.ProgressMax),
		}
	}
	return nil
}

func assertMatchCount(result *Result, a Assertion) error {
	n := 0
	for _, m := range result.Matches {
		if a.MatchType == "" || m.Type == a.MatchType {
			n++
		}
	}
	if n == *a.Count {
		return nil
	}
	expected := fmt.Sprintf("%d matches", *a.Count)
	if a.MatchType != "" {
		expected += " of type " + a.MatchType
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: expected,
		Actual:   fmt.Sprintf("%d", n),
		Matches:  result.Matches,
	}
}

// selects reports whether m has the from, to and type of a. Empty fields
// match anything.
func selects(a Assertion, m MatchRow) bool {
	return (a.From == "" || m.From == a.From) &&
		(a.To == "" || m.To == a.To) &&
		(a.MatchType == "" || m.Type == a.MatchType)
}

func describe(a Assertion) string {
	var parts []string
	if a.From != "" {
		parts = append(parts, "from "+a.From)
	}
	if a.To != "" {
		parts = append(parts, "to "+a.To)
	}
	if a.MatchType != "" {
		parts = append(parts, "type "+a.MatchType)
	}
	if a.Score != nil {
		parts = append(parts, fmt.Sprintf("score %g", *a.Score))
	}
	return "match " + strings.Join(parts, ", ")
}

func assertMatchContains(result *Result, a Assertion) error {
	for _, m := range result.Matches {
		if selects(a, m) && (a.Score == nil || m.Score == *a.Score) {
			return nil
		}
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: describe(a),
		Actual:   "not found",
		Matches:  result.Matches,
	}
}

func assertMatchAbsent(result *Result, a Assertion) error {
	for _, m := range result.Matches {
		if selects(a, m) {
			return &AssertionError{
				Type:     a.Type,
				Expected: "no " + describe(a),
				Actual:   fmt.Sprintf("%s -> %s %s %g", m.From, m.To, m.Type, m.Score),
			}
		}
	}
	return nil
}

func assertMinScore(result *Result, a Assertion) error {
	for _, m := range result.Matches {
		if m.Score < *a.Score {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("every score >= %g", *a.Score),
				Actual:   fmt.Sprintf("%s -> %s %s %g", m.From, m.To, m.Type, m.Score),
			}
		}
	}
	return nil
}

func assertErrorContains(result *Result, a Assertion) error {
	if result.RunError != "" && strings.Contains(result.RunError, a.Contains) {
		return nil
	}
	actual := result.RunError
	if actual == "" {
		actual = "no error"
	}
	return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("error containing %q", a.Contains), Actual: actual}
}
