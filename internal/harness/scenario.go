package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines one end-to-end matching run and its expectations.
type Scenario struct {
	// Name uniquely identifies this scenario. Also the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Fixture is the path of the fixture to import. Relative paths are
	// resolved against the scenario file.
	Fixture string `yaml:"fixture"`

	// Task describes the task to run in fixture keys.
	Task TaskSpec `yaml:"task"`

	// Engine overrides runner defaults.
	Engine EngineSpec `yaml:"engine,omitempty"`

	// Assertions validate the finished task and its matches.
	Assertions []Assertion `yaml:"assertions"`
}

// TaskSpec describes a task with fixture keys instead of ids.
type TaskSpec struct {
	Source        string   `yaml:"source"`
	Start         *int64   `yaml:"start,omitempty"`
	End           *int64   `yaml:"end,omitempty"`
	TargetFile    string   `yaml:"target_file,omitempty"`
	TargetProject string   `yaml:"target_project,omitempty"`
	Strategy      string   `yaml:"strategy"`
	Matchers      []string `yaml:"matchers"`
}

// EngineSpec overrides runner options. Zero values keep the defaults.
type EngineSpec struct {
	BatchSize int      `yaml:"batch_size,omitempty"`
	MinScore  *float64 `yaml:"min_score,omitempty"`
}

// Assertion validates the outcome of a scenario.
type Assertion struct {
	// Type specifies the assertion type. See the package documentation.
	Type string `yaml:"type"`

	// Status is the expected task status (task_status).
	Status string `yaml:"status,omitempty"`

	// Progress and Max are the expected task counters (progress).
	Progress *int `yaml:"progress,omitempty"`
	Max      *int `yaml:"max,omitempty"`

	// Count is the expected number of matches (match_count).
	Count *int `yaml:"count,omitempty"`

	// From, To and MatchType select matches (match_contains, match_absent,
	// match_count). Empty fields match anything.
	From      string `yaml:"from,omitempty"`
	To        string `yaml:"to,omitempty"`
	MatchType string `yaml:"match_type,omitempty"`

	// Score is the exact score (match_contains) or the floor (min_score).
	Score *float64 `yaml:"score,omitempty"`

	// Contains is the expected error text (error_contains).
	Contains string `yaml:"contains,omitempty"`
}

// Assertion type constants.
const (
	AssertTaskStatus    = "task_status"
	AssertProgress      = "progress"
	AssertMatchCount    = "match_count"
	AssertMatchContains = "match_contains"
	AssertMatchAbsent   = "match_absent"
	AssertMinScore      = "min_score"
	AssertErrorContains = "error_contains"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Fixture != "" && !filepath.IsAbs(scenario.Fixture) {
		scenario.Fixture = filepath.Join(filepath.Dir(path), scenario.Fixture)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Description == "" {
		return errors.New("description is required")
	}
	if s.Fixture == "" {
		return errors.New("fixture is required")
	}
	if s.Task.Source == "" {
		return errors.New("task.source is required")
	}
	if (s.Task.TargetFile == "") == (s.Task.TargetProject == "") {
		return errors.New("exactly one of task.target_file and task.target_project is required")
	}
	if s.Task.Strategy == "" {
		return errors.New("task.strategy is required")
	}
	if len(s.Assertions) == 0 {
		return errors.New("assertions list is required and must be non-empty")
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertion %d: %w", i, err)
		}
	}
	return nil
}

// validateAssertion checks that an assertion carries the fields its type needs.
func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertTaskStatus:
		if a.Status == "" {
			return errors.New("task_status assertion requires 'status' field")
		}
	case AssertProgress:
		if a.Progress == nil && a.Max == nil {
			return errors.New("progress assertion requires 'progress' or 'max' field")
		}
	case AssertMatchCount:
		if a.Count == nil {
			return errors.New("match_count assertion requires 'count' field")
		}
	case AssertMatchContains, AssertMatchAbsent:
		if a.From == "" && a.To == "" && a.MatchType == "" {
			return fmt.Errorf("%s assertion requires 'from', 'to' or 'match_type' field", a.Type)
		}
	case AssertMinScore:
		if a.Score == nil {
			return errors.New("min_score assertion requires 'score' field")
		}
	case AssertErrorContains:
		if a.Contains == "" {
			return errors.New("error_contains assertion requires 'contains' field")
		}
	case "":
		return errors.New("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
