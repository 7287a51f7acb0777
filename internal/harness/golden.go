package harness

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/rematch/internal/ir"
)

// Snapshot is the golden representation of a scenario run.
type Snapshot struct {
	Scenario    string        `json:"scenario"`
	Status      ir.TaskStatus `json:"status"`
	Progress    int           `json:"progress"`
	ProgressMax int           `json:"progress_max"`
	Matches     []MatchRow    `json:"matches"`
}

// NewSnapshot builds the snapshot of result for the named scenario.
func NewSnapshot(name string, result *Result) Snapshot {
	matches := result.Matches
	if matches == nil {
		matches = []MatchRow{}
	}
	return Snapshot{
		Scenario:    name,
		Status:      result.Status,
		Progress:    result.Progress,
		ProgressMax: result.ProgressMax,
		Matches:     matches,
	}
}

// Marshal encodes the snapshot as indented JSON with a trailing newline.
func (s Snapshot) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	data, err := NewSnapshot(scenario.Name, result).Marshal()
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return result, nil
}
