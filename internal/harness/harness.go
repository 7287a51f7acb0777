package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/roach88/rematch/internal/engine"
	"github.com/roach88/rematch/internal/fixture"
	"github.com/roach88/rematch/internal/ir"
	"github.com/roach88/rematch/internal/store"
	"github.com/roach88/rematch/internal/testutil"
)

// Harness runs one scenario against its own store.
type Harness struct {
	store    *store.Store
	runner   *engine.Runner
	imported *fixture.Result
	names    map[int64]string // instance id → fixture instance key
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh SQLite database in a temp dir. A failing
// RunMatch is not an error: it is recorded in Result.RunError and the
// task is still inspected, so failure scenarios can assert on it.
//
// Execution flow:
// 1. Create a fresh database and import the fixture
// 2. Resolve the task's fixture keys and create the task
// 3. Run the task with a deterministic clock and run id
// 4. Read back the task and its matches
// 5. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "rematch-scenario-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario dir: %w", err)
	}
	defer os.RemoveAll(dir)

	st, err := store.OpenSQLite(filepath.Join(dir, "rematch.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()

	fx, err := fixture.Load(scenario.Fixture)
	if err != nil {
		return nil, err
	}
	imported, err := fixture.Import(ctx, st, fx)
	if err != nil {
		return nil, err
	}

	opts := []engine.Option{
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
		engine.WithClock(testutil.NewDeterministicClock()),
		engine.WithRunIDs(engine.NewFixedGenerator("scenario-" + scenario.Name)),
	}
	if scenario.Engine.BatchSize > 0 {
		opts = append(opts, engine.WithBatchSize(scenario.Engine.BatchSize))
	}
	if scenario.Engine.MinScore != nil {
		opts = append(opts, engine.WithMinScore(*scenario.Engine.MinScore))
	}

	h := &Harness{
		store:    st,
		runner:   engine.New(st, opts...),
		imported: imported,
		names:    make(map[int64]string, len(imported.Instances)),
	}
	for key, id := range imported.Instances {
		h.names[id] = key
	}

	task, err := h.resolveTask(scenario.Task)
	if err != nil {
		return nil, err
	}
	task.Created = testutil.Epoch
	taskID, err := st.CreateTask(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	result := NewResult()
	if err := h.runner.RunMatch(ctx, taskID); err != nil {
		result.RunError = err.Error()
	}

	if err := h.collect(ctx, taskID, result); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// resolveTask maps the fixture keys of spec to store ids.
func (h *Harness) resolveTask(spec TaskSpec) (ir.Task, error) {
	source, ok := h.imported.Versions[spec.Source]
	if !ok {
		return ir.Task{}, fmt.Errorf("unknown source version %q", spec.Source)
	}
	task := ir.Task{
		SourceFileVersionID: source,
		SourceStart:         spec.Start,
		SourceEnd:           spec.End,
		Strategy:            spec.Strategy,
		Matchers:            spec.Matchers,
	}
	switch {
	case spec.TargetFile != "":
		id, ok := h.imported.Files[spec.TargetFile]
		if !ok {
			return ir.Task{}, fmt.Errorf("unknown target file %q", spec.TargetFile)
		}
		task.TargetFileID = ir.Int64(id)
	default:
		id, ok := h.imported.Projects[spec.TargetProject]
		if !ok {
			return ir.Task{}, fmt.Errorf("unknown target project %q", spec.TargetProject)
		}
		task.TargetProjectID = ir.Int64(id)
	}
	return task, nil
}

// collect reads the task state and its matches into result.
func (h *Harness) collect(ctx context.Context, taskID int64, result *Result) error {
	task, err := h.store.GetTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("failed to read task: %w", err)
	}
	result.Status = task.Status
	result.Progress = task.Progress
	result.ProgressMax = -1
	if task.ProgressMax != nil {
		result.ProgressMax = *task.ProgressMax
	}

	matches, err := h.store.ListMatches(ctx, taskID)
	if err != nil {
		return fmt.Errorf("failed to read matches: %w", err)
	}
	for _, m := range matches {
		result.Matches = append(result.Matches, MatchRow{
			From:  h.name(m.FromInstanceID),
			To:    h.name(m.ToInstanceID),
			Type:  m.Type,
			Score: m.Score,
		})
	}
	sort.Slice(result.Matches, func(i, j int) bool {
		a, b := result.Matches[i], result.Matches[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.To != b.To {
			return a.To < b.To
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Score < b.Score
	})
	return nil
}

func (h *Harness) name(id int64) string {
	if key, ok := h.names[id]; ok {
		return key
	}
	return fmt.Sprintf("instance#%d", id)
}
