package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/roach88/rematch/internal/engine"
	"github.com/roach88/rematch/internal/ir"
	"github.com/roach88/rematch/internal/plan"
	"github.com/roach88/rematch/internal/store"
	"github.com/roach88/rematch/internal/strategy"
	"github.com/roach88/rematch/internal/worker"
)

// NewTaskCommand creates the task command group.
func NewTaskCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Create, run and inspect matching tasks",
	}
	cmd.AddCommand(newTaskCreateCommand(rootOpts))
	cmd.AddCommand(newTaskRunCommand(rootOpts))
	cmd.AddCommand(newTaskShowCommand(rootOpts))
	cmd.AddCommand(newTaskListCommand(rootOpts))
	cmd.AddCommand(newTaskMatchesCommand(rootOpts))
	return cmd
}

// TaskCreateOptions holds flags for the task create command.
type TaskCreateOptions struct {
	*RootOptions
	Dispatch bool // publish the task to the worker subject
}

// CreateResult reports a created task.
type CreateResult struct {
	TaskID     int64  `json:"task_id"`
	Strategy   string `json:"strategy"`
	Matchers   int    `json:"matchers"`
	Dispatched bool   `json:"dispatched"`
}

func (r CreateResult) String() string {
	s := fmt.Sprintf("Created task %d (%s, %d matcher(s))", r.TaskID, r.Strategy, r.Matchers)
	if r.Dispatched {
		s += ", dispatched"
	}
	return s
}

func newTaskCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TaskCreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create <plan.cue>",
		Short: "Create a pending task from a CUE plan",
		Long: `Compile a CUE task plan, check its matchers, strategy and scope, and
insert a pending task.

A plan defines a single "task" struct:

  task: {
    source: {file_version: 1, start: 0x1000, end: 0x1fff}
    target: {file: 2}
    strategy: "binning_strategy"
    matchers: ["assembly_hash", "mnemonic_euclidean"]
  }

With --dispatch the task id is published to the worker subject.

Exit codes:
  0 - Task created
  1 - Plan invalid
  2 - Command error (missing plan, database, NATS)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTaskCreate(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Dispatch, "dispatch", false, "publish the task to the NATS worker subject")
	return cmd
}

func runTaskCreate(opts *TaskCreateOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	ctx := cmd.Context()

	if _, err := os.Stat(path); err != nil {
		return f.Fail(ExitCommandError, ErrCodeLoad, "failed to read plan", err, nil)
	}

	task, err := plan.CompileFile(path)
	if err != nil {
		var details any
		var ce *plan.CompileError
		if errors.As(err, &ce) {
			details = map[string]string{"field": ce.Field, "message": ce.Message, "position": ce.Pos.String()}
		}
		return f.Fail(ExitFailure, ErrCodeInvalid, "plan does not compile", err, details)
	}
	f.VerboseLog("Compiled %s: strategy=%s matchers=%v", path, task.Strategy, task.Matchers)

	if errs := plan.Validate(task, opts.matchers(), strategy.Default()); len(errs) > 0 {
		return f.Fail(ExitFailure, ErrCodeInvalid, fmt.Sprintf("plan has %d error(s)", len(errs)), errs[0], errs)
	}

	st, err := opts.openStore()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err, nil)
	}
	defer opts.closeStore(st)

	if err := checkTaskRefs(ctx, st, task); err != nil {
		return f.Fail(ExitFailure, ErrCodeInvalid, "plan refers to missing rows", err, nil)
	}

	id, err := st.CreateTask(ctx, task)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeStore, "failed to create task", err, nil)
	}
	opts.Logger.Info("task created", "task_id", id, "strategy", task.Strategy, "matchers", len(task.Matchers))

	res := CreateResult{TaskID: id, Strategy: task.Strategy, Matchers: len(task.Matchers)}
	if opts.Dispatch {
		if err := dispatchTask(ctx, opts.RootOptions, id); err != nil {
			return f.Fail(ExitCommandError, ErrCodeDispatch, fmt.Sprintf("task %d created but not dispatched", id), err, nil)
		}
		res.Dispatched = true
	}
	return f.Success(res)
}

// checkTaskRefs verifies that the source version and the target exist.
func checkTaskRefs(ctx context.Context, st *store.Store, task ir.Task) error {
	if _, err := st.GetFileVersion(ctx, task.SourceFileVersionID); err != nil {
		return err
	}
	if task.TargetFileID != nil {
		if _, err := st.GetFile(ctx, *task.TargetFileID); err != nil {
			return err
		}
	}
	if task.TargetProjectID != nil {
		if _, err := st.GetProject(ctx, *task.TargetProjectID); err != nil {
			return err
		}
	}
	return nil
}

func dispatchTask(ctx context.Context, opts *RootOptions, id int64) error {
	nc, err := nats.Connect(opts.Config.NATS.URL, nats.Name("rematch-cli"))
	if err != nil {
		return fmt.Errorf("connect %s: %w", opts.Config.NATS.URL, err)
	}
	defer nc.Close()

	if err := worker.NewDispatcher(nc, opts.Config.NATS.Subject).Dispatch(ctx, id); err != nil {
		return err
	}
	opts.Logger.Info("task dispatched", "task_id", id, "subject", opts.Config.NATS.Subject)
	return nil
}

func newTaskRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <task-id>",
		Short: "Run a pending task synchronously",
		Long: `Claim a pending task and run every step of its strategy in this process.

Exit codes:
  0 - Task done
  1 - Task failed
  2 - Command error (task not found or not pending, database)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTaskRun(rootOpts, args[0], cmd)
		},
	}
}

func runTaskRun(opts *RootOptions, arg string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	id, err := parseTaskID(arg)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeUsage, "invalid task id", err, nil)
	}

	st, err := opts.openStore()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err, nil)
	}
	defer opts.closeStore(st)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	runErr := opts.newRunner(st).RunMatch(ctx, id)
	f.VerboseLog("Task %d ran in %s", id, time.Since(start).Round(time.Millisecond))

	switch {
	case runErr == nil:
	case engine.IsNotFoundError(runErr):
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("task %d not found", id), runErr, nil)
	case engine.IsNotPendingError(runErr):
		return f.Fail(ExitCommandError, ErrCodeRun, fmt.Sprintf("task %d is not pending", id), runErr, nil)
	default:
		summary, err := summarize(context.WithoutCancel(ctx), st, id)
		if err != nil {
			return f.Fail(ExitFailure, ErrCodeRun, fmt.Sprintf("task %d failed", id), runErr, nil)
		}
		return f.Fail(ExitFailure, ErrCodeRun, fmt.Sprintf("task %d failed", id), runErr, summary)
	}

	summary, err := summarize(ctx, st, id)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeStore, "failed to read task", err, nil)
	}
	return f.Success(summary)
}

// TaskSummary is the state of a task and a digest of its matches.
type TaskSummary struct {
	ID          int64         `json:"id"`
	RunID       string        `json:"run_id,omitempty"`
	Status      ir.TaskStatus `json:"status"`
	Strategy    string        `json:"strategy"`
	Matchers    []string      `json:"matchers"`
	Source      int64         `json:"source_file_version_id"`
	SourceStart *int64        `json:"source_start,omitempty"`
	SourceEnd   *int64        `json:"source_end,omitempty"`
	TargetFile  *int64        `json:"target_file_id,omitempty"`
	Project     *int64        `json:"target_project_id,omitempty"`
	Progress    int           `json:"progress"`
	ProgressMax *int          `json:"progress_max,omitempty"`
	Matches     int           `json:"matches"`
	Digest      string        `json:"match_set_digest"`
	Locals      int           `json:"locals"`
	Remotes     int           `json:"remotes"`
	Created     time.Time     `json:"created"`
	Finished    *time.Time    `json:"finished,omitempty"`
}

func (s TaskSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task %d: %s\n", s.ID, s.Status.Label())
	if s.RunID != "" {
		fmt.Fprintf(&b, "  Run:      %s\n", s.RunID)
	}
	fmt.Fprintf(&b, "  Strategy: %s\n", s.Strategy)
	fmt.Fprintf(&b, "  Matchers: %s\n", strings.Join(s.Matchers, ", "))
	fmt.Fprintf(&b, "  Source:   file version %d%s\n", s.Source, formatRange(s.SourceStart, s.SourceEnd))
	if s.TargetFile != nil {
		fmt.Fprintf(&b, "  Target:   file %d\n", *s.TargetFile)
	} else if s.Project != nil {
		fmt.Fprintf(&b, "  Target:   project %d\n", *s.Project)
	}
	if s.ProgressMax != nil {
		fmt.Fprintf(&b, "  Progress: %d/%d\n", s.Progress, *s.ProgressMax)
	} else {
		fmt.Fprintf(&b, "  Progress: %d\n", s.Progress)
	}
	fmt.Fprintf(&b, "  Matches:  %d (%d local, %d remote)\n", s.Matches, s.Locals, s.Remotes)
	fmt.Fprintf(&b, "  Digest:   %s", s.Digest)
	return b.String()
}

func formatRange(start, end *int64) string {
	if start == nil && end == nil {
		return ""
	}
	lo, hi := "", ""
	if start != nil {
		lo = fmt.Sprintf("%#x", *start)
	}
	if end != nil {
		hi = fmt.Sprintf("%#x", *end)
	}
	return fmt.Sprintf(" [%s, %s]", lo, hi)
}

// summarize reads a task with its match count, digest and matched instances.
func summarize(ctx context.Context, st *store.Store, id int64) (TaskSummary, error) {
	task, err := st.GetTask(ctx, id)
	if err != nil {
		return TaskSummary{}, err
	}
	matches, err := st.ListMatches(ctx, id)
	if err != nil {
		return TaskSummary{}, err
	}
	locals, err := st.TaskLocals(ctx, id)
	if err != nil {
		return TaskSummary{}, err
	}
	remotes, err := st.TaskRemotes(ctx, id)
	if err != nil {
		return TaskSummary{}, err
	}
	return TaskSummary{
		ID:          task.ID,
		RunID:       task.RunID,
		Status:      task.Status,
		Strategy:    task.Strategy,
		Matchers:    task.Matchers,
		Source:      task.SourceFileVersionID,
		SourceStart: task.SourceStart,
		SourceEnd:   task.SourceEnd,
		TargetFile:  task.TargetFileID,
		Project:     task.TargetProjectID,
		Progress:    task.Progress,
		ProgressMax: task.ProgressMax,
		Matches:     len(matches),
		Digest:      ir.MatchSetDigest(matches),
		Locals:      len(locals),
		Remotes:     len(remotes),
		Created:     task.Created,
		Finished:    task.Finished,
	}, nil
}

func newTaskShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <task-id>",
		Short:         "Show task status, progress and match digest",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			id, err := parseTaskID(args[0])
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeUsage, "invalid task id", err, nil)
			}
			st, err := rootOpts.openStore()
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err, nil)
			}
			defer rootOpts.closeStore(st)

			summary, err := summarize(cmd.Context(), st, id)
			if errors.Is(err, store.ErrNotFound) {
				return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("task %d not found", id), err, nil)
			}
			if err != nil {
				return f.Fail(ExitFailure, ErrCodeStore, "failed to read task", err, nil)
			}
			return f.Success(summary)
		},
	}
}

// TaskList is the output of task list.
type TaskList []ir.Task

func (l TaskList) String() string {
	if len(l) == 0 {
		return "No tasks."
	}
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tSTRATEGY\tPROGRESS\tMATCHERS")
	for _, t := range l {
		progress := strconv.Itoa(t.Progress)
		if t.ProgressMax != nil {
			progress += "/" + strconv.Itoa(*t.ProgressMax)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", t.ID, t.Status, t.Strategy, progress, strings.Join(t.Matchers, ","))
	}
	w.Flush()
	return strings.TrimSuffix(b.String(), "\n")
}

func newTaskListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List tasks",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			st, err := rootOpts.openStore()
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err, nil)
			}
			defer rootOpts.closeStore(st)

			tasks, err := st.ListTasks(cmd.Context())
			if err != nil {
				return f.Fail(ExitFailure, ErrCodeStore, "failed to list tasks", err, nil)
			}
			return f.Success(TaskList(tasks))
		},
	}
}

// MatchRow is one match with the offsets of its instances.
type MatchRow struct {
	ID         int64   `json:"id"`
	From       int64   `json:"from_instance_id"`
	FromOffset *int64  `json:"from_offset"`
	To         int64   `json:"to_instance_id"`
	ToOffset   *int64  `json:"to_offset"`
	Type       string  `json:"type"`
	Score      float64 `json:"score"`
}

// MatchList is the output of task matches.
type MatchList []MatchRow

func (l MatchList) String() string {
	if len(l) == 0 {
		return "No matches."
	}
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFROM\tTO\tTYPE\tSCORE")
	for _, m := range l {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.2f\n", m.ID, formatOffset(m.From, m.FromOffset), formatOffset(m.To, m.ToOffset), m.Type, m.Score)
	}
	w.Flush()
	return strings.TrimSuffix(b.String(), "\n")
}

func formatOffset(id int64, offset *int64) string {
	if offset == nil {
		return fmt.Sprintf("#%d@universal", id)
	}
	return fmt.Sprintf("#%d@%#x", id, *offset)
}

func newTaskMatchesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "matches <task-id>",
		Short:         "List the matches of a task",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			id, err := parseTaskID(args[0])
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeUsage, "invalid task id", err, nil)
			}
			st, err := rootOpts.openStore()
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err, nil)
			}
			defer rootOpts.closeStore(st)

			rows, err := listMatches(cmd.Context(), st, id)
			if errors.Is(err, store.ErrNotFound) {
				return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("task %d not found", id), err, nil)
			}
			if err != nil {
				return f.Fail(ExitFailure, ErrCodeStore, "failed to list matches", err, nil)
			}
			return f.Success(rows)
		},
	}
}

func listMatches(ctx context.Context, st *store.Store, id int64) (MatchList, error) {
	if _, err := st.GetTask(ctx, id); err != nil {
		return nil, err
	}
	matches, err := st.ListMatches(ctx, id)
	if err != nil {
		return nil, err
	}
	locals, err := st.TaskLocals(ctx, id)
	if err != nil {
		return nil, err
	}
	remotes, err := st.TaskRemotes(ctx, id)
	if err != nil {
		return nil, err
	}
	offsets := make(map[int64]*int64, len(locals)+len(remotes))
	for _, inst := range append(locals, remotes...) {
		offsets[inst.ID] = inst.Offset
	}

	rows := make(MatchList, len(matches))
	for i, m := range matches {
		rows[i] = MatchRow{
			ID:         m.ID,
			From:       m.FromInstanceID,
			FromOffset: offsets[m.FromInstanceID],
			To:         m.ToInstanceID,
			ToOffset:   offsets[m.ToInstanceID],
			Type:       m.Type,
			Score:      m.Score,
		}
	}
	return rows, nil
}

func parseTaskID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%q is not a positive integer", s)
	}
	return id, nil
}
