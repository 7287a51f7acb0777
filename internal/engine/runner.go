package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/rematch/internal/ir"
	"github.com/roach88/rematch/internal/matcher"
	"github.com/roach88/rematch/internal/queryir"
	"github.com/roach88/rematch/internal/store"
	"github.com/roach88/rematch/internal/strategy"
)

const instrumentationName = "github.com/roach88/rematch/internal/engine"

// Defaults of the match pipeline.
const (
	DefaultBatchSize = 10000
	DefaultMinScore  = 50.0
)

// Store is the storage the runner needs. Implemented by *store.Store.
type Store interface {
	GetTask(ctx context.Context, id int64) (ir.Task, error)
	ClaimTask(ctx context.Context, id int64, runID string, progressMax int) error
	IncrementProgress(ctx context.Context, id int64, delta int) error
	TaskProgress(ctx context.Context, id int64) (progress, progressMax int, err error)
	FinishTask(ctx context.Context, id int64, status ir.TaskStatus, finished time.Time) error
	InsertMatches(ctx context.Context, matches []ir.Match) error
	Vectors(filter queryir.Predicate, pageSize int) *store.VectorSet
}

var _ Store = (*store.Store)(nil)

// Runner executes matching tasks.
//
// A Runner holds no per-task state and is safe for concurrent use; each
// RunMatch call runs its task sequentially on the calling goroutine.
type Runner struct {
	store      Store
	matchers   *matcher.Registry
	strategies *strategy.Registry
	logger     *slog.Logger
	clock      Clock
	runIDs     RunIDGenerator
	batchSize  int
	minScore   float64
	pageSize   int
	metrics    *Metrics
	observer   Observer
	tracer     trace.Tracer
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithClock sets the timestamp source. Default: SystemClock.
func WithClock(c Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// WithRunIDs sets the run id generator. Default: UUIDv7Generator.
func WithRunIDs(g RunIDGenerator) Option {
	return func(r *Runner) { r.runIDs = g }
}

// WithBatchSize sets how many matches are inserted per transaction.
// Default: 10000.
func WithBatchSize(n int) Option {
	return func(r *Runner) { r.batchSize = n }
}

// WithMinScore raises the score below which candidates are dropped.
// Values below DefaultMinScore keep the default of 50.
func WithMinScore(s float64) Option {
	return func(r *Runner) { r.minScore = math.Max(s, DefaultMinScore) }
}

// WithPageSize sets how many vectors are read per query.
// Default: store.DefaultPageSize.
func WithPageSize(n int) Option {
	return func(r *Runner) { r.pageSize = n }
}

// WithMatchers sets the matcher registry. Default: matcher.Default().
func WithMatchers(reg *matcher.Registry) Option {
	return func(r *Runner) { r.matchers = reg }
}

// WithStrategies sets the strategy registry. Default: strategy.Default().
func WithStrategies(reg *strategy.Registry) Option {
	return func(r *Runner) { r.strategies = reg }
}

// WithMetrics enables Prometheus metrics. Default: none.
func WithMetrics(m *Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithObserver sets the lifecycle observer. Default: none.
func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observer = o }
}

// WithTracer sets the tracer. Default: the global otel tracer provider.
func WithTracer(t trace.Tracer) Option {
	return func(r *Runner) { r.tracer = t }
}

// New creates a Runner over s.
func New(s Store, opts ...Option) *Runner {
	r := &Runner{
		store:      s,
		matchers:   matcher.Default(),
		strategies: strategy.Default(),
		logger:     slog.Default(),
		clock:      SystemClock{},
		runIDs:     UUIDv7Generator{},
		batchSize:  DefaultBatchSize,
		minScore:   DefaultMinScore,
		pageSize:   store.DefaultPageSize,
		observer:   nopObserver{},
		tracer:     otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.batchSize <= 0 {
		r.batchSize = DefaultBatchSize
	}
	return r
}

// RunMatch runs the task to completion.
//
// It returns nil once the task is done. A *ConfigError means the task was
// moved from pending straight to failed. A *RuntimeError with
// ErrCodeExecution or ErrCodeInvariant means the task was started and then
// marked failed. ErrCodeTaskNotFound and ErrCodeTaskNotPending leave the
// task untouched.
func (r *Runner) RunMatch(ctx context.Context, taskID int64) (err error) {
	ctx, span := r.tracer.Start(ctx, "engine.run_match",
		trace.WithAttributes(attribute.Int64("task_id", taskID)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	logger := r.logger.With("task_id", taskID)

	task, err := r.store.GetTask(ctx, taskID)
	if err != nil {
		code := ErrCodeExecution
		if errors.Is(err, store.ErrNotFound) {
			code = ErrCodeTaskNotFound
		}
		return &RuntimeError{Code: code, Message: "load task", TaskID: taskID, Err: err}
	}
	if task.Status != ir.StatusPending {
		return &RuntimeError{
			Code:    ErrCodeTaskNotPending,
			Message: fmt.Sprintf("task is %s", task.Status),
			TaskID:  taskID,
		}
	}

	strat, err := strategy.New(r.matchers, r.strategies, task)
	if err != nil {
		logger.Error("invalid task configuration", "error", err)
		r.finishFailed(ctx, task, "", 0, err)
		return err
	}
	steps := strat.OrderedSteps()
	span.SetAttributes(
		attribute.String("strategy", strat.Type()),
		attribute.Int("steps", len(steps)),
	)

	runID := r.runIDs.Generate()
	if err := r.store.ClaimTask(ctx, taskID, runID, len(steps)); err != nil {
		if errors.Is(err, store.ErrTaskNotPending) {
			return &RuntimeError{Code: ErrCodeTaskNotPending, Message: "claim task", TaskID: taskID, Err: err}
		}
		return &RuntimeError{Code: ErrCodeExecution, Message: "claim task", TaskID: taskID, Err: err}
	}
	span.SetAttributes(attribute.String("run_id", runID))
	logger = logger.With("run_id", runID)
	logger.Info("running task", "strategy", strat.String(), "steps", len(steps))
	r.observer.Observe(ctx, Event{Kind: EventStarted, TaskID: taskID, RunID: runID, Steps: len(steps), Time: r.clock.Now()})

	for i, step := range steps {
		n, err := r.matchByStep(ctx, logger, taskID, i+1, step)
		if err != nil {
			rerr := &RuntimeError{Code: ErrCodeExecution, Message: "run step " + step.String(), TaskID: taskID, Step: i + 1, Err: err}
			r.finishFailed(ctx, task, runID, len(steps), rerr)
			return rerr
		}
		if err := r.store.IncrementProgress(ctx, taskID, 1); err != nil {
			rerr := &RuntimeError{Code: ErrCodeExecution, Message: "record progress", TaskID: taskID, Step: i + 1, Err: err}
			r.finishFailed(ctx, task, runID, len(steps), rerr)
			return rerr
		}
		r.observer.Observe(ctx, Event{
			Kind: EventStep, TaskID: taskID, RunID: runID, Step: i + 1, Steps: len(steps),
			MatchType: step.MatchType(), Matches: n, Time: r.clock.Now(),
		})
	}

	progress, progressMax, err := r.store.TaskProgress(ctx, taskID)
	if err != nil {
		rerr := &RuntimeError{Code: ErrCodeExecution, Message: "read progress", TaskID: taskID, Err: err}
		r.finishFailed(ctx, task, runID, len(steps), rerr)
		return rerr
	}
	if progress != progressMax {
		rerr := &RuntimeError{
			Code:    ErrCodeInvariant,
			Message: fmt.Sprintf("task finished without executing all steps (progress %d of %d)", progress, progressMax),
			TaskID:  taskID,
		}
		r.finishFailed(ctx, task, runID, len(steps), rerr)
		return rerr
	}

	finished := r.clock.Now()
	if err := r.store.FinishTask(ctx, taskID, ir.StatusDone, finished); err != nil {
		rerr := &RuntimeError{Code: ErrCodeExecution, Message: "finish task", TaskID: taskID, Err: err}
		r.finishFailed(ctx, task, runID, len(steps), rerr)
		return rerr
	}
	r.metrics.taskFinished(string(ir.StatusDone))
	logger.Info("task done", "steps", len(steps))
	r.observer.Observe(ctx, Event{Kind: EventDone, TaskID: taskID, RunID: runID, Steps: len(steps), Time: finished})
	return nil
}

// finishFailed marks the task failed. The update runs even when ctx is
// canceled; a failure to record it is logged, and the original error is
// what the caller returns.
func (r *Runner) finishFailed(ctx context.Context, task ir.Task, runID string, steps int, cause error) {
	finished := r.clock.Now()
	if err := r.store.FinishTask(context.WithoutCancel(ctx), task.ID, ir.StatusFailed, finished); err != nil {
		r.logger.Error("failed to mark task failed", "task_id", task.ID, "error", err)
	}
	r.metrics.taskFinished(string(ir.StatusFailed))
	r.logger.Error("task failed", "task_id", task.ID, "error", cause)
	r.observer.Observe(ctx, Event{
		Kind: EventFailed, TaskID: task.ID, RunID: runID, Steps: steps,
		Error: cause.Error(), Time: finished,
	})
}
