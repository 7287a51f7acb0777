package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/rematch/internal/ir"
	"github.com/roach88/rematch/internal/matcher"
	"github.com/roach88/rematch/internal/store"
	"github.com/roach88/rematch/internal/strategy"
)

// vectorSet adapts *store.VectorSet to matcher.VectorSet.
type vectorSet struct {
	vs *store.VectorSet
}

func (v vectorSet) Count(ctx context.Context) (int, error) {
	return v.vs.Count(ctx)
}

func (v vectorSet) Iter() matcher.VectorIterator {
	return v.vs.Iter()
}

// matchByStep runs one step and persists its matches. It returns the
// number of matches written.
func (r *Runner) matchByStep(ctx context.Context, logger *slog.Logger, taskID int64, n int, step strategy.Step) (written int, err error) {
	matchType := step.MatchType()
	ctx, span := r.tracer.Start(ctx, "engine.match_step", trace.WithAttributes(
		attribute.Int("step", n),
		attribute.String("match_type", matchType),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.Int("matches", written))
		span.End()
	}()

	logger = logger.With("step", n, "matcher", matchType)
	start := time.Now()

	source := vectorSet{r.store.Vectors(step.SourceFilter(), r.pageSize)}
	target := vectorSet{r.store.Vectors(step.TargetFilter(), r.pageSize)}

	sourceCount, err := source.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count source vectors: %w", err)
	}
	targetCount, err := target.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count target vectors: %w", err)
	}
	span.SetAttributes(
		attribute.Int("source_count", sourceCount),
		attribute.Int("target_count", targetCount),
	)
	if sourceCount == 0 || targetCount == 0 {
		logger.Info("skipped step", "source_count", sourceCount, "target_count", targetCount)
		r.metrics.stepDone(matchType, "skipped", 0)
		return 0, nil
	}
	logger.Info("running step", "source_count", sourceCount, "target_count", targetCount)

	stream, err := step.Matcher().Match(ctx, source, target)
	if err != nil {
		return 0, fmt.Errorf("start matcher: %w", err)
	}
	defer stream.Close()

	batch := make([]ir.Match, 0, min(r.batchSize, 1024))
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := r.store.InsertMatches(ctx, batch); err != nil {
			return fmt.Errorf("insert matches: %w", err)
		}
		r.metrics.batchCommitted(matchType, len(batch))
		written += len(batch)
		logger.Debug("committed batch", "matches", len(batch))
		batch = batch[:0]
		return nil
	}

	for stream.Next(ctx) {
		c := stream.Candidate()
		if math.IsNaN(c.Score) || math.IsInf(c.Score, 0) {
			logger.Warn("dropped non-finite score",
				"source_instance", c.SourceInstanceID,
				"target_instance", c.TargetInstanceID,
				"score", c.Score)
			r.metrics.dropped(matchType, "non_finite")
			continue
		}
		if c.Score < r.minScore {
			r.metrics.dropped(matchType, "below_threshold")
			continue
		}
		batch = append(batch, ir.Match{
			TaskID:         taskID,
			FromInstanceID: c.SourceInstanceID,
			ToInstanceID:   c.TargetInstanceID,
			Type:           matchType,
			Score:          c.Score,
			Created:        r.clock.Now(),
		})
		if len(batch) >= r.batchSize {
			if err := flush(); err != nil {
				return written, err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return written, fmt.Errorf("matcher %s: %w", matchType, err)
	}
	if err := flush(); err != nil {
		return written, err
	}

	elapsed := time.Since(start)
	r.metrics.stepDone(matchType, "run", elapsed.Seconds())
	logger.Info("step done", "matches", written, "elapsed", elapsed)
	return written, nil
}
