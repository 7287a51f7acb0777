package matcher

import (
	"context"
	"fmt"
	"math"

	"github.com/roach88/rematch/internal/ir"
)

// EuclideanMatcher compares sparse histograms by the euclidean distance of
// their L2-normalised forms.
//
// Both histograms are scaled to unit length, so for non-negative counts the
// distance lies in [0, √2]. The score is 100·(1 − d/√2): identical shapes
// score 100, disjoint histograms score 0. Empty or all-zero histograms have
// no direction and are skipped.
type EuclideanMatcher struct {
	info
}

// NewEuclideanMatcher creates a dictionary matcher for vectorType.
// An empty vectorType creates the abstract base.
func NewEuclideanMatcher(matchType, name string, vectorType ir.VectorType) *EuclideanMatcher {
	return &EuclideanMatcher{info: info{matchType: matchType, name: name, vectorType: vectorType}}
}

// Match compares every source histogram with every target histogram.
func (m *EuclideanMatcher) Match(ctx context.Context, source, target VectorSet) (Stream, error) {
	if m.Abstract() {
		return nil, fmt.Errorf("match %s: abstract matcher", m.matchType)
	}
	return newCrossStream(ctx, m.matchType, source, target, parseUnitHistogram, histogramScore)
}

// parseUnitHistogram decodes a histogram and scales it to unit length.
func parseUnitHistogram(data string) (ir.Histogram, bool, error) {
	h, err := ir.ParseHistogram(data)
	if err != nil {
		return nil, false, err
	}
	n := h.Norm()
	if n == 0 || math.IsInf(n, 0) {
		return nil, false, nil
	}
	unit := make(ir.Histogram, len(h))
	for k, v := range h {
		unit[k] = v / n
	}
	return unit, true, nil
}

// histogramScore maps the distance of two unit histograms to [0, 100].
// Keys missing on one side count as zero.
func histogramScore(a, b ir.Histogram) float64 {
	var sum float64
	for k, av := range a {
		d := av - b[k]
		sum += d * d
	}
	for k, bv := range b {
		if _, ok := a[k]; !ok {
			sum += bv * bv
		}
	}
	return clampScore(100 * (1 - math.Sqrt(sum)/math.Sqrt2))
}

// clampScore bounds s to [0, 100]. NaN passes through for the caller to drop.
func clampScore(s float64) float64 {
	switch {
	case s < 0:
		return 0
	case s > 100:
		return 100
	default:
		return s
	}
}
