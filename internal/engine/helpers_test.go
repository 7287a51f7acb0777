package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/roach88/rematch/internal/ir"
	"github.com/roach88/rematch/internal/matcher"
	"github.com/roach88/rematch/internal/queryir"
	"github.com/roach88/rematch/internal/store"
	"github.com/roach88/rematch/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRunner returns a runner with deterministic time and run ids.
func newTestRunner(s Store, opts ...Option) *Runner {
	base := []Option{
		WithLogger(quietLogger()),
		WithClock(testutil.NewDeterministicClock()),
		WithRunIDs(NewFixedGenerator("run-1", "run-2", "run-3")),
	}
	return New(s, append(base, opts...)...)
}

// deadbeef seeds two source functions and two target functions carrying
// assembly_hash payloads: deadbeef twice on the source side, deadbeef and
// cafebabe on the target side.
type deadbeef struct {
	testutil.Pair
	src      []int64
	deadbeef int64
	cafebabe int64
}

func seedDeadbeef(t *testing.T, s *store.Store) deadbeef {
	t.Helper()
	sd := testutil.NewSeeder(t, s)
	d := deadbeef{Pair: testutil.SeedPair(t, s)}
	d.src = []int64{
		sd.Function(d.SourceVersion, 0x1000, 10, map[ir.VectorType]string{ir.VectorAssemblyHash: "deadbeef"}),
		sd.Function(d.SourceVersion, 0x2000, 20, map[ir.VectorType]string{ir.VectorAssemblyHash: "deadbeef"}),
	}
	d.deadbeef = sd.Function(d.TargetVersion, 0x1000, 10, map[ir.VectorType]string{ir.VectorAssemblyHash: "deadbeef"})
	d.cafebabe = sd.Function(d.TargetVersion, 0x3000, 12, map[ir.VectorType]string{ir.VectorAssemblyHash: "cafebabe"})
	return d
}

// stubMatcher emits fixed candidates, or fails to start when err is set.
type stubMatcher struct {
	matchType  string
	candidates []matcher.Candidate
	err        error
}

func (m *stubMatcher) MatchType() string         { return m.matchType }
func (m *stubMatcher) Name() string              { return "Stub " + m.matchType }
func (m *stubMatcher) VectorType() ir.VectorType { return ir.VectorAssemblyHash }
func (m *stubMatcher) Abstract() bool            { return false }
func (m *stubMatcher) Filter() queryir.Predicate { return nil }

func (m *stubMatcher) Match(ctx context.Context, source, target matcher.VectorSet) (matcher.Stream, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &sliceStream{candidates: m.candidates, pos: -1}, nil
}

type sliceStream struct {
	candidates []matcher.Candidate
	pos        int
}

func (s *sliceStream) Next(ctx context.Context) bool {
	if s.pos+1 >= len(s.candidates) {
		return false
	}
	s.pos++
	return true
}

func (s *sliceStream) Candidate() matcher.Candidate { return s.candidates[s.pos] }
func (s *sliceStream) Err() error                   { return nil }
func (s *sliceStream) Close() error                 { return nil }

// lossyStore drops progress updates, so a run ends with progress behind
// progress_max.
type lossyStore struct {
	*store.Store
}

func (lossyStore) IncrementProgress(context.Context, int64, int) error {
	return nil
}

// failingInsertStore rejects every match batch.
type failingInsertStore struct {
	*store.Store
}

var errDiskFull = errors.New("disk full")

func (failingInsertStore) InsertMatches(context.Context, []ir.Match) error {
	return errDiskFull
}

// flakyInsertStore rejects the failOn-th match batch and accepts the rest.
type flakyInsertStore struct {
	*store.Store
	failOn int
	calls  int
}

func (f *flakyInsertStore) InsertMatches(ctx context.Context, matches []ir.Match) error {
	f.calls++
	if f.calls == f.failOn {
		return errDiskFull
	}
	return f.Store.InsertMatches(ctx, matches)
}

// recorder collects observer events.
type recorder struct {
	events []Event
}

func (r *recorder) Observe(_ context.Context, e Event) {
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []EventKind {
	out := make([]EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}
