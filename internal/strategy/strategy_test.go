package strategy

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rematch/internal/ir"
	"github.com/roach88/rematch/internal/matcher"
	"github.com/roach88/rematch/internal/queryir"
)

func task(strategy string, matchers ...string) ir.Task {
	return ir.Task{
		SourceFileVersionID: 1,
		SourceFileID:        1,
		TargetProjectID:     ir.Int64(1),
		Matchers:            matchers,
		Strategy:            strategy,
	}
}

func TestNew_UnfamiliarMatchers(t *testing.T) {
	_, err := New(matcher.Default(), Default(), task(AllStrategy, "name_hash", "nonexistant_matcher", "hash"))
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
	assert.Contains(t, err.Error(), "unfamiliar matchers were requested: nonexistant_matcher, hash")
}

func TestNew_UnknownStrategy(t *testing.T) {
	_, err := New(matcher.Default(), Default(), task("greedy_strategy", "name_hash"))
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
	assert.Contains(t, err.Error(), `unknown strategy "greedy_strategy"`)
}

func TestNew_InvalidScope(t *testing.T) {
	tk := task(AllStrategy, "name_hash")
	tk.TargetFileID = ir.Int64(2)
	_, err := New(matcher.Default(), Default(), tk)
	assert.True(t, IsConfigError(err))

	tk = task(AllStrategy, "name_hash")
	tk.SourceStart, tk.SourceEnd = ir.Int64(0x20), ir.Int64(0x10)
	_, err = New(matcher.Default(), Default(), tk)
	assert.True(t, IsConfigError(err))
	assert.Contains(t, err.Error(), "start 0x20 is after end 0x10")
}

func TestNew_EmptyMatcherList(t *testing.T) {
	for _, kind := range []string{AllStrategy, BinningStrategy} {
		s, err := New(matcher.Default(), Default(), task(kind))
		require.NoError(t, err)
		assert.Empty(t, s.OrderedSteps(), kind)
	}
}

func TestFlat_OneStepPerMatcherInDeclarationOrder(t *testing.T) {
	s, err := New(matcher.Default(), Default(), task(AllStrategy, "mnemonic_euclidean", "name_hash", "instruction_hash", "name_hash"))
	require.NoError(t, err)

	var got []string
	for _, step := range s.OrderedSteps() {
		got = append(got, step.String())
		_, binned := step.Bin()
		assert.False(t, binned)
	}
	assert.Equal(t, []string{
		"<Step; matcher=instruction_hash>",
		"<Step; matcher=name_hash>",
		"<Step; matcher=mnemonic_euclidean>",
	}, got)
	assert.Equal(t, "<all_strategy; steps=3>", s.String())
}

func TestBinning_StepsPerMatcherAndBin(t *testing.T) {
	s, err := New(matcher.Default(), Default(), task(BinningStrategy, "mnemonic_hash", "assembly_hash"))
	require.NoError(t, err)

	bins := Bins()
	steps := s.OrderedSteps()
	require.Len(t, steps, 2*len(bins))

	for i, step := range steps {
		wantMatcher := "assembly_hash"
		if i >= len(bins) {
			wantMatcher = "mnemonic_hash"
		}
		assert.Equal(t, wantMatcher, step.MatchType())
		b, ok := step.Bin()
		require.True(t, ok)
		assert.Equal(t, bins[i%len(bins)], b)
	}
	assert.Equal(t, "<BinningStep; matcher=assembly_hash; size=[0,15]>", steps[0].String())
}

func TestBins_CoverEverySize(t *testing.T) {
	bins := Bins()
	require.Len(t, bins, 14)
	assert.Equal(t, int64(0), bins[0].Min)
	assert.Equal(t, int64(math.MaxInt64), bins[len(bins)-1].Max)
	for i := 1; i < len(bins); i++ {
		assert.Equal(t, bins[i-1].Max+1, bins[i].Min, "bins are contiguous")
		assert.Less(t, bins[i].Min, bins[i].Max)
	}
}

func TestNewBinningStep_InvalidBins(t *testing.T) {
	m := matcher.NewMDIndexMatcher()
	for _, b := range []Bin{{Min: 10, Max: 10}, {Min: 20, Max: 10}} {
		_, err := NewBinningStep(Scope{}, m, b.Min, b.Max)
		require.Error(t, err)
		assert.True(t, IsConfigError(err))
		assert.Contains(t, err.Error(), "invalid bin sizes")
	}
}

func TestStep_FiltersArePure(t *testing.T) {
	s, err := New(matcher.Default(), Default(), task(BinningStrategy, "basicblock_mdindex"))
	require.NoError(t, err)
	step := s.OrderedSteps()[1]

	assert.Equal(t, step.SourceFilter(), step.SourceFilter())
	assert.Equal(t, step.TargetFilter(), step.TargetFilter())

	and := step.SourceFilter().(queryir.And)
	assert.Contains(t, and.Predicates, queryir.Equals{Field: queryir.FieldVectorType, Value: "basicblock_adjacency"})
	assert.Contains(t, and.Predicates, queryir.Equals{Field: queryir.FieldInstanceType, Value: "function"})
	assert.Contains(t, and.Predicates, queryir.Between{Field: queryir.FieldSize, Min: 16, Max: 31})
	assert.Contains(t, and.Predicates, queryir.Equals{Field: queryir.FieldFileVersionID, Value: int64(1)})
}

func TestScope_Filters(t *testing.T) {
	fn := func(fv, file int64, project *int64, offset *int64) queryir.Row {
		return queryir.Row{FileVersionID: fv, FileID: file, ProjectID: project, Offset: offset, InstanceType: "function"}
	}
	p := ir.Int64(1)

	tests := []struct {
		name  string
		scope Scope
		row   queryir.Row
		src   bool
		tgt   bool
	}{
		{"source version", Scope{SourceFileVersionID: 10, SourceFileID: 1, TargetProjectID: p}, fn(10, 1, p, ir.Int64(5)), true, false},
		{"other file in project", Scope{SourceFileVersionID: 10, SourceFileID: 1, TargetProjectID: p}, fn(20, 2, p, ir.Int64(5)), false, true},
		{"other version of source file excluded from project", Scope{SourceFileVersionID: 10, SourceFileID: 1, TargetProjectID: p}, fn(11, 1, p, ir.Int64(5)), false, false},
		{"other version of target file", Scope{SourceFileVersionID: 10, SourceFileID: 1, TargetFileID: ir.Int64(1)}, fn(11, 1, p, ir.Int64(5)), false, true},
		{"source version excluded from target file", Scope{SourceFileVersionID: 10, SourceFileID: 1, TargetFileID: ir.Int64(1)}, fn(10, 1, p, ir.Int64(5)), true, false},
		{"offset inside range", Scope{SourceFileVersionID: 10, SourceStart: ir.Int64(4), SourceEnd: ir.Int64(5), TargetProjectID: p}, fn(10, 1, p, ir.Int64(5)), true, false},
		{"offset outside range", Scope{SourceFileVersionID: 10, SourceStart: ir.Int64(6), TargetProjectID: p}, fn(10, 1, p, ir.Int64(5)), false, false},
		{"open start", Scope{SourceFileVersionID: 10, SourceEnd: ir.Int64(5), TargetProjectID: p}, fn(10, 1, p, ir.Int64(5)), true, false},
		{"universal excluded by range", Scope{SourceFileVersionID: 10, SourceStart: ir.Int64(0), TargetProjectID: p}, fn(10, 1, p, nil), false, false},
		{"universal in whole file", Scope{SourceFileVersionID: 10, TargetProjectID: p}, fn(10, 1, p, nil), true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.scope.Validate())
			src, err := queryir.Eval(tt.scope.SourceFilter(), tt.row)
			require.NoError(t, err)
			tgt, err := queryir.Eval(tt.scope.TargetFilter(), tt.row)
			require.NoError(t, err)
			assert.Equal(t, tt.src, src, "source")
			assert.Equal(t, tt.tgt, tgt, "target")
		})
	}
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []Descriptor{
		{StrategyType: "all_strategy", Name: "All"},
		{StrategyType: "binning_strategy", Name: "Binning"},
	}, Descriptors())

	assert.PanicsWithValue(t, "strategy: abstract strategy in list: base", func() {
		NewRegistry(Flat, Kind{Type: "base", Name: "Base"})
	})
	assert.Panics(t, func() { NewRegistry(Flat, Flat) })
}

// world is an in-memory corpus of vector rows used to run strategies
// without a store.
type world []struct {
	row queryir.Row
	vec ir.Vector
}

func (w world) set(t *testing.T, p queryir.Predicate) matcher.SliceSet {
	t.Helper()
	var out matcher.SliceSet
	for _, e := range w {
		ok, err := queryir.Eval(p, e.row)
		require.NoError(t, err)
		if ok {
			out = append(out, e.vec)
		}
	}
	return out
}

type pair struct{ from, to int64 }

func (w world) run(t *testing.T, s *Strategy) map[pair]bool {
	t.Helper()
	ctx := context.Background()
	found := map[pair]bool{}
	for _, step := range s.OrderedSteps() {
		stream, err := step.Matcher().Match(ctx, w.set(t, step.SourceFilter()), w.set(t, step.TargetFilter()))
		require.NoError(t, err)
		for stream.Next(ctx) {
			c := stream.Candidate()
			found[pair{c.SourceInstanceID, c.TargetInstanceID}] = true
		}
		require.NoError(t, stream.Err())
		require.NoError(t, stream.Close())
	}
	return found
}

func TestBinning_Coverage(t *testing.T) {
	var w world
	add := func(id, fv, file, size int64, data string) {
		w = append(w, struct {
			row queryir.Row
			vec ir.Vector
		}{
			row: queryir.Row{
				VectorType: "mnemonic_hist", FileVersionID: fv, FileID: file, ProjectID: ir.Int64(1),
				InstanceType: "function", Offset: ir.Int64(id * 16), Size: size,
			},
			vec: ir.Vector{ID: id, InstanceID: id, FileVersionID: fv, Type: ir.VectorMnemonicHist, Data: data},
		})
	}

	// Source version 1 of file 1, target version 2 of file 2.
	add(1, 1, 1, 20, `{"mov": 4, "call": 1}`) // bin [16,31]
	add(2, 1, 1, 30, `{"push": 2, "pop": 2}`) // bin [16,31]
	add(3, 2, 2, 24, `{"mov": 8, "call": 2}`) // same bin as 1
	add(4, 2, 2, 40, `{"push": 1, "pop": 1}`) // bin [32,63], true match of 2

	tk := ir.Task{SourceFileVersionID: 1, SourceFileID: 1, TargetProjectID: ir.Int64(1), Matchers: []string{"mnemonic_euclidean"}}

	tk.Strategy = AllStrategy
	flat, err := New(matcher.Default(), Default(), tk)
	require.NoError(t, err)
	tk.Strategy = BinningStrategy
	binning, err := New(matcher.Default(), Default(), tk)
	require.NoError(t, err)

	flatFound := w.run(t, flat)
	binFound := w.run(t, binning)

	assert.True(t, flatFound[pair{1, 3}])
	assert.True(t, binFound[pair{1, 3}], "same-bin pair is found by both")

	assert.True(t, flatFound[pair{2, 4}])
	assert.False(t, binFound[pair{2, 4}], "cross-bin pair is a known miss of binning")

	for p := range binFound {
		assert.True(t, flatFound[p], "binning never finds a pair flat misses: %v", p)
	}
}
