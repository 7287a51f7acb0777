package strategy

import (
	"math"

	"github.com/roach88/rematch/internal/ir"
	"github.com/roach88/rematch/internal/queryir"
)

// Scope is the part of a task that selects source and target vectors.
type Scope struct {
	SourceFileVersionID int64
	SourceFileID        int64
	SourceStart         *int64
	SourceEnd           *int64
	TargetFileID        *int64
	TargetProjectID     *int64
}

// ScopeOf extracts the scope of a task.
func ScopeOf(t ir.Task) Scope {
	return Scope{
		SourceFileVersionID: t.SourceFileVersionID,
		SourceFileID:        t.SourceFileID,
		SourceStart:         t.SourceStart,
		SourceEnd:           t.SourceEnd,
		TargetFileID:        t.TargetFileID,
		TargetProjectID:     t.TargetProjectID,
	}
}

// Validate checks that exactly one target is set and that the source
// offset range is not inverted.
func (s Scope) Validate() error {
	if (s.TargetFileID == nil) == (s.TargetProjectID == nil) {
		return configErrorf("target", "exactly one of target file and target project must be set")
	}
	if s.SourceStart != nil && s.SourceEnd != nil && *s.SourceStart > *s.SourceEnd {
		return configErrorf("source", "start %#x is after end %#x", *s.SourceStart, *s.SourceEnd)
	}
	return nil
}

// SourceFilter selects the source file version, bounded by the optional
// inclusive offset range. A range excludes universal instances, which have
// no offset.
func (s Scope) SourceFilter() queryir.Predicate {
	preds := []queryir.Predicate{
		queryir.Equals{Field: queryir.FieldFileVersionID, Value: s.SourceFileVersionID},
	}
	if s.SourceStart != nil || s.SourceEnd != nil {
		lo, hi := int64(math.MinInt64), int64(math.MaxInt64)
		if s.SourceStart != nil {
			lo = *s.SourceStart
		}
		if s.SourceEnd != nil {
			hi = *s.SourceEnd
		}
		preds = append(preds, queryir.Between{Field: queryir.FieldOffset, Min: lo, Max: hi})
	}
	return queryir.All(preds...)
}

// TargetFilter selects the target side.
//
// A target file contributes every version except the source version. A
// target project contributes every file of the project except the source
// file.
func (s Scope) TargetFilter() queryir.Predicate {
	if s.TargetFileID != nil {
		return queryir.All(
			queryir.Equals{Field: queryir.FieldFileID, Value: *s.TargetFileID},
			queryir.NotEquals{Field: queryir.FieldFileVersionID, Value: s.SourceFileVersionID},
		)
	}
	if s.TargetProjectID != nil {
		return queryir.All(
			queryir.Equals{Field: queryir.FieldProjectID, Value: *s.TargetProjectID},
			queryir.NotEquals{Field: queryir.FieldFileID, Value: s.SourceFileID},
		)
	}
	// Unreachable after Validate; select nothing rather than everything.
	return queryir.In{Field: queryir.FieldFileID}
}
