// Package plan compiles CUE task plans into pending tasks.
//
// A plan names the source file version, an optional inclusive offset range,
// exactly one target (a file or a project), a strategy and the matchers to
// run:
//
//	task: {
//		source: {file_version: 3, start: 0x1000, end: 0x1fff}
//		target: project: 1
//		strategy: "binning_strategy"
//		matchers: ["assembly_hash", "mnemonic_euclidean"]
//	}
//
// Compile checks the plan's shape against an embedded CUE schema. Validate
// checks it against the matcher and strategy registries.
package plan

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/rematch/internal/ir"
)

//go:embed schema.cue
var schemaSource string

// CompileFile reads and compiles the plan at path.
func CompileFile(path string) (ir.Task, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return ir.Task{}, fmt.Errorf("read plan: %w", err)
	}
	return Compile(src, path)
}

// Compile parses the `task` struct of a CUE document into a pending task.
// filename is used in error positions only.
func Compile(src []byte, filename string) (ir.Task, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return ir.Task{}, fmt.Errorf("compile plan schema: %w", err)
	}

	doc := ctx.CompileBytes(src, cue.Filename(filename))
	if err := doc.Err(); err != nil {
		return ir.Task{}, formatCUEError(err)
	}

	taskVal := doc.LookupPath(cue.ParsePath("task"))
	if !taskVal.Exists() {
		return ir.Task{}, &CompileError{
			Field:   "task",
			Message: "task is required",
			Pos:     doc.Pos(),
		}
	}

	v := schema.LookupPath(cue.ParsePath("#Task")).Unify(taskVal)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return ir.Task{}, formatCUEError(err)
	}

	return decodeTask(v)
}

func decodeTask(v cue.Value) (ir.Task, error) {
	var (
		t   ir.Task
		err error
	)

	if t.SourceFileVersionID, err = v.LookupPath(cue.ParsePath("source.file_version")).Int64(); err != nil {
		return ir.Task{}, formatCUEError(err)
	}
	if t.SourceStart, err = optionalInt(v, "source.start"); err != nil {
		return ir.Task{}, err
	}
	if t.SourceEnd, err = optionalInt(v, "source.end"); err != nil {
		return ir.Task{}, err
	}
	if t.TargetFileID, err = optionalInt(v, "target.file"); err != nil {
		return ir.Task{}, err
	}
	if t.TargetProjectID, err = optionalInt(v, "target.project"); err != nil {
		return ir.Task{}, err
	}

	if t.Strategy, err = v.LookupPath(cue.ParsePath("strategy")).String(); err != nil {
		return ir.Task{}, formatCUEError(err)
	}

	iter, err := v.LookupPath(cue.ParsePath("matchers")).List()
	if err != nil {
		return ir.Task{}, formatCUEError(err)
	}
	t.Matchers = []string{}
	for iter.Next() {
		m, err := iter.Value().String()
		if err != nil {
			return ir.Task{}, formatCUEError(err)
		}
		t.Matchers = append(t.Matchers, m)
	}

	t.Status = ir.StatusPending
	return t, nil
}

func optionalInt(v cue.Value, path string) (*int64, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return nil, nil
	}
	n, err := f.Int64()
	if err != nil {
		return nil, formatCUEError(err)
	}
	return &n, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
