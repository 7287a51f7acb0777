package plan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rematch/internal/ir"
)

func TestCompile_FullPlan(t *testing.T) {
	task, err := Compile([]byte(`
		task: {
			source: {file_version: 3, start: 0x1000, end: 0x1fff}
			target: project: 1
			strategy: "binning_strategy"
			matchers: ["assembly_hash", "mnemonic_euclidean"]
		}
	`), "plan.cue")
	require.NoError(t, err)

	assert.Equal(t, ir.StatusPending, task.Status)
	assert.Equal(t, int64(3), task.SourceFileVersionID)
	require.NotNil(t, task.SourceStart)
	assert.Equal(t, int64(0x1000), *task.SourceStart)
	require.NotNil(t, task.SourceEnd)
	assert.Equal(t, int64(0x1fff), *task.SourceEnd)
	assert.Nil(t, task.TargetFileID)
	require.NotNil(t, task.TargetProjectID)
	assert.Equal(t, int64(1), *task.TargetProjectID)
	assert.Equal(t, "binning_strategy", task.Strategy)
	assert.Equal(t, []string{"assembly_hash", "mnemonic_euclidean"}, task.Matchers)
}

func TestCompile_Defaults(t *testing.T) {
	task, err := Compile([]byte(`
		task: {
			source: file_version: 7
			target: file: 2
		}
	`), "plan.cue")
	require.NoError(t, err)

	assert.Equal(t, "all_strategy", task.Strategy)
	assert.Equal(t, []string{}, task.Matchers)
	assert.Nil(t, task.SourceStart)
	assert.Nil(t, task.SourceEnd)
	require.NotNil(t, task.TargetFileID)
	assert.Equal(t, int64(2), *task.TargetFileID)
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			name:    "missing task",
			src:     `other: 1`,
			wantErr: "task is required",
		},
		{
			name:    "syntax error",
			src:     `task: {`,
			wantErr: "plan.cue",
		},
		{
			name: "both targets",
			src: `task: {
				source: file_version: 1
				target: {file: 2, project: 3}
			}`,
		},
		{
			name: "no target",
			src: `task: {
				source: file_version: 1
			}`,
		},
		{
			name: "negative offset",
			src: `task: {
				source: {file_version: 1, start: -1}
				target: file: 2
			}`,
		},
		{
			name: "unknown field",
			src: `task: {
				source: file_version: 1
				target: file: 2
				priority: "high"
			}`,
		},
		{
			name: "matcher not a string",
			src: `task: {
				source: file_version: 1
				target: file: 2
				matchers: [42]
			}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile([]byte(tt.src), "plan.cue")
			require.Error(t, err)
			if tt.wantErr != "" {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestCompileFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.cue")
	require.NoError(t, os.WriteFile(path, []byte(`task: {source: file_version: 1, target: file: 2, matchers: ["name_hash"]}`), 0o644))

	task, err := CompileFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"name_hash"}, task.Matchers)

	_, err = CompileFile(filepath.Join(t.TempDir(), "missing.cue"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCompileError_Format(t *testing.T) {
	err := &CompileError{Field: "task", Message: "task is required"}
	assert.Equal(t, "task: task is required", err.Error())
}
