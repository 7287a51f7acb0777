package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rematch/internal/ir"
)

func TestGetTask_ResolvesSourceFile(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	ids := seedStore(t, s)

	id, err := s.CreateTask(ctx, ir.Task{
		SourceFileVersionID: ids.srcVersion,
		SourceStart:         ir.Int64(0x1000),
		SourceEnd:           ir.Int64(0x1fff),
		TargetProjectID:     ir.Int64(ids.project),
		Matchers:            []string{"instruction_hash", "mnemonic_hist"},
		Strategy:            "binning_strategy",
		Created:             testTime,
	})
	require.NoError(t, err)

	task, err := s.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, task.ID)
	assert.Equal(t, ids.srcFile, task.SourceFileID)
	assert.Equal(t, int64(0x1000), *task.SourceStart)
	assert.Equal(t, int64(0x1fff), *task.SourceEnd)
	assert.Nil(t, task.TargetFileID)
	assert.Equal(t, ids.project, *task.TargetProjectID)
	assert.Equal(t, []string{"instruction_hash", "mnemonic_hist"}, task.Matchers)
	assert.Equal(t, "binning_strategy", task.Strategy)
	assert.Equal(t, testTime, task.Created)
	assert.Nil(t, task.Finished)
}

func TestGet_NotFound(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.GetTask(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetProject(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetFile(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetFileVersion(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetInstance(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListTasks(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	tasks, err := s.ListTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.NotNil(t, tasks)

	ids := seedStore(t, s)
	first := createTestTask(t, s, ids)
	second := createTestTask(t, s, ids)

	tasks, err = s.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, first, tasks[0].ID)
	assert.Equal(t, second, tasks[1].ID)
}

func TestListMatches_AndParticipants(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	ids := seedStore(t, s)
	taskID := createTestTask(t, s, ids)
	other := createTestTask(t, s, ids)

	matches := []ir.Match{
		{TaskID: taskID, FromInstanceID: ids.srcInst[1], ToInstanceID: ids.tgtInst[0], Type: "assembly_hash", Score: 70, Created: testTime},
		{TaskID: taskID, FromInstanceID: ids.srcInst[0], ToInstanceID: ids.tgtInst[0], Type: "assembly_hash", Score: 70, Created: testTime},
		{TaskID: other, FromInstanceID: ids.srcInst[0], ToInstanceID: ids.tgtInst[1], Type: "name_hash", Score: 100, Created: testTime},
	}
	require.NoError(t, s.InsertMatches(ctx, matches))

	got, err := s.ListMatches(ctx, taskID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ids.srcInst[1], got[0].FromInstanceID)
	assert.Equal(t, 70.0, got[0].Score)
	assert.Equal(t, testTime, got[0].Created)

	locals, err := s.TaskLocals(ctx, taskID)
	require.NoError(t, err)
	require.Len(t, locals, 2)
	assert.Equal(t, ids.srcInst[0], locals[0].ID)
	assert.Equal(t, ids.srcInst[1], locals[1].ID)

	remotes, err := s.TaskRemotes(ctx, taskID)
	require.NoError(t, err)
	require.Len(t, remotes, 1)
	assert.Equal(t, ids.tgtInst[0], remotes[0].ID)
	assert.Equal(t, int64(0x1000), *remotes[0].Offset)

	empty, err := s.ListMatches(ctx, 9999)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
