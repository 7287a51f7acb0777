package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusStarted.Terminal())
	assert.True(t, StatusDone.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestTaskStatus_Label(t *testing.T) {
	assert.Equal(t, "Pending in Queue...", StatusPending.Label())
	assert.Equal(t, "Done!", StatusDone.Label())
	assert.Equal(t, "bogus", TaskStatus("bogus").Label())
}

func TestVectorTypes(t *testing.T) {
	types := VectorTypes()
	assert.Len(t, types, 8)
	assert.Equal(t, VectorInstructionHash, types[0])

	for _, vt := range types {
		assert.True(t, vt.Valid(), vt)
		assert.NotEqual(t, string(vt), vt.Label(), "every category has a display name")
	}
	assert.False(t, VectorType("nonexistent").Valid())
}

func TestInt64(t *testing.T) {
	p := Int64(42)
	assert.Equal(t, int64(42), *p)
}
