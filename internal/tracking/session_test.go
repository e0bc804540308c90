package tracking

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7Generator(t *testing.T) {
	gen := UUIDv7Generator{}
	a, b := gen.Generate(), gen.Generate()

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.NotEqual(t, a, b)
	assert.Less(t, a, b, "UUIDv7 sorts by creation time")
}

func TestFixedGenerator(t *testing.T) {
	gen := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", gen.Generate())
	assert.Equal(t, "b", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}

func TestSequentialGenerator(t *testing.T) {
	gen := NewSequentialGenerator("")
	assert.Equal(t, "session-1", gen.Generate())
	assert.Equal(t, "session-2", gen.Generate())
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "Idle", StatusIdle.String())
	assert.Equal(t, "AcquiringPermission", StatusAcquiringPermission.String())
	assert.Equal(t, "Active", StatusActive.String())
	assert.Equal(t, "Faulted", StatusFaulted.String())
	assert.Equal(t, "Status(9)", Status(9).String())

	text, err := StatusActive.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "Active", string(text))
}
