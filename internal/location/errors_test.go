package location

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Message(t *testing.T) {
	err := NewError(KindStoreQuery, "negative limit %d", -1)
	assert.Equal(t, "STORE_QUERY_ERROR: negative limit -1", err.Error())

	cause := errors.New("disk full")
	wrapped := WrapError(KindDurabilityWriteFailed, "flush snapshot", cause)
	assert.Equal(t, "DURABILITY_WRITE_FAILED: flush snapshot: disk full", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestKindOf_Wrapped(t *testing.T) {
	base := NewInvalidSample("latitude is not finite")
	err := fmt.Errorf("append: %w", base)

	assert.Equal(t, KindInvalidSample, KindOf(err))
	assert.True(t, IsKind(err, KindInvalidSample))
	assert.False(t, IsKind(err, KindStoreQuery))
	assert.False(t, IsKind(nil, KindInvalidSample))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestPosition_Validate(t *testing.T) {
	tests := []struct {
		name string
		pos  Position
		ok   bool
	}{
		{"finite", Position{Latitude: 35.6, Longitude: 139.7}, true},
		{"out of range is accepted", Position{Latitude: 123, Longitude: 500}, true},
		{"with accuracy", Position{Latitude: 1, Longitude: 2, Accuracy: Accuracy(5)}, true},
		{"nan latitude", Position{Latitude: math.NaN(), Longitude: 1}, false},
		{"inf longitude", Position{Latitude: 1, Longitude: math.Inf(-1)}, false},
		{"nan accuracy", Position{Latitude: 1, Longitude: 1, Accuracy: Accuracy(math.NaN())}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pos.Validate()
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsKind(err, KindInvalidSample))
		})
	}
}

func TestSnapshot_CloneIsDeep(t *testing.T) {
	orig := Snapshot{
		NextID:  3,
		Samples: []Sample{{ID: 1, Accuracy: Accuracy(4)}, {ID: 2}},
	}

	c := orig.Clone()
	*c.Samples[0].Accuracy = 99
	c.Samples[1].Latitude = 10

	assert.Equal(t, 4.0, *orig.Samples[0].Accuracy)
	assert.Equal(t, 0.0, orig.Samples[1].Latitude)
	assert.Equal(t, uint64(3), c.NextID)
}
