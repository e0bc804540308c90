package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loctrack/internal/location"
	"github.com/roach88/loctrack/internal/source"
)

func TestScriptedSource_Probe(t *testing.T) {
	src := NewScriptedSource(location.Position{Latitude: 1, Longitude: 2, Timestamp: 3})

	pos, err := src.ProbeOnce(context.Background(), source.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 1.0, pos.Latitude)
	assert.Equal(t, 1, src.ProbeCalls())
	assert.Equal(t, source.DefaultConfig(), src.LastConfig())

	denied := source.NewPositionError(source.CodePermissionDenied, "denied")
	src.SetProbe(location.Position{}, denied)
	_, err = src.ProbeOnce(context.Background(), source.DefaultConfig())
	assert.ErrorIs(t, err, denied)
}

func TestScriptedSource_HoldProbe(t *testing.T) {
	src := NewScriptedSource(location.Position{Latitude: 1})
	release := src.HoldProbe()

	done := make(chan error, 1)
	go func() {
		_, err := src.ProbeOnce(context.Background(), source.DefaultConfig())
		done <- err
	}()

	<-src.Probing()
	select {
	case <-done:
		t.Fatal("probe returned while held")
	case <-time.After(20 * time.Millisecond):
	}

	release()
	release()
	require.NoError(t, <-done)
}

func TestScriptedSource_EmitAndFail(t *testing.T) {
	src := NewScriptedSource(location.Position{})
	assert.False(t, src.Emit(location.Position{}), "nothing subscribed")

	var updates []location.Position
	var errs []error
	sub, err := src.Subscribe(source.DefaultConfig(),
		func(p location.Position) { updates = append(updates, p) },
		func(err error) { errs = append(errs, err) },
	)
	require.NoError(t, err)

	assert.True(t, src.Emit(location.Position{Latitude: 5}))
	assert.True(t, src.Fail(errors.New("lost")))
	assert.Len(t, updates, 1)
	assert.Len(t, errs, 1)

	sub.Unsubscribe()
	assert.Nil(t, src.Active())
	assert.False(t, src.Emit(location.Position{}))
	assert.True(t, src.Subscriptions()[0].Cancelled())
}

func TestScriptedSource_SubscribeError(t *testing.T) {
	src := NewScriptedSource(location.Position{})
	boom := errors.New("no stream")
	src.SetSubscribeError(boom)

	_, err := src.Subscribe(source.DefaultConfig(), func(location.Position) {}, func(error) {})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, src.Subscriptions())
}
