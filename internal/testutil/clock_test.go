package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.UnixMilli(1700000000000)

func TestManualClock_Now(t *testing.T) {
	clock := NewManualClock(epoch)
	assert.Equal(t, epoch, clock.Now())

	clock.Advance(5 * time.Second)
	assert.Equal(t, epoch.Add(5*time.Second), clock.Now())
}

func TestManualTicker_FiresOnAdvance(t *testing.T) {
	clock := NewManualClock(epoch)
	tk := clock.NewTicker(30 * time.Second)

	clock.Advance(29 * time.Second)
	assert.Empty(t, tk.C(), "deadline not reached")

	clock.Advance(time.Second)
	select {
	case at := <-tk.C():
		assert.Equal(t, epoch.Add(30*time.Second), at)
	default:
		t.Fatal("expected tick")
	}
}

func TestManualTicker_CoalescesSlowReader(t *testing.T) {
	clock := NewManualClock(epoch)
	tk := clock.NewTicker(time.Second)

	clock.Advance(10 * time.Second)
	clock.Advance(time.Second)

	assert.Len(t, tk.C(), 1, "buffer of one drops extra ticks")
}

func TestManualTicker_Stop(t *testing.T) {
	clock := NewManualClock(epoch)
	tk := clock.NewTicker(time.Second)
	tk.Stop()

	assert.True(t, tk.Stopped())
	assert.False(t, tk.Fire())
	clock.Advance(time.Minute)
	assert.Empty(t, tk.C())
}

func TestManualTicker_Fire(t *testing.T) {
	clock := NewManualClock(epoch)
	tk := clock.NewTicker(time.Minute)

	require.True(t, tk.Fire())
	assert.False(t, tk.Fire(), "a tick is already pending")
	<-tk.C()
	assert.True(t, tk.Fire())
}

func TestManualClock_LastTicker(t *testing.T) {
	clock := NewManualClock(epoch)
	assert.Nil(t, clock.LastTicker())

	first := clock.NewTicker(time.Second)
	second := clock.NewTicker(2 * time.Second)
	assert.Same(t, second, clock.LastTicker())
	assert.Equal(t, []*ManualTicker{first, second}, clock.Tickers())
	assert.Equal(t, 2*time.Second, second.Period())
}
