package sched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegisteredStartsDisarmed(t *testing.T) {
	s := New(zap.NewNop())
	fired := 0
	s.Register("x", 100*time.Millisecond, func(time.Time, float64) { fired++ })

	s.Advance(time.Now(), time.Second)
	assert.Zero(t, fired)
	assert.False(t, s.Armed("x"))
}

func TestArmUnknown(t *testing.T) {
	s := New(zap.NewNop())
	assert.False(t, s.Arm("nope"))
}

func TestFiresAtInterval(t *testing.T) {
	s := New(zap.NewNop())
	fired := 0
	var gotDT float64
	s.Register("x", 100*time.Millisecond, func(_ time.Time, dt float64) {
		fired++
		gotDT = dt
	})
	require.True(t, s.Arm("x"))

	now := time.Now()
	s.Advance(now, 50*time.Millisecond)
	assert.Zero(t, fired)

	s.Advance(now, 50*time.Millisecond)
	assert.Equal(t, 1, fired)
	assert.InDelta(t, 0.1, gotDT, 1e-9, "dt is the nominal interval, not measured time")

	s.Advance(now, 99*time.Millisecond)
	assert.Equal(t, 1, fired)
}

func TestBacklogClampedToOneInterval(t *testing.T) {
	s := New(zap.NewNop())
	fired := 0
	s.Register("x", 100*time.Millisecond, func(time.Time, float64) { fired++ })
	s.Arm("x")

	now := time.Now()

	// A one second stall is worth ten intervals but fires at most once per
	// advance, and only one interval of backlog survives.
	s.Advance(now, time.Second)
	assert.Equal(t, 1, fired)

	s.Advance(now, 0)
	assert.Equal(t, 2, fired)

	s.Advance(now, 0)
	assert.Equal(t, 2, fired)
}

func TestRegistrationOrder(t *testing.T) {
	s := New(zap.NewNop())
	var order []string
	s.Register("first", 10*time.Millisecond, func(time.Time, float64) { order = append(order, "first") })
	s.Register("second", 10*time.Millisecond, func(time.Time, float64) { order = append(order, "second") })
	s.Arm("first")
	s.Arm("second")

	s.Advance(time.Now(), 10*time.Millisecond)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestArmIdempotent(t *testing.T) {
	s := New(zap.NewNop())
	fired := 0
	s.Register("x", 100*time.Millisecond, func(time.Time, float64) { fired++ })
	s.Arm("x")

	s.Advance(time.Now(), 90*time.Millisecond)

	// Re-arming an armed handler must not reset the accumulator.
	s.Arm("x")
	s.Advance(time.Now(), 10*time.Millisecond)
	assert.Equal(t, 1, fired)
}

func TestInterval(t *testing.T) {
	s := New(zap.NewNop())
	s.Register("x", 250*time.Millisecond, func(time.Time, float64) {})

	every, ok := s.Interval("x")
	require.True(t, ok)
	assert.Equal(t, 250*time.Millisecond, every)

	_, ok = s.Interval("y")
	assert.False(t, ok)
}
