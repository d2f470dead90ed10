package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crawld/server/internal/core/sched"
	"github.com/crawld/server/internal/world"
)

func TestArmScheduleRecordsADurableRow(t *testing.T) {
	st := world.New()
	sc := sched.New(zap.NewNop())
	fired := 0
	sc.Register(ScheduleAI, 50*time.Millisecond, func(time.Time, float64) { fired++ })

	ArmSchedule(st, sc, ScheduleAI)
	assert.True(t, sc.Armed(ScheduleAI))
	row, ok := st.Schedules.Find(ScheduleAI)
	require.True(t, ok)
	assert.Equal(t, int64(50), row.EveryMS)

	// Re-arming an armed schedule touches nothing.
	st.Journal.Drain()
	ArmSchedule(st, sc, ScheduleAI)
	assert.Equal(t, 0, st.Journal.Pending())

	// Unregistered names never get a row.
	ArmSchedule(st, sc, "compactor")
	assert.False(t, st.Schedules.Has("compactor"))

	sc.Advance(time.Now(), 50*time.Millisecond)
	assert.Equal(t, 1, fired)
}

func TestReArmStoredResumesRestoredSchedules(t *testing.T) {
	st := world.New()
	sc := sched.New(zap.NewNop())
	fired := 0
	sc.Register(ScheduleAI, 50*time.Millisecond, func(time.Time, float64) { fired++ })
	sc.Register(ScheduleMatchmaking, time.Second, func(time.Time, float64) {})

	// Rows as a snapshot restore would leave them, including one naming a
	// handler this build no longer has.
	st.Schedules.Insert(ScheduleAI, &world.Schedule{Name: ScheduleAI, EveryMS: 50})
	st.Schedules.Insert("retired", &world.Schedule{Name: "retired", EveryMS: 50})

	ReArmStored(st, sc, zap.NewNop())
	assert.True(t, sc.Armed(ScheduleAI))
	assert.False(t, sc.Armed(ScheduleMatchmaking))

	sc.Advance(time.Now(), 50*time.Millisecond)
	assert.Equal(t, 1, fired)
}
