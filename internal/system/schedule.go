package system

import (
	"go.uber.org/zap"

	"github.com/crawld/server/internal/core/sched"
	"github.com/crawld/server/internal/world"
)

// Canonical schedule names. Handlers are registered under these at boot and
// armed on demand; the schedule table row makes arming survive restarts.
const (
	ScheduleAI          = "tick_enemies"
	ScheduleAbilities   = "tick_abilities"
	ScheduleOpenWorld   = "tick_open_world"
	ScheduleMatchmaking = "tick_matchmaking"
	SchedulePersist     = "tick_persist"
)

// ArmSchedule arms a registered handler and records the durable row that
// re-arms it after a restart. Arming twice is a no-op.
func ArmSchedule(st *world.State, sc *sched.Scheduler, name string) {
	if sc.Armed(name) {
		return
	}
	if !sc.Arm(name) {
		return
	}
	if !st.Schedules.Has(name) {
		every, _ := sc.Interval(name)
		st.Schedules.Insert(name, &world.Schedule{Name: name, EveryMS: every.Milliseconds()})
	}
}

// ArmCombat arms the per-tick simulation handlers that every dungeon or
// raid needs running. Ability cooldowns deliberately tick on their own
// named schedule instead of inside tick_enemies: the two arm in lockstep,
// but each keeps its own durable row and a restart restores them
// independently.
func ArmCombat(st *world.State, sc *sched.Scheduler) {
	ArmSchedule(st, sc, ScheduleAI)
	ArmSchedule(st, sc, ScheduleAbilities)
}

// ReArmStored arms every handler named by a restored schedule row, so ticking
// resumes after a restart without waiting for a command. Rows naming handlers
// this build no longer registers are reported and left alone.
func ReArmStored(st *world.State, sc *sched.Scheduler, log *zap.Logger) {
	st.Schedules.Each(func(name string, _ *world.Schedule) {
		if !sc.Arm(name) {
			log.Warn("stored schedule has no handler", zap.String("name", name))
		}
	})
}
