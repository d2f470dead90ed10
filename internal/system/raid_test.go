package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crawld/server/internal/scripting"
	"github.com/crawld/server/internal/world"
)

func TestFinishRaidPaysLocksAndTearsDown(t *testing.T) {
	r := newMatchRig(t)
	scripts, err := scripting.NewEngine("", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(scripts.Close)

	// Late evening so the lockout crosses midnight while the daily clear
	// keeps the kill day's date.
	now := time.Date(2024, 3, 1, 23, 50, 0, 0, time.UTC)
	r.state.SetClock(func() time.Time { return now })

	r.queueRaid(1, world.ClassTank, now.Add(-time.Minute))
	r.queueRaid(2, world.ClassHealer, now.Add(-time.Minute))
	r.queueRaid(3, world.ClassDPS, now.Add(-time.Minute))
	r.queueRaid(4, world.ClassDPS, now.Add(-time.Minute))
	r.mm.Tick(now, 1.0)
	require.Equal(t, 1, r.state.Raids.Len())
	var raid *world.Raid
	r.state.Raids.Each(func(_ uint64, rr *world.Raid) { raid = rr })

	// High enough that the reward does not also level anyone.
	for id := world.Identity(1); id <= 4; id++ {
		p, _ := r.state.Players.Find(id)
		p.Level = 5
	}
	hurt, _ := r.state.Players.Find(2)
	hurt.HP = 10

	// A second clear the same day must not rewrite the first mark.
	r.state.DailyClears.Insert(
		world.DailyClearKey{Player: 3, Date: "2024-03-01"},
		&world.DailyRaidClear{Player: 3, Date: "2024-03-01", ClearedAt: 111},
	)

	FinishRaid(r.state, scripts, raid.ID, zap.NewNop())

	for id := world.Identity(1); id <= 4; id++ {
		p, ok := r.state.Players.Find(id)
		require.True(t, ok)
		assert.Equal(t, uint64(200), p.XP)
		assert.Equal(t, uint64(100), p.Gold)
		assert.Equal(t, uint32(5), p.Level)
		assert.Equal(t, p.MaxHP, p.HP)

		cd, ok := r.state.RaidCooldowns.Find(id)
		require.True(t, ok)
		assert.Equal(t, now.Add(30*time.Minute).UnixMicro(), cd.Until)
		assert.True(t, cd.Dirty)

		clear, ok := r.state.DailyClears.Find(world.DailyClearKey{Player: id, Date: "2024-03-01"})
		require.True(t, ok)
		if id == 3 {
			assert.Equal(t, int64(111), clear.ClearedAt)
		} else {
			assert.Equal(t, now.UnixMicro(), clear.ClearedAt)
		}

		mode, ok := r.state.Modes.Find(id)
		require.True(t, ok)
		assert.Equal(t, world.ModeHub, mode.Mode)
	}

	// Raid, dungeon and everything scoped to them are gone.
	assert.Equal(t, 0, r.state.Raids.Len())
	assert.Equal(t, 0, r.state.RaidParticipants.Len())
	assert.False(t, r.state.Dungeons.Has(raid.DungeonID))
	assert.Equal(t, 0, r.state.Enemies.Len())
	assert.Equal(t, 0, r.state.Positions.Len())
	assert.Equal(t, 0, r.state.Participants.Len())
}

func TestFinishRaidUnknownIDIsANoop(t *testing.T) {
	r := newMatchRig(t)
	scripts, err := scripting.NewEngine("", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(scripts.Close)

	FinishRaid(r.state, scripts, 424242, zap.NewNop())
	assert.Equal(t, 0, r.state.Raids.Len())
}
