package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crawld/server/internal/core/sched"
	"github.com/crawld/server/internal/data"
	"github.com/crawld/server/internal/world"
)

type matchRig struct {
	state *world.State
	mm    *Matchmaker
	sc    *sched.Scheduler
}

func newMatchRig(t *testing.T) *matchRig {
	t.Helper()
	st := world.New()
	enemies, err := data.LoadEnemyTable("")
	require.NoError(t, err)
	spawns, err := data.LoadSpawnTable("")
	require.NoError(t, err)
	sc := sched.New(zap.NewNop())
	noop := func(time.Time, float64) {}
	sc.Register(ScheduleAI, 50*time.Millisecond, noop)
	sc.Register(ScheduleAbilities, 50*time.Millisecond, noop)
	sp := NewSpawner(st, enemies, spawns, zap.NewNop())
	return &matchRig{state: st, mm: NewMatchmaker(st, enemies, sp, sc, zap.NewNop()), sc: sc}
}

func (r *matchRig) addPlayer(id world.Identity, class world.Class) {
	r.state.Players.Insert(id, &world.Player{
		Identity: id, Name: "queued", Class: class, Level: 1, HP: 80, MaxHP: 80,
	})
}

func (r *matchRig) queueDungeon(id world.Identity, tier, difficulty uint8, at time.Time) {
	r.addPlayer(id, world.ClassDPS)
	r.state.DungeonQueue.Insert(id, &world.QueueEntry{
		Player: id, Tier: tier, Difficulty: difficulty, QueuedAt: at.UnixMicro(),
	})
}

func (r *matchRig) queueRaid(id world.Identity, class world.Class, at time.Time) {
	r.addPlayer(id, class)
	r.state.RaidQueue.Insert(id, &world.RaidQueueEntry{
		Player: id, Class: class, QueuedAt: at.UnixMicro(),
	})
}

func TestMatchmakerPairsABucket(t *testing.T) {
	r := newMatchRig(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r.queueDungeon(7, 1, 3, base)
	r.queueDungeon(8, 1, 3, base.Add(time.Second))

	r.mm.Tick(base.Add(2*time.Second), 1.0)

	require.Equal(t, 1, r.state.Dungeons.Len())
	d := r.state.LatestDungeon()
	require.NotNil(t, d)
	assert.Equal(t, uint32(1), d.Depth)
	assert.Equal(t, uint32(4), d.TotalRooms)
	// Difficulty 3 at 1.3, plus 10% for the second body.
	assert.InDelta(t, 1.43, d.StatMult, 1e-9)
	assert.Equal(t, world.Identity(7), d.Owner)

	assert.True(t, r.state.IsParticipant(d.ID, 7))
	assert.True(t, r.state.IsParticipant(d.ID, 8))
	assert.Equal(t, 0, r.state.DungeonQueue.Len())

	assert.Equal(t, 4, r.state.Enemies.Len())
	assert.True(t, r.sc.Armed(ScheduleAI))
	assert.True(t, r.sc.Armed(ScheduleAbilities))
	assert.True(t, r.state.Schedules.Has(ScheduleAI))
}

func TestMatchmakerKeepsBucketsApart(t *testing.T) {
	r := newMatchRig(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r.queueDungeon(7, 1, 1, base)
	r.queueDungeon(8, 2, 1, base)
	r.queueDungeon(9, 1, 2, base)

	r.mm.Tick(base.Add(time.Second), 1.0)

	assert.Equal(t, 0, r.state.Dungeons.Len())
	assert.Equal(t, 3, r.state.DungeonQueue.Len())
}

func TestMatchmakerReleasesSoloAfterTimeout(t *testing.T) {
	r := newMatchRig(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r.queueDungeon(7, 2, 3, base)

	r.mm.Tick(base.Add(29*time.Second), 1.0)
	assert.Equal(t, 0, r.state.Dungeons.Len())

	r.mm.Tick(base.Add(31*time.Second), 1.0)
	require.Equal(t, 1, r.state.Dungeons.Len())
	d := r.state.LatestDungeon()
	assert.Equal(t, uint32(2), d.Depth)
	// Party-size bonus drops out for a party of one.
	assert.InDelta(t, 1.3, d.StatMult, 1e-9)
	assert.Equal(t, 1, r.state.ParticipantCount(d.ID))
	assert.Equal(t, 0, r.state.DungeonQueue.Len())
}

func TestMatchmakerFormsRaidOldestFirst(t *testing.T) {
	r := newMatchRig(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	at := func(s int) time.Time { return base.Add(time.Duration(s) * time.Second) }

	r.queueRaid(1, world.ClassTank, at(1))
	r.queueRaid(2, world.ClassTank, at(2))
	r.queueRaid(3, world.ClassHealer, at(3))
	r.queueRaid(4, world.ClassDPS, at(4))
	r.queueRaid(5, world.ClassDPS, at(5))
	r.queueRaid(6, world.ClassDPS, at(0))

	r.mm.Tick(at(6), 1.0)

	// One full party: the older tank, the healer, the two oldest dps.
	require.Equal(t, 1, r.state.Raids.Len())
	var raid *world.Raid
	r.state.Raids.Each(func(_ uint64, rr *world.Raid) { raid = rr })
	members := RaidMembers(r.state, raid.ID)
	assert.ElementsMatch(t, []world.Identity{1, 3, 4, 6}, members)

	// The spares stay queued.
	assert.True(t, r.state.RaidQueue.Has(2))
	assert.True(t, r.state.RaidQueue.Has(5))
	assert.Equal(t, 2, r.state.RaidQueue.Len())

	d, ok := r.state.Dungeons.Find(raid.DungeonID)
	require.True(t, ok)
	assert.True(t, d.IsRaid)
	assert.Equal(t, uint32(1), d.TotalRooms)
	assert.Equal(t, 1.0, d.StatMult)

	// One boss, quadruple hp and half again the attack, centered.
	boss, ok := r.state.Enemies.Find(raid.BossID)
	require.True(t, ok)
	assert.True(t, boss.IsBoss)
	assert.Equal(t, uint8(1), boss.BossPhase)
	assert.Equal(t, int32(1200), boss.HP)
	assert.Equal(t, int32(27), boss.Atk)
	assert.Equal(t, world.SpawnX, boss.X)
	assert.Equal(t, world.SpawnY, boss.Y)
	assert.Equal(t, 1, r.state.Enemies.Len())

	for _, id := range members {
		mode, ok := r.state.Modes.Find(id)
		require.True(t, ok)
		assert.Equal(t, world.ModeRaid, mode.Mode)
		assert.Equal(t, raid.ID, mode.InstanceID)
		assert.True(t, r.state.IsParticipant(d.ID, id))
	}
}

func TestMatchmakerDrainsEveryFullParty(t *testing.T) {
	r := newMatchRig(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		off := time.Duration(i) * time.Second
		r.queueRaid(world.Identity(10+i), world.ClassTank, base.Add(off))
		r.queueRaid(world.Identity(20+i), world.ClassHealer, base.Add(off))
		r.queueRaid(world.Identity(30+i), world.ClassDPS, base.Add(off))
		r.queueRaid(world.Identity(40+i), world.ClassDPS, base.Add(off))
	}

	r.mm.Tick(base.Add(time.Minute), 1.0)

	assert.Equal(t, 2, r.state.Raids.Len())
	assert.Equal(t, 0, r.state.RaidQueue.Len())
}

func TestMatchmakerHoldsIncompleteComposition(t *testing.T) {
	r := newMatchRig(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r.queueRaid(1, world.ClassTank, base)
	r.queueRaid(2, world.ClassHealer, base)
	r.queueRaid(3, world.ClassDPS, base)

	// One dps short; raids never time out into a smaller group.
	r.mm.Tick(base.Add(time.Hour), 1.0)
	assert.Equal(t, 0, r.state.Raids.Len())
	assert.Equal(t, 3, r.state.RaidQueue.Len())
}
