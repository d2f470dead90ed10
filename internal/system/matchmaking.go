package system

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/crawld/server/internal/core/sched"
	"github.com/crawld/server/internal/data"
	"github.com/crawld/server/internal/scripting"
	"github.com/crawld/server/internal/world"
)

const (
	matchMinParty = 2
	matchMaxWait  = 30 * time.Second

	raidBossHPMult  = 4.0
	raidBossAtkMult = 1.5
)

// Matchmaker forms dungeon parties from the tier/difficulty queue and raid
// parties from the role queue. Runs at 1 Hz; it stays armed once any player
// has ever queued.
type Matchmaker struct {
	state   *world.State
	enemies *data.EnemyTable
	spawner *Spawner
	sched   *sched.Scheduler
	log     *zap.Logger
}

func NewMatchmaker(state *world.State, enemies *data.EnemyTable, spawner *Spawner, sc *sched.Scheduler, log *zap.Logger) *Matchmaker {
	return &Matchmaker{state: state, enemies: enemies, spawner: spawner, sched: sc, log: log}
}

func (m *Matchmaker) Tick(now time.Time, dt float64) {
	m.matchDungeons(now)
	m.matchRaids(now)
}

type matchBucket struct {
	tier, difficulty uint8
}

// matchDungeons groups the queue by (tier, difficulty) and starts a run
// once a bucket has two players or its oldest entry has waited out the
// solo timeout. The whole bucket goes in together.
func (m *Matchmaker) matchDungeons(now time.Time) {
	buckets := make(map[matchBucket][]world.QueueEntry)
	m.state.DungeonQueue.Each(func(_ world.Identity, q *world.QueueEntry) {
		k := matchBucket{tier: q.Tier, difficulty: q.Difficulty}
		buckets[k] = append(buckets[k], *q)
	})

	cutoff := now.Add(-matchMaxWait).UnixMicro()
	for k, group := range buckets {
		sort.Slice(group, func(i, j int) bool { return group[i].QueuedAt < group[j].QueuedAt })
		if len(group) < matchMinParty && group[0].QueuedAt > cutoff {
			continue
		}
		m.formDungeon(now, k.tier, k.difficulty, group)
	}
}

// DifficultyMult is the enemy stat multiplier for a tiered run: the
// difficulty scale times a 10% step per party member past the first.
func DifficultyMult(difficulty uint8, party int) float64 {
	return (1.0 + (float64(difficulty)-1.0)*0.15) * (1.0 + 0.1*float64(party-1))
}

func (m *Matchmaker) formDungeon(now time.Time, tier, difficulty uint8, group []world.QueueEntry) {
	mult := DifficultyMult(difficulty, len(group))

	id := m.state.IDs.Next()
	d := &world.Dungeon{
		ID:         id,
		Owner:      group[0].Player,
		Depth:      uint32(tier),
		TotalRooms: 4,
		Seed:       uint64(now.UnixMicro()),
		StatMult:   mult,
	}
	m.state.Dungeons.Insert(id, d)

	for _, q := range group {
		m.state.JoinDungeon(id, q.Player)
		m.state.DungeonQueue.Delete(q.Player)
	}
	m.spawner.SpawnRoom(d, 0)
	ArmCombat(m.state, m.sched)

	m.log.Info("matchmade dungeon formed",
		zap.Uint64("dungeon", id),
		zap.Uint8("tier", tier),
		zap.Uint8("difficulty", difficulty),
		zap.Int("party", len(group)))
}

// matchRaids forms full raid parties while the composition holds: one
// tank, one healer, two dps, each picked oldest-first within their role.
func (m *Matchmaker) matchRaids(now time.Time) {
	for {
		var tanks, healers, dps []world.RaidQueueEntry
		m.state.RaidQueue.Each(func(_ world.Identity, q *world.RaidQueueEntry) {
			switch q.Class {
			case world.ClassTank:
				tanks = append(tanks, *q)
			case world.ClassHealer:
				healers = append(healers, *q)
			case world.ClassDPS:
				dps = append(dps, *q)
			}
		})
		if len(tanks) < 1 || len(healers) < 1 || len(dps) < 2 {
			return
		}
		byWait := func(s []world.RaidQueueEntry) {
			sort.Slice(s, func(i, j int) bool { return s[i].QueuedAt < s[j].QueuedAt })
		}
		byWait(tanks)
		byWait(healers)
		byWait(dps)
		m.formRaid(now, []world.RaidQueueEntry{tanks[0], healers[0], dps[0], dps[1]})
	}
}

func (m *Matchmaker) formRaid(now time.Time, group []world.RaidQueueEntry) {
	dID := m.state.IDs.Next()
	d := &world.Dungeon{
		ID:         dID,
		Owner:      group[0].Player,
		Depth:      1,
		TotalRooms: 1,
		Seed:       uint64(now.UnixMicro()),
		IsRaid:     true,
		StatMult:   1.0,
	}
	m.state.Dungeons.Insert(dID, d)

	boss := m.spawner.SpawnAt(dID, 0, "raid_boss", world.SpawnX, world.SpawnY, 1.0, 0)
	stats := m.enemies.Get("raid_boss")
	boss.HP = scripting.ScaleStat(stats.HP, raidBossHPMult)
	boss.MaxHP = boss.HP
	boss.Atk = scripting.ScaleStat(stats.Atk, raidBossAtkMult)
	m.state.Enemies.Touch(boss.ID)

	rID := m.state.IDs.Next()
	m.state.Raids.Insert(rID, &world.Raid{
		ID:        rID,
		DungeonID: dID,
		BossID:    boss.ID,
		CreatedAt: now.UnixMicro(),
	})

	for _, q := range group {
		m.state.JoinDungeon(dID, q.Player)
		m.state.RaidParticipants.Insert(
			world.RaidParticipantKey{Raid: rID, Player: q.Player},
			&world.RaidParticipant{RaidID: rID, Player: q.Player, Role: q.Class},
		)
		m.state.Modes.Insert(q.Player, &world.GameMode{
			Identity:   q.Player,
			Mode:       world.ModeRaid,
			InstanceID: rID,
		})
		m.state.RaidQueue.Delete(q.Player)
	}
	ArmCombat(m.state, m.sched)

	m.log.Info("raid formed",
		zap.Uint64("raid", rID),
		zap.Uint64("dungeon", dID),
		zap.Uint64("boss", boss.ID))
}
