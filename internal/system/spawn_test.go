package system

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crawld/server/internal/world"
)

// spawnedIn returns a dungeon's enemies in mint order.
func spawnedIn(st *world.State, dungeonID uint64) []*world.Enemy {
	var ids []uint64
	st.Enemies.Each(func(id uint64, e *world.Enemy) {
		if e.DungeonID == dungeonID {
			ids = append(ids, id)
		}
	})
	slices.Sort(ids)
	out := make([]*world.Enemy, 0, len(ids))
	for _, id := range ids {
		e, _ := st.Enemies.Find(id)
		out = append(out, e)
	}
	return out
}

func TestSpawnRoomScalesTheOpeningSet(t *testing.T) {
	r := newAIRig(t)
	d := &world.Dungeon{ID: 1, Depth: 2, TotalRooms: 4, Seed: 12345, StatMult: 1.15}
	r.state.Dungeons.Insert(1, d)

	require.Equal(t, 4, r.spawner.SpawnRoom(d, 0))

	byType := map[string]int{}
	for _, e := range spawnedIn(r.state, 1) {
		byType[e.Type]++
		assert.Equal(t, uint32(0), e.RoomIndex)
		assert.True(t, e.IsAlive)
		assert.True(t, world.InRoomBounds(e.X, e.Y))
		if e.Type == "slime" {
			assert.Equal(t, int32(46), e.HP) // 40 * 1.15
			assert.Equal(t, int32(9), e.Atk) // 8 * 1.15 truncated
		}
	}
	assert.Equal(t, map[string]int{"slime": 2, "skeleton": 1, "bat": 1}, byType)
}

func TestSpawnRoomWiresTheWolfPack(t *testing.T) {
	r := newAIRig(t)
	d := &world.Dungeon{ID: 1, Depth: 1, TotalRooms: 4, Seed: 9000, StatMult: 1.0}
	r.state.Dungeons.Insert(1, d)

	require.Equal(t, 4, r.spawner.SpawnRoom(d, 2))

	states := map[string]string{}
	var packs []uint64
	for _, e := range spawnedIn(r.state, 1) {
		states[e.Type] = e.AIState
		if e.Type == "wolf" {
			packs = append(packs, e.PackID)
			// Bite cooldown rides in TargetX; wolves spawn ready.
			assert.Equal(t, 0.0, e.TargetX)
		}
	}
	require.Len(t, packs, 2)
	assert.Equal(t, packs[0], packs[1])
	assert.NotZero(t, packs[0])
	assert.Equal(t, "orbit", states["wolf"])
	assert.Equal(t, "flee", states["necromancer"])
	assert.Equal(t, "chase", states["bomber"])
}

func TestBossRoomCentersTheBoss(t *testing.T) {
	r := newAIRig(t)
	d := &world.Dungeon{ID: 1, Depth: 1, TotalRooms: 4, Seed: 4242, StatMult: 1.0}
	r.state.Dungeons.Insert(1, d)

	require.Equal(t, 1, r.spawner.SpawnRoom(d, 3))
	boss := spawnedIn(r.state, 1)[0]
	assert.Equal(t, world.SpawnX, boss.X)
	assert.Equal(t, world.SpawnY, boss.Y)
	assert.True(t, boss.IsBoss)
	assert.Equal(t, uint8(1), boss.BossPhase)
	assert.Equal(t, "chase", boss.AIState)
	assert.Equal(t, int32(300), boss.HP)
}

func TestSameSeedSameLayout(t *testing.T) {
	r := newAIRig(t)
	a := &world.Dungeon{ID: 1, Depth: 1, TotalRooms: 4, Seed: 777, StatMult: 1.0}
	b := &world.Dungeon{ID: 2, Depth: 1, TotalRooms: 4, Seed: 777, StatMult: 1.0}
	r.state.Dungeons.Insert(1, a)
	r.state.Dungeons.Insert(2, b)
	r.spawner.SpawnRoom(a, 0)
	r.spawner.SpawnRoom(b, 0)

	first := spawnedIn(r.state, 1)
	second := spawnedIn(r.state, 2)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Type, second[i].Type)
		assert.Equal(t, first[i].X, second[i].X)
		assert.Equal(t, first[i].Y, second[i].Y)
		assert.Equal(t, first[i].FacingAngle, second[i].FacingAngle)
	}
}

func TestRoomsPastTheTableUseTheFallback(t *testing.T) {
	r := newAIRig(t)
	d := &world.Dungeon{ID: 1, Depth: 1, TotalRooms: 4, Seed: 1, StatMult: 1.0}
	r.state.Dungeons.Insert(1, d)

	require.Equal(t, 2, r.spawner.SpawnRoom(d, 9))
	byType := map[string]int{}
	for _, e := range spawnedIn(r.state, 1) {
		byType[e.Type]++
	}
	assert.Equal(t, map[string]int{"slime": 1, "skeleton": 1}, byType)
}
