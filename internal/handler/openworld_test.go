package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crawld/server/internal/system"
	"github.com/crawld/server/internal/world"
)

func TestEnterOpenWorldPlacesAtTown(t *testing.T) {
	r := newRig(t)
	r.register(7, "Aria", "dps")
	require.NoError(t, r.cmd(7, "enter_open_world", nil))

	wp, ok := r.state.WorldPlayers.Find(7)
	require.True(t, ok)
	assert.Equal(t, uint32(5), wp.RoomX)
	assert.Equal(t, uint32(5), wp.RoomY)
	assert.Equal(t, world.SpawnX, wp.X)
	assert.Equal(t, 1.0, wp.FacingX)
	assert.Equal(t, "Aria", wp.Name)

	require.Equal(t, 1, r.state.Shards.Len())
	r.state.Shards.Each(func(_ uint64, s *world.Shard) {
		assert.Equal(t, wp.InstanceID, s.ID)
		assert.Equal(t, uint32(1), s.PlayerCount)
	})
	mode, ok := r.state.Modes.Find(7)
	require.True(t, ok)
	assert.Equal(t, world.ModeOpenWorld, mode.Mode)
	assert.Equal(t, wp.InstanceID, mode.InstanceID)

	// 95 plain rooms at 8 plus 4 hotspots at 12; the town square is empty.
	assert.Equal(t, 808, r.state.WorldEnemies.Len())
	town := 0
	r.state.WorldEnemies.Each(func(_ uint64, e *world.WorldEnemy) {
		if e.RoomX == 5 && e.RoomY == 5 {
			town++
		}
	})
	assert.Equal(t, 0, town)

	assert.True(t, r.deps.Sched.Armed(system.ScheduleOpenWorld))
	assert.True(t, r.state.Schedules.Has(system.ScheduleOpenWorld))
}

func TestEnterOpenWorldFillsThenOverflows(t *testing.T) {
	r := newRig(t)
	r.register(7, "Aria", "dps")
	r.register(8, "Brim", "tank")
	r.register(9, "Cleo", "healer")

	require.NoError(t, r.cmd(7, "enter_open_world", nil))
	require.NoError(t, r.cmd(8, "enter_open_world", nil))
	assert.Equal(t, 1, r.state.Shards.Len())

	wp7, _ := r.state.WorldPlayers.Find(7)
	shard, ok := r.state.Shards.Find(wp7.InstanceID)
	require.True(t, ok)
	assert.Equal(t, uint32(2), shard.PlayerCount)

	// At the cap a new shard spins up with its own population.
	shard.PlayerCount = 50
	require.NoError(t, r.cmd(9, "enter_open_world", nil))
	wp9, _ := r.state.WorldPlayers.Find(9)
	assert.NotEqual(t, shard.ID, wp9.InstanceID)
	assert.Equal(t, 2, r.state.Shards.Len())
	assert.Equal(t, 2*808, r.state.WorldEnemies.Len())
}

func TestReenterOpenWorldFreesTheOldSlot(t *testing.T) {
	r := newRig(t)
	r.register(7, "Aria", "dps")
	r.register(8, "Brim", "tank")
	require.NoError(t, r.cmd(7, "enter_open_world", nil))
	require.NoError(t, r.cmd(8, "enter_open_world", nil))
	wp7, _ := r.state.WorldPlayers.Find(7)
	first := wp7.InstanceID

	// Re-entering releases the old slot before taking a new one, so the
	// count stays honest instead of leaking up to the cap.
	require.NoError(t, r.cmd(7, "enter_open_world", nil))
	require.Equal(t, 1, r.state.Shards.Len())
	shard, ok := r.state.Shards.Find(first)
	require.True(t, ok)
	assert.Equal(t, uint32(2), shard.PlayerCount)
	assert.Equal(t, 2, r.state.WorldPlayers.Len())
}

func TestReenterAloneRebuildsTheShard(t *testing.T) {
	r := newRig(t)
	r.register(7, "Aria", "dps")
	require.NoError(t, r.cmd(7, "enter_open_world", nil))
	wp, _ := r.state.WorldPlayers.Find(7)
	first := wp.InstanceID

	// Sole occupant: the release empties the shard, which tears it down,
	// and the acquire builds a fresh one.
	require.NoError(t, r.cmd(7, "enter_open_world", nil))
	assert.False(t, r.state.Shards.Has(first))
	require.Equal(t, 1, r.state.Shards.Len())
	assert.Equal(t, 808, r.state.WorldEnemies.Len())
}

func TestLeaveOpenWorldTearsDownEmptyShard(t *testing.T) {
	r := newRig(t)
	r.register(7, "Aria", "dps")
	r.register(8, "Brim", "tank")
	require.NoError(t, r.cmd(7, "enter_open_world", nil))
	require.NoError(t, r.cmd(8, "enter_open_world", nil))

	require.NoError(t, r.cmd(7, "leave_open_world", nil))
	assert.Equal(t, 1, r.state.Shards.Len())
	assert.Equal(t, 808, r.state.WorldEnemies.Len())
	mode, _ := r.state.Modes.Find(7)
	assert.Equal(t, world.ModeHub, mode.Mode)

	require.NoError(t, r.cmd(8, "leave_open_world", nil))
	assert.Equal(t, 0, r.state.Shards.Len())
	assert.Equal(t, 0, r.state.WorldEnemies.Len())

	assert.ErrorIs(t, r.cmd(7, "leave_open_world", nil), ErrNotFound)
}

func TestOpenWorldMovementBounds(t *testing.T) {
	r := newRig(t)
	r.register(7, "Aria", "dps")
	r.register(8, "Brim", "tank")
	require.NoError(t, r.cmd(7, "enter_open_world", nil))

	require.NoError(t, r.cmd(7, "update_open_world_position", map[string]any{
		"room_x": 3, "room_y": 4, "x": 120.0, "y": 200.0, "facing_x": -1.0,
	}))
	wp, _ := r.state.WorldPlayers.Find(7)
	assert.Equal(t, uint32(3), wp.RoomX)
	assert.Equal(t, uint32(4), wp.RoomY)
	assert.Equal(t, 120.0, wp.X)
	assert.Equal(t, -1.0, wp.FacingX)

	// The grid is 10x10; indexes are rejected, not clamped.
	assert.ErrorIs(t, r.cmd(7, "update_open_world_position", map[string]any{
		"room_x": 10, "room_y": 4, "x": 0.0, "y": 0.0,
	}), ErrInvalidRoom)
	assert.Equal(t, uint32(3), wp.RoomX)

	assert.ErrorIs(t, r.cmd(8, "update_open_world_position", map[string]any{
		"room_x": 1, "room_y": 1, "x": 0.0, "y": 0.0,
	}), ErrNotFound)
}

// placeWorldEnemy inserts a grid enemy without going through shard
// population, so tests control its level and hp exactly.
func (r *rig) placeWorldEnemy(shard uint64, rx, ry uint32, typ string, level uint32, hp int32, x, y float64) *world.WorldEnemy {
	r.t.Helper()
	id := r.state.IDs.Next()
	e := &world.WorldEnemy{
		ID:         id,
		InstanceID: shard,
		RoomX:      rx,
		RoomY:      ry,
		Level:      level,
		BaseHP:     hp,
		BaseAtk:    6,
		EnemyCore: world.EnemyCore{
			Type: typ, X: x, Y: y,
			HP: hp, MaxHP: hp, Atk: 6,
			AIState: "chase", IsAlive: true,
		},
	}
	r.state.WorldEnemies.Insert(id, e)
	return e
}

func TestOpenWorldKillPaysGapScaledXP(t *testing.T) {
	r := newRig(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r.state.SetClock(func() time.Time { return base })
	p := r.register(7, "Aria", "dps")
	require.NoError(t, r.cmd(7, "enter_open_world", nil))
	wp, _ := r.state.WorldPlayers.Find(7)

	// Level 8 against level 1 is five over: the 1.5x bonus band.
	e := r.placeWorldEnemy(wp.InstanceID, wp.RoomX, wp.RoomY, "slime", 8, 24, wp.X+40, wp.Y)
	atk := map[string]any{"enemy_id": e.ID}

	require.NoError(t, r.cmd(7, "attack_open_world", atk))
	assert.Equal(t, int32(12), e.HP)
	assert.True(t, e.IsAlive)

	require.NoError(t, r.cmd(7, "attack_open_world", atk))
	assert.False(t, e.IsAlive)
	// 10 base xp * level 8 * 1.5 = 120, enough for level 2.
	assert.Equal(t, uint64(120), p.XP)
	assert.Equal(t, uint32(2), p.Level)
	// Town is no hotspot: the slow respawn lane.
	assert.Equal(t, base.Add(45*time.Second).UnixMicro(), e.RespawnAt)

	assert.ErrorIs(t, r.cmd(7, "attack_open_world", atk), ErrAlreadyDead)
}

func TestOpenWorldAttackGates(t *testing.T) {
	r := newRig(t)
	r.register(7, "Aria", "dps")
	require.NoError(t, r.cmd(7, "enter_open_world", nil))
	wp, _ := r.state.WorldPlayers.Find(7)

	assert.ErrorIs(t, r.cmd(7, "attack_open_world", map[string]any{"enemy_id": 999999}), ErrNotFound)

	nextDoor := r.placeWorldEnemy(wp.InstanceID, wp.RoomX+1, wp.RoomY, "slime", 1, 40, wp.X, wp.Y)
	assert.ErrorIs(t, r.cmd(7, "attack_open_world", map[string]any{"enemy_id": nextDoor.ID}), ErrWrongRoom)

	offShard := r.placeWorldEnemy(wp.InstanceID+1, wp.RoomX, wp.RoomY, "slime", 1, 40, wp.X, wp.Y)
	assert.ErrorIs(t, r.cmd(7, "attack_open_world", map[string]any{"enemy_id": offShard.ID}), ErrWrongRoom)

	far := r.placeWorldEnemy(wp.InstanceID, wp.RoomX, wp.RoomY, "slime", 1, 40, wp.X+150, wp.Y)
	assert.ErrorIs(t, r.cmd(7, "attack_open_world", map[string]any{"enemy_id": far.ID}), ErrOutOfRange)
}
