package system

import (
	"math"

	"go.uber.org/zap"

	"github.com/crawld/server/internal/data"
	"github.com/crawld/server/internal/scripting"
	"github.com/crawld/server/internal/world"
)

// Spawner places dungeon enemies. Placement is deterministic from the
// dungeon seed so rejoining clients see the same layout.
type Spawner struct {
	state   *world.State
	enemies *data.EnemyTable
	spawns  *data.SpawnTable
	log     *zap.Logger
}

func NewSpawner(state *world.State, enemies *data.EnemyTable, spawns *data.SpawnTable, log *zap.Logger) *Spawner {
	return &Spawner{state: state, enemies: enemies, spawns: spawns, log: log}
}

// SpawnRoom spawns the room's archetype set, spread on a seeded ring around
// the room center. The boss spawns centered. Wolves in one room share a
// pack. Returns the number spawned.
func (sp *Spawner) SpawnRoom(d *world.Dungeon, room uint32) int {
	types := sp.spawns.Room(room)
	roomSeed := d.Seed + uint64(room)*1337
	packID := d.Seed + uint64(room)

	count := len(types)
	for i, typ := range types {
		s := roomSeed + uint64(i)*7919
		angle := float64(i) / float64(count) * 2 * math.Pi
		var x, y float64
		if typ == "raid_boss" {
			x, y = world.SpawnX, world.SpawnY
		} else {
			radius := 150.0 + float64(s%80)
			x, y = world.ClampToRoom(
				world.SpawnX+math.Cos(angle)*radius,
				world.SpawnY+math.Sin(angle)*radius,
			)
		}
		var pid uint64
		if typ == "wolf" {
			pid = packID
		}
		e := sp.SpawnAt(d.ID, room, typ, x, y, d.StatMult, pid)
		e.FacingAngle = angle
	}
	sp.log.Debug("room spawned",
		zap.Uint64("dungeon", d.ID),
		zap.Uint32("room", room),
		zap.Int("enemies", count))
	return count
}

// SpawnAt inserts one enemy with archetype stats scaled by mult.
func (sp *Spawner) SpawnAt(dungeonID uint64, room uint32, typ string, x, y, mult float64, packID uint64) *world.Enemy {
	st := sp.enemies.Get(typ)
	hp := scripting.ScaleStat(st.HP, mult)
	atk := scripting.ScaleStat(st.Atk, mult)

	id := sp.state.IDs.Next()
	e := &world.Enemy{
		ID:        id,
		DungeonID: dungeonID,
		RoomIndex: room,
		EnemyCore: world.EnemyCore{
			Type:    typ,
			X:       x,
			Y:       y,
			HP:      hp,
			MaxHP:   hp,
			Atk:     atk,
			AIState: initialAIState(typ),
			TargetX: x,
			TargetY: y,
			PackID:  packID,
			IsAlive: true,
			IsBoss:  typ == "raid_boss",
		},
	}
	if typ == "wolf" || e.IsBoss {
		// Wolves and bosses carry an attack cooldown in TargetX; spawn ready.
		e.TargetX, e.TargetY = 0, 0
	}
	if e.IsBoss {
		e.BossPhase = 1
	}
	sp.state.Enemies.Insert(id, e)
	return e
}

func initialAIState(typ string) string {
	switch typ {
	case "charger":
		return "idle"
	case "wolf":
		return "orbit"
	case "necromancer":
		return "flee"
	case "shield_knight":
		return "advance"
	case "archer":
		return "kite"
	default:
		return "chase"
	}
}
