package system

import (
	"math"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/crawld/server/internal/data"
	"github.com/crawld/server/internal/scripting"
	"github.com/crawld/server/internal/world"
)

// AISystem drives every dungeon enemy's state machine once per tick.
type AISystem struct {
	state   *world.State
	enemies *data.EnemyTable
	scripts *scripting.Engine
	spawner *Spawner
	log     *zap.Logger
}

func NewAISystem(state *world.State, enemies *data.EnemyTable, scripts *scripting.Engine, spawner *Spawner, log *zap.Logger) *AISystem {
	return &AISystem{state: state, enemies: enemies, scripts: scripts, spawner: spawner, log: log}
}

// Tick advances every alive enemy. Iteration runs over a sorted key
// snapshot, so wolf pack indices stay stable across ticks and boss adds
// inserted mid-tick first act on the next one.
func (a *AISystem) Tick(now time.Time, dt float64) {
	ids := a.state.Enemies.Keys()
	slices.Sort(ids)
	for _, id := range ids {
		e, ok := a.state.Enemies.Find(id)
		if !ok || !e.IsAlive {
			continue
		}
		a.tickEnemy(id, e, dt)
		a.state.Enemies.Touch(id)
	}
}

func (a *AISystem) tickEnemy(id uint64, e *world.Enemy, dt float64) {
	if e.IsTaunted {
		e.TauntTimer -= dt
		if e.TauntTimer <= 0 {
			e.IsTaunted = false
			e.TauntedBy = 0
			e.TauntTimer = 0
		}
	}

	target, pos := a.selectTarget(e)
	if pos == nil {
		return
	}
	e.CurrentTarget = target

	eff := dt
	if movementArchetype(e.Type) && a.state.TankNear(e.DungeonID, e.X, e.Y, tankSlowRadius) {
		eff = dt * tankSlowMult
	}

	dx, dy := pos.X-e.X, pos.Y-e.Y
	dist := math.Hypot(dx, dy)
	var nx, ny float64
	if dist > 0.1 {
		nx, ny = dx/dist, dy/dist
	}

	stats := a.enemies.Get(e.Type)
	c := &tickCtx{
		id:     id,
		e:      &e.EnemyCore,
		target: target,
		tx:     pos.X,
		ty:     pos.Y,
		dist:   dist,
		nx:     nx,
		ny:     ny,
		dt:     eff,
		speed:  world.EnemyMoveSpeed * stats.SpeedMult * eff * 60,
		hit: func(t world.Identity, atk int32) {
			damagePlayer(a.state, a.scripts, t, atk)
		},
		aoeAtk: func(x, y, radius float64, atk int32) {
			a.damagePlayersWithin(e.DungeonID, x, y, radius, atk)
		},
		raidWide: func(dmg int32) {
			a.damageAllFlat(e.DungeonID, dmg)
		},
		pack: func() packInfo {
			return a.wolfPack(e, pos.X, pos.Y)
		},
		spawnAdd: func(x, y float64) {
			a.spawnBossAdd(e, x, y)
		},
	}
	dispatch(c)
	e.X, e.Y = world.ClampToRoom(e.X, e.Y)
}

// selectTarget resolves the enemy's target: taunt override first, then
// highest threat, then nearest. Each rung requires a live position in the
// enemy's dungeon. Dead players keep their positions and stay targetable
// until they leave.
func (a *AISystem) selectTarget(e *world.Enemy) (world.Identity, *world.Position) {
	if e.IsTaunted && e.TauntedBy != 0 {
		if p, ok := a.state.Positions.Find(e.TauntedBy); ok && p.DungeonID == e.DungeonID {
			return e.TauntedBy, p
		}
	}
	if top := HighestThreat(a.state, e.DungeonID, e.ID); top != 0 {
		if p, ok := a.state.Positions.Find(top); ok && p.DungeonID == e.DungeonID {
			return top, p
		}
	}
	p, _ := a.state.NearestPlayer(e.DungeonID, e.X, e.Y)
	if p == nil {
		return 0, nil
	}
	return p.Identity, p
}

// damagePlayer applies the mitigated hit formula to a player's global HP
// row. Shared by the dungeon and open-world AI paths.
func damagePlayer(st *world.State, scripts *scripting.Engine, id world.Identity, atk int32) {
	p, ok := st.Players.Find(id)
	if !ok {
		return
	}
	dmg := scripts.Damage(atk, p.Def)
	p.HP -= dmg
	if p.HP < 0 {
		p.HP = 0
	}
	p.Dirty = true
	st.Players.Touch(id)
}

func (a *AISystem) damagePlayersWithin(dungeonID uint64, x, y, radius float64, atk int32) {
	a.state.Positions.Each(func(id world.Identity, pos *world.Position) {
		if pos.DungeonID != dungeonID {
			return
		}
		if world.Dist(x, y, pos.X, pos.Y) <= radius {
			damagePlayer(a.state, a.scripts, id, atk)
		}
	})
}

// damageAllFlat applies unmitigated damage to every positioned player in
// the dungeon. Used by the boss room-wide slam, which ignores defense.
func (a *AISystem) damageAllFlat(dungeonID uint64, dmg int32) {
	a.state.Positions.Each(func(id world.Identity, pos *world.Position) {
		if pos.DungeonID != dungeonID {
			return
		}
		p, ok := a.state.Players.Find(id)
		if !ok {
			return
		}
		p.HP -= dmg
		if p.HP < 0 {
			p.HP = 0
		}
		p.Dirty = true
		a.state.Players.Touch(id)
	})
}

func (a *AISystem) wolfPack(e *world.Enemy, tx, ty float64) packInfo {
	ids := a.state.PackMembers(e.DungeonID, e.PackID)
	info := packInfo{size: len(ids)}
	for i, id := range ids {
		if id == e.ID {
			info.idx = i
		}
		if m, ok := a.state.Enemies.Find(id); ok && world.Dist(tx, ty, m.X, m.Y) < wolfPackRange {
			info.nearTarget++
		}
	}
	return info
}

func (a *AISystem) spawnBossAdd(boss *world.Enemy, x, y float64) {
	mult := 1.0
	if d, ok := a.state.Dungeons.Find(boss.DungeonID); ok {
		mult = d.StatMult
	}
	x, y = world.ClampToRoom(x, y)
	add := a.spawner.SpawnAt(boss.DungeonID, boss.RoomIndex, "skeleton", x, y, mult, 0)
	a.log.Debug("boss summoned add",
		zap.Uint64("boss", boss.ID),
		zap.Uint64("add", add.ID),
		zap.Uint64("dungeon", boss.DungeonID))
}
