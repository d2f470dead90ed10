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

// Per-level stat growth for open-world enemies.
const (
	worldLevelHPStep  = 0.25
	worldLevelAtkStep = 0.15
)

// OpenWorldSystem owns the sharded overworld grid: shard selection and
// teardown, room population, respawn flips and per-tick enemy AI. The AI
// machines are the dungeon ones; targeting is nearest-in-room since threat
// and taunt are dungeon concepts.
type OpenWorldSystem struct {
	state   *world.State
	enemies *data.EnemyTable
	grid    *data.OpenWorldTable
	scripts *scripting.Engine
	log     *zap.Logger
}

func NewOpenWorldSystem(state *world.State, enemies *data.EnemyTable, grid *data.OpenWorldTable, scripts *scripting.Engine, log *zap.Logger) *OpenWorldSystem {
	return &OpenWorldSystem{state: state, enemies: enemies, grid: grid, scripts: scripts, log: log}
}

// AcquireShard returns the lowest-id shard under the player cap, creating
// and populating a fresh one only when every shard is full. The caller
// still increments PlayerCount when the player actually enters.
func (o *OpenWorldSystem) AcquireShard() *world.Shard {
	var best *world.Shard
	o.state.Shards.Each(func(_ uint64, s *world.Shard) {
		if int(s.PlayerCount) >= o.grid.ShardCap {
			return
		}
		if best == nil || s.ID < best.ID {
			best = s
		}
	})
	if best != nil {
		return best
	}

	id := o.state.IDs.Next()
	s := &world.Shard{ID: id, CreatedAt: o.state.NowMicros()}
	o.state.Shards.Insert(id, s)
	o.populate(s)
	return s
}

func (o *OpenWorldSystem) populate(s *world.Shard) {
	total := 0
	for ry := 0; ry < world.GridH; ry++ {
		for rx := 0; rx < world.GridW; rx++ {
			total += o.spawnRoom(s, rx, ry)
		}
	}
	o.log.Info("open world shard populated",
		zap.Uint64("shard", s.ID),
		zap.Int("enemies", total))
}

func (o *OpenWorldSystem) spawnRoom(s *world.Shard, rx, ry int) int {
	if o.grid.IsTown(rx, ry) {
		return 0
	}
	level := o.grid.LevelFor(rx, ry)
	types := o.grid.TypesFor(level)
	count := o.grid.SpawnCount(rx, ry)

	roomSeed := uint64(s.CreatedAt) + uint64(ry*world.GridW+rx)*1337
	packID := s.ID<<16 | uint64(ry)<<8 | uint64(rx)
	hpMult := 1.0 + worldLevelHPStep*(float64(level)-1.0)
	atkMult := 1.0 + worldLevelAtkStep*(float64(level)-1.0)

	for i := 0; i < count; i++ {
		typ := types[i%len(types)]
		st := o.enemies.Get(typ)
		hp := scripting.ScaleStat(st.HP, hpMult)
		atk := scripting.ScaleStat(st.Atk, atkMult)

		sd := roomSeed + uint64(i)*7919
		angle := float64(i) / float64(count) * 2 * math.Pi
		radius := 150.0 + float64(sd%80)
		x, y := world.ClampToRoom(
			world.SpawnX+math.Cos(angle)*radius,
			world.SpawnY+math.Sin(angle)*radius,
		)

		var pid uint64
		tx, ty := x, y
		if typ == "wolf" {
			pid = packID
			// Wolves carry their bite cooldown in TargetX; spawn ready.
			tx, ty = 0, 0
		}
		id := o.state.IDs.Next()
		o.state.WorldEnemies.Insert(id, &world.WorldEnemy{
			ID:         id,
			InstanceID: s.ID,
			RoomX:      uint32(rx),
			RoomY:      uint32(ry),
			Level:      level,
			BaseHP:     hp,
			BaseAtk:    atk,
			EnemyCore: world.EnemyCore{
				Type:        typ,
				X:           x,
				Y:           y,
				FacingAngle: angle,
				HP:          hp,
				MaxHP:       hp,
				Atk:         atk,
				AIState:     initialAIState(typ),
				TargetX:     tx,
				TargetY:     ty,
				PackID:      pid,
				IsAlive:     true,
			},
		})
	}
	return count
}

// ReleaseShard decrements the shard's player count. A drained shard is
// torn down with all its enemies.
func (o *OpenWorldSystem) ReleaseShard(shardID uint64) {
	s, ok := o.state.Shards.Find(shardID)
	if !ok {
		return
	}
	if s.PlayerCount > 0 {
		s.PlayerCount--
	}
	if s.PlayerCount == 0 {
		for _, id := range o.state.WorldEnemies.Keys() {
			if e, ok := o.state.WorldEnemies.Find(id); ok && e.InstanceID == shardID {
				o.state.WorldEnemies.Delete(id)
			}
		}
		o.state.Shards.Delete(shardID)
		o.log.Info("open world shard drained", zap.Uint64("shard", shardID))
		return
	}
	o.state.Shards.Touch(shardID)
}

func (o *OpenWorldSystem) Tick(now time.Time, dt float64) {
	o.tickRespawns(now)
	o.tickAI(now, dt)
}

func (o *OpenWorldSystem) tickRespawns(now time.Time) {
	micros := now.UnixMicro()
	o.state.WorldEnemies.Each(func(id uint64, e *world.WorldEnemy) {
		if e.IsAlive || e.RespawnAt == 0 || e.RespawnAt > micros {
			return
		}
		e.IsAlive = true
		e.HP = e.BaseHP
		e.Atk = e.BaseAtk
		e.RespawnAt = 0
		e.AIState = initialAIState(e.Type)
		e.StateTimer = 0
		e.CurrentTarget = 0
		o.state.WorldEnemies.Touch(id)
	})
}

func (o *OpenWorldSystem) tickAI(now time.Time, dt float64) {
	ids := o.state.WorldEnemies.Keys()
	slices.Sort(ids)
	for _, id := range ids {
		e, ok := o.state.WorldEnemies.Find(id)
		if !ok || !e.IsAlive {
			continue
		}
		target, dist := o.nearestPlayer(e)
		if target == nil {
			continue
		}
		e.CurrentTarget = target.Identity

		dx, dy := target.X-e.X, target.Y-e.Y
		var nx, ny float64
		if dist > 0.1 {
			nx, ny = dx/dist, dy/dist
		}

		stats := o.enemies.Get(e.Type)
		c := &tickCtx{
			id:     id,
			e:      &e.EnemyCore,
			target: target.Identity,
			tx:     target.X,
			ty:     target.Y,
			dist:   dist,
			nx:     nx,
			ny:     ny,
			dt:     dt,
			speed:  world.EnemyMoveSpeed * stats.SpeedMult * dt * 60,
			hit: func(t world.Identity, atk int32) {
				damagePlayer(o.state, o.scripts, t, atk)
			},
			aoeAtk: func(x, y, radius float64, atk int32) {
				o.blastRoom(e, x, y, radius, atk)
			},
			raidWide: func(int32) {},
			pack: func() packInfo {
				return o.worldPack(e, target.X, target.Y)
			},
			spawnAdd: func(float64, float64) {},
		}
		dispatch(c)
		e.X, e.Y = world.ClampToRoom(e.X, e.Y)

		// A bomber that blew itself up has no killer to set its respawn.
		if !e.IsAlive && e.RespawnAt == 0 {
			e.RespawnAt = now.Add(o.grid.RespawnDelay(int(e.RoomX), int(e.RoomY))).UnixMicro()
		}
		o.state.WorldEnemies.Touch(id)
	}
}

func (o *OpenWorldSystem) nearestPlayer(e *world.WorldEnemy) (*world.WorldPlayer, float64) {
	var best *world.WorldPlayer
	bestD := math.MaxFloat64
	o.state.WorldPlayers.Each(func(_ world.Identity, p *world.WorldPlayer) {
		if p.InstanceID != e.InstanceID || p.RoomX != e.RoomX || p.RoomY != e.RoomY {
			return
		}
		d := world.Dist(e.X, e.Y, p.X, p.Y)
		if d < bestD {
			best, bestD = p, d
		}
	})
	return best, bestD
}

func (o *OpenWorldSystem) worldPack(e *world.WorldEnemy, tx, ty float64) packInfo {
	var ids []uint64
	o.state.WorldEnemies.Each(func(id uint64, m *world.WorldEnemy) {
		if m.Type == "wolf" && m.InstanceID == e.InstanceID && m.PackID == e.PackID && m.IsAlive {
			ids = append(ids, id)
		}
	})
	slices.Sort(ids)
	info := packInfo{size: len(ids)}
	for i, id := range ids {
		if id == e.ID {
			info.idx = i
		}
		if m, ok := o.state.WorldEnemies.Find(id); ok && world.Dist(tx, ty, m.X, m.Y) < wolfPackRange {
			info.nearTarget++
		}
	}
	return info
}

func (o *OpenWorldSystem) blastRoom(e *world.WorldEnemy, x, y, radius float64, atk int32) {
	o.state.WorldPlayers.Each(func(id world.Identity, p *world.WorldPlayer) {
		if p.InstanceID != e.InstanceID || p.RoomX != e.RoomX || p.RoomY != e.RoomY {
			return
		}
		if world.Dist(x, y, p.X, p.Y) <= radius {
			damagePlayer(o.state, o.scripts, id, atk)
		}
	})
}
