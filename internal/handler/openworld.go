package handler

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/crawld/server/internal/system"
	"github.com/crawld/server/internal/world"
)

// HandleEnterOpenWorld drops the caller into a shard with headroom,
// starting at the town square. Entering while already inside moves the
// caller to a fresh slot rather than double-counting the old one.
func HandleEnterOpenWorld(deps *Deps, caller world.Identity, _ json.RawMessage) error {
	p, ok := deps.World.Players.Find(caller)
	if !ok {
		return ErrNotFound
	}

	if old, ok := deps.World.WorldPlayers.Find(caller); ok {
		shardID := old.InstanceID
		deps.World.WorldPlayers.Delete(caller)
		deps.WorldSys.ReleaseShard(shardID)
	}

	shard := deps.WorldSys.AcquireShard()
	shard.PlayerCount++
	deps.World.Shards.Touch(shard.ID)

	wp := &world.WorldPlayer{
		Identity:   caller,
		InstanceID: shard.ID,
		RoomX:      uint32(deps.OpenWorld.TownX),
		RoomY:      uint32(deps.OpenWorld.TownY),
		X:          world.SpawnX,
		Y:          world.SpawnY,
		FacingX:    1,
		Name:       p.Name,
		Level:      p.Level,
		Class:      p.Class,
	}
	if pos, ok := deps.World.Positions.Find(caller); ok {
		wp.WeaponIcon, wp.ArmorIcon, wp.AccessoryIcon = pos.WeaponIcon, pos.ArmorIcon, pos.AccessoryIcon
	}
	deps.World.WorldPlayers.Insert(caller, wp)
	deps.World.Modes.Insert(caller, &world.GameMode{
		Identity:   caller,
		Mode:       world.ModeOpenWorld,
		InstanceID: shard.ID,
	})
	system.ArmSchedule(deps.World, deps.Sched, system.ScheduleOpenWorld)

	deps.Log.Info("player entered open world",
		zap.Uint64("identity", uint64(caller)),
		zap.Uint64("shard", shard.ID))
	return nil
}

// HandleLeaveOpenWorld removes the caller from their shard; an emptied
// shard is torn down by the release.
func HandleLeaveOpenWorld(deps *Deps, caller world.Identity, _ json.RawMessage) error {
	wp, ok := deps.World.WorldPlayers.Find(caller)
	if !ok {
		return ErrNotFound
	}
	shardID := wp.InstanceID
	deps.World.WorldPlayers.Delete(caller)
	deps.WorldSys.ReleaseShard(shardID)
	deps.World.Modes.Insert(caller, &world.GameMode{Identity: caller, Mode: world.ModeHub})
	return nil
}

type updateOpenWorldPositionArgs struct {
	RoomX         uint32  `json:"room_x"`
	RoomY         uint32  `json:"room_y"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	FacingX       float64 `json:"facing_x"`
	FacingY       float64 `json:"facing_y"`
	WeaponIcon    string  `json:"weapon_icon"`
	ArmorIcon     string  `json:"armor_icon"`
	AccessoryIcon string  `json:"accessory_icon"`
}

// HandleUpdateOpenWorldPosition streams the caller's grid room and
// in-room position. Room coordinates are bounds-checked; the rest is
// client-trusted like dungeon movement.
func HandleUpdateOpenWorldPosition(deps *Deps, caller world.Identity, args json.RawMessage) error {
	var a updateOpenWorldPositionArgs
	if err := decode(args, &a); err != nil {
		return err
	}
	if a.RoomX >= world.GridW || a.RoomY >= world.GridH {
		return ErrInvalidRoom
	}
	wp, ok := deps.World.WorldPlayers.Find(caller)
	if !ok {
		return ErrNotFound
	}
	wp.RoomX, wp.RoomY = a.RoomX, a.RoomY
	wp.X, wp.Y = a.X, a.Y
	wp.FacingX, wp.FacingY = a.FacingX, a.FacingY
	wp.WeaponIcon, wp.ArmorIcon, wp.AccessoryIcon = a.WeaponIcon, a.ArmorIcon, a.AccessoryIcon
	deps.World.WorldPlayers.Touch(caller)
	return nil
}

type attackOpenWorldArgs struct {
	EnemyID uint64 `json:"enemy_id"`
}

// HandleAttackOpenWorld swings at a grid enemy. Kills schedule the respawn
// and pay XP scaled by enemy level and the level gap.
func HandleAttackOpenWorld(deps *Deps, caller world.Identity, args json.RawMessage) error {
	var a attackOpenWorldArgs
	if err := decode(args, &a); err != nil {
		return err
	}
	p, ok := deps.World.Players.Find(caller)
	if !ok {
		return ErrNotFound
	}
	wp, ok := deps.World.WorldPlayers.Find(caller)
	if !ok {
		return ErrNotFound
	}
	e, ok := deps.World.WorldEnemies.Find(a.EnemyID)
	if !ok {
		return ErrNotFound
	}
	if e.InstanceID != wp.InstanceID || e.RoomX != wp.RoomX || e.RoomY != wp.RoomY {
		return ErrWrongRoom
	}
	if !e.IsAlive {
		return ErrAlreadyDead
	}
	if world.Dist(wp.X, wp.Y, e.X, e.Y) > world.AttackRange {
		return ErrOutOfRange
	}

	e.HP -= deps.Scripting.PlayerDamage(p.Atk)
	if e.HP > 0 {
		deps.World.WorldEnemies.Touch(a.EnemyID)
		return nil
	}

	e.HP = 0
	e.IsAlive = false
	e.RespawnAt = deps.World.Now().Add(deps.OpenWorld.RespawnDelay(int(e.RoomX), int(e.RoomY))).UnixMicro()
	deps.World.WorldEnemies.Touch(a.EnemyID)

	stats := deps.Enemies.Get(e.Type)
	mult := deps.Scripting.OpenWorldXPMult(int32(e.Level) - int32(p.Level))
	xp := uint64(float64(stats.XP*uint64(e.Level)) * mult)
	p.XP += xp
	world.ApplyLevelUps(p, deps.Scripting.XPForLevel)
	p.Dirty = true
	deps.World.Players.Touch(caller)

	deps.Log.Info("open world enemy killed",
		zap.Uint64("enemy", a.EnemyID),
		zap.Uint64("identity", uint64(caller)),
		zap.Uint64("xp", xp))
	return nil
}
