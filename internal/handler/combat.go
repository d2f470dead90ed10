package handler

import (
	"encoding/json"
	"math"

	"go.uber.org/zap"

	"github.com/crawld/server/internal/persist"
	"github.com/crawld/server/internal/system"
	"github.com/crawld/server/internal/world"
)

const (
	backstabArc  = 2 * math.Pi / 3
	backstabMult = 1.5
	postDashMult = 1.25

	tauntDuration = 4.0
	tauntThreat   = 100
	tauntCooldown = 8.0

	knockbackRadius   = 60.0
	knockbackPush     = 100.0
	knockbackStun     = 0.5
	knockbackCooldown = 12.0

	zoneRadius   = 60.0
	zoneHealRate = 5.0
	zoneDuration = 8.0
	zoneCooldown = 15.0
)

type attackArgs struct {
	DungeonID uint64 `json:"dungeon_id"`
	EnemyID   uint64 `json:"enemy_id"`
}

// HandleAttack applies one melee swing to an enemy in reach. DPS land 50%
// extra from behind the target's facing and 25% extra inside the post-dash
// window; tanks generate double threat per point of damage.
func HandleAttack(deps *Deps, caller world.Identity, args json.RawMessage) error {
	var a attackArgs
	if err := decode(args, &a); err != nil {
		return err
	}
	p, ok := deps.World.Players.Find(caller)
	if !ok {
		return ErrNotFound
	}
	pos, ok := deps.World.Positions.Find(caller)
	if !ok {
		return ErrNotFound
	}
	e, ok := deps.World.Enemies.Find(a.EnemyID)
	if !ok {
		return ErrNotFound
	}
	if e.DungeonID != a.DungeonID || !e.IsAlive {
		return ErrInvalidTarget
	}
	// Positions are room-local, so a row from another dungeon could sit in
	// reach numerically. Gate on the caller's dungeon before measuring.
	if pos.DungeonID != a.DungeonID || world.Dist(pos.X, pos.Y, e.X, e.Y) > world.AttackRange {
		return ErrOutOfRange
	}

	dmg := float64(deps.Scripting.PlayerDamage(p.Atk))
	if p.Class == world.ClassDPS {
		atkAngle := math.Atan2(e.Y-pos.Y, e.X-pos.X)
		if math.Abs(angleDiff(atkAngle, e.FacingAngle)) > backstabArc {
			dmg *= backstabMult
		}
		if ab, ok := deps.World.Abilities.Find(caller); ok && ab.PostDashBonus > 0 {
			dmg *= postDashMult
		}
	}
	final := int32(dmg)

	threat := int64(final)
	if p.Class == world.ClassTank {
		threat *= 2
	}
	system.AddThreat(deps.World, e.DungeonID, a.EnemyID, caller, threat)

	e.HP -= final
	if e.HP > 0 {
		deps.World.Enemies.Touch(a.EnemyID)
		return nil
	}

	// Kill: freeze the corpse, drop threat, pay the killer.
	e.HP = 0
	e.IsAlive = false
	deps.World.Enemies.Touch(a.EnemyID)
	system.ClearEnemyThreat(deps.World, e.DungeonID, a.EnemyID)

	stats := deps.Enemies.Get(e.Type)
	p.XP += stats.XP
	world.ApplyLevelUps(p, deps.Scripting.XPForLevel)
	p.Dirty = true
	deps.World.Players.Touch(caller)

	if d, ok := deps.World.Dungeons.Find(a.DungeonID); ok && d.IsRaid && e.IsBoss {
		finishRaidKill(deps, d)
		return nil
	}

	deps.Loot.DropForDeadEnemy(e)
	deps.Log.Info("enemy killed",
		zap.Uint64("enemy", a.EnemyID),
		zap.Uint64("dungeon", a.DungeonID),
		zap.Uint64("xp", stats.XP))
	return nil
}

// finishRaidKill pays out the raid and records one run entry per member.
// Members are captured first: the payout deletes the participant rows.
func finishRaidKill(deps *Deps, d *world.Dungeon) {
	raid, ok := system.RaidByDungeon(deps.World, d.ID)
	if !ok {
		return
	}
	members := system.RaidMembers(deps.World, raid.ID)
	system.FinishRaid(deps.World, deps.Scripting, raid.ID, deps.Log)

	if deps.Persister == nil {
		return
	}
	now := deps.World.NowMicros()
	for _, id := range members {
		deps.Persister.LogRun(persist.RunEntry{
			Player:    id,
			DungeonID: d.ID,
			Depth:     d.Depth,
			IsRaid:    true,
			XP:        system.RaidRewardXP,
			Gold:      system.RaidRewardGold,
			ClearedAt: now,
		})
	}
}

type useDashArgs struct {
	DungeonID uint64  `json:"dungeon_id"`
	DirX      float64 `json:"dir_x"`
	DirY      float64 `json:"dir_y"`
}

// HandleUseDash teleports the caller 150 px along the given direction and
// turns them to face it. DPS get a short damage window afterwards. The
// cooldown clock is client-side; the server does not gate dashes.
func HandleUseDash(deps *Deps, caller world.Identity, args json.RawMessage) error {
	var a useDashArgs
	if err := decode(args, &a); err != nil {
		return err
	}
	pos, ok := deps.World.Positions.Find(caller)
	if !ok {
		return ErrNotFound
	}

	dx, dy := a.DirX, a.DirY
	if n := math.Hypot(dx, dy); n > 0 {
		dx, dy = dx/n, dy/n
	}
	pos.X += dx * world.DashDistance
	pos.Y += dy * world.DashDistance
	pos.FacingX, pos.FacingY = dx, dy
	deps.World.Positions.Touch(caller)

	if pos.Class == world.ClassDPS {
		ab := abilityRow(deps, caller)
		ab.PostDashBonus = 0.5
		deps.World.Abilities.Touch(caller)
	}
	return nil
}

type useTauntArgs struct {
	DungeonID uint64 `json:"dungeon_id"`
	EnemyID   uint64 `json:"enemy_id"`
}

// HandleUseTaunt pins one enemy's targeting to the tank for four seconds
// and adds a flat chunk of threat on top.
func HandleUseTaunt(deps *Deps, caller world.Identity, args json.RawMessage) error {
	var a useTauntArgs
	if err := decode(args, &a); err != nil {
		return err
	}
	p, ok := deps.World.Players.Find(caller)
	if !ok {
		return ErrNotFound
	}
	if p.Class != world.ClassTank {
		return ErrNotTank
	}
	if !deps.World.IsParticipant(a.DungeonID, caller) {
		return ErrNotParticipant
	}
	if ab, ok := deps.World.Abilities.Find(caller); ok && ab.TauntCD > 0 {
		return ErrOnCooldown
	}
	e, ok := deps.World.Enemies.Find(a.EnemyID)
	if !ok || e.DungeonID != a.DungeonID || !e.IsAlive {
		return ErrInvalidTarget
	}

	e.IsTaunted = true
	e.TauntedBy = caller
	e.TauntTimer = tauntDuration
	deps.World.Enemies.Touch(a.EnemyID)
	system.AddThreat(deps.World, e.DungeonID, a.EnemyID, caller, tauntThreat)

	ab := abilityRow(deps, caller)
	ab.TauntCD = tauntCooldown
	deps.World.Abilities.Touch(caller)
	return nil
}

type useKnockbackArgs struct {
	DungeonID uint64 `json:"dungeon_id"`
}

// HandleUseKnockback shoves every alive enemy near the tank radially
// outward and stuns it briefly. An enemy standing exactly on the tank is
// pushed east.
func HandleUseKnockback(deps *Deps, caller world.Identity, args json.RawMessage) error {
	var a useKnockbackArgs
	if err := decode(args, &a); err != nil {
		return err
	}
	p, ok := deps.World.Players.Find(caller)
	if !ok {
		return ErrNotFound
	}
	if p.Class != world.ClassTank {
		return ErrNotTank
	}
	if !deps.World.IsParticipant(a.DungeonID, caller) {
		return ErrNotParticipant
	}
	if ab, ok := deps.World.Abilities.Find(caller); ok && ab.KnockbackCD > 0 {
		return ErrOnCooldown
	}
	pos, ok := deps.World.Positions.Find(caller)
	if !ok {
		return ErrNotFound
	}

	for _, id := range deps.World.Enemies.Keys() {
		e, ok := deps.World.Enemies.Find(id)
		if !ok || e.DungeonID != a.DungeonID || !e.IsAlive {
			continue
		}
		d := world.Dist(pos.X, pos.Y, e.X, e.Y)
		if d > knockbackRadius {
			continue
		}
		nx, ny := 1.0, 0.0
		if d > 0.1 {
			nx, ny = (e.X-pos.X)/d, (e.Y-pos.Y)/d
		}
		e.X, e.Y = world.ClampToRoom(e.X+nx*knockbackPush, e.Y+ny*knockbackPush)
		e.AIState = "stunned"
		e.StateTimer = knockbackStun
		deps.World.Enemies.Touch(id)
	}

	ab := abilityRow(deps, caller)
	ab.KnockbackCD = knockbackCooldown
	deps.World.Abilities.Touch(caller)
	return nil
}

type placeHealingZoneArgs struct {
	DungeonID uint64  `json:"dungeon_id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

// HandlePlaceHealingZone drops a healer's regen circle at a point. The
// ability tick burns it down and heals whoever stands inside.
func HandlePlaceHealingZone(deps *Deps, caller world.Identity, args json.RawMessage) error {
	var a placeHealingZoneArgs
	if err := decode(args, &a); err != nil {
		return err
	}
	p, ok := deps.World.Players.Find(caller)
	if !ok {
		return ErrNotFound
	}
	if p.Class != world.ClassHealer {
		return ErrNotHealer
	}
	if !deps.World.IsParticipant(a.DungeonID, caller) {
		return ErrNotParticipant
	}
	if ab, ok := deps.World.Abilities.Find(caller); ok && ab.HealingZoneCD > 0 {
		return ErrOnCooldown
	}

	id := deps.World.IDs.Next()
	deps.World.HealingZones.Insert(id, &world.HealingZone{
		ID:         id,
		DungeonID:  a.DungeonID,
		Owner:      caller,
		X:          a.X,
		Y:          a.Y,
		Radius:     zoneRadius,
		HealPerSec: zoneHealRate,
		Duration:   zoneDuration,
	})

	ab := abilityRow(deps, caller)
	ab.HealingZoneCD = zoneCooldown
	deps.World.Abilities.Touch(caller)
	return nil
}

// abilityRow returns the caller's cooldown row, creating it when absent.
func abilityRow(deps *Deps, caller world.Identity) *world.AbilityState {
	if ab, ok := deps.World.Abilities.Find(caller); ok {
		return ab
	}
	ab := &world.AbilityState{Identity: caller}
	deps.World.Abilities.Insert(caller, ab)
	return ab
}

// angleDiff wraps a−b into (−π, π].
func angleDiff(a, b float64) float64 {
	d := math.Mod(a-b, 2*math.Pi)
	if d > math.Pi {
		d -= 2 * math.Pi
	}
	if d <= -math.Pi {
		d += 2 * math.Pi
	}
	return d
}
