package system

import (
	"math"

	"github.com/crawld/server/internal/world"
)

// Archetype tuning. Timers are seconds, distances pixels.
const (
	meleeAttackCD = 1.2

	chargerTelegraphTime   = 0.8
	chargerChargeSpeedMult = 5.0
	chargerChargeDuration  = 1.5
	chargerStunTime        = 1.0
	chargerDetectRange     = 200.0

	wolfOrbitRadius = 50.0
	wolfAttackCD    = 1.5
	wolfPackRange   = 60.0

	necroFleeDistance = 80.0
	necroKeepAway     = 150.0
	necroTeleportCD   = 3.0

	bomberFuseTime        = 1.5
	bomberExplosionRadius = 80.0
	bomberTriggerRange    = 60.0

	shieldBashWindup  = 0.3
	shieldBashRange   = 50.0
	shieldBashCD      = 4.0
	shieldRecoverTime = 0.5

	archerKiteDistance = 120.0
	archerShootRange   = 180.0
	archerShootCD      = 2.0

	tankSlowRadius = 50.0
	tankSlowMult   = 0.7
)

// packInfo describes a wolf's slot in its pack for one tick.
type packInfo struct {
	idx        int // stable index by id order
	size       int
	nearTarget int // pack members within wolfPackRange of the target
}

// tickCtx is one enemy's view of a single AI tick: core state, the chosen
// target, effective dt, and callbacks into the arena the enemy lives in.
// Machines mutate c.e freely; the caller clamps and journals afterwards.
type tickCtx struct {
	id     uint64
	e      *world.EnemyCore
	target world.Identity
	tx, ty float64 // target position
	dist   float64
	nx, ny float64 // unit vector toward target, zero when on top of it
	dt     float64
	speed  float64 // archetype speed for this tick, already dt-scaled

	hit      func(target world.Identity, atk int32)
	aoeAtk   func(x, y, radius float64, atk int32)
	raidWide func(dmg int32)
	pack     func() packInfo
	spawnAdd func(x, y float64)
}

func dispatch(c *tickCtx) {
	if c.e.IsBoss {
		tickBoss(c)
		return
	}
	switch c.e.Type {
	case "charger":
		tickCharger(c)
	case "wolf":
		tickWolf(c)
	case "necromancer":
		tickNecromancer(c)
	case "bomber":
		tickBomber(c)
	case "shield_knight":
		tickShieldKnight(c)
	case "archer":
		tickArcher(c)
	default:
		tickMelee(c)
	}
}

// movementArchetype reports whether the tank's slow aura applies. Archers
// and necromancers reposition away from players and are exempt.
func movementArchetype(typ string) bool {
	return typ != "archer" && typ != "necromancer"
}

// tickMelee chases until in reach, then swings on a fixed cooldown.
// Slimes, skeletons and bats all run this machine at different speeds.
func tickMelee(c *tickCtx) {
	e := c.e
	e.FacingAngle = math.Atan2(c.ny, c.nx)
	if e.StateTimer > 0 {
		e.StateTimer -= c.dt
	}
	if c.dist <= world.EnemyAttackRange {
		if e.StateTimer <= 0 {
			e.StateTimer = meleeAttackCD
			e.AIState = "attack"
			c.hit(c.target, e.Atk)
		}
	} else {
		e.AIState = "chase"
		e.X += c.nx * c.speed
		e.Y += c.ny * c.speed
	}
}

// tickCharger idles until a player comes in detect range, telegraphs,
// then charges along a direction locked early in the telegraph. Hitting
// a wall or the player ends the charge in a stun.
func tickCharger(c *tickCtx) {
	e := c.e
	switch e.AIState {
	case "stunned":
		e.StateTimer -= c.dt
		if e.StateTimer <= 0 {
			e.AIState = "idle"
			e.StateTimer = 0
		}
	case "telegraph":
		e.StateTimer -= c.dt
		if e.StateTimer > chargerTelegraphTime-0.1 {
			// Track the player only for the first slice of the windup,
			// then the direction stays locked in TargetX/TargetY.
			dx, dy := c.tx-e.X, c.ty-e.Y
			mag := math.Hypot(dx, dy)
			if mag > 0.1 {
				dx /= mag
				dy /= mag
			}
			e.TargetX, e.TargetY = dx, dy
			e.FacingAngle = math.Atan2(dy, dx)
		}
		if e.StateTimer <= 0 {
			e.AIState = "charge"
			e.StateTimer = chargerChargeDuration
		}
	case "charge":
		e.StateTimer -= c.dt
		cs := c.speed * chargerChargeSpeedMult
		nx := e.X + e.TargetX*cs
		ny := e.Y + e.TargetY*cs
		if !world.InRoomBounds(nx, ny) {
			e.AIState = "stunned"
			e.StateTimer = chargerStunTime
		} else {
			e.X, e.Y = nx, ny
			if world.Dist(c.tx, c.ty, e.X, e.Y) < 30 {
				e.AIState = "stunned"
				e.StateTimer = chargerStunTime
				c.hit(c.target, int32(float64(e.Atk)*1.5))
			}
		}
		if e.StateTimer <= 0 {
			e.AIState = "idle"
			e.StateTimer = 0
		}
	default: // idle
		e.FacingAngle = math.Atan2(c.ny, c.nx)
		if c.dist > 60 {
			e.X += c.nx * c.speed * 0.5
			e.Y += c.ny * c.speed * 0.5
		}
		e.StateTimer -= c.dt
		if e.StateTimer <= 0 && c.dist < chargerDetectRange {
			e.AIState = "telegraph"
			e.StateTimer = chargerTelegraphTime
		}
	}
}

// tickWolf orbits the target on a slot spaced by pack index, advancing the
// slot angle with StateTimer as accumulated time. Bites come off a private
// cooldown carried in TargetX; with two or more packmates on the target the
// bite is reported as a pack attack.
func tickWolf(c *tickCtx) {
	e := c.e
	p := c.pack()
	size := p.size
	if size < 1 {
		size = 1
	}

	timeFactor := e.StateTimer
	e.StateTimer += c.dt
	angle := (2*math.Pi/float64(size))*float64(p.idx) + timeFactor
	orbitX := c.tx + math.Cos(angle)*wolfOrbitRadius
	orbitY := c.ty + math.Sin(angle)*wolfOrbitRadius

	tdx, tdy := orbitX-e.X, orbitY-e.Y
	tdist := math.Hypot(tdx, tdy)
	if tdist > 5 {
		e.X += tdx / tdist * c.speed
		e.Y += tdy / tdist * c.speed
	}
	e.FacingAngle = math.Atan2(c.ty-e.Y, c.tx-e.X)

	if c.dist < world.EnemyAttackRange {
		if p.nearTarget >= 2 {
			e.AIState = "pack_attack"
		} else {
			e.AIState = "attack"
		}
		if e.TargetX <= 0 {
			e.TargetX = wolfAttackCD
			c.hit(c.target, e.Atk)
		} else {
			e.TargetX -= c.dt
		}
	} else {
		e.AIState = "orbit"
	}
}

// tickNecromancer keeps its distance: a sedate retreat at medium range, a
// full-speed flee up close, and a blink to a far corner of the room when
// cornered with the blink off cooldown. Out of range it poses as a
// summoner but conjures nothing.
func tickNecromancer(c *tickCtx) {
	e := c.e
	e.FacingAngle = math.Atan2(c.ny, c.nx)
	e.StateTimer -= c.dt
	switch {
	case c.dist < necroFleeDistance:
		if e.StateTimer <= 0 {
			e.TargetX = world.Tile*2 + math.Abs(math.Sin(float64(c.id)*1.7))*(world.RoomW-world.Tile*4)
			e.TargetY = world.Tile*3 + math.Abs(math.Cos(float64(c.id)*2.3))*(world.RoomH-world.Tile*6)
			e.X, e.Y = e.TargetX, e.TargetY
			e.AIState = "teleport"
			e.StateTimer = necroTeleportCD
		} else {
			e.AIState = "flee"
			e.X -= c.nx * c.speed
			e.Y -= c.ny * c.speed
		}
	case c.dist < necroKeepAway:
		e.AIState = "flee"
		e.X -= c.nx * c.speed * 0.5
		e.Y -= c.ny * c.speed * 0.5
	default:
		e.AIState = "summon"
	}
}

// tickBomber walks at the target and lights its fuse in trigger range.
// The blast hits everyone in the radius, the bomber included.
func tickBomber(c *tickCtx) {
	e := c.e
	e.FacingAngle = math.Atan2(c.ny, c.nx)
	switch e.AIState {
	case "fuse":
		e.StateTimer -= c.dt
		if e.StateTimer <= 0 {
			e.AIState = "explode"
			c.aoeAtk(e.X, e.Y, bomberExplosionRadius, e.Atk)
			e.HP = 0
			e.IsAlive = false
		}
	case "explode":
		// spent casing, nothing left to do
	default:
		if c.dist < bomberTriggerRange {
			e.AIState = "fuse"
			e.StateTimer = bomberFuseTime
		} else {
			e.AIState = "chase"
			e.X += c.nx * c.speed
			e.Y += c.ny * c.speed
		}
	}
}

// tickShieldKnight advances slowly and alternates a windup bash with a
// plain swing. One timer drives both: positive values gate the bash
// states, and the plain swing only fires once the timer has drifted a
// second past zero, so the two attacks interleave.
func tickShieldKnight(c *tickCtx) {
	e := c.e
	e.FacingAngle = math.Atan2(c.ny, c.nx)
	e.StateTimer -= c.dt
	switch e.AIState {
	case "shield_bash":
		if e.StateTimer <= 0 {
			e.AIState = "recover"
			e.StateTimer = shieldRecoverTime
			if c.dist < shieldBashRange {
				c.hit(c.target, int32(float64(e.Atk)*0.5))
			}
		}
	case "recover":
		if e.StateTimer <= 0 {
			e.AIState = "advance"
			e.StateTimer = shieldBashCD
		}
	default: // advance
		if c.dist > world.EnemyAttackRange {
			e.X += c.nx * c.speed
			e.Y += c.ny * c.speed
		}
		if e.StateTimer <= 0 && c.dist < shieldBashRange {
			e.AIState = "shield_bash"
			e.StateTimer = shieldBashWindup
		}
		if c.dist < world.EnemyAttackRange && e.StateTimer <= -1.0 {
			e.StateTimer = -2.5
			c.hit(c.target, e.Atk)
		}
	}
}

// tickArcher kites away inside its comfort distance, shoots on a cooldown
// from standoff range, and closes at half speed when the target is too far
// to hit. TargetX/TargetY record where the last arrow was aimed.
func tickArcher(c *tickCtx) {
	e := c.e
	e.FacingAngle = math.Atan2(c.ny, c.nx)
	e.StateTimer -= c.dt
	switch {
	case c.dist < archerKiteDistance:
		e.AIState = "kite"
		e.X -= c.nx * c.speed
		e.Y -= c.ny * c.speed
	case c.dist < archerShootRange:
		if e.StateTimer <= 0 {
			e.AIState = "shoot"
			e.StateTimer = archerShootCD
			e.TargetX, e.TargetY = c.tx, c.ty
			c.hit(c.target, e.Atk)
		} else {
			e.AIState = "kite"
		}
	default:
		e.AIState = "chase"
		e.X += c.nx * c.speed * 0.5
		e.Y += c.ny * c.speed * 0.5
	}
}
