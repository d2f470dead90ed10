package system

import (
	"math"

	"github.com/crawld/server/internal/world"
)

// Boss tuning.
const (
	bossMeleeRange    = 55.0
	bossAttackCD      = 1.0
	bossPhaseGrace    = 0.5
	bossSummonCD      = 6.0
	bossSummonOffset  = 50.0
	bossAoeCD         = 4.0
	bossEnrageAtkMult = 1.5
	bossP2SpeedMult   = 0.7
	bossP3SpeedMult   = 1.5
)

// tickBoss runs the three-phase boss. Phase is derived from the health
// fraction every tick, over 60% is phase 1, over 30% phase 2, the rest
// phase 3. Transitions are one-way in practice since healing enemies does
// not exist, but the derivation tolerates it either way.
//
// StateTimer paces the per-phase special (summons in 2, the room-wide
// slam in 3) and TargetX carries the melee cooldown, the same slot the
// wolf uses for its bite.
func tickBoss(c *tickCtx) {
	e := c.e
	phase := uint8(3)
	switch frac := float64(e.HP) / float64(e.MaxHP); {
	case frac > 0.6:
		phase = 1
	case frac > 0.3:
		phase = 2
	}

	if phase != e.BossPhase {
		e.BossPhase = phase
		e.StateTimer = bossPhaseGrace
		switch phase {
		case 2:
			// Reset to center so the add waves fan out from a known spot.
			e.X, e.Y = world.SpawnX, world.SpawnY
			e.AIState = "phase2"
		case 3:
			e.Atk = int32(float64(e.Atk) * bossEnrageAtkMult)
			e.AIState = "enrage"
		}
		return
	}

	e.FacingAngle = math.Atan2(c.ny, c.nx)
	if e.TargetX > 0 {
		e.TargetX -= c.dt
	}

	switch e.BossPhase {
	case 1:
		bossChase(c, 1.0)
		bossMelee(c)
	case 2:
		e.StateTimer -= c.dt
		if e.StateTimer <= 0 {
			e.StateTimer = bossSummonCD
			e.AIState = "phase2"
			ang := e.FacingAngle + math.Pi/2
			c.spawnAdd(e.X+math.Cos(ang)*bossSummonOffset, e.Y+math.Sin(ang)*bossSummonOffset)
			c.spawnAdd(e.X-math.Cos(ang)*bossSummonOffset, e.Y-math.Sin(ang)*bossSummonOffset)
		} else {
			bossChase(c, bossP2SpeedMult)
			bossMelee(c)
		}
	default:
		e.StateTimer -= c.dt
		if e.StateTimer <= 0 {
			e.StateTimer = bossAoeCD
			e.AIState = "aoe"
			dmg := e.Atk / 3
			if dmg < 5 {
				dmg = 5
			}
			c.raidWide(dmg)
		} else {
			bossChase(c, bossP3SpeedMult)
			bossMelee(c)
		}
	}
}

func bossChase(c *tickCtx, mult float64) {
	if c.dist > bossMeleeRange {
		c.e.AIState = "chase"
		c.e.X += c.nx * c.speed * mult
		c.e.Y += c.ny * c.speed * mult
	}
}

func bossMelee(c *tickCtx) {
	if c.dist <= bossMeleeRange && c.e.TargetX <= 0 {
		c.e.TargetX = bossAttackCD
		c.e.AIState = "attack"
		c.hit(c.target, c.e.Atk)
	}
}
