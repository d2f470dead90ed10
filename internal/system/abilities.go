package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/crawld/server/internal/world"
)

const (
	healerAuraRadius = 40.0
	healerAuraPerSec = 5.0
)

// AbilitySystem runs the per-tick ability upkeep: cooldown decay, healing
// zone pulses and the healer proximity aura. Healing accrues fractionally
// in Player.HealAcc and lands as whole points, so a 5 HP/s zone heals five
// points over a second of 50 ms ticks instead of rounding to nothing.
type AbilitySystem struct {
	state *world.State
	log   *zap.Logger
}

func NewAbilitySystem(state *world.State, log *zap.Logger) *AbilitySystem {
	return &AbilitySystem{state: state, log: log}
}

func (ab *AbilitySystem) Tick(now time.Time, dt float64) {
	ab.tickCooldowns(dt)
	ab.tickHealingZones(dt)
	ab.tickHealerAuras(dt)
}

func (ab *AbilitySystem) tickCooldowns(dt float64) {
	ab.state.Abilities.Each(func(id world.Identity, st *world.AbilityState) {
		if st.TauntCD == 0 && st.KnockbackCD == 0 && st.HealingZoneCD == 0 &&
			st.DashCD == 0 && st.PostDashBonus == 0 {
			return
		}
		st.TauntCD = decay(st.TauntCD, dt)
		st.KnockbackCD = decay(st.KnockbackCD, dt)
		st.HealingZoneCD = decay(st.HealingZoneCD, dt)
		st.DashCD = decay(st.DashCD, dt)
		st.PostDashBonus = decay(st.PostDashBonus, dt)
		ab.state.Abilities.Touch(id)
	})
}

func (ab *AbilitySystem) tickHealingZones(dt float64) {
	for _, id := range ab.state.HealingZones.Keys() {
		z, ok := ab.state.HealingZones.Find(id)
		if !ok {
			continue
		}
		if z.Duration <= 0 {
			ab.state.HealingZones.Delete(id)
			continue
		}
		ab.healWithin(z.DungeonID, z.X, z.Y, z.Radius, z.HealPerSec*dt, 0)
		z.Duration -= dt
		ab.state.HealingZones.Touch(id)
	}
}

func (ab *AbilitySystem) tickHealerAuras(dt float64) {
	ab.state.Positions.Each(func(id world.Identity, pos *world.Position) {
		if pos.Class != world.ClassHealer {
			return
		}
		ab.healWithin(pos.DungeonID, pos.X, pos.Y, healerAuraRadius, healerAuraPerSec*dt, id)
	})
}

func (ab *AbilitySystem) healWithin(dungeonID uint64, x, y, radius, amount float64, exclude world.Identity) {
	ab.state.Positions.Each(func(id world.Identity, pos *world.Position) {
		if id == exclude || pos.DungeonID != dungeonID {
			return
		}
		if world.Dist(x, y, pos.X, pos.Y) > radius {
			return
		}
		ab.healPlayer(id, amount)
	})
}

func (ab *AbilitySystem) healPlayer(id world.Identity, amount float64) {
	p, ok := ab.state.Players.Find(id)
	if !ok {
		return
	}
	if p.HP >= p.MaxHP {
		p.HealAcc = 0
		return
	}
	p.HealAcc += amount
	whole := int32(p.HealAcc)
	if whole < 1 {
		return
	}
	p.HealAcc -= float64(whole)
	p.HP += whole
	if p.HP > p.MaxHP {
		p.HP = p.MaxHP
	}
	p.Dirty = true
	ab.state.Players.Touch(id)
}

func decay(v, dt float64) float64 {
	if v <= 0 {
		return 0
	}
	v -= dt
	if v < 0 {
		return 0
	}
	return v
}
