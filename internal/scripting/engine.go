package scripting

import (
	"fmt"
	"math"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM holding the tunable balance formulas.
// Single-goroutine access only (game loop). Every formula has a built-in
// fallback, so a missing script directory or function runs the defaults.
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates the VM and loads every .lua file in scriptsDir. A
// missing directory is fine; the defaults apply.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	if err := e.loadDir(scriptsDir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	return e, nil
}

func (e *Engine) Close() {
	e.vm.Close()
}

func (e *Engine) loadDir(dir string) error {
	if dir == "" {
		return nil
	}
	// Glob sorts, so scripts load in a stable order and a later file wins
	// when two define the same global. A missing directory matches nothing.
	paths, err := filepath.Glob(filepath.Join(dir, "*.lua"))
	if err != nil {
		return err
	}
	for _, path := range paths {
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("run %s: %w", path, err)
		}
		e.log.Debug("lua formulas loaded", zap.String("file", path))
	}
	return nil
}

// call1 invokes a global Lua function expecting one numeric return. ok is
// false when the function is absent or errored, in which case the caller
// uses its fallback.
func (e *Engine) call1(name string, args ...lua.LValue) (float64, bool) {
	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		return 0, false
	}
	if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
		e.log.Error("lua call failed", zap.String("fn", name), zap.Error(err))
		return 0, false
	}
	ret := e.vm.Get(-1)
	e.vm.Pop(1)
	n, ok := ret.(lua.LNumber)
	if !ok {
		e.log.Error("lua function returned non-number", zap.String("fn", name))
		return 0, false
	}
	return float64(n), true
}

// Damage is the enemy-to-player melee formula: max(1, atk - def/2).
func (e *Engine) Damage(atk, def int32) int32 {
	if v, ok := e.call1("damage", lua.LNumber(atk), lua.LNumber(def)); ok {
		return int32(v)
	}
	dmg := atk - def/2
	if dmg < 1 {
		dmg = 1
	}
	return dmg
}

// PlayerDamage is the player attack formula: max(1, atk). Defense does not
// apply to enemies.
func (e *Engine) PlayerDamage(atk int32) int32 {
	if v, ok := e.call1("player_damage", lua.LNumber(atk)); ok {
		return int32(v)
	}
	if atk < 1 {
		return 1
	}
	return atk
}

// XPForLevel is the cumulative XP at which a level is left: level * 100.
func (e *Engine) XPForLevel(level uint32) uint64 {
	if v, ok := e.call1("xp_for_level", lua.LNumber(level)); ok {
		return uint64(v)
	}
	return uint64(level) * 100
}

// DepthScale is the enemy stat multiplier per dungeon depth:
// 1 + (depth-1) * 0.15.
func (e *Engine) DepthScale(depth uint32) float64 {
	if v, ok := e.call1("depth_scale", lua.LNumber(depth)); ok {
		return v
	}
	return 1.0 + (float64(depth)-1.0)*0.15
}

// OpenWorldXPMult maps enemy level minus player level to the open-world XP
// multiplier: 0.25 when five or more below, 1.5 when five or more above.
func (e *Engine) OpenWorldXPMult(levelDiff int32) float64 {
	if v, ok := e.call1("openworld_xp_mult", lua.LNumber(levelDiff)); ok {
		return v
	}
	switch {
	case levelDiff <= -5:
		return 0.25
	case levelDiff >= 5:
		return 1.5
	default:
		return 1.0
	}
}

// ScaleStat applies a float multiplier to a base stat, truncating the way
// every scaled stat in the game does.
func ScaleStat(base int32, mult float64) int32 {
	return int32(math.Trunc(float64(base) * mult))
}
