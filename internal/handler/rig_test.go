package handler

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crawld/server/internal/core/sched"
	"github.com/crawld/server/internal/data"
	"github.com/crawld/server/internal/scripting"
	"github.com/crawld/server/internal/system"
	"github.com/crawld/server/internal/world"
)

// rig wires a registry against the embedded data tables with no Lua
// overrides and no database, mirroring the boot wiring in memory mode.
// Every schedule name is registered so arming through handlers sticks.
type rig struct {
	t     *testing.T
	state *world.State
	deps  *Deps
	reg   *Registry
}

func newRig(t *testing.T) *rig {
	t.Helper()
	st := world.New()
	classes, err := data.LoadClassTable("")
	require.NoError(t, err)
	enemies, err := data.LoadEnemyTable("")
	require.NoError(t, err)
	spawns, err := data.LoadSpawnTable("")
	require.NoError(t, err)
	loot, err := data.LoadLootTable("")
	require.NoError(t, err)
	grid, err := data.LoadOpenWorldTable("")
	require.NoError(t, err)
	scripts, err := scripting.NewEngine("", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(scripts.Close)

	sc := sched.New(zap.NewNop())
	noop := func(time.Time, float64) {}
	for _, name := range []string{
		system.ScheduleAI, system.ScheduleAbilities,
		system.ScheduleOpenWorld, system.ScheduleMatchmaking,
	} {
		sc.Register(name, 50*time.Millisecond, noop)
	}

	deps := &Deps{
		Log:       zap.NewNop(),
		World:     st,
		Sched:     sc,
		Scripting: scripts,
		Classes:   classes,
		Enemies:   enemies,
		OpenWorld: grid,
		Spawner:   system.NewSpawner(st, enemies, spawns, zap.NewNop()),
		Loot:      system.NewLootGenerator(st, loot, zap.NewNop()),
		WorldSys:  system.NewOpenWorldSystem(st, enemies, grid, scripts, zap.NewNop()),
	}
	reg := NewRegistry()
	RegisterAll(reg, deps)
	return &rig{t: t, state: st, deps: deps, reg: reg}
}

// cmd dispatches one command with args marshalled from v; nil sends no args.
func (r *rig) cmd(caller world.Identity, name string, v any) error {
	r.t.Helper()
	var raw json.RawMessage
	if v != nil {
		b, err := json.Marshal(v)
		require.NoError(r.t, err)
		raw = b
	}
	return r.reg.Dispatch(caller, name, raw)
}

// register creates a character through the real command path.
func (r *rig) register(id world.Identity, name, class string) *world.Player {
	r.t.Helper()
	require.NoError(r.t, r.cmd(id, "register_player", map[string]any{"name": name, "class": class}))
	p, ok := r.state.Players.Find(id)
	require.True(r.t, ok)
	return p
}

// startDungeon runs start_dungeon and returns the freshly created run.
func (r *rig) startDungeon(id world.Identity) *world.Dungeon {
	r.t.Helper()
	require.NoError(r.t, r.cmd(id, "start_dungeon", nil))
	d := r.state.LatestDungeon()
	require.NotNil(r.t, d)
	return d
}

// clearEnemies empties the enemy table so tests can place their own.
func (r *rig) clearEnemies() {
	for _, id := range r.state.Enemies.Keys() {
		r.state.Enemies.Delete(id)
	}
}
