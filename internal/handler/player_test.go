package handler

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crawld/server/internal/world"
)

func TestRegisterPlayerMintsClassStatLine(t *testing.T) {
	r := newRig(t)

	p := r.register(7, "Aria", "tank")
	assert.Equal(t, world.ClassTank, p.Class)
	assert.Equal(t, uint32(1), p.Level)
	assert.Equal(t, int32(150), p.HP)
	assert.Equal(t, int32(150), p.MaxHP)
	assert.Equal(t, int32(8), p.Atk)
	assert.Equal(t, int32(10), p.Def)
	assert.Equal(t, int32(4), p.Speed)
	assert.True(t, p.Dirty)

	// Registration also mints the cooldown row and the hub mode.
	assert.True(t, r.state.Abilities.Has(7))
	mode, ok := r.state.Modes.Find(7)
	require.True(t, ok)
	assert.Equal(t, world.ModeHub, mode.Mode)
}

func TestRegisterPlayerValidation(t *testing.T) {
	r := newRig(t)

	assert.ErrorIs(t, r.cmd(7, "register_player", map[string]any{"name": "   ", "class": "dps"}), ErrEmptyName)
	assert.ErrorIs(t, r.cmd(7, "register_player", map[string]any{"name": "Aria", "class": "bard"}), ErrInvalidClass)
	assert.Equal(t, 0, r.state.Players.Len())

	r.register(7, "Aria", "dps")
	assert.ErrorIs(t, r.cmd(7, "register_player", map[string]any{"name": "Other", "class": "dps"}), ErrAlreadyRegistered)
}

func TestRegisterPlayerFoldsNameBuckets(t *testing.T) {
	r := newRig(t)
	r.register(7, "Aria", "dps")

	// Case and width variants collapse into the taken bucket; the display
	// name keeps its typed form.
	assert.ErrorIs(t, r.cmd(8, "register_player", map[string]any{"name": "ARIA", "class": "tank"}), ErrAlreadyRegistered)
	assert.ErrorIs(t, r.cmd(8, "register_player", map[string]any{"name": "Ａria", "class": "tank"}), ErrAlreadyRegistered)
	assert.ErrorIs(t, r.cmd(8, "register_player", map[string]any{"name": " aria ", "class": "tank"}), ErrAlreadyRegistered)

	p := r.register(8, "Brim", "tank")
	assert.Equal(t, "Brim", p.Name)
}

func TestLoginRequiresACharacter(t *testing.T) {
	r := newRig(t)

	assert.ErrorIs(t, r.cmd(7, "login", nil), ErrNotRegistered)
	r.register(7, "Aria", "dps")
	assert.NoError(t, r.cmd(7, "login", nil))
}

func TestSetGameModeValidates(t *testing.T) {
	r := newRig(t)
	r.register(7, "Aria", "dps")

	assert.ErrorIs(t, r.cmd(7, "set_game_mode", map[string]any{"mode": "speedrun"}), ErrInvalidMode)
	assert.ErrorIs(t, r.cmd(9, "set_game_mode", map[string]any{"mode": "hub"}), ErrNotFound)

	require.NoError(t, r.cmd(7, "set_game_mode", map[string]any{"mode": "open_world"}))
	mode, ok := r.state.Modes.Find(7)
	require.True(t, ok)
	assert.Equal(t, world.ModeOpenWorld, mode.Mode)
	assert.Equal(t, uint64(0), mode.InstanceID)
}

func TestDispatchRejectsJunk(t *testing.T) {
	r := newRig(t)

	assert.ErrorIs(t, r.reg.Dispatch(7, "does_not_exist", nil), ErrUnknownCommand)
	assert.ErrorIs(t, r.reg.Dispatch(7, "register_player", json.RawMessage(`{"name":`)), ErrBadArgs)
}
