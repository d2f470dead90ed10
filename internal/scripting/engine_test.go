package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEngine(t *testing.T, scriptsDir string) *Engine {
	t.Helper()
	e, err := NewEngine(scriptsDir, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func TestBuiltinFormulas(t *testing.T) {
	e := newTestEngine(t, "")

	assert.Equal(t, int32(15), e.Damage(20, 10))
	assert.Equal(t, int32(1), e.Damage(1, 50), "damage floors at one")
	assert.Equal(t, int32(12), e.PlayerDamage(12))
	assert.Equal(t, int32(1), e.PlayerDamage(0))

	assert.Equal(t, uint64(100), e.XPForLevel(1))
	assert.Equal(t, uint64(500), e.XPForLevel(5))

	assert.InDelta(t, 1.0, e.DepthScale(1), 1e-9)
	assert.InDelta(t, 1.45, e.DepthScale(4), 1e-9)

	assert.InDelta(t, 0.25, e.OpenWorldXPMult(-5), 1e-9)
	assert.InDelta(t, 1.0, e.OpenWorldXPMult(0), 1e-9)
	assert.InDelta(t, 1.5, e.OpenWorldXPMult(7), 1e-9)
}

func TestMissingDirUsesBuiltins(t *testing.T) {
	e := newTestEngine(t, filepath.Join(t.TempDir(), "nope"))
	assert.Equal(t, int32(15), e.Damage(20, 10))
}

func TestLuaOverride(t *testing.T) {
	dir := t.TempDir()
	script := "function damage(atk, def)\n  return atk * 2\nend\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "override.lua"), []byte(script), 0o644))

	e := newTestEngine(t, dir)
	assert.Equal(t, int32(40), e.Damage(20, 10))
	// Functions the script does not define keep their builtins.
	assert.Equal(t, uint64(300), e.XPForLevel(3))
}

func TestBrokenScriptFailsBoot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.lua"), []byte("function ("), 0o644))

	_, err := NewEngine(dir, zap.NewNop())
	assert.Error(t, err)
}

func TestShippedFormulasMatchBuiltins(t *testing.T) {
	// The repo's scripts/ must reproduce the compiled defaults exactly, so
	// deleting the directory does not change balance.
	root, err := filepath.Abs(filepath.Join("..", "..", "scripts"))
	require.NoError(t, err)
	if _, err := os.Stat(root); err != nil {
		t.Skip("scripts directory not present")
	}

	lua := newTestEngine(t, root)
	builtin := newTestEngine(t, "")

	for atk := int32(0); atk <= 40; atk += 7 {
		for def := int32(0); def <= 40; def += 9 {
			assert.Equal(t, builtin.Damage(atk, def), lua.Damage(atk, def), "atk=%d def=%d", atk, def)
		}
	}
	for lvl := uint32(1); lvl <= 30; lvl++ {
		assert.Equal(t, builtin.XPForLevel(lvl), lua.XPForLevel(lvl))
		assert.InDelta(t, builtin.DepthScale(lvl), lua.DepthScale(lvl), 1e-9)
	}
	for diff := int32(-8); diff <= 8; diff++ {
		assert.InDelta(t, builtin.OpenWorldXPMult(diff), lua.OpenWorldXPMult(diff), 1e-9)
	}
}

func TestScaleStatTruncates(t *testing.T) {
	assert.Equal(t, int32(57), ScaleStat(50, 1.15))
	assert.Equal(t, int32(50), ScaleStat(50, 1.0))
	assert.Equal(t, int32(12), ScaleStat(50, 0.25))
}
