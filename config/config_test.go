package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 30.0, cfg.Sim.TickHz)
	assert.InDelta(t, 1.0/30, cfg.Sim.TickDT(), 1e-12)
	assert.Equal(t, 0.1, cfg.Sim.MaxTickDT)
	assert.Equal(t, 300, cfg.Sim.Ticks)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "prefabs", cfg.Prefabs.Dir)
	assert.Equal(t, 10, cfg.Physics.Iterations)
	assert.Equal(t, 0.5, cfg.Weapons.Cooldown)
	require.Len(t, cfg.Scenario.Spawns, 8)
	assert.Equal(t, "tower", cfg.Scenario.Spawns[0].Prefab)
	assert.Equal(t, 90.0, cfg.Scenario.Spawns[3].Yaw)
	assert.Equal(t, -1.0, cfg.Scenario.Spawns[5].VX)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.yaml")
	data := []byte(`
sim:
  ticks: 12
  seed: 42
log:
  level: debug
ai:
  strict_transitions: true
scenario:
  spawns:
    - prefab: tower
      faction: red
    - faction: blue
      x: 5
      health: 50
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Sim.Ticks)
	assert.Equal(t, uint64(42), cfg.Sim.Seed)
	assert.Equal(t, 30.0, cfg.Sim.TickHz, "unset keys keep defaults")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.AI.StrictTransitions)
	require.Len(t, cfg.Scenario.Spawns, 2)
	assert.Equal(t, Spawn{Faction: "blue", X: 5, Health: 50}, cfg.Scenario.Spawns[1])
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("NETDEMO_SIM_TICKS", "7")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Sim.Ticks)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sim:\n  tick_hz: 0\nscenario:\n  spawns:\n    - prefab: tower\n"), 0o644))
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sim.tick_hz")
	assert.Contains(t, err.Error(), "missing faction")
}
