package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Sim      SimConfig      `mapstructure:"sim"`
	Log      LogConfig      `mapstructure:"log"`
	AI       AIConfig       `mapstructure:"ai"`
	Prefabs  PrefabsConfig  `mapstructure:"prefabs"`
	Physics  PhysicsConfig  `mapstructure:"physics"`
	Weapons  WeaponsConfig  `mapstructure:"weapons"`
	Scenario ScenarioConfig `mapstructure:"scenario"`
}

type SimConfig struct {
	TickHz    float64 `mapstructure:"tick_hz"`
	MaxTickDT float64 `mapstructure:"max_tick_dt"`
	Ticks     int     `mapstructure:"ticks"`
	Seed      uint64  `mapstructure:"seed"`
}

// TickDT is the fixed simulation step in seconds.
func (s SimConfig) TickDT() float64 {
	if s.TickHz <= 0 {
		return 0
	}
	return 1 / s.TickHz
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type AIConfig struct {
	// StrictTransitions rejects a second registration of the same
	// (event, from) pair instead of overwriting it.
	StrictTransitions bool `mapstructure:"strict_transitions"`
}

type PrefabsConfig struct {
	Dir       string `mapstructure:"dir"`
	HotReload bool   `mapstructure:"hot_reload"`
}

type PhysicsConfig struct {
	Iterations int     `mapstructure:"iterations"`
	Damping    float64 `mapstructure:"damping"`
}

// WeaponsConfig fills in for prefabs whose weapon block leaves a field unset.
type WeaponsConfig struct {
	Cooldown float64 `mapstructure:"cooldown"`
	Damage   float64 `mapstructure:"damage"`
}

type ScenarioConfig struct {
	Spawns []Spawn `mapstructure:"spawns"`
}

// Spawn places one entity. An empty Prefab spawns a plain targetable vehicle
// that drives at (VX, VY). Yaw is in degrees.
type Spawn struct {
	Prefab  string  `mapstructure:"prefab"`
	Faction string  `mapstructure:"faction"`
	X       float64 `mapstructure:"x"`
	Y       float64 `mapstructure:"y"`
	Z       float64 `mapstructure:"z"`
	Yaw     float64 `mapstructure:"yaw"`
	VX      float64 `mapstructure:"vx"`
	VY      float64 `mapstructure:"vy"`
	Health  float64 `mapstructure:"health"`
}

// Load reads config from the given YAML file path. An empty path yields the
// defaults. NETDEMO_* environment variables override file values, e.g.
// NETDEMO_SIM_TICKS.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("netdemo")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sim.tick_hz", 30)
	v.SetDefault("sim.max_tick_dt", 0.1)
	v.SetDefault("sim.ticks", 300)
	v.SetDefault("sim.seed", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("ai.strict_transitions", false)
	v.SetDefault("prefabs.dir", "prefabs")
	v.SetDefault("prefabs.hot_reload", false)
	v.SetDefault("physics.iterations", 10)
	v.SetDefault("physics.damping", 1.0)
	v.SetDefault("weapons.cooldown", 0.5)
	v.SetDefault("weapons.damage", 25)
	v.SetDefault("scenario.spawns", []map[string]any{
		{"prefab": "tower", "faction": "red", "x": 0, "y": 0, "z": 0},
		{"prefab": "helix", "faction": "red", "x": -40, "y": 0, "z": 10},
		{"prefab": "mine", "faction": "red", "x": 20, "y": 20, "z": 0},
		{"prefab": "mothership", "faction": "red", "x": 0, "y": -60, "z": 25, "yaw": 90},
		{"prefab": "scripted_drone", "faction": "red", "x": 10, "y": -10, "z": 5},
		{"faction": "blue", "x": 30, "y": 5, "vx": -1, "health": 150},
		{"faction": "blue", "x": -20, "y": 30, "vy": -1, "health": 150},
		{"faction": "blue", "x": 50, "y": -40, "health": 300},
	})
}

// Validate rejects settings the simulation cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Sim.TickHz <= 0 {
		errs = append(errs, fmt.Errorf("sim.tick_hz must be positive, got %v", c.Sim.TickHz))
	}
	if c.Sim.MaxTickDT <= 0 {
		errs = append(errs, fmt.Errorf("sim.max_tick_dt must be positive, got %v", c.Sim.MaxTickDT))
	}
	if c.Sim.Ticks < 0 {
		errs = append(errs, fmt.Errorf("sim.ticks must not be negative, got %d", c.Sim.Ticks))
	}
	if c.Physics.Iterations <= 0 {
		errs = append(errs, fmt.Errorf("physics.iterations must be positive, got %d", c.Physics.Iterations))
	}
	for i, s := range c.Scenario.Spawns {
		if s.Faction == "" {
			errs = append(errs, fmt.Errorf("scenario.spawns[%d]: missing faction", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
