package sim

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/milk9111/enemyai/config"
	"github.com/milk9111/enemyai/ecs"
	"github.com/milk9111/enemyai/ecs/component"
	"github.com/milk9111/enemyai/ecs/system"
	"github.com/milk9111/enemyai/prefabs"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// Summary describes the world after a run.
type Summary struct {
	Ticks   uint64
	Time    float64
	Alive   map[string]int
	Losses  map[string]int
	States  map[string]int
	Shots   int
	Blocked int
	Reloads int
}

// Simulation is a headless battle between the configured enemies and the
// vehicles they hunt, stepped at a fixed rate.
type Simulation struct {
	cfg    config.Config
	logger *zap.Logger

	world     *ecs.World
	scheduler *ecs.Scheduler
	targeting *system.TargetingSystem
	weapons   *system.WeaponSystem
	combat    *system.CombatSystem
	spawner   *system.Spawner

	watcher *prefabs.Watcher
	reloads int
}

// New builds the world and spawns the scenario.
func New(cfg config.Config, logger *zap.Logger) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	world := ecs.NewWorld(cfg.Sim.TickDT())
	world.SetPhysicsWorld(ecs.NewPhysicsWorld(ecs.PhysicsConfig{
		Iterations: cfg.Physics.Iterations,
		Damping:    cfg.Physics.Damping,
	}, logger))

	s := &Simulation{
		cfg:       cfg,
		logger:    logger.Named("sim"),
		world:     world,
		targeting: system.NewTargetingSystem(),
		weapons:   system.NewWeaponSystem(logger),
		combat:    system.NewCombatSystem(logger),
	}
	s.spawner = system.NewSpawner(system.SpawnerConfig{
		Loader:    prefabs.Loader{Dir: cfg.Prefabs.Dir},
		Targeting: s.targeting,
		Weapons:   s.weapons,
		Defaults: system.WeaponDefaults{
			Cooldown: cfg.Weapons.Cooldown,
			Damage:   cfg.Weapons.Damage,
		},
		Strict:    cfg.AI.StrictTransitions,
		Seed:      cfg.Sim.Seed,
		MaxTickDT: cfg.Sim.MaxTickDT,
		Logger:    logger,
	})
	s.scheduler = ecs.NewScheduler(
		s.targeting,
		system.NewAISystem(logger),
		s.weapons,
		s.combat,
		system.NewPhysicsSystem(),
	)

	for i, sp := range cfg.Scenario.Spawns {
		if _, err := s.spawner.Spawn(world, spawnRequest(sp)); err != nil {
			return nil, fmt.Errorf("sim: spawn %d (%q): %w", i, sp.Prefab, err)
		}
	}

	if cfg.Prefabs.HotReload && cfg.Prefabs.Dir != "" {
		w, err := prefabs.NewWatcher(cfg.Prefabs.Dir, filepath.Join(cfg.Prefabs.Dir, "scripts"))
		if err != nil {
			s.logger.Warn("hot reload disabled", zap.Error(err))
		} else {
			s.watcher = w
		}
	}

	s.logger.Info("simulation ready",
		zap.Int("entities", len(world.Entities())),
		zap.Float64("dt", world.DT()),
		zap.Bool("hot_reload", s.watcher != nil))
	return s, nil
}

func spawnRequest(sp config.Spawn) system.SpawnRequest {
	return system.SpawnRequest{
		Prefab:   sp.Prefab,
		Faction:  sp.Faction,
		Position: r3.Vec{X: sp.X, Y: sp.Y, Z: sp.Z},
		Yaw:      sp.Yaw,
		Velocity: r3.Vec{X: sp.VX, Y: sp.VY},
		Health:   sp.Health,
	}
}

// Run steps the world ticks times, or until ctx is done. A non-positive
// ticks uses the configured count.
func (s *Simulation) Run(ctx context.Context, ticks int) (Summary, error) {
	if ticks <= 0 {
		ticks = s.cfg.Sim.Ticks
	}
	for i := 0; i < ticks; i++ {
		select {
		case <-ctx.Done():
			return s.Summary(), ctx.Err()
		default:
		}
		s.applyReloads()
		s.Step()
	}
	return s.Summary(), nil
}

// Step advances the world one tick.
func (s *Simulation) Step() {
	s.scheduler.Update(s.world)
}

func (s *Simulation) applyReloads() {
	if s.watcher == nil {
		return
	}
	for {
		select {
		case path, ok := <-s.watcher.Events:
			if !ok {
				s.watcher = nil
				return
			}
			s.reload(path)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				s.watcher = nil
				return
			}
			s.logger.Warn("prefab watcher", zap.Error(err))
		default:
			return
		}
	}
}

func (s *Simulation) reload(path string) {
	name := prefabs.PrefabName(path)
	targets := []string{name}
	if filepath.Ext(path) == ".tengo" {
		targets = s.spawner.PrefabsUsingScript(name)
	}
	for _, prefab := range targets {
		n, err := s.spawner.Reload(s.world, prefab)
		if err != nil {
			s.logger.Warn("prefab reload failed", zap.String("prefab", prefab), zap.Error(err))
			continue
		}
		if n > 0 {
			s.reloads++
		}
	}
}

// Summary reports who is still standing and what the AIs are doing.
func (s *Simulation) Summary() Summary {
	sum := Summary{
		Ticks:   s.world.Tick(),
		Time:    s.world.Time(),
		Alive:   make(map[string]int),
		Losses:  s.combat.Losses(),
		States:  make(map[string]int),
		Shots:   s.weapons.Fired(),
		Blocked: s.weapons.Blocked(),
		Reloads: s.reloads,
	}
	for _, e := range s.world.Query(component.FactionComponent.ID()) {
		f, _ := ecs.Get(s.world, e, component.FactionComponent)
		sum.Alive[f.Team]++
	}
	for _, e := range s.world.Query(component.AIBrainComponent.ID()) {
		brain, _ := ecs.Get(s.world, e, component.AIBrainComponent)
		if brain.Helper != nil {
			sum.States[string(brain.Helper.CurrentState())]++
		}
	}
	return sum
}

// Teams lists the factions in sum, sorted.
func (sum Summary) Teams() []string {
	seen := make(map[string]bool)
	for team := range sum.Alive {
		seen[team] = true
	}
	for team := range sum.Losses {
		seen[team] = true
	}
	out := make([]string, 0, len(seen))
	for team := range seen {
		out = append(out, team)
	}
	sort.Strings(out)
	return out
}

// World exposes the underlying ECS world.
func (s *Simulation) World() *ecs.World { return s.world }

// Spawner exposes the prefab spawner, mainly for reloads.
func (s *Simulation) Spawner() *system.Spawner { return s.spawner }

func (s *Simulation) Close() error {
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	s.watcher = nil
	return err
}
