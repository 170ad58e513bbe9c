package system

import (
	"errors"
	"fmt"
	"sort"

	"github.com/milk9111/enemyai/ai"
	"github.com/milk9111/enemyai/ai/script"
	"github.com/milk9111/enemyai/common"
	"github.com/milk9111/enemyai/ecs"
	"github.com/milk9111/enemyai/ecs/component"
	"github.com/milk9111/enemyai/prefabs"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

var ErrNoPhysics = errors.New("system: world has no physics")

// SpawnRequest places one entity. An empty Prefab spawns a plain vehicle
// that drives at Velocity and can be targeted but has no AI.
type SpawnRequest struct {
	Prefab   string
	Faction  string
	Position r3.Vec
	// Yaw is in degrees, counterclockwise from +X.
	Yaw      float64
	Velocity r3.Vec
	Health   float64
}

// WeaponDefaults fill in weapon fields a prefab leaves at zero.
type WeaponDefaults struct {
	Cooldown float64
	Damage   float64
}

// SpawnerConfig wires a Spawner to the rest of the simulation.
type SpawnerConfig struct {
	Loader    prefabs.Loader
	Targeting *TargetingSystem
	Weapons   *WeaponSystem
	Defaults  WeaponDefaults
	Strict    bool
	Seed      uint64
	MaxTickDT float64
	Logger    *zap.Logger
}

type prefabEntry struct {
	spec prefabs.BehaviorSpec
	def  *ai.Definition
}

// Spawner builds entities from behavior prefabs and keeps the compiled
// definitions cached until they are reloaded.
type Spawner struct {
	cfg     SpawnerConfig
	logger  *zap.Logger
	prefabs map[string]prefabEntry
	spawned uint64
}

func NewSpawner(cfg SpawnerConfig) *Spawner {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Spawner{
		cfg:     cfg,
		logger:  cfg.Logger.Named("spawner"),
		prefabs: make(map[string]prefabEntry),
	}
}

func (s *Spawner) Spawn(w *ecs.World, req SpawnRequest) (ecs.Entity, error) {
	pw := w.PhysicsWorld()
	if pw == nil {
		return 0, ErrNoPhysics
	}

	var entry prefabEntry
	if req.Prefab != "" {
		var err error
		if entry, err = s.entry(req.Prefab); err != nil {
			return 0, err
		}
	}

	e := w.CreateEntity()
	transform := component.Transform{
		Position: req.Position,
		Forward:  common.Forward(common.Deg2Rad(req.Yaw), 0),
	}
	_ = ecs.Add(w, e, component.TransformComponent, transform)
	_ = ecs.Add(w, e, component.TargetableTagComponent, component.TargetableTag{})
	if req.Faction != "" {
		_ = ecs.Add(w, e, component.FactionComponent, component.Faction{Team: req.Faction})
	}

	if req.Prefab == "" {
		body := pw.EnsureBody(e, transform, 1, 1, false)
		_ = ecs.Add(w, e, component.PhysicsBodyComponent, body)
		_ = ecs.Add(w, e, component.MotionComponent, component.Motion{Velocity: req.Velocity})
		_ = ecs.Add(w, e, component.HealthComponent, newHealth(req.Health, 100))
		s.logger.Debug("vehicle spawned", zap.Stringer("entity", e), zap.String("faction", req.Faction))
		return e, nil
	}

	spec := entry.spec
	body := pw.EnsureBody(e, transform, spec.Body.Radius, spec.Body.Mass, spec.Body.Static)
	_ = ecs.Add(w, e, component.PhysicsBodyComponent, body)
	_ = ecs.Add(w, e, component.HealthComponent, newHealth(req.Health, spec.Body.Health))
	_ = ecs.Add(w, e, component.WeaponComponent, s.weapon(entry))

	h, err := s.build(w, e, entry, transform)
	if err != nil {
		w.DestroyEntity(e)
		return 0, err
	}
	_ = ecs.Add(w, e, component.AIBrainComponent, component.AIBrain{
		Helper:       h,
		Prefab:       req.Prefab,
		AcquireRange: entry.def.Attack.AcquireRange,
	})
	s.logger.Info("enemy spawned",
		zap.Stringer("entity", e),
		zap.String("prefab", req.Prefab),
		zap.String("kind", entry.def.Kind),
		zap.String("state", string(h.CurrentState())))
	return e, nil
}

// Reload recompiles prefab and swaps a fresh helper into every entity built
// from it, in place. A prefab that no longer compiles leaves the running
// entities and the cached definition untouched.
func (s *Spawner) Reload(w *ecs.World, prefab string) (int, error) {
	old, had := s.prefabs[prefab]
	delete(s.prefabs, prefab)
	entry, err := s.entry(prefab)
	if err != nil {
		if had {
			s.prefabs[prefab] = old
		}
		return 0, err
	}

	n := 0
	for _, e := range w.Query(component.AIBrainComponent.ID(), component.TransformComponent.ID()) {
		brain, _ := ecs.Get(w, e, component.AIBrainComponent)
		if brain.Prefab != prefab {
			continue
		}
		transform, _ := ecs.Get(w, e, component.TransformComponent)
		h, err := s.build(w, e, entry, transform)
		if err != nil {
			return n, err
		}
		brain.Helper = h
		brain.AcquireRange = entry.def.Attack.AcquireRange
		_ = ecs.Add(w, e, component.AIBrainComponent, brain)
		_ = ecs.Add(w, e, component.WeaponComponent, s.weapon(entry))
		n++
	}
	s.logger.Info("prefab reloaded", zap.String("prefab", prefab), zap.Int("entities", n))
	return n, nil
}

// Forget drops the cached definition so the next spawn reads prefab again.
func (s *Spawner) Forget(prefab string) {
	delete(s.prefabs, prefab)
}

// PrefabsUsingScript lists the cached prefabs that run script.
func (s *Spawner) PrefabsUsingScript(script string) []string {
	var out []string
	for name, entry := range s.prefabs {
		if prefabs.PrefabName(entry.def.Script) == script {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (s *Spawner) entry(prefab string) (prefabEntry, error) {
	if entry, ok := s.prefabs[prefab]; ok {
		return entry, nil
	}
	spec, err := prefabs.LoadBehaviorSpec(s.cfg.Loader, prefab)
	if err != nil {
		return prefabEntry{}, err
	}
	def, err := ai.CompileDefinition(spec)
	if err != nil {
		return prefabEntry{}, fmt.Errorf("system: compile %s: %w", prefab, err)
	}
	entry := prefabEntry{spec: spec, def: def}
	s.prefabs[prefab] = entry
	return entry, nil
}

// build creates, initializes and wires a helper for e and puts it in its
// spawn state at transform.
func (s *Spawner) build(w *ecs.World, e ecs.Entity, entry prefabEntry, transform component.Transform) (*ai.Helper, error) {
	def := *entry.def
	def.Strict = def.Strict || s.cfg.Strict
	def.Seed = s.cfg.Seed + s.spawned
	s.spawned++

	var h *ai.Helper
	if def.Kind == ai.KindScripted {
		scripted, err := script.Load(s.cfg.Loader, &def, s.cfg.Logger)
		if err != nil {
			return nil, err
		}
		h = scripted.Helper
	} else {
		var err error
		if h, err = ai.New(def.Kind, s.cfg.Logger); err != nil {
			return nil, err
		}
		if err := h.Init(&def); err != nil {
			return nil, err
		}
	}

	h.SetSelf(ai.Handle(e))
	h.SetTransform(transform)
	if body, ok := ecs.Get(w, e, component.PhysicsBodyComponent); ok && body != nil {
		h.AttachPhysics(body)
	}
	if s.cfg.Targeting != nil {
		h.SetTargets(s.cfg.Targeting)
		h.SetTargetFinder(s.cfg.Targeting)
	}
	if s.cfg.Weapons != nil {
		weapons := s.cfg.Weapons
		h.OnFire(func(req ai.FireRequest) { weapons.Request(e, req) })
	}
	if s.cfg.MaxTickDT > 0 {
		h.SetMaxTickDT(s.cfg.MaxTickDT)
	}
	h.Spawn()
	return h, nil
}

func (s *Spawner) weapon(entry prefabEntry) component.Weapon {
	ws := entry.spec.Weapon
	weapon := component.Weapon{
		Kind:         ws.Kind,
		Damage:       ws.Damage,
		Cooldown:     ws.Cooldown,
		Burst:        entry.def.Attack.Burst,
		SelfDestruct: entry.def.Kind == ai.KindMine,
		Radius:       ws.Radius,
	}
	if weapon.Damage == 0 {
		weapon.Damage = s.cfg.Defaults.Damage
	}
	if weapon.Cooldown == 0 {
		weapon.Cooldown = s.cfg.Defaults.Cooldown
	}
	return weapon
}

func newHealth(requested, fallback float64) component.Health {
	hp := requested
	if hp <= 0 {
		hp = fallback
	}
	if hp <= 0 {
		hp = 100
	}
	return component.Health{Current: hp, Max: hp}
}
