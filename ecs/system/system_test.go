package system

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/milk9111/enemyai/ai"
	"github.com/milk9111/enemyai/ecs"
	"github.com/milk9111/enemyai/ecs/component"
	"github.com/milk9111/enemyai/prefabs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/spatial/r3"
)

type testSim struct {
	world     *ecs.World
	scheduler *ecs.Scheduler
	targeting *TargetingSystem
	weapons   *WeaponSystem
	combat    *CombatSystem
	spawner   *Spawner
}

func newTestSim(t *testing.T, logger *zap.Logger) *testSim {
	t.Helper()
	if logger == nil {
		logger = zap.NewNop()
	}
	w := ecs.NewWorld(0.05)
	w.SetPhysicsWorld(ecs.NewPhysicsWorld(ecs.PhysicsConfig{Iterations: 10}, logger))

	s := &testSim{
		world:     w,
		targeting: NewTargetingSystem(),
		weapons:   NewWeaponSystem(logger),
		combat:    NewCombatSystem(logger),
	}
	s.spawner = NewSpawner(SpawnerConfig{
		Loader:    prefabs.Loader{},
		Targeting: s.targeting,
		Weapons:   s.weapons,
		Defaults:  WeaponDefaults{Cooldown: 1, Damage: 10},
		Seed:      7,
		Logger:    logger,
	})
	s.scheduler = ecs.NewScheduler(
		s.targeting,
		NewAISystem(logger),
		s.weapons,
		s.combat,
		NewPhysicsSystem(),
	)
	return s
}

func (s *testSim) spawn(t *testing.T, req SpawnRequest) ecs.Entity {
	t.Helper()
	e, err := s.spawner.Spawn(s.world, req)
	require.NoError(t, err)
	return e
}

func (s *testSim) run(ticks int) {
	for i := 0; i < ticks; i++ {
		s.scheduler.Update(s.world)
	}
}

func helperOf(t *testing.T, w *ecs.World, e ecs.Entity) *ai.Helper {
	t.Helper()
	brain, ok := ecs.Get(w, e, component.AIBrainComponent)
	require.True(t, ok)
	require.NotNil(t, brain.Helper)
	return brain.Helper
}

func TestTargetingPicksNearestHostileInRange(t *testing.T) {
	s := newTestSim(t, nil)
	self := s.spawn(t, SpawnRequest{Faction: "red"})
	friend := s.spawn(t, SpawnRequest{Faction: "red", Position: r3.Vec{X: 1}})
	near := s.spawn(t, SpawnRequest{Faction: "blue", Position: r3.Vec{X: 5}})
	far := s.spawn(t, SpawnRequest{Faction: "blue", Position: r3.Vec{X: 50}})
	_ = friend

	s.targeting.Update(s.world)
	assert.Equal(t, 4, s.targeting.Candidates())

	got, ok := s.targeting.FindTarget(ai.Handle(self), r3.Vec{}, 0)
	require.True(t, ok)
	assert.Equal(t, ai.Handle(near), got)

	_, ok = s.targeting.FindTarget(ai.Handle(self), r3.Vec{}, 3)
	assert.False(t, ok, "nothing hostile within 3")

	s.world.DestroyEntity(near)
	assert.False(t, s.targeting.IsValid(ai.Handle(near)))
	got, ok = s.targeting.FindTarget(ai.Handle(self), r3.Vec{}, 0)
	require.True(t, ok, "stale snapshot entries are skipped")
	assert.Equal(t, ai.Handle(far), got)

	tr, ok := s.targeting.TargetTransform(ai.Handle(far))
	require.True(t, ok)
	assert.InDelta(t, 50, tr.Position.X, 1e-9)
	assert.Equal(t, 1, s.targeting.Lookups())
}

func TestTargetingSkipsDead(t *testing.T) {
	s := newTestSim(t, nil)
	self := s.spawn(t, SpawnRequest{Faction: "red"})
	victim := s.spawn(t, SpawnRequest{Faction: "blue", Position: r3.Vec{X: 5}})
	_ = ecs.Add(s.world, victim, component.HealthComponent, component.Health{Current: 0, Max: 10})

	s.targeting.Update(s.world)
	assert.False(t, s.targeting.IsValid(ai.Handle(victim)))
	_, ok := s.targeting.FindTarget(ai.Handle(self), r3.Vec{}, 0)
	assert.False(t, ok)
}

func TestWeaponCooldownUsesSimulationTime(t *testing.T) {
	w := ecs.NewWorld(0.1)
	idle := ecs.NewScheduler()
	shooter := w.CreateEntity()
	target := w.CreateEntity()
	_ = ecs.Add(w, shooter, component.WeaponComponent, component.Weapon{Kind: "laser", Damage: 5, Cooldown: 0.5})

	ws := NewWeaponSystem(nil)
	damage := 0
	for tick := 0; tick < 10; tick++ {
		ws.Request(shooter, ai.FireRequest{Target: ai.Handle(target)})
		ws.Update(w)
		damage += len(w.Events().Drain(ecs.EventDamage))
		idle.Update(w)
	}

	// One second of ticks at a 0.5s cooldown allows the opening shot plus
	// one refill per half second.
	assert.Equal(t, 2, damage)
	assert.Equal(t, 2, ws.Fired())
	assert.Equal(t, 8, ws.Blocked())
}

func TestWeaponBurstAllowsBackToBackShots(t *testing.T) {
	w := ecs.NewWorld(0.1)
	shooter := w.CreateEntity()
	target := w.CreateEntity()
	_ = ecs.Add(w, shooter, component.WeaponComponent, component.Weapon{Damage: 5, Cooldown: 10, Burst: 3})

	ws := NewWeaponSystem(nil)
	for i := 0; i < 5; i++ {
		ws.Request(shooter, ai.FireRequest{Target: ai.Handle(target)})
	}
	ws.Update(w)
	assert.Len(t, w.Events().Drain(ecs.EventDamage), 3)
	assert.Len(t, w.Events().Drain(ecs.EventShot), 3)
}

func TestWeaponSelfDestructBlast(t *testing.T) {
	w := ecs.NewWorld(0.1)
	mine := w.CreateEntity()
	near := w.CreateEntity()
	far := w.CreateEntity()
	_ = ecs.Add(w, mine, component.WeaponComponent, component.Weapon{Damage: 60, Radius: 4, SelfDestruct: true})
	for e, x := range map[ecs.Entity]float64{mine: 0, near: 3, far: 10} {
		_ = ecs.Add(w, e, component.TransformComponent, component.Transform{Position: r3.Vec{X: x}})
		_ = ecs.Add(w, e, component.HealthComponent, component.Health{Current: 100, Max: 100})
	}

	ws := NewWeaponSystem(nil)
	ws.Request(mine, ai.FireRequest{Target: ai.Handle(near), SelfDestruct: true})
	ws.Update(w)

	got := map[ecs.Entity]float64{}
	for _, evt := range w.Events().Drain(ecs.EventDamage) {
		dmg := evt.Data.(ecs.DamageEvent)
		assert.Equal(t, mine, dmg.Source)
		got[dmg.Target] = dmg.Amount
	}
	assert.Equal(t, 60.0, got[near])
	assert.True(t, math.IsInf(got[mine], 1), "the mine destroys itself")
	assert.NotContains(t, got, far)
}

func TestCombatAppliesDamageAndDestroysDead(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := newTestSim(t, zap.New(core))
	helix := s.spawn(t, SpawnRequest{Prefab: "helix", Faction: "red", Position: r3.Vec{Z: 10}})
	s.run(1)
	h := helperOf(t, s.world, helix)
	require.Equal(t, ai.StateFindTarget, h.CurrentState())

	attacker := s.spawn(t, SpawnRequest{Faction: "blue", Position: r3.Vec{X: 200}})
	s.world.Events().Push(ecs.Event{Type: ecs.EventDamage, Data: ecs.DamageEvent{Source: attacker, Target: helix, Amount: 30}})
	s.combat.Update(s.world)

	hp, _ := ecs.Get(s.world, helix, component.HealthComponent)
	assert.Equal(t, 50.0, hp.Current)
	assert.Equal(t, uint64(attacker), hp.LastAttacker)
	assert.Equal(t, ai.StateEvade, h.CurrentState(), "surviving a hit triggers evasion")

	s.world.Events().Push(ecs.Event{Type: ecs.EventDamage, Data: ecs.DamageEvent{Source: attacker, Target: helix, Amount: 500}})
	s.combat.Update(s.world)
	assert.False(t, s.world.IsAlive(helix))
	assert.Equal(t, ai.StateDie, h.CurrentState())
	assert.Equal(t, map[string]int{"red": 1}, s.combat.Losses())
	assert.Equal(t, 1, logs.FilterMessage("entity destroyed").Len())
	assert.Len(t, s.world.Events().Drain(ecs.EventKilled), 1)
	_, ok := s.world.PhysicsWorld().Body(helix)
	assert.False(t, ok, "destroying an entity removes its body")
}

func TestSpawnerBuildsEveryPrefab(t *testing.T) {
	s := newTestSim(t, nil)
	for _, name := range prefabs.Names() {
		t.Run(name, func(t *testing.T) {
			e := s.spawn(t, SpawnRequest{Prefab: name, Faction: "red", Position: r3.Vec{X: 3, Y: 4}, Yaw: 90})
			h := helperOf(t, s.world, e)
			assert.True(t, h.Initialized())
			assert.Equal(t, ai.StateSpawn, h.CurrentState())
			assert.Equal(t, ai.Handle(e), h.Self())
			assert.InDelta(t, 1, h.Transform().Forward.Y, 1e-9)
			assert.True(t, ecs.Has(s.world, e, component.WeaponComponent))
			assert.True(t, ecs.Has(s.world, e, component.PhysicsBodyComponent))

			brain, _ := ecs.Get(s.world, e, component.AIBrainComponent)
			assert.Equal(t, name, brain.Prefab)
		})
	}
}

func TestSpawnerWeaponDefaultsAndMineSelfDestruct(t *testing.T) {
	s := newTestSim(t, nil)
	mine := s.spawn(t, SpawnRequest{Prefab: "mine"})
	weapon, _ := ecs.Get(s.world, mine, component.WeaponComponent)
	assert.True(t, weapon.SelfDestruct)
	assert.Equal(t, 60.0, weapon.Damage)
	assert.Equal(t, 1.0, weapon.Cooldown, "cooldown falls back to the default")

	tower := s.spawn(t, SpawnRequest{Prefab: "tower", Health: 999})
	hp, _ := ecs.Get(s.world, tower, component.HealthComponent)
	assert.Equal(t, 999.0, hp.Max, "explicit health wins over the prefab")
}

func TestSpawnerErrors(t *testing.T) {
	s := newTestSim(t, nil)
	before := len(s.world.Entities())
	_, err := s.spawner.Spawn(s.world, SpawnRequest{Prefab: "nope"})
	assert.ErrorIs(t, err, prefabs.ErrUnknownPrefab)
	assert.Len(t, s.world.Entities(), before)

	_, err = s.spawner.Spawn(ecs.NewWorld(0.1), SpawnRequest{Prefab: "tower"})
	assert.ErrorIs(t, err, ErrNoPhysics)
}

func TestSpawnerReloadSwapsHelpers(t *testing.T) {
	s := newTestSim(t, nil)
	a := s.spawn(t, SpawnRequest{Prefab: "tower", Position: r3.Vec{X: 1}})
	b := s.spawn(t, SpawnRequest{Prefab: "tower", Position: r3.Vec{X: 2}})
	other := s.spawn(t, SpawnRequest{Prefab: "mine"})
	oldA := helperOf(t, s.world, a)
	oldMine := helperOf(t, s.world, other)

	n, err := s.spawner.Reload(s.world, "tower")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NotSame(t, oldA, helperOf(t, s.world, a))
	assert.InDelta(t, 2, helperOf(t, s.world, b).Transform().Position.X, 1e-9)
	assert.Same(t, oldMine, helperOf(t, s.world, other))

	_, err = s.spawner.Reload(s.world, "nope")
	assert.Error(t, err)
}

func TestReloadedCooldownReachesLiveWeapons(t *testing.T) {
	dir := t.TempDir()
	tower, err := prefabs.PrefabsFS.ReadFile("tower.yaml")
	require.NoError(t, err)
	path := filepath.Join(dir, "tower.yaml")
	slow := strings.Replace(string(tower), "cooldown: 0.5", "cooldown: 100", 1)
	require.NoError(t, os.WriteFile(path, []byte(slow), 0o644))

	s := newTestSim(t, nil)
	s.spawner = NewSpawner(SpawnerConfig{
		Loader:    prefabs.Loader{Dir: dir},
		Targeting: s.targeting,
		Weapons:   s.weapons,
	})
	shooter := s.spawn(t, SpawnRequest{Prefab: "tower", Faction: "red"})
	target := s.spawn(t, SpawnRequest{Faction: "blue", Position: r3.Vec{X: 20}})
	fire := func() {
		s.weapons.Request(shooter, ai.FireRequest{Target: ai.Handle(target)})
		s.weapons.Update(s.world)
	}

	fire()
	fire()
	require.Equal(t, 1, s.weapons.Fired())
	require.Equal(t, 1, s.weapons.Blocked())

	fast := strings.Replace(string(tower), "cooldown: 0.5", "cooldown: 0.01", 1)
	require.NoError(t, os.WriteFile(path, []byte(fast), 0o644))
	n, err := s.spawner.Reload(s.world, "tower")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	fire()
	assert.Equal(t, 2, s.weapons.Fired(), "the reloaded cooldown replaces the cached one")
	assert.Equal(t, 1, s.weapons.Blocked())
}

func TestAISystemWithoutBodyMirrorsHelper(t *testing.T) {
	w := ecs.NewWorld(0.1)
	h, err := ai.New(ai.KindTower, nil)
	require.NoError(t, err)
	require.NoError(t, h.Init(nil))
	h.SetTransform(ai.Transform{Position: r3.Vec{X: 4}, Forward: r3.Vec{X: 1}})
	h.Spawn()

	e := w.CreateEntity()
	_ = ecs.Add(w, e, component.TransformComponent, component.Transform{Forward: r3.Vec{X: 1}})
	_ = ecs.Add(w, e, component.AIBrainComponent, component.AIBrain{Helper: h})

	NewAISystem(nil).Update(w)
	tr, _ := ecs.Get(w, e, component.TransformComponent)
	assert.Equal(t, h.Transform(), tr)
	assert.Equal(t, ai.StateFindTarget, h.CurrentState())
}

func TestTowerDestroysVehicle(t *testing.T) {
	s := newTestSim(t, nil)
	tower := s.spawn(t, SpawnRequest{Prefab: "tower", Faction: "red"})
	vehicle := s.spawn(t, SpawnRequest{Faction: "blue", Position: r3.Vec{X: 20}, Health: 50})

	s.run(100)

	assert.False(t, s.world.IsAlive(vehicle))
	assert.Equal(t, map[string]int{"blue": 1}, s.combat.Losses())
	assert.Equal(t, 3, s.weapons.Fired(), "three 20-damage shots kill a 50-health vehicle")
	h := helperOf(t, s.world, tower)
	assert.Equal(t, ai.StateFindTarget, h.CurrentState())
	assert.Equal(t, ai.Handle(0), h.CurrentTarget())
}

func TestVehicleDrivesWithPhysics(t *testing.T) {
	s := newTestSim(t, nil)
	v := s.spawn(t, SpawnRequest{Faction: "blue", Velocity: r3.Vec{X: 2}})
	s.run(20)
	tr, _ := ecs.Get(s.world, v, component.TransformComponent)
	assert.InDelta(t, 2, tr.Position.X, 1e-6)
}
