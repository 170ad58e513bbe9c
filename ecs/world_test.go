package ecs

import (
	"testing"

	"github.com/milk9111/enemyai/common"
	"github.com/milk9111/enemyai/ecs/component"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestWorldEntityLifecycle(t *testing.T) {
	cases := []struct {
		name         string
		create       int
		destroyIndex int // -1 = none
	}{
		{"single", 1, 0},
		{"three_create_destroy_middle", 3, 1},
		{"none_destroy", 2, -1},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := NewWorld(0.1)
			ents := make([]Entity, 0, c.create)
			for i := 0; i < c.create; i++ {
				ents = append(ents, w.CreateEntity())
			}
			require.Len(t, w.Entities(), c.create)
			if c.destroyIndex >= 0 {
				require.True(t, w.DestroyEntity(ents[c.destroyIndex]))
				assert.False(t, w.IsAlive(ents[c.destroyIndex]))
				assert.False(t, w.DestroyEntity(ents[c.destroyIndex]), "double destroy")
				assert.Len(t, w.Entities(), c.create-1)
			}
		})
	}
}

func TestWorldStaleHandleAfterSlotReuse(t *testing.T) {
	w := NewWorld(0.1)
	health := component.NewComponent[component.Health]()

	old := w.CreateEntity()
	require.NoError(t, Add(w, old, health, component.Health{Current: 10}))
	require.True(t, w.DestroyEntity(old))

	reused := w.CreateEntity()
	assert.Equal(t, old.id(), reused.id(), "slot is recycled")
	assert.NotEqual(t, old, reused)
	assert.False(t, w.IsAlive(old))
	assert.True(t, w.IsAlive(reused))

	_, ok := Get(w, old, health)
	assert.False(t, ok)
	_, ok = Get(w, reused, health)
	assert.False(t, ok, "components do not leak into the reused slot")

	require.NoError(t, Add(w, reused, health, component.Health{Current: 3}))
	h, ok := Get(w, reused, health)
	require.True(t, ok)
	assert.Equal(t, 3.0, h.Current)
	assert.ErrorIs(t, Add(w, old, health, component.Health{}), component.ErrEntityNotAlive)
}

func TestWorldComponentsAndQueries(t *testing.T) {
	w := NewWorld(0.1)
	hi := component.NewComponent[int]()
	hs := component.NewComponent[string]()

	e1 := w.CreateEntity()
	e2 := w.CreateEntity()
	e3 := w.CreateEntity()

	tests := []struct {
		name     string
		setup    func() error
		check    func(t *testing.T)
		teardown func() bool
	}{
		{
			name:  "add_int_to_e1",
			setup: func() error { return Add(w, e1, hi, 10) },
			check: func(t *testing.T) {
				v, ok := Get(w, e1, hi)
				require.True(t, ok)
				assert.Equal(t, 10, v)
			},
			teardown: func() bool { return Remove(w, e1, hi) },
		},
		{
			name: "query_intersection",
			setup: func() error {
				for _, e := range []Entity{e1, e2, e3} {
					if err := Add(w, e, hi, 1); err != nil {
						return err
					}
				}
				if err := Add(w, e3, hs, "c"); err != nil {
					return err
				}
				return Add(w, e1, hs, "a")
			},
			check: func(t *testing.T) {
				assert.Equal(t, []Entity{e1, e3}, w.Query(hi.ID(), hs.ID()))
				first, ok := w.First(hs.ID())
				require.True(t, ok)
				assert.Equal(t, e1, first)
				assert.ElementsMatch(t, []Entity{e1, e3}, IntersectEntities(w.components[hi.ID()], w.components[hs.ID()]))
			},
			teardown: func() bool { return Remove(w, e1, hs) && Remove(w, e3, hs) },
		},
		{
			name:  "nil_component_rejected",
			setup: func() error { return nil },
			check: func(t *testing.T) {
				assert.ErrorIs(t, w.AddComponent(e2, hs.ID(), nil), component.ErrNilComponent)
				assert.ErrorIs(t, w.AddComponent(e2, 0, "x"), component.ErrInvalidComponentKind)
			},
			teardown: func() bool { return true },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, tc.setup())
			tc.check(t)
			assert.True(t, tc.teardown())
		})
	}
	assert.Empty(t, w.Query(hs.ID()))
}

func TestEventQueueDrainByType(t *testing.T) {
	w := NewWorld(0.5)
	q := w.Events()
	q.Push(Event{Type: EventDamage, Data: DamageEvent{Amount: 1}})
	q.Push(Event{Type: EventShot})
	q.Push(Event{Type: EventDamage, Data: DamageEvent{Amount: 2}})

	dmg := q.Drain(EventDamage)
	require.Len(t, dmg, 2)
	assert.Equal(t, 2.0, dmg[1].Data.(DamageEvent).Amount)
	assert.Equal(t, 1, q.Len())

	NewScheduler().Update(w)
	assert.Zero(t, q.Len(), "queue flushed at end of tick")
	assert.Equal(t, 0.5, w.Time())
	assert.Equal(t, uint64(1), w.Tick())
}

func TestPhysicsWorldBodies(t *testing.T) {
	w := NewWorld(0.1)
	pw := NewPhysicsWorld(PhysicsConfig{Iterations: 5, Damping: 1}, nil)
	w.SetPhysicsWorld(pw)

	e := w.CreateEntity()
	start := component.Transform{Position: r3.Vec{X: 1, Y: 2, Z: 3}, Forward: common.Forward(0.5, 0.1)}
	pb := pw.EnsureBody(e, start, 0.5, 2, false)
	require.NotNil(t, pb)
	assert.Same(t, pb, pw.EnsureBody(e, start, 1, 1, false))

	got := pb.Transform()
	assert.InDelta(t, 1, got.Position.X, 1e-9)
	assert.InDelta(t, 3, got.Position.Z, 1e-9)
	yaw, pitch := common.HeadingPitch(got.Forward)
	assert.InDelta(t, 0.5, yaw, 1e-9)
	assert.InDelta(t, 0.1, pitch, 1e-9)

	pb.SetVelocity(r3.Vec{X: 2, Z: 1})
	for i := 0; i < 10; i++ {
		pw.Step(0.1)
	}
	after := pb.Transform()
	assert.InDelta(t, 3, after.Position.X, 1e-6)
	assert.InDelta(t, 4, after.Position.Z, 1e-6)

	pb.ResetForces()
	assert.Equal(t, r3.Vec{}, pb.LinearVelocity())

	require.True(t, w.DestroyEntity(e))
	_, ok := pw.Body(e)
	assert.False(t, ok)
	assert.Zero(t, pw.BodyCount())
}

func TestPhysicsWorldAltitudeBandsFilterContacts(t *testing.T) {
	cases := []struct {
		name     string
		altitude float64
		blocked  bool
	}{
		{"same_band_collides", 0, true},
		{"overflight_passes", 20, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := NewWorld(0.05)
			pw := NewPhysicsWorld(PhysicsConfig{Iterations: 10}, nil)
			w.SetPhysicsWorld(pw)

			mover := pw.EnsureBody(w.CreateEntity(), component.Transform{Position: r3.Vec{Z: c.altitude}, Forward: common.UnitX}, 1, 1, false)
			_ = pw.EnsureBody(w.CreateEntity(), component.Transform{Position: r3.Vec{X: 3}, Forward: common.UnitX}, 1, 1, false)

			mover.SetVelocity(r3.Vec{X: 10})
			for i := 0; i < 20; i++ {
				pw.Step(0.05)
			}
			x := mover.Transform().Position.X
			if c.blocked {
				assert.Less(t, x, 9.5)
			} else {
				assert.InDelta(t, 10, x, 1e-6)
			}
		})
	}
}
