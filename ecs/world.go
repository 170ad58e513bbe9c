package ecs

import (
	"fmt"

	"github.com/milk9111/enemyai/ecs/component"
)

// World owns entities, their components, the physics space and the
// simulation clock.
type World struct {
	entities   entityStore
	components map[component.ComponentID]*SparseSet
	events     EventQueue

	dt   float64
	time float64
	tick uint64

	physicsWorld *PhysicsWorld
}

// NewWorld creates an empty world stepped at a fixed dt seconds per tick.
func NewWorld(dt float64) *World {
	return &World{
		components: map[component.ComponentID]*SparseSet{},
		dt:         dt,
	}
}

// CreateEntity allocates a new entity.
func (w *World) CreateEntity() Entity {
	return w.entities.create()
}

// DestroyEntity releases e and all of its components. Outstanding handles to
// e stop resolving.
func (w *World) DestroyEntity(e Entity) bool {
	if w == nil || !w.entities.isAlive(e) {
		return false
	}
	for _, set := range w.components {
		set.Remove(e)
	}
	if w.physicsWorld != nil {
		w.physicsWorld.RemoveBody(e)
	}
	return w.entities.destroy(e)
}

// IsAlive reports whether an entity handle still resolves.
func (w *World) IsAlive(e Entity) bool {
	if w == nil {
		return false
	}
	return w.entities.isAlive(e)
}

// Entities returns every live entity.
func (w *World) Entities() []Entity {
	if w == nil {
		return nil
	}
	out := make([]Entity, 0, w.entities.count)
	w.entities.each(func(e Entity) { out = append(out, e) })
	return out
}

func (w *World) AddComponent(e Entity, id component.ComponentID, v any) error {
	if w == nil || !w.entities.isAlive(e) {
		return fmt.Errorf("%w: %s", component.ErrEntityNotAlive, e)
	}
	if id == 0 {
		return component.ErrInvalidComponentKind
	}
	if v == nil {
		return component.ErrNilComponent
	}
	set, ok := w.components[id]
	if !ok {
		set = &SparseSet{}
		w.components[id] = set
	}
	set.Set(e, v)
	return nil
}

func (w *World) GetComponent(e Entity, id component.ComponentID) (any, bool) {
	if w == nil || !w.entities.isAlive(e) {
		return nil, false
	}
	set, ok := w.components[id]
	if !ok || !set.Has(e) {
		return nil, false
	}
	return set.Get(e), true
}

func (w *World) RemoveComponent(e Entity, id component.ComponentID) bool {
	if w == nil {
		return false
	}
	set, ok := w.components[id]
	if !ok {
		return false
	}
	return set.Remove(e)
}

func (w *World) HasComponent(e Entity, id component.ComponentID) bool {
	_, ok := w.GetComponent(e, id)
	return ok
}

// Events returns the world event queue.
func (w *World) Events() *EventQueue {
	if w == nil {
		return nil
	}
	return &w.events
}

// DT is the fixed tick length in seconds.
func (w *World) DT() float64 {
	if w == nil {
		return 0
	}
	return w.dt
}

// Time is the simulated time at the start of the current tick.
func (w *World) Time() float64 {
	if w == nil {
		return 0
	}
	return w.time
}

func (w *World) Tick() uint64 {
	if w == nil {
		return 0
	}
	return w.tick
}

func (w *World) advance() {
	w.time += w.dt
	w.tick++
	w.events.flush()
}

// SetPhysicsWorld attaches a physics world to this ECS world.
func (w *World) SetPhysicsWorld(pw *PhysicsWorld) {
	if w == nil {
		return
	}
	w.physicsWorld = pw
}

// PhysicsWorld returns the attached physics world, if any.
func (w *World) PhysicsWorld() *PhysicsWorld {
	if w == nil {
		return nil
	}
	return w.physicsWorld
}
