package system

import (
	"github.com/milk9111/enemyai/ecs"
	"github.com/milk9111/enemyai/ecs/component"
)

// PhysicsSystem drives scripted movers, steps the world's physics space and
// copies the resulting bodies back into the transforms.
type PhysicsSystem struct{}

func NewPhysicsSystem() *PhysicsSystem { return &PhysicsSystem{} }

func (ps *PhysicsSystem) Update(w *ecs.World) {
	pw := w.PhysicsWorld()
	if pw == nil {
		return
	}

	for _, e := range w.Query(component.MotionComponent.ID(), component.PhysicsBodyComponent.ID()) {
		motion, _ := ecs.Get(w, e, component.MotionComponent)
		body, _ := ecs.Get(w, e, component.PhysicsBodyComponent)
		body.SetVelocity(motion.Velocity)
	}

	pw.Step(w.DT())
	ps.syncTransforms(w)
}

func (ps *PhysicsSystem) syncTransforms(w *ecs.World) {
	for _, e := range w.Query(component.PhysicsBodyComponent.ID(), component.TransformComponent.ID()) {
		body, _ := ecs.Get(w, e, component.PhysicsBodyComponent)
		if body == nil {
			continue
		}
		_ = ecs.Add(w, e, component.TransformComponent, body.Transform())
	}
}
