package ecs

import (
	"math"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/enemyai/common"
	"github.com/milk9111/enemyai/ecs/component"
	"go.uber.org/zap"
)

const (
	collisionTypeStatic cp.CollisionType = iota + 1
	collisionTypeUnit
)

// PhysicsConfig tunes the Chipmunk space.
type PhysicsConfig struct {
	Iterations int
	Damping    float64
}

// PhysicsWorld owns the Chipmunk space. The AI never reads the space
// directly; it sees bodies through component.PhysicsBody.
type PhysicsWorld struct {
	space  *cp.Space
	bodies map[Entity]*component.PhysicsBody
	shapes map[*cp.Shape]*component.PhysicsBody
	logger *zap.Logger
}

// NewPhysicsWorld creates a gravity-free ground-plane space.
func NewPhysicsWorld(cfg PhysicsConfig, logger *zap.Logger) *PhysicsWorld {
	if logger == nil {
		logger = zap.NewNop()
	}
	space := cp.NewSpace()
	if cfg.Iterations > 0 {
		space.Iterations = uint(cfg.Iterations)
	}
	if cfg.Damping > 0 {
		space.SetDamping(cfg.Damping)
	}
	space.SetGravity(cp.Vector{})
	pw := &PhysicsWorld{
		space:  space,
		bodies: make(map[Entity]*component.PhysicsBody),
		shapes: make(map[*cp.Shape]*component.PhysicsBody),
		logger: logger.Named("physics"),
	}
	pw.ensureHandlers()
	return pw
}

// ensureHandlers drops ground-plane contacts between bodies whose altitude
// bands do not overlap, so aircraft pass over ground units and towers.
func (pw *PhysicsWorld) ensureHandlers() {
	for _, other := range []cp.CollisionType{collisionTypeUnit, collisionTypeStatic} {
		handler := pw.space.NewCollisionHandler(collisionTypeUnit, other)
		handler.UserData = pw
		handler.PreSolveFunc = func(arb *cp.Arbiter, space *cp.Space, userData interface{}) bool {
			world, ok := userData.(*PhysicsWorld)
			if !ok || world == nil {
				return true
			}
			shapeA, shapeB := arb.Shapes()
			a, okA := world.shapes[shapeA]
			b, okB := world.shapes[shapeB]
			if !okA || !okB {
				return true
			}
			return math.Abs(a.Altitude-b.Altitude) < a.Radius+b.Radius
		}
	}
}

// Space returns the underlying Chipmunk space.
func (pw *PhysicsWorld) Space() *cp.Space {
	if pw == nil {
		return nil
	}
	return pw.space
}

// EnsureBody creates a circular body for e at t if it has none yet. Static
// bodies (towers) are kinematic: they collide but are never pushed.
func (pw *PhysicsWorld) EnsureBody(e Entity, t component.Transform, radius, mass float64, static bool) *component.PhysicsBody {
	if pw == nil || pw.space == nil || !e.Valid() {
		return nil
	}
	if pb, ok := pw.bodies[e]; ok {
		return pb
	}
	if radius <= 0 {
		radius = 0.5
	}
	if mass <= 0 {
		mass = 1
	}

	var body *cp.Body
	if static {
		body = cp.NewKinematicBody()
	} else {
		body = cp.NewBody(mass, math.Inf(1))
	}
	yaw, pitch := common.HeadingPitch(t.Forward)
	body.SetPosition(cp.Vector{X: t.Position.X, Y: t.Position.Y})
	body.SetAngle(yaw)

	shape := cp.NewCircle(body, radius, cp.Vector{})
	shape.SetFriction(0.5)
	if static {
		shape.SetCollisionType(collisionTypeStatic)
	} else {
		shape.SetCollisionType(collisionTypeUnit)
	}

	pw.space.AddBody(body)
	pw.space.AddShape(shape)

	pb := &component.PhysicsBody{
		Body:     body,
		Shape:    shape,
		Radius:   radius,
		Mass:     mass,
		Static:   static,
		Altitude: t.Position.Z,
		Pitch:    pitch,
	}
	pw.bodies[e] = pb
	pw.shapes[shape] = pb
	pw.logger.Debug("body created",
		zap.Stringer("entity", e),
		zap.Float64("radius", radius),
		zap.Bool("static", static))
	return pb
}

// Body returns e's body, if any.
func (pw *PhysicsWorld) Body(e Entity) (*component.PhysicsBody, bool) {
	if pw == nil {
		return nil, false
	}
	pb, ok := pw.bodies[e]
	return pb, ok
}

// RemoveBody detaches e's body from the space.
func (pw *PhysicsWorld) RemoveBody(e Entity) {
	if pw == nil {
		return
	}
	pb, ok := pw.bodies[e]
	if !ok {
		return
	}
	delete(pw.bodies, e)
	delete(pw.shapes, pb.Shape)
	if pb.Shape != nil && pw.space.ContainsShape(pb.Shape) {
		pw.space.RemoveShape(pb.Shape)
	}
	if pb.Body != nil && pw.space.ContainsBody(pb.Body) {
		pw.space.RemoveBody(pb.Body)
	}
}

// Step advances the space by dt and integrates altitude, which Chipmunk does
// not model.
func (pw *PhysicsWorld) Step(dt float64) {
	if pw == nil || pw.space == nil || dt <= 0 {
		return
	}
	pw.space.Step(dt)
	for _, pb := range pw.bodies {
		if pb.Static {
			continue
		}
		pb.Altitude += pb.VerticalVelocity * dt
		if pb.Altitude < 0 {
			pb.Altitude = 0
			pb.VerticalVelocity = 0
		}
	}
}

func (pw *PhysicsWorld) BodyCount() int {
	if pw == nil {
		return 0
	}
	return len(pw.bodies)
}
