package component

import (
	"github.com/jakecoffman/cp"
	"github.com/milk9111/enemyai/ai"
	"github.com/milk9111/enemyai/common"
	"gonum.org/v1/gonum/spatial/r3"
)

// PhysicsBody stores Chipmunk runtime data. Chipmunk simulates the ground
// plane (X/Y); altitude and pitch ride alongside on the component. It is
// stored by pointer and satisfies ai.PhysicsBridge.
type PhysicsBody struct {
	Body   *cp.Body
	Shape  *cp.Shape
	Radius float64
	Mass   float64
	Static bool

	Altitude         float64
	VerticalVelocity float64
	Pitch            float64
}

var PhysicsBodyComponent = NewComponent[*PhysicsBody]()

var _ ai.PhysicsBridge = (*PhysicsBody)(nil)

func (p *PhysicsBody) LinearVelocity() r3.Vec {
	if p == nil || p.Body == nil {
		return r3.Vec{}
	}
	v := p.Body.Velocity()
	return r3.Vec{X: v.X, Y: v.Y, Z: p.VerticalVelocity}
}

func (p *PhysicsBody) Transform() ai.Transform {
	if p == nil || p.Body == nil {
		return ai.Transform{Forward: common.UnitX}
	}
	pos := p.Body.Position()
	return ai.Transform{
		Position: r3.Vec{X: pos.X, Y: pos.Y, Z: p.Altitude},
		Forward:  common.Forward(p.Body.Angle(), p.Pitch),
	}
}

func (p *PhysicsBody) SetTransform(t ai.Transform) {
	if p == nil || p.Body == nil {
		return
	}
	yaw, pitch := common.HeadingPitch(t.Forward)
	p.Body.SetPosition(cp.Vector{X: t.Position.X, Y: t.Position.Y})
	p.Body.SetAngle(yaw)
	p.Altitude = t.Position.Z
	p.Pitch = pitch
}

// SetForward turns the body in place.
func (p *PhysicsBody) SetForward(f r3.Vec) {
	if p == nil || p.Body == nil {
		return
	}
	yaw, pitch := common.HeadingPitch(f)
	p.Body.SetAngle(yaw)
	p.Pitch = pitch
}

// SetVelocity drives the body so the next physics step carries it along v.
func (p *PhysicsBody) SetVelocity(v r3.Vec) {
	if p == nil || p.Body == nil || p.Static {
		return
	}
	p.Body.SetVelocity(v.X, v.Y)
	p.VerticalVelocity = v.Z
}

func (p *PhysicsBody) ResetForces() {
	if p == nil || p.Body == nil {
		return
	}
	p.Body.SetForce(cp.Vector{})
	p.Body.SetTorque(0)
	p.Body.SetAngularVelocity(0)
	if !p.Static {
		p.Body.SetVelocity(0, 0)
	}
	p.VerticalVelocity = 0
}
