package ai

import "gonum.org/v1/gonum/spatial/r3"

// Transform is a position plus a unit forward direction.
type Transform struct {
	Position r3.Vec
	Forward  r3.Vec
}

// PhysicsBridge is the slice of the physics engine an AI helper drives. The
// engine stays authoritative; the helper only reads velocity and transform
// and, when it must, pushes the body back to a known-good transform.
type PhysicsBridge interface {
	LinearVelocity() r3.Vec
	Transform() Transform
	SetTransform(t Transform)
	ResetForces()
}

// Handle is a non-owning reference to an externally owned target. Zero is
// "no target".
type Handle uint64

// Targets resolves handles. Every dereference must be preceded by IsValid.
type Targets interface {
	IsValid(h Handle) bool
	TargetTransform(h Handle) (Transform, bool)
}

// TargetFinder proposes a target for a helper searching for one.
type TargetFinder interface {
	FindTarget(self Handle, from r3.Vec, maxRange float64) (Handle, bool)
}
