package component

import "gonum.org/v1/gonum/spatial/r3"

// Motion is a constant drive velocity for entities without an AI, such as
// the vehicles the enemies hunt.
type Motion struct {
	Velocity r3.Vec
}

var MotionComponent = NewComponent[Motion]()
