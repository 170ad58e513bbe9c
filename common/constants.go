package common

import "gonum.org/v1/gonum/spatial/r3"

const (
	// MaxTickDT bounds a single AI step so frame hitches do not destabilise
	// steering or the physics reconciliation.
	MaxTickDT = 0.1
)

// UnitX is the default facing for freshly constructed kinematic state.
var UnitX = r3.Vec{X: 1}
