package component

import "github.com/milk9111/enemyai/ai"

// Transform is an entity's authoritative world transform as seen by the rest
// of the simulation.
type Transform = ai.Transform

var TransformComponent = NewComponent[Transform]()
