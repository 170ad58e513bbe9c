package steering

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

// Behavior computes a desired control from the current and goal states.
type Behavior interface {
	Think(dt float64, goal GoalState, current KinematicState) Control
}

// BehaviorFunc adapts a function to Behavior.
type BehaviorFunc func(dt float64, goal GoalState, current KinematicState) Control

func (f BehaviorFunc) Think(dt float64, goal GoalState, current KinematicState) Control {
	return f(dt, goal, current)
}

// PathAware behaviors accept a path computed by the owning helper.
type PathAware interface {
	SetPath(p *Path)
}

// Model runs its behaviors in registration order each step; a later behavior
// overwrites the axes it touches.
type Model struct {
	behaviors []Behavior
	logger    *zap.Logger
}

func NewModel(logger *zap.Logger) *Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Model{logger: logger}
}

// AddSteeringBehavior appends b; the model owns it from here on.
func (m *Model) AddSteeringBehavior(b Behavior) {
	if m == nil || b == nil {
		return
	}
	m.behaviors = append(m.behaviors, b)
}

// Init is a setup hook for models that need one. The base model has no
// state to prepare.
func (m *Model) Init() {}

// Step evaluates every behavior against goal and current and returns the
// blended control.
func (m *Model) Step(dt float64, goal GoalState, current KinematicState) Control {
	if m == nil {
		return Control{}
	}
	out := Control{}
	for _, b := range m.behaviors {
		c := b.Think(dt, goal, current)
		if math.IsNaN(c.Yaw) || math.IsNaN(c.Pitch) || math.IsNaN(c.Throttle) {
			m.logger.Error("steering behavior produced NaN control", zap.String("behavior", fmt.Sprintf("%T", b)))
			continue
		}
		out = out.Merge(c)
	}
	return out
}

// OutputControl hands path to path-aware behaviors, then steps them.
func (m *Model) OutputControl(path *Path, dt float64, goal GoalState, current KinematicState) Control {
	if m == nil {
		return Control{}
	}
	for _, b := range m.behaviors {
		if pa, ok := b.(PathAware); ok {
			pa.SetPath(path)
		}
	}
	return m.Step(dt, goal, current)
}
