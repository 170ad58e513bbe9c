package ai

import (
	"github.com/milk9111/enemyai/ai/fsm"
	"github.com/milk9111/enemyai/ai/steering"
	"github.com/milk9111/enemyai/common"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// Helix is an attack helicopter. It patrols while searching, hovers at a
// jittered standoff point while attacking and breaks away for a while after
// taking damage.
type Helix struct {
	*Helper
}

type evadeContext struct {
	remaining float64
}

func NewHelix(logger *zap.Logger) *Helix {
	h := &Helix{Helper: NewHelper(KindHelix, logger)}
	h.initialState = StateFindTarget
	h.SetHooks(h)
	return h
}

// OnInit picks this helicopter's offset from the shared attack point so a
// group does not stack on one spot.
func (h *Helix) OnInit() {
	j := h.attack.OffsetJitter
	h.offset = r3.Vec{
		X: (h.rng.Float64()*2 - 1) * j,
		Y: (h.rng.Float64()*2 - 1) * j,
	}

	h.AddSteeringBehavior(&steering.FollowPath{
		Align:        h.align,
		ArriveRadius: h.def.ArriveRadius,
		SlowRadius:   h.def.SlowRadius,
	})
	face := &steering.Align{Params: h.align}
	h.AddSteeringBehavior(steering.BehaviorFunc(func(dt float64, goal steering.GoalState, current steering.KinematicState) steering.Control {
		// face the target once on station
		if h.CurrentState() != StateAttack || common.Distance(goal.Position, current.Position) > h.def.SlowRadius {
			return steering.Control{}
		}
		return face.Think(dt, goal, current)
	}))
}

func (h *Helix) RegisterStates() {
	h.Helper.RegisterStates()
	h.RegisterState(StateFindTarget, StateAttack, StateEvade)
	h.RegisterEvent(EventEnemyTargeted, EventTargetKilled, EventNoTargetFound, EventTookDamage, EventEvadeComplete, EventFire)
}

func (h *Helix) SetupTransitions() {
	h.Helper.SetupTransitions()
	_ = h.AddTransition(EventEnemyTargeted, StateFindTarget, StateAttack)
	_ = h.AddTransition(EventTargetKilled, StateAttack, StateFindTarget)
	_ = h.AddTransition(EventNoTargetFound, StateAttack, StateFindTarget)
	_ = h.AddTransition(EventEvadeComplete, StateEvade, StateAttack)
	_ = h.AddTransition(EventTargetKilled, StateEvade, StateFindTarget)
	_ = h.AddTransition(EventNoTargetFound, StateEvade, StateFindTarget)
	for _, from := range []fsm.StateID{StateFindTarget, StateAttack} {
		_ = h.AddTransition(EventTookDamage, from, StateEvade)
	}
}

func (h *Helix) SetupFunctors() {
	h.Helper.SetupFunctors()
	_ = h.fsm.SetUpdate(StateFindTarget, h.FindTarget)
	_ = h.fsm.SetUpdate(StateAttack, h.Attack)
	_ = h.fsm.SetEnter(StateEvade, h.enterEvade)
	_ = h.fsm.SetUpdate(StateEvade, h.evade)
}

// enterEvade picks a break-away point to one side of the current heading.
func (h *Helix) enterEvade() {
	side := r3.Vec{X: -h.kin.Forward.Y, Y: h.kin.Forward.X}
	side = common.SafeUnit(side, r3.Vec{Y: 1})
	if h.rng.IntN(2) == 0 {
		side = r3.Scale(-1, side)
	}
	dist := h.attack.Standoff
	if dist <= 0 {
		dist = 10
	}
	goal := r3.Add(h.kin.Position, r3.Scale(dist, side))
	goal.Z = h.kin.Position.Z + h.attack.Altitude/2
	h.goal.Position = goal
	_ = h.fsm.SetContext(StateEvade, &evadeContext{remaining: h.attack.EvadeTime})
}

func (h *Helix) evade(dt float64) {
	ctx, ok := fsm.ContextOf[*evadeContext](h.fsm, StateEvade)
	if !ok {
		h.HandleEvent(EventEvadeComplete)
		return
	}
	ctx.remaining -= dt
	if ctx.remaining <= 0 {
		h.HandleEvent(EventEvadeComplete)
	}
}
