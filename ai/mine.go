package ai

import (
	"github.com/milk9111/enemyai/ai/fsm"
	"github.com/milk9111/enemyai/ai/steering"
	"github.com/milk9111/enemyai/common"
	"go.uber.org/zap"
)

// Mine is a seeker with no turret. It chases its target and, once inside
// DetonateRange, arms a fuse and blows itself up.
type Mine struct {
	*Helper
}

type fuseContext struct {
	remaining float64
	fired     bool
}

func NewMine(logger *zap.Logger) *Mine {
	m := &Mine{Helper: NewHelper(KindMine, logger)}
	m.initialState = StateFindTarget
	m.SetHooks(m)
	return m
}

func (m *Mine) OnInit() {
	m.AddSteeringBehavior(&steering.Seek{
		Align:        m.align,
		ArriveRadius: m.def.ArriveRadius,
		SlowRadius:   m.def.SlowRadius,
	})
}

func (m *Mine) RegisterStates() {
	m.Helper.RegisterStates()
	m.RegisterState(StateFindTarget, StateAttack, StateDetonate)
	m.RegisterEvent(EventEnemyTargeted, EventTargetKilled, EventNoTargetFound, EventDetonate, EventFire)
}

func (m *Mine) SetupTransitions() {
	m.Helper.SetupTransitions()
	_ = m.AddTransition(EventEnemyTargeted, StateFindTarget, StateAttack)
	_ = m.AddTransition(EventTargetKilled, StateAttack, StateFindTarget)
	_ = m.AddTransition(EventNoTargetFound, StateAttack, StateFindTarget)
	_ = m.AddTransition(EventDetonate, StateAttack, StateDetonate)
}

func (m *Mine) SetupFunctors() {
	m.Helper.SetupFunctors()
	_ = m.fsm.SetUpdate(StateFindTarget, m.search)
	_ = m.fsm.SetUpdate(StateAttack, m.chase)
	_ = m.fsm.SetEnter(StateDetonate, m.arm)
	_ = m.fsm.SetUpdate(StateDetonate, m.fuse)
}

func (m *Mine) search(dt float64) {
	m.goal.Position = m.kin.Position
	m.FindTarget(dt)
}

func (m *Mine) chase(float64) {
	t, ok := m.ResolveTarget()
	if !ok {
		m.goal.Position = m.kin.Position
		return
	}
	m.goal.Position = t.Position
	if common.Distance(t.Position, m.kin.Position) <= m.attack.DetonateRange {
		m.HandleEvent(EventDetonate)
	}
}

func (m *Mine) arm() {
	m.goal.Position = m.kin.Position
	_ = m.fsm.SetContext(StateDetonate, &fuseContext{remaining: m.attack.Fuse})
}

func (m *Mine) fuse(dt float64) {
	ctx, ok := fsm.ContextOf[*fuseContext](m.fsm, StateDetonate)
	if !ok || ctx.fired {
		return
	}
	ctx.remaining -= dt
	if ctx.remaining > 0 {
		return
	}
	ctx.fired = true
	m.fire(FireRequest{Aim: m.kin.Position, SelfDestruct: true})
	m.HandleEvent(EventKilled)
}
