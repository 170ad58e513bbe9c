package ai

import (
	"github.com/milk9111/enemyai/ai/fsm"
	"github.com/milk9111/enemyai/ai/steering"
	"go.uber.org/zap"
)

// Mothership patrols at altitude, holds a standoff over its target and
// answers each firing solution with a laser burst.
type Mothership struct {
	*Helper
}

type burstContext struct {
	remaining int
}

func NewMothership(logger *zap.Logger) *Mothership {
	m := &Mothership{Helper: NewHelper(KindMothership, logger)}
	m.initialState = StateFindTarget
	m.SetHooks(m)
	return m
}

func (m *Mothership) OnInit() {
	m.AddSteeringBehavior(&steering.FollowPath{
		Align:        m.align,
		ArriveRadius: m.def.ArriveRadius,
		SlowRadius:   m.def.SlowRadius,
	})
}

func (m *Mothership) RegisterStates() {
	m.Helper.RegisterStates()
	m.RegisterState(StateFindTarget, StateAttack, StateFireLaser)
	m.RegisterEvent(EventEnemyTargeted, EventTargetKilled, EventNoTargetFound, EventTookDamage, EventFire)
}

func (m *Mothership) SetupTransitions() {
	m.Helper.SetupTransitions()
	_ = m.AddTransition(EventEnemyTargeted, StateFindTarget, StateAttack)
	_ = m.AddTransition(EventFire, StateAttack, StateFireLaser)
	_ = m.AddTransition(EventDefault, StateFireLaser, StateAttack)
	for _, from := range []fsm.StateID{StateAttack, StateFireLaser} {
		_ = m.AddTransition(EventTargetKilled, from, StateFindTarget)
		_ = m.AddTransition(EventNoTargetFound, from, StateFindTarget)
	}
}

func (m *Mothership) SetupFunctors() {
	m.Helper.SetupFunctors()
	_ = m.fsm.SetUpdate(StateFindTarget, m.FindTarget)
	_ = m.fsm.SetUpdate(StateAttack, m.Attack)
	_ = m.fsm.SetEnter(StateFireLaser, m.startBurst)
	_ = m.fsm.SetUpdate(StateFireLaser, m.burst)
}

func (m *Mothership) startBurst() {
	_ = m.fsm.SetContext(StateFireLaser, &burstContext{remaining: m.attack.Burst})
}

// burst keeps tracking and fires on every solution until the burst is
// spent, then drops back to attack.
func (m *Mothership) burst(dt float64) {
	ctx, ok := fsm.ContextOf[*burstContext](m.fsm, StateFireLaser)
	if !ok || ctx.remaining <= 0 {
		m.HandleEvent(EventDefault)
		return
	}
	aim, ok := m.TrackTarget()
	if !ok {
		return
	}
	m.goal.Position = m.AttackPosition(aim)
	if m.AimTurret(aim, dt) {
		m.Fire(aim)
		ctx.remaining--
	}
}
