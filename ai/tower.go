package ai

import (
	"github.com/milk9111/enemyai/ai/steering"
	"go.uber.org/zap"
)

// Tower is a stationary turret: it rotates its base toward the target and
// fires whenever the turret has a solution.
type Tower struct {
	*Helper
}

func NewTower(logger *zap.Logger) *Tower {
	t := &Tower{Helper: NewHelper(KindTower, logger)}
	t.initialState = StateFindTarget
	t.SetHooks(t)
	return t
}

func (t *Tower) OnInit() {
	t.AddSteeringBehavior(&steering.TowerAlign{Params: t.align})
}

func (t *Tower) RegisterStates() {
	t.Helper.RegisterStates()
	t.RegisterState(StateFindTarget, StateAttack)
	t.RegisterEvent(EventEnemyTargeted, EventTargetKilled, EventNoTargetFound, EventTookDamage, EventFire)
}

func (t *Tower) SetupTransitions() {
	t.Helper.SetupTransitions()
	_ = t.AddTransition(EventEnemyTargeted, StateFindTarget, StateAttack)
	_ = t.AddTransition(EventEnemyTargeted, StateAttack, StateAttack)
	_ = t.AddTransition(EventTargetKilled, StateAttack, StateFindTarget)
	_ = t.AddTransition(EventNoTargetFound, StateAttack, StateFindTarget)
}

func (t *Tower) SetupFunctors() {
	t.Helper.SetupFunctors()
	_ = t.fsm.SetUpdate(StateFindTarget, t.FindTarget)
	_ = t.fsm.SetUpdate(StateAttack, t.Attack)
}
