package ai

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/google/uuid"
	"github.com/milk9111/enemyai/ai/fsm"
	"github.com/milk9111/enemyai/ai/steering"
	"github.com/milk9111/enemyai/ai/turret"
	"github.com/milk9111/enemyai/common"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	ErrNotInitialized     = errors.New("ai: helper not initialized")
	ErrAlreadyInitialized = errors.New("ai: helper already initialized")
	ErrUnknownKind        = errors.New("ai: unknown helper kind")
)

// positionEpsilon absorbs float noise when comparing a step against its
// travel budget.
const positionEpsilon = 1e-9

// Hooks are the extension points of a helper. Helper implements every one
// of them; a concrete helper embeds *Helper, shadows the hooks it needs and
// registers itself with SetHooks.
type Hooks interface {
	// OnInit runs last in Init, after the graph and steering model exist.
	OnInit()
	// RegisterStates declares state and event ids.
	RegisterStates()
	// CreateStates adds the declared states to the machine.
	CreateStates()
	SetupTransitions()
	SetupFunctors()
	// SelectState is the spawn state's update functor. It picks the entry
	// state.
	SelectState(dt float64)
	FindPath()
	OutputControl(dt float64)
	UpdateState(dt float64)
}

// FireRequest is raised when a helper decides to shoot.
type FireRequest struct {
	Shooter      Handle
	Target       Handle
	Origin       r3.Vec
	Aim          r3.Vec
	Angle        turret.Angle
	SelfDestruct bool
}

// Helper drives one AI entity: a state machine picks what to do, a steering
// model turns that into control, and the integrator advances a kinematic
// state that is reconciled with the physics engine every tick.
//
// A tick is PreSync, Update, PostSync in that order. Helper is not safe for
// concurrent use.
type Helper struct {
	id     string
	kind   string
	logger *zap.Logger
	hooks  Hooks

	def          *Definition
	attack       AttackParams
	align        steering.AlignParams
	fsm          *fsm.Machine
	declared     []fsm.StateID
	initialState fsm.StateID
	initialized  bool

	model    *steering.Model
	kin      steering.KinematicState
	goal     steering.GoalState
	control  steering.Control
	path     *steering.Path
	patrol   *steering.Path
	targeter *steering.Targeter
	turret   *turret.Controller
	offset   r3.Vec

	bridge  PhysicsBridge
	targets Targets
	finder  TargetFinder
	self    Handle
	target  Handle
	onFire  func(FireRequest)

	synced    r3.Vec
	maxTickDT float64
	timestep  float64
	simTime   float64
	shots     int
	rng       *rand.Rand
}

// NewHelper returns a bare helper of the given kind. It has only the base
// states until Init runs.
func NewHelper(kind string, logger *zap.Logger) *Helper {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()
	h := &Helper{
		id:           id,
		kind:         kind,
		logger:       logger.Named("ai").With(zap.String("helper", id), zap.String("kind", kind)),
		initialState: StateIdle,
		kin:          steering.NewKinematicState(),
		targeter:     steering.NewTargeter(0),
		maxTickDT:    common.MaxTickDT,
	}
	h.goal = h.kin
	h.hooks = h
	return h
}

// SetHooks routes the extension points to hooks. Call it before Init.
func (h *Helper) SetHooks(hooks Hooks) {
	if h == nil || hooks == nil {
		return
	}
	h.hooks = hooks
}

// Init builds the behavior graph and steering model. def may be nil, in
// which case the built-in tuning for the helper's kind is used. A helper is
// initialized once; a second call is rejected.
func (h *Helper) Init(def *Definition) error {
	if h == nil {
		return ErrNotInitialized
	}
	if h.initialized {
		h.logger.Error("helper initialized twice")
		return ErrAlreadyInitialized
	}
	if def == nil {
		def = DefaultDefinition(h.kind)
	}
	h.def = def
	h.attack = def.Attack
	h.align = def.Align
	if h.align.TimeToTarget <= 0 {
		h.align = steering.DefaultAlignParams()
	}
	if def.Initial != "" {
		h.initialState = def.Initial
	}

	h.fsm = fsm.New(h.logger)
	h.fsm.SetStrict(def.Strict)

	h.hooks.RegisterStates()
	h.hooks.CreateStates()
	h.hooks.SetupTransitions()
	for _, tr := range def.Transitions {
		if err := h.AddTransition(tr.Event, tr.From, tr.To); err != nil {
			h.logger.Error("definition transition rejected", zap.Error(err))
		}
	}
	h.hooks.SetupFunctors()

	h.model = steering.NewModel(h.logger)
	h.model.Init()

	h.kin.MaxVelocity = def.MaxVelocity
	h.kin.MaxAngularVelocity = def.MaxAngularVelocity
	h.kin.MaxPitch = def.MaxPitch
	h.kin.Validate()
	h.goal = h.kin

	if def.Turret != nil {
		h.turret = turret.New(*def.Turret)
	}
	if len(def.Patrol) > 0 {
		h.patrol = steering.NewPath(true, def.Patrol...)
	}
	h.rng = rand.New(rand.NewPCG(def.Seed, def.Seed^0x9e3779b97f4a7c15))

	h.initialized = true
	h.hooks.OnInit()
	h.logger.Debug("helper initialized",
		zap.String("definition", def.Name),
		zap.Int("states", len(h.fsm.States())),
		zap.Int("transitions", len(h.fsm.Transitions())))
	return nil
}

func (h *Helper) OnInit() {}

// RegisterStates declares the base states and events plus whatever the
// definition lists.
func (h *Helper) RegisterStates() {
	h.RegisterState(StateSpawn, StateIdle, StateDie)
	h.RegisterEvent(EventKilled, EventDefault)
	if h.def != nil {
		h.RegisterState(h.def.States...)
		h.RegisterEvent(h.def.Events...)
	}
}

// RegisterState declares state ids for CreateStates. Repeats are ignored.
func (h *Helper) RegisterState(ids ...fsm.StateID) {
	for _, id := range ids {
		if id == "" || slices.Contains(h.declared, id) {
			continue
		}
		h.declared = append(h.declared, id)
	}
}

func (h *Helper) RegisterEvent(ids ...fsm.EventID) {
	for _, id := range ids {
		h.fsm.AddEvent(id)
	}
}

// DeclaredStates lists the declared states in declaration order.
func (h *Helper) DeclaredStates() []fsm.StateID {
	if h == nil {
		return nil
	}
	return append([]fsm.StateID(nil), h.declared...)
}

func (h *Helper) CreateStates() {
	for _, id := range h.declared {
		if h.fsm.HasState(id) {
			continue
		}
		if _, err := h.fsm.AddState(id); err != nil {
			h.logger.Error("create state", zap.Error(err))
		}
	}
}

// SetupTransitions sends every state but die to die on killed.
func (h *Helper) SetupTransitions() {
	for _, id := range h.declared {
		if id == StateDie {
			continue
		}
		_ = h.AddTransition(EventKilled, id, StateDie)
	}
}

func (h *Helper) SetupFunctors() {
	_ = h.fsm.SetUpdate(StateSpawn, h.hooks.SelectState)
	_ = h.fsm.SetEnter(StateDie, h.onDie)
}

// SelectState moves out of spawn into the entry state, falling back to idle
// when the entry state was never registered.
func (h *Helper) SelectState(float64) {
	if err := h.fsm.MakeCurrent(h.initialState); err != nil {
		h.logger.Error("entry state unavailable, idling", zap.Error(err))
		_ = h.fsm.MakeCurrent(StateIdle)
	}
}

// FindPath follows the patrol route while searching for a target and steers
// straight at the goal otherwise.
func (h *Helper) FindPath() {
	if h.patrol != nil && h.fsm.CurrentID() == StateFindTarget {
		h.path = h.patrol
		return
	}
	h.path = nil
}

func (h *Helper) OutputControl(dt float64) {
	if h.fsm.CurrentID() == StateDie {
		h.control = steering.Control{}
		return
	}
	h.control = h.model.OutputControl(h.path, dt, h.goal, h.kin)
}

func (h *Helper) UpdateState(dt float64) {
	if h.fsm.CurrentID() == StateDie {
		h.kin.Velocity = r3.Vec{}
		return
	}
	steering.Integrate(&h.kin, h.control, dt)
}

// Spawn puts the helper in its spawn state. The entry state is chosen on the
// first Update.
func (h *Helper) Spawn() {
	if !h.ready("spawn") {
		return
	}
	h.target = 0
	h.targeter.Clear()
	if h.turret != nil {
		h.turret.Reset()
		h.turret.SetOrigin(h.kin.Position)
		h.turret.SetCurrentAngle(turret.Angle{Yaw: h.kin.Yaw()})
	}
	_ = h.fsm.MakeCurrent(StateSpawn)
}

// PreSync pulls the authoritative transform and velocity into the kinematic
// state. It is skipped until physics is attached.
func (h *Helper) PreSync(t Transform) {
	if h == nil || h.bridge == nil {
		return
	}
	h.kin.Position = t.Position
	h.kin.Forward = common.SafeUnit(t.Forward, h.kin.Forward)
	h.kin.Velocity = h.bridge.LinearVelocity()
	h.synced = t.Position
}

// Update advances the machine, steering and integrator by dt, clamped to the
// maximum tick.
func (h *Helper) Update(dt float64) {
	if h == nil {
		return
	}
	if !h.initialized {
		h.logger.Error("update before init", zap.Error(ErrNotInitialized))
		return
	}
	dt = common.Clamp(dt, 0, h.maxTickDT)
	h.timestep = dt
	h.simTime += dt

	h.fsm.Update(dt)
	h.hooks.FindPath()
	h.hooks.OutputControl(dt)
	h.hooks.UpdateState(dt)
}

// PostSync writes the integrated orientation into out, and the integrated
// position when it is within one step of max velocity from the last synced
// position. A longer step holds out at the synced position and pushes the
// physics body back there.
func (h *Helper) PostSync(out *Transform) {
	if h == nil || out == nil || h.bridge == nil {
		return
	}
	out.Forward = h.kin.Forward

	budget := h.kin.MaxVelocity*h.timestep + positionEpsilon
	moved := common.Distance(h.kin.Position, h.synced)
	if moved <= budget {
		out.Position = h.kin.Position
		return
	}

	h.logger.Warn("step exceeds travel budget, holding position",
		zap.Float64("moved", moved), zap.Float64("budget", budget))
	out.Position = h.synced
	h.bridge.SetTransform(Transform{Position: h.synced, Forward: h.kin.Forward})
	h.bridge.ResetForces()
}

// Transform returns the kinematic position and facing.
func (h *Helper) Transform() Transform {
	if h == nil {
		return Transform{}
	}
	return Transform{Position: h.kin.Position, Forward: h.kin.Forward}
}

// SetTransform places the helper directly, bypassing the sync boundary.
func (h *Helper) SetTransform(t Transform) {
	if h == nil {
		return
	}
	h.kin.Position = t.Position
	h.kin.Forward = common.SafeUnit(t.Forward, h.kin.Forward)
	h.synced = t.Position
	h.goal.Position = t.Position
	h.goal.Forward = h.kin.Forward
	if h.turret != nil {
		h.turret.SetOrigin(t.Position)
	}
}

func (h *Helper) AddTransition(ev fsm.EventID, from, to fsm.StateID) error {
	if h == nil || h.fsm == nil {
		return ErrNotInitialized
	}
	return h.fsm.AddTransition(ev, from, to)
}

// HandleEvent feeds ev to the machine and reports whether it moved.
func (h *Helper) HandleEvent(ev fsm.EventID) bool {
	if h == nil || h.fsm == nil {
		return false
	}
	from := h.fsm.CurrentID()
	if !h.fsm.HandleEvent(ev) {
		return false
	}
	h.logger.Debug("transition",
		zap.String("event", string(ev)),
		zap.String("from", string(from)),
		zap.String("to", string(h.fsm.CurrentID())))
	return true
}

// SetCurrentTarget replaces the tracked target. A new target raises
// enemy_targeted; clearing it raises no_target_found.
func (h *Helper) SetCurrentTarget(target Handle) {
	if !h.ready("set target") || target == h.target {
		return
	}
	h.target = target
	h.targeter.Clear()
	if h.turret != nil {
		h.turret.Reset()
	}
	if target == 0 {
		h.HandleEvent(EventNoTargetFound)
		return
	}
	h.HandleEvent(EventEnemyTargeted)
}

func (h *Helper) CurrentTarget() Handle {
	if h == nil {
		return 0
	}
	return h.target
}

// ResolveTarget checks the target reference before it is used. A missing
// target raises no_target_found; an invalid one is dropped and raises
// target_killed.
func (h *Helper) ResolveTarget() (Transform, bool) {
	if h == nil {
		return Transform{}, false
	}
	if h.target == 0 {
		h.HandleEvent(EventNoTargetFound)
		return Transform{}, false
	}
	if h.targets == nil || !h.targets.IsValid(h.target) {
		h.dropTarget()
		return Transform{}, false
	}
	t, ok := h.targets.TargetTransform(h.target)
	if !ok {
		h.dropTarget()
		return Transform{}, false
	}
	return t, true
}

// PeekTarget resolves the target without raising events.
func (h *Helper) PeekTarget() (Transform, bool) {
	if h == nil || h.target == 0 || h.targets == nil || !h.targets.IsValid(h.target) {
		return Transform{}, false
	}
	return h.targets.TargetTransform(h.target)
}

func (h *Helper) dropTarget() {
	h.logger.Debug("target lost", zap.Uint64("target", uint64(h.target)))
	h.target = 0
	h.targeter.Clear()
	if h.turret != nil {
		h.turret.Reset()
	}
	h.HandleEvent(EventTargetKilled)
}

// FindTarget is the find_target functor: ask the finder for something in
// range and lock onto it. A target assigned before this state was entered
// is re-announced, since its enemy_targeted had nowhere to go.
func (h *Helper) FindTarget(float64) {
	if h.finder == nil {
		return
	}
	t, ok := h.finder.FindTarget(h.self, h.kin.Position, h.attack.AcquireRange)
	if !ok {
		return
	}
	if t == h.target {
		h.HandleEvent(EventEnemyTargeted)
		return
	}
	h.SetCurrentTarget(t)
}

// Attack is the shared attack functor: track the target, lead it, steer to
// the attack position, slew the turret and fire when it has a solution.
func (h *Helper) Attack(dt float64) {
	aim, ok := h.TrackTarget()
	if !ok {
		return
	}
	h.goal.Position = h.AttackPosition(aim)
	h.goal.Forward = common.SafeUnit(r3.Sub(aim, h.kin.Position), h.kin.Forward)
	if h.AimTurret(aim, dt) {
		h.Fire(aim)
	}
}

// TrackTarget records the target's position and returns the lead point.
func (h *Helper) TrackTarget() (r3.Vec, bool) {
	t, ok := h.ResolveTarget()
	if !ok {
		return r3.Vec{}, false
	}
	h.targeter.Push(t.Position, h.simTime)
	aim, _ := h.targeter.Predict(h.attack.LeadTime)
	return aim, true
}

// AimTurret pushes aim to the turret, steps it and reports the trigger.
// Helpers without a turret never fire through it.
func (h *Helper) AimTurret(aim r3.Vec, dt float64) bool {
	if h.turret == nil {
		return false
	}
	h.turret.SetOrigin(h.kin.Position)
	h.turret.Targeter().Push(aim, h.simTime)
	h.turret.StepTurret(dt)
	return h.turret.Trigger()
}

// AttackPosition is where the helper holds while attacking aim: Standoff
// away on the ground plane, Altitude above it, shifted by the helper's
// offset.
func (h *Helper) AttackPosition(aim r3.Vec) r3.Vec {
	if h.attack.Standoff <= 0 && h.attack.Altitude == 0 && h.offset == (r3.Vec{}) {
		return aim
	}
	away := r3.Sub(h.kin.Position, aim)
	away.Z = 0
	dir := common.SafeUnit(away, common.UnitX)
	p := r3.Add(aim, r3.Scale(h.attack.Standoff, dir))
	p = r3.Add(p, h.offset)
	p.Z = aim.Z + h.attack.Altitude
	return p
}

// Fire raises a fire request at aim and the fire event.
func (h *Helper) Fire(aim r3.Vec) {
	h.fire(FireRequest{Aim: aim})
}

func (h *Helper) fire(req FireRequest) {
	req.Shooter = h.self
	if req.Target == 0 {
		req.Target = h.target
	}
	req.Origin = h.kin.Position
	req.Angle = h.WeaponAngle()
	h.shots++
	if h.onFire != nil {
		h.onFire(req)
	}
	h.HandleEvent(EventFire)
}

func (h *Helper) onDie() {
	h.control = steering.Control{}
	h.kin.Velocity = r3.Vec{}
	h.target = 0
	h.targeter.Clear()
	if h.turret != nil {
		h.turret.Reset()
	}
	h.logger.Info("helper died", zap.Int("shots", h.shots), zap.Float64("time", h.simTime))
}

func (h *Helper) ready(op string) bool {
	if h == nil {
		return false
	}
	if !h.initialized {
		h.logger.Error(fmt.Sprintf("%s before init", op), zap.Error(ErrNotInitialized))
		return false
	}
	return true
}

// WeaponAngle is the turret orientation, zero for helpers without one.
func (h *Helper) WeaponAngle() turret.Angle {
	if h == nil {
		return turret.Angle{}
	}
	return h.turret.CurrentAngle()
}

func (h *Helper) SetWeaponAngle(a turret.Angle) {
	if h == nil {
		return
	}
	h.turret.SetCurrentAngle(a)
}

// TriggerState reports whether the turret has a firing solution this tick.
func (h *Helper) TriggerState() bool {
	return h != nil && h.turret.Trigger()
}

// AttachPhysics connects the physics bridge. Until then PreSync and PostSync
// do nothing.
func (h *Helper) AttachPhysics(b PhysicsBridge) {
	if h == nil {
		return
	}
	h.bridge = b
	if b != nil {
		h.synced = b.Transform().Position
	}
}

func (h *Helper) SetTargets(t Targets) {
	if h == nil {
		return
	}
	h.targets = t
}

func (h *Helper) SetTargetFinder(f TargetFinder) {
	if h == nil {
		return
	}
	h.finder = f
}

// SetSelf records the handle the helper's owner is known by.
func (h *Helper) SetSelf(self Handle) {
	if h == nil {
		return
	}
	h.self = self
}

func (h *Helper) Self() Handle {
	if h == nil {
		return 0
	}
	return h.self
}

// OnFire installs the callback that receives fire requests.
func (h *Helper) OnFire(fn func(FireRequest)) {
	if h == nil {
		return
	}
	h.onFire = fn
}

// SetMaxTickDT overrides the Update clamp. Non-positive values are ignored.
func (h *Helper) SetMaxTickDT(dt float64) {
	if h == nil || dt <= 0 {
		return
	}
	h.maxTickDT = dt
}

// SetInitialState overrides the state SelectState enters.
func (h *Helper) SetInitialState(id fsm.StateID) {
	if h == nil || id == "" {
		return
	}
	h.initialState = id
}

// SetGoalPosition points the steering goal at p.
func (h *Helper) SetGoalPosition(p r3.Vec) {
	if h == nil {
		return
	}
	h.goal.Position = p
}

func (h *Helper) AddSteeringBehavior(b steering.Behavior) {
	if h == nil {
		return
	}
	h.model.AddSteeringBehavior(b)
}

func (h *Helper) ID() string {
	if h == nil {
		return ""
	}
	return h.id
}

func (h *Helper) Kind() string {
	if h == nil {
		return ""
	}
	return h.kind
}

func (h *Helper) CurrentState() fsm.StateID {
	if h == nil {
		return ""
	}
	return h.fsm.CurrentID()
}

func (h *Helper) Machine() *fsm.Machine {
	if h == nil {
		return nil
	}
	return h.fsm
}

func (h *Helper) Definition() *Definition {
	if h == nil {
		return nil
	}
	return h.def
}

func (h *Helper) Kinematic() steering.KinematicState {
	if h == nil {
		return steering.KinematicState{}
	}
	return h.kin
}

func (h *Helper) Goal() steering.GoalState {
	if h == nil {
		return steering.GoalState{}
	}
	return h.goal
}

func (h *Helper) Control() steering.Control {
	if h == nil {
		return steering.Control{}
	}
	return h.control
}

func (h *Helper) Path() *steering.Path {
	if h == nil {
		return nil
	}
	return h.path
}

func (h *Helper) Turret() *turret.Controller {
	if h == nil {
		return nil
	}
	return h.turret
}

func (h *Helper) AttackParams() AttackParams {
	if h == nil {
		return AttackParams{}
	}
	return h.attack
}

func (h *Helper) AlignParams() steering.AlignParams {
	if h == nil {
		return steering.AlignParams{}
	}
	return h.align
}

func (h *Helper) SimTime() float64 {
	if h == nil {
		return 0
	}
	return h.simTime
}

func (h *Helper) Timestep() float64 {
	if h == nil {
		return 0
	}
	return h.timestep
}

func (h *Helper) Shots() int {
	if h == nil {
		return 0
	}
	return h.shots
}

func (h *Helper) Logger() *zap.Logger {
	if h == nil {
		return zap.NewNop()
	}
	return h.logger
}

func (h *Helper) Initialized() bool {
	return h != nil && h.initialized
}
