// Package script drives a helper's states from a tengo script. The script
// defines onEnter, update and onExit, each called with the engine bindings,
// a persistent state map and the current state name.
package script

import (
	"fmt"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/milk9111/enemyai/ai"
	"github.com/milk9111/enemyai/ai/fsm"
	"github.com/milk9111/enemyai/prefabs"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

const lifecycleDispatchScript = `
if __phase == "enter" {
	onEnter(__engine, __state, __current_state)
} else if __phase == "update" {
	update(__engine, __state, __current_state)
} else if __phase == "exit" {
	onExit(__engine, __state, __current_state)
}
`

// maxDeferredPhases bounds the enter/exit phases queued by transitions a
// script triggers from inside its own phase.
const maxDeferredPhases = 16

type phaseCall struct {
	phase string
	state fsm.StateID
}

// Scripted is a helper whose non-base states run script phases.
type Scripted struct {
	*ai.Helper

	compiled  *tengo.Compiled
	stateData *tengo.Map
	engine    *tengo.ImmutableMap
	initial   fsm.StateID
	running   bool
	deferred  []phaseCall
	lastAim   r3.Vec
	hasAim    bool
}

// Load builds a scripted helper, reading def.Script through l.
func Load(l prefabs.Loader, def *ai.Definition, logger *zap.Logger) (*Scripted, error) {
	if def == nil || strings.TrimSpace(def.Script) == "" {
		return nil, fmt.Errorf("script: definition has no script")
	}
	src, err := l.LoadScript(def.Script)
	if err != nil {
		return nil, fmt.Errorf("script: load %s: %w", def.Script, err)
	}
	return NewScripted(def, src, logger)
}

// NewScripted compiles src and initializes the helper with def.
func NewScripted(def *ai.Definition, src []byte, logger *zap.Logger) (*Scripted, error) {
	s := &Scripted{
		Helper:    ai.NewHelper(ai.KindScripted, logger),
		stateData: &tengo.Map{Value: map[string]tengo.Object{}},
	}
	s.SetHooks(s)

	if err := s.compile(src); err != nil {
		return nil, err
	}
	if err := s.Init(def); err != nil {
		return nil, err
	}
	if s.initial != "" {
		s.SetInitialState(s.initial)
	}
	return s, nil
}

func (s *Scripted) compile(src []byte) error {
	full := string(src) + "\n" + lifecycleDispatchScript
	script := tengo.NewScript([]byte(full))
	_ = script.Add("__phase", "")
	_ = script.Add("__engine", map[string]any{})
	_ = script.Add("__state", map[string]any{})
	_ = script.Add("__current_state", "")
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := script.Compile()
	if err != nil {
		return fmt.Errorf("script: compile: %w", err)
	}
	s.compiled = compiled
	s.engine = s.buildEngine()

	// A no-op run resolves the optional initial_state global.
	if err := s.runPhase("noop", ""); err != nil {
		return fmt.Errorf("script: init run: %w", err)
	}
	if compiled.IsDefined("initial_state") {
		if name := strings.TrimSpace(compiled.Get("initial_state").String()); name != "" {
			s.initial = fsm.StateID(name)
		}
	}
	return nil
}

// SetupFunctors binds every declared state except spawn and die to the
// script lifecycle.
func (s *Scripted) SetupFunctors() {
	s.Helper.SetupFunctors()
	m := s.Machine()
	for _, id := range s.DeclaredStates() {
		if id == ai.StateSpawn || id == ai.StateDie {
			continue
		}
		state := id
		_ = m.SetEnter(state, func() { s.phase("enter", state) })
		_ = m.SetExit(state, func() { s.phase("exit", state) })
		_ = m.SetUpdate(state, func(dt float64) { s.update(state, dt) })
	}
}

func (s *Scripted) update(state fsm.StateID, dt float64) {
	if state == ai.StateFindTarget {
		s.FindTarget(dt)
		if s.CurrentState() != state {
			return
		}
	}
	s.phase("update", state)
}

// phase runs a lifecycle phase, queueing it when a script phase is already
// on the stack.
func (s *Scripted) phase(name string, state fsm.StateID) {
	if s.running {
		s.deferred = append(s.deferred, phaseCall{phase: name, state: state})
		return
	}
	s.run(name, state)
	for i := 0; len(s.deferred) > 0; i++ {
		if i >= maxDeferredPhases {
			s.Logger().Error("script transition loop, dropping phases", zap.Int("dropped", len(s.deferred)))
			s.deferred = s.deferred[:0]
			return
		}
		next := s.deferred[0]
		s.deferred = s.deferred[1:]
		s.run(next.phase, next.state)
	}
}

func (s *Scripted) run(name string, state fsm.StateID) {
	s.running = true
	defer func() { s.running = false }()
	if err := s.runPhase(name, state); err != nil {
		s.Logger().Error("script phase failed",
			zap.String("phase", name), zap.String("state", string(state)), zap.Error(err))
	}
}

func (s *Scripted) runPhase(phase string, current fsm.StateID) error {
	if s.compiled == nil {
		return fmt.Errorf("nil script runtime")
	}
	if err := s.compiled.Set("__phase", phase); err != nil {
		return err
	}
	if err := s.compiled.Set("__engine", s.engine); err != nil {
		return err
	}
	if err := s.compiled.Set("__state", s.stateData); err != nil {
		return err
	}
	if err := s.compiled.Set("__current_state", string(current)); err != nil {
		return err
	}
	return s.compiled.Run()
}

// StateData exposes the script's persistent state map.
func (s *Scripted) StateData() map[string]any {
	out := make(map[string]any, len(s.stateData.Value))
	for k, v := range s.stateData.Value {
		out[k] = tengo.ToInterface(v)
	}
	return out
}
