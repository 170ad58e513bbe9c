package script

import (
	"testing"

	"github.com/milk9111/enemyai/ai"
	"github.com/milk9111/enemyai/ai/fsm"
	"github.com/milk9111/enemyai/common"
	"github.com/milk9111/enemyai/prefabs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/spatial/r3"
)

type targetTable map[ai.Handle]r3.Vec

func (t targetTable) IsValid(h ai.Handle) bool {
	_, ok := t[h]
	return ok
}

func (t targetTable) TargetTransform(h ai.Handle) (ai.Transform, bool) {
	p, ok := t[h]
	return ai.Transform{Position: p, Forward: common.UnitX}, ok
}

func TestScriptedDroneAttacksAndGivesUp(t *testing.T) {
	def, err := ai.LoadDefinition(prefabs.Loader{}, "scripted_drone")
	require.NoError(t, err)

	core, logs := observer.New(zap.InfoLevel)
	s, err := Load(prefabs.Loader{}, def, zap.New(core))
	require.NoError(t, err)

	targets := targetTable{1: {Y: 10}}
	s.SetTargets(targets)
	var fired []ai.FireRequest
	s.OnFire(func(r ai.FireRequest) { fired = append(fired, r) })

	s.SetTransform(ai.Transform{Forward: common.UnitX})
	s.Spawn()
	s.Update(0.1)
	require.Equal(t, ai.StateFindTarget, s.CurrentState())

	s.SetCurrentTarget(1)
	require.Equal(t, ai.StateAttack, s.CurrentState())

	for i := 0; i < 30; i++ {
		s.Update(0.1)
	}
	require.NotEmpty(t, fired)
	assert.Equal(t, int64(len(fired)), s.StateData()["shots"])
	assert.Greater(t, s.Goal().Position.Z, 0.0, "drone hovers above the target")

	delete(targets, 1)
	s.Update(0.1)
	assert.Equal(t, ai.StateFindTarget, s.CurrentState())
	assert.Equal(t, 1, logs.FilterMessageSnippet("attack finished after").Len())
	assert.Zero(t, logs.FilterMessage("script phase failed").Len())
}

func TestScriptInitialStateOverridesDefinition(t *testing.T) {
	src := []byte(`
initial_state := "b"
onEnter := func(engine, state, current) {}
update := func(engine, state, current) { state.ticks = 1 }
onExit := func(engine, state, current) {}
`)
	def := &ai.Definition{
		Name:    "probe",
		Kind:    ai.KindScripted,
		Initial: "a",
		States:  []fsm.StateID{"a", "b"},
	}
	s, err := NewScripted(def, src, nil)
	require.NoError(t, err)

	s.Spawn()
	s.Update(0.1)
	assert.Equal(t, fsm.StateID("b"), s.CurrentState())
	s.Update(0.1)
	assert.Equal(t, int64(1), s.StateData()["ticks"])
}

func TestScriptTransitionLoopIsBounded(t *testing.T) {
	src := []byte(`
initial_state := "a"
onEnter := func(engine, state, current) { engine.emit("go") }
update := func(engine, state, current) {}
onExit := func(engine, state, current) {}
`)
	def := &ai.Definition{
		Name:   "pingpong",
		Kind:   ai.KindScripted,
		States: []fsm.StateID{"a", "b"},
		Events: []fsm.EventID{"go"},
		Transitions: []fsm.Transition{
			{Event: "go", From: "a", To: "b"},
			{Event: "go", From: "b", To: "a"},
		},
	}
	core, logs := observer.New(zap.ErrorLevel)
	s, err := NewScripted(def, src, zap.New(core))
	require.NoError(t, err)

	s.Spawn()
	assert.NotPanics(t, func() { s.Update(0.1) })
	assert.Equal(t, 1, logs.FilterMessage("script transition loop, dropping phases").Len())
}

func TestScriptErrors(t *testing.T) {
	_, err := NewScripted(nil, []byte("update := func("), nil)
	assert.Error(t, err)

	_, err = Load(prefabs.Loader{}, &ai.Definition{Name: "x"}, nil)
	assert.Error(t, err)

	_, err = Load(prefabs.Loader{}, &ai.Definition{Name: "x", Script: "missing.tengo"}, nil)
	assert.ErrorIs(t, err, prefabs.ErrUnknownPrefab)
}

func TestScriptRuntimeErrorIsLogged(t *testing.T) {
	src := []byte(`
onEnter := func(engine, state, current) {}
update := func(engine, state, current) { x := state.missing + 1 }
onExit := func(engine, state, current) {}
`)
	def := &ai.Definition{Name: "broken", Kind: ai.KindScripted, Initial: ai.StateFindTarget, States: []fsm.StateID{ai.StateFindTarget}}
	core, logs := observer.New(zap.ErrorLevel)
	s, err := NewScripted(def, src, zap.New(core))
	require.NoError(t, err)

	s.Spawn()
	s.Update(0.1)
	s.Update(0.1)
	assert.Equal(t, ai.StateFindTarget, s.CurrentState())
	assert.Equal(t, 1, logs.FilterMessage("script phase failed").Len())
}
