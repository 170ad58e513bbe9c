package ai

import (
	"fmt"
	"sort"

	"github.com/milk9111/enemyai/ai/fsm"
	"github.com/milk9111/enemyai/ai/steering"
	"github.com/milk9111/enemyai/ai/turret"
	"github.com/milk9111/enemyai/common"
	"github.com/milk9111/enemyai/prefabs"
	"gonum.org/v1/gonum/spatial/r3"
)

// AttackParams tunes the target-tracking functors. Times are seconds,
// distances are world units.
type AttackParams struct {
	LeadTime      float64
	Standoff      float64
	Altitude      float64
	OffsetJitter  float64
	AcquireRange  float64
	DetonateRange float64
	Fuse          float64
	EvadeTime     float64
	Burst         int
}

// Definition is the behavior graph and tuning handed to Init. It is read-only
// once built and may be shared between helpers. States, Events and
// Transitions are layered on top of whatever the helper wires in code.
type Definition struct {
	Name    string
	Kind    string
	Initial fsm.StateID

	States      []fsm.StateID
	Events      []fsm.EventID
	Transitions []fsm.Transition
	// Strict rejects duplicate (event, from) transitions instead of letting
	// the later registration win.
	Strict bool

	// Angular limits are radians and radians per second.
	MaxVelocity        float64
	MaxAngularVelocity float64
	MaxPitch           float64

	Align        steering.AlignParams
	ArriveRadius float64
	SlowRadius   float64

	Turret *turret.Config
	Attack AttackParams
	Patrol []r3.Vec
	Script string
	Seed   uint64
}

// CompileDefinition converts a validated prefab into a Definition, moving
// angles from degrees to radians.
func CompileDefinition(spec prefabs.BehaviorSpec) (*Definition, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("ai: compile %q: %w", spec.Name, err)
	}

	def := &Definition{
		Name:               spec.Name,
		Kind:               spec.Kind,
		Initial:            fsm.StateID(spec.Initial),
		MaxVelocity:        spec.Kinematics.MaxVelocity,
		MaxAngularVelocity: common.Deg2Rad(spec.Kinematics.MaxAngularVelocity),
		MaxPitch:           common.Deg2Rad(spec.Kinematics.MaxPitch),
		Align:              steering.DefaultAlignParams(),
		ArriveRadius:       spec.Steering.ArriveRadius,
		SlowRadius:         spec.Steering.SlowRadius,
		Attack: AttackParams{
			LeadTime:      spec.Attack.LeadTime,
			Standoff:      spec.Attack.Standoff,
			Altitude:      spec.Attack.Altitude,
			OffsetJitter:  spec.Attack.OffsetJitter,
			AcquireRange:  spec.Attack.AcquireRange,
			DetonateRange: spec.Attack.DetonateRange,
			Fuse:          spec.Attack.Fuse,
			EvadeTime:     spec.Attack.EvadeTime,
			Burst:         spec.Attack.Burst,
		},
		Script: spec.Script,
	}
	if spec.Steering.TimeToTarget > 0 {
		def.Align.TimeToTarget = spec.Steering.TimeToTarget
	}
	if spec.Steering.MinClampTime > 0 {
		def.Align.MinClampTime = spec.Steering.MinClampTime
	}

	for _, s := range spec.States {
		def.States = append(def.States, fsm.StateID(s))
	}
	for _, e := range spec.Events {
		def.Events = append(def.Events, fsm.EventID(e))
	}
	for _, from := range sortedKeys(spec.Transitions) {
		edges := spec.Transitions[from]
		for _, ev := range sortedKeys(edges) {
			def.Transitions = append(def.Transitions, fsm.Transition{
				Event: fsm.EventID(ev),
				From:  fsm.StateID(from),
				To:    fsm.StateID(edges[ev]),
			})
		}
	}

	if t := spec.Turret; t != nil {
		def.Turret = &turret.Config{
			MaxRate:   common.Deg2Rad(t.MaxRate),
			Tolerance: common.Deg2Rad(t.Tolerance),
			MinPitch:  common.Deg2Rad(t.MinPitch),
			MaxPitch:  common.Deg2Rad(t.MaxPitch),
			Trigger:   turret.ParseTriggerMode(t.Trigger),
		}
	}

	for _, p := range spec.Patrol {
		def.Patrol = append(def.Patrol, r3.Vec{X: p[0], Y: p[1], Z: p[2]})
	}

	return def, nil
}

// LoadDefinition reads and compiles the named behavior prefab.
func LoadDefinition(l prefabs.Loader, name string) (*Definition, error) {
	spec, err := prefabs.LoadBehaviorSpec(l, name)
	if err != nil {
		return nil, err
	}
	return CompileDefinition(spec)
}

// DefaultDefinition returns the built-in tuning for kind. Helpers fall back
// to it when Init is called without a definition.
func DefaultDefinition(kind string) *Definition {
	def := &Definition{
		Name:               kind,
		Kind:               kind,
		MaxAngularVelocity: common.Deg2Rad(90),
		MaxPitch:           common.Deg2Rad(20),
		Align:              steering.DefaultAlignParams(),
		ArriveRadius:       1,
		Attack:             AttackParams{AcquireRange: 50},
	}

	switch kind {
	case KindTower:
		cfg := turret.DefaultConfig()
		def.MaxPitch = 0
		def.MaxAngularVelocity = common.Deg2Rad(45)
		def.Turret = &cfg
		def.Attack.AcquireRange = 60
	case KindHelix:
		cfg := turret.DefaultConfig()
		cfg.Trigger = turret.TriggerEdge
		cfg.MinPitch = common.Deg2Rad(-60)
		cfg.MaxPitch = common.Deg2Rad(30)
		def.Turret = &cfg
		def.MaxVelocity = 12
		def.ArriveRadius = 2
		def.SlowRadius = 6
		def.Attack = AttackParams{LeadTime: 0.3, Standoff: 15, Altitude: 10, OffsetJitter: 4, AcquireRange: 80, EvadeTime: 1.5}
	case KindMine:
		def.MaxVelocity = 6
		def.MaxAngularVelocity = common.Deg2Rad(180)
		def.MaxPitch = common.Deg2Rad(45)
		def.ArriveRadius = 0.5
		def.Attack = AttackParams{AcquireRange: 30, DetonateRange: 2, Fuse: 0.3}
	case KindMothership:
		cfg := turret.DefaultConfig()
		cfg.MaxRate = common.Deg2Rad(60)
		cfg.MinPitch = common.Deg2Rad(-80)
		cfg.MaxPitch = common.Deg2Rad(10)
		def.Turret = &cfg
		def.MaxVelocity = 4
		def.MaxAngularVelocity = common.Deg2Rad(20)
		def.MaxPitch = common.Deg2Rad(5)
		def.ArriveRadius = 4
		def.SlowRadius = 12
		def.Attack = AttackParams{LeadTime: 0.5, Standoff: 30, Altitude: 25, AcquireRange: 120, Burst: 3}
	}
	return def
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
