package script

import (
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/milk9111/enemyai/ai/fsm"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

func (s *Scripted) buildEngine() *tengo.ImmutableMap {
	values := map[string]tengo.Object{}

	values["emit"] = &tengo.UserFunction{Name: "emit", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 1 {
			return tengo.FalseValue, nil
		}
		name := strings.TrimSpace(objectAsString(args[0]))
		if name == "" {
			return tengo.FalseValue, nil
		}
		return boolObject(s.HandleEvent(fsm.EventID(name))), nil
	}}

	values["state"] = &tengo.UserFunction{Name: "state", Value: func(args ...tengo.Object) (tengo.Object, error) {
		return &tengo.String{Value: string(s.CurrentState())}, nil
	}}

	values["position"] = &tengo.UserFunction{Name: "position", Value: func(args ...tengo.Object) (tengo.Object, error) {
		return vecObject(s.Kinematic().Position), nil
	}}

	values["has_target"] = &tengo.UserFunction{Name: "has_target", Value: func(args ...tengo.Object) (tengo.Object, error) {
		_, ok := s.PeekTarget()
		return boolObject(ok), nil
	}}

	values["target_position"] = &tengo.UserFunction{Name: "target_position", Value: func(args ...tengo.Object) (tengo.Object, error) {
		t, ok := s.PeekTarget()
		if !ok {
			return tengo.UndefinedValue, nil
		}
		return vecObject(t.Position), nil
	}}

	values["push_target"] = &tengo.UserFunction{Name: "push_target", Value: func(args ...tengo.Object) (tengo.Object, error) {
		p, ok := vecArgs(args)
		if !ok {
			return tengo.FalseValue, nil
		}
		s.lastAim = p
		s.hasAim = true
		if t := s.Turret(); t != nil {
			t.SetOrigin(s.Kinematic().Position)
			t.Targeter().Push(p, s.SimTime())
		}
		return tengo.TrueValue, nil
	}}

	values["step_turret"] = &tengo.UserFunction{Name: "step_turret", Value: func(args ...tengo.Object) (tengo.Object, error) {
		s.Turret().StepTurret(s.Timestep())
		return tengo.UndefinedValue, nil
	}}

	values["trigger"] = &tengo.UserFunction{Name: "trigger", Value: func(args ...tengo.Object) (tengo.Object, error) {
		return boolObject(s.TriggerState()), nil
	}}

	values["set_goal"] = &tengo.UserFunction{Name: "set_goal", Value: func(args ...tengo.Object) (tengo.Object, error) {
		p, ok := vecArgs(args)
		if !ok {
			return tengo.FalseValue, nil
		}
		s.SetGoalPosition(p)
		return tengo.TrueValue, nil
	}}

	values["fire"] = &tengo.UserFunction{Name: "fire", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if !s.hasAim {
			return tengo.FalseValue, nil
		}
		s.Fire(s.lastAim)
		return tengo.TrueValue, nil
	}}

	values["dt"] = &tengo.UserFunction{Name: "dt", Value: func(args ...tengo.Object) (tengo.Object, error) {
		return &tengo.Float{Value: s.Timestep()}, nil
	}}

	values["altitude"] = &tengo.UserFunction{Name: "altitude", Value: func(args ...tengo.Object) (tengo.Object, error) {
		return &tengo.Float{Value: s.AttackParams().Altitude}, nil
	}}

	values["log"] = &tengo.UserFunction{Name: "log", Value: func(args ...tengo.Object) (tengo.Object, error) {
		parts := make([]string, 0, len(args))
		for _, a := range args {
			parts = append(parts, objectAsString(a))
		}
		s.Logger().Info(strings.Join(parts, " "), zap.String("source", "script"))
		return tengo.UndefinedValue, nil
	}}

	return &tengo.ImmutableMap{Value: values}
}

func boolObject(v bool) tengo.Object {
	if v {
		return tengo.TrueValue
	}
	return tengo.FalseValue
}

func vecObject(v r3.Vec) *tengo.Array {
	return &tengo.Array{Value: []tengo.Object{
		&tengo.Float{Value: v.X},
		&tengo.Float{Value: v.Y},
		&tengo.Float{Value: v.Z},
	}}
}

// vecArgs accepts x, y, z or a single three-element array.
func vecArgs(args []tengo.Object) (r3.Vec, bool) {
	if len(args) == 1 {
		if arr, ok := args[0].(*tengo.Array); ok {
			args = arr.Value
		}
	}
	if len(args) < 3 {
		return r3.Vec{}, false
	}
	var out [3]float64
	for i := 0; i < 3; i++ {
		f, ok := tengo.ToFloat64(args[i])
		if !ok {
			return r3.Vec{}, false
		}
		out[i] = f
	}
	return r3.Vec{X: out[0], Y: out[1], Z: out[2]}, true
}

func objectAsString(obj tengo.Object) string {
	if obj == nil {
		return ""
	}
	switch v := obj.(type) {
	case *tengo.String:
		return v.Value
	default:
		return strings.Trim(v.String(), "\"")
	}
}
