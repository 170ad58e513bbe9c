package prefabs

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// BehaviorSpec is the YAML form of an enemy behavior: the state graph plus
// tuning for kinematics, steering, turret and attack logic.
type BehaviorSpec struct {
	Name        string                       `yaml:"name"`
	Kind        string                       `yaml:"kind"`
	Initial     string                       `yaml:"initial"`
	States      []string                     `yaml:"states"`
	Events      []string                     `yaml:"events"`
	Transitions map[string]map[string]string `yaml:"transitions"`
	Kinematics  KinematicsSpec               `yaml:"kinematics"`
	Steering    SteeringSpec                 `yaml:"steering"`
	Turret      *TurretSpec                  `yaml:"turret"`
	Attack      AttackSpec                   `yaml:"attack"`
	Body        BodySpec                     `yaml:"body"`
	Weapon      WeaponSpec                   `yaml:"weapon"`
	Patrol      [][3]float64                 `yaml:"patrol"`
	Script      string                       `yaml:"script"`
}

// KinematicsSpec angles are in degrees.
type KinematicsSpec struct {
	MaxVelocity        float64 `yaml:"max_velocity"`
	MaxAngularVelocity float64 `yaml:"max_angular_velocity"`
	MaxPitch           float64 `yaml:"max_pitch"`
}

type SteeringSpec struct {
	TimeToTarget float64 `yaml:"time_to_target"`
	MinClampTime float64 `yaml:"min_clamp_time"`
	ArriveRadius float64 `yaml:"arrive_radius"`
	SlowRadius   float64 `yaml:"slow_radius"`
}

// TurretSpec angles are in degrees.
type TurretSpec struct {
	MaxRate   float64 `yaml:"max_rate"`
	Tolerance float64 `yaml:"tolerance"`
	MinPitch  float64 `yaml:"min_pitch"`
	MaxPitch  float64 `yaml:"max_pitch"`
	Trigger   string  `yaml:"trigger"`
}

type AttackSpec struct {
	LeadTime      float64 `yaml:"lead_time"`
	Standoff      float64 `yaml:"standoff"`
	Altitude      float64 `yaml:"altitude"`
	OffsetJitter  float64 `yaml:"offset_jitter"`
	AcquireRange  float64 `yaml:"acquire_range"`
	DetonateRange float64 `yaml:"detonate_range"`
	Fuse          float64 `yaml:"fuse"`
	EvadeTime     float64 `yaml:"evade_time"`
	Burst         int     `yaml:"burst"`
}

type BodySpec struct {
	Radius float64 `yaml:"radius"`
	Mass   float64 `yaml:"mass"`
	Static bool    `yaml:"static"`
	Health float64 `yaml:"health"`
}

type WeaponSpec struct {
	Kind     string  `yaml:"kind"`
	Damage   float64 `yaml:"damage"`
	Cooldown float64 `yaml:"cooldown"`
	Radius   float64 `yaml:"radius"`
}

// BuiltinStates and BuiltinEvents exist on every helper, so prefabs may
// reference them without declaring them.
var (
	BuiltinStates = []string{"spawn", "idle", "die"}
	BuiltinEvents = []string{"killed", "default"}
)

func LoadSpec[T any](filename string) (T, error) {
	return LoadSpecFrom[T](DefaultLoader, filename)
}

func LoadSpecFrom[T any](l Loader, filename string) (T, error) {
	var zero T
	data, err := l.Load(filename)
	if err != nil {
		return zero, fmt.Errorf("prefabs: load %s: %w", filename, err)
	}

	var spec T
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("prefabs: unmarshal %s: %w", filename, err)
	}

	return spec, nil
}

func LoadBehaviorSpec(l Loader, name string) (BehaviorSpec, error) {
	spec, err := LoadSpecFrom[BehaviorSpec](l, name)
	if err != nil {
		return BehaviorSpec{}, err
	}
	if err := spec.Validate(); err != nil {
		return BehaviorSpec{}, fmt.Errorf("prefabs: %s: %w", name, err)
	}
	return spec, nil
}

// Validate checks the graph is closed: every transition names declared (or
// builtin) states and events, and the initial state is known.
func (s BehaviorSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("missing name")
	}
	if s.Kind == "" {
		return fmt.Errorf("missing kind")
	}
	states := make(map[string]bool, len(s.States)+len(BuiltinStates))
	for _, st := range append(append([]string(nil), BuiltinStates...), s.States...) {
		states[st] = true
	}
	events := make(map[string]bool, len(s.Events)+len(BuiltinEvents))
	for _, ev := range append(append([]string(nil), BuiltinEvents...), s.Events...) {
		events[ev] = true
	}
	if s.Kind == "scripted" && s.Script == "" {
		return fmt.Errorf("scripted prefab needs a script")
	}
	if s.Initial != "" && !states[s.Initial] {
		return fmt.Errorf("initial state %q not declared", s.Initial)
	}
	for _, from := range sortedKeys(s.Transitions) {
		if !states[from] {
			return fmt.Errorf("transition from undeclared state %q", from)
		}
		for _, ev := range sortedKeys(s.Transitions[from]) {
			to := s.Transitions[from][ev]
			if !events[ev] {
				return fmt.Errorf("transition %s.%s uses undeclared event", from, ev)
			}
			if !states[to] {
				return fmt.Errorf("transition %s.%s targets undeclared state %q", from, ev, to)
			}
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
