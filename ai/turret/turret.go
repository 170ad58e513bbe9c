package turret

import (
	"math"

	"github.com/milk9111/enemyai/ai/steering"
	"github.com/milk9111/enemyai/common"
	"gonum.org/v1/gonum/spatial/r3"
)

// TriggerMode selects how the fire-ready flag behaves once aimed.
type TriggerMode int

const (
	// TriggerLevel keeps the trigger set for as long as the turret is aimed.
	TriggerLevel TriggerMode = iota
	// TriggerEdge sets the trigger only on the tick the turret converges.
	TriggerEdge
)

func ParseTriggerMode(s string) TriggerMode {
	if s == "edge" {
		return TriggerEdge
	}
	return TriggerLevel
}

// Angle is a two-axis turret orientation in radians.
type Angle struct {
	Yaw   float64
	Pitch float64
}

type Config struct {
	// MaxRate is the per-axis slew rate in radians per second.
	MaxRate float64
	// Tolerance is the largest remaining per-axis error that counts as aimed.
	Tolerance float64
	MinPitch  float64
	MaxPitch  float64
	Trigger   TriggerMode
	// TargeterCapacity sizes the target history; zero uses the default.
	TargeterCapacity int
}

func DefaultConfig() Config {
	return Config{
		MaxRate:   common.Deg2Rad(90),
		Tolerance: common.Deg2Rad(1),
		MinPitch:  common.Deg2Rad(-10),
		MaxPitch:  common.Deg2Rad(80),
	}
}

// Controller slews a two-axis turret toward the most recently pushed target
// position and raises a trigger once the remaining error is within tolerance.
type Controller struct {
	cfg      Config
	origin   r3.Vec
	angle    Angle
	trigger  bool
	aimed    bool
	err      float64
	targeter *steering.Targeter
}

func New(cfg Config) *Controller {
	if cfg.MaxPitch < cfg.MinPitch {
		cfg.MinPitch, cfg.MaxPitch = cfg.MaxPitch, cfg.MinPitch
	}
	return &Controller{
		cfg:      cfg,
		targeter: steering.NewTargeter(cfg.TargeterCapacity),
		err:      math.Inf(1),
	}
}

func (c *Controller) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.cfg
}

// SetOrigin places the turret pivot, normally at the owner's position.
func (c *Controller) SetOrigin(p r3.Vec) {
	if c == nil {
		return
	}
	c.origin = p
}

func (c *Controller) Origin() r3.Vec {
	if c == nil {
		return r3.Vec{}
	}
	return c.origin
}

// Targeter is where behavior logic pushes aim points.
func (c *Controller) Targeter() *steering.Targeter {
	if c == nil {
		return nil
	}
	return c.targeter
}

// StepTurret slews toward the target pushed this tick. With nothing pushed the
// angle holds and the trigger clears.
func (c *Controller) StepTurret(dt float64) {
	if c == nil {
		return
	}
	target, ok := c.targeter.Consume()
	if !ok {
		c.trigger = false
		c.aimed = false
		return
	}

	desired := c.desiredAngle(target)
	step := math.Max(0, c.cfg.MaxRate*dt)

	yawErr := common.WrapAngle(desired.Yaw - c.angle.Yaw)
	pitchErr := desired.Pitch - c.angle.Pitch

	c.angle.Yaw = common.WrapAngle(c.angle.Yaw + slew(yawErr, step))
	c.angle.Pitch = common.Clamp(c.angle.Pitch+slew(pitchErr, step), c.cfg.MinPitch, c.cfg.MaxPitch)

	remaining := math.Max(
		math.Abs(common.WrapAngle(desired.Yaw-c.angle.Yaw)),
		math.Abs(desired.Pitch-c.angle.Pitch),
	)
	c.err = remaining

	aimed := remaining <= c.cfg.Tolerance
	switch c.cfg.Trigger {
	case TriggerEdge:
		c.trigger = aimed && !c.aimed
	default:
		c.trigger = aimed
	}
	c.aimed = aimed
}

func slew(diff, step float64) float64 {
	if math.Abs(diff) <= step {
		return diff
	}
	return common.Sign(diff) * step
}

func (c *Controller) desiredAngle(target r3.Vec) Angle {
	d := r3.Sub(target, c.origin)
	if r3.Norm(d) < 1e-9 {
		return c.angle
	}
	yaw, pitch := common.HeadingPitch(d)
	return Angle{Yaw: yaw, Pitch: common.Clamp(pitch, c.cfg.MinPitch, c.cfg.MaxPitch)}
}

func (c *Controller) CurrentAngle() Angle {
	if c == nil {
		return Angle{}
	}
	return c.angle
}

// SetCurrentAngle overrides the turret orientation. Pitch is clamped to the
// configured range.
func (c *Controller) SetCurrentAngle(a Angle) {
	if c == nil {
		return
	}
	c.angle = Angle{
		Yaw:   common.WrapAngle(a.Yaw),
		Pitch: common.Clamp(a.Pitch, c.cfg.MinPitch, c.cfg.MaxPitch),
	}
	c.aimed = false
	c.trigger = false
}

// Trigger reports whether the turret is ready to fire this tick.
func (c *Controller) Trigger() bool {
	return c != nil && c.trigger
}

// AngularError is the largest per-axis error left after the last step; it is
// +Inf before the first step with a target.
func (c *Controller) AngularError() float64 {
	if c == nil {
		return math.Inf(1)
	}
	return c.err
}

// Reset clears target history and trigger state, keeping the angle.
func (c *Controller) Reset() {
	if c == nil {
		return
	}
	c.targeter.Clear()
	c.trigger = false
	c.aimed = false
	c.err = math.Inf(1)
}
