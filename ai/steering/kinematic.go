package steering

import (
	"math"

	"github.com/milk9111/enemyai/common"
	"gonum.org/v1/gonum/spatial/r3"
)

// KinematicState is the AI's believed position, facing and velocity. It is
// kept apart from the physics engine's authoritative transform and reconciled
// every tick.
type KinematicState struct {
	Position        r3.Vec
	Forward         r3.Vec
	AngularVelocity float64
	Velocity        r3.Vec

	MaxVelocity        float64
	MaxAngularVelocity float64
	MaxPitch           float64
}

// GoalState is the kinematic condition a behavior steers toward.
type GoalState = KinematicState

func NewKinematicState() KinematicState {
	return KinematicState{Forward: common.UnitX}
}

// Validate restores the invariants: unit forward and non-negative limits.
func (k *KinematicState) Validate() {
	if k == nil {
		return
	}
	k.Forward = common.SafeUnit(k.Forward, common.UnitX)
	k.MaxVelocity = math.Max(0, k.MaxVelocity)
	k.MaxAngularVelocity = math.Max(0, k.MaxAngularVelocity)
	k.MaxPitch = math.Max(0, k.MaxPitch)
}

func (k KinematicState) Yaw() float64 {
	yaw, _ := common.HeadingPitch(k.Forward)
	return yaw
}

func (k KinematicState) Pitch() float64 {
	_, pitch := common.HeadingPitch(k.Forward)
	return pitch
}

// Integrate advances state by control over dt. Yaw and pitch rates are
// fractions of MaxAngularVelocity; throttle is a fraction of MaxVelocity.
func Integrate(k *KinematicState, c Control, dt float64) {
	if k == nil || dt <= 0 {
		return
	}
	yaw, pitch := common.HeadingPitch(k.Forward)

	yawRate := common.Clamp(c.Yaw, -1, 1) * k.MaxAngularVelocity
	pitchRate := common.Clamp(c.Pitch, -1, 1) * k.MaxAngularVelocity
	yaw = common.WrapAngle(yaw + yawRate*dt)
	pitch = common.Clamp(pitch+pitchRate*dt, -k.MaxPitch, k.MaxPitch)

	k.AngularVelocity = yawRate
	k.Forward = common.Forward(yaw, pitch)

	throttle := common.Clamp(c.Throttle, 0, 1)
	k.Velocity = r3.Scale(throttle*k.MaxVelocity, k.Forward)
	k.Position = r3.Add(k.Position, r3.Scale(dt, k.Velocity))
}
