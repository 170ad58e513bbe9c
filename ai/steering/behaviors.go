package steering

import (
	"math"

	"github.com/milk9111/enemyai/common"
	"gonum.org/v1/gonum/spatial/r3"
)

// AlignParams tunes how aggressively a behavior turns.
type AlignParams struct {
	// TimeToTarget is the time over which a full-rate turn is spread.
	TimeToTarget float64
	// MinClampTime keeps small corrections from vanishing entirely.
	MinClampTime float64
}

func DefaultAlignParams() AlignParams {
	return AlignParams{TimeToTarget: 1, MinClampTime: 0.05}
}

// AlignRate converts a signed angular difference into a rate fraction. The
// time needed at full rate is clamped to [MinClampTime, TimeToTarget] and then
// normalised by TimeToTarget.
func AlignRate(diff, maxAngularVelocity float64, p AlignParams) float64 {
	if math.Abs(diff) < common.AngleEpsilon || maxAngularVelocity <= 0 || p.TimeToTarget <= 0 {
		return 0
	}
	t := math.Abs(diff) / maxAngularVelocity
	t = common.Clamp(t, p.MinClampTime, p.TimeToTarget)
	return common.Sign(diff) * t / p.TimeToTarget
}

func yawPitchTo(from, to r3.Vec) (yaw, pitch float64, ok bool) {
	d := r3.Sub(to, from)
	if r3.Norm(d) < 1e-9 {
		return 0, 0, false
	}
	yaw, pitch = common.HeadingPitch(d)
	return yaw, pitch, true
}

// Seek heads for the goal position at full throttle, easing off inside
// SlowRadius and stopping inside ArriveRadius.
type Seek struct {
	Align        AlignParams
	ArriveRadius float64
	SlowRadius   float64
}

func (s *Seek) Think(dt float64, goal GoalState, current KinematicState) Control {
	return seekPoint(goal.Position, current, s.Align, s.ArriveRadius, s.SlowRadius)
}

func seekPoint(target r3.Vec, current KinematicState, align AlignParams, arrive, slow float64) Control {
	dist := common.Distance(target, current.Position)
	if dist <= arrive {
		return Control{Axes: AxisThrottle | AxisYaw}
	}
	yaw, pitch, ok := yawPitchTo(current.Position, target)
	if !ok {
		return Control{Axes: AxisThrottle | AxisYaw}
	}
	out := Control{
		Yaw:      AlignRate(common.WrapAngle(yaw-current.Yaw()), current.MaxAngularVelocity, align),
		Pitch:    AlignRate(pitch-current.Pitch(), current.MaxAngularVelocity, align),
		Throttle: 1,
		Axes:     AxisAll,
	}
	if slow > arrive && dist < slow {
		out.Throttle = (dist - arrive) / (slow - arrive)
	}
	return out
}

// FollowPath steers along a path, advancing whenever the current waypoint is
// within ArriveRadius. Without a path it falls back to seeking the goal.
type FollowPath struct {
	Align        AlignParams
	ArriveRadius float64
	SlowRadius   float64

	path *Path
}

func (f *FollowPath) SetPath(p *Path) {
	f.path = p
}

func (f *FollowPath) Path() *Path {
	return f.path
}

func (f *FollowPath) Think(dt float64, goal GoalState, current KinematicState) Control {
	if f.path == nil || len(f.path.Waypoints) == 0 {
		return seekPoint(goal.Position, current, f.Align, f.ArriveRadius, f.SlowRadius)
	}
	// bounded so a looping path entirely inside ArriveRadius cannot spin
	for i := 0; i < len(f.path.Waypoints) && !f.path.Done(); i++ {
		wp, _ := f.path.Current()
		if common.Distance(wp, current.Position) > f.ArriveRadius {
			break
		}
		f.path.Advance()
	}
	wp, ok := f.path.Current()
	if !ok {
		return Control{Axes: AxisThrottle}
	}
	slow := 0.0
	if f.path.Index() == len(f.path.Waypoints)-1 && !f.path.Loop {
		slow = f.SlowRadius
	}
	return seekPoint(wp, current, f.Align, f.ArriveRadius, slow)
}

// Align turns toward the goal's forward direction, or toward the goal
// position when FacePosition is set. It never touches throttle.
type Align struct {
	Params       AlignParams
	FacePosition bool
}

func (a *Align) Think(dt float64, goal GoalState, current KinematicState) Control {
	var yaw, pitch float64
	if a.FacePosition {
		y, p, ok := yawPitchTo(current.Position, goal.Position)
		if !ok {
			return Control{}
		}
		yaw, pitch = y, p
	} else {
		if r3.Norm(goal.Forward) < 1e-9 {
			return Control{}
		}
		yaw, pitch = common.HeadingPitch(goal.Forward)
	}
	return Control{
		Yaw:   AlignRate(common.WrapAngle(yaw-current.Yaw()), current.MaxAngularVelocity, a.Params),
		Pitch: AlignRate(pitch-current.Pitch(), current.MaxAngularVelocity, a.Params),
		Axes:  AxisYaw | AxisPitch,
	}
}

// TowerAlign rotates a stationary base about its vertical axis to face the
// goal position. Throttle is pinned to zero.
type TowerAlign struct {
	Params AlignParams
}

func (a *TowerAlign) Think(dt float64, goal GoalState, current KinematicState) Control {
	yaw, _, ok := yawPitchTo(current.Position, goal.Position)
	if !ok {
		return Control{Axes: AxisThrottle}
	}
	return Control{
		Yaw:  AlignRate(common.WrapAngle(yaw-current.Yaw()), current.MaxAngularVelocity, a.Params),
		Axes: AxisYaw | AxisThrottle,
	}
}
