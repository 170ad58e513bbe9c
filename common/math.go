package common

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// AngleEpsilon is the smallest angular difference treated as non-zero.
const AngleEpsilon = 1e-6

func Lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func Sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// WrapAngle maps an angle in radians into (-pi, pi].
func WrapAngle(a float64) float64 {
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return 0
	}
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

func Deg2Rad(d float64) float64 { return d * math.Pi / 180 }

func Rad2Deg(r float64) float64 { return r * 180 / math.Pi }

// Forward builds a unit direction from a heading (CCW from +X around +Z) and a
// pitch (positive up).
func Forward(yaw, pitch float64) r3.Vec {
	cp := math.Cos(pitch)
	return r3.Vec{
		X: math.Cos(yaw) * cp,
		Y: math.Sin(yaw) * cp,
		Z: math.Sin(pitch),
	}
}

// HeadingPitch is the inverse of Forward. A zero vector yields (0, 0).
func HeadingPitch(v r3.Vec) (yaw, pitch float64) {
	horiz := math.Hypot(v.X, v.Y)
	if horiz == 0 && v.Z == 0 {
		return 0, 0
	}
	if horiz > 0 {
		yaw = math.Atan2(v.Y, v.X)
	}
	pitch = math.Atan2(v.Z, horiz)
	return yaw, pitch
}

// SafeUnit normalizes v, falling back when v has no length.
func SafeUnit(v, fallback r3.Vec) r3.Vec {
	n := r3.Norm(v)
	if n < 1e-12 || math.IsNaN(n) {
		return fallback
	}
	return r3.Scale(1/n, v)
}

func Distance(a, b r3.Vec) float64 {
	return r3.Norm(r3.Sub(a, b))
}
