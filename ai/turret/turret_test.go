package turret

import (
	"math"
	"testing"

	"github.com/milk9111/enemyai/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestStepTurretConvergesMonotonically(t *testing.T) {
	cases := []struct {
		name   string
		target r3.Vec
		start  Angle
		mode   TriggerMode
	}{
		{"yaw_only_level", r3.Vec{X: -10, Y: 3}, Angle{Yaw: 0.2}, TriggerLevel},
		{"yaw_and_pitch_edge", r3.Vec{X: 5, Y: 5, Z: 4}, Angle{Yaw: -2, Pitch: 0}, TriggerEdge},
		{"wraps_through_pi", r3.Vec{X: -10, Y: -1}, Angle{Yaw: 3}, TriggerLevel},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.MaxRate = common.Deg2Rad(45)
			cfg.Trigger = c.mode
			tur := New(cfg)
			tur.SetCurrentAngle(c.start)

			prev := math.Inf(1)
			fired := false
			for i := 0; i < 200 && !fired; i++ {
				tur.Targeter().Push(c.target, float64(i)*0.05)
				tur.StepTurret(0.05)
				errNow := tur.AngularError()
				require.LessOrEqual(t, errNow, prev, "tick %d", i)
				prev = errNow
				if errNow > cfg.Tolerance {
					require.False(t, tur.Trigger(), "tick %d", i)
				}
				fired = tur.Trigger()
			}
			require.True(t, fired)
			assert.LessOrEqual(t, tur.AngularError(), cfg.Tolerance)
		})
	}
}

func TestStepTurretThreeTickConvergence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRate = common.Deg2Rad(300)
	tur := New(cfg)
	target := r3.Vec{Y: 10}

	want := []bool{false, false, true}
	for i, w := range want {
		tur.Targeter().Push(target, float64(i)*0.1)
		tur.StepTurret(0.1)
		assert.Equal(t, w, tur.Trigger(), "tick %d", i+1)
	}
	assert.InDelta(t, math.Pi/2, tur.CurrentAngle().Yaw, 1e-9)
}

func TestStepTurretHoldsWithoutTarget(t *testing.T) {
	tur := New(DefaultConfig())
	tur.SetCurrentAngle(Angle{Yaw: 1, Pitch: 0.1})
	tur.Targeter().Push(r3.Vec{X: 10}, 0)
	tur.StepTurret(0.1)
	moved := tur.CurrentAngle()
	assert.NotEqual(t, Angle{Yaw: 1, Pitch: 0.1}, moved)

	tur.StepTurret(0.1)
	assert.Equal(t, moved, tur.CurrentAngle())
	assert.False(t, tur.Trigger())
}

func TestTriggerModes(t *testing.T) {
	for _, mode := range []TriggerMode{TriggerLevel, TriggerEdge} {
		cfg := DefaultConfig()
		cfg.Trigger = mode
		tur := New(cfg)
		target := r3.Vec{X: 10}

		var got []bool
		for i := 0; i < 3; i++ {
			tur.Targeter().Push(target, float64(i))
			tur.StepTurret(0.1)
			got = append(got, tur.Trigger())
		}
		tur.StepTurret(0.1)
		got = append(got, tur.Trigger())
		tur.Targeter().Push(target, 5)
		tur.StepTurret(0.1)
		got = append(got, tur.Trigger())

		if mode == TriggerLevel {
			assert.Equal(t, []bool{true, true, true, false, true}, got)
		} else {
			assert.Equal(t, []bool{true, false, false, false, true}, got)
		}
	}
}

func TestPitchClampedToRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRate = math.Pi * 10
	tur := New(cfg)
	tur.Targeter().Push(r3.Vec{X: 0.01, Z: 100}, 0)
	tur.StepTurret(1)
	assert.InDelta(t, cfg.MaxPitch, tur.CurrentAngle().Pitch, 1e-9)

	tur.SetCurrentAngle(Angle{Pitch: -math.Pi})
	assert.InDelta(t, cfg.MinPitch, tur.CurrentAngle().Pitch, 1e-9)
}

func TestResetAndNilSafety(t *testing.T) {
	tur := New(DefaultConfig())
	tur.Targeter().Push(r3.Vec{X: 1}, 0)
	tur.Reset()
	assert.Zero(t, tur.Targeter().Len())
	assert.True(t, math.IsInf(tur.AngularError(), 1))

	var nilTurret *Controller
	nilTurret.StepTurret(0.1)
	assert.False(t, nilTurret.Trigger())
	assert.Equal(t, Angle{}, nilTurret.CurrentAngle())
	assert.Equal(t, TriggerEdge, ParseTriggerMode("edge"))
	assert.Equal(t, TriggerLevel, ParseTriggerMode("level"))
}
