package steering

// Axis flags which parts of a Control a behavior wrote.
type Axis uint8

const (
	AxisYaw Axis = 1 << iota
	AxisPitch
	AxisThrottle

	AxisAll = AxisYaw | AxisPitch | AxisThrottle
)

// Control is a steering output: yaw and pitch as signed fractions of the
// maximum angular velocity, throttle as a fraction of the maximum velocity.
type Control struct {
	Yaw      float64
	Pitch    float64
	Throttle float64
	Axes     Axis
}

func (c Control) Touches(a Axis) bool {
	return c.Axes&a != 0
}

// Merge overwrites the axes of c that next touches.
func (c Control) Merge(next Control) Control {
	if next.Touches(AxisYaw) {
		c.Yaw = next.Yaw
	}
	if next.Touches(AxisPitch) {
		c.Pitch = next.Pitch
	}
	if next.Touches(AxisThrottle) {
		c.Throttle = next.Throttle
	}
	c.Axes |= next.Axes
	return c
}
