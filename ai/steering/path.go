package steering

import "gonum.org/v1/gonum/spatial/r3"

// Path is an ordered list of waypoints with a cursor.
type Path struct {
	Waypoints []r3.Vec
	Loop      bool

	index int
}

func NewPath(loop bool, points ...r3.Vec) *Path {
	return &Path{Waypoints: append([]r3.Vec(nil), points...), Loop: loop}
}

// Current returns the waypoint being steered to.
func (p *Path) Current() (r3.Vec, bool) {
	if p == nil || p.index >= len(p.Waypoints) {
		return r3.Vec{}, false
	}
	return p.Waypoints[p.index], true
}

// Advance moves to the next waypoint, wrapping when the path loops.
func (p *Path) Advance() {
	if p == nil || len(p.Waypoints) == 0 {
		return
	}
	p.index++
	if p.index >= len(p.Waypoints) && p.Loop {
		p.index = 0
	}
}

func (p *Path) Done() bool {
	return p == nil || p.index >= len(p.Waypoints)
}

func (p *Path) Index() int {
	if p == nil {
		return 0
	}
	return p.index
}

func (p *Path) Reset() {
	if p == nil {
		return
	}
	p.index = 0
}
