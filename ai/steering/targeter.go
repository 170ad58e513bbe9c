package steering

import "gonum.org/v1/gonum/spatial/r3"

const DefaultTargeterCapacity = 8

// Sample is one observed target position.
type Sample struct {
	Position r3.Vec
	Time     float64
}

// Targeter keeps a short FIFO history of target positions. Consume reports
// whether anything was pushed since the previous Consume, which is how the
// turret tells "no target this tick" apart from a stale history.
type Targeter struct {
	samples  []Sample
	capacity int
	fresh    bool
}

func NewTargeter(capacity int) *Targeter {
	if capacity <= 0 {
		capacity = DefaultTargeterCapacity
	}
	return &Targeter{capacity: capacity, samples: make([]Sample, 0, capacity)}
}

// Push records a target position observed at time t.
func (t *Targeter) Push(pos r3.Vec, at float64) {
	if t == nil {
		return
	}
	if t.capacity <= 0 {
		t.capacity = DefaultTargeterCapacity
	}
	if len(t.samples) == t.capacity {
		copy(t.samples, t.samples[1:])
		t.samples = t.samples[:len(t.samples)-1]
	}
	t.samples = append(t.samples, Sample{Position: pos, Time: at})
	t.fresh = true
}

// Latest returns the most recent sample regardless of freshness.
func (t *Targeter) Latest() (r3.Vec, bool) {
	if t == nil || len(t.samples) == 0 {
		return r3.Vec{}, false
	}
	return t.samples[len(t.samples)-1].Position, true
}

// Consume returns the latest position if one was pushed since the last call.
func (t *Targeter) Consume() (r3.Vec, bool) {
	if t == nil || !t.fresh {
		return r3.Vec{}, false
	}
	t.fresh = false
	return t.Latest()
}

// Predict extrapolates lead seconds past the newest sample using the two most
// recent samples. With fewer than two samples it returns Latest.
func (t *Targeter) Predict(lead float64) (r3.Vec, bool) {
	if t == nil || len(t.samples) == 0 {
		return r3.Vec{}, false
	}
	last := t.samples[len(t.samples)-1]
	if len(t.samples) < 2 || lead == 0 {
		return last.Position, true
	}
	prev := t.samples[len(t.samples)-2]
	span := last.Time - prev.Time
	if span <= 0 {
		return last.Position, true
	}
	vel := r3.Scale(1/span, r3.Sub(last.Position, prev.Position))
	return r3.Add(last.Position, r3.Scale(lead, vel)), true
}

func (t *Targeter) Len() int {
	if t == nil {
		return 0
	}
	return len(t.samples)
}

func (t *Targeter) Clear() {
	if t == nil {
		return
	}
	t.samples = t.samples[:0]
	t.fresh = false
}
