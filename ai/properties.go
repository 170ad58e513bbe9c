package ai

import (
	"sort"

	"github.com/milk9111/enemyai/common"
)

// PropertySink collects named tunables. A nil set marks a read-only property.
type PropertySink interface {
	AddProperty(name string, get func() float64, set func(float64))
}

// Property is a live view of one tunable.
type Property struct {
	Get func() float64
	Set func(float64)
}

// PropertyMap is a PropertySink backed by a map.
type PropertyMap map[string]Property

func (m PropertyMap) AddProperty(name string, get func() float64, set func(float64)) {
	if m == nil || get == nil {
		return
	}
	m[name] = Property{Get: get, Set: set}
}

func (m PropertyMap) Names() []string {
	out := make([]string, 0, len(m))
	for name := range m {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (m PropertyMap) Value(name string) (float64, bool) {
	p, ok := m[name]
	if !ok {
		return 0, false
	}
	return p.Get(), true
}

// SetValue writes a property, reporting false for unknown or read-only ones.
func (m PropertyMap) SetValue(name string, v float64) bool {
	p, ok := m[name]
	if !ok || p.Set == nil {
		return false
	}
	p.Set(v)
	return true
}

// Snapshot reads every property.
func (m PropertyMap) Snapshot() map[string]float64 {
	out := make(map[string]float64, len(m))
	for name, p := range m {
		out[name] = p.Get()
	}
	return out
}

// RegisterProperties exports the helper's tuning to sink. Angular values are
// exposed in degrees.
func (h *Helper) RegisterProperties(sink PropertySink) {
	if h == nil || sink == nil {
		return
	}
	sink.AddProperty("max_velocity",
		func() float64 { return h.kin.MaxVelocity },
		func(v float64) { h.kin.MaxVelocity = v; h.kin.Validate() })
	sink.AddProperty("max_angular_velocity",
		func() float64 { return common.Rad2Deg(h.kin.MaxAngularVelocity) },
		func(v float64) { h.kin.MaxAngularVelocity = common.Deg2Rad(v); h.kin.Validate() })
	sink.AddProperty("max_pitch",
		func() float64 { return common.Rad2Deg(h.kin.MaxPitch) },
		func(v float64) { h.kin.MaxPitch = common.Deg2Rad(v); h.kin.Validate() })
	sink.AddProperty("acquire_range",
		func() float64 { return h.attack.AcquireRange },
		func(v float64) { h.attack.AcquireRange = v })
	sink.AddProperty("lead_time",
		func() float64 { return h.attack.LeadTime },
		func(v float64) { h.attack.LeadTime = v })
	sink.AddProperty("standoff",
		func() float64 { return h.attack.Standoff },
		func(v float64) { h.attack.Standoff = v })
	sink.AddProperty("altitude",
		func() float64 { return h.attack.Altitude },
		func(v float64) { h.attack.Altitude = v })
	sink.AddProperty("shots", func() float64 { return float64(h.shots) }, nil)

	if h.turret == nil {
		return
	}
	sink.AddProperty("turret_max_rate",
		func() float64 { return common.Rad2Deg(h.turret.Config().MaxRate) }, nil)
	sink.AddProperty("turret_tolerance",
		func() float64 { return common.Rad2Deg(h.turret.Config().Tolerance) }, nil)
	sink.AddProperty("turret_error",
		func() float64 { return common.Rad2Deg(h.turret.AngularError()) }, nil)
}
