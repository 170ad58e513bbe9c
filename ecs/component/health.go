package component

// Health tracks hit points. LastAttacker is the raw entity handle of the most
// recent damage source.
type Health struct {
	Current      float64
	Max          float64
	LastAttacker uint64
}

func (h Health) Dead() bool {
	return h.Current <= 0
}

var HealthComponent = NewComponent[Health]()
