package component

// Weapon describes what happens when an AI's fire request is honoured.
type Weapon struct {
	Kind     string
	Damage   float64
	Cooldown float64
	// Burst lets a weapon fire this many shots back to back before the
	// cooldown applies.
	Burst int
	// SelfDestruct removes the shooter after its first shot (mines).
	SelfDestruct bool
	Radius       float64
}

var WeaponComponent = NewComponent[Weapon]()
