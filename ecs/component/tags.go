package component

// Faction groups entities that do not target each other.
type Faction struct {
	Team string
}

var FactionComponent = NewComponent[Faction]()

// TargetableTag marks entities the targeting system may acquire.
type TargetableTag struct{}

var TargetableTagComponent = NewComponent[TargetableTag]()
