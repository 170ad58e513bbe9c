package system

import (
	"math"

	"github.com/milk9111/enemyai/ai"
	"github.com/milk9111/enemyai/ecs"
	"github.com/milk9111/enemyai/ecs/component"
	"gonum.org/v1/gonum/spatial/r3"
)

type targetCandidate struct {
	entity   ecs.Entity
	team     string
	position r3.Vec
}

// TargetingSystem snapshots every live targetable entity once per tick and
// answers the helpers' target queries against that snapshot. It implements
// both ai.Targets and ai.TargetFinder.
type TargetingSystem struct {
	world      *ecs.World
	candidates []targetCandidate
	lookups    int
}

var (
	_ ai.Targets      = (*TargetingSystem)(nil)
	_ ai.TargetFinder = (*TargetingSystem)(nil)
)

func NewTargetingSystem() *TargetingSystem { return &TargetingSystem{} }

func (s *TargetingSystem) Update(w *ecs.World) {
	s.world = w
	s.candidates = s.candidates[:0]
	for _, e := range w.Query(component.TargetableTagComponent.ID(), component.TransformComponent.ID()) {
		if hp, ok := ecs.Get(w, e, component.HealthComponent); ok && hp.Dead() {
			continue
		}
		t, _ := ecs.Get(w, e, component.TransformComponent)
		team := ""
		if f, ok := ecs.Get(w, e, component.FactionComponent); ok {
			team = f.Team
		}
		s.candidates = append(s.candidates, targetCandidate{entity: e, team: team, position: t.Position})
	}
}

// IsValid reports whether h still names a live, undead entity.
func (s *TargetingSystem) IsValid(h ai.Handle) bool {
	if s == nil || s.world == nil || h == 0 {
		return false
	}
	e := ecs.Entity(h)
	if !s.world.IsAlive(e) {
		return false
	}
	if hp, ok := ecs.Get(s.world, e, component.HealthComponent); ok && hp.Dead() {
		return false
	}
	return true
}

func (s *TargetingSystem) TargetTransform(h ai.Handle) (ai.Transform, bool) {
	if !s.IsValid(h) {
		return ai.Transform{}, false
	}
	s.lookups++
	e := ecs.Entity(h)
	if pb, ok := ecs.Get(s.world, e, component.PhysicsBodyComponent); ok && pb != nil {
		return pb.Transform(), true
	}
	return ecs.Get(s.world, e, component.TransformComponent)
}

// FindTarget returns the nearest candidate on another team within maxRange
// of from. A zero maxRange is unlimited. Entities without a faction are
// hostile to everyone.
func (s *TargetingSystem) FindTarget(self ai.Handle, from r3.Vec, maxRange float64) (ai.Handle, bool) {
	if s == nil || s.world == nil {
		return 0, false
	}
	selfEntity := ecs.Entity(self)
	team := ""
	if f, ok := ecs.Get(s.world, selfEntity, component.FactionComponent); ok {
		team = f.Team
	}

	best := ecs.Entity(0)
	bestDist := math.Inf(1)
	for _, c := range s.candidates {
		if c.entity == selfEntity || !s.world.IsAlive(c.entity) {
			continue
		}
		if team != "" && c.team == team {
			continue
		}
		d := r3.Norm(r3.Sub(c.position, from))
		if maxRange > 0 && d > maxRange {
			continue
		}
		if d < bestDist {
			best, bestDist = c.entity, d
		}
	}
	if best == 0 {
		return 0, false
	}
	return ai.Handle(best), true
}

// Candidates is the number of targetable entities seen this tick.
func (s *TargetingSystem) Candidates() int {
	return len(s.candidates)
}

// Lookups counts successful target transform resolutions.
func (s *TargetingSystem) Lookups() int {
	return s.lookups
}
