package system

import (
	"math"
	"time"

	"github.com/milk9111/enemyai/ai"
	"github.com/milk9111/enemyai/ecs"
	"github.com/milk9111/enemyai/ecs/component"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gonum.org/v1/gonum/spatial/r3"
)

// simEpoch anchors the simulated clock the cooldown limiters run on.
var simEpoch = time.Unix(0, 0)

type pendingShot struct {
	shooter ecs.Entity
	req     ai.FireRequest
}

// WeaponSystem turns the helpers' fire requests into damage. Each shooter
// gets a token bucket sized by its weapon's burst and refilled once per
// cooldown, measured on simulation time rather than wall time.
type WeaponSystem struct {
	logger   *zap.Logger
	pending  []pendingShot
	limiters map[ecs.Entity]*rate.Limiter
	fired    int
	blocked  int
}

func NewWeaponSystem(logger *zap.Logger) *WeaponSystem {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WeaponSystem{
		logger:   logger.Named("weapons"),
		limiters: make(map[ecs.Entity]*rate.Limiter),
	}
}

// Request queues a fire request from shooter for the next Update. It is the
// callback handed to ai.Helper.OnFire.
func (s *WeaponSystem) Request(shooter ecs.Entity, req ai.FireRequest) {
	s.pending = append(s.pending, pendingShot{shooter: shooter, req: req})
}

func (s *WeaponSystem) Update(w *ecs.World) {
	now := SimClock(w.Time())
	shots := s.pending
	s.pending = nil

	for _, shot := range shots {
		if !w.IsAlive(shot.shooter) {
			continue
		}
		weapon, ok := ecs.Get(w, shot.shooter, component.WeaponComponent)
		if !ok {
			continue
		}
		selfDestruct := weapon.SelfDestruct || shot.req.SelfDestruct
		if !selfDestruct && !s.limiter(shot.shooter, weapon).AllowN(now, 1) {
			s.blocked++
			continue
		}
		s.fired++

		target := ecs.Entity(shot.req.Target)
		w.Events().Push(ecs.Event{Type: ecs.EventShot, Data: ecs.ShotEvent{
			Shooter: shot.shooter,
			Target:  target,
			Kind:    weapon.Kind,
		}})

		switch {
		case selfDestruct:
			s.blast(w, shot.shooter, shot.req.Origin, weapon)
		case weapon.Radius > 0:
			s.blast(w, shot.shooter, shot.req.Aim, weapon)
		case w.IsAlive(target):
			w.Events().Push(ecs.Event{Type: ecs.EventDamage, Data: ecs.DamageEvent{
				Source: shot.shooter,
				Target: target,
				Amount: weapon.Damage,
			}})
		}

		if selfDestruct {
			w.Events().Push(ecs.Event{Type: ecs.EventDamage, Data: ecs.DamageEvent{
				Source: shot.shooter,
				Target: shot.shooter,
				Amount: math.Inf(1),
			}})
		}
	}

	for e := range s.limiters {
		if !w.IsAlive(e) {
			delete(s.limiters, e)
		}
	}
}

// blast damages every entity with health within the weapon radius of at,
// except the shooter.
func (s *WeaponSystem) blast(w *ecs.World, shooter ecs.Entity, at r3.Vec, weapon component.Weapon) {
	hits := 0
	for _, e := range w.Query(component.HealthComponent.ID(), component.TransformComponent.ID()) {
		if e == shooter {
			continue
		}
		t, _ := ecs.Get(w, e, component.TransformComponent)
		if r3.Norm(r3.Sub(t.Position, at)) > weapon.Radius {
			continue
		}
		hits++
		w.Events().Push(ecs.Event{Type: ecs.EventDamage, Data: ecs.DamageEvent{
			Source: shooter,
			Target: e,
			Amount: weapon.Damage,
		}})
	}
	s.logger.Debug("blast", zap.Stringer("shooter", shooter), zap.Int("hits", hits))
}

// limiter returns e's bucket, rebuilding it when the weapon's cadence no
// longer matches, as after a prefab reload.
func (s *WeaponSystem) limiter(e ecs.Entity, weapon component.Weapon) *rate.Limiter {
	limit := rate.Inf
	if weapon.Cooldown > 0 {
		limit = rate.Every(time.Duration(weapon.Cooldown * float64(time.Second)))
	}
	burst := weapon.Burst
	if burst < 1 {
		burst = 1
	}
	if l, ok := s.limiters[e]; ok && l.Limit() == limit && l.Burst() == burst {
		return l
	}
	l := rate.NewLimiter(limit, burst)
	s.limiters[e] = l
	return l
}

// Fired counts shots that passed their cooldown.
func (s *WeaponSystem) Fired() int { return s.fired }

// Blocked counts requests dropped by a cooldown.
func (s *WeaponSystem) Blocked() int { return s.blocked }

// SimClock maps simulation seconds onto a wall-clock instant.
func SimClock(seconds float64) time.Time {
	return simEpoch.Add(time.Duration(seconds * float64(time.Second)))
}
