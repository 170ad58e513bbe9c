package system

import (
	"github.com/milk9111/enemyai/ai"
	"github.com/milk9111/enemyai/ecs"
	"github.com/milk9111/enemyai/ecs/component"
	"go.uber.org/zap"
)

// CombatSystem applies queued damage. Helpers that survive a hit hear
// took_damage; anything brought to zero health is told it was killed,
// announced and destroyed.
type CombatSystem struct {
	logger *zap.Logger
	kills  map[string]int
}

func NewCombatSystem(logger *zap.Logger) *CombatSystem {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CombatSystem{logger: logger.Named("combat"), kills: make(map[string]int)}
}

func (s *CombatSystem) Update(w *ecs.World) {
	var dead []ecs.KilledEvent
	for _, evt := range w.Events().Drain(ecs.EventDamage) {
		dmg, ok := evt.Data.(ecs.DamageEvent)
		if !ok || !w.IsAlive(dmg.Target) {
			continue
		}
		hp, ok := ecs.Get(w, dmg.Target, component.HealthComponent)
		if !ok || hp.Dead() {
			continue
		}

		hp.Current -= dmg.Amount
		hp.LastAttacker = uint64(dmg.Source)
		if hp.Current < 0 {
			hp.Current = 0
		}
		_ = ecs.Add(w, dmg.Target, component.HealthComponent, hp)

		brain, hasBrain := ecs.Get(w, dmg.Target, component.AIBrainComponent)
		if !hp.Dead() {
			if hasBrain && dmg.Source != dmg.Target {
				brain.Helper.HandleEvent(ai.EventTookDamage)
			}
			continue
		}
		if hasBrain {
			brain.Helper.HandleEvent(ai.EventKilled)
		}
		dead = append(dead, ecs.KilledEvent{Entity: dmg.Target, Killer: dmg.Source})
	}

	for _, k := range dead {
		team := ""
		if f, ok := ecs.Get(w, k.Entity, component.FactionComponent); ok {
			team = f.Team
		}
		s.kills[team]++
		w.Events().Push(ecs.Event{Type: ecs.EventKilled, Data: k})
		s.logger.Info("entity destroyed",
			zap.Stringer("entity", k.Entity),
			zap.Stringer("killer", k.Killer),
			zap.String("team", team))
		w.DestroyEntity(k.Entity)
	}
}

// Losses returns how many entities each team has lost so far.
func (s *CombatSystem) Losses() map[string]int {
	out := make(map[string]int, len(s.kills))
	for team, n := range s.kills {
		out[team] = n
	}
	return out
}
