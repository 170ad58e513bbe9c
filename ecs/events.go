package ecs

// Event is a generic ECS event payload.
type Event struct {
	Type string
	Data any
}

const (
	EventDamage = "damage"
	EventKilled = "killed"
	EventShot   = "shot"
)

// DamageEvent asks the combat system to hurt Target.
type DamageEvent struct {
	Source Entity
	Target Entity
	Amount float64
}

// KilledEvent is published after an entity's health reaches zero, just before
// it is destroyed.
type KilledEvent struct {
	Entity Entity
	Killer Entity
}

// ShotEvent records a weapon discharge.
type ShotEvent struct {
	Shooter Entity
	Target  Entity
	Kind    string
}

// EventQueue is a simple FIFO queue.
type EventQueue struct {
	items []Event
}

// Push adds an event.
func (q *EventQueue) Push(evt Event) {
	if q == nil {
		return
	}
	q.items = append(q.items, evt)
}

// Drain returns all events of the given type and keeps the rest queued.
func (q *EventQueue) Drain(eventType string) []Event {
	if q == nil || len(q.items) == 0 {
		return nil
	}
	var out []Event
	kept := q.items[:0]
	for _, evt := range q.items {
		if evt.Type == eventType {
			out = append(out, evt)
		} else {
			kept = append(kept, evt)
		}
	}
	q.items = kept
	return out
}

func (q *EventQueue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.items)
}

func (q *EventQueue) flush() {
	if q == nil {
		return
	}
	q.items = nil
}
