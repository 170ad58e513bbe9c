package fsm

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// StateID identifies an FSM state.
type StateID string

// EventID identifies an FSM event.
type EventID string

var (
	ErrUnknownState        = errors.New("fsm: unknown state")
	ErrUnknownEvent        = errors.New("fsm: unknown event")
	ErrStateExists         = errors.New("fsm: state already registered")
	ErrDuplicateTransition = errors.New("fsm: duplicate transition")
)

// UpdateFunc is a per-tick state functor.
type UpdateFunc func(dt float64)

// State is a registered FSM state with its optional functors.
type State struct {
	ID StateID

	update  UpdateFunc
	onEnter func()
	onExit  func()
	context any
}

// HasUpdate reports whether an update functor is bound.
func (s *State) HasUpdate() bool {
	return s != nil && s.update != nil
}

// Transition is a (event, from) -> to edge.
type Transition struct {
	Event EventID
	From  StateID
	To    StateID
}

type transitionKey struct {
	event EventID
	from  StateID
}

// Machine is a small event-driven finite state machine. It is not safe for
// concurrent use; it is driven from the simulation tick.
type Machine struct {
	states      map[StateID]*State
	events      map[EventID]struct{}
	transitions map[transitionKey]StateID
	current     *State
	strict      bool
	logger      *zap.Logger
}

func New(logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{
		states:      map[StateID]*State{},
		events:      map[EventID]struct{}{},
		transitions: map[transitionKey]StateID{},
		logger:      logger,
	}
}

// SetStrict makes duplicate (event, from) registrations an error instead of
// overwriting the earlier destination.
func (m *Machine) SetStrict(strict bool) {
	if m == nil {
		return
	}
	m.strict = strict
}

// AddState registers a state. Registering the same id twice is rejected and the
// existing state is returned alongside ErrStateExists.
func (m *Machine) AddState(id StateID) (*State, error) {
	if m == nil {
		return nil, ErrUnknownState
	}
	if s, ok := m.states[id]; ok {
		m.logger.Error("state already registered", zap.String("state", string(id)))
		return s, fmt.Errorf("%w: %s", ErrStateExists, id)
	}
	s := &State{ID: id}
	m.states[id] = s
	return s, nil
}

// AddEvent registers an event type. Re-registering is a no-op.
func (m *Machine) AddEvent(id EventID) {
	if m == nil || id == "" {
		return
	}
	m.events[id] = struct{}{}
}

func (m *Machine) HasState(id StateID) bool {
	if m == nil {
		return false
	}
	_, ok := m.states[id]
	return ok
}

func (m *Machine) HasEvent(id EventID) bool {
	if m == nil {
		return false
	}
	_, ok := m.events[id]
	return ok
}

// AddTransition wires event ev from state from to state to. Both states and the
// event must already be registered.
func (m *Machine) AddTransition(ev EventID, from, to StateID) error {
	if m == nil {
		return ErrUnknownState
	}
	if !m.HasEvent(ev) {
		m.logger.Error("transition references unregistered event",
			zap.String("event", string(ev)), zap.String("from", string(from)), zap.String("to", string(to)))
		return fmt.Errorf("%w: %s", ErrUnknownEvent, ev)
	}
	for _, id := range []StateID{from, to} {
		if !m.HasState(id) {
			m.logger.Error("transition references unregistered state",
				zap.String("event", string(ev)), zap.String("state", string(id)))
			return fmt.Errorf("%w: %s", ErrUnknownState, id)
		}
	}

	key := transitionKey{event: ev, from: from}
	if prev, ok := m.transitions[key]; ok && prev != to {
		if m.strict {
			m.logger.Error("duplicate transition rejected",
				zap.String("event", string(ev)), zap.String("from", string(from)),
				zap.String("existing", string(prev)), zap.String("rejected", string(to)))
			return fmt.Errorf("%w: %s on %s", ErrDuplicateTransition, from, ev)
		}
		m.logger.Warn("transition overwritten",
			zap.String("event", string(ev)), zap.String("from", string(from)),
			zap.String("previous", string(prev)), zap.String("to", string(to)))
	}
	m.transitions[key] = to
	return nil
}

// Transition returns the destination registered for (ev, from).
func (m *Machine) Transition(ev EventID, from StateID) (StateID, bool) {
	if m == nil {
		return "", false
	}
	to, ok := m.transitions[transitionKey{event: ev, from: from}]
	return to, ok
}

// Transitions lists the transition table ordered by source state then event.
func (m *Machine) Transitions() []Transition {
	if m == nil {
		return nil
	}
	out := make([]Transition, 0, len(m.transitions))
	for k, to := range m.transitions {
		out = append(out, Transition{Event: k.event, From: k.from, To: to})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].Event < out[j].Event
	})
	return out
}

// States lists registered state ids in sorted order.
func (m *Machine) States() []StateID {
	if m == nil {
		return nil
	}
	out := make([]StateID, 0, len(m.states))
	for id := range m.states {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HandleEvent fires the transition keyed by (ev, current). The exit functor of
// the old state and the enter functor of the new one run immediately; the new
// state's update functor runs on the next Update.
func (m *Machine) HandleEvent(ev EventID) bool {
	if m == nil || m.current == nil {
		return false
	}
	to, ok := m.transitions[transitionKey{event: ev, from: m.current.ID}]
	if !ok {
		return false
	}
	next, ok := m.states[to]
	if !ok {
		m.logger.Error("transition target vanished", zap.String("state", string(to)))
		return false
	}
	m.swap(next)
	return true
}

// MakeCurrent forces the current state without consulting the transition table.
func (m *Machine) MakeCurrent(id StateID) error {
	if m == nil {
		return ErrUnknownState
	}
	next, ok := m.states[id]
	if !ok {
		m.logger.Error("make current on unregistered state", zap.String("state", string(id)))
		return fmt.Errorf("%w: %s", ErrUnknownState, id)
	}
	m.swap(next)
	return nil
}

func (m *Machine) swap(next *State) {
	if m.current != nil && m.current.onExit != nil {
		m.current.onExit()
	}
	m.current = next
	if next.onEnter != nil {
		next.onEnter()
	}
}

// Update runs the current state's update functor, if any.
func (m *Machine) Update(dt float64) {
	if m == nil || m.current == nil || m.current.update == nil {
		return
	}
	m.current.update(dt)
}

// Current returns the current state or nil before the first MakeCurrent.
func (m *Machine) Current() *State {
	if m == nil {
		return nil
	}
	return m.current
}

func (m *Machine) CurrentID() StateID {
	if m == nil || m.current == nil {
		return ""
	}
	return m.current.ID
}

func (m *Machine) lookup(id StateID) (*State, error) {
	if m == nil {
		return nil, ErrUnknownState
	}
	s, ok := m.states[id]
	if !ok {
		m.logger.Error("functor bound to unregistered state", zap.String("state", string(id)))
		return nil, fmt.Errorf("%w: %s", ErrUnknownState, id)
	}
	return s, nil
}

func (m *Machine) SetUpdate(id StateID, fn UpdateFunc) error {
	s, err := m.lookup(id)
	if err != nil {
		return err
	}
	s.update = fn
	return nil
}

func (m *Machine) SetEnter(id StateID, fn func()) error {
	s, err := m.lookup(id)
	if err != nil {
		return err
	}
	s.onEnter = fn
	return nil
}

func (m *Machine) SetExit(id StateID, fn func()) error {
	s, err := m.lookup(id)
	if err != nil {
		return err
	}
	s.onExit = fn
	return nil
}
