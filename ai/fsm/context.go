package fsm

import (
	"fmt"

	"go.uber.org/zap"
)

// SetContext attaches a behavior-specific payload to a state.
func (m *Machine) SetContext(id StateID, v any) error {
	s, err := m.lookup(id)
	if err != nil {
		return err
	}
	s.context = v
	return nil
}

// ContextOf returns the payload stored on state id when it has type T. A
// payload of another type is a wiring error and is logged.
func ContextOf[T any](m *Machine, id StateID) (T, bool) {
	var zero T
	if m == nil {
		return zero, false
	}
	s, ok := m.states[id]
	if !ok || s.context == nil {
		return zero, false
	}
	v, ok := s.context.(T)
	if !ok {
		m.logger.Error("state context has unexpected type",
			zap.String("state", string(id)),
			zap.String("type", fmt.Sprintf("%T", s.context)))
		return zero, false
	}
	return v, true
}
