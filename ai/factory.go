package ai

import (
	"fmt"

	"go.uber.org/zap"
)

// New builds the helper for kind. Scripted helpers live in ai/script and are
// not built here.
func New(kind string, logger *zap.Logger) (*Helper, error) {
	switch kind {
	case KindTower:
		return NewTower(logger).Helper, nil
	case KindHelix:
		return NewHelix(logger).Helper, nil
	case KindMine:
		return NewMine(logger).Helper, nil
	case KindMothership:
		return NewMothership(logger).Helper, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}
