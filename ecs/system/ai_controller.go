package system

import (
	"github.com/milk9111/enemyai/ecs"
	"github.com/milk9111/enemyai/ecs/component"
	"go.uber.org/zap"
)

// AISystem ticks every AI helper through PreSync, Update and PostSync. Bodies
// are authoritative: the helper reads them before it thinks and drives them
// toward its accepted transform afterwards, leaving the move itself to the
// physics step.
type AISystem struct {
	logger *zap.Logger
}

func NewAISystem(logger *zap.Logger) *AISystem {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AISystem{logger: logger.Named("ai_system")}
}

func (s *AISystem) Update(w *ecs.World) {
	dt := w.DT()
	for _, e := range w.Query(component.AIBrainComponent.ID(), component.TransformComponent.ID()) {
		brain, _ := ecs.Get(w, e, component.AIBrainComponent)
		h := brain.Helper
		if h == nil || !h.Initialized() {
			continue
		}

		transform, _ := ecs.Get(w, e, component.TransformComponent)
		body, hasBody := ecs.Get(w, e, component.PhysicsBodyComponent)
		if hasBody && body != nil {
			transform = body.Transform()
		}

		h.PreSync(transform)
		h.Update(dt)

		out := transform
		if hasBody && body != nil {
			h.PostSync(&out)
			kin := h.Kinematic()
			if out.Position == kin.Position {
				body.SetVelocity(kin.Velocity)
			}
			body.SetForward(out.Forward)
		} else {
			out = h.Transform()
		}

		if err := ecs.Add(w, e, component.TransformComponent, out); err != nil {
			s.logger.Error("transform write failed", zap.Stringer("entity", e), zap.Error(err))
		}
	}
}
