package component

import "github.com/milk9111/enemyai/ai"

// AIBrain binds an entity to the helper that drives it.
type AIBrain struct {
	Helper *ai.Helper
	Prefab string
	// AcquireRange bounds target acquisition; zero means unlimited.
	AcquireRange float64
}

var AIBrainComponent = NewComponent[AIBrain]()
