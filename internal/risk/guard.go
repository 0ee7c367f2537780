package risk

import (
	"sync"

	"github.com/ducminhle1904/trade-risk-engine/internal/portfolio"
	"github.com/ducminhle1904/trade-risk-engine/pkg/types"
)

// Guard serialises access to a UnifiedRiskEngine so several evaluation workers can
// share it. The engine itself holds unsynchronised caches and counters.
type Guard struct {
	mu     sync.Mutex
	engine *UnifiedRiskEngine
}

// NewGuard wraps an engine
func NewGuard(engine *UnifiedRiskEngine) *Guard {
	return &Guard{engine: engine}
}

// AssessRisk runs one assessment under the lock
func (g *Guard) AssessRisk(plan *types.TradePlan, state *portfolio.State) (*UnifiedRiskResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.engine.AssessRisk(plan, state)
}

// RecordTrade records an executed trade under the lock
func (g *Guard) RecordTrade(activity TradingActivity) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.engine.RecordTrade(activity)
}

// Do runs fn with exclusive access to the engine, for multi-step sequences such as
// feeding observations and then assessing.
func (g *Guard) Do(fn func(e *UnifiedRiskEngine) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn(g.engine)
}
