package risk

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/trade-risk-engine/pkg/types"
)

// TestAdaptiveAdjustment tests score shifts from realised outcomes
func TestAdaptiveAdjustment(t *testing.T) {
	base := newAssessor(t, DefaultTradeRiskConfig())
	a := NewAdaptiveTradeRiskAssessor(base)

	// 76/70/85/80/100 -> 79
	plan := quotePlan("adaptive-1", types.TradeQuote{PriceImpactPct: 4, SlippagePct: 3, LiquidityUSD: 1500, Hops: 2})

	assessment, err := a.AssessTradeRisk(plan)
	require.NoError(t, err)
	assert.Equal(t, 79, assessment.Score)
	assert.Equal(t, 0, a.Adjustment())

	a.RecordOutcome("t1", -0.2, 80)
	a.RecordOutcome("t2", 0.1, 80)
	assert.Equal(t, -10, a.Adjustment())

	decision, err := a.EvaluateTrade(plan)
	require.NoError(t, err)
	assert.Equal(t, 69, decision.RiskScore)
	assert.False(t, decision.Allow)
	assert.Contains(t, decision.Reasons, "Learning model suggests higher risk")

	a.RecordOutcome("t3", 0.5, 80)
	assert.Equal(t, 5, a.Adjustment())
	assessment, err = a.AssessTradeRisk(plan)
	require.NoError(t, err)
	assert.Equal(t, 84, assessment.Score)
	assert.Contains(t, assessment.Reasons, "Learning model suggests lower risk")
}

// TestAdaptiveHistoryCap tests that only the latest outcomes are kept
func TestAdaptiveHistoryCap(t *testing.T) {
	a := NewAdaptiveTradeRiskAssessor(newAssessor(t, DefaultTradeRiskConfig()))
	for i := 0; i < maxOutcomeHistory+25; i++ {
		a.RecordOutcome(fmt.Sprintf("t%d", i), 0.01, 75)
	}
	outcomes := a.Outcomes()
	require.Len(t, outcomes, maxOutcomeHistory)
	assert.Equal(t, "t25", outcomes[0].TradeID)
	assert.Equal(t, 0, a.Adjustment())
}

// TestAdaptiveDisabled tests that a disabled base is never adjusted
func TestAdaptiveDisabled(t *testing.T) {
	cfg := DefaultTradeRiskConfig()
	cfg.Enabled = false
	a := NewAdaptiveTradeRiskAssessor(newAssessor(t, cfg))
	a.RecordOutcome("t1", -5, 40)

	decision, err := a.EvaluateTrade(quotePlan("adaptive-2", goodQuote()))
	require.NoError(t, err)
	assert.True(t, decision.Allow)
	assert.Equal(t, []string{"Risk checks disabled"}, decision.Reasons)
}
