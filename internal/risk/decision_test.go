package risk

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rerrors "github.com/ducminhle1904/trade-risk-engine/internal/errors"
	"github.com/ducminhle1904/trade-risk-engine/pkg/types"
)

func newAssessor(t *testing.T, cfg TradeRiskConfig) *TradeRiskAssessor {
	t.Helper()
	a, err := NewTradeRiskAssessor(cfg)
	require.NoError(t, err)
	return a
}

func factorScores(a *RiskAssessment) map[string]int {
	out := make(map[string]int, len(a.Factors))
	for _, f := range a.Factors {
		out[f.Name] = f.Score
	}
	return out
}

// TestExcellentTradeScoresFullMarks tests a trade inside every excellent band
func TestExcellentTradeScoresFullMarks(t *testing.T) {
	a := newAssessor(t, DefaultTradeRiskConfig())
	plan := quotePlan("trade-1", types.TradeQuote{
		PriceImpactPct: 2.5, // exactly half of max
		SlippagePct:    1.5,
		LiquidityUSD:   2000,
		Hops:           1,
	})

	assessment, err := a.AssessTradeRisk(plan)
	require.NoError(t, err)
	for name, score := range factorScores(assessment) {
		assert.Equal(t, 100, score, name)
	}
	assert.Equal(t, 100, assessment.Score)
	assert.Equal(t, []string{"Low risk trade"}, assessment.Reasons)

	decision, err := a.EvaluateTrade(plan)
	require.NoError(t, err)
	assert.True(t, decision.Allow)
	assert.Equal(t, 100, decision.RiskScore)
	assert.Contains(t, decision.Reasons, "Risk score acceptable: 100")
}

// TestDegradedFactors tests the linear bands and the weighted average
func TestDegradedFactors(t *testing.T) {
	a := newAssessor(t, DefaultTradeRiskConfig())
	plan := quotePlan("trade-2", types.TradeQuote{
		PriceImpactPct: 4.0,  // r=0.8 -> 76
		SlippagePct:    3.0,  // r=1.0 -> 70
		LiquidityUSD:   1500, // -> 85
		Hops:           2,    // r=0.67 -> 80
	})

	assessment, err := a.AssessTradeRisk(plan)
	require.NoError(t, err)

	scores := factorScores(assessment)
	assert.Equal(t, 76, scores["Price Impact"])
	assert.Equal(t, 70, scores["Slippage"])
	assert.Equal(t, 85, scores["Liquidity"])
	assert.Equal(t, 80, scores["Complexity"])
	assert.Equal(t, 100, scores["Custom Rules"])

	// 22.8 + 17.5 + 21.25 + 8 + 10 = 79.55
	assert.Equal(t, 79, assessment.Score)
	assert.Equal(t, []string{"Moderate risk trade"}, assessment.Reasons)
}

// TestHighRiskTradeIsDenied tests factor reasons and the deny path
func TestHighRiskTradeIsDenied(t *testing.T) {
	a := newAssessor(t, DefaultTradeRiskConfig())
	plan := quotePlan("trade-3", types.TradeQuote{
		PriceImpactPct: 10,
		SlippagePct:    6,
		LiquidityUSD:   200,
		Hops:           5,
	})

	decision, err := a.EvaluateTrade(plan)
	require.NoError(t, err)
	assert.False(t, decision.Allow)
	assert.Less(t, decision.RiskScore, MinAcceptableScore)
	assert.Contains(t, decision.Reasons, "High price impact detected")
	assert.Contains(t, decision.Reasons, "High slippage detected")
	assert.Contains(t, decision.Reasons, "Insufficient liquidity")
	assert.Contains(t, decision.Reasons, "High trade complexity")
	assert.Contains(t, decision.Reasons, "High risk trade")
	assert.Contains(t, decision.Reasons[len(decision.Reasons)-1], "Risk score too low")
}

// TestCustomRules tests that matching rules lower the custom factor
func TestCustomRules(t *testing.T) {
	cfg := DefaultTradeRiskConfig()
	cfg.CustomRules = []CustomRule{
		{Name: "mempool", Condition: "mode == mempool", ScoreImpact: -80},
		{Name: "multi-hop", Condition: "hops > 1 && liquidity < 100000", ScoreImpact: -40},
	}
	a := newAssessor(t, cfg)

	plan := quotePlan("trade-4", goodQuote())
	assessment, err := a.AssessTradeRisk(plan)
	require.NoError(t, err)
	assert.Equal(t, 100, factorScores(assessment)["Custom Rules"])

	plan.Mode = types.ExecModeMempool
	assessment, err = a.AssessTradeRisk(plan)
	require.NoError(t, err)
	assert.Equal(t, 20, factorScores(assessment)["Custom Rules"])
	assert.Contains(t, assessment.Reasons, "Custom risk rules triggered")

	plan.Quote.Hops = 2
	assessment, err = a.AssessTradeRisk(plan)
	require.NoError(t, err)
	assert.Equal(t, 0, factorScores(assessment)["Custom Rules"])

	require.NoError(t, a.AddCustomRule(CustomRule{Name: "bonus", ScoreImpact: 100}))
	assessment, err = a.AssessTradeRisk(plan)
	require.NoError(t, err)
	assert.Equal(t, 80, factorScores(assessment)["Custom Rules"])
}

// TestCustomRuleValidation tests that malformed rules never reach the assessor
func TestCustomRuleValidation(t *testing.T) {
	a := newAssessor(t, DefaultTradeRiskConfig())

	err := a.AddCustomRule(CustomRule{Name: "bad", Condition: "gas_price > 5", ScoreImpact: -10})
	require.Error(t, err)
	assert.True(t, rerrors.IsConfiguration(err))

	err = a.AddCustomRule(CustomRule{Name: "too big", ScoreImpact: -101})
	require.Error(t, err)
	assert.Empty(t, a.Config().CustomRules)
}

// TestFallbackEstimation tests scoring when no quote is attached
func TestFallbackEstimation(t *testing.T) {
	a := newAssessor(t, DefaultTradeRiskConfig())
	plan := quotePlan("trade-5", goodQuote())
	plan.Quote = nil
	plan.AmountIn = big.NewInt(1e18)

	assessment, err := a.AssessTradeRisk(plan)
	require.NoError(t, err)
	scores := factorScores(assessment)
	assert.Equal(t, 100, scores["Price Impact"]) // 0.5%
	assert.Equal(t, 100, scores["Slippage"])     // 0.6%
	assert.Equal(t, 100, scores["Liquidity"])    // $5000
	assert.Equal(t, 80, scores["Complexity"])    // 2 hops
	assert.Equal(t, 98, assessment.Score)
}

// TestDisabledAssessor tests the permissive disabled result
func TestDisabledAssessor(t *testing.T) {
	cfg := DefaultTradeRiskConfig()
	cfg.Enabled = false
	a := newAssessor(t, cfg)

	plan := quotePlan("trade-6", types.TradeQuote{PriceImpactPct: 90, LiquidityUSD: 1})
	decision, err := a.EvaluateTrade(plan)
	require.NoError(t, err)
	assert.True(t, decision.Allow)
	assert.Equal(t, []string{"Risk checks disabled"}, decision.Reasons)

	assessment, err := a.AssessTradeRisk(plan)
	require.NoError(t, err)
	assert.Equal(t, 100, assessment.Score)
}

// TestAssessmentCache tests idempotency key caching and explicit clearing
func TestAssessmentCache(t *testing.T) {
	a := newAssessor(t, DefaultTradeRiskConfig())
	plan := quotePlan("trade-7", goodQuote())

	first, err := a.EvaluateTrade(plan)
	require.NoError(t, err)
	second, err := a.EvaluateTrade(plan)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	cached, err := a.CachedAssessment("trade-7")
	require.NoError(t, err)
	assert.Equal(t, first.RiskScore, cached.Score)

	// mutating the returned copy leaves the cache intact
	cached.Reasons[0] = "tampered"
	again, err := a.CachedAssessment("trade-7")
	require.NoError(t, err)
	assert.NotEqual(t, "tampered", again.Reasons[0])

	a.ClearCache()
	_, err = a.CachedAssessment("trade-7")
	assert.True(t, rerrors.IsNotFound(err))
}

// TestUpdateConfigRejectsInvalid tests that bad configs are not applied
func TestUpdateConfigRejectsInvalid(t *testing.T) {
	a := newAssessor(t, DefaultTradeRiskConfig())
	bad := DefaultTradeRiskConfig()
	bad.MaxPriceImpact = 150

	err := a.UpdateConfig(bad)
	require.Error(t, err)
	assert.True(t, rerrors.IsConfiguration(err))
	assert.Equal(t, 5.0, a.Config().MaxPriceImpact)

	_, err = a.AssessTradeRisk(nil)
	assert.True(t, rerrors.IsValidation(err))
}
