package risk

import (
	"fmt"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rerrors "github.com/ducminhle1904/trade-risk-engine/internal/errors"
	"github.com/ducminhle1904/trade-risk-engine/internal/portfolio"
	"github.com/ducminhle1904/trade-risk-engine/pkg/types"
)

type stubTradeAssessor struct {
	assessment RiskAssessment
	calls      int
}

func (s *stubTradeAssessor) AssessTradeRisk(*types.TradePlan) (*RiskAssessment, error) {
	s.calls++
	a := s.assessment
	a.Reasons = append([]string(nil), s.assessment.Reasons...)
	return &a, nil
}

func (s *stubTradeAssessor) UpdateConfig(TradeRiskConfig) error { return nil }

type stubLP struct {
	metrics *LPQualityMetrics
}

func (s stubLP) LPMetrics(string) (*LPQualityMetrics, bool) {
	return s.metrics, s.metrics != nil
}

type stubCorrelation float64

func (s stubCorrelation) Correlate(string, string) CorrelationResult {
	return CorrelationResult{Correlation: float64(s), Confidence: 1, Reason: "stub"}
}

type stubMarket float64

func (s stubMarket) RiskMultiplier(float64) MarketRiskMultiplier {
	return MarketRiskMultiplier{Multiplier: float64(s), Reason: "stub"}
}

type engineFixture struct {
	clock    *testClock
	trade    *stubTradeAssessor
	honeypot *HoneypotDetector
	owner    *OwnerPowerMonitor
	limits   *TradingLimitsEnforcer
	engine   *UnifiedRiskEngine
}

func newFixture(t *testing.T, cfg UnifiedConfig, tradeScore int, extra Components) *engineFixture {
	t.Helper()
	f := &engineFixture{
		clock: newTestClock(),
		trade: &stubTradeAssessor{assessment: RiskAssessment{
			Score:   tradeScore,
			Factors: []RiskFactor{},
			Reasons: []string{"Moderate risk trade"},
		}},
	}
	clock := WithClock(f.clock.Now)

	var err error
	f.honeypot, err = NewHoneypotDetector(DefaultHoneypotConfig(), clock)
	require.NoError(t, err)
	f.owner, err = NewOwnerPowerMonitor(DefaultOwnerPowerConfig(), clock)
	require.NoError(t, err)
	f.limits, err = NewTradingLimitsEnforcer(DefaultTradingLimitsConfig(), nil, clock)
	require.NoError(t, err)
	sizing, err := NewPositionSizingEngine(DefaultPositionSizingConfig())
	require.NoError(t, err)

	extra.TradeRisk = f.trade
	extra.Honeypot = f.honeypot
	extra.OwnerPower = f.owner
	extra.Limits = f.limits
	extra.PositionSizing = sizing

	f.engine, err = NewUnifiedRiskEngine(cfg, extra, clock)
	require.NoError(t, err)
	return f
}

func reasonWithPrefix(reasons []string, prefix string) string {
	for _, r := range reasons {
		if strings.HasPrefix(r, prefix) {
			return r
		}
	}
	return ""
}

// TestWeightedOverallScore tests the weighted combination of component scores
func TestWeightedOverallScore(t *testing.T) {
	f := newFixture(t, DefaultUnifiedConfig(), 80, Components{
		LPQuality:   stubLP{&LPQualityMetrics{QualityScore: 90}},
		Correlation: stubCorrelation(0.3),
		MarketRisk:  stubMarket(0.8),
	})

	result, err := f.engine.AssessRisk(quotePlan("unified-1", goodQuote()), emptyPortfolio())
	require.NoError(t, err)

	// 24 + 20 + 20 + 10 + 9 + 7
	assert.Equal(t, 90, result.OverallScore)
	assert.True(t, result.Allowed)
	assert.Equal(t, 0.8, result.RiskMultiplier)
	assert.Equal(t, "unified-1", result.TradeID)
	assert.Equal(t, []string{
		"Overall risk score: 90",
		"Decision engine: Moderate risk trade",
		"Trade approved based on unified risk assessment",
	}, result.Reasons)
	assert.Equal(t, types.NormalizeAddress(tokenAddr), result.Components.Honeypot.Token)
	assert.Equal(t, f.clock.Now(), result.AssessedAt)
}

// TestWeightNormalisation tests that weights are scaled to sum to one
func TestWeightNormalisation(t *testing.T) {
	cfg := DefaultUnifiedConfig()
	cfg.DecisionEngineWeight *= 2
	cfg.HoneypotWeight *= 2
	cfg.LimitsWeight *= 2
	cfg.OwnerPowerWeight *= 2
	cfg.LPQualityWeight *= 2
	cfg.CorrelationWeight *= 2

	f := newFixture(t, cfg, 80, Components{
		LPQuality:   stubLP{&LPQualityMetrics{QualityScore: 90}},
		Correlation: stubCorrelation(-0.3),
	})
	assert.InDelta(t, 1.0, f.engine.Config().WeightSum(), 1e-9)
	assert.InDelta(t, 0.3, f.engine.Config().DecisionEngineWeight, 1e-9)

	result, err := f.engine.AssessRisk(quotePlan("unified-2", goodQuote()), emptyPortfolio())
	require.NoError(t, err)
	assert.Equal(t, 90, result.OverallScore)

	bad := DefaultUnifiedConfig()
	bad.HoneypotWeight = -0.1
	assert.True(t, rerrors.IsConfiguration(f.engine.UpdateConfig(bad)))

	zero := DefaultUnifiedConfig()
	zero.DecisionEngineWeight, zero.HoneypotWeight, zero.LimitsWeight = 0, 0, 0
	zero.OwnerPowerWeight, zero.LPQualityWeight, zero.CorrelationWeight = 0, 0, 0
	assert.Error(t, f.engine.UpdateConfig(zero))
}

// TestHoneypotOverridesScore tests that a honeypot denies a trade despite a passing score
func TestHoneypotOverridesScore(t *testing.T) {
	f := newFixture(t, DefaultUnifiedConfig(), 100, Components{})
	f.honeypot.AddLiquiditySample(tokenAddr, TokenLiquidity{BuyLiquidity: 1000, SellLiquidity: 20})

	result, err := f.engine.AssessRisk(quotePlan("unified-3", goodQuote()), emptyPortfolio())
	require.NoError(t, err)

	// 30 + 0 + 20 + 10 + 5 + 10
	assert.Equal(t, 75, result.OverallScore)
	assert.False(t, result.Allowed)
	assert.Contains(t, result.Reasons, "Honeypot detected with confidence 80")
	assert.Equal(t, "Trade rejected by hard limits: honeypot", result.Reasons[len(result.Reasons)-1])
}

// TestLimitsOverrideScore tests that a limit breach denies a trade
func TestLimitsOverrideScore(t *testing.T) {
	f := newFixture(t, DefaultUnifiedConfig(), 100, Components{})
	q := goodQuote()
	q.AmountInUSD = 15000

	result, err := f.engine.AssessRisk(quotePlan("unified-4", q), emptyPortfolio())
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.GreaterOrEqual(t, result.OverallScore, 70)
	assert.Contains(t, reasonWithPrefix(result.Reasons, "Limits check: "), "exceeds maximum $10000.00")
	assert.Equal(t, 0, f.limits.DailyUsage().TradeCount)
}

// TestExistingHoldingCountsTowardLimits tests that positions keyed by a lowercase
// address count toward the exposure of the checksummed target token
func TestExistingHoldingCountsTowardLimits(t *testing.T) {
	f := newFixture(t, DefaultUnifiedConfig(), 100, Components{})
	state := emptyPortfolio()
	state.Positions = []portfolio.Position{
		{Symbol: tokenAddr, Sector: "crypto", SizeUSD: 9500},
		{Symbol: wethAddr, Sector: "crypto", SizeUSD: 500},
	}
	state.Volatility = map[string]float64{tokenAddr: 0.8}
	state.Correlations = map[string]map[string]float64{tokenAddr: {wethAddr: 0.6}}

	q := goodQuote()
	q.AmountInUSD = 2000
	result, err := f.engine.AssessRisk(quotePlan("unified-held", q), state)
	require.NoError(t, err)

	assert.InDelta(t, 11.5, result.Components.Limits.Usage.AssetExposurePct, 1e-9)
	assert.False(t, result.Components.Limits.Allowed)
	assert.False(t, result.Allowed)
	assert.Contains(t, reasonWithPrefix(result.Reasons, "Limits check: "), "Asset exposure 11.50% exceeds maximum 10.00%")
	assert.Equal(t, "Trade rejected by hard limits: limits", result.Reasons[len(result.Reasons)-1])

	metrics := result.Components.PositionSizing.Metrics
	assert.Equal(t, 0.8, metrics.PositionVolatility)
	assert.InDelta(t, 0.3, metrics.PositionCorrelation, 1e-9)
}

// TestOwnerPowersOverrideScore tests that excessive owner powers deny a trade
func TestOwnerPowersOverrideScore(t *testing.T) {
	f := newFixture(t, DefaultUnifiedConfig(), 100, Components{})
	f.owner.UpdateContractProfile(tokenAddr, ContractProfile{CanPause: true})

	result, err := f.engine.AssessRisk(quotePlan("unified-5", goodQuote()), emptyPortfolio())
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Contains(t, result.Reasons, "Excessive owner powers detected with risk score 80")
}

// TestPositionSizingEnforcement tests that sizing is advisory unless enforced
func TestPositionSizingEnforcement(t *testing.T) {
	state := emptyPortfolio()
	for i := 0; i < 10; i++ {
		state.Positions = append(state.Positions, portfolio.Position{Symbol: fmt.Sprintf("T%d", i), Sector: "other", SizeUSD: 100})
	}

	f := newFixture(t, DefaultUnifiedConfig(), 100, Components{})
	result, err := f.engine.AssessRisk(quotePlan("unified-6", goodQuote()), state)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Contains(t, result.Reasons, "Position sizing: Maximum concurrent positions 10 reached")

	cfg := DefaultUnifiedConfig()
	cfg.EnforcePositionSizing = true
	require.NoError(t, f.engine.UpdateConfig(cfg))
	result, err = f.engine.AssessRisk(quotePlan("unified-7", goodQuote()), state)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, "Trade rejected by hard limits: position_sizing", result.Reasons[len(result.Reasons)-1])
}

// TestLowScoreRejected tests the soft threshold and reason formatting
func TestLowScoreRejected(t *testing.T) {
	f := newFixture(t, DefaultUnifiedConfig(), 20, Components{
		LPQuality:   stubLP{&LPQualityMetrics{QualityScore: 0, RiskFlags: []LPRiskFlag{LPFlagLowLiquidity, LPFlagNewLP}}},
		Correlation: stubCorrelation(0.9),
	})

	result, err := f.engine.AssessRisk(quotePlan("unified-8", goodQuote()), emptyPortfolio())
	require.NoError(t, err)
	// 6 + 20 + 20 + 10 + 0 + 1
	assert.Equal(t, 57, result.OverallScore)
	assert.False(t, result.Allowed)
	assert.Contains(t, result.Reasons, "LP quality issues: [low_liquidity, new_lp]")
	assert.Contains(t, result.Reasons, "High correlation (0.90) between the traded tokens")
	assert.Equal(t, "Trade rejected due to low risk score (minimum: 70)", result.Reasons[len(result.Reasons)-1])
}

// TestUnifiedDisabled tests that a disabled engine skips every assessor
func TestUnifiedDisabled(t *testing.T) {
	cfg := DefaultUnifiedConfig()
	cfg.Enabled = false
	f := newFixture(t, cfg, 0, Components{})

	result, err := f.engine.AssessRisk(quotePlan("unified-9", goodQuote()), nil)
	require.NoError(t, err)
	assert.Equal(t, 100, result.OverallScore)
	assert.True(t, result.Allowed)
	assert.Equal(t, 1.0, result.RiskMultiplier)
	assert.Equal(t, []string{"Unified risk assessment disabled"}, result.Reasons)
	assert.Equal(t, "Placeholder", result.Components.Correlation.Reason)
	assert.Equal(t, 100, result.Components.TradeRisk.Score)
	assert.Equal(t, 0, f.trade.calls)
}

// TestTradeSizeFromNativePrice tests the notional fallback without a USD quote
func TestTradeSizeFromNativePrice(t *testing.T) {
	f := newFixture(t, DefaultUnifiedConfig(), 100, Components{})
	q := goodQuote()
	q.AmountInUSD = 0
	plan := quotePlan("", q)
	plan.AmountIn = new(big.Int).Mul(big.NewInt(2), big.NewInt(1e18))

	result, err := f.engine.AssessRisk(plan, emptyPortfolio())
	require.NoError(t, err)
	assert.Equal(t, 4000.0, result.Components.Limits.Usage.DailyVolumeUSD)
	assert.NotEmpty(t, result.TradeID)

	_, err = f.engine.AssessRisk(plan, nil)
	assert.True(t, rerrors.IsValidation(err))
	_, err = f.engine.AssessRisk(nil, emptyPortfolio())
	assert.True(t, rerrors.IsValidation(err))
}

// TestScoresStayInRange tests score bounds across component outcomes
func TestScoresStayInRange(t *testing.T) {
	for _, tradeScore := range []int{0, 35, 70, 100} {
		for _, corr := range []float64{-1, 0, 0.5, 1} {
			f := newFixture(t, DefaultUnifiedConfig(), tradeScore, Components{Correlation: stubCorrelation(corr)})
			result, err := f.engine.AssessRisk(quotePlan("range", goodQuote()), emptyPortfolio())
			require.NoError(t, err)
			assert.GreaterOrEqual(t, result.OverallScore, 0)
			assert.LessOrEqual(t, result.OverallScore, 100)
		}
	}
}

// TestAssessmentsAreIdempotent tests that repeated calls on unchanged state return equal results
func TestAssessmentsAreIdempotent(t *testing.T) {
	f := newFixture(t, DefaultUnifiedConfig(), 85, Components{
		Correlation: stubCorrelation(0.4),
		MarketRisk:  stubMarket(0.9),
	})
	f.honeypot.AddLiquiditySample(tokenAddr, TokenLiquidity{BuyLiquidity: 1000, SellLiquidity: 900})
	f.owner.UpdateContractProfile(wethAddr, ContractProfile{CanUpgrade: true})

	state := emptyPortfolio()
	state.Positions = []portfolio.Position{{Symbol: wethAddr, Sector: "crypto", SizeUSD: 3000}}
	f.limits.UpdatePortfolioState(state)
	sizing := f.engine.Components().PositionSizing

	tests := []struct {
		name  string
		run   func() (interface{}, error)
		reset func()
	}{
		{
			name: "AssessRisk",
			run: func() (interface{}, error) {
				return f.engine.AssessRisk(quotePlan("idem", goodQuote()), state)
			},
		},
		{
			name: "AssessRisk without idempotency key",
			run: func() (interface{}, error) {
				r, err := f.engine.AssessRisk(quotePlan("", goodQuote()), state)
				if err != nil {
					return nil, err
				}
				r.TradeID = ""
				return r, nil
			},
		},
		{
			name: "CheckTradeLimits",
			run: func() (interface{}, error) {
				return f.limits.CheckTradeLimits("limits-idem", wethAddr, "crypto", 1000, 0)
			},
		},
		{
			name: "AnalyzeTrade",
			run: func() (interface{}, error) {
				return sizing.AnalyzeTrade(tokenAddr, 1000, state)
			},
		},
		{
			name: "AnalyzeToken",
			run: func() (interface{}, error) {
				return f.honeypot.AnalyzeToken(tokenAddr)
			},
			reset: f.honeypot.ClearCache,
		},
		{
			name: "MonitorContract",
			run: func() (interface{}, error) {
				return f.owner.MonitorContract(wethAddr)
			},
			reset: f.owner.ClearCache,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, err := tt.run()
			require.NoError(t, err)
			second, err := tt.run()
			require.NoError(t, err)
			assert.Equal(t, first, second)

			if tt.reset != nil {
				tt.reset()
				recomputed, err := tt.run()
				require.NoError(t, err)
				assert.Equal(t, first, recomputed)
			}
		})
	}

	limits, err := f.limits.CheckTradeLimits("limits-idem", wethAddr, "crypto", 1000, 0)
	require.NoError(t, err)
	assert.True(t, limits.Allowed)
	assert.Equal(t, 0, f.limits.DailyUsage().TradeCount)

	owner, err := f.owner.MonitorContract(wethAddr)
	require.NoError(t, err)
	assert.True(t, owner.HasExcessivePowers)
}

// TestMissingComponents tests constructor validation
func TestMissingComponents(t *testing.T) {
	_, err := NewUnifiedRiskEngine(DefaultUnifiedConfig(), Components{})
	require.Error(t, err)
	assert.True(t, rerrors.IsConfiguration(err))
}

// TestGuardSerialisesAccess tests shared use of one engine by several workers
func TestGuardSerialisesAccess(t *testing.T) {
	f := newFixture(t, DefaultUnifiedConfig(), 100, Components{})
	guard := NewGuard(f.engine)

	const workers, perWorker = 8, 10
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := fmt.Sprintf("w%d-%d", w, i)
				_, err := guard.AssessRisk(quotePlan(id, goodQuote()), emptyPortfolio())
				assert.NoError(t, err)
				assert.NoError(t, guard.RecordTrade(TradingActivity{TradeID: id, Asset: "ETH", SizeUSD: 10}))
			}
		}(w)
	}
	wg.Wait()

	var usage DailyUsage
	require.NoError(t, guard.Do(func(e *UnifiedRiskEngine) error {
		usage = e.Components().Limits.(*TradingLimitsEnforcer).DailyUsage()
		return nil
	}))
	assert.Equal(t, workers*perWorker, usage.TradeCount)
	assert.InDelta(t, 800.0, usage.VolumeUSD, 1e-9)
}
