package risk

import (
	"github.com/ducminhle1904/trade-risk-engine/internal/portfolio"
	"github.com/ducminhle1904/trade-risk-engine/pkg/types"
)

// TradeAssessor scores the execution quality of a single trade plan
type TradeAssessor interface {
	AssessTradeRisk(plan *types.TradePlan) (*RiskAssessment, error)
	UpdateConfig(cfg TradeRiskConfig) error
}

// PositionSizer applies portfolio-level sizing controls
type PositionSizer interface {
	AnalyzeTrade(asset string, proposedSize float64, state *portfolio.State) (*SizingResult, error)
	UpdateConfig(cfg PositionSizingConfig) error
}

// TokenAnalyzer detects honeypot tokens
type TokenAnalyzer interface {
	AnalyzeToken(token string) (*HoneypotResult, error)
	UpdateConfig(cfg HoneypotConfig) error
}

// ContractMonitor detects excessive owner privileges
type ContractMonitor interface {
	MonitorContract(contract string) (*OwnerPowerResult, error)
	UpdateConfig(cfg OwnerPowerConfig) error
}

// LimitsChecker enforces rolling trading ceilings
type LimitsChecker interface {
	CheckTradeLimits(tradeID, asset, sector string, sizeUSD, expectedPnL float64) (*LimitCheckResult, error)
	RecordTrade(activity TradingActivity) error
	UpdatePortfolioState(state *portfolio.State)
	UpdateConfig(cfg TradingLimitsConfig) error
}

// LPQualitySource provides liquidity pool quality scores, when known
type LPQualitySource interface {
	LPMetrics(lpAddress string) (*LPQualityMetrics, bool)
}

// CorrelationSource correlates the two sides of a trade
type CorrelationSource interface {
	Correlate(assetA, assetB string) CorrelationResult
}

// MarketRiskAdjuster turns market conditions into an advisory sizing multiplier
type MarketRiskAdjuster interface {
	RiskMultiplier(drawdownPct float64) MarketRiskMultiplier
}

// TradeMetrics are the execution metrics a trade plan is scored on
type TradeMetrics struct {
	PriceImpactPct float64 `json:"price_impact_pct"`
	SlippagePct    float64 `json:"slippage_pct"`
	LiquidityUSD   float64 `json:"liquidity_usd"`
	Hops           int     `json:"hops"`
}

// TradeMetricsEstimator derives TradeMetrics for a plan without network access
type TradeMetricsEstimator interface {
	Estimate(plan *types.TradePlan) TradeMetrics
}

// QuoteEstimator uses the plan's attached quote, falling back to a size-based
// simulation when the planner did not attach one.
type QuoteEstimator struct {
	// FallbackLiquidityUSD and FallbackHops apply when no quote is attached
	FallbackLiquidityUSD float64
	FallbackHops         int
}

// NewQuoteEstimator returns the default estimator
func NewQuoteEstimator() QuoteEstimator {
	return QuoteEstimator{FallbackLiquidityUSD: 5000, FallbackHops: 2}
}

// Estimate implements TradeMetricsEstimator
func (e QuoteEstimator) Estimate(plan *types.TradePlan) TradeMetrics {
	if q := plan.Quote; q != nil {
		return TradeMetrics{
			PriceImpactPct: q.PriceImpactPct,
			SlippagePct:    q.SlippagePct,
			LiquidityUSD:   q.LiquidityUSD,
			Hops:           q.Hops,
		}
	}
	// 0.5% impact per whole native token, slippage tracking impact at 1.2x
	impact := plan.AmountInEther() * 0.5
	return TradeMetrics{
		PriceImpactPct: impact,
		SlippagePct:    impact * 1.2,
		LiquidityUSD:   e.FallbackLiquidityUSD,
		Hops:           e.FallbackHops,
	}
}
