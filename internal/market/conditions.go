package market

import (
	"fmt"
	"math"
	"time"

	rerrors "github.com/ducminhle1904/trade-risk-engine/internal/errors"
	"github.com/ducminhle1904/trade-risk-engine/internal/logger"
	"github.com/ducminhle1904/trade-risk-engine/internal/risk"
)

// Trend is the direction of the overall market
type Trend string

const (
	TrendBull     Trend = "bull"
	TrendBear     Trend = "bear"
	TrendSideways Trend = "sideways"
)

const (
	maxConditionsHistory = 100
	minRiskMultiplier    = 0.1
)

// ConditionsConfig maps market conditions onto sizing multipliers
type ConditionsConfig struct {
	Enabled                  bool    `json:"enabled"`
	BaseRiskMultiplier       float64 `json:"base_risk_multiplier"`
	DrawdownThresholdPct     float64 `json:"drawdown_threshold_pct"`
	DrawdownMultiplier       float64 `json:"drawdown_multiplier"`
	HighVolatilityMultiplier float64 `json:"high_volatility_multiplier"`
	LowVolatilityMultiplier  float64 `json:"low_volatility_multiplier"`
	HighVolatilityThreshold  float64 `json:"high_volatility_threshold"` // multiple of normal
	LowVolatilityThreshold   float64 `json:"low_volatility_threshold"`  // multiple of normal
	BullMarketMultiplier     float64 `json:"bull_market_multiplier"`
	BearMarketMultiplier     float64 `json:"bear_market_multiplier"`
	SidewaysMarketMultiplier float64 `json:"sideways_market_multiplier"`
	LowLiquidityMultiplier   float64 `json:"low_liquidity_multiplier"`
	HighLiquidityMultiplier  float64 `json:"high_liquidity_multiplier"`
	TrendDistanceThreshold   float64 `json:"trend_distance_threshold"`
}

// DefaultConditionsConfig returns default market condition multipliers
func DefaultConditionsConfig() ConditionsConfig {
	return ConditionsConfig{
		Enabled:                  true,
		BaseRiskMultiplier:       1.0,
		DrawdownThresholdPct:     5.0,
		DrawdownMultiplier:       0.5,
		HighVolatilityMultiplier: 0.7,
		LowVolatilityMultiplier:  1.2,
		HighVolatilityThreshold:  1.5,
		LowVolatilityThreshold:   0.7,
		BullMarketMultiplier:     1.1,
		BearMarketMultiplier:     0.8,
		SidewaysMarketMultiplier: 0.9,
		LowLiquidityMultiplier:   0.8,
		HighLiquidityMultiplier:  1.1,
		TrendDistanceThreshold:   0.005, // 0.5% between fast and slow averages
	}
}

// Validate checks that multipliers are positive and thresholds ordered
func (c ConditionsConfig) Validate() error {
	var problems []string
	multipliers := []struct {
		name  string
		value float64
	}{
		{"base_risk_multiplier", c.BaseRiskMultiplier},
		{"drawdown_multiplier", c.DrawdownMultiplier},
		{"high_volatility_multiplier", c.HighVolatilityMultiplier},
		{"low_volatility_multiplier", c.LowVolatilityMultiplier},
		{"bull_market_multiplier", c.BullMarketMultiplier},
		{"bear_market_multiplier", c.BearMarketMultiplier},
		{"sideways_market_multiplier", c.SidewaysMarketMultiplier},
		{"low_liquidity_multiplier", c.LowLiquidityMultiplier},
		{"high_liquidity_multiplier", c.HighLiquidityMultiplier},
	}
	for _, m := range multipliers {
		if m.value <= 0 {
			problems = append(problems, fmt.Sprintf("%s must be positive, got %.2f", m.name, m.value))
		}
	}
	if c.LowVolatilityThreshold >= c.HighVolatilityThreshold {
		problems = append(problems, fmt.Sprintf("low_volatility_threshold %.2f must be below high_volatility_threshold %.2f",
			c.LowVolatilityThreshold, c.HighVolatilityThreshold))
	}
	if c.DrawdownThresholdPct < 0 || c.DrawdownThresholdPct > 100 {
		problems = append(problems, fmt.Sprintf("drawdown_threshold_pct must be in [0,100], got %.2f", c.DrawdownThresholdPct))
	}
	if c.TrendDistanceThreshold < 0 {
		problems = append(problems, "trend_distance_threshold cannot be negative")
	}
	return rerrors.Join("market_conditions", "Validate", problems)
}

var _ risk.MarketRiskAdjuster = (*ConditionAdjuster)(nil)

// Conditions is a snapshot of market volatility, trend and liquidity
type Conditions struct {
	Volatility       float64   `json:"volatility"`
	NormalVolatility float64   `json:"normal_volatility"`
	Trend            Trend     `json:"trend"`
	Liquidity        float64   `json:"liquidity"`
	NormalLiquidity  float64   `json:"normal_liquidity"`
	Timestamp        time.Time `json:"timestamp"`
}

// ConditionAdjuster turns the latest market conditions and the portfolio drawdown
// into an advisory sizing multiplier
type ConditionAdjuster struct {
	config  ConditionsConfig
	history []Conditions
	log     *logger.Logger
	now     func() time.Time
}

func NewConditionAdjuster(cfg ConditionsConfig, opts ...Option) (*ConditionAdjuster, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions("market_conditions", opts)
	return &ConditionAdjuster{config: cfg, log: o.log, now: o.now}, nil
}

func (a *ConditionAdjuster) UpdateConfig(cfg ConditionsConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.config = cfg
	return nil
}

func (a *ConditionAdjuster) Config() ConditionsConfig {
	return a.config
}

// UpdateConditions records a snapshot, keeping the most recent 100
func (a *ConditionAdjuster) UpdateConditions(c Conditions) {
	if c.Timestamp.IsZero() {
		c.Timestamp = a.now()
	}
	if c.Trend == "" {
		c.Trend = TrendSideways
	}
	a.history = append(a.history, c)
	if over := len(a.history) - maxConditionsHistory; over > 0 {
		a.history = append([]Conditions(nil), a.history[over:]...)
	}
}

// UpdateFromPrices records a snapshot whose trend is classified from a price series
func (a *ConditionAdjuster) UpdateFromPrices(prices []float64, c Conditions) {
	c.Trend = ClassifyTrend(prices, 12, 26, a.config.TrendDistanceThreshold)
	a.UpdateConditions(c)
}

func (a *ConditionAdjuster) History() []Conditions {
	return append([]Conditions(nil), a.history...)
}

// RiskMultiplier multiplies the drawdown, volatility, trend and liquidity factors of
// the latest snapshot, floored at 0.1
func (a *ConditionAdjuster) RiskMultiplier(drawdownPct float64) risk.MarketRiskMultiplier {
	cfg := a.config
	if !cfg.Enabled {
		return risk.MarketRiskMultiplier{
			Multiplier: cfg.BaseRiskMultiplier,
			Components: []risk.MultiplierComponent{},
			Reason:     "Market condition risk adjustment disabled",
		}
	}
	if len(a.history) == 0 {
		return risk.MarketRiskMultiplier{
			Multiplier: cfg.BaseRiskMultiplier,
			Components: []risk.MultiplierComponent{},
			Reason:     "No market conditions data available",
		}
	}
	current := a.history[len(a.history)-1]

	components := []risk.MultiplierComponent{}
	total := cfg.BaseRiskMultiplier
	apply := func(factor string, value float64, description string) {
		components = append(components, risk.MultiplierComponent{Factor: factor, Value: value, Description: description})
		total *= value
	}

	if drawdownPct >= cfg.DrawdownThresholdPct {
		apply("PortfolioDrawdown", cfg.DrawdownMultiplier,
			fmt.Sprintf("Portfolio drawdown %.2f%% exceeds threshold %.2f%%", drawdownPct, cfg.DrawdownThresholdPct))
	}

	volRatio := ratio(current.Volatility, current.NormalVolatility)
	switch {
	case volRatio >= cfg.HighVolatilityThreshold:
		apply("HighVolatility", cfg.HighVolatilityMultiplier, fmt.Sprintf("High volatility %.2fx normal detected", volRatio))
	case volRatio <= cfg.LowVolatilityThreshold:
		apply("LowVolatility", cfg.LowVolatilityMultiplier, fmt.Sprintf("Low volatility %.2fx normal detected", volRatio))
	default:
		apply("NormalVolatility", 1.0, fmt.Sprintf("Normal volatility %.2fx normal", volRatio))
	}

	switch current.Trend {
	case TrendBull:
		apply("BullMarket", cfg.BullMarketMultiplier, "Bull market conditions detected")
	case TrendBear:
		apply("BearMarket", cfg.BearMarketMultiplier, "Bear market conditions detected")
	default:
		apply("SidewaysMarket", cfg.SidewaysMarketMultiplier, "Sideways market conditions detected")
	}

	liqRatio := ratio(current.Liquidity, current.NormalLiquidity)
	switch {
	case liqRatio < 0.5:
		apply("LowLiquidity", cfg.LowLiquidityMultiplier, fmt.Sprintf("Low liquidity %.2fx normal detected", liqRatio))
	case liqRatio > 2.0:
		apply("HighLiquidity", cfg.HighLiquidityMultiplier, fmt.Sprintf("High liquidity %.2fx normal detected", liqRatio))
	default:
		apply("NormalLiquidity", 1.0, fmt.Sprintf("Normal liquidity %.2fx normal", liqRatio))
	}

	total = math.Max(total, minRiskMultiplier)
	a.log.Debug("Market risk multiplier %.3f from %d factors", total, len(components))

	return risk.MarketRiskMultiplier{
		Multiplier: total,
		Components: components,
		Reason:     "Market condition-based risk multiplier calculated",
	}
}

// ratio treats a missing baseline as normal conditions
func ratio(value, normal float64) float64 {
	if normal <= 0 {
		return 1.0
	}
	return value / normal
}

// ClassifyTrend compares fast and slow exponential averages of a price series. A gap
// wider than threshold, relative to the last price, is a bull or bear trend.
func ClassifyTrend(prices []float64, fastPeriod, slowPeriod int, threshold float64) Trend {
	if len(prices) == 0 {
		return TrendSideways
	}
	fast, okFast := ema(prices, fastPeriod)
	slow, okSlow := ema(prices, slowPeriod)
	last := prices[len(prices)-1]
	if !okFast || !okSlow || last <= 0 {
		return TrendSideways
	}
	distance := (fast - slow) / last
	switch {
	case distance > threshold:
		return TrendBull
	case distance < -threshold:
		return TrendBear
	default:
		return TrendSideways
	}
}
