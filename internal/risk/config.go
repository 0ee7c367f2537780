package risk

import (
	"fmt"
	"math"
	"time"

	rerrors "github.com/ducminhle1904/trade-risk-engine/internal/errors"
)

// TradeRiskConfig configures the per-trade factor assessor
type TradeRiskConfig struct {
	Enabled        bool         `json:"enabled"`
	MaxPriceImpact float64      `json:"max_price_impact"` // percent
	MaxSlippage    float64      `json:"max_slippage"`     // percent
	MinLiquidity   float64      `json:"min_liquidity"`    // USD
	MaxHops        int          `json:"max_hops"`
	CustomRules    []CustomRule `json:"custom_rules"`
}

// CustomRule adjusts the custom-rules factor by ScoreImpact when Condition holds
type CustomRule struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Condition   string `json:"condition"` // e.g. "hops > 2"; empty applies always
	ScoreImpact int    `json:"score_impact"`
}

// DefaultTradeRiskConfig returns default trade risk configuration
func DefaultTradeRiskConfig() TradeRiskConfig {
	return TradeRiskConfig{
		Enabled:        true,
		MaxPriceImpact: 5.0,    // 5% price impact
		MaxSlippage:    3.0,    // 3% slippage
		MinLiquidity:   1000.0, // $1000 minimum liquidity
		MaxHops:        3,
		CustomRules:    []CustomRule{},
	}
}

// Validate checks thresholds and custom rule syntax
func (c TradeRiskConfig) Validate() error {
	var problems []string
	if c.MaxPriceImpact <= 0 || c.MaxPriceImpact > 100 {
		problems = append(problems, fmt.Sprintf("max_price_impact must be in (0,100], got %.2f", c.MaxPriceImpact))
	}
	if c.MaxSlippage <= 0 || c.MaxSlippage > 100 {
		problems = append(problems, fmt.Sprintf("max_slippage must be in (0,100], got %.2f", c.MaxSlippage))
	}
	if c.MinLiquidity <= 0 {
		problems = append(problems, fmt.Sprintf("min_liquidity must be positive, got %.2f", c.MinLiquidity))
	}
	if c.MaxHops < 1 {
		problems = append(problems, fmt.Sprintf("max_hops must be at least 1, got %d", c.MaxHops))
	}
	for i, rule := range c.CustomRules {
		if err := rule.Validate(); err != nil {
			problems = append(problems, fmt.Sprintf("custom_rules[%d]: %v", i, err))
		}
	}
	return rerrors.Join("trade_risk", "Validate", problems)
}

// Validate checks the score impact range and condition syntax
func (r CustomRule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if r.ScoreImpact < -100 || r.ScoreImpact > 100 {
		return fmt.Errorf("score_impact must be in [-100,100], got %d", r.ScoreImpact)
	}
	if _, err := parseCondition(r.Condition); err != nil {
		return err
	}
	return nil
}

// PositionSizingConfig configures portfolio-level sizing controls
type PositionSizingConfig struct {
	Enabled           bool                  `json:"enabled"`
	Method            SizingMethodConfig    `json:"position_sizing"`
	PortfolioControls PortfolioRiskControls `json:"portfolio_controls"`
	DynamicAdjustment DynamicRiskAdjustment `json:"dynamic_adjustment"`
}

// PortfolioRiskControls are the short-circuiting portfolio checks
type PortfolioRiskControls struct {
	MaxPortfolioExposurePct float64 `json:"max_portfolio_exposure_pct"`
	MaxPositionCorrelation  float64 `json:"max_position_correlation"`
	MaxConcurrentPositions  int     `json:"max_concurrent_positions"`
}

// DynamicRiskAdjustment scales sizing down while in drawdown
type DynamicRiskAdjustment struct {
	Enabled              bool    `json:"enabled"`
	DrawdownThresholdPct float64 `json:"drawdown_threshold_pct"`
	RiskReductionFactor  float64 `json:"risk_reduction_factor"`
	RecoveryThresholdPct float64 `json:"recovery_threshold_pct"`
}

// DefaultPositionSizingConfig returns default sizing configuration
func DefaultPositionSizingConfig() PositionSizingConfig {
	return PositionSizingConfig{
		Enabled: true,
		Method:  SizingMethodConfig{FixedPercentage{Percentage: 2.0}}, // 2% of portfolio
		PortfolioControls: PortfolioRiskControls{
			MaxPortfolioExposurePct: 80.0,
			MaxPositionCorrelation:  0.7,
			MaxConcurrentPositions:  10,
		},
		DynamicAdjustment: DynamicRiskAdjustment{
			Enabled:              true,
			DrawdownThresholdPct: 5.0,
			RiskReductionFactor:  0.5,
			RecoveryThresholdPct: 1.0,
		},
	}
}

// Validate checks the sizing method and control thresholds
func (c PositionSizingConfig) Validate() error {
	var problems []string
	if c.Method.SizingMethod == nil {
		problems = append(problems, "position_sizing method is required")
	} else if err := c.Method.SizingMethod.validate(); err != nil {
		problems = append(problems, err.Error())
	}

	pc := c.PortfolioControls
	if pc.MaxPortfolioExposurePct <= 0 {
		problems = append(problems, fmt.Sprintf("max_portfolio_exposure_pct must be positive, got %.2f", pc.MaxPortfolioExposurePct))
	}
	if pc.MaxPositionCorrelation < -1 || pc.MaxPositionCorrelation > 1 {
		problems = append(problems, fmt.Sprintf("max_position_correlation must be in [-1,1], got %.2f", pc.MaxPositionCorrelation))
	}
	if pc.MaxConcurrentPositions < 1 {
		problems = append(problems, fmt.Sprintf("max_concurrent_positions must be at least 1, got %d", pc.MaxConcurrentPositions))
	}

	da := c.DynamicAdjustment
	if da.Enabled {
		if da.RiskReductionFactor <= 0 || da.RiskReductionFactor > 1 {
			problems = append(problems, fmt.Sprintf("risk_reduction_factor must be in (0,1], got %.2f", da.RiskReductionFactor))
		}
		if !validPercent(da.DrawdownThresholdPct) || !validPercent(da.RecoveryThresholdPct) {
			problems = append(problems, "drawdown thresholds must be in [0,100]")
		}
		if da.RecoveryThresholdPct >= da.DrawdownThresholdPct {
			problems = append(problems, fmt.Sprintf("recovery_threshold_pct %.2f must be below drawdown_threshold_pct %.2f",
				da.RecoveryThresholdPct, da.DrawdownThresholdPct))
		}
	}
	return rerrors.Join("position_sizing", "Validate", problems)
}

// HoneypotConfig configures the honeypot detector
type HoneypotConfig struct {
	Enabled                      bool    `json:"enabled"`
	MinLiquidityRatio            float64 `json:"min_liquidity_ratio"`
	MaxNormalPriceImpact         float64 `json:"max_normal_price_impact"`        // percent
	MinTransactionCount          int     `json:"min_transaction_count"`
	AnalysisWindowSeconds        int64   `json:"analysis_window_seconds"`
	TransferFeeThreshold         float64 `json:"transfer_fee_threshold"`         // percent
	BalanceModificationThreshold float64 `json:"balance_modification_threshold"` // percent
	CacheTTLSeconds              int64   `json:"cache_ttl_seconds"`
}

// DefaultHoneypotConfig returns default honeypot detection configuration
func DefaultHoneypotConfig() HoneypotConfig {
	return HoneypotConfig{
		Enabled:                      true,
		MinLiquidityRatio:            0.1,  // sell liquidity at least 10% of buy liquidity
		MaxNormalPriceImpact:         5.0,  // 5%
		MinTransactionCount:          10,
		AnalysisWindowSeconds:        3600, // 1 hour
		TransferFeeThreshold:         10.0, // 10%
		BalanceModificationThreshold: 50.0, // 50%
		CacheTTLSeconds:              300,  // 5 minutes
	}
}

func (c HoneypotConfig) AnalysisWindow() time.Duration {
	return time.Duration(c.AnalysisWindowSeconds) * time.Second
}

func (c HoneypotConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Validate checks thresholds
func (c HoneypotConfig) Validate() error {
	var problems []string
	if c.MinLiquidityRatio <= 0 {
		problems = append(problems, fmt.Sprintf("min_liquidity_ratio must be positive, got %.2f", c.MinLiquidityRatio))
	}
	if c.MaxNormalPriceImpact <= 0 || c.MaxNormalPriceImpact > 100 {
		problems = append(problems, fmt.Sprintf("max_normal_price_impact must be in (0,100], got %.2f", c.MaxNormalPriceImpact))
	}
	if c.MinTransactionCount < 1 {
		problems = append(problems, "min_transaction_count must be at least 1")
	}
	if c.AnalysisWindowSeconds <= 0 {
		problems = append(problems, "analysis_window_seconds must be positive")
	}
	if c.TransferFeeThreshold <= 0 || c.TransferFeeThreshold > 100 {
		problems = append(problems, fmt.Sprintf("transfer_fee_threshold must be in (0,100], got %.2f", c.TransferFeeThreshold))
	}
	if c.BalanceModificationThreshold <= 0 || c.BalanceModificationThreshold > 100 {
		problems = append(problems, fmt.Sprintf("balance_modification_threshold must be in (0,100], got %.2f", c.BalanceModificationThreshold))
	}
	if c.CacheTTLSeconds < 0 {
		problems = append(problems, "cache_ttl_seconds cannot be negative")
	}
	return rerrors.Join("honeypot", "Validate", problems)
}

// OwnerPowerConfig configures the owner power monitor
type OwnerPowerConfig struct {
	Enabled                   bool    `json:"enabled"`
	BalanceChangeThresholdPct float64 `json:"balance_change_threshold_pct"`
	MintCapabilityThreshold   float64 `json:"mint_capability_threshold"` // fraction of supply
	BurnCapabilityThreshold   float64 `json:"burn_capability_threshold"` // fraction of supply
	AlertOnPause              bool    `json:"pause_capability_threshold"`
	AlertOnUpgrade            bool    `json:"upgrade_capability_threshold"`
	MonitoringWindowSeconds   int64   `json:"monitoring_window_seconds"`
	MinTransactionCount       int     `json:"min_transaction_count"`
	CacheTTLSeconds           int64   `json:"cache_ttl_seconds"`
}

// DefaultOwnerPowerConfig returns default owner power configuration
func DefaultOwnerPowerConfig() OwnerPowerConfig {
	return OwnerPowerConfig{
		Enabled:                   true,
		BalanceChangeThresholdPct: 5.0,
		MintCapabilityThreshold:   0.1, // 10% of total supply
		BurnCapabilityThreshold:   0.1,
		AlertOnPause:              true,
		AlertOnUpgrade:            true,
		MonitoringWindowSeconds:   3600,
		MinTransactionCount:       10,
		CacheTTLSeconds:           300,
	}
}

func (c OwnerPowerConfig) MonitoringWindow() time.Duration {
	return time.Duration(c.MonitoringWindowSeconds) * time.Second
}

func (c OwnerPowerConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Validate checks thresholds
func (c OwnerPowerConfig) Validate() error {
	var problems []string
	if c.BalanceChangeThresholdPct <= 0 || c.BalanceChangeThresholdPct > 100 {
		problems = append(problems, fmt.Sprintf("balance_change_threshold_pct must be in (0,100], got %.2f", c.BalanceChangeThresholdPct))
	}
	if c.MintCapabilityThreshold <= 0 || c.MintCapabilityThreshold > 1 {
		problems = append(problems, fmt.Sprintf("mint_capability_threshold must be in (0,1], got %.2f", c.MintCapabilityThreshold))
	}
	if c.BurnCapabilityThreshold <= 0 || c.BurnCapabilityThreshold > 1 {
		problems = append(problems, fmt.Sprintf("burn_capability_threshold must be in (0,1], got %.2f", c.BurnCapabilityThreshold))
	}
	if c.MonitoringWindowSeconds <= 0 {
		problems = append(problems, "monitoring_window_seconds must be positive")
	}
	if c.MinTransactionCount < 1 {
		problems = append(problems, "min_transaction_count must be at least 1")
	}
	if c.CacheTTLSeconds < 0 {
		problems = append(problems, "cache_ttl_seconds cannot be negative")
	}
	return rerrors.Join("owner_power", "Validate", problems)
}

// TradingLimitsConfig configures the daily trading ceilings
type TradingLimitsConfig struct {
	Enabled              bool    `json:"enabled"`
	MaxPositionSizeUSD   float64 `json:"max_position_size_usd"`
	MaxPositionSizePct   float64 `json:"max_position_size_pct"`
	MaxDailyVolumeUSD    float64 `json:"max_daily_volume_usd"`
	MaxTradesPerDay      int     `json:"max_trades_per_day"`
	MaxDailyLossUSD      float64 `json:"max_daily_loss_usd"`
	MaxDailyLossPct      float64 `json:"max_daily_loss_pct"`
	MaxAssetExposurePct  float64 `json:"max_asset_exposure_pct"`
	MaxSectorExposurePct float64 `json:"max_sector_exposure_pct"`
	TimeWindowSeconds    int64   `json:"time_window_seconds"`
}

// DefaultTradingLimitsConfig returns default trading limits
func DefaultTradingLimitsConfig() TradingLimitsConfig {
	return TradingLimitsConfig{
		Enabled:              true,
		MaxPositionSizeUSD:   10000.0,  // $10,000 per trade
		MaxPositionSizePct:   5.0,      // 5% of portfolio per trade
		MaxDailyVolumeUSD:    100000.0, // $100,000 per day
		MaxTradesPerDay:      50,
		MaxDailyLossUSD:      5000.0, // $5,000 per day
		MaxDailyLossPct:      2.0,    // 2% of portfolio per day
		MaxAssetExposurePct:  10.0,
		MaxSectorExposurePct: 20.0,
		TimeWindowSeconds:    86400, // 24 hours
	}
}

func (c TradingLimitsConfig) TimeWindow() time.Duration {
	return time.Duration(c.TimeWindowSeconds) * time.Second
}

// Validate checks that every ceiling is positive and percentages are in range
func (c TradingLimitsConfig) Validate() error {
	var problems []string
	positive := map[string]float64{
		"max_position_size_usd": c.MaxPositionSizeUSD,
		"max_daily_volume_usd":  c.MaxDailyVolumeUSD,
		"max_daily_loss_usd":    c.MaxDailyLossUSD,
	}
	for _, name := range []string{"max_position_size_usd", "max_daily_volume_usd", "max_daily_loss_usd"} {
		if positive[name] <= 0 {
			problems = append(problems, fmt.Sprintf("%s must be positive, got %.2f", name, positive[name]))
		}
	}
	percents := []struct {
		name  string
		value float64
	}{
		{"max_position_size_pct", c.MaxPositionSizePct},
		{"max_daily_loss_pct", c.MaxDailyLossPct},
		{"max_asset_exposure_pct", c.MaxAssetExposurePct},
		{"max_sector_exposure_pct", c.MaxSectorExposurePct},
	}
	for _, p := range percents {
		if p.value <= 0 || p.value > 100 {
			problems = append(problems, fmt.Sprintf("%s must be in (0,100], got %.2f", p.name, p.value))
		}
	}
	if c.MaxTradesPerDay < 1 {
		problems = append(problems, "max_trades_per_day must be at least 1")
	}
	if c.TimeWindowSeconds <= 0 {
		problems = append(problems, "time_window_seconds must be positive")
	}
	return rerrors.Join("limits", "Validate", problems)
}

// UnifiedConfig weights each component in the overall score
type UnifiedConfig struct {
	Enabled               bool    `json:"enabled"`
	DecisionEngineWeight  float64 `json:"decision_engine_weight"`
	HoneypotWeight        float64 `json:"honeypot_weight"`
	LimitsWeight          float64 `json:"limits_weight"`
	OwnerPowerWeight      float64 `json:"owner_power_weight"`
	LPQualityWeight       float64 `json:"lp_quality_weight"`
	CorrelationWeight     float64 `json:"correlation_weight"`
	MinRiskScore          int     `json:"min_risk_score"`
	EnforcePositionSizing bool    `json:"enforce_position_sizing"`
	HighCorrelationLevel  float64 `json:"high_correlation_level"`
}

// DefaultUnifiedConfig returns default unified engine configuration
func DefaultUnifiedConfig() UnifiedConfig {
	return UnifiedConfig{
		Enabled:              true,
		DecisionEngineWeight: 0.3,
		HoneypotWeight:       0.2,
		LimitsWeight:         0.2,
		OwnerPowerWeight:     0.1,
		LPQualityWeight:      0.1,
		CorrelationWeight:    0.1,
		MinRiskScore:         70,
		HighCorrelationLevel: 0.7,
	}
}

func (c UnifiedConfig) weights() []float64 {
	return []float64{c.DecisionEngineWeight, c.HoneypotWeight, c.LimitsWeight,
		c.OwnerPowerWeight, c.LPQualityWeight, c.CorrelationWeight}
}

// WeightSum returns the sum of all component weights
func (c UnifiedConfig) WeightSum() float64 {
	total := 0.0
	for _, w := range c.weights() {
		total += w
	}
	return total
}

// Validate rejects negative weights, an all-zero weight set and out-of-range thresholds
func (c UnifiedConfig) Validate() error {
	var problems []string
	for _, w := range c.weights() {
		if w < 0 || math.IsNaN(w) {
			problems = append(problems, fmt.Sprintf("weights cannot be negative, got %.3f", w))
			break
		}
	}
	if c.WeightSum() <= 0 {
		problems = append(problems, "at least one weight must be positive")
	}
	if c.MinRiskScore < 0 || c.MinRiskScore > 100 {
		problems = append(problems, fmt.Sprintf("min_risk_score must be in [0,100], got %d", c.MinRiskScore))
	}
	if c.HighCorrelationLevel < 0 || c.HighCorrelationLevel > 1 {
		problems = append(problems, fmt.Sprintf("high_correlation_level must be in [0,1], got %.2f", c.HighCorrelationLevel))
	}
	return rerrors.Join("unified", "Validate", problems)
}

// Normalized returns a copy whose weights sum to 1.0
func (c UnifiedConfig) Normalized() UnifiedConfig {
	sum := c.WeightSum()
	if sum <= 0 || math.Abs(sum-1) < 1e-9 {
		return c
	}
	c.DecisionEngineWeight /= sum
	c.HoneypotWeight /= sum
	c.LimitsWeight /= sum
	c.OwnerPowerWeight /= sum
	c.LPQualityWeight /= sum
	c.CorrelationWeight /= sum
	return c
}

func validPercent(v float64) bool {
	return v >= 0 && v <= 100
}
