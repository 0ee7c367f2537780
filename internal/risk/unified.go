package risk

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	rerrors "github.com/ducminhle1904/trade-risk-engine/internal/errors"
	"github.com/ducminhle1904/trade-risk-engine/internal/logger"
	"github.com/ducminhle1904/trade-risk-engine/internal/monitoring"
	"github.com/ducminhle1904/trade-risk-engine/internal/portfolio"
	"github.com/ducminhle1904/trade-risk-engine/pkg/types"
)

const defaultSector = "crypto"

// NeutralLPScore is the LP quality score used for pools that were never observed
const NeutralLPScore = 50.0

// Hard limit kinds reported in metrics
const (
	HardLimitTradingLimits  = "limits"
	HardLimitHoneypot       = "honeypot"
	HardLimitOwnerPower     = "owner_power"
	HardLimitPositionSizing = "position_sizing"
)

// Components are the assessors a UnifiedRiskEngine orchestrates. The first five are
// required; nil LP, correlation or market collaborators yield neutral values.
type Components struct {
	TradeRisk      TradeAssessor
	PositionSizing PositionSizer
	Honeypot       TokenAnalyzer
	OwnerPower     ContractMonitor
	Limits         LimitsChecker

	LPQuality   LPQualitySource
	Correlation CorrelationSource
	MarketRisk  MarketRiskAdjuster
}

func (c Components) validate() error {
	var missing []string
	if c.TradeRisk == nil {
		missing = append(missing, "trade risk assessor is required")
	}
	if c.PositionSizing == nil {
		missing = append(missing, "position sizer is required")
	}
	if c.Honeypot == nil {
		missing = append(missing, "honeypot detector is required")
	}
	if c.OwnerPower == nil {
		missing = append(missing, "owner power monitor is required")
	}
	if c.Limits == nil {
		missing = append(missing, "limits enforcer is required")
	}
	return rerrors.Join("unified", "NewUnifiedRiskEngine", missing)
}

// UnifiedRiskEngine combines every assessor into one weighted, hard-limited decision
type UnifiedRiskEngine struct {
	config     UnifiedConfig
	components Components
	log        *logger.Logger
	now        func() time.Time
}

// NewUnifiedRiskEngine creates an engine over the given components
func NewUnifiedRiskEngine(cfg UnifiedConfig, components Components, opts ...Option) (*UnifiedRiskEngine, error) {
	if err := components.validate(); err != nil {
		return nil, err
	}
	o := buildOptions("unified", opts)
	e := &UnifiedRiskEngine{components: components, log: o.log, now: o.now}
	if err := e.UpdateConfig(cfg); err != nil {
		return nil, err
	}
	return e, nil
}

// UpdateConfig validates the weights and normalises them to sum to 1.0
func (e *UnifiedRiskEngine) UpdateConfig(cfg UnifiedConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if sum := cfg.WeightSum(); math.Abs(sum-1) > 1e-9 {
		e.log.Warning("Component weights sum to %.3f, normalising to 1.0", sum)
		cfg = cfg.Normalized()
	}
	e.config = cfg
	return nil
}

// Config returns the active, normalised configuration
func (e *UnifiedRiskEngine) Config() UnifiedConfig {
	return e.config
}

// Components returns the orchestrated assessors
func (e *UnifiedRiskEngine) Components() Components {
	return e.components
}

// UpdateTradeRiskConfig validates and applies a new trade risk configuration
func (e *UnifiedRiskEngine) UpdateTradeRiskConfig(cfg TradeRiskConfig) error {
	return e.components.TradeRisk.UpdateConfig(cfg)
}

// UpdatePositionSizingConfig validates and applies a new position sizing configuration
func (e *UnifiedRiskEngine) UpdatePositionSizingConfig(cfg PositionSizingConfig) error {
	return e.components.PositionSizing.UpdateConfig(cfg)
}

// UpdateHoneypotConfig validates and applies a new honeypot configuration
func (e *UnifiedRiskEngine) UpdateHoneypotConfig(cfg HoneypotConfig) error {
	return e.components.Honeypot.UpdateConfig(cfg)
}

// UpdateOwnerPowerConfig validates and applies a new owner power configuration
func (e *UnifiedRiskEngine) UpdateOwnerPowerConfig(cfg OwnerPowerConfig) error {
	return e.components.OwnerPower.UpdateConfig(cfg)
}

// UpdateLimitsConfig validates and applies new trading limits
func (e *UnifiedRiskEngine) UpdateLimitsConfig(cfg TradingLimitsConfig) error {
	return e.components.Limits.UpdateConfig(cfg)
}

// RecordTrade records an executed trade against the trading limits. Call it once per
// confirmed execution, before the next assessment.
func (e *UnifiedRiskEngine) RecordTrade(activity TradingActivity) error {
	if activity.TradeID == "" {
		activity.TradeID = uuid.NewString()
	}
	if activity.Sector == "" {
		activity.Sector = defaultSector
	}
	return e.components.Limits.RecordTrade(activity)
}

// TradeSizeUSD is the notional of a plan in USD, from its quote or the native price
func TradeSizeUSD(plan *types.TradePlan, state *portfolio.State) float64 {
	if plan.Quote != nil && plan.Quote.AmountInUSD > 0 {
		return plan.Quote.AmountInUSD
	}
	if state == nil {
		return 0
	}
	return plan.AmountInEther() * state.NativePriceUSD
}

// TradeSector is the sector a plan is attributed to for exposure limits
func TradeSector(plan *types.TradePlan) string {
	if plan.Quote != nil && plan.Quote.Sector != "" {
		return plan.Quote.Sector
	}
	return defaultSector
}

// AssessRisk runs every assessor against the plan and combines their results
func (e *UnifiedRiskEngine) AssessRisk(plan *types.TradePlan, state *portfolio.State) (*UnifiedRiskResult, error) {
	if plan == nil {
		return nil, rerrors.NewValidationError("unified", "AssessRisk", "trade plan is nil")
	}
	tradeID := plan.IdemKey
	if tradeID == "" {
		tradeID = uuid.NewString()
	}
	target := types.NormalizeAddress(plan.TokenOut)

	if !e.config.Enabled {
		return &UnifiedRiskResult{
			TradeID:        tradeID,
			OverallScore:   100,
			Allowed:        true,
			Components:     placeholderComponents(target),
			Reasons:        []string{"Unified risk assessment disabled"},
			RiskMultiplier: 1.0,
			AssessedAt:     e.now(),
		}, nil
	}
	if state == nil {
		return nil, rerrors.NewValidationError("unified", "AssessRisk", "portfolio state is required")
	}

	components, err := e.runComponents(tradeID, target, plan, state)
	if err != nil {
		monitoring.RecordError("assessment")
		e.log.LogError("AssessRisk "+tradeID, err)
		return nil, err
	}

	score := e.overallScore(components)
	hardLimits := e.hardLimits(components)
	allowed := len(hardLimits) == 0 && score >= e.config.MinRiskScore

	result := &UnifiedRiskResult{
		TradeID:        tradeID,
		OverallScore:   score,
		Allowed:        allowed,
		Components:     *components,
		Reasons:        e.collectReasons(score, allowed, hardLimits, components),
		RiskMultiplier: components.MarketRisk.Multiplier,
		AssessedAt:     e.now(),
	}

	for _, kind := range hardLimits {
		monitoring.RecordHardLimit(kind)
	}
	monitoring.RecordDecision("unified", allowed)
	monitoring.ObserveOverallScore(score)
	e.log.LogDecision(tradeID, allowed, score, result.Reasons)

	return result, nil
}

func (e *UnifiedRiskEngine) runComponents(tradeID, target string, plan *types.TradePlan, state *portfolio.State) (*RiskComponents, error) {
	c := e.components
	out := &RiskComponents{}

	tradeRisk, err := c.TradeRisk.AssessTradeRisk(plan)
	if err != nil {
		return nil, fmt.Errorf("trade risk: %w", err)
	}
	out.TradeRisk = *tradeRisk

	honeypot, err := c.Honeypot.AnalyzeToken(target)
	if err != nil {
		return nil, fmt.Errorf("honeypot: %w", err)
	}
	out.Honeypot = *honeypot

	sizeUSD := TradeSizeUSD(plan, state)
	expectedPnL := 0.0
	if plan.Quote != nil {
		expectedPnL = plan.Quote.ExpectedPnLUSD
	}
	c.Limits.UpdatePortfolioState(state)
	limits, err := c.Limits.CheckTradeLimits(tradeID, target, TradeSector(plan), sizeUSD, expectedPnL)
	if err != nil {
		return nil, fmt.Errorf("limits: %w", err)
	}
	out.Limits = *limits

	owner, err := c.OwnerPower.MonitorContract(target)
	if err != nil {
		return nil, fmt.Errorf("owner power: %w", err)
	}
	out.OwnerPower = *owner

	sizing, err := c.PositionSizing.AnalyzeTrade(target, sizeUSD, state)
	if err != nil {
		return nil, fmt.Errorf("position sizing: %w", err)
	}
	out.PositionSizing = *sizing

	if c.LPQuality != nil {
		if lp, ok := c.LPQuality.LPMetrics(target); ok {
			out.LPQuality = lp
		}
	}

	if c.Correlation != nil {
		out.Correlation = c.Correlation.Correlate(
			types.NormalizeAddress(plan.TokenIn), target)
	} else {
		out.Correlation = CorrelationResult{Reason: "No correlation source configured"}
	}

	if c.MarketRisk != nil {
		out.MarketRisk = c.MarketRisk.RiskMultiplier(state.CurrentDrawdownPct)
	} else {
		out.MarketRisk = MarketRiskMultiplier{Multiplier: 1.0, Components: []MultiplierComponent{},
			Reason: "No market risk adjuster configured"}
	}

	return out, nil
}

// overallScore is the weighted sum of the normalised component scores
func (e *UnifiedRiskEngine) overallScore(c *RiskComponents) int {
	binary := func(ok bool) float64 {
		if ok {
			return 100
		}
		return 0
	}
	lpScore := NeutralLPScore
	if c.LPQuality != nil {
		lpScore = c.LPQuality.QualityScore
	}
	correlationScore := (1 - math.Abs(c.Correlation.Correlation)) * 100

	cfg := e.config
	weighted := float64(c.TradeRisk.Score)*cfg.DecisionEngineWeight +
		binary(!c.Honeypot.IsHoneypot)*cfg.HoneypotWeight +
		binary(c.Limits.Allowed)*cfg.LimitsWeight +
		binary(!c.OwnerPower.HasExcessivePowers)*cfg.OwnerPowerWeight +
		lpScore*cfg.LPQualityWeight +
		correlationScore*cfg.CorrelationWeight
	return truncScore(weighted)
}

// hardLimits lists the breached limits that deny a trade regardless of its score
func (e *UnifiedRiskEngine) hardLimits(c *RiskComponents) []string {
	var kinds []string
	if !c.Limits.Allowed {
		kinds = append(kinds, HardLimitTradingLimits)
	}
	if c.Honeypot.IsHoneypot {
		kinds = append(kinds, HardLimitHoneypot)
	}
	if c.OwnerPower.HasExcessivePowers {
		kinds = append(kinds, HardLimitOwnerPower)
	}
	if e.config.EnforcePositionSizing && !c.PositionSizing.Allowed {
		kinds = append(kinds, HardLimitPositionSizing)
	}
	return kinds
}

func (e *UnifiedRiskEngine) collectReasons(score int, allowed bool, hardLimits []string, c *RiskComponents) []string {
	reasons := []string{fmt.Sprintf("Overall risk score: %d", score)}

	if len(c.TradeRisk.Reasons) > 0 {
		reasons = append(reasons, "Decision engine: "+strings.Join(c.TradeRisk.Reasons, ", "))
	}
	if c.Honeypot.IsHoneypot {
		reasons = append(reasons, fmt.Sprintf("Honeypot detected with confidence %d", c.Honeypot.Confidence))
	}
	if len(c.Limits.Reasons) > 0 {
		reasons = append(reasons, "Limits check: "+strings.Join(c.Limits.Reasons, ", "))
	}
	if c.OwnerPower.HasExcessivePowers {
		reasons = append(reasons, fmt.Sprintf("Excessive owner powers detected with risk score %d", c.OwnerPower.RiskScore))
	}
	if !c.PositionSizing.Allowed {
		reasons = append(reasons, "Position sizing: "+strings.Join(c.PositionSizing.Reasons, ", "))
	}
	if c.LPQuality != nil && len(c.LPQuality.RiskFlags) > 0 {
		flags := make([]string, len(c.LPQuality.RiskFlags))
		for i, f := range c.LPQuality.RiskFlags {
			flags[i] = string(f)
		}
		reasons = append(reasons, fmt.Sprintf("LP quality issues: [%s]", strings.Join(flags, ", ")))
	}
	if math.Abs(c.Correlation.Correlation) > e.config.HighCorrelationLevel {
		reasons = append(reasons, fmt.Sprintf("High correlation (%.2f) between the traded tokens", c.Correlation.Correlation))
	}

	switch {
	case allowed:
		reasons = append(reasons, "Trade approved based on unified risk assessment")
	case score < e.config.MinRiskScore:
		reasons = append(reasons, fmt.Sprintf("Trade rejected due to low risk score (minimum: %d)", e.config.MinRiskScore))
	default:
		reasons = append(reasons, "Trade rejected by hard limits: "+strings.Join(hardLimits, ", "))
	}
	return reasons
}

func placeholderComponents(target string) RiskComponents {
	return RiskComponents{
		TradeRisk:  RiskAssessment{Score: 100, Factors: []RiskFactor{}, Reasons: []string{}},
		Honeypot:   HoneypotResult{Token: target, Reasons: []string{}, RiskFactors: []HoneypotFactor{}},
		Limits:     LimitCheckResult{Allowed: true, Reasons: []string{}},
		OwnerPower: OwnerPowerResult{Contract: target, Powers: []OwnerPower{}, Reasons: []string{}},
		PositionSizing: SizingResult{
			Allowed:         true,
			MaxPositionSize: math.MaxFloat64,
			Reasons:         []string{},
			Metrics:         SizingMetrics{RiskMultiplier: 1.0},
		},
		Correlation: CorrelationResult{Reason: "Placeholder"},
		MarketRisk:  MarketRiskMultiplier{Multiplier: 1.0, Components: []MultiplierComponent{}, Reason: "Placeholder"},
	}
}
