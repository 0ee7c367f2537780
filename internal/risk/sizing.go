package risk

import (
	"fmt"
	"math"

	rerrors "github.com/ducminhle1904/trade-risk-engine/internal/errors"
	"github.com/ducminhle1904/trade-risk-engine/internal/logger"
	"github.com/ducminhle1904/trade-risk-engine/internal/monitoring"
	"github.com/ducminhle1904/trade-risk-engine/internal/portfolio"
)

// PositionSizingEngine gates trades on portfolio exposure, correlation and position
// count, then bounds their size with the configured sizing method.
type PositionSizingEngine struct {
	config PositionSizingConfig
	log    *logger.Logger
}

// NewPositionSizingEngine creates a sizing engine with a validated config
func NewPositionSizingEngine(cfg PositionSizingConfig, opts ...Option) (*PositionSizingEngine, error) {
	o := buildOptions("position_sizing", opts)
	e := &PositionSizingEngine{log: o.log}
	if err := e.UpdateConfig(cfg); err != nil {
		return nil, err
	}
	return e, nil
}

// UpdateConfig validates and applies a new configuration
func (e *PositionSizingEngine) UpdateConfig(cfg PositionSizingConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.config = cfg
	return nil
}

// Config returns the active configuration
func (e *PositionSizingEngine) Config() PositionSizingConfig {
	return e.config
}

// RiskMultiplier returns the drawdown-driven sizing multiplier for a portfolio
func (e *PositionSizingEngine) RiskMultiplier(state *portfolio.State) float64 {
	if state == nil {
		return 1.0
	}
	return e.multiplierFor(state.CurrentDrawdownPct)
}

func (e *PositionSizingEngine) multiplierFor(drawdownPct float64) float64 {
	da := e.config.DynamicAdjustment
	if !da.Enabled {
		return 1.0
	}
	switch {
	case drawdownPct >= da.DrawdownThresholdPct:
		return da.RiskReductionFactor
	case drawdownPct <= da.RecoveryThresholdPct:
		return 1.0
	default:
		progress := (drawdownPct - da.RecoveryThresholdPct) / (da.DrawdownThresholdPct - da.RecoveryThresholdPct)
		return 1.0 - progress*(1.0-da.RiskReductionFactor)
	}
}

// AnalyzeTrade runs the portfolio checks in order; the first failing check rejects
// the trade with a zero size.
func (e *PositionSizingEngine) AnalyzeTrade(asset string, proposedSize float64, state *portfolio.State) (*SizingResult, error) {
	if !e.config.Enabled {
		return &SizingResult{
			Allowed:          true,
			MaxPositionSize:  math.MaxFloat64,
			RiskAdjustedSize: proposedSize,
			Reasons:          []string{"Position sizing disabled"},
			Metrics:          SizingMetrics{RiskMultiplier: 1.0},
		}, nil
	}
	if state == nil || state.PortfolioValue <= 0 {
		return nil, rerrors.NewValidationError("position_sizing", "AnalyzeTrade", "portfolio value must be positive")
	}
	if proposedSize < 0 || math.IsNaN(proposedSize) {
		return nil, rerrors.NewValidationError("position_sizing", "AnalyzeTrade",
			fmt.Sprintf("proposed size cannot be negative, got %.2f", proposedSize))
	}

	pc := e.config.PortfolioControls
	m := e.multiplierFor(state.CurrentDrawdownPct)
	metrics := SizingMetrics{
		RiskMultiplier:     m,
		PositionVolatility: state.VolatilityOf(asset, 0),
	}
	metrics.RiskContribution = riskContribution(proposedSize, metrics.PositionVolatility, state)

	reject := func(reason string) *SizingResult {
		e.log.Info("Rejected %s: %s", asset, reason)
		monitoring.RecordDecision("position_sizing", false)
		return &SizingResult{Allowed: false, Reasons: []string{reason}, Metrics: metrics}
	}

	metrics.PortfolioExposurePct = pct(state.TotalExposure()+proposedSize, state.PortfolioValue)
	if metrics.PortfolioExposurePct > pc.MaxPortfolioExposurePct {
		return reject(fmt.Sprintf("Portfolio exposure %.2f%% exceeds maximum %.2f%%",
			metrics.PortfolioExposurePct, pc.MaxPortfolioExposurePct)), nil
	}

	metrics.PositionCorrelation = meanCorrelation(asset, state)
	if metrics.PositionCorrelation > pc.MaxPositionCorrelation {
		return reject(fmt.Sprintf("Position correlation %.2f exceeds maximum %.2f",
			metrics.PositionCorrelation, pc.MaxPositionCorrelation)), nil
	}

	if len(state.Positions) >= pc.MaxConcurrentPositions {
		return reject(fmt.Sprintf("Maximum concurrent positions %d reached", pc.MaxConcurrentPositions)), nil
	}

	maxSize, err := e.maxPositionSize(state.PortfolioValue, metrics.PositionVolatility, m)
	if err != nil {
		return nil, err
	}

	monitoring.RecordDecision("position_sizing", true)
	return &SizingResult{
		Allowed:          true,
		MaxPositionSize:  maxSize,
		RiskAdjustedSize: math.Min(proposedSize, maxSize),
		Reasons:          []string{"Trade approved by advanced risk controls"},
		Metrics:          metrics,
	}, nil
}

func (e *PositionSizingEngine) maxPositionSize(value, volatility, m float64) (float64, error) {
	switch method := e.config.Method.SizingMethod.(type) {
	case FixedPercentage:
		return value * method.Percentage / 100 * m, nil
	case VolatilityAdjusted:
		limit := value * method.MaxPositionSizePct / 100
		if volatility > 0 {
			return math.Min(method.TargetVolatility/volatility*value*m, limit), nil
		}
		return limit * m, nil
	case KellyCriterion:
		return math.Min(kellyBaseFraction*method.KellyMultiplier*value*m, value*method.MaxPositionSizePct/100), nil
	case RiskParity:
		return value * method.TargetRiskContribution / 100 * m, nil
	default:
		return 0, rerrors.NewIntegrityError("position_sizing", "AnalyzeTrade",
			fmt.Sprintf("unsupported sizing method %T", method))
	}
}

// meanCorrelation averages the recorded correlation of asset with every open position
func meanCorrelation(asset string, state *portfolio.State) float64 {
	if len(state.Positions) == 0 {
		return 0
	}
	total := 0.0
	for _, p := range state.Positions {
		c, _ := state.Correlation(asset, p.Symbol)
		total += c
	}
	return total / float64(len(state.Positions))
}

// riskContribution is the candidate's size x volatility as a percent of the book's
func riskContribution(size, volatility float64, state *portfolio.State) float64 {
	positionRisk := size * volatility
	if len(state.Positions) == 0 {
		return positionRisk
	}
	total := 0.0
	for _, p := range state.Positions {
		total += p.SizeUSD * state.VolatilityOf(p.Symbol, p.Volatility)
	}
	if total == 0 {
		return 0
	}
	return positionRisk / total * 100
}
