package risk

import (
	"encoding/json"
	"fmt"
)

// SizingMethod is one of FixedPercentage, VolatilityAdjusted, KellyCriterion or RiskParity.
// The unexported methods keep the set closed to this package.
type SizingMethod interface {
	Name() string
	validate() error
}

// FixedPercentage sizes at a fixed percent of portfolio value
type FixedPercentage struct {
	Percentage float64
}

// VolatilityAdjusted sizes inversely to asset volatility, capped at MaxPositionSizePct
type VolatilityAdjusted struct {
	TargetVolatility   float64
	MaxPositionSizePct float64
}

// KellyCriterion applies a fractional Kelly bet, capped at MaxPositionSizePct
type KellyCriterion struct {
	KellyMultiplier    float64
	MaxPositionSizePct float64
}

// RiskParity sizes to a target percent risk contribution
type RiskParity struct {
	TargetRiskContribution float64
}

const (
	methodFixedPercentage    = "fixed_percentage"
	methodVolatilityAdjusted = "volatility_adjusted"
	methodKellyCriterion     = "kelly_criterion"
	methodRiskParity         = "risk_parity"
)

// kellyBaseFraction is the edge/odds fraction used until win-rate statistics are wired in
const kellyBaseFraction = 0.1

func (FixedPercentage) Name() string    { return methodFixedPercentage }
func (VolatilityAdjusted) Name() string { return methodVolatilityAdjusted }
func (KellyCriterion) Name() string     { return methodKellyCriterion }
func (RiskParity) Name() string         { return methodRiskParity }

func (m FixedPercentage) validate() error {
	if m.Percentage <= 0 || m.Percentage > 100 {
		return fmt.Errorf("fixed_percentage percentage must be in (0,100], got %.2f", m.Percentage)
	}
	return nil
}

func (m VolatilityAdjusted) validate() error {
	if m.TargetVolatility <= 0 {
		return fmt.Errorf("volatility_adjusted target_volatility must be positive, got %.4f", m.TargetVolatility)
	}
	if m.MaxPositionSizePct <= 0 || m.MaxPositionSizePct > 100 {
		return fmt.Errorf("volatility_adjusted max_position_size_pct must be in (0,100], got %.2f", m.MaxPositionSizePct)
	}
	return nil
}

func (m KellyCriterion) validate() error {
	if m.KellyMultiplier <= 0 {
		return fmt.Errorf("kelly_criterion kelly_multiplier must be positive, got %.2f", m.KellyMultiplier)
	}
	if m.MaxPositionSizePct <= 0 || m.MaxPositionSizePct > 100 {
		return fmt.Errorf("kelly_criterion max_position_size_pct must be in (0,100], got %.2f", m.MaxPositionSizePct)
	}
	return nil
}

func (m RiskParity) validate() error {
	if m.TargetRiskContribution <= 0 || m.TargetRiskContribution > 100 {
		return fmt.Errorf("risk_parity target_risk_contribution must be in (0,100], got %.2f", m.TargetRiskContribution)
	}
	return nil
}

// SizingMethodConfig carries a SizingMethod through JSON as a tagged object
type SizingMethodConfig struct {
	SizingMethod
}

type sizingMethodJSON struct {
	Method                 string  `json:"method"`
	Percentage             float64 `json:"percentage,omitempty"`
	TargetVolatility       float64 `json:"target_volatility,omitempty"`
	MaxPositionSizePct     float64 `json:"max_position_size_pct,omitempty"`
	KellyMultiplier        float64 `json:"kelly_multiplier,omitempty"`
	TargetRiskContribution float64 `json:"target_risk_contribution,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (c SizingMethodConfig) MarshalJSON() ([]byte, error) {
	var out sizingMethodJSON
	switch m := c.SizingMethod.(type) {
	case FixedPercentage:
		out = sizingMethodJSON{Method: methodFixedPercentage, Percentage: m.Percentage}
	case VolatilityAdjusted:
		out = sizingMethodJSON{Method: methodVolatilityAdjusted, TargetVolatility: m.TargetVolatility, MaxPositionSizePct: m.MaxPositionSizePct}
	case KellyCriterion:
		out = sizingMethodJSON{Method: methodKellyCriterion, KellyMultiplier: m.KellyMultiplier, MaxPositionSizePct: m.MaxPositionSizePct}
	case RiskParity:
		out = sizingMethodJSON{Method: methodRiskParity, TargetRiskContribution: m.TargetRiskContribution}
	case nil:
		return []byte("null"), nil
	default:
		return nil, fmt.Errorf("unknown sizing method %T", m)
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler
func (c *SizingMethodConfig) UnmarshalJSON(data []byte) error {
	var in sizingMethodJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.Method {
	case methodFixedPercentage:
		c.SizingMethod = FixedPercentage{Percentage: in.Percentage}
	case methodVolatilityAdjusted:
		c.SizingMethod = VolatilityAdjusted{TargetVolatility: in.TargetVolatility, MaxPositionSizePct: in.MaxPositionSizePct}
	case methodKellyCriterion:
		c.SizingMethod = KellyCriterion{KellyMultiplier: in.KellyMultiplier, MaxPositionSizePct: in.MaxPositionSizePct}
	case methodRiskParity:
		c.SizingMethod = RiskParity{TargetRiskContribution: in.TargetRiskContribution}
	default:
		return fmt.Errorf("unknown sizing method %q", in.Method)
	}
	return nil
}
