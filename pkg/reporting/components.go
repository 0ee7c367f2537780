package reporting

import (
	"fmt"
	"math"
	"strings"

	"github.com/ducminhle1904/trade-risk-engine/internal/risk"
)

// ComponentBreakdown lists the normalised score each component contributed to a decision.
// Weights are taken from cfg after normalisation.
func ComponentBreakdown(result *risk.UnifiedRiskResult, cfg risk.UnifiedConfig) []ComponentRow {
	c := result.Components
	w := cfg.Normalized()

	binary := func(ok bool) float64 {
		if ok {
			return 100
		}
		return 0
	}

	lpScore, lpDetail := risk.NeutralLPScore, "no pool data"
	if c.LPQuality != nil {
		lpScore = c.LPQuality.QualityScore
		lpDetail = fmt.Sprintf("liquidity $%.0f, flags %s", c.LPQuality.TotalLiquidity, joinFlags(c.LPQuality.RiskFlags))
	}

	return []ComponentRow{
		{
			Component: "decision_engine",
			Score:     float64(c.TradeRisk.Score),
			Weight:    w.DecisionEngineWeight,
			Passed:    c.TradeRisk.Score >= risk.MinAcceptableScore,
			Detail:    strings.Join(c.TradeRisk.Reasons, ", "),
		},
		{
			Component: "honeypot",
			Score:     binary(!c.Honeypot.IsHoneypot),
			Weight:    w.HoneypotWeight,
			Passed:    !c.Honeypot.IsHoneypot,
			Detail:    fmt.Sprintf("confidence %d", c.Honeypot.Confidence),
		},
		{
			Component: "limits",
			Score:     binary(c.Limits.Allowed),
			Weight:    w.LimitsWeight,
			Passed:    c.Limits.Allowed,
			Detail:    strings.Join(c.Limits.Reasons, ", "),
		},
		{
			Component: "owner_power",
			Score:     binary(!c.OwnerPower.HasExcessivePowers),
			Weight:    w.OwnerPowerWeight,
			Passed:    !c.OwnerPower.HasExcessivePowers,
			Detail:    fmt.Sprintf("risk score %d, %d powers", c.OwnerPower.RiskScore, len(c.OwnerPower.Powers)),
		},
		{
			Component: "lp_quality",
			Score:     lpScore,
			Weight:    w.LPQualityWeight,
			Passed:    lpScore >= risk.NeutralLPScore,
			Detail:    lpDetail,
		},
		{
			Component: "correlation",
			Score:     (1 - math.Abs(c.Correlation.Correlation)) * 100,
			Weight:    w.CorrelationWeight,
			Passed:    math.Abs(c.Correlation.Correlation) <= cfg.HighCorrelationLevel,
			Detail:    fmt.Sprintf("%.2f (%s)", c.Correlation.Correlation, c.Correlation.Reason),
		},
		{
			Component: "position_sizing",
			Score:     binary(c.PositionSizing.Allowed),
			Passed:    c.PositionSizing.Allowed,
			Detail:    sizingDetail(c.PositionSizing),
		},
	}
}

func sizingDetail(s risk.SizingResult) string {
	if s.MaxPositionSize == math.MaxFloat64 {
		return "unbounded"
	}
	return fmt.Sprintf("max $%.2f, risk adjusted $%.2f", s.MaxPositionSize, s.RiskAdjustedSize)
}

func joinFlags(flags []risk.LPRiskFlag) string {
	if len(flags) == 0 {
		return "none"
	}
	parts := make([]string, len(flags))
	for i, f := range flags {
		parts[i] = string(f)
	}
	return strings.Join(parts, "|")
}

func verdict(allowed bool) string {
	if allowed {
		return "ALLOW"
	}
	return "DENY"
}
