package risk

import (
	"fmt"
	"time"

	rerrors "github.com/ducminhle1904/trade-risk-engine/internal/errors"
	"github.com/ducminhle1904/trade-risk-engine/internal/logger"
	"github.com/ducminhle1904/trade-risk-engine/internal/monitoring"
	"github.com/ducminhle1904/trade-risk-engine/pkg/types"
)

const maxOutcomeHistory = 1000

// TradeOutcome is the realised result of a previously assessed trade
type TradeOutcome struct {
	TradeID   string    `json:"trade_id"`
	PnL       float64   `json:"pnl"` // return as a fraction of the trade size
	RiskScore int       `json:"risk_score"`
	Timestamp time.Time `json:"timestamp"`
}

// AdaptiveTradeRiskAssessor shifts trade scores by the average realised return of recent
// outcomes: a negative average lowers scores by 10, one above 5% raises them by 5.
type AdaptiveTradeRiskAssessor struct {
	base     *TradeRiskAssessor
	outcomes []TradeOutcome
	log      *logger.Logger
	now      func() time.Time
}

// NewAdaptiveTradeRiskAssessor wraps an existing assessor
func NewAdaptiveTradeRiskAssessor(base *TradeRiskAssessor, opts ...Option) *AdaptiveTradeRiskAssessor {
	o := buildOptions("adaptive_trade_risk", opts)
	return &AdaptiveTradeRiskAssessor{base: base, log: o.log, now: o.now}
}

// RecordOutcome appends a realised outcome, keeping the most recent 1000.
// pnlRatio is the PnL divided by the trade size.
func (a *AdaptiveTradeRiskAssessor) RecordOutcome(tradeID string, pnlRatio float64, riskScore int) {
	a.outcomes = append(a.outcomes, TradeOutcome{
		TradeID:   tradeID,
		PnL:       pnlRatio,
		RiskScore: riskScore,
		Timestamp: a.now(),
	})
	if over := len(a.outcomes) - maxOutcomeHistory; over > 0 {
		a.outcomes = append([]TradeOutcome(nil), a.outcomes[over:]...)
	}
}

// Outcomes returns a copy of the recorded outcomes, oldest first
func (a *AdaptiveTradeRiskAssessor) Outcomes() []TradeOutcome {
	return append([]TradeOutcome(nil), a.outcomes...)
}

// Adjustment is the score shift the outcome history currently implies
func (a *AdaptiveTradeRiskAssessor) Adjustment() int {
	if len(a.outcomes) == 0 {
		return 0
	}
	total := 0.0
	for _, o := range a.outcomes {
		total += o.PnL
	}
	avg := total / float64(len(a.outcomes))
	switch {
	case avg < 0:
		return -10
	case avg > 0.05:
		return 5
	default:
		return 0
	}
}

// AssessTradeRisk implements TradeAssessor
func (a *AdaptiveTradeRiskAssessor) AssessTradeRisk(plan *types.TradePlan) (*RiskAssessment, error) {
	assessment, err := a.base.AssessTradeRisk(plan)
	if err != nil {
		return nil, err
	}
	if !a.base.config.Enabled {
		return assessment, nil
	}

	adj := a.Adjustment()
	if adj == 0 {
		return assessment, nil
	}
	assessment.Score = truncScore(float64(assessment.Score + adj))
	if adj < 0 {
		assessment.Reasons = append(assessment.Reasons, "Learning model suggests higher risk")
	} else {
		assessment.Reasons = append(assessment.Reasons, "Learning model suggests lower risk")
	}
	a.log.Debug("Adjusted score by %+d from %d outcomes", adj, len(a.outcomes))
	return assessment, nil
}

// EvaluateTrade applies the adjusted score to the allow threshold
func (a *AdaptiveTradeRiskAssessor) EvaluateTrade(plan *types.TradePlan) (*types.Decision, error) {
	if plan == nil {
		return nil, rerrors.NewValidationError("adaptive_trade_risk", "EvaluateTrade", "trade plan is nil")
	}
	if !a.base.config.Enabled {
		return a.base.EvaluateTrade(plan)
	}

	assessment, err := a.AssessTradeRisk(plan)
	if err != nil {
		return nil, err
	}
	allow := assessment.Score >= MinAcceptableScore
	reasons := assessment.Reasons
	if allow {
		reasons = append(reasons, fmt.Sprintf("Risk score acceptable: %d", assessment.Score))
	} else {
		reasons = append(reasons, fmt.Sprintf("Risk score too low: %d", assessment.Score))
	}
	monitoring.RecordDecision("adaptive_trade_risk", allow)
	return &types.Decision{Allow: allow, Reasons: reasons, RiskScore: assessment.Score}, nil
}

// UpdateConfig implements TradeAssessor
func (a *AdaptiveTradeRiskAssessor) UpdateConfig(cfg TradeRiskConfig) error {
	return a.base.UpdateConfig(cfg)
}
