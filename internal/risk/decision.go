package risk

import (
	"fmt"

	rerrors "github.com/ducminhle1904/trade-risk-engine/internal/errors"
	"github.com/ducminhle1904/trade-risk-engine/internal/logger"
	"github.com/ducminhle1904/trade-risk-engine/internal/monitoring"
	"github.com/ducminhle1904/trade-risk-engine/pkg/types"
)

// Factor weights of the trade risk score
const (
	priceImpactWeight = 0.3
	slippageWeight    = 0.25
	liquidityWeight   = 0.25
	complexityWeight  = 0.1
	customRulesWeight = 0.1

	// MinAcceptableScore is the lowest trade score that is allowed
	MinAcceptableScore = 70
)

type compiledRule struct {
	rule CustomRule
	cond *condition
}

// TradeRiskAssessor scores a trade plan on price impact, slippage, liquidity,
// route complexity and custom rules.
type TradeRiskAssessor struct {
	config    TradeRiskConfig
	rules     []compiledRule
	estimator TradeMetricsEstimator
	cache     map[string]*RiskAssessment // keyed by idempotency key, cleared explicitly
	log       *logger.Logger
}

// NewTradeRiskAssessor creates an assessor using the QuoteEstimator
func NewTradeRiskAssessor(cfg TradeRiskConfig, opts ...Option) (*TradeRiskAssessor, error) {
	o := buildOptions("trade_risk", opts)
	a := &TradeRiskAssessor{
		estimator: NewQuoteEstimator(),
		cache:     make(map[string]*RiskAssessment),
		log:       o.log,
	}
	if err := a.UpdateConfig(cfg); err != nil {
		return nil, err
	}
	return a, nil
}

// SetEstimator replaces the metrics estimator
func (a *TradeRiskAssessor) SetEstimator(e TradeMetricsEstimator) {
	if e != nil {
		a.estimator = e
		a.ClearCache()
	}
}

// UpdateConfig validates and applies a new configuration
func (a *TradeRiskAssessor) UpdateConfig(cfg TradeRiskConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	rules, err := compileRules(cfg.CustomRules)
	if err != nil {
		return err
	}
	cfg.CustomRules = append([]CustomRule(nil), cfg.CustomRules...)
	a.config = cfg
	a.rules = rules
	a.ClearCache()
	return nil
}

// Config returns a copy of the active configuration
func (a *TradeRiskAssessor) Config() TradeRiskConfig {
	cfg := a.config
	cfg.CustomRules = append([]CustomRule(nil), a.config.CustomRules...)
	return cfg
}

// AddCustomRule validates and appends a custom rule
func (a *TradeRiskAssessor) AddCustomRule(rule CustomRule) error {
	cfg := a.Config()
	cfg.CustomRules = append(cfg.CustomRules, rule)
	return a.UpdateConfig(cfg)
}

func compileRules(rules []CustomRule) ([]compiledRule, error) {
	out := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		cond, err := parseCondition(r.Condition)
		if err != nil {
			return nil, rerrors.NewConfigurationError("trade_risk", "UpdateConfig",
				fmt.Sprintf("rule %q: %v", r.Name, err))
		}
		out = append(out, compiledRule{rule: r, cond: cond})
	}
	return out, nil
}

// AssessTradeRisk computes the weighted factor score of a plan
func (a *TradeRiskAssessor) AssessTradeRisk(plan *types.TradePlan) (*RiskAssessment, error) {
	if plan == nil {
		return nil, rerrors.NewValidationError("trade_risk", "AssessTradeRisk", "trade plan is nil")
	}
	if !a.config.Enabled {
		return &RiskAssessment{
			Score:   100,
			Factors: []RiskFactor{},
			Reasons: []string{"Risk checks disabled"},
		}, nil
	}

	m := a.estimator.Estimate(plan)
	factors := []RiskFactor{
		{Name: "Price Impact", Score: a.scorePriceImpact(m.PriceImpactPct), Weight: priceImpactWeight},
		{Name: "Slippage", Score: a.scoreSlippage(m.SlippagePct), Weight: slippageWeight},
		{Name: "Liquidity", Score: floorScore(m.LiquidityUSD, a.config.MinLiquidity), Weight: liquidityWeight},
		{Name: "Complexity", Score: a.scoreComplexity(m.Hops), Weight: complexityWeight},
		{Name: "Custom Rules", Score: a.scoreCustomRules(plan, m), Weight: customRulesWeight},
	}
	lowReasons := []string{
		"High price impact detected",
		"High slippage detected",
		"Insufficient liquidity",
		"High trade complexity",
		"Custom risk rules triggered",
	}

	var reasons []string
	totalScore, totalWeight := 0.0, 0.0
	for i, f := range factors {
		totalScore += float64(f.Score) * f.Weight
		totalWeight += f.Weight
		if f.Score < MinAcceptableScore {
			reasons = append(reasons, lowReasons[i])
		}
	}

	score := 100
	if totalWeight > 0 {
		score = truncScore(totalScore / totalWeight)
	}

	switch {
	case score >= 90:
		reasons = append(reasons, "Low risk trade")
	case score >= MinAcceptableScore:
		reasons = append(reasons, "Moderate risk trade")
	default:
		reasons = append(reasons, "High risk trade")
	}

	return &RiskAssessment{Score: score, Factors: factors, Reasons: reasons}, nil
}

func (a *TradeRiskAssessor) scorePriceImpact(impact float64) int {
	max := a.config.MaxPriceImpact
	return ceilingScore(impact/max, impact <= max*0.5)
}

func (a *TradeRiskAssessor) scoreSlippage(slippage float64) int {
	max := a.config.MaxSlippage
	return ceilingScore(slippage/max, slippage <= max*0.5)
}

func (a *TradeRiskAssessor) scoreComplexity(hops int) int {
	max := a.config.MaxHops
	return ceilingScore(float64(hops)/float64(max), hops <= max/2)
}

func (a *TradeRiskAssessor) scoreCustomRules(plan *types.TradePlan, m TradeMetrics) int {
	impact := 0
	for _, r := range a.rules {
		if r.cond.matches(plan, m) {
			impact += r.rule.ScoreImpact
		}
	}
	score := 100 + impact
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// EvaluateTrade turns the assessment into an allow/deny decision
func (a *TradeRiskAssessor) EvaluateTrade(plan *types.TradePlan) (*types.Decision, error) {
	if plan == nil {
		return nil, rerrors.NewValidationError("trade_risk", "EvaluateTrade", "trade plan is nil")
	}
	if !a.config.Enabled {
		return &types.Decision{Allow: true, Reasons: []string{"Risk checks disabled"}, RiskScore: 100}, nil
	}

	assessment, ok := a.cache[plan.IdemKey]
	if plan.IdemKey != "" {
		monitoring.RecordCacheLookup("trade_risk", ok)
	}
	if ok {
		a.log.Debug("Using cached assessment for %s", plan.IdemKey)
	} else {
		var err error
		assessment, err = a.AssessTradeRisk(plan)
		if err != nil {
			return nil, err
		}
		if plan.IdemKey != "" {
			a.cache[plan.IdemKey] = assessment
		}
	}

	allow := assessment.Score >= MinAcceptableScore
	reasons := append([]string(nil), assessment.Reasons...)
	if allow {
		reasons = append(reasons, fmt.Sprintf("Risk score acceptable: %d", assessment.Score))
	} else {
		reasons = append(reasons, fmt.Sprintf("Risk score too low: %d", assessment.Score))
	}

	a.log.Info("Trade decision for %s: allow=%t score=%d", plan.IdemKey, allow, assessment.Score)
	monitoring.RecordDecision("trade_risk", allow)

	return &types.Decision{Allow: allow, Reasons: reasons, RiskScore: assessment.Score}, nil
}

// CachedAssessment returns the assessment cached under an idempotency key
func (a *TradeRiskAssessor) CachedAssessment(idemKey string) (*RiskAssessment, error) {
	assessment, ok := a.cache[idemKey]
	if !ok {
		return nil, rerrors.NewNotFoundError("trade_risk", "CachedAssessment", idemKey)
	}
	cp := *assessment
	cp.Factors = append([]RiskFactor(nil), assessment.Factors...)
	cp.Reasons = append([]string(nil), assessment.Reasons...)
	return &cp, nil
}

// ClearCache drops every cached assessment
func (a *TradeRiskAssessor) ClearCache() {
	a.cache = make(map[string]*RiskAssessment)
}
