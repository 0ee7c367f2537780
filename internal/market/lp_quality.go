package market

import (
	"fmt"
	"time"

	rerrors "github.com/ducminhle1904/trade-risk-engine/internal/errors"
	"github.com/ducminhle1904/trade-risk-engine/internal/logger"
	"github.com/ducminhle1904/trade-risk-engine/internal/monitoring"
	"github.com/ducminhle1904/trade-risk-engine/internal/risk"
	"github.com/ducminhle1904/trade-risk-engine/pkg/types"
)

// Quality score penalties
const (
	lowLiquidityPenalty    = 31.0
	highPriceImpactPenalty = 36.0
	frequentChangePenalty  = 36.0
	newLPPenalty           = 15.0

	highQualityScore = 70.0
)

// LPQualityConfig configures the liquidity pool quality assessor
type LPQualityConfig struct {
	Enabled                 bool    `json:"enabled"`
	MinLiquidityUSD         float64 `json:"min_liquidity_threshold"`
	MaxPriceImpactPct       float64 `json:"max_price_impact_tolerance"`
	MonitoringWindowSeconds int64   `json:"monitoring_window_seconds"`
	FrequentChangeThreshold int     `json:"frequent_lp_change_threshold"`
}

// DefaultLPQualityConfig returns default LP quality thresholds
func DefaultLPQualityConfig() LPQualityConfig {
	return LPQualityConfig{
		Enabled:                 true,
		MinLiquidityUSD:         1000.0, // $1000 minimum
		MaxPriceImpactPct:       5.0,
		MonitoringWindowSeconds: 3600,
		FrequentChangeThreshold: 10,
	}
}

// Validate checks thresholds
func (c LPQualityConfig) Validate() error {
	var problems []string
	if c.MinLiquidityUSD < 0 {
		problems = append(problems, fmt.Sprintf("min_liquidity_threshold cannot be negative, got %.2f", c.MinLiquidityUSD))
	}
	if c.MaxPriceImpactPct <= 0 || c.MaxPriceImpactPct > 100 {
		problems = append(problems, fmt.Sprintf("max_price_impact_tolerance must be in (0,100], got %.2f", c.MaxPriceImpactPct))
	}
	if c.MonitoringWindowSeconds <= 0 {
		problems = append(problems, "monitoring_window_seconds must be positive")
	}
	if c.FrequentChangeThreshold < 0 {
		problems = append(problems, "frequent_lp_change_threshold cannot be negative")
	}
	return rerrors.Join("lp_quality", "Validate", problems)
}

var _ risk.LPQualitySource = (*LPQualityAssessor)(nil)

// LiquidityData is one observation of a liquidity pool
type LiquidityData struct {
	TotalLiquidity   float64   `json:"total_liquidity"`
	TransactionCount int       `json:"transaction_count"`
	AvgPriceImpact   float64   `json:"avg_price_impact"`
	LPChanges        int       `json:"lp_changes"`
	IsNewLP          bool      `json:"is_new_lp"`
	Timestamp        time.Time `json:"timestamp"`
}

// LPQualityAssessor scores liquidity pools and serves the latest score per pool
type LPQualityAssessor struct {
	config  LPQualityConfig
	metrics map[string]*risk.LPQualityMetrics
	log     *logger.Logger
	now     func() time.Time
}

func NewLPQualityAssessor(cfg LPQualityConfig, opts ...Option) (*LPQualityAssessor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions("lp_quality", opts)
	return &LPQualityAssessor{
		config:  cfg,
		metrics: make(map[string]*risk.LPQualityMetrics),
		log:     o.log,
		now:     o.now,
	}, nil
}

func (a *LPQualityAssessor) UpdateConfig(cfg LPQualityConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.config = cfg
	return nil
}

func (a *LPQualityAssessor) Config() LPQualityConfig {
	return a.config
}

// AssessLP scores a pool from 100 down, one penalty per flag, and stores the result
func (a *LPQualityAssessor) AssessLP(lpAddress string, data LiquidityData) risk.LPQualityMetrics {
	lpAddress = types.NormalizeAddress(lpAddress)
	if data.Timestamp.IsZero() {
		data.Timestamp = a.now()
	}

	score := 100.0
	flags := []risk.LPRiskFlag{}
	if data.TotalLiquidity < a.config.MinLiquidityUSD {
		flags = append(flags, risk.LPFlagLowLiquidity)
		score -= lowLiquidityPenalty
		a.log.Warning("LP %s has low liquidity: $%.2f", lpAddress, data.TotalLiquidity)
	}
	if data.AvgPriceImpact > a.config.MaxPriceImpactPct {
		flags = append(flags, risk.LPFlagHighPriceImpact)
		score -= highPriceImpactPenalty
		a.log.Warning("LP %s has high price impact: %.2f%%", lpAddress, data.AvgPriceImpact)
	}
	if data.LPChanges > a.config.FrequentChangeThreshold {
		flags = append(flags, risk.LPFlagFrequentLPChanges)
		score -= frequentChangePenalty
		a.log.Warning("LP %s has frequent changes: %d", lpAddress, data.LPChanges)
	}
	if data.IsNewLP {
		flags = append(flags, risk.LPFlagNewLP)
		score -= newLPPenalty
		a.log.Info("LP %s is new", lpAddress)
	}
	if score < 0 {
		score = 0
	}

	m := &risk.LPQualityMetrics{
		LPAddress:        lpAddress,
		TotalLiquidity:   data.TotalLiquidity,
		TransactionCount: data.TransactionCount,
		AvgPriceImpact:   data.AvgPriceImpact,
		LPChanges:        data.LPChanges,
		QualityScore:     score,
		RiskFlags:        flags,
		LastUpdated:      data.Timestamp,
	}
	a.metrics[lpAddress] = m
	if score < highQualityScore {
		monitoring.RecordDetection("lp_quality")
	}

	a.log.Info("LP %s quality score: %.0f", lpAddress, score)
	return copyMetrics(m)
}

// LPMetrics returns the latest stored metrics. Nothing is reported while the
// assessor is disabled, so the engine falls back to a neutral score.
func (a *LPQualityAssessor) LPMetrics(lpAddress string) (*risk.LPQualityMetrics, bool) {
	if !a.config.Enabled {
		return nil, false
	}
	m, ok := a.metrics[types.NormalizeAddress(lpAddress)]
	if !ok {
		return nil, false
	}
	cp := copyMetrics(m)
	return &cp, true
}

// IsHighQuality reports whether a pool scores at least 70. Unknown pools are low
// quality; every pool passes while the assessor is disabled.
func (a *LPQualityAssessor) IsHighQuality(lpAddress string) bool {
	if !a.config.Enabled {
		return true
	}
	m, ok := a.metrics[types.NormalizeAddress(lpAddress)]
	return ok && m.QualityScore >= highQualityScore
}

// AllMetrics returns a copy of every tracked pool's metrics
func (a *LPQualityAssessor) AllMetrics() map[string]risk.LPQualityMetrics {
	out := make(map[string]risk.LPQualityMetrics, len(a.metrics))
	for k, m := range a.metrics {
		out[k] = copyMetrics(m)
	}
	return out
}

func (a *LPQualityAssessor) Clear(lpAddress string) {
	delete(a.metrics, types.NormalizeAddress(lpAddress))
}

func (a *LPQualityAssessor) ClearAll() {
	a.metrics = make(map[string]*risk.LPQualityMetrics)
}

func copyMetrics(m *risk.LPQualityMetrics) risk.LPQualityMetrics {
	cp := *m
	cp.RiskFlags = append([]risk.LPRiskFlag{}, m.RiskFlags...)
	return cp
}
