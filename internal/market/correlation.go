package market

import (
	"fmt"
	"math"
	"strings"
	"time"

	rerrors "github.com/ducminhle1904/trade-risk-engine/internal/errors"
	"github.com/ducminhle1904/trade-risk-engine/internal/logger"
	"github.com/ducminhle1904/trade-risk-engine/internal/risk"
	"github.com/ducminhle1904/trade-risk-engine/pkg/types"
)

// Regime is the market state an asset was observed in
type Regime string

const (
	RegimeBull     Regime = "bull"
	RegimeBear     Regime = "bear"
	RegimeSideways Regime = "sideways"
	RegimeVolatile Regime = "volatile"
)

const maxSeriesLength = 1000

// CorrelationConfig weights the price, volatility and regime correlations
type CorrelationConfig struct {
	Enabled                     bool    `json:"enabled"`
	MaxCorrelation              float64 `json:"max_correlation"`
	TimeWindowHours             int64   `json:"time_window_hours"`
	PriceCorrelationWeight      float64 `json:"price_correlation_weight"`
	VolatilityCorrelationWeight float64 `json:"volatility_correlation_weight"`
	RegimeCorrelationWeight     float64 `json:"regime_correlation_weight"`
}

// DefaultCorrelationConfig returns default correlation settings
func DefaultCorrelationConfig() CorrelationConfig {
	return CorrelationConfig{
		Enabled:                     true,
		MaxCorrelation:              0.8,
		TimeWindowHours:             24,
		PriceCorrelationWeight:      0.5,
		VolatilityCorrelationWeight: 0.3,
		RegimeCorrelationWeight:     0.2,
	}
}

func (c CorrelationConfig) TimeWindow() time.Duration {
	return time.Duration(c.TimeWindowHours) * time.Hour
}

// Validate checks the limit, the window and the weights
func (c CorrelationConfig) Validate() error {
	var problems []string
	if c.MaxCorrelation < -1 || c.MaxCorrelation > 1 {
		problems = append(problems, fmt.Sprintf("max_correlation must be in [-1,1], got %.2f", c.MaxCorrelation))
	}
	if c.TimeWindowHours <= 0 {
		problems = append(problems, "time_window_hours must be positive")
	}
	weights := []float64{c.PriceCorrelationWeight, c.VolatilityCorrelationWeight, c.RegimeCorrelationWeight}
	sum := 0.0
	for _, w := range weights {
		if w < 0 {
			problems = append(problems, fmt.Sprintf("correlation weights cannot be negative, got %.2f", w))
			break
		}
		sum += w
	}
	if sum > 1+1e-9 {
		problems = append(problems, fmt.Sprintf("correlation weights must sum to at most 1, got %.2f", sum))
	}
	return rerrors.Join("correlation", "Validate", problems)
}

var _ risk.CorrelationSource = (*CorrelationAnalyzer)(nil)

type sample struct {
	value float64
	at    time.Time
}

// CorrelationAnalyzer correlates assets from recorded prices, volatilities and regimes.
// Explicitly configured pair correlations take precedence over computed ones.
type CorrelationAnalyzer struct {
	config       CorrelationConfig
	pairs        map[string]float64
	prices       map[string][]sample
	volatilities map[string][]sample
	regimes      map[string][]Regime
	log          *logger.Logger
	now          func() time.Time
}

func NewCorrelationAnalyzer(cfg CorrelationConfig, opts ...Option) (*CorrelationAnalyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions("correlation", opts)
	return &CorrelationAnalyzer{
		config:       cfg,
		pairs:        make(map[string]float64),
		prices:       make(map[string][]sample),
		volatilities: make(map[string][]sample),
		regimes:      make(map[string][]Regime),
		log:          o.log,
		now:          o.now,
	}, nil
}

func (c *CorrelationAnalyzer) UpdateConfig(cfg CorrelationConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.config = cfg
	return nil
}

func (c *CorrelationAnalyzer) Config() CorrelationConfig {
	return c.config
}

func pairKey(a, b string) string {
	a, b = types.NormalizeAddress(a), types.NormalizeAddress(b)
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return a + "|" + b
}

// SetPairCorrelation fixes the correlation of a pair, in either order
func (c *CorrelationAnalyzer) SetPairCorrelation(assetA, assetB string, correlation float64) error {
	if math.IsNaN(correlation) || correlation < -1 || correlation > 1 {
		return rerrors.NewValidationError("correlation", "SetPairCorrelation",
			fmt.Sprintf("correlation must be in [-1,1], got %.2f", correlation))
	}
	c.pairs[pairKey(assetA, assetB)] = correlation
	return nil
}

// RecordPrice appends a price observation and drops those outside the time window
func (c *CorrelationAnalyzer) RecordPrice(asset string, price float64, at time.Time) {
	asset = types.NormalizeAddress(asset)
	c.prices[asset] = c.appendSample(c.prices[asset], price, at)
}

// RecordVolatility appends a volatility observation and drops those outside the time window
func (c *CorrelationAnalyzer) RecordVolatility(asset string, volatility float64, at time.Time) {
	asset = types.NormalizeAddress(asset)
	c.volatilities[asset] = c.appendSample(c.volatilities[asset], volatility, at)
}

// RecordRegime appends the regime an asset was observed in
func (c *CorrelationAnalyzer) RecordRegime(asset string, regime Regime) {
	asset = types.NormalizeAddress(asset)
	regimes := append(c.regimes[asset], regime)
	if over := len(regimes) - maxSeriesLength; over > 0 {
		regimes = append([]Regime(nil), regimes[over:]...)
	}
	c.regimes[asset] = regimes
}

func (c *CorrelationAnalyzer) appendSample(series []sample, v float64, at time.Time) []sample {
	if at.IsZero() {
		at = c.now()
	}
	series = append(series, sample{value: v, at: at})
	cutoff := c.now().Add(-c.config.TimeWindow())
	start := 0
	for start < len(series) && series[start].at.Before(cutoff) {
		start++
	}
	if over := len(series) - start - maxSeriesLength; over > 0 {
		start += over
	}
	if start > 0 {
		series = append([]sample(nil), series[start:]...)
	}
	return series
}

func values(series []sample) []float64 {
	out := make([]float64, len(series))
	for i, s := range series {
		out[i] = s.value
	}
	return out
}

// Correlate returns the weighted correlation of two assets
func (c *CorrelationAnalyzer) Correlate(assetA, assetB string) risk.CorrelationResult {
	if !c.config.Enabled {
		return risk.CorrelationResult{Reason: "Correlation analysis disabled"}
	}
	a, b := types.NormalizeAddress(assetA), types.NormalizeAddress(assetB)

	if fixed, ok := c.pairs[pairKey(a, b)]; ok {
		return risk.CorrelationResult{
			Correlation:      fixed,
			PriceCorrelation: fixed,
			Confidence:       1.0,
			Reason:           "Configured pair correlation",
		}
	}

	price := c.priceCorrelation(a, b)
	volatility := c.volatilityCorrelation(a, b)
	regime := c.regimeCorrelation(a, b)
	cfg := c.config
	correlation := price*cfg.PriceCorrelationWeight +
		volatility*cfg.VolatilityCorrelationWeight +
		regime*cfg.RegimeCorrelationWeight

	var confidence float64
	switch known := countNonZero(price, volatility, regime); {
	case known == 3:
		confidence = 1.0
	case known > 0:
		confidence = 0.7
	}

	c.log.Debug("Correlation %s/%s = %.3f (price %.3f, volatility %.3f, regime %.3f)",
		a, b, correlation, price, volatility, regime)

	return risk.CorrelationResult{
		Correlation:           correlation,
		PriceCorrelation:      price,
		VolatilityCorrelation: volatility,
		RegimeCorrelation:     regime,
		Confidence:            confidence,
		Reason:                "Enhanced correlation calculated",
	}
}

// CheckCorrelation reports whether a pair stays within the maximum correlation
func (c *CorrelationAnalyzer) CheckCorrelation(assetA, assetB string) (bool, string) {
	if !c.config.Enabled {
		return true, "Correlation analysis disabled"
	}
	r := c.Correlate(assetA, assetB)
	if r.Correlation > c.config.MaxCorrelation {
		return false, fmt.Sprintf("Correlation %.2f exceeds maximum %.2f", r.Correlation, c.config.MaxCorrelation)
	}
	return true, fmt.Sprintf("Correlation %.2f within limits", r.Correlation)
}

func (c *CorrelationAnalyzer) priceCorrelation(a, b string) float64 {
	ra, rb := alignTails(simpleReturns(values(c.prices[a])), simpleReturns(values(c.prices[b])))
	return pearson(ra, rb)
}

func (c *CorrelationAnalyzer) volatilityCorrelation(a, b string) float64 {
	va, vb := alignTails(values(c.volatilities[a]), values(c.volatilities[b]))
	return pearson(va, vb)
}

// regimeCorrelation scores the aligned regime histories: +1 for the same regime,
// -1 for bull against bear, 0 otherwise.
func (c *CorrelationAnalyzer) regimeCorrelation(a, b string) float64 {
	ra, rb := c.regimes[a], c.regimes[b]
	n := len(ra)
	if len(rb) < n {
		n = len(rb)
	}
	if n == 0 {
		return 0
	}
	ra, rb = ra[len(ra)-n:], rb[len(rb)-n:]
	total := 0.0
	for i := 0; i < n; i++ {
		switch {
		case ra[i] == rb[i]:
			total++
		case (ra[i] == RegimeBull && rb[i] == RegimeBear) || (ra[i] == RegimeBear && rb[i] == RegimeBull):
			total--
		}
	}
	return total / float64(n)
}

func countNonZero(vs ...float64) int {
	n := 0
	for _, v := range vs {
		if v != 0 {
			n++
		}
	}
	return n
}
