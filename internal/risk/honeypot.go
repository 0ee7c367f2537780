package risk

import (
	"fmt"
	"time"

	rerrors "github.com/ducminhle1904/trade-risk-engine/internal/errors"
	"github.com/ducminhle1904/trade-risk-engine/internal/logger"
	"github.com/ducminhle1904/trade-risk-engine/internal/monitoring"
	"github.com/ducminhle1904/trade-risk-engine/pkg/types"
)

const (
	maxLiquiditySamples  = 100
	failedTxThresholdPct = 20.0
	honeypotConfidence   = 50
)

// HoneypotDetector scores tokens on independent scam signals fed in by upstream
// observers. Results are cached per token for the configured TTL.
type HoneypotDetector struct {
	config       HoneypotConfig
	liquidity    map[string][]TokenLiquidity
	transactions map[string][]TokenTransaction
	simulations  map[string]SimulationSample
	cache        *ttlCache[*HoneypotResult]
	log          *logger.Logger
	now          func() time.Time
}

// NewHoneypotDetector creates a detector with a validated config
func NewHoneypotDetector(cfg HoneypotConfig, opts ...Option) (*HoneypotDetector, error) {
	o := buildOptions("honeypot", opts)
	d := &HoneypotDetector{
		liquidity:    make(map[string][]TokenLiquidity),
		transactions: make(map[string][]TokenTransaction),
		simulations:  make(map[string]SimulationSample),
		cache:        newTTLCache[*HoneypotResult](cfg.CacheTTL(), o.now),
		log:          o.log,
		now:          o.now,
	}
	if err := d.UpdateConfig(cfg); err != nil {
		return nil, err
	}
	return d, nil
}

// UpdateConfig validates and applies a new configuration, dropping cached verdicts
func (d *HoneypotDetector) UpdateConfig(cfg HoneypotConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	d.config = cfg
	d.cache.SetTTL(cfg.CacheTTL())
	d.cache.Clear()
	return nil
}

// Config returns the active configuration
func (d *HoneypotDetector) Config() HoneypotConfig {
	return d.config
}

// AddLiquiditySample records a buy/sell liquidity observation, keeping the last 100
func (d *HoneypotDetector) AddLiquiditySample(token string, sample TokenLiquidity) {
	token = types.NormalizeAddress(token)
	if sample.Timestamp.IsZero() {
		sample.Timestamp = d.now()
	}
	samples := append(d.liquidity[token], sample)
	if over := len(samples) - maxLiquiditySamples; over > 0 {
		samples = append([]TokenLiquidity(nil), samples[over:]...)
	}
	d.liquidity[token] = samples
	d.cache.Delete(token)
}

// AddTransaction records a transfer and drops those outside the analysis window
func (d *HoneypotDetector) AddTransaction(token string, tx TokenTransaction) {
	token = types.NormalizeAddress(token)
	if tx.Timestamp.IsZero() {
		tx.Timestamp = d.now()
	}
	d.transactions[token] = append(d.transactions[token], tx)
	d.pruneTransactions(token)
	d.cache.Delete(token)
}

// RecordSimulation stores the latest buy/sell simulation for a token
func (d *HoneypotDetector) RecordSimulation(token string, sample SimulationSample) {
	token = types.NormalizeAddress(token)
	if sample.Timestamp.IsZero() {
		sample.Timestamp = d.now()
	}
	d.simulations[token] = sample
	d.cache.Delete(token)
}

func (d *HoneypotDetector) pruneTransactions(token string) {
	cutoff := d.now().Add(-d.config.AnalysisWindow())
	txs := d.transactions[token]
	kept := txs[:0]
	for _, tx := range txs {
		if !tx.Timestamp.Before(cutoff) {
			kept = append(kept, tx)
		}
	}
	if len(kept) == 0 {
		delete(d.transactions, token)
		return
	}
	d.transactions[token] = kept
}

// AnalyzeToken returns the honeypot verdict for a token
func (d *HoneypotDetector) AnalyzeToken(token string) (*HoneypotResult, error) {
	if token == "" {
		return nil, rerrors.NewValidationError("honeypot", "AnalyzeToken", "token address is required")
	}
	token = types.NormalizeAddress(token)
	if !d.config.Enabled {
		return &HoneypotResult{
			Token:       token,
			Reasons:     []string{"Honeypot detection disabled"},
			RiskFactors: []HoneypotFactor{},
		}, nil
	}

	cached, ok := d.cache.Get(token)
	monitoring.RecordCacheLookup("honeypot", ok)
	if ok {
		d.log.Debug("Using cached honeypot result for %s", token)
		return cached.clone(), nil
	}

	d.pruneTransactions(token)

	checks := []func(string) *HoneypotFactor{
		d.checkLiquidityImbalance,
		d.checkPriceImpact,
		d.checkTransferFees,
		d.checkBalanceModification,
		d.checkTransactionPattern,
	}
	result := &HoneypotResult{Token: token, Reasons: []string{}, RiskFactors: []HoneypotFactor{}}
	var severities []int
	for _, check := range checks {
		if f := check(token); f != nil {
			result.RiskFactors = append(result.RiskFactors, *f)
			result.Reasons = append(result.Reasons, f.Description)
			severities = append(severities, f.Severity)
		}
	}
	result.Confidence = sumToConfidence(severities)
	result.IsHoneypot = result.Confidence >= honeypotConfidence

	if result.IsHoneypot {
		d.log.Warning("Token %s detected as potential honeypot with confidence %d", token, result.Confidence)
		monitoring.RecordDetection("honeypot")
	} else {
		d.log.Info("Token %s analyzed, not detected as honeypot (confidence: %d)", token, result.Confidence)
	}

	d.cache.Set(token, result)
	return result.clone(), nil
}

func (d *HoneypotDetector) checkLiquidityImbalance(token string) *HoneypotFactor {
	samples := d.liquidity[token]
	if len(samples) == 0 {
		return nil
	}
	sum := 0.0
	for _, s := range samples {
		if s.BuyLiquidity > 0 {
			sum += s.SellLiquidity / s.BuyLiquidity
		}
	}
	avg := sum / float64(len(samples))
	if avg >= d.config.MinLiquidityRatio {
		return nil
	}
	last := samples[len(samples)-1]
	return &HoneypotFactor{
		Name: "Liquidity Imbalance",
		Description: fmt.Sprintf("Sell liquidity (%.2f) is significantly lower than buy liquidity (%.2f), ratio: %.2f",
			last.SellLiquidity, last.BuyLiquidity, avg),
		Severity: truncSeverity((1 - avg/d.config.MinLiquidityRatio) * 10),
	}
}

func (d *HoneypotDetector) checkPriceImpact(token string) *HoneypotFactor {
	sim, ok := d.simulations[token]
	if !ok || sim.PriceImpactPct <= d.config.MaxNormalPriceImpact {
		return nil
	}
	return &HoneypotFactor{
		Name: "High Price Impact",
		Description: fmt.Sprintf("Price impact (%.2f%%) exceeds normal threshold (%.2f%%)",
			sim.PriceImpactPct, d.config.MaxNormalPriceImpact),
		Severity: truncSeverity((sim.PriceImpactPct/d.config.MaxNormalPriceImpact - 1) * 10),
	}
}

func (d *HoneypotDetector) checkTransferFees(token string) *HoneypotFactor {
	total, count := 0.0, 0
	for _, tx := range d.transactions[token] {
		if tx.Fee > 0 && tx.Amount > 0 {
			total += tx.Fee / tx.Amount * 100
			count++
		}
	}
	if count == 0 {
		return nil
	}
	avg := total / float64(count)
	if avg <= d.config.TransferFeeThreshold {
		return nil
	}
	return &HoneypotFactor{
		Name: "High Transfer Fees",
		Description: fmt.Sprintf("Average transfer fee (%.2f%%) exceeds threshold (%.2f%%)",
			avg, d.config.TransferFeeThreshold),
		Severity: truncSeverity(avg / d.config.TransferFeeThreshold * 10),
	}
}

func (d *HoneypotDetector) checkBalanceModification(token string) *HoneypotFactor {
	sim, ok := d.simulations[token]
	if !ok || sim.BalanceModificationPct <= d.config.BalanceModificationThreshold {
		return nil
	}
	return &HoneypotFactor{
		Name:        "Balance Modifications",
		Description: fmt.Sprintf("Suspicious balance modifications (%.2f%%) detected", sim.BalanceModificationPct),
		Severity:    truncSeverity(sim.BalanceModificationPct / d.config.BalanceModificationThreshold * 10),
	}
}

func (d *HoneypotDetector) checkTransactionPattern(token string) *HoneypotFactor {
	txs := d.transactions[token]
	if len(txs) < d.config.MinTransactionCount {
		return nil
	}
	failed := 0
	for _, tx := range txs {
		if tx.Amount == 0 {
			failed++
		}
	}
	failedPct := pct(float64(failed), float64(len(txs)))
	if failedPct <= failedTxThresholdPct {
		return nil
	}
	return &HoneypotFactor{
		Name:        "Failed Transaction Pattern",
		Description: fmt.Sprintf("High percentage of failed transactions (%.1f%%)", failedPct),
		Severity:    truncSeverity(failedPct / 10),
	}
}

// CachedResult returns the cached verdict for a token while it is fresh
func (d *HoneypotDetector) CachedResult(token string) (*HoneypotResult, error) {
	token = types.NormalizeAddress(token)
	r, ok := d.cache.Get(token)
	if !ok {
		return nil, rerrors.NewNotFoundError("honeypot", "CachedResult", token)
	}
	return r.clone(), nil
}

// ClearCache drops every cached verdict
func (d *HoneypotDetector) ClearCache() {
	d.cache.Clear()
}

func (r *HoneypotResult) clone() *HoneypotResult {
	cp := *r
	cp.Reasons = append([]string{}, r.Reasons...)
	cp.RiskFactors = append([]HoneypotFactor{}, r.RiskFactors...)
	return &cp
}
