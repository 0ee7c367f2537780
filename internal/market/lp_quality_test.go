package market

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/trade-risk-engine/internal/risk"
)

func healthyPool() LiquidityData {
	return LiquidityData{TotalLiquidity: 5000, TransactionCount: 100, AvgPriceImpact: 1.0, LPChanges: 2}
}

// TestLPQualityPenalties tests the score deduction of each flag
func TestLPQualityPenalties(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*LiquidityData)
		score float64
		flags []risk.LPRiskFlag
		high  bool
	}{
		{"healthy", func(*LiquidityData) {}, 100, []risk.LPRiskFlag{}, true},
		{"low liquidity", func(d *LiquidityData) { d.TotalLiquidity = 500 }, 69, []risk.LPRiskFlag{risk.LPFlagLowLiquidity}, false},
		{"high impact", func(d *LiquidityData) { d.AvgPriceImpact = 10 }, 64, []risk.LPRiskFlag{risk.LPFlagHighPriceImpact}, false},
		{"frequent changes", func(d *LiquidityData) { d.LPChanges = 15 }, 64, []risk.LPRiskFlag{risk.LPFlagFrequentLPChanges}, false},
		{"new pool", func(d *LiquidityData) { d.IsNewLP = true }, 85, []risk.LPRiskFlag{risk.LPFlagNewLP}, true},
		{"everything", func(d *LiquidityData) {
			d.TotalLiquidity, d.AvgPriceImpact, d.LPChanges, d.IsNewLP = 500, 10, 15, true
		}, 0, []risk.LPRiskFlag{risk.LPFlagLowLiquidity, risk.LPFlagHighPriceImpact, risk.LPFlagFrequentLPChanges, risk.LPFlagNewLP}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewLPQualityAssessor(DefaultLPQualityConfig())
			require.NoError(t, err)

			data := healthyPool()
			tt.edit(&data)
			m := a.AssessLP(poolAddr, data)

			assert.Equal(t, tt.score, m.QualityScore)
			assert.Equal(t, tt.flags, m.RiskFlags)
			assert.Equal(t, tt.high, a.IsHighQuality(poolAddr))
		})
	}
}

// TestLPMetricsLookup tests storage, address normalisation and clearing
func TestLPMetricsLookup(t *testing.T) {
	clock := newTestClock()
	a, err := NewLPQualityAssessor(DefaultLPQualityConfig(), WithClock(clock.Now))
	require.NoError(t, err)

	assert.False(t, a.IsHighQuality(poolAddr))
	_, ok := a.LPMetrics(poolAddr)
	assert.False(t, ok)

	a.AssessLP(poolAddr, healthyPool())
	m, ok := a.LPMetrics("0x" + strings.ToUpper(poolAddr[2:]))
	require.True(t, ok)
	assert.Equal(t, 100.0, m.QualityScore)
	assert.Equal(t, clock.Now(), m.LastUpdated)

	m.RiskFlags = append(m.RiskFlags, risk.LPFlagNewLP)
	again, _ := a.LPMetrics(poolAddr)
	assert.Empty(t, again.RiskFlags)

	a.AssessLP(tokenAddr, healthyPool())
	assert.Len(t, a.AllMetrics(), 2)

	a.Clear(poolAddr)
	_, ok = a.LPMetrics(poolAddr)
	assert.False(t, ok)

	a.ClearAll()
	assert.Empty(t, a.AllMetrics())
}

// TestLPQualityDisabled tests that a disabled assessor passes every pool and reports no metrics
func TestLPQualityDisabled(t *testing.T) {
	cfg := DefaultLPQualityConfig()
	cfg.Enabled = false
	a, err := NewLPQualityAssessor(cfg)
	require.NoError(t, err)

	low := healthyPool()
	low.TotalLiquidity = 10
	a.AssessLP(poolAddr, low)

	assert.True(t, a.IsHighQuality(poolAddr))
	_, ok := a.LPMetrics(poolAddr)
	assert.False(t, ok)

	bad := DefaultLPQualityConfig()
	bad.MaxPriceImpactPct = 0
	assert.Error(t, a.UpdateConfig(bad))
}
