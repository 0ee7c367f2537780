package portfolio

import (
	"time"

	"github.com/ducminhle1904/trade-risk-engine/pkg/types"
)

// Position is an open position held by the portfolio
type Position struct {
	Symbol       string  `json:"symbol"`
	Sector       string  `json:"sector"`
	SizeUSD      float64 `json:"size_usd"`
	EntryPrice   float64 `json:"entry_price"`
	CurrentPrice float64 `json:"current_price"`
	PnL          float64 `json:"pnl"`
	Volatility   float64 `json:"volatility"`
}

// State is a snapshot of the portfolio supplied by the caller on every assessment
type State struct {
	PortfolioValue     float64                       `json:"portfolio_value"`
	UnrealizedPnL      float64                       `json:"unrealized_pnl"`
	CurrentDrawdownPct float64                       `json:"current_drawdown_pct"`
	Positions          []Position                    `json:"positions"`
	Volatility         map[string]float64            `json:"volatility,omitempty"`
	Correlations       map[string]map[string]float64 `json:"correlations,omitempty"`
	NativePriceUSD     float64                       `json:"native_price_usd,omitempty"`
	LastUpdated        time.Time                     `json:"last_updated"`
}

// TotalExposure sums the USD size of all open positions
func (s *State) TotalExposure() float64 {
	total := 0.0
	for _, p := range s.Positions {
		total += p.SizeUSD
	}
	return total
}

// sameAsset compares identifiers in normalised form, so a lowercase address matches
// its checksummed spelling
func sameAsset(a, b string) bool {
	return a == b || types.NormalizeAddress(a) == types.NormalizeAddress(b)
}

// AssetExposure sums the USD size held in one asset
func (s *State) AssetExposure(symbol string) float64 {
	total := 0.0
	for _, p := range s.Positions {
		if sameAsset(p.Symbol, symbol) {
			total += p.SizeUSD
		}
	}
	return total
}

// SectorExposure sums the USD size held in one sector
func (s *State) SectorExposure(sector string) float64 {
	total := 0.0
	for _, p := range s.Positions {
		if p.Sector == sector {
			total += p.SizeUSD
		}
	}
	return total
}

// VolatilityOf returns the recorded volatility of an asset, or fallback when unknown
func (s *State) VolatilityOf(symbol string, fallback float64) float64 {
	if v, ok := lookup(s.Volatility, symbol); ok {
		return v
	}
	return fallback
}

// Correlation returns the recorded correlation between two assets, checking both orders
func (s *State) Correlation(a, b string) (float64, bool) {
	if row, ok := lookup(s.Correlations, a); ok {
		if c, ok := lookup(row, b); ok {
			return c, true
		}
	}
	if row, ok := lookup(s.Correlations, b); ok {
		if c, ok := lookup(row, a); ok {
			return c, true
		}
	}
	return 0, false
}

func lookup[V any](m map[string]V, key string) (V, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if sameAsset(k, key) {
			return v, true
		}
	}
	var zero V
	return zero, false
}

// Clone returns a deep copy so callers can mutate a snapshot safely
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	out.Positions = append([]Position(nil), s.Positions...)
	if s.Volatility != nil {
		out.Volatility = make(map[string]float64, len(s.Volatility))
		for k, v := range s.Volatility {
			out.Volatility[k] = v
		}
	}
	if s.Correlations != nil {
		out.Correlations = make(map[string]map[string]float64, len(s.Correlations))
		for k, row := range s.Correlations {
			cp := make(map[string]float64, len(row))
			for k2, v := range row {
				cp[k2] = v
			}
			out.Correlations[k] = cp
		}
	}
	return &out
}
