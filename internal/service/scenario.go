package service

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ducminhle1904/trade-risk-engine/internal/market"
	"github.com/ducminhle1904/trade-risk-engine/internal/portfolio"
	"github.com/ducminhle1904/trade-risk-engine/internal/risk"
)

// TokenObservations are the honeypot detector inputs for one token
type TokenObservations struct {
	Liquidity    []risk.TokenLiquidity   `json:"liquidity"`
	Transactions []risk.TokenTransaction `json:"transactions"`
	Simulations  []risk.SimulationSample `json:"simulations"`
}

// ContractObservations are the owner-power monitor inputs for one contract
type ContractObservations struct {
	Owner             *risk.ContractOwner      `json:"owner,omitempty"`
	Profile           *risk.ContractProfile    `json:"profile,omitempty"`
	Supply            *risk.TokenSupply        `json:"supply,omitempty"`
	OwnerTransactions []risk.OwnerTransaction `json:"owner_transactions"`
}

// PairCorrelation fixes the correlation of two assets
type PairCorrelation struct {
	AssetA      string  `json:"asset_a"`
	AssetB      string  `json:"asset_b"`
	Correlation float64 `json:"correlation"`
}

// PricePoint is one observation of an asset series
type PricePoint struct {
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// AssetSeries are the recorded series the correlation analyzer works from
type AssetSeries struct {
	Prices       []PricePoint    `json:"prices"`
	Volatilities []PricePoint    `json:"volatilities"`
	Regimes      []market.Regime `json:"regimes"`
}

// MarketObservations feed the market condition adjuster. When TrendPrices is set the
// trend is classified from it instead of taken from Conditions.
type MarketObservations struct {
	Conditions  []market.Conditions `json:"conditions"`
	TrendPrices []float64           `json:"trend_prices,omitempty"`
}

// OutcomeObservation is a realised trade result fed to the adaptive assessor.
// PnL is the return as a fraction of the trade size, e.g. -0.02 for a 2% loss.
type OutcomeObservation struct {
	TradeID   string  `json:"trade_id"`
	PnL       float64 `json:"pnl"`
	RiskScore int     `json:"risk_score"`
}

// Scenario is a self-contained evaluation run: a portfolio, the observations the
// detectors see and the trades to decide on.
type Scenario struct {
	Name         string                          `json:"name"`
	Portfolio    *portfolio.State                `json:"portfolio"`
	Tokens       map[string]TokenObservations    `json:"tokens"`
	Contracts    map[string]ContractObservations `json:"contracts"`
	Pools        map[string]market.LiquidityData `json:"pools"`
	Correlations []PairCorrelation               `json:"correlations"`
	Series       map[string]AssetSeries          `json:"series"`
	Market       *MarketObservations             `json:"market,omitempty"`
	Outcomes     []OutcomeObservation            `json:"outcomes"`
	History      []risk.TradingActivity          `json:"history"`
	Trades       []TradeRequest                  `json:"trades"`
}

// LoadScenario reads a scenario file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	var sc Scenario
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario %s: %w", path, err)
	}
	if len(sc.Trades) == 0 {
		return nil, fmt.Errorf("scenario %s has no trades", path)
	}
	return &sc, nil
}

// Seed feeds every observation of the scenario into the service's components
func (s *Service) Seed(sc *Scenario) error {
	return s.Do(func(e *risk.UnifiedRiskEngine) error {
		for token, obs := range sc.Tokens {
			for _, l := range obs.Liquidity {
				s.Honeypot.AddLiquiditySample(token, l)
			}
			for _, tx := range obs.Transactions {
				s.Honeypot.AddTransaction(token, tx)
			}
			for _, sim := range obs.Simulations {
				s.Honeypot.RecordSimulation(token, sim)
			}
		}

		for contract, obs := range sc.Contracts {
			if obs.Owner != nil {
				s.OwnerPower.RegisterContractOwner(contract, *obs.Owner)
			}
			if obs.Profile != nil {
				s.OwnerPower.UpdateContractProfile(contract, *obs.Profile)
			}
			if obs.Supply != nil {
				s.OwnerPower.UpdateTokenSupply(contract, *obs.Supply)
			}
			for _, tx := range obs.OwnerTransactions {
				s.OwnerPower.AddOwnerTransaction(contract, tx)
			}
		}

		for pool, data := range sc.Pools {
			s.LPQuality.AssessLP(pool, data)
		}

		for _, pc := range sc.Correlations {
			if err := s.Correlation.SetPairCorrelation(pc.AssetA, pc.AssetB, pc.Correlation); err != nil {
				return err
			}
		}
		for asset, series := range sc.Series {
			for _, p := range series.Prices {
				s.Correlation.RecordPrice(asset, p.Value, p.Timestamp)
			}
			for _, v := range series.Volatilities {
				s.Correlation.RecordVolatility(asset, v.Value, v.Timestamp)
			}
			for _, r := range series.Regimes {
				s.Correlation.RecordRegime(asset, r)
			}
		}

		if m := sc.Market; m != nil {
			for i, c := range m.Conditions {
				if i == len(m.Conditions)-1 && len(m.TrendPrices) > 0 {
					s.Conditions.UpdateFromPrices(m.TrendPrices, c)
					continue
				}
				s.Conditions.UpdateConditions(c)
			}
		}

		for _, o := range sc.Outcomes {
			s.Adaptive.RecordOutcome(o.TradeID, o.PnL, o.RiskScore)
		}
		for _, activity := range sc.History {
			if err := e.RecordTrade(activity); err != nil {
				return err
			}
		}
		return nil
	})
}
