package risk

import "time"

// RiskFactor is one weighted input to a trade risk score
type RiskFactor struct {
	Name   string  `json:"name"`
	Score  int     `json:"score"`
	Weight float64 `json:"weight"`
}

// RiskAssessment is the factor breakdown of a trade plan
type RiskAssessment struct {
	Score   int          `json:"score"`
	Factors []RiskFactor `json:"factors"`
	Reasons []string     `json:"reasons"`
}

// SizingMetrics are the portfolio metrics computed while sizing a trade
type SizingMetrics struct {
	PortfolioExposurePct float64 `json:"portfolio_exposure_pct"`
	PositionCorrelation  float64 `json:"position_correlation"`
	PositionVolatility   float64 `json:"position_volatility"`
	RiskContribution     float64 `json:"risk_contribution"`
	RiskMultiplier       float64 `json:"risk_multiplier"`
}

// SizingResult is the outcome of position sizing
type SizingResult struct {
	Allowed          bool          `json:"allowed"`
	MaxPositionSize  float64       `json:"max_position_size"`
	RiskAdjustedSize float64       `json:"risk_adjusted_size"`
	Reasons          []string      `json:"reasons"`
	Metrics          SizingMetrics `json:"metrics"`
}

// HoneypotFactor is a single honeypot signal with severity 1-10
type HoneypotFactor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Severity    int    `json:"severity"`
}

// HoneypotResult is the honeypot verdict for a token
type HoneypotResult struct {
	Token       string           `json:"token"`
	IsHoneypot  bool             `json:"is_honeypot"`
	Confidence  int              `json:"confidence"`
	Reasons     []string         `json:"reasons"`
	RiskFactors []HoneypotFactor `json:"risk_factors"`
}

// TokenLiquidity is a buy/sell liquidity observation
type TokenLiquidity struct {
	BuyLiquidity  float64   `json:"buy_liquidity"`
	SellLiquidity float64   `json:"sell_liquidity"`
	Timestamp     time.Time `json:"timestamp"`
}

// TokenTransaction is an observed transfer of the token. Amount zero marks a failed transfer.
type TokenTransaction struct {
	TxHash      string    `json:"tx_hash"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Amount      float64   `json:"amount"`
	Fee         float64   `json:"fee"`
	BlockNumber uint64    `json:"block_number"`
	Timestamp   time.Time `json:"timestamp"`
}

// SimulationSample is the outcome of a buy/sell simulation run upstream
type SimulationSample struct {
	PriceImpactPct         float64   `json:"price_impact_pct"`
	BalanceModificationPct float64   `json:"balance_modification_pct"`
	Timestamp              time.Time `json:"timestamp"`
}

// OwnerPowerType enumerates privileged contract capabilities
type OwnerPowerType string

const (
	OwnerPowerMint                OwnerPowerType = "mint"
	OwnerPowerBurn                OwnerPowerType = "burn"
	OwnerPowerPause               OwnerPowerType = "pause"
	OwnerPowerUpgrade             OwnerPowerType = "upgrade"
	OwnerPowerOwnershipTransfer   OwnerPowerType = "ownership_transfer"
	OwnerPowerFeeModification     OwnerPowerType = "fee_modification"
	OwnerPowerBalanceManipulation OwnerPowerType = "balance_manipulation"
)

// OwnerPower is a detected owner capability with risk level 1-10
type OwnerPower struct {
	Type        OwnerPowerType `json:"type"`
	Description string         `json:"description"`
	RiskLevel   int            `json:"risk_level"`
	Evidence    []string       `json:"evidence"`
}

// OwnerPowerResult is the owner-power verdict for a contract
type OwnerPowerResult struct {
	Contract           string       `json:"contract"`
	HasExcessivePowers bool         `json:"has_excessive_powers"`
	RiskScore          int          `json:"risk_score"`
	Powers             []OwnerPower `json:"powers"`
	Reasons            []string     `json:"reasons"`
}

// ContractOwner records who controls a contract and since when
type ContractOwner struct {
	Address string    `json:"address"`
	Since   time.Time `json:"since"`
}

// ContractProfile lists the capabilities a static analyser found in a contract
type ContractProfile struct {
	CanMint         bool    `json:"can_mint"`
	MaxMintAmount   float64 `json:"max_mint_amount"`
	CanBurn         bool    `json:"can_burn"`
	MaxBurnAmount   float64 `json:"max_burn_amount"`
	CanPause        bool    `json:"can_pause"`
	CanUpgrade      bool    `json:"can_upgrade"`
	CanModifyFees   bool    `json:"can_modify_fees"`
	MaxFeeChangePct float64 `json:"max_fee_change_pct"`
}

// TokenSupply is the supply snapshot of a token contract
type TokenSupply struct {
	TotalSupply       float64 `json:"total_supply"`
	CirculatingSupply float64 `json:"circulating_supply"`
	OwnerBalance      float64 `json:"owner_balance"`
}

// OwnerTransaction is a transaction sent by the contract owner
type OwnerTransaction struct {
	TxHash      string    `json:"tx_hash"`
	BlockNumber uint64    `json:"block_number"`
	Function    string    `json:"function"`
	GasUsed     uint64    `json:"gas_used"`
	Timestamp   time.Time `json:"timestamp"`
}

// TradingActivity is an executed trade recorded against the daily limits
type TradingActivity struct {
	TradeID   string    `json:"trade_id"`
	Asset     string    `json:"asset"`
	Sector    string    `json:"sector"`
	SizeUSD   float64   `json:"size_usd"`
	PnLUSD    float64   `json:"pnl_usd"`
	Timestamp time.Time `json:"timestamp"`
}

// DailyUsage holds the rolling-window counters
type DailyUsage struct {
	VolumeUSD  float64   `json:"volume_usd"`
	TradeCount int       `json:"trade_count"`
	LossesUSD  float64   `json:"losses_usd"`
	LastReset  time.Time `json:"last_reset"`
}

// UsageStats projects the daily counters as if the candidate trade executed
type UsageStats struct {
	DailyVolumeUSD        float64 `json:"daily_volume_usd"`
	DailyTrades           int     `json:"daily_trades"`
	DailyLossUSD          float64 `json:"daily_loss_usd"`
	ProjectedDailyLossUSD float64 `json:"projected_daily_loss_usd"`
	AssetExposurePct      float64 `json:"asset_exposure_pct"`
	SectorExposurePct     float64 `json:"sector_exposure_pct"`
}

// LimitCheckResult is the trading limits verdict
type LimitCheckResult struct {
	Allowed bool       `json:"allowed"`
	Reasons []string   `json:"reasons"`
	Usage   UsageStats `json:"usage_stats"`
}

// LPRiskFlag marks a liquidity pool weakness
type LPRiskFlag string

const (
	LPFlagLowLiquidity      LPRiskFlag = "low_liquidity"
	LPFlagHighPriceImpact   LPRiskFlag = "high_price_impact"
	LPFlagFrequentLPChanges LPRiskFlag = "frequent_lp_changes"
	LPFlagNewLP             LPRiskFlag = "new_lp"
)

// LPQualityMetrics describes a liquidity pool's quality on a 0-100 scale
type LPQualityMetrics struct {
	LPAddress        string       `json:"lp_address"`
	TotalLiquidity   float64      `json:"total_liquidity"`
	TransactionCount int          `json:"transaction_count"`
	AvgPriceImpact   float64      `json:"avg_price_impact"`
	LPChanges        int          `json:"lp_changes"`
	QualityScore     float64      `json:"quality_score"`
	RiskFlags        []LPRiskFlag `json:"risk_flags"`
	LastUpdated      time.Time    `json:"last_updated"`
}

// CorrelationResult is the correlation between the traded pair
type CorrelationResult struct {
	Correlation           float64 `json:"correlation"`
	PriceCorrelation      float64 `json:"price_correlation"`
	VolatilityCorrelation float64 `json:"volatility_correlation"`
	RegimeCorrelation     float64 `json:"regime_correlation"`
	Confidence            float64 `json:"confidence"`
	Reason                string  `json:"reason"`
}

// MultiplierComponent is one factor of the market risk multiplier
type MultiplierComponent struct {
	Factor      string  `json:"factor"`
	Value       float64 `json:"value"`
	Description string  `json:"description"`
}

// MarketRiskMultiplier is the advisory sizing multiplier from market conditions
type MarketRiskMultiplier struct {
	Multiplier float64               `json:"multiplier"`
	Components []MultiplierComponent `json:"components"`
	Reason     string                `json:"reason"`
}

// RiskComponents carries every sub-result of a unified assessment
type RiskComponents struct {
	TradeRisk      RiskAssessment       `json:"decision_engine"`
	Honeypot       HoneypotResult       `json:"honeypot"`
	Limits         LimitCheckResult     `json:"limits"`
	OwnerPower     OwnerPowerResult     `json:"owner_power"`
	PositionSizing SizingResult         `json:"position_sizing"`
	LPQuality      *LPQualityMetrics    `json:"lp_quality,omitempty"`
	Correlation    CorrelationResult    `json:"correlation"`
	MarketRisk     MarketRiskMultiplier `json:"market_risk"`
}

// UnifiedRiskResult is the final risk verdict for a trade plan
type UnifiedRiskResult struct {
	TradeID        string         `json:"trade_id"`
	OverallScore   int            `json:"overall_score"`
	Allowed        bool           `json:"allowed"`
	Components     RiskComponents `json:"components"`
	Reasons        []string       `json:"reasons"`
	RiskMultiplier float64        `json:"risk_multiplier"`
	AssessedAt     time.Time      `json:"assessed_at"`
}
