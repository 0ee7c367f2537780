package types

import (
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
)

// ChainRef identifies the chain a trade executes on
type ChainRef struct {
	Name    string `json:"name"`
	ChainID uint64 `json:"chain_id"`
}

// ExecMode is the execution route selected by the planner
type ExecMode string

const (
	ExecModeDexSwap   ExecMode = "dex_swap"
	ExecModeBundle    ExecMode = "bundle"
	ExecModeMempool   ExecMode = "mempool"
	ExecModeAggregate ExecMode = "aggregator"
)

// GasPolicy carries EIP-1559 fee caps
type GasPolicy struct {
	MaxFeeGwei         uint64 `json:"max_fee_gwei"`
	MaxPriorityFeeGwei uint64 `json:"max_priority_fee_gwei"`
}

// ExitRules describes how the position opened by a plan is closed
type ExitRules struct {
	TakeProfitPct float64 `json:"take_profit_pct,omitempty"`
	StopLossPct   float64 `json:"stop_loss_pct,omitempty"`
	TrailingPct   float64 `json:"trailing_pct,omitempty"`
	TimeLimitSec  uint64  `json:"time_limit_sec,omitempty"`
}

// TradeQuote holds pre-computed market metrics for a plan. Upstream planners attach it
// when they have a route quote; the risk engine never fetches one itself.
type TradeQuote struct {
	PriceImpactPct float64 `json:"price_impact_pct"`
	SlippagePct    float64 `json:"slippage_pct"`
	LiquidityUSD   float64 `json:"liquidity_usd"`
	Hops           int     `json:"hops"`
	AmountInUSD    float64 `json:"amount_in_usd,omitempty"`
	ExpectedPnLUSD float64 `json:"expected_pnl_usd,omitempty"`
	Sector         string  `json:"sector,omitempty"`
}

// TradePlan is a proposed trade awaiting a risk decision
type TradePlan struct {
	Chain    ChainRef    `json:"chain"`
	Router   string      `json:"router"`
	TokenIn  string      `json:"token_in"`
	TokenOut string      `json:"token_out"`
	AmountIn *big.Int    `json:"amount_in"`
	MinOut   *big.Int    `json:"min_out"`
	Mode     ExecMode    `json:"mode"`
	Gas      GasPolicy   `json:"gas"`
	Exits    ExitRules   `json:"exits"`
	IdemKey  string      `json:"idem_key"`
	Quote    *TradeQuote `json:"quote,omitempty"`
}

// AmountInEther converts AmountIn from wei into whole native-token units
func (p *TradePlan) AmountInEther() float64 {
	if p == nil || p.AmountIn == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(p.AmountIn), big.NewFloat(params.Ether)).Float64()
	return f
}

// Decision is the go/no-go verdict on a plan
type Decision struct {
	Allow     bool     `json:"allow"`
	Reasons   []string `json:"reasons"`
	RiskScore int      `json:"risk_score"`
}

// ExecReceipt summarises an executed plan
type ExecReceipt struct {
	TxHash    string    `json:"tx_hash"`
	Success   bool      `json:"success"`
	BlockNum  uint64    `json:"block_num"`
	GasUsed   uint64    `json:"gas_used"`
	FeesWei   *big.Int  `json:"fees_wei,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NormalizeAddress returns the checksummed form of a hex address so that differently
// cased inputs share one map key. Non-address identifiers are only trimmed.
func NormalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if common.IsHexAddress(addr) {
		return common.HexToAddress(addr).Hex()
	}
	return addr
}
