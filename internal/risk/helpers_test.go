package risk

import (
	"math/big"
	"time"

	"github.com/ducminhle1904/trade-risk-engine/internal/portfolio"
	"github.com/ducminhle1904/trade-risk-engine/pkg/types"
)

const (
	wethAddr  = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	tokenAddr = "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
)

type testClock struct {
	t time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func quotePlan(id string, q types.TradeQuote) *types.TradePlan {
	return &types.TradePlan{
		Chain:    types.ChainRef{Name: "ethereum", ChainID: 1},
		Router:   "0x7a250d5630b4cf539739df2c5dacb4c659f2488d",
		TokenIn:  wethAddr,
		TokenOut: tokenAddr,
		AmountIn: big.NewInt(1e18),
		Mode:     types.ExecModeDexSwap,
		IdemKey:  id,
		Quote:    &q,
	}
}

// goodQuote sits inside every excellent band of the default trade config
func goodQuote() types.TradeQuote {
	return types.TradeQuote{
		PriceImpactPct: 1.0,
		SlippagePct:    0.5,
		LiquidityUSD:   50000,
		Hops:           1,
		AmountInUSD:    1000,
	}
}

func emptyPortfolio() *portfolio.State {
	return &portfolio.State{PortfolioValue: 100000, NativePriceUSD: 2000}
}
