package bybit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ducminhle1904/trade-risk-engine/internal/logger"
	"github.com/ducminhle1904/trade-risk-engine/internal/portfolio"
	"github.com/ducminhle1904/trade-risk-engine/internal/safety"
)

const (
	defaultSector = "crypto"

	// Bybit allows 10 requests per second per endpoint for account data
	defaultRequestsPerSecond = 10
)

// SourceConfig selects the account, the positions and the native price ticker
type SourceConfig struct {
	AccountType  string            // defaults to UNIFIED
	Category     string            // defaults to linear
	NativeSymbol string            // spot ticker pricing the chain's native token, e.g. ETHUSDT
	Sectors      map[string]string // symbol to sector, unknown symbols are "crypto"
	Retry        RetryConfig

	RequestsPerSecond int                         // client side request budget, defaults to 10
	Breaker           safety.CircuitBreakerConfig // zero fields take the safety defaults
}

// PortfolioSource snapshots a Bybit account as a portfolio.State
type PortfolioSource struct {
	api      api
	config   SourceConfig
	drawdown *portfolio.DrawdownTracker
	limiter  *safety.RateLimiter
	breaker  *safety.CircuitBreaker
	log      *logger.Logger
	now      func() time.Time
}

var _ portfolio.Source = (*PortfolioSource)(nil)

// NewPortfolioSource creates a source reading through the given client
func NewPortfolioSource(client *Client, cfg SourceConfig, log *logger.Logger) *PortfolioSource {
	return newPortfolioSource(client, cfg, log)
}

func newPortfolioSource(a api, cfg SourceConfig, log *logger.Logger) *PortfolioSource {
	if cfg.AccountType == "" {
		cfg.AccountType = "UNIFIED"
	}
	if cfg.Category == "" {
		cfg.Category = "linear"
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.InitialDelay == 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaultRequestsPerSecond
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &PortfolioSource{
		api:      a,
		config:   cfg,
		drawdown: portfolio.NewDrawdownTracker(0),
		limiter:  safety.NewRateLimiter("bybit", cfg.RequestsPerSecond, float64(cfg.RequestsPerSecond)),
		breaker:  safety.NewCircuitBreaker("bybit", cfg.Breaker),
		log:      log.With("bybit"),
		now:      time.Now,
	}
	s.breaker.OnStateChange(func(name string, from, to safety.CircuitBreakerState) {
		s.log.Warning("Circuit breaker %s: %s -> %s", name, from, to)
	})
	return s
}

// BreakerState reports whether the source is currently rejecting calls
func (s *PortfolioSource) BreakerState() safety.CircuitBreakerState {
	return s.breaker.State()
}

// Snapshot implements portfolio.Source. The drawdown is measured against the highest
// equity this source has seen.
func (s *PortfolioSource) Snapshot(ctx context.Context) (*portfolio.State, error) {
	var wallet walletResult
	if err := s.call(ctx, "wallet balance", func() (interface{}, error) {
		return s.api.WalletBalance(ctx, s.config.AccountType)
	}, &wallet); err != nil {
		return nil, err
	}
	if len(wallet.List) == 0 {
		return nil, fmt.Errorf("no %s account data found", s.config.AccountType)
	}
	account := wallet.List[0]

	var positions positionResult
	if err := s.call(ctx, "position list", func() (interface{}, error) {
		return s.api.PositionList(ctx, s.config.Category)
	}, &positions); err != nil {
		return nil, err
	}

	state := &portfolio.State{
		PortfolioValue: parseFloat64(account.TotalEquity),
		UnrealizedPnL:  parseFloat64(account.TotalPerpUPL),
		Positions:      make([]portfolio.Position, 0, len(positions.List)),
		LastUpdated:    s.now(),
	}
	for _, p := range positions.List {
		if parseFloat64(p.Size) == 0 {
			continue
		}
		state.Positions = append(state.Positions, portfolio.Position{
			Symbol:       p.Symbol,
			Sector:       s.sector(p.Symbol),
			SizeUSD:      parseFloat64(p.PositionValue),
			EntryPrice:   parseFloat64(p.AvgPrice),
			CurrentPrice: parseFloat64(p.MarkPrice),
			PnL:          parseFloat64(p.UnrealisedPnl),
		})
	}

	if s.config.NativeSymbol != "" {
		var ticker tickerResult
		if err := s.call(ctx, "ticker", func() (interface{}, error) {
			return s.api.Ticker(ctx, "spot", s.config.NativeSymbol)
		}, &ticker); err != nil {
			return nil, err
		}
		if len(ticker.List) == 0 {
			return nil, fmt.Errorf("no ticker data found for %s", s.config.NativeSymbol)
		}
		state.NativePriceUSD = parseFloat64(ticker.List[0].LastPrice)
	}

	s.drawdown.Apply(state)
	s.log.Info("Snapshot: equity $%.2f, %d positions, drawdown %.2f%%",
		state.PortfolioValue, len(state.Positions), state.CurrentDrawdownPct)
	return state, nil
}

func (s *PortfolioSource) call(ctx context.Context, operation string, fn func() (interface{}, error), out interface{}) error {
	err := s.breaker.Call(func() error {
		return retry(ctx, s.config.Retry, func() error {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
			res, err := fn()
			if err != nil {
				return err
			}
			return decodeResult(res, out)
		})
	})
	if err != nil {
		if IsAuthenticationError(err) {
			s.log.Error("Bybit rejected the API credentials: %v", err)
		}
		return WrapAPIError(operation, err)
	}
	return nil
}

func (s *PortfolioSource) sector(symbol string) string {
	if sector, ok := s.config.Sectors[strings.ToUpper(symbol)]; ok {
		return sector
	}
	return defaultSector
}
