package bybit

import (
	"context"
	"errors"
	"testing"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/trade-risk-engine/internal/safety"
)

type fakeAPI struct {
	wallet    []*bybit_api.ServerResponse
	positions *bybit_api.ServerResponse
	ticker    *bybit_api.ServerResponse
	calls     map[string]int
}

func ok(result interface{}) *bybit_api.ServerResponse {
	return &bybit_api.ServerResponse{RetCode: 0, RetMsg: "OK", Result: result}
}

func (f *fakeAPI) WalletBalance(ctx context.Context, accountType string) (interface{}, error) {
	i := f.calls["wallet"]
	f.calls["wallet"]++
	if i >= len(f.wallet) {
		i = len(f.wallet) - 1
	}
	return f.wallet[i], nil
}

func (f *fakeAPI) PositionList(ctx context.Context, category string) (interface{}, error) {
	f.calls["positions"]++
	return f.positions, nil
}

func (f *fakeAPI) Ticker(ctx context.Context, category, symbol string) (interface{}, error) {
	f.calls["ticker"]++
	return f.ticker, nil
}

func wallet(equity string) *bybit_api.ServerResponse {
	return ok(map[string]interface{}{
		"list": []interface{}{
			map[string]interface{}{"accountType": "UNIFIED", "totalEquity": equity, "totalPerpUPL": "-25.5"},
		},
	})
}

func newFake() *fakeAPI {
	return &fakeAPI{
		wallet: []*bybit_api.ServerResponse{wallet("10000")},
		positions: ok(map[string]interface{}{
			"category": "linear",
			"list": []interface{}{
				map[string]interface{}{"symbol": "ETHUSDT", "side": "Buy", "size": "0.5", "positionValue": "1500",
					"avgPrice": "3000", "markPrice": "2950", "unrealisedPnl": "-25.5"},
				map[string]interface{}{"symbol": "SOLUSDT", "side": "", "size": "0", "positionValue": "0"},
			},
		}),
		ticker: ok(map[string]interface{}{
			"category": "spot",
			"list":     []interface{}{map[string]interface{}{"symbol": "ETHUSDT", "lastPrice": "2950.5"}},
		}),
		calls: map[string]int{},
	}
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1}
}

// TestSnapshot tests the conversion of wallet, positions and ticker into a portfolio state
func TestSnapshot(t *testing.T) {
	fake := newFake()
	src := newPortfolioSource(fake, SourceConfig{
		NativeSymbol: "ETHUSDT",
		Sectors:      map[string]string{"ETHUSDT": "layer1"},
		Retry:        fastRetry(),
	}, nil)

	state, err := src.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 10000.0, state.PortfolioValue)
	assert.Equal(t, -25.5, state.UnrealizedPnL)
	assert.Equal(t, 2950.5, state.NativePriceUSD)
	require.Len(t, state.Positions, 1)
	assert.Equal(t, "ETHUSDT", state.Positions[0].Symbol)
	assert.Equal(t, "layer1", state.Positions[0].Sector)
	assert.Equal(t, 1500.0, state.Positions[0].SizeUSD)
	assert.Equal(t, 2950.0, state.Positions[0].CurrentPrice)
	assert.Equal(t, 0.0, state.CurrentDrawdownPct)

	fake.wallet = []*bybit_api.ServerResponse{wallet("9000")}
	fake.calls["wallet"] = 0
	state, err = src.Snapshot(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 10.0, state.CurrentDrawdownPct, 1e-9)
}

// TestSnapshotRetriesRateLimit tests that rate limited calls are retried
func TestSnapshotRetriesRateLimit(t *testing.T) {
	fake := newFake()
	fake.wallet = []*bybit_api.ServerResponse{
		{RetCode: ErrCodeRateLimitExceeded, RetMsg: "Too many visits"},
		wallet("10000"),
	}
	src := newPortfolioSource(fake, SourceConfig{Retry: fastRetry()}, nil)

	state, err := src.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, fake.calls["wallet"])
	assert.Equal(t, 0, fake.calls["ticker"])
	assert.Equal(t, 0.0, state.NativePriceUSD)
}

// TestSnapshotAuthError tests that authentication failures are not retried
func TestSnapshotAuthError(t *testing.T) {
	fake := newFake()
	fake.wallet = []*bybit_api.ServerResponse{{RetCode: ErrCodeInvalidAPIKey, RetMsg: "API key is invalid."}}
	src := newPortfolioSource(fake, SourceConfig{Retry: fastRetry()}, nil)

	_, err := src.Snapshot(context.Background())
	require.Error(t, err)
	assert.True(t, IsAuthenticationError(err))
	assert.Equal(t, 1, fake.calls["wallet"])

	var bybitErr *BybitError
	require.True(t, errors.As(err, &bybitErr))
	assert.Equal(t, ErrCodeInvalidAPIKey, bybitErr.Code)
}

// TestSnapshotEmptyAccount tests the error for an account without data
func TestSnapshotEmptyAccount(t *testing.T) {
	fake := newFake()
	fake.wallet = []*bybit_api.ServerResponse{ok(map[string]interface{}{"list": []interface{}{}})}
	src := newPortfolioSource(fake, SourceConfig{Retry: fastRetry()}, nil)

	_, err := src.Snapshot(context.Background())
	assert.ErrorContains(t, err, "no UNIFIED account data found")
}

// TestRetryHonoursContext tests that a cancelled context stops retrying
func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := retry(ctx, fastRetry(), func() error {
		calls++
		return NewBybitError(ErrCodeRateLimitExceeded, "Too many visits")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

// TestBackoff tests the capped exponential delay
func TestBackoff(t *testing.T) {
	cfg := RetryConfig{InitialDelay: time.Second, MaxDelay: 5 * time.Second, BackoffFactor: 2}
	assert.Equal(t, time.Second, backoff(0, cfg))
	assert.Equal(t, 4*time.Second, backoff(2, cfg))
	assert.Equal(t, 5*time.Second, backoff(5, cfg))
}

// TestSnapshotCircuitBreaker tests that repeated failures stop further API calls
func TestSnapshotCircuitBreaker(t *testing.T) {
	fake := newFake()
	fake.wallet = []*bybit_api.ServerResponse{{RetCode: ErrCodeInvalidAPIKey, RetMsg: "API key is invalid."}}
	src := newPortfolioSource(fake, SourceConfig{
		Retry:   fastRetry(),
		Breaker: safety.CircuitBreakerConfig{FailureThreshold: 2, Timeout: time.Hour},
	}, nil)

	for i := 0; i < 2; i++ {
		_, err := src.Snapshot(context.Background())
		require.Error(t, err)
	}
	assert.Equal(t, safety.StateOpen, src.BreakerState())

	_, err := src.Snapshot(context.Background())
	assert.ErrorIs(t, err, safety.ErrCircuitOpen)
	assert.ErrorContains(t, err, "wallet balance failed")
	assert.Equal(t, 2, fake.calls["wallet"])
}
