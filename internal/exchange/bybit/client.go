package bybit

import (
	"context"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
)

const demoBaseURL = "https://api-demo.bybit.com"

// Config holds the credentials and account selection for the Bybit client
type Config struct {
	APIKey      string
	APISecret   string
	Testnet     bool
	Demo        bool   // Demo trading environment
	AccountType string // defaults to UNIFIED
	Category    string // position category, defaults to linear
}

// api is the subset of the Bybit V5 REST API the portfolio source reads
type api interface {
	WalletBalance(ctx context.Context, accountType string) (interface{}, error)
	PositionList(ctx context.Context, category string) (interface{}, error)
	Ticker(ctx context.Context, category, symbol string) (interface{}, error)
}

// Client wraps the Bybit API client
type Client struct {
	httpClient *bybit_api.Client
	testnet    bool
	demo       bool
}

// NewClient creates a new Bybit client
func NewClient(config Config) *Client {
	var baseURL string
	if config.Demo {
		baseURL = demoBaseURL
	} else if config.Testnet {
		baseURL = bybit_api.TESTNET
	} else {
		baseURL = bybit_api.MAINNET
	}

	httpClient := bybit_api.NewBybitHttpClient(
		config.APIKey,
		config.APISecret,
		bybit_api.WithBaseURL(baseURL),
	)

	return &Client{httpClient: httpClient, testnet: config.Testnet, demo: config.Demo}
}

// Environment returns "demo", "testnet" or "mainnet"
func (c *Client) Environment() string {
	switch {
	case c.demo:
		return "demo"
	case c.testnet:
		return "testnet"
	default:
		return "mainnet"
	}
}

func (c *Client) WalletBalance(ctx context.Context, accountType string) (interface{}, error) {
	params := map[string]interface{}{"accountType": accountType}
	res, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetAccountWallet(ctx)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) PositionList(ctx context.Context, category string) (interface{}, error) {
	params := map[string]interface{}{"category": category, "settleCoin": "USDT"}
	res, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetPositionList(ctx)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) Ticker(ctx context.Context, category, symbol string) (interface{}, error) {
	params := map[string]interface{}{"category": category, "symbol": symbol}
	res, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
	if err != nil {
		return nil, err
	}
	return res, nil
}
