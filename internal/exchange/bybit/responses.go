package bybit

import (
	"encoding/json"
	"fmt"
	"strconv"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
)

type walletResult struct {
	List []struct {
		AccountType        string `json:"accountType"`
		TotalEquity        string `json:"totalEquity"`
		TotalWalletBalance string `json:"totalWalletBalance"`
		TotalPerpUPL       string `json:"totalPerpUPL"`
		Coin               []struct {
			Coin          string `json:"coin"`
			Equity        string `json:"equity"`
			UsdValue      string `json:"usdValue"`
			UnrealisedPnl string `json:"unrealisedPnl"`
		} `json:"coin"`
	} `json:"list"`
}

type positionResult struct {
	Category string `json:"category"`
	List     []struct {
		Symbol        string `json:"symbol"`
		Side          string `json:"side"`
		Size          string `json:"size"`
		PositionValue string `json:"positionValue"`
		AvgPrice      string `json:"avgPrice"`
		MarkPrice     string `json:"markPrice"`
		UnrealisedPnl string `json:"unrealisedPnl"`
	} `json:"list"`
}

type tickerResult struct {
	Category string `json:"category"`
	List     []struct {
		Symbol    string `json:"symbol"`
		LastPrice string `json:"lastPrice"`
	} `json:"list"`
}

// decodeResult checks the return code of a raw API response and decodes its result
func decodeResult(response interface{}, out interface{}) error {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok || serverResp == nil {
		return fmt.Errorf("invalid response type %T", response)
	}
	if err := ParseAPIError(serverResp.RetCode, serverResp.RetMsg); err != nil {
		return err
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := json.Unmarshal(resultBytes, out); err != nil {
		return fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return nil
}

func parseFloat64(s string) float64 {
	if s == "" {
		return 0
	}
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
