// Package config loads the risk engine configuration from JSON, .env files and the environment
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	rerrors "github.com/ducminhle1904/trade-risk-engine/internal/errors"
	"github.com/ducminhle1904/trade-risk-engine/internal/logger"
	"github.com/ducminhle1904/trade-risk-engine/internal/market"
	"github.com/ducminhle1904/trade-risk-engine/internal/risk"
)

// Common configuration constants
const (
	DefaultConfigFile  = "risk_config.json"
	DefaultEnvFile     = ".env"
	DefaultLogDir      = "logs"
	DefaultMetricsAddr = ":9090"
	DefaultLogLevel    = "info"
)

// LoggingConfig selects the log level and directory of the daily log file
type LoggingConfig struct {
	Level string `json:"level"`
	Dir   string `json:"dir"`
}

// MonitoringConfig configures the metrics and health endpoint
type MonitoringConfig struct {
	MetricsAddr string `json:"metrics_addr"`
}

// BybitConfig selects the Bybit account a portfolio snapshot is read from.
// Credentials only come from BYBIT_API_KEY and BYBIT_API_SECRET.
type BybitConfig struct {
	Testnet           bool              `json:"testnet"`
	Demo              bool              `json:"demo"`
	AccountType       string            `json:"account_type"`
	Category          string            `json:"category"`
	NativeSymbol      string            `json:"native_symbol"`
	Sectors           map[string]string `json:"sectors,omitempty"`
	RequestsPerSecond int               `json:"requests_per_second,omitempty"`
}

// RiskConfig is the complete configuration of the risk engine and its collaborators
type RiskConfig struct {
	Unified          risk.UnifiedConfig        `json:"unified"`
	TradeRisk        risk.TradeRiskConfig      `json:"trade_risk"`
	PositionSizing   risk.PositionSizingConfig `json:"position_sizing"`
	Honeypot         risk.HoneypotConfig       `json:"honeypot"`
	OwnerPower       risk.OwnerPowerConfig     `json:"owner_power"`
	Limits           risk.TradingLimitsConfig  `json:"limits"`
	LPQuality        market.LPQualityConfig    `json:"lp_quality"`
	Correlation      market.CorrelationConfig  `json:"correlation"`
	MarketConditions market.ConditionsConfig   `json:"market_conditions"`
	Logging          LoggingConfig             `json:"logging"`
	Monitoring       MonitoringConfig          `json:"monitoring"`
	Bybit            BybitConfig               `json:"bybit"`

	// AdaptiveScoring feeds realised outcomes back into the decision engine score.
	// Off by default; read once when the service is built.
	AdaptiveScoring bool `json:"adaptive_scoring"`
}

// NewDefaultRiskConfig returns the default configuration of every component
func NewDefaultRiskConfig() *RiskConfig {
	return &RiskConfig{
		Unified:          risk.DefaultUnifiedConfig(),
		TradeRisk:        risk.DefaultTradeRiskConfig(),
		PositionSizing:   risk.DefaultPositionSizingConfig(),
		Honeypot:         risk.DefaultHoneypotConfig(),
		OwnerPower:       risk.DefaultOwnerPowerConfig(),
		Limits:           risk.DefaultTradingLimitsConfig(),
		LPQuality:        market.DefaultLPQualityConfig(),
		Correlation:      market.DefaultCorrelationConfig(),
		MarketConditions: market.DefaultConditionsConfig(),
		Logging:          LoggingConfig{Level: DefaultLogLevel, Dir: DefaultLogDir},
		Monitoring:       MonitoringConfig{MetricsAddr: DefaultMetricsAddr},
		Bybit: BybitConfig{
			Demo:         true, // never read a live account unless asked to
			AccountType:  "UNIFIED",
			Category:     "linear",
			NativeSymbol: "ETHUSDT",
		},
	}
}

// LoadRiskConfig overlays a JSON file onto the defaults and validates the result.
// Sections and fields missing from the file keep their default values.
func LoadRiskConfig(path string) (*RiskConfig, error) {
	cfg := NewDefaultRiskConfig()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, rerrors.WrapError(err, rerrors.ErrorCategoryConfiguration, "config", "LoadRiskConfig")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// SaveRiskConfig writes the configuration as indented JSON
func SaveRiskConfig(cfg *RiskConfig, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks every component configuration and reports all failures together
func (c *RiskConfig) Validate() error {
	checks := []struct {
		name string
		err  error
	}{
		{"unified", c.Unified.Validate()},
		{"trade_risk", c.TradeRisk.Validate()},
		{"position_sizing", c.PositionSizing.Validate()},
		{"honeypot", c.Honeypot.Validate()},
		{"owner_power", c.OwnerPower.Validate()},
		{"limits", c.Limits.Validate()},
		{"lp_quality", c.LPQuality.Validate()},
		{"correlation", c.Correlation.Validate()},
		{"market_conditions", c.MarketConditions.Validate()},
	}

	var problems []string
	for _, check := range checks {
		if check.err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", check.name, check.err))
		}
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		problems = append(problems, fmt.Sprintf("logging: %v", err))
	}
	if strings.TrimSpace(c.Monitoring.MetricsAddr) == "" {
		problems = append(problems, "monitoring: metrics_addr is required")
	}
	return rerrors.Join("config", "Validate", problems)
}
