// Package service assembles the risk components from configuration and runs
// trade evaluations against them.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ducminhle1904/trade-risk-engine/internal/logger"
	"github.com/ducminhle1904/trade-risk-engine/internal/market"
	"github.com/ducminhle1904/trade-risk-engine/internal/monitoring"
	"github.com/ducminhle1904/trade-risk-engine/internal/portfolio"
	"github.com/ducminhle1904/trade-risk-engine/internal/risk"
	"github.com/ducminhle1904/trade-risk-engine/pkg/config"
	"github.com/ducminhle1904/trade-risk-engine/pkg/types"
)

// Option configures a Service
type Option func(*Service)

// WithLogger sets the logger every component writes to
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock replaces time.Now in every component
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service owns one instance of every risk component and the engine combining them
type Service struct {
	cfg *config.RiskConfig
	log *logger.Logger
	now func() time.Time

	TradeRisk   *risk.TradeRiskAssessor
	Adaptive    *risk.AdaptiveTradeRiskAssessor
	Sizing      *risk.PositionSizingEngine
	Honeypot    *risk.HoneypotDetector
	OwnerPower  *risk.OwnerPowerMonitor
	Limits      *risk.TradingLimitsEnforcer
	LPQuality   *market.LPQualityAssessor
	Correlation *market.CorrelationAnalyzer
	Conditions  *market.ConditionAdjuster

	engine *risk.UnifiedRiskEngine
	guard  *risk.Guard
	health *monitoring.HealthChecker
}

// New builds every component from cfg
func New(cfg *config.RiskConfig, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.NewDefaultRiskConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Service{cfg: cfg, log: logger.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	riskOpts := []risk.Option{risk.WithLogger(s.log), risk.WithClock(s.now)}
	marketOpts := []market.Option{market.WithLogger(s.log), market.WithClock(s.now)}

	var err error
	if s.TradeRisk, err = risk.NewTradeRiskAssessor(cfg.TradeRisk, riskOpts...); err != nil {
		return nil, fmt.Errorf("trade risk: %w", err)
	}
	s.Adaptive = risk.NewAdaptiveTradeRiskAssessor(s.TradeRisk, riskOpts...)

	// outcomes are always collected; they only move scores when adaptive scoring is on
	var tradeRisk risk.TradeAssessor = s.TradeRisk
	if cfg.AdaptiveScoring {
		tradeRisk = s.Adaptive
	}

	if s.Sizing, err = risk.NewPositionSizingEngine(cfg.PositionSizing, riskOpts...); err != nil {
		return nil, fmt.Errorf("position sizing: %w", err)
	}
	if s.Honeypot, err = risk.NewHoneypotDetector(cfg.Honeypot, riskOpts...); err != nil {
		return nil, fmt.Errorf("honeypot: %w", err)
	}
	if s.OwnerPower, err = risk.NewOwnerPowerMonitor(cfg.OwnerPower, riskOpts...); err != nil {
		return nil, fmt.Errorf("owner power: %w", err)
	}
	if s.Limits, err = risk.NewTradingLimitsEnforcer(cfg.Limits, nil, riskOpts...); err != nil {
		return nil, fmt.Errorf("limits: %w", err)
	}
	if s.LPQuality, err = market.NewLPQualityAssessor(cfg.LPQuality, marketOpts...); err != nil {
		return nil, fmt.Errorf("lp quality: %w", err)
	}
	if s.Correlation, err = market.NewCorrelationAnalyzer(cfg.Correlation, marketOpts...); err != nil {
		return nil, fmt.Errorf("correlation: %w", err)
	}
	if s.Conditions, err = market.NewConditionAdjuster(cfg.MarketConditions, marketOpts...); err != nil {
		return nil, fmt.Errorf("market conditions: %w", err)
	}

	s.engine, err = risk.NewUnifiedRiskEngine(cfg.Unified, risk.Components{
		TradeRisk:      tradeRisk,
		PositionSizing: s.Sizing,
		Honeypot:       s.Honeypot,
		OwnerPower:     s.OwnerPower,
		Limits:         s.Limits,
		LPQuality:      s.LPQuality,
		Correlation:    s.Correlation,
		MarketRisk:     s.Conditions,
	}, riskOpts...)
	if err != nil {
		return nil, err
	}
	s.guard = risk.NewGuard(s.engine)

	s.health = monitoring.NewHealthChecker(24 * time.Hour)
	s.health.SetEngineEnabled(cfg.Unified.Enabled)

	return s, nil
}

// Config returns the configuration the service was built from
func (s *Service) Config() *config.RiskConfig {
	return s.cfg
}

// Health returns the health checker fed by every evaluation
func (s *Service) Health() *monitoring.HealthChecker {
	return s.health
}

// Do runs fn with exclusive access to the engine and its components
func (s *Service) Do(fn func(e *risk.UnifiedRiskEngine) error) error {
	return s.guard.Do(fn)
}

// TradeRequest is a plan to evaluate, optionally recorded as executed when allowed
type TradeRequest struct {
	Plan   *types.TradePlan `json:"plan"`
	Record bool             `json:"record"`
	// PnLUSD is the realised PnL reported back when Record is set
	PnLUSD float64 `json:"pnl_usd"`
}

// Evaluate assesses each request in order against the same portfolio state.
// Allowed requests marked Record count against the limits of the requests after them.
func (s *Service) Evaluate(ctx context.Context, requests []TradeRequest, state *portfolio.State) ([]*risk.UnifiedRiskResult, error) {
	results := make([]*risk.UnifiedRiskResult, 0, len(requests))
	for i, req := range requests {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if req.Plan == nil {
			return results, fmt.Errorf("trade %d has no plan", i)
		}

		result, err := s.guard.AssessRisk(req.Plan, state)
		if err != nil {
			s.health.RecordError(err.Error())
			return results, fmt.Errorf("trade %d: %w", i, err)
		}
		s.health.RecordAssessment(result.OverallScore)
		results = append(results, result)

		if req.Record && result.Allowed {
			if err := s.record(req, result, state); err != nil {
				return results, err
			}
		}
	}
	return results, nil
}

func (s *Service) record(req TradeRequest, result *risk.UnifiedRiskResult, state *portfolio.State) error {
	activity := risk.TradingActivity{
		TradeID:   result.TradeID,
		Asset:     types.NormalizeAddress(req.Plan.TokenOut),
		Sector:    risk.TradeSector(req.Plan),
		SizeUSD:   risk.TradeSizeUSD(req.Plan, state),
		PnLUSD:    req.PnLUSD,
		Timestamp: s.now(),
	}
	return s.guard.Do(func(e *risk.UnifiedRiskEngine) error {
		if err := e.RecordTrade(activity); err != nil {
			return fmt.Errorf("record %s: %w", result.TradeID, err)
		}
		s.Adaptive.RecordOutcome(result.TradeID, returnOnSize(req.PnLUSD, activity.SizeUSD), result.Components.TradeRisk.Score)
		s.log.Info("Recorded trade %s: $%.2f, pnl $%.2f", result.TradeID, activity.SizeUSD, activity.PnLUSD)
		return nil
	})
}

// returnOnSize expresses a realised PnL as a fraction of the trade notional
func returnOnSize(pnlUSD, sizeUSD float64) float64 {
	if sizeUSD <= 0 {
		return 0
	}
	return pnlUSD / sizeUSD
}
