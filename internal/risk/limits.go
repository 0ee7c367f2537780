package risk

import (
	"fmt"
	"math"
	"strings"
	"time"

	rerrors "github.com/ducminhle1904/trade-risk-engine/internal/errors"
	"github.com/ducminhle1904/trade-risk-engine/internal/logger"
	"github.com/ducminhle1904/trade-risk-engine/internal/monitoring"
	"github.com/ducminhle1904/trade-risk-engine/internal/portfolio"
)

const maxTradingHistory = 10000

// TradingLimitsEnforcer tracks rolling usage and rejects trades that would push it
// past the configured ceilings. Only RecordTrade moves the counters forward.
type TradingLimitsEnforcer struct {
	config  TradingLimitsConfig
	state   *portfolio.State
	usage   DailyUsage
	history []TradingActivity
	log     *logger.Logger
	now     func() time.Time
}

// NewTradingLimitsEnforcer creates an enforcer for the given portfolio snapshot
func NewTradingLimitsEnforcer(cfg TradingLimitsConfig, state *portfolio.State, opts ...Option) (*TradingLimitsEnforcer, error) {
	o := buildOptions("limits", opts)
	e := &TradingLimitsEnforcer{log: o.log, now: o.now}
	if err := e.UpdateConfig(cfg); err != nil {
		return nil, err
	}
	e.UpdatePortfolioState(state)
	e.usage.LastReset = e.now()
	return e, nil
}

// UpdateConfig validates and applies a new configuration
func (e *TradingLimitsEnforcer) UpdateConfig(cfg TradingLimitsConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.config = cfg
	return nil
}

// Config returns the active configuration
func (e *TradingLimitsEnforcer) Config() TradingLimitsConfig {
	return e.config
}

// UpdatePortfolioState replaces the snapshot used for percentage ceilings
func (e *TradingLimitsEnforcer) UpdatePortfolioState(state *portfolio.State) {
	if state == nil {
		state = &portfolio.State{}
	}
	e.state = state.Clone()
}

// DailyUsage returns the current rolling counters
func (e *TradingLimitsEnforcer) DailyUsage() DailyUsage {
	return e.usage
}

// History returns the recorded trades inside the window, oldest first
func (e *TradingLimitsEnforcer) History() []TradingActivity {
	return append([]TradingActivity(nil), e.history...)
}

// ResetLimits zeroes the counters and restarts the window
func (e *TradingLimitsEnforcer) ResetLimits() {
	e.usage = DailyUsage{LastReset: e.now()}
	monitoring.UpdateDailyUsage(0, 0, 0)
}

// CheckTradeLimits reports every ceiling the candidate trade would breach
func (e *TradingLimitsEnforcer) CheckTradeLimits(tradeID, asset, sector string, sizeUSD, expectedPnL float64) (*LimitCheckResult, error) {
	e.log.Debug("Checking trading limits for trade: %s", tradeID)

	if !e.config.Enabled {
		return &LimitCheckResult{
			Allowed: true,
			Reasons: []string{"Trading limits enforcement disabled"},
			Usage:   e.usageStats(asset, sector, sizeUSD, expectedPnL),
		}, nil
	}
	if e.state.PortfolioValue <= 0 {
		return nil, rerrors.NewValidationError("limits", "CheckTradeLimits", "portfolio value must be positive")
	}
	if sizeUSD < 0 || math.IsNaN(sizeUSD) {
		return nil, rerrors.NewValidationError("limits", "CheckTradeLimits",
			fmt.Sprintf("trade size cannot be negative, got %.2f", sizeUSD))
	}

	e.resetIfWindowElapsed()

	cfg := e.config
	usage := e.usageStats(asset, sector, sizeUSD, expectedPnL)
	reasons := []string{}

	if sizeUSD > cfg.MaxPositionSizeUSD {
		reasons = append(reasons, fmt.Sprintf("Trade size $%.2f exceeds maximum $%.2f", sizeUSD, cfg.MaxPositionSizeUSD))
	}
	if sizePct := pct(sizeUSD, e.state.PortfolioValue); sizePct > cfg.MaxPositionSizePct {
		reasons = append(reasons, fmt.Sprintf("Trade size %.2f%% exceeds maximum %.2f%% of portfolio", sizePct, cfg.MaxPositionSizePct))
	}
	if usage.DailyVolumeUSD > cfg.MaxDailyVolumeUSD {
		reasons = append(reasons, fmt.Sprintf("Daily volume $%.2f exceeds maximum $%.2f", usage.DailyVolumeUSD, cfg.MaxDailyVolumeUSD))
	}
	if usage.DailyTrades > cfg.MaxTradesPerDay {
		reasons = append(reasons, fmt.Sprintf("Daily trade count %d exceeds maximum %d", usage.DailyTrades, cfg.MaxTradesPerDay))
	}
	if usage.ProjectedDailyLossUSD > cfg.MaxDailyLossUSD {
		reasons = append(reasons, fmt.Sprintf("Projected daily loss $%.2f exceeds maximum $%.2f", usage.ProjectedDailyLossUSD, cfg.MaxDailyLossUSD))
	}
	if lossPct := pct(usage.ProjectedDailyLossUSD, e.state.PortfolioValue); lossPct > cfg.MaxDailyLossPct {
		reasons = append(reasons, fmt.Sprintf("Projected daily loss %.2f%% exceeds maximum %.2f%% of portfolio", lossPct, cfg.MaxDailyLossPct))
	}
	if usage.AssetExposurePct > cfg.MaxAssetExposurePct {
		reasons = append(reasons, fmt.Sprintf("Asset exposure %.2f%% exceeds maximum %.2f%%", usage.AssetExposurePct, cfg.MaxAssetExposurePct))
	}
	if usage.SectorExposurePct > cfg.MaxSectorExposurePct {
		reasons = append(reasons, fmt.Sprintf("Sector exposure %.2f%% exceeds maximum %.2f%%", usage.SectorExposurePct, cfg.MaxSectorExposurePct))
	}

	allowed := len(reasons) == 0
	if allowed {
		e.log.Info("Trade %s approved within limits", tradeID)
	} else {
		e.log.Warning("Trade %s rejected due to limit violations: %s", tradeID, strings.Join(reasons, "; "))
	}
	monitoring.RecordDecision("limits", allowed)

	return &LimitCheckResult{Allowed: allowed, Reasons: reasons, Usage: usage}, nil
}

// usageStats projects the counters as if the candidate trade had executed
func (e *TradingLimitsEnforcer) usageStats(asset, sector string, sizeUSD, expectedPnL float64) UsageStats {
	return UsageStats{
		DailyVolumeUSD:        e.usage.VolumeUSD + sizeUSD,
		DailyTrades:           e.usage.TradeCount + 1,
		DailyLossUSD:          e.usage.LossesUSD,
		ProjectedDailyLossUSD: e.usage.LossesUSD + math.Abs(math.Min(expectedPnL, 0)),
		AssetExposurePct:      pct(e.state.AssetExposure(asset)+sizeUSD, e.state.PortfolioValue),
		SectorExposurePct:     pct(e.state.SectorExposure(sector)+sizeUSD, e.state.PortfolioValue),
	}
}

// RecordTrade adds an executed trade to the counters, whether or not it was checked
func (e *TradingLimitsEnforcer) RecordTrade(activity TradingActivity) error {
	if activity.SizeUSD < 0 || math.IsNaN(activity.SizeUSD) {
		return rerrors.NewValidationError("limits", "RecordTrade",
			fmt.Sprintf("trade size cannot be negative, got %.2f", activity.SizeUSD))
	}
	if activity.Timestamp.IsZero() {
		activity.Timestamp = e.now()
	}

	e.resetIfWindowElapsed()
	e.usage.VolumeUSD += activity.SizeUSD
	e.usage.TradeCount++
	if activity.PnLUSD < 0 {
		e.usage.LossesUSD += math.Abs(activity.PnLUSD)
	}

	e.history = append(e.history, activity)
	e.pruneHistory()

	e.log.Debug("Recorded trade %s: volume=%.2f trades=%d losses=%.2f",
		activity.TradeID, e.usage.VolumeUSD, e.usage.TradeCount, e.usage.LossesUSD)
	monitoring.UpdateDailyUsage(e.usage.VolumeUSD, e.usage.TradeCount, e.usage.LossesUSD)
	return nil
}

func (e *TradingLimitsEnforcer) resetIfWindowElapsed() {
	now := e.now()
	if now.Sub(e.usage.LastReset) <= e.config.TimeWindow() {
		return
	}
	e.log.Info("Trading window elapsed, resetting daily usage")
	e.usage = DailyUsage{LastReset: now}
	e.pruneHistory()
	monitoring.UpdateDailyUsage(0, 0, 0)
}

func (e *TradingLimitsEnforcer) pruneHistory() {
	cutoff := e.now().Add(-e.config.TimeWindow())
	kept := e.history[:0]
	for _, a := range e.history {
		if a.Timestamp.After(cutoff) {
			kept = append(kept, a)
		}
	}
	if over := len(kept) - maxTradingHistory; over > 0 {
		kept = append([]TradingActivity(nil), kept[over:]...)
	}
	e.history = kept
}
