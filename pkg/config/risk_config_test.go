package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rerrors "github.com/ducminhle1904/trade-risk-engine/internal/errors"
)

// TestDefaultRiskConfigValid tests that the defaults pass validation
func TestDefaultRiskConfigValid(t *testing.T) {
	cfg := NewDefaultRiskConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 70, cfg.Unified.MinRiskScore)
	assert.Equal(t, DefaultMetricsAddr, cfg.Monitoring.MetricsAddr)
	assert.True(t, cfg.Bybit.Demo)
}

// TestLoadRiskConfigOverlaysDefaults tests that a partial file keeps untouched defaults
func TestLoadRiskConfigOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "risk.json")
	raw := `{
		"unified": {"enabled": true, "min_risk_score": 80, "decision_engine_weight": 1},
		"limits": {"max_position_size_usd": 5000},
		"logging": {"level": "debug"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	cfg, err := LoadRiskConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 80, cfg.Unified.MinRiskScore)
	assert.Equal(t, 1.0, cfg.Unified.DecisionEngineWeight)
	assert.Equal(t, 0.2, cfg.Unified.HoneypotWeight)
	assert.Equal(t, 5000.0, cfg.Limits.MaxPositionSizeUSD)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, NewDefaultRiskConfig().Honeypot, cfg.Honeypot)
}

// TestLoadRiskConfigErrors tests missing, malformed and invalid files
func TestLoadRiskConfigErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadRiskConfig(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"unified": `), 0644))
	_, err = LoadRiskConfig(bad)
	require.Error(t, err)
	assert.True(t, rerrors.IsConfiguration(err))

	invalid := filepath.Join(dir, "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{"unified": {"min_risk_score": 150}}`), 0644))
	_, err = LoadRiskConfig(invalid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_risk_score")
}

// TestLoadRiskConfigEmptyPath tests that no path yields the defaults
func TestLoadRiskConfigEmptyPath(t *testing.T) {
	cfg, err := LoadRiskConfig("")
	require.NoError(t, err)
	assert.Equal(t, NewDefaultRiskConfig(), cfg)
}

// TestSaveRiskConfigRoundTrip tests that a saved configuration loads back unchanged
func TestSaveRiskConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultConfigFile)
	cfg := NewDefaultRiskConfig()
	cfg.Unified.EnforcePositionSizing = true
	cfg.Bybit.Sectors = map[string]string{"ETHUSDT": "L1"}

	require.NoError(t, SaveRiskConfig(cfg, path))
	loaded, err := LoadRiskConfig(path)
	require.NoError(t, err)
	assert.True(t, loaded.Unified.EnforcePositionSizing)
	assert.Equal(t, "L1", loaded.Bybit.Sectors["ETHUSDT"])
}

// TestValidateCollectsAllProblems tests that every failing section is reported
func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := NewDefaultRiskConfig()
	cfg.Unified.HoneypotWeight = -1
	cfg.Logging.Level = "loud"
	cfg.Monitoring.MetricsAddr = " "

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unified")
	assert.Contains(t, err.Error(), "logging")
	assert.Contains(t, err.Error(), "metrics_addr")
}
