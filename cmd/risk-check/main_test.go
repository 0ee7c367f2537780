package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/trade-risk-engine/internal/portfolio"
	"github.com/ducminhle1904/trade-risk-engine/internal/risk"
	"github.com/ducminhle1904/trade-risk-engine/pkg/config"
)

func testOptions(t *testing.T) options {
	t.Helper()
	t.Setenv(config.EnvLogDir, t.TempDir())
	return options{
		scenarioFile: filepath.Join("testdata", "scenario.json"),
		envFile:      filepath.Join(t.TempDir(), "missing.env"),
		format:       "json",
	}
}

// TestParseFlags tests flag validation
func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-scenario", "s.json", "-format", "CSV", "-xlsx", "out.xlsx"})
	require.NoError(t, err)
	assert.Equal(t, "csv", opts.format)
	assert.Equal(t, "out.xlsx", opts.xlsxPath)
	assert.Equal(t, config.DefaultEnvFile, opts.envFile)

	_, err = parseFlags([]string{"-scenario", "s.json", "-format", "yaml"})
	assert.Error(t, err)

	_, err = parseFlags([]string{})
	assert.Error(t, err)

	opts, err = parseFlags([]string{"-version"})
	require.NoError(t, err)
	assert.True(t, opts.version)
}

// TestRunJSON tests a full scenario run with JSON output
func TestRunJSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), testOptions(t), &out))

	var results []risk.UnifiedRiskResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &results))
	require.Len(t, results, 3)

	assert.Equal(t, "clean-swap", results[0].TradeID)
	assert.True(t, results[0].Allowed)
	assert.InDelta(t, 1000.0, results[0].Components.Limits.Usage.DailyVolumeUSD, 1e-9)

	assert.False(t, results[1].Allowed)
	assert.True(t, results[1].Components.Honeypot.IsHoneypot)

	assert.False(t, results[2].Allowed)
	assert.True(t, results[2].Components.OwnerPower.HasExcessivePowers)
}

// TestRunConsoleAndFiles tests console output together with the file reports
func TestRunConsoleAndFiles(t *testing.T) {
	opts := testOptions(t)
	opts.format = "console"
	opts.outputDir = t.TempDir()
	opts.xlsxPath = filepath.Join(t.TempDir(), "decisions.xlsx")

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), opts, &out))
	assert.Contains(t, out.String(), "RISK DECISIONS")
	assert.Contains(t, out.String(), "pausable-swap")

	assert.FileExists(t, filepath.Join(opts.outputDir, "weth-rotation", "decisions.csv"))
	assert.FileExists(t, filepath.Join(opts.outputDir, "weth-rotation", "decisions.json"))

	fx, err := excelize.OpenFile(opts.xlsxPath)
	require.NoError(t, err)
	defer fx.Close()
	rows, err := fx.GetRows("Decisions")
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

// TestRunCSV tests CSV output on stdout
func TestRunCSV(t *testing.T) {
	opts := testOptions(t)
	opts.format = "csv"

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), opts, &out))
	assert.Contains(t, out.String(), "honeypot-swap")
	assert.Contains(t, out.String(), "Trade_ID")
}

// TestRunErrors tests invalid configuration and missing scenarios
func TestRunErrors(t *testing.T) {
	opts := testOptions(t)
	opts.scenarioFile = filepath.Join(t.TempDir(), "missing.json")
	assert.Error(t, run(context.Background(), opts, &bytes.Buffer{}))

	opts = testOptions(t)
	t.Setenv(config.EnvMinScore, "abc")
	assert.Error(t, run(context.Background(), opts, &bytes.Buffer{}))
}

// TestRunBybitRequiresCredentials tests that -bybit fails without API keys
func TestRunBybitRequiresCredentials(t *testing.T) {
	opts := testOptions(t)
	opts.useBybit = true
	t.Setenv(config.EnvBybitAPIKey, "")
	t.Setenv(config.EnvBybitAPISecret, "")

	err := run(context.Background(), opts, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.EnvBybitAPIKey)
}

// TestRunPortfolioFile tests that a snapshot file replaces the scenario portfolio
func TestRunPortfolioFile(t *testing.T) {
	opts := testOptions(t)
	opts.portfolio = filepath.Join(t.TempDir(), "state.json")

	state := &portfolio.State{PortfolioValue: 500, NativePriceUSD: 2000}
	require.NoError(t, portfolio.NewFileSource(opts.portfolio).Save(state))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), opts, &out))

	var results []risk.UnifiedRiskResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &results))
	require.Len(t, results, 3)
	assert.False(t, results[0].Allowed, "a $1000 trade breaches the per-trade share of a $500 portfolio")

	opts.portfolio = filepath.Join(t.TempDir(), "missing.json")
	assert.ErrorContains(t, run(context.Background(), opts, &out), "failed to read portfolio state file")
}
