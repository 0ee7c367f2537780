package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override the configuration file
const (
	EnvEngineEnabled         = "RISK_ENGINE_ENABLED"
	EnvMinScore              = "RISK_MIN_SCORE"
	EnvLogLevel              = "RISK_LOG_LEVEL"
	EnvLogDir                = "RISK_LOG_DIR"
	EnvMetricsAddr           = "RISK_METRICS_ADDR"
	EnvEnforcePositionSizing = "RISK_ENFORCE_POSITION_SIZING"

	EnvBybitAPIKey    = "BYBIT_API_KEY"
	EnvBybitAPISecret = "BYBIT_API_SECRET"
)

// LoadEnvFile loads variables from a .env file. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = DefaultEnvFile
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("could not load environment file %s: %w", path, err)
	}
	return nil
}

// ApplyEnvOverrides applies RISK_* environment variables on top of cfg
func ApplyEnvOverrides(cfg *RiskConfig) error {
	var problems []string

	if v, ok := lookup(EnvEngineEnabled); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", EnvEngineEnabled, err))
		} else {
			cfg.Unified.Enabled = b
		}
	}
	if v, ok := lookup(EnvMinScore); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", EnvMinScore, err))
		} else {
			cfg.Unified.MinRiskScore = n
		}
	}
	if v, ok := lookup(EnvEnforcePositionSizing); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", EnvEnforcePositionSizing, err))
		} else {
			cfg.Unified.EnforcePositionSizing = b
		}
	}
	if v, ok := lookup(EnvLogLevel); ok {
		cfg.Logging.Level = v
	}
	if v, ok := lookup(EnvLogDir); ok {
		cfg.Logging.Dir = v
	}
	if v, ok := lookup(EnvMetricsAddr); ok {
		cfg.Monitoring.MetricsAddr = v
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid environment overrides: %s", strings.Join(problems, "; "))
	}
	return nil
}

// BybitCredentials returns the API key and secret from the environment
func BybitCredentials() (key, secret string, err error) {
	key, secret = os.Getenv(EnvBybitAPIKey), os.Getenv(EnvBybitAPISecret)
	if key == "" || secret == "" {
		return "", "", fmt.Errorf("%s and %s must be set", EnvBybitAPIKey, EnvBybitAPISecret)
	}
	return key, secret, nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}
