package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ducminhle1904/trade-risk-engine/cmd/common"
	"github.com/ducminhle1904/trade-risk-engine/internal/exchange/bybit"
	"github.com/ducminhle1904/trade-risk-engine/internal/logger"
	"github.com/ducminhle1904/trade-risk-engine/internal/monitoring"
	"github.com/ducminhle1904/trade-risk-engine/internal/portfolio"
	"github.com/ducminhle1904/trade-risk-engine/internal/risk"
	"github.com/ducminhle1904/trade-risk-engine/internal/service"
	"github.com/ducminhle1904/trade-risk-engine/pkg/config"
	"github.com/ducminhle1904/trade-risk-engine/pkg/reporting"
)

const appName = "risk-check"

type options struct {
	configFile   string
	scenarioFile string
	envFile      string
	format       string
	xlsxPath     string
	outputDir    string
	metricsAddr  string
	portfolio    string
	serve        bool
	useBybit     bool
	version      bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.StringVar(&o.configFile, "config", "", "Risk configuration file (defaults are used when empty)")
	fs.StringVar(&o.scenarioFile, "scenario", "", "Scenario file with the portfolio, observations and trades to evaluate")
	fs.StringVar(&o.envFile, "env", config.DefaultEnvFile, "Environment file path")
	fs.StringVar(&o.format, "format", "console", "Output format: console, json or csv")
	fs.StringVar(&o.xlsxPath, "xlsx", "", "Also write an Excel workbook to this path")
	fs.StringVar(&o.outputDir, "out", "", "Also write decisions.csv and decisions.json under this directory")
	fs.StringVar(&o.metricsAddr, "metrics-addr", "", "Serve /metrics and /health on this address (overrides config)")
	fs.StringVar(&o.portfolio, "portfolio", "", "Portfolio snapshot file; read instead of the scenario portfolio, or written after a -bybit snapshot")
	fs.BoolVar(&o.serve, "serve", false, "Keep serving metrics after the evaluation until interrupted")
	fs.BoolVar(&o.useBybit, "bybit", false, "Snapshot the portfolio from Bybit instead of the scenario")
	fs.BoolVar(&o.version, "version", false, "Show version information")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	o.format = strings.ToLower(strings.TrimSpace(o.format))
	switch o.format {
	case "console", "json", "csv":
	default:
		return o, fmt.Errorf("unknown format %q, expected console, json or csv", o.format)
	}
	if !o.version && o.scenarioFile == "" {
		return o, errors.New("please specify a scenario file with -scenario")
	}
	return o, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}
	if opts.version {
		common.PrintVersion(appName)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		log.Fatalf("risk check failed: %v", err)
	}
}

func run(ctx context.Context, opts options, stdout io.Writer) error {
	if err := config.LoadEnvFile(opts.envFile); err != nil {
		log.Printf("Warning: %v, using process environment", err)
	}

	cfg, err := config.LoadRiskConfig(opts.configFile)
	if err != nil {
		return err
	}
	if err := config.ApplyEnvOverrides(cfg); err != nil {
		return err
	}
	if opts.metricsAddr != "" {
		cfg.Monitoring.MetricsAddr = opts.metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	appLog, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer appLog.Close()

	svc, err := service.New(cfg, service.WithLogger(appLog))
	if err != nil {
		return fmt.Errorf("failed to build risk engine: %w", err)
	}

	var srv *http.Server
	if opts.serve || opts.metricsAddr != "" {
		srv = startMetricsServer(cfg.Monitoring.MetricsAddr, svc.Health(), appLog)
		defer shutdown(srv)
	}

	sc, err := service.LoadScenario(opts.scenarioFile)
	if err != nil {
		return err
	}
	if err := svc.Seed(sc); err != nil {
		return fmt.Errorf("failed to seed scenario %s: %w", sc.Name, err)
	}

	state, err := portfolioState(ctx, opts, cfg, sc, appLog)
	if err != nil {
		return err
	}

	results, err := svc.Evaluate(ctx, sc.Trades, state)
	if err != nil {
		return err
	}
	if err := writeResults(stdout, opts, cfg.Unified, sc.Name, results); err != nil {
		return err
	}

	if opts.serve && srv != nil {
		appLog.Info("Serving metrics on %s until interrupted", cfg.Monitoring.MetricsAddr)
		<-ctx.Done()
	}
	return nil
}

func newLogger(cfg config.LoggingConfig) (*logger.Logger, error) {
	level, err := logger.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if cfg.Dir == "" {
		return logger.New(os.Stderr, appName, level), nil
	}
	return logger.NewFileLogger(cfg.Dir, appName, level)
}

func portfolioState(ctx context.Context, opts options, cfg *config.RiskConfig, sc *service.Scenario, log *logger.Logger) (*portfolio.State, error) {
	if !opts.useBybit {
		if opts.portfolio != "" {
			return portfolio.NewFileSource(opts.portfolio).Snapshot(ctx)
		}
		if sc.Portfolio == nil && cfg.Unified.Enabled {
			return nil, fmt.Errorf("scenario %s has no portfolio; pass -bybit to read one from the exchange", sc.Name)
		}
		return sc.Portfolio, nil
	}

	key, secret, err := config.BybitCredentials()
	if err != nil {
		return nil, err
	}
	client := bybit.NewClient(bybit.Config{
		APIKey:      key,
		APISecret:   secret,
		Testnet:     cfg.Bybit.Testnet,
		Demo:        cfg.Bybit.Demo,
		AccountType: cfg.Bybit.AccountType,
		Category:    cfg.Bybit.Category,
	})
	log.Info("Reading portfolio from Bybit %s", client.Environment())

	source := bybit.NewPortfolioSource(client, bybit.SourceConfig{
		AccountType:       cfg.Bybit.AccountType,
		Category:          cfg.Bybit.Category,
		NativeSymbol:      cfg.Bybit.NativeSymbol,
		Sectors:           cfg.Bybit.Sectors,
		RequestsPerSecond: cfg.Bybit.RequestsPerSecond,
	}, log)

	snapCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	state, err := source.Snapshot(snapCtx)
	if err != nil {
		return nil, err
	}
	if opts.portfolio != "" {
		if err := portfolio.NewFileSource(opts.portfolio).Save(state); err != nil {
			log.LogError("save portfolio snapshot", err)
		}
	}
	return state, nil
}

func writeResults(w io.Writer, opts options, engineCfg risk.UnifiedConfig, runName string, results []*risk.UnifiedRiskResult) error {
	switch opts.format {
	case "json":
		if err := reporting.PrintDecisionsJSON(w, results); err != nil {
			return err
		}
	case "csv":
		if err := reporting.WriteDecisionsCSVTo(w, results); err != nil {
			return err
		}
	default:
		m := reporting.NewReportingManager(reporting.ReportingConfig{EnableConsole: true}, engineCfg)
		if _, err := m.ReportDecisions(w, results, runName); err != nil {
			return err
		}
	}

	if opts.outputDir != "" {
		m := reporting.NewReportingManager(reporting.ReportingConfig{
			EnableFiles:     true,
			OutputDirectory: opts.outputDir,
			CSVEnabled:      true,
			JSONEnabled:     true,
		}, engineCfg)
		written, err := m.ReportDecisions(w, results, runName)
		if err != nil {
			return err
		}
		for _, path := range written {
			log.Printf("Wrote %s", path)
		}
	}

	if opts.xlsxPath != "" {
		if err := reporting.NewDefaultExcelReporter(engineCfg).WriteDecisionsXLSX(results, opts.xlsxPath); err != nil {
			return fmt.Errorf("failed to write workbook: %w", err)
		}
		log.Printf("Wrote %s", opts.xlsxPath)
	}
	return nil
}

func startMetricsServer(addr string, health *monitoring.HealthChecker, log *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.NewMetricsHandler())
	mux.Handle("/health", health)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.LogError("metrics server", err)
		}
	}()
	log.Info("Metrics server listening on %s", addr)
	return srv
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
