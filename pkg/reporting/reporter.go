package reporting

import (
	"io"
	"path/filepath"

	"github.com/ducminhle1904/trade-risk-engine/internal/risk"
)

// DefaultReporter implements the complete Reporter interface
type DefaultReporter struct {
	console *DefaultConsoleReporter
	csv     *DefaultCSVReporter
	excel   *DefaultExcelReporter
	paths   *DefaultPathManager
}

// NewDefaultReporter creates a reporter; cfg supplies the weights of component breakdowns
func NewDefaultReporter(cfg risk.UnifiedConfig, outputDir string) *DefaultReporter {
	return &DefaultReporter{
		console: NewDefaultConsoleReporter(cfg),
		csv:     NewDefaultCSVReporter(),
		excel:   NewDefaultExcelReporter(cfg),
		paths:   NewDefaultPathManager(outputDir),
	}
}

func (r *DefaultReporter) OutputDecisions(w io.Writer, results []*risk.UnifiedRiskResult) {
	r.console.OutputDecisions(w, results)
}

func (r *DefaultReporter) OutputDecisionDetail(w io.Writer, result *risk.UnifiedRiskResult) {
	r.console.OutputDecisionDetail(w, result)
}

func (r *DefaultReporter) WriteDecisionsCSV(results []*risk.UnifiedRiskResult, path string) error {
	return r.csv.WriteDecisionsCSV(results, path)
}

func (r *DefaultReporter) WriteDecisionsXLSX(results []*risk.UnifiedRiskResult, path string) error {
	return r.excel.WriteDecisionsXLSX(results, path)
}

func (r *DefaultReporter) WriteDecisionsJSON(results []*risk.UnifiedRiskResult, path string) error {
	return WriteDecisionsJSON(results, path)
}

func (r *DefaultReporter) GetDefaultOutputDir(runName string) string {
	return r.paths.GetDefaultOutputDir(runName)
}

func (r *DefaultReporter) EnsureDirectoryExists(path string) error {
	return r.paths.EnsureDirectoryExists(path)
}

var _ Reporter = (*DefaultReporter)(nil)

// ReportingManager provides a high-level interface for all reporting needs
type ReportingManager struct {
	reporter *DefaultReporter
	config   ReportingConfig
}

// NewReportingManager creates a new reporting manager with configuration
func NewReportingManager(config ReportingConfig, engineCfg risk.UnifiedConfig) *ReportingManager {
	return &ReportingManager{
		reporter: NewDefaultReporter(engineCfg, config.OutputDirectory),
		config:   config,
	}
}

// ReportDecisions prints the decisions and writes the enabled file formats.
// It returns the paths of the files written.
func (m *ReportingManager) ReportDecisions(w io.Writer, results []*risk.UnifiedRiskResult, runName string) ([]string, error) {
	if m.config.EnableConsole {
		m.reporter.OutputDecisions(w, results)
		for _, res := range results {
			m.reporter.OutputDecisionDetail(w, res)
		}
	}
	if !m.config.EnableFiles {
		return nil, nil
	}

	outputDir := m.reporter.GetDefaultOutputDir(runName)
	var written []string

	if m.config.CSVEnabled {
		path := filepath.Join(outputDir, "decisions.csv")
		if err := m.reporter.WriteDecisionsCSV(results, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	if m.config.ExcelEnabled {
		path := filepath.Join(outputDir, "decisions.xlsx")
		if err := m.reporter.WriteDecisionsXLSX(results, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	if m.config.JSONEnabled {
		path := filepath.Join(outputDir, "decisions.json")
		if err := m.reporter.WriteDecisionsJSON(results, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}
