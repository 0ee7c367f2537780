// Package reporting renders unified risk decisions to the console and to files
package reporting

import (
	"io"

	"github.com/ducminhle1904/trade-risk-engine/internal/risk"
)

// ConsoleReporter renders decisions as tables
type ConsoleReporter interface {
	OutputDecisions(w io.Writer, results []*risk.UnifiedRiskResult)
	OutputDecisionDetail(w io.Writer, result *risk.UnifiedRiskResult)
}

// FileReporter writes decisions to disk
type FileReporter interface {
	WriteDecisionsCSV(results []*risk.UnifiedRiskResult, path string) error
	WriteDecisionsXLSX(results []*risk.UnifiedRiskResult, path string) error
	WriteDecisionsJSON(results []*risk.UnifiedRiskResult, path string) error
}

// PathManager defines interface for output path management
type PathManager interface {
	GetDefaultOutputDir(runName string) string
	EnsureDirectoryExists(path string) error
}

// Reporter combines all reporting interfaces
type Reporter interface {
	ConsoleReporter
	FileReporter
	PathManager
}

// ExcelStyles holds Excel formatting styles
type ExcelStyles struct {
	HeaderStyle   int
	BaseStyle     int
	CurrencyStyle int
	DecimalStyle  int
	AllowedStyle  int
	DeniedStyle   int
	WrapStyle     int
}

// ReportingConfig holds configuration for reporting
type ReportingConfig struct {
	EnableConsole   bool
	EnableFiles     bool
	OutputDirectory string
	ExcelEnabled    bool
	CSVEnabled      bool
	JSONEnabled     bool
}

// ComponentRow is one line of the per-component breakdown of a decision
type ComponentRow struct {
	Component string
	Score     float64
	Weight    float64
	Passed    bool
	Detail    string
}
