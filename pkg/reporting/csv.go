package reporting

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ducminhle1904/trade-risk-engine/internal/risk"
)

var csvHeader = []string{
	"Trade_ID",
	"Assessed_At",
	"Verdict",
	"Overall_Score",
	"Decision_Engine_Score",
	"Is_Honeypot",
	"Honeypot_Confidence",
	"Limits_Allowed",
	"Owner_Risk_Score",
	"LP_Quality",
	"Correlation",
	"Sizing_Allowed",
	"Risk_Multiplier",
	"Reasons",
}

// DefaultCSVReporter implements CSV output functionality
type DefaultCSVReporter struct{}

// NewDefaultCSVReporter creates a new CSV reporter
func NewDefaultCSVReporter() *DefaultCSVReporter {
	return &DefaultCSVReporter{}
}

// WriteDecisionsCSV writes one row per decision. A path ending in .xlsx is written as a workbook.
func (r *DefaultCSVReporter) WriteDecisionsCSV(results []*risk.UnifiedRiskResult, path string) error {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return NewDefaultExcelReporter(risk.DefaultUnifiedConfig()).WriteDecisionsXLSX(results, path)
	}
	if err := ensureParentDir(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return WriteDecisionsCSVTo(f, results)
}

// WriteDecisionsCSVTo streams the CSV rows to w
func WriteDecisionsCSVTo(out io.Writer, results []*risk.UnifiedRiskResult) error {
	w := csv.NewWriter(out)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, res := range results {
		if err := w.Write(csvRecord(res)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func csvRecord(res *risk.UnifiedRiskResult) []string {
	c := res.Components
	lp := ""
	if c.LPQuality != nil {
		lp = strconv.FormatFloat(c.LPQuality.QualityScore, 'f', 2, 64)
	}
	return []string{
		res.TradeID,
		res.AssessedAt.UTC().Format(time.RFC3339),
		verdict(res.Allowed),
		strconv.Itoa(res.OverallScore),
		strconv.Itoa(c.TradeRisk.Score),
		strconv.FormatBool(c.Honeypot.IsHoneypot),
		strconv.Itoa(c.Honeypot.Confidence),
		strconv.FormatBool(c.Limits.Allowed),
		strconv.Itoa(c.OwnerPower.RiskScore),
		lp,
		strconv.FormatFloat(c.Correlation.Correlation, 'f', 4, 64),
		strconv.FormatBool(c.PositionSizing.Allowed),
		strconv.FormatFloat(res.RiskMultiplier, 'f', 4, 64),
		strings.Join(res.Reasons, "; "),
	}
}
