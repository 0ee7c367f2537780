package reporting

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/trade-risk-engine/internal/risk"
)

const (
	decisionsSheet  = "Decisions"
	componentsSheet = "Components"
	reasonsSheet    = "Reasons"
)

// DefaultExcelReporter implements Excel output functionality
type DefaultExcelReporter struct {
	config risk.UnifiedConfig
}

// NewDefaultExcelReporter creates an Excel reporter. cfg supplies the component weights.
func NewDefaultExcelReporter(cfg risk.UnifiedConfig) *DefaultExcelReporter {
	return &DefaultExcelReporter{config: cfg}
}

// WriteDecisionsXLSX writes a workbook with a decisions sheet, a component breakdown and the reasons
func (r *DefaultExcelReporter) WriteDecisionsXLSX(results []*risk.UnifiedRiskResult, path string) error {
	if err := ensureParentDir(path); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	fx := excelize.NewFile()
	defer fx.Close()

	if err := fx.SetSheetName(fx.GetSheetName(0), decisionsSheet); err != nil {
		return err
	}
	if _, err := fx.NewSheet(componentsSheet); err != nil {
		return err
	}
	if _, err := fx.NewSheet(reasonsSheet); err != nil {
		return err
	}

	styles, err := r.createExcelStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeDecisionsSheet(fx, results, styles); err != nil {
		return err
	}
	if err := r.writeComponentsSheet(fx, results, styles); err != nil {
		return err
	}
	if err := r.writeReasonsSheet(fx, results, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func (r *DefaultExcelReporter) createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	border := []excelize.Border{
		{Type: "left", Color: "E0E0E0", Style: 1},
		{Type: "right", Color: "E0E0E0", Style: 1},
		{Type: "bottom", Color: "E0E0E0", Style: 1},
	}

	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	styles.BaseStyle, err = fx.NewStyle(&excelize.Style{Border: border})
	if err != nil {
		return styles, err
	}

	styles.CurrencyStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    7,
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    border,
	})
	if err != nil {
		return styles, err
	}

	styles.DecimalStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    2, // 0.00
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    border,
	})
	if err != nil {
		return styles, err
	}

	styles.AllowedStyle, err = fx.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "006100"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"C6EFCE"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border:    border,
	})
	if err != nil {
		return styles, err
	}

	styles.DeniedStyle, err = fx.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "9C0006"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"FFC7CE"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border:    border,
	})
	if err != nil {
		return styles, err
	}

	styles.WrapStyle, err = fx.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		Border:    border,
	})
	return styles, err
}

func writeHeader(fx *excelize.File, sheet string, headers []string, widths []float64, style int) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if i < len(widths) {
			if err := fx.SetColWidth(sheet, col, col, widths[i]); err != nil {
				return err
			}
		}
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := fx.SetCellStyle(sheet, "A1", last, style); err != nil {
		return err
	}
	return fx.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// writeRow writes values starting at column A and applies one style per column
func writeRow(fx *excelize.File, sheet string, row int, values []interface{}, styles []int) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
		if i < len(styles) && styles[i] != 0 {
			if err := fx.SetCellStyle(sheet, cell, cell, styles[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *DefaultExcelReporter) writeDecisionsSheet(fx *excelize.File, results []*risk.UnifiedRiskResult, s ExcelStyles) error {
	headers := []string{"Trade ID", "Assessed At", "Verdict", "Overall Score", "Decision Engine",
		"Honeypot Confidence", "Owner Risk", "Daily Volume", "Correlation", "Risk Multiplier", "Max Position"}
	widths := []float64{24, 22, 10, 14, 16, 20, 12, 16, 13, 16, 16}
	if err := writeHeader(fx, decisionsSheet, headers, widths, s.HeaderStyle); err != nil {
		return err
	}

	for i, res := range results {
		c := res.Components
		verdictStyle := s.DeniedStyle
		if res.Allowed {
			verdictStyle = s.AllowedStyle
		}
		maxPosition := interface{}(c.PositionSizing.MaxPositionSize)
		if sizingDetail(c.PositionSizing) == "unbounded" {
			maxPosition = "unbounded"
		}
		values := []interface{}{
			res.TradeID,
			res.AssessedAt.UTC().Format("2006-01-02 15:04:05"),
			verdict(res.Allowed),
			res.OverallScore,
			c.TradeRisk.Score,
			c.Honeypot.Confidence,
			c.OwnerPower.RiskScore,
			c.Limits.Usage.DailyVolumeUSD,
			c.Correlation.Correlation,
			res.RiskMultiplier,
			maxPosition,
		}
		styles := []int{s.BaseStyle, s.BaseStyle, verdictStyle, s.BaseStyle, s.BaseStyle, s.BaseStyle,
			s.BaseStyle, s.CurrencyStyle, s.DecimalStyle, s.DecimalStyle, s.CurrencyStyle}
		if err := writeRow(fx, decisionsSheet, i+2, values, styles); err != nil {
			return err
		}
	}

	if len(results) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(headers), len(results)+1)
	if err != nil {
		return err
	}
	return fx.AutoFilter(decisionsSheet, "A1:"+last, []excelize.AutoFilterOptions{})
}

func (r *DefaultExcelReporter) writeComponentsSheet(fx *excelize.File, results []*risk.UnifiedRiskResult, s ExcelStyles) error {
	headers := []string{"Trade ID", "Component", "Score", "Weight", "Status", "Detail"}
	widths := []float64{24, 18, 10, 10, 10, 70}
	if err := writeHeader(fx, componentsSheet, headers, widths, s.HeaderStyle); err != nil {
		return err
	}

	row := 2
	for _, res := range results {
		for _, comp := range ComponentBreakdown(res, r.config) {
			status, statusStyle := "ok", s.AllowedStyle
			if !comp.Passed {
				status, statusStyle = "flagged", s.DeniedStyle
			}
			values := []interface{}{res.TradeID, comp.Component, comp.Score, comp.Weight, status, comp.Detail}
			styles := []int{s.BaseStyle, s.BaseStyle, s.DecimalStyle, s.DecimalStyle, statusStyle, s.WrapStyle}
			if err := writeRow(fx, componentsSheet, row, values, styles); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

func (r *DefaultExcelReporter) writeReasonsSheet(fx *excelize.File, results []*risk.UnifiedRiskResult, s ExcelStyles) error {
	headers := []string{"Trade ID", "#", "Reason"}
	widths := []float64{24, 6, 100}
	if err := writeHeader(fx, reasonsSheet, headers, widths, s.HeaderStyle); err != nil {
		return err
	}

	row := 2
	for _, res := range results {
		for i, reason := range res.Reasons {
			values := []interface{}{res.TradeID, i + 1, reason}
			styles := []int{s.BaseStyle, s.BaseStyle, s.WrapStyle}
			if err := writeRow(fx, reasonsSheet, row, values, styles); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}
