package reporting

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/trade-risk-engine/internal/risk"
)

// DefaultConsoleReporter implements console output functionality
type DefaultConsoleReporter struct {
	config risk.UnifiedConfig
}

// NewDefaultConsoleReporter creates a console reporter. cfg supplies the weights shown in breakdowns.
func NewDefaultConsoleReporter(cfg risk.UnifiedConfig) *DefaultConsoleReporter {
	return &DefaultConsoleReporter{config: cfg}
}

// OutputDecisions prints one summary row per decision
func (r *DefaultConsoleReporter) OutputDecisions(w io.Writer, results []*risk.UnifiedRiskResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("RISK DECISIONS")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Trade", "Verdict", "Score", "Multiplier", "Decisive Reason"})

	allowed := 0
	for _, res := range results {
		if res.Allowed {
			allowed++
		}
		t.AppendRow(table.Row{
			res.TradeID,
			colorVerdict(res.Allowed),
			res.OverallScore,
			fmt.Sprintf("%.2fx", res.RiskMultiplier),
			lastReason(res.Reasons),
		})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d/%d allowed", allowed, len(results)), "", "", ""})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 12, WidthMax: 24, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignCenter},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, WidthMax: 60, Align: text.AlignLeft},
	})
	t.Render()
}

// OutputDecisionDetail prints the component breakdown and reasons of a single decision
func (r *DefaultConsoleReporter) OutputDecisionDetail(w io.Writer, res *risk.UnifiedRiskResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("%s: %s (score %d)", res.TradeID, verdict(res.Allowed), res.OverallScore))
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Component", "Score", "Weight", "Status", "Detail"})

	for _, row := range ComponentBreakdown(res, r.config) {
		weight := "advisory"
		if row.Weight > 0 {
			weight = fmt.Sprintf("%.0f%%", row.Weight*100)
		}
		t.AppendRow(table.Row{row.Component, fmt.Sprintf("%.1f", row.Score), weight, colorStatus(row.Passed), row.Detail})
	}
	for _, mc := range res.Components.MarketRisk.Components {
		t.AppendRow(table.Row{"market: " + mc.Factor, fmt.Sprintf("%.2fx", mc.Value), "", "", mc.Description})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 16, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 5, WidthMax: 60, Align: text.AlignLeft},
	})
	t.Render()

	for _, reason := range res.Reasons {
		fmt.Fprintf(w, "  - %s\n", reason)
	}
	fmt.Fprintln(w)
}

func colorVerdict(allowed bool) string {
	if allowed {
		return text.FgGreen.Sprint(verdict(true))
	}
	return text.FgRed.Sprint(verdict(false))
}

func colorStatus(passed bool) string {
	if passed {
		return text.FgGreen.Sprint("ok")
	}
	return text.FgRed.Sprint("flagged")
}

func lastReason(reasons []string) string {
	if len(reasons) == 0 {
		return ""
	}
	return strings.TrimSpace(reasons[len(reasons)-1])
}
