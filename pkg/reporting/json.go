package reporting

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ducminhle1904/trade-risk-engine/internal/risk"
)

// FormatDecisions formats decisions as indented JSON
func FormatDecisions(results []*risk.UnifiedRiskResult) ([]byte, error) {
	if results == nil {
		results = []*risk.UnifiedRiskResult{}
	}
	return json.MarshalIndent(results, "", "  ")
}

// PrintDecisionsJSON writes decisions as JSON to w
func PrintDecisionsJSON(w io.Writer, results []*risk.UnifiedRiskResult) error {
	data, err := FormatDecisions(results)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// WriteDecisionsJSON writes decisions to a JSON file
func WriteDecisionsJSON(results []*risk.UnifiedRiskResult, path string) error {
	data, err := FormatDecisions(results)
	if err != nil {
		return fmt.Errorf("failed to marshal decisions: %w", err)
	}
	if err := ensureParentDir(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
