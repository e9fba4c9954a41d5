// Package report renders processing results for humans and for
// downstream tooling.
package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/piiguard/piiguard/internal/batch"
	"github.com/piiguard/piiguard/internal/engine"
)

// Format selects a rendering style.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(name)) {
	case FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unknown report format: %q", name)
	}
}

// RenderResult renders one document's result.
func RenderResult(result *engine.Result, format Format) (string, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal result: %w", err)
		}
		return string(data), nil
	case FormatCSV:
		return renderMatchesCSV(result)
	case FormatText:
		return renderResultText(result), nil
	default:
		return "", fmt.Errorf("unknown report format: %q", format)
	}
}

// RenderSummary renders a file run summary.
func RenderSummary(result *batch.ProcessingResult, format Format) (string, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal summary: %w", err)
		}
		return string(data), nil
	case FormatCSV:
		return renderSummaryCSV(result)
	case FormatText:
		return renderSummaryText(result), nil
	default:
		return "", fmt.Errorf("unknown report format: %q", format)
	}
}

func renderResultText(result *engine.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Matches: %d\n", result.Stats.Total)
	for _, t := range sortedKeys(result.Stats.ByType) {
		fmt.Fprintf(&b, "  %-12s %d\n", t, result.Stats.ByType[t])
	}
	if result.Stats.Total > 0 {
		fmt.Fprintf(&b, "Average confidence: %.2f\n", result.Stats.AvgConfidence)
	}
	for _, m := range result.Matches {
		fmt.Fprintf(&b, "  [%d:%d] %s (%.2f) %s\n", m.Start, m.End, m.Type, m.Confidence, m.Value)
	}
	if len(result.Degraded) > 0 {
		fmt.Fprintf(&b, "Degraded detectors: %s\n", strings.Join(result.Degraded, ", "))
	}
	if result.Anonymized {
		fmt.Fprintf(&b, "Anonymized text:\n%s\n", result.AnonymizedText)
	}

	return b.String()
}

func renderMatchesCSV(result *engine.Result) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"pii_type", "value", "confidence", "start", "end"}); err != nil {
		return "", err
	}
	for _, m := range result.Matches {
		record := []string{
			string(m.Type),
			m.Value,
			strconv.FormatFloat(m.Confidence, 'f', 2, 64),
			strconv.Itoa(m.Start),
			strconv.Itoa(m.End),
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}

	w.Flush()
	return buf.String(), w.Error()
}

func renderSummaryText(result *batch.ProcessingResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Records: %d (%d ok, %d failed)\n",
		result.TotalRecords, result.ProcessedOK, result.ProcessedFailed)
	fmt.Fprintf(&b, "Matches: %d\n", result.TotalMatches)
	for _, t := range sortedKeys(result.MatchesByType) {
		fmt.Fprintf(&b, "  %-12s %d\n", t, result.MatchesByType[t])
	}
	fmt.Fprintf(&b, "Duration: %s\n", result.Duration)
	if len(result.Errors) > 0 {
		fmt.Fprintf(&b, "Errors (%d):\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(&b, "  %s\n", e)
		}
	}

	return b.String()
}

func renderSummaryCSV(result *batch.ProcessingResult) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"pii_type", "count"}); err != nil {
		return "", err
	}
	for _, t := range sortedKeys(result.MatchesByType) {
		if err := w.Write([]string{t, strconv.Itoa(result.MatchesByType[t])}); err != nil {
			return "", err
		}
	}

	w.Flush()
	return buf.String(), w.Error()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
