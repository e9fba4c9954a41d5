package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/piiguard/piiguard/internal/batch"
	"github.com/piiguard/piiguard/internal/engine"
	"github.com/piiguard/piiguard/internal/pii"
)

func sampleResult() *engine.Result {
	return &engine.Result{
		Matches: pii.MatchSet{
			{Type: pii.TypeEmail, Value: "a@b.com", Start: 6, End: 13, Confidence: 0.9},
			{Type: pii.TypeSSN, Value: "123-45-6789", Start: 20, End: 31, Confidence: 0.95},
		},
		Stats: engine.Stats{
			Total:         2,
			ByType:        map[string]int{"email": 1, "ssn": 1},
			AvgConfidence: 0.925,
		},
	}
}

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"text", "JSON", "Csv"} {
		if _, err := ParseFormat(name); err != nil {
			t.Errorf("ParseFormat(%q) failed: %v", name, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected unknown format to fail")
	}
}

func TestRenderResultText(t *testing.T) {
	out, err := RenderResult(sampleResult(), FormatText)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Matches: 2") {
		t.Errorf("missing total: %q", out)
	}
	if !strings.Contains(out, "email") || !strings.Contains(out, "ssn") {
		t.Errorf("missing type breakdown: %q", out)
	}
}

func TestRenderResultJSON(t *testing.T) {
	out, err := RenderResult(sampleResult(), FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded engine.Result
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded.Matches) != 2 {
		t.Errorf("round-trip lost matches: %+v", decoded)
	}
}

func TestRenderResultCSV(t *testing.T) {
	out, err := RenderResult(sampleResult(), FormatCSV)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "pii_type,value,confidence,start,end" {
		t.Errorf("unexpected header: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "email,a@b.com,0.90,6,13") {
		t.Errorf("unexpected first row: %q", lines[1])
	}
}

func TestRenderSummary(t *testing.T) {
	summary := &batch.ProcessingResult{
		TotalRecords:  10,
		ProcessedOK:   9,
		ProcessedFailed: 1,
		TotalMatches:  4,
		MatchesByType: map[string]int{"email": 3, "phone": 1},
		Duration:      2 * time.Second,
		Errors:        []string{"document too large"},
	}

	text, err := RenderSummary(summary, FormatText)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "Records: 10 (9 ok, 1 failed)") {
		t.Errorf("missing record counts: %q", text)
	}
	if !strings.Contains(text, "document too large") {
		t.Errorf("missing errors: %q", text)
	}

	csvOut, err := RenderSummary(summary, FormatCSV)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(csvOut), "\n")
	if len(lines) != 3 || lines[1] != "email,3" {
		t.Errorf("unexpected CSV summary: %q", csvOut)
	}
}
