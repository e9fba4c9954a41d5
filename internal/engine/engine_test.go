package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/piiguard/piiguard/internal/config"
	"github.com/piiguard/piiguard/internal/logger"
	"github.com/piiguard/piiguard/internal/pii"
)

func testLogger() *logger.Logger {
	return &logger.Logger{Logger: zap.NewNop()}
}

func testEngine(t *testing.T, cfg *config.Config) *Engine {
	t.Helper()
	if cfg == nil {
		cfg = config.GetDefaults()
	}
	eng, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return eng
}

func TestProcessTextDetectsEmailAndPhone(t *testing.T) {
	eng := testEngine(t, nil)
	text := "Contact john.doe@example.com or call 555-123-4567."

	result, err := eng.ProcessText(context.Background(), text, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Matches.Valid() {
		t.Errorf("matches violate ordering invariant: %+v", result.Matches)
	}
	if result.Stats.ByType["email"] != 1 {
		t.Errorf("expected 1 email match, stats: %+v", result.Stats)
	}
	if result.Stats.ByType["phone"] != 1 {
		t.Errorf("expected 1 phone match, stats: %+v", result.Stats)
	}
	for _, m := range result.Matches {
		if m.Value != text[m.Start:m.End] {
			t.Errorf("match value %q does not slice the text at [%d:%d]", m.Value, m.Start, m.End)
		}
	}
	if result.Anonymized || result.AnonymizedText != "" {
		t.Error("anonymization not requested but output present")
	}
}

func TestProcessTextAnonymize(t *testing.T) {
	eng := testEngine(t, nil)

	result, err := eng.ProcessText(context.Background(), "SSN: 123-45-6789", Options{
		Anonymize: true,
		Method:    "redact",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.AnonymizedText != "SSN: [REDACTED]" {
		t.Errorf("unexpected anonymized text: %q", result.AnonymizedText)
	}
	if !result.Anonymized {
		t.Error("Anonymized flag not set")
	}
	if len(result.OriginalMatches) != 1 {
		t.Fatalf("expected original offsets to be carried, got %+v", result.OriginalMatches)
	}
	m := result.Matches[0]
	if result.AnonymizedText[m.Start:m.End] != "[REDACTED]" {
		t.Errorf("match offsets do not point into the transformed text: %+v", m)
	}
}

func TestProcessTextEmptyDocument(t *testing.T) {
	eng := testEngine(t, nil)

	result, err := eng.ProcessText(context.Background(), "", Options{Anonymize: true})
	if err != nil {
		t.Fatalf("empty document must succeed: %v", err)
	}
	if len(result.Matches) != 0 {
		t.Errorf("expected no matches, got %+v", result.Matches)
	}
	if !result.Anonymized {
		t.Error("anonymization was requested; the empty output still counts")
	}
	if result.AnonymizedText != "" {
		t.Errorf("expected empty transformed text, got %q", result.AnonymizedText)
	}
}

func TestProcessTextUnknownMethod(t *testing.T) {
	eng := testEngine(t, nil)

	_, err := eng.ProcessText(context.Background(), "a@b.com", Options{
		Anonymize: true,
		Method:    "rot13",
	})
	if !errors.Is(err, pii.ErrUnsupportedMethod) {
		t.Errorf("expected ErrUnsupportedMethod, got %v", err)
	}
}

func TestProcessTextOverrides(t *testing.T) {
	eng := testEngine(t, nil)
	text := "Contact john.doe@example.com or call 555-123-4567."

	// Raising the threshold above the phone rule's confidence drops it
	// for this call only.
	result, err := eng.ProcessText(context.Background(), text, Options{
		Overrides: map[string]interface{}{"detection.confidence_threshold": 0.85},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Stats.ByType["phone"] != 0 {
		t.Errorf("override did not drop phone matches: %+v", result.Stats)
	}
	if result.Stats.ByType["email"] != 1 {
		t.Errorf("email should survive the raised threshold: %+v", result.Stats)
	}

	// The shared config is untouched for subsequent calls.
	result, err = eng.ProcessText(context.Background(), text, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Stats.ByType["phone"] != 1 {
		t.Errorf("shared config was mutated by the override: %+v", result.Stats)
	}
}

func TestProcessTextUnknownOverrideKey(t *testing.T) {
	eng := testEngine(t, nil)

	_, err := eng.ProcessText(context.Background(), "text", Options{
		Overrides: map[string]interface{}{"no.such.key": true},
	})
	var keyErr *config.KeyError
	if !errors.As(err, &keyErr) {
		t.Errorf("expected KeyError, got %v", err)
	}
}

func TestProcessTextTooLarge(t *testing.T) {
	cfg := config.GetDefaults()
	cfg.Performance.MaxTextLength = 10
	eng := testEngine(t, cfg)

	_, err := eng.ProcessText(context.Background(), strings.Repeat("a", 11), Options{})
	if !errors.Is(err, pii.ErrTextTooLarge) {
		t.Errorf("expected ErrTextTooLarge, got %v", err)
	}
}

func TestProcessTextDegradedModel(t *testing.T) {
	cfg := config.GetDefaults()
	cfg.Model.Type = "onnx" // unavailable without the onnx build
	eng := testEngine(t, cfg)

	result, err := eng.ProcessText(context.Background(), "Mail a@b.com", Options{})
	if err != nil {
		t.Fatalf("non-strict mode must continue without the model: %v", err)
	}
	if len(result.Degraded) != 1 || result.Degraded[0] != "model" {
		t.Errorf("expected the model detector to be reported degraded, got %v", result.Degraded)
	}
	if result.Stats.ByType["email"] != 1 {
		t.Errorf("remaining detectors must still contribute: %+v", result.Stats)
	}
}

func TestProcessTextStrictModelFailure(t *testing.T) {
	cfg := config.GetDefaults()
	cfg.Model.Type = "onnx"
	cfg.Detection.Strict = true

	if _, err := New(cfg, testLogger()); err == nil {
		t.Error("strict mode must refuse to start without the model")
	}
}

func TestProcessBatchIndexAlignment(t *testing.T) {
	eng := testEngine(t, nil)

	texts := []string{
		"first: a@b.com",
		"no pii at all",
		"third: 555-123-4567",
	}
	results := eng.ProcessBatch(context.Background(), texts, Options{})

	if len(results) != len(texts) {
		t.Fatalf("expected %d results, got %d", len(texts), len(results))
	}
	for i, dr := range results {
		if dr.Index != i {
			t.Errorf("result %d carries index %d", i, dr.Index)
		}
		if dr.Err != nil {
			t.Errorf("document %d failed: %v", i, dr.Err)
		}
	}
	if results[0].Result.Stats.ByType["email"] != 1 {
		t.Errorf("document 0 should match an email: %+v", results[0].Result.Stats)
	}
	if results[1].Result.Stats.Total != 0 {
		t.Errorf("document 1 should be clean: %+v", results[1].Result.Stats)
	}
	if results[2].Result.Stats.ByType["phone"] != 1 {
		t.Errorf("document 2 should match a phone: %+v", results[2].Result.Stats)
	}
}

func TestProcessBatchPerDocumentFailure(t *testing.T) {
	cfg := config.GetDefaults()
	cfg.Performance.MaxTextLength = 20
	eng := testEngine(t, cfg)

	texts := []string{
		"short a@b.com",
		strings.Repeat("x", 50),
		"another short one",
	}
	results := eng.ProcessBatch(context.Background(), texts, Options{})

	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("healthy documents must not fail: %v, %v", results[0].Err, results[2].Err)
	}
	if !errors.Is(results[1].Err, pii.ErrTextTooLarge) {
		t.Errorf("oversized document should fail alone, got %v", results[1].Err)
	}
	if results[1].Result != nil {
		t.Error("failed document must not carry a result")
	}
}

func TestProcessBatchEmpty(t *testing.T) {
	eng := testEngine(t, nil)

	results := eng.ProcessBatch(context.Background(), nil, Options{})
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestProcessBatchCancellation(t *testing.T) {
	eng := testEngine(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := eng.ProcessBatch(ctx, []string{"a@b.com", "c@d.com"}, Options{})
	for i, dr := range results {
		if dr.Err == nil && dr.Result == nil {
			t.Errorf("document %d has neither result nor error", i)
		}
	}
}

func TestComputeStats(t *testing.T) {
	stats := computeStats(pii.MatchSet{
		{Type: pii.TypeEmail, Confidence: 0.9},
		{Type: pii.TypeEmail, Confidence: 0.7},
		{Type: pii.TypeSSN, Confidence: 0.95},
	})

	if stats.Total != 3 {
		t.Errorf("total = %d, want 3", stats.Total)
	}
	if stats.ByType["email"] != 2 || stats.ByType["ssn"] != 1 {
		t.Errorf("unexpected type counts: %+v", stats.ByType)
	}
	want := (0.9 + 0.7 + 0.95) / 3
	if diff := stats.AvgConfidence - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("avg confidence = %v, want %v", stats.AvgConfidence, want)
	}
}
