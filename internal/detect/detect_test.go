package detect

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/piiguard/piiguard/internal/config"
	"github.com/piiguard/piiguard/internal/ner"
	"github.com/piiguard/piiguard/internal/pii"
)

func TestRuleDetectorEmailAndPhone(t *testing.T) {
	d := NewRuleDetector(nil, zap.NewNop())
	text := "Contact john.doe@example.com or call 555-123-4567."

	candidates, err := d.Scan(context.Background(), text, config.GetDefaults())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byType := map[pii.Type]pii.Candidate{}
	for _, c := range candidates {
		byType[c.Type] = c

		if c.Value != text[c.Start:c.End] {
			t.Errorf("%s candidate value %q does not match span %q",
				c.Type, c.Value, text[c.Start:c.End])
		}
	}

	email, ok := byType[pii.TypeEmail]
	if !ok {
		t.Fatal("expected an email candidate")
	}
	if email.Value != "john.doe@example.com" {
		t.Errorf("unexpected email value: %q", email.Value)
	}
	if email.Confidence != 0.9 {
		t.Errorf("unexpected email confidence: %v", email.Confidence)
	}

	phone, ok := byType[pii.TypePhone]
	if !ok {
		t.Fatal("expected a phone candidate")
	}
	if phone.Value != "555-123-4567" {
		t.Errorf("unexpected phone value: %q", phone.Value)
	}
}

func TestRuleDetectorEmptyText(t *testing.T) {
	d := NewRuleDetector(nil, zap.NewNop())

	candidates, err := d.Scan(context.Background(), "", config.GetDefaults())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("expected no candidates for empty text, got %+v", candidates)
	}
}

func TestRuleDetectorNoPII(t *testing.T) {
	d := NewRuleDetector(nil, zap.NewNop())

	candidates, err := d.Scan(context.Background(), "The quick brown fox jumps over the lazy dog.", config.GetDefaults())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("expected no candidates, got %+v", candidates)
	}
}

func TestValidSSN(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"123-45-6789", true},
		{"123456789", true},
		{"000-45-6789", false},
		{"666-45-6789", false},
		{"923-45-6789", false},
		{"123-00-6789", false},
		{"123-45-0000", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			if got := validSSN(tt.value); got != tt.want {
				t.Errorf("validSSN(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestValidCreditCard(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"4111-1111-1111-1111", true}, // passes Luhn
		{"4111-1111-1111-1112", false},
		{"1234-5678-9012-3456", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			if got := validCreditCard(tt.value); got != tt.want {
				t.Errorf("validCreditCard(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestValidIPAddress(t *testing.T) {
	if !validIPAddress("192.168.1.1") {
		t.Error("expected 192.168.1.1 to validate")
	}
	if validIPAddress("999.168.1.1") {
		t.Error("expected 999.168.1.1 to fail octet range check")
	}
}

func TestModelDetectorNilLabeler(t *testing.T) {
	d := NewModelDetector(nil, zap.NewNop())

	_, err := d.Scan(context.Background(), "some text", config.GetDefaults())
	if !errors.Is(err, pii.ErrDetectorUnavailable) {
		t.Errorf("expected ErrDetectorUnavailable, got %v", err)
	}
}

type stubLabeler struct {
	entities []ner.Entity
	err      error
	delay    time.Duration
}

func (s *stubLabeler) Label(ctx context.Context, text string) ([]ner.Entity, error) {
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	return s.entities, s.err
}

func (s *stubLabeler) Name() string { return "stub" }
func (s *stubLabeler) Close() error { return nil }

func TestModelDetectorLabelMapping(t *testing.T) {
	text := "John Smith went to Berlin"
	d := NewModelDetector(&stubLabeler{
		entities: []ner.Entity{
			{Start: 0, End: 10, Label: "PERSON", Score: 0.85},
			{Start: 19, End: 25, Label: "GPE", Score: 0.7},
			{Start: 0, End: 4, Label: "MISC", Score: 0.9}, // unmapped, dropped
		},
	}, zap.NewNop())

	candidates, err := d.Scan(context.Background(), text, config.GetDefaults())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %+v", candidates)
	}
	if candidates[0].Type != pii.TypeName || candidates[0].Value != "John Smith" {
		t.Errorf("unexpected first candidate: %+v", candidates[0])
	}
	if candidates[1].Type != pii.TypeAddress {
		t.Errorf("expected GPE to map to address, got %+v", candidates[1])
	}
}

func TestModelDetectorTimeout(t *testing.T) {
	d := NewModelDetector(&stubLabeler{delay: 200 * time.Millisecond}, zap.NewNop())

	cfg := config.GetDefaults()
	cfg.Model.Timeout = 10 * time.Millisecond

	_, err := d.Scan(context.Background(), "some text", cfg)
	if !errors.Is(err, pii.ErrDetectorTimeout) {
		t.Errorf("expected ErrDetectorTimeout, got %v", err)
	}
}

func TestModelDetectorLabelerFailure(t *testing.T) {
	d := NewModelDetector(&stubLabeler{err: errors.New("model crashed")}, zap.NewNop())

	_, err := d.Scan(context.Background(), "some text", config.GetDefaults())
	if !errors.Is(err, pii.ErrDetectorUnavailable) {
		t.Errorf("expected ErrDetectorUnavailable, got %v", err)
	}
}
