package config

import (
	"errors"
	"testing"
)

func TestGetKnownKeys(t *testing.T) {
	cfg := GetDefaults()

	tests := []struct {
		key  string
		want interface{}
	}{
		{"detection.confidence_threshold", 0.5},
		{"detection.strict", false},
		{"anonymization.default_method", "mask"},
		{"performance.workers", 4},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := cfg.Get(tt.key)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Get(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestGetUnknownKey(t *testing.T) {
	cfg := GetDefaults()

	_, err := cfg.Get("detection.nope")
	var keyErr *KeyError
	if !errors.As(err, &keyErr) {
		t.Fatalf("expected KeyError, got %v", err)
	}
	if keyErr.Key != "detection.nope" {
		t.Errorf("KeyError carries wrong key: %q", keyErr.Key)
	}
}

func TestWithOverridesDoesNotMutateReceiver(t *testing.T) {
	cfg := GetDefaults()

	derived, err := cfg.WithOverrides(map[string]interface{}{
		"detection.confidence_threshold": 0.8,
		"anonymization.default_method":   "hash",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Detection.ConfidenceThreshold != 0.5 {
		t.Errorf("receiver mutated: threshold %v", cfg.Detection.ConfidenceThreshold)
	}
	if derived.Detection.ConfidenceThreshold != 0.8 {
		t.Errorf("override not applied: %v", derived.Detection.ConfidenceThreshold)
	}
	if derived.Anonymization.DefaultMethod != "hash" {
		t.Errorf("override not applied: %v", derived.Anonymization.DefaultMethod)
	}
}

func TestWithOverridesEmptyReturnsReceiver(t *testing.T) {
	cfg := GetDefaults()

	derived, err := cfg.WithOverrides(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if derived != cfg {
		t.Error("empty overrides should return the receiver unchanged")
	}
}

func TestWithOverridesUnknownKey(t *testing.T) {
	cfg := GetDefaults()

	_, err := cfg.WithOverrides(map[string]interface{}{"no.such.key": 1})
	var keyErr *KeyError
	if !errors.As(err, &keyErr) {
		t.Fatalf("expected KeyError, got %v", err)
	}
}

func TestWithOverridesWrongType(t *testing.T) {
	cfg := GetDefaults()

	_, err := cfg.WithOverrides(map[string]interface{}{
		"detection.strict": "yes",
	})
	var keyErr *KeyError
	if !errors.As(err, &keyErr) {
		t.Fatalf("expected KeyError for mistyped value, got %v", err)
	}
}

func TestWithOverridesInvalidValueRejected(t *testing.T) {
	cfg := GetDefaults()

	if _, err := cfg.WithOverrides(map[string]interface{}{
		"detection.confidence_threshold": 1.5,
	}); err == nil {
		t.Error("expected out-of-range threshold to be rejected")
	}

	if _, err := cfg.WithOverrides(map[string]interface{}{
		"anonymization.default_method": "rot13",
	}); err == nil {
		t.Error("expected unknown default method to be rejected")
	}
}

func TestWithOverridesJSONNumbers(t *testing.T) {
	cfg := GetDefaults()

	// JSON decoding yields float64 for every number.
	derived, err := cfg.WithOverrides(map[string]interface{}{
		"performance.workers":            float64(8),
		"detection.confidence_threshold": float64(1),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if derived.Performance.Workers != 8 {
		t.Errorf("workers = %d, want 8", derived.Performance.Workers)
	}
	if derived.Detection.ConfidenceThreshold != 1.0 {
		t.Errorf("threshold = %v, want 1.0", derived.Detection.ConfidenceThreshold)
	}
}

func TestWithOverridesStringSlice(t *testing.T) {
	cfg := GetDefaults()

	derived, err := cfg.WithOverrides(map[string]interface{}{
		"detection.enabled_types": []interface{}{"email", "ssn"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(derived.Detection.EnabledTypes) != 2 || derived.Detection.EnabledTypes[0] != "email" {
		t.Errorf("unexpected enabled types: %v", derived.Detection.EnabledTypes)
	}
}

func TestCloneIndependence(t *testing.T) {
	cfg := GetDefaults()
	clone := cfg.Clone()

	clone.Detection.TypePriority[0] = "changed"
	clone.Anonymization.Replacements["email"] = "changed"
	clone.Model.LabelMap["PERSON"] = "changed"

	if cfg.Detection.TypePriority[0] == "changed" {
		t.Error("clone shares TypePriority backing array")
	}
	if cfg.Anonymization.Replacements["email"] == "changed" {
		t.Error("clone shares Replacements map")
	}
	if cfg.Model.LabelMap["PERSON"] == "changed" {
		t.Error("clone shares LabelMap map")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad threshold", func(c *Config) { c.Detection.ConfidenceThreshold = -0.1 }},
		{"bad method", func(c *Config) { c.Anonymization.DefaultMethod = "nope" }},
		{"bad model type", func(c *Config) { c.Model.Type = "tensorflow" }},
		{"bad workers", func(c *Config) { c.Performance.Workers = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaults()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation failure")
			}
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	if err := Validate(GetDefaults()); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}
