package config

import "fmt"

// KeyError reports an unknown configuration key or a value of the
// wrong type.
type KeyError struct {
	Key    string
	Reason string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("config key %q: %s", e.Key, e.Reason)
}

// Clone returns a deep copy of the configuration. Slices and maps are
// duplicated so the copy can be modified without touching the
// original.
func (c *Config) Clone() *Config {
	out := *c
	out.Detection.EnabledTypes = append([]string(nil), c.Detection.EnabledTypes...)
	out.Detection.TypePriority = append([]string(nil), c.Detection.TypePriority...)
	out.Model.Labels = append([]string(nil), c.Model.Labels...)
	out.WebSocket.AllowedOrigins = append([]string(nil), c.WebSocket.AllowedOrigins...)
	if c.Anonymization.Replacements != nil {
		out.Anonymization.Replacements = make(map[string]string, len(c.Anonymization.Replacements))
		for k, v := range c.Anonymization.Replacements {
			out.Anonymization.Replacements[k] = v
		}
	}
	if c.Model.LabelMap != nil {
		out.Model.LabelMap = make(map[string]string, len(c.Model.LabelMap))
		for k, v := range c.Model.LabelMap {
			out.Model.LabelMap[k] = v
		}
	}
	return &out
}

// Get returns the value at a dotted key path. Unknown keys yield a
// KeyError.
func (c *Config) Get(key string) (interface{}, error) {
	switch key {
	case "detection.confidence_threshold":
		return c.Detection.ConfidenceThreshold, nil
	case "detection.enabled_types":
		return append([]string(nil), c.Detection.EnabledTypes...), nil
	case "detection.strict":
		return c.Detection.Strict, nil
	case "detection.type_priority":
		return append([]string(nil), c.Detection.TypePriority...), nil
	case "anonymization.default_method":
		return c.Anonymization.DefaultMethod, nil
	case "anonymization.mask_character":
		return c.Anonymization.MaskCharacter, nil
	case "anonymization.preserve_length":
		return c.Anonymization.PreserveLength, nil
	case "anonymization.preserve_format":
		return c.Anonymization.PreserveFormat, nil
	case "anonymization.keep_prefix":
		return c.Anonymization.KeepPrefix, nil
	case "anonymization.keep_suffix":
		return c.Anonymization.KeepSuffix, nil
	case "anonymization.redact_token":
		return c.Anonymization.RedactToken, nil
	case "anonymization.hash_salt":
		return c.Anonymization.HashSalt, nil
	case "performance.workers":
		return c.Performance.Workers, nil
	case "performance.max_text_length":
		return c.Performance.MaxTextLength, nil
	default:
		return nil, &KeyError{Key: key, Reason: "unknown key"}
	}
}

// WithOverrides returns a derived configuration with the given dotted
// key paths applied. The receiver is never mutated, so concurrent
// callers sharing one Config cannot interfere with each other. Unknown
// keys and mistyped values surface as KeyError.
func (c *Config) WithOverrides(overrides map[string]interface{}) (*Config, error) {
	if len(overrides) == 0 {
		return c, nil
	}

	out := c.Clone()
	for key, value := range overrides {
		if err := out.set(key, value); err != nil {
			return nil, err
		}
	}
	if err := Validate(out); err != nil {
		return nil, fmt.Errorf("invalid override: %w", err)
	}
	return out, nil
}

func (c *Config) set(key string, value interface{}) error {
	switch key {
	case "detection.confidence_threshold":
		f, ok := asFloat(value)
		if !ok {
			return &KeyError{Key: key, Reason: "expected float"}
		}
		c.Detection.ConfidenceThreshold = f
	case "detection.enabled_types":
		s, ok := asStringSlice(value)
		if !ok {
			return &KeyError{Key: key, Reason: "expected list of strings"}
		}
		c.Detection.EnabledTypes = s
	case "detection.strict":
		b, ok := value.(bool)
		if !ok {
			return &KeyError{Key: key, Reason: "expected bool"}
		}
		c.Detection.Strict = b
	case "detection.type_priority":
		s, ok := asStringSlice(value)
		if !ok {
			return &KeyError{Key: key, Reason: "expected list of strings"}
		}
		c.Detection.TypePriority = s
	case "anonymization.default_method":
		s, ok := value.(string)
		if !ok {
			return &KeyError{Key: key, Reason: "expected string"}
		}
		c.Anonymization.DefaultMethod = s
	case "anonymization.mask_character":
		s, ok := value.(string)
		if !ok {
			return &KeyError{Key: key, Reason: "expected string"}
		}
		c.Anonymization.MaskCharacter = s
	case "anonymization.preserve_length":
		b, ok := value.(bool)
		if !ok {
			return &KeyError{Key: key, Reason: "expected bool"}
		}
		c.Anonymization.PreserveLength = b
	case "anonymization.preserve_format":
		b, ok := value.(bool)
		if !ok {
			return &KeyError{Key: key, Reason: "expected bool"}
		}
		c.Anonymization.PreserveFormat = b
	case "anonymization.keep_prefix":
		n, ok := asInt(value)
		if !ok {
			return &KeyError{Key: key, Reason: "expected int"}
		}
		c.Anonymization.KeepPrefix = n
	case "anonymization.keep_suffix":
		n, ok := asInt(value)
		if !ok {
			return &KeyError{Key: key, Reason: "expected int"}
		}
		c.Anonymization.KeepSuffix = n
	case "anonymization.redact_token":
		s, ok := value.(string)
		if !ok {
			return &KeyError{Key: key, Reason: "expected string"}
		}
		c.Anonymization.RedactToken = s
	case "anonymization.hash_salt":
		s, ok := value.(string)
		if !ok {
			return &KeyError{Key: key, Reason: "expected string"}
		}
		c.Anonymization.HashSalt = s
	case "performance.workers":
		n, ok := asInt(value)
		if !ok {
			return &KeyError{Key: key, Reason: "expected int"}
		}
		c.Performance.Workers = n
	case "performance.max_text_length":
		n, ok := asInt(value)
		if !ok {
			return &KeyError{Key: key, Reason: "expected int"}
		}
		c.Performance.MaxTextLength = n
	default:
		return &KeyError{Key: key, Reason: "unknown key"}
	}
	return nil
}

// asFloat accepts float and integer inputs; JSON decodes all numbers
// to float64.
func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}

func asStringSlice(v interface{}) ([]string, bool) {
	switch s := v.(type) {
	case []string:
		return append([]string(nil), s...), true
	case []interface{}:
		out := make([]string, 0, len(s))
		for _, e := range s {
			str, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	}
	return nil, false
}
