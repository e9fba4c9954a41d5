package config

import "time"

// Config is the process-wide configuration. It is loaded once, treated
// as immutable, and passed explicitly into every component; per-call
// adjustments go through WithOverrides, which returns a derived copy.
type Config struct {
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Detection     DetectionConfig     `yaml:"detection" mapstructure:"detection"`
	Anonymization AnonymizationConfig `yaml:"anonymization" mapstructure:"anonymization"`
	Model         ModelConfig         `yaml:"model" mapstructure:"model"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	Performance   PerformanceConfig   `yaml:"performance" mapstructure:"performance"`
	Logging       LoggingConfig       `yaml:"logging" mapstructure:"logging"`
	WebSocket     WebSocketConfig     `yaml:"websocket" mapstructure:"websocket"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port         int             `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration   `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration   `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration   `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	RateLimit    RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// RateLimitConfig contains per-client request rate limiting settings.
type RateLimitConfig struct {
	Enabled        bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMin int  `yaml:"requests_per_min" mapstructure:"requests_per_min"`
	Burst          int  `yaml:"burst" mapstructure:"burst"`
}

// DetectionConfig controls candidate filtering and merging.
type DetectionConfig struct {
	// ConfidenceThreshold drops candidates scored below it.
	ConfidenceThreshold float64 `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	// EnabledTypes restricts detection to the listed PII types.
	// Empty means all types.
	EnabledTypes []string `yaml:"enabled_types" mapstructure:"enabled_types"`
	// Strict aborts processing when any detector cannot run; the
	// default logs and continues with the remaining detectors.
	Strict bool `yaml:"strict" mapstructure:"strict"`
	// TypePriority resolves identical-span conflicts between types.
	TypePriority []string `yaml:"type_priority" mapstructure:"type_priority"`
}

// AnonymizationConfig controls how matched values are rewritten.
type AnonymizationConfig struct {
	DefaultMethod  string            `yaml:"default_method" mapstructure:"default_method"`
	MaskCharacter  string            `yaml:"mask_character" mapstructure:"mask_character"`
	PreserveLength bool              `yaml:"preserve_length" mapstructure:"preserve_length"`
	PreserveFormat bool              `yaml:"preserve_format" mapstructure:"preserve_format"`
	KeepPrefix     int               `yaml:"keep_prefix" mapstructure:"keep_prefix"`
	KeepSuffix     int               `yaml:"keep_suffix" mapstructure:"keep_suffix"`
	RedactToken    string            `yaml:"redact_token" mapstructure:"redact_token"`
	HashSalt       string            `yaml:"hash_salt" mapstructure:"hash_salt"`
	Replacements   map[string]string `yaml:"replacements" mapstructure:"replacements"`
}

// ModelConfig configures the external entity labeler behind the model
// detector.
type ModelConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Type    string `yaml:"type" mapstructure:"type"` // heuristic or onnx
	Path    string `yaml:"path" mapstructure:"path"`
	Vocab   string `yaml:"vocab" mapstructure:"vocab"`
	// Labels is the model's output label set, index-aligned with the
	// classification head (BIO scheme).
	Labels  []string      `yaml:"labels" mapstructure:"labels"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// LabelMap translates model labels to PII types; unmapped labels
	// are dropped.
	LabelMap map[string]string `yaml:"label_map" mapstructure:"label_map"`
}

// CacheConfig contains the optional Redis result cache settings.
type CacheConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	RedisURL       string        `yaml:"redis_url" mapstructure:"redis_url"`
	MaxConnections int           `yaml:"max_connections" mapstructure:"max_connections"`
	MinIdleConns   int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DefaultTTL     time.Duration `yaml:"default_ttl" mapstructure:"default_ttl"`
	KeyPrefix      string        `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// PerformanceConfig bounds resource usage.
type PerformanceConfig struct {
	Workers       int `yaml:"workers" mapstructure:"workers"`
	MaxTextLength int `yaml:"max_text_length" mapstructure:"max_text_length"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string            `yaml:"level" mapstructure:"level"`
	Format string            `yaml:"format" mapstructure:"format"` // json or console
	File   LoggingFileConfig `yaml:"file" mapstructure:"file"`
}

// LoggingFileConfig contains file logging configuration.
type LoggingFileConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Path     string `yaml:"path" mapstructure:"path"`
	MaxSize  int    `yaml:"max_size" mapstructure:"max_size"`
	MaxAge   int    `yaml:"max_age" mapstructure:"max_age"`
	Compress bool   `yaml:"compress" mapstructure:"compress"`
}

// WebSocketConfig contains the event feed configuration.
type WebSocketConfig struct {
	Enabled         bool     `yaml:"enabled" mapstructure:"enabled"`
	Path            string   `yaml:"path" mapstructure:"path"`
	ReadBufferSize  int      `yaml:"read_buffer_size" mapstructure:"read_buffer_size"`
	WriteBufferSize int      `yaml:"write_buffer_size" mapstructure:"write_buffer_size"`
	MaxMessageSize  int64    `yaml:"max_message_size" mapstructure:"max_message_size"`
	AllowedOrigins  []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// GetDefaults returns a configuration with sensible defaults.
func GetDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:        true,
				RequestsPerMin: 600,
				Burst:          60,
			},
		},
		Detection: DetectionConfig{
			ConfidenceThreshold: 0.5,
			EnabledTypes:        nil, // all
			Strict:              false,
			TypePriority: []string{
				"ssn", "credit_card", "email", "phone",
				"ip_address", "date", "name", "address",
			},
		},
		Anonymization: AnonymizationConfig{
			DefaultMethod:  "mask",
			MaskCharacter:  "*",
			PreserveLength: true,
			PreserveFormat: false,
			RedactToken:    "[REDACTED]",
			HashSalt:       "piiguard",
			Replacements: map[string]string{
				"email":       "[EMAIL]",
				"phone":       "[PHONE]",
				"ssn":         "[SSN]",
				"credit_card": "[CREDIT_CARD]",
				"ip_address":  "[IP_ADDRESS]",
				"name":        "[NAME]",
				"address":     "[ADDRESS]",
				"date":        "[DATE]",
			},
		},
		Model: ModelConfig{
			Enabled: true,
			Type:    "heuristic",
			Timeout: 10 * time.Second,
			LabelMap: map[string]string{
				"PERSON": "name",
				"PER":    "name",
				"ORG":    "name",
				"LOC":    "address",
				"GPE":    "address",
				"DATE":   "date",
			},
		},
		Cache: CacheConfig{
			Enabled:        false,
			RedisURL:       "redis://localhost:6379/0",
			MaxConnections: 10,
			MinIdleConns:   2,
			DefaultTTL:     time.Hour,
			KeyPrefix:      "piiguard",
		},
		Performance: PerformanceConfig{
			Workers:       4,
			MaxTextLength: 1 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			File: LoggingFileConfig{
				Enabled:  false,
				Path:     "logs/piiguard.log",
				MaxSize:  100, // MB
				MaxAge:   30,  // days
				Compress: true,
			},
		},
		WebSocket: WebSocketConfig{
			Enabled:         true,
			Path:            "/ws",
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			MaxMessageSize:  512,
			AllowedOrigins:  []string{"*"},
		},
	}
}
