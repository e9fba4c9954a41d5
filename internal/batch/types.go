package batch

import (
	"strings"
	"time"
)

// Document represents a single record from the input dataset.
type Document struct {
	ID   string `csv:"id" parquet:"id" json:"id"`
	Text string `csv:"text" parquet:"text" json:"text"`
}

// OutputRecord is one processed document as written to the output
// file, one JSON object per line.
type OutputRecord struct {
	ID             string      `json:"id,omitempty"`
	Matches        interface{} `json:"matches"`
	AnonymizedText *string     `json:"anonymized_text,omitempty"`
	Error          string      `json:"error,omitempty"`
}

// ProcessingResult summarizes one file run.
type ProcessingResult struct {
	TotalRecords    int64          `json:"total_records"`
	ProcessedOK     int64          `json:"processed_ok"`
	ProcessedFailed int64          `json:"processed_failed"`
	TotalMatches    int64          `json:"total_matches"`
	MatchesByType   map[string]int `json:"matches_by_type"`
	Duration        time.Duration  `json:"duration"`
	Errors          []string       `json:"errors,omitempty"`
}

// Config contains file pipeline configuration.
type Config struct {
	BatchSize      int    `yaml:"batch_size" mapstructure:"batch_size"`           // 500
	ProgressReport int    `yaml:"progress_report" mapstructure:"progress_report"` // 1000
	TextColumn     string `yaml:"text_column" mapstructure:"text_column"`         // "text"
	IDColumn       string `yaml:"id_column" mapstructure:"id_column"`             // "id"
	Anonymize      bool   `yaml:"anonymize" mapstructure:"anonymize"`
	Method         string `yaml:"method" mapstructure:"method"`
}

// FileFormat represents supported file formats.
type FileFormat string

const (
	FormatCSV     FileFormat = "csv"
	FormatParquet FileFormat = "parquet"
	FormatJSON    FileFormat = "json"
)

// DetectFileFormat detects file format from the extension. JSONL
// files use the JSON path; each line is one object.
func DetectFileFormat(filename string) FileFormat {
	switch {
	case strings.HasSuffix(filename, ".csv"):
		return FormatCSV
	case strings.HasSuffix(filename, ".parquet"):
		return FormatParquet
	case strings.HasSuffix(filename, ".json"), strings.HasSuffix(filename, ".jsonl"):
		return FormatJSON
	default:
		return FormatCSV
	}
}
