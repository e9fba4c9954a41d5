package engine

import "github.com/piiguard/piiguard/internal/pii"

// Options adjusts a single ProcessText or ProcessBatch call.
type Options struct {
	// Anonymize requests transformed text alongside the matches.
	Anonymize bool
	// Method selects the anonymization method; empty uses the
	// configured default.
	Method string
	// Overrides are dotted config key paths applied for this call
	// only; the engine's shared config is never mutated.
	Overrides map[string]interface{}
}

// Stats summarizes one document's matches.
type Stats struct {
	Total         int            `json:"total"`
	ByType        map[string]int `json:"by_type"`
	AvgConfidence float64        `json:"avg_confidence,omitempty"`
}

// Result is the outcome of processing one document.
type Result struct {
	Matches pii.MatchSet `json:"matches"`
	// AnonymizedText is populated when anonymization was requested;
	// Anonymized distinguishes "not requested" from an empty
	// document.
	AnonymizedText string `json:"anonymized_text,omitempty"`
	Anonymized     bool   `json:"-"`
	// OriginalMatches carries source-text offsets when the matches
	// above refer to the transformed text.
	OriginalMatches pii.MatchSet `json:"original_matches,omitempty"`
	Stats           Stats        `json:"stats"`
	// Degraded lists detectors that could not run in non-strict mode.
	Degraded []string `json:"degraded,omitempty"`
}

// DocumentResult pairs a batch item with its outcome. Exactly one of
// Result and Err is set.
type DocumentResult struct {
	Index  int
	Result *Result
	Err    error
}

func computeStats(matches pii.MatchSet) Stats {
	stats := Stats{Total: len(matches), ByType: make(map[string]int)}
	if len(matches) == 0 {
		return stats
	}
	sum := 0.0
	for _, m := range matches {
		stats.ByType[string(m.Type)]++
		sum += m.Confidence
	}
	stats.AvgConfidence = sum / float64(len(matches))
	return stats
}
