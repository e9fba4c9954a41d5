package cache

import (
	"time"

	"github.com/piiguard/piiguard/internal/pii"
)

// CachedResult is the cache payload for one processed document. It
// lives only for the configured TTL; the cache memoizes, it does not
// persist detection results.
type CachedResult struct {
	Matches        pii.MatchSet `json:"matches"`
	AnonymizedText string       `json:"anonymized_text,omitempty"`
	Anonymized     bool         `json:"anonymized"`
	CachedAt       time.Time    `json:"cached_at"`
	TTL            int64        `json:"ttl"`
}

// Stats reports cache performance counters.
type Stats struct {
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	HitRate     float64 `json:"hit_rate"`
	TotalKeys   int64   `json:"total_keys"`
	MemoryUsage int64   `json:"memory_usage_bytes"`
}
