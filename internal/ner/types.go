// Package ner abstracts external entity-labeling capabilities behind a
// single interface so the detection core has no dependency on any
// specific model runtime.
package ner

import "context"

// Entity is one labeled span reported by a labeler. Offsets are
// half-open [Start, End) into the input text. Label values are
// model-specific (PERSON, LOC, DATE, ...); the model detector maps
// them to PII types.
type Entity struct {
	Start int
	End   int
	Label string
	Score float64
}

// Labeler produces labeled entity spans for a text. Implementations
// must be deterministic for a fixed input, must tolerate empty input,
// and must be safe for concurrent use from multiple goroutines.
type Labeler interface {
	// Label returns entities sorted ascending by start offset.
	Label(ctx context.Context, text string) ([]Entity, error)
	// Name identifies the labeler for diagnostics.
	Name() string
	// Close releases any native resources.
	Close() error
}
