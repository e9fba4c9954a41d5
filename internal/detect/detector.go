// Package detect provides the detector capability and its two
// built-in implementations: a regex rule catalog and a wrapper around
// an external entity-labeling model.
package detect

import (
	"context"

	"github.com/piiguard/piiguard/internal/config"
	"github.com/piiguard/piiguard/internal/pii"
)

// Detector scans text for PII candidates. Implementations must be
// deterministic for a fixed input and config, must return an empty
// slice (not an error) for text containing no PII, must never mutate
// the input, and must be safe for concurrent use. A detector that
// cannot run signals pii.ErrDetectorUnavailable or
// pii.ErrDetectorTimeout rather than silently returning nothing.
type Detector interface {
	Name() string
	Scan(ctx context.Context, text string, cfg *config.Config) ([]pii.Candidate, error)
}
