package detect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/piiguard/piiguard/internal/config"
	"github.com/piiguard/piiguard/internal/ner"
	"github.com/piiguard/piiguard/internal/pii"
)

// ModelDetector wraps an external entity labeler. Model labels are
// translated to PII types through the configured label map; unmapped
// labels are dropped and the labeler's score passes through as the
// candidate confidence.
type ModelDetector struct {
	labeler ner.Labeler
	logger  *zap.Logger
}

// NewModelDetector creates a detector over the given labeler. A nil
// labeler is permitted; Scan then reports ErrDetectorUnavailable.
func NewModelDetector(labeler ner.Labeler, logger *zap.Logger) *ModelDetector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModelDetector{labeler: labeler, logger: logger}
}

// Name implements Detector.
func (d *ModelDetector) Name() string {
	if d.labeler == nil {
		return "model"
	}
	return "model:" + d.labeler.Name()
}

// Scan implements Detector. The external call runs under the
// configured model timeout; exceeding it surfaces as
// pii.ErrDetectorTimeout so the engine can distinguish a slow model
// from "no PII found".
func (d *ModelDetector) Scan(ctx context.Context, text string, cfg *config.Config) ([]pii.Candidate, error) {
	if d.labeler == nil {
		return nil, fmt.Errorf("no entity labeler configured: %w", pii.ErrDetectorUnavailable)
	}
	if text == "" {
		return nil, nil
	}

	timeout := cfg.Model.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entities, err := d.labeler.Label(ctx, text)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s exceeded %s: %w", d.Name(), timeout, pii.ErrDetectorTimeout)
		}
		return nil, fmt.Errorf("%s failed: %w", d.Name(), pii.ErrDetectorUnavailable)
	}

	candidates := make([]pii.Candidate, 0, len(entities))
	for _, ent := range entities {
		mapped, ok := cfg.Model.LabelMap[ent.Label]
		if !ok {
			d.logger.Debug("Dropping unmapped entity label", zap.String("label", ent.Label))
			continue
		}
		if ent.Start < 0 || ent.End > len(text) || ent.Start >= ent.End {
			continue
		}
		candidates = append(candidates, pii.Candidate{
			Type:       pii.Type(mapped),
			Value:      text[ent.Start:ent.End],
			Start:      ent.Start,
			End:        ent.End,
			Confidence: ent.Score,
			Source:     d.Name(),
		})
	}

	return candidates, nil
}
