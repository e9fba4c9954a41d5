package detect

import (
	"context"

	"go.uber.org/zap"

	"github.com/piiguard/piiguard/internal/config"
	"github.com/piiguard/piiguard/internal/pii"
)

// RuleDetector scans text with a catalog of regex rules. Each rule
// finds every non-overlapping match within its own scan, leftmost
// first, and emits one candidate per hit with that rule's fixed
// confidence. Overlaps between rules are left for the merger.
type RuleDetector struct {
	rules  []Rule
	logger *zap.Logger
}

// NewRuleDetector creates a rule detector over the given catalog; a
// nil catalog uses DefaultRules.
func NewRuleDetector(rules []Rule, logger *zap.Logger) *RuleDetector {
	if rules == nil {
		rules = DefaultRules()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RuleDetector{rules: rules, logger: logger}
}

// Name implements Detector.
func (d *RuleDetector) Name() string { return "rules" }

// Rules returns the catalog, for diagnostics.
func (d *RuleDetector) Rules() []Rule { return d.rules }

// Scan implements Detector. It never fails: malformed or empty input
// yields an empty candidate list.
func (d *RuleDetector) Scan(ctx context.Context, text string, cfg *config.Config) ([]pii.Candidate, error) {
	if text == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var candidates []pii.Candidate
	for _, rule := range d.rules {
		for _, loc := range rule.Pattern.FindAllStringIndex(text, -1) {
			value := text[loc[0]:loc[1]]
			if rule.Validate != nil && !rule.Validate(value) {
				d.logger.Debug("Pattern hit rejected by validator",
					zap.String("pii_type", string(rule.Type)),
					zap.Int("start", loc[0]),
					zap.Int("end", loc[1]))
				continue
			}
			candidates = append(candidates, pii.Candidate{
				Type:       rule.Type,
				Value:      value,
				Start:      loc[0],
				End:        loc[1],
				Confidence: rule.Confidence,
				Source:     "rule:" + string(rule.Type),
			})
		}
	}

	return candidates, nil
}
