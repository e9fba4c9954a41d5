package pii

import (
	"sort"

	"go.uber.org/zap"
)

// DefaultTypePriority resolves candidates whose spans are byte-identical
// but carry different types. Earlier entries win. Types absent from the
// list rank below all listed types.
var DefaultTypePriority = []Type{
	TypeSSN, TypeCreditCard, TypeEmail, TypePhone,
	TypeIPAddress, TypeDate, TypeName, TypeAddress,
}

// MergerConfig controls filtering and tie-breaking during candidate
// merging.
type MergerConfig struct {
	// ConfidenceThreshold drops candidates scored below it.
	ConfidenceThreshold float64
	// EnabledTypes restricts the output to the listed types. Empty
	// means all types are enabled.
	EnabledTypes []Type
	// TypePriority overrides DefaultTypePriority when non-empty.
	TypePriority []Type
}

// Merger turns the union of all detectors' candidates for one document
// into a single non-overlapping, sorted MatchSet.
type Merger struct {
	threshold float64
	enabled   map[Type]bool // nil = all enabled
	priority  map[Type]int
	logger    *zap.Logger
}

// NewMerger creates a merger. A nil logger falls back to a no-op.
func NewMerger(cfg MergerConfig, logger *zap.Logger) *Merger {
	if logger == nil {
		logger = zap.NewNop()
	}

	var enabled map[Type]bool
	if len(cfg.EnabledTypes) > 0 {
		enabled = make(map[Type]bool, len(cfg.EnabledTypes))
		for _, t := range cfg.EnabledTypes {
			enabled[t] = true
		}
	}

	priorityList := cfg.TypePriority
	if len(priorityList) == 0 {
		priorityList = DefaultTypePriority
	}
	priority := make(map[Type]int, len(priorityList))
	for i, t := range priorityList {
		priority[t] = i
	}

	return &Merger{
		threshold: cfg.ConfidenceThreshold,
		enabled:   enabled,
		priority:  priority,
		logger:    logger,
	}
}

// Merge filters, orders, and reconciles candidates into a MatchSet.
// textLen bounds span validation against the original document.
//
// The output is guaranteed sorted ascending by start with pairwise
// non-overlapping spans, and merging an already valid, non-overlapping
// candidate list yields it unchanged.
func (m *Merger) Merge(textLen int, candidates []Candidate) MatchSet {
	filtered := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Start < 0 || c.End > textLen || c.Start >= c.End {
			reason := "zero-width span"
			if c.Start < 0 || c.End > textLen {
				reason = "span out of range"
			}
			err := &InvalidCandidateError{Candidate: c, Reason: reason}
			m.logger.Warn("Dropping invalid candidate", zap.Error(err))
			continue
		}
		if c.Confidence < m.threshold {
			continue
		}
		if m.enabled != nil && !m.enabled[c.Type] {
			continue
		}
		filtered = append(filtered, c)
	}

	// Order: start ascending; type priority only when spans are
	// byte-identical; then confidence descending; then length
	// descending.
	sort.SliceStable(filtered, func(i, j int) bool {
		a, b := filtered[i], filtered[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End == b.End && a.Type != b.Type {
			return m.rank(a.Type) < m.rank(b.Type)
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.End-a.Start > b.End-b.Start
	})

	matches := make(MatchSet, 0, len(filtered))
	for _, c := range filtered {
		if len(matches) == 0 || c.Start >= matches[len(matches)-1].End {
			matches = append(matches, Match(c))
			continue
		}

		// Overlap with the last accepted match. A strictly more
		// confident candidate that extends past the accepted span
		// replaces it; anything else is absorbed.
		last := matches[len(matches)-1]
		if c.Confidence > last.Confidence && c.End > last.End {
			matches[len(matches)-1] = Match(c)
		}
	}

	return matches
}

func (m *Merger) rank(t Type) int {
	if r, ok := m.priority[t]; ok {
		return r
	}
	return len(m.priority)
}
