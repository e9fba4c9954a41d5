package ner

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// HeuristicLabeler is a deterministic, dependency-free labeler built
// on capitalization and lexical cues. It stands in for a trained NER
// model when none is configured and serves as the reference
// implementation of the Labeler contract.
type HeuristicLabeler struct {
	logger *zap.Logger
}

var (
	// Two to four capitalized words in sequence.
	namePattern = regexp.MustCompile(`\b[A-Z][a-z]+(?: [A-Z][a-z]+){1,3}\b`)

	// House number followed by up to three words and a street suffix.
	addressPattern = regexp.MustCompile(`\b\d{1,5} (?:[A-Z][a-z]+ ){0,3}(?:[A-Z][a-z]+ )?(?:Street|St|Avenue|Ave|Road|Rd|Drive|Dr|Lane|Ln|Boulevard|Blvd)\b`)

	// Numeric dates and "Month DD, YYYY" forms.
	datePattern = regexp.MustCompile(`\b(?:\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|(?:January|February|March|April|May|June|July|August|September|October|November|December) \d{1,2},? \d{4})\b`)

	honorifics = []string{"Mr. ", "Mrs. ", "Ms. ", "Dr. ", "Prof. "}
)

// Common sentence openers that match the capitalized-sequence pattern
// but are never names.
var nameStopwords = map[string]bool{
	"The": true, "This": true, "That": true, "These": true, "Those": true,
	"Dear": true, "Hello": true, "Please": true, "Thank": true,
	"Monday": true, "Tuesday": true, "Wednesday": true, "Thursday": true,
	"Friday": true, "Saturday": true, "Sunday": true,
}

// NewHeuristicLabeler creates the heuristic labeler.
func NewHeuristicLabeler(logger *zap.Logger) *HeuristicLabeler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HeuristicLabeler{logger: logger}
}

// Name implements Labeler.
func (h *HeuristicLabeler) Name() string { return "heuristic" }

// Close implements Labeler. The heuristic labeler holds no resources.
func (h *HeuristicLabeler) Close() error { return nil }

// Label implements Labeler. Address and date spans are emitted before
// name spans so that a downstream merger sees the more specific claim
// first when offsets collide.
func (h *HeuristicLabeler) Label(ctx context.Context, text string) ([]Entity, error) {
	if text == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entities []Entity

	for _, loc := range addressPattern.FindAllStringIndex(text, -1) {
		entities = append(entities, Entity{Start: loc[0], End: loc[1], Label: "LOC", Score: 0.7})
	}

	for _, loc := range datePattern.FindAllStringIndex(text, -1) {
		entities = append(entities, Entity{Start: loc[0], End: loc[1], Label: "DATE", Score: 0.75})
	}

	for _, loc := range namePattern.FindAllStringIndex(text, -1) {
		candidate := text[loc[0]:loc[1]]
		first := strings.SplitN(candidate, " ", 2)[0]
		if nameStopwords[first] {
			continue
		}

		score := 0.6
		if hasHonorificBefore(text, loc[0]) {
			score = 0.85
		}
		entities = append(entities, Entity{Start: loc[0], End: loc[1], Label: "PERSON", Score: score})
	}

	sort.SliceStable(entities, func(i, j int) bool {
		if entities[i].Start != entities[j].Start {
			return entities[i].Start < entities[j].Start
		}
		return entities[i].End < entities[j].End
	})

	h.logger.Debug("Heuristic labeling completed",
		zap.Int("text_length", len(text)),
		zap.Int("entities", len(entities)))

	return entities, nil
}

func hasHonorificBefore(text string, start int) bool {
	for _, hon := range honorifics {
		if start >= len(hon) && text[start-len(hon):start] == hon {
			return true
		}
	}
	return false
}
