// Package anonymize rewrites matched PII spans. Methods are pluggable
// transform functions registered by name; the rewrite itself is a
// single left-to-right pass that keeps all offsets consistent while
// the text length changes under it.
package anonymize

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/piiguard/piiguard/internal/config"
	"github.com/piiguard/piiguard/internal/pii"
)

// TransformFunc produces the replacement string for one matched value.
type TransformFunc func(value string, piiType pii.Type, cfg *config.Config) (string, error)

// Anonymizer applies one anonymization method to a MatchSet against
// the original text. Safe for concurrent use; registration is
// expected at construction time.
type Anonymizer struct {
	mu      sync.RWMutex
	methods map[string]TransformFunc
	logger  *zap.Logger
}

// New creates an anonymizer with the built-in methods (mask, redact,
// hash, replace, synthetic) registered.
func New(logger *zap.Logger) *Anonymizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Anonymizer{
		methods: make(map[string]TransformFunc),
		logger:  logger,
	}
	a.Register("mask", maskValue)
	a.Register("redact", redactValue)
	a.Register("hash", hashValue)
	a.Register("replace", replaceValue)
	a.Register("synthetic", syntheticValue)
	return a
}

// Register adds or replaces a transform method under the given name.
func (a *Anonymizer) Register(name string, fn TransformFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.methods[name] = fn
}

// Methods returns the registered method names, sorted.
func (a *Anonymizer) Methods() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, 0, len(a.methods))
	for name := range a.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply rewrites every match in the set. An empty method name selects
// the configured default. The call is all-or-nothing: an unknown
// method or a failing transform returns an error before any text is
// produced.
//
// The output MatchSet carries offsets into the transformed text,
// computed from the running length delta; the input set is returned
// unchanged as OriginalMatches.
func (a *Anonymizer) Apply(text string, matches pii.MatchSet, method string, cfg *config.Config) (*pii.AnonymizationResult, error) {
	if method == "" {
		method = cfg.Anonymization.DefaultMethod
	}

	a.mu.RLock()
	transform, ok := a.methods[method]
	a.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%q: %w", method, pii.ErrUnsupportedMethod)
	}

	// Compute every replacement up front so a late failure cannot
	// leave a half-transformed document.
	replacements := make([]string, len(matches))
	for i, m := range matches {
		repl, err := transform(m.Value, m.Type, cfg)
		if err != nil {
			return nil, fmt.Errorf("transform %s for %s: %w", method, m.Type, err)
		}
		replacements[i] = repl
	}

	// Single left-to-right pass: copy the gap before each match, then
	// its replacement. This is the only rewrite that stays correct
	// once replacement length differs from the original span.
	var b strings.Builder
	b.Grow(len(text))
	out := make(pii.MatchSet, 0, len(matches))
	cursor := 0
	delta := 0
	for i, m := range matches {
		b.WriteString(text[cursor:m.Start])
		b.WriteString(replacements[i])

		newStart := m.Start + delta
		out = append(out, pii.Match{
			Type:       m.Type,
			Value:      replacements[i],
			Start:      newStart,
			End:        newStart + len(replacements[i]),
			Confidence: m.Confidence,
			Source:     m.Source,
		})

		delta += len(replacements[i]) - (m.End - m.Start)
		cursor = m.End
	}
	b.WriteString(text[cursor:])

	return &pii.AnonymizationResult{
		Text:            b.String(),
		Matches:         out,
		OriginalMatches: matches,
	}, nil
}
