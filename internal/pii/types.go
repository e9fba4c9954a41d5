package pii

// Type identifies a category of personally identifiable information.
// The set is open: configuration and custom detectors may introduce
// additional types beyond the built-in constants.
type Type string

const (
	TypeEmail      Type = "email"
	TypePhone      Type = "phone"
	TypeSSN        Type = "ssn"
	TypeCreditCard Type = "credit_card"
	TypeIPAddress  Type = "ip_address"
	TypeName       Type = "name"
	TypeAddress    Type = "address"
	TypeDate       Type = "date"
)

// Candidate is a single detector's claim about a PII occurrence.
// Spans are half-open [Start, End) character offsets into the original
// text. Candidates are created fresh per scan, never mutated, and
// discarded after the merge.
type Candidate struct {
	Type       Type    `json:"pii_type"`
	Value      string  `json:"value"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source,omitempty"`
}

// Match is a Candidate promoted past merging and filtering.
type Match struct {
	Type       Type    `json:"pii_type"`
	Value      string  `json:"value"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source,omitempty"`
}

// MatchSet is an ordered sequence of matches. Invariant: spans are
// pairwise non-overlapping and sorted ascending by Start. MatchSets are
// never mutated in place; transformations produce a new MatchSet.
type MatchSet []Match

// Valid reports whether the set holds the sorted, non-overlapping
// invariant.
func (ms MatchSet) Valid() bool {
	lastEnd := -1
	for _, m := range ms {
		if m.Start < lastEnd || m.Start >= m.End {
			return false
		}
		lastEnd = m.End
	}
	return true
}

// Types returns the distinct PII types present in the set, in order of
// first appearance.
func (ms MatchSet) Types() []Type {
	seen := make(map[Type]bool, len(ms))
	var types []Type
	for _, m := range ms {
		if !seen[m.Type] {
			seen[m.Type] = true
			types = append(types, m.Type)
		}
	}
	return types
}

// AnonymizationResult is the outcome of applying one anonymization
// method to a MatchSet. Matches carries offsets into the transformed
// text; OriginalMatches carries the merge output with offsets into the
// source text.
type AnonymizationResult struct {
	Text            string   `json:"anonymized_text"`
	Matches         MatchSet `json:"matches"`
	OriginalMatches MatchSet `json:"original_matches"`
}
