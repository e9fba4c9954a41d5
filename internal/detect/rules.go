package detect

import (
	"regexp"
	"strings"

	"github.com/piiguard/piiguard/internal/pii"
)

// Rule is one hand-authored pattern with a fixed confidence. Validate,
// when set, rejects raw regex hits that fail type-specific structural
// checks (digit counts, Luhn, octet ranges).
type Rule struct {
	Type       pii.Type
	Pattern    *regexp.Regexp
	Confidence float64
	Validate   func(value string) bool
}

// DefaultRules returns the built-in pattern catalog.
func DefaultRules() []Rule {
	return []Rule{
		{
			Type:       pii.TypeEmail,
			Pattern:    regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
			Confidence: 0.9,
			Validate:   validEmail,
		},
		{
			Type:       pii.TypePhone,
			Pattern:    regexp.MustCompile(`\b(?:\+?1[-.\s]?)?\(?[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}\b`),
			Confidence: 0.8,
			Validate:   validPhone,
		},
		{
			Type:       pii.TypeSSN,
			Pattern:    regexp.MustCompile(`\b\d{3}[-.]?\d{2}[-.]?\d{4}\b`),
			Confidence: 0.95,
			Validate:   validSSN,
		},
		{
			Type:       pii.TypeCreditCard,
			Pattern:    regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`),
			Confidence: 0.85,
			Validate:   validCreditCard,
		},
		{
			Type:       pii.TypeIPAddress,
			Pattern:    regexp.MustCompile(`\b(?:[0-9]{1,3}\.){3}[0-9]{1,3}\b`),
			Confidence: 0.8,
			Validate:   validIPAddress,
		},
	}
}

func digitsOf(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func validEmail(value string) bool {
	at := strings.LastIndex(value, "@")
	return at > 0 && strings.Contains(value[at:], ".")
}

func validPhone(value string) bool {
	n := len(digitsOf(value))
	return n >= 10 && n <= 11
}

func validSSN(value string) bool {
	digits := digitsOf(value)
	if len(digits) != 9 {
		return false
	}
	area, group, serial := digits[:3], digits[3:5], digits[5:]
	if area == "000" || area == "666" || area[0] == '9' {
		return false
	}
	return group != "00" && serial != "0000"
}

// validCreditCard applies a length check and the Luhn algorithm.
func validCreditCard(value string) bool {
	digits := digitsOf(value)
	if len(digits) < 13 || len(digits) > 16 {
		return false
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		n := int(digits[i] - '0')
		if double {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		double = !double
	}
	return sum%10 == 0
}

func validIPAddress(value string) bool {
	parts := strings.Split(value, ".")
	if len(parts) != 4 {
		return false
	}
	for _, part := range parts {
		if len(part) == 0 || len(part) > 3 {
			return false
		}
		n := 0
		for _, r := range part {
			n = n*10 + int(r-'0')
		}
		if n > 255 {
			return false
		}
	}
	return true
}
