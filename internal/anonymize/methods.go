package anonymize

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/piiguard/piiguard/internal/config"
	"github.com/piiguard/piiguard/internal/pii"
)

// Separator characters preserved by length-preserving masking.
const maskKeepChars = "-()/@. "

// maskValue replaces interior characters with the configured mask
// glyph. With preserve_format set, structured types keep their shape
// (XXX-XX-XXXX); with preserve_length, separators survive and
// keep_prefix/keep_suffix characters stay verbatim at the edges.
func maskValue(value string, piiType pii.Type, cfg *config.Config) (string, error) {
	ac := cfg.Anonymization
	maskChar := ac.MaskCharacter
	if maskChar == "" {
		maskChar = "*"
	}

	if ac.PreserveFormat {
		if formatted, ok := formatMask(value, piiType); ok {
			return formatted, nil
		}
	}

	if !ac.PreserveLength {
		return strings.Repeat(maskChar, 5), nil
	}

	runes := []rune(value)
	keepHead := ac.KeepPrefix
	keepTail := ac.KeepSuffix
	if keepHead+keepTail >= len(runes) {
		keepHead, keepTail = 0, 0
	}

	var b strings.Builder
	for i, r := range runes {
		switch {
		case i < keepHead || i >= len(runes)-keepTail:
			b.WriteRune(r)
		case strings.ContainsRune(maskKeepChars, r):
			b.WriteRune(r)
		default:
			b.WriteString(maskChar)
		}
	}
	return b.String(), nil
}

func formatMask(value string, piiType pii.Type) (string, bool) {
	switch piiType {
	case pii.TypeSSN:
		if strings.Contains(value, "-") {
			return "XXX-XX-XXXX", true
		}
		return "XXXXXXXXX", true
	case pii.TypePhone:
		if strings.Contains(value, "(") && strings.Contains(value, ")") {
			return "(XXX) XXX-XXXX", true
		}
		if strings.Count(value, "-") == 2 {
			return "XXX-XXX-XXXX", true
		}
		return "XXXXXXXXXX", true
	case pii.TypeCreditCard:
		if strings.ContainsAny(value, "- ") {
			return "XXXX-XXXX-XXXX-XXXX", true
		}
		return "XXXXXXXXXXXXXXXX", true
	}
	return "", false
}

// redactValue replaces the whole value with the configured sentinel
// token.
func redactValue(_ string, _ pii.Type, cfg *config.Config) (string, error) {
	token := cfg.Anonymization.RedactToken
	if token == "" {
		token = "[REDACTED]"
	}
	return token, nil
}

// hashValue replaces the value with a fixed-length digest of the
// salted input. Identical values under the same salt anonymize
// identically, which preserves linkage across a corpus.
func hashValue(value string, _ pii.Type, cfg *config.Config) (string, error) {
	sum := sha256.Sum256([]byte(value + cfg.Anonymization.HashSalt))
	return fmt.Sprintf("[HASH:%s]", hex.EncodeToString(sum[:])[:8]), nil
}

// replaceValue substitutes the configured per-type placeholder. The
// same placeholder repeats for every match of a type; placeholders do
// not rotate across matches. A type without a configured placeholder
// falls back to its upper-cased name in brackets.
func replaceValue(_ string, piiType pii.Type, cfg *config.Config) (string, error) {
	if repl, ok := cfg.Anonymization.Replacements[string(piiType)]; ok {
		return repl, nil
	}
	return fmt.Sprintf("[%s]", strings.ToUpper(string(piiType))), nil
}

// Pools for the default synthetic generator. Values are plausible but
// reserved/fictional (555 numbers, example.com, documentation IPs).
var syntheticPools = map[pii.Type][]string{
	pii.TypeName:       {"John Smith", "Jane Doe", "Alex Johnson", "Sam Taylor"},
	pii.TypeEmail:      {"user1@example.com", "user2@example.com", "contact@example.org"},
	pii.TypePhone:      {"555-010-1234", "555-010-5678", "555-010-9012"},
	pii.TypeSSN:        {"900-00-1111", "900-00-2222"},
	pii.TypeCreditCard: {"4111-1111-1111-1111", "5500-0000-0000-0004"},
	pii.TypeIPAddress:  {"192.0.2.1", "198.51.100.7", "203.0.113.42"},
	pii.TypeAddress:    {"123 Main Street", "456 Oak Avenue", "789 Pine Road"},
	pii.TypeDate:       {"01/01/1970", "02/02/1980"},
}

// syntheticValue generates a type-plausible stand-in. The default
// generator is deterministic: the pool entry is chosen by FNV-1a of
// the original value, so repeated values map to the same stand-in.
// Callers needing randomized output register their own generator over
// the "synthetic" method name.
func syntheticValue(value string, piiType pii.Type, cfg *config.Config) (string, error) {
	pool, ok := syntheticPools[piiType]
	if !ok {
		return replaceValue(value, piiType, cfg)
	}
	h := fnv.New32a()
	h.Write([]byte(value))
	return pool[int(h.Sum32())%len(pool)], nil
}
