package textutil

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

var folder = cases.Fold()

// Fingerprint is a term-frequency vector used to compare two texts.
type Fingerprint struct {
	tokens map[string]float64
	norm   float64
}

// NewFingerprint builds a fingerprint from text. It returns nil when the text
// has no tokens.
func NewFingerprint(text string) *Fingerprint {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	counts := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	var norm float64
	for _, count := range counts {
		norm += count * count
	}
	return &Fingerprint{tokens: counts, norm: math.Sqrt(norm)}
}

// Tokenize case-folds NFC-normalized text and splits it on anything that is
// not a letter or digit. Single-character tokens are dropped.
func Tokenize(text string) []string {
	folded := folder.String(Normalize(text))
	raw := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	terms := raw[:0]
	for _, token := range raw {
		if len([]rune(token)) < 2 {
			continue
		}
		terms = append(terms, token)
	}
	return terms
}

// TokenCount returns the number of distinct tokens.
func (f *Fingerprint) TokenCount() int {
	if f == nil {
		return 0
	}
	return len(f.tokens)
}
