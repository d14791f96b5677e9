// Package textutil holds the small text helpers shared by the segmenter and
// the field extractor: accent folding, whitespace collapsing and recognition
// of the boilerplate lines the PDF renderer repeats on every page.
package textutil

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Compose returns s trimmed and in NFC form. PDF text layers may emit an
// accent as a base letter followed by a combining mark; composing first lets
// Fold see one rune per letter. Callers that slice with SliceFromFolded must
// use the composed line as the original.
func Compose(s string) string {
	s = strings.TrimSpace(s)
	if isASCII(s) {
		return s
	}
	return norm.NFC.String(s)
}

// Fold removes diacritics from s one rune at a time. Every input rune maps to
// exactly one output rune, so rune offsets in the folded string are valid
// offsets in the original. Case is preserved. s should already be composed.
func Fold(s string) string {
	if isASCII(s) {
		return s
	}
	// A chain carries state, so each call builds its own.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		b.WriteRune(foldRune(t, r))
	}
	return b.String()
}

// FoldLower folds diacritics and lower-cases s. Used for keyword matching on
// template headers.
func FoldLower(s string) string {
	return strings.ToLower(Fold(norm.NFC.String(s)))
}

func foldRune(t transform.Transformer, r rune) rune {
	if r < utf8.RuneSelf {
		return r
	}
	out, _, err := transform.String(t, string(r))
	if err != nil || utf8.RuneCountInString(out) != 1 {
		return r
	}
	folded, _ := utf8.DecodeRuneInString(out)
	return folded
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// SliceFromFolded returns the part of original that starts where byteIdx
// points in folded, where folded == Fold(original).
func SliceFromFolded(original, folded string, byteIdx int) string {
	if byteIdx <= 0 {
		return original
	}
	if byteIdx >= len(folded) {
		return ""
	}
	runeIdx := utf8.RuneCountInString(folded[:byteIdx])
	for i := range original {
		if runeIdx == 0 {
			return original[i:]
		}
		runeIdx--
	}
	return ""
}

// Collapse replaces every run of whitespace (newlines included) with a single
// space and trims both ends.
func Collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// =============================================================================
// NOISE RECOGNITION
// =============================================================================

// defaultNoise matches, on folded text, the lines the source system stamps on
// every page: section banners, verification code footers, page links,
// pagination counters and print timestamps.
var defaultNoise = []*regexp.Regexp{
	regexp.MustCompile(`(?i)PLANOS\s+DE\s+APLICACAO`),
	regexp.MustCompile(`(?i)CODIGO\s+DE\s+VERIFICACAO`),
	regexp.MustCompile(`(?i)^(?:https?://|www\.)\S*`),
	regexp.MustCompile(`(?i)^(?:PAGINA|PAG\.?)?\s*\d+\s*(?:/|DE)\s*\d+$`),
	regexp.MustCompile(`^\d{2}/\d{2}/\d{4}(?:[,\s]+\d{2}:\d{2}(?::\d{2})?)?$`),
}

// NoiseFilter recognizes boilerplate lines. It is immutable after
// construction and safe to share between goroutines.
type NoiseFilter struct {
	patterns []*regexp.Regexp
}

// NewNoiseFilter builds a filter with the default boilerplate patterns plus
// the extra regular expressions given. Extra patterns are matched against the
// folded (accent-free) line.
func NewNoiseFilter(extra ...string) (*NoiseFilter, error) {
	patterns := make([]*regexp.Regexp, 0, len(defaultNoise)+len(extra))
	patterns = append(patterns, defaultNoise...)
	for _, p := range extra {
		if strings.TrimSpace(p) == "" {
			continue
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid noise pattern %q: %w", p, err)
		}
		patterns = append(patterns, re)
	}
	return &NoiseFilter{patterns: patterns}, nil
}

// DefaultNoiseFilter returns a filter with only the built-in patterns.
func DefaultNoiseFilter() *NoiseFilter {
	return &NoiseFilter{patterns: defaultNoise}
}

// IsNoise reports whether line is boilerplate. A nil filter uses the defaults.
func (nf *NoiseFilter) IsNoise(line string) bool {
	patterns := defaultNoise
	if nf != nil {
		patterns = nf.patterns
	}
	folded := Fold(Compose(line))
	if folded == "" {
		return false
	}
	for _, re := range patterns {
		if re.MatchString(folded) {
			return true
		}
	}
	return false
}
