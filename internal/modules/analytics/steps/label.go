package steps

import (
	"strings"
	"unicode"
)

const (
	DefaultLabel        = "uncategorized"
	HeuristicConfidence = 0.5
	LabelSampleSize     = 5
	MaxLabelRunes       = 10
)

type LabelResult struct {
	Label      string
	Confidence float64
}

// Label names a cluster after the most frequent token across its first five
// members. Ties go to the token seen first.
func Label(members []string) LabelResult {
	if len(members) > LabelSampleSize {
		members = members[:LabelSampleSize]
	}
	counts := map[string]int{}
	var order []string
	for _, m := range members {
		for _, tok := range tokenize(m) {
			if _, ok := counts[tok]; !ok {
				order = append(order, tok)
			}
			counts[tok]++
		}
	}
	label := DefaultLabel
	best := 0
	for _, tok := range order {
		if counts[tok] > best {
			label, best = truncateRunes(tok, MaxLabelRunes), counts[tok]
		}
	}
	return LabelResult{Label: label, Confidence: HeuristicConfidence}
}

// tokenize splits on anything that is not a letter or digit. Han, kana and
// Hangul are letters, so a CJK run stays one token.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
