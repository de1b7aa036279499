package index

import (
	"strings"
	"unicode"
)

// Trigrams mirrors pg_trgm: words are runs of letters and digits, lowercased,
// padded with two leading blanks and one trailing blank. The result keeps
// generation order and duplicates, which word similarity needs.
func Trigrams(s string) []string {
	var out []string
	for _, word := range splitWords(s) {
		padded := append([]rune{' ', ' '}, word...)
		padded = append(padded, ' ')
		for i := 0; i+3 <= len(padded); i++ {
			out = append(out, string(padded[i:i+3]))
		}
	}
	return out
}

func splitWords(s string) [][]rune {
	var words [][]rune
	var cur []rune
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur = append(cur, r)
			continue
		}
		if len(cur) > 0 {
			words = append(words, cur)
			cur = nil
		}
	}
	if len(cur) > 0 {
		words = append(words, cur)
	}
	return words
}

func trigramSet(trgs []string) map[string]struct{} {
	set := make(map[string]struct{}, len(trgs))
	for _, t := range trgs {
		set[t] = struct{}{}
	}
	return set
}

// Similarity is pg_trgm similarity(): shared trigrams over the union.
func Similarity(a, b string) float64 {
	sa, sb := trigramSet(Trigrams(a)), trigramSet(Trigrams(b))
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}
	common := 0
	for t := range sa {
		if _, ok := sb[t]; ok {
			common++
		}
	}
	return float64(common) / float64(len(sa)+len(sb)-common)
}

// WordSimilarity is pg_trgm word_similarity(query, text): the best match of
// the query's trigram set against any contiguous extent of text's ordered
// trigrams, scored common / (|query| + |extent| - common).
func WordSimilarity(query, text string) float64 {
	return wordSimilarity(trigramSet(Trigrams(query)), Trigrams(text))
}

func wordSimilarity(query map[string]struct{}, text []string) float64 {
	if len(query) == 0 || len(text) == 0 {
		return 0
	}
	best := 0.0
	for start := range text {
		// An extent that opens on a non-shared trigram scores below the
		// same extent without it.
		if _, ok := query[text[start]]; !ok {
			continue
		}
		seen := map[string]struct{}{}
		common := 0
		for end := start; end < len(text); end++ {
			t := text[end]
			if _, dup := seen[t]; !dup {
				seen[t] = struct{}{}
				if _, ok := query[t]; ok {
					common++
				}
			}
			if _, ok := query[t]; !ok {
				continue
			}
			score := float64(common) / float64(len(query)+len(seen)-common)
			if score > best {
				best = score
			}
			if common == len(query) && score == 1 {
				return 1
			}
		}
	}
	return best
}
