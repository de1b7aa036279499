// Package ingest splits document text into ordinal passages.
package ingest

import (
	"strings"
	"unicode"
)

const (
	DefaultSentencesPerChunk = 5
	DefaultOverlapSentences  = 1
	DefaultMaxChunkRunes     = 1200
)

// SentenceChunker groups sentences into passages, repeating the last
// overlapSentences of one passage at the head of the next.
type SentenceChunker struct {
	sentencesPerChunk int
	overlapSentences  int
	maxRunes          int
}

func NewSentenceChunker(sentencesPerChunk, overlapSentences, maxRunes int) *SentenceChunker {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = DefaultSentencesPerChunk
	}
	if overlapSentences < 0 {
		overlapSentences = 0
	}
	if overlapSentences >= sentencesPerChunk {
		overlapSentences = sentencesPerChunk - 1
	}
	if maxRunes <= 0 {
		maxRunes = DefaultMaxChunkRunes
	}
	return &SentenceChunker{
		sentencesPerChunk: sentencesPerChunk,
		overlapSentences:  overlapSentences,
		maxRunes:          maxRunes,
	}
}

// Chunk returns passage texts in ordinal order. Blank input yields nil.
func (c *SentenceChunker) Chunk(text string) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}
	var out []string
	for i := 0; i < len(sentences); {
		end := i + c.sentencesPerChunk
		if end > len(sentences) {
			end = len(sentences)
		}
		out = append(out, splitByRunes(strings.Join(sentences[i:end], " "), c.maxRunes)...)
		if end == len(sentences) {
			break
		}
		i = end - c.overlapSentences
	}
	return out
}

func isTerminator(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？', '\n':
		return true
	}
	return false
}

// splitSentences cuts after terminal punctuation, including the CJK full
// stops, and after line breaks. Text after the last terminator is kept.
func splitSentences(text string) []string {
	var out []string
	var b strings.Builder
	flush := func() {
		s := strings.Join(strings.Fields(b.String()), " ")
		if s != "" {
			out = append(out, s)
		}
		b.Reset()
	}
	for _, r := range text {
		if r == '\n' {
			flush()
			continue
		}
		b.WriteRune(r)
		if isTerminator(r) {
			flush()
		}
	}
	flush()
	return out
}

func splitByRunes(s string, n int) []string {
	r := []rune(s)
	if len(r) <= n {
		return []string{s}
	}
	out := make([]string, 0, len(r)/n+1)
	for i := 0; i < len(r); i += n {
		end := i + n
		if end > len(r) {
			end = len(r)
		}
		part := strings.TrimFunc(string(r[i:end]), unicode.IsSpace)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
