package steps

import (
	"regexp"
	"strings"
)

const (
	MaxQueryRunes     = 500
	EmailPlaceholder  = "<EMAIL>"
	NumberPlaceholder = "<NUM>"
)

var (
	emailRE  = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(?:\.[A-Za-z0-9\-]+)*\.[A-Za-z]{2,}`)
	digitsRE = regexp.MustCompile(`[0-9]{2,}`)
)

// NormalizeQuery masks PII and canonicalizes whitespace so that repeated
// questions collapse onto one text. Order matters: emails are masked before
// digit runs so an address keeps a single placeholder.
func NormalizeQuery(raw string) string {
	// strings.Fields splits on Unicode whitespace, including U+3000.
	s := strings.Join(strings.Fields(raw), " ")
	s = emailRE.ReplaceAllString(s, EmailPlaceholder)
	s = digitsRE.ReplaceAllString(s, NumberPlaceholder)
	return truncateRunes(s, MaxQueryRunes)
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
