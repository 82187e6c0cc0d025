// Package normalize holds the canonicalization rules shared by duplicate
// detection, keyword search, and persistence. Every keyword comparison in the
// system happens on the output of Keywords, and every URL comparison on the
// output of URL.
package normalize

import (
	"strings"
	"unicode"
)

const fullWidthSpace = '　'

// Keywords canonicalizes raw keyword candidates into deduplicated tokens.
// Tokens keep their first-seen order. Empty candidates and candidates that
// collapse to nothing are dropped.
//
// Per token: trim, ASCII lowercase (non-Latin scripts are left as is),
// punctuation runs and the full-width space become a single hyphen,
// whitespace runs become a single hyphen, hyphen runs collapse, and leading
// or trailing hyphens are stripped.
func Keywords(raw []string) []string {
	tokens := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, candidate := range raw {
		token := Keyword(candidate)
		if token == "" {
			continue
		}
		if _, exists := seen[token]; exists {
			continue
		}
		seen[token] = struct{}{}
		tokens = append(tokens, token)
	}
	return tokens
}

// Keyword canonicalizes a single keyword candidate. Returns "" when the
// candidate collapses to nothing.
func Keyword(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(trimmed))
	lastHyphen := false
	for _, r := range trimmed {
		switch {
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
			lastHyphen = false
		case r == fullWidthSpace, unicode.IsPunct(r), unicode.IsSymbol(r), unicode.IsSpace(r):
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		default:
			b.WriteRune(r)
			lastHyphen = false
		}
	}

	return strings.Trim(b.String(), "-")
}
