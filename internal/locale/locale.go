// Package locale resolves the reply language (es, en, pt) and renders
// localized messages and match dates from lookup tables.
package locale

import (
	"strings"

	"golang.org/x/text/language"
)

type Tag string

const (
	ES Tag = "es"
	EN Tag = "en"
	PT Tag = "pt"

	Default = ES
)

var (
	supported = []language.Tag{language.Spanish, language.English, language.Portuguese}
	tags      = []Tag{ES, EN, PT}
	matcher   = language.NewMatcher(supported)
)

// Resolve returns the first candidate that matches a supported language,
// e.g. "pt-BR" or "en-GB". Unknown or empty candidates are skipped.
func Resolve(candidates ...string) Tag {
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		t, err := language.Parse(c)
		if err != nil {
			continue
		}
		_, idx, conf := matcher.Match(t)
		if conf >= language.High {
			return tags[idx]
		}
	}
	return Default
}

// Valid reports whether s names a supported tag exactly.
func Valid(s string) bool {
	switch Tag(s) {
	case ES, EN, PT:
		return true
	}
	return false
}

func (t Tag) language() language.Tag {
	switch t {
	case EN:
		return language.English
	case PT:
		return language.Portuguese
	default:
		return language.Spanish
	}
}
