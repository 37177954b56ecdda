// Package query turns the text of the search field and the selected facets
// into the query string sent to the completion server.
package query

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/completesearch/completesearch-cli/pkg/models"
)

// Separators split query words.
const Separators = " ,;.-"

var (
	whitespaceRun   = regexp.MustCompile(`\s+`)
	leadingSeps     = regexp.MustCompile(`^[ ,;.-]+`)
	trailingSeps    = regexp.MustCompile(`[ ,;.-]+$`)
	starRun         = regexp.MustCompile(`\*{2,}`)
	specialLastWord = regexp.MustCompile(`:\S+$`)
)

// Builder rewrites raw input into canonical query strings.
type Builder struct {
	settings models.QuerySettings
}

// NewBuilder creates a builder for the given query settings.
func NewBuilder(settings models.QuerySettings) *Builder {
	return &Builder{settings: settings}
}

// Build returns the query for input with the selected facets prepended.
func (b *Builder) Build(input string, facets []string) string {
	if input == "" && b.settings.ReplacementForEmptyQuery != "" {
		input = b.settings.ReplacementForEmptyQuery
	}
	user := Normalize(AppendStars(input, b.settings.MinPrefixLengthToAppendStar))

	parts := make([]string, 0, len(facets)+1)
	for _, f := range facets {
		parts = append(parts, b.quoteFacet(f))
	}
	parts = append(parts, user)
	return strings.TrimSpace(strings.Join(parts, " "))
}

func (b *Builder) quoteFacet(f string) string {
	if b.settings.FacetIDsAvailable && strings.HasPrefix(f, ":facet:") {
		f = ":facetid:" + strings.TrimPrefix(f, ":facet:")
	}
	return `"` + f + `"`
}

// ShouldLaunch reports whether q is long enough to be sent. The empty query
// always is.
func (b *Builder) ShouldLaunch(q string) bool {
	return LongEnough(q, b.settings.MinPrefixLengthToLaunchQuery)
}

// AppendStars appends * to every word of at least min runes, unless it
// already ends in *, $ or " or consists only of digits.
func AppendStars(s string, min int) string {
	if min < 1 {
		min = 1
	}
	var out strings.Builder
	out.Grow(len(s) + 4)
	word := strings.Builder{}
	flush := func() {
		w := word.String()
		out.WriteString(w)
		if needsStar(w, min) {
			out.WriteByte('*')
		}
		word.Reset()
	}
	for _, r := range s {
		if isSeparator(r) {
			flush()
			out.WriteRune(r)
			continue
		}
		word.WriteRune(r)
	}
	flush()
	return out.String()
}

func needsStar(w string, min int) bool {
	if utf8.RuneCountInString(w) < min {
		return false
	}
	switch w[len(w)-1] {
	case '*', '$', '"':
		return false
	}
	return !allDigits(w)
}

func allDigits(w string) bool {
	for _, r := range w {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Normalize collapses whitespace, treats - like ., strips leading and
// trailing separators, collapses runs of * and lowercases.
func Normalize(s string) string {
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "-", ".")
	s = leadingSeps.ReplaceAllString(s, "")
	s = trailingSeps.ReplaceAllString(s, "")
	s = starRun.ReplaceAllString(s, "*")
	return strings.ToLower(s)
}

// LongEnough reports whether the last word of q, ignoring one trailing * or
// ", has at least min characters.
func LongEnough(q string, min int) bool {
	if q == "" {
		return true
	}
	if strings.HasSuffix(q, "*") || strings.HasSuffix(q, `"`) {
		q = q[:len(q)-1]
	}
	n := 0
	for _, r := range reverse(q) {
		if isSeparator(r) {
			break
		}
		n++
		if n >= min {
			return true
		}
	}
	return n >= min
}

// EndsWithSpecialWord reports whether the last word of q starts with a colon,
// such as a facet word. No word completions are asked for such queries.
func EndsWithSpecialWord(q string) bool {
	return specialLastWord.MatchString(q)
}

// FacetQuery returns q extended to ask for completions of the named facet.
func FacetQuery(q, facet string) string {
	marker := ":facet:" + facet + ":*"
	if strings.HasSuffix(q, marker) {
		return q
	}
	return strings.TrimSpace(q + " " + marker)
}

// Terms returns the words of q worth highlighting: quoted special words are
// dropped and *, :, | and separators split words.
func Terms(q string) []string {
	q = quotedSpecial.ReplaceAllString(q, "")
	return strings.FieldsFunc(q, func(r rune) bool {
		return isSeparator(r) || r == ':' || r == '*' || r == '|' || unicode.IsSpace(r)
	})
}

var quotedSpecial = regexp.MustCompile(`":.*?"`)

func isSeparator(r rune) bool {
	return strings.ContainsRune(Separators, r)
}

func reverse(s string) []rune {
	rs := []rune(s)
	for i, j := 0, len(rs)-1; i < j; i, j = i+1, j-1 {
		rs[i], rs[j] = rs[j], rs[i]
	}
	return rs
}
