package tui

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"text/template"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/completesearch/completesearch-cli/pkg/backend"
)

// HitFormatter turns one hit into display text.
type HitFormatter interface {
	Format(hit backend.Hit) (string, error)
}

// HitFormatterFunc adapts a function to HitFormatter.
type HitFormatterFunc func(hit backend.Hit) (string, error)

func (f HitFormatterFunc) Format(hit backend.Hit) (string, error) { return f(hit) }

// TemplateFormatter renders hits with a text/template. The template sees
// .Score, .ID, .Excerpt, .URL and the .Info map.
type TemplateFormatter struct {
	tmpl *template.Template
}

// NewTemplateFormatter parses text as a hit template.
func NewTemplateFormatter(text string) (*TemplateFormatter, error) {
	tmpl, err := template.New("hit").Option("missingkey=zero").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("invalid hit template: %w", err)
	}
	return &TemplateFormatter{tmpl: tmpl}, nil
}

// Format executes the template for hit.
func (f *TemplateFormatter) Format(hit backend.Hit) (string, error) {
	var buf bytes.Buffer
	if err := f.tmpl.Execute(&buf, hit); err != nil {
		return "", fmt.Errorf("failed to render hit %d: %w", hit.ID, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// highlight styles every match of re in text. A nil re leaves text as is.
func highlight(text string, re *regexp.Regexp, style lipgloss.Style) string {
	if re == nil {
		return text
	}
	return re.ReplaceAllStringFunc(text, func(m string) string {
		return style.Render(m)
	})
}

// termsCache keeps the highlight regexp of the last rendered terms so that
// redraws of the same hit box do not recompile it.
type termsCache struct {
	key   string
	built bool
	re    *regexp.Regexp
}

func (c *termsCache) regexp(terms []string) *regexp.Regexp {
	key := strings.Join(terms, "\x00")
	if !c.built || key != c.key {
		c.key, c.built, c.re = key, true, termsRegexp(terms)
	}
	return c.re
}

// termsRegexp matches any of terms case-insensitively.
func termsRegexp(terms []string) *regexp.Regexp {
	if len(terms) == 0 {
		return nil
	}
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		if t != "" {
			quoted = append(quoted, regexp.QuoteMeta(t))
		}
	}
	if len(quoted) == 0 {
		return nil
	}
	// Longer terms first so that a prefix does not shadow a longer match.
	sort.Slice(quoted, func(i, j int) bool { return len(quoted[i]) > len(quoted[j]) })
	return regexp.MustCompile(`(?i)(` + strings.Join(quoted, "|") + `)`)
}

// hitsContent renders the hit box and returns the line each hit starts on.
func (a *App) hitsContent(width int) (string, []int) {
	box := a.ctrl.Hits()
	var b strings.Builder
	starts := make([]int, 0, len(box.Hits))
	line := 0

	if header := box.Header(); header != "" {
		b.WriteString(HeaderStyle.Render(header))
		b.WriteString("\n\n")
		line += 2
	}

	re := a.terms.regexp(box.Terms())
	for i, hit := range box.Hits {
		text, err := a.formatter.Format(hit)
		if err != nil {
			text = ErrorStyle.Render(err.Error())
		}
		text = wordwrap.String(highlight(text, re, a.styles.Highlight), max(width-2, 10))

		marker := "  "
		if a.focus == focusHits && i == a.hitCursor {
			marker = SelectedStyle.Render("▸ ")
		}
		lines := strings.Split(text, "\n")
		starts = append(starts, line)
		for j, l := range lines {
			if j == 0 {
				b.WriteString(marker)
			} else {
				b.WriteString("  ")
			}
			b.WriteString(l)
			b.WriteString("\n")
		}
		b.WriteString("\n")
		line += len(lines) + 1
	}

	if len(box.Hits) == 0 {
		b.WriteString(DescriptionStyle.Render(box.Subtitle()))
	} else if box.HasMore() {
		b.WriteString(DescriptionStyle.Render("move past the last hit to load more"))
	}
	return b.String(), starts
}

// selectedHit returns the hit under the cursor.
func (a *App) selectedHit() (backend.Hit, bool) {
	hits := a.ctrl.Hits().Hits
	if a.hitCursor < 0 || a.hitCursor >= len(hits) {
		return backend.Hit{}, false
	}
	return hits[a.hitCursor], true
}
