package session

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/completesearch/completesearch-cli/pkg/backend"
)

// MinRows is the least number of rows a facet box renders.
const MinRows = 5

// FacetBox holds the completions of one facet dimension, or of plain words
// for the box named models.Word.
type FacetBox struct {
	Name    string
	QueryID uint64
	RoundID uint64
	// Request is the query the shown completions were requested with.
	Request string
	Total   int
	Sent    int
	Items   []backend.Completion
	Dimmed  bool
	// Transitions counts changes of Dimmed.
	Transitions int
}

// Row is one line of a facet box. Padding rows have Empty set.
type Row struct {
	Text    string
	Label   string
	Score   int
	Checked bool
	Empty   bool
}

// NewFacetBox returns a dimmed, empty box.
func NewFacetBox(name string) *FacetBox {
	return &FacetBox{Name: name, Dimmed: true}
}

// Apply shows resp if it is not older than what the box shows.
func (b *FacetBox) Apply(queryID, roundID uint64, request string, resp *backend.Response) bool {
	if queryID < b.QueryID {
		return false
	}
	b.QueryID = queryID
	b.RoundID = roundID
	b.Request = request
	b.Total = resp.Completions.Total
	b.Sent = resp.Completions.Sent
	b.Items = append([]backend.Completion(nil), resp.Completions.Items...)
	b.setDimmed(b.Sent == 0)
	return true
}

func (b *FacetBox) setDimmed(dimmed bool) {
	if b.Dimmed == dimmed {
		return
	}
	b.Dimmed = dimmed
	b.Transitions++
}

// Rows returns the rows to render, padded with empty rows to at least
// minRows and never fewer than MinRows.
func (b *FacetBox) Rows(sel *Selection, scoreKey string, minRows int) []Row {
	if minRows < MinRows {
		minRows = MinRows
	}
	rows := make([]Row, 0, max(minRows, len(b.Items)))
	for _, c := range b.Items {
		rows = append(rows, Row{
			Text:    c.Text,
			Label:   Label(c.Text),
			Score:   c.Value(scoreKey),
			Checked: sel != nil && sel.Has(c.Text),
		})
	}
	for len(rows) < minRows {
		rows = append(rows, Row{Empty: true})
	}
	return rows
}

// Footer tells how many completions are shown out of how many.
func (b *FacetBox) Footer() string {
	if b.Sent == 0 {
		return ""
	}
	return fmt.Sprintf("1 − %d of %s", b.Sent, humanize.Comma(int64(b.Total)))
}

// Title is the heading of the box.
func (b *FacetBox) Title() string {
	return "Refine by " + strings.ToUpper(b.Name)
}

// HasMore reports whether more completions exist than are loaded.
func (b *FacetBox) HasMore() bool {
	return len(b.Items) > 0 && len(b.Items) < b.Total
}

// Label turns a completion text into its display form: everything up to the
// last colon is dropped and underscores become spaces.
func Label(text string) string {
	if i := strings.LastIndex(text, ":"); i >= 0 {
		text = text[i+1:]
	}
	return strings.ReplaceAll(text, "_", " ")
}
