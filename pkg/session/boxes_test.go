package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/completesearch/completesearch-cli/pkg/backend"
)

func hitsResponse(total int, query string, titles ...string) *backend.Response {
	resp := &backend.Response{Query: query, Hits: backend.Hits{Total: total, Sent: len(titles)}}
	for i, title := range titles {
		resp.Hits.Items = append(resp.Hits.Items, backend.Hit{
			ID:      i,
			Excerpt: "<hl idx=\"0\">" + title + "</hl> text",
			Info:    map[string]string{"title": title},
		})
	}
	return resp
}

func completionsResponse(total int, texts ...string) *backend.Response {
	resp := &backend.Response{Completions: backend.Completions{Total: total, Sent: len(texts)}}
	for i, text := range texts {
		resp.Completions.Items = append(resp.Completions.Items, backend.Completion{
			Text: text, DocCount: 10 * (i + 1), OccCount: 100, Score: 1, ID: i,
		})
	}
	return resp
}

func TestHitBox_Freshness(t *testing.T) {
	var b HitBox
	assert.True(t, b.Apply(5, 2, "new*", hitsResponse(10, "new*", "fresh")))
	assert.False(t, b.Apply(3, 1, "old*", hitsResponse(99, "old*", "stale")))

	assert.Equal(t, uint64(5), b.QueryID)
	assert.Equal(t, 10, b.Total)
	require.Len(t, b.Hits, 1)
	assert.Equal(t, "fresh", b.Hits[0].Info["title"])
}

func TestHitBox_ReapplyIsIdempotent(t *testing.T) {
	var b HitBox
	resp := hitsResponse(3, "x*", "a", "b")
	require.True(t, b.Apply(4, 1, "x*", resp))
	first := b
	first.Hits = append([]backend.Hit(nil), b.Hits...)

	require.True(t, b.Apply(4, 1, "x*", resp))
	assert.Equal(t, first, b)
	assert.Equal(t, first.Subtitle(), b.Subtitle())
	assert.Equal(t, first.Header(), b.Header())
}

func TestHitBox_StripsHighlightTags(t *testing.T) {
	var b HitBox
	b.Apply(1, 1, "doc*", hitsResponse(1, "doc*", "doc"))
	assert.Equal(t, "doc text", b.Hits[0].Excerpt)
	assert.Equal(t, []string{"doc"}, b.Terms())
}

func TestHitBox_Text(t *testing.T) {
	tests := []struct {
		name     string
		resp     *backend.Response
		subtitle string
		header   string
	}{
		{"no hits", hitsResponse(0, "zzz*"), "No hits", ""},
		{"empty query", hitsResponse(12345, ""), "Searching in 12,345 documents", ""},
		{"one", hitsResponse(1, "a*", "a"), "Zoomed in on 1 document", "Number of hits: 1, showing: 1 − 1"},
		{"many", hitsResponse(1500, "a*", "a", "b"), "Zoomed in on 1,500 documents", "Number of hits: 1,500, showing: 1 − 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b HitBox
			b.Apply(1, 1, tt.resp.Query, tt.resp)
			assert.Equal(t, tt.subtitle, b.Subtitle())
			assert.Equal(t, tt.header, b.Header())
		})
	}
}

func TestHitBox_HeaderWithOffset(t *testing.T) {
	var b HitBox
	resp := hitsResponse(47, "a*", "x", "y", "z")
	resp.Hits.First = 20
	b.Apply(1, 1, "a*", resp)
	assert.Equal(t, "Number of hits: 47, showing: 21 − 23", b.Header())
}

func TestFacetBox_Freshness(t *testing.T) {
	b := NewFacetBox("author")
	assert.True(t, b.Apply(5, 1, "q", completionsResponse(2, ":facet:author:Smith")))
	assert.False(t, b.Apply(3, 1, "q", completionsResponse(9, ":facet:author:Old")))
	require.Len(t, b.Items, 1)
	assert.Equal(t, ":facet:author:Smith", b.Items[0].Text)
}

func TestFacetBox_Rows(t *testing.T) {
	b := NewFacetBox("author")
	b.Apply(1, 1, "q", completionsResponse(20, ":facet:author:John_Smith", ":facet:author:Jane_Doe"))

	sel := NewSelection(":facet:author:Jane_Doe")
	rows := b.Rows(sel, "@dc", 3)
	require.Len(t, rows, MinRows)
	assert.Equal(t, Row{Text: ":facet:author:John_Smith", Label: "John Smith", Score: 10}, rows[0])
	assert.Equal(t, Row{Text: ":facet:author:Jane_Doe", Label: "Jane Doe", Score: 20, Checked: true}, rows[1])
	for _, r := range rows[2:] {
		assert.True(t, r.Empty)
	}

	assert.Len(t, b.Rows(sel, "@oc", 10), 10)
	assert.Equal(t, 100, b.Rows(sel, "@oc", 0)[0].Score)
	assert.Equal(t, "1 − 2 of 20", b.Footer())
	assert.Equal(t, "Refine by AUTHOR", b.Title())
}

func TestFacetBox_Dimming(t *testing.T) {
	b := NewFacetBox("venue")
	assert.True(t, b.Dimmed)

	b.Apply(1, 1, "q", completionsResponse(0))
	b.Apply(1, 1, "q", completionsResponse(0))
	assert.True(t, b.Dimmed)
	assert.Equal(t, 0, b.Transitions)
	assert.Equal(t, "", b.Footer())

	b.Apply(2, 2, "q", completionsResponse(1, ":facet:venue:SIGIR"))
	b.Apply(2, 2, "q", completionsResponse(1, ":facet:venue:SIGIR"))
	assert.False(t, b.Dimmed)
	assert.Equal(t, 1, b.Transitions)

	b.Apply(3, 3, "q", completionsResponse(0))
	assert.True(t, b.Dimmed)
	assert.Equal(t, 2, b.Transitions)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "John Smith", Label(":facet:author:John_Smith"))
	assert.Equal(t, "plain", Label("plain"))
	assert.Equal(t, "", Label("trailing:"))
}
