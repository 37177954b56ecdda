package session

import (
	"fmt"
	"regexp"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/completesearch/completesearch-cli/pkg/backend"
	"github.com/completesearch/completesearch-cli/pkg/query"
)

var hlTag = regexp.MustCompile(`</?hl[^>]*>`)

// HitBox is the panel of ranked result documents.
type HitBox struct {
	QueryID uint64
	RoundID uint64
	// Request is the query the shown hits were requested with.
	Request string
	// Query is the query as normalized by the server.
	Query string
	Time  time.Duration
	Total int
	Sent  int
	// First is the zero-based offset of the first shown hit.
	First int
	Hits  []backend.Hit
}

// Apply shows resp if it is not older than what the box shows. Ties are
// applied again.
func (b *HitBox) Apply(queryID, roundID uint64, request string, resp *backend.Response) bool {
	if queryID < b.QueryID {
		return false
	}
	b.QueryID = queryID
	b.RoundID = roundID
	b.Request = request
	b.Query = resp.Query
	b.Time = resp.Time
	b.Total = resp.Hits.Total
	b.Sent = resp.Hits.Sent
	b.First = resp.Hits.First

	b.Hits = make([]backend.Hit, len(resp.Hits.Items))
	for i, h := range resp.Hits.Items {
		h.Excerpt = hlTag.ReplaceAllString(h.Excerpt, "")
		b.Hits[i] = h
	}
	return true
}

// Subtitle summarizes the number of hits below the search field.
func (b *HitBox) Subtitle() string {
	if b.Total == 0 {
		return "No hits"
	}
	noun := "documents"
	if b.Total == 1 {
		noun = "document"
	}
	n := humanize.Comma(int64(b.Total))
	if b.Query == "" {
		return fmt.Sprintf("Searching in %s %s", n, noun)
	}
	return fmt.Sprintf("Zoomed in on %s %s", n, noun)
}

// Header tells which hits are shown. It is empty when nothing is shown.
func (b *HitBox) Header() string {
	if b.Sent == 0 {
		return ""
	}
	return fmt.Sprintf("Number of hits: %s, showing: %d − %d",
		humanize.Comma(int64(b.Total)), b.First+1, b.First+b.Sent)
}

// Terms returns the query words to highlight in excerpts.
func (b *HitBox) Terms() []string {
	return query.Terms(b.Request)
}

// HasMore reports whether more hits exist than are loaded.
func (b *HitBox) HasMore() bool {
	return len(b.Hits) > 0 && b.First+len(b.Hits) < b.Total
}
