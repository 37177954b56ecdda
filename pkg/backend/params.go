package backend

import (
	"net/url"
	"strconv"
)

// Params are the query parameters understood by the completion server.
// Ranking specs are passed through verbatim. Target names the box the
// request is for and is only used for logs and metrics.
type Params struct {
	Target            string
	Query             string
	Hits              int
	Completions       int
	FirstHit          int
	HitRanking        string
	CompletionRanking string
	ExcerptRadius     int
}

// Values encodes p as q, h, c, f, rd, rw, er and format=json. Empty ranking
// specs, a zero offset and a zero excerpt radius are left out.
func (p Params) Values() url.Values {
	v := url.Values{}
	v.Set("q", p.Query)
	v.Set("h", strconv.Itoa(p.Hits))
	v.Set("c", strconv.Itoa(p.Completions))
	if p.FirstHit > 0 {
		v.Set("f", strconv.Itoa(p.FirstHit))
	}
	if p.HitRanking != "" {
		v.Set("rd", p.HitRanking)
	}
	if p.CompletionRanking != "" {
		v.Set("rw", p.CompletionRanking)
	}
	if p.ExcerptRadius > 0 {
		v.Set("er", strconv.Itoa(p.ExcerptRadius))
	}
	v.Set("format", "json")
	return v
}
