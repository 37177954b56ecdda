package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Response is a normalized completion server answer.
type Response struct {
	Query       string
	Time        time.Duration
	Hits        Hits
	Completions Completions
}

// Hits is the hit list of a response. First is zero-based.
type Hits struct {
	Total int
	Sent  int
	First int
	Items []Hit
}

// Hit is one result document.
type Hit struct {
	Score   int
	ID      int
	Excerpt string
	URL     string
	Info    map[string]string
}

// Completions is the completion list of a response.
type Completions struct {
	Total int
	Sent  int
	Items []Completion
}

// Completion is one word or facet completion with its counts.
type Completion struct {
	Text     string
	Score    int
	DocCount int
	OccCount int
	ID       int
}

// Value returns the count selected by key, one of @sc, @dc, @oc or @id.
// Unknown keys select the document count.
func (c Completion) Value(key string) int {
	switch key {
	case "@sc":
		return c.Score
	case "@oc":
		return c.OccCount
	case "@id":
		return c.ID
	default:
		return c.DocCount
	}
}

// DecodeResponse parses a JSON body. Missing keys and sections of an
// unexpected shape decode as zero results; only a body that is not JSON at
// all is an error.
func DecodeResponse(data []byte) (*Response, error) {
	if !json.Valid(data) {
		var v any
		err := json.Unmarshal(data, &v)
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	var raw rawResponse
	lenient(data, &raw)
	var res rawResult
	lenient(raw.Result, &res)
	return res.normalize(), nil
}

// lenient decodes data into v and leaves v zero when data has another shape.
func lenient(data []byte, v any) {
	if len(bytes.TrimSpace(data)) == 0 {
		return
	}
	_ = json.Unmarshal(data, v)
}

type rawResponse struct {
	Result json.RawMessage `json:"result"`
}

type rawResult struct {
	Query       flexText        `json:"query"`
	Time        json.RawMessage `json:"time"`
	Hits        json.RawMessage `json:"hits"`
	Completions json.RawMessage `json:"completions"`
}

type rawHits struct {
	Total flexInt           `json:"@total"`
	Sent  flexInt           `json:"@sent"`
	First flexInt           `json:"@first"`
	Hit   oneOrMany[rawHit] `json:"hit"`
}

type rawCompletions struct {
	Total flexInt                  `json:"@total"`
	Sent  flexInt                  `json:"@sent"`
	C     oneOrMany[rawCompletion] `json:"c"`
}

type rawHit struct {
	Score   flexInt         `json:"@score"`
	ID      flexInt         `json:"@id"`
	Excerpt json.RawMessage `json:"excerpt"`
	URL     flexText        `json:"url"`
	Info    json.RawMessage `json:"info"`
}

type rawCompletion struct {
	Text flexText `json:"text"`
	SC   flexInt  `json:"@sc"`
	DC   flexInt  `json:"@dc"`
	OC   flexInt  `json:"@oc"`
	ID   flexInt  `json:"@id"`
}

func (res *rawResult) normalize() *Response {
	var t struct {
		Text flexText `json:"text"`
	}
	lenient(res.Time, &t)
	var hits rawHits
	lenient(res.Hits, &hits)
	var comps rawCompletions
	lenient(res.Completions, &comps)

	out := &Response{
		Query: string(res.Query),
		Time:  parseMillis(string(t.Text)),
		Hits: Hits{
			Total: int(hits.Total),
			Sent:  int(hits.Sent),
			First: int(hits.First),
		},
		Completions: Completions{
			Total: int(comps.Total),
			Sent:  int(comps.Sent),
		},
	}

	for _, h := range hits.Hit {
		var info map[string]json.RawMessage
		lenient(h.Info, &info)
		hit := Hit{
			Score:   int(h.Score),
			ID:      int(h.ID),
			Excerpt: textOf(h.Excerpt, " "),
			URL:     string(h.URL),
			Info:    make(map[string]string, len(info)),
		}
		for k, v := range info {
			hit.Info[k] = textOf(v, ", ")
		}
		out.Hits.Items = append(out.Hits.Items, hit)
	}
	if out.Hits.Sent == 0 {
		out.Hits.Sent = len(out.Hits.Items)
	}

	for _, c := range comps.C {
		out.Completions.Items = append(out.Completions.Items, Completion{
			Text:     string(c.Text),
			Score:    int(c.SC),
			DocCount: int(c.DC),
			OccCount: int(c.OC),
			ID:       int(c.ID),
		})
	}
	if out.Completions.Sent == 0 {
		out.Completions.Sent = len(out.Completions.Items)
	}
	return out
}

// parseMillis reads the leading number of a time text like "12.5" or "12ms".
func parseMillis(s string) time.Duration {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '.') {
		end++
	}
	ms, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return time.Duration(ms * float64(time.Millisecond))
}

// flexInt accepts a JSON number or a numeric string. Anything else is 0.
type flexInt int

func (n *flexInt) UnmarshalJSON(data []byte) error {
	*n = 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	s := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		*n = flexInt(f)
	}
	return nil
}

// flexText accepts any scalar and keeps its text.
type flexText string

func (t *flexText) UnmarshalJSON(data []byte) error {
	*t = flexText(textOf(data, " "))
	return nil
}

// oneOrMany accepts either a single object or a list of them. Items of
// another shape are dropped.
type oneOrMany[T any] []T

func (m *oneOrMany[T]) UnmarshalJSON(data []byte) error {
	*m = nil
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] != '[' {
		var item T
		if err := json.Unmarshal(data, &item); err == nil {
			*m = oneOrMany[T]{item}
		}
		return nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil
	}
	for _, r := range raws {
		var item T
		if err := json.Unmarshal(r, &item); err == nil {
			*m = append(*m, item)
		}
	}
	return nil
}

// textOf flattens a JSON value to text. Lists are joined with sep.
func textOf(data json.RawMessage, sep string) string {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return ""
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return ""
		}
		return s
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return ""
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			if s := textOf(item, sep); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, sep)
	default:
		return string(data)
	}
}
