// Package session owns the state of one search session: the selected facets,
// the paging offset, the hit box and the facet boxes. It decides which
// backend requests a user action needs and which responses are fresh enough
// to be shown.
package session

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/completesearch/completesearch-cli/pkg/backend"
	"github.com/completesearch/completesearch-cli/pkg/models"
	"github.com/completesearch/completesearch-cli/pkg/query"
)

const (
	// MaxErrors is how many error lines are kept.
	MaxErrors = 5

	minExcerptRadius = 2
	maxExcerptRadius = 1024
)

// Observer is told about dropped responses and suppressed queries.
type Observer interface {
	StaleResponse(box string)
	SuppressedQuery()
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver reports stale responses and suppressed queries to o.
func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observer = o }
}

// Controller is the single owner of session state. It is not safe for
// concurrent use; callers serialize access through their event loop.
type Controller struct {
	settings *models.Settings
	builder  *query.Builder
	logger   *zap.Logger
	observer Observer

	numQueries uint64
	numRounds  uint64
	firstHit   int
	radius     int
	lastInput  string
	lastQuery  string

	selection *Selection
	hits      *HitBox
	boxes     map[string]*FacetBox
	facets    []string
	errs      []string
}

// New creates a controller. The word box always exists; facet boxes are
// created for settings.Facets.Names and later by SetFacetNames.
func New(settings *models.Settings, opts ...Option) *Controller {
	c := &Controller{
		settings:  settings,
		builder:   query.NewBuilder(settings.Query),
		logger:    zap.NewNop(),
		radius:    settings.Results.ExcerptRadius,
		selection: NewSelection(),
		hits:      &HitBox{},
		boxes:     map[string]*FacetBox{models.Word: NewFacetBox(models.Word)},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.SetFacetNames(settings.Facets.Names)
	return c
}

// Start returns the round for the empty query if it should be launched on
// startup.
func (c *Controller) Start() (Round, []Request) {
	if !c.settings.Query.LaunchEmptyQuery {
		return Round{}, nil
	}
	return c.Submit("", query.KeyNone)
}

// Submit builds the query for input and fans it out to the hit box, the word
// box and every facet box. Nothing changes when the last word is too short.
func (c *Controller) Submit(input string, key query.Key) (Round, []Request) {
	q := c.builder.Build(input, c.selection.Items())
	round := Round{Input: input, Query: q, Key: key}
	if !c.builder.ShouldLaunch(q) {
		c.logger.Debug("query not launched, last word too short",
			zap.String("query", q),
			zap.Int("min_prefix_length", c.settings.Query.MinPrefixLengthToLaunchQuery))
		if c.observer != nil {
			c.observer.SuppressedQuery()
		}
		return round, nil
	}

	switch {
	case key.IsPaging():
		c.firstHit = query.Page(c.firstHit, c.hits.Total, c.settings.Results.HitsPerPage, key)
	case key == query.KeyOther:
		c.firstHit = 0
	}

	c.numQueries++
	if !key.IsPaging() || c.numRounds == 0 {
		c.numRounds++
	}
	c.lastInput = input
	c.lastQuery = q

	round.QueryID = c.numQueries
	round.RoundID = c.numRounds
	round.Launched = true

	c.logger.Debug("launching query",
		zap.Uint64("query_id", round.QueryID),
		zap.Uint64("round_id", round.RoundID),
		zap.String("query", q),
		zap.Stringer("key", key),
		zap.Int("first_hit", c.firstHit))

	return round, c.fanOut(round)
}

func (c *Controller) fanOut(round Round) []Request {
	completions := c.settings.Facets.CompletionsPerBox
	if query.EndsWithSpecialWord(round.Query) {
		completions = 0
	}

	reqs := make([]Request, 0, len(c.facets)+1)
	reqs = append(reqs, Request{
		QueryID: round.QueryID,
		RoundID: round.RoundID,
		Hits:    true,
		Box:     models.Word,
		Params: backend.Params{
			Target:            TargetHits,
			Query:             round.Query,
			Hits:              c.settings.Results.HitsPerPage,
			Completions:       completions,
			FirstHit:          c.firstHit,
			HitRanking:        c.settings.Results.HowToRankHits,
			CompletionRanking: c.settings.CompletionRanking(models.Word),
			ExcerptRadius:     c.radius,
		},
	})
	for _, name := range c.facets {
		reqs = append(reqs, Request{
			QueryID: round.QueryID,
			RoundID: round.RoundID,
			Box:     name,
			Params: backend.Params{
				Target:            name,
				Query:             query.FacetQuery(round.Query, strings.ToLower(name)),
				Completions:       c.settings.Facets.CompletionsPerBox,
				CompletionRanking: c.settings.CompletionRanking(name),
			},
		})
	}
	return reqs
}

// Resubmit replays the last launched input without touching the offset.
func (c *Controller) Resubmit() (Round, []Request) {
	return c.Submit(c.lastInput, query.KeyNone)
}

// ToggleFacet selects or unselects the facet word text and starts a new
// round from the first hit. It returns the possibly pruned input.
func (c *Controller) ToggleFacet(text, input string) (string, Round, []Request) {
	if c.selection.Toggle(text) && c.settings.Query.PruneQueryWordsOnFacetSelect {
		input = pruneWords(input, text)
	}
	c.logger.Debug("facet selection changed",
		zap.String("facet", text),
		zap.Strings("selected", c.selection.Items()))
	c.firstHit = 0
	round, reqs := c.Submit(input, query.KeyNone)
	return input, round, reqs
}

// ClearFacets unselects all facets and starts a new round.
func (c *Controller) ClearFacets(input string) (Round, []Request) {
	c.selection.Clear()
	c.firstHit = 0
	return c.Submit(input, query.KeyNone)
}

// pruneWords drops the input words contained in the label of facet word text.
func pruneWords(input, text string) string {
	if !strings.HasPrefix(text, ":facet:") {
		return input
	}
	label := strings.ToLower(text[strings.LastIndex(text, ":")+1:])
	var kept []string
	for _, w := range strings.Fields(input) {
		if !strings.Contains(label, strings.ToLower(strings.TrimRight(w, "*"))) {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// MoreHits asks for twice as many hits as the hit box holds, under the ids
// of the shown hits. It returns nil if all hits are loaded.
func (c *Controller) MoreHits() []Request {
	b := c.hits
	if !b.HasMore() {
		return nil
	}
	n := c.grow(len(b.Hits), b.Total-b.First)
	if n <= len(b.Hits) {
		return nil
	}
	return []Request{{
		QueryID: b.QueryID,
		RoundID: b.RoundID,
		Hits:    true,
		Params: backend.Params{
			Target:        TargetHits,
			Query:         b.Request,
			Hits:          n,
			FirstHit:      b.First,
			HitRanking:    c.settings.Results.HowToRankHits,
			ExcerptRadius: c.radius,
		},
	}}
}

// MoreCompletions asks for twice as many completions as the named box
// holds, under the ids of the shown completions.
func (c *Controller) MoreCompletions(name string) []Request {
	b, ok := c.boxes[name]
	if !ok || !b.HasMore() {
		return nil
	}
	n := c.grow(len(b.Items), b.Total)
	if n <= len(b.Items) {
		return nil
	}
	return []Request{{
		QueryID: b.QueryID,
		RoundID: b.RoundID,
		Box:     name,
		Params: backend.Params{
			Target:            name,
			Query:             b.Request,
			Completions:       n,
			CompletionRanking: c.settings.CompletionRanking(name),
		},
	}}
}

func (c *Controller) grow(loaded, total int) int {
	n := min(2*loaded, total)
	if limit := c.settings.Backend.MaxResults; limit > 0 && n > limit {
		c.logger.Debug("requested more results than the server returns",
			zap.Int("requested", n), zap.Int("max_results", limit))
		n = limit
	}
	return n
}

// AdjustExcerptRadius doubles (grow) or halves the excerpt radius within
// [2, 1024] and replays the last input.
func (c *Controller) AdjustExcerptRadius(grow bool) (Round, []Request) {
	if grow {
		c.radius *= 2
	} else {
		c.radius /= 2
	}
	c.radius = min(maxExcerptRadius, max(minExcerptRadius, c.radius))
	return c.Resubmit()
}

// ExcerptRadius returns the current excerpt radius.
func (c *Controller) ExcerptRadius() int { return c.radius }

// Apply routes resp to the boxes named by req.
func (c *Controller) Apply(req Request, resp *backend.Response) Applied {
	var a Applied
	if req.Hits {
		a.Hits = c.ApplyHits(req, resp)
	}
	if req.Box != "" {
		a.Box = c.ApplyCompletions(req.Box, req, resp)
	}
	return a
}

// ApplyHits shows the hits of resp unless the hit box shows a newer query.
func (c *Controller) ApplyHits(req Request, resp *backend.Response) bool {
	if !c.hits.Apply(req.QueryID, req.RoundID, req.Params.Query, resp) {
		c.stale(TargetHits, req.QueryID, c.hits.QueryID)
		return false
	}
	return true
}

// ApplyCompletions shows the completions of resp in the named box unless it
// shows a newer query.
func (c *Controller) ApplyCompletions(name string, req Request, resp *backend.Response) bool {
	b, ok := c.boxes[name]
	if !ok {
		c.logger.Debug("completions for unknown box", zap.String("box", name))
		return false
	}
	if !b.Apply(req.QueryID, req.RoundID, req.Params.Query, resp) {
		c.stale(name, req.QueryID, b.QueryID)
		return false
	}
	return true
}

func (c *Controller) stale(box string, got, shown uint64) {
	c.logger.Debug("discarding stale response",
		zap.String("box", box),
		zap.Uint64("query_id", got),
		zap.Uint64("shown_query_id", shown))
	if c.observer != nil {
		c.observer.StaleResponse(box)
	}
}

// Fail records a failed request. Box contents are left as they are.
func (c *Controller) Fail(req Request, err error) {
	c.logger.Warn("backend request failed",
		zap.String("target", req.Params.Target),
		zap.Uint64("query_id", req.QueryID),
		zap.Error(err))
	c.errs = append(c.errs, fmt.Sprintf("%s: %v", req.Params.Target, err))
	if len(c.errs) > MaxErrors {
		c.errs = c.errs[len(c.errs)-MaxErrors:]
	}
}

// Errors returns the most recent error lines, oldest first.
func (c *Controller) Errors() []string {
	return append([]string(nil), c.errs...)
}

// ClearErrors empties the error lines.
func (c *Controller) ClearErrors() { c.errs = nil }

// SetFacetNames adds a box for every new name. Existing boxes are kept and
// the word box is never duplicated.
func (c *Controller) SetFacetNames(names []string) {
	for _, name := range names {
		if name == "" || strings.EqualFold(name, models.Word) {
			continue
		}
		if _, ok := c.boxes[name]; ok {
			continue
		}
		c.boxes[name] = NewFacetBox(name)
		c.facets = append(c.facets, name)
	}
}

// FacetNames returns the facet dimensions, without the word box.
func (c *Controller) FacetNames() []string {
	return append([]string(nil), c.facets...)
}

// Hits returns the hit box.
func (c *Controller) Hits() *HitBox { return c.hits }

// Box returns the named facet box.
func (c *Controller) Box(name string) (*FacetBox, bool) {
	b, ok := c.boxes[name]
	return b, ok
}

// Boxes returns the word box followed by the facet boxes.
func (c *Controller) Boxes() []*FacetBox {
	out := make([]*FacetBox, 0, len(c.facets)+1)
	out = append(out, c.boxes[models.Word])
	for _, name := range c.facets {
		out = append(out, c.boxes[name])
	}
	return out
}

// Selection returns the selected facet words.
func (c *Controller) Selection() *Selection { return c.selection }

// FirstHit returns the current paging offset.
func (c *Controller) FirstHit() int { return c.firstHit }

// LastQuery returns the last launched query string.
func (c *Controller) LastQuery() string { return c.lastQuery }

// Settings returns the settings the controller was built with.
func (c *Controller) Settings() *models.Settings { return c.settings }

// State captures the last launched input, the selection and the offset.
func (c *Controller) State() State {
	return State{
		Input:    c.lastInput,
		Facets:   c.selection.Items(),
		FirstHit: c.firstHit,
	}
}

// Restore replaces input, selection and offset with s and launches a round.
func (c *Controller) Restore(s State) (Round, []Request) {
	c.selection = NewSelection(s.Facets...)
	c.firstHit = max(0, s.FirstHit)
	return c.Submit(s.Input, query.KeyNone)
}
