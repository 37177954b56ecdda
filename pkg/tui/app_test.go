package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/completesearch/completesearch-cli/pkg/backend"
	"github.com/completesearch/completesearch-cli/pkg/models"
	"github.com/completesearch/completesearch-cli/pkg/session"
)

type sentRequest struct {
	id      uint64
	params  backend.Params
	handler backend.Handler
}

// fakeSender answers through respond, or holds requests when respond is nil.
type fakeSender struct {
	mu       sync.Mutex
	sent     []sentRequest
	canceled []uint64
	respond  func(backend.Params) (*backend.Response, error)
}

func (f *fakeSender) Send(_ context.Context, p backend.Params, h backend.Handler) uint64 {
	f.mu.Lock()
	id := uint64(len(f.sent) + 1)
	f.sent = append(f.sent, sentRequest{id: id, params: p, handler: h})
	respond := f.respond
	f.mu.Unlock()

	if respond != nil {
		resp, err := respond(p)
		if err != nil {
			h.OnError(err)
		} else {
			h.OnResult(resp)
		}
	}
	return id
}

func (f *fakeSender) Cancel(id uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.canceled = append(f.canceled, id)
	return true
}

func (f *fakeSender) last(target string) (backend.Params, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].params.Target == target {
			return f.sent[i].params, true
		}
	}
	return backend.Params{}, false
}

func (f *fakeSender) request(i int) sentRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[i]
}

type fakeLister struct {
	names []string
	err   error
}

func (f fakeLister) FacetNames(context.Context) ([]string, error) { return f.names, f.err }

// serve answers like a small index: every query matches total documents.
func serve(total int) func(backend.Params) (*backend.Response, error) {
	return func(p backend.Params) (*backend.Response, error) {
		resp := &backend.Response{Query: p.Query}
		if p.Target == session.TargetHits {
			n := min(p.Hits, total-p.FirstHit)
			resp.Hits = backend.Hits{Total: total, Sent: n, First: p.FirstHit}
			for i := 0; i < n; i++ {
				id := p.FirstHit + i + 1
				resp.Hits.Items = append(resp.Hits.Items, backend.Hit{
					ID:      id,
					Excerpt: fmt.Sprintf("excerpt of <hl>document</hl> %d", id),
					URL:     fmt.Sprintf("https://example.org/%d", id),
					Info:    map[string]string{"title": fmt.Sprintf("Title %d", id)},
				})
			}
			resp.Completions = backend.Completions{Total: 1, Sent: 1, Items: []backend.Completion{
				{Text: "algorithm", DocCount: 12},
			}}
			return resp, nil
		}
		resp.Completions = backend.Completions{Total: 2, Sent: 2, Items: []backend.Completion{
			{Text: ":facet:" + p.Target + ":Donald_Knuth", DocCount: 40},
			{Text: ":facet:" + p.Target + ":Edsger_Dijkstra", DocCount: 30},
		}}
		return resp, nil
	}
}

// harness runs commands the way the bubbletea runtime would. Commands that
// do not finish quickly, like ticks or held requests, are parked.
type harness struct {
	t      *testing.T
	app    *App
	parked []chan tea.Msg
}

func (h *harness) run(cmd tea.Cmd) {
	h.t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		done := make(chan tea.Msg, 1)
		go func() { done <- c() }()
		select {
		case msg := <-done:
			queue = append(queue, h.handle(msg)...)
		case <-time.After(50 * time.Millisecond):
			h.parked = append(h.parked, done)
		}
	}
}

func (h *harness) handle(msg tea.Msg) []tea.Cmd {
	switch msg := msg.(type) {
	case tea.BatchMsg:
		return msg
	case resultMsg, requestErrMsg, facetNamesMsg, StatusMsg:
		_, cmd := h.app.Update(msg)
		return []tea.Cmd{cmd}
	}
	return nil
}

// flush delivers parked commands that finished in the meantime.
func (h *harness) flush() {
	h.t.Helper()
	parked := h.parked
	h.parked = nil
	for _, done := range parked {
		select {
		case msg := <-done:
			for _, cmd := range h.handle(msg) {
				h.run(cmd)
			}
		case <-time.After(50 * time.Millisecond):
			h.parked = append(h.parked, done)
		}
	}
}

func (h *harness) send(msg tea.Msg) {
	h.t.Helper()
	_, cmd := h.app.Update(msg)
	h.run(cmd)
}

func (h *harness) typeText(s string) {
	h.t.Helper()
	for _, r := range s {
		h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func testSettings() *models.Settings {
	s := models.DefaultSettings()
	s.Query.DebounceMs = 0
	s.Facets.Names = []string{"author"}
	s.History.Enabled = false
	return s
}

func newHarness(t *testing.T, s *models.Settings, sender *fakeSender, opts ...Option) *harness {
	t.Helper()
	app, err := NewApp(context.Background(), session.New(s), sender, opts...)
	require.NoError(t, err)
	h := &harness{t: t, app: app}
	h.send(tea.WindowSizeMsg{Width: 120, Height: 40})
	h.run(app.Init())
	return h
}

func TestAppStartupShowsCollectionSize(t *testing.T) {
	sender := &fakeSender{respond: serve(2345)}
	h := newHarness(t, testSettings(), sender)

	p, ok := sender.last(session.TargetHits)
	require.True(t, ok)
	assert.Equal(t, "", p.Query)

	view := h.app.View()
	assert.Contains(t, view, "Searching in 2,345 documents")
	assert.Contains(t, view, "Refine by AUTHOR")
	assert.Contains(t, view, "Donald Knuth")
	assert.Contains(t, view, "Title 1")
}

func TestAppTypingLaunchesRounds(t *testing.T) {
	sender := &fakeSender{respond: serve(50)}
	h := newHarness(t, testSettings(), sender)

	h.typeText("alg")

	p, ok := sender.last(session.TargetHits)
	require.True(t, ok)
	assert.Equal(t, "alg*", p.Query)
	assert.Equal(t, 0, p.FirstHit)

	facet, ok := sender.last("author")
	require.True(t, ok)
	assert.Equal(t, "alg* :facet:author:*", facet.Query)
	assert.Equal(t, 0, facet.Hits)

	assert.Equal(t, "alg*", h.app.ctrl.LastQuery())
	assert.Contains(t, h.app.View(), "Zoomed in on 50 documents")
}

func TestAppReusesHighlightAcrossRedraws(t *testing.T) {
	sender := &fakeSender{respond: serve(50)}
	h := newHarness(t, testSettings(), sender)

	h.typeText("title")
	re := h.app.terms.re
	require.NotNil(t, re)

	h.send(tea.WindowSizeMsg{Width: 100, Height: 30})
	h.send(tea.WindowSizeMsg{Width: 120, Height: 40})
	_ = h.app.View()
	assert.Same(t, re, h.app.terms.re)

	h.typeText("s")
	assert.NotSame(t, re, h.app.terms.re)
	assert.True(t, h.app.terms.re.MatchString("TITLES"))
}

func TestAppTypingWithDebounceWaits(t *testing.T) {
	s := testSettings()
	s.Query.DebounceMs = 10000
	sender := &fakeSender{respond: serve(50)}
	h := newHarness(t, s, sender)
	before := len(sender.sent)

	h.typeText("ab")
	assert.Len(t, sender.sent, before, "nothing is sent before the pause")

	// An outdated debounce tick is ignored, the newest one launches.
	h.send(debounceMsg{seq: h.app.debounceSeq - 1})
	assert.Len(t, sender.sent, before)
	h.send(debounceMsg{seq: h.app.debounceSeq})
	p, ok := sender.last(session.TargetHits)
	require.True(t, ok)
	assert.Equal(t, "ab", p.Query)
}

func TestAppIgnoresStaleResponses(t *testing.T) {
	sender := &fakeSender{}
	h := newHarness(t, testSettings(), sender)

	h.typeText("a")
	h.typeText("b")
	// Requests: round 1 (startup), round 2 ("a"), round 3 ("ab"); two each.
	require.Len(t, sender.sent, 6)

	newest := sender.request(4)
	older := sender.request(2)
	require.Equal(t, "ab", newest.params.Query)
	require.Equal(t, "a", older.params.Query)

	respond := serve(10)
	resp, _ := respond(newest.params)
	newest.handler.OnResult(resp)
	h.flush()
	assert.Equal(t, "ab", h.app.ctrl.Hits().Query)

	resp, _ = respond(older.params)
	older.handler.OnResult(resp)
	h.flush()
	assert.Equal(t, "ab", h.app.ctrl.Hits().Query)
}

func TestAppAbortsSupersededRequests(t *testing.T) {
	s := testSettings()
	s.Backend.AbortSuperseded = true
	sender := &fakeSender{}
	h := newHarness(t, s, sender)

	h.typeText("a")
	assert.ElementsMatch(t, []uint64{1, 2}, sender.canceled)
	assert.Len(t, h.app.pending, 2)
}

func TestAppPaging(t *testing.T) {
	sender := &fakeSender{respond: serve(47)}
	h := newHarness(t, testSettings(), sender)

	h.send(tea.KeyMsg{Type: tea.KeyPgDown})
	p, _ := sender.last(session.TargetHits)
	assert.Equal(t, 7, p.FirstHit)
	assert.Contains(t, h.app.View(), "showing: 8 − 14")

	h.send(tea.KeyMsg{Type: tea.KeyPgUp})
	p, _ = sender.last(session.TargetHits)
	assert.Equal(t, 0, p.FirstHit)
}

func TestAppToggleFacet(t *testing.T) {
	sender := &fakeSender{respond: serve(47)}
	h := newHarness(t, testSettings(), sender)
	h.typeText("alg")

	// search -> hits -> word box -> author box
	for range 3 {
		h.send(tea.KeyMsg{Type: tea.KeyTab})
	}
	box, ok := h.app.focusedBox()
	require.True(t, ok)
	require.Equal(t, "author", box.Name)

	h.send(tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, h.app.ctrl.Selection().Has(":facet:author:Donald_Knuth"))
	p, _ := sender.last(session.TargetHits)
	assert.Equal(t, `":facet:author:Donald_Knuth" alg*`, p.Query)
	assert.Equal(t, "alg", h.app.search.Value())
	assert.Contains(t, h.app.View(), "[x] Donald Knuth")

	h.send(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, h.app.ctrl.Selection().Has(":facet:author:Donald_Knuth"))
	p, _ = sender.last(session.TargetHits)
	assert.Equal(t, "alg*", p.Query)
}

func TestAppClearFacets(t *testing.T) {
	sender := &fakeSender{respond: serve(47)}
	h := newHarness(t, testSettings(), sender)
	h.app.ctrl.Selection().Add(":facet:author:Donald_Knuth")

	h.send(tea.KeyMsg{Type: tea.KeyCtrlX})
	assert.Zero(t, h.app.ctrl.Selection().Len())
	p, _ := sender.last(session.TargetHits)
	assert.Equal(t, "", p.Query)
}

func TestAppLoadsMoreHitsAtLastRow(t *testing.T) {
	sender := &fakeSender{respond: serve(47)}
	h := newHarness(t, testSettings(), sender)
	h.send(tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, focusHits, h.app.focus)
	before := len(sender.sent)

	for range 6 {
		h.send(tea.KeyMsg{Type: tea.KeyDown})
	}
	require.Len(t, sender.sent, before+1)
	p, _ := sender.last(session.TargetHits)
	assert.Equal(t, 14, p.Hits)
	assert.Len(t, h.app.ctrl.Hits().Hits, 14)
	assert.Equal(t, 6, h.app.hitCursor, "loading more keeps the cursor")
}

func TestAppExcerptRadius(t *testing.T) {
	sender := &fakeSender{respond: serve(47)}
	h := newHarness(t, testSettings(), sender)

	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'m'}, Alt: true})
	p, _ := sender.last(session.TargetHits)
	assert.Equal(t, 40, p.ExcerptRadius)
	assert.Equal(t, "", h.app.search.Value(), "alt+m is not typed")

	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'l'}, Alt: true})
	p, _ = sender.last(session.TargetHits)
	assert.Equal(t, 20, p.ExcerptRadius)
}

func TestAppShowsErrors(t *testing.T) {
	sender := &fakeSender{respond: func(p backend.Params) (*backend.Response, error) {
		if p.Target == "author" {
			return nil, backend.ErrCanceled
		}
		return nil, errors.New("connection refused")
	}}
	h := newHarness(t, testSettings(), sender)

	assert.Equal(t, []string{"hits: connection refused"}, h.app.ctrl.Errors())
	assert.Contains(t, h.app.View(), "hits: connection refused")
	assert.Empty(t, h.app.pending)

	h.send(tea.KeyMsg{Type: tea.KeyCtrlE})
	assert.Empty(t, h.app.ctrl.Errors())
}

func TestAppCopyURL(t *testing.T) {
	var copied string
	sender := &fakeSender{respond: serve(47)}
	h := newHarness(t, testSettings(), sender, WithClipboard(func(s string) error {
		copied = s
		return nil
	}))
	h.send(tea.KeyMsg{Type: tea.KeyTab})
	h.send(tea.KeyMsg{Type: tea.KeyDown})

	h.send(tea.KeyMsg{Type: tea.KeyCtrlY})
	assert.Equal(t, "https://example.org/2", copied)
	assert.Equal(t, "https://example.org/2 → clipboard", h.app.statusMsg)

	h.send(clearStatusMsg{seq: h.app.statusSeq})
	assert.Empty(t, h.app.statusMsg)
}

func TestAppHistoryNavigation(t *testing.T) {
	sender := &fakeSender{respond: serve(47)}
	h := newHarness(t, testSettings(), sender)
	h.typeText("ab")

	h.send(tea.KeyMsg{Type: tea.KeyLeft, Alt: true})
	assert.Equal(t, "a", h.app.search.Value())
	p, _ := sender.last(session.TargetHits)
	assert.Equal(t, "a", p.Query)

	h.send(tea.KeyMsg{Type: tea.KeyRight, Alt: true})
	assert.Equal(t, "ab", h.app.search.Value())

	h.send(tea.KeyMsg{Type: tea.KeyRight, Alt: true})
	assert.Equal(t, "No later query", h.app.statusMsg)
}

func TestAppDiscoversFacets(t *testing.T) {
	s := testSettings()
	s.Facets.Names = nil
	sender := &fakeSender{respond: serve(47)}
	h := newHarness(t, s, sender, WithFacetLister(fakeLister{names: []string{"author", "venue"}}))

	assert.Equal(t, []string{"author", "venue"}, h.app.ctrl.FacetNames())
	_, ok := sender.last("venue")
	assert.True(t, ok)
	assert.Contains(t, h.app.View(), "Refine by VENUE")
}

func TestAppFacetDiscoveryError(t *testing.T) {
	s := testSettings()
	s.Facets.Names = nil
	sender := &fakeSender{respond: serve(47)}
	h := newHarness(t, s, sender, WithFacetLister(fakeLister{err: errors.New("no facets")}))

	require.Len(t, h.app.ctrl.Errors(), 1)
	assert.True(t, strings.HasPrefix(h.app.ctrl.Errors()[0], "facets: "))
}

func TestAppQuit(t *testing.T) {
	sender := &fakeSender{respond: serve(1)}
	h := newHarness(t, testSettings(), sender)
	_, cmd := h.app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestNewAppRejectsBadTemplate(t *testing.T) {
	s := testSettings()
	s.Results.HitTemplate = "{{.Nope"
	_, err := NewApp(context.Background(), session.New(s), &fakeSender{})
	assert.Error(t, err)
}
