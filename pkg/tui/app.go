package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"go.uber.org/zap"

	"github.com/completesearch/completesearch-cli/pkg/backend"
	"github.com/completesearch/completesearch-cli/pkg/history"
	"github.com/completesearch/completesearch-cli/pkg/models"
	"github.com/completesearch/completesearch-cli/pkg/query"
	"github.com/completesearch/completesearch-cli/pkg/session"
)

const statusDuration = 3 * time.Second

type focusArea int

const (
	focusSearch focusArea = iota
	focusHits
	focusFacets
)

// Sender runs backend requests asynchronously. *backend.Pool implements it.
type Sender interface {
	Send(ctx context.Context, p backend.Params, h backend.Handler) uint64
	Cancel(id uint64) bool
}

// FacetLister discovers the facet dimensions of the index.
type FacetLister interface {
	FacetNames(ctx context.Context) ([]string, error)
}

// Option configures the App.
type Option func(*App)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithFormatter replaces the template based hit formatter.
func WithFormatter(f HitFormatter) Option {
	return func(a *App) {
		if f != nil {
			a.formatter = f
		}
	}
}

// WithFacetLister discovers facet names when none are configured.
func WithFacetLister(l FacetLister) Option {
	return func(a *App) { a.lister = l }
}

// WithHistory persists launched queries in store and preloads its entries
// for back and forward navigation.
func WithHistory(store *history.Store) Option {
	return func(a *App) { a.store = store }
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) Option {
	return func(a *App) { a.copy = write }
}

type pendingRequest struct {
	poolID  uint64
	queryID uint64
}

// App is the bubbletea model of a search session
type App struct {
	ctx       context.Context
	settings  *models.Settings
	ctrl      *session.Controller
	sender    Sender
	lister    FacetLister
	formatter HitFormatter
	logger    *zap.Logger
	store     *history.Store
	nav       *history.Navigator
	copy      func(string) error

	keys     keyMap
	styles   Styles
	search   *SearchBar
	hitsView viewport.Model

	focus      focusArea
	boxIndex   int
	hitCursor  int
	boxCursor  map[string]int
	boxOffset  map[string]int
	hitsShown  uint64
	boxesShown map[string]uint64
	terms      termsCache

	width       int
	height      int
	statusMsg   string
	statusSeq   int
	debounceSeq int
	launched    bool
	restoring   bool
	nextToken   int
	pending     map[int]pendingRequest
}

// NewApp creates the model for ctrl. Requests go through sender and are
// canceled when ctx ends.
func NewApp(ctx context.Context, ctrl *session.Controller, sender Sender, opts ...Option) (*App, error) {
	settings := ctrl.Settings()
	formatter, err := NewTemplateFormatter(settings.Results.HitTemplate)
	if err != nil {
		return nil, err
	}

	a := &App{
		ctx:        ctx,
		settings:   settings,
		ctrl:       ctrl,
		sender:     sender,
		formatter:  formatter,
		logger:     zap.NewNop(),
		copy:       clipboard.WriteAll,
		keys:       newKeyMap(),
		styles:     NewStyles(settings.UI),
		search:     NewSearchBar(),
		hitsView:   viewport.New(80, 20),
		boxCursor:  make(map[string]int),
		boxOffset:  make(map[string]int),
		boxesShown: make(map[string]uint64),
		pending:    make(map[int]pendingRequest),
	}
	for _, opt := range opts {
		opt(a)
	}

	var entries []history.Entry
	if a.store != nil {
		entries, err = a.store.List(settings.History.MaxEntries)
		if err != nil {
			a.logger.Warn("failed to load history", zap.Error(err))
		}
	}
	a.nav = history.NewNavigator(entries)
	a.search.SetActive(true)
	return a, nil
}

func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if a.lister != nil && len(a.ctrl.FacetNames()) == 0 {
		cmds = append(cmds, a.discoverFacets())
	}
	cmds = append(cmds, a.launch(a.ctrl.Start()))
	return tea.Batch(cmds...)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := a.update(msg)
	a.refreshHits()
	return a, cmd
}

func (a *App) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.search.SetWidth(msg.Width)
		a.layout()
		return nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case resultMsg:
		delete(a.pending, msg.token)
		applied := a.ctrl.Apply(msg.req, msg.resp)
		if applied.Hits {
			a.onHitsApplied()
		}
		if applied.Box {
			a.onBoxApplied(msg.req.Box)
		}
		return nil

	case requestErrMsg:
		delete(a.pending, msg.token)
		if errors.Is(msg.err, backend.ErrCanceled) {
			a.logger.Debug("request canceled",
				zap.String("target", msg.req.Params.Target),
				zap.Uint64("query_id", msg.req.QueryID))
			return nil
		}
		a.ctrl.Fail(msg.req, msg.err)
		a.layout()
		return nil

	case facetNamesMsg:
		if msg.err != nil {
			a.ctrl.Fail(session.Request{Params: backend.Params{Target: "facets"}}, msg.err)
			a.layout()
			return nil
		}
		a.logger.Info("facet names discovered", zap.Strings("facets", msg.names))
		a.ctrl.SetFacetNames(msg.names)
		if a.launched {
			return a.launch(a.ctrl.Resubmit())
		}
		return nil

	case debounceMsg:
		if msg.seq != a.debounceSeq {
			return nil
		}
		return a.submit(query.KeyOther)

	case StatusMsg:
		a.statusMsg = string(msg)
		a.statusSeq++
		seq := a.statusSeq
		return tea.Tick(statusDuration, func(time.Time) tea.Msg {
			return clearStatusMsg{seq: seq}
		})

	case clearStatusMsg:
		if msg.seq == a.statusSeq {
			a.statusMsg = ""
		}
		return nil
	}

	var cmd tea.Cmd
	a.search, cmd = a.search.Update(msg)
	return cmd
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, a.keys.Quit):
		return tea.Quit
	case key.Matches(msg, a.keys.NextPane):
		a.cycleFocus(1)
		return nil
	case key.Matches(msg, a.keys.PrevPane):
		a.cycleFocus(-1)
		return nil
	case key.Matches(msg, a.keys.PageDown):
		return a.submit(query.KeyPageDown)
	case key.Matches(msg, a.keys.PageUp):
		return a.submit(query.KeyPageUp)
	case key.Matches(msg, a.keys.ClearFacets):
		a.debounceSeq++
		return a.launch(a.ctrl.ClearFacets(a.search.Value()))
	case key.Matches(msg, a.keys.MoreText):
		a.debounceSeq++
		return a.launch(a.ctrl.AdjustExcerptRadius(true))
	case key.Matches(msg, a.keys.LessText):
		a.debounceSeq++
		return a.launch(a.ctrl.AdjustExcerptRadius(false))
	case key.Matches(msg, a.keys.CopyURL):
		return a.copyURL()
	case key.Matches(msg, a.keys.HistoryBack):
		if e, ok := a.nav.Back(); ok {
			return a.restore(e)
		}
		return statusCmd("No earlier query")
	case key.Matches(msg, a.keys.HistoryFwd):
		if e, ok := a.nav.Forward(); ok {
			return a.restore(e)
		}
		return statusCmd("No later query")
	case key.Matches(msg, a.keys.ClearErrors):
		a.ctrl.ClearErrors()
		a.layout()
		return nil
	}

	switch a.focus {
	case focusHits:
		return a.handleHitsKey(msg)
	case focusFacets:
		return a.handleFacetKey(msg)
	}
	return a.handleSearchKey(msg)
}

func (a *App) handleSearchKey(msg tea.KeyMsg) tea.Cmd {
	before := a.search.Value()
	var cmd tea.Cmd
	a.search, cmd = a.search.Update(msg)
	if a.search.Value() == before {
		return cmd
	}

	a.debounceSeq++
	if a.settings.Query.DebounceMs <= 0 {
		return tea.Batch(cmd, a.submit(query.KeyOther))
	}
	seq := a.debounceSeq
	wait := time.Duration(a.settings.Query.DebounceMs) * time.Millisecond
	return tea.Batch(cmd, tea.Tick(wait, func(time.Time) tea.Msg {
		return debounceMsg{seq: seq}
	}))
}

func (a *App) handleHitsKey(msg tea.KeyMsg) tea.Cmd {
	n := len(a.ctrl.Hits().Hits)
	switch {
	case key.Matches(msg, a.keys.Up):
		a.hitCursor = max(a.hitCursor-1, 0)
	case key.Matches(msg, a.keys.Down):
		if n == 0 {
			return nil
		}
		a.hitCursor = min(a.hitCursor+1, n-1)
		if a.hitCursor == n-1 {
			return a.dispatch(a.ctrl.MoreHits())
		}
	}
	return nil
}

func (a *App) handleFacetKey(msg tea.KeyMsg) tea.Cmd {
	box, ok := a.focusedBox()
	if !ok {
		return nil
	}
	switch {
	case key.Matches(msg, a.keys.Up):
		a.moveBoxCursor(box, -1)
	case key.Matches(msg, a.keys.Down):
		if a.moveBoxCursor(box, 1) {
			return a.dispatch(a.ctrl.MoreCompletions(box.Name))
		}
	case key.Matches(msg, a.keys.Toggle):
		i := a.boxCursor[box.Name]
		if i < 0 || i >= len(box.Items) {
			return nil
		}
		a.debounceSeq++
		input, round, reqs := a.ctrl.ToggleFacet(box.Items[i].Text, a.search.Value())
		a.search.SetValue(input)
		return a.launch(round, reqs)
	}
	return nil
}

func (a *App) cycleFocus(delta int) {
	// Panes in order: search, hits, then every facet box.
	panes := 2 + len(a.ctrl.Boxes())
	cur := int(a.focus)
	if a.focus == focusFacets {
		cur = 2 + a.boxIndex
	}
	next := ((cur+delta)%panes + panes) % panes
	switch {
	case next == 0:
		a.focus = focusSearch
	case next == 1:
		a.focus = focusHits
	default:
		a.focus = focusFacets
		a.boxIndex = next - 2
	}
	a.search.SetActive(a.focus == focusSearch)
}

// submit launches a round for the current input.
func (a *App) submit(k query.Key) tea.Cmd {
	a.debounceSeq++
	return a.launch(a.ctrl.Submit(a.search.Value(), k))
}

// launch sends the requests of a round and records it in the history.
func (a *App) launch(round session.Round, reqs []session.Request) tea.Cmd {
	if !round.Launched {
		return nil
	}
	a.launched = true
	if a.settings.Backend.AbortSuperseded {
		a.abortOlderThan(round.QueryID)
	}
	if !a.restoring {
		a.record()
	}
	return a.dispatch(reqs)
}

func (a *App) abortOlderThan(queryID uint64) {
	for token, p := range a.pending {
		if p.queryID < queryID {
			a.sender.Cancel(p.poolID)
			delete(a.pending, token)
		}
	}
}

func (a *App) dispatch(reqs []session.Request) tea.Cmd {
	if len(reqs) == 0 {
		return nil
	}
	cmds := make([]tea.Cmd, 0, len(reqs))
	for _, req := range reqs {
		cmds = append(cmds, a.fetch(req))
	}
	return tea.Batch(cmds...)
}

// fetch starts req right away and returns a command waiting for its outcome.
func (a *App) fetch(req session.Request) tea.Cmd {
	a.nextToken++
	token := a.nextToken
	ch := make(chan tea.Msg, 1)
	id := a.sender.Send(a.ctx, req.Params, backend.Handler{
		OnResult: func(resp *backend.Response) {
			ch <- resultMsg{token: token, req: req, resp: resp}
		},
		OnError: func(err error) {
			ch <- requestErrMsg{token: token, req: req, err: err}
		},
		OnTimeout: func() {
			ch <- requestErrMsg{token: token, req: req, err: backend.ErrTimeout}
		},
	})
	a.pending[token] = pendingRequest{poolID: id, queryID: req.QueryID}
	return func() tea.Msg { return <-ch }
}

func (a *App) discoverFacets() tea.Cmd {
	ctx, lister := a.ctx, a.lister
	return func() tea.Msg {
		names, err := lister.FacetNames(ctx)
		return facetNamesMsg{names: names, err: err}
	}
}

func (a *App) record() {
	st := a.ctrl.State()
	e := history.Entry{Input: st.Input, Facets: st.Facets, FirstHit: st.FirstHit, Time: time.Now()}
	a.nav.Push(e)
	if a.store == nil || !a.settings.History.Enabled {
		return
	}
	if _, err := a.store.Append(e); err != nil {
		a.logger.Warn("failed to save history entry", zap.Error(err))
	}
}

func (a *App) restore(e history.Entry) tea.Cmd {
	a.debounceSeq++
	a.search.SetValue(e.Input)
	a.restoring = true
	defer func() { a.restoring = false }()
	return a.launch(a.ctrl.Restore(session.State{Input: e.Input, Facets: e.Facets, FirstHit: e.FirstHit}))
}

func (a *App) copyURL() tea.Cmd {
	hit, ok := a.selectedHit()
	if !ok || hit.URL == "" {
		return statusCmd("× No URL for this hit")
	}
	if err := a.copy(hit.URL); err != nil {
		return statusCmd(fmt.Sprintf("× Failed to copy: %v", err))
	}
	return statusCmd(hit.URL + " → clipboard")
}

func statusCmd(s string) tea.Cmd {
	return func() tea.Msg { return StatusMsg(s) }
}

func (a *App) onHitsApplied() {
	box := a.ctrl.Hits()
	a.search.SetSubtitle(box.Subtitle())
	if box.QueryID != a.hitsShown {
		a.hitsShown = box.QueryID
		a.hitCursor = 0
		a.hitsView.GotoTop()
	}
	a.hitCursor = min(a.hitCursor, max(len(box.Hits)-1, 0))
}

func (a *App) onBoxApplied(name string) {
	box, ok := a.ctrl.Box(name)
	if !ok {
		return
	}
	if box.QueryID != a.boxesShown[name] {
		a.boxesShown[name] = box.QueryID
		a.boxCursor[name] = 0
		a.boxOffset[name] = 0
	}
	a.boxCursor[name] = min(a.boxCursor[name], max(len(box.Items)-1, 0))
}

// layout sizes the hit pane to the window.
func (a *App) layout() {
	if a.width == 0 {
		return
	}
	a.hitsView.Width = max(a.width-facetColumnWidth-4, 20)
	// Search bar with subtitle (4), borders (2), help (1), status (1).
	reserved := headerHeight + 8 + len(a.ctrl.Errors())
	a.hitsView.Height = max(a.height-reserved, 3)
}

// refreshHits re-renders the hit pane and keeps the cursor in view.
func (a *App) refreshHits() {
	content, starts := a.hitsContent(a.hitsView.Width)
	a.hitsView.SetContent(content)
	if a.hitCursor >= len(starts) {
		return
	}
	start := starts[a.hitCursor]
	if start < a.hitsView.YOffset {
		a.hitsView.SetYOffset(start)
	} else if start >= a.hitsView.YOffset+a.hitsView.Height-1 {
		a.hitsView.SetYOffset(start - a.hitsView.Height/2)
	}
}

func (a *App) View() string {
	if a.width == 0 || a.height == 0 {
		return "Loading..."
	}

	header := renderHeader(a.width, truncate.StringWithTail(a.ctrl.LastQuery(), uint(max(a.width/2, 1)), "…"))

	hitsBorder := InactiveBorderStyle
	if a.focus == focusHits {
		hitsBorder = ActiveBorderStyle
	}
	hits := hitsBorder.Width(a.hitsView.Width).Render(a.hitsView.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, a.facetsView(), hits)

	parts := []string{header, a.search.View(), body}
	if errs := a.ctrl.Errors(); len(errs) > 0 {
		lines := make([]string, len(errs))
		for i, e := range errs {
			lines[i] = ErrorStyle.Render("× " + e)
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}
	if a.statusMsg != "" {
		parts = append(parts, StatusStyle.Render(a.statusMsg))
	}
	parts = append(parts, a.helpView())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (a *App) helpView() string {
	var items []string
	for _, b := range a.keys.help() {
		h := b.Help()
		items = append(items, h.Key+" "+h.Desc)
	}
	return HelpStyle.Render(" " + strings.Join(items, " • "))
}
