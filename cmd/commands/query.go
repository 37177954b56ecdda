package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/completesearch/completesearch-cli/internal/cli"
	"github.com/completesearch/completesearch-cli/internal/logger"
	"github.com/completesearch/completesearch-cli/pkg/backend"
	"github.com/completesearch/completesearch-cli/pkg/models"
	"github.com/completesearch/completesearch-cli/pkg/session"
	"github.com/completesearch/completesearch-cli/pkg/tui"
)

// QueryResult is the output of the query command
type QueryResult struct {
	Query    string        `json:"query" yaml:"query"`
	Subtitle string        `json:"subtitle" yaml:"subtitle"`
	Total    int           `json:"total" yaml:"total"`
	First    int           `json:"first" yaml:"first"`
	TimeMs   float64       `json:"time_ms" yaml:"time_ms"`
	Hits     []QueryHit    `json:"hits" yaml:"hits"`
	Facets   []FacetResult `json:"facets" yaml:"facets"`
	Errors   []string      `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// QueryHit is one hit of the hit box
type QueryHit struct {
	ID      int               `json:"id" yaml:"id"`
	Score   int               `json:"score" yaml:"score"`
	Excerpt string            `json:"excerpt" yaml:"excerpt"`
	URL     string            `json:"url,omitempty" yaml:"url,omitempty"`
	Info    map[string]string `json:"info,omitempty" yaml:"info,omitempty"`
}

// FacetResult is the content of one facet box
type FacetResult struct {
	Name  string      `json:"name" yaml:"name"`
	Total int         `json:"total" yaml:"total"`
	Items []FacetItem `json:"items" yaml:"items"`
}

// FacetItem is one completion of a facet box
type FacetItem struct {
	Text     string `json:"text" yaml:"text"`
	Label    string `json:"label" yaml:"label"`
	Score    int    `json:"score" yaml:"score"`
	Selected bool   `json:"selected,omitempty" yaml:"selected,omitempty"`
}

var (
	queryFacets []string
	queryPage   int
)

// NewQueryCommand creates the query command
func NewQueryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query [text...]",
		Short: "Run one search round and print the hits and facet boxes",
		Long: `Run one search round against the completion server: the hit box, the
word box and every facet box are queried at once and printed.

Examples:
  # Search with prefix completion
  csearch query inform retr

  # Restrict to a facet
  csearch query algorithm --facet author:Donald_Knuth

  # Third page as JSON
  csearch query graph --page 3 -o json`,
		RunE: runQuery,
	}

	cmd.Flags().StringArrayVarP(&queryFacets, "facet", "f", nil, "Select a facet (name:value, repeatable)")
	cmd.Flags().IntVarP(&queryPage, "page", "p", 1, "Page of hits to show")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	if err := cli.ValidatePage(queryPage); err != nil {
		return err
	}

	facets := make([]string, 0, len(queryFacets))
	for _, f := range queryFacets {
		token, err := cli.NormalizeFacetToken(f)
		if err != nil {
			return err
		}
		facets = append(facets, token)
	}

	cc, err := commandContext(cmd)
	if err != nil {
		return err
	}
	defer cc.Logger.Sync() //nolint:errcheck

	client, err := cc.NewClient()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	log := logger.FromContext(ctx)
	ctrl := session.New(cc.Settings, session.WithLogger(log))
	if len(ctrl.FacetNames()) == 0 {
		names, err := client.FacetNames(ctx)
		if err != nil {
			log.Warn("facet discovery failed", zap.Error(err))
			cli.PrintWarning("Facet discovery failed, showing hits and words only: %v", err)
		}
		ctrl.SetFacetNames(names)
	}

	input := strings.Join(args, " ")
	round, reqs := ctrl.Restore(session.State{
		Input:    input,
		Facets:   facets,
		FirstHit: (queryPage - 1) * cc.Settings.Results.HitsPerPage,
	})
	if !round.Launched {
		return fmt.Errorf("query %q is too short, the last word needs at least %d characters",
			input, cc.Settings.Query.MinPrefixLengthToLaunchQuery)
	}

	// A failed hit request fails the command. Failed facet boxes are
	// reported and the other boxes are still printed.
	resps := make([]*backend.Response, len(reqs))
	errs := make([]error, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		g.Go(func() error {
			resp, err := client.Query(gctx, req.Params)
			switch {
			case err == nil:
				resps[i] = resp
			case req.Hits:
				return fmt.Errorf("%s: %w", req.Params.Target, err)
			default:
				errs[i] = err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, req := range reqs {
		if errs[i] != nil {
			ctrl.Fail(req, errs[i])
			cli.PrintWarning("%s: %v", req.Params.Target, errs[i])
			continue
		}
		ctrl.Apply(req, resps[i])
	}

	result := buildQueryResult(ctrl)
	if format != string(cli.FormatText) {
		return cli.OutputResults(cmd.OutOrStdout(), format, result)
	}
	return outputQueryText(cmd.OutOrStdout(), ctrl)
}

func buildQueryResult(ctrl *session.Controller) QueryResult {
	settings := ctrl.Settings()
	hits := ctrl.Hits()
	result := QueryResult{
		Query:    ctrl.LastQuery(),
		Subtitle: hits.Subtitle(),
		Total:    hits.Total,
		First:    hits.First,
		TimeMs:   float64(hits.Time.Microseconds()) / 1000,
		Hits:     make([]QueryHit, 0, len(hits.Hits)),
		Errors:   ctrl.Errors(),
	}
	for _, h := range hits.Hits {
		result.Hits = append(result.Hits, QueryHit{ID: h.ID, Score: h.Score, Excerpt: h.Excerpt, URL: h.URL, Info: h.Info})
	}
	for _, box := range ctrl.Boxes() {
		fr := FacetResult{Name: box.Name, Total: box.Total, Items: make([]FacetItem, 0, len(box.Items))}
		key := settings.ScoreKey(box.Name)
		for _, c := range box.Items {
			fr.Items = append(fr.Items, FacetItem{
				Text:     c.Text,
				Label:    session.Label(c.Text),
				Score:    c.Value(key),
				Selected: ctrl.Selection().Has(c.Text),
			})
		}
		result.Facets = append(result.Facets, fr)
	}
	return result
}

func outputQueryText(w io.Writer, ctrl *session.Controller) error {
	settings := ctrl.Settings()
	formatter, err := tui.NewTemplateFormatter(settings.Results.HitTemplate)
	if err != nil {
		return err
	}

	hits := ctrl.Hits()
	fmt.Fprintln(w, hits.Subtitle())
	if header := hits.Header(); header != "" {
		fmt.Fprintln(w, header)
	}
	fmt.Fprintln(w)
	for i, h := range hits.Hits {
		text, err := formatter.Format(h)
		if err != nil {
			return fmt.Errorf("format hit %d: %w", h.ID, err)
		}
		fmt.Fprintf(w, "%d.\n%s\n\n", hits.First+i+1, cli.Indent(text, "   "))
	}

	for _, box := range ctrl.Boxes() {
		if box.Name == models.Word && len(box.Items) == 0 {
			continue
		}
		fmt.Fprintln(w, box.Title())
		table := cli.NewTableFormatter(w)
		key := settings.ScoreKey(box.Name)
		for _, c := range box.Items {
			check := "[ ]"
			if ctrl.Selection().Has(c.Text) {
				check = "[x]"
			}
			table.Row(check, cli.TruncateString(session.Label(c.Text), 40), humanize.Comma(int64(c.Value(key))))
		}
		table.Flush()
		if footer := box.Footer(); footer != "" {
			fmt.Fprintln(w, footer)
		}
		fmt.Fprintln(w)
	}

	for _, e := range ctrl.Errors() {
		fmt.Fprintf(w, "× %s\n", e)
	}
	return nil
}
