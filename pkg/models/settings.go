package models

import (
	"fmt"
	"strings"
)

// Settings represents the application configuration
type Settings struct {
	Backend BackendSettings `yaml:"backend"`
	Query   QuerySettings   `yaml:"query"`
	Results ResultSettings  `yaml:"results"`
	Facets  FacetSettings   `yaml:"facets"`
	UI      UISettings      `yaml:"ui"`
	Logging LoggingSettings `yaml:"logging"`
	History HistorySettings `yaml:"history"`
	Metrics MetricsSettings `yaml:"metrics"`
}

// BackendSettings controls how the completion server is reached
type BackendSettings struct {
	BaseURL         string `yaml:"base_url"`
	TimeoutMs       int    `yaml:"timeout_ms"`
	MaxResults      int    `yaml:"max_results"`
	AbortSuperseded bool   `yaml:"abort_superseded"`
}

// QuerySettings controls query rewriting and launching
type QuerySettings struct {
	MinPrefixLengthToAppendStar  int    `yaml:"min_prefix_length_to_append_star"`
	MinPrefixLengthToLaunchQuery int    `yaml:"min_prefix_length_to_launch_query"`
	LaunchEmptyQuery             bool   `yaml:"launch_empty_query"`
	ReplacementForEmptyQuery     string `yaml:"replacement_for_empty_query"`
	FacetIDsAvailable            bool   `yaml:"facetids_available"`
	DebounceMs                   int    `yaml:"debounce_ms"`
	PruneQueryWordsOnFacetSelect bool   `yaml:"prune_query_words_on_facet_select"`
}

// ResultSettings controls the hit box
type ResultSettings struct {
	HitsPerPage   int    `yaml:"hits_per_page"`
	HowToRankHits string `yaml:"how_to_rank_hits"`
	ExcerptRadius int    `yaml:"excerpt_radius"`
	HitTemplate   string `yaml:"hit_template"`
}

// FacetSettings controls the facet boxes
type FacetSettings struct {
	// Names lists the facet dimensions. When empty they are discovered from
	// the index via the :info:facet: words.
	Names                []string          `yaml:"names"`
	CompletionsPerBox    int               `yaml:"completions_per_box"`
	HowToRankCompletions map[string]string `yaml:"how_to_rank_completions"`
	ScoresDisplayed      map[string]string `yaml:"scores_displayed"`
}

// UISettings controls colors of the terminal UI
type UISettings struct {
	ColorFacets      string `yaml:"color_facets"`
	ColorFacetsFaded string `yaml:"color_facets_faded"`
	ColorHighlight   string `yaml:"color_highlight"`
}

// LoggingSettings controls the log output
type LoggingSettings struct {
	Env   string `yaml:"env"`   // prod or dev
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`
}

// HistorySettings controls the persistent query history
type HistorySettings struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	MaxEntries int    `yaml:"max_entries"`
}

// MetricsSettings controls the optional metrics listener
type MetricsSettings struct {
	Addr string `yaml:"addr"`
}

// Word is the name of the facet box holding plain word completions.
const Word = "word"

// DefaultHitTemplate renders the title, excerpt and url of a hit.
const DefaultHitTemplate = `{{with .Info.title}}{{.}}{{else}}Document #{{.ID}}{{end}}{{with .Info.year}} ({{.}}){{end}}
{{.Excerpt}}{{with .URL}}
{{.}}{{end}}`

var validScoreKeys = map[string]bool{"@sc": true, "@dc": true, "@oc": true, "@id": true}

// DefaultSettings returns the default configuration
func DefaultSettings() *Settings {
	return &Settings{
		Backend: BackendSettings{
			BaseURL:    "http://localhost:8888/",
			TimeoutMs:  5000,
			MaxResults: 1000,
		},
		Query: QuerySettings{
			MinPrefixLengthToAppendStar:  3,
			MinPrefixLengthToLaunchQuery: 1,
			LaunchEmptyQuery:             true,
			DebounceMs:                   120,
		},
		Results: ResultSettings{
			HitsPerPage:   7,
			HowToRankHits: "0d",
			ExcerptRadius: 20,
			HitTemplate:   DefaultHitTemplate,
		},
		Facets: FacetSettings{
			CompletionsPerBox:    10,
			HowToRankCompletions: map[string]string{"default": "1d"},
			ScoresDisplayed:      map[string]string{"default": "@dc"},
		},
		UI: UISettings{
			ColorFacets:      "255",
			ColorFacetsFaded: "241",
			ColorHighlight:   "214",
		},
		Logging: LoggingSettings{
			Env:   "prod",
			Level: "info",
		},
		History: HistorySettings{
			Enabled:    true,
			MaxEntries: 500,
		},
	}
}

// ApplyDefaults fills empty fields with default values.
func (s *Settings) ApplyDefaults() {
	d := DefaultSettings()
	if s.Backend.BaseURL == "" {
		s.Backend.BaseURL = d.Backend.BaseURL
	}
	if s.Backend.TimeoutMs <= 0 {
		s.Backend.TimeoutMs = d.Backend.TimeoutMs
	}
	if s.Backend.MaxResults <= 0 {
		s.Backend.MaxResults = d.Backend.MaxResults
	}
	if s.Query.MinPrefixLengthToAppendStar <= 0 {
		s.Query.MinPrefixLengthToAppendStar = d.Query.MinPrefixLengthToAppendStar
	}
	if s.Query.MinPrefixLengthToLaunchQuery <= 0 {
		s.Query.MinPrefixLengthToLaunchQuery = d.Query.MinPrefixLengthToLaunchQuery
	}
	if s.Query.DebounceMs < 0 {
		s.Query.DebounceMs = 0
	}
	if s.Results.HitsPerPage <= 0 {
		s.Results.HitsPerPage = d.Results.HitsPerPage
	}
	if s.Results.ExcerptRadius <= 0 {
		s.Results.ExcerptRadius = d.Results.ExcerptRadius
	}
	if strings.TrimSpace(s.Results.HitTemplate) == "" {
		s.Results.HitTemplate = d.Results.HitTemplate
	}
	if s.Facets.CompletionsPerBox <= 0 {
		s.Facets.CompletionsPerBox = d.Facets.CompletionsPerBox
	}
	if s.Facets.HowToRankCompletions == nil {
		s.Facets.HowToRankCompletions = d.Facets.HowToRankCompletions
	}
	if s.Facets.ScoresDisplayed == nil {
		s.Facets.ScoresDisplayed = d.Facets.ScoresDisplayed
	}
	if s.UI.ColorFacets == "" {
		s.UI.ColorFacets = d.UI.ColorFacets
	}
	if s.UI.ColorFacetsFaded == "" {
		s.UI.ColorFacetsFaded = d.UI.ColorFacetsFaded
	}
	if s.UI.ColorHighlight == "" {
		s.UI.ColorHighlight = d.UI.ColorHighlight
	}
	if s.Logging.Env == "" {
		s.Logging.Env = d.Logging.Env
	}
	if s.Logging.Level == "" {
		s.Logging.Level = d.Logging.Level
	}
	if s.History.MaxEntries <= 0 {
		s.History.MaxEntries = d.History.MaxEntries
	}
}

// Validate checks the configuration for correctness.
func (s *Settings) Validate() error {
	if !strings.HasPrefix(s.Backend.BaseURL, "http://") && !strings.HasPrefix(s.Backend.BaseURL, "https://") {
		return fmt.Errorf("backend.base_url must start with http:// or https://, got %q", s.Backend.BaseURL)
	}
	if s.Backend.MaxResults > 100000 {
		return fmt.Errorf("backend.max_results must be at most 100000, got %d", s.Backend.MaxResults)
	}
	switch s.Logging.Env {
	case "prod", "dev":
	default:
		return fmt.Errorf("logging.env must be \"prod\" or \"dev\", got %q", s.Logging.Env)
	}
	for facet, key := range s.Facets.ScoresDisplayed {
		if !validScoreKeys[key] {
			return fmt.Errorf("facets.scores_displayed.%s must be one of @sc, @dc, @oc, @id, got %q", facet, key)
		}
	}
	for _, name := range s.Facets.Names {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("facets.names must not contain empty names")
		}
		if strings.EqualFold(name, Word) {
			return fmt.Errorf("facets.names must not contain %q, the word box always exists", Word)
		}
	}
	return nil
}

// CompletionRanking returns the ranking spec for the given facet box, falling
// back to the "default" entry and finally to ranking by document count.
func (s *Settings) CompletionRanking(facet string) string {
	if r := s.Facets.HowToRankCompletions[facet]; r != "" {
		return r
	}
	if r := s.Facets.HowToRankCompletions["default"]; r != "" {
		return r
	}
	return "1d"
}

// ScoreKey returns which completion count is displayed in the given facet box.
func (s *Settings) ScoreKey(facet string) string {
	if k := s.Facets.ScoresDisplayed[facet]; k != "" {
		return k
	}
	if k := s.Facets.ScoresDisplayed["default"]; k != "" {
		return k
	}
	return "@dc"
}
