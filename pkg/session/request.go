package session

import (
	"github.com/completesearch/completesearch-cli/pkg/backend"
	"github.com/completesearch/completesearch-cli/pkg/query"
)

// TargetHits labels requests whose hits go to the hit box.
const TargetHits = "hits"

// Request is one backend request of a round together with the ids its
// response is applied under.
type Request struct {
	QueryID uint64
	RoundID uint64
	// Hits is set when the hit list of the response goes to the hit box.
	Hits bool
	// Box names the facet box receiving the completions, empty for none.
	Box    string
	Params backend.Params
}

// Round describes one user-visible edit event.
type Round struct {
	QueryID  uint64
	RoundID  uint64
	Input    string
	Query    string
	Key      query.Key
	Launched bool
}

// Applied reports which boxes took a response.
type Applied struct {
	Hits bool
	Box  bool
}

// Any reports whether any box changed.
func (a Applied) Any() bool { return a.Hits || a.Box }

// State is what is needed to replay a round later.
type State struct {
	Input    string   `json:"input"`
	Facets   []string `json:"facets"`
	FirstHit int      `json:"first_hit"`
}
