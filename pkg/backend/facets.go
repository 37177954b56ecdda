package backend

import (
	"context"
	"strings"
)

// FacetDiscoveryQuery lists the special words naming the facet dimensions of an index.
const FacetDiscoveryQuery = ":info:facet:*"

// FacetNames asks the server which facet dimensions its index has.
func (c *Client) FacetNames(ctx context.Context) ([]string, error) {
	resp, err := c.Query(ctx, Params{
		Target:      "facets",
		Query:       FacetDiscoveryQuery,
		Hits:        0,
		Completions: 999,
	})
	if err != nil {
		return nil, err
	}
	return FacetNamesFrom(resp), nil
}

// FacetNamesFrom extracts facet names from a discovery response. Each
// completion text is cut after its last colon.
func FacetNamesFrom(resp *Response) []string {
	names := make([]string, 0, len(resp.Completions.Items))
	seen := make(map[string]bool, len(resp.Completions.Items))
	for _, c := range resp.Completions.Items {
		name := c.Text
		if i := strings.LastIndex(name, ":"); i >= 0 {
			name = name[i+1:]
		}
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
