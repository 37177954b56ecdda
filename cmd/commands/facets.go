package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/completesearch/completesearch-cli/internal/cli"
)

// FacetsResult is the output of the facets command
type FacetsResult struct {
	Facets []string `json:"facets" yaml:"facets"`
	Count  int      `json:"count" yaml:"count"`
}

// NewFacetsCommand creates the facets command
func NewFacetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "facets",
		Short: "List the facet dimensions of the index",
		Args:  cobra.NoArgs,
		RunE:  runFacets,
	}
}

func runFacets(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	cc, err := commandContext(cmd)
	if err != nil {
		return err
	}
	client, err := cc.NewClient()
	if err != nil {
		return err
	}

	names, err := client.FacetNames(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to discover facets: %w", err)
	}

	if format != string(cli.FormatText) {
		return cli.OutputResults(cmd.OutOrStdout(), format, FacetsResult{Facets: names, Count: len(names)})
	}
	if len(names) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No facets found")
		return nil
	}
	for _, n := range names {
		fmt.Fprintln(cmd.OutOrStdout(), n)
	}
	return nil
}
