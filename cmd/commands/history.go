package commands

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/completesearch/completesearch-cli/internal/cli"
	"github.com/completesearch/completesearch-cli/pkg/history"
	"github.com/completesearch/completesearch-cli/pkg/session"
)

// HistoryResult is the output of history list
type HistoryResult struct {
	Entries []history.Entry `json:"entries" yaml:"entries"`
	Count   int             `json:"count" yaml:"count"`
}

var historyLimit int

// NewHistoryCommand creates the history command with its subcommands
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or clear the query history",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent queries, newest first",
		Args:  cobra.NoArgs,
		RunE:  runHistoryList,
	}
	listCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show (0 for all)")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all history entries",
		Args:  cobra.NoArgs,
		RunE:  runHistoryClear,
	}

	cmd.AddCommand(listCmd, clearCmd)
	return cmd
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	cc, err := commandContext(cmd)
	if err != nil {
		return err
	}
	store, err := cc.OpenHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(historyLimit)
	if err != nil {
		return err
	}

	if format != string(cli.FormatText) {
		return cli.OutputResults(cmd.OutOrStdout(), format, HistoryResult{Entries: entries, Count: len(entries)})
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No queries recorded")
		return nil
	}

	table := cli.NewTableFormatter(cmd.OutOrStdout())
	table.Header("WHEN", "QUERY", "FACETS", "FIRST HIT")
	for _, e := range entries {
		labels := make([]string, len(e.Facets))
		for i, f := range e.Facets {
			labels[i] = session.Label(f)
		}
		input := e.Input
		if input == "" {
			input = "(empty)"
		}
		table.Row(
			humanize.Time(e.Time),
			cli.TruncateString(input, 40),
			cli.TruncateString(strings.Join(labels, ", "), 30),
			fmt.Sprint(e.FirstHit+1),
		)
	}
	table.Flush()
	return nil
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	cc, err := commandContext(cmd)
	if err != nil {
		return err
	}
	ok, err := cli.Confirm("Delete all history entries?", false)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	store, err := cc.OpenHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(); err != nil {
		return err
	}
	cli.PrintSuccess("History cleared")
	return nil
}
