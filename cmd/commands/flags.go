package commands

import (
	"github.com/spf13/cobra"

	"github.com/completesearch/completesearch-cli/internal/cli"
)

// AddGlobalFlags registers the persistent flags every command reads.
func AddGlobalFlags(root *cobra.Command) {
	flags := root.PersistentFlags()
	flags.String("config", "", "Settings file (default: $CSEARCH_CONFIG, .csearch/settings.yaml, user config dir)")
	flags.StringP("output", "o", "text", "Output format: text, json, yaml")
	flags.BoolP("quiet", "q", false, "Suppress informational output")
	flags.Bool("no-color", false, "Disable symbols in status output")
	flags.BoolP("yes", "y", false, "Answer yes to confirmations")

	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		quiet, _ := cmd.Flags().GetBool("quiet")
		noColor, _ := cmd.Flags().GetBool("no-color")
		yes, _ := cmd.Flags().GetBool("yes")
		cli.SetGlobalFlags(quiet, noColor, yes)
	}
}

// AddCommands attaches the headless commands to root.
func AddCommands(root *cobra.Command) {
	root.AddCommand(
		NewQueryCommand(),
		NewFacetsCommand(),
		NewConfigCommand(),
		NewHistoryCommand(),
	)
}
