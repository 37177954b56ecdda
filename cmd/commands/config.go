package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/completesearch/completesearch-cli/internal/cli"
	"github.com/completesearch/completesearch-cli/pkg/files"
	"github.com/completesearch/completesearch-cli/pkg/models"
)

// NewConfigCommand creates the config command with its subcommands
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or show the settings file",
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default settings",
		Long: `Write the default settings to path, or to the file csearch would read
(` + "`--config`" + `, $CSEARCH_CONFIG, .csearch/settings.yaml, then the user config directory).`,
		Args: cobra.MaximumNArgs(1),
		RunE: runConfigInit,
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	path := files.SettingsPath(configPath)
	if len(args) > 0 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil {
		ok, err := cli.Confirm(fmt.Sprintf("%s exists. Overwrite?", path), false)
		if err != nil {
			return err
		}
		if !ok {
			cli.PrintInfo("Kept %s", path)
			return nil
		}
	}

	if err := files.WriteSettings(path, models.DefaultSettings()); err != nil {
		return err
	}
	cli.PrintSuccess("Wrote default settings to %s", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	configPath, _ := cmd.Flags().GetString("config")
	cc, err := cli.NewCommandContext(configPath)
	if err != nil {
		return err
	}
	if format == string(cli.FormatText) {
		format = string(cli.FormatYAML)
		fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", cc.ConfigPath)
	}
	return cli.OutputResults(cmd.OutOrStdout(), format, cc.Settings)
}
