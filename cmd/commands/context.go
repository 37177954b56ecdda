package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/completesearch/completesearch-cli/internal/cli"
	"github.com/completesearch/completesearch-cli/internal/logger"
)

// commandContext loads the settings named by the persistent --config flag.
// Headless commands log to stderr only at warn level and above unless the
// settings ask for more. The command's context carries the logger, tagged
// with the command name.
func commandContext(cmd *cobra.Command) (*cli.CommandContext, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cc, err := cli.NewCommandContext(configPath)
	if err != nil {
		return nil, err
	}
	if cc.Settings.Logging.Level == "info" {
		cc.Settings.Logging.Level = "warn"
	}
	if err := cc.InitLogger(""); err != nil {
		return nil, err
	}
	cmd.SetContext(logger.ContextWithLogger(cmd.Context(), cc.Logger.With(zap.String("command", cmd.Name()))))
	return cc, nil
}

func outputFormat(cmd *cobra.Command) (string, error) {
	format, _ := cmd.Flags().GetString("output")
	if format == "" {
		format = string(cli.FormatText)
	}
	return format, cli.ValidateOutputFormat(format)
}
