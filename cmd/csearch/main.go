package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/completesearch/completesearch-cli/cmd/commands"
	"github.com/completesearch/completesearch-cli/internal/cli"
	"github.com/completesearch/completesearch-cli/internal/logger"
	"github.com/completesearch/completesearch-cli/internal/metrics"
	"github.com/completesearch/completesearch-cli/pkg/backend"
	"github.com/completesearch/completesearch-cli/pkg/history"
	"github.com/completesearch/completesearch-cli/pkg/session"
	"github.com/completesearch/completesearch-cli/pkg/tui"
)

// Version is set during build with -ldflags
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "csearch",
	Short: "Interactive terminal client for a CompleteSearch server",
	Long: `csearch is an interactive search-as-you-type client for a CompleteSearch
completion server. Every keystroke queries the hit list, the word completions
and one box per facet at once; selecting facet values refines the query.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of csearch",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "csearch version %s\n", version)
	},
}

func init() {
	commands.AddGlobalFlags(rootCmd)
	commands.AddCommands(rootCmd)
	rootCmd.AddCommand(versionCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cc, err := cli.NewCommandContext(configPath)
	if err != nil {
		return err
	}
	settings := cc.Settings
	if err := cc.InitLogger(settings.Logging.File); err != nil {
		return err
	}
	log := cc.Logger.With(zap.String("session_id", uuid.NewString()))
	defer log.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(logger.ContextWithLogger(cmd.Context(), log))
	defer cancel()

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		return err
	}
	if addr := settings.Metrics.Addr; addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr, metrics.NewRouter(reg)); err != nil {
				log.Error("metrics listener failed", zap.Error(err))
			}
		}()
	}

	client, err := backend.NewClient(settings.Backend.BaseURL, backend.WithLogger(log), backend.WithMetrics(m))
	if err != nil {
		return err
	}
	pool := backend.NewPool(client, time.Duration(settings.Backend.TimeoutMs)*time.Millisecond,
		backend.WithPoolLogger(log), backend.WithInFlightGauge(m))
	defer func() {
		pool.Close()
		pool.Wait()
	}()

	ctrl := session.New(settings, session.WithLogger(log), session.WithObserver(m))
	opts := []tui.Option{tui.WithLogger(log), tui.WithFacetLister(client)}
	if settings.History.Enabled {
		store, err := history.Open(settings.History.Path, settings.History.MaxEntries)
		if err != nil {
			log.Warn("history disabled", zap.Error(err))
		} else {
			defer store.Close()
			opts = append(opts, tui.WithHistory(store))
		}
	}

	tui.Version = version
	app, err := tui.NewApp(ctx, ctrl, pool, opts...)
	if err != nil {
		return err
	}

	log.Info("starting", zap.String("backend", settings.Backend.BaseURL), zap.String("version", version))
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to start the terminal user interface: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		cli.PrintError("%v", err)
		os.Exit(1)
	}
}
