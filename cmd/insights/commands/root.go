// Package commands implements the insights CLI.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spherical-ai/spherical/libs/campaign-insights/cmd/insights/ui"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/app"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/config"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/observability"
)

// Version is set at build time.
var Version = "0.1.0"

type rootOptions struct {
	cfgFile  string
	verbose  bool
	noColor  bool
	jsonMode bool
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Campaign insights: ask questions about ad campaigns in plain language",
		Long: `insights turns natural-language questions about advertising campaigns into
a single SQL query, runs it against the campaign store and prints a
markdown report with key metrics, insights and recommendations.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "", "config file path (defaults to $CONFIG_PATH)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	cmd.PersistentFlags().BoolVar(&opts.jsonMode, "json", false, "print JSON instead of the markdown report")

	cmd.AddCommand(
		newAskCommand(opts),
		newCampaignsCommand(opts),
		newChatCommand(opts),
		newVersionCommand(),
	)
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

func (o *rootOptions) terminal() *ui.UI {
	return ui.Terminal(o.noColor || o.jsonMode, o.verbose)
}

// openRuntime loads configuration and builds the runtime. The CLI logs to
// stderr in console format; only warnings are shown unless verbose.
func (o *rootOptions) openRuntime(ctx context.Context) (*app.Runtime, error) {
	path := o.cfgFile
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := "warn"
	if o.verbose {
		level = "debug"
	}
	logger := observability.NewLogger(observability.LogConfig{
		Level:       level,
		Format:      "console",
		Output:      os.Stderr,
		ServiceName: cfg.Observability.ServiceName,
	})

	rt, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return rt, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "insights %s\n", Version)
		},
	}
}
