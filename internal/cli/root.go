// Package cli provides the command-line interface for recall. Commands work
// directly on the configured database and model tiers, without the server.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/iammorganparry/clive/apps/recall/internal/app"
	"github.com/iammorganparry/clive/apps/recall/internal/config"
)

// Version is set at build time.
var Version = "0.1.0"

type state struct {
	verbose bool
	asJSON  bool
	app     *app.App
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	st := &state{}

	root := &cobra.Command{
		Use:   "recall",
		Short: "Semantic memory for the things people teach you",
		Long: `Recall stores what people teach it, embeds each memory, links similar
memories together and retrieves the most relevant ones for a question.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			level := slog.LevelWarn
			if st.verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			st.app, err = app.Build(cfg, logger)
			if err != nil {
				return fmt.Errorf("initialize: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if st.app != nil {
				if err := st.app.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
				}
			}
		},
	}

	root.PersistentFlags().BoolVarP(&st.verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().BoolVar(&st.asJSON, "json", false, "print results as JSON")

	root.AddCommand(
		newTeachCmd(st),
		newSearchCmd(st),
		newLinksCmd(st),
		newRecapCmd(st),
		newRouteCmd(st),
	)
	return root
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}

// printJSON writes v as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
