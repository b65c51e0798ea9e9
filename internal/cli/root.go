// Package cli implements the hlr command line.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/noema/hlr/internal/config"
	"github.com/noema/hlr/internal/store"
	"github.com/noema/hlr/pkg/errors"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hlr",
		Short: "Half-life regression sidecar for spaced repetition",
		Long: "hlr predicts how likely a learner is to recall an item and learns online " +
			"from review outcomes. Models are kept per scope and checkpointed to disk.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "path to a YAML config file (default $HLR_CONFIG or ./hlr.yaml)")
	root.PersistentFlags().String("log-level", "", "override log.level")

	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())
	root.AddCommand(newCheckpointCmd())
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}

// loadConfig reads the configuration named by the --config flag and applies
// the --log-level override.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (*store.Store, error) {
	st, err := store.Open(cfg.Store.Path, cfg.Store.InMemory)
	if err != nil {
		return nil, errors.Wrap(err, "open store")
	}
	return st, nil
}
