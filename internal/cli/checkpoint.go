package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/noema/hlr/core/model"
	"github.com/noema/hlr/internal/store"
)

func newCheckpointCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect and manage stored model checkpoints",
		Long: "Operates directly on the checkpoint store. The store is locked while " +
			"hlr serve is running, so stop the server first.",
	}
	cmd.AddCommand(
		newCheckpointListCmd(),
		newCheckpointShowCmd(),
		newCheckpointDeleteCmd(),
		newCheckpointImportCmd(),
	)
	return cmd
}

// withStore opens the configured store for the duration of fn.
func withStore(cmd *cobra.Command, fn func(*store.Store) error) (err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(st)
}

func newCheckpointListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored scopes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(st *store.Store) error {
				scopes, err := st.List(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, scope := range scopes {
					cp, err := st.Load(cmd.Context(), scope)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%s\tfeatures=%d\tobservations=%d\tupdated=%s\n",
						scope, len(cp.Weights), cp.Observations, cp.UpdatedAt.Format(time.RFC3339))
				}
				return nil
			})
		},
	}
}

func newCheckpointShowCmd() *cobra.Command {
	var outFile string
	cmd := &cobra.Command{
		Use:   "show <scope>",
		Short: "Print a checkpoint as JSON, or write it to a file with --out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(st *store.Store) error {
				cp, err := st.Load(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if outFile != "" {
					return model.SaveFile(cp, outFile)
				}
				return model.Encode(cp, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "write the checkpoint to this file")
	return cmd
}

func newCheckpointDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <scope>",
		Short: "Delete a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(st *store.Store) error {
				if err := st.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func newCheckpointImportCmd() *cobra.Command {
	var scope string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load a checkpoint file into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cp, err := model.LoadFile(args[0])
			if err != nil {
				return err
			}
			if scope != "" {
				cp.Scope = scope
			}
			return withStore(cmd, func(st *store.Store) error {
				if err := st.Save(cmd.Context(), cp); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %s (%d features)\n", cp.Scope, len(cp.Weights))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "", "store under this scope instead of the one in the file")
	return cmd
}
