package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/asarangaram/clmediakit"
	"github.com/asarangaram/clmediakit/blobstore"
)

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withIndex(cmd, func(ctx context.Context, idx *clmediakit.Index) error {
				return printStats(cmd.OutOrStdout(), a.jsonOut, idx.Stats())
			})
		},
	}
}

func (a *app) compactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Drop tombstoned slots and rewrite the index file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withIndex(cmd, func(ctx context.Context, idx *clmediakit.Index) error {
				before := idx.Stats().Tombstoned
				if err := idx.Compact(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reclaimed %d\n", before-idx.Stats().Tombstoned)
				return nil
			})
		},
	}
}

func (a *app) backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Copy the index file to the configured mirrors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withIndex(cmd, func(ctx context.Context, idx *clmediakit.Index) error {
				if err := idx.Backup(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "backup complete")
				return nil
			})
		},
	}
}

func (a *app) restoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Restore the index file from a mirror",
		Long: `Download the index from the first configured mirror that holds a valid copy
and replace the local index file with it. No other process may have the
index open.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			mirrors, err := a.cfg.Mirrors(ctx)
			if err != nil {
				return err
			}
			if len(mirrors) == 0 {
				return clmediakit.ErrNoMirror
			}
			name := a.cfg.Mirror.Name
			if name == "" {
				name = filepath.Base(a.cfg.Index)
			}

			var errs []error
			for _, m := range mirrors {
				err := clmediakit.Restore(ctx, m, name, a.cfg.Index)
				if err == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "restored %s from %s\n", a.cfg.Index, blobstore.Describe(m))
					return nil
				}
				errs = append(errs, err)
			}
			return errors.Join(errs...)
		},
	}
}
